// Package api 定义 HTTP 接口的请求与响应体，服务端和客户端共用
package api

// UserHeader 可选地携带调用方身份，目前只用于日志和错误记录
const UserHeader = "X-Anchorage-User"

// CreateBlobRequest 携带 Base64 编码的 Blob 内容 (有无填充均可)
type CreateBlobRequest struct {
	Data string `json:"data"`
}

// CreateBlobResponse 返回写入的 Blob ID (裸 hex)
type CreateBlobResponse struct {
	Created string `json:"created"`
}

// BlobResponse 携带无填充 Base64 编码的 Blob 内容
type BlobResponse struct {
	Contents string `json:"contents"`
}

// CreateNodeRequest 描述要创建的 Node；响应体是 core.Node
type CreateNodeRequest struct {
	Type  string   `json:"type"`
	Blobs []string `json:"blobs"`
}
