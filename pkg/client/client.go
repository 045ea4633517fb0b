// Package client 是 anchoraged HTTP 接口的客户端
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"anchorage/pkg/api"
	"anchorage/pkg/apperr"
	"anchorage/pkg/core"
	"anchorage/pkg/service"
	"anchorage/pkg/types"
)

// DefaultRemote 是本机上默认端口的服务端
const DefaultRemote = "http://localhost:4444"

// Client 封装了与 anchoraged 的连接
// 同时实现 ingester.Sink 和 exporter.Source
type Client struct {
	base string
	user string
	http *http.Client
}

// New 创建客户端；remote 为空时使用 DefaultRemote
func New(remote, user string) *Client {
	if remote == "" {
		remote = DefaultRemote
	}
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConnsPerHost: 16,
		IdleConnTimeout:     90 * time.Second,
	}
	return &Client{
		base: strings.TrimRight(remote, "/"),
		user: user,
		http: &http.Client{Transport: transport},
	}
}

// NewWithHTTPClient 使用调用方提供的 http.Client (测试用)
func NewWithHTTPClient(remote, user string, hc *http.Client) *Client {
	return &Client{base: strings.TrimRight(remote, "/"), user: user, http: hc}
}

// PutBlob 上传原始字节，返回服务端计算的 Blob ID
func (c *Client) PutBlob(ctx context.Context, data []byte) (types.Hash, error) {
	chunk := core.NewChunk(data)

	var resp api.CreateBlobResponse
	req := api.CreateBlobRequest{Data: service.EncodeBlob(chunk.Bytes())}
	if err := c.do(ctx, http.MethodPost, "/blob", req, &resp); err != nil {
		return "", err
	}

	id := types.Hash(resp.Created)
	// 服务端返回的地址必须与本地计算一致，否则说明传输损坏
	if id != chunk.ID() {
		return "", fmt.Errorf("server returned blob id %s, expected %s", id.Short(), chunk.ID().Short())
	}
	return id, nil
}

// GetBlob 下载 Blob 的原始字节
func (c *Client) GetBlob(ctx context.Context, id types.Hash) ([]byte, error) {
	var resp api.BlobResponse
	if err := c.do(ctx, http.MethodGet, "/blob/"+id.String(), nil, &resp); err != nil {
		return nil, err
	}
	data, err := service.DecodeBlob(resp.Contents)
	if err != nil {
		return nil, fmt.Errorf("failed to decode blob contents: %w", err)
	}
	return data, nil
}

// CreateNode 登记一个由有序 Blob 组成的 Node
func (c *Client) CreateNode(ctx context.Context, t core.NodeType, blobs []types.Hash) (*core.Node, error) {
	req := api.CreateNodeRequest{Type: string(t), Blobs: make([]string, len(blobs))}
	for i, b := range blobs {
		req.Blobs[i] = b.String()
	}

	var node core.Node
	if err := c.do(ctx, http.MethodPost, "/node", req, &node); err != nil {
		return nil, err
	}
	return &node, nil
}

// GetNode 读取 Node 元数据
func (c *Client) GetNode(ctx context.Context, id types.Hash) (*core.Node, error) {
	var node core.Node
	if err := c.do(ctx, http.MethodGet, "/node/"+id.String(), nil, &node); err != nil {
		return nil, err
	}
	return &node, nil
}

// do 发送 JSON 请求；非 2xx 响应按 apperr.Record 解码并还原为 *apperr.Error
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.user != "" {
		req.Header.Set(api.UserHeader, c.user)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var rec apperr.Record
		if err := json.Unmarshal(raw, &rec); err != nil || rec.Message == "" {
			return fmt.Errorf("%s %s: unexpected status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(raw)))
		}
		return rec.AsError()
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
