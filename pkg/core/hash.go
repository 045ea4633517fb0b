package core

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"anchorage/pkg/types"

	"github.com/fxamacker/cbor/v2"
)

const (
	blobKeyPrefix = "blob-"
	nodeKeyPrefix = "node-"
)

// 定义确定性 CBOR 编码选项
// 同一个对象必须永远得到同一串字节，否则 content 模式的 Node ID 不稳定
var encOptions = cbor.EncOptions{
	// 1. 强制 Map Key 排序 (Canonical)
	Sort: cbor.SortCanonical,

	// 2. 浮点数必须使用64位表示
	ShortestFloat: cbor.ShortestFloatNone,

	// 3. 时间格式化为 Unix 整数，禁止 Tag 0/1
	Time:    cbor.TimeUnix,
	TimeTag: cbor.EncTagNone,

	// 4. 禁止不定长编码 (Indefinite Length)
	IndefLength: cbor.IndefLengthForbidden,
}

// 全局复用的编码模式
var em, _ = encOptions.EncMode()

// CalculateHash 计算对象的规范化 CBOR 编码及其 SHA-256
func CalculateHash(v any) (types.Hash, []byte, error) {
	data, err := em.Marshal(v)
	if err != nil {
		return "", nil, fmt.Errorf("failed to marshal object: %w", err)
	}

	hashBytes := sha256.Sum256(data)
	return types.Hash(hex.EncodeToString(hashBytes[:])), data, nil
}

// CalculateBlobHash 计算原始数据块的 Hash
func CalculateBlobHash(data []byte) types.Hash {
	hashBytes := sha256.Sum256(data)
	return types.Hash(hex.EncodeToString(hashBytes[:]))
}

// BlobKey 返回 Blob 在后端中的对象名: "blob-" + digest
// Blob 和 Node 可以共享同一个目录而不冲突
func BlobKey(h types.Hash) string { return blobKeyPrefix + string(h) }

// NodeKey 返回 Node 在后端中的对象名: "node-" + id
func NodeKey(id types.Hash) string { return nodeKeyPrefix + string(id) }

// TrimBlobKey 接受 "blob-<hex>" 或裸 hex，返回裸 hex
func TrimBlobKey(s string) types.Hash {
	if len(s) > len(blobKeyPrefix) && s[:len(blobKeyPrefix)] == blobKeyPrefix {
		return types.Hash(s[len(blobKeyPrefix):])
	}
	return types.Hash(s)
}
