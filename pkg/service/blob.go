package service

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"strings"

	"anchorage/pkg/apperr"
	"anchorage/pkg/core"
	"anchorage/pkg/metrics"
	"anchorage/pkg/storage"
	"anchorage/pkg/types"
)

// BlobService 实现 Blob 的创建与读取，负责把存储层错误翻译成 apperr
type BlobService struct {
	store   storage.BlobStore
	metrics *metrics.Metrics
}

// NewBlobService m 可以为 nil
func NewBlobService(store storage.BlobStore, m *metrics.Metrics) *BlobService {
	return &BlobService{store: store, metrics: m}
}

// EncodeBlob 编码为无填充的标准 Base64
func EncodeBlob(data []byte) string {
	return base64.RawStdEncoding.EncodeToString(data)
}

// DecodeBlob 同时接受有填充和无填充的标准 Base64
func DecodeBlob(s string) ([]byte, error) {
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
}

// CreateBlob 解码 payload，计算摘要并写入存储，返回 Blob ID
func (s *BlobService) CreateBlob(ctx context.Context, rc RequestContext, payload string) (types.Hash, error) {
	// 1. 解码
	data, err := DecodeBlob(payload)
	if err != nil {
		return "", apperr.Wrap(err, "blob payload is not valid base64", apperr.BadRequest).
			WithOp(rc.Op).WithUser(rc.User)
	}
	if len(data) == 0 {
		return "", apperr.New(apperr.BadRequest, "blob payload is empty").
			WithOp(rc.Op).WithUser(rc.User)
	}

	// 2. 计算内容地址并写入 (已存在时是空操作)
	id, err := s.PutBlob(ctx, rc, data)
	if err != nil {
		return "", err
	}

	slog.Debug("blob created", "id", id.Short(), "size", len(data), "user", rc.User)
	return id, nil
}

// PutBlob 写入原始字节，供已经持有二进制数据的调用方 (ingester) 使用
func (s *BlobService) PutBlob(ctx context.Context, rc RequestContext, data []byte) (types.Hash, error) {
	id := core.CalculateBlobHash(data)
	if err := s.store.Put(ctx, id, data); err != nil {
		return "", apperr.Wrap(err, "failed to store blob", apperr.Internal).
			WithOp(rc.Op).WithUser(rc.User)
	}

	if s.metrics != nil {
		s.metrics.BlobPuts.Inc()
		s.metrics.BlobBytes.Add(float64(len(data)))
	}
	return id, nil
}

// FetchBlob 读取 Blob 并以 Base64 返回；id 可以带 "blob-" 前缀
func (s *BlobService) FetchBlob(ctx context.Context, rc RequestContext, id string) (string, error) {
	data, err := s.GetBlob(ctx, rc, id)
	if err != nil {
		return "", err
	}
	return EncodeBlob(data), nil
}

// GetBlob 读取 Blob 的原始字节
func (s *BlobService) GetBlob(ctx context.Context, rc RequestContext, id string) ([]byte, error) {
	hash := core.TrimBlobKey(id)

	data, err := s.store.Get(ctx, hash)
	switch {
	case err == nil:
		return data, nil
	case errors.Is(err, storage.ErrNotFound):
		return nil, apperr.Wrap(err, "blob "+hash.String()+" not found", apperr.NotFound).
			WithOp(rc.Op).WithUser(rc.User)
	default:
		return nil, apperr.Wrap(err, "failed to read blob", apperr.Internal).
			WithOp(rc.Op).WithUser(rc.User)
	}
}
