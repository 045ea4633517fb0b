package core

import "anchorage/pkg/types"

// Chunk 代表切分出来的物理数据块
// 一旦写入 BlobStore 就成为 Blob
type Chunk struct {
	hash types.Hash
	data []byte
}

func NewChunk(data []byte) *Chunk {
	return &Chunk{
		hash: CalculateBlobHash(data),
		data: data,
	}
}

func (c *Chunk) ID() types.Hash { return c.hash }
func (c *Chunk) Bytes() []byte  { return c.data }
func (c *Chunk) Size() int64    { return int64(len(c.data)) }
