package disk

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"anchorage/pkg/apperr"
	"anchorage/pkg/core"
	"anchorage/pkg/storage"
	"anchorage/pkg/types"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemAdapter(t *testing.T) *Adapter {
	t.Helper()
	store, err := NewAdapterFs(afero.NewMemMapFs(), "/data")
	require.NoError(t, err)
	return store
}

func TestDiskAdapter(t *testing.T) {
	// 1. 真实磁盘上的临时目录
	tmpDir := t.TempDir()
	store, err := NewAdapter(tmpDir)
	require.NoError(t, err)

	ctx := context.Background()
	data := []byte("hello world")
	id := core.CalculateBlobHash(data)

	// 2. 测试 Put
	require.NoError(t, store.Put(ctx, id, data))

	// 验证文件平铺在根目录，名字是 blob-<hash>
	_, err = os.Stat(filepath.Join(tmpDir, "blob-"+string(id)))
	assert.NoError(t, err, "文件应该存在于根目录")

	// 3. 测试 Has
	exists, err := store.Has(ctx, id)
	assert.NoError(t, err)
	assert.True(t, exists)

	exists, err = store.Has(ctx, "ffffffff")
	assert.NoError(t, err)
	assert.False(t, exists)

	// 4. 测试 Get
	content, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, data, content)

	// 不应留下临时文件
	entries, err := os.ReadDir(tmpDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestDiskAdapter_PutIdempotent(t *testing.T) {
	store := newMemAdapter(t)
	ctx := context.Background()
	id := core.CalculateBlobHash([]byte("first"))

	require.NoError(t, store.Put(ctx, id, []byte("first")))
	// 第二次写入不同字节：不覆盖，也不比较
	require.NoError(t, store.Put(ctx, id, []byte("second")))

	got, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), got)
}

func TestDiskAdapter_GetNotFound(t *testing.T) {
	store := newMemAdapter(t)

	_, err := store.Get(context.Background(), core.CalculateBlobHash([]byte("never")))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDiskAdapter_GetReturnsCopy(t *testing.T) {
	store := newMemAdapter(t)
	ctx := context.Background()
	data := []byte("immutable")
	id := core.CalculateBlobHash(data)
	require.NoError(t, store.Put(ctx, id, data))

	got, err := store.Get(ctx, id)
	require.NoError(t, err)
	got[0] = 'X'

	again, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, data, again)
}

func TestDiskAdapter_PutIOError(t *testing.T) {
	mem := afero.NewMemMapFs()
	require.NoError(t, mem.MkdirAll("/data", 0755))
	store := &Adapter{fs: afero.NewReadOnlyFs(mem), rootPath: "/data"}

	err := store.Put(context.Background(), core.CalculateBlobHash([]byte("x")), []byte("x"))
	var ioErr *storage.IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "put", ioErr.Op)
}

func TestDiskAdapter_ConcurrentPutSameID(t *testing.T) {
	store := newMemAdapter(t)
	ctx := context.Background()
	data := []byte("contended")
	id := core.CalculateBlobHash(data)

	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- store.Put(ctx, id, data)
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}

	got, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestDiskAdapter_ConcurrentPutDifferentIDs(t *testing.T) {
	store := newMemAdapter(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			data := []byte(fmt.Sprintf("blob-%d", i))
			assert.NoError(t, store.Put(ctx, core.CalculateBlobHash(data), data))
		}(i)
	}
	wg.Wait()

	for i := 0; i < 16; i++ {
		data := []byte(fmt.Sprintf("blob-%d", i))
		got, err := store.Get(ctx, core.CalculateBlobHash(data))
		require.NoError(t, err)
		assert.Equal(t, data, got)
	}
}

// -----------------------------------------------------------------------------
// Node
// -----------------------------------------------------------------------------

func TestNodeAdapter_RoundTrip(t *testing.T) {
	store := newMemAdapter(t)
	nodes := store.Nodes()
	ctx := context.Background()

	node := &core.Node{
		ID:   core.RandomNodeID(),
		Type: core.NodeFile,
		Blobs: []types.Hash{
			core.CalculateBlobHash([]byte("c1")),
			core.CalculateBlobHash([]byte("c2")),
		},
	}
	require.NoError(t, nodes.Put(ctx, node.ID, node))

	got, err := nodes.Get(ctx, node.ID)
	require.NoError(t, err)
	assert.Equal(t, node, got)

	// 持久化形式是带字段名的 YAML
	raw, err := afero.ReadFile(store.fs, "/data/node-"+string(node.ID))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "node_type: file")
	assert.Contains(t, string(raw), "blobs:")
}

func TestNodeAdapter_PutIdempotent(t *testing.T) {
	store := newMemAdapter(t)
	nodes := store.Nodes()
	ctx := context.Background()
	id := core.RandomNodeID()

	first := &core.Node{ID: id, Type: core.NodeFile, Blobs: []types.Hash{core.CalculateBlobHash([]byte("a"))}}
	second := &core.Node{ID: id, Type: core.NodeFile, Blobs: []types.Hash{core.CalculateBlobHash([]byte("b"))}}

	require.NoError(t, nodes.Put(ctx, id, first))
	require.NoError(t, nodes.Put(ctx, id, second))

	got, err := nodes.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, first, got)
}

func TestNodeAdapter_NotFound(t *testing.T) {
	nodes := newMemAdapter(t).Nodes()

	_, err := nodes.Get(context.Background(), core.RandomNodeID())
	assert.True(t, apperr.Is(err, apperr.NotFound))
}

func TestNodeAdapter_CorruptRecord(t *testing.T) {
	store := newMemAdapter(t)
	id := core.RandomNodeID()
	require.NoError(t, afero.WriteFile(store.fs, "/data/node-"+string(id), []byte("blobs: [unterminated"), 0644))

	_, err := store.Nodes().Get(context.Background(), id)
	assert.True(t, apperr.Is(err, apperr.Internal))
}

func TestNodeAdapter_SharesDirectoryWithBlobs(t *testing.T) {
	store := newMemAdapter(t)
	ctx := context.Background()

	// 同一个十六进制串同时作为 Blob ID 和 Node ID 也不会冲突
	data := []byte("shared")
	id := core.CalculateBlobHash(data)
	require.NoError(t, store.Put(ctx, id, data))
	require.NoError(t, store.Nodes().Put(ctx, id, &core.Node{ID: id, Type: core.NodeFile, Blobs: []types.Hash{id}}))

	blob, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, data, blob)

	node, err := store.Nodes().Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []types.Hash{id}, node.Blobs)
}
