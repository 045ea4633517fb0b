package service

import (
	"context"
	"errors"
	"testing"

	"anchorage/pkg/metrics"
	"anchorage/pkg/storage/disk"
	"anchorage/pkg/types"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

// setupTestStores 用内存文件系统构建一个 disk 后端，同时充当 Blob 和 Node 存储
func setupTestStores(t *testing.T) (*disk.Adapter, *metrics.Metrics) {
	t.Helper()
	store, err := disk.NewAdapterFs(afero.NewMemMapFs(), "/data")
	require.NoError(t, err)
	return store, metrics.New()
}

func testRC() RequestContext {
	return NewRequestContext("", "POST /blob")
}

// brokenBlobStore 模拟底层 IO 故障
type brokenBlobStore struct{}

var errDiskOnFire = errors.New("disk on fire")

func (brokenBlobStore) Put(context.Context, types.Hash, []byte) error { return errDiskOnFire }
func (brokenBlobStore) Get(context.Context, types.Hash) ([]byte, error) {
	return nil, errDiskOnFire
}
