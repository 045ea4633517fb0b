package core

import (
	"testing"

	"anchorage/pkg/types"

	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------
// 辅助工具
// -----------------------------------------------------------------------------

// mockHash 生成一个合法的 32 字节 Hex 字符串 (64字符长度)
func mockHash(input string) types.Hash {
	return CalculateBlobHash([]byte(input))
}

// mustNewNode 创建 Node，如果失败直接终止测试
func mustNewNode(t *testing.T, mode IDMode, blobs []types.Hash, msgAndArgs ...any) *Node {
	t.Helper()
	n, err := NewNode(mode, NodeFile, blobs)
	require.NoError(t, err, msgAndArgs...)
	return n
}
