package core

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"anchorage/pkg/types"

	"github.com/google/uuid"
)

// NodeType 是 Node 的类型标签 (目前只有 file)
type NodeType string

const (
	NodeFile NodeType = "file"
)

var (
	ErrUnknownNodeType = errors.New("unknown node type")
	ErrEmptyNode       = errors.New("node references no blobs")
)

// ParseNodeType 解析外部传入的类型标签
func ParseNodeType(s string) (NodeType, error) {
	switch NodeType(s) {
	case NodeFile:
		return NodeFile, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownNodeType, s)
	}
}

// IDMode 决定 Node ID 的生成方式
type IDMode string

const (
	// IDModeRandom: 每次创建都生成随机 ID，相同内容的两次上传得到不同 Node
	IDModeRandom IDMode = "random"
	// IDModeContent: ID = 有序 Blob 列表的规范化哈希，Node 层也去重
	IDModeContent IDMode = "content"
)

func ParseIDMode(s string) (IDMode, error) {
	switch IDMode(s) {
	case IDModeRandom, "":
		return IDModeRandom, nil
	case IDModeContent:
		return IDModeContent, nil
	default:
		return "", fmt.Errorf("unknown node id mode %q", s)
	}
}

// Node 描述一个可还原的逻辑文件：按顺序拼接 Blobs 即得到原始字节流
type Node struct {
	ID    types.Hash   `json:"id" yaml:"id"`
	Type  NodeType     `json:"node_type" yaml:"node_type"`
	Blobs []types.Hash `json:"blobs" yaml:"blobs"`
}

// nodeContent 是 content 模式下参与哈希的部分 (不含 ID 本身)
type nodeContent struct {
	Type  NodeType `cbor:"t"`
	Blobs []string `cbor:"b"`
}

// NewNode 按指定模式生成 ID 并构造 Node
func NewNode(mode IDMode, t NodeType, blobs []types.Hash) (*Node, error) {
	var id types.Hash
	switch mode {
	case IDModeContent:
		h, err := ContentNodeID(t, blobs)
		if err != nil {
			return nil, err
		}
		id = h
	default:
		id = RandomNodeID()
	}

	return &Node{
		ID:    id,
		Type:  t,
		Blobs: append([]types.Hash(nil), blobs...),
	}, nil
}

// RandomNodeID 对一个新的 UUIDv4 取 SHA-256
func RandomNodeID() types.Hash {
	sum := sha256.Sum256([]byte(uuid.NewString()))
	return types.Hash(hex.EncodeToString(sum[:]))
}

// ContentNodeID 对 {type, blobs} 的规范化 CBOR 编码取 SHA-256
func ContentNodeID(t NodeType, blobs []types.Hash) (types.Hash, error) {
	c := nodeContent{Type: t, Blobs: make([]string, len(blobs))}
	for i, b := range blobs {
		c.Blobs[i] = string(b)
	}
	h, _, err := CalculateHash(c)
	if err != nil {
		return "", err
	}
	return h, nil
}

// Validate 检查 Node 是否描述了一个有意义的文件
// 存储层本身不调用它，只在创建入口校验
func (n *Node) Validate() error {
	if _, err := ParseNodeType(string(n.Type)); err != nil {
		return err
	}
	if len(n.Blobs) == 0 {
		return ErrEmptyNode
	}
	for i, b := range n.Blobs {
		if !b.IsValid() {
			return fmt.Errorf("blob %d: invalid hash %q", i, b)
		}
	}
	return nil
}
