package chunker

import (
	"fmt"
	"math/bits"

	"github.com/chmduquesne/rollinghash/buzhash64"
)

// Boundary 选择切点判定方式
type Boundary string

const (
	// BoundarySum: 窗口累加和恰好等于 Target 时切分 (默认，保持与旧数据切点一致)
	BoundarySum Boundary = "sum"
	// BoundaryBuzhash: buzhash64 & mask == 0 时切分，mask 由 Target 的位数决定
	BoundaryBuzhash Boundary = "buzhash"
)

func ParseBoundary(s string) (Boundary, error) {
	switch Boundary(s) {
	case BoundarySum, "":
		return BoundarySum, nil
	case BoundaryBuzhash:
		return BoundaryBuzhash, nil
	default:
		return "", fmt.Errorf("unknown boundary %q", s)
	}
}

// oracle 每吃进一个字节，回答“这里是不是内容边界”
// 状态跨 chunk 保留，只有 Chunker 的累积缓冲在切分时重置
type oracle interface {
	Roll(b byte) bool
}

type sumOracle struct {
	w      *Window
	target uint64
}

func (o *sumOracle) Roll(b byte) bool {
	return o.w.Push(b) == o.target
}

type buzhashOracle struct {
	h    *buzhash64.Buzhash64
	mask uint64
}

func newBuzhashOracle(windowSize int, target uint64) *buzhashOracle {
	h := buzhash64.New()
	// Roll 之前必须先用 Write 填满窗口
	_, _ = h.Write(make([]byte, windowSize))
	return &buzhashOracle{
		h:    h,
		mask: (uint64(1) << bits.Len64(target)) - 1,
	}
}

func (o *buzhashOracle) Roll(b byte) bool {
	o.h.Roll(b)
	return o.h.Sum64()&o.mask == 0
}

func newOracle(cfg Config) oracle {
	if cfg.Boundary == BoundaryBuzhash {
		return newBuzhashOracle(cfg.WindowSize, cfg.Target)
	}
	return &sumOracle{w: NewWindow(cfg.WindowSize), target: cfg.Target}
}
