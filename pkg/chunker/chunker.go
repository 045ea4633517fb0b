package chunker

import (
	"errors"
	"fmt"
	"io"
)

// 默认配置 (单位: 字节)
const (
	DefaultMinSize    = 2 * 1024 * 1024  // 2MiB
	DefaultMaxSize    = 10 * 1024 * 1024 // 10MiB
	DefaultWindowSize = 4 * 1024         // 4KiB
	DefaultTarget     = 500000
)

// Config 注入 Chunker 的可调参数，测试里可以用很小的尺寸
type Config struct {
	MinSize    int
	MaxSize    int
	WindowSize int
	Target     uint64
	Boundary   Boundary
}

func DefaultConfig() Config {
	return Config{
		MinSize:    DefaultMinSize,
		MaxSize:    DefaultMaxSize,
		WindowSize: DefaultWindowSize,
		Target:     DefaultTarget,
		Boundary:   BoundarySum,
	}
}

func (c Config) Validate() error {
	if c.MinSize <= 0 {
		return fmt.Errorf("chunker: min size must be positive, got %d", c.MinSize)
	}
	if c.MaxSize < c.MinSize {
		return fmt.Errorf("chunker: max size %d below min size %d", c.MaxSize, c.MinSize)
	}
	if c.WindowSize <= 0 {
		return fmt.Errorf("chunker: window size must be positive, got %d", c.WindowSize)
	}
	if _, err := ParseBoundary(string(c.Boundary)); err != nil {
		return fmt.Errorf("chunker: %w", err)
	}
	return nil
}

// Chunker 是无状态的切分工具，每次调用都拥有自己的窗口和缓冲
type Chunker struct {
	cfg Config
}

func NewChunker(cfg Config) (*Chunker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Chunker{cfg: cfg}, nil
}

func (c *Chunker) Config() Config { return c.cfg }

// Split 读完整个流，每切出一块就回调一次 fn
// fn 拿到的切片归它所有，Chunker 之后不会再写入
// fn 返回错误会立刻中止切分
func (c *Chunker) Split(r io.Reader, fn func(chunk []byte) error) error {
	// 读缓冲按最大块大小分配，减少 Read 次数
	buf := make([]byte, c.cfg.MaxSize)
	acc := make([]byte, 0, c.cfg.MinSize)
	o := newOracle(c.cfg)

	for {
		n, err := r.Read(buf)
		for _, b := range buf[:n] {
			acc = append(acc, b)
			boundary := o.Roll(b)

			// 1. 不足最小块，不判断切点 (窗口照样更新)
			if len(acc) < c.cfg.MinSize {
				continue
			}

			// 2. 内容边界或达到最大块，切
			if !boundary && len(acc) < c.cfg.MaxSize {
				continue
			}

			if ferr := fn(acc); ferr != nil {
				return ferr
			}
			acc = make([]byte, 0, c.cfg.MinSize)
		}

		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("chunker: read failed: %w", err)
		}
	}

	// 3. 收尾：剩余字节 (可能小于 MinSize) 作为最后一块
	if len(acc) > 0 {
		return fn(acc)
	}
	return nil
}

// CreateChunks 把流切成块并全部返回；空输入返回 0 块
func (c *Chunker) CreateChunks(r io.Reader) ([][]byte, error) {
	var chunks [][]byte
	err := c.Split(r, func(chunk []byte) error {
		chunks = append(chunks, chunk)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return chunks, nil
}
