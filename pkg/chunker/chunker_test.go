package chunker

import (
	"bytes"
	"errors"
	"math/rand"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bilbo = "When Mr Bilbo Baggins of Bag End announced that he would shortly be " +
	"celebrating his eleventyifirst birthday with a party of special " +
	"magnificence, there was much talk and excitement in Hobbiton."

// 小尺寸配置，方便在测试里观察切分
func smallConfig() Config {
	return Config{
		MinSize:    64,
		MaxSize:    256,
		WindowSize: 16,
		Target:     16 * 128,
		Boundary:   BoundarySum,
	}
}

func mustChunker(t *testing.T, cfg Config) *Chunker {
	t.Helper()
	c, err := NewChunker(cfg)
	require.NoError(t, err)
	return c
}

// 固定种子的伪随机数据，保证每次运行一致
func sampleData(size int, seed int64) []byte {
	data := make([]byte, size)
	rand.New(rand.NewSource(seed)).Read(data)
	return data
}

func assertBounds(t *testing.T, cfg Config, chunks [][]byte) {
	t.Helper()
	for i, c := range chunks {
		// 最后一块可能小于 MinSize，这是允许的
		if i < len(chunks)-1 {
			assert.GreaterOrEqual(t, len(c), cfg.MinSize, "chunk %d too small", i)
		} else {
			assert.GreaterOrEqual(t, len(c), 1, "last chunk must not be empty")
		}
		assert.LessOrEqual(t, len(c), cfg.MaxSize, "chunk %d too large", i)
	}
}

func TestChunker_ShortString_SingleChunk(t *testing.T) {
	c := mustChunker(t, DefaultConfig())

	chunks, err := c.CreateChunks(bytes.NewReader([]byte(bilbo)))
	require.NoError(t, err)

	require.Len(t, chunks, 1)
	assert.Equal(t, []byte(bilbo), chunks[0], "没有丢掉任何字节")
}

func TestChunker_EmptyInput(t *testing.T) {
	c := mustChunker(t, DefaultConfig())
	chunks, err := c.CreateChunks(bytes.NewReader(nil))
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestChunker_BinarySample_DefaultConfig(t *testing.T) {
	// ~2.3MB，超过默认 MinSize
	data := sampleData(2300*1024, 7)
	c := mustChunker(t, DefaultConfig())

	chunks, err := c.CreateChunks(bytes.NewReader(data))
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	total := 0
	for _, ch := range chunks {
		total += len(ch)
	}
	assert.Equal(t, len(data), total)
	assert.Equal(t, data, bytes.Join(chunks, nil))
	assertBounds(t, DefaultConfig(), chunks)
}

func TestChunker_RoundTrip(t *testing.T) {
	cfg := smallConfig()
	c := mustChunker(t, cfg)

	for _, size := range []int{0, 1, 63, 64, 65, 255, 256, 257, 1000, 10_000} {
		data := sampleData(size, int64(size))
		chunks, err := c.CreateChunks(bytes.NewReader(data))
		require.NoError(t, err)

		assert.Equal(t, data, append([]byte{}, bytes.Join(chunks, nil)...), "size %d", size)
		assertBounds(t, cfg, chunks)
		if size == 0 {
			assert.Empty(t, chunks)
		}
	}
}

func TestChunker_Deterministic(t *testing.T) {
	data := sampleData(50_000, 42)
	c := mustChunker(t, smallConfig())

	chunks1, err := c.CreateChunks(bytes.NewReader(data))
	require.NoError(t, err)
	chunks2, err := c.CreateChunks(bytes.NewReader(data))
	require.NoError(t, err)

	assert.Equal(t, chunks1, chunks2, "对于相同数据，切分结果必须完全一致")
}

func TestChunker_ReadBatchingDoesNotMatter(t *testing.T) {
	data := sampleData(20_000, 3)
	c := mustChunker(t, smallConfig())

	whole, err := c.CreateChunks(bytes.NewReader(data))
	require.NoError(t, err)
	oneByte, err := c.CreateChunks(iotest.OneByteReader(bytes.NewReader(data)))
	require.NoError(t, err)

	assert.Equal(t, whole, oneByte)
}

func TestChunker_ForcedCutAtMax(t *testing.T) {
	// 全 0 数据，累加和恒为 0，永远不会命中 Target，只能靠 MaxSize 强制切分
	cfg := smallConfig()
	c := mustChunker(t, cfg)

	data := make([]byte, cfg.MaxSize*3+10)
	chunks, err := c.CreateChunks(bytes.NewReader(data))
	require.NoError(t, err)

	require.Len(t, chunks, 4)
	for i := 0; i < 3; i++ {
		assert.Len(t, chunks[i], cfg.MaxSize)
	}
	assert.Len(t, chunks[3], 10)
}

func TestChunker_WindowCarriesAcrossCuts(t *testing.T) {
	// 窗口 4 字节，全 0xFF 时累加和 = 1020 = Target
	cfg := Config{MinSize: 2, MaxSize: 100, WindowSize: 4, Target: 4 * 255, Boundary: BoundarySum}
	c := mustChunker(t, cfg)

	chunks, err := c.CreateChunks(bytes.NewReader(bytes.Repeat([]byte{0xFF}, 8)))
	require.NoError(t, err)

	// 第一块要等窗口填满 (4 字节)；之后窗口不重置，满足 MinSize 就立刻命中
	var sizes []int
	for _, ch := range chunks {
		sizes = append(sizes, len(ch))
	}
	assert.Equal(t, []int{4, 2, 2}, sizes)
}

func TestChunker_ReadError(t *testing.T) {
	c := mustChunker(t, smallConfig())
	boom := errors.New("disk on fire")

	_, err := c.CreateChunks(iotest.ErrReader(boom))
	assert.ErrorIs(t, err, boom)
}

func TestChunker_CallbackErrorStops(t *testing.T) {
	c := mustChunker(t, smallConfig())
	stop := errors.New("stop")
	calls := 0

	err := c.Split(bytes.NewReader(make([]byte, 10_000)), func([]byte) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestChunker_Buzhash(t *testing.T) {
	cfg := smallConfig()
	cfg.Boundary = BoundaryBuzhash
	c := mustChunker(t, cfg)

	data := sampleData(100_000, 9)
	chunks, err := c.CreateChunks(bytes.NewReader(data))
	require.NoError(t, err)

	assert.Equal(t, data, bytes.Join(chunks, nil))
	assertBounds(t, cfg, chunks)

	again, err := c.CreateChunks(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, chunks, again)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero min", func(c *Config) { c.MinSize = 0 }},
		{"max below min", func(c *Config) { c.MaxSize = c.MinSize - 1 }},
		{"zero window", func(c *Config) { c.WindowSize = 0 }},
		{"bad boundary", func(c *Config) { c.Boundary = "rabin" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			_, err := NewChunker(cfg)
			assert.Error(t, err)
		})
	}

	assert.NoError(t, DefaultConfig().Validate())
}
