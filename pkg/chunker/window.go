package chunker

// Window 维护最近 N 个字节的累加和 (rolling checksum)
// 用环形缓冲代替链表：Push 是 O(1)，且不分配内存
type Window struct {
	buf  []byte
	next int
	full bool
	sum  uint64 // 最大值 N*255，uint64 足够
}

// NewWindow 创建容量为 size 的窗口
func NewWindow(size int) *Window {
	return &Window{buf: make([]byte, size)}
}

// Push 追加一个字节，超出容量时淘汰最旧的字节，返回当前累加和
func (w *Window) Push(b byte) uint64 {
	if w.full {
		w.sum -= uint64(w.buf[w.next])
	}
	w.buf[w.next] = b
	w.sum += uint64(b)

	w.next++
	if w.next == len(w.buf) {
		w.next = 0
		w.full = true
	}
	return w.sum
}
