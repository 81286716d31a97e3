package breaker

import "time"

// failureWindow 失败时间戳的环形缓冲区，按写入顺序保存，满时覆盖最旧的
type failureWindow struct {
	buf   []time.Time
	start int // 最旧元素的位置
	size  int
}

func newFailureWindow(capacity int) *failureWindow {
	return &failureWindow{buf: make([]time.Time, capacity)}
}

// add 追加时间戳，容量已满时丢弃最旧的
func (w *failureWindow) add(t time.Time) {
	if w.size == len(w.buf) {
		w.buf[w.start] = t
		w.start = (w.start + 1) % len(w.buf)
		return
	}
	w.buf[(w.start+w.size)%len(w.buf)] = t
	w.size++
}

// purge 丢弃距 now 已达到 maxAge 的时间戳
func (w *failureWindow) purge(now time.Time, maxAge time.Duration) {
	for w.size > 0 && now.Sub(w.buf[w.start]) >= maxAge {
		w.buf[w.start] = time.Time{}
		w.start = (w.start + 1) % len(w.buf)
		w.size--
	}
}

// count 窗口内 now 之前 maxAge 以内的时间戳数，不修改窗口
func (w *failureWindow) count(now time.Time, maxAge time.Duration) int {
	n := 0
	for i := 0; i < w.size; i++ {
		if now.Sub(w.buf[(w.start+i)%len(w.buf)]) < maxAge {
			n++
		}
	}
	return n
}

func (w *failureWindow) len() int {
	return w.size
}

func (w *failureWindow) clear() {
	for i := range w.buf {
		w.buf[i] = time.Time{}
	}
	w.start = 0
	w.size = 0
}
