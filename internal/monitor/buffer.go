package monitor

import "github.com/assetwatch/assetwatch/internal/model"

// ringBuffer keeps the newest len(items) metrics; pushing onto a full buffer
// overwrites the oldest entry. Not safe for concurrent use.
type ringBuffer struct {
	items []model.PerformanceMetric
	start int // index of the oldest entry
	size  int
}

func newRingBuffer(capacity int) *ringBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &ringBuffer{items: make([]model.PerformanceMetric, capacity)}
}

// push appends m and reports whether the oldest entry was evicted.
func (b *ringBuffer) push(m model.PerformanceMetric) bool {
	capacity := len(b.items)
	if b.size < capacity {
		b.items[(b.start+b.size)%capacity] = m
		b.size++
		return false
	}
	b.items[b.start] = m
	b.start = (b.start + 1) % capacity
	return true
}

func (b *ringBuffer) len() int {
	return b.size
}

func (b *ringBuffer) capacity() int {
	return len(b.items)
}

// at returns the i-th entry counting from the oldest.
func (b *ringBuffer) at(i int) model.PerformanceMetric {
	return b.items[(b.start+i)%len(b.items)]
}

// snapshot copies all entries, oldest first.
func (b *ringBuffer) snapshot() []model.PerformanceMetric {
	out := make([]model.PerformanceMetric, b.size)
	for i := 0; i < b.size; i++ {
		out[i] = b.at(i)
	}
	return out
}

// filter copies the entries accepted by keep, oldest first.
func (b *ringBuffer) filter(keep func(*model.PerformanceMetric) bool) []model.PerformanceMetric {
	out := make([]model.PerformanceMetric, 0, b.size)
	for i := 0; i < b.size; i++ {
		m := b.at(i)
		if keep(&m) {
			out = append(out, m)
		}
	}
	return out
}

// last copies the newest n entries, oldest first.
func (b *ringBuffer) last(n int) []model.PerformanceMetric {
	if n > b.size {
		n = b.size
	}
	if n <= 0 {
		return nil
	}
	out := make([]model.PerformanceMetric, n)
	offset := b.size - n
	for i := 0; i < n; i++ {
		out[i] = b.at(offset + i)
	}
	return out
}

// resize changes the capacity, keeping the newest entries that still fit.
func (b *ringBuffer) resize(capacity int) {
	if capacity < 1 {
		capacity = 1
	}
	if capacity == len(b.items) {
		return
	}
	kept := b.last(capacity)
	b.items = make([]model.PerformanceMetric, capacity)
	copy(b.items, kept)
	b.start = 0
	b.size = len(kept)
}

func (b *ringBuffer) reset() {
	clear(b.items)
	b.start = 0
	b.size = 0
}
