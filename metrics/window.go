package metrics

import (
	"sync"
	"time"
)

type sample struct {
	endpoint string
	duration time.Duration
}

// window is a fixed capacity FIFO of latency samples.
type window struct {
	mu   sync.Mutex
	buf  []sample
	next int
	full bool
}

func newWindow(size int) *window {
	return &window{buf: make([]sample, size)}
}

func (w *window) add(endpoint string, d time.Duration) {
	w.mu.Lock()
	w.buf[w.next] = sample{endpoint: endpoint, duration: d}
	w.next++
	if w.next == len(w.buf) {
		w.next = 0
		w.full = true
	}
	w.mu.Unlock()
}

func (w *window) len() int {
	if w.full {
		return len(w.buf)
	}
	return w.next
}

// ordered returns the held samples oldest first.
func (w *window) ordered() []sample {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]sample, 0, w.len())
	if w.full {
		out = append(out, w.buf[w.next:]...)
	}
	return append(out, w.buf[:w.next]...)
}

type windowStats struct {
	samples     int
	overall     time.Duration
	perEndpoint map[string]time.Duration
}

func (w *window) stats() windowStats {
	w.mu.Lock()
	n := w.len()
	var (
		total  time.Duration
		sums   = make(map[string]time.Duration)
		counts = make(map[string]int)
	)
	for i := 0; i < n; i++ {
		s := w.buf[i]
		total += s.duration
		sums[s.endpoint] += s.duration
		counts[s.endpoint]++
	}
	w.mu.Unlock()

	st := windowStats{samples: n, perEndpoint: make(map[string]time.Duration, len(sums))}
	if n > 0 {
		st.overall = total / time.Duration(n)
	}
	for endpoint, sum := range sums {
		st.perEndpoint[endpoint] = sum / time.Duration(counts[endpoint])
	}
	return st
}
