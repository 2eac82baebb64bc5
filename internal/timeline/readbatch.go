package timeline

import (
	"sync"
	"time"
)

const DefaultReadBatchDebounce = 100 * time.Millisecond

// ReadBatcher coalesces bursts of mark-read signals into a single flush so
// fast scrolling produces a bounded number of mutation requests. Ids are
// deduplicated per cycle; the flush callback receives the whole batch and
// runs on the timer goroutine (or the caller's goroutine for Flush).
type ReadBatcher struct {
	mu       sync.Mutex
	pending  map[int64]struct{}
	timer    *time.Timer
	debounce time.Duration
	onFlush  func(ids []int64)
}

func NewReadBatcher(debounce time.Duration, onFlush func(ids []int64)) *ReadBatcher {
	if debounce <= 0 {
		debounce = DefaultReadBatchDebounce
	}
	return &ReadBatcher{
		pending:  map[int64]struct{}{},
		debounce: debounce,
		onFlush:  onFlush,
	}
}

// Add inserts an id into the pending set and starts the debounce timer if
// none is running. A timer already in flight is not extended.
func (b *ReadBatcher) Add(id int64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.pending[id] = struct{}{}
	if b.timer == nil {
		b.timer = time.AfterFunc(b.debounce, b.Flush)
	}
}

// Flush delivers the pending batch immediately and cancels any running
// timer. An empty set flushes nothing.
func (b *ReadBatcher) Flush() {
	b.mu.Lock()
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	if len(b.pending) == 0 {
		b.mu.Unlock()
		return
	}
	ids := make([]int64, 0, len(b.pending))
	for id := range b.pending {
		ids = append(ids, id)
	}
	b.pending = map[int64]struct{}{}
	b.mu.Unlock()

	b.onFlush(ids)
}

// Clear drops the pending set without flushing.
func (b *ReadBatcher) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.pending = map[int64]struct{}{}
}
