package engines

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

const flushMarkerPrefix = "__pagerun_flush_"

// flushBarrier pairs marker console messages with waiters. An engine whose
// events arrive on a different path than its command responses logs a marker
// after a call and waits for it to come back through the event stream; every
// console message emitted before the marker has then been handled.
type flushBarrier struct {
	mu      sync.Mutex
	pending map[string]chan struct{}
}

func newFlushBarrier() *flushBarrier {
	return &flushBarrier{pending: make(map[string]chan struct{})}
}

// add registers a new marker and returns it with the channel closed once the
// marker is seen.
func (b *flushBarrier) add() (string, <-chan struct{}) {
	marker := flushMarkerPrefix + uuid.NewString()
	seen := make(chan struct{})
	b.mu.Lock()
	b.pending[marker] = seen
	b.mu.Unlock()
	return marker, seen
}

func (b *flushBarrier) cancel(marker string) {
	b.mu.Lock()
	delete(b.pending, marker)
	b.mu.Unlock()
}

// release reports whether text is a flush marker and must be swallowed.
// Markers whose waiter gave up are swallowed too.
func (b *flushBarrier) release(text string) bool {
	if !strings.HasPrefix(text, flushMarkerPrefix) {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if seen, ok := b.pending[text]; ok {
		close(seen)
		delete(b.pending, text)
	}
	return true
}
