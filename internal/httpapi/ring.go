package httpapi

import (
	"sync"

	"github.com/you/livetts/internal/core"
)

// Ring is a bounded in-memory buffer of the most recently spoken messages.
// It backs /recent and /count; nothing is persisted.
type Ring struct {
	mu    sync.Mutex
	buf   []core.ChatMessage
	next  int
	total int64
}

// NewRing creates a buffer holding up to capacity messages.
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = 256
	}
	return &Ring{buf: make([]core.ChatMessage, 0, capacity)}
}

// Add records a message, evicting the oldest when full.
func (r *Ring) Add(msg core.ChatMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.buf) < cap(r.buf) {
		r.buf = append(r.buf, msg)
	} else {
		r.buf[r.next] = msg
	}
	r.next = (r.next + 1) % cap(r.buf)
	r.total++
}

// Count returns the total number of messages observed, including evicted
// ones.
func (r *Ring) Count() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.total
}

// Recent returns up to limit messages, newest first.
func (r *Ring) Recent(limit int) []core.ChatMessage {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.buf)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]core.ChatMessage, 0, limit)
	idx := r.next - 1
	for i := 0; i < limit; i++ {
		if idx < 0 {
			idx += n
		}
		out = append(out, r.buf[idx])
		idx--
	}
	return out
}
