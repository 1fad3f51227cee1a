// ABOUTME: Per-key request supersession: a newer request cancels the older one.
// ABOUTME: Keeps stale permission views from racing fresher ones for the same key.

package dedupe

import (
	"context"
	"errors"
	"sync"
)

type inflight struct {
	id     uint64
	cancel context.CancelFunc
}

// Supersede tracks at most one in-flight request per key. Begin cancels the
// context of whatever request was running for that key before.
type Supersede struct {
	mu      sync.Mutex
	next    uint64
	running map[string]inflight
}

// NewSupersede creates an empty tracker.
func NewSupersede() *Supersede {
	return &Supersede{running: make(map[string]inflight)}
}

// Begin derives a cancellable context for a new request on key and cancels
// the previous one. The returned done func must be called when the request
// finishes; it releases the context and forgets the entry if it is still
// the current one.
func (s *Supersede) Begin(ctx context.Context, key string) (context.Context, func()) {
	ctx, cancel := context.WithCancelCause(ctx)
	cancelFn := func() { cancel(ErrSuperseded) }

	s.mu.Lock()
	s.next++
	id := s.next
	if prev, ok := s.running[key]; ok {
		prev.cancel()
	}
	s.running[key] = inflight{id: id, cancel: cancelFn}
	s.mu.Unlock()

	return ctx, func() {
		s.mu.Lock()
		if cur, ok := s.running[key]; ok && cur.id == id {
			delete(s.running, key)
		}
		s.mu.Unlock()
		cancel(context.Canceled)
	}
}

// Cancel aborts the in-flight request for key, if any.
func (s *Supersede) Cancel(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cur, ok := s.running[key]; ok {
		cur.cancel()
		delete(s.running, key)
	}
}

// InFlight reports how many keys have a running request.
func (s *Supersede) InFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.running)
}

// IsSuperseded reports whether ctx was cancelled because a newer request
// for the same key started.
func IsSuperseded(ctx context.Context) bool {
	return errors.Is(context.Cause(ctx), ErrSuperseded)
}
