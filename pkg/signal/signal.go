// Package signal provides a minimal typed publish/subscribe primitive.
// Components that need to announce events own a Signal value and expose its
// Subscribe method; no inheritance machinery is involved.
package signal

import "sync"

// Signal delivers values of type T to every subscriber, in subscription
// order, on the emitting goroutine. The zero value is ready to use.
type Signal[T any] struct {
	mu   sync.Mutex
	subs []func(T)
}

// Subscribe registers fn to be called on every subsequent Emit.
func (s *Signal[T]) Subscribe(fn func(T)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

// Emit delivers v to all current subscribers synchronously.
func (s *Signal[T]) Emit(v T) {
	s.mu.Lock()
	subs := make([]func(T), len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()
	for _, fn := range subs {
		fn(v)
	}
}
