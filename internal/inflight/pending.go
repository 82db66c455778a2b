package inflight

import (
	"context"
	"sync"
)

// Pending is the eventual result of an asynchronous interaction.
type Pending[R any] struct {
	once   sync.Once
	done   chan struct{}
	result R
}

// NewPending creates an unresolved Pending.
func NewPending[R any]() *Pending[R] {
	return &Pending[R]{done: make(chan struct{})}
}

// Resolved returns a Pending already holding r.
func Resolved[R any](r R) *Pending[R] {
	p := NewPending[R]()
	p.Resolve(r)
	return p
}

// Resolve stores the result. Only the first call has an effect.
func (p *Pending[R]) Resolve(r R) {
	p.once.Do(func() {
		p.result = r
		close(p.done)
	})
}

// Done is closed once the result is available.
func (p *Pending[R]) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the result is available or ctx ends.
func (p *Pending[R]) Wait(ctx context.Context) (R, error) {
	select {
	case <-p.done:
		return p.result, nil
	case <-ctx.Done():
		var zero R
		return zero, ctx.Err()
	}
}
