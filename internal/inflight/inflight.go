// Package inflight sequences requests per widget.
//
// Each widget has at most one live request. Beginning a new one cancels the
// previous request's context and makes its ticket stale, so a completion
// that arrives late can tell it has been superseded.
package inflight

import (
	"context"
	"sync"
)

// Tracker sequences requests keyed by widget ID.
type Tracker struct {
	mu      sync.Mutex
	seq     uint64
	entries map[string]*entry
}

type entry struct {
	widget sync.Mutex // serializes read-modify-write on the widget
	seq    uint64
	cancel context.CancelFunc
}

// Ticket identifies one request.
type Ticket struct {
	tracker *Tracker
	key     string
	seq     uint64
	ctx     context.Context
}

// New creates an empty Tracker.
func New() *Tracker {
	return &Tracker{entries: make(map[string]*entry)}
}

func (t *Tracker) entry(key string) *entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[key]
	if !ok {
		e = &entry{}
		t.entries[key] = e
	}
	return e
}

// WithLock runs fn holding the widget's lock.
func (t *Tracker) WithLock(key string, fn func()) {
	e := t.entry(key)
	e.widget.Lock()
	defer e.widget.Unlock()
	fn()
}

// Begin starts a new request for key, canceling the one in flight.
func (t *Tracker) Begin(parent context.Context, key string) *Ticket {
	e := t.entry(key)
	ctx, cancel := context.WithCancel(parent)

	t.mu.Lock()
	if e.cancel != nil {
		e.cancel()
	}
	t.seq++
	e.seq = t.seq
	e.cancel = cancel
	seq := e.seq
	t.mu.Unlock()

	return &Ticket{tracker: t, key: key, seq: seq, ctx: ctx}
}

// Context returns the request context. It is canceled when a newer request
// begins for the same widget.
func (tk *Ticket) Context() context.Context {
	return tk.ctx
}

// Key returns the widget key.
func (tk *Ticket) Key() string {
	return tk.key
}

// Seq returns the ticket's sequence number. Numbers increase across the
// tracker and are never reused, even for a widget that was forgotten.
func (tk *Ticket) Seq() uint64 {
	return tk.seq
}

// Current reports whether no newer request has begun for the widget.
func (tk *Ticket) Current() bool {
	t := tk.tracker
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[tk.key]
	return ok && e.seq == tk.seq
}

// Finish releases the request's context. It has no effect on a newer
// request for the widget.
func (tk *Ticket) Finish() {
	t := tk.tracker
	t.mu.Lock()
	e, ok := t.entries[tk.key]
	if ok && e.seq == tk.seq && e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	t.mu.Unlock()
}

// InFlight reports whether key has an unfinished request.
func (t *Tracker) InFlight(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[key]
	return ok && e.cancel != nil
}

// Forget cancels any request for key and drops its state.
func (t *Tracker) Forget(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.entries[key]; ok {
		if e.cancel != nil {
			e.cancel()
		}
		delete(t.entries, key)
	}
}

// CancelAll cancels every request in flight.
func (t *Tracker) CancelAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, e := range t.entries {
		if e.cancel != nil {
			e.cancel()
			e.cancel = nil
		}
	}
}
