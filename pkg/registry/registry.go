package registry

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/vango-dev/homectl/internal/errors"
)

// Event is one activation of a widget.
type Event struct {
	// Target is the ID of the activated element.
	Target string
	// Kind is the role of the element (plus, minus, toggle, edit, ...).
	Kind string
}

// Handler services activations of one widget.
type Handler interface {
	Handle(ctx context.Context, ev Event) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, ev Event) error

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, ev Event) error {
	return f(ctx, ev)
}

// Middleware wraps every dispatch. Implementations call next to continue
// the chain and may replace the context passed down.
type Middleware interface {
	Handle(ctx context.Context, ev Event, next func(context.Context) error) error
}

// MiddlewareFunc adapts a function to Middleware.
type MiddlewareFunc func(ctx context.Context, ev Event, next func(context.Context) error) error

// Handle calls f.
func (f MiddlewareFunc) Handle(ctx context.Context, ev Event, next func(context.Context) error) error {
	return f(ctx, ev, next)
}

// Option configures a Registry.
type Option func(*Registry)

// WithMiddleware appends middleware. The first middleware is outermost.
func WithMiddleware(mw ...Middleware) Option {
	return func(r *Registry) {
		r.middleware = append(r.middleware, mw...)
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = l
	}
}

// Registry is a widget ID to handler map.
type Registry struct {
	mu         sync.RWMutex
	handlers   map[string]Handler
	middleware []Middleware
	logger     *slog.Logger
	closed     bool
}

// New creates an empty Registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		handlers: make(map[string]Handler),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Mount registers h under id. Mounting an ID twice is an error.
func (r *Registry) Mount(id string, h Handler) error {
	if id == "" {
		return errors.New("E100").WithDetail("widget has no id")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return errors.New("E112")
	}
	if _, ok := r.handlers[id]; ok {
		return errors.New("E111").WithDetail(id)
	}
	r.handlers[id] = h
	r.logger.Debug("widget mounted", "widget", id)
	return nil
}

// Unmount removes id. It reports whether id was mounted.
func (r *Registry) Unmount(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.handlers[id]; !ok {
		return false
	}
	delete(r.handlers, id)
	r.logger.Debug("widget unmounted", "widget", id)
	return true
}

// Mounted reports whether id is registered.
func (r *Registry) Mounted(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handlers[id]
	return ok
}

// IDs returns the registered widget IDs in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.handlers))
	for id := range r.handlers {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// Len returns the number of registered widgets.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers)
}

// Dispatch runs the handler for ev.Target through the middleware chain.
func (r *Registry) Dispatch(ctx context.Context, ev Event) error {
	r.mu.RLock()
	closed := r.closed
	h, ok := r.handlers[ev.Target]
	r.mu.RUnlock()

	if closed {
		return errors.New("E112")
	}
	if !ok {
		return errors.New("E110").WithDetail(ev.Target)
	}
	return r.chain(ctx, ev, 0, h)
}

func (r *Registry) chain(ctx context.Context, ev Event, i int, h Handler) error {
	if i == len(r.middleware) {
		return h.Handle(ctx, ev)
	}
	return r.middleware[i].Handle(ctx, ev, func(next context.Context) error {
		return r.chain(next, ev, i+1, h)
	})
}

// Close unmounts every widget. Dispatch and Mount fail afterwards.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	n := len(r.handlers)
	r.handlers = make(map[string]Handler)
	r.logger.Debug("registry closed", "widgets", n)
}
