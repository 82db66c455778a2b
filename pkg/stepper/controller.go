package stepper

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/vango-dev/homectl/internal/errors"
	"github.com/vango-dev/homectl/internal/inflight"
	"github.com/vango-dev/homectl/pkg/dom"
	"github.com/vango-dev/homectl/pkg/fragment"
	"github.com/vango-dev/homectl/pkg/notify"
	"github.com/vango-dev/homectl/pkg/resync"
)

// FailureContext prefixes the log line of a failed stepper update.
const FailureContext = "could not update device information value"

// Status is the outcome of one interaction.
type Status int

const (
	// NoOp means nothing was sent: the value was already at the boundary.
	NoOp Status = iota
	// Committed means the server accepted the write.
	Committed
	// Reverted means the write failed and the widget was restored.
	Reverted
	// Superseded means a newer interaction on the same widget replaced this one.
	Superseded
)

func (s Status) String() string {
	switch s {
	case NoOp:
		return "noop"
	case Committed:
		return "committed"
	case Reverted:
		return "reverted"
	case Superseded:
		return "superseded"
	}
	return "unknown"
}

// UpdateRequest is the persistence request of one interaction.
type UpdateRequest struct {
	TargetID string
	NewValue string
	Method   string
	URL      string
}

// Result is the typed outcome of one press.
type Result struct {
	Widget  string
	Status  Status
	State   State
	Request *UpdateRequest

	// Resynced is true when State came from the server.
	Resynced bool

	// Err is the request failure for Reverted results.
	Err error
}

// Pending is the eventual Result of a press.
type Pending = inflight.Pending[Result]

// Transport sends requests to the fragment service.
type Transport interface {
	Do(ctx context.Context, r fragment.Request) (*fragment.Response, error)
}

// Resyncer fetches a device's authoritative state.
type Resyncer interface {
	Resync(ctx context.Context, device string) (resync.State, error)
}

// Option configures a Controller.
type Option func(*Controller)

// WithResyncer sets the resyncer used once a write settles. Without one
// the speculative state is committed as final and a failed write reverts
// to the last confirmed state.
func WithResyncer(r Resyncer) Option {
	return func(c *Controller) {
		c.resyncer = r
	}
}

// WithReporter sets the failure reporter.
func WithReporter(r *notify.Reporter) Option {
	return func(c *Controller) {
		c.reporter = r
	}
}

// WithPlaceholder sets the value placeholder of update URL templates.
func WithPlaceholder(p string) Option {
	return func(c *Controller) {
		c.placeholder = p
	}
}

// WithTracker shares a request tracker with other controllers.
func WithTracker(t *inflight.Tracker) Option {
	return func(c *Controller) {
		c.tracker = t
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = l
	}
}

// Controller handles presses on stepper widgets.
type Controller struct {
	transport   Transport
	resyncer    Resyncer
	reporter    *notify.Reporter
	tracker     *inflight.Tracker
	placeholder string
	logger      *slog.Logger
}

// New creates a Controller.
func New(t Transport, opts ...Option) *Controller {
	c := &Controller{
		transport:   t,
		placeholder: "{value}",
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.tracker == nil {
		c.tracker = inflight.New()
	}
	if c.reporter == nil {
		c.reporter = notify.NewReporter(nil, c.logger)
	}
	return c
}

// Press handles a press of the a button on w. It mutates the widget
// synchronously and returns before the update request completes. An
// error means the widget state was malformed and nothing changed.
func (c *Controller) Press(ctx context.Context, w *Widget, a Action) (*Pending, error) {
	var (
		pending *Pending
		err     error
	)
	c.tracker.WithLock(w.ID, func() {
		pending, err = c.press(ctx, w, a)
	})
	return pending, err
}

func (c *Controller) press(ctx context.Context, w *Widget, a Action) (*Pending, error) {
	cur, err := w.Read()
	if err != nil {
		return nil, err
	}

	next, changed := Next(cur, a)
	if !changed {
		// Repair buttons left stale by an earlier presentation.
		w.SetButtons(cur)
		c.logger.DebugContext(ctx, "stepper at boundary",
			"widget", w.ID, "action", a.String(), "value", cur.Value)
		return inflight.Resolved(Result{Widget: w.ID, Status: NoOp, State: cur}), nil
	}

	template, ok := w.button(a).Attr(dom.AttrHref)
	if !ok || template == "" {
		return nil, errors.New("E100").WithDetailf("button %s has no href", w.button(a).ID())
	}

	// A press made while another is unsettled reverts to the same
	// confirmed state, not to the earlier press's speculative value.
	base := w.confirmed
	if base == nil {
		base = &baseline{snap: w.Snapshot(), state: cur}
		w.confirmed = base
	}

	w.opposite(a).SetEnabled(true)
	w.SetButtons(next)
	w.Input.SetAttr(dom.AttrValue, strconv.Itoa(next.Value))

	value := strconv.Itoa(next.Value)
	req := &UpdateRequest{
		TargetID: w.Device,
		NewValue: value,
		Method:   http.MethodPatch,
		URL:      fragment.Substitute(template, c.placeholder, value),
	}

	ticket := c.tracker.Begin(context.WithoutCancel(ctx), w.ID)
	pending := inflight.NewPending[Result]()
	go c.complete(ticket, w, base, next, req, pending)
	return pending, nil
}

func (c *Controller) complete(tk *inflight.Ticket, w *Widget, base *baseline, next State,
	req *UpdateRequest, pending *Pending) {
	defer tk.Finish()
	ctx := tk.Context()

	_, err := c.transport.Do(ctx, fragment.Request{Method: req.Method, URL: req.URL})
	if err != nil {
		res := Result{Widget: w.ID, Status: Superseded, State: next, Request: req, Err: err}
		c.tracker.WithLock(w.ID, func() {
			if tk.Current() {
				if w.confirmed != nil {
					base = w.confirmed
				}
				w.Restore(base.snap)
				w.confirmed = nil
				res.Status = Reverted
				res.State = base.state
			}
		})
		if res.Status != Reverted {
			pending.Resolve(res)
			return
		}
		c.reporter.Failure(ctx, FailureContext, err)
		if st, ok := c.resync(ctx, w); ok {
			c.tracker.WithLock(w.ID, func() {
				if tk.Current() {
					res.State = w.Apply(st)
					res.Resynced = true
				}
			})
		}
		pending.Resolve(res)
		return
	}

	res := Result{Widget: w.ID, Status: Committed, State: next, Request: req}
	st, resynced := c.resync(ctx, w)
	c.tracker.WithLock(w.ID, func() {
		if !tk.Current() {
			// A newer press is unsettled; it now reverts to this write.
			res.Status = Superseded
			if w.confirmed != nil {
				w.confirmed = &baseline{snap: snapshotOf(next), state: next}
			}
			return
		}
		w.confirmed = nil
		if resynced {
			res.State = w.Apply(st)
			res.Resynced = true
		}
	})
	pending.Resolve(res)
}

// resync fetches the widget's device state. Failures are logged and leave
// the widget as it is.
func (c *Controller) resync(ctx context.Context, w *Widget) (resync.State, bool) {
	if c.resyncer == nil || w.Device == "" {
		return resync.State{}, false
	}
	st, err := c.resyncer.Resync(ctx, w.Device)
	if err != nil {
		c.logger.WarnContext(ctx, "stepper resync failed, keeping local value",
			"widget", w.ID, "device", w.Device, "error", err)
		return resync.State{}, false
	}
	return st, true
}

// Forget drops sequencing state for a widget and cancels its request.
func (c *Controller) Forget(widgetID string) {
	c.tracker.Forget(widgetID)
}
