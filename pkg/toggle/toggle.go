// Package toggle implements the on/off switch controller.
//
// A toggle is the degenerate stepper: its domain is {off, on} and it has no
// boundary buttons, so every activation flips the state and sends a
// request. The request method is configurable because deployments use
// either PATCH or POST for the status endpoint. A "{value}" placeholder in
// the href is replaced by "true" or "false".
//
// Sequencing, revert on failure and resync behave as in package stepper.
package toggle

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/vango-dev/homectl/internal/errors"
	"github.com/vango-dev/homectl/internal/inflight"
	"github.com/vango-dev/homectl/pkg/dom"
	"github.com/vango-dev/homectl/pkg/fragment"
	"github.com/vango-dev/homectl/pkg/notify"
	"github.com/vango-dev/homectl/pkg/resync"
	"github.com/vango-dev/homectl/pkg/stepper"
)

// FailureContext prefixes the log line of a failed toggle update.
const FailureContext = "could not update device status"

// State is the client-visible state of a toggle.
type State struct {
	On bool
}

// Widget binds a toggle to its page element.
type Widget struct {
	ID     string
	Device string

	// Element carries data-on and href.
	Element *dom.Element

	// confirmed is the last state known to match the server while
	// activations are unsettled. Guarded by the tracker's widget lock.
	confirmed *State
}

// Read parses the widget's state. A missing or non-boolean data-on
// returns E100.
func (w *Widget) Read() (State, error) {
	raw, ok := w.Element.Attr(dom.AttrOn)
	if !ok {
		return State{}, errors.New("E100").WithDetailf("element %s has no %q attribute", w.Element.ID(), dom.AttrOn)
	}
	on, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return State{}, errors.New("E100").
			WithDetailf("attribute %q of %s is %q", dom.AttrOn, w.Element.ID(), raw).
			Wrap(err)
	}
	return State{On: on}, nil
}

// Write writes the state to the widget.
func (w *Widget) Write(s State) {
	w.Element.SetAttr(dom.AttrOn, strconv.FormatBool(s.On))
	w.Element.SetAttr("aria-checked", strconv.FormatBool(s.On))
}

// Result is the typed outcome of one toggle.
type Result struct {
	Widget   string
	Status   stepper.Status
	State    State
	Request  *stepper.UpdateRequest
	Resynced bool
	Err      error
}

// Pending is the eventual Result of a toggle.
type Pending = inflight.Pending[Result]

// Option configures a Controller.
type Option func(*Controller)

// WithMethod sets the request method, PATCH or POST.
func WithMethod(m string) Option {
	return func(c *Controller) {
		c.method = m
	}
}

// WithResyncer sets the resyncer used after successful writes.
func WithResyncer(r stepper.Resyncer) Option {
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

// WithPlaceholder sets the value placeholder.
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

// Controller handles toggle activations.
type Controller struct {
	transport   stepper.Transport
	resyncer    stepper.Resyncer
	reporter    *notify.Reporter
	tracker     *inflight.Tracker
	method      string
	placeholder string
	logger      *slog.Logger
}

// New creates a Controller. The default method is PATCH.
func New(t stepper.Transport, opts ...Option) *Controller {
	c := &Controller{
		transport:   t,
		method:      http.MethodPatch,
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

// Method returns the configured request method.
func (c *Controller) Method() string {
	return c.method
}

// Toggle flips w and dispatches the update. An error means the widget
// state was malformed and nothing changed.
func (c *Controller) Toggle(ctx context.Context, w *Widget) (*Pending, error) {
	var (
		pending *Pending
		err     error
	)
	c.tracker.WithLock(w.ID, func() {
		pending, err = c.toggle(ctx, w)
	})
	return pending, err
}

func (c *Controller) toggle(ctx context.Context, w *Widget) (*Pending, error) {
	cur, err := w.Read()
	if err != nil {
		return nil, err
	}
	href, ok := w.Element.Attr(dom.AttrHref)
	if !ok || href == "" {
		return nil, errors.New("E100").WithDetailf("element %s has no href", w.Element.ID())
	}

	base := w.confirmed
	if base == nil {
		base = &State{On: cur.On}
		w.confirmed = base
	}

	next := State{On: !cur.On}
	w.Write(next)

	value := strconv.FormatBool(next.On)
	req := &stepper.UpdateRequest{
		TargetID: w.Device,
		NewValue: value,
		Method:   c.method,
		URL:      fragment.Substitute(href, c.placeholder, value),
	}

	ticket := c.tracker.Begin(context.WithoutCancel(ctx), w.ID)
	pending := inflight.NewPending[Result]()
	go c.complete(ticket, w, *base, next, req, pending)
	return pending, nil
}

func (c *Controller) complete(tk *inflight.Ticket, w *Widget, prev, next State,
	req *stepper.UpdateRequest, pending *Pending) {
	defer tk.Finish()
	ctx := tk.Context()

	_, err := c.transport.Do(ctx, fragment.Request{Method: req.Method, URL: req.URL})
	if err != nil {
		res := Result{Widget: w.ID, Status: stepper.Superseded, State: next, Request: req, Err: err}
		c.tracker.WithLock(w.ID, func() {
			if tk.Current() {
				if w.confirmed != nil {
					prev = *w.confirmed
				}
				w.Write(prev)
				w.confirmed = nil
				res.Status = stepper.Reverted
				res.State = prev
			}
		})
		if res.Status != stepper.Reverted {
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

	res := Result{Widget: w.ID, Status: stepper.Committed, State: next, Request: req}
	st, resynced := c.resync(ctx, w)
	c.tracker.WithLock(w.ID, func() {
		if !tk.Current() {
			res.Status = stepper.Superseded
			if w.confirmed != nil {
				w.confirmed = &State{On: next.On}
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

func (c *Controller) resync(ctx context.Context, w *Widget) (resync.State, bool) {
	if c.resyncer == nil || w.Device == "" {
		return resync.State{}, false
	}
	st, err := c.resyncer.Resync(ctx, w.Device)
	if err != nil {
		c.logger.WarnContext(ctx, "toggle resync failed, keeping local state",
			"widget", w.ID, "device", w.Device, "error", err)
		return resync.State{}, false
	}
	return st, true
}

// Apply writes an authoritative server state to the widget.
func (w *Widget) Apply(st resync.State) State {
	s := State{On: st.On}
	w.Write(s)
	return s
}

// Forget drops sequencing state for a widget and cancels its request.
func (c *Controller) Forget(widgetID string) {
	c.tracker.Forget(widgetID)
}
