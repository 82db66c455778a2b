package modal

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/vango-dev/homectl/internal/errors"
	"github.com/vango-dev/homectl/internal/inflight"
	"github.com/vango-dev/homectl/pkg/dom"
	"github.com/vango-dev/homectl/pkg/fragment"
	"github.com/vango-dev/homectl/pkg/notify"
	"github.com/vango-dev/homectl/pkg/stepper"
)

// FailureContext prefixes the log line of a failed fragment fetch.
const FailureContext = "modal fetch"

// ConfirmFailureContext prefixes the log line of a failed delete confirm.
const ConfirmFailureContext = "delete confirm"

// Intent is the purpose of a modal affordance.
type Intent string

const (
	IntentNew    Intent = "new"
	IntentEdit   Intent = "edit"
	IntentDelete Intent = "delete"
)

// ParseIntent validates an intent name.
func ParseIntent(s string) (Intent, error) {
	switch Intent(s) {
	case IntentNew, IntentEdit, IntentDelete:
		return Intent(s), nil
	}
	return "", fmt.Errorf("unknown modal intent %q", s)
}

// Binding is the request contract of one intent.
type Binding struct {
	Method string
	Modal  string
}

// DefaultBindings returns the method and modal for each intent.
func DefaultBindings() map[Intent]Binding {
	return map[Intent]Binding{
		IntentNew:    {Method: http.MethodPost, Modal: "modalNewOrEdit"},
		IntentEdit:   {Method: http.MethodPut, Modal: "modalNewOrEdit"},
		IntentDelete: {Method: http.MethodDelete, Modal: "modalDelete"},
	}
}

// Outcome is the result of one activation.
type Outcome int

const (
	// Shown means the fragment was injected and the modal displayed.
	Shown Outcome = iota
	// Failed means nothing was injected and the user was alerted.
	Failed
	// Stale means a newer activation for the container was issued first.
	Stale
)

func (o Outcome) String() string {
	switch o {
	case Shown:
		return "shown"
	case Failed:
		return "failed"
	case Stale:
		return "stale"
	}
	return "unknown"
}

// Result is the typed outcome of an activation.
type Result struct {
	Intent  Intent
	URL     string
	Method  string
	Modal   string
	Outcome Outcome
	Err     error
}

// Pending is the eventual Result of an activation.
type Pending = inflight.Pending[Result]

// Option configures a Controller.
type Option func(*Controller)

// WithBinding overrides the contract of one intent.
func WithBinding(i Intent, b Binding) Option {
	return func(c *Controller) {
		c.bindings[i] = b
	}
}

// WithContainer sets the ID of the element fragments are injected into.
func WithContainer(id string) Option {
	return func(c *Controller) {
		c.container = id
	}
}

// WithReporter sets the failure reporter.
func WithReporter(r *notify.Reporter) Option {
	return func(c *Controller) {
		c.reporter = r
	}
}

// WithListing sets where a confirmed delete navigates and which table it
// refreshes.
func WithListing(location, table string) Option {
	return func(c *Controller) {
		c.listingURL = location
		c.listingTable = table
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = l
	}
}

// Controller handles modal affordances.
type Controller struct {
	transport    stepper.Transport
	reporter     *notify.Reporter
	logger       *slog.Logger
	bindings     map[Intent]Binding
	container    string
	listingURL   string
	listingTable string

	mu  sync.Mutex
	seq map[string]uint64
}

// New creates a Controller.
func New(t stepper.Transport, opts ...Option) *Controller {
	c := &Controller{
		transport:    t,
		logger:       slog.Default(),
		bindings:     DefaultBindings(),
		container:    "modalHolder",
		listingURL:   "/admin/person/list",
		listingTable: "dataTable",
		seq:          make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.reporter == nil {
		c.reporter = notify.NewReporter(nil, c.logger)
	}
	return c
}

// Binding returns the contract of an intent.
func (c *Controller) Binding(i Intent) (Binding, bool) {
	b, ok := c.bindings[i]
	return b, ok
}

// Open fetches the fragment at href for intent and shows it in doc. It
// returns immediately; the fetch runs in the background.
func (c *Controller) Open(ctx context.Context, doc *dom.Document, i Intent, href string) (*Pending, error) {
	b, ok := c.bindings[i]
	if !ok {
		return nil, errors.New("E130").WithDetailf("no binding for modal intent %q", i)
	}
	if href == "" {
		return nil, errors.New("E100").WithDetailf("%s affordance has no href", i)
	}

	c.mu.Lock()
	c.seq[c.container]++
	seq := c.seq[c.container]
	c.mu.Unlock()

	pending := inflight.NewPending[Result]()
	res := Result{Intent: i, URL: href, Method: b.Method, Modal: b.Modal}
	go c.fetch(context.WithoutCancel(ctx), doc, seq, res, pending)
	return pending, nil
}

func (c *Controller) fetch(ctx context.Context, doc *dom.Document, seq uint64, res Result, pending *Pending) {
	resp, err := c.transport.Do(ctx, fragment.Request{Method: res.Method, URL: res.URL})
	if err == nil {
		err = c.show(doc, seq, resp.Text(), &res)
	}
	if err != nil {
		if !c.latest(seq) {
			res.Outcome = Stale
			c.logger.Debug("dropping failed stale modal fetch", "url", res.URL, "error", err)
		} else {
			res.Outcome = Failed
			res.Err = err
			c.reporter.Failure(ctx, FailureContext, err)
		}
	}
	pending.Resolve(res)
}

// latest reports whether seq is the most recent activation for the
// container.
func (c *Controller) latest(seq uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq[c.container] == seq
}

// show injects markup and shows the modal if seq is still the latest
// activation for the container.
func (c *Controller) show(doc *dom.Document, seq uint64, markup string, res *Result) error {
	frag, err := fragment.Parse(markup)
	if err != nil {
		return err
	}
	if !frag.Has(res.Modal) {
		return errors.New("E123").WithDetailf("%s from %s", res.Modal, res.URL)
	}
	holder := doc.ByID(c.container)
	if holder == nil {
		return errors.New("E110").WithDetailf("modal container %q", c.container)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.seq[c.container] != seq {
		res.Outcome = Stale
		c.logger.Debug("dropping stale modal fragment", "url", res.URL, "modal", res.Modal)
		return nil
	}
	holder.SetInnerHTML(markup)
	doc.ShowModal(res.Modal)
	res.Outcome = Shown
	return nil
}

// ConfirmPath is the delete-confirm endpoint of a person; {id} is the
// person ID.
const ConfirmPath = "/person/DeletePersonConfirm/{id}"

// ConfirmURL returns the delete-confirm endpoint for id.
func ConfirmURL(id string) string {
	return strings.Replace(ConfirmPath, "{id}", url.PathEscape(id), 1)
}

// ConfirmResult is the outcome of a delete confirmation.
type ConfirmResult struct {
	URL      string
	Location string
	Err      error
}

// Confirm posts the delete confirmation at href. On success doc navigates
// to the listing and its data table is asked to refresh. It blocks until
// the request completes.
func (c *Controller) Confirm(ctx context.Context, doc *dom.Document, href string) ConfirmResult {
	res := ConfirmResult{URL: href}
	if _, err := c.transport.Do(ctx, fragment.Request{Method: http.MethodPost, URL: href}); err != nil {
		res.Err = err
		c.reporter.Failure(ctx, ConfirmFailureContext, err)
		return res
	}
	doc.HideModal()
	doc.Navigate(c.listingURL)
	doc.RequestRefresh(c.listingTable)
	res.Location = c.listingURL
	return res
}
