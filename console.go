package homectl

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vango-dev/homectl/internal/config"
	"github.com/vango-dev/homectl/internal/errors"
	"github.com/vango-dev/homectl/internal/inflight"
	"github.com/vango-dev/homectl/pkg/dom"
	"github.com/vango-dev/homectl/pkg/fragment"
	"github.com/vango-dev/homectl/pkg/middleware"
	"github.com/vango-dev/homectl/pkg/modal"
	"github.com/vango-dev/homectl/pkg/notify"
	"github.com/vango-dev/homectl/pkg/registry"
	"github.com/vango-dev/homectl/pkg/resync"
	"github.com/vango-dev/homectl/pkg/stepper"
	"github.com/vango-dev/homectl/pkg/toggle"
)

// Roles recognized on data-role attributes.
const (
	RolePlus          = "plus"
	RoleMinus         = "minus"
	RoleToggle        = "toggle"
	RoleNew           = "new"
	RoleEdit          = "edit"
	RoleDelete        = "delete"
	RoleConfirmDelete = "confirm-delete"
)

// Option configures a Console.
type Option func(*Console)

// WithLogger sets the structured logger. If unset, slog.Default() is used.
func WithLogger(l *slog.Logger) Option {
	return func(c *Console) {
		c.logger = l
	}
}

// WithNotifier sets where user alerts go. If unset, alerts are discarded
// and only logged.
func WithNotifier(n notify.Notifier) Option {
	return func(c *Console) {
		c.notifier = n
	}
}

// WithHTTPClient replaces the instrumented HTTP client.
func WithHTTPClient(d fragment.Doer) Option {
	return func(c *Console) {
		c.doer = d
	}
}

// WithMiddleware appends registry middleware after the built-in logging,
// tracing and metrics middleware.
func WithMiddleware(mw ...registry.Middleware) Option {
	return func(c *Console) {
		c.middleware = append(c.middleware, mw...)
	}
}

// WithRegisterer sets the Prometheus registerer for console metrics.
func WithRegisterer(r prometheus.Registerer) Option {
	return func(c *Console) {
		c.registerer = r
	}
}

// Console is a configured admin console controller.
type Console struct {
	cfg        config.Config
	logger     *slog.Logger
	notifier   notify.Notifier
	doer       fragment.Doer
	middleware []registry.Middleware
	registerer prometheus.Registerer

	client   *fragment.Client
	reporter *notify.Reporter
	tracker  *inflight.Tracker
	resyncer *resync.HTTP
	steppers *stepper.Controller
	toggles  *toggle.Controller
	modals   *modal.Controller
	registry *registry.Registry

	mu       sync.Mutex
	doc      *dom.Document
	mounted  []string
	stepperW map[string]*stepper.Widget
	toggleW  map[string]*toggle.Widget
}

// New creates a Console from cfg.
func New(cfg config.Config, opts ...Option) (*Console, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Console{
		cfg:      cfg,
		logger:   slog.Default(),
		stepperW: make(map[string]*stepper.Widget),
		toggleW:  make(map[string]*toggle.Widget),
	}
	for _, opt := range opts {
		opt(c)
	}

	metricOpts := []middleware.MetricsOption{middleware.WithNamespace(cfg.Metrics.Namespace)}
	if c.registerer != nil {
		metricOpts = append(metricOpts, middleware.WithRegistry(c.registerer))
	}
	if c.doer == nil {
		c.doer = &http.Client{
			Transport: middleware.TraceTransport(middleware.InstrumentTransport(nil, metricOpts...)),
		}
	}

	client, err := fragment.New(cfg.BaseURL,
		fragment.WithHTTPClient(c.doer),
		fragment.WithTimeout(cfg.Timeout()),
		fragment.WithLogger(c.logger),
	)
	if err != nil {
		return nil, err
	}
	c.client = client
	c.reporter = notify.NewReporter(c.notifier, c.logger)
	c.tracker = inflight.New()

	stepperOpts := []stepper.Option{
		stepper.WithReporter(c.reporter),
		stepper.WithPlaceholder(cfg.Placeholder),
		stepper.WithTracker(c.tracker),
		stepper.WithLogger(c.logger),
	}
	toggleOpts := []toggle.Option{
		toggle.WithMethod(cfg.Toggle.Method),
		toggle.WithReporter(c.reporter),
		toggle.WithPlaceholder(cfg.Placeholder),
		toggle.WithTracker(c.tracker),
		toggle.WithLogger(c.logger),
	}
	if !cfg.Resync.Disabled {
		c.resyncer = resync.NewHTTP(client, cfg.Resync.StatePath)
		stepperOpts = append(stepperOpts, stepper.WithResyncer(c.resyncer))
		toggleOpts = append(toggleOpts, toggle.WithResyncer(c.resyncer))
	}
	c.steppers = stepper.New(client, stepperOpts...)
	c.toggles = toggle.New(client, toggleOpts...)

	modalOpts := []modal.Option{
		modal.WithContainer(cfg.Modal.Container),
		modal.WithReporter(c.reporter),
		modal.WithListing(cfg.Listing.URL, cfg.Listing.Table),
		modal.WithLogger(c.logger),
	}
	for name, ic := range cfg.Modal.Intents {
		intent, err := modal.ParseIntent(name)
		if err != nil {
			return nil, errors.New("E130").WithDetailf("modal intent %q", name).Wrap(err)
		}
		modalOpts = append(modalOpts, modal.WithBinding(intent, modal.Binding{Method: ic.Method, Modal: ic.Modal}))
	}
	c.modals = modal.New(client, modalOpts...)

	chain := []registry.Middleware{
		middleware.Logging(c.logger),
		middleware.OpenTelemetry(),
		middleware.Prometheus(metricOpts...),
	}
	c.registry = registry.New(
		registry.WithMiddleware(append(chain, c.middleware...)...),
		registry.WithLogger(c.logger),
	)
	return c, nil
}

// Config returns the console configuration.
func (c *Console) Config() config.Config {
	return c.cfg
}

// Client returns the fragment service client.
func (c *Console) Client() *fragment.Client {
	return c.client
}

// Registry returns the widget registry.
func (c *Console) Registry() *registry.Registry {
	return c.registry
}

// MountView registers a handler for every element of doc carrying a known
// data-role. Only one view is mounted at a time. If any element cannot be
// mounted, nothing is.
func (c *Console) MountView(doc *dom.Document) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.doc != nil {
		return errors.New("E111").WithDetail("a view is already mounted")
	}

	var mounted []string
	rollback := func() {
		for _, id := range mounted {
			c.registry.Unmount(id)
		}
		clear(c.stepperW)
		clear(c.toggleW)
	}
	if err := c.buildSteppers(doc); err != nil {
		rollback()
		return err
	}
	for _, el := range doc.Elements() {
		role, ok := el.Attr(dom.AttrRole)
		if !ok {
			continue
		}
		h, err := c.handlerFor(doc, el, role)
		if err != nil {
			rollback()
			return err
		}
		if h == nil {
			c.logger.Debug("ignoring element with unknown role", "element", el.ID(), "role", role)
			continue
		}
		if err := c.registry.Mount(el.ID(), h); err != nil {
			rollback()
			return err
		}
		mounted = append(mounted, el.ID())
	}

	c.doc = doc
	c.mounted = mounted
	c.logger.Info("view mounted", "widgets", len(mounted))
	return nil
}

// UnmountView removes every widget of doc and cancels their in-flight
// requests. Unmounting a view that is not mounted is a no-op.
func (c *Console) UnmountView(doc *dom.Document) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.doc == nil || c.doc != doc {
		return
	}
	for _, id := range c.mounted {
		c.registry.Unmount(id)
	}
	for id := range c.stepperW {
		c.steppers.Forget(id)
	}
	for id := range c.toggleW {
		c.toggles.Forget(id)
	}
	clear(c.stepperW)
	clear(c.toggleW)
	c.logger.Info("view unmounted", "widgets", len(c.mounted))
	c.doc = nil
	c.mounted = nil
}

// Close unmounts the current view and closes the registry.
func (c *Console) Close() {
	c.mu.Lock()
	doc := c.doc
	c.mu.Unlock()
	if doc != nil {
		c.UnmountView(doc)
	}
	c.tracker.CancelAll()
	c.registry.Close()
}

// Click dispatches an activation of the element id of the mounted view.
// The returned Activation resolves once the interaction settles.
func (c *Console) Click(ctx context.Context, id string) (*Activation, error) {
	c.mu.Lock()
	doc := c.doc
	c.mu.Unlock()

	kind := ""
	if doc != nil {
		if el := doc.ByID(id); el != nil {
			kind = el.AttrOr(dom.AttrRole, "")
		}
	}

	act := &Activation{Widget: id, Kind: kind}
	if err := c.registry.Dispatch(withActivation(ctx, act), registry.Event{Target: id, Kind: kind}); err != nil {
		return nil, err
	}
	return act, nil
}

// ApplyState writes an authoritative device state to every mounted widget
// bound to the device. Widgets with a request in flight are skipped; their
// own resync will follow.
func (c *Console) ApplyState(st resync.State) int {
	c.mu.Lock()
	steppers := make([]*stepper.Widget, 0, len(c.stepperW))
	for _, w := range c.stepperW {
		if w.Device == st.ID {
			steppers = append(steppers, w)
		}
	}
	toggles := make([]*toggle.Widget, 0, len(c.toggleW))
	for _, w := range c.toggleW {
		if w.Device == st.ID {
			toggles = append(toggles, w)
		}
	}
	c.mu.Unlock()

	applied := 0
	for _, w := range steppers {
		c.tracker.WithLock(w.ID, func() {
			if !c.tracker.InFlight(w.ID) {
				w.Apply(st)
				applied++
			}
		})
	}
	for _, w := range toggles {
		c.tracker.WithLock(w.ID, func() {
			if !c.tracker.InFlight(w.ID) {
				w.Apply(st)
				applied++
			}
		})
	}
	return applied
}

// Watch subscribes to the live state feed and applies pushed states until
// ctx ends. It returns nil immediately when resync is disabled.
func (c *Console) Watch(ctx context.Context) error {
	if c.cfg.Resync.Disabled {
		return nil
	}
	u, err := c.FeedURL()
	if err != nil {
		return err
	}
	feed := resync.NewFeed(u, func(st resync.State) {
		middleware.RecordFeedState()
		n := c.ApplyState(st)
		c.logger.Debug("feed state applied", "device", st.ID, "widgets", n)
	}, resync.WithFeedLogger(c.logger))
	return feed.Run(ctx)
}

// FeedURL returns the websocket URL of the live state feed.
func (c *Console) FeedURL() (string, error) {
	u, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return "", errors.New("E130").WithDetailf("base URL %q", c.cfg.BaseURL).Wrap(err)
	}
	switch strings.ToLower(u.Scheme) {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + c.cfg.Resync.FeedPath
	return u.String(), nil
}
