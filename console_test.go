package homectl

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/homectl/internal/config"
	"github.com/vango-dev/homectl/internal/devserver"
	"github.com/vango-dev/homectl/internal/errors"
	"github.com/vango-dev/homectl/pkg/dom"
	"github.com/vango-dev/homectl/pkg/fragment"
	"github.com/vango-dev/homectl/pkg/notify"
	"github.com/vango-dev/homectl/pkg/resync"
)

type fixture struct {
	console *Console
	server  *devserver.Server
	url     string
	alerts  *notify.Recorder
}

func newFixture(t *testing.T, devices ...devserver.Device) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store := devserver.NewStore()
	for _, d := range devices {
		store.PutDevice(d)
	}
	store.PutPerson(devserver.Person{ID: "7", Name: "Ada"})
	srv := devserver.New(devserver.Options{Store: store, Logger: logger, Gatherer: prometheus.NewRegistry()})
	hs := httptest.NewServer(srv)
	t.Cleanup(hs.Close)

	cfg := config.New()
	cfg.BaseURL = hs.URL
	alerts := notify.NewRecorder()
	c, err := New(*cfg,
		WithLogger(logger),
		WithNotifier(alerts),
		WithRegisterer(prometheus.NewRegistry()),
	)
	require.NoError(t, err)
	t.Cleanup(c.Close)

	return &fixture{console: c, server: srv, url: hs.URL, alerts: alerts}
}

func lamp() devserver.Device {
	return devserver.Device{ID: "1", Name: "lamp", Value: 2, Min: 0, Max: 3}
}

func (f *fixture) mount(t *testing.T, st resync.State) *dom.Document {
	t.Helper()
	doc := f.console.NewView()
	AddDevice(doc, st)
	require.NoError(t, f.console.MountView(doc))
	return doc
}

func click(t *testing.T, c *Console, id string) (string, error) {
	t.Helper()
	act, err := c.Click(context.Background(), id)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return act.Wait(ctx)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.New()
	cfg.BaseURL = "not a url"
	_, err := New(*cfg)
	assert.True(t, errors.HasCode(err, "E130"))
}

func TestMountViewRegistersRoles(t *testing.T) {
	f := newFixture(t, lamp())
	f.mount(t, lamp().State())

	assert.Equal(t, []string{
		DeviceElementID("1", RoleDelete),
		DeviceElementID("1", RoleEdit),
		DeviceElementID("1", RoleMinus),
		DeviceElementID("1", RolePlus),
		DeviceElementID("1", RoleToggle),
	}, f.console.Registry().IDs())
}

func TestMountViewBindsBothButtonsBeforeMounting(t *testing.T) {
	f := newFixture(t, lamp())
	f.mount(t, lamp().State())

	f.console.mu.Lock()
	w := f.console.stepperW[DeviceElementID("1", "value")]
	f.console.mu.Unlock()
	require.NotNil(t, w)
	assert.Equal(t, DeviceElementID("1", RolePlus), w.Plus.ID())
	assert.Equal(t, DeviceElementID("1", RoleMinus), w.Minus.ID())
}

func TestMountViewTwice(t *testing.T) {
	f := newFixture(t, lamp())
	f.mount(t, lamp().State())

	err := f.console.MountView(f.console.NewView())
	assert.True(t, errors.HasCode(err, "E111"))
}

func TestMountViewRollsBack(t *testing.T) {
	f := newFixture(t)
	doc := f.console.NewView()
	doc.Add(dom.NewElement("edit-1").SetAttr(dom.AttrRole, RoleEdit).SetAttr(dom.AttrHref, "/device/1/edit"))
	doc.Add(dom.NewElement("plus-1").SetAttr(dom.AttrRole, RolePlus))

	err := f.console.MountView(doc)
	assert.True(t, errors.HasCode(err, "E100"))
	assert.Zero(t, f.console.Registry().Len())

	// The failed view did not stick.
	doc.Remove("plus-1")
	assert.NoError(t, f.console.MountView(doc))
}

func TestUnmountView(t *testing.T) {
	f := newFixture(t, lamp())
	doc := f.mount(t, lamp().State())

	f.console.UnmountView(doc)
	assert.Zero(t, f.console.Registry().Len())

	_, err := f.console.Click(context.Background(), DeviceElementID("1", RolePlus))
	assert.True(t, errors.HasCode(err, "E110"))

	require.NoError(t, f.console.MountView(doc))
}

func TestClickUnknownWidget(t *testing.T) {
	f := newFixture(t)
	_, err := f.console.Click(context.Background(), "ghost")
	assert.True(t, errors.HasCode(err, "E110"))
}

func TestClickPlusCommits(t *testing.T) {
	f := newFixture(t, lamp())
	doc := f.mount(t, lamp().State())

	outcome, err := click(t, f.console, DeviceElementID("1", RolePlus))
	require.NoError(t, err)
	assert.Equal(t, "committed", outcome)

	input := doc.ByID(DeviceElementID("1", "value"))
	assert.Equal(t, "3", input.AttrOr(dom.AttrValue, ""))
	assert.True(t, doc.ByID(DeviceElementID("1", RolePlus)).Disabled())
	assert.False(t, doc.ByID(DeviceElementID("1", RoleMinus)).Disabled())

	d, err := f.server.Store().Device("1")
	require.NoError(t, err)
	assert.Equal(t, 3, d.Value)
	assert.Zero(t, f.alerts.Len())
}

func TestClickPlusAtBoundary(t *testing.T) {
	d := lamp()
	d.Value = 3
	f := newFixture(t, d)
	f.mount(t, d.State())

	outcome, err := click(t, f.console, DeviceElementID("1", RolePlus))
	require.NoError(t, err)
	assert.Equal(t, "noop", outcome)
}

func TestClickPlusRejectedReverts(t *testing.T) {
	d := lamp()
	d.Max = 2
	f := newFixture(t, d)

	// The page still believes the device goes up to 3.
	doc := f.mount(t, lamp().State())

	outcome, err := click(t, f.console, DeviceElementID("1", RolePlus))
	assert.Error(t, err)
	assert.Equal(t, "reverted", outcome)

	// Reverted, then resynced: the server's bound now disables plus.
	input := doc.ByID(DeviceElementID("1", "value"))
	assert.Equal(t, "2", input.AttrOr(dom.AttrValue, ""))
	assert.Equal(t, "2", input.AttrOr(dom.AttrMax, ""))
	assert.True(t, doc.ByID(DeviceElementID("1", RolePlus)).Disabled())
	require.Equal(t, 1, f.alerts.Len())
	assert.Equal(t, notify.GenericFailure, f.alerts.Alerts()[0].Message)
}

func TestClickToggle(t *testing.T) {
	f := newFixture(t, lamp())
	doc := f.mount(t, lamp().State())

	outcome, err := click(t, f.console, DeviceElementID("1", RoleToggle))
	require.NoError(t, err)
	assert.Equal(t, "committed", outcome)
	assert.Equal(t, "true", doc.ByID(DeviceElementID("1", RoleToggle)).AttrOr(dom.AttrOn, ""))

	d, _ := f.server.Store().Device("1")
	assert.True(t, d.On)
}

func TestClickEditShowsModal(t *testing.T) {
	f := newFixture(t, lamp())
	doc := f.mount(t, lamp().State())

	outcome, err := click(t, f.console, DeviceElementID("1", RoleEdit))
	require.NoError(t, err)
	assert.Equal(t, "shown", outcome)
	assert.Equal(t, "modalNewOrEdit", doc.ActiveModal())
	assert.Contains(t, doc.ByID("modalHolder").InnerHTML(), "Edit lamp")
}

func TestClickDeleteMissingDevice(t *testing.T) {
	f := newFixture(t)
	doc := f.mount(t, lamp().State())

	outcome, err := click(t, f.console, DeviceElementID("1", RoleDelete))
	assert.Error(t, err)
	assert.Equal(t, "failed", outcome)
	assert.Empty(t, doc.ActiveModal())
	assert.Empty(t, doc.ByID("modalHolder").InnerHTML())
	assert.Equal(t, 1, f.alerts.Len())
}

func TestClickConfirmDelete(t *testing.T) {
	f := newFixture(t)
	doc := f.console.NewView()
	doc.Add(dom.NewElement("confirm-7").SetAttr(dom.AttrRole, RoleConfirmDelete).SetAttr("data-person", "7"))
	require.NoError(t, f.console.MountView(doc))

	outcome, err := click(t, f.console, "confirm-7")
	require.NoError(t, err)
	assert.Equal(t, "confirmed", outcome)
	assert.Equal(t, "/admin/person/list", doc.Location())
	assert.Equal(t, 1, doc.Refreshes("dataTable"))
	assert.Empty(t, f.server.Store().Persons())
}

func TestApplyState(t *testing.T) {
	f := newFixture(t, lamp())
	doc := f.mount(t, lamp().State())

	n := f.console.ApplyState(resync.State{ID: "1", Value: 0, Min: 0, Max: 3, On: true})
	assert.Equal(t, 2, n)
	assert.Equal(t, "0", doc.ByID(DeviceElementID("1", "value")).AttrOr(dom.AttrValue, ""))
	assert.True(t, doc.ByID(DeviceElementID("1", RoleMinus)).Disabled())
	assert.Equal(t, "true", doc.ByID(DeviceElementID("1", RoleToggle)).AttrOr(dom.AttrOn, ""))

	assert.Zero(t, f.console.ApplyState(resync.State{ID: "2"}))
}

func TestWatchAppliesPushedState(t *testing.T) {
	f := newFixture(t, lamp())
	doc := f.mount(t, lamp().State())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.console.Watch(ctx) }()
	require.Eventually(t, func() bool { return f.server.Hub().ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	// Another client changes the device.
	req, _ := http.NewRequest(http.MethodPatch, f.url+"/device/1/updateValue/0", nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	input := doc.ByID(DeviceElementID("1", "value"))
	assert.Eventually(t, func() bool { return input.AttrOr(dom.AttrValue, "") == "0" }, 2*time.Second, 10*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}

func TestWatchDisabled(t *testing.T) {
	cfg := config.New()
	cfg.Resync.Disabled = true
	c, err := New(*cfg, WithRegisterer(prometheus.NewRegistry()))
	require.NoError(t, err)
	assert.NoError(t, c.Watch(context.Background()))
}

func TestFeedURL(t *testing.T) {
	tests := []struct {
		base, want string
	}{
		{"http://localhost:8080", "ws://localhost:8080/ws"},
		{"https://home.example/console/", "wss://home.example/console/ws"},
	}
	for _, tt := range tests {
		cfg := config.New()
		cfg.BaseURL = tt.base
		c, err := New(*cfg, WithRegisterer(prometheus.NewRegistry()))
		require.NoError(t, err)
		got, err := c.FeedURL()
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestLoadDevice(t *testing.T) {
	f := newFixture(t, lamp())

	doc, err := f.console.LoadDevice(context.Background(), "1")
	require.NoError(t, err)
	input := doc.ByID(DeviceElementID("1", "value"))
	require.NotNil(t, input)
	assert.Equal(t, "2", input.AttrOr(dom.AttrValue, ""))
	assert.NotNil(t, doc.ByID("modalHolder"))

	_, err = f.console.LoadDevice(context.Background(), "9")
	assert.Equal(t, http.StatusNotFound, fragment.StatusOf(err))
}
