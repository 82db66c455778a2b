package toggle

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cerrors "github.com/vango-dev/homectl/internal/errors"
	"github.com/vango-dev/homectl/pkg/dom"
	"github.com/vango-dev/homectl/pkg/fragment"
	"github.com/vango-dev/homectl/pkg/notify"
	"github.com/vango-dev/homectl/pkg/resync"
	"github.com/vango-dev/homectl/pkg/stepper"
)

type fakeTransport struct {
	mu       sync.Mutex
	requests []fragment.Request
	err      error
}

func (f *fakeTransport) Do(_ context.Context, r fragment.Request) (*fragment.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, r)
	if f.err != nil {
		return nil, f.err
	}
	return &fragment.Response{Status: http.StatusOK}, nil
}

// holdTransport blocks requests to hold until they are canceled and fails
// every other request with err.
type holdTransport struct {
	hold string
	err  error
}

func (h *holdTransport) Do(ctx context.Context, r fragment.Request) (*fragment.Response, error) {
	if r.URL == h.hold {
		<-ctx.Done()
		return nil, cerrors.New("E120").Wrap(ctx.Err())
	}
	return nil, h.err
}

type resyncFunc func(context.Context, string) (resync.State, error)

func (f resyncFunc) Resync(ctx context.Context, device string) (resync.State, error) {
	return f(ctx, device)
}

func newWidget(on string) *Widget {
	return &Widget{
		ID:     "device-4-status",
		Device: "4",
		Element: dom.NewElement("device-4-toggle", "btnToggle").
			SetAttr(dom.AttrOn, on).
			SetAttr(dom.AttrHref, "/device/4/updateStatus/{value}"),
	}
}

func wait(t *testing.T, p *Pending) Result {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	res, err := p.Wait(ctx)
	require.NoError(t, err)
	return res
}

func TestToggleFlipsAndDispatches(t *testing.T) {
	tr := &fakeTransport{}
	w := newWidget("false")

	p, err := New(tr).Toggle(context.Background(), w)
	require.NoError(t, err)
	assert.Equal(t, "true", w.Element.AttrOr(dom.AttrOn, ""))

	res := wait(t, p)
	assert.Equal(t, stepper.Committed, res.Status)
	assert.True(t, res.State.On)
	require.Len(t, tr.requests, 1)
	assert.Equal(t, http.MethodPatch, tr.requests[0].Method)
	assert.Equal(t, "/device/4/updateStatus/true", tr.requests[0].URL)
}

func TestToggleAlwaysDispatches(t *testing.T) {
	tr := &fakeTransport{}
	c := New(tr)
	w := newWidget("true")

	for i := 0; i < 3; i++ {
		p, err := c.Toggle(context.Background(), w)
		require.NoError(t, err)
		wait(t, p)
	}
	assert.Len(t, tr.requests, 3)
	assert.Equal(t, "false", w.Element.AttrOr(dom.AttrOn, ""))
}

func TestToggleMethodConfigurable(t *testing.T) {
	tr := &fakeTransport{}
	c := New(tr, WithMethod(http.MethodPost))
	assert.Equal(t, http.MethodPost, c.Method())

	p, err := c.Toggle(context.Background(), newWidget("true"))
	require.NoError(t, err)
	wait(t, p)
	assert.Equal(t, http.MethodPost, tr.requests[0].Method)
	assert.Equal(t, "/device/4/updateStatus/false", tr.requests[0].URL)
}

func TestToggleHrefWithoutPlaceholder(t *testing.T) {
	tr := &fakeTransport{}
	w := newWidget("false")
	w.Element.SetAttr(dom.AttrHref, "/device/4/toggle")

	p, err := New(tr).Toggle(context.Background(), w)
	require.NoError(t, err)
	wait(t, p)
	assert.Equal(t, "/device/4/toggle", tr.requests[0].URL)
}

func TestToggleFailureRevertsAndReports(t *testing.T) {
	tr := &fakeTransport{err: cerrors.New("E121").Wrap(&fragment.StatusError{Status: 500})}
	alerts := notify.NewRecorder()
	w := newWidget("false")

	p, err := New(tr, WithReporter(notify.NewReporter(alerts, nil))).Toggle(context.Background(), w)
	require.NoError(t, err)

	res := wait(t, p)
	assert.Equal(t, stepper.Reverted, res.Status)
	assert.False(t, res.State.On)
	assert.Equal(t, "false", w.Element.AttrOr(dom.AttrOn, ""))
	assert.Equal(t, 1, alerts.Len())
}

func TestToggleMalformed(t *testing.T) {
	for _, on := range []string{"maybe", ""} {
		tr := &fakeTransport{}
		w := newWidget(on)
		_, err := New(tr).Toggle(context.Background(), w)
		assert.True(t, cerrors.HasCode(err, "E100"), "data-on=%q", on)
		assert.Empty(t, tr.requests)
	}

	w := newWidget("true")
	w.Element.RemoveAttr(dom.AttrOn)
	_, err := New(&fakeTransport{}).Toggle(context.Background(), w)
	assert.True(t, cerrors.HasCode(err, "E100"))
}

func TestToggleResync(t *testing.T) {
	rs := resyncFunc(func(_ context.Context, device string) (resync.State, error) {
		assert.Equal(t, "4", device)
		return resync.State{ID: device, On: false}, nil
	})
	w := newWidget("false")

	p, err := New(&fakeTransport{}, WithResyncer(rs)).Toggle(context.Background(), w)
	require.NoError(t, err)

	res := wait(t, p)
	assert.True(t, res.Resynced)
	assert.False(t, res.State.On, "server truth wins over the optimistic flip")
	assert.Equal(t, "false", w.Element.AttrOr(dom.AttrOn, ""))
}

func TestToggleFailureAfterSupersedeRevertsToConfirmedState(t *testing.T) {
	tr := &holdTransport{
		hold: "/device/4/updateStatus/true",
		err:  cerrors.New("E121").Wrap(&fragment.StatusError{Status: 500}),
	}
	alerts := notify.NewRecorder()
	c := New(tr, WithReporter(notify.NewReporter(alerts, nil)))
	w := newWidget("false")

	first, err := c.Toggle(context.Background(), w)
	require.NoError(t, err)
	second, err := c.Toggle(context.Background(), w)
	require.NoError(t, err)

	assert.Equal(t, stepper.Superseded, wait(t, first).Status)

	res := wait(t, second)
	assert.Equal(t, stepper.Reverted, res.Status)
	assert.False(t, res.State.On)
	assert.Equal(t, "false", w.Element.AttrOr(dom.AttrOn, ""))
	assert.Equal(t, 1, alerts.Len())
}
