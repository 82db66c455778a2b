package registry

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cerrors "github.com/vango-dev/homectl/internal/errors"
)

type ctxKey struct{}

func nop(context.Context, Event) error { return nil }

func TestMountDispatch(t *testing.T) {
	r := New()
	var got Event
	require.NoError(t, r.Mount("plus-3", HandlerFunc(func(_ context.Context, ev Event) error {
		got = ev
		return nil
	})))

	require.NoError(t, r.Dispatch(context.Background(), Event{Target: "plus-3", Kind: "plus"}))
	assert.Equal(t, Event{Target: "plus-3", Kind: "plus"}, got)
	assert.True(t, r.Mounted("plus-3"))
	assert.Equal(t, 1, r.Len())
}

func TestMountDuplicate(t *testing.T) {
	r := New()
	require.NoError(t, r.Mount("toggle-1", HandlerFunc(nop)))

	err := r.Mount("toggle-1", HandlerFunc(nop))
	assert.True(t, cerrors.HasCode(err, "E111"))
}

func TestMountEmptyID(t *testing.T) {
	err := New().Mount("", HandlerFunc(nop))
	assert.True(t, cerrors.HasCode(err, "E100"))
}

func TestDispatchUnknown(t *testing.T) {
	err := New().Dispatch(context.Background(), Event{Target: "ghost"})
	assert.True(t, cerrors.HasCode(err, "E110"))
}

func TestUnmount(t *testing.T) {
	r := New()
	require.NoError(t, r.Mount("edit-2", HandlerFunc(nop)))

	assert.True(t, r.Unmount("edit-2"))
	assert.False(t, r.Unmount("edit-2"))

	err := r.Dispatch(context.Background(), Event{Target: "edit-2"})
	assert.True(t, cerrors.HasCode(err, "E110"))

	// An unmounted ID can be mounted again.
	assert.NoError(t, r.Mount("edit-2", HandlerFunc(nop)))
}

func TestClose(t *testing.T) {
	r := New()
	require.NoError(t, r.Mount("a", HandlerFunc(nop)))
	r.Close()
	r.Close()

	assert.Zero(t, r.Len())
	assert.True(t, cerrors.HasCode(r.Dispatch(context.Background(), Event{Target: "a"}), "E112"))
	assert.True(t, cerrors.HasCode(r.Mount("b", HandlerFunc(nop)), "E112"))
}

func TestIDsSorted(t *testing.T) {
	r := New()
	for _, id := range []string{"minus-1", "edit-1", "plus-1"} {
		require.NoError(t, r.Mount(id, HandlerFunc(nop)))
	}
	assert.Equal(t, []string{"edit-1", "minus-1", "plus-1"}, r.IDs())
}

func TestMiddlewareOrder(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return MiddlewareFunc(func(ctx context.Context, ev Event, next func(context.Context) error) error {
			order = append(order, name+">")
			err := next(ctx)
			order = append(order, "<"+name)
			return err
		})
	}

	r := New(WithMiddleware(mark("outer"), mark("inner")))
	require.NoError(t, r.Mount("w", HandlerFunc(func(context.Context, Event) error {
		order = append(order, "handler")
		return nil
	})))
	require.NoError(t, r.Dispatch(context.Background(), Event{Target: "w"}))

	assert.Equal(t, []string{"outer>", "inner>", "handler", "<inner", "<outer"}, order)
}

func TestMiddlewareReplacesContext(t *testing.T) {
	r := New(WithMiddleware(MiddlewareFunc(func(ctx context.Context, _ Event, next func(context.Context) error) error {
		return next(context.WithValue(ctx, ctxKey{}, "traced"))
	})))
	var seen any
	require.NoError(t, r.Mount("w", HandlerFunc(func(ctx context.Context, _ Event) error {
		seen = ctx.Value(ctxKey{})
		return nil
	})))

	require.NoError(t, r.Dispatch(context.Background(), Event{Target: "w"}))
	assert.Equal(t, "traced", seen)
}

func TestHandlerErrorPropagates(t *testing.T) {
	boom := errors.New("boom")
	r := New()
	require.NoError(t, r.Mount("w", HandlerFunc(func(context.Context, Event) error { return boom })))
	assert.ErrorIs(t, r.Dispatch(context.Background(), Event{Target: "w"}), boom)
}

func TestConcurrentMountDispatch(t *testing.T) {
	r := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		id := string(rune('a' + i%26))
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = r.Mount(id, HandlerFunc(nop))
		}()
		go func() {
			defer wg.Done()
			_ = r.Dispatch(context.Background(), Event{Target: id})
		}()
	}
	wg.Wait()
	assert.Equal(t, 26, r.Len())
}
