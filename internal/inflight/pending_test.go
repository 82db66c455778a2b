package inflight

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPendingResolveOnce(t *testing.T) {
	p := NewPending[int]()
	go p.Resolve(1)

	got, err := p.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, got)

	p.Resolve(2)
	got, _ = p.Wait(context.Background())
	assert.Equal(t, 1, got)
}

func TestPendingWaitContext(t *testing.T) {
	p := NewPending[string]()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := p.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestResolved(t *testing.T) {
	p := Resolved("ok")
	select {
	case <-p.Done():
	default:
		t.Fatal("Resolved pending should be done")
	}
}
