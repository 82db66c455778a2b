package resync

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/vango-dev/homectl/internal/errors"
	"github.com/vango-dev/homectl/pkg/fragment"
)

// State is the authoritative state of one device.
type State struct {
	ID    string `json:"id"`
	Value int    `json:"value"`
	Min   int    `json:"min"`
	Max   int    `json:"max"`
	On    bool   `json:"on"`
}

// Getter performs GET requests against the fragment service.
type Getter interface {
	Get(ctx context.Context, ref string) (*fragment.Response, error)
}

// HTTP refetches device state over HTTP.
//
// A caller only shares a fetch that had not yet been sent when it called,
// so a resync issued after a write always observes that write. Fetches of
// one device run one at a time; callers arriving while one is in flight
// share the next.
type HTTP struct {
	client Getter
	path   string
	group  singleflight.Group

	mu      sync.Mutex
	devices map[string]*flights
}

// flights orders the state fetches of one device.
type flights struct {
	next uint64        // generation new callers join
	last chan struct{} // closed when the most recently started fetch ends
}

// NewHTTP creates an HTTP resyncer. statePath contains {id}.
func NewHTTP(client Getter, statePath string) *HTTP {
	return &HTTP{client: client, path: statePath, devices: make(map[string]*flights)}
}

// Resync returns the current state of device. The shared fetch outlives a
// canceled caller; each caller stops waiting when its own ctx ends.
func (h *HTTP) Resync(ctx context.Context, device string) (State, error) {
	h.mu.Lock()
	f, ok := h.devices[device]
	if !ok {
		f = &flights{}
		h.devices[device] = f
	}
	gen := f.next
	h.mu.Unlock()

	key := device + "#" + strconv.FormatUint(gen, 10)
	ch := h.group.DoChan(key, func() (any, error) {
		return h.fetch(context.WithoutCancel(ctx), f, device, gen)
	})
	select {
	case r := <-ch:
		if r.Err != nil {
			return State{}, r.Err
		}
		return r.Val.(State), nil
	case <-ctx.Done():
		return State{}, ctx.Err()
	}
}

// fetch waits for the device's previous fetch, closes generation gen to
// new callers and sends the request.
func (h *HTTP) fetch(ctx context.Context, f *flights, device string, gen uint64) (State, error) {
	done := make(chan struct{})
	defer close(done)

	h.mu.Lock()
	prev := f.last
	f.last = done
	h.mu.Unlock()
	if prev != nil {
		<-prev
	}

	h.mu.Lock()
	if f.next <= gen {
		f.next = gen + 1
	}
	h.mu.Unlock()

	resp, err := h.client.Get(ctx, strings.ReplaceAll(h.path, "{id}", device))
	if err != nil {
		return State{}, err
	}
	var st State
	if err := json.Unmarshal(resp.Body, &st); err != nil {
		return State{}, errors.New("E122").WithDetailf("state of device %s", device).Wrap(err)
	}
	if st.ID == "" {
		st.ID = device
	}
	return st, nil
}
