package devserver

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/homectl/pkg/fragment"
	"github.com/vango-dev/homectl/pkg/resync"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	store := NewStore()
	store.PutDevice(Device{Name: "lamp", Value: 2, Min: 0, Max: 3})
	store.PutPerson(Person{ID: "7", Name: "Ada"})
	s := New(Options{
		Store:    store,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Gatherer: prometheus.NewRegistry(),
	})
	srv := httptest.NewServer(s)
	t.Cleanup(srv.Close)
	return s, srv
}

func do(t *testing.T, method, url string) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(method, url, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestServerState(t *testing.T) {
	_, srv := newTestServer(t)

	resp, body := do(t, http.MethodGet, srv.URL+"/device/1/state")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var st resync.State
	require.NoError(t, json.Unmarshal([]byte(body), &st))
	assert.Equal(t, resync.State{ID: "1", Value: 2, Min: 0, Max: 3}, st)

	resp, _ = do(t, http.MethodGet, srv.URL+"/device/9/state")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServerUpdateValue(t *testing.T) {
	s, srv := newTestServer(t)

	resp, _ := do(t, http.MethodPatch, srv.URL+"/device/1/updateValue/3")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	d, _ := s.Store().Device("1")
	assert.Equal(t, 3, d.Value)

	resp, body := do(t, http.MethodPatch, srv.URL+"/device/1/updateValue/4")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	var eb errorBody
	require.NoError(t, json.Unmarshal([]byte(body), &eb))
	assert.Equal(t, http.StatusUnprocessableEntity, eb.Status)
	assert.Equal(t, "/device/1/updateValue/4", eb.Path)

	resp, _ = do(t, http.MethodPatch, srv.URL+"/device/1/updateValue/abc")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, http.MethodGet, srv.URL+"/device/1/updateValue/2")
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestServerUpdateStatus(t *testing.T) {
	s, srv := newTestServer(t)

	for _, method := range []string{http.MethodPatch, http.MethodPost} {
		resp, _ := do(t, method, srv.URL+"/device/1/updateStatus/true")
		require.Equal(t, http.StatusOK, resp.StatusCode, method)
	}
	d, _ := s.Store().Device("1")
	assert.True(t, d.On)

	resp, _ := do(t, http.MethodPatch, srv.URL+"/device/1/updateStatus/maybe")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServerFragments(t *testing.T) {
	_, srv := newTestServer(t)

	tests := []struct {
		method, path, modal string
	}{
		{http.MethodPost, "/device/new", "modalNewOrEdit"},
		{http.MethodPut, "/device/1/edit", "modalNewOrEdit"},
		{http.MethodDelete, "/device/1/delete", "modalDelete"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, body := do(t, tt.method, srv.URL+tt.path)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/html"))

			frag, err := fragment.Parse(body)
			require.NoError(t, err)
			assert.True(t, frag.Has(tt.modal))
		})
	}

	resp, _ := do(t, http.MethodPut, srv.URL+"/device/9/edit")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServerDeletePerson(t *testing.T) {
	s, srv := newTestServer(t)

	resp, _ := do(t, http.MethodPost, srv.URL+"/person/DeletePersonConfirm/7")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "/admin/person/list", resp.Header.Get("Location"))
	assert.Empty(t, s.Store().Persons())

	resp, _ = do(t, http.MethodPost, srv.URL+"/person/DeletePersonConfirm/7")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body := do(t, http.MethodGet, srv.URL+"/admin/person/list")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `id="dataTable"`)
}

func TestServerMetrics(t *testing.T) {
	_, srv := newTestServer(t)
	resp, _ := do(t, http.MethodGet, srv.URL+"/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServerFeed(t *testing.T) {
	s, srv := newTestServer(t)

	got := make(chan resync.State, 1)
	feed := resync.NewFeed("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", func(st resync.State) {
		got <- st
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- feed.Run(ctx) }()

	require.Eventually(t, func() bool { return s.Hub().ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	resp, _ := do(t, http.MethodPatch, srv.URL+"/device/1/updateValue/1")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	select {
	case st := <-got:
		assert.Equal(t, "1", st.ID)
		assert.Equal(t, 1, st.Value)
	case <-time.After(2 * time.Second):
		t.Fatal("no state pushed")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("feed did not stop")
	}
}

func TestServeShutsDown(t *testing.T) {
	s := New(Options{
		Store:    NewStore(),
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Gatherer: prometheus.NewRegistry(),
	})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/metrics")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestSimulate(t *testing.T) {
	s, _ := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Simulate(ctx, 20*time.Millisecond) }()

	require.Eventually(t, func() bool {
		d, _ := s.Store().Device("1")
		return d.On
	}, 2*time.Second, time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}
