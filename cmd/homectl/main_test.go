package main

import (
	"bytes"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/homectl/internal/devserver"
)

func startService(t *testing.T) (*devserver.Server, string) {
	t.Helper()
	store := devserver.NewStore()
	store.PutDevice(devserver.Device{ID: "1", Name: "lamp", Value: 2, Min: 0, Max: 3})
	srv := devserver.New(devserver.Options{
		Store:    store,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Gatherer: prometheus.NewRegistry(),
	})
	hs := httptest.NewServer(srv)
	t.Cleanup(hs.Close)
	return srv, hs.URL
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--dir", t.TempDir(), "--log-level", "error"}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestStepCommand(t *testing.T) {
	srv, url := startService(t)

	out, _, err := run(t, "--base-url", url, "step", "1", "plus")
	require.NoError(t, err)
	assert.Contains(t, out, "device 1: value 3 (committed)")

	d, _ := srv.Store().Device("1")
	assert.Equal(t, 3, d.Value)

	out, _, err = run(t, "--base-url", url, "step", "1", "plus")
	require.NoError(t, err)
	assert.Contains(t, out, "already at boundary")
}

func TestStepCommandErrors(t *testing.T) {
	_, url := startService(t)

	_, _, err := run(t, "--base-url", url, "step", "2", "sideways")
	assert.Error(t, err)

	_, _, err = run(t, "--base-url", url, "step", "9", "plus")
	assert.Error(t, err)
}

func TestToggleCommand(t *testing.T) {
	srv, url := startService(t)

	out, _, err := run(t, "--base-url", url, "toggle", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "on=true")

	d, _ := srv.Store().Device("1")
	assert.True(t, d.On)
}

func TestOpenCommand(t *testing.T) {
	_, url := startService(t)

	out, _, err := run(t, "--base-url", url, "open", "edit", "/device/1/edit")
	require.NoError(t, err)
	assert.Contains(t, out, `id="modalNewOrEdit"`)

	_, stderr, err := run(t, "--base-url", url, "open", "delete", "/device/9/delete")
	assert.Error(t, err)
	assert.Contains(t, stderr, "Something went wrong!")

	_, _, err = run(t, "--base-url", url, "open", "archive", "/device/1")
	assert.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	out, _, err := run(t, "version", "--short")
	require.NoError(t, err)
	assert.Equal(t, "dev", strings.TrimSpace(out))

	out, _, err = run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Go version:")
}

func TestInvalidBaseURL(t *testing.T) {
	_, _, err := run(t, "--base-url", "nowhere", "toggle", "1")
	assert.Error(t, err)
}
