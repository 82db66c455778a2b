package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Options configures a Server.
type Options struct {
	// Store holds the served data. Default: NewSeededStore().
	Store *Store

	// Logger is the structured logger. Default: slog.Default().
	Logger *slog.Logger

	// Gatherer backs /metrics. Default: prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer

	// ListingURL is where a confirmed person delete redirects.
	// Default: /admin/person/list.
	ListingURL string
}

// Server serves the fragment service.
type Server struct {
	store   *Store
	hub     *Hub
	logger  *slog.Logger
	router  chi.Router
	listing string
}

// New creates a Server.
func New(opts Options) *Server {
	if opts.Store == nil {
		opts.Store = NewSeededStore()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	if opts.ListingURL == "" {
		opts.ListingURL = "/admin/person/list"
	}
	s := &Server{
		store:   opts.Store,
		hub:     NewHub(opts.Logger),
		logger:  opts.Logger,
		listing: opts.ListingURL,
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(s.logRequests)

	r.Get("/device/{id}/state", s.handleState)
	r.Patch("/device/{id}/updateValue/{value}", s.handleUpdateValue)
	r.Patch("/device/{id}/updateStatus/{status}", s.handleUpdateStatus)
	r.Post("/device/{id}/updateStatus/{status}", s.handleUpdateStatus)
	r.Post("/device/new", s.handleNew)
	r.Put("/device/{id}/edit", s.handleEdit)
	r.Delete("/device/{id}/delete", s.handleDelete)
	r.Post("/person/DeletePersonConfirm/{id}", s.handleDeletePerson)
	r.Get(opts.ListingURL, s.handlePersons)
	r.Handle("/ws", s.hub)
	r.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Store returns the served store.
func (s *Server) Store() *Store {
	return s.store
}

// Hub returns the state feed hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// SetValue updates a device value and pushes the new state.
func (s *Server) SetValue(id string, value int) (Device, error) {
	d, err := s.store.SetValue(id, value)
	if err != nil {
		return Device{}, err
	}
	s.hub.Broadcast(d.State())
	return d, nil
}

// SetStatus switches a device and pushes the new state.
func (s *Server) SetStatus(id string, on bool) (Device, error) {
	d, err := s.store.SetStatus(id, on)
	if err != nil {
		return Device{}, err
	}
	s.hub.Broadcast(d.State())
	return d, nil
}

// Simulate flips one device at a time every interval, round robin, until
// ctx ends. It stands in for devices changing state on their own.
func (s *Server) Simulate(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	next := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		devices := s.store.Devices()
		if len(devices) == 0 {
			continue
		}
		d := devices[next%len(devices)]
		next++
		if _, err := s.SetStatus(d.ID, !d.On); err != nil {
			s.logger.Warn("simulate", "device", d.ID, "error", err)
			continue
		}
		s.logger.Debug("simulated status change", "device", d.ID, "on", !d.On)
	}
}

// ListenAndServe serves on addr until ctx ends, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx ends.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("fragment service listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", chimw.GetReqID(r.Context()),
		)
	})
}

// errorBody is the JSON body of a failed request.
type errorBody struct {
	Timestamp time.Time `json:"timestamp"`
	Status    int       `json:"status"`
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Path      string    `json:"path"`
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, status int, err error) {
	writeJSON(w, status, errorBody{
		Timestamp: time.Now().UTC(),
		Status:    status,
		Error:     http.StatusText(status),
		Message:   err.Error(),
		Path:      r.URL.Path,
	})
}

func (s *Server) failStore(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		s.fail(w, r, http.StatusNotFound, err)
	case errors.Is(err, ErrOutOfRange):
		s.fail(w, r, http.StatusUnprocessableEntity, err)
	default:
		s.fail(w, r, http.StatusInternalServerError, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeFragment(w http.ResponseWriter, render func(http.ResponseWriter) error) error {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return render(w)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	d, err := s.store.Device(chi.URLParam(r, "id"))
	if err != nil {
		s.failStore(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d.State())
}

func (s *Server) handleUpdateValue(w http.ResponseWriter, r *http.Request) {
	value, err := strconv.Atoi(chi.URLParam(r, "value"))
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, err)
		return
	}
	d, err := s.SetValue(chi.URLParam(r, "id"), value)
	if err != nil {
		s.failStore(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d.State())
}

func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	on, err := strconv.ParseBool(chi.URLParam(r, "status"))
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, err)
		return
	}
	d, err := s.SetStatus(chi.URLParam(r, "id"), on)
	if err != nil {
		s.failStore(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d.State())
}

func (s *Server) handleNew(w http.ResponseWriter, r *http.Request) {
	err := writeFragment(w, func(w http.ResponseWriter) error {
		return renderEdit(w, Device{Max: 10})
	})
	if err != nil {
		s.logger.Error("render new device fragment", "error", err)
	}
}

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	d, err := s.store.Device(chi.URLParam(r, "id"))
	if err != nil {
		s.failStore(w, r, err)
		return
	}
	if err := writeFragment(w, func(w http.ResponseWriter) error { return renderEdit(w, d) }); err != nil {
		s.logger.Error("render edit fragment", "device", d.ID, "error", err)
	}
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	d, err := s.store.Device(chi.URLParam(r, "id"))
	if err != nil {
		s.failStore(w, r, err)
		return
	}
	if err := writeFragment(w, func(w http.ResponseWriter) error { return renderDelete(w, d) }); err != nil {
		s.logger.Error("render delete fragment", "device", d.ID, "error", err)
	}
}

func (s *Server) handleDeletePerson(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.DeletePerson(id); err != nil {
		s.failStore(w, r, err)
		return
	}
	s.logger.Info("person deleted", "person", id)
	w.Header().Set("Location", s.listing)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePersons(w http.ResponseWriter, r *http.Request) {
	persons := s.store.Persons()
	if err := writeFragment(w, func(w http.ResponseWriter) error { return renderPersons(w, persons) }); err != nil {
		s.logger.Error("render person list", "error", err)
	}
}
