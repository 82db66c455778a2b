package resync

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/homectl/internal/errors"
)

// Feed subscribes to pushed device states over a websocket.
type Feed struct {
	url    string
	apply  func(State)
	dialer *websocket.Dialer
	header http.Header
	logger *slog.Logger
}

// FeedOption configures a Feed.
type FeedOption func(*Feed)

// WithDialer sets the websocket dialer.
func WithDialer(d *websocket.Dialer) FeedOption {
	return func(f *Feed) {
		f.dialer = d
	}
}

// WithFeedLogger sets the logger.
func WithFeedLogger(l *slog.Logger) FeedOption {
	return func(f *Feed) {
		f.logger = l
	}
}

// WithHeader sets headers sent with the handshake.
func WithHeader(h http.Header) FeedOption {
	return func(f *Feed) {
		f.header = h
	}
}

// NewFeed creates a Feed for the ws:// or wss:// url. apply is called for
// every state received, on the Feed's goroutine.
func NewFeed(url string, apply func(State), opts ...FeedOption) *Feed {
	f := &Feed{
		url:    url,
		apply:  apply,
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Run connects and applies states until ctx ends or the server closes the
// connection. A normal close or ctx cancellation returns nil.
func (f *Feed) Run(ctx context.Context) error {
	conn, _, err := f.dialer.DialContext(ctx, f.url, f.header)
	if err != nil {
		return errors.New("E120").WithDetailf("dial %s", f.url).Wrap(err)
	}
	defer conn.Close()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			conn.Close()
		case <-stop:
		}
	}()

	f.logger.Debug("resync feed connected", "url", f.url)
	for {
		var st State
		if err := conn.ReadJSON(&st); err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			if _, ok := err.(*websocket.CloseError); ok {
				return errors.New("E120").WithDetail("resync feed closed").Wrap(err)
			}
			if isDecodeError(err) {
				f.logger.Warn("resync feed: dropping malformed message", "error", err)
				continue
			}
			return errors.New("E120").WithDetail("resync feed read").Wrap(err)
		}
		if st.ID == "" {
			f.logger.Warn("resync feed: dropping state without id")
			continue
		}
		f.apply(st)
	}
}
