package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// GenericFailure is the alert text shown for any failed interaction.
const GenericFailure = "Something went wrong!\nCheck logs for more information."

// Level represents the alert type.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelWarning Level = "warning"
	LevelInfo    Level = "info"
)

// Alert is one user-visible notification.
type Alert struct {
	Level   Level
	Title   string
	Message string
}

// Notifier shows alerts to the user.
type Notifier interface {
	Notify(ctx context.Context, a Alert)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, a Alert)

// Notify implements Notifier.
func (f NotifierFunc) Notify(ctx context.Context, a Alert) {
	f(ctx, a)
}

// Discard drops every alert.
var Discard Notifier = NotifierFunc(func(context.Context, Alert) {})

// Recorder keeps every alert it receives. Safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	alerts []Alert
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Notify implements Notifier.
func (r *Recorder) Notify(_ context.Context, a Alert) {
	r.mu.Lock()
	r.alerts = append(r.alerts, a)
	r.mu.Unlock()
}

// Alerts returns a copy of the recorded alerts.
func (r *Recorder) Alerts() []Alert {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Alert(nil), r.alerts...)
}

// Len returns the number of recorded alerts.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.alerts)
}

// Writer prints alerts to an io.Writer, one per line group.
type Writer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriter creates a Writer notifier.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Notify implements Notifier.
func (w *Writer) Notify(_ context.Context, a Alert) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if a.Title != "" {
		fmt.Fprintf(w.w, "[%s] %s: %s\n", a.Level, a.Title, a.Message)
		return
	}
	fmt.Fprintf(w.w, "[%s] %s\n", a.Level, a.Message)
}

// BodyCarrier is implemented by errors that carry a server response body.
type BodyCarrier interface {
	ResponseBody() []byte
}

// SerializeError renders the response body carried by err. A JSON body is
// compacted, other bodies are quoted. Errors without a body yield "null".
func SerializeError(err error) string {
	var bc BodyCarrier
	if !errors.As(err, &bc) {
		return "null"
	}
	body := bc.ResponseBody()
	if len(body) == 0 {
		return "null"
	}
	if json.Valid(body) {
		var v any
		if json.Unmarshal(body, &v) == nil {
			out, _ := json.Marshal(v)
			return string(out)
		}
	}
	out, _ := json.Marshal(string(body))
	return string(out)
}

// Reporter reports failures to the operator log and the user.
type Reporter struct {
	notifier Notifier
	logger   *slog.Logger
}

// NewReporter creates a Reporter. A nil notifier discards alerts and a nil
// logger uses slog.Default().
func NewReporter(n Notifier, logger *slog.Logger) *Reporter {
	if n == nil {
		n = Discard
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reporter{notifier: n, logger: logger}
}

// Failure logs "<where>: error occurred: <body>" and shows the generic
// failure alert.
func (r *Reporter) Failure(ctx context.Context, where string, err error) {
	r.logger.ErrorContext(ctx, fmt.Sprintf("%s: error occurred: %s", where, SerializeError(err)),
		"error", err)
	r.notifier.Notify(ctx, Alert{Level: LevelError, Message: GenericFailure})
}

// Notify forwards an alert to the underlying notifier.
func (r *Reporter) Notify(ctx context.Context, a Alert) {
	r.notifier.Notify(ctx, a)
}

// Logger returns the reporter's logger.
func (r *Reporter) Logger() *slog.Logger {
	return r.logger
}
