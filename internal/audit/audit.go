// Package audit persists immutable security-relevant events. Writes are
// best-effort: a failed or dropped audit entry never fails the operation that
// produced it, and failures are observable only through metrics and the log
// stream.
package audit

import (
	"context"
	"time"

	"gocredo.org/internal/obs"
)

// Security-relevant action kinds.
const (
	ActionSignup       = "SIGNUP"
	ActionLoginSuccess = "LOGIN_SUCCESS"
	ActionLoginFailed  = "LOGIN_FAILED"
)

// Origin is request metadata captured alongside an event.
type Origin struct {
	IP        string
	UserAgent string
}

// Entry is one immutable audit record. AccountID is empty when the account
// could not be resolved, e.g. a login attempt against an unknown email.
type Entry struct {
	ID        string
	AccountID string
	Action    string
	IP        string
	UserAgent string
	CreatedAt time.Time
}

// Store appends immutable entries.
type Store interface {
	Append(ctx context.Context, entry *Entry) error
}

const (
	defaultQueueSize    = 256
	defaultWriteTimeout = 5 * time.Second
)

// Recorder decouples audit writes from the request path. Record enqueues and
// returns immediately; a single worker goroutine drains the queue into the
// store. Entries that cannot be enqueued or persisted are counted and logged,
// never surfaced to the caller.
type Recorder struct {
	store   Store
	queue   chan Entry
	done    chan struct{}
	timeout time.Duration
	now     func() time.Time
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithQueueSize overrides the queue capacity.
func WithQueueSize(n int) RecorderOption {
	return func(r *Recorder) {
		if n > 0 {
			r.queue = make(chan Entry, n)
		}
	}
}

// WithWriteTimeout bounds each store write.
func WithWriteTimeout(d time.Duration) RecorderOption {
	return func(r *Recorder) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) RecorderOption {
	return func(r *Recorder) {
		if fn != nil {
			r.now = fn
		}
	}
}

// NewRecorder starts the worker and returns the recorder. Callers own the
// shutdown via Close.
func NewRecorder(store Store, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		store:   store,
		queue:   make(chan Entry, defaultQueueSize),
		done:    make(chan struct{}),
		timeout: defaultWriteTimeout,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	go r.run()
	return r
}

// Record enqueues one event. It never blocks: when the queue is full the
// entry is dropped and counted.
func (r *Recorder) Record(accountID, action string, origin Origin) {
	entry := Entry{
		AccountID: accountID,
		Action:    action,
		IP:        origin.IP,
		UserAgent: origin.UserAgent,
		CreatedAt: r.now().UTC(),
	}
	select {
	case r.queue <- entry:
	default:
		obs.AuditWritesDropped.Inc()
		obs.LogRequest(map[string]any{
			"ts":    r.now().UTC().Format(time.RFC3339Nano),
			"level": "warn",
			"msg":   "audit_entry_dropped",
			"event": action,
		})
	}
}

// Close stops accepting entries and drains the queue. It returns once the
// queue is empty or ctx is done.
func (r *Recorder) Close(ctx context.Context) error {
	close(r.queue)
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Recorder) run() {
	defer close(r.done)
	for entry := range r.queue {
		r.write(entry)
	}
}

func (r *Recorder) write(entry Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if err := r.store.Append(ctx, &entry); err != nil {
		obs.AuditWriteFailures.Inc()
		obs.LogRequest(map[string]any{
			"ts":    r.now().UTC().Format(time.RFC3339Nano),
			"level": "error",
			"msg":   "audit_write_failed",
			"event": entry.Action,
			"error": err.Error(),
		})
		return
	}
	obs.LogRequest(map[string]any{
		"ts":    entry.CreatedAt.Format(time.RFC3339Nano),
		"type":  "audit",
		"event": entry.Action,
		"id":    entry.ID,
	})
}
