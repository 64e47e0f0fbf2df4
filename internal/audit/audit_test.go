package audit

import (
	"context"
	"sync"
	"testing"
	"time"
)

type captureStore struct {
	mu      sync.Mutex
	entries []Entry
}

func (s *captureStore) Append(_ context.Context, entry *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, *entry)
	return nil
}

func (s *captureStore) all() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Entry(nil), s.entries...)
}

// blockingStore holds every Append until released, so tests can pin the
// worker mid-write.
type blockingStore struct {
	captureStore
	started chan struct{}
	release chan struct{}
}

func (s *blockingStore) Append(ctx context.Context, entry *Entry) error {
	s.started <- struct{}{}
	<-s.release
	return s.captureStore.Append(ctx, entry)
}

func TestRecorderPersistsEntries(t *testing.T) {
	store := &captureStore{}
	ts := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	rec := NewRecorder(store, WithClock(func() time.Time { return ts }))

	rec.Record("acct-1", ActionLoginSuccess, Origin{IP: "203.0.113.9", UserAgent: "test-agent"})
	rec.Record("", ActionLoginFailed, Origin{IP: "203.0.113.9"})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rec.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}

	got := store.all()
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	first := got[0]
	if first.AccountID != "acct-1" || first.Action != ActionLoginSuccess {
		t.Fatalf("unexpected entry: %+v", first)
	}
	if first.IP != "203.0.113.9" || first.UserAgent != "test-agent" {
		t.Fatalf("origin not preserved: %+v", first)
	}
	if !first.CreatedAt.Equal(ts) {
		t.Fatalf("unexpected timestamp: %v", first.CreatedAt)
	}
	// Unresolved account stays empty rather than being invented.
	if got[1].AccountID != "" {
		t.Fatalf("expected empty account id, got %q", got[1].AccountID)
	}
}

func TestRecorderCloseDrainsQueue(t *testing.T) {
	store := &captureStore{}
	rec := NewRecorder(store)

	for i := 0; i < 50; i++ {
		rec.Record("acct-1", ActionLoginFailed, Origin{})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rec.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if n := len(store.all()); n != 50 {
		t.Fatalf("expected all 50 entries drained, got %d", n)
	}
}

func TestRecorderDropsWhenQueueFull(t *testing.T) {
	store := &blockingStore{
		started: make(chan struct{}, 4),
		release: make(chan struct{}),
	}
	rec := NewRecorder(store, WithQueueSize(1))

	// The worker picks up the first entry and blocks inside Append.
	rec.Record("acct-1", ActionSignup, Origin{})
	<-store.started

	// Second entry fills the queue; the third has nowhere to go.
	rec.Record("acct-1", ActionLoginSuccess, Origin{})
	rec.Record("acct-1", ActionLoginFailed, Origin{})

	close(store.release)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rec.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}

	got := store.all()
	if len(got) != 2 {
		t.Fatalf("expected 2 persisted entries after drop, got %d", len(got))
	}
	if got[0].Action != ActionSignup || got[1].Action != ActionLoginSuccess {
		t.Fatalf("unexpected entries: %+v", got)
	}
}

func TestRecorderCloseHonorsContext(t *testing.T) {
	store := &blockingStore{
		started: make(chan struct{}, 4),
		release: make(chan struct{}),
	}
	rec := NewRecorder(store)

	rec.Record("acct-1", ActionSignup, Origin{})
	<-store.started

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := rec.Close(ctx); err == nil {
		t.Fatal("expected context error while the store is stuck")
	}
	close(store.release)
}
