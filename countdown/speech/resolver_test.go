package speech

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dgnsrekt/cadence/countdown"
	"github.com/dgnsrekt/cadence/countdown/audio"
	"github.com/dgnsrekt/cadence/countdown/synth"
)

// memStore is an in-memory Store for resolver tests.
type memStore struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{entries: make(map[string][]byte)}
}

func (m *memStore) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.entries[key]
	return v, ok
}

func (m *memStore) Put(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = value
	return nil
}

func (m *memStore) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

func (m *memStore) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *memStore) corruptAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.entries {
		m.entries[k] = []byte("not a wav stream")
	}
}

func fastRetry() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		Multiplier:     2,
	}
}

func TestResolveCachesAcrossCalls(t *testing.T) {
	store := newMemStore()
	backend := synth.NewMock()
	r := NewResolver(store, backend, "en", "com", WithFade(10))

	first, err := r.Resolve(context.Background(), "ten")
	if err != nil {
		t.Fatalf("first resolve failed: %v", err)
	}
	second, err := r.Resolve(context.Background(), "ten")
	if err != nil {
		t.Fatalf("second resolve failed: %v", err)
	}

	if backend.Calls("ten") != 1 {
		t.Errorf("backend called %d times, want 1", backend.Calls("ten"))
	}
	if len(first.Samples) != len(second.Samples) {
		t.Fatalf("cached fragment length differs: %d vs %d", len(first.Samples), len(second.Samples))
	}
	for i := range first.Samples {
		if first.Samples[i] != second.Samples[i] {
			t.Fatalf("cached fragment differs at sample %d", i)
		}
	}
}

func TestResolveNormalizesText(t *testing.T) {
	store := newMemStore()
	backend := synth.NewMock()
	r := NewResolver(store, backend, "en", "com")

	if _, err := r.Resolve(context.Background(), "  Rest "); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if _, err := r.Resolve(context.Background(), "rest"); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	if got := backend.TotalCalls(); got != 1 {
		t.Errorf("backend called %d times, want 1 shared synthesis", got)
	}
	if store.len() != 1 {
		t.Errorf("store holds %d entries, want 1", store.len())
	}
}

func TestResolveSingleFlight(t *testing.T) {
	store := newMemStore()
	backend := &blockingSynth{release: make(chan struct{})}
	r := NewResolver(store, backend, "en", "com")

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = r.Resolve(context.Background(), "three")
		}(i)
	}

	// Let the goroutines pile onto the single in-flight synthesis.
	time.Sleep(50 * time.Millisecond)
	close(backend.release)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("worker %d failed: %v", i, err)
		}
	}
	if got := backend.calls.Load(); got != 1 {
		t.Errorf("backend called %d times for one text, want 1", got)
	}
}

func TestResolveRetriesTransientFailures(t *testing.T) {
	store := newMemStore()
	backend := synth.NewMock()
	backend.FailFirst(2, &synth.BackendError{StatusCode: http.StatusInternalServerError})
	r := NewResolver(store, backend, "en", "com", WithRetryPolicy(fastRetry()))

	if _, err := r.Resolve(context.Background(), "nine"); err != nil {
		t.Fatalf("resolve failed despite retries: %v", err)
	}
	if backend.Calls("nine") != 3 {
		t.Errorf("backend called %d times, want 3", backend.Calls("nine"))
	}
}

func TestResolvePermanentFailureDoesNotPoisonCache(t *testing.T) {
	store := newMemStore()
	backend := synth.NewMock()
	backend.FailFirst(1, &synth.BackendError{StatusCode: http.StatusNotFound})
	r := NewResolver(store, backend, "en", "com", WithRetryPolicy(fastRetry()))

	_, err := r.Resolve(context.Background(), "seven")
	if !errors.Is(err, countdown.ErrSynthesisFailed) {
		t.Fatalf("got %v, want ErrSynthesisFailed", err)
	}
	if backend.Calls("seven") != 1 {
		t.Errorf("permanent failure retried: %d calls", backend.Calls("seven"))
	}
	if store.len() != 0 {
		t.Fatal("failed synthesis left a cache entry")
	}

	// A later attempt is free to succeed.
	if _, err := r.Resolve(context.Background(), "seven"); err != nil {
		t.Fatalf("retry after failure did not recover: %v", err)
	}
	if store.len() != 1 {
		t.Error("successful retry not cached")
	}
}

func TestResolveExhaustsRetries(t *testing.T) {
	store := newMemStore()
	backend := synth.NewMock()
	backend.FailFirst(100, &synth.BackendError{StatusCode: http.StatusBadGateway})
	r := NewResolver(store, backend, "en", "com", WithRetryPolicy(fastRetry()))

	_, err := r.Resolve(context.Background(), "two")
	if !errors.Is(err, countdown.ErrSynthesisFailed) {
		t.Fatalf("got %v, want ErrSynthesisFailed", err)
	}
	if backend.Calls("two") != fastRetry().MaxAttempts {
		t.Errorf("backend called %d times, want %d", backend.Calls("two"), fastRetry().MaxAttempts)
	}

	var serr *countdown.SynthesisError
	if !errors.As(err, &serr) || serr.Text != "two" {
		t.Errorf("error does not carry the failing text: %v", err)
	}
}

func TestResolveRecoversFromCorruptedEntry(t *testing.T) {
	store := newMemStore()
	backend := synth.NewMock()
	r := NewResolver(store, backend, "en", "com")

	want, err := r.Resolve(context.Background(), "four")
	if err != nil {
		t.Fatalf("initial resolve failed: %v", err)
	}

	store.corruptAll()

	got, err := r.Resolve(context.Background(), "four")
	if err != nil {
		t.Fatalf("resolve after corruption failed: %v", err)
	}
	if backend.Calls("four") != 2 {
		t.Errorf("backend called %d times, want re-synthesis after corruption", backend.Calls("four"))
	}
	if len(got.Samples) != len(want.Samples) {
		t.Error("re-synthesized fragment differs from the original")
	}
	if store.len() != 1 {
		t.Errorf("store holds %d entries after recovery, want 1", store.len())
	}
}

func TestResolveCancelledCallerDoesNotFailWaiters(t *testing.T) {
	store := newMemStore()
	backend := &blockingSynth{release: make(chan struct{})}
	r := NewResolver(store, backend, "en", "com")

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := r.Resolve(ctx, "eight")
		first <- err
	}()

	second := make(chan error, 1)
	go func() {
		_, err := r.Resolve(context.Background(), "eight")
		second <- err
	}()

	// Both callers join the one in-flight synthesis, then the first
	// gives up.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-first:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("cancelled caller got %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("cancelled caller stayed blocked on the shared flight")
	}

	close(backend.release)
	select {
	case err := <-second:
		if err != nil {
			t.Fatalf("waiter failed after another caller cancelled: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("waiter never finished")
	}
	if got := backend.calls.Load(); got != 1 {
		t.Errorf("backend called %d times, want 1", got)
	}
}

func TestResolveHonorsCancellation(t *testing.T) {
	store := newMemStore()
	backend := synth.NewMock()
	backend.FailFirst(100, &synth.BackendError{StatusCode: http.StatusInternalServerError})
	r := NewResolver(store, backend, "en", "com", WithRetryPolicy(RetryPolicy{
		MaxAttempts:    10,
		InitialBackoff: time.Hour,
		MaxBackoff:     time.Hour,
		Multiplier:     1,
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := r.Resolve(ctx, "six")
	if err == nil {
		t.Fatal("cancelled resolve did not error")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("resolve kept backing off for %s after cancellation", elapsed)
	}
}

// blockingSynth blocks every call until release is closed, to hold
// concurrent resolutions in flight.
type blockingSynth struct {
	calls   atomic.Int32
	release chan struct{}
}

func (b *blockingSynth) Name() string { return "blocking" }

func (b *blockingSynth) Synthesize(ctx context.Context, req synth.Request) ([]byte, error) {
	b.calls.Add(1)
	select {
	case <-b.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return audio.EncodeWAV(synth.MockClip(req.Text)), nil
}
