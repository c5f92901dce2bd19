// Package speech resolves spoken text into rendered audio fragments,
// backed by the persistent cache and the synthesis backend. It is the
// only shared mutable piece of a build: concurrent resolutions of the
// same text share one in-flight synthesis instead of duplicating it.
package speech

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/dgnsrekt/cadence/countdown"
	"github.com/dgnsrekt/cadence/countdown/audio"
	"github.com/dgnsrekt/cadence/countdown/synth"
)

// Store is the subset of the cache store the resolver needs.
type Store interface {
	Get(key string) ([]byte, bool)
	Put(key string, value []byte) error
	Delete(key string) error
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithRetryPolicy overrides the default retry policy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(r *Resolver) {
		r.retry = p
	}
}

// WithFade sets the edge fade applied to resolved fragments.
func WithFade(ms int) Option {
	return func(r *Resolver) {
		r.fadeMS = ms
	}
}

// Resolver implements countdown.FragmentResolver on top of the cache
// and a synthesis backend.
type Resolver struct {
	store    Store
	backend  synth.Synthesizer
	retry    RetryPolicy
	fadeMS   int
	language string
	accent   string
	flight   singleflight.Group
}

// NewResolver creates a resolver for one (language, accent) pair.
func NewResolver(store Store, backend synth.Synthesizer, language, accent string, opts ...Option) *Resolver {
	r := &Resolver{
		store:    store,
		backend:  backend,
		retry:    DefaultRetryPolicy(),
		language: language,
		accent:   accent,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the rendered fragment for text, normalized, faded,
// and byte-identical across calls for the same text. At most one
// synthesis per key is in flight at any time; the flight is detached
// from the initiating caller's context so one cancelled caller cannot
// fail the waiters sharing it. A cancelled caller still returns
// immediately with its own context error.
func (r *Resolver) Resolve(ctx context.Context, text string) (*audio.Fragment, error) {
	norm := normalizeText(text)
	key := r.cacheKey(norm)

	ch := r.flight.DoChan(key, func() (interface{}, error) {
		return r.resolve(context.WithoutCancel(ctx), norm, key)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*audio.Fragment), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *Resolver) resolve(ctx context.Context, text, key string) (*audio.Fragment, error) {
	if data, ok := r.store.Get(key); ok {
		frag, err := audio.DecodeWAV(data)
		if err == nil {
			return r.prep(frag), nil
		}
		// Unreadable entry: treat as a miss and re-synthesize.
		log.Warn("dropping corrupted cache entry",
			"text", text, "key", key[:12], "err",
			fmt.Errorf("%w: %v", countdown.ErrCacheCorrupted, err))
		_ = r.store.Delete(key)
	}

	data, err := r.synthesize(ctx, text)
	if err != nil {
		return nil, err
	}
	frag, err := audio.DecodeWAV(data)
	if err != nil {
		return nil, &countdown.SynthesisError{
			Text: text,
			Err:  fmt.Errorf("backend returned undecodable audio: %w", err),
		}
	}

	// Insert only after a fully successful synthesis, so a cancelled
	// or failed resolution never leaves a partial entry behind.
	if err := r.store.Put(key, data); err != nil {
		log.Warn("unable to cache synthesized clip", "text", text, "err", err)
	}
	return r.prep(frag), nil
}

func (r *Resolver) synthesize(ctx context.Context, text string) ([]byte, error) {
	req := synth.Request{Text: text, Language: r.language, Accent: r.accent}

	var lastErr error
	for attempt := 1; attempt <= r.retry.MaxAttempts; attempt++ {
		data, err := r.backend.Synthesize(ctx, req)
		if err == nil {
			return data, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !synth.IsTemporary(err) || attempt == r.retry.MaxAttempts {
			break
		}

		wait := r.retry.Backoff(attempt)
		log.Debug("retrying synthesis", "text", text, "attempt", attempt, "wait", wait, "err", err)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, &countdown.SynthesisError{Text: text, Err: lastErr}
}

func (r *Resolver) prep(frag *audio.Fragment) *audio.Fragment {
	frag.Normalize()
	frag.FadeEdges(r.fadeMS)
	return frag
}

func (r *Resolver) cacheKey(normText string) string {
	h := sha256.Sum256([]byte(r.language + "|" + r.accent + "|" + normText))
	return hex.EncodeToString(h[:])
}

// normalizeText trims and case-folds so "Rest " and "rest" share one
// cache entry and one synthesis.
func normalizeText(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}
