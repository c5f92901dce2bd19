// Package synth provides speech synthesis backends. A backend turns a
// text plus language and accent codes into a WAV clip; everything
// downstream (caching, retries, fades) lives in the speech resolver.
package synth

import (
	"context"
	"errors"
	"fmt"
)

// Request identifies one clip to synthesize.
type Request struct {
	Text     string
	Language string // language code, e.g. "en"
	Accent   string // accent/region code, e.g. "com", "co.uk"
}

// Synthesizer is implemented by speech backends.
type Synthesizer interface {
	// Synthesize returns WAV bytes for the request. Implementations
	// must respect context cancellation.
	Synthesize(ctx context.Context, req Request) ([]byte, error)
	// Name identifies the backend in logs.
	Name() string
}

// BackendError reports a failed HTTP exchange with the backend.
type BackendError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *BackendError) Error() string {
	return fmt.Sprintf("synthesis backend returned HTTP %d: %s", e.StatusCode, e.Body)
}

// Temporary reports whether retrying the request may succeed.
func (e *BackendError) Temporary() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}

// IsTemporary reports whether an error is worth retrying. Network
// errors without an HTTP status are treated as transient.
func IsTemporary(err error) bool {
	var be *BackendError
	if errors.As(err, &be) {
		return be.Temporary()
	}
	return true
}
