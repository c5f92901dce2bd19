package countdown

import (
	"errors"
	"fmt"
)

// Common errors for the countdown build pipeline.
var (
	// ErrInvalidConfig is returned when a configuration fails
	// validation before any scheduling happens.
	ErrInvalidConfig = errors.New("invalid countdown configuration")

	// ErrSynthesisFailed is returned when the speech backend exhausted
	// its retries for a cue.
	ErrSynthesisFailed = errors.New("speech synthesis failed")

	// ErrEncodingFailed is returned when the container encoder rejects
	// the assembled track.
	ErrEncodingFailed = errors.New("audio encoding failed")

	// ErrCacheCorrupted marks an unreadable cached fragment. The speech
	// resolver treats it as a miss and re-synthesizes.
	ErrCacheCorrupted = errors.New("cached audio is corrupted")
)

// ConfigError reports the offending field of an invalid configuration.
type ConfigError struct {
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// Unwrap makes ConfigError match ErrInvalidConfig with errors.Is.
func (e *ConfigError) Unwrap() error {
	return ErrInvalidConfig
}

// SynthesisError identifies which cue text could not be synthesized.
type SynthesisError struct {
	Text string
	Err  error
}

// Error implements the error interface.
func (e *SynthesisError) Error() string {
	return fmt.Sprintf("synthesis failed for %q: %v", e.Text, e.Err)
}

// Unwrap returns the underlying backend error.
func (e *SynthesisError) Unwrap() error {
	return e.Err
}

// Is makes SynthesisError match ErrSynthesisFailed with errors.Is.
func (e *SynthesisError) Is(target error) bool {
	return target == ErrSynthesisFailed
}
