package countdown

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/language"

	"github.com/dgnsrekt/cadence/countdown/audio"
)

// Mode selects the countdown flavor.
type Mode string

const (
	// ModeReps counts repetitions down from start to 1.
	ModeReps Mode = "reps"
	// ModeMinutes announces minutes remaining from start down to 0.
	ModeMinutes Mode = "minutes"
)

// RepsOptions holds the rep-count specific knobs. They must stay zero
// in minutes mode.
type RepsOptions struct {
	// EveryN inserts a rest prompt every N counts. 0 disables rests.
	EveryN int `json:"every_n" yaml:"every_n"`
	// SkipFirstRests suppresses the first N rest occurrences.
	SkipFirstRests int `json:"skip_first_rest" yaml:"skip_first_rest"`
	// RestText is the phrase spoken at rest cues.
	RestText string `json:"rest_text" yaml:"rest_text"`
}

// MinutesOptions holds the time-based specific knobs. They must stay
// zero in reps mode.
type MinutesOptions struct {
	// SpeakInterval speaks only every N minutes. 0 speaks every minute.
	SpeakInterval int `json:"speak_interval" yaml:"speak_interval"`
	// SpeakAt speaks only at the listed minute values. When non-empty
	// it overrides SpeakInterval.
	SpeakAt []int `json:"speak_at,omitempty" yaml:"speak_at"`
	// MinuteText is the plural phrase appended to the minute count,
	// e.g. "minutes remaining". The singular form is derived.
	MinuteText string `json:"minute_text" yaml:"minute_text"`
}

// BeepOptions parameterizes the tick tone. The end beep is derived by
// fixed ratios in the tone generator.
type BeepOptions struct {
	FreqHz     int     `json:"freq_hz" yaml:"freq_hz"`
	DurationMS int     `json:"duration_ms" yaml:"duration_ms"`
	GainDB     float64 `json:"gain_db" yaml:"gain_db"`
}

// Config is the immutable input of a build. Validate before use.
type Config struct {
	Mode  Mode `json:"mode" yaml:"mode"`
	Start int  `json:"start" yaml:"start"`

	// IntervalMS is the gap between normal cues; LongIntervalMS is
	// used immediately after a non-suppressed rest cue.
	IntervalMS     int `json:"interval_ms" yaml:"interval_ms"`
	LongIntervalMS int `json:"long_interval_ms" yaml:"long_interval_ms"`

	LeadInText  string `json:"lead_in_text,omitempty" yaml:"lead_in_text"`
	LeadInGapMS int    `json:"lead_in_gap_ms" yaml:"lead_in_gap_ms"`
	EndText     string `json:"end_text,omitempty" yaml:"end_text"`

	Language string `json:"language" yaml:"language"`
	Accent   string `json:"accent" yaml:"accent"`

	Reps    RepsOptions    `json:"reps" yaml:"reps"`
	Minutes MinutesOptions `json:"minutes" yaml:"minutes"`

	Beep   BeepOptions `json:"beep" yaml:"beep"`
	FadeMS int         `json:"fade_ms" yaml:"fade_ms"`
}

// DefaultConfig mirrors the CLI defaults.
func DefaultConfig() Config {
	return Config{
		Mode:           ModeReps,
		Start:          80,
		IntervalMS:     3500,
		LongIntervalMS: 8000,
		LeadInGapMS:    1000,
		Language:       "en",
		Accent:         "com",
		Reps: RepsOptions{
			RestText: "rest",
		},
		Minutes: MinutesOptions{
			MinuteText: "minutes remaining",
		},
		Beep: BeepOptions{
			FreqHz:     1000,
			DurationMS: 300,
			GainDB:     -6.0,
		},
		FadeMS: 12,
	}
}

// Validate checks the configuration and reports the first offending
// field. It runs before any scheduling, synthesis, or encoding.
func (c Config) Validate() error {
	switch c.Mode {
	case ModeReps, ModeMinutes:
	default:
		return &ConfigError{Field: "mode", Reason: fmt.Sprintf("must be %q or %q", ModeReps, ModeMinutes)}
	}
	if c.Start < 0 {
		return &ConfigError{Field: "start", Reason: "must not be negative"}
	}
	if c.IntervalMS < 0 {
		return &ConfigError{Field: "interval_ms", Reason: "must not be negative"}
	}
	if c.LongIntervalMS < 0 {
		return &ConfigError{Field: "long_interval_ms", Reason: "must not be negative"}
	}
	if c.LeadInGapMS < 0 {
		return &ConfigError{Field: "lead_in_gap_ms", Reason: "must not be negative"}
	}
	if c.FadeMS < 0 {
		return &ConfigError{Field: "fade_ms", Reason: "must not be negative"}
	}
	if c.Beep.FreqHz <= 0 {
		return &ConfigError{Field: "beep.freq_hz", Reason: "must be positive"}
	}
	if c.Beep.DurationMS <= 0 {
		return &ConfigError{Field: "beep.duration_ms", Reason: "must be positive"}
	}
	if c.Language == "" {
		return &ConfigError{Field: "language", Reason: "must not be empty"}
	}
	if _, err := language.Parse(c.Language); err != nil {
		return &ConfigError{Field: "language", Reason: fmt.Sprintf("unknown language code %q", c.Language)}
	}

	switch c.Mode {
	case ModeReps:
		if c.Minutes.SpeakInterval != 0 || len(c.Minutes.SpeakAt) > 0 {
			return &ConfigError{Field: "minutes", Reason: "speak options only apply in minutes mode"}
		}
		if c.Reps.EveryN < 0 {
			return &ConfigError{Field: "reps.every_n", Reason: "must not be negative"}
		}
		if c.Reps.SkipFirstRests < 0 {
			return &ConfigError{Field: "reps.skip_first_rest", Reason: "must not be negative"}
		}
		if c.Reps.EveryN > 0 && c.Reps.RestText == "" {
			return &ConfigError{Field: "reps.rest_text", Reason: "must not be empty when rests are enabled"}
		}
	case ModeMinutes:
		if c.Reps.EveryN != 0 || c.Reps.SkipFirstRests != 0 {
			return &ConfigError{Field: "reps", Reason: "rest options only apply in reps mode"}
		}
		if c.Minutes.SpeakInterval < 0 {
			return &ConfigError{Field: "minutes.speak_interval", Reason: "must not be negative"}
		}
		for _, m := range c.Minutes.SpeakAt {
			if m < 0 || m > c.Start {
				return &ConfigError{
					Field:  "minutes.speak_at",
					Reason: fmt.Sprintf("minute %d outside 0..%d", m, c.Start),
				}
			}
		}
		if c.Minutes.MinuteText == "" {
			return &ConfigError{Field: "minutes.minute_text", Reason: "must not be empty"}
		}
	}

	return nil
}

// ToneSpec derives the tone generator parameters from the config.
func (c Config) ToneSpec() audio.ToneSpec {
	return audio.ToneSpec{
		FreqHz:     c.Beep.FreqHz,
		DurationMS: c.Beep.DurationMS,
		GainDB:     c.Beep.GainDB,
		FadeMS:     c.FadeMS,
	}
}

// ParseSpeakAt parses a comma-separated minute list such as
// "30,15,10,5,1" as given on the command line or a web form.
func ParseSpeakAt(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	minutes := make([]int, 0, len(parts))
	for _, p := range parts {
		m, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, &ConfigError{
				Field:  "minutes.speak_at",
				Reason: fmt.Sprintf("%q is not an integer", strings.TrimSpace(p)),
			}
		}
		minutes = append(minutes, m)
	}
	return minutes, nil
}
