package countdown

import "strconv"

// Schedule maps a validated configuration to the ordered cue sequence.
// It is pure: no I/O happens here, and the same config always yields
// the same cues. The only failure mode is an invalid configuration.
func Schedule(cfg Config) ([]Cue, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Mode {
	case ModeMinutes:
		return scheduleMinutes(cfg), nil
	default:
		return scheduleReps(cfg), nil
	}
}

// scheduleReps descends from start to 1, speaking every number. A rest
// prompt is due after n when start-n is a positive multiple of EveryN
// (so the start number itself never triggers one), except while the
// skip budget suppresses it. Every step ends with a tick beep and a
// gap; the gap stretches to LongIntervalMS right after a spoken rest.
func scheduleReps(cfg Config) []Cue {
	var cues []Cue
	cues = appendLeadIn(cues, cfg)

	restCount := 0
	for n := cfg.Start; n >= 1; n-- {
		cues = append(cues, speechCue(strconv.Itoa(n)))
		if n == 1 {
			break
		}

		gap := cfg.IntervalMS
		if restDue(cfg, n) {
			restCount++
			if restCount > cfg.Reps.SkipFirstRests {
				cues = append(cues, speechCue(cfg.Reps.RestText))
				gap = cfg.LongIntervalMS
			}
		}
		cues = append(cues, beepCue(BeepNormal, gap))
	}

	return appendEnding(cues, cfg)
}

func restDue(cfg Config, n int) bool {
	everyN := cfg.Reps.EveryN
	return everyN > 0 && n > 1 && n != cfg.Start && (cfg.Start-n)%everyN == 0
}

// scheduleMinutes descends from start to 0. Silent minutes still tick
// a beep so elapsed time stays audible; only minutes passing the speak
// policy get a spoken phrase. Each minute boundary is represented by a
// single IntervalMS gap rather than a literal minute of silence.
func scheduleMinutes(cfg Config) []Cue {
	var cues []Cue
	cues = appendLeadIn(cues, cfg)

	for m := cfg.Start; m >= 0; m-- {
		if speakMinute(cfg, m) {
			cues = append(cues, speechCue(minutePhrase(m, cfg.Minutes.MinuteText)))
		}
		if m == 0 {
			break
		}
		cues = append(cues, beepCue(BeepNormal, cfg.IntervalMS))
	}

	return appendEnding(cues, cfg)
}

func speakMinute(cfg Config, m int) bool {
	if len(cfg.Minutes.SpeakAt) > 0 {
		for _, want := range cfg.Minutes.SpeakAt {
			if m == want {
				return true
			}
		}
		return false
	}
	if n := cfg.Minutes.SpeakInterval; n > 0 {
		return m%n == 0 || m == cfg.Start || m == 0
	}
	return true
}

func appendLeadIn(cues []Cue, cfg Config) []Cue {
	if cfg.LeadInText == "" {
		return cues
	}
	cues = append(cues, speechCue(cfg.LeadInText))
	cues = append(cues, beepCue(BeepNormal, cfg.IntervalMS))
	if cfg.LeadInGapMS > 0 {
		cues = append(cues, silenceCue(cfg.LeadInGapMS))
	}
	return cues
}

// appendEnding speaks the optional closing phrase and always finishes
// with the end beep, which carries no trailing gap.
func appendEnding(cues []Cue, cfg Config) []Cue {
	if cfg.EndText != "" {
		cues = append(cues, speechCue(cfg.EndText))
	}
	return append(cues, beepCue(BeepEnd, 0))
}
