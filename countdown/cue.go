package countdown

// CueKind discriminates the scheduled unit types.
type CueKind int

const (
	// CueSpeech is a spoken phrase.
	CueSpeech CueKind = iota
	// CueBeep is a tone burst.
	CueBeep
	// CueSilence contributes only its trailing gap, no audio and no
	// timeline entry.
	CueSilence
)

// BeepVariant selects the beep flavor for CueBeep cues.
type BeepVariant int

const (
	// BeepNormal is the tick between cues.
	BeepNormal BeepVariant = iota
	// BeepEnd closes the whole sequence.
	BeepEnd
)

// Cue is one scheduled unit of the countdown. Cues are produced in
// bulk by Schedule, read-only afterwards, and consumed exactly once by
// the assembler. Order is the sole temporal relationship before
// rendering.
type Cue struct {
	Kind    CueKind
	Text    string      // CueSpeech only
	Variant BeepVariant // CueBeep only

	// GapAfterMS is the silence inserted after this cue's audio,
	// before the next cue begins.
	GapAfterMS int
}

// Label returns the human-readable timeline label for the cue.
func (c Cue) Label() string {
	switch c.Kind {
	case CueSpeech:
		return c.Text
	case CueBeep:
		return "beep"
	}
	return ""
}

func speechCue(text string) Cue {
	return Cue{Kind: CueSpeech, Text: text}
}

func beepCue(v BeepVariant, gapMS int) Cue {
	return Cue{Kind: CueBeep, Variant: v, GapAfterMS: gapMS}
}

func silenceCue(gapMS int) Cue {
	return Cue{Kind: CueSilence, GapAfterMS: gapMS}
}
