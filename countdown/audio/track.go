package audio

// Track accumulates fragments and silence gaps into one continuous
// buffer. Positions are tracked in samples so the emitted timeline and
// the rendered audio can never drift apart.
type Track struct {
	samples []int16
}

// NewTrack returns an empty track.
func NewTrack() *Track {
	return &Track{}
}

// Append concatenates a fragment onto the end of the track.
func (t *Track) Append(f *Fragment) {
	t.samples = append(t.samples, f.Samples...)
}

// AppendSilence appends ms milliseconds of silence.
func (t *Track) AppendSilence(ms int) {
	if ms <= 0 {
		return
	}
	t.samples = append(t.samples, make([]int16, MSToSamples(ms))...)
}

// Len returns the current track length in samples.
func (t *Track) Len() int {
	return len(t.samples)
}

// DurationMS returns the current track duration in milliseconds.
func (t *Track) DurationMS() int {
	return SamplesToMS(len(t.samples))
}

// Fragment returns the assembled track as a single fragment.
func (t *Track) Fragment() *Fragment {
	return NewFragment(t.samples)
}
