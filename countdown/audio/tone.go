package audio

import "math"

// The end-of-countdown beep is distinguished from the regular tick by
// fixed ratios rather than separate configuration: it rings half an
// octave higher and twice as long.
const (
	endFreqRatio     = 1.5
	endDurationRatio = 2

	// referenceAmplitude is the peak level (fraction of full scale)
	// of a tone at 0 dB gain.
	referenceAmplitude = 0.89
)

// ToneVariant selects between the regular tick and the final beep.
type ToneVariant int

const (
	// ToneNormal is the tick between cues.
	ToneNormal ToneVariant = iota
	// ToneEnd is the longer, higher closing beep.
	ToneEnd
)

// ToneSpec describes the base beep. The End variant is derived from it.
type ToneSpec struct {
	FreqHz     int
	DurationMS int
	GainDB     float64
	FadeMS     int
}

// Render produces a sine tone burst for the given variant. The result
// is deterministic for a given spec and variant.
func (s ToneSpec) Render(v ToneVariant) *Fragment {
	freq := float64(s.FreqHz)
	durMS := s.DurationMS
	if v == ToneEnd {
		freq *= endFreqRatio
		durMS *= endDurationRatio
	}

	amplitude := referenceAmplitude * math.MaxInt16 * math.Pow(10, s.GainDB/20)
	samples := make([]int16, MSToSamples(durMS))
	step := 2 * math.Pi * freq / SampleRate
	for i := range samples {
		samples[i] = clampSample(amplitude * math.Sin(step*float64(i)))
	}

	f := NewFragment(samples)
	f.FadeEdges(s.FadeMS)
	return f
}
