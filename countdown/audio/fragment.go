// Package audio provides the PCM fragment type shared by the tone
// generator, the speech resolver, and the track assembler, plus the
// basic shaping operations (gain, normalization, edge fades) applied
// to every fragment before assembly.
package audio

import "math"

// SampleRate is the fixed mono sample rate every fragment is converted
// to before it reaches the assembler.
const SampleRate = 44100

// normalizeHeadroom is the peak level (fraction of full scale) that
// Normalize scales fragments to. Leaving a little headroom avoids
// clipping when fades and gain are applied afterwards.
const normalizeHeadroom = 0.95

// Fragment is a rendered piece of mono 16-bit PCM audio.
type Fragment struct {
	Samples []int16
	Rate    int
}

// NewFragment wraps samples at the package sample rate.
func NewFragment(samples []int16) *Fragment {
	return &Fragment{Samples: samples, Rate: SampleRate}
}

// Silence returns a fragment of ms milliseconds of silence.
func Silence(ms int) *Fragment {
	return NewFragment(make([]int16, MSToSamples(ms)))
}

// DurationMS returns the fragment duration in milliseconds, rounded to
// the nearest millisecond.
func (f *Fragment) DurationMS() int {
	return SamplesToMS(len(f.Samples))
}

// Clone returns a deep copy of the fragment.
func (f *Fragment) Clone() *Fragment {
	samples := make([]int16, len(f.Samples))
	copy(samples, f.Samples)
	return &Fragment{Samples: samples, Rate: f.Rate}
}

// ApplyGain scales the fragment by a decibel value. Negative values
// attenuate, positive values amplify (clipped at full scale).
func (f *Fragment) ApplyGain(db float64) {
	factor := math.Pow(10, db/20)
	for i, s := range f.Samples {
		f.Samples[i] = clampSample(float64(s) * factor)
	}
}

// Normalize scales the fragment so its peak sits just under full scale.
// Silent fragments are left untouched.
func (f *Fragment) Normalize() {
	var peak float64
	for _, s := range f.Samples {
		if v := math.Abs(float64(s)); v > peak {
			peak = v
		}
	}
	if peak == 0 {
		return
	}
	factor := normalizeHeadroom * math.MaxInt16 / peak
	for i, s := range f.Samples {
		f.Samples[i] = clampSample(float64(s) * factor)
	}
}

// FadeEdges applies a linear fade-in and fade-out of fadeMS each to
// avoid discontinuity clicks. The fade is clipped to half the fragment
// length so in and out never overlap.
func (f *Fragment) FadeEdges(fadeMS int) {
	if fadeMS <= 0 || len(f.Samples) == 0 {
		return
	}
	n := MSToSamples(fadeMS)
	if max := len(f.Samples) / 2; n > max {
		n = max
	}
	for i := 0; i < n; i++ {
		ramp := float64(i) / float64(n)
		f.Samples[i] = int16(float64(f.Samples[i]) * ramp)
		j := len(f.Samples) - 1 - i
		f.Samples[j] = int16(float64(f.Samples[j]) * ramp)
	}
}

// MSToSamples converts milliseconds to a sample count at SampleRate.
func MSToSamples(ms int) int {
	return ms * SampleRate / 1000
}

// SamplesToMS converts a sample count to milliseconds, rounding to the
// nearest millisecond so cumulative positions stay consistent with the
// rendered audio.
func SamplesToMS(samples int) int {
	return (samples*1000 + SampleRate/2) / SampleRate
}

func clampSample(v float64) int16 {
	switch {
	case v > math.MaxInt16:
		return math.MaxInt16
	case v < math.MinInt16:
		return math.MinInt16
	}
	return int16(v)
}
