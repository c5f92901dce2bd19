package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// Errors returned when decoding fragment bytes.
var (
	ErrNotWAV            = errors.New("data is not a RIFF/WAVE stream")
	ErrUnsupportedFormat = errors.New("unsupported WAV format")
)

const wavHeaderSize = 44

// EncodeWAV serializes a fragment as a 16-bit PCM mono WAV stream.
func EncodeWAV(f *Fragment) []byte {
	dataSize := len(f.Samples) * 2
	buf := bytes.NewBuffer(make([]byte, 0, wavHeaderSize+dataSize))

	rate := f.Rate
	if rate == 0 {
		rate = SampleRate
	}

	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36+dataSize)) //nolint:errcheck
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16))      //nolint:errcheck
	binary.Write(buf, binary.LittleEndian, uint16(1))       //nolint:errcheck // PCM
	binary.Write(buf, binary.LittleEndian, uint16(1))       //nolint:errcheck // mono
	binary.Write(buf, binary.LittleEndian, uint32(rate))    //nolint:errcheck
	binary.Write(buf, binary.LittleEndian, uint32(rate*2))  //nolint:errcheck // byte rate
	binary.Write(buf, binary.LittleEndian, uint16(2))       //nolint:errcheck // block align
	binary.Write(buf, binary.LittleEndian, uint16(16))      //nolint:errcheck // bits per sample

	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(dataSize)) //nolint:errcheck
	for _, s := range f.Samples {
		binary.Write(buf, binary.LittleEndian, s) //nolint:errcheck
	}

	return buf.Bytes()
}

// DecodeWAV parses a 16-bit PCM WAV stream into a fragment at the
// package sample rate. Multi-channel input is mixed down to mono and
// foreign sample rates are resampled.
func DecodeWAV(data []byte) (*Fragment, error) {
	if len(data) < wavHeaderSize || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, ErrNotWAV
	}

	var (
		channels uint16
		rate     uint32
		bits     uint16
		pcm      []byte
		haveFmt  bool
	)

	// Walk the chunk list; decoders must tolerate extra chunks (LIST,
	// fact) that some synthesis backends emit.
	pos := 12
	for pos+8 <= len(data) {
		id := string(data[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := pos + 8
		if size < 0 || body+size > len(data) {
			return nil, fmt.Errorf("%w: truncated %q chunk", ErrNotWAV, id)
		}
		switch id {
		case "fmt ":
			if size < 16 {
				return nil, fmt.Errorf("%w: short fmt chunk", ErrNotWAV)
			}
			format := binary.LittleEndian.Uint16(data[body : body+2])
			channels = binary.LittleEndian.Uint16(data[body+2 : body+4])
			rate = binary.LittleEndian.Uint32(data[body+4 : body+8])
			bits = binary.LittleEndian.Uint16(data[body+14 : body+16])
			if format != 1 || bits != 16 || channels == 0 {
				return nil, fmt.Errorf("%w: format=%d bits=%d channels=%d",
					ErrUnsupportedFormat, format, bits, channels)
			}
			haveFmt = true
		case "data":
			pcm = data[body : body+size]
		}
		pos = body + size
		if size%2 == 1 {
			pos++ // chunks are word aligned
		}
	}

	if !haveFmt || pcm == nil {
		return nil, fmt.Errorf("%w: missing fmt or data chunk", ErrNotWAV)
	}

	frameSize := int(channels) * 2
	frames := len(pcm) / frameSize
	samples := make([]int16, frames)
	for i := 0; i < frames; i++ {
		var sum int
		for ch := 0; ch < int(channels); ch++ {
			off := i*frameSize + ch*2
			sum += int(int16(binary.LittleEndian.Uint16(pcm[off : off+2])))
		}
		samples[i] = int16(sum / int(channels))
	}

	if int(rate) != SampleRate {
		samples = resample(samples, int(rate), SampleRate)
	}
	return NewFragment(samples), nil
}

// resample converts between sample rates with nearest-neighbor picking.
// Speech fragments are short and already band-limited, so this is
// audibly indistinguishable from interpolation here.
func resample(in []int16, from, to int) []int16 {
	if from == to || len(in) == 0 {
		return in
	}
	n := len(in) * to / from
	out := make([]int16, n)
	for i := range out {
		src := i * from / to
		if src >= len(in) {
			src = len(in) - 1
		}
		out[i] = in[src]
	}
	return out
}
