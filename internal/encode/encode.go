// Package encode turns the assembled WAV track into the final output
// container. MP3 export goes through ffmpeg; WAV output is a plain
// copy. Either way the target file appears atomically or not at all.
package encode

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/dgnsrekt/cadence/countdown"
)

// DefaultBitrate is the MP3 bitrate used when none is configured.
const DefaultBitrate = "192k"

// MP3Encoder encodes through ffmpeg at a fixed bitrate.
type MP3Encoder struct {
	Bitrate string
}

// Encode implements countdown.Encoder.
func (e MP3Encoder) Encode(ctx context.Context, wavPath, outPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	bitrate := e.Bitrate
	if bitrate == "" {
		bitrate = DefaultBitrate
	}

	tmp := outPath + ".tmp.mp3"
	started := time.Now()
	err := ffmpeg.Input(wavPath).
		Output(tmp, ffmpeg.KwArgs{"b:a": bitrate, "f": "mp3"}).
		OverWriteOutput().
		Silent(true).
		Run()
	if err != nil {
		os.Remove(tmp)
		return fmt.Errorf("%w: ffmpeg: %v", countdown.ErrEncodingFailed, err)
	}
	if err := os.Rename(tmp, outPath); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("%w: %v", countdown.ErrEncodingFailed, err)
	}

	log.Debug("encoded track", "outfile", outPath, "bitrate", bitrate,
		"elapsed", time.Since(started).Round(time.Millisecond))
	return nil
}

// WAVEncoder copies the assembled WAV straight to the output path.
type WAVEncoder struct{}

// Encode implements countdown.Encoder.
func (WAVEncoder) Encode(ctx context.Context, wavPath, outPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := os.ReadFile(wavPath)
	if err != nil {
		return fmt.Errorf("%w: %v", countdown.ErrEncodingFailed, err)
	}
	tmp := outPath + ".tmp.wav"
	if err := os.WriteFile(tmp, data, 0o644); err != nil { //nolint:gosec
		os.Remove(tmp)
		return fmt.Errorf("%w: %v", countdown.ErrEncodingFailed, err)
	}
	if err := os.Rename(tmp, outPath); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("%w: %v", countdown.ErrEncodingFailed, err)
	}
	return nil
}

// ForPath picks an encoder from the output file extension.
func ForPath(outPath, bitrate string) countdown.Encoder {
	if strings.EqualFold(filepath.Ext(outPath), ".wav") {
		return WAVEncoder{}
	}
	return MP3Encoder{Bitrate: bitrate}
}
