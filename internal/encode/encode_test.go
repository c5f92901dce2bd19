package encode

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/dgnsrekt/cadence/countdown"
	"github.com/dgnsrekt/cadence/countdown/audio"
)

func TestWAVEncoderCopies(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.wav")
	out := filepath.Join(dir, "out.wav")

	want := audio.EncodeWAV(audio.Silence(100))
	if err := os.WriteFile(src, want, 0o644); err != nil {
		t.Fatal(err)
	}

	if err := (WAVEncoder{}).Encode(context.Background(), src, out); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(want) {
		t.Errorf("copied %d bytes, want %d", len(got), len(want))
	}

	// No temp file lingers.
	files, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 {
		t.Errorf("unexpected directory contents: %v", files)
	}
}

func TestWAVEncoderMissingSource(t *testing.T) {
	dir := t.TempDir()
	err := (WAVEncoder{}).Encode(context.Background(), filepath.Join(dir, "gone.wav"), filepath.Join(dir, "out.wav"))
	if !errors.Is(err, countdown.ErrEncodingFailed) {
		t.Errorf("got %v, want ErrEncodingFailed", err)
	}
}

func TestEncodersHonorCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dir := t.TempDir()
	src := filepath.Join(dir, "in.wav")
	if err := os.WriteFile(src, audio.EncodeWAV(audio.Silence(10)), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := (WAVEncoder{}).Encode(ctx, src, filepath.Join(dir, "a.wav")); err == nil {
		t.Error("WAV encode ignored cancellation")
	}
	if err := (MP3Encoder{}).Encode(ctx, src, filepath.Join(dir, "a.mp3")); err == nil {
		t.Error("MP3 encode ignored cancellation")
	}
}

func TestForPath(t *testing.T) {
	if _, ok := ForPath("track.wav", "").(WAVEncoder); !ok {
		t.Error(".wav did not pick the WAV encoder")
	}
	if _, ok := ForPath("TRACK.WAV", "").(WAVEncoder); !ok {
		t.Error("extension match is not case-insensitive")
	}
	enc, ok := ForPath("track.mp3", "128k").(MP3Encoder)
	if !ok {
		t.Fatal(".mp3 did not pick the MP3 encoder")
	}
	if enc.Bitrate != "128k" {
		t.Errorf("bitrate %q not carried", enc.Bitrate)
	}
	if _, ok := ForPath("track", "").(MP3Encoder); !ok {
		t.Error("unknown extension should default to MP3")
	}
}
