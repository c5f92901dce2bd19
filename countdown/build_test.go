package countdown

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/dgnsrekt/cadence/countdown/audio"
)

// copyEncoder passes the assembled WAV through untouched.
type copyEncoder struct{}

func (copyEncoder) Encode(_ context.Context, wavPath, outPath string) error {
	src, err := os.Open(wavPath)
	if err != nil {
		return err
	}
	defer src.Close() //nolint:errcheck
	dst, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer dst.Close() //nolint:errcheck
	_, err = io.Copy(dst, src)
	return err
}

type failingEncoder struct{ err error }

func (e failingEncoder) Encode(context.Context, string, string) error { return e.err }

func TestBuildProducesTrackAndTimeline(t *testing.T) {
	dir := t.TempDir()
	outFile := filepath.Join(dir, "countdown.wav")

	cfg := repsConfig(3, 0)
	result, err := Build(context.Background(), cfg, BuildOptions{
		Resolver: newStubResolver(),
		Encoder:  copyEncoder{},
		OutFile:  outFile,
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	data, err := os.ReadFile(outFile)
	if err != nil {
		t.Fatalf("output track missing: %v", err)
	}
	frag, err := audio.DecodeWAV(data)
	if err != nil {
		t.Fatalf("output track did not decode: %v", err)
	}
	if frag.DurationMS() != result.DurationMS {
		t.Errorf("track is %dms, result says %d", frag.DurationMS(), result.DurationMS)
	}

	wantTimeline := filepath.Join(dir, "countdown.json")
	if result.TimelineFile != wantTimeline {
		t.Errorf("timeline at %q, want %q", result.TimelineFile, wantTimeline)
	}
	entries, err := ReadTimeline(result.TimelineFile)
	if err != nil {
		t.Fatalf("timeline unreadable: %v", err)
	}
	if len(entries) != len(result.Entries) {
		t.Errorf("timeline holds %d entries, result holds %d", len(entries), len(result.Entries))
	}
	if last := entries[len(entries)-1]; last.EndMS != result.DurationMS {
		t.Errorf("timeline ends at %d, track at %d", last.EndMS, result.DurationMS)
	}
}

func TestBuildFailsCleanlyOnEncoderError(t *testing.T) {
	dir := t.TempDir()
	outFile := filepath.Join(dir, "countdown.wav")
	boom := errors.New("no ffmpeg here")

	_, err := Build(context.Background(), repsConfig(2, 0), BuildOptions{
		Resolver: newStubResolver(),
		Encoder:  failingEncoder{err: boom},
		OutFile:  outFile,
	})
	if !errors.Is(err, boom) {
		t.Fatalf("got %v, want the encoder error", err)
	}

	// Neither the track nor the timeline may exist after a failure.
	if _, err := os.Stat(outFile); !os.IsNotExist(err) {
		t.Error("output track left behind")
	}
	if _, err := os.Stat(TimelinePath(outFile)); !os.IsNotExist(err) {
		t.Error("timeline left behind")
	}
}

func TestBuildRejectsInvalidConfig(t *testing.T) {
	cfg := repsConfig(-5, 0)
	_, err := Build(context.Background(), cfg, BuildOptions{
		Resolver: newStubResolver(),
		Encoder:  copyEncoder{},
		OutFile:  filepath.Join(t.TempDir(), "x.wav"),
	})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("got %v, want ErrInvalidConfig", err)
	}
}

func TestTimelinePath(t *testing.T) {
	tests := []struct{ in, want string }{
		{"countdown_combined.mp3", "countdown_combined.json"},
		{"/tmp/out/track.wav", "/tmp/out/track.json"},
		{"noext", "noext.json"},
	}
	for _, tt := range tests {
		if got := TimelinePath(tt.in); got != tt.want {
			t.Errorf("TimelinePath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
