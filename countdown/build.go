package countdown

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/cadence/countdown/audio"
)

// Encoder turns the assembled WAV track into the final container
// format. Implementations must not leave a partial file at outPath on
// failure.
type Encoder interface {
	Encode(ctx context.Context, wavPath, outPath string) error
}

// BuildOptions wires the collaborators of one build.
type BuildOptions struct {
	Resolver FragmentResolver
	Encoder  Encoder

	// OutFile is the final track path. TimelineFile defaults to
	// OutFile with a .json extension.
	OutFile      string
	TimelineFile string

	// PrefetchLimit bounds concurrent speech resolutions (0 = default).
	PrefetchLimit int
}

// BuildResult describes a finished build.
type BuildResult struct {
	OutFile      string          `json:"outfile"`
	TimelineFile string          `json:"timeline"`
	DurationMS   int             `json:"duration_ms"`
	CueCount     int             `json:"cue_count"`
	Entries      []TimelineEntry `json:"entries"`
	Elapsed      time.Duration   `json:"-"`
}

// Build runs the whole pipeline: schedule, resolve, assemble, encode,
// and only then write the output artifacts. A failure at any stage
// leaves no truncated track or dangling timeline behind.
func Build(ctx context.Context, cfg Config, opts BuildOptions) (*BuildResult, error) {
	started := time.Now()

	cues, err := Schedule(cfg)
	if err != nil {
		return nil, err
	}
	log.Debug("scheduled countdown", "mode", cfg.Mode, "start", cfg.Start, "cues", len(cues))

	var asmOpts []AssemblerOption
	if opts.PrefetchLimit > 0 {
		asmOpts = append(asmOpts, WithPrefetchLimit(opts.PrefetchLimit))
	}
	track, entries, err := NewAssembler(opts.Resolver, asmOpts...).Assemble(ctx, cfg, cues)
	if err != nil {
		return nil, err
	}

	wavPath, err := writeTempWAV(track)
	if err != nil {
		return nil, err
	}
	defer os.Remove(wavPath)

	if err := opts.Encoder.Encode(ctx, wavPath, opts.OutFile); err != nil {
		return nil, err
	}

	timelinePath := opts.TimelineFile
	if timelinePath == "" {
		timelinePath = TimelinePath(opts.OutFile)
	}
	if err := WriteTimeline(timelinePath, entries); err != nil {
		return nil, err
	}

	result := &BuildResult{
		OutFile:      opts.OutFile,
		TimelineFile: timelinePath,
		DurationMS:   track.DurationMS(),
		CueCount:     len(cues),
		Entries:      entries,
		Elapsed:      time.Since(started),
	}
	log.Info("countdown built",
		"outfile", result.OutFile,
		"duration_ms", result.DurationMS,
		"cues", result.CueCount,
		"elapsed", result.Elapsed.Round(time.Millisecond))
	return result, nil
}

// TimelinePath returns the timeline artifact path for a track path.
func TimelinePath(outFile string) string {
	ext := filepath.Ext(outFile)
	return strings.TrimSuffix(outFile, ext) + ".json"
}

func writeTempWAV(track *audio.Track) (string, error) {
	f, err := os.CreateTemp("", "cadence-*.wav")
	if err != nil {
		return "", fmt.Errorf("unable to create temp track: %w", err)
	}
	path := f.Name()
	_, werr := f.Write(audio.EncodeWAV(track.Fragment()))
	cerr := f.Close()
	if werr != nil || cerr != nil {
		os.Remove(path)
		if werr != nil {
			return "", fmt.Errorf("unable to write temp track: %w", werr)
		}
		return "", fmt.Errorf("unable to write temp track: %w", cerr)
	}
	return path, nil
}
