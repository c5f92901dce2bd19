package countdown

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/dgnsrekt/cadence/countdown/audio"
)

// FragmentResolver resolves spoken text into a rendered audio
// fragment. Implementations are expected to be safe for concurrent
// use; the assembler prefetches distinct texts in parallel.
type FragmentResolver interface {
	Resolve(ctx context.Context, text string) (*audio.Fragment, error)
}

// defaultPrefetchLimit bounds how many speech resolutions run at once
// during prefetch, so a cold cache doesn't hammer the backend.
const defaultPrefetchLimit = 4

// Assembler stitches a cue sequence into one continuous track plus its
// timeline. Fragment resolution may overlap; the append stage is
// strictly ordered.
type Assembler struct {
	resolver      FragmentResolver
	prefetchLimit int
}

// AssemblerOption configures an Assembler.
type AssemblerOption func(*Assembler)

// WithPrefetchLimit bounds concurrent speech resolutions.
func WithPrefetchLimit(n int) AssemblerOption {
	return func(a *Assembler) {
		if n > 0 {
			a.prefetchLimit = n
		}
	}
}

// NewAssembler creates an assembler using the given speech resolver.
func NewAssembler(resolver FragmentResolver, opts ...AssemblerOption) *Assembler {
	a := &Assembler{
		resolver:      resolver,
		prefetchLimit: defaultPrefetchLimit,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Assemble walks the cues once, in order, appending each rendered
// fragment and its trailing gap to the track while recording timeline
// entries. It aborts on the first cue that cannot be resolved; no
// partial track is returned.
func (a *Assembler) Assemble(ctx context.Context, cfg Config, cues []Cue) (*audio.Track, []TimelineEntry, error) {
	speech, err := a.prefetch(ctx, cues)
	if err != nil {
		return nil, nil, err
	}

	spec := cfg.ToneSpec()
	tones := map[BeepVariant]*audio.Fragment{
		BeepNormal: spec.Render(audio.ToneNormal),
		BeepEnd:    spec.Render(audio.ToneEnd),
	}

	track := audio.NewTrack()
	var entries []TimelineEntry

	for _, cue := range cues {
		var frag *audio.Fragment
		switch cue.Kind {
		case CueSpeech:
			frag = speech[cue.Text]
			if frag == nil {
				// Prefetch covers every speech cue; a miss here is a bug.
				return nil, nil, fmt.Errorf("no fragment resolved for %q", cue.Text)
			}
		case CueBeep:
			frag = tones[cue.Variant]
		case CueSilence:
			// gap only
		}

		if frag != nil {
			start := track.Len()
			track.Append(frag)
			entries = append(entries, TimelineEntry{
				Label:   cue.Label(),
				StartMS: audio.SamplesToMS(start),
				EndMS:   audio.SamplesToMS(track.Len()),
			})
		}
		track.AppendSilence(cue.GapAfterMS)
	}

	return track, entries, nil
}

// prefetch resolves every distinct speech text concurrently, bounded
// by the prefetch limit, and fails fast on the first error.
func (a *Assembler) prefetch(ctx context.Context, cues []Cue) (map[string]*audio.Fragment, error) {
	texts := make([]string, 0, len(cues))
	seen := make(map[string]bool, len(cues))
	for _, cue := range cues {
		if cue.Kind == CueSpeech && !seen[cue.Text] {
			seen[cue.Text] = true
			texts = append(texts, cue.Text)
		}
	}

	var (
		mu        sync.Mutex
		fragments = make(map[string]*audio.Fragment, len(texts))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.prefetchLimit)
	for _, text := range texts {
		g.Go(func() error {
			frag, err := a.resolver.Resolve(gctx, text)
			if err != nil {
				return err
			}
			mu.Lock()
			fragments[text] = frag
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return fragments, nil
}
