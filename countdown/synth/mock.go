package synth

import (
	"context"
	"sync"

	"github.com/dgnsrekt/cadence/countdown/audio"
)

// Mock is an in-memory synthesizer for tests. It renders a short tone
// whose length depends on the text, counts calls per text, and can be
// told to fail the first N attempts of every request.
type Mock struct {
	mu        sync.Mutex
	calls     map[string]int
	failFirst int
	err       error
}

// NewMock creates a mock synthesizer.
func NewMock() *Mock {
	return &Mock{calls: make(map[string]int)}
}

// FailFirst makes every text fail its first n attempts with err.
func (m *Mock) FailFirst(n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failFirst = n
	m.err = err
}

// Calls returns how many times text was synthesized (including failed
// attempts).
func (m *Mock) Calls(text string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[text]
}

// TotalCalls returns the total number of synthesis attempts.
func (m *Mock) TotalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, n := range m.calls {
		total += n
	}
	return total
}

// Name implements Synthesizer.
func (m *Mock) Name() string { return "mock" }

// Synthesize implements Synthesizer.
func (m *Mock) Synthesize(ctx context.Context, req Request) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.calls[req.Text]++
	attempt := m.calls[req.Text]
	failFirst, err := m.failFirst, m.err
	m.mu.Unlock()

	if attempt <= failFirst {
		return nil, err
	}
	return audio.EncodeWAV(MockClip(req.Text)), nil
}

// MockClip renders the deterministic fragment the mock returns for a
// text: 100ms of tone per 4 characters, at least 200ms.
func MockClip(text string) *audio.Fragment {
	ms := 200 + (len(text)/4)*100
	spec := audio.ToneSpec{FreqHz: 440, DurationMS: ms, GainDB: -12, FadeMS: 5}
	return spec.Render(audio.ToneNormal)
}
