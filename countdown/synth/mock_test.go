package synth

import (
	"context"
	"errors"
	"testing"

	"github.com/dgnsrekt/cadence/countdown/audio"
)

func TestMockCountsCalls(t *testing.T) {
	m := NewMock()
	req := Request{Text: "five", Language: "en", Accent: "com"}

	for i := 0; i < 3; i++ {
		if _, err := m.Synthesize(context.Background(), req); err != nil {
			t.Fatalf("Synthesize failed: %v", err)
		}
	}
	if m.Calls("five") != 3 {
		t.Errorf("Calls = %d, want 3", m.Calls("five"))
	}
	if m.Calls("six") != 0 {
		t.Errorf("unseen text counted %d calls", m.Calls("six"))
	}
	if m.TotalCalls() != 3 {
		t.Errorf("TotalCalls = %d, want 3", m.TotalCalls())
	}
}

func TestMockFailFirst(t *testing.T) {
	boom := errors.New("backend down")
	m := NewMock()
	m.FailFirst(2, boom)
	req := Request{Text: "one", Language: "en", Accent: "com"}

	for i := 0; i < 2; i++ {
		if _, err := m.Synthesize(context.Background(), req); !errors.Is(err, boom) {
			t.Fatalf("attempt %d: got %v, want injected error", i+1, err)
		}
	}
	data, err := m.Synthesize(context.Background(), req)
	if err != nil {
		t.Fatalf("third attempt failed: %v", err)
	}
	if _, err := audio.DecodeWAV(data); err != nil {
		t.Errorf("mock output did not decode: %v", err)
	}
}

func TestMockClipDeterministicPerText(t *testing.T) {
	a := MockClip("countdown")
	b := MockClip("countdown")
	if a.DurationMS() != b.DurationMS() {
		t.Error("clip duration not stable")
	}
	short := MockClip("1")
	long := MockClip("a much longer spoken phrase")
	if short.DurationMS() >= long.DurationMS() {
		t.Errorf("clip length does not grow with text: %d vs %d",
			short.DurationMS(), long.DurationMS())
	}
}
