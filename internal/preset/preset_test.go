package preset

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/dgnsrekt/cadence/countdown"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()

	cfg := countdown.DefaultConfig()
	cfg.Start = 25
	cfg.Reps.EveryN = 5

	in := Preset{
		Name:    "warmup",
		Config:  cfg,
		OutFile: "warmup.mp3",
		Bitrate: "128k",
	}
	if err := Save(dir, in); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	out, err := Load(dir, "warmup")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if out.Name != "warmup" || out.OutFile != "warmup.mp3" || out.Bitrate != "128k" {
		t.Errorf("loaded preset %+v", out)
	}
	if out.Config.Start != 25 || out.Config.Reps.EveryN != 5 {
		t.Errorf("loaded config %+v", out.Config)
	}
	if out.CreatedAt.IsZero() {
		t.Error("CreatedAt not stamped on save")
	}
}

func TestSaveReplacesExisting(t *testing.T) {
	dir := t.TempDir()
	cfg := countdown.DefaultConfig()

	if err := Save(dir, Preset{Name: "p", Config: cfg, OutFile: "a.mp3"}); err != nil {
		t.Fatal(err)
	}
	if err := Save(dir, Preset{Name: "p", Config: cfg, OutFile: "b.mp3"}); err != nil {
		t.Fatal(err)
	}

	p, err := Load(dir, "p")
	if err != nil {
		t.Fatal(err)
	}
	if p.OutFile != "b.mp3" {
		t.Errorf("OutFile %q, want the replacement", p.OutFile)
	}
}

func TestValidateName(t *testing.T) {
	valid := []string{"warmup", "HIIT-30", "test.v2", "a", "5x5_squats"}
	for _, name := range valid {
		if err := ValidateName(name); err != nil {
			t.Errorf("ValidateName(%q) rejected: %v", name, err)
		}
	}

	invalid := []string{"", "../escape", "/abs", ".hidden", "a/b", "name with spaces"}
	for _, name := range invalid {
		if err := ValidateName(name); err == nil {
			t.Errorf("ValidateName(%q) accepted", name)
		}
	}
}

func TestLoadMissing(t *testing.T) {
	if _, err := Load(t.TempDir(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestList(t *testing.T) {
	dir := t.TempDir()
	cfg := countdown.DefaultConfig()

	for _, name := range []string{"zebra", "alpha", "mid"} {
		if err := Save(dir, Preset{Name: name, Config: cfg}); err != nil {
			t.Fatal(err)
		}
	}
	// Unparseable files are skipped, not fatal.
	if err := os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{oops"), 0o644); err != nil {
		t.Fatal(err)
	}
	// Non-JSON files are ignored.
	if err := os.WriteFile(filepath.Join(dir, "README.txt"), []byte("hi"), 0o644); err != nil {
		t.Fatal(err)
	}

	presets, err := List(dir)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(presets) != 3 {
		t.Fatalf("listed %d presets, want 3", len(presets))
	}
	want := []string{"alpha", "mid", "zebra"}
	for i := range want {
		if presets[i].Name != want[i] {
			t.Errorf("position %d: %q, want %q", i, presets[i].Name, want[i])
		}
	}
}

func TestListMissingDir(t *testing.T) {
	presets, err := List(filepath.Join(t.TempDir(), "never-created"))
	if err != nil || presets != nil {
		t.Errorf("got %v, %v; want nil, nil", presets, err)
	}
}

func TestDelete(t *testing.T) {
	dir := t.TempDir()
	if err := Save(dir, Preset{Name: "gone", Config: countdown.DefaultConfig()}); err != nil {
		t.Fatal(err)
	}
	if err := Delete(dir, "gone"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := Load(dir, "gone"); !errors.Is(err, ErrNotFound) {
		t.Error("preset still loadable after delete")
	}
	if err := Delete(dir, "gone"); !errors.Is(err, ErrNotFound) {
		t.Errorf("deleting a missing preset: %v, want ErrNotFound", err)
	}
}
