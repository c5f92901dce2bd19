// Package preset persists named countdown configurations as JSON
// documents so front-ends (CLI flags, the web UI) can share them.
package preset

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/dgnsrekt/cadence/countdown"
)

// ErrNotFound is returned when a named preset does not exist.
var ErrNotFound = errors.New("preset not found")

var nameRe = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

// Preset is a saved build configuration.
type Preset struct {
	Name      string           `json:"name"`
	Config    countdown.Config `json:"config"`
	OutFile   string           `json:"outfile,omitempty"`
	Bitrate   string           `json:"bitrate,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// ValidateName rejects names that would escape the preset directory.
func ValidateName(name string) error {
	if !nameRe.MatchString(name) {
		return fmt.Errorf("invalid preset name %q", name)
	}
	return nil
}

// Save writes the preset into dir, creating it if needed. An existing
// preset of the same name is replaced atomically.
func Save(dir string, p Preset) error {
	if err := ValidateName(p.Name); err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("unable to create preset directory: %w", err)
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("unable to marshal preset: %w", err)
	}
	data = append(data, '\n')

	path := filepath.Join(dir, p.Name+".json")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil { //nolint:gosec
		return fmt.Errorf("unable to write preset: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("unable to move preset into place: %w", err)
	}
	return nil
}

// Load reads one preset by name.
func Load(dir, name string) (Preset, error) {
	if err := ValidateName(name); err != nil {
		return Preset{}, err
	}
	data, err := os.ReadFile(filepath.Join(dir, name+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return Preset{}, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return Preset{}, fmt.Errorf("unable to read preset: %w", err)
	}
	var p Preset
	if err := json.Unmarshal(data, &p); err != nil {
		return Preset{}, fmt.Errorf("unable to parse preset %s: %w", name, err)
	}
	if p.Name == "" {
		p.Name = name
	}
	return p, nil
}

// List returns every readable preset in dir, sorted by name.
// Unparseable files are skipped, not fatal.
func List(dir string) ([]Preset, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("unable to read preset directory: %w", err)
	}

	var presets []Preset
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ".json")
		p, err := Load(dir, name)
		if err != nil {
			continue
		}
		presets = append(presets, p)
	}
	sort.Slice(presets, func(i, j int) bool { return presets[i].Name < presets[j].Name })
	return presets, nil
}

// Delete removes a preset by name.
func Delete(dir, name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	err := os.Remove(filepath.Join(dir, name+".json"))
	if os.IsNotExist(err) {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return err
}
