package countdown

import (
	"encoding/json"
	"fmt"
	"os"
)

// TimelineEntry records where one speech or beep cue landed in the
// final track. Offsets are inclusive-exclusive milliseconds, each
// rounded from the exact sample position, so entries stay aligned with
// the rendered track as a whole; a single span may differ from its
// fragment's rounded duration by a millisecond when the fragment is
// not a whole number of milliseconds long. Silence gaps never appear
// as entries.
type TimelineEntry struct {
	Label   string `json:"label"`
	StartMS int    `json:"start"`
	EndMS   int    `json:"end"`
}

// WriteTimeline serializes the timeline as indented JSON. The file is
// written to a temp path first and renamed into place so readers never
// see a partial document.
func WriteTimeline(path string, entries []TimelineEntry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("unable to marshal timeline: %w", err)
	}
	data = append(data, '\n')

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil { //nolint:gosec
		return fmt.Errorf("unable to write timeline: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("unable to move timeline into place: %w", err)
	}
	return nil
}

// ReadTimeline loads a timeline artifact written by WriteTimeline.
func ReadTimeline(path string) ([]TimelineEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read timeline: %w", err)
	}
	var entries []TimelineEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("unable to parse timeline: %w", err)
	}
	return entries, nil
}
