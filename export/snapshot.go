package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/slideforge/slideforge/schema"
)

// snapshotVersion guards against loading snapshots written by a future
// incompatible format.
const snapshotVersion = 1

// Snapshot is an archival copy of a plan, suitable for reloading into a
// session later.
type Snapshot struct {
	Version int                      `json:"version"`
	SavedAt time.Time                `json:"saved_at"`
	Plan    *schema.PresentationPlan `json:"plan"`
	Profile *schema.LecturerProfile  `json:"profile,omitempty"`
}

// WriteSnapshot serializes the plan (and optional profile) as indented JSON.
func WriteSnapshot(w io.Writer, p *schema.PresentationPlan, profile *schema.LecturerProfile) error {
	if p == nil {
		return fmt.Errorf("nothing to snapshot: plan is nil")
	}
	snap := Snapshot{
		Version: snapshotVersion,
		SavedAt: time.Now().UTC(),
		Plan:    p,
		Profile: profile,
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return nil
}

// ReadSnapshot parses a snapshot written by WriteSnapshot.
func ReadSnapshot(r io.Reader) (*Snapshot, error) {
	var snap Snapshot
	dec := json.NewDecoder(r)
	if err := dec.Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if snap.Version != snapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", snap.Version)
	}
	if snap.Plan == nil || len(snap.Plan.Slides) == 0 {
		return nil, fmt.Errorf("snapshot contains no slides")
	}
	snap.Plan.Normalize()
	return &snap, nil
}

// SaveSnapshot writes a snapshot file at path, creating directories as
// needed.
func SaveSnapshot(path string, p *schema.PresentationPlan, profile *schema.LecturerProfile) error {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create snapshot file: %w", err)
	}
	writeErr := WriteSnapshot(f, p, profile)
	closeErr := f.Close()
	if writeErr != nil {
		os.Remove(path)
		return writeErr
	}
	return closeErr
}

// LoadSnapshot reads a snapshot file from path.
func LoadSnapshot(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot file: %w", err)
	}
	defer f.Close()
	return ReadSnapshot(f)
}
