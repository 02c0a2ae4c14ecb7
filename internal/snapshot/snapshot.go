// Package snapshot implements the periodic + shutdown dump of materialized
// state described in spec.md §4.2: a snapshot is {seq, state} written
// atomically (write-temp + rename) so a crash mid-write never corrupts the
// previous snapshot.
package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/groblegark/oddjobs/internal/state"
)

// Snapshot is the on-disk envelope: the WAL sequence the state corresponds
// to, plus the state itself.
type Snapshot struct {
	Seq   uint64       `json:"seq"`
	State *state.State `json:"state"`
}

// Store reads and writes snapshot.json under a state directory.
type Store struct {
	path string
}

// NewStore returns a Store writing to <dir>/snapshot.json.
func NewStore(dir string) *Store {
	return &Store{path: filepath.Join(dir, "snapshot.json")}
}

// Load reads the newest snapshot, if present. A missing file is not an
// error: it returns (nil, nil) so startup falls back to an empty state and a
// full WAL replay.
func (s *Store) Load() (*Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("snapshot: read: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("snapshot: decode: %w", err)
	}
	return &snap, nil
}

// Save writes a snapshot atomically: marshal, write to a temp file in the
// same directory, fsync, then rename over the previous snapshot. Rename is
// atomic on the same filesystem, so a reader never observes a partially
// written snapshot.
func (s *Store) Save(seq uint64, st *state.State) error {
	snap := Snapshot{Seq: seq, State: st}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("snapshot: encode: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".snapshot-*.tmp")
	if err != nil {
		return fmt.Errorf("snapshot: create temp: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once the rename below succeeds

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("snapshot: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("snapshot: sync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("snapshot: close temp: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("snapshot: rename: %w", err)
	}
	return nil
}
