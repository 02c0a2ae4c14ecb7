// Package breadcrumb implements spec.md's orphan-detection mechanism
// (component 12): a zero-byte presence file per job under
// <state_dir>/breadcrumbs/<job_id>, written when the job starts and removed
// when it reaches a terminal step. A breadcrumb surviving a daemon restart
// past its job's known-terminal status, or long past its own creation time,
// means the prior daemon instance died mid-job without a chance to report
// it — this is the only cross-daemon-absence signal the system keeps.
package breadcrumb

import (
	"os"
	"path/filepath"
	"time"

	"github.com/groblegark/oddjobs/internal/core"
)

// OrphanDismissAge is how old an unexplained breadcrumb must be before
// startup scanning auto-dismisses it instead of surfacing it for human
// attention (spec.md §4.10 startup step 8).
const OrphanDismissAge = 7 * 24 * time.Hour

// Store manages the breadcrumb directory for one daemon state directory.
type Store struct {
	dir string
}

func New(stateDir string) *Store {
	return &Store{dir: filepath.Join(stateDir, "breadcrumbs")}
}

func (s *Store) path(id core.JobId) string {
	return filepath.Join(s.dir, id.String())
}

// Create drops a presence marker for a just-started job.
func (s *Store) Create(id core.JobId) error {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(s.path(id), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	return f.Close()
}

// Remove deletes a job's breadcrumb on terminal absorption. Missing files
// are not an error — a job that never reached a running step may have no
// breadcrumb to remove.
func (s *Store) Remove(id core.JobId) error {
	err := os.Remove(s.path(id))
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}

// Entry is one breadcrumb found on disk at startup scan time.
type Entry struct {
	JobId core.JobId
	Age   time.Duration
}

// Scan lists every breadcrumb currently on disk with its age. Callers
// classify each entry against known-terminal jobs and OrphanDismissAge.
func (s *Store) Scan(now time.Time) ([]Entry, error) {
	ents, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, Entry{JobId: core.JobId(e.Name()), Age: now.Sub(info.ModTime())})
	}
	return out, nil
}

// Reconcile partitions a startup scan into breadcrumbs to delete (job is
// already known terminal), auto-dismiss (orphaned past OrphanDismissAge),
// and orphans worth surfacing to a human (spec.md §4.10 startup step 8).
func (s *Store) Reconcile(entries []Entry, isTerminal func(core.JobId) bool) (toDelete, autoDismissed, orphans []core.JobId) {
	for _, e := range entries {
		switch {
		case isTerminal(e.JobId):
			toDelete = append(toDelete, e.JobId)
		case e.Age > OrphanDismissAge:
			autoDismissed = append(autoDismissed, e.JobId)
		default:
			orphans = append(orphans, e.JobId)
		}
	}
	return
}
