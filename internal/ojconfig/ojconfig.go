// Package ojconfig resolves the daemon's on-disk state directory layout
// (spec.md §6.1/§6.4), the way the teacher's internal/config resolves its
// own XDG config directory.
package ojconfig

import (
	"os"
	"path/filepath"
)

// Dirs is the fully-resolved set of paths spec.md §6.1 names under one
// state directory.
type Dirs struct {
	StateDir     string
	Socket       string
	PIDFile      string
	VersionFile  string
	LogFile      string
	WALFile      string
	SnapshotFile string
	WorkspaceDir string
	LogsDir      string
	BreadcrumbDir string
	TokenFile    string
}

// StateDir resolves spec.md §6.1's state directory: OJ_STATE_DIR, else
// $XDG_STATE_HOME/oj, else ~/.local/state/oj.
func StateDir() string {
	if dir := os.Getenv("OJ_STATE_DIR"); dir != "" {
		return dir
	}
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "oj")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".local", "state", "oj")
	}
	return filepath.Join(home, ".local", "state", "oj")
}

// Resolve lays out every path under dir per spec.md §6.1's on-disk layout.
func Resolve(dir string) Dirs {
	return Dirs{
		StateDir:      dir,
		Socket:        filepath.Join(dir, "daemon.sock"),
		PIDFile:       filepath.Join(dir, "daemon.pid"),
		VersionFile:   filepath.Join(dir, "daemon.version"),
		LogFile:       filepath.Join(dir, "daemon.log"),
		WALFile:       filepath.Join(dir, "wal", "events.wal"),
		SnapshotFile:  filepath.Join(dir, "snapshot.json"),
		WorkspaceDir:  filepath.Join(dir, "workspaces"),
		LogsDir:       filepath.Join(dir, "logs"),
		BreadcrumbDir: filepath.Join(dir, "breadcrumbs"),
		TokenFile:     filepath.Join(dir, "daemon.token"),
	}
}

// EnsureDirs creates every subdirectory spec.md §4.10 startup step 2 names
// (the state directory itself, wal/, workspaces/, logs/), without touching
// any files inside them.
func EnsureDirs(d Dirs) error {
	for _, dir := range []string{d.StateDir, filepath.Dir(d.WALFile), d.WorkspaceDir, d.LogsDir} {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return err
		}
	}
	return nil
}
