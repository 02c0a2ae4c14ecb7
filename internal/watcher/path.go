package watcher

import (
	"os"
	"path/filepath"
	"strings"
)

// claudeConfigDir resolves CLAUDE_CONFIG_DIR (spec.md §6.4), falling back to
// ~/.claude the way the agent CLI itself does.
func claudeConfigDir() string {
	if dir := os.Getenv("CLAUDE_CONFIG_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".claude"
	}
	return filepath.Join(home, ".claude")
}

// projectDirName canonicalizes a workspace path into the flattened directory
// name the agent CLI uses under its projects/ tree (slashes and dots become
// dashes), grounded on the original_source adapter's project_dir_name tests.
func projectDirName(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	r := strings.NewReplacer("/", "-", ".", "-")
	name := r.Replace(abs)
	return strings.TrimPrefix(name, "-")
}

// FindSessionLog locates the session-log file for sessionID under
// workspacePath's project directory. If the exact session id isn't present
// (a CLI quirk — resumed sessions sometimes log under a different internal
// id than the one oj tracks), it falls back to the most recently modified
// *.jsonl file in that project directory, grounded on
// find_session_log_in_uses_fallback_for_missing_session.
func FindSessionLog(workspacePath, sessionID string) (string, bool) {
	dir := filepath.Join(claudeConfigDir(), "projects", projectDirName(workspacePath))

	exact := filepath.Join(dir, sessionID+".jsonl")
	if _, err := os.Stat(exact); err == nil {
		return exact, true
	}

	ents, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}
	var best string
	var bestMod int64
	for _, e := range ents {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".jsonl") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if mt := info.ModTime().UnixNano(); mt > bestMod {
			bestMod = mt
			best = filepath.Join(dir, e.Name())
		}
	}
	if best == "" {
		return "", false
	}
	return best, true
}
