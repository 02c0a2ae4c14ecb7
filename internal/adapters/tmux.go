package adapters

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/groblegark/oddjobs/internal/core"
)

// Tmux wraps the tmux(1) CLI, the session backend every teacher-example
// agent daemon in this corpus builds on (e.g. gastown's internal/tmux).
// oddjobs names tmux sessions "oj-<session-id>" so a stray `tmux ls` on the
// host is still self-explanatory.
type Tmux struct {
	Bin string // defaults to "tmux" via PATH when empty
}

func (t *Tmux) bin() string {
	if t.Bin == "" {
		return "tmux"
	}
	return t.Bin
}

func (t *Tmux) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, t.bin(), args...)
	var out, errOut bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errOut
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("tmux %s: %w: %s", strings.Join(args, " "), err, errOut.String())
	}
	return out.String(), nil
}

func tmuxName(id core.SessionId) string { return "oj-" + id.String() }

var _ SessionBackend = (*Tmux)(nil)

func (t *Tmux) Create(ctx context.Context, name, cwd, command string, args []string, env map[string]string) (core.SessionId, error) {
	id := core.SessionId(name)
	full := append([]string{command}, args...)
	tmuxArgs := []string{"new-session", "-d", "-s", tmuxName(id), "-c", cwd}
	for k, v := range env {
		tmuxArgs = append(tmuxArgs, "-e", fmt.Sprintf("%s=%s", k, v))
	}
	tmuxArgs = append(tmuxArgs, strings.Join(full, " "))
	if _, err := t.run(ctx, tmuxArgs...); err != nil {
		return "", err
	}
	return id, nil
}

func (t *Tmux) Send(ctx context.Context, id core.SessionId, input string) error {
	_, err := t.run(ctx, "send-keys", "-t", tmuxName(id), input, "Enter")
	return err
}

func (t *Tmux) Kill(ctx context.Context, id core.SessionId) error {
	_, err := t.run(ctx, "kill-session", "-t", tmuxName(id))
	if err != nil && strings.Contains(err.Error(), "session not found") {
		return nil // already gone
	}
	return err
}

func (t *Tmux) Alive(ctx context.Context, id core.SessionId) (bool, error) {
	_, err := t.run(ctx, "has-session", "-t", tmuxName(id))
	if err != nil {
		return false, nil
	}
	return true, nil
}

func (t *Tmux) CapturePane(ctx context.Context, id core.SessionId) (string, error) {
	return t.run(ctx, "capture-pane", "-t", tmuxName(id), "-p", "-S", "-200")
}

// ProcessRunning walks the session's pane process tree looking for
// processName among the descendants of the pane's shell. tmux exposes only
// the pane's own PID, so descendants are found via pgrep -P rather than a
// second tmux call.
func (t *Tmux) ProcessRunning(ctx context.Context, id core.SessionId, processName string) (bool, error) {
	out, err := t.run(ctx, "display-message", "-p", "-t", tmuxName(id), "#{pane_pid}")
	if err != nil {
		return false, nil // session gone; liveness probe handles that separately
	}
	panePID := strings.TrimSpace(out)
	if panePID == "" {
		return false, nil
	}

	seen := map[string]bool{}
	frontier := []string{panePID}
	for len(frontier) > 0 {
		pid := frontier[0]
		frontier = frontier[1:]
		if seen[pid] {
			continue
		}
		seen[pid] = true

		cmd := exec.CommandContext(ctx, "pgrep", "-P", pid)
		var out bytes.Buffer
		cmd.Stdout = &out
		_ = cmd.Run() // pgrep exits 1 when nothing matches; not an error here
		for _, child := range strings.Fields(out.String()) {
			frontier = append(frontier, child)
			name, err := exec.CommandContext(ctx, "ps", "-p", child, "-o", "comm=").Output()
			if err == nil && strings.Contains(strings.TrimSpace(string(name)), processName) {
				return true, nil
			}
		}
	}
	return false, nil
}

// TmuxAgentBackend spawns agent CLIs inside Tmux sessions. Prompt text is
// typed into the session after a short settle; the watcher then parses the
// session log the agent CLI itself writes (spec.md §4.6), so this adapter
// has no knowledge of agent-specific output formats.
type TmuxAgentBackend struct {
	Sessions *Tmux
}

var _ AgentBackend = (*TmuxAgentBackend)(nil)

func (a *TmuxAgentBackend) Spawn(ctx context.Context, eff core.SpawnAgent) (core.SessionId, error) {
	id, err := a.Sessions.Create(ctx, eff.AgentId.String(), eff.Cwd, eff.Command, eff.Args, eff.Env)
	if err != nil {
		return "", fmt.Errorf("tmux agent backend: spawn %s: %w", eff.AgentName, err)
	}
	if eff.Prompt != "" {
		if err := a.Sessions.Send(ctx, id, eff.Prompt); err != nil {
			return id, fmt.Errorf("tmux agent backend: send prompt: %w", err)
		}
	}
	return id, nil
}

func (a *TmuxAgentBackend) Reconnect(ctx context.Context, eff core.ReconnectAgent) error {
	alive, err := a.Sessions.Alive(ctx, eff.SessionId)
	if err != nil {
		return err
	}
	if !alive {
		return fmt.Errorf("tmux agent backend: reconnect %s: session gone", eff.AgentId)
	}
	return nil
}

func (a *TmuxAgentBackend) Send(ctx context.Context, id core.AgentId, input string) error {
	return a.Sessions.Send(ctx, core.SessionId(id), input)
}

func (a *TmuxAgentBackend) Kill(ctx context.Context, id core.AgentId) error {
	return a.Sessions.Kill(ctx, core.SessionId(id))
}
