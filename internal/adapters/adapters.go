// Package adapters defines the narrow interfaces the executor drives to
// reach the outside world (spec.md §4.7): a host terminal multiplexer for
// sessions, a process supervisor for agents, and a desktop notifier. Tests
// substitute the Fake* implementations in fakes.go; production wires Tmux*
// and DesktopNotifier.
package adapters

import (
	"context"

	"github.com/groblegark/oddjobs/internal/core"
)

// SessionBackend starts, feeds and tears down a host terminal session that
// an agent or shell step runs inside (tmux in production).
type SessionBackend interface {
	// Create starts a new session named name in cwd, running command with
	// args and env, returning the backend's session identifier.
	Create(ctx context.Context, name string, cwd string, command string, args []string, env map[string]string) (core.SessionId, error)
	// Send types input into the session (e.g. a resume prompt or a queued
	// human reply), followed by Enter.
	Send(ctx context.Context, id core.SessionId, input string) error
	// Kill terminates the session and its process tree.
	Kill(ctx context.Context, id core.SessionId) error
	// Alive reports whether the session's backing process still exists,
	// used by the watcher's liveness probe (spec.md §4.6).
	Alive(ctx context.Context, id core.SessionId) (bool, error)
	// CapturePane returns the session's current visible buffer, used to
	// auto-accept a startup trust prompt before the session log exists.
	CapturePane(ctx context.Context, id core.SessionId) (string, error)
	// ProcessRunning reports whether a process named processName is still
	// running inside the session, independent of the session itself still
	// existing. The watcher's liveness probe uses both checks: a dead
	// session means AgentGone, a live session whose agent process has
	// exited means AgentExited (spec.md §4.6).
	ProcessRunning(ctx context.Context, id core.SessionId, processName string) (bool, error)
}

// AgentBackend spawns and reconnects to agent-CLI processes. It is distinct
// from SessionBackend because an agent run also has a watcher attached to
// its session log; most implementations compose a SessionBackend under the
// hood (see TmuxAgentBackend).
type AgentBackend interface {
	Spawn(ctx context.Context, eff core.SpawnAgent) (core.SessionId, error)
	Reconnect(ctx context.Context, eff core.ReconnectAgent) error
	Send(ctx context.Context, id core.AgentId, input string) error
	Kill(ctx context.Context, id core.AgentId) error
}

// Notifier surfaces a Notify effect to the operator (spec.md §4.8). The
// production implementation shells out to a platform notifier; it never
// blocks the engine loop on failure.
type Notifier interface {
	Notify(ctx context.Context, title, message string) error
}
