package adapters

import (
	"context"
	"sync"

	"github.com/groblegark/oddjobs/internal/core"
)

// FakeSessions is an in-memory SessionBackend for tests: no process is ever
// spawned, so test suites can drive the runtime deterministically without
// tmux installed.
type FakeSessions struct {
	mu       sync.Mutex
	alive    map[core.SessionId]bool
	Sent     map[core.SessionId][]string
	Panes    map[core.SessionId]string
	// ProcessAlive lets tests simulate an agent CLI exiting while its tmux
	// session remains, decoupled from the session-alive flag.
	ProcessAlive map[core.SessionId]bool
}

func NewFakeSessions() *FakeSessions {
	return &FakeSessions{
		alive:        make(map[core.SessionId]bool),
		Sent:         make(map[core.SessionId][]string),
		Panes:        make(map[core.SessionId]string),
		ProcessAlive: make(map[core.SessionId]bool),
	}
}

var _ SessionBackend = (*FakeSessions)(nil)

func (f *FakeSessions) Create(ctx context.Context, name, cwd, command string, args []string, env map[string]string) (core.SessionId, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := core.SessionId(name)
	f.alive[id] = true
	return id, nil
}

func (f *FakeSessions) Send(ctx context.Context, id core.SessionId, input string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Sent[id] = append(f.Sent[id], input)
	return nil
}

func (f *FakeSessions) Kill(ctx context.Context, id core.SessionId) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.alive, id)
	return nil
}

func (f *FakeSessions) Alive(ctx context.Context, id core.SessionId) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.alive[id], nil
}

func (f *FakeSessions) CapturePane(ctx context.Context, id core.SessionId) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Panes[id], nil
}

// ProcessRunning defaults to true (matching the session's alive flag) unless
// a test has explicitly recorded the agent process as exited via
// ProcessAlive.
func (f *FakeSessions) ProcessRunning(ctx context.Context, id core.SessionId, processName string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if running, ok := f.ProcessAlive[id]; ok {
		return running, nil
	}
	return f.alive[id], nil
}

// FakeNotifier records Notify calls instead of shelling out.
type FakeNotifier struct {
	mu    sync.Mutex
	Calls []string
}

var _ Notifier = (*FakeNotifier)(nil)

func (f *FakeNotifier) Notify(ctx context.Context, title, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, title+": "+message)
	return nil
}
