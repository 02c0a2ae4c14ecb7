// Package executor turns the effects a runtime handler returns into real
// process spawns, shell commands, git worktrees, timers and notifications,
// per spec.md §4.8. Every side effect that has an asynchronous result
// (Shell, TakeQueueItem) is run in its own goroutine and reports back to the
// event bus rather than blocking the caller, so a slow `git clone` step
// never stalls the engine loop.
package executor

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/groblegark/oddjobs/internal/adapters"
	"github.com/groblegark/oddjobs/internal/core"
	"github.com/groblegark/oddjobs/internal/eventbus"
	"github.com/groblegark/oddjobs/internal/ojlog"
	"github.com/groblegark/oddjobs/internal/scheduler"
	"github.com/groblegark/oddjobs/internal/watcher"
)

// Executor wires the pure Effect descriptions to concrete side effects.
type Executor struct {
	Bus       *eventbus.Bus
	Scheduler *scheduler.Scheduler
	Sessions  adapters.SessionBackend
	Agents    adapters.AgentBackend
	Notifier  adapters.Notifier
	Workspace WorkspaceManager
	Log       *ojlog.Logger

	// workspaceMeta tracks (path, sourceRepo, mode) for DeleteWorkspace,
	// since the effect itself only carries the id (spec.md §4.8's
	// DeleteWorkspace is intentionally minimal; the executor is the one
	// place allowed to remember an id's creation-time details).
	workspaceMeta map[core.WorkspaceId]workspaceRecord

	// watchCtx backs every watcher goroutine; it outlives any single
	// effect's request-scoped ctx and is cancelled from Close.
	watchCtx        context.Context
	watchCancel     context.CancelFunc
	watchersMu      sync.Mutex
	watchers        map[core.AgentId]*watcher.Watcher
	watcherSessions map[core.SessionId]core.AgentId

	// Submit, when set, receives every event this executor would otherwise
	// publish directly, so the daemon's engine loop can route it back
	// through runtime.Handle instead of only folding it into state
	// (spec.md §5: "a single engine loop... is the only place that calls
	// runtime.handle_event"). Left nil, x.publish falls back to publishing
	// straight onto the bus, which is what executor-only tests expect.
	Submit func(core.Event)
}

type workspaceRecord struct {
	path, sourceRepo string
	mode             core.WorkspaceMode
}

// New returns an Executor ready to run effects.
func New(bus *eventbus.Bus, sched *scheduler.Scheduler, sessions adapters.SessionBackend, agents adapters.AgentBackend, notifier adapters.Notifier, log *ojlog.Logger) *Executor {
	ctx, cancel := context.WithCancel(context.Background())
	return &Executor{
		Bus: bus, Scheduler: sched, Sessions: sessions, Agents: agents,
		Notifier: notifier, Log: log,
		workspaceMeta: make(map[core.WorkspaceId]workspaceRecord),
		watchCtx:        ctx,
		watchCancel:     cancel,
		watchers:        make(map[core.AgentId]*watcher.Watcher),
		watcherSessions: make(map[core.SessionId]core.AgentId),
	}
}

// Close stops every running watcher task. Call on daemon shutdown.
func (x *Executor) Close() {
	x.watchCancel()
	x.watchersMu.Lock()
	watchers := make([]*watcher.Watcher, 0, len(x.watchers))
	for _, w := range x.watchers {
		watchers = append(watchers, w)
	}
	x.watchersMu.Unlock()
	for _, w := range watchers {
		w.Stop()
	}
}

// sinkFunc adapts a plain function to watcher.Sink.
type sinkFunc func(core.Event)

func (f sinkFunc) Submit(ev core.Event) { f(ev) }

// startWatcher launches (or replaces) the watcher task for agentId, locating
// its session log under workspacePath (spec.md §4.6/§6.1).
func (x *Executor) startWatcher(agentId core.AgentId, sessionId core.SessionId, workspacePath, processName string) {
	logPath, found := watcher.FindSessionLog(workspacePath, sessionId.String())
	if !found {
		// Session log doesn't exist yet; the watcher's own startup race
		// (awaitLogFile) polls for it, so a best-effort guessed path is
		// enough to hand off.
		logPath = filepath.Join(workspacePath, sessionId.String()+".jsonl")
	}

	cfg := watcher.DefaultConfig(agentId, sessionId, logPath, processName)
	sink := sinkFunc(func(ev core.Event) { x.publish(ev) })
	w := watcher.New(cfg, x.Sessions, sink, x.Log)

	x.watchersMu.Lock()
	if old, ok := x.watchers[agentId]; ok {
		x.watchersMu.Unlock()
		old.Stop()
		x.watchersMu.Lock()
	}
	x.watchers[agentId] = w
	x.watcherSessions[sessionId] = agentId
	x.watchersMu.Unlock()

	go w.Run(x.watchCtx)
}

// stopWatcher halts and forgets agentId's watcher task, if any (called when
// the agent step is left — spec.md §4.9.2 step 2).
func (x *Executor) stopWatcher(agentId core.AgentId) {
	x.watchersMu.Lock()
	w, ok := x.watchers[agentId]
	if ok {
		delete(x.watchers, agentId)
		for sid, aid := range x.watcherSessions {
			if aid == agentId {
				delete(x.watcherSessions, sid)
			}
		}
	}
	x.watchersMu.Unlock()
	if ok {
		w.Stop()
	}
}

// stopWatcherForSession is KillSession's counterpart to stopWatcher: leaving
// an agent step kills the session directly without a separate KillAgent
// effect, so the watcher must be found by session id instead.
func (x *Executor) stopWatcherForSession(sessionId core.SessionId) {
	x.watchersMu.Lock()
	agentId, ok := x.watcherSessions[sessionId]
	x.watchersMu.Unlock()
	if ok {
		x.stopWatcher(agentId)
	}
}

// Run executes effs in order. Effects are independent of each other within
// one batch (a handler never depends on the result of its own effect), so a
// failure in one is logged and does not abort the rest.
func (x *Executor) Run(ctx context.Context, effs []core.Effect) {
	for _, eff := range effs {
		x.run(ctx, eff)
	}
}

func (x *Executor) run(ctx context.Context, eff core.Effect) {
	switch e := eff.(type) {
	case core.Emit:
		x.publish(e.Event)

	case core.SpawnAgent:
		sid, err := x.Agents.Spawn(ctx, e)
		if err != nil {
			x.Log.Error("spawn agent failed", "agent", e.AgentName, "err", err)
			return
		}
		x.publish(&core.SessionCreated{Id: sid, JobId: e.JobId, AgentRunId: e.AgentRunId})
		x.startWatcher(e.AgentId, sid, e.WorkspacePath, filepath.Base(e.Command))

	case core.ReconnectAgent:
		if err := x.Agents.Reconnect(ctx, e); err != nil {
			x.Log.Error("reconnect agent failed", "agent", e.AgentId, "err", err)
			return
		}
		x.startWatcher(e.AgentId, e.SessionId, e.WorkspacePath, e.ProcessName)

	case core.SendToAgent:
		if err := x.Agents.Send(ctx, e.AgentId, e.Input); err != nil {
			x.Log.Error("send to agent failed", "agent", e.AgentId, "err", err)
		}

	case core.KillAgent:
		x.stopWatcher(e.AgentId)
		if err := x.Agents.Kill(ctx, e.AgentId); err != nil {
			x.Log.Error("kill agent failed", "agent", e.AgentId, "err", err)
		}

	case core.SendToSession:
		if err := x.Sessions.Send(ctx, e.SessionId, e.Input); err != nil {
			x.Log.Error("send to session failed", "session", e.SessionId, "err", err)
		}

	case core.KillSession:
		x.stopWatcherForSession(e.SessionId)
		if err := x.Sessions.Kill(ctx, e.SessionId); err != nil {
			x.Log.Error("kill session failed", "session", e.SessionId, "err", err)
		}

	case core.CreateWorkspace:
		x.workspaceMeta[e.Id] = workspaceRecord{path: e.Path, sourceRepo: e.SourceRepo, mode: e.Mode}
		go func() {
			if err := x.Workspace.Create(ctx, e); err != nil {
				x.publish(&core.WorkspaceFailed{Id: e.Id, Reason: err.Error()})
				return
			}
			x.publish(&core.WorkspaceReady{Id: e.Id})
		}()

	case core.DeleteWorkspace:
		rec := x.workspaceMeta[e.Id]
		go func() {
			if err := x.Workspace.Delete(ctx, e, rec.path, rec.sourceRepo, rec.mode); err != nil {
				x.Log.Error("delete workspace failed", "workspace", e.Id, "err", err)
			}
			delete(x.workspaceMeta, e.Id)
		}()

	case core.SetTimer:
		repeat := time.Duration(0)
		if e.Repeat {
			repeat = e.Duration
		}
		x.Scheduler.Set(e.Id, e.Duration, repeat)

	case core.CancelTimer:
		x.Scheduler.Cancel(e.Id)

	case core.Shell:
		go x.runShell(ctx, e)

	case core.PollQueue:
		go x.runPollQueue(ctx, e)

	case core.TakeQueueItem:
		go x.runTakeQueueItem(ctx, e)

	case core.Notify:
		if err := x.Notifier.Notify(ctx, e.Title, e.Message); err != nil {
			x.Log.Error("notify failed", "err", err)
		}

	case core.RunGate:
		// RunGate is synchronous by contract (spec.md §4.9.3); handlers that
		// need its pass/fail result call RunGateNow directly instead of
		// routing it through the async effect queue.
		x.Log.Warn("run_gate effect queued asynchronously; handlers should call RunGateNow", "job", e.JobId)

	default:
		x.Log.Error("unknown effect", "type", fmt.Sprintf("%T", eff))
	}
}

// publish is how every path inside the executor hands an event back out:
// a freshly-started session, a finished shell command, a watcher
// observation. With no engine wired (direct Executor use in tests) it
// publishes straight onto the bus; with an engine wired, it routes through
// Submit instead so the event gets a second pass through runtime.Handle.
func (x *Executor) publish(ev core.Event) {
	if x.Submit != nil {
		x.Submit(ev)
		return
	}
	if _, err := x.Bus.Publish(ev); err != nil {
		x.Log.Error("publish failed", "event", ev.EventName(), "err", err)
	}
}

func (x *Executor) runShell(ctx context.Context, e core.Shell) {
	cmd := exec.CommandContext(ctx, "bash", "-lc", e.Command)
	cmd.Dir = e.Cwd
	for k, v := range e.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			exitCode = -1
		}
	}
	x.publish(&core.ShellExited{
		JobId: e.JobId, Step: e.Step, ExitCode: exitCode,
		Stdout: stdout.String(), Stderr: stderr.String(),
	})
}

func (x *Executor) runPollQueue(ctx context.Context, e core.PollQueue) {
	if e.Persisted {
		// Persisted-queue items already live in materialized state; the
		// dispatch handler reads them directly and this effect is a no-op
		// beyond signaling completion.
		x.publish(&core.WorkerPollComplete{WorkerName: e.WorkerName})
		return
	}
	cmd := exec.CommandContext(ctx, "bash", "-lc", e.ListCmd)
	cmd.Dir = e.Cwd
	out, err := cmd.Output()
	if err != nil {
		x.Log.Error("poll queue failed", "worker", e.WorkerName, "err", err)
		x.publish(&core.WorkerPollComplete{WorkerName: e.WorkerName})
		return
	}
	items, err := parseQueueItems(out)
	if err != nil {
		x.Log.Error("poll queue: parse items failed", "worker", e.WorkerName, "err", err)
		x.publish(&core.WorkerPollComplete{WorkerName: e.WorkerName})
		return
	}
	x.publish(&core.WorkerPollComplete{WorkerName: e.WorkerName, Items: items})
}

func (x *Executor) runTakeQueueItem(ctx context.Context, e core.TakeQueueItem) {
	cmd := exec.CommandContext(ctx, "bash", "-lc", e.TakeCmd)
	cmd.Dir = e.Cwd
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			exitCode = -1
		}
	}
	item, _ := parseQueueItem(stdout.Bytes())
	x.publish(&core.WorkerTakeComplete{
		WorkerName: e.WorkerName, ItemId: e.ItemId, Item: item,
		ExitCode: exitCode, Stderr: stderr.String(),
	})
}
