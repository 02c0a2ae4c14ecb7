// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package daemon

import (
	"context"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"net/http"

	"github.com/groblegark/oddjobs/internal/adapters"
	"github.com/groblegark/oddjobs/internal/breadcrumb"
	"github.com/groblegark/oddjobs/internal/core"
	"github.com/groblegark/oddjobs/internal/eventbus"
	"github.com/groblegark/oddjobs/internal/executor"
	"github.com/groblegark/oddjobs/internal/lockfile"
	"github.com/groblegark/oddjobs/internal/metrics"
	"github.com/groblegark/oddjobs/internal/ojconfig"
	"github.com/groblegark/oddjobs/internal/ojlog"
	rpcauth "github.com/groblegark/oddjobs/internal/rpc/auth"
	"github.com/groblegark/oddjobs/internal/runtime"
	"github.com/groblegark/oddjobs/internal/scheduler"
	"github.com/groblegark/oddjobs/internal/snapshot"
	"github.com/groblegark/oddjobs/internal/state"
	"github.com/groblegark/oddjobs/internal/wal"
)

// Options carries build-time version info, stamped into daemon.version on
// startup (spec.md §6.1: "<pkg_version>+<git_hash>").
type Options struct {
	Version string
	Commit  string
	// AuthSecret signs the per-run session token written to the state
	// dir's token file at startup (spec.md §6.1). The same secret must
	// back the rpc.Server's auth.Config so a token issued by the CLI
	// (via that token file) verifies against this run.
	AuthSecret []byte
	// MetricsAddr, if non-empty, is the host:port the daemon serves its
	// Prometheus /metrics endpoint on (spec.md §4.10 observability
	// surface). Left empty, no metrics listener is bound.
	MetricsAddr string
}

// Server handles one accepted RPC connection. internal/rpc implements this;
// kept as a narrow interface here so the lifecycle layer never needs to
// import RPC wire-format, auth, or handler details directly.
type Server interface {
	HandleConn(ctx context.Context, conn net.Conn)
}

// Deps lets callers override the production adapters, for tests that want
// to drive the daemon without tmux installed. Sessions and Agents are a
// matched pair in production (TmuxAgentBackend wraps the same *Tmux used
// for Sessions) — override both together or neither. Any nil field falls
// back to the real backend.
type Deps struct {
	Sessions  adapters.SessionBackend
	Agents    adapters.AgentBackend
	Notifier  adapters.Notifier
	Workspace executor.WorkspaceManager
	RPCServer Server
}

// Daemon is oj's single-process orchestrator (spec.md §4.10): it owns the
// WAL, the materialized state, the engine loop, every per-agent watcher
// task, and the Unix-domain socket the CLI talks to.
type Daemon struct {
	dirs   ojconfig.Dirs
	opts   Options
	logger *ojlog.Logger

	lock   *lockfile.Lock
	wal    *wal.WAL
	bus    *eventbus.Bus
	rt     *runtime.Runtime
	exec   *executor.Executor
	sched  *scheduler.Scheduler
	engine *Engine
	crumbs *breadcrumb.Store

	sessions  adapters.SessionBackend
	rpcServer Server

	ln net.Listener

	engineCtx    context.Context
	engineCancel context.CancelFunc

	mu      sync.Mutex
	started bool
}

// New constructs a Daemon rooted at stateDir (ojconfig.StateDir() if
// empty). It does not touch disk or bind the socket yet — that happens in
// Start, per spec.md §4.10's ordered startup sequence.
func New(stateDir string, opts Options, deps Deps) (*Daemon, error) {
	if stateDir == "" {
		stateDir = ojconfig.StateDir()
	}
	dirs := ojconfig.Resolve(stateDir)
	logger := ojlog.New(ojlog.FromEnv())

	sessions := deps.Sessions
	agents := deps.Agents
	if sessions == nil && agents == nil {
		tmux := &adapters.Tmux{}
		sessions = tmux
		agents = &adapters.TmuxAgentBackend{Sessions: tmux}
	} else if sessions == nil || agents == nil {
		return nil, fmt.Errorf("daemon: Deps.Sessions and Deps.Agents must be overridden together")
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = adapters.DesktopNotifier{}
	}
	rt := runtime.New(runtime.DefaultConfig(), core.SystemClock{}, core.UUIDGen{}, logger)
	sched := scheduler.New(core.SystemClock{})
	exec := executor.New(nil, sched, sessions, agents, notifier, logger)
	exec.Workspace = deps.Workspace

	return &Daemon{
		dirs: dirs, opts: opts, logger: logger,
		rt: rt, exec: exec, sched: sched,
		crumbs: breadcrumb.New(dirs.StateDir),
		sessions: sessions, rpcServer: deps.RPCServer,
	}, nil
}

// Start runs spec.md §4.10's startup sequence and blocks, serving RPC
// connections, until ctx is cancelled. The daemon is reachable on its
// socket as soon as this returns past step 7; reconciliation (step 8-9)
// then proceeds without blocking new connections.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.started {
		d.mu.Unlock()
		return fmt.Errorf("daemon: already started")
	}
	if d.rpcServer == nil {
		d.mu.Unlock()
		return fmt.Errorf("daemon: no RPCServer set (call SetRPCServer before Start)")
	}
	d.started = true
	d.mu.Unlock()

	// Step 1: ensure state dir; acquire the exclusive lock before touching
	// anything else, so a failed lock never deletes another daemon's files.
	if err := os.MkdirAll(d.dirs.StateDir, 0700); err != nil {
		return fmt.Errorf("daemon: ensure state dir: %w", err)
	}
	lock, err := lockfile.Acquire(d.dirs.PIDFile, os.Getpid())
	if err != nil {
		if err == lockfile.ErrLocked {
			if pid, perr := lockfile.ReadPID(d.dirs.PIDFile); perr == nil {
				return fmt.Errorf("daemon: already running (pid %d)", pid)
			}
		}
		return fmt.Errorf("daemon: acquire lock: %w", err)
	}
	d.lock = lock

	// Step 2: subdirectories.
	if err := ojconfig.EnsureDirs(d.dirs); err != nil {
		return d.abortLocked(fmt.Errorf("daemon: ensure dirs: %w", err))
	}

	// Step 3: version file, and the token file a CLI reads to authenticate
	// against this run's RPC socket.
	version := fmt.Sprintf("%s+%s", d.opts.Version, d.opts.Commit)
	if err := os.WriteFile(d.dirs.VersionFile, []byte(version+"\n"), 0600); err != nil {
		return d.abortLocked(fmt.Errorf("daemon: write version file: %w", err))
	}
	if len(d.opts.AuthSecret) > 0 {
		if err := rpcauth.WriteSecretFile(d.dirs.TokenFile, d.opts.AuthSecret); err != nil {
			return d.abortLocked(fmt.Errorf("daemon: write token file: %w", err))
		}
	}

	// Step 4: load snapshot (if any).
	snapStore := snapshot.NewStore(d.dirs.StateDir)
	snap, err := snapStore.Load()
	if err != nil {
		return d.abortLocked(fmt.Errorf("daemon: load snapshot: %w", err))
	}
	st := state.New()
	var processedSeq uint64
	if snap != nil {
		st = snap.State
		processedSeq = snap.Seq
	}

	// Step 5: open WAL at processedSeq and replay subsequent frames.
	reg := wal.NewRegistry()
	log, err := wal.Open(d.dirs.WALFile, reg)
	if err != nil {
		return d.abortLocked(fmt.Errorf("daemon: open wal: %w", err))
	}
	d.wal = log
	replay, err := log.EntriesAfter(processedSeq)
	if err != nil {
		return d.abortLocked(fmt.Errorf("daemon: replay wal: %w", err))
	}
	for _, ev := range replay {
		if err := state.ApplyEvent(st, ev); err != nil {
			d.logger.Warn("daemon: replay apply failed, skipping event", "event", ev.EventName(), "err", err)
		}
	}

	// Step 6: construct the event bus and wire it into the already-built
	// runtime/executor; start the engine loop (the forwarder + the single
	// place that calls runtime.Handle, spec.md §5).
	d.bus = eventbus.New(d.wal, st)
	d.exec.Bus = d.bus
	d.engine = NewEngine(d.bus, d.rt, d.exec, d.sched, core.SystemClock{}, d.logger)
	d.engineCtx, d.engineCancel = context.WithCancel(context.Background())
	go d.engine.Run(d.engineCtx)

	// Step 7: remove stale socket; bind new one. The daemon is READY from
	// here on — everything after this point runs without blocking new
	// connections.
	os.Remove(d.dirs.Socket)
	ln, err := net.Listen("unix", d.dirs.Socket)
	if err != nil {
		return d.abortLocked(fmt.Errorf("daemon: bind socket: %w", err))
	}
	if err := os.Chmod(d.dirs.Socket, 0600); err != nil {
		ln.Close()
		return d.abortLocked(fmt.Errorf("daemon: chmod socket: %w", err))
	}
	d.ln = ln

	d.subscribeBreadcrumbs()

	go d.acceptLoop(d.engineCtx)

	if d.opts.MetricsAddr != "" {
		go d.serveMetrics(d.engineCtx)
	}

	// Steps 8-9: scan breadcrumbs and reconcile in-flight work, after the
	// socket is already published (spec.md §4.10: "daemon appears READY
	// immediately, remains responsive during it").
	go d.reconcile(d.engineCtx)

	d.logger.Info("daemon started", "socket", d.dirs.Socket, "version", version)

	<-ctx.Done()
	return nil
}

// abortLocked releases the just-acquired lock before returning a startup
// error, so a failed later step doesn't leave the PID file locked forever.
func (d *Daemon) abortLocked(err error) error {
	if d.lock != nil {
		d.lock.Release()
		d.lock = nil
	}
	return err
}

// acceptLoop hands every accepted connection to the injected RPC server.
func (d *Daemon) acceptLoop(ctx context.Context) {
	for {
		conn, err := d.ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
				d.logger.Warn("daemon: accept failed", "err", err)
				return
			}
		}
		go d.rpcServer.HandleConn(ctx, conn)
	}
}

// serveMetrics binds a plain HTTP listener (not the Unix-domain RPC socket)
// exposing the Prometheus registry. It runs for the daemon's lifetime;
// ctx cancellation shuts it down alongside everything else.
func (d *Daemon) serveMetrics(ctx context.Context) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: d.opts.MetricsAddr, Handler: mux}

	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		d.logger.Warn("daemon: metrics listener failed", "addr", d.opts.MetricsAddr, "err", err)
	}
}

// SetRPCServer wires the RPC transport after construction, since its
// handlers typically need to call back into this Daemon's Submit/State/
// ResolveAgentJob accessors (see internal/rpc.Deps) — those don't exist
// until New has returned, so cmd/ojd builds the registry/server after New
// and sets it here, before Start. Start refuses to run without one.
func (d *Daemon) SetRPCServer(s Server) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rpcServer = s
}

// Submit feeds an externally-sourced event (an RPC command, a stop-hook
// callback) into the engine loop. It is the accessor internal/rpc's Deps
// binds to, since the engine doesn't exist until Start has run — see
// Deps' doc comment in internal/rpc/domain.go for why this is a method
// rather than a field handed to rpc.Deps directly.
func (d *Daemon) Submit(ev core.Event) {
	d.engine.Submit(ev)
}

// State returns a point-in-time read of materialized state, for internal/rpc's
// read-only job.get/job.list handlers.
func (d *Daemon) State() *state.State {
	return d.bus.State()
}

// ResolveAgentJob exposes the runtime's agent->job lookup to internal/rpc's
// stop-hook handler.
func (d *Daemon) ResolveAgentJob(agentId core.AgentId) (*core.JobId, bool) {
	return d.rt.ResolveAgentJob(agentId)
}

// reconcile runs Runtime.Reconcile against a point-in-time read of state,
// then scans breadcrumbs for orphaned jobs the reconciled jobs didn't
// already account for (spec.md §4.10 startup steps 8-9).
func (d *Daemon) reconcile(ctx context.Context) {
	st := d.bus.State()
	effs := d.rt.Reconcile(ctx, st, d.sessions)
	d.engine.resolve(ctx, effs)

	entries, err := d.crumbs.Scan(time.Now())
	if err != nil {
		d.logger.Warn("daemon: breadcrumb scan failed", "err", err)
		return
	}
	toDelete, autoDismissed, orphans := d.crumbs.Reconcile(entries, func(id core.JobId) bool {
		job := st.Jobs[id]
		return job == nil || job.IsTerminal()
	})
	for _, id := range toDelete {
		d.crumbs.Remove(id)
	}
	for _, id := range autoDismissed {
		d.logger.Info("daemon: auto-dismissed stale breadcrumb", "job", id)
	}
	for _, id := range orphans {
		d.logger.Warn("daemon: orphaned pipeline found on restart", "job", id)
	}
}

// subscribeBreadcrumbs wires breadcrumb lifecycle to the event bus: a
// breadcrumb is created the moment a job starts running and removed the
// moment it reaches a terminal step (spec.md component 12).
func (d *Daemon) subscribeBreadcrumbs() {
	d.bus.Subscribe(func(ev core.Event) {
		switch e := ev.(type) {
		case *core.JobCreated:
			if err := d.crumbs.Create(e.Id); err != nil {
				d.logger.Warn("daemon: breadcrumb create failed", "job", e.Id, "err", err)
			}
		case *core.JobAdvanced:
			job := d.bus.State().Jobs[e.Id]
			if job != nil && job.IsTerminal() {
				if err := d.crumbs.Remove(e.Id); err != nil {
					d.logger.Warn("daemon: breadcrumb remove failed", "job", e.Id, "err", err)
				}
			}
		}
	})
}

// Shutdown runs spec.md §4.10's shutdown sequence: flush, final snapshot,
// remove the socket/PID/version files, release the lock. Sessions (tmux)
// are intentionally left running; only watcher tasks are stopped.
func (d *Daemon) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.started {
		return nil
	}

	if d.engineCancel != nil {
		d.engineCancel()
	}
	d.exec.Close()

	if d.ln != nil {
		d.ln.Close()
	}

	if d.bus != nil {
		if err := d.bus.Flush(); err != nil {
			d.logger.Warn("daemon: final flush failed", "err", err)
		}
	}

	seq := d.wal.ProcessedSeq()
	if seq > 0 && d.bus != nil {
		snapStore := snapshot.NewStore(d.dirs.StateDir)
		if err := snapStore.Save(seq, d.bus.State()); err != nil {
			d.logger.Warn("daemon: final snapshot failed", "err", err)
		}
	}

	if d.wal != nil {
		d.wal.Close()
	}

	os.Remove(d.dirs.Socket)
	os.Remove(d.dirs.VersionFile)

	if d.lock != nil {
		d.lock.Release()
		d.lock.Remove()
	}

	d.started = false
	d.logger.Info("daemon stopped")
	return nil
}
