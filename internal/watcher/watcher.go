// Package watcher implements spec.md §4.6's per-agent watcher task: it
// incrementally parses one agent's session-log file and periodically probes
// its host session's liveness, folding both observations into the
// AgentWorking/AgentWaiting/AgentIdle/AgentFailed/AgentExited/AgentGone
// lifecycle events the runtime's action DAG (§4.9.3) consumes. It is the
// component that lets a job progress past an agent step at all.
package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/groblegark/oddjobs/internal/adapters"
	"github.com/groblegark/oddjobs/internal/core"
	"github.com/groblegark/oddjobs/internal/watcher/sessionlog"
)

// Sink receives watcher-emitted events; the daemon's engine loop implements
// it by publishing straight onto the event bus.
type Sink interface {
	Submit(ev core.Event)
}

// Config parameterizes one watcher task. Duration fields default from the
// OJ_WATCHER_POLL_MS / OJ_SESSION_POLL_MS / OJ_WAIT_POLL_MS / OJ_IDLE_GRACE_MS
// environment variables spec.md §6.4 names.
type Config struct {
	AgentId       core.AgentId
	SessionId     core.SessionId
	LogPath       string
	ProcessName   string
	LogPollEvery  time.Duration // OJ_WATCHER_POLL_MS
	SessionPoll   time.Duration // OJ_SESSION_POLL_MS
	StartupPoll   time.Duration // OJ_WAIT_POLL_MS
	StartupWindow time.Duration
	IdleGrace     time.Duration // OJ_IDLE_GRACE_MS
	ExitDeferred  time.Duration

	// TrustPrompt, when non-empty, is a substring the watcher looks for in
	// the captured pane during the startup race; TrustAcceptKeys is sent to
	// accept it.
	TrustPrompt     string
	TrustAcceptKeys string
}

// Watcher runs one agent's watcher task (spec.md §4.6). Construct with New
// and call Run in its own goroutine; Stop requests cancellation and blocks
// until Run has exited.
type Watcher struct {
	cfg      Config
	sessions adapters.SessionBackend
	sink     Sink
	log      *slog.Logger
	parser   *sessionlog.Parser

	stopOnce chan struct{}
	doneCh   chan struct{}
}

func New(cfg Config, sessions adapters.SessionBackend, sink Sink, log *slog.Logger) *Watcher {
	return &Watcher{
		cfg:      cfg,
		sessions: sessions,
		sink:     sink,
		log:      log,
		parser:   sessionlog.New(),
		stopOnce: make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Stop signals the watcher's one-shot shutdown channel and waits for Run to
// drain outstanding file events and exit without emitting further state
// (spec.md §4.6 "Cancellation").
func (w *Watcher) Stop() {
	select {
	case <-w.stopOnce:
		// already stopped
	default:
		close(w.stopOnce)
	}
	<-w.doneCh
}

type raceResult int

const (
	raceFound raceResult = iota
	raceSessionDied
	raceTimeout
)

// Run resolves the startup race, reads the log's initial state, then
// alternates fsnotify-driven log reads with a periodic liveness probe until
// Stop is called or ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	defer close(w.doneCh)

	switch w.awaitLogFile(ctx) {
	case raceSessionDied, raceTimeout:
		w.sink.Submit(&core.AgentGone{AgentId: w.cfg.AgentId})
		return
	}

	w.pumpLog(true)

	events, stopWatch := w.startFsnotify()
	defer stopWatch()

	pollTicker := time.NewTicker(w.cfg.LogPollEvery)
	defer pollTicker.Stop()
	liveTicker := time.NewTicker(w.cfg.SessionPoll)
	defer liveTicker.Stop()

	pendingExit := false
	var exitDeadline time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopOnce:
			// Drain any already-queued fsnotify event before exiting so a
			// final write right before shutdown still lands in the parser's
			// offset bookkeeping, per spec.md's cancellation contract —
			// but no further event is emitted.
			return

		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if filepath.Clean(ev.Name) == filepath.Clean(w.cfg.LogPath) {
				w.pumpLog(false)
			}

		case <-pollTicker.C:
			w.pumpLog(false)

		case <-liveTicker.C:
			alive, err := w.sessions.Alive(ctx, w.cfg.SessionId)
			if err != nil || !alive {
				w.sink.Submit(&core.AgentGone{AgentId: w.cfg.AgentId})
				return
			}

			running, err := w.sessions.ProcessRunning(ctx, w.cfg.SessionId, w.cfg.ProcessName)
			if err != nil {
				continue
			}
			switch {
			case running:
				pendingExit = false
			case !pendingExit:
				pendingExit = true
				exitDeadline = time.Now().Add(w.cfg.ExitDeferred)
			case !time.Now().Before(exitDeadline):
				w.pumpLog(false) // let a final log line land first
				w.sink.Submit(&core.AgentExited{AgentId: w.cfg.AgentId})
				return
			}
		}
	}
}

// startFsnotify watches the log file's parent directory (the file itself
// may not exist yet at watch-setup time in edge cases, and some editors
// replace rather than append). A setup failure degrades gracefully to
// poll-only operation, mirroring the teacher's filewatcher fallback.
func (w *Watcher) startFsnotify() (chan fsnotify.Event, func()) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		w.log.Warn("watcher: fsnotify unavailable, falling back to poll-only", "agent", w.cfg.AgentId, "err", err)
		return nil, func() {}
	}
	if err := fsw.Add(filepath.Dir(w.cfg.LogPath)); err != nil {
		w.log.Warn("watcher: fsnotify add failed, falling back to poll-only", "agent", w.cfg.AgentId, "err", err)
		fsw.Close()
		return nil, func() {}
	}
	return fsw.Events, func() { fsw.Close() }
}

// awaitLogFile implements spec.md §4.6's startup race: poll for the log
// file's creation while watching for session death and auto-accepting a
// trust-dialog prompt.
func (w *Watcher) awaitLogFile(ctx context.Context) raceResult {
	if pathExists(w.cfg.LogPath) {
		return raceFound
	}

	deadline := time.Now().Add(w.cfg.StartupWindow)
	ticker := time.NewTicker(w.cfg.StartupPoll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return raceTimeout
		case <-w.stopOnce:
			return raceTimeout
		case <-ticker.C:
		}

		if pathExists(w.cfg.LogPath) {
			return raceFound
		}

		alive, err := w.sessions.Alive(ctx, w.cfg.SessionId)
		if err != nil || !alive {
			return raceSessionDied
		}

		if w.cfg.TrustPrompt != "" {
			pane, err := w.sessions.CapturePane(ctx, w.cfg.SessionId)
			if err == nil && strings.Contains(pane, w.cfg.TrustPrompt) {
				_ = w.sessions.Send(ctx, w.cfg.SessionId, w.cfg.TrustAcceptKeys)
			}
		}

		if time.Now().After(deadline) {
			return raceTimeout
		}
	}
}

// pumpLog consumes newly-appended log lines and emits the corresponding
// events. On the very first call (initial == true) a leading Working
// observation is suppressed — "Working on startup emits nothing; monitoring
// silently begins" (spec.md §4.6).
func (w *Watcher) pumpLog(initial bool) {
	obs, err := w.parser.Consume(w.cfg.LogPath)
	if err != nil {
		w.log.Warn("watcher: session log read failed", "agent", w.cfg.AgentId, "err", err)
		return
	}
	if initial && len(obs) > 0 && obs[0].State == sessionlog.StateWorking {
		obs = obs[1:]
	}
	for _, o := range obs {
		w.emit(o)
	}
}

func (w *Watcher) emit(o sessionlog.Observation) {
	switch o.State {
	case sessionlog.StateWorking:
		w.sink.Submit(&core.AgentWorking{AgentId: w.cfg.AgentId})
	case sessionlog.StateWaitingForInput:
		// AgentWaiting is the raw log-derived signal; AgentIdle is emitted
		// alongside it here rather than gated behind a separate confirmation
		// pass (spec.md §4.6 lists AgentIdle as detected "via WaitingForInput"
		// directly, and §4.9.3 dispatches on_idle straight off WaitingForInput
		// with no intermediate debounce state of its own).
		w.sink.Submit(&core.AgentWaiting{AgentId: w.cfg.AgentId})
		w.sink.Submit(&core.AgentIdle{AgentId: w.cfg.AgentId})
	case sessionlog.StateFailed:
		if o.Error != nil {
			w.sink.Submit(&core.AgentFailed{AgentId: w.cfg.AgentId, Error: *o.Error})
		}
	}
}

// DefaultConfig fills in spec.md §6.4's tunable polling intervals from their
// OJ_* environment variables, falling back to the given defaults.
func DefaultConfig(agentId core.AgentId, sessionId core.SessionId, logPath, processName string) Config {
	return Config{
		AgentId:         agentId,
		SessionId:       sessionId,
		LogPath:         logPath,
		ProcessName:     processName,
		LogPollEvery:    envMillis("OJ_WATCHER_POLL_MS", 500*time.Millisecond),
		SessionPoll:     envMillis("OJ_SESSION_POLL_MS", 2*time.Second),
		StartupPoll:     envMillis("OJ_WAIT_POLL_MS", 250*time.Millisecond),
		StartupWindow:   15 * time.Second,
		IdleGrace:       envMillis("OJ_IDLE_GRACE_MS", 3*time.Second),
		ExitDeferred:    5 * time.Second,
		TrustPrompt:     "Do you trust the files in this folder?",
		TrustAcceptKeys: "1",
	}
}

func envMillis(name string, fallback time.Duration) time.Duration {
	v := os.Getenv(name)
	if v == "" {
		return fallback
	}
	ms, err := time.ParseDuration(v + "ms")
	if err != nil {
		return fallback
	}
	return ms
}

func pathExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}
