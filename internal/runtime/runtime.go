// Package runtime implements the event handlers of spec.md §4.9: the pure
// translation from "one event plus current state" to "a list of follow-up
// events and side-effecting effects". Handlers never mutate state directly;
// every state change flows back through an Emit effect the engine loop
// re-publishes (and therefore re-folds) before moving on.
package runtime

import (
	"sync"
	"time"

	"github.com/groblegark/oddjobs/internal/core"
	"github.com/groblegark/oddjobs/internal/ojlog"
	"github.com/groblegark/oddjobs/internal/runbook"
	"github.com/groblegark/oddjobs/internal/state"
)

// Config holds the tunable durations spec.md §6.4 exposes as env vars.
type Config struct {
	IdleGraceMs   int64
	LivenessMs    int64
	GateTimeout   time.Duration
	ShellTimeout  time.Duration
	MaxStepVisits int
	AntiNudgeMs   int64
	WorkspaceRoot string
}

// DefaultConfig matches spec.md's implied defaults.
func DefaultConfig() Config {
	return Config{
		IdleGraceMs:   3000,
		LivenessMs:    15000,
		GateTimeout:   30 * time.Second,
		ShellTimeout:  10 * time.Minute,
		MaxStepVisits: 25,
		AntiNudgeMs:   60000,
	}
}

// Runtime owns the in-process maps spec.md §5/§4.9 describe as living
// outside MaterializedState: agent→owner, per-worker runtime state, and the
// decoded-runbook cache keyed by content hash.
type Runtime struct {
	cfg   Config
	clock core.Clock
	ids   core.IdGen
	log   *ojlog.Logger

	mu        sync.Mutex
	owners    map[core.AgentId]owner
	runbooks  map[string]*runbook.Runbook // decoded cache, keyed by hash
}

type ownerKind int

const (
	ownerJob ownerKind = iota
	ownerAgentRun
)

type owner struct {
	kind ownerKind
	job  core.JobId
	run  core.AgentRunId
}

// New returns a Runtime ready to handle events against st.
func New(cfg Config, clock core.Clock, ids core.IdGen, log *ojlog.Logger) *Runtime {
	return &Runtime{
		cfg: cfg, clock: clock, ids: ids, log: log,
		owners:   make(map[core.AgentId]owner),
		runbooks: make(map[string]*runbook.Runbook),
	}
}

func (r *Runtime) registerJobOwner(agent core.AgentId, job core.JobId) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.owners[agent] = owner{kind: ownerJob, job: job}
}

func (r *Runtime) registerRunOwner(agent core.AgentId, run core.AgentRunId) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.owners[agent] = owner{kind: ownerAgentRun, run: run}
}

func (r *Runtime) deregisterOwner(agent core.AgentId) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.owners, agent)
}

func (r *Runtime) ownerOf(agent core.AgentId) (owner, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.owners[agent]
	return o, ok
}

func (r *Runtime) runbookFor(st *state.State, hash string) *runbook.Runbook {
	r.mu.Lock()
	if rb, ok := r.runbooks[hash]; ok {
		r.mu.Unlock()
		return rb
	}
	r.mu.Unlock()

	stored, ok := st.Runbooks[hash]
	if !ok {
		return nil
	}
	rb, err := runbook.Parse(stored.Raw)
	if err != nil {
		r.log.Error("runtime: decode cached runbook failed", "hash", hash, "err", err)
		return nil
	}
	r.mu.Lock()
	r.runbooks[hash] = rb
	r.mu.Unlock()
	return rb
}

// emit wraps ev as a follow-up event effect.
func emit(ev core.Event) core.Effect { return core.Emit{Event: ev} }

// Handle dispatches ev against the current state st and returns the
// follow-up events/effects. st must be the live, already-folded state for
// ev (the engine calls bus.Publish(ev) before Handle).
func (r *Runtime) Handle(ev core.Event, st *state.State) []core.Effect {
	switch e := ev.(type) {
	case *core.JobCreated:
		return r.handleJobCreated(e, st)
	case *core.CommandRun:
		return r.handleCommandRun(e, st)
	case *core.JobAdvanced:
		return r.handleJobAdvanced(e, st)
	case *core.ShellExited:
		return r.handleShellExited(e, st)
	case *core.JobCancel:
		return r.handleJobCancel(e, st)

	case *core.AgentWorking:
		return r.handleAgentState(e.AgentId, stateWorking, nil, nil, st)
	case *core.AgentWaiting:
		return r.handleAgentState(e.AgentId, stateWaitingForInput, nil, nil, st)
	case *core.AgentIdle:
		return r.handleAgentState(e.AgentId, stateWaitingForInput, nil, nil, st)
	case *core.AgentPrompt:
		return r.handleAgentPrompt(e, st)
	case *core.AgentFailed:
		ae := e.Error
		return r.handleAgentState(e.AgentId, stateFailed, &ae, nil, st)
	case *core.AgentExited:
		return r.handleAgentState(e.AgentId, stateExited, nil, e.ExitCode, st)
	case *core.AgentGone:
		return r.handleAgentState(e.AgentId, stateGone, nil, nil, st)
	case *core.AgentSignal:
		return r.handleAgentSignal(e, st)
	case *core.TimerFired:
		return r.handleTimerFired(e, st)

	case *core.WorkerStarted:
		return r.handleWorkerStarted(e, st)
	case *core.WorkerPollComplete:
		return r.handleWorkerPollComplete(e, st)
	case *core.WorkerTakeComplete:
		return r.handleWorkerTakeComplete(e, st)
	case *core.QueueCompleted:
		return r.handleQueueCompleted(e, st)
	case *core.QueueFailed:
		return r.handleQueueFailed(e, st)

	case *core.CronFired:
		return r.handleCronFired(e, st)

	case *core.DecisionResolved:
		return r.handleDecisionResolved(e, st)

	default:
		return nil
	}
}
