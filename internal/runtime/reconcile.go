package runtime

import (
	"context"
	"path/filepath"

	"github.com/groblegark/oddjobs/internal/adapters"
	"github.com/groblegark/oddjobs/internal/core"
	"github.com/groblegark/oddjobs/internal/state"
)

// Reconcile walks every non-terminal Job and AgentRun after a snapshot+WAL
// replay and re-establishes (or fails) their session ownership, then
// re-arms running Workers and Crons (spec.md §4.9.7). It runs once, after
// the socket is already published, so the daemon is responsive throughout.
func (r *Runtime) Reconcile(ctx context.Context, st *state.State, sessions adapters.SessionBackend) []core.Effect {
	var effects []core.Effect

	for _, job := range st.Jobs {
		if job.IsTerminal() {
			continue
		}
		cur := job.CurrentStepRecord()
		if job.SessionId == nil {
			if cur != nil && cur.AgentId == nil {
				// shell-only step with no session to reconnect to; leave as is.
				continue
			}
			effects = append(effects, r.failJob(job.Id, "no session recorded for in-flight step on restart", st)...)
			continue
		}
		if cur == nil || cur.AgentId == nil {
			effects = append(effects, r.failJob(job.Id, "no agent recorded for in-flight step on restart", st)...)
			continue
		}

		agentId := *cur.AgentId
		alive, err := sessions.Alive(ctx, *job.SessionId)
		if err != nil || !alive {
			r.registerJobOwner(agentId, job.Id)
			effects = append(effects, emit(&core.AgentGone{AgentId: agentId}))
			continue
		}

		r.registerJobOwner(agentId, job.Id)
		effects = append(effects, core.ReconnectAgent{
			AgentId: agentId, SessionId: *job.SessionId,
			WorkspacePath: derefOr(job.WorkspacePath, job.Cwd),
			ProcessName:   r.processNameForStep(st, job),
		})
		effects = append(effects, core.SetTimer{Id: core.LivenessTimer(job.Id), Duration: durationMs(r.cfg.LivenessMs), Repeat: true})
	}

	for _, run := range st.AgentRuns {
		if run.IsTerminal() {
			continue
		}
		if run.SessionId == nil || run.AgentId == nil {
			effects = append(effects, emit(&core.AgentRunStatusChanged{Id: run.Id, Status: core.AgentRunFailed, Error: strPtr("no session recorded for in-flight agent run on restart")}))
			continue
		}

		agentId := *run.AgentId
		alive, err := sessions.Alive(ctx, *run.SessionId)
		if err != nil || !alive {
			r.registerRunOwner(agentId, run.Id)
			effects = append(effects, emit(&core.AgentGone{AgentId: agentId}))
			continue
		}

		r.registerRunOwner(agentId, run.Id)
		effects = append(effects, core.ReconnectAgent{
			AgentId: agentId, SessionId: *run.SessionId,
			ProcessName: r.processNameForAgent(st, run.AgentName),
		})
	}

	for _, w := range st.Workers {
		if w.Status != "running" {
			continue
		}
		effects = append(effects, emit(&core.WorkerStarted{
			WorkerName: w.Name, ProjectRoot: w.ProjectRoot, RunbookHash: w.RunbookHash,
			QueueName: w.QueueName, Concurrency: w.Concurrency, Namespace: w.Namespace,
		}))
	}

	for _, c := range st.Crons {
		if c.Status != "running" {
			continue
		}
		d, err := parseDuration(c.Interval)
		if err != nil {
			continue
		}
		effects = append(effects, core.SetTimer{Id: core.CronIntervalTimer(c.Name), Duration: d, Repeat: true})
	}

	return effects
}

// processNameForStep resolves the child process name the watcher's liveness
// probe should look for inside job's current agent step's session, i.e. the
// runbook agent definition's run command (spec.md §4.9.7 step 4).
func (r *Runtime) processNameForStep(st *state.State, job *state.Job) string {
	rb := r.runbookFor(st, job.RunbookHash)
	if rb == nil {
		return ""
	}
	jobDef, ok := rb.Job[job.Kind]
	if !ok {
		return ""
	}
	for _, s := range jobDef.Step {
		if s.Name != job.Step || s.Run.Kind() != "agent" {
			continue
		}
		agentDef, ok := rb.Agent[s.Run.Agent]
		if !ok {
			return ""
		}
		return filepath.Base(agentDef.Run)
	}
	return ""
}

// processNameForAgent resolves a standalone AgentRun's watcher process name
// directly from its agent definition.
func (r *Runtime) processNameForAgent(st *state.State, agentName string) string {
	for hash := range st.Runbooks {
		rb := r.runbookFor(st, hash)
		if rb == nil {
			continue
		}
		if agentDef, ok := rb.Agent[agentName]; ok {
			return filepath.Base(agentDef.Run)
		}
	}
	return ""
}

func derefOr(p *string, fallback string) string {
	if p != nil {
		return *p
	}
	return fallback
}

func strPtr(s string) *string { return &s }
