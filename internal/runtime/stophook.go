package runtime

import (
	"github.com/groblegark/oddjobs/internal/core"
	"github.com/groblegark/oddjobs/internal/state"
)

// ResolveAgentJob looks up the job a stop-hook caller's agent id belongs
// to. The RPC layer calls this before constructing the AgentSignal event
// (core.AgentSignal.JobId must already be populated by the time the event
// reaches the WAL, spec.md §4.9.8) — ownership lives in this in-process map,
// never in materialized state.
func (r *Runtime) ResolveAgentJob(agentId core.AgentId) (*core.JobId, bool) {
	o, ok := r.ownerOf(agentId)
	if !ok || o.kind != ownerJob {
		return nil, false
	}
	job := o.job
	return &job, true
}

// handleAgentSignal implements spec.md §4.9.8: Continue is a no-op ack,
// Complete forces advance_job (overriding a gate-induced Waiting), Escalate
// creates a Waiting state and cancels exit_deferred.
func (r *Runtime) handleAgentSignal(e *core.AgentSignal, st *state.State) []core.Effect {
	if e.JobId == nil {
		return nil
	}
	job := st.Jobs[*e.JobId]
	if job == nil || job.IsTerminal() {
		return nil
	}

	switch e.Kind {
	case core.AgentSignalContinue:
		return nil
	case core.AgentSignalComplete:
		return r.advanceJob(*e.JobId, st)
	case core.AgentSignalEscalate:
		msg := ""
		if e.Message != nil {
			msg = *e.Message
		}
		return r.runEscalate(job, msg, st)
	}
	return nil
}
