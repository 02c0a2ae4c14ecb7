package runtime

import (
	"github.com/groblegark/oddjobs/internal/core"
	"github.com/groblegark/oddjobs/internal/state"
)

// handleDecisionResolved dispatches a resolved Decision by its source
// (spec.md §4.9.6).
func (r *Runtime) handleDecisionResolved(e *core.DecisionResolved, st *state.State) []core.Effect {
	d := st.Decisions[e.Id]
	if d == nil {
		return nil
	}
	job := st.Jobs[d.JobId]
	if job == nil {
		return nil
	}

	switch d.Source {
	case "question", "permission":
		if e.Chosen == "Cancel" {
			return r.cancelJob(job.Id, st)
		}
		var effects []core.Effect
		if d.AgentId != nil {
			effects = append(effects, core.SendToAgent{AgentId: *d.AgentId, Input: e.Chosen})
		}
		return append(effects, emit(&core.JobResume{Id: job.Id}))

	case "gate_failed":
		switch e.Chosen {
		case "retry":
			cur := job.CurrentStepRecord()
			var effects []core.Effect
			if cur != nil && cur.AgentId != nil {
				effects = append(effects, core.SendToAgent{AgentId: *cur.AgentId, Input: "please retry: the previous gate check failed"})
			}
			return append(effects, emit(&core.JobResume{Id: job.Id}))
		case "override":
			return r.advanceJob(job.Id, st)
		case "cancel":
			return r.cancelJob(job.Id, st)
		}

	case "escalate":
		switch e.Chosen {
		case "resume":
			return []core.Effect{emit(&core.JobResume{Id: job.Id})}
		case "cancel":
			return r.cancelJob(job.Id, st)
		}
	}
	return nil
}
