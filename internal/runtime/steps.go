package runtime

import (
	"fmt"

	"github.com/groblegark/oddjobs/internal/core"
	"github.com/groblegark/oddjobs/internal/runbook"
	"github.com/groblegark/oddjobs/internal/state"
)

// leaveStep cancels the agent-step timers and tears down its session when
// the outgoing step was an agent step (spec.md §4.9.2 step 2).
func (r *Runtime) leaveStep(job *state.Job, st *state.State) []core.Effect {
	var effects []core.Effect
	cur := job.CurrentStepRecord()
	if cur == nil || cur.AgentId == nil {
		return effects
	}
	effects = append(effects,
		core.CancelTimer{Id: core.LivenessTimer(job.Id)},
		core.CancelTimer{Id: core.ExitDeferredTimer(job.Id)},
	)
	r.deregisterOwner(*cur.AgentId)
	if job.SessionId != nil {
		effects = append(effects, core.KillSession{SessionId: *job.SessionId})
		effects = append(effects, emit(&core.SessionDeleted{Id: *job.SessionId}))
	}
	return effects
}

// advanceJob implements spec.md §4.9.2's advance_job policy.
func (r *Runtime) advanceJob(jobId core.JobId, st *state.State) []core.Effect {
	job := st.Jobs[jobId]
	if job == nil {
		return nil
	}
	if job.IsTerminal() {
		return nil
	}

	var effects []core.Effect
	effects = append(effects, r.leaveStep(job, st)...)
	effects = append(effects, emit(&core.StepCompleted{JobId: jobId, Step: job.Step}))

	rb := r.runbookFor(st, job.RunbookHash)
	next := ""
	if rb != nil {
		if jobDef, ok := rb.Job[job.Kind]; ok {
			next = nextStepTarget(jobDef, job.Step, "on_done", jobDef.OnDone)
		}
	}
	if next == "" {
		if job.Cancelling {
			return append(effects, r.terminate(job, "cancelled")...)
		}
		return append(effects, r.terminate(job, "done")...)
	}
	return append(effects, r.enterStep(job, next, st)...)
}

// failJob implements spec.md §4.9.2's fail_job mirror of advance_job.
func (r *Runtime) failJob(jobId core.JobId, errMsg string, st *state.State) []core.Effect {
	job := st.Jobs[jobId]
	if job == nil || job.IsTerminal() {
		return nil
	}

	var effects []core.Effect
	effects = append(effects, r.leaveStep(job, st)...)
	effects = append(effects, emit(&core.StepFailed{JobId: jobId, Step: job.Step, Error: errMsg}))

	rb := r.runbookFor(st, job.RunbookHash)
	next := ""
	if rb != nil {
		if jobDef, ok := rb.Job[job.Kind]; ok {
			next = nextStepTarget(jobDef, job.Step, "on_fail", jobDef.OnFail)
		}
	}
	if next == "" {
		return append(effects, r.terminate(job, "failed")...)
	}
	return append(effects, r.enterStep(job, next, st)...)
}

// cancelJob implements spec.md §4.9.2's cancel_job: a no-op if already
// terminal or already mid-cleanup.
func (r *Runtime) cancelJob(jobId core.JobId, st *state.State) []core.Effect {
	job := st.Jobs[jobId]
	if job == nil || job.IsTerminal() || job.Cancelling {
		return nil
	}

	var effects []core.Effect
	effects = append(effects, r.leaveStep(job, st)...)
	effects = append(effects, emit(&core.JobCancelling{Id: jobId}))

	rb := r.runbookFor(st, job.RunbookHash)
	next := ""
	if rb != nil {
		if jobDef, ok := rb.Job[job.Kind]; ok {
			next = nextStepTarget(jobDef, job.Step, "on_cancel", jobDef.OnCancel)
		}
	}
	if next == "" {
		return append(effects, r.terminate(job, "cancelled")...)
	}
	return append(effects, r.enterStep(job, next, st)...)
}

func (r *Runtime) handleJobCancel(e *core.JobCancel, st *state.State) []core.Effect {
	return r.cancelJob(e.Id, st)
}

// nextStepTarget resolves the step-level fallback, then the job-level
// fallback, for the named fallback kind (spec.md §4.9.2 step 4).
func nextStepTarget(jobDef runbook.Job, currentStep, fallback, jobLevel string) string {
	for _, s := range jobDef.Step {
		if s.Name != currentStep {
			continue
		}
		switch fallback {
		case "on_done":
			if s.OnDone != "" {
				return s.OnDone
			}
		case "on_fail":
			if s.OnFail != "" {
				return s.OnFail
			}
		case "on_cancel":
			if s.OnCancel != "" {
				return s.OnCancel
			}
		}
		break
	}
	return jobLevel
}

// terminate transitions the job to one of the three terminal steps. Failed
// terminal transitions carry the on_fail notification (spec.md §4.9.2);
// breadcrumb deletion happens in the daemon's breadcrumb watcher, which
// reacts to JobAdvanced reaching a terminal step.
func (r *Runtime) terminate(job *state.Job, step string) []core.Effect {
	effects := []core.Effect{emit(&core.JobAdvanced{Id: job.Id, Step: step})}
	if step == "failed" {
		effects = append(effects, core.Notify{
			Title:   "oj job failed",
			Message: fmt.Sprintf("%s (%s)", job.Name, job.Id),
		})
	}
	return effects
}

// enterStep bounds re-entry via the circuit breaker (spec.md invariant 7)
// before advancing the job pointer and starting the new step.
func (r *Runtime) enterStep(job *state.Job, step string, st *state.State) []core.Effect {
	if job.StepVisits[step] >= r.cfg.MaxStepVisits {
		return []core.Effect{
			emit(&core.JobAdvanced{Id: job.Id, Step: "failed"}),
			core.Notify{Title: "oj circuit breaker", Message: fmt.Sprintf("job %s: step %q exceeded %d visits", job.Id, step, r.cfg.MaxStepVisits)},
		}
	}
	effects := []core.Effect{emit(&core.JobAdvanced{Id: job.Id, Step: step})}
	effects = append(effects, r.startStep(job.Id, step, st)...)
	return effects
}

// handleJobAdvanced is a no-op handler: JobAdvanced's side effects (step
// start) are produced inline by enterStep/terminate at the point the event
// is emitted, not re-derived when the engine loop folds it back in. This
// keeps startStep from running twice for the same transition.
func (r *Runtime) handleJobAdvanced(e *core.JobAdvanced, st *state.State) []core.Effect {
	return nil
}
