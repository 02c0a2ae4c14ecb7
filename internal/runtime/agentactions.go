package runtime

import (
	"github.com/groblegark/oddjobs/internal/core"
	"github.com/groblegark/oddjobs/internal/executor"
	"github.com/groblegark/oddjobs/internal/runbook"
	"github.com/groblegark/oddjobs/internal/runbook/interp"
	"github.com/groblegark/oddjobs/internal/state"
)

// monitorState is the watcher-observed state of spec.md §4.6/§4.9.3.
type monitorState int

const (
	stateWorking monitorState = iota
	stateWaitingForInput
	statePrompting
	stateFailed
	stateExited
	stateGone
)

// handleAgentState routes a watcher-observed MonitorState transition to the
// matching action group (spec.md §4.9.3).
func (r *Runtime) handleAgentState(agentId core.AgentId, ms monitorState, agentErr *core.AgentError, exitCode *int, st *state.State) []core.Effect {
	o, ok := r.ownerOf(agentId)
	if !ok {
		return nil
	}
	if o.kind == ownerAgentRun {
		return r.handleStandaloneAgentState(agentId, o.run, ms, agentErr, st)
	}
	job := st.Jobs[o.job]
	if job == nil || job.IsTerminal() {
		return nil
	}
	rb := r.runbookFor(st, job.RunbookHash)
	if rb == nil {
		return nil
	}
	agentName := ""
	if cur := job.CurrentStepRecord(); cur != nil && cur.AgentName != nil {
		agentName = *cur.AgentName
	}
	agentDef, ok := rb.Agent[agentName]
	if !ok {
		return nil
	}

	switch ms {
	case stateWorking:
		effects := []core.Effect{core.CancelTimer{Id: core.IdleGraceTimer(job.Id)}}
		if job.StepStatus.IsWaiting() && r.pastAntiNudgeWindow(job) {
			effects = append(effects, emit(&core.JobResume{Id: job.Id}))
		}
		job.ResetActionAttempts()
		return effects

	case stateWaitingForInput:
		return r.runActionGroup(job, agentDef.OnIdle, "on_idle", 0, st)

	case statePrompting:
		return r.runActionGroup(job, agentDef.OnPrompt, "on_prompt", 0, st)

	case stateFailed:
		chain := matchErrorAction(agentDef.OnError, agentErr)
		return r.runActionGroup(job, chain, "on_error", 0, st)

	case stateExited, stateGone:
		return r.runActionGroup(job, agentDef.OnDead, "on_dead", 0, st)
	}
	return nil
}

func (r *Runtime) pastAntiNudgeWindow(job *state.Job) bool {
	if job.LastNudgeAt == nil {
		return true
	}
	return r.clock.EpochMs()-*job.LastNudgeAt >= r.cfg.AntiNudgeMs
}

func matchErrorAction(rules []runbook.ErrorAction, agentErr *core.AgentError) []runbook.ActionConfig {
	if agentErr == nil {
		return nil
	}
	var fallback []runbook.ActionConfig
	for _, rule := range rules {
		if rule.Match == "" {
			fallback = rule.Action
			continue
		}
		if rule.Match == string(agentErr.Kind) {
			return rule.Action
		}
	}
	return fallback
}

// handleAgentPrompt materializes a Question Decision synchronously before
// the agent is treated as idle (spec.md §4.9.3's "Question prompts" note).
func (r *Runtime) handleAgentPrompt(e *core.AgentPrompt, st *state.State) []core.Effect {
	if e.PromptType != core.PromptQuestion || e.QuestionData == nil {
		return r.handleAgentState(e.AgentId, statePrompting, nil, nil, st)
	}
	o, ok := r.ownerOf(e.AgentId)
	if !ok || o.kind != ownerJob {
		return nil
	}
	job := st.Jobs[o.job]
	if job == nil {
		return nil
	}
	options := append([]string{}, e.QuestionData.Options...)
	options = append(options, "Cancel") // final Cancel option by convention
	ctxMap := map[string]string{"prompt": e.QuestionData.Prompt}
	return []core.Effect{
		emit(&core.DecisionCreated{
			Id: r.ids.NewDecisionId(), JobId: job.Id, AgentId: &e.AgentId,
			Source: "question", Context: ctxMap, Options: options,
			CreatedAtMs: r.clock.EpochMs(), Namespace: job.Namespace,
		}),
		core.CancelTimer{Id: core.ExitDeferredTimer(job.Id)},
	}
}

// runActionGroup implements execute_action_with_attempts (spec.md §4.9.3).
func (r *Runtime) runActionGroup(job *state.Job, chain []runbook.ActionConfig, trigger string, chainPos int, st *state.State) []core.Effect {
	if chainPos >= len(chain) {
		return r.runEscalate(job, "", st)
	}
	cfg := chain[chainPos]
	attempt := job.IncrementActionAttempt(trigger, chainPos)
	if cfg.Attempts > 0 && attempt > cfg.Attempts {
		return r.runActionGroup(job, chain, trigger, chainPos+1, st)
	}
	if attempt > 1 && cfg.Cooldown != "" {
		d, err := parseDuration(cfg.Cooldown)
		if err == nil {
			return []core.Effect{core.SetTimer{Id: core.CooldownTimer(job.Id, trigger, chainPos), Duration: d}}
		}
	}
	return r.runAction(job, cfg, trigger, chainPos, st)
}

func (r *Runtime) runAction(job *state.Job, cfg runbook.ActionConfig, trigger string, chainPos int, st *state.State) []core.Effect {
	switch cfg.Action {
	case "nudge":
		msg := interp.Expand(cfg.Message, job.Vars)
		cur := job.CurrentStepRecord()
		if cur == nil || cur.AgentId == nil {
			return nil
		}
		now := r.clock.EpochMs()
		job.LastNudgeAt = &now
		return []core.Effect{core.SendToAgent{AgentId: *cur.AgentId, Input: msg}}

	case "advance", "done":
		return r.advanceJob(job.Id, st)

	case "fail":
		return r.failJob(job.Id, interp.Expand(cfg.Message, job.Vars), st)

	case "resume":
		cur := job.CurrentStepRecord()
		var effects []core.Effect
		if cur != nil && job.SessionId != nil {
			effects = append(effects, core.KillSession{SessionId: *job.SessionId})
		}
		agentName := ""
		if cur != nil && cur.AgentName != nil {
			agentName = *cur.AgentName
		}
		rb := r.runbookFor(st, job.RunbookHash)
		if rb != nil {
			if agentDef, ok := rb.Agent[agentName]; ok {
				effects = append(effects, r.spawnAgent(job.Id, job.Step, agentName, agentDef, job, st)...)
			}
		}
		return effects

	case "escalate":
		return r.runEscalate(job, interp.Expand(cfg.Message, job.Vars), st)

	case "gate":
		cmd := interp.Expand(cfg.Run, job.Vars)
		cwd := job.Cwd
		if job.WorkspacePath != nil {
			cwd = *job.WorkspacePath
		}
		pass, output := executor.RunGateNow(core.RunGate{JobId: job.Id, Command: cmd, Cwd: cwd}, r.cfg.GateTimeout)
		if pass {
			effects := r.advanceJob(job.Id, st)
			return append(effects, core.Notify{Title: "oj gate passed", Message: job.Name})
		}
		return []core.Effect{
			emit(&core.DecisionCreated{
				Id: r.ids.NewDecisionId(), JobId: job.Id, Source: "gate_failed",
				Context: map[string]string{"output": output}, Options: []string{"retry", "override", "cancel"},
				CreatedAtMs: r.clock.EpochMs(), Namespace: job.Namespace,
			}),
		}

	default:
		return nil
	}
}

func (r *Runtime) runEscalate(job *state.Job, message string, st *state.State) []core.Effect {
	return []core.Effect{
		emit(&core.DecisionCreated{
			Id: r.ids.NewDecisionId(), JobId: job.Id, Source: "escalate",
			Context: map[string]string{"message": message}, Options: []string{"resume", "cancel"},
			CreatedAtMs: r.clock.EpochMs(), Namespace: job.Namespace,
		}),
		core.CancelTimer{Id: core.ExitDeferredTimer(job.Id)},
		core.Notify{Title: "oj job escalated", Message: job.Name + ": " + message},
	}
}

// handleStandaloneAgentState mirrors the job-owned action DAG for a
// standalone AgentRun (spec.md §4.9.3's CompleteAgentRun/FailAgentRun/
// EscalateAgentRun terminal transitions), without a job's step/on_* chain.
func (r *Runtime) handleStandaloneAgentState(agentId core.AgentId, runId core.AgentRunId, ms monitorState, agentErr *core.AgentError, st *state.State) []core.Effect {
	run := st.AgentRuns[runId]
	if run == nil || run.IsTerminal() {
		return nil
	}
	switch ms {
	case stateWorking:
		return nil
	case stateWaitingForInput, statePrompting:
		return []core.Effect{emit(&core.AgentRunStatusChanged{Id: runId, Status: core.AgentRunEscalated})}
	case stateFailed:
		msg := ""
		if agentErr != nil {
			msg = agentErr.Message
		}
		var effects []core.Effect
		if run.SessionId != nil {
			effects = append(effects, core.KillSession{SessionId: *run.SessionId})
		}
		return append(effects, emit(&core.AgentRunStatusChanged{Id: runId, Status: core.AgentRunFailed, Error: &msg}))
	case stateExited, stateGone:
		var effects []core.Effect
		if run.SessionId != nil {
			effects = append(effects, core.KillSession{SessionId: *run.SessionId})
		}
		return append(effects, emit(&core.AgentRunStatusChanged{Id: runId, Status: core.AgentRunCompleted}))
	}
	return nil
}
