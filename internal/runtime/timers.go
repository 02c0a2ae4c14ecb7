package runtime

import (
	"strconv"
	"strings"

	"github.com/groblegark/oddjobs/internal/core"
	"github.com/groblegark/oddjobs/internal/runbook"
	"github.com/groblegark/oddjobs/internal/state"
)

// handleTimerFired dispatches a fired TimerId by its structured prefix
// (spec.md §4.5/§4.9). The scheduler has already removed one-shots and
// re-armed repeats by the time this runs.
func (r *Runtime) handleTimerFired(e *core.TimerFired, st *state.State) []core.Effect {
	parts := strings.Split(string(e.Id), ":")
	if len(parts) == 0 {
		return nil
	}

	switch parts[0] {
	case "liveness":
		return r.timerOnAgent(core.JobId(parts[1]), stateGone, st)
	case "idle_grace":
		return r.timerOnAgent(core.JobId(parts[1]), stateWaitingForInput, st)
	case "exit_deferred":
		return r.timerOnAgent(core.JobId(parts[1]), stateExited, st)
	case "cooldown":
		return r.timerCooldown(parts, st)
	case "queue_retry":
		if len(parts) < 3 {
			return nil
		}
		return []core.Effect{emit(&core.QueueItemRetry{QueueName: core.QueueName(parts[1]), ItemId: core.QueueItemId(parts[2])})}
	case "cron_interval":
		if len(parts) < 2 {
			return nil
		}
		c := st.Crons[core.CronName(parts[1])]
		if c == nil {
			return nil
		}
		return r.runCron(c, c.ProjectRoot, st)
	}
	return nil
}

// timerOnAgent re-enters the watcher-observed-state dispatch for the agent
// currently occupying job's open step, since liveness/idle_grace/
// exit_deferred timers are keyed by JobId rather than AgentId.
func (r *Runtime) timerOnAgent(jobId core.JobId, ms monitorState, st *state.State) []core.Effect {
	job := st.Jobs[jobId]
	if job == nil || job.IsTerminal() {
		return nil
	}
	cur := job.CurrentStepRecord()
	if cur == nil || cur.AgentId == nil {
		return nil
	}
	return r.handleAgentState(*cur.AgentId, ms, nil, nil, st)
}

// timerCooldown re-runs the action deferred by a prior runActionGroup
// cooldown wait, at the same chain position (its attempt count was already
// incremented before the cooldown timer was set).
func (r *Runtime) timerCooldown(parts []string, st *state.State) []core.Effect {
	if len(parts) < 4 {
		return nil
	}
	jobId := core.JobId(parts[1])
	trigger := parts[2]
	chainPos, err := strconv.Atoi(parts[3])
	if err != nil {
		return nil
	}
	job := st.Jobs[jobId]
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
	chain := chainForTrigger(agentDef, trigger)
	if chainPos >= len(chain) {
		return r.runEscalate(job, "", st)
	}
	return r.runAction(job, chain[chainPos], trigger, chainPos, st)
}

func chainForTrigger(agentDef runbook.Agent, trigger string) []runbook.ActionConfig {
	switch trigger {
	case "on_idle":
		return agentDef.OnIdle
	case "on_prompt":
		return agentDef.OnPrompt
	case "on_dead":
		return agentDef.OnDead
	case "on_error":
		var fallback []runbook.ActionConfig
		for _, rule := range agentDef.OnError {
			if rule.Match == "" {
				fallback = rule.Action
			}
		}
		if fallback != nil {
			return fallback
		}
		if len(agentDef.OnError) > 0 {
			return agentDef.OnError[0].Action
		}
	}
	return nil
}
