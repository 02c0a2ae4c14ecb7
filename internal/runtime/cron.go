package runtime

import (
	"github.com/groblegark/oddjobs/internal/core"
	"github.com/groblegark/oddjobs/internal/state"
)

// handleCronFired creates the configured pipeline Job or AgentRun on every
// tick of a cron's repeating timer (spec.md §4.9.5).
func (r *Runtime) handleCronFired(e *core.CronFired, st *state.State) []core.Effect {
	c := st.Crons[e.CronName]
	if c == nil {
		return nil
	}
	return r.runCron(c, c.ProjectRoot, st)
}

// RunCronOnce bypasses the interval entirely (the `oj cron once` CLI path,
// spec.md §4.9.5), creating the Job immediately with invoke_dir =
// project_root.
func (r *Runtime) RunCronOnce(name core.CronName, st *state.State) []core.Effect {
	c := st.Crons[name]
	if c == nil {
		return nil
	}
	return r.runCron(c, c.ProjectRoot, st)
}

func (r *Runtime) runCron(c *state.CronRecord, invokeDir string, st *state.State) []core.Effect {
	rb := r.runbookForNamespace(st, c.Namespace)
	if rb == nil {
		return nil
	}
	if c.RunPipeline != nil {
		jobDef, ok := rb.Job[*c.RunPipeline]
		if !ok || len(jobDef.Step) == 0 {
			return nil
		}
		vars := make(map[string]string, len(jobDef.Vars))
		for k, v := range jobDef.Vars {
			vars[k] = v
		}
		return []core.Effect{emit(&core.JobCreated{
			Id: r.ids.NewJobId(), Kind: *c.RunPipeline, Name: *c.RunPipeline,
			RunbookHash: r.currentRunbookHash(st), Cwd: invokeDir, Vars: vars,
			InitialStep: jobDef.Step[0].Name, CreatedAtMs: r.clock.EpochMs(),
			Namespace: c.Namespace, CronName: c.Name.String(), InvokeDir: invokeDir,
		})}
	}
	if c.RunAgent != nil {
		agentDef, ok := rb.Agent[*c.RunAgent]
		if !ok {
			return nil
		}
		runId := r.ids.NewAgentRunId()
		vars := map[string]string{}
		agentId := r.ids.NewAgentId()
		r.registerRunOwner(agentId, runId)
		return []core.Effect{
			emit(&core.AgentRunCreated{Id: runId, AgentName: *c.RunAgent, Vars: vars, CreatedAtMs: r.clock.EpochMs(), Namespace: c.Namespace}),
			core.SpawnAgent{AgentId: agentId, AgentName: *c.RunAgent, AgentRunId: &runId, Command: agentDef.Run, Cwd: invokeDir, Prompt: agentDef.Prompt, Env: agentDef.Env},
			emit(&core.AgentRunStarted{Id: runId, AgentId: agentId}),
		}
	}
	return nil
}
