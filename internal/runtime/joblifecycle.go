package runtime

import (
	"path/filepath"

	"github.com/groblegark/oddjobs/internal/core"
	"github.com/groblegark/oddjobs/internal/runbook"
	"github.com/groblegark/oddjobs/internal/runbook/interp"
	"github.com/groblegark/oddjobs/internal/state"
)

// handleCommandRun turns an external command invocation into a JobCreated,
// per spec.md §4.9.1.
func (r *Runtime) handleCommandRun(e *core.CommandRun, st *state.State) []core.Effect {
	rb := r.runbookForJob(st, e.JobName)
	if rb == nil {
		return nil
	}
	jobDef, ok := rb.Job[e.JobName]
	if !ok || len(jobDef.Step) == 0 {
		return nil
	}
	vars := make(map[string]string, len(jobDef.Vars))
	for k, v := range jobDef.Vars {
		vars[k] = v
	}
	for k, v := range jobDef.Locals {
		vars[k] = v
	}
	cwd := jobDef.Cwd
	if cwd == "" {
		cwd = e.ProjectRoot
	}
	return []core.Effect{emit(&core.JobCreated{
		Id: r.ids.NewJobId(), Kind: e.JobName, Name: e.JobName,
		RunbookHash: r.currentRunbookHash(st), Cwd: cwd, Vars: vars,
		InitialStep: jobDef.Step[0].Name, CreatedAtMs: r.clock.EpochMs(),
		Namespace: e.Namespace, InvokeDir: e.InvokeDir,
	})}
}

// runbookForJob is a best-effort lookup used before a Job exists (no
// RunbookHash on the event yet), scanning the decoded cache for a matching
// job name. In production exactly one runbook is loaded per project root.
func (r *Runtime) runbookForJob(st *state.State, jobName string) *runbook.Runbook {
	for hash := range st.Runbooks {
		rb := r.runbookFor(st, hash)
		if rb == nil {
			continue
		}
		if _, ok := rb.Job[jobName]; ok {
			return rb
		}
	}
	return nil
}

func (r *Runtime) currentRunbookHash(st *state.State) string {
	for hash := range st.Runbooks {
		return hash
	}
	return ""
}

// handleJobCreated starts the initial step (spec.md §4.9.1) and, if the
// job's runbook requests one, creates its Workspace first.
func (r *Runtime) handleJobCreated(e *core.JobCreated, st *state.State) []core.Effect {
	var effects []core.Effect
	rb := r.runbookFor(st, e.RunbookHash)
	if rb != nil {
		if jobDef, ok := rb.Job[e.Kind]; ok && jobDef.Workspace != nil {
			mode := core.WorkspacePlain
			if jobDef.Workspace.Mode == "worktree" {
				mode = core.WorkspaceWorktree
			}
			wsId := r.ids.NewWorkspaceId()
			branch := interp.Expand(jobDef.Workspace.Branch, e.Vars)
			wsPath := filepath.Join(r.cfg.WorkspaceRoot, wsId.String())
			effects = append(effects, core.CreateWorkspace{
				Id: wsId, JobId: &e.Id, Owner: e.Name, Mode: mode,
				Path: wsPath, Branch: branch,
				StartPoint: jobDef.Workspace.StartPoint, SourceRepo: jobDef.Workspace.SourceRepo,
			})
			effects = append(effects, emit(&core.WorkspaceCreated{
				Id: wsId, JobId: &e.Id, Path: wsPath, Owner: e.Name, Mode: mode,
				Branch: &branch,
			}))
		}
	}
	effects = append(effects, r.startStep(e.Id, e.InitialStep, st)...)
	return effects
}

// startStep resolves a step's run directive and begins executing it
// (spec.md §4.9.1).
func (r *Runtime) startStep(jobId core.JobId, step string, st *state.State) []core.Effect {
	job := st.Jobs[jobId]
	if job == nil {
		return nil
	}
	rb := r.runbookFor(st, job.RunbookHash)
	if rb == nil {
		return nil
	}
	jobDef, ok := rb.Job[job.Kind]
	if !ok {
		return nil
	}
	var stepDef *runbook.Step
	for i := range jobDef.Step {
		if jobDef.Step[i].Name == step {
			stepDef = &jobDef.Step[i]
			break
		}
	}
	if stepDef == nil {
		return nil
	}

	switch stepDef.Run.Kind() {
	case "shell":
		cmd := interp.Expand(stepDef.Run.Shell, job.Vars)
		env := interp.Env(job.Vars, job.Namespace, nil)
		return []core.Effect{core.Shell{JobId: jobId, Step: step, Command: cmd, Cwd: job.Cwd, Env: env}}

	case "agent":
		agentDef, ok := rb.Agent[stepDef.Run.Agent]
		if !ok {
			return []core.Effect{emit(&core.StepFailed{JobId: jobId, Step: step, Error: "undefined agent " + stepDef.Run.Agent})}
		}
		return r.spawnAgent(jobId, step, stepDef.Run.Agent, agentDef, job, st)

	default: // nested job
		return []core.Effect{emit(&core.StepFailed{JobId: jobId, Step: step, Error: "nested job steps are not yet supported"})}
	}
}

func (r *Runtime) spawnAgent(jobId core.JobId, step, agentName string, agentDef runbook.Agent, job *state.Job, st *state.State) []core.Effect {
	agentId := r.ids.NewAgentId()
	r.registerJobOwner(agentId, jobId)
	prompt := interp.Expand(agentDef.Prompt, job.Vars)
	env := interp.Env(job.Vars, job.Namespace, agentDef.Env)
	workspacePath := job.Cwd
	if job.WorkspacePath != nil {
		workspacePath = *job.WorkspacePath
	}
	return []core.Effect{
		core.SpawnAgent{
			AgentId: agentId, AgentName: agentName, JobId: &jobId,
			Command: agentDef.Run, WorkspacePath: workspacePath, Cwd: workspacePath,
			Prompt: prompt, Env: env,
		},
		emit(&core.StepStarted{JobId: jobId, Step: step, AgentId: &agentId, AgentName: &agentName}),
		core.SetTimer{Id: core.LivenessTimer(jobId), Duration: durationMs(r.cfg.LivenessMs), Repeat: true},
	}
}

// handleShellExited routes a completed shell step to advance or fail the
// job (spec.md §4.9.1).
func (r *Runtime) handleShellExited(e *core.ShellExited, st *state.State) []core.Effect {
	job := st.Jobs[e.JobId]
	if job == nil || job.IsTerminal() {
		return nil
	}
	if e.ExitCode == 0 {
		return r.advanceJob(e.JobId, st)
	}
	return r.failJob(e.JobId, e.Stderr, st)
}
