// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package rpc

import (
	"context"
	"fmt"

	"github.com/groblegark/oddjobs/internal/core"
	"github.com/groblegark/oddjobs/internal/state"
)

// Deps wires the domain handlers to the running daemon via accessor
// closures rather than direct pointers, since the engine and event bus
// don't exist yet when a Daemon is constructed (daemon.New requires an
// RPCServer up front, but the bus/engine are only wired during Start, per
// spec.md §4.10's ordered startup). cmd/ojd binds these to Daemon methods
// that forward to whichever instance is live by the time a connection
// actually arrives — always after Start has finished wiring them.
type Deps struct {
	Submit          func(core.Event)
	State           func() *state.State
	ResolveAgentJob func(core.AgentId) (*core.JobId, bool)
	Now             func() int64
}

// RegisterDomainHandlers registers spec.md §4.9's command surface — job
// lifecycle, decisions, and the agent stop-hook callback — against
// registry. cmd/ojd wires this into the same Registry passed to NewServer.
func RegisterDomainHandlers(registry *Registry, deps Deps) {
	registry.Register("job.create", deps.handleJobCreate)
	registry.Register("job.get", deps.handleJobGet)
	registry.Register("job.list", deps.handleJobList)
	registry.Register("job.cancel", deps.handleJobCancel)
	registry.Register("job.resume", deps.handleJobResume)
	registry.Register("decision.resolve", deps.handleDecisionResolve)
	registry.Register("agent.signal", deps.handleAgentSignal)
}

type jobCreateParams struct {
	JobName     string            `json:"job_name"`
	ProjectRoot string            `json:"project_root"`
	InvokeDir   string            `json:"invoke_dir"`
	Namespace   string            `json:"namespace"`
	Command     string            `json:"command"`
	Args        []string          `json:"args"`
	Vars        map[string]string `json:"vars"`
}

func (d Deps) handleJobCreate(ctx context.Context, req *Message) (*Message, error) {
	var p jobCreateParams
	if err := req.UnmarshalParams(&p); err != nil {
		return nil, fmt.Errorf("job.create: %w", err)
	}
	if p.JobName == "" {
		return nil, fmt.Errorf("job.create: job_name is required")
	}
	d.Submit(&core.CommandRun{
		JobName:     p.JobName,
		ProjectRoot: p.ProjectRoot,
		InvokeDir:   p.InvokeDir,
		Namespace:   p.Namespace,
		Command:     p.Command,
		Args:        p.Args,
	})
	return NewResponse(req.CorrelationID, map[string]bool{"accepted": true})
}

type jobIdParams struct {
	Id string `json:"id"`
}

func (d Deps) handleJobGet(ctx context.Context, req *Message) (*Message, error) {
	var p jobIdParams
	if err := req.UnmarshalParams(&p); err != nil {
		return nil, fmt.Errorf("job.get: %w", err)
	}
	job, ok := d.State().Jobs[core.JobId(p.Id)]
	if !ok {
		return nil, fmt.Errorf("job.get: unknown job %q", p.Id)
	}
	return NewResponse(req.CorrelationID, job)
}

func (d Deps) handleJobList(ctx context.Context, req *Message) (*Message, error) {
	st := d.State()
	jobs := make([]*state.Job, 0, len(st.Jobs))
	for _, j := range st.Jobs {
		jobs = append(jobs, j)
	}
	return NewResponse(req.CorrelationID, jobs)
}

func (d Deps) handleJobCancel(ctx context.Context, req *Message) (*Message, error) {
	var p jobIdParams
	if err := req.UnmarshalParams(&p); err != nil {
		return nil, fmt.Errorf("job.cancel: %w", err)
	}
	d.Submit(&core.JobCancel{Id: core.JobId(p.Id)})
	return NewResponse(req.CorrelationID, map[string]bool{"accepted": true})
}

type jobResumeParams struct {
	Id      string            `json:"id"`
	Message *string           `json:"message,omitempty"`
	Vars    map[string]string `json:"vars,omitempty"`
}

func (d Deps) handleJobResume(ctx context.Context, req *Message) (*Message, error) {
	var p jobResumeParams
	if err := req.UnmarshalParams(&p); err != nil {
		return nil, fmt.Errorf("job.resume: %w", err)
	}
	d.Submit(&core.JobResume{Id: core.JobId(p.Id), Message: p.Message, Vars: p.Vars})
	return NewResponse(req.CorrelationID, map[string]bool{"accepted": true})
}

type decisionResolveParams struct {
	Id      string  `json:"id"`
	Chosen  string  `json:"chosen"`
	Message *string `json:"message,omitempty"`
}

func (d Deps) handleDecisionResolve(ctx context.Context, req *Message) (*Message, error) {
	var p decisionResolveParams
	if err := req.UnmarshalParams(&p); err != nil {
		return nil, fmt.Errorf("decision.resolve: %w", err)
	}
	if p.Chosen == "" {
		return nil, fmt.Errorf("decision.resolve: chosen is required")
	}
	d.Submit(&core.DecisionResolved{
		Id: core.DecisionId(p.Id), Chosen: p.Chosen, Message: p.Message,
		ResolvedAtMs: d.Now(),
	})
	return NewResponse(req.CorrelationID, map[string]bool{"accepted": true})
}

type agentSignalParams struct {
	AgentId string  `json:"agent_id"`
	Kind    string  `json:"kind"`
	Message *string `json:"message,omitempty"`
}

// handleAgentSignal is the stop-hook callback an agent CLI invokes on its
// own exit/escalation. The raw hook only knows its own AgentId; the
// runtime's agent->job index resolves the owning JobId before the event
// is submitted, per core.AgentSignal's doc comment.
func (d Deps) handleAgentSignal(ctx context.Context, req *Message) (*Message, error) {
	var p agentSignalParams
	if err := req.UnmarshalParams(&p); err != nil {
		return nil, fmt.Errorf("agent.signal: %w", err)
	}
	agentId := core.AgentId(p.AgentId)
	var jobId *core.JobId
	if jid, ok := d.ResolveAgentJob(agentId); ok {
		jobId = jid
	}
	d.Submit(&core.AgentSignal{
		AgentId: agentId, JobId: jobId,
		Kind: core.AgentSignalKind(p.Kind), Message: p.Message,
	})
	return NewResponse(req.CorrelationID, map[string]bool{"accepted": true})
}
