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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/groblegark/oddjobs/internal/core"
	"github.com/groblegark/oddjobs/internal/state"
)

func newTestDeps(t *testing.T) (Deps, *[]core.Event) {
	var submitted []core.Event
	deps := Deps{
		Submit: func(ev core.Event) { submitted = append(submitted, ev) },
		State:  func() *state.State { return state.New() },
		ResolveAgentJob: func(core.AgentId) (*core.JobId, bool) {
			id := core.JobId("job-1")
			return &id, true
		},
		Now: func() int64 { return 1000 },
	}
	return deps, &submitted
}

func TestRegisterDomainHandlers_RegistersAllMethods(t *testing.T) {
	registry := NewRegistry()
	deps, _ := newTestDeps(t)
	RegisterDomainHandlers(registry, deps)

	for _, method := range []string{
		"job.create", "job.get", "job.list", "job.cancel",
		"job.resume", "decision.resolve", "agent.signal",
	} {
		assert.True(t, registry.HasMethod(method), "expected %s to be registered", method)
	}
}

func TestHandleJobCreate_SubmitsCommandRun(t *testing.T) {
	deps, submitted := newTestDeps(t)
	req, err := NewRequest("job.create", jobCreateParams{JobName: "build", ProjectRoot: "/tmp/proj"})
	require.NoError(t, err)

	resp, err := deps.handleJobCreate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, MessageTypeResponse, resp.Type)

	require.Len(t, *submitted, 1)
	cmd, ok := (*submitted)[0].(*core.CommandRun)
	require.True(t, ok)
	assert.Equal(t, "build", cmd.JobName)
	assert.Equal(t, "/tmp/proj", cmd.ProjectRoot)
}

func TestHandleJobCreate_RequiresJobName(t *testing.T) {
	deps, _ := newTestDeps(t)
	req, err := NewRequest("job.create", jobCreateParams{})
	require.NoError(t, err)

	_, err = deps.handleJobCreate(context.Background(), req)
	assert.Error(t, err)
}

func TestHandleJobCancel_SubmitsJobCancel(t *testing.T) {
	deps, submitted := newTestDeps(t)
	req, err := NewRequest("job.cancel", jobIdParams{Id: "job-1"})
	require.NoError(t, err)

	_, err = deps.handleJobCancel(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, *submitted, 1)
	ev, ok := (*submitted)[0].(*core.JobCancel)
	require.True(t, ok)
	assert.Equal(t, core.JobId("job-1"), ev.Id)
}

func TestHandleDecisionResolve_StampsClock(t *testing.T) {
	deps, submitted := newTestDeps(t)
	req, err := NewRequest("decision.resolve", decisionResolveParams{Id: "d-1", Chosen: "approve"})
	require.NoError(t, err)

	_, err = deps.handleDecisionResolve(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, *submitted, 1)
	ev, ok := (*submitted)[0].(*core.DecisionResolved)
	require.True(t, ok)
	assert.Equal(t, "approve", ev.Chosen)
	assert.Equal(t, int64(1000), ev.ResolvedAtMs)
}

func TestHandleDecisionResolve_RequiresChosen(t *testing.T) {
	deps, _ := newTestDeps(t)
	req, err := NewRequest("decision.resolve", decisionResolveParams{Id: "d-1"})
	require.NoError(t, err)

	_, err = deps.handleDecisionResolve(context.Background(), req)
	assert.Error(t, err)
}

func TestHandleAgentSignal_ResolvesOwningJob(t *testing.T) {
	deps, submitted := newTestDeps(t)
	req, err := NewRequest("agent.signal", agentSignalParams{AgentId: "agent-1", Kind: "complete"})
	require.NoError(t, err)

	_, err = deps.handleAgentSignal(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, *submitted, 1)
	ev, ok := (*submitted)[0].(*core.AgentSignal)
	require.True(t, ok)
	require.NotNil(t, ev.JobId)
	assert.Equal(t, core.JobId("job-1"), *ev.JobId)
	assert.Equal(t, core.AgentSignalComplete, ev.Kind)
}

func TestHandleJobList_ReturnsEmptySlice(t *testing.T) {
	deps, _ := newTestDeps(t)
	req, err := NewRequest("job.list", nil)
	require.NoError(t, err)

	resp, err := deps.handleJobList(context.Background(), req)
	require.NoError(t, err)

	var jobs []*state.Job
	require.NoError(t, resp.UnmarshalResult(&jobs))
	assert.Empty(t, jobs)
}
