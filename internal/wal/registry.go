package wal

import (
	"encoding/json"
	"fmt"

	"github.com/groblegark/oddjobs/internal/core"
)

// Registry maps an event's wire name back to a constructor, so the WAL
// reader can decode a frame without the core package needing any reflection
// or a central switch statement that every new event type would have to
// extend in two places.
type Registry struct {
	ctors map[string]func() core.Event
}

// NewRegistry returns a Registry preloaded with every event type defined in
// internal/core.
func NewRegistry() *Registry {
	r := &Registry{ctors: make(map[string]func() core.Event)}
	for _, reg := range []struct {
		name  string
		ctor  func() core.Event
	}{
		{"job:created", func() core.Event { return &core.JobCreated{} }},
		{"job:advanced", func() core.Event { return &core.JobAdvanced{} }},
		{"job:updated", func() core.Event { return &core.JobUpdated{} }},
		{"job:resume", func() core.Event { return &core.JobResume{} }},
		{"job:cancel", func() core.Event { return &core.JobCancel{} }},
		{"job:cancelling", func() core.Event { return &core.JobCancelling{} }},
		{"job:deleted", func() core.Event { return &core.JobDeleted{} }},
		{"command:run", func() core.Event { return &core.CommandRun{} }},
		{"runbook:loaded", func() core.Event { return &core.RunbookLoaded{} }},
		{"session:created", func() core.Event { return &core.SessionCreated{} }},
		{"session:input", func() core.Event { return &core.SessionInput{} }},
		{"session:deleted", func() core.Event { return &core.SessionDeleted{} }},
		{"shell:exited", func() core.Event { return &core.ShellExited{} }},
		{"step:started", func() core.Event { return &core.StepStarted{} }},
		{"step:waiting", func() core.Event { return &core.StepWaiting{} }},
		{"step:completed", func() core.Event { return &core.StepCompleted{} }},
		{"step:failed", func() core.Event { return &core.StepFailed{} }},
		{"agent:working", func() core.Event { return &core.AgentWorking{} }},
		{"agent:waiting", func() core.Event { return &core.AgentWaiting{} }},
		{"agent:idle", func() core.Event { return &core.AgentIdle{} }},
		{"agent:prompt", func() core.Event { return &core.AgentPrompt{} }},
		{"agent:failed", func() core.Event { return &core.AgentFailed{} }},
		{"agent:exited", func() core.Event { return &core.AgentExited{} }},
		{"agent:gone", func() core.Event { return &core.AgentGone{} }},
		{"agent:signal", func() core.Event { return &core.AgentSignal{} }},
		{"agent:stop", func() core.Event { return &core.AgentStop{} }},
		{"workspace:created", func() core.Event { return &core.WorkspaceCreated{} }},
		{"workspace:ready", func() core.Event { return &core.WorkspaceReady{} }},
		{"workspace:failed", func() core.Event { return &core.WorkspaceFailed{} }},
		{"workspace:deleted", func() core.Event { return &core.WorkspaceDeleted{} }},
		{"worker:started", func() core.Event { return &core.WorkerStarted{} }},
		{"worker:wake", func() core.Event { return &core.WorkerWake{} }},
		{"worker:poll_complete", func() core.Event { return &core.WorkerPollComplete{} }},
		{"worker:item_dispatched", func() core.Event { return &core.WorkerItemDispatched{} }},
		{"worker:stopped", func() core.Event { return &core.WorkerStopped{} }},
		{"worker:deleted", func() core.Event { return &core.WorkerDeleted{} }},
		{"worker:take_complete", func() core.Event { return &core.WorkerTakeComplete{} }},
		{"queue:pushed", func() core.Event { return &core.QueuePushed{} }},
		{"queue:taken", func() core.Event { return &core.QueueTaken{} }},
		{"queue:completed", func() core.Event { return &core.QueueCompleted{} }},
		{"queue:failed", func() core.Event { return &core.QueueFailed{} }},
		{"queue:dropped", func() core.Event { return &core.QueueDropped{} }},
		{"queue:item_retry", func() core.Event { return &core.QueueItemRetry{} }},
		{"queue:item_dead", func() core.Event { return &core.QueueItemDead{} }},
		{"cron:started", func() core.Event { return &core.CronStarted{} }},
		{"cron:stopped", func() core.Event { return &core.CronStopped{} }},
		{"cron:fired", func() core.Event { return &core.CronFired{} }},
		{"cron:deleted", func() core.Event { return &core.CronDeleted{} }},
		{"decision:created", func() core.Event { return &core.DecisionCreated{} }},
		{"decision:resolved", func() core.Event { return &core.DecisionResolved{} }},
		{"agent_run:created", func() core.Event { return &core.AgentRunCreated{} }},
		{"agent_run:started", func() core.Event { return &core.AgentRunStarted{} }},
		{"agent_run:status_changed", func() core.Event { return &core.AgentRunStatusChanged{} }},
		{"agent_run:deleted", func() core.Event { return &core.AgentRunDeleted{} }},
		{"timer:fired", func() core.Event { return &core.TimerFired{} }},
		{"daemon:shutdown", func() core.Event { return &core.Shutdown{} }},
	} {
		r.ctors[reg.name] = reg.ctor
	}
	return r
}

// Decode unmarshals payload into a fresh instance of the event named name.
func (r *Registry) Decode(name string, payload []byte) (core.Event, error) {
	ctor, ok := r.ctors[name]
	if !ok {
		return nil, fmt.Errorf("wal: unknown event name %q", name)
	}
	ev := ctor()
	if err := json.Unmarshal(payload, ev); err != nil {
		return nil, fmt.Errorf("wal: unmarshal %s: %w", name, err)
	}
	// ev is a pointer to a concrete struct; deref through the interface is
	// not possible generically, so each event's EventName() is a value
	// method and the pointer still satisfies core.Event.
	return ev, nil
}
