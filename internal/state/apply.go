package state

import (
	"encoding/json"
	"fmt"

	"github.com/groblegark/oddjobs/internal/core"
)

// ApplyEvent is the single pure fold at the heart of the system: every
// runtime-observable field of every entity is derived from exactly this
// function (spec.md §4.4). It never returns an error for "this event doesn't
// apply right now" — terminal absorption and dedup are expressed as silent
// no-ops, matching invariant 3 and invariant 8. It only errors on a
// genuinely malformed event (a type this registry doesn't know, which
// WAL.Decode would already have rejected earlier).
func ApplyEvent(s *State, ev core.Event) error {
	switch e := ev.(type) {

	case *core.JobCreated:
		applyJobCreated(s, e)
	case *core.JobAdvanced:
		applyJobAdvanced(s, e)
	case *core.JobUpdated:
		if j := s.Jobs[e.Id]; j != nil && !j.IsTerminal() {
			for k, v := range e.Vars {
				j.Vars[k] = v
			}
		}
	case *core.JobResume:
		if j := s.Jobs[e.Id]; j != nil && !j.IsTerminal() {
			j.StepStatus = StepStatus{Kind: StepRunning}
			for k, v := range e.Vars {
				j.Vars[k] = v
			}
		}
	case *core.JobCancel:
		// Pure trigger; cancel_job routing is a runtime decision.
	case *core.JobCancelling:
		if j := s.Jobs[e.Id]; j != nil {
			j.Cancelling = true
		}
	case *core.JobDeleted:
		applyJobDeleted(s, e)

	case *core.CommandRun:
		// Pure trigger; runtime turns this into JobCreated.
	case *core.RunbookLoaded:
		s.Runbooks[e.Hash] = &StoredRunbook{Hash: e.Hash, Version: e.Version, Raw: e.Raw}

	case *core.SessionCreated:
		s.Sessions[e.Id] = &Session{Id: e.Id, JobId: e.JobId, AgentRunId: e.AgentRunId}
		if e.JobId != nil {
			if j := s.Jobs[*e.JobId]; j != nil {
				j.SessionId = &e.Id
			}
		}
		if e.AgentRunId != nil {
			if r := s.AgentRuns[*e.AgentRunId]; r != nil {
				r.SessionId = &e.Id
			}
		}
	case *core.SessionInput:
		// Audit-only; no state mutation.
	case *core.SessionDeleted:
		delete(s.Sessions, e.Id)

	case *core.ShellExited:
		// Pure trigger; advance_job/fail_job routing is a runtime decision.

	case *core.StepStarted:
		if j := s.Jobs[e.JobId]; j != nil && !j.IsTerminal() {
			if rec := j.CurrentStepRecord(); rec != nil && rec.Name == e.Step {
				rec.AgentId = e.AgentId
				rec.AgentName = e.AgentName
			}
		}
	case *core.StepWaiting:
		if j := s.Jobs[e.JobId]; j != nil && !j.IsTerminal() {
			j.StepStatus = StepStatus{Kind: StepWaiting, DecisionId: e.DecisionId}
			if rec := j.CurrentStepRecord(); rec != nil && rec.Name == e.Step {
				rec.Outcome = StepOutcome{Kind: StepWaiting, Reason: e.Reason}
			}
		}
	case *core.StepCompleted:
		if j := s.Jobs[e.JobId]; j != nil && !j.IsTerminal() {
			finalizeCurrentStep(j, e.Step, StepOutcome{Kind: StepCompleted})
			j.StepStatus = StepStatus{Kind: StepCompleted}
		}
	case *core.StepFailed:
		if j := s.Jobs[e.JobId]; j != nil && !j.IsTerminal() {
			errCopy := e.Error
			finalizeCurrentStep(j, e.Step, StepOutcome{Kind: StepFailed, Reason: &errCopy})
			j.StepStatus = StepStatus{Kind: StepFailed}
			j.Error = &errCopy
		}

	case *core.AgentSignal:
		if e.JobId != nil {
			if j := s.Jobs[*e.JobId]; j != nil && e.Kind != core.AgentSignalContinue {
				kind := e.Kind
				j.ActionTracker.AgentSignal = &kind
			}
		}
	case *core.AgentWorking, *core.AgentWaiting, *core.AgentIdle, *core.AgentPrompt,
		*core.AgentFailed, *core.AgentExited, *core.AgentGone, *core.AgentStop:
		// Pure triggers consumed by runtime's monitor-state dispatch; they
		// carry no job identity (only agent_id, resolved via the runtime's
		// agent->owner map, not part of materialized state per spec.md §5).

	case *core.WorkspaceCreated:
		s.Workspaces[e.Id] = &Workspace{
			Id: e.Id, JobId: e.JobId, Path: e.Path, Branch: e.Branch,
			Owner: e.Owner, Mode: e.Mode, Status: WorkspaceCreating,
		}
		if e.JobId != nil {
			if j := s.Jobs[*e.JobId]; j != nil {
				j.WorkspaceId = &e.Id
				path := e.Path
				j.WorkspacePath = &path
			}
		}
	case *core.WorkspaceReady:
		if w := s.Workspaces[e.Id]; w != nil && w.Status == WorkspaceCreating {
			w.Status = WorkspaceReady
		}
	case *core.WorkspaceFailed:
		if w := s.Workspaces[e.Id]; w != nil && w.Status == WorkspaceCreating {
			w.Status = WorkspaceFailed
			reason := e.Reason
			w.Reason = &reason
		}
	case *core.WorkspaceDeleted:
		delete(s.Workspaces, e.Id)

	case *core.WorkerStarted:
		existing := s.Workers[e.WorkerName]
		active := map[core.JobId]bool{}
		itemMap := map[core.QueueItemId]core.JobId{}
		if existing != nil {
			active = existing.ActiveJobIds
			itemMap = existing.ItemJobMap
		}
		s.Workers[e.WorkerName] = &WorkerRecord{
			Name: e.WorkerName, Status: "running", ActiveJobIds: active, ItemJobMap: itemMap,
			Concurrency: e.Concurrency, QueueName: e.QueueName, ProjectRoot: e.ProjectRoot,
			RunbookHash: e.RunbookHash, Namespace: e.Namespace,
		}
	case *core.WorkerWake, *core.WorkerPollComplete, *core.WorkerTakeComplete:
		// Pure triggers for the dispatch handler.
	case *core.WorkerItemDispatched:
		if w := s.Workers[e.WorkerName]; w != nil {
			w.ActiveJobIds[e.JobId] = true
			w.ItemJobMap[e.ItemId] = e.JobId
		}
	case *core.WorkerStopped:
		if w := s.Workers[e.WorkerName]; w != nil {
			w.Status = "stopped"
		}
	case *core.WorkerDeleted:
		delete(s.Workers, e.WorkerName)

	case *core.QueuePushed:
		if _, exists := s.QueueItems[e.ItemId]; exists {
			break // invariant 8: dedup by id
		}
		s.QueueItems[e.ItemId] = &QueueItem{
			Id: e.ItemId, QueueName: e.QueueName, Data: e.Data,
			Status: QueueItemPending, PushedAt: e.PushedAtMs,
		}
	case *core.QueueTaken:
		if it := s.QueueItems[e.ItemId]; it != nil {
			it.Status = QueueItemActive
			wn := e.WorkerName
			it.WorkerName = &wn
		}
	case *core.QueueCompleted:
		if it := s.QueueItems[e.ItemId]; it != nil {
			it.Status = QueueItemCompleted
			releaseWorkerSlot(s, it)
		}
	case *core.QueueFailed:
		if it := s.QueueItems[e.ItemId]; it != nil {
			it.Status = QueueItemFailed
			it.FailureCount++
			errCopy := e.Error
			it.Error = &errCopy
			releaseWorkerSlot(s, it)
		}
	case *core.QueueDropped:
		if it := s.QueueItems[e.ItemId]; it != nil {
			it.Status = QueueItemDead
			releaseWorkerSlot(s, it)
		}
	case *core.QueueItemRetry:
		if it := s.QueueItems[e.ItemId]; it != nil {
			it.Status = QueueItemPending
			it.FailureCount = 0
			it.WorkerName = nil
		}
	case *core.QueueItemDead:
		if it := s.QueueItems[e.ItemId]; it != nil {
			it.Status = QueueItemDead
		}

	case *core.CronStarted:
		existing := s.Crons[e.CronName]
		var lastFired *int64
		if existing != nil {
			lastFired = existing.LastFiredAt
		}
		s.Crons[e.CronName] = &CronRecord{
			Name: e.CronName, Status: "running", Interval: e.Interval,
			RunPipeline: e.RunPipeline, RunAgent: e.RunAgent,
			ProjectRoot: e.ProjectRoot, Namespace: e.Namespace,
			LastFiredAt: lastFired,
		}
	case *core.CronStopped:
		if c := s.Crons[e.CronName]; c != nil {
			c.Status = "stopped"
		}
	case *core.CronFired:
		if c := s.Crons[e.CronName]; c != nil {
			t := e.FiredAtMs
			c.LastFiredAt = &t
		}
	case *core.CronDeleted:
		delete(s.Crons, e.CronName)

	case *core.DecisionCreated:
		s.Decisions[e.Id] = &Decision{
			Id: e.Id, JobId: e.JobId, AgentId: e.AgentId, Source: e.Source,
			Context: e.Context, Options: e.Options, CreatedAt: e.CreatedAtMs,
			Namespace: e.Namespace,
		}
		if j := s.Jobs[e.JobId]; j != nil {
			id := e.Id
			j.StepStatus = StepStatus{Kind: StepWaiting, DecisionId: &id}
		}
	case *core.DecisionResolved:
		if d := s.Decisions[e.Id]; d != nil {
			chosen := e.Chosen
			d.Chosen = &chosen
			d.Message = e.Message
			t := e.ResolvedAtMs
			d.ResolvedAt = &t
		}

	case *core.AgentRunCreated:
		s.AgentRuns[e.Id] = &AgentRun{
			Id: e.Id, AgentName: e.AgentName, Status: core.AgentRunStarting,
			Vars: e.Vars, CreatedAt: e.CreatedAtMs, Namespace: e.Namespace,
		}
	case *core.AgentRunStarted:
		if r := s.AgentRuns[e.Id]; r != nil {
			aid := e.AgentId
			r.AgentId = &aid
			r.Status = core.AgentRunRunning
		}
	case *core.AgentRunStatusChanged:
		if r := s.AgentRuns[e.Id]; r != nil {
			r.Status = e.Status
			r.Error = e.Error
		}
	case *core.AgentRunDeleted:
		delete(s.AgentRuns, e.Id)

	case *core.TimerFired:
		// Pure trigger; the scheduler's TimerId prefix tells the runtime
		// which handler to invoke.
	case *core.Shutdown:
		// Engine-loop control flow only.

	default:
		return fmt.Errorf("state: unknown event type %T", ev)
	}
	return nil
}

func applyJobCreated(s *State, e *core.JobCreated) {
	if _, exists := s.Jobs[e.Id]; exists {
		return // idempotent replay guard
	}
	vars := make(map[string]string, len(e.Vars))
	for k, v := range e.Vars {
		vars[k] = v
	}
	var cronName *string
	if e.CronName != "" {
		cn := e.CronName
		cronName = &cn
	}
	s.Jobs[e.Id] = &Job{
		Id: e.Id, Name: e.Name, Kind: e.Kind, Namespace: e.Namespace,
		Step: e.InitialStep, StepStatus: StepStatus{Kind: StepRunning},
		StepHistory: []StepRecord{{
			Name: e.InitialStep, StartedAt: e.CreatedAtMs,
			Outcome: StepOutcome{Kind: StepRunning},
		}},
		Vars: vars, RunbookHash: e.RunbookHash, Cwd: e.Cwd,
		StepVisits: make(map[string]int), CronName: cronName,
	}
}

func applyJobAdvanced(s *State, e *core.JobAdvanced) {
	j := s.Jobs[e.Id]
	if j == nil || j.IsTerminal() {
		return
	}
	if j.Step == e.Step && j.StepStatus.Kind != StepFailed {
		return // invariant 4: no-op self-transition
	}

	if rec := j.CurrentStepRecord(); rec != nil {
		now := rec.StartedAt
		if rec.Outcome.Kind == StepRunning || rec.Outcome.Kind == "" {
			rec.Outcome = StepOutcome{Kind: StepCompleted}
		}
		rec.FinishedAt = &now
	}

	j.Step = e.Step
	j.StepStatus = StepStatus{Kind: StepRunning}
	j.StepHistory = append(j.StepHistory, StepRecord{
		Name: e.Step, Outcome: StepOutcome{Kind: StepRunning},
	})
	j.StepVisits[e.Step]++
	j.ResetActionAttempts()
	j.ActionTracker.AgentSignal = nil

	if j.IsTerminal() {
		purgeFromWorkers(s, j.Id)
		for _, d := range s.Decisions {
			if d.JobId == j.Id && d.ResolvedAt == nil {
				delete(s.Decisions, d.Id)
			}
		}
	}
}

func finalizeCurrentStep(j *Job, step string, outcome StepOutcome) {
	rec := j.CurrentStepRecord()
	if rec == nil || rec.Name != step {
		return
	}
	rec.Outcome = outcome
	finishedAt := rec.StartedAt
	rec.FinishedAt = &finishedAt
}

func applyJobDeleted(s *State, e *core.JobDeleted) {
	if _, ok := s.Jobs[e.Id]; !ok {
		return
	}
	delete(s.Jobs, e.Id)
	for id, sess := range s.Sessions {
		if sess.JobId != nil && *sess.JobId == e.Id {
			delete(s.Sessions, id)
		}
	}
	for id, d := range s.Decisions {
		if d.JobId == e.Id {
			delete(s.Decisions, id)
		}
	}
	purgeFromWorkers(s, e.Id)
}

func purgeFromWorkers(s *State, job core.JobId) {
	for _, w := range s.Workers {
		delete(w.ActiveJobIds, job)
	}
}

func releaseWorkerSlot(s *State, it *QueueItem) {
	if it.WorkerName == nil {
		return
	}
	w := s.Workers[*it.WorkerName]
	if w == nil {
		return
	}
	if job, ok := w.ItemJobMap[it.Id]; ok {
		delete(w.ActiveJobIds, job)
		delete(w.ItemJobMap, it.Id)
	}
}

// Clone returns a deep copy of s via a JSON round-trip, matching the way the
// daemon snapshots state for deferred reconciliation (spec.md §4.10 step 9)
// and the way the snapshot store already serializes it, so no second
// encoding scheme is needed.
func (s *State) Clone() (*State, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("state: clone marshal: %w", err)
	}
	clone := New()
	if err := json.Unmarshal(data, clone); err != nil {
		return nil, fmt.Errorf("state: clone unmarshal: %w", err)
	}
	return clone, nil
}
