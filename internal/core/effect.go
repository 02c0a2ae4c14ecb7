package core

import "time"

// Effect describes a side effect the executor must perform. Effects are
// never persisted — only the events they emit, directly or asynchronously,
// ever reach the WAL (spec.md §3, §4.8).
type Effect interface {
	EffectName() string
}

// Emit applies event to the materialized state immediately (so dependent
// effects in the same batch observe it) and hands it back to the caller for
// a WAL write.
type Emit struct {
	Event Event
}

func (Emit) EffectName() string { return "emit" }

// SpawnAgent asks the Agent adapter to start a new process inside a
// (possibly new) host session.
type SpawnAgent struct {
	AgentId         AgentId
	AgentName       string
	JobId           *JobId
	AgentRunId      *AgentRunId
	Command         string
	Args            []string
	Env             map[string]string
	WorkspacePath   string
	Cwd             string
	Prompt          string
	ResumeSessionId *string
}

func (SpawnAgent) EffectName() string { return "spawn_agent" }

// ReconnectAgent re-attaches watcher monitoring to a session that survived a
// daemon restart, without spawning a new process (spec.md §4.9.7).
type ReconnectAgent struct {
	AgentId       AgentId
	SessionId     SessionId
	WorkspacePath string
	ProcessName   string
}

func (ReconnectAgent) EffectName() string { return "reconnect_agent" }

type SendToAgent struct {
	AgentId AgentId
	Input   string
}

func (SendToAgent) EffectName() string { return "send_to_agent" }

type KillAgent struct {
	AgentId AgentId
}

func (KillAgent) EffectName() string { return "kill_agent" }

type SendToSession struct {
	SessionId SessionId
	Input     string
}

func (SendToSession) EffectName() string { return "send_to_session" }

type KillSession struct {
	SessionId SessionId
}

func (KillSession) EffectName() string { return "kill_session" }

// CreateWorkspace creates an owned directory or git worktree.
type CreateWorkspace struct {
	Id         WorkspaceId
	JobId      *JobId
	Owner      string
	Mode       WorkspaceMode
	Path       string
	Branch     string
	StartPoint string
	SourceRepo string
}

func (CreateWorkspace) EffectName() string { return "create_workspace" }

// DeleteWorkspace tears down a worktree/directory and its branch.
type DeleteWorkspace struct {
	Id WorkspaceId
}

func (DeleteWorkspace) EffectName() string { return "delete_workspace" }

type SetTimer struct {
	Id       TimerId
	Duration time.Duration
	Repeat   bool
}

func (SetTimer) EffectName() string { return "set_timer" }

type CancelTimer struct {
	Id TimerId
}

func (CancelTimer) EffectName() string { return "cancel_timer" }

// Shell runs a detached bash command and reports completion asynchronously.
type Shell struct {
	JobId   JobId
	Step    string
	Command string
	Cwd     string
	Env     map[string]string
}

func (Shell) EffectName() string { return "shell" }

// PollQueue runs an external queue's `list` command (or, for persisted
// queues, synthesizes the pending-item snapshot directly from state).
type PollQueue struct {
	WorkerName WorkerName
	QueueName  QueueName
	ListCmd    string
	Cwd        string
	Persisted  bool
}

func (PollQueue) EffectName() string { return "poll_queue" }

// TakeQueueItem runs an external queue's `take` command for one item.
type TakeQueueItem struct {
	WorkerName WorkerName
	QueueName  QueueName
	ItemId     QueueItemId
	TakeCmd    string
	Cwd        string
}

func (TakeQueueItem) EffectName() string { return "take_queue_item" }

// WorkerTakeComplete is returned asynchronously by TakeQueueItem's execution.
type WorkerTakeComplete struct {
	WorkerName WorkerName
	ItemId     QueueItemId
	Item       map[string]string
	ExitCode   int
	Stderr     string
}

func (WorkerTakeComplete) EventName() string { return "worker:take_complete" }

type Notify struct {
	Title   string
	Message string
}

func (Notify) EffectName() string { return "notify" }

// RunGate runs a short-lived shell command under GATE_TIMEOUT and reports
// pass/fail synchronously to the caller (unlike Shell, which is always
// async) because spec.md §4.9.3 branches on the result within the same
// action-handling call.
type RunGate struct {
	JobId   JobId
	Command string
	Cwd     string
}

func (RunGate) EffectName() string { return "run_gate" }
