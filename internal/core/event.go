package core

// Event is the only unit of mutation in the system. Every event knows its
// own wire name (colon-namespaced, e.g. "job:advanced") so the WAL can frame
// it and the state fold can dispatch on it without reflection.
//
// Concrete event types are plain structs, not a closed sum type — Go has no
// enums with payloads, so each spec.md event variant gets its own type and
// the runtime/state code type-switches on the Event interface. This mirrors
// the shape of the original event.rs enum without carrying over its Rust
// tagging mechanics.
type Event interface {
	EventName() string
}

// AgentErrorKind classifies a parsed agent error line (spec.md §4.6).
type AgentErrorKind string

const (
	AgentErrorRateLimited  AgentErrorKind = "rate_limited"
	AgentErrorUnauthorized AgentErrorKind = "unauthorized"
	AgentErrorNoInternet   AgentErrorKind = "no_internet"
	AgentErrorOutOfCredits AgentErrorKind = "out_of_credits"
	AgentErrorOther        AgentErrorKind = "other"
)

// AgentError is the payload of AgentFailed.
type AgentError struct {
	Kind    AgentErrorKind `json:"kind"`
	Message string         `json:"message"`
}

// AgentSignalKind is the kind of an explicit agent->daemon stop-hook signal.
type AgentSignalKind string

const (
	AgentSignalComplete AgentSignalKind = "complete"
	AgentSignalContinue AgentSignalKind = "continue"
	AgentSignalEscalate AgentSignalKind = "escalate"
)

// PromptType distinguishes an AskUserQuestion-style prompt from a generic
// idle/other prompt, per spec.md §4.9.3.
type PromptType string

const (
	PromptQuestion PromptType = "question"
	PromptOther    PromptType = "other"
)

// QuestionData carries the structured payload of a question prompt,
// synchronously materialized into a Decision before the agent goes idle.
type QuestionData struct {
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
}

// WorkspaceMode distinguishes a plain directory from a git worktree.
type WorkspaceMode string

const (
	WorkspacePlain    WorkspaceMode = "plain"
	WorkspaceWorktree WorkspaceMode = "worktree"
)

// --- Job / pipeline lifecycle -------------------------------------------------

// JobCreated starts a new Job from a runbook job kind.
type JobCreated struct {
	Id           JobId             `json:"id"`
	Kind         string            `json:"kind"`
	Name         string            `json:"name"`
	RunbookHash  string            `json:"runbook_hash"`
	Cwd          string            `json:"cwd"`
	Vars         map[string]string `json:"vars"`
	InitialStep  string            `json:"initial_step"`
	CreatedAtMs  int64             `json:"created_at_epoch_ms"`
	Namespace    string            `json:"namespace"`
	CronName     string            `json:"cron_name,omitempty"`
	InvokeDir    string            `json:"invoke_dir,omitempty"`
}

func (JobCreated) EventName() string { return "job:created" }

// JobAdvanced moves a job to step. A no-op when job.Step == step unless
// StepStatus is Failed (self-cycle for on_fail retry is legal) — see
// state.ApplyEvent.
type JobAdvanced struct {
	Id   JobId  `json:"id"`
	Step string `json:"step"`
}

func (JobAdvanced) EventName() string { return "job:advanced" }

// JobUpdated merges additional vars into a running job.
type JobUpdated struct {
	Id   JobId             `json:"id"`
	Vars map[string]string `json:"vars"`
}

func (JobUpdated) EventName() string { return "job:updated" }

// JobResume clears a Waiting step_status and optionally records a message,
// used when a decision resolves in the agent's favor.
type JobResume struct {
	Id      JobId             `json:"id"`
	Message *string           `json:"message,omitempty"`
	Vars    map[string]string `json:"vars,omitempty"`
}

func (JobResume) EventName() string { return "job:resume" }

// JobCancel requests cancellation; JobCancelling marks the cleanup-in-progress
// flag distinctly from the terminal JobDeleted/cancelled state.
type JobCancel struct {
	Id JobId `json:"id"`
}

func (JobCancel) EventName() string { return "job:cancel" }

// JobCancelling marks a job as mid-cancel-cleanup (cancellation cleanup steps
// are themselves non-cancellable, spec.md §4.9.2).
type JobCancelling struct {
	Id JobId `json:"id"`
}

func (JobCancelling) EventName() string { return "job:cancelling" }

// JobDeleted removes a job and cascades to its sessions and decisions.
type JobDeleted struct {
	Id JobId `json:"id"`
}

func (JobDeleted) EventName() string { return "job:deleted" }

// CommandRun records an external invocation of a declared command.
type CommandRun struct {
	JobId       JobId  `json:"job_id"`
	JobName     string `json:"job_name"`
	ProjectRoot string `json:"project_root"`
	InvokeDir   string `json:"invoke_dir"`
	Namespace   string `json:"namespace"`
	Command     string `json:"command"`
	Args        []string `json:"args"`
}

func (CommandRun) EventName() string { return "command:run" }

// RunbookLoaded caches a parsed runbook keyed by content hash.
type RunbookLoaded struct {
	Hash    string `json:"hash"`
	Version string `json:"version"`
	Raw     []byte `json:"runbook"`
}

func (RunbookLoaded) EventName() string { return "runbook:loaded" }

// --- Sessions ------------------------------------------------------------

// SessionCreated records a new host session and stamps its owner.
type SessionCreated struct {
	Id         SessionId   `json:"id"`
	JobId      *JobId      `json:"job_id,omitempty"`
	AgentRunId *AgentRunId `json:"agent_run_id,omitempty"`
}

func (SessionCreated) EventName() string { return "session:created" }

// SessionInput records that input was sent to a session (for audit/log).
type SessionInput struct {
	Id    SessionId `json:"id"`
	Input string    `json:"input"`
}

func (SessionInput) EventName() string { return "session:input" }

// SessionDeleted removes a session record when its owner leaves an agent
// step or completes.
type SessionDeleted struct {
	Id SessionId `json:"id"`
}

func (SessionDeleted) EventName() string { return "session:deleted" }

// --- Shell / step ----------------------------------------------------------

// ShellExited is the completion event of a Shell effect.
type ShellExited struct {
	JobId    JobId  `json:"job_id"`
	Step     string `json:"step"`
	ExitCode int    `json:"exit_code"`
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
}

func (ShellExited) EventName() string { return "shell:exited" }

// StepStarted opens a new StepRecord (or re-opens one for an agent step's
// agent_id/agent_name, persisted for crash recovery, spec.md §4.9.1).
type StepStarted struct {
	JobId     JobId   `json:"job_id"`
	Step      string  `json:"step"`
	AgentId   *AgentId `json:"agent_id,omitempty"`
	AgentName *string  `json:"agent_name,omitempty"`
}

func (StepStarted) EventName() string { return "step:started" }

// StepWaiting marks the current step as waiting on a Decision or a reason
// string (without one, e.g. an agent escalation with only a message).
type StepWaiting struct {
	JobId      JobId       `json:"job_id"`
	Step       string      `json:"step"`
	Reason     *string     `json:"reason,omitempty"`
	DecisionId *DecisionId `json:"decision_id,omitempty"`
}

func (StepWaiting) EventName() string { return "step:waiting" }

// StepCompleted finalizes the current StepRecord successfully.
type StepCompleted struct {
	JobId JobId  `json:"job_id"`
	Step  string `json:"step"`
}

func (StepCompleted) EventName() string { return "step:completed" }

// StepFailed finalizes the current StepRecord with an error.
type StepFailed struct {
	JobId JobId  `json:"job_id"`
	Step  string `json:"step"`
	Error string `json:"error"`
}

func (StepFailed) EventName() string { return "step:failed" }

// --- Agent lifecycle (watcher-emitted) -------------------------------------

type AgentWorking struct {
	AgentId AgentId `json:"agent_id"`
}

func (AgentWorking) EventName() string { return "agent:working" }

type AgentWaiting struct {
	AgentId AgentId `json:"agent_id"`
}

func (AgentWaiting) EventName() string { return "agent:waiting" }

// AgentIdle is emitted alongside/following AgentWaiting once the idle
// collaborator (or WaitingForInput) confirms idleness, per spec.md §4.6.
type AgentIdle struct {
	AgentId AgentId `json:"agent_id"`
}

func (AgentIdle) EventName() string { return "agent:idle" }

type AgentPrompt struct {
	AgentId      AgentId       `json:"agent_id"`
	PromptType   PromptType    `json:"prompt_type"`
	QuestionData *QuestionData `json:"question_data,omitempty"`
}

func (AgentPrompt) EventName() string { return "agent:prompt" }

type AgentFailed struct {
	AgentId AgentId    `json:"agent_id"`
	Error   AgentError `json:"error"`
}

func (AgentFailed) EventName() string { return "agent:failed" }

type AgentExited struct {
	AgentId  AgentId `json:"agent_id"`
	ExitCode *int    `json:"exit_code,omitempty"`
}

func (AgentExited) EventName() string { return "agent:exited" }

type AgentGone struct {
	AgentId AgentId `json:"agent_id"`
}

func (AgentGone) EventName() string { return "agent:gone" }

// AgentSignal is emitted by the stop-hook RPC path (spec.md §4.9.8).
// Continue is never persisted into action_tracker.agent_signal by the fold
// (invariant 9) but the event itself still flows through the WAL so replay
// sees the same no-op.
type AgentSignal struct {
	AgentId AgentId         `json:"agent_id"`
	// JobId is resolved by the runtime's agent->job lookup before the event
	// is persisted; the raw stop-hook RPC only carries AgentId.
	JobId   *JobId          `json:"job_id,omitempty"`
	Kind    AgentSignalKind `json:"kind"`
	Message *string         `json:"message,omitempty"`
}

func (AgentSignal) EventName() string { return "agent:signal" }

type AgentStop struct {
	AgentId AgentId `json:"agent_id"`
}

func (AgentStop) EventName() string { return "agent:stop" }

// --- Workspaces --------------------------------------------------------------

type WorkspaceCreated struct {
	Id      WorkspaceId   `json:"id"`
	JobId   *JobId        `json:"job_id,omitempty"`
	Path    string        `json:"path"`
	Branch  *string       `json:"branch,omitempty"`
	Owner   string        `json:"owner"`
	Mode    WorkspaceMode `json:"mode"`
}

func (WorkspaceCreated) EventName() string { return "workspace:created" }

type WorkspaceReady struct {
	Id WorkspaceId `json:"id"`
}

func (WorkspaceReady) EventName() string { return "workspace:ready" }

type WorkspaceFailed struct {
	Id     WorkspaceId `json:"id"`
	Reason string      `json:"reason"`
}

func (WorkspaceFailed) EventName() string { return "workspace:failed" }

type WorkspaceDeleted struct {
	Id WorkspaceId `json:"id"`
}

func (WorkspaceDeleted) EventName() string { return "workspace:deleted" }

// --- Workers / queues ----------------------------------------------------

type WorkerStarted struct {
	WorkerName  WorkerName `json:"worker_name"`
	ProjectRoot string     `json:"project_root"`
	RunbookHash string     `json:"runbook_hash"`
	QueueName   QueueName  `json:"queue_name"`
	Concurrency int        `json:"concurrency"`
	Namespace   string     `json:"namespace"`
}

func (WorkerStarted) EventName() string { return "worker:started" }

type WorkerWake struct {
	WorkerName WorkerName `json:"worker_name"`
}

func (WorkerWake) EventName() string { return "worker:wake" }

// WorkerPollComplete carries polled queue items (external-queue JSON objects
// or persisted-queue snapshots) for the worker dispatch handler.
type WorkerPollComplete struct {
	WorkerName WorkerName          `json:"worker_name"`
	Items      []map[string]string `json:"items"`
}

func (WorkerPollComplete) EventName() string { return "worker:poll_complete" }

type WorkerItemDispatched struct {
	WorkerName WorkerName  `json:"worker_name"`
	ItemId     QueueItemId `json:"item_id"`
	JobId      JobId       `json:"job_id"`
	Namespace  string      `json:"namespace"`
}

func (WorkerItemDispatched) EventName() string { return "worker:item_dispatched" }

type WorkerStopped struct {
	WorkerName WorkerName `json:"worker_name"`
}

func (WorkerStopped) EventName() string { return "worker:stopped" }

type WorkerDeleted struct {
	WorkerName WorkerName `json:"worker_name"`
}

func (WorkerDeleted) EventName() string { return "worker:deleted" }

type QueuePushed struct {
	QueueName QueueName         `json:"queue_name"`
	ItemId    QueueItemId       `json:"item_id"`
	Data      map[string]string `json:"data"`
	PushedAtMs int64            `json:"pushed_at_epoch_ms"`
	Namespace string            `json:"namespace"`
}

func (QueuePushed) EventName() string { return "queue:pushed" }

type QueueTaken struct {
	QueueName  QueueName  `json:"queue_name"`
	ItemId     QueueItemId `json:"item_id"`
	WorkerName WorkerName `json:"worker_name"`
	Namespace  string     `json:"namespace"`
}

func (QueueTaken) EventName() string { return "queue:taken" }

type QueueCompleted struct {
	QueueName QueueName   `json:"queue_name"`
	ItemId    QueueItemId `json:"item_id"`
}

func (QueueCompleted) EventName() string { return "queue:completed" }

type QueueFailed struct {
	QueueName QueueName   `json:"queue_name"`
	ItemId    QueueItemId `json:"item_id"`
	Error     string      `json:"error"`
}

func (QueueFailed) EventName() string { return "queue:failed" }

type QueueDropped struct {
	QueueName QueueName   `json:"queue_name"`
	ItemId    QueueItemId `json:"item_id"`
}

func (QueueDropped) EventName() string { return "queue:dropped" }

type QueueItemRetry struct {
	QueueName QueueName   `json:"queue_name"`
	ItemId    QueueItemId `json:"item_id"`
}

func (QueueItemRetry) EventName() string { return "queue:item_retry" }

type QueueItemDead struct {
	QueueName QueueName   `json:"queue_name"`
	ItemId    QueueItemId `json:"item_id"`
}

func (QueueItemDead) EventName() string { return "queue:item_dead" }

// --- Crons -----------------------------------------------------------------

type CronStarted struct {
	CronName    CronName `json:"cron_name"`
	Interval    string   `json:"interval"`
	RunPipeline *string  `json:"run_pipeline,omitempty"`
	RunAgent    *string  `json:"run_agent,omitempty"`
	ProjectRoot string   `json:"project_root"`
	Namespace   string   `json:"namespace"`
}

func (CronStarted) EventName() string { return "cron:started" }

type CronStopped struct {
	CronName CronName `json:"cron_name"`
}

func (CronStopped) EventName() string { return "cron:stopped" }

type CronFired struct {
	CronName CronName `json:"cron_name"`
	FiredAtMs int64   `json:"fired_at_epoch_ms"`
}

func (CronFired) EventName() string { return "cron:fired" }

type CronDeleted struct {
	CronName CronName `json:"cron_name"`
}

func (CronDeleted) EventName() string { return "cron:deleted" }

// --- Decisions ---------------------------------------------------------------

type DecisionCreated struct {
	Id        DecisionId        `json:"id"`
	JobId     JobId             `json:"job_id"`
	AgentId   *AgentId          `json:"agent_id,omitempty"`
	Source    string            `json:"source"`
	Context   map[string]string `json:"context"`
	Options   []string          `json:"options"`
	CreatedAtMs int64           `json:"created_at_epoch_ms"`
	Namespace string            `json:"namespace"`
}

func (DecisionCreated) EventName() string { return "decision:created" }

type DecisionResolved struct {
	Id         DecisionId `json:"id"`
	Chosen     string     `json:"chosen"`
	Message    *string    `json:"message,omitempty"`
	ResolvedAtMs int64    `json:"resolved_at_epoch_ms"`
}

func (DecisionResolved) EventName() string { return "decision:resolved" }

// --- Standalone agent runs -----------------------------------------------

type AgentRunCreated struct {
	Id          AgentRunId        `json:"id"`
	AgentName   string            `json:"agent_name"`
	Vars        map[string]string `json:"vars"`
	CreatedAtMs int64             `json:"created_at_epoch_ms"`
	Namespace   string            `json:"namespace"`
}

func (AgentRunCreated) EventName() string { return "agent_run:created" }

type AgentRunStarted struct {
	Id      AgentRunId `json:"id"`
	AgentId AgentId    `json:"agent_id"`
}

func (AgentRunStarted) EventName() string { return "agent_run:started" }

// AgentRunStatus mirrors spec.md §3 AgentRun.status.
type AgentRunStatus string

const (
	AgentRunStarting  AgentRunStatus = "starting"
	AgentRunRunning   AgentRunStatus = "running"
	AgentRunEscalated AgentRunStatus = "escalated"
	AgentRunFailed    AgentRunStatus = "failed"
	AgentRunCompleted AgentRunStatus = "completed"
)

type AgentRunStatusChanged struct {
	Id     AgentRunId     `json:"id"`
	Status AgentRunStatus `json:"status"`
	Error  *string        `json:"error,omitempty"`
}

func (AgentRunStatusChanged) EventName() string { return "agent_run:status_changed" }

type AgentRunDeleted struct {
	Id AgentRunId `json:"id"`
}

func (AgentRunDeleted) EventName() string { return "agent_run:deleted" }

// --- Timers / shutdown -------------------------------------------------------

// TimerFired is produced by the scheduler when a registered deadline elapses.
type TimerFired struct {
	Id TimerId `json:"id"`
}

func (TimerFired) EventName() string { return "timer:fired" }

// Shutdown signals the engine loop to stop after draining.
type Shutdown struct{}

func (Shutdown) EventName() string { return "daemon:shutdown" }
