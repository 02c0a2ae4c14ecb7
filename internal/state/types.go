// Package state implements the materialized record store of spec.md §3/§4.4:
// a pure fold of the event stream into jobs, sessions, workspaces, workers,
// queue items, crons, decisions, agent runs and the runbook cache. Nothing
// outside ApplyEvent ever mutates a State value.
package state

import "github.com/groblegark/oddjobs/internal/core"

// StepStatusKind is the tag of a Job's current step_status.
type StepStatusKind string

const (
	StepPending   StepStatusKind = "pending"
	StepRunning   StepStatusKind = "running"
	StepWaiting   StepStatusKind = "waiting"
	StepCompleted StepStatusKind = "completed"
	StepFailed    StepStatusKind = "failed"
)

// StepStatus is the Job.step_status field of spec.md §3.
type StepStatus struct {
	Kind       StepStatusKind   `json:"kind"`
	DecisionId *core.DecisionId `json:"decision_id,omitempty"`
}

func (s StepStatus) IsWaiting() bool { return s.Kind == StepWaiting }

// StepOutcome is the terminal state of one StepRecord.
type StepOutcome struct {
	Kind   StepStatusKind `json:"kind"` // Running | Completed | Waiting | Failed
	Reason *string        `json:"reason,omitempty"`
}

// StepRecord is one append-only history entry inside a Job (spec.md §3).
type StepRecord struct {
	Name       string       `json:"name"`
	StartedAt  int64        `json:"started_at"`
	FinishedAt *int64       `json:"finished_at,omitempty"`
	Outcome    StepOutcome  `json:"outcome"`
	AgentId    *core.AgentId `json:"agent_id,omitempty"`
	AgentName  *string      `json:"agent_name,omitempty"`
}

// ActionTracker tracks on_idle/on_dead/on_error/on_prompt attempt counts and
// the most recent authoritative stop-hook signal (spec.md §4.9.3, §4.9.8).
type ActionTracker struct {
	// Attempts is keyed by "<trigger>|<chain_pos>" (see actionAttemptKey).
	Attempts     map[string]int           `json:"attempts,omitempty"`
	AgentSignal  *core.AgentSignalKind    `json:"agent_signal,omitempty"`
}

func actionAttemptKey(trigger string, chainPos int) string {
	return trigger + "|" + itoa(chainPos)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// Job is one bounded execution of a named job kind (spec.md §3).
type Job struct {
	Id          core.JobId        `json:"id"`
	Name        string            `json:"name"`
	Kind        string            `json:"kind"`
	Namespace   string            `json:"namespace"`
	Step        string            `json:"step"`
	StepStatus  StepStatus        `json:"step_status"`
	StepHistory []StepRecord      `json:"step_history"`
	Vars        map[string]string `json:"vars"`
	RunbookHash string            `json:"runbook_hash"`
	Cwd         string            `json:"cwd"`
	WorkspaceId   *core.WorkspaceId `json:"workspace_id,omitempty"`
	WorkspacePath *string           `json:"workspace_path,omitempty"`
	SessionId     *core.SessionId   `json:"session_id,omitempty"`
	Error         *string           `json:"error,omitempty"`
	ActionTracker ActionTracker     `json:"action_tracker"`
	Cancelling    bool              `json:"cancelling"`
	StepVisits    map[string]int    `json:"step_visits"`
	CronName      *string           `json:"cron_name,omitempty"`
	IdleGraceLogSize *int64         `json:"idle_grace_log_size,omitempty"`
	LastNudgeAt      *int64         `json:"last_nudge_at,omitempty"`
}

// IsTerminal reports whether job.Step has reached one of the three terminal
// steps (spec.md glossary, invariant 3).
func (j *Job) IsTerminal() bool {
	return j.Step == "done" || j.Step == "failed" || j.Step == "cancelled"
}

// CurrentStepRecord returns the single open (FinishedAt == nil) entry, which
// invariant 4 guarantees is the last one if it exists.
func (j *Job) CurrentStepRecord() *StepRecord {
	if len(j.StepHistory) == 0 {
		return nil
	}
	last := &j.StepHistory[len(j.StepHistory)-1]
	if last.FinishedAt != nil {
		return nil
	}
	return last
}

// IncrementActionAttempt bumps and returns the new attempt count for
// (trigger, chainPos).
func (j *Job) IncrementActionAttempt(trigger string, chainPos int) int {
	if j.ActionTracker.Attempts == nil {
		j.ActionTracker.Attempts = make(map[string]int)
	}
	key := actionAttemptKey(trigger, chainPos)
	j.ActionTracker.Attempts[key]++
	return j.ActionTracker.Attempts[key]
}

// ResetActionAttempts clears all attempt counters (spec.md §4.9.3, called
// when an agent demonstrates progress or a step advances successfully).
func (j *Job) ResetActionAttempts() {
	j.ActionTracker.Attempts = nil
}

// AgentRunStatus mirrors core.AgentRunStatus to avoid state depending on
// mutable runtime decisions about which values are legal; it is exactly
// core.AgentRunStatus re-exported for readability at call sites.
type AgentRunStatus = core.AgentRunStatus

// AgentRun is a standalone (non-job) agent invocation (spec.md §3).
type AgentRun struct {
	Id        core.AgentRunId `json:"id"`
	AgentName string          `json:"agent_name"`
	Status    AgentRunStatus  `json:"status"`
	Vars      map[string]string `json:"vars"`
	SessionId *core.SessionId `json:"session_id,omitempty"`
	AgentId   *core.AgentId   `json:"agent_id,omitempty"`
	Error     *string         `json:"error,omitempty"`
	CreatedAt int64           `json:"created_at"`
	Namespace string          `json:"namespace"`
}

func (r *AgentRun) IsTerminal() bool {
	return r.Status == core.AgentRunFailed || r.Status == core.AgentRunCompleted
}

// Session is a tmux/terminal session record (spec.md §3).
type Session struct {
	Id         core.SessionId   `json:"id"`
	JobId      *core.JobId      `json:"job_id,omitempty"`
	AgentRunId *core.AgentRunId `json:"agent_run_id,omitempty"`
}

// WorkspaceStatus is the Workspace.status field of spec.md §3.
type WorkspaceStatus string

const (
	WorkspaceCreating WorkspaceStatus = "creating"
	WorkspaceReady    WorkspaceStatus = "ready"
	WorkspaceFailed   WorkspaceStatus = "failed"
	WorkspaceCleaning WorkspaceStatus = "cleaning"
)

// Workspace is an owned directory, optionally a git worktree (spec.md §3).
type Workspace struct {
	Id     core.WorkspaceId  `json:"id"`
	JobId  *core.JobId       `json:"job_id,omitempty"`
	Path   string            `json:"path"`
	Branch *string           `json:"branch,omitempty"`
	Owner  string            `json:"owner"`
	Mode   core.WorkspaceMode `json:"mode"`
	Status WorkspaceStatus   `json:"status"`
	Reason *string           `json:"reason,omitempty"`
}

// WorkerRecord is a declared worker plus its runtime status (spec.md §3).
type WorkerRecord struct {
	Name        core.WorkerName         `json:"name"`
	Status      string                  `json:"status"` // running | stopped
	ActiveJobIds map[core.JobId]bool    `json:"active_job_ids"`
	ItemJobMap  map[core.QueueItemId]core.JobId `json:"item_job_map"`
	Concurrency int                     `json:"concurrency"`
	QueueName   core.QueueName          `json:"queue_name"`
	ProjectRoot string                  `json:"project_root"`
	RunbookHash string                  `json:"runbook_hash"`
	Namespace   string                  `json:"namespace"`
}

// QueueItemStatus is the QueueItem.status field of spec.md §3.
type QueueItemStatus string

const (
	QueueItemPending   QueueItemStatus = "pending"
	QueueItemActive    QueueItemStatus = "active"
	QueueItemCompleted QueueItemStatus = "completed"
	QueueItemFailed    QueueItemStatus = "failed"
	QueueItemDead      QueueItemStatus = "dead"
)

// QueueItem is one item pushed onto a queue (spec.md §3).
type QueueItem struct {
	Id           core.QueueItemId  `json:"id"`
	QueueName    core.QueueName    `json:"queue_name"`
	Data         map[string]string `json:"data"`
	Status       QueueItemStatus   `json:"status"`
	WorkerName   *core.WorkerName  `json:"worker_name,omitempty"`
	PushedAt     int64             `json:"pushed_at"`
	FailureCount int               `json:"failure_count"`
	Error        *string           `json:"error,omitempty"`
}

// CronRecord is a declared cron plus its runtime status (spec.md §3).
type CronRecord struct {
	Name        core.CronName `json:"name"`
	Status      string        `json:"status"` // running | stopped
	Interval    string        `json:"interval"`
	RunPipeline *string       `json:"run_pipeline,omitempty"`
	RunAgent    *string       `json:"run_agent,omitempty"`
	ProjectRoot string        `json:"project_root"`
	Namespace   string        `json:"namespace"`
	StartedAt   int64         `json:"started_at"`
	LastFiredAt *int64        `json:"last_fired_at,omitempty"`
}

// Decision is a point at which execution waits for an external choice
// (spec.md §3).
type Decision struct {
	Id          core.DecisionId   `json:"id"`
	JobId       core.JobId        `json:"job_id"`
	AgentId     *core.AgentId     `json:"agent_id,omitempty"`
	Source      string            `json:"source"`
	Context     map[string]string `json:"context"`
	Options     []string          `json:"options"`
	Chosen      *string           `json:"chosen,omitempty"`
	Message     *string           `json:"message,omitempty"`
	CreatedAt   int64             `json:"created_at"`
	ResolvedAt  *int64            `json:"resolved_at,omitempty"`
	Namespace   string            `json:"namespace"`
}

// StoredRunbook is a cached parsed runbook keyed by content hash.
type StoredRunbook struct {
	Hash    string `json:"hash"`
	Version string `json:"version"`
	Raw     []byte `json:"raw"`
}

// State is the union of every entity map: the materialized record store
// produced deterministically by folding the event stream (spec.md §3).
type State struct {
	Jobs       map[core.JobId]*Job                `json:"jobs"`
	AgentRuns  map[core.AgentRunId]*AgentRun       `json:"agent_runs"`
	Sessions   map[core.SessionId]*Session         `json:"sessions"`
	Workspaces map[core.WorkspaceId]*Workspace     `json:"workspaces"`
	Workers    map[core.WorkerName]*WorkerRecord   `json:"workers"`
	QueueItems map[core.QueueItemId]*QueueItem     `json:"queue_items"`
	Crons      map[core.CronName]*CronRecord       `json:"crons"`
	Decisions  map[core.DecisionId]*Decision       `json:"decisions"`
	Runbooks   map[string]*StoredRunbook           `json:"runbooks"`
}

// New returns an empty State with every map initialized (folding into a nil
// map would panic on first write).
func New() *State {
	return &State{
		Jobs:       make(map[core.JobId]*Job),
		AgentRuns:  make(map[core.AgentRunId]*AgentRun),
		Sessions:   make(map[core.SessionId]*Session),
		Workspaces: make(map[core.WorkspaceId]*Workspace),
		Workers:    make(map[core.WorkerName]*WorkerRecord),
		QueueItems: make(map[core.QueueItemId]*QueueItem),
		Crons:      make(map[core.CronName]*CronRecord),
		Decisions:  make(map[core.DecisionId]*Decision),
		Runbooks:   make(map[string]*StoredRunbook),
	}
}

// FindAgentIdInHistory returns the agent id recorded against the most
// recent StepRecord named step (spec.md's repeated
// "step_history.iter().rfind(...)" pattern in monitor.rs/recover_agent).
func (j *Job) FindAgentIdInHistory(step string) *core.AgentId {
	for i := len(j.StepHistory) - 1; i >= 0; i-- {
		if j.StepHistory[i].Name == step && j.StepHistory[i].AgentId != nil {
			return j.StepHistory[i].AgentId
		}
	}
	return nil
}

// ProjectRootForNamespace returns the longest-registered project root whose
// namespace prefix-matches ns, mirroring the original
// project_root_for_namespace helper (used to resolve worker/cron cwd when
// multiple project roots share a namespace prefix). Returns "" if none
// match.
func (s *State) ProjectRootForNamespace(ns string) string {
	best := ""
	for _, w := range s.Workers {
		if w.Namespace == ns || (w.Namespace != "" && len(ns) >= len(w.Namespace) && ns[:len(w.Namespace)] == w.Namespace) {
			if len(w.ProjectRoot) > len(best) {
				best = w.ProjectRoot
			}
		}
	}
	return best
}
