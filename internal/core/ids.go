// Package core defines the identifiers, events and effects shared by every
// layer of the runtime: the WAL, the materialized state fold, the runtime
// handlers and the effect executor all speak this vocabulary and nothing
// else crosses those boundaries.
package core

import (
	"fmt"

	"github.com/google/uuid"
)

// JobId identifies one execution of a job kind.
type JobId string

// AgentId identifies one spawned agent process.
type AgentId string

// SessionId identifies one host terminal (tmux) session.
type SessionId string

// WorkspaceId identifies one owned directory.
type WorkspaceId string

// DecisionId identifies one pending external choice.
type DecisionId string

// AgentRunId identifies one standalone agent invocation.
type AgentRunId string

// WorkerName identifies a declared worker by its runbook name.
type WorkerName string

// QueueName identifies a declared queue by its runbook name.
type QueueName string

// QueueItemId identifies one item pushed onto a queue.
type QueueItemId string

// CronName identifies a declared cron by its runbook name.
type CronName string

func (j JobId) String() string        { return string(j) }
func (a AgentId) String() string      { return string(a) }
func (s SessionId) String() string    { return string(s) }
func (w WorkspaceId) String() string  { return string(w) }
func (d DecisionId) String() string   { return string(d) }
func (r AgentRunId) String() string   { return string(r) }
func (w WorkerName) String() string   { return string(w) }
func (q QueueName) String() string    { return string(q) }
func (q QueueItemId) String() string  { return string(q) }
func (c CronName) String() string     { return string(c) }

// IdGen generates unique identifiers. Pluggable so tests can produce
// deterministic, predictable ids instead of random UUIDs.
type IdGen interface {
	NewJobId() JobId
	NewAgentId() AgentId
	NewSessionId() SessionId
	NewWorkspaceId() WorkspaceId
	NewDecisionId() DecisionId
	NewAgentRunId() AgentRunId
	NewQueueItemId() QueueItemId
}

// UUIDGen is the production IdGen, backed by google/uuid.
type UUIDGen struct{}

var _ IdGen = UUIDGen{}

func (UUIDGen) NewJobId() JobId             { return JobId(uuid.NewString()) }
func (UUIDGen) NewAgentId() AgentId         { return AgentId(uuid.NewString()) }
func (UUIDGen) NewSessionId() SessionId     { return SessionId(uuid.NewString()) }
func (UUIDGen) NewWorkspaceId() WorkspaceId { return WorkspaceId(uuid.NewString()) }
func (UUIDGen) NewDecisionId() DecisionId   { return DecisionId(uuid.NewString()) }
func (UUIDGen) NewAgentRunId() AgentRunId   { return AgentRunId(uuid.NewString()) }
func (UUIDGen) NewQueueItemId() QueueItemId { return QueueItemId(uuid.NewString()) }

// SequentialGen produces predictable ids of the form "<prefix>-<n>" for
// deterministic tests (e.g. replay/fold-determinism assertions where the
// exact id text must match across two independent folds of the same event
// stream).
type SequentialGen struct {
	Prefix string
	n      int
}

var _ IdGen = (*SequentialGen)(nil)

func (g *SequentialGen) next() string {
	g.n++
	return fmt.Sprintf("%s-%d", g.Prefix, g.n)
}

func (g *SequentialGen) NewJobId() JobId             { return JobId(g.next()) }
func (g *SequentialGen) NewAgentId() AgentId         { return AgentId(g.next()) }
func (g *SequentialGen) NewSessionId() SessionId     { return SessionId(g.next()) }
func (g *SequentialGen) NewWorkspaceId() WorkspaceId { return WorkspaceId(g.next()) }
func (g *SequentialGen) NewDecisionId() DecisionId   { return DecisionId(g.next()) }
func (g *SequentialGen) NewAgentRunId() AgentRunId   { return AgentRunId(g.next()) }
func (g *SequentialGen) NewQueueItemId() QueueItemId { return QueueItemId(g.next()) }
