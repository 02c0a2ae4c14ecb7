// Package runbook parses the declarative TOML documents spec.md §6.3
// describes: commands, jobs, agents, queues, workers and crons. It uses
// pelletier/go-toml/v2 for decoding, matching the project-scoped
// configuration format the rest of the pack favors for human-edited files.
package runbook

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/pelletier/go-toml/v2"
)

// Runbook is the parsed, validated form of a project's .oj.toml.
type Runbook struct {
	Command map[string]Command `toml:"command"`
	Job     map[string]Job     `toml:"job"`
	Agent   map[string]Agent   `toml:"agent"`
	Queue   map[string]Queue   `toml:"queue"`
	Worker  map[string]Worker  `toml:"worker"`
	Cron    map[string]Cron    `toml:"cron"`
}

// Command declares an externally invocable entrypoint that creates a Job.
type Command struct {
	Job string `toml:"job"`
}

// Job declares a named pipeline: an ordered list of Steps plus job-level
// fallback actions.
type Job struct {
	Vars      map[string]string `toml:"vars"`
	Locals    map[string]string `toml:"locals"`
	Workspace *WorkspaceSpec    `toml:"workspace"`
	Cwd       string            `toml:"cwd"`
	OnDone    string            `toml:"on_done"`
	OnFail    string            `toml:"on_fail"`
	OnCancel  string            `toml:"on_cancel"`
	Notify    bool              `toml:"notify"`
	Step      []Step            `toml:"step"`
}

// WorkspaceSpec describes how a Job's Workspace should be created.
type WorkspaceSpec struct {
	Mode       string `toml:"mode"` // "plain" | "worktree"
	SourceRepo string `toml:"source_repo"`
	StartPoint string `toml:"start_point"`
	Branch     string `toml:"branch"`
}

// Step is one node of a Job's pipeline.
type Step struct {
	Name     string    `toml:"name"`
	Run      StepRun   `toml:"run"`
	OnDone   string    `toml:"on_done"`
	OnFail   string    `toml:"on_fail"`
	OnCancel string    `toml:"on_cancel"`
}

// StepRun is the step's "run" directive: shell, an agent invocation, or a
// nested job (rejected at load time per spec.md §4.9.1 — "not yet").
type StepRun struct {
	Shell string `toml:"shell"`
	Agent string `toml:"agent"`
	Job   string `toml:"job"`
}

// Kind classifies the step's run directive for the job-lifecycle handler.
func (r StepRun) Kind() string {
	switch {
	case r.Agent != "":
		return "agent"
	case r.Job != "":
		return "job"
	default:
		return "shell"
	}
}

// Agent declares an agent definition: how to spawn it and its action DAG.
type Agent struct {
	Run     string          `toml:"run"`
	Prompt  string          `toml:"prompt"`
	Env     map[string]string `toml:"env"`
	OnIdle  []ActionConfig  `toml:"on_idle"`
	OnDead  []ActionConfig  `toml:"on_dead"`
	OnPrompt []ActionConfig `toml:"on_prompt"`
	OnError []ErrorAction   `toml:"on_error"`
	Notify  bool            `toml:"notify"`
}

// ActionConfig is one entry of an action-group chain.
type ActionConfig struct {
	Action   string  `toml:"action"`
	Message  string  `toml:"message,omitempty"`
	Run      string  `toml:"run,omitempty"`
	Attempts int     `toml:"attempts,omitempty"`
	Cooldown string  `toml:"cooldown,omitempty"`
}

// ErrorAction matches an AgentErrorKind (by substring match name) to an
// action chain, with a fallback entry whose Match is empty.
type ErrorAction struct {
	Match  string         `toml:"match"`
	Action []ActionConfig `toml:"action"`
}

// Queue declares an external or persisted work queue.
type Queue struct {
	Type  string      `toml:"type"` // "external" | "persisted"
	List  string      `toml:"list"`
	Take  string      `toml:"take"`
	Retry *RetryConfig `toml:"retry"`
}

// RetryConfig bounds dead-letter behavior for a persisted queue.
type RetryConfig struct {
	Attempts int    `toml:"attempts"`
	Cooldown string `toml:"cooldown"`
}

// Worker declares a queue consumer that dispatches to a handler pipeline.
type Worker struct {
	Source      SourceSpec  `toml:"source"`
	Handler     HandlerSpec `toml:"handler"`
	Concurrency int         `toml:"concurrency"`
}

type SourceSpec struct {
	Queue string `toml:"queue"`
}

type HandlerSpec struct {
	Pipeline string `toml:"pipeline"`
}

// Cron declares a timer-triggered job or agent run.
type Cron struct {
	Interval string      `toml:"interval"`
	Run      CronRunSpec `toml:"run"`
}

type CronRunSpec struct {
	Pipeline string `toml:"pipeline"`
	Agent    string `toml:"agent"`
}

// Parse decodes raw TOML bytes into a Runbook.
func Parse(raw []byte) (*Runbook, error) {
	var rb Runbook
	if err := toml.Unmarshal(raw, &rb); err != nil {
		return nil, fmt.Errorf("runbook: parse: %w", err)
	}
	for name, j := range rb.Job {
		for _, step := range j.Step {
			if step.Run.Kind() == "job" {
				return nil, fmt.Errorf("runbook: job %q step %q: nested job steps are not yet supported", name, step.Name)
			}
		}
	}
	return &rb, nil
}

// Hash returns the content hash used to key the runbook cache (spec.md
// §4.9.4 "refresh runbook from disk if changed").
func Hash(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
