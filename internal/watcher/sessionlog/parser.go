// Package sessionlog implements the incremental JSONL parser spec.md §4.6
// describes: one agent session-log file, read from a remembered byte
// offset, folded line-by-line into a four-state observation.
package sessionlog

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/groblegark/oddjobs/internal/core"
)

// State is the watcher's log-derived observation of one line (spec.md
// §4.6's parse rules). It excludes the liveness-derived Gone/Exited states,
// which the watcher task layers on top independently.
type State int

const (
	StateUnknown State = iota
	StateWorking
	StateWaitingForInput
	StateFailed
)

// Observation is one state transition produced by a Consume call.
type Observation struct {
	State State
	Error *core.AgentError
}

// Parser remembers the last parsed byte offset of one session-log file and
// the last observed state, so repeated Consume calls only process newly
// appended, complete lines and only report actual transitions.
type Parser struct {
	offset int64
	last   State
}

func New() *Parser {
	return &Parser{last: StateUnknown}
}

// Consume reads any bytes appended to path since the last call and returns
// the sequence of state transitions they produced. A file shorter than the
// remembered offset (spec.md: "on truncation... resets and re-parses from
// the beginning") resets the parser entirely. A trailing, not-yet-newline-
// terminated line is left unconsumed; the offset is not advanced past it,
// so a later call picks it up once it's complete.
func (p *Parser) Consume(path string) ([]Observation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if info.Size() < p.offset {
		p.offset = 0
		p.last = StateUnknown
	}

	if _, err := f.Seek(p.offset, io.SeekStart); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}

	var obs []Observation
	start := 0
	for i := 0; i < len(data); i++ {
		if data[i] != '\n' {
			continue
		}
		line := data[start:i]
		start = i + 1
		p.offset += int64(len(line)) + 1

		st, agentErr, ok := parseLine(line)
		if !ok || st == StateUnknown {
			// Malformed JSON or a line type the state machine doesn't track
			// (e.g. system/meta lines): offset still advances so a bad line
			// can never permanently stall the parser, but it produces no
			// observation.
			continue
		}
		if st == p.last {
			continue
		}
		p.last = st
		obs = append(obs, Observation{State: st, Error: agentErr})
	}
	return obs, nil
}

type rawLine struct {
	Type       string      `json:"type"`
	Message    *rawMessage `json:"message"`
	Error      *string     `json:"error"`
	StopReason *string     `json:"stop_reason"`
}

type rawMessage struct {
	Content json.RawMessage `json:"content"`
	Error   *string         `json:"error"`
}

type contentBlock struct {
	Type string `json:"type"`
}

// parseLine implements spec.md §4.6's per-line rules. ok is false for
// malformed JSON or a line shape the state machine doesn't recognize.
func parseLine(line []byte) (State, *core.AgentError, bool) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return StateUnknown, nil, false
	}

	var rl rawLine
	if err := json.Unmarshal(line, &rl); err != nil {
		return StateUnknown, nil, false
	}

	if rl.Error != nil && *rl.Error != "" {
		return StateFailed, classifyError(*rl.Error), true
	}
	if rl.Message != nil && rl.Message.Error != nil && *rl.Message.Error != "" {
		return StateFailed, classifyError(*rl.Message.Error), true
	}

	switch rl.Type {
	case "user":
		return StateWorking, nil, true
	case "assistant":
		st := assistantState(rl.Message)
		if rl.StopReason != nil {
			// "An explicit non-null stop_reason is logged but treated as
			// Working (defensive)" — spec.md §4.6.
			st = StateWorking
		}
		return st, nil, true
	default:
		return StateUnknown, nil, false
	}
}

// assistantState applies spec.md §4.6's content-block rules: a tool_use or
// thinking block anywhere in content means the agent is still working; a
// non-empty, all-text content array means it's waiting for input; empty
// content is likewise waiting.
func assistantState(msg *rawMessage) State {
	if msg == nil || len(msg.Content) == 0 {
		return StateWaitingForInput
	}

	var blocks []contentBlock
	if err := json.Unmarshal(msg.Content, &blocks); err != nil {
		// content is a bare string (or some other non-array shape); the
		// agent produced text outside the block-array convention, treat as
		// active output.
		return StateWorking
	}
	if len(blocks) == 0 {
		return StateWaitingForInput
	}

	allText := true
	for _, b := range blocks {
		switch b.Type {
		case "tool_use", "thinking":
			return StateWorking
		case "text":
		default:
			allText = false
		}
	}
	if allText {
		return StateWaitingForInput
	}
	return StateWorking
}

// classifyError matches spec.md §4.6's canonicalized substring rules.
func classifyError(msg string) *core.AgentError {
	lower := strings.ToLower(msg)
	kind := core.AgentErrorOther
	switch {
	case containsAny(lower, "rate limit", "too many requests"):
		kind = core.AgentErrorRateLimited
	case containsAny(lower, "unauthorized", "invalid api key"):
		kind = core.AgentErrorUnauthorized
	case containsAny(lower, "network", "connection refused", "offline"):
		kind = core.AgentErrorNoInternet
	case containsAny(lower, "credits", "quota", "billing"):
		kind = core.AgentErrorOutOfCredits
	}
	return &core.AgentError{Kind: kind, Message: msg}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
