// Package eventbus is the single choke point events pass through on their
// way from a handler or the watcher into the WAL and then into the
// materialized state fold, per spec.md §4.3: every event is persisted before
// it is ever folded or observed, and a burst of events sharing one tick
// shares one fsync.
package eventbus

import (
	"fmt"
	"sync"

	"github.com/groblegark/oddjobs/internal/core"
	"github.com/groblegark/oddjobs/internal/state"
	"github.com/groblegark/oddjobs/internal/wal"
)

// Bus serializes every Append+Fold behind one mutex. The daemon's single
// engine goroutine is the only expected caller of Publish, but the mutex
// makes it safe for the stop-hook RPC handler and cron/timer goroutines to
// publish directly too.
type Bus struct {
	mu    sync.Mutex
	log   *wal.WAL
	state *state.State

	pending int
	subs    []func(core.Event)
}

// New wraps an already-open WAL and the state it was replayed into.
func New(log *wal.WAL, st *state.State) *Bus {
	return &Bus{log: log, state: st}
}

// Subscribe registers fn to be called, in registration order, with every
// event immediately after it is folded into state. Subscribers run
// synchronously on the publisher's goroutine and must not block.
func (b *Bus) Subscribe(fn func(core.Event)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, fn)
}

// Publish appends ev to the WAL, folds it into state, and notifies
// subscribers, all under the bus lock so no reader ever observes state that
// is ahead of the durable log. It does not fsync; call Flush after a burst.
func (b *Bus) Publish(ev core.Event) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	seq, err := b.log.Append(ev)
	if err != nil {
		return 0, fmt.Errorf("eventbus: append: %w", err)
	}
	if err := state.ApplyEvent(b.state, ev); err != nil {
		return 0, fmt.Errorf("eventbus: apply: %w", err)
	}
	b.pending++
	for _, fn := range b.subs {
		fn(ev)
	}
	return seq, nil
}

// PublishBatch publishes every event in order under a single lock
// acquisition, the group-commit shape spec.md §4.3 describes for a burst of
// events produced by one handler invocation (e.g. JobAdvanced plus the
// StepStarted it implies).
func (b *Bus) PublishBatch(evs []core.Event) ([]uint64, error) {
	seqs := make([]uint64, 0, len(evs))
	for _, ev := range evs {
		seq, err := b.Publish(ev)
		if err != nil {
			return seqs, err
		}
	}
	return seqs, nil
}

// Flush fsyncs the WAL once, committing every event published since the
// last Flush. The daemon calls this after draining its event channel to
// batch the durability cost of a burst into one fsync.
func (b *Bus) Flush() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pending == 0 {
		return nil
	}
	if err := b.log.Flush(); err != nil {
		return fmt.Errorf("eventbus: flush: %w", err)
	}
	b.pending = 0
	return nil
}

// State returns the live materialized state. Callers must treat it as
// read-only except via Publish; State.Clone gives a safe snapshot for
// concurrent readers (e.g. the CLI's `oj status`, reconciliation).
func (b *Bus) State() *state.State {
	return b.state
}

// Seq reports the WAL sequence of the most recently published event.
func (b *Bus) Seq() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.log.ProcessedSeq()
}
