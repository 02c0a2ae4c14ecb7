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

package daemon

import (
	"context"
	"time"

	"github.com/groblegark/oddjobs/internal/core"
	"github.com/groblegark/oddjobs/internal/eventbus"
	"github.com/groblegark/oddjobs/internal/executor"
	"github.com/groblegark/oddjobs/internal/metrics"
	"github.com/groblegark/oddjobs/internal/ojlog"
	"github.com/groblegark/oddjobs/internal/runtime"
	"github.com/groblegark/oddjobs/internal/scheduler"
	"github.com/groblegark/oddjobs/internal/state"
)

// Engine is spec.md §5's single engine loop: "the only place that calls
// runtime.handle_event. No parallel handlers." Every event the daemon ever
// processes — RPC-submitted commands, watcher state transitions,
// shell/queue/workspace completions, fired timers — funnels through Submit
// and is handled strictly one at a time, in arrival order.
//
// It replaces the executor's own direct Bus.Publish calls as the thing that
// turns an event into materialized state *and* the next round of effects:
// the executor wires its Submit field back to Engine.Submit at construction
// (see NewEngine), so every event it produces asynchronously (a ShellExited,
// a SessionCreated, a watcher's AgentWorking) re-enters the loop exactly the
// way an externally-submitted command does, rather than being folded into
// state without ever reaching runtime.Handle again.
type Engine struct {
	bus       *eventbus.Bus
	rt        *runtime.Runtime
	exec      *executor.Executor
	scheduler *scheduler.Scheduler
	clock     core.Clock
	log       *ojlog.Logger

	events chan core.Event
}

// tickInterval is how often the loop polls the scheduler for fired timers.
// spec.md §4.6 tests run the equivalent poll at ~50ms; production tolerates
// the same cadence since every timer deadline here is itself seconds-scale.
const tickInterval = 50 * time.Millisecond

// NewEngine builds the loop and wires exec's async completions back into
// it. Callers must not call exec.Run directly once an Engine owns it.
func NewEngine(bus *eventbus.Bus, rt *runtime.Runtime, exec *executor.Executor, sched *scheduler.Scheduler, clock core.Clock, log *ojlog.Logger) *Engine {
	e := &Engine{
		bus: bus, rt: rt, exec: exec, scheduler: sched, clock: clock, log: log,
		events: make(chan core.Event, 256),
	}
	exec.Submit = e.Submit
	return e
}

// Submit enqueues ev for processing by the loop. Safe to call from any
// goroutine: RPC handlers, the scheduler tick, the executor's async
// completions, and per-agent watcher tasks all call this rather than
// touching the bus directly.
func (e *Engine) Submit(ev core.Event) {
	e.events <- ev
}

// Run blocks processing events and firing timers until ctx is cancelled.
// Call it after startup has already replayed the WAL and run Reconcile, so
// the first events this loop sees build on fully-materialized state.
func (e *Engine) Run(ctx context.Context) {
	tick := time.NewTicker(tickInterval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-e.events:
			e.burst(ctx, ev)
		case <-tick.C:
			for _, id := range e.scheduler.Fired(e.clock.Now()) {
				e.burst(ctx, &core.TimerFired{Id: id})
			}
		}
	}
}

// burst processes one externally-arrived event plus every follow-up event
// its handling cascades into, then flushes once — spec.md §4.3's "after
// draining a burst the bus invokes wal.flush() (group commit)".
func (e *Engine) burst(ctx context.Context, ev core.Event) {
	start := e.clockNow()
	e.process(ctx, ev)
	if err := e.bus.Flush(); err != nil {
		e.log.Error("engine: flush failed", "err", err)
	}
	metrics.ObserveWALAppend(e.clockNow().Sub(start))
	reportGauges(e.bus.State())
}

// clockNow wraps time.Now rather than e.clock.Now (which returns an
// epoch-ms used for timer scheduling, not a time.Time) purely so burst's
// latency measurement reads naturally.
func (e *Engine) clockNow() time.Time { return time.Now() }

// reportGauges recomputes the daemon-wide point-in-time gauges from freshly
// materialized state. Cheap enough to run after every burst: state is
// already in memory and the maps involved are bounded by active job count.
func reportGauges(st *state.State) {
	active, running := 0, 0
	for _, job := range st.Jobs {
		if !job.IsTerminal() {
			active++
		}
		if job.StepStatus.Kind == state.StepRunning {
			running++
		}
	}
	metrics.SetJobsActive(active)
	metrics.SetWorkerActiveJobs(running)

	depth := map[core.QueueName]int{}
	for _, item := range st.QueueItems {
		if item.Status == state.QueueItemPending {
			depth[item.QueueName]++
		}
	}
	for name, n := range depth {
		metrics.SetQueueDepth(string(name), n)
	}
}

// process publishes ev, runs it through the runtime, and recursively
// resolves any Emit effect the handler returned by publishing and handling
// that inner event too, before finally handing the remaining effects to the
// executor. This is what closes the loop executor.go's own Emit case
// cannot: that case only publishes, it never calls runtime.Handle again.
func (e *Engine) process(ctx context.Context, ev core.Event) {
	if _, err := e.bus.Publish(ev); err != nil {
		e.log.Error("engine: publish failed", "event", ev.EventName(), "err", err)
		return
	}
	metrics.ObserveStepVisit(ev.EventName())
	e.resolve(ctx, e.rt.Handle(ev, e.bus.State()))
}

func (e *Engine) resolve(ctx context.Context, effs []core.Effect) {
	rest := make([]core.Effect, 0, len(effs))
	for _, eff := range effs {
		if em, ok := eff.(core.Emit); ok {
			e.process(ctx, em.Event)
			continue
		}
		rest = append(rest, eff)
	}
	e.exec.Run(ctx, rest)
}
