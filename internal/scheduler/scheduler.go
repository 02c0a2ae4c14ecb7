// Package scheduler is the in-memory timer wheel of spec.md §4.5: every
// liveness probe, idle grace period, cooldown, queue retry backoff and cron
// interval is a single named timer, set or cancelled idempotently and fired
// exactly once into the event stream as a core.TimerFired.
package scheduler

import (
	"sync"
	"time"

	"github.com/groblegark/oddjobs/internal/core"
)

// entry is one armed timer.
type entry struct {
	deadline time.Time
	repeat   time.Duration // zero for one-shot
}

// Scheduler holds every armed timer keyed by its TimerId. It does not run a
// goroutine per timer (spec.md explicitly favors a single poll loop over a
// goroutine-per-timer design to keep the circuit-breaker and shutdown
// behavior centrally observable); the daemon's engine loop calls Tick on
// its own cadence and republishes whatever Tick returns.
type Scheduler struct {
	mu    sync.Mutex
	clock core.Clock
	timers map[core.TimerId]*entry
}

// New returns a Scheduler driven by clock.
func New(clock core.Clock) *Scheduler {
	return &Scheduler{clock: clock, timers: make(map[core.TimerId]*entry)}
}

// Set arms id to fire after d, replacing any existing timer with the same
// id (idempotent set, spec.md §4.5). A repeat of zero means fire once; a
// nonzero repeat re-arms the timer for another d after each Tick observes
// it (used by CronIntervalTimer and the liveness probe).
func (s *Scheduler) Set(id core.TimerId, d time.Duration, repeat time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timers[id] = &entry{deadline: s.clock.Now().Add(d), repeat: repeat}
}

// Cancel disarms id. Cancelling an id that isn't armed is a no-op.
func (s *Scheduler) Cancel(id core.TimerId) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.timers, id)
}

// Armed reports whether id currently has a live timer, used by handlers
// that must not double-arm a timer already pending (e.g. re-issuing the
// idle grace timer on every AgentWaiting would otherwise keep pushing the
// deadline out).
func (s *Scheduler) Armed(id core.TimerId) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[id]
	return ok
}

// Fired returns every timer whose deadline has passed as of now, removing
// one-shot timers and re-arming repeating ones.
func (s *Scheduler) Fired(now time.Time) []core.TimerId {
	s.mu.Lock()
	defer s.mu.Unlock()

	var fired []core.TimerId
	for id, e := range s.timers {
		if now.Before(e.deadline) {
			continue
		}
		fired = append(fired, id)
		if e.repeat > 0 {
			e.deadline = now.Add(e.repeat)
		} else {
			delete(s.timers, id)
		}
	}
	return fired
}

// NextDeadline returns the earliest armed deadline, used by the engine loop
// to size its select/poll wait instead of busy-polling. The second return
// is false if no timer is armed.
func (s *Scheduler) NextDeadline() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var best time.Time
	found := false
	for _, e := range s.timers {
		if !found || e.deadline.Before(best) {
			best = e.deadline
			found = true
		}
	}
	return best, found
}
