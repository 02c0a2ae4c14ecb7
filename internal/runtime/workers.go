package runtime

import (
	"github.com/groblegark/oddjobs/internal/core"
	"github.com/groblegark/oddjobs/internal/runbook"
	"github.com/groblegark/oddjobs/internal/runbook/interp"
	"github.com/groblegark/oddjobs/internal/state"
)

// handleWorkerStarted triggers the worker's first poll (spec.md §4.9.4).
func (r *Runtime) handleWorkerStarted(e *core.WorkerStarted, st *state.State) []core.Effect {
	w := st.Workers[e.WorkerName]
	if w == nil {
		return nil
	}
	rb := r.runbookForNamespace(st, e.Namespace)
	if rb == nil {
		return nil
	}
	q, ok := rb.Queue[w.QueueName.String()]
	if !ok {
		return nil
	}
	if q.Type == "persisted" {
		return []core.Effect{core.PollQueue{WorkerName: e.WorkerName, QueueName: w.QueueName, Persisted: true}}
	}
	return []core.Effect{core.PollQueue{WorkerName: e.WorkerName, QueueName: w.QueueName, ListCmd: q.List, Cwd: w.ProjectRoot}}
}

func (r *Runtime) runbookForNamespace(st *state.State, namespace string) *runbook.Runbook {
	for hash := range st.Runbooks {
		rb := r.runbookFor(st, hash)
		if rb != nil {
			return rb
		}
	}
	return nil
}

// handleWorkerPollComplete dispatches up to the worker's available slots to
// new Jobs (spec.md §4.9.4).
func (r *Runtime) handleWorkerPollComplete(e *core.WorkerPollComplete, st *state.State) []core.Effect {
	w := st.Workers[e.WorkerName]
	if w == nil {
		return nil
	}
	slots := w.Concurrency - len(w.ActiveJobIds)
	if slots <= 0 {
		return nil
	}
	rb := r.runbookForNamespace(st, w.Namespace)
	if rb == nil {
		return nil
	}
	q, ok := rb.Queue[w.QueueName.String()]
	if !ok {
		return nil
	}

	var effects []core.Effect
	if q.Type == "persisted" {
		pending := pendingItems(st, w.QueueName, slots)
		for _, item := range pending {
			effects = append(effects, emit(&core.QueueTaken{QueueName: w.QueueName, ItemId: item.Id, WorkerName: e.WorkerName, Namespace: w.Namespace}))
			effects = append(effects, r.dispatchQueueItem(w, rb.Worker[w.Name.String()].Handler.Pipeline, item.Id, item.Data, st)...)
		}
		return effects
	}
	for i, item := range e.Items {
		if i >= slots {
			break
		}
		itemId := core.QueueItemId(item["id"])
		takeCmd := interp.Expand(q.Take, item)
		effects = append(effects, core.TakeQueueItem{WorkerName: e.WorkerName, QueueName: w.QueueName, ItemId: itemId, TakeCmd: takeCmd, Cwd: w.ProjectRoot})
	}
	return effects
}

// handleWorkerTakeComplete creates the handler pipeline Job for a
// successfully taken external-queue item.
func (r *Runtime) handleWorkerTakeComplete(e *core.WorkerTakeComplete, st *state.State) []core.Effect {
	w := st.Workers[e.WorkerName]
	if w == nil || e.ExitCode != 0 {
		return nil
	}
	rb := r.runbookForNamespace(st, w.Namespace)
	if rb == nil {
		return nil
	}
	workerDef, ok := rb.Worker[w.Name.String()]
	if !ok {
		return nil
	}
	return r.dispatchQueueItem(w, workerDef.Handler.Pipeline, e.ItemId, e.Item, st)
}

func (r *Runtime) dispatchQueueItem(w *state.WorkerRecord, pipeline string, itemId core.QueueItemId, item map[string]string, st *state.State) []core.Effect {
	rb := r.runbookForNamespace(st, w.Namespace)
	if rb == nil {
		return nil
	}
	jobDef, ok := rb.Job[pipeline]
	if !ok || len(jobDef.Step) == 0 {
		return nil
	}
	vars := make(map[string]string, len(jobDef.Vars)+len(item))
	for k, v := range jobDef.Vars {
		vars[k] = v
	}
	for k, v := range item {
		vars["item_"+k] = v
	}
	jobId := r.ids.NewJobId()
	return []core.Effect{
		emit(&core.JobCreated{
			Id: jobId, Kind: pipeline, Name: pipeline, RunbookHash: w.RunbookHash,
			Cwd: w.ProjectRoot, Vars: vars, InitialStep: jobDef.Step[0].Name,
			CreatedAtMs: r.clock.EpochMs(), Namespace: w.Namespace,
		}),
		emit(&core.WorkerItemDispatched{WorkerName: w.Name, ItemId: itemId, JobId: jobId, Namespace: w.Namespace}),
	}
}

func pendingItems(st *state.State, queue core.QueueName, limit int) []*state.QueueItem {
	var out []*state.QueueItem
	for _, it := range st.QueueItems {
		if it.QueueName != queue || it.Status != state.QueueItemPending {
			continue
		}
		out = append(out, it)
		if len(out) >= limit {
			break
		}
	}
	return out
}

// handleQueueCompleted/handleQueueFailed drive the persisted-queue
// retry/dead-letter policy (spec.md §4.9.4).
func (r *Runtime) handleQueueCompleted(e *core.QueueCompleted, st *state.State) []core.Effect {
	return nil
}

func (r *Runtime) handleQueueFailed(e *core.QueueFailed, st *state.State) []core.Effect {
	item := st.QueueItems[e.ItemId]
	if item == nil {
		return nil
	}
	rb := r.runbookFromHashes(st)
	if rb == nil {
		return []core.Effect{emit(&core.QueueItemDead{QueueName: e.QueueName, ItemId: e.ItemId})}
	}
	q, ok := rb.Queue[e.QueueName.String()]
	if !ok || q.Retry == nil || item.FailureCount >= q.Retry.Attempts {
		return []core.Effect{emit(&core.QueueItemDead{QueueName: e.QueueName, ItemId: e.ItemId})}
	}
	d, err := parseDuration(q.Retry.Cooldown)
	if err != nil {
		d = 0
	}
	return []core.Effect{core.SetTimer{Id: core.QueueRetryTimer(e.QueueName, e.ItemId), Duration: d}}
}

func (r *Runtime) runbookFromHashes(st *state.State) *runbook.Runbook {
	for hash := range st.Runbooks {
		return r.runbookFor(st, hash)
	}
	return nil
}
