package core

import "fmt"

// TimerId names a scheduled deadline. Structured rather than opaque so the
// scheduler can be keyed on it directly and so cancellation call sites read
// the same way the runtime handlers that set them do (spec.md §4.5).
type TimerId string

func LivenessTimer(id JobId) TimerId {
	return TimerId(fmt.Sprintf("liveness:%s", id))
}

func IdleGraceTimer(id JobId) TimerId {
	return TimerId(fmt.Sprintf("idle_grace:%s", id))
}

func ExitDeferredTimer(id JobId) TimerId {
	return TimerId(fmt.Sprintf("exit_deferred:%s", id))
}

func CooldownTimer(id JobId, trigger string, chainPos int) TimerId {
	return TimerId(fmt.Sprintf("cooldown:%s:%s:%d", id, trigger, chainPos))
}

func QueueRetryTimer(queue QueueName, item QueueItemId) TimerId {
	return TimerId(fmt.Sprintf("queue_retry:%s:%s", queue, item))
}

func CronIntervalTimer(name CronName) TimerId {
	return TimerId(fmt.Sprintf("cron_interval:%s", name))
}
