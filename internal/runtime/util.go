package runtime

import "time"

// parseDuration accepts both Go's native duration syntax ("30s") and a bare
// integer-seconds form ("30"), since runbook authors frequently write
// cooldown values without a unit suffix.
func parseDuration(s string) (time.Duration, error) {
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	return time.ParseDuration(s + "s")
}

// durationMs converts a millisecond count from Config into a time.Duration.
func durationMs(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
