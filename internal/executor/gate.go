package executor

import (
	"context"
	"os/exec"
	"time"

	"github.com/groblegark/oddjobs/internal/core"
)

// RunGateNow runs a gate command synchronously and reports pass/fail,
// unlike every other effect in this package. spec.md §4.9.3 requires the
// agent-action handler to branch on the gate's result within the same
// handler invocation (e.g. choosing between on_idle and on_dead), so gates
// never go through the async effect queue the other Shell-family effects
// use. timeout mirrors the GATE_TIMEOUT env var (spec.md §6).
func RunGateNow(eff core.RunGate, timeout time.Duration) (pass bool, output string) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, "bash", "-lc", eff.Command)
	cmd.Dir = eff.Cwd
	out, err := cmd.CombinedOutput()
	return err == nil, string(out)
}
