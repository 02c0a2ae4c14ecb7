package executor

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/groblegark/oddjobs/internal/core"
)

// WorkspaceManager creates and destroys the owned directories/worktrees
// described by spec.md §4.9.1's workspace modes. Plain mode is a bare
// directory copy; worktree mode shells out to `git worktree` the way the
// worktree-plugin example in the pack does for agent sandboxing.
type WorkspaceManager struct{}

func (WorkspaceManager) Create(ctx context.Context, eff core.CreateWorkspace) error {
	switch eff.Mode {
	case core.WorkspaceWorktree:
		return createWorktree(ctx, eff)
	default:
		return os.MkdirAll(eff.Path, 0o755)
	}
}

func createWorktree(ctx context.Context, eff core.CreateWorkspace) error {
	args := []string{"-C", eff.SourceRepo, "worktree", "add"}
	if eff.Branch != "" {
		args = append(args, "-b", eff.Branch)
	}
	args = append(args, eff.Path)
	if eff.StartPoint != "" {
		args = append(args, eff.StartPoint)
	}
	cmd := exec.CommandContext(ctx, "git", args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("executor: git worktree add: %w: %s", err, out)
	}
	return nil
}

func (WorkspaceManager) Delete(ctx context.Context, eff core.DeleteWorkspace, path, sourceRepo string, mode core.WorkspaceMode) error {
	if mode == core.WorkspaceWorktree && sourceRepo != "" {
		cmd := exec.CommandContext(ctx, "git", "-C", sourceRepo, "worktree", "remove", "--force", path)
		if out, err := cmd.CombinedOutput(); err != nil {
			return fmt.Errorf("executor: git worktree remove: %w: %s", err, out)
		}
		return nil
	}
	return os.RemoveAll(path)
}
