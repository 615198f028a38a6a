package workspace

import (
	"context"
	"fmt"

	"github.com/AnEntrypoint/sandboxbox-sub004/internal/logging"
)

// SyncBack pushes the sandbox branch to the host over a ToHost link. It is a
// no-op when the link ignores pushes, when the sandbox is the host tree
// itself, or when the sandbox has nothing committed. Failures are
// GitSyncWarnings.
func (g *Git) SyncBack(ctx context.Context, link GitSyncLink) (bool, error) {
	if link.Direction != ToHost {
		return false, StepSync.Err(fmt.Errorf("link is directed %s, not %s", link.Direction, ToHost))
	}
	if link.ReceivePolicy == ReceiveIgnore || link.SandboxRepoPath == link.HostRepoPath {
		logging.Debug("sync back skipped", "policy", link.ReceivePolicy)
		return false, nil
	}
	if !HasCommits(link.SandboxRepoPath) {
		logging.Debug("sync back skipped, no commits", "repo", link.SandboxRepoPath)
		return false, nil
	}
	if err := g.Push(ctx, link.SandboxRepoPath, "origin", link.CurrentBranch); err != nil {
		return false, StepSync.Err(err)
	}
	logging.Debug("sandbox pushed to host", "branch", link.CurrentBranch, "host", link.HostRepoPath)
	return true, nil
}
