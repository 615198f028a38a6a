package workspace

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/AnEntrypoint/sandboxbox-sub004/internal/logging"
	"github.com/AnEntrypoint/sandboxbox-sub004/internal/system"
)

// IdentityKeys are copied from the global git config into every sandbox repo.
var IdentityKeys = []string{"user.name", "user.email", "color.ui"}

// Git runs the git binary.
type Git struct {
	exec system.CommandExecutor
}

// NewGit creates a Git runner
func NewGit(exec system.CommandExecutor) *Git {
	return &Git{exec: exec}
}

// Available reports an error when git is not on PATH.
func (g *Git) Available() error {
	_, err := g.exec.LookPath("git")
	return err
}

func (g *Git) run(ctx context.Context, args ...string) (string, error) {
	out, err := g.exec.Execute(ctx, "git", args...)
	if err != nil {
		return string(out), fmt.Errorf("git %s: %s: %w", strings.Join(args, " "), strings.TrimSpace(string(out)), err)
	}
	return strings.TrimSpace(string(out)), nil
}

// in runs git inside repo.
func (g *Git) in(ctx context.Context, repo string, args ...string) (string, error) {
	return g.run(ctx, append([]string{"-C", repo}, args...)...)
}

// Init creates an empty repository at dir.
func (g *Git) Init(ctx context.Context, dir string) error {
	_, err := g.run(ctx, "init", "--quiet", dir)
	return err
}

// SafeDirectories returns the global safe.directory entries.
func (g *Git) SafeDirectories(ctx context.Context) ([]string, error) {
	out, err := g.exec.Execute(ctx, "git", "config", "--global", "--get-all", "safe.directory")
	if err != nil {
		// exit status 1: the key is not set
		if system.ExitCode(err) == 1 {
			return nil, nil
		}
		return nil, fmt.Errorf("git config --get-all safe.directory: %w", err)
	}
	var dirs []string
	for _, line := range strings.Split(string(out), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			dirs = append(dirs, line)
		}
	}
	return dirs, nil
}

// EnsureSafeDirectories adds each path to the global safe.directory list
// unless it is already present, and returns the paths it added.
func (g *Git) EnsureSafeDirectories(ctx context.Context, paths ...string) ([]string, error) {
	existing, err := g.SafeDirectories(ctx)
	if err != nil {
		return nil, err
	}
	have := make(map[string]bool, len(existing))
	for _, d := range existing {
		have[d] = true
	}

	var added []string
	for _, p := range paths {
		if have[p] || have["*"] {
			continue
		}
		if _, err := g.run(ctx, "config", "--global", "--add", "safe.directory", p); err != nil {
			return added, err
		}
		have[p] = true
		added = append(added, p)
	}
	if len(added) > 0 {
		logging.Debug("registered safe directories", "paths", added)
	}
	return added, nil
}

// SetReceivePolicy sets receive.denyCurrentBranch on repo.
func (g *Git) SetReceivePolicy(ctx context.Context, repo string, policy ReceivePolicy) error {
	return g.SetConfig(ctx, repo, "receive.denyCurrentBranch", string(policy))
}

// SetConfig writes a key into repo's local config.
func (g *Git) SetConfig(ctx context.Context, repo, key, value string) error {
	_, err := g.in(ctx, repo, "config", key, value)
	return err
}

// GetConfig reads a key from repo's config.
func (g *Git) GetConfig(ctx context.Context, repo, key string) (string, error) {
	return g.in(ctx, repo, "config", "--get", key)
}

// GlobalIdentity reads IdentityKeys from the global config in one call.
// Keys that are not set are absent from the result.
func (g *Git) GlobalIdentity(ctx context.Context) (map[string]string, error) {
	pattern := "^(" + strings.ReplaceAll(strings.Join(IdentityKeys, "|"), ".", `\.`) + ")$"
	out, err := g.exec.Execute(ctx, "git", "config", "--global", "--get-regexp", pattern)
	if err != nil {
		if system.ExitCode(err) == 1 {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("git config --get-regexp: %w", err)
	}
	return parseConfigList(string(out)), nil
}

// parseConfigList parses `--get-regexp` output of "key value" lines.
func parseConfigList(out string) map[string]string {
	values := make(map[string]string)
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		key, value, _ := strings.Cut(line, " ")
		values[strings.ToLower(key)] = value
	}
	return values
}

// Clone makes a shallow single-branch clone of src at dst.
func (g *Git) Clone(ctx context.Context, src, dst, branch string) error {
	args := []string{"clone", "--quiet", "--depth", "1", "--no-tags"}
	if branch != "" {
		args = append(args, "--branch", branch)
	}
	_, err := g.run(ctx, append(args, "file://"+filepath.ToSlash(src), dst)...)
	return err
}

// SymbolicRef points HEAD of repo at branch.
func (g *Git) SymbolicRef(ctx context.Context, repo, branch string) error {
	_, err := g.in(ctx, repo, "symbolic-ref", "HEAD", "refs/heads/"+branch)
	return err
}

// CreateBranch creates branch at HEAD without checking it out.
func (g *Git) CreateBranch(ctx context.Context, repo, branch string) error {
	_, err := g.in(ctx, repo, "branch", branch)
	return err
}

// SetRemote points remote name of repo at url, adding it when absent.
func (g *Git) SetRemote(ctx context.Context, repo, name, url string) error {
	if _, err := g.in(ctx, repo, "remote", "set-url", name, url); err == nil {
		return nil
	}
	_, err := g.in(ctx, repo, "remote", "add", name, url)
	return err
}

// RemoteURL returns the URL of remote name.
func (g *Git) RemoteURL(ctx context.Context, repo, name string) (string, error) {
	return g.in(ctx, repo, "remote", "get-url", name)
}

// SetUpstream makes branch track remote. The remote branch need not exist
// yet, which is the case for a repository without commits.
func (g *Git) SetUpstream(ctx context.Context, repo, remote, branch string) error {
	if err := g.SetConfig(ctx, repo, "branch."+branch+".remote", remote); err != nil {
		return err
	}
	return g.SetConfig(ctx, repo, "branch."+branch+".merge", "refs/heads/"+branch)
}

// Push pushes HEAD of repo to branch on remote.
func (g *Git) Push(ctx context.Context, repo, remote, branch string) error {
	_, err := g.in(ctx, repo, "push", "--quiet", remote, "HEAD:refs/heads/"+branch)
	return err
}

// IsRepo reports whether path holds repository metadata. .git can be a
// directory or, for worktrees and submodules, a file.
func IsRepo(path string) bool {
	info, err := os.Stat(filepath.Join(path, ".git"))
	if err != nil {
		return false
	}
	return info.IsDir() || info.Mode().IsRegular()
}

// CurrentBranch returns the branch HEAD points at, including an unborn one.
func CurrentBranch(path string) (string, error) {
	repo, err := gogit.PlainOpen(path)
	if err != nil {
		return "", err
	}
	head, err := repo.Reference(plumbing.HEAD, false)
	if err != nil {
		return "", err
	}
	if head.Type() == plumbing.SymbolicReference {
		return head.Target().Short(), nil
	}
	return "", fmt.Errorf("HEAD is detached at %s", head.Hash())
}

// HasCommits reports whether HEAD resolves to a commit.
func HasCommits(path string) bool {
	repo, err := gogit.PlainOpen(path)
	if err != nil {
		return false
	}
	_, err = repo.Head()
	return err == nil
}

// BranchExists reports whether a local branch exists.
func BranchExists(path, branch string) bool {
	repo, err := gogit.PlainOpen(path)
	if err != nil {
		return false
	}
	_, err = repo.Reference(plumbing.NewBranchReferenceName(branch), true)
	return err == nil
}

// HeadCommit returns the hash HEAD resolves to.
func HeadCommit(path string) (string, error) {
	repo, err := gogit.PlainOpen(path)
	if err != nil {
		return "", err
	}
	ref, err := repo.Head()
	if err != nil {
		return "", err
	}
	return ref.Hash().String(), nil
}
