package workspace

import (
	"context"
	"os"
	"path/filepath"

	"github.com/AnEntrypoint/sandboxbox-sub004/internal/config"
	"github.com/AnEntrypoint/sandboxbox-sub004/internal/errors"
	"github.com/AnEntrypoint/sandboxbox-sub004/internal/logging"
	"github.com/AnEntrypoint/sandboxbox-sub004/internal/system"
)

// RootPrefix prefixes every ephemeral root directory name.
const RootPrefix = "sandbox-"

// DefaultBranch is used when the host repository has no branch yet.
const DefaultBranch = "main"

// DetachedBranchPrefix prefixes the branch created on the host when its HEAD
// is detached.
const DetachedBranchPrefix = "sandbox/detached-"

// ReceivePolicy is the host repository's receive.denyCurrentBranch value.
type ReceivePolicy string

const (
	// ReceiveUpdateInstead applies pushes to the checked-out branch and its
	// working tree.
	ReceiveUpdateInstead ReceivePolicy = "updateInstead"
	// ReceiveIgnore accepts pushes without touching the working tree.
	ReceiveIgnore ReceivePolicy = "ignore"
)

// ReceivePolicyFor returns the receive policy for a workspace mode. A clone
// is a separate tree, so pushes from it must update the host checkout. In
// direct mode the sandbox edits the host files themselves and a push would
// be redundant.
func ReceivePolicyFor(mode config.WorkspaceMode) ReceivePolicy {
	if mode == config.WorkspaceModeDirect {
		return ReceiveIgnore
	}
	return ReceiveUpdateInstead
}

// Direction orients a GitSyncLink.
type Direction string

const (
	FromHost Direction = "fromHost"
	ToHost   Direction = "toHost"
)

// GitSyncLink is one directed edge between the host repository and the
// sandbox repository.
type GitSyncLink struct {
	HostRepoPath    string
	SandboxRepoPath string
	CurrentBranch   string
	ReceivePolicy   ReceivePolicy
	Direction       Direction
}

// Source returns the repository the link reads from.
func (l GitSyncLink) Source() string {
	if l.Direction == ToHost {
		return l.SandboxRepoPath
	}
	return l.HostRepoPath
}

// Destination returns the repository the link writes to.
func (l GitSyncLink) Destination() string {
	if l.Direction == ToHost {
		return l.HostRepoPath
	}
	return l.SandboxRepoPath
}

// GitLinks holds both edges of the host/sandbox relationship. FromHost seeds
// the sandbox; ToHost carries pushes back.
type GitLinks struct {
	FromHost GitSyncLink
	ToHost   GitSyncLink
}

// Layout is the directory tree of one ephemeral root.
type Layout struct {
	Root        string
	Workspace   string
	HomeOverlay string
	Cache       string
	Config      string
	Tmp         string
}

// NewLayout returns the layout rooted at root.
func NewLayout(root string) Layout {
	return Layout{
		Root:        root,
		Workspace:   filepath.Join(root, "workspace"),
		HomeOverlay: filepath.Join(root, "home-overlay"),
		Cache:       filepath.Join(root, "cache"),
		Config:      filepath.Join(root, "config"),
		Tmp:         filepath.Join(root, "tmp"),
	}
}

// Dirs lists the subdirectories created under Root.
func (l Layout) Dirs() []string {
	return []string{l.Workspace, l.HomeOverlay, l.Cache, l.Config, l.Tmp}
}

// Options configures a Provisioner.
type Options struct {
	Mode config.WorkspaceMode

	// Exclude adds directory names to DefaultExcludes for the filtered copy
	Exclude []string

	// Branch requests a branch; empty follows the host's current branch
	Branch string

	// TempRoot is the parent of ephemeral roots; empty uses os.TempDir()
	TempRoot string

	// RemoteAlias maps the host repo path to the path the sandbox sees it at
	RemoteAlias func(hostPath string) string
}

// Provisioned describes a provisioned workspace.
type Provisioned struct {
	HostProjectPath string
	EphemeralRoot   string
	WorkspacePath   string
	Layout          Layout
	Links           GitLinks

	// InitializedHost is set when the host had no repository before
	InitializedHost bool

	// Warnings are the non-fatal git steps that failed
	Warnings []error
}

func (p *Provisioned) warn(step Step, err error) {
	w := step.Err(err)
	logging.Warn("git sync degraded", "step", string(step), "error", err)
	p.Warnings = append(p.Warnings, w)
}

// Provisioner creates ephemeral workspaces for host projects.
type Provisioner struct {
	git  *Git
	fs   system.FileSystem
	opts Options
}

// NewProvisioner creates a Provisioner running git through exec.
func NewProvisioner(exec system.CommandExecutor, fs system.FileSystem, opts Options) *Provisioner {
	if opts.Mode == "" {
		opts.Mode = config.WorkspaceModeClone
	}
	if opts.TempRoot == "" {
		opts.TempRoot = os.TempDir()
	}
	if opts.RemoteAlias == nil {
		opts.RemoteAlias = func(p string) string { return p }
	}
	return &Provisioner{git: NewGit(exec), fs: fs, opts: opts}
}

// Git returns the git runner used by the provisioner.
func (p *Provisioner) Git() *Git {
	return p.git
}

// Provision validates hostProjectPath, prepares the host repository and
// creates an ephemeral root holding the sandbox's copy of it.
//
// Validation failures return before anything is created. When a later fatal
// step fails the partially built result is returned together with the error
// so the caller can remove EphemeralRoot.
func (p *Provisioner) Provision(ctx context.Context, hostProjectPath string) (*Provisioned, error) {
	host, err := p.Validate(hostProjectPath)
	if err != nil {
		return nil, err
	}

	res := &Provisioned{HostProjectPath: host}

	if !IsRepo(host) {
		logging.Debug("initializing repository in place", "path", host)
		if err := p.git.Init(ctx, host); err != nil {
			return nil, StepInitHost.Err(err)
		}
		res.InitializedHost = true
	}

	if _, err := p.git.EnsureSafeDirectories(ctx, host, filepath.Join(host, ".git")); err != nil {
		res.warn(StepSafeDirectory, err)
	}

	policy := ReceivePolicyFor(p.opts.Mode)
	if err := p.git.SetReceivePolicy(ctx, host, policy); err != nil {
		res.warn(StepReceivePolicy, err)
	}

	branch := p.reconcileHostBranch(ctx, host, res)

	root, err := os.MkdirTemp(p.opts.TempRoot, RootPrefix)
	if err != nil {
		return nil, StepCreateRoot.Err(err)
	}
	res.EphemeralRoot = root
	res.Layout = NewLayout(root)
	for _, dir := range res.Layout.Dirs() {
		if err := p.fs.MkdirAll(dir, 0o700); err != nil {
			return res, StepCreateRoot.Err(err)
		}
	}

	res.WorkspacePath = res.Layout.Workspace
	if p.opts.Mode == config.WorkspaceModeDirect {
		res.WorkspacePath = host
	} else if err := p.populate(ctx, host, branch, res); err != nil {
		return res, err
	}

	res.Links = GitLinks{
		FromHost: GitSyncLink{
			HostRepoPath:    host,
			SandboxRepoPath: res.WorkspacePath,
			CurrentBranch:   branch,
			ReceivePolicy:   policy,
			Direction:       FromHost,
		},
		ToHost: GitSyncLink{
			HostRepoPath:    host,
			SandboxRepoPath: res.WorkspacePath,
			CurrentBranch:   branch,
			ReceivePolicy:   policy,
			Direction:       ToHost,
		},
	}

	logging.Debug("workspace provisioned",
		"host", host, "root", root, "workspace", res.WorkspacePath,
		"branch", branch, "mode", p.opts.Mode, "warnings", len(res.Warnings))
	return res, nil
}

// Validate checks that git is installed and that hostProjectPath is an
// existing directory outside the temp root. It returns the resolved absolute
// path and creates nothing.
func (p *Provisioner) Validate(hostProjectPath string) (string, error) {
	if err := p.git.Available(); err != nil {
		return "", StepValidate.Err(errors.ValidationError("git is not installed"))
	}
	if hostProjectPath == "" {
		return "", errors.ValidationError("project path is required")
	}
	host, err := filepath.Abs(hostProjectPath)
	if err != nil {
		return "", errors.ValidationErrorf("invalid project path %q: %v", hostProjectPath, err)
	}
	if resolved, err := filepath.EvalSymlinks(host); err == nil {
		host = resolved
	}
	if !p.fs.Exists(host) {
		return "", errors.ValidationErrorf("project path does not exist: %s", host)
	}
	if !p.fs.IsDir(host) {
		return "", errors.ValidationErrorf("project path is not a directory: %s", host)
	}

	tmp, err := filepath.Abs(p.opts.TempRoot)
	if err != nil {
		return "", errors.ValidationErrorf("invalid temp root %q: %v", p.opts.TempRoot, err)
	}
	if resolved, err := filepath.EvalSymlinks(tmp); err == nil {
		tmp = resolved
	}
	if inside(host, tmp) {
		return "", errors.ValidationErrorf("temp root %s is inside the project %s", tmp, host)
	}
	return host, nil
}

// reconcileHostBranch decides the session branch and creates it on the host
// when it is missing there. A detached HEAD gets a branch of its own at the
// detached commit so the clone has something to check out.
func (p *Provisioner) reconcileHostBranch(ctx context.Context, host string, res *Provisioned) string {
	hostBranch, err := CurrentBranch(host)
	detached := err != nil && HasCommits(host)
	if err != nil || hostBranch == "" {
		hostBranch = DefaultBranch
	}
	branch := p.opts.Branch
	if branch == "" && detached {
		name, err := detachedBranch(host)
		if err != nil {
			res.warn(StepBranch, err)
			return hostBranch
		}
		branch = name
	}
	if branch == "" {
		return hostBranch
	}
	if branch == hostBranch && !detached {
		return branch
	}

	if !HasCommits(host) {
		// An unborn HEAD can be repointed without touching any commit.
		if err := p.git.SymbolicRef(ctx, host, branch); err != nil {
			res.warn(StepBranch, err)
			return hostBranch
		}
		return branch
	}
	if !BranchExists(host, branch) {
		if err := p.git.CreateBranch(ctx, host, branch); err != nil {
			res.warn(StepBranch, err)
			return hostBranch
		}
	}
	return branch
}

// detachedBranch names the branch created for a detached HEAD.
func detachedBranch(host string) (string, error) {
	hash, err := HeadCommit(host)
	if err != nil {
		return "", err
	}
	if len(hash) > 12 {
		hash = hash[:12]
	}
	return DetachedBranchPrefix + hash, nil
}

func (p *Provisioner) populate(ctx context.Context, host, branch string, res *Provisioned) error {
	ws := res.Layout.Workspace

	if HasCommits(host) {
		if err := p.git.Clone(ctx, host, ws, branch); err != nil {
			return StepClone.Err(err)
		}
	} else {
		excludes := append(append([]string{}, DefaultExcludes...), p.opts.Exclude...)
		if err := CopyTree(host, ws, excludes); err != nil {
			return StepCopy.Err(err)
		}
		if err := p.git.Init(ctx, ws); err != nil {
			return StepInitSandbox.Err(err)
		}
		if err := p.git.SymbolicRef(ctx, ws, branch); err != nil {
			return StepInitSandbox.Err(err)
		}
	}

	if err := p.git.SetRemote(ctx, ws, "origin", p.opts.RemoteAlias(host)); err != nil {
		res.warn(StepRemote, err)
	}

	identity, err := p.git.GlobalIdentity(ctx)
	if err != nil {
		res.warn(StepIdentity, err)
	}
	for _, key := range IdentityKeys {
		v, ok := identity[key]
		if !ok {
			continue
		}
		if err := p.git.SetConfig(ctx, ws, key, v); err != nil {
			res.warn(StepIdentity, err)
			break
		}
	}

	if err := p.git.SetUpstream(ctx, ws, "origin", branch); err != nil {
		res.warn(StepUpstream, err)
	}
	return nil
}

func inside(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !filepath.IsAbs(rel) && !hasDotDotPrefix(rel))
}

func hasDotDotPrefix(rel string) bool {
	return len(rel) >= 3 && rel[:2] == ".." && rel[2] == filepath.Separator
}
