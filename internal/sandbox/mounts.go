package sandbox

import (
	"path/filepath"

	"github.com/AnEntrypoint/sandboxbox-sub004/internal/config"
	"github.com/AnEntrypoint/sandboxbox-sub004/internal/credentials"
	"github.com/AnEntrypoint/sandboxbox-sub004/internal/errors"
	"github.com/AnEntrypoint/sandboxbox-sub004/internal/logging"
	"github.com/AnEntrypoint/sandboxbox-sub004/internal/runtime"
)

// RootShareTag names the single share of the shared-folder plan.
const RootShareTag = "sandbox-root"

// PlanInput is everything the mount plan depends on.
type PlanInput struct {
	HostProjectPath string
	EphemeralRoot   string

	// Mode is the workspace mode; direct mode needs a bind transport
	Mode config.WorkspaceMode

	Transport         runtime.Transport
	ResolvesHostPaths bool

	// Alias maps a host path to the path the sandbox sees it at; nil keeps
	// host paths
	Alias func(hostPath string) string

	// Credentials are the links the bridge created in the home overlay
	Credentials []credentials.Link

	// Extra are project-requested read-only mounts
	Extra []config.ExtraMount
}

// PlanMounts computes the mounts for a session and checks that nothing
// writable escapes the ephemeral root and the host project.
func PlanMounts(in PlanInput) ([]runtime.Mount, error) {
	if in.HostProjectPath == "" || in.EphemeralRoot == "" {
		return nil, errors.ValidationError("mount plan needs a host project and an ephemeral root")
	}
	alias := in.Alias
	if alias == nil {
		alias = func(p string) string { return p }
	}

	var mounts []runtime.Mount
	if in.Transport == runtime.TransportSharedFolder {
		if in.Mode == config.WorkspaceModeDirect {
			return nil, errors.ValidationErrorf("workspace mode %q needs a bind-mount backend: a shared folder only exposes the ephemeral root", in.Mode)
		}
		mounts = sharedFolderPlan(in, alias)
	} else {
		mounts = bindPlan(in, alias)
	}

	if err := CheckMounts(mounts, in.EphemeralRoot, in.HostProjectPath); err != nil {
		return nil, err
	}
	logging.Debug("mount plan", "transport", in.Transport, "mounts", len(mounts))
	return mounts, nil
}

func bindPlan(in PlanInput, alias func(string) string) []runtime.Mount {
	p := newPlan()
	p.add(runtime.Mount{Type: runtime.MountBind, Source: in.EphemeralRoot, Target: alias(in.EphemeralRoot)})
	// Clone mode pushes back into the host repository; direct mode works in it.
	p.add(runtime.Mount{Type: runtime.MountBind, Source: in.HostProjectPath, Target: alias(in.HostProjectPath)})

	if in.ResolvesHostPaths {
		for _, l := range in.Credentials {
			if l.Method != credentials.MethodSymlink {
				continue
			}
			if runtime.Contains(in.HostProjectPath, l.HostPath) || runtime.Contains(in.EphemeralRoot, l.HostPath) {
				continue
			}
			p.add(runtime.Mount{Type: runtime.MountBind, Source: l.HostPath, Target: alias(l.HostPath), ReadOnly: true})
		}
	}

	for _, e := range in.Extra {
		p.add(runtime.Mount{Type: runtime.MountBind, Source: e.Source, Target: e.Target, ReadOnly: true})
	}
	return p.mounts
}

// sharedFolderPlan exposes the ephemeral root as one tagged share. The
// workspace and the home overlay live inside it; sync back runs on the host,
// so the host project is not shared.
func sharedFolderPlan(in PlanInput, alias func(string) string) []runtime.Mount {
	for _, e := range in.Extra {
		logging.Warn("shared folder backends ignore extra mounts", "source", e.Source, "target", e.Target)
	}
	return []runtime.Mount{{
		Type:   runtime.MountSharedFolder,
		Source: filepath.Clean(in.EphemeralRoot),
		Target: filepath.Clean(alias(in.EphemeralRoot)),
		Tag:    RootShareTag,
	}}
}

// plan drops mounts whose target is already taken.
type plan struct {
	mounts  []runtime.Mount
	targets map[string]bool
}

func newPlan() *plan {
	return &plan{targets: make(map[string]bool)}
}

func (p *plan) add(m runtime.Mount) {
	m.Source = filepath.Clean(m.Source)
	m.Target = filepath.Clean(m.Target)
	if p.targets[m.Target] {
		logging.Debug("skipping duplicate mount target", "target", m.Target, "source", m.Source)
		return
	}
	p.targets[m.Target] = true
	p.mounts = append(p.mounts, m)
}

// CheckMounts verifies that every writable mount is inside root, is the host
// project itself, or is the host project's .git directory.
func CheckMounts(mounts []runtime.Mount, root, hostProject string) error {
	gitDir := filepath.Join(hostProject, ".git")
	for _, m := range mounts {
		if m.ReadOnly {
			continue
		}
		src := filepath.Clean(m.Source)
		if runtime.Contains(root, src) || src == filepath.Clean(hostProject) || src == gitDir {
			continue
		}
		return errors.ValidationErrorf("refusing writable mount of %s: only the ephemeral root and the project may be writable", src)
	}
	return nil
}
