package runtime

import (
	"fmt"
	"path/filepath"
	"strings"
)

// MountType specifies how a path is exposed to the sandbox
type MountType string

const (
	// MountBind aliases a host path directly (containers)
	MountBind MountType = "bind"
	// MountSharedFolder is a tagged share (VMs)
	MountSharedFolder MountType = "sharedFolder"
)

// Mount represents a filesystem exposure in the sandbox
type Mount struct {
	// Type is the mount type (bind, sharedFolder)
	Type MountType

	// Source is the host path
	Source string

	// Target is the path inside the sandbox
	Target string

	// ReadOnly makes the mount read-only
	ReadOnly bool

	// Tag names a shared folder
	Tag string
}

// Mode returns "ro" or "rw".
func (m Mount) Mode() string {
	if m.ReadOnly {
		return "ro"
	}
	return "rw"
}

func (m Mount) String() string {
	return fmt.Sprintf("%s:%s:%s", m.Source, m.Target, m.Mode())
}

// Contains reports whether path is inside dir (or equal to it).
func Contains(dir, path string) bool {
	rel, err := filepath.Rel(filepath.Clean(dir), filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// ToDockerArgs converts mounts to Docker/Podman command line arguments
func ToDockerArgs(mounts []Mount) []string {
	var args []string
	for _, m := range mounts {
		s := fmt.Sprintf("%s:%s", m.Source, m.Target)
		if m.ReadOnly {
			s += ":ro"
		}
		args = append(args, "-v", s)
	}
	return args
}

// ToAppleArgs converts mounts to Apple Container command line arguments.
// Shared folders become tagged virtiofs shares.
func ToAppleArgs(mounts []Mount) []string {
	var args []string
	for _, m := range mounts {
		s := fmt.Sprintf("type=bind,source=%s,target=%s", m.Source, m.Target)
		if m.Type == MountSharedFolder {
			s = fmt.Sprintf("type=virtiofs,tag=%s,source=%s,target=%s", m.Tag, m.Source, m.Target)
		}
		if m.ReadOnly {
			s += ",readonly"
		}
		args = append(args, "--mount", s)
	}
	return args
}

// ToBwrapArgs converts mounts to bubblewrap bind arguments
func ToBwrapArgs(mounts []Mount) []string {
	var args []string
	for _, m := range mounts {
		flag := "--bind"
		if m.ReadOnly {
			flag = "--ro-bind"
		}
		args = append(args, flag, m.Source, m.Target)
	}
	return args
}
