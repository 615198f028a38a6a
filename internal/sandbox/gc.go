package sandbox

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/AnEntrypoint/sandboxbox-sub004/internal/config"
	"github.com/AnEntrypoint/sandboxbox-sub004/internal/logging"
	"github.com/AnEntrypoint/sandboxbox-sub004/internal/system"
	"github.com/AnEntrypoint/sandboxbox-sub004/internal/workspace"
)

// UnmarkedRootAge is how old a root without a session marker must be before
// it counts as orphaned.
const UnmarkedRootAge = 24 * time.Hour

// StaleRoot is an ephemeral root left behind by a process that is gone.
type StaleRoot struct {
	Path   string
	Marker *config.SessionMarker // nil when the root has no readable marker
	Reason string
}

// GCOptions configures FindStaleRoots.
type GCOptions struct {
	TempRoot string
	Now      func() time.Time
	Alive    func(pid int) bool
}

// FindStaleRoots lists ephemeral roots under TempRoot whose owning process
// no longer exists.
func FindStaleRoots(opts GCOptions) ([]StaleRoot, error) {
	if opts.TempRoot == "" {
		opts.TempRoot = os.TempDir()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Alive == nil {
		opts.Alive = processAlive
	}

	entries, err := os.ReadDir(opts.TempRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var stale []StaleRoot
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), workspace.RootPrefix) {
			continue
		}
		path := filepath.Join(opts.TempRoot, e.Name())

		marker, err := config.LoadSessionMarker(path)
		if err != nil {
			info, ierr := e.Info()
			if ierr != nil || opts.Now().Sub(info.ModTime()) < UnmarkedRootAge {
				continue
			}
			stale = append(stale, StaleRoot{Path: path, Reason: "no session marker"})
			continue
		}
		if opts.Alive(marker.PID) {
			continue
		}
		stale = append(stale, StaleRoot{Path: path, Marker: marker, Reason: "owner process exited"})
	}
	return stale, nil
}

// RemoveStaleRoots deletes roots and returns the ones that could not be
// removed.
func RemoveStaleRoots(fs system.FileSystem, roots []StaleRoot) []StaleRoot {
	var failed []StaleRoot
	for _, r := range roots {
		if err := fs.RemoveAll(r.Path); err != nil {
			logging.Warn("failed to remove stale root", "path", r.Path, "error", err)
			failed = append(failed, r)
			continue
		}
		logging.Debug("removed stale root", "path", r.Path)
	}
	return failed
}
