package sandbox

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnEntrypoint/sandboxbox-sub004/internal/config"
	"github.com/AnEntrypoint/sandboxbox-sub004/internal/system"
)

func makeRoot(t *testing.T, parent, name string, pid int) string {
	t.Helper()
	dir := filepath.Join(parent, name)
	require.NoError(t, os.MkdirAll(dir, 0700))
	if pid > 0 {
		require.NoError(t, config.SaveSessionMarker(dir, &config.SessionMarker{
			ID:          name,
			PID:         pid,
			HostProject: "/home/user/project",
			CreatedAt:   time.Now(),
		}))
	}
	return dir
}

func TestFindStaleRoots(t *testing.T) {
	tmp := t.TempDir()
	dead := makeRoot(t, tmp, "sandbox-dead", 4242)
	makeRoot(t, tmp, "sandbox-alive", os.Getpid())
	makeRoot(t, tmp, "sandbox-fresh-unmarked", 0)
	makeRoot(t, tmp, "unrelated", 4242)

	stale, err := FindStaleRoots(GCOptions{
		TempRoot: tmp,
		Alive:    func(pid int) bool { return pid == os.Getpid() },
	})
	require.NoError(t, err)

	require.Len(t, stale, 1)
	assert.Equal(t, dead, stale[0].Path)
	require.NotNil(t, stale[0].Marker)
	assert.Equal(t, 4242, stale[0].Marker.PID)
}

func TestFindStaleRoots_OldUnmarkedRoot(t *testing.T) {
	tmp := t.TempDir()
	dir := makeRoot(t, tmp, "sandbox-old", 0)

	stale, err := FindStaleRoots(GCOptions{
		TempRoot: tmp,
		Now:      func() time.Time { return time.Now().Add(UnmarkedRootAge + time.Hour) },
		Alive:    func(int) bool { return true },
	})
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, dir, stale[0].Path)
	assert.Nil(t, stale[0].Marker)
}

func TestFindStaleRoots_MissingTempRoot(t *testing.T) {
	stale, err := FindStaleRoots(GCOptions{TempRoot: filepath.Join(t.TempDir(), "missing")})
	require.NoError(t, err)
	assert.Empty(t, stale)
}

func TestRemoveStaleRoots(t *testing.T) {
	fs := system.NewMockFS()
	roots := []StaleRoot{{Path: "/tmp/sandbox-a"}, {Path: "/tmp/sandbox-b"}}

	assert.Empty(t, RemoveStaleRoots(fs, roots))
	assert.Equal(t, []string{"/tmp/sandbox-a", "/tmp/sandbox-b"}, fs.RemovedPaths)

	fs.RemoveAllErr = os.ErrPermission
	assert.Len(t, RemoveStaleRoots(fs, roots), 2)
}

func TestProcessAlive(t *testing.T) {
	assert.True(t, processAlive(os.Getpid()))
	assert.False(t, processAlive(0))
	assert.False(t, processAlive(-1))
}
