package sandbox

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnEntrypoint/sandboxbox-sub004/internal/errors"
	"github.com/AnEntrypoint/sandboxbox-sub004/internal/system"
)

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func TestCoordinator_RunsInReverseOrder(t *testing.T) {
	c := NewCoordinator(CoordinatorOptions{FS: system.NewMockFS()})

	var order []string
	for _, name := range []string{"first", "second", "third"} {
		c.Register(name, func() error {
			order = append(order, name)
			return nil
		})
	}
	c.Cleanup()

	assert.Equal(t, []string{"third", "second", "first"}, order)
}

func TestCoordinator_RunsOnce(t *testing.T) {
	c := NewCoordinator(CoordinatorOptions{FS: system.NewMockFS()})
	calls := 0
	c.Register("count", func() error {
		calls++
		return nil
	})
	done := c.Done()

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Cleanup()
		}()
	}
	wg.Wait()
	c.Cleanup()

	assert.Equal(t, 1, calls)
	select {
	case <-done:
	default:
		t.Fatal("Done should be closed after cleanup")
	}
}

func TestCoordinator_SequentialSessions(t *testing.T) {
	fs := system.NewMockFS()
	c := NewCoordinator(CoordinatorOptions{FS: fs})

	c.RemoveAllOnCleanup("/tmp/sandbox-1")
	c.Cleanup()
	c.RemoveAllOnCleanup("/tmp/sandbox-2")
	assert.Equal(t, 1, c.Pending())
	c.Cleanup()
	c.Cleanup()

	assert.Equal(t, []string{"/tmp/sandbox-1", "/tmp/sandbox-2"}, fs.RemovedPaths)
	assert.Zero(t, c.Pending())
}

func TestCoordinator_FailuresAreLoggedNotReturned(t *testing.T) {
	c := NewCoordinator(CoordinatorOptions{FS: system.NewMockFS()})
	ran := false
	c.Register("later", func() error {
		ran = true
		return nil
	})
	c.RegisterCloser("log file", closerFunc(func() error { return fmt.Errorf("already closed") }))

	c.Cleanup()

	assert.True(t, ran, "a failing step must not stop the remaining ones")
	failures := c.Failures()
	require.Len(t, failures, 1)
	assert.True(t, errors.IsKind(failures[0], errors.KindCleanupFailure))
	assert.Contains(t, failures[0].Error(), "log file")
}

func TestCoordinator_RemoveAllOnCleanup(t *testing.T) {
	fs := system.NewMockFS()
	fs.AddFile("/tmp/sandbox-1/workspace/file", []byte("x"), 0644)
	c := NewCoordinator(CoordinatorOptions{FS: fs})

	c.RemoveAllOnCleanup("/tmp/sandbox-1")
	c.Cleanup()

	assert.Equal(t, []string{"/tmp/sandbox-1"}, fs.RemovedPaths)
	assert.False(t, fs.Exists("/tmp/sandbox-1/workspace/file"))
}

func TestCoordinator_Keep(t *testing.T) {
	fs := system.NewMockFS()
	c := NewCoordinator(CoordinatorOptions{FS: fs, Keep: true})

	c.RemoveAllOnCleanup("/tmp/sandbox-1")
	c.Cleanup()

	assert.Empty(t, fs.RemovedPaths)
}

func TestCoordinator_RemoveFailureIsRecorded(t *testing.T) {
	fs := system.NewMockFS()
	fs.RemoveAllErr = fmt.Errorf("device busy")
	c := NewCoordinator(CoordinatorOptions{FS: fs})

	c.RemoveAllOnCleanup("/tmp/sandbox-1")
	c.Cleanup()

	require.Len(t, c.Failures(), 1)
	assert.Contains(t, c.Failures()[0].Error(), "device busy")
}

func TestCoordinator_SignalCancelsCleansAndExits(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "sandbox-1")
	require.NoError(t, os.MkdirAll(dir, 0700))

	exited := make(chan int, 1)
	c := NewCoordinator(CoordinatorOptions{
		FS:    system.DefaultFS(),
		Grace: time.Second,
		Exit:  func(code int) { exited <- code },
	})
	c.RemoveAllOnCleanup(dir)

	ctx, cancel := context.WithCancel(context.Background())
	// The control thread notices the cancellation and cleans up itself.
	go func() {
		<-ctx.Done()
		c.Cleanup()
	}()

	c.handleSignal(syscall.SIGTERM, cancel)

	assert.Equal(t, 128+int(syscall.SIGTERM), <-exited)
	assert.Equal(t, 128+int(syscall.SIGTERM), c.SignalExitCode())
	assert.NoDirExists(t, dir)
}

func TestCoordinator_SignalGraceExpires(t *testing.T) {
	exited := make(chan int, 1)
	c := NewCoordinator(CoordinatorOptions{
		FS:    system.NewMockFS(),
		Grace: 10 * time.Millisecond,
		Exit:  func(code int) { exited <- code },
	})
	cleaned := false
	c.Register("step", func() error {
		cleaned = true
		return nil
	})

	// Nobody reacts to the cancellation; the handler cleans up on its own.
	c.handleSignal(syscall.SIGINT, func() {})

	assert.Equal(t, 130, <-exited)
	assert.True(t, cleaned)
}

func TestCoordinator_SignalWithNothingPending(t *testing.T) {
	exited := make(chan int, 1)
	c := NewCoordinator(CoordinatorOptions{
		FS:    system.NewMockFS(),
		Grace: time.Hour,
		Exit:  func(code int) { exited <- code },
	})
	c.Register("session", func() error { return nil })
	c.Cleanup()

	c.handleSignal(syscall.SIGTERM, func() {})

	assert.Equal(t, 128+int(syscall.SIGTERM), <-exited)
}

func TestCoordinator_SignalExitCodeWithoutSignal(t *testing.T) {
	c := NewCoordinator(CoordinatorOptions{})
	assert.Zero(t, c.SignalExitCode())
}

func TestCoordinator_WatchSignalsStop(t *testing.T) {
	c := NewCoordinator(CoordinatorOptions{FS: system.NewMockFS(), Exit: func(int) { t.Error("exit called") }})
	stop := c.WatchSignals(func() {})
	stop()
	stop()
}
