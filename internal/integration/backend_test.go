package integration

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnEntrypoint/sandboxbox-sub004/internal/audit"
	"github.com/AnEntrypoint/sandboxbox-sub004/internal/config"
	"github.com/AnEntrypoint/sandboxbox-sub004/internal/errors"
	"github.com/AnEntrypoint/sandboxbox-sub004/internal/testutil"
)

func TestBackend_EchoAndCleanup(t *testing.T) {
	h := NewHarness(t)
	project := h.Env().CreateRepo("repo")

	r := h.Run(project, "echo", "hello")
	require.NoError(t, r.Err)

	assert.Equal(t, "hello\n", r.Stdout)
	assert.Zero(t, r.ExitCode)
	h.RequireNoRoots()
}

func TestBackend_WorkspaceIsVisible(t *testing.T) {
	h := NewHarness(t)
	project := h.Env().CreateRepo("repo")

	r := h.Run(project, "cat", "README.md")
	require.NoError(t, r.Err, "stderr: %s", r.Stderr)

	assert.Equal(t, "# Test\n", r.Stdout)
}

func TestBackend_ExitCodePassesThrough(t *testing.T) {
	h := NewHarness(t)
	project := h.Env().CreateRepo("repo")

	r := h.Run(project, "sh", "-c", "echo oops >&2; exit 9")
	require.Error(t, r.Err)

	assert.True(t, errors.IsKind(r.Err, errors.KindExecutionFailure))
	assert.Equal(t, 9, errors.GetExitCode(r.Err))
	assert.Contains(t, r.Stderr, "oops")
	h.RequireNoRoots()
}

func TestBackend_HostTreeUntouched(t *testing.T) {
	h := NewHarness(t)
	project := h.Env().CreateRepo("repo")

	r := h.Run(project, "sh", "-c", "echo changed > README.md && rm -f .gitignore")
	require.NoError(t, r.Err, "stderr: %s", r.Stderr)

	got := testutil.Git(t, project, "status", "--porcelain")
	assert.Empty(t, got, "the clone must not write to the host project")
}

func TestBackend_SecretNotInArguments(t *testing.T) {
	h := NewHarness(t)
	project := h.Env().CreateRepo("repo")
	t.Setenv("ANTHROPIC_API_KEY", "sk-integration-secret")

	r := h.Run(project, "sh", "-c", `test "$ANTHROPIC_API_KEY" = sk-integration-secret && echo present`)
	require.NoError(t, r.Err, "stderr: %s", r.Stderr)

	assert.Equal(t, "present\n", r.Stdout)
}

func TestBackend_RecordsHistory(t *testing.T) {
	h := NewHarness(t)
	project := h.Env().CreateRepo("repo")

	r := h.Run(project, "true")
	require.NoError(t, r.Err)

	events, err := h.History().Session(r.Session.ID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, audit.EventStart, events[0].Type)
	assert.Equal(t, h.Manager().Driver().Name(), events[0].Backend)
	assert.Equal(t, audit.EventExit, events[1].Type)
}

func TestBackend_DirectModeWritesHost(t *testing.T) {
	h := NewHarness(t)
	h.Config().Workspace.Mode = config.WorkspaceModeDirect
	project := h.Env().CreateRepo("repo")

	r := h.Run(project, "sh", "-c", "echo direct > direct.txt")
	require.NoError(t, r.Err, "stderr: %s", r.Stderr)

	status := testutil.Git(t, project, "status", "--porcelain")
	assert.True(t, strings.Contains(status, "direct.txt"), "status %q", status)
}
