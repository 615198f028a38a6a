package sandbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnEntrypoint/sandboxbox-sub004/internal/config"
	"github.com/AnEntrypoint/sandboxbox-sub004/internal/credentials"
	"github.com/AnEntrypoint/sandboxbox-sub004/internal/errors"
	"github.com/AnEntrypoint/sandboxbox-sub004/internal/runtime"
)

const (
	testRoot    = "/tmp/sandbox-123"
	testProject = "/home/user/project"
)

func testCredentials() []credentials.Link {
	return []credentials.Link{
		{Name: ".ssh", HostPath: "/home/user/.ssh", SandboxPath: testRoot + "/home-overlay/.ssh", Method: credentials.MethodSymlink, IsDir: true},
		{Name: ".gitconfig", HostPath: "/home/user/.gitconfig", SandboxPath: testRoot + "/home-overlay/.gitconfig", Method: credentials.MethodCopy},
	}
}

func TestPlanMounts_Bind(t *testing.T) {
	mounts, err := PlanMounts(PlanInput{
		HostProjectPath:   testProject,
		EphemeralRoot:     testRoot,
		Mode:              config.WorkspaceModeClone,
		Transport:         runtime.TransportBind,
		ResolvesHostPaths: true,
		Credentials:       testCredentials(),
		Extra:             []config.ExtraMount{{Source: "/opt/data", Target: "/data"}},
	})
	require.NoError(t, err)

	want := []runtime.Mount{
		{Type: runtime.MountBind, Source: testRoot, Target: testRoot},
		{Type: runtime.MountBind, Source: testProject, Target: testProject},
		{Type: runtime.MountBind, Source: "/home/user/.ssh", Target: "/home/user/.ssh", ReadOnly: true},
		{Type: runtime.MountBind, Source: "/opt/data", Target: "/data", ReadOnly: true},
	}
	assert.Equal(t, want, mounts)
}

func TestPlanMounts_CredentialsNeedResolvableHostPaths(t *testing.T) {
	mounts, err := PlanMounts(PlanInput{
		HostProjectPath: testProject,
		EphemeralRoot:   testRoot,
		Transport:       runtime.TransportBind,
		Credentials:     testCredentials(),
	})
	require.NoError(t, err)
	assert.Len(t, mounts, 2)
	for _, m := range mounts {
		assert.False(t, m.ReadOnly, "unexpected credential mount %s", m)
	}
}

func TestPlanMounts_SharedFolder(t *testing.T) {
	mounts, err := PlanMounts(PlanInput{
		HostProjectPath:   testProject,
		EphemeralRoot:     testRoot,
		Mode:              config.WorkspaceModeClone,
		Transport:         runtime.TransportSharedFolder,
		ResolvesHostPaths: false,
		Credentials:       testCredentials(),
		Extra:             []config.ExtraMount{{Source: "/opt/data", Target: "/data"}},
	})
	require.NoError(t, err)

	want := []runtime.Mount{
		{Type: runtime.MountSharedFolder, Source: testRoot, Target: testRoot, Tag: RootShareTag},
	}
	assert.Equal(t, want, mounts)
}

func TestPlanMounts_SharedFolderUsesAlias(t *testing.T) {
	mounts, err := PlanMounts(PlanInput{
		HostProjectPath: testProject,
		EphemeralRoot:   testRoot,
		Transport:       runtime.TransportSharedFolder,
		Alias:           func(p string) string { return "/mnt/host" + p },
	})
	require.NoError(t, err)
	require.Len(t, mounts, 1)
	assert.Equal(t, testRoot, mounts[0].Source)
	assert.Equal(t, "/mnt/host"+testRoot, mounts[0].Target)
}

func TestPlanMounts_SharedFolderRejectsDirectMode(t *testing.T) {
	_, err := PlanMounts(PlanInput{
		HostProjectPath: testProject,
		EphemeralRoot:   testRoot,
		Mode:            config.WorkspaceModeDirect,
		Transport:       runtime.TransportSharedFolder,
	})
	assert.True(t, errors.IsKind(err, errors.KindValidation), "got %v", err)
}

func TestPlanMounts_DirectModeBind(t *testing.T) {
	mounts, err := PlanMounts(PlanInput{
		HostProjectPath: testProject,
		EphemeralRoot:   testRoot,
		Mode:            config.WorkspaceModeDirect,
		Transport:       runtime.TransportBind,
	})
	require.NoError(t, err)
	require.Len(t, mounts, 2)
	assert.Equal(t, testProject, mounts[1].Source)
	assert.False(t, mounts[1].ReadOnly)
}

func TestPlanMounts_DuplicateTargetsAreDropped(t *testing.T) {
	mounts, err := PlanMounts(PlanInput{
		HostProjectPath: testProject,
		EphemeralRoot:   testRoot,
		Transport:       runtime.TransportBind,
		Extra:           []config.ExtraMount{{Source: "/opt/other", Target: testProject}},
	})
	require.NoError(t, err)
	require.Len(t, mounts, 2)
	assert.False(t, mounts[1].ReadOnly)
	assert.Equal(t, testProject, mounts[1].Source)
}

func TestPlanMounts_CredentialsInsideProjectAreNotRemounted(t *testing.T) {
	mounts, err := PlanMounts(PlanInput{
		HostProjectPath:   testProject,
		EphemeralRoot:     testRoot,
		Transport:         runtime.TransportNone,
		ResolvesHostPaths: true,
		Credentials: []credentials.Link{
			{Name: ".netrc", HostPath: testProject + "/.netrc", Method: credentials.MethodSymlink},
		},
	})
	require.NoError(t, err)
	assert.Len(t, mounts, 2)
}

func TestPlanMounts_RequiresPaths(t *testing.T) {
	_, err := PlanMounts(PlanInput{EphemeralRoot: testRoot})
	assert.True(t, errors.IsKind(err, errors.KindValidation))
}

func TestCheckMounts(t *testing.T) {
	tests := []struct {
		name    string
		mount   runtime.Mount
		wantErr bool
	}{
		{"root", runtime.Mount{Source: testRoot}, false},
		{"inside root", runtime.Mount{Source: testRoot + "/workspace"}, false},
		{"project", runtime.Mount{Source: testProject}, false},
		{"project git dir", runtime.Mount{Source: testProject + "/.git"}, false},
		{"project subdir", runtime.Mount{Source: testProject + "/src"}, true},
		{"home", runtime.Mount{Source: "/home/user"}, true},
		{"root sibling", runtime.Mount{Source: testRoot + "-other"}, true},
		{"read-only anywhere", runtime.Mount{Source: "/etc", ReadOnly: true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckMounts([]runtime.Mount{tt.mount}, testRoot, testProject)
			if tt.wantErr {
				assert.True(t, errors.IsKind(err, errors.KindValidation), "got %v", err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
