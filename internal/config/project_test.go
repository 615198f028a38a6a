package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadProject_Missing(t *testing.T) {
	pc, err := LoadProject(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, &ProjectConfig{}, pc)
}

func TestLoadProject(t *testing.T) {
	dir := t.TempDir()
	content := `image: ghcr.io/example/dev:1
mode: direct
command: npm test -- --watch=false
env:
  NODE_ENV: test
mounts:
  - /opt/data:ro
  - /srv/shared:/shared
exclude:
  - coverage
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ProjectFile), []byte(content), 0644))

	pc, err := LoadProject(dir)
	require.NoError(t, err)
	assert.Equal(t, "ghcr.io/example/dev:1", pc.Image)
	assert.Equal(t, WorkspaceModeDirect, pc.Mode)
	assert.Equal(t, []string{"npm", "test", "--", "--watch=false"}, pc.DefaultCommand())
	assert.Equal(t, map[string]string{"NODE_ENV": "test"}, pc.Env)
	assert.Equal(t, []ExtraMount{
		{Source: "/opt/data", Target: "/opt/data"},
		{Source: "/srv/shared", Target: "/shared"},
	}, pc.ExtraMounts())
}

func TestLoadProject_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad yaml", "image: [unclosed\n"},
		{"bad mode", "mode: overlay\n"},
		{"rw mount", "mounts:\n  - /data:rw\n"},
		{"relative mount", "mounts:\n  - data\n"},
		{"unbalanced quote", "command: \"echo hi\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, ProjectFile), []byte(tt.content), 0644))
			_, err := LoadProject(dir)
			assert.Error(t, err)
		})
	}
}

func TestSaveProject_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	pc := &ProjectConfig{Image: "img", Env: map[string]string{"A": "1"}}
	require.NoError(t, SaveProject(dir, pc))

	loaded, err := LoadProject(dir)
	require.NoError(t, err)
	assert.Equal(t, pc, loaded)
}

func TestParseMount(t *testing.T) {
	tests := []struct {
		spec    string
		want    ExtraMount
		wantErr bool
	}{
		{spec: "/a", want: ExtraMount{Source: "/a", Target: "/a"}},
		{spec: "/a/:ro", want: ExtraMount{Source: "/a", Target: "/a"}},
		{spec: "/a:/b", want: ExtraMount{Source: "/a", Target: "/b"}},
		{spec: "/a:/b:ro", want: ExtraMount{Source: "/a", Target: "/b"}},
		{spec: "/a:rw", wantErr: true},
		{spec: "/a:b", wantErr: true},
		{spec: "", wantErr: true},
		{spec: "/a:/b:/c", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			got, err := ParseMount(tt.spec)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMerge(t *testing.T) {
	cfg := Default()
	cfg.Workspace.Exclude = []string{"global"}

	merged := cfg.Merge(&ProjectConfig{Image: "proj", Mode: WorkspaceModeDirect, Exclude: []string{"local"}})
	assert.Equal(t, "proj", merged.Backend.Image)
	assert.Equal(t, WorkspaceModeDirect, merged.Workspace.Mode)
	assert.Equal(t, []string{"global", "local"}, merged.Workspace.Exclude)

	// the receiver is untouched
	assert.Equal(t, DefaultImage, cfg.Backend.Image)
	assert.Equal(t, []string{"global"}, cfg.Workspace.Exclude)

	assert.Equal(t, cfg.Backend, cfg.Merge(nil).Backend)
}
