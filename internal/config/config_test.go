package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, WorkspaceModeClone, cfg.Workspace.Mode)
	assert.Equal(t, 5*time.Second, cfg.Timeouts.Probe.Duration)
	assert.Equal(t, 3*time.Minute, cfg.Timeouts.Init.Duration)
	assert.Equal(t, DefaultImage, cfg.Backend.Image)
}

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[backend]
driver = "docker"
verify_attempts = 7
verify_interval = "250ms"

[workspace]
mode = "direct"
exclude = ["fixtures"]

[credentials]
env = ["MY_TOKEN"]
paths = [".config/tool/auth.json"]

[timeouts]
build = "5m"

[agents.aider]
command = ["aider", "--yes"]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "docker", cfg.Backend.Driver)
	assert.Equal(t, 7, cfg.Backend.VerifyAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.Backend.VerifyInterval.Duration)
	assert.Equal(t, WorkspaceModeDirect, cfg.Workspace.Mode)
	assert.Equal(t, []string{"fixtures"}, cfg.Workspace.Exclude)
	assert.Equal(t, []string{"MY_TOKEN"}, cfg.Credentials.Env)
	assert.Equal(t, 5*time.Minute, cfg.Timeouts.Build.Duration)
	// untouched values keep their defaults
	assert.Equal(t, 5*time.Second, cfg.Timeouts.Probe.Duration)

	agent, ok := cfg.Agent("aider")
	require.True(t, ok)
	assert.Equal(t, []string{"aider", "--yes"}, agent.Command)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"bad toml", "[backend\n", "failed to parse"},
		{"unknown key", "[backend]\ncolour = 1\n", "unknown keys"},
		{"bad driver", "[backend]\ndriver = \"lxc\"\n", "unknown backend driver"},
		{"bad mode", "[workspace]\nmode = \"mirror\"\n", "invalid workspace mode"},
		{"probe too long", "[timeouts]\nprobe = \"30s\"\n", "probe timeout"},
		{"init too long", "[timeouts]\ninit = \"10m\"\n", "init timeout"},
		{"bad duration", "[timeouts]\nprobe = \"soon\"\n", "failed to parse"},
		{"absolute credential", "[credentials]\npaths = [\"/etc/shadow\"]\n", "relative"},
		{"escaping credential", "[credentials]\npaths = [\"../x\"]\n", "relative"},
		{"agent without command", "[agents.foo]\ndescription = \"x\"\n", "command is required"},
		{"reserved agent", "[agents.run]\ncommand = [\"x\"]\n", "reserved"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))
			_, err := Load(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg := Default()
	cfg.Backend.Driver = "process"
	cfg.Sync.PushOnExit = true

	require.NoError(t, Save(path, cfg))
	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "process", loaded.Backend.Driver)
	assert.True(t, loaded.Sync.PushOnExit)
	assert.Equal(t, cfg.Timeouts, loaded.Timeouts)
}

func TestAgentNames_IncludesBuiltinsAndConfigured(t *testing.T) {
	cfg := Default()
	cfg.Agents["aider"] = AgentConfig{Command: []string{"aider"}}

	names := strings.Join(cfg.AgentNames(), ",")
	for _, want := range []string{"claude", "codex", "gemini", "opencode", "aider"} {
		assert.Contains(t, names, want)
	}

	// configured agents override built-ins
	cfg.Agents["claude"] = AgentConfig{Command: []string{"claude", "--verbose"}}
	a, _ := cfg.Agent("claude")
	assert.Equal(t, []string{"claude", "--verbose"}, a.Command)
	assert.Len(t, cfg.AgentNames(), 5)
}

func TestDefaultPaths_EnvOverride(t *testing.T) {
	t.Setenv(EnvConfigPath, "/custom/config.toml")
	p := DefaultPaths()
	assert.Equal(t, "/custom/config.toml", p.ConfigFile)
	assert.Equal(t, os.TempDir(), p.TempRoot)
}

func TestDefaultPaths_StateDir(t *testing.T) {
	t.Setenv(EnvStateDir, "")
	t.Setenv("XDG_STATE_HOME", "/xdg/state")
	assert.Equal(t, "/xdg/state/sandboxbox", DefaultPaths().StateDir)

	t.Setenv(EnvStateDir, "/explicit")
	assert.Equal(t, "/explicit", DefaultPaths().StateDir)

	t.Setenv(EnvStateDir, "")
	t.Setenv("XDG_STATE_HOME", "")
	t.Setenv("HOME", "/home/dev")
	assert.Equal(t, "/home/dev/.local/state/sandboxbox", DefaultPaths().StateDir)
}

func TestValidateAgentName(t *testing.T) {
	tests := []struct {
		name    string
		wantErr bool
	}{
		{"claude", false},
		{"my-agent_2", false},
		{"", true},
		{"Claude", true},
		{"1agent", true},
		{"a/b", true},
		{"shell", true},
		{strings.Repeat("a", 33), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAgentName(tt.name)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateAgentName(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			}
		})
	}
}
