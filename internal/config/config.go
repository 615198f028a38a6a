package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	// AppName is used for config directories and image names.
	AppName = "sandboxbox"

	// ConfigFileName is the global config file inside the config directory.
	ConfigFileName = "config.toml"

	// EnvConfigPath overrides the global config file location.
	EnvConfigPath = "SANDBOXBOX_CONFIG"

	// EnvStateDir overrides the state directory holding the run history.
	EnvStateDir = "SANDBOXBOX_STATE_DIR"

	// DefaultImage is the image produced by `sandboxbox build`.
	DefaultImage = "localhost/sandboxbox:latest"
)

// WorkspaceMode controls how the host project reaches the sandbox.
type WorkspaceMode string

const (
	// WorkspaceModeClone runs against an ephemeral clone of the project.
	WorkspaceModeClone WorkspaceMode = "clone"
	// WorkspaceModeDirect exposes the host project itself.
	WorkspaceModeDirect WorkspaceMode = "direct"
)

// Duration wraps time.Duration for TOML and YAML decoding of strings like "5s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Config is the global user configuration.
type Config struct {
	Backend     BackendConfig          `toml:"backend"`
	Workspace   WorkspaceConfig        `toml:"workspace"`
	Credentials CredentialsConfig      `toml:"credentials"`
	Timeouts    TimeoutsConfig         `toml:"timeouts"`
	Sync        SyncConfig             `toml:"sync"`
	Agents      map[string]AgentConfig `toml:"agents"`
}

// BackendConfig selects and tunes the isolation backend.
type BackendConfig struct {
	Driver           string   `toml:"driver"` // auto, podman, podman-machine, docker, apple, process
	Binary           string   `toml:"binary"`
	Image            string   `toml:"image"`
	AutoInstall      bool     `toml:"auto_install"`
	VerifyAttempts   int      `toml:"verify_attempts"` // 0 uses the driver default
	VerifyInterval   Duration `toml:"verify_interval"`
	MaxLaunchRetries int      `toml:"max_launch_retries"`
}

// WorkspaceConfig controls provisioning.
type WorkspaceConfig struct {
	Mode    WorkspaceMode `toml:"mode"`
	Exclude []string      `toml:"exclude"`
	Keep    bool          `toml:"keep"`
}

// CredentialsConfig extends the built-in credential lists.
type CredentialsConfig struct {
	Paths []string `toml:"paths"` // relative to $HOME
	Env   []string `toml:"env"`
}

// TimeoutsConfig bounds external calls.
type TimeoutsConfig struct {
	Probe   Duration `toml:"probe"`
	List    Duration `toml:"list"`
	Init    Duration `toml:"init"`
	Install Duration `toml:"install"`
	Short   Duration `toml:"short"`
	Build   Duration `toml:"build"`
}

// SyncConfig controls pushing sandbox commits back to the host.
type SyncConfig struct {
	PushOnExit bool `toml:"push_on_exit"`
}

// AgentConfig describes an agent subcommand.
type AgentConfig struct {
	Command     []string `toml:"command"`
	Description string   `toml:"description"`
}

// BuiltinAgents are available without configuration.
var BuiltinAgents = map[string]AgentConfig{
	"claude":   {Command: []string{"claude"}, Description: "Run Claude Code in a sandbox"},
	"codex":    {Command: []string{"codex"}, Description: "Run Codex CLI in a sandbox"},
	"gemini":   {Command: []string{"gemini"}, Description: "Run Gemini CLI in a sandbox"},
	"opencode": {Command: []string{"opencode"}, Description: "Run opencode in a sandbox"},
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Backend: BackendConfig{
			Driver:           "auto",
			Image:            DefaultImage,
			AutoInstall:      true,
			MaxLaunchRetries: 3,
		},
		Workspace: WorkspaceConfig{Mode: WorkspaceModeClone},
		Timeouts: TimeoutsConfig{
			Probe:   Duration{5 * time.Second},
			List:    Duration{5 * time.Second},
			Init:    Duration{3 * time.Minute},
			Install: Duration{10 * time.Minute},
			Short:   Duration{2 * time.Minute},
			Build:   Duration{10 * time.Minute},
		},
		Agents: map[string]AgentConfig{},
	}
}

// Validate checks that the Config is valid.
func (c *Config) Validate() error {
	switch c.Backend.Driver {
	case "", "auto", "podman", "podman-machine", "docker", "apple", "process":
	default:
		return fmt.Errorf("unknown backend driver %q", c.Backend.Driver)
	}
	switch c.Workspace.Mode {
	case WorkspaceModeClone, WorkspaceModeDirect:
	default:
		return fmt.Errorf("invalid workspace mode %q: must be %q or %q", c.Workspace.Mode, WorkspaceModeClone, WorkspaceModeDirect)
	}
	if c.Backend.VerifyAttempts < 0 {
		return fmt.Errorf("verify_attempts cannot be negative")
	}
	if c.Backend.MaxLaunchRetries < 0 {
		return fmt.Errorf("max_launch_retries cannot be negative")
	}
	if c.Timeouts.Probe.Duration <= 0 || c.Timeouts.Probe.Duration > 5*time.Second {
		return fmt.Errorf("probe timeout must be between 0 and 5s, got %s", c.Timeouts.Probe)
	}
	if c.Timeouts.Init.Duration <= 0 || c.Timeouts.Init.Duration > 3*time.Minute {
		return fmt.Errorf("init timeout must be between 0 and 3m, got %s", c.Timeouts.Init)
	}
	for name, a := range c.Agents {
		if err := ValidateAgentName(name); err != nil {
			return err
		}
		if len(a.Command) == 0 {
			return fmt.Errorf("agent %q: command is required", name)
		}
	}
	for _, p := range c.Credentials.Paths {
		if filepath.IsAbs(p) || strings.HasPrefix(filepath.Clean(p), "..") {
			return fmt.Errorf("credential path %q must be relative to the home directory", p)
		}
	}
	return nil
}

// Agent returns the configuration for name, preferring user config over
// built-ins.
func (c *Config) Agent(name string) (AgentConfig, bool) {
	if a, ok := c.Agents[name]; ok {
		return a, true
	}
	a, ok := BuiltinAgents[name]
	return a, ok
}

// AgentNames lists every configured and built-in agent.
func (c *Config) AgentNames() []string {
	seen := make(map[string]bool)
	var names []string
	for _, m := range []map[string]AgentConfig{BuiltinAgents, c.Agents} {
		for name := range m {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	return names
}

// Load reads the global config from path on top of the defaults. A missing
// file yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes TOML on top of the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown keys: %v", undecoded)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Save writes cfg as TOML.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}

// Paths holds the configured paths
type Paths struct {
	ConfigFile string
	TempRoot   string

	// StateDir holds the run history; empty disables it
	StateDir string
}

// DefaultPaths returns the default path configuration
func DefaultPaths() *Paths {
	return &Paths{
		ConfigFile: defaultConfigFile(),
		TempRoot:   os.TempDir(),
		StateDir:   defaultStateDir(),
	}
}

// defaultStateDir follows the XDG base directory layout:
// $XDG_STATE_HOME/sandboxbox, else ~/.local/state/sandboxbox.
func defaultStateDir() string {
	if p := os.Getenv(EnvStateDir); p != "" {
		return p
	}
	if p := os.Getenv("XDG_STATE_HOME"); p != "" {
		return filepath.Join(p, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "state", AppName)
}

func defaultConfigFile() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, AppName, ConfigFileName)
}
