package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	shellquote "github.com/kballard/go-shellquote"
	"gopkg.in/yaml.v3"
)

// ProjectFile is the per-project config file name.
const ProjectFile = ".sandboxbox.yaml"

// ProjectConfig is read from <project>/.sandboxbox.yaml.
type ProjectConfig struct {
	Image   string            `yaml:"image,omitempty"`
	Mode    WorkspaceMode     `yaml:"mode,omitempty"`
	Command string            `yaml:"command,omitempty"`
	Env     map[string]string `yaml:"env,omitempty"`
	Mounts  []string          `yaml:"mounts,omitempty"`
	Exclude []string          `yaml:"exclude,omitempty"`
}

// ExtraMount is a project-requested host path exposed read-only.
type ExtraMount struct {
	Source string
	Target string
}

// LoadProject reads the project config. A missing file yields an empty config.
func LoadProject(projectDir string) (*ProjectConfig, error) {
	path := filepath.Join(projectDir, ProjectFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &ProjectConfig{}, nil
		}
		return nil, fmt.Errorf("reading project config: %w", err)
	}
	pc, err := ParseProject(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return pc, nil
}

// ParseProject decodes and validates a project config.
func ParseProject(data []byte) (*ProjectConfig, error) {
	var pc ProjectConfig
	if err := yaml.Unmarshal(data, &pc); err != nil {
		return nil, fmt.Errorf("parsing project config: %w", err)
	}
	if err := pc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid project config: %w", err)
	}
	return &pc, nil
}

// SaveProject writes the project config.
func SaveProject(projectDir string, pc *ProjectConfig) error {
	data, err := yaml.Marshal(pc)
	if err != nil {
		return fmt.Errorf("marshaling project config: %w", err)
	}
	return os.WriteFile(filepath.Join(projectDir, ProjectFile), data, 0644)
}

// Validate checks that the ProjectConfig is valid.
func (p *ProjectConfig) Validate() error {
	switch p.Mode {
	case "", WorkspaceModeClone, WorkspaceModeDirect:
	default:
		return fmt.Errorf("invalid mode %q", p.Mode)
	}
	if p.Command != "" {
		if _, err := shellquote.Split(p.Command); err != nil {
			return fmt.Errorf("invalid command %q: %w", p.Command, err)
		}
	}
	for _, m := range p.Mounts {
		if _, err := ParseMount(m); err != nil {
			return err
		}
	}
	return nil
}

// DefaultCommand returns the parsed default command, if any.
func (p *ProjectConfig) DefaultCommand() []string {
	if p.Command == "" {
		return nil
	}
	args, _ := shellquote.Split(p.Command)
	return args
}

// ExtraMounts parses the mounts list.
func (p *ProjectConfig) ExtraMounts() []ExtraMount {
	var out []ExtraMount
	for _, m := range p.Mounts {
		if em, err := ParseMount(m); err == nil {
			out = append(out, em)
		}
	}
	return out
}

// ParseMount parses "source[:target][:ro]". Mounts are always read-only; a
// trailing ":ro" is accepted for clarity and ":rw" is rejected.
func ParseMount(spec string) (ExtraMount, error) {
	parts := strings.Split(spec, ":")
	if n := len(parts); n > 1 {
		switch parts[n-1] {
		case "ro":
			parts = parts[:n-1]
		case "rw":
			return ExtraMount{}, fmt.Errorf("mount %q: project mounts are read-only", spec)
		}
	}
	if len(parts) == 0 || len(parts) > 2 || parts[0] == "" {
		return ExtraMount{}, fmt.Errorf("invalid mount %q: want source[:target][:ro]", spec)
	}
	src := expandHome(parts[0])
	if !filepath.IsAbs(src) {
		return ExtraMount{}, fmt.Errorf("mount %q: source must be absolute", spec)
	}
	target := src
	if len(parts) == 2 {
		target = parts[1]
		if !filepath.IsAbs(target) {
			return ExtraMount{}, fmt.Errorf("mount %q: target must be absolute", spec)
		}
	}
	return ExtraMount{Source: filepath.Clean(src), Target: filepath.Clean(target)}, nil
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}

// Merge applies a project config on top of the global config and returns
// the effective copy.
func (c *Config) Merge(p *ProjectConfig) *Config {
	out := *c
	if p == nil {
		return &out
	}
	if p.Image != "" {
		out.Backend.Image = p.Image
	}
	if p.Mode != "" {
		out.Workspace.Mode = p.Mode
	}
	if len(p.Exclude) > 0 {
		out.Workspace.Exclude = append(append([]string{}, c.Workspace.Exclude...), p.Exclude...)
	}
	return &out
}
