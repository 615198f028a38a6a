package runtime

import (
	"fmt"
	goruntime "runtime"

	"github.com/AnEntrypoint/sandboxbox-sub004/internal/logging"
	"github.com/AnEntrypoint/sandboxbox-sub004/internal/system"
)

// DriverType identifies which backend driver to use
type DriverType string

const (
	DriverPodman        DriverType = "podman"
	DriverPodmanMachine DriverType = "podman-machine"
	DriverDocker        DriverType = "docker"
	DriverApple         DriverType = "apple"
	DriverProcess       DriverType = "process"
	DriverAuto          DriverType = "auto"
)

// Config holds driver selection settings
type Config struct {
	// Type specifies which driver to use (or "auto" for auto-detection)
	Type DriverType

	// Binary overrides the backend CLI path
	Binary string

	// Executor runs backend commands
	Executor system.CommandExecutor

	// GOOS overrides the detected platform (tests)
	GOOS string
}

// DefaultConfig returns the default driver configuration
func DefaultConfig() *Config {
	return &Config{
		Type:     DriverAuto,
		Executor: system.DefaultExecutor(),
		GOOS:     goruntime.GOOS,
	}
}

// Detect determines which driver fits this platform. When no backend is
// installed it returns the platform's preferred driver so the install flow
// can run.
func Detect(cfg *Config) (DriverType, error) {
	cfg = withDefaults(cfg)
	logging.Debug("detecting isolation backend", "os", cfg.GOOS)

	switch cfg.GOOS {
	case "linux":
		return detectLinux(cfg.Executor), nil
	case "darwin":
		return detectDarwin(cfg.Executor), nil
	case "windows":
		return detectWindows(cfg.Executor), nil
	default:
		return "", fmt.Errorf("unsupported operating system: %s", cfg.GOOS)
	}
}

func has(exec system.CommandExecutor, bin string) bool {
	_, err := exec.LookPath(bin)
	return err == nil
}

// detectLinux prefers rootless podman, then docker
func detectLinux(exec system.CommandExecutor) DriverType {
	if has(exec, "podman") {
		logging.Debug("detected podman")
		return DriverPodman
	}
	if has(exec, "docker") {
		logging.Debug("detected docker")
		return DriverDocker
	}
	return DriverPodman
}

// detectDarwin prefers podman machine, then Docker Desktop, then Apple Container
func detectDarwin(exec system.CommandExecutor) DriverType {
	if has(exec, "podman") {
		logging.Debug("detected podman on macOS")
		return DriverPodmanMachine
	}
	if has(exec, "docker") {
		logging.Debug("detected docker on macOS")
		return DriverDocker
	}
	if has(exec, "container") {
		logging.Debug("detected Apple container on macOS")
		return DriverApple
	}
	return DriverPodmanMachine
}

func detectWindows(exec system.CommandExecutor) DriverType {
	if has(exec, "podman") {
		return DriverPodmanMachine
	}
	if has(exec, "docker") {
		return DriverDocker
	}
	return DriverPodmanMachine
}

func withDefaults(cfg *Config) *Config {
	out := DefaultConfig()
	if cfg == nil {
		return out
	}
	c := *cfg
	if c.Type == "" {
		c.Type = DriverAuto
	}
	if c.Executor == nil {
		c.Executor = out.Executor
	}
	if c.GOOS == "" {
		c.GOOS = out.GOOS
	}
	return &c
}

// New creates a Driver based on the configuration.
// If Type is DriverAuto, it auto-detects the best driver.
func New(cfg *Config) (Driver, error) {
	cfg = withDefaults(cfg)

	driverType := cfg.Type
	if driverType == DriverAuto {
		detected, err := Detect(cfg)
		if err != nil {
			return nil, err
		}
		driverType = detected
	}

	logging.Debug("creating driver", "type", driverType)

	switch driverType {
	case DriverPodman:
		return NewPodmanDriver(cfg.Executor, cfg.Binary), nil
	case DriverPodmanMachine:
		return NewPodmanMachineDriver(cfg.Executor, cfg.Binary), nil
	case DriverDocker:
		d := NewDockerDriver(cfg.Executor, cfg.Binary)
		d.goos = cfg.GOOS
		return d, nil
	case DriverApple:
		return NewAppleDriver(cfg.Executor, cfg.Binary), nil
	case DriverProcess:
		return NewProcessDriver(cfg.Executor), nil
	default:
		return nil, fmt.Errorf("unknown driver type: %s", driverType)
	}
}

// Available returns the drivers whose binaries are on PATH
func Available(exec system.CommandExecutor, goos string) []DriverType {
	var available []DriverType
	if has(exec, "podman") {
		if goos == "linux" {
			available = append(available, DriverPodman)
		} else {
			available = append(available, DriverPodmanMachine)
		}
	}
	if has(exec, "docker") {
		available = append(available, DriverDocker)
	}
	if goos == "darwin" && has(exec, "container") {
		available = append(available, DriverApple)
	}
	return append(available, DriverProcess)
}
