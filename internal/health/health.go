package health

import (
	"context"
	"fmt"
	"time"

	"github.com/AnEntrypoint/sandboxbox-sub004/internal/runtime"
	"github.com/AnEntrypoint/sandboxbox-sub004/internal/system"
)

// Status represents the health status of the isolation backend
type Status string

const (
	StatusReady        Status = "ready"
	StatusStopped      Status = "stopped"
	StatusNotInstalled Status = "not-installed"

	// DefaultProbeTimeout bounds the status probe.
	DefaultProbeTimeout = 5 * time.Second
)

// CheckOptions holds options for health checking.
type CheckOptions struct {
	Executor     system.CommandExecutor
	ProbeTimeout time.Duration
}

// CheckResult contains the results of backend checks
type CheckResult struct {
	Driver      string             `json:"driver"`
	Kind        string             `json:"kind"`
	Transport   string             `json:"transport"`
	Binary      string             `json:"binary,omitempty"`
	BinaryPath  string             `json:"binaryPath,omitempty"`
	Installed   bool               `json:"installed"`
	Reachable   bool               `json:"reachable"`
	Instances   []runtime.Instance `json:"instances,omitempty"`
	ProbeError  string             `json:"probeError,omitempty"`
	Remediation string             `json:"remediation,omitempty"`
}

// Check inspects d without changing its state: nothing is installed,
// initialized or started.
func Check(ctx context.Context, d runtime.Driver, opts CheckOptions) *CheckResult {
	if opts.Executor == nil {
		opts.Executor = system.DefaultExecutor()
	}
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = DefaultProbeTimeout
	}

	result := &CheckResult{
		Driver:    d.Name(),
		Kind:      string(d.Kind()),
		Transport: string(d.Transport()),
		Binary:    d.Binary(),
		Installed: true,
	}

	if result.Binary != "" {
		path, err := opts.Executor.LookPath(result.Binary)
		if err != nil {
			result.Installed = false
			result.ProbeError = err.Error()
			return result
		}
		result.BinaryPath = path
	}

	pctx, cancel := context.WithTimeout(ctx, opts.ProbeTimeout)
	err := d.Probe(pctx)
	cancel()
	if err == nil {
		result.Reachable = true
	} else {
		result.ProbeError = err.Error()
		result.Remediation = runtime.Remediation(d)
	}

	if d.SupportsInstances() {
		lctx, cancel := context.WithTimeout(ctx, opts.ProbeTimeout)
		result.Instances, _ = d.ListInstances(lctx)
		cancel()
	}

	return result
}

// Summary returns a summary health status.
func (r *CheckResult) Summary() Status {
	switch {
	case !r.Installed:
		return StatusNotInstalled
	case !r.Reachable:
		return StatusStopped
	default:
		return StatusReady
	}
}

// FormatDuration renders d compactly, e.g. "2h 30m".
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	} else if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	} else if d < 24*time.Hour {
		hours := int(d.Hours())
		mins := int(d.Minutes()) % 60
		return fmt.Sprintf("%dh %dm", hours, mins)
	}
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	return fmt.Sprintf("%dd %dh", days, hours)
}
