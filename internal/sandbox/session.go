package sandbox

import (
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/AnEntrypoint/sandboxbox-sub004/internal/config"
	"github.com/AnEntrypoint/sandboxbox-sub004/internal/credentials"
	"github.com/AnEntrypoint/sandboxbox-sub004/internal/runtime"
	"github.com/AnEntrypoint/sandboxbox-sub004/internal/workspace"
)

// SessionLabel marks containers started for a session.
const SessionLabel = "io.sandboxbox.session"

// Session is one sandboxed execution: an ephemeral root, the workspace
// inside it, and what the backend is told to expose.
type Session struct {
	ID              string
	HostProjectPath string
	EphemeralRoot   string
	WorkspacePath   string
	BackendKind     runtime.BackendKind
	Backend         string
	Image           string
	Mounts          []runtime.Mount
	Env             credentials.Env

	// HostEnvKeys are Env keys whose value is inherited from the host
	HostEnvKeys []string

	GitLinks  workspace.GitLinks
	CreatedAt time.Time
}

// NewSessionID returns a fresh random session identifier.
func NewSessionID() string {
	return uuid.NewString()
}

// ShortID is the first block of the session ID.
func (s *Session) ShortID() string {
	if len(s.ID) >= 8 {
		return s.ID[:8]
	}
	return s.ID
}

// ContainerName is the name given to the session's container.
func (s *Session) ContainerName() string {
	return config.AppName + "-" + s.ShortID()
}

// Marker returns the session marker written into the ephemeral root.
func (s *Session) Marker() *config.SessionMarker {
	return &config.SessionMarker{
		ID:          s.ID,
		PID:         os.Getpid(),
		HostProject: s.HostProjectPath,
		Backend:     s.Backend,
		CreatedAt:   s.CreatedAt,
	}
}
