package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/natefinch/atomic"
)

// SessionMarkerFile is written at the top of every ephemeral root.
const SessionMarkerFile = ".session.json"

// SessionMarker records who owns an ephemeral root so stale roots can be
// collected after a crash.
type SessionMarker struct {
	ID          string    `json:"id"`
	PID         int       `json:"pid"`
	HostProject string    `json:"hostProject"`
	Backend     string    `json:"backend"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Validate checks that the SessionMarker is valid.
func (m *SessionMarker) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("id is required")
	}
	if m.PID <= 0 {
		return fmt.Errorf("pid must be positive")
	}
	return nil
}

// SaveSessionMarker writes the marker into root.
func SaveSessionMarker(root string, m *SessionMarker) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session marker: %w", err)
	}
	if err := atomic.WriteFile(filepath.Join(root, SessionMarkerFile), bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write session marker: %w", err)
	}
	return nil
}

// LoadSessionMarker reads the marker from root.
func LoadSessionMarker(root string) (*SessionMarker, error) {
	data, err := os.ReadFile(filepath.Join(root, SessionMarkerFile))
	if err != nil {
		return nil, err
	}
	var m SessionMarker
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse session marker: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid session marker: %w", err)
	}
	return &m, nil
}
