package runtime

import (
	"sync"
)

var (
	globalManager *Manager
	globalMu      sync.RWMutex
	initOnce      sync.Once
)

// Global returns the process-wide backend manager, creating one for the
// auto-detected driver on first use. It returns nil when no driver fits the
// platform.
func Global() *Manager {
	globalMu.RLock()
	if globalManager != nil {
		defer globalMu.RUnlock()
		return globalManager
	}
	globalMu.RUnlock()

	initOnce.Do(func() {
		d, err := New(nil)
		if err != nil {
			return
		}
		globalMu.Lock()
		if globalManager == nil {
			globalManager = NewManager(d, DefaultManagerOptions())
		}
		globalMu.Unlock()
	})

	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalManager
}

// SetGlobal replaces the process-wide manager. Call it early in main to
// override auto-detection, or with nil in tests to reset.
func SetGlobal(m *Manager) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalManager = m
}

// InitGlobal creates the process-wide manager for cfg.
func InitGlobal(cfg *Config, opts ManagerOptions) (*Manager, error) {
	d, err := New(cfg)
	if err != nil {
		return nil, err
	}
	m := NewManager(d, opts)
	SetGlobal(m)
	return m, nil
}
