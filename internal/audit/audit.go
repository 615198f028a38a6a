// Package audit records sandbox runs as JSON Lines so past sessions can be
// listed after their ephemeral roots are gone.
package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// HistoryFileName is the event log inside the state directory.
const HistoryFileName = "history.jsonl"

// EventType classifies a session event.
type EventType string

const (
	EventStart     EventType = "start"
	EventExit      EventType = "exit"
	EventSync      EventType = "sync"
	EventInterrupt EventType = "interrupt"
	EventError     EventType = "error"
)

// Event represents a single history entry.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	Session   string    `json:"session"`
	Project   string    `json:"project,omitempty"`
	Backend   string    `json:"backend,omitempty"`
	ExitCode  *int      `json:"exit_code,omitempty"`
	Details   string    `json:"details,omitempty"`
}

// Logger appends and reads events in {stateDir}/history.jsonl. A nil Logger
// discards everything, so callers need not check whether history is enabled.
type Logger struct {
	path string
	mu   sync.Mutex
}

// NewLogger creates a logger rooted at stateDir. An empty stateDir disables
// history and returns nil.
func NewLogger(stateDir string) *Logger {
	if stateDir == "" {
		return nil
	}
	return &Logger{path: filepath.Join(stateDir, HistoryFileName)}
}

// Path returns the history file location.
func (l *Logger) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Log appends an event to the history.
func (l *Logger) Log(event Event) error {
	if l == nil {
		return nil
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	return nil
}

// LogEvent is a convenience method that creates and logs an event.
func (l *Logger) LogEvent(eventType EventType, session, details string) error {
	return l.Log(Event{
		Timestamp: time.Now(),
		Type:      eventType,
		Session:   session,
		Details:   details,
	})
}

// Events reads all events in chronological order.
func (l *Logger) Events() ([]Event, error) {
	if l == nil {
		return nil, nil
	}

	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var event Event
		if err := json.Unmarshal(line, &event); err != nil {
			continue // Skip malformed lines
		}
		events = append(events, event)
	}

	if err := scanner.Err(); err != nil {
		return events, fmt.Errorf("error reading history: %w", err)
	}
	return events, nil
}

// Session returns the events of one session. id may be a prefix of the
// full session ID.
func (l *Logger) Session(id string) ([]Event, error) {
	events, err := l.Events()
	if err != nil {
		return nil, err
	}
	var out []Event
	for _, e := range events {
		if len(id) > 0 && len(e.Session) >= len(id) && e.Session[:len(id)] == id {
			out = append(out, e)
		}
	}
	return out, nil
}

// Recent returns at most n events, newest last. n <= 0 returns all of them.
func (l *Logger) Recent(n int) ([]Event, error) {
	events, err := l.Events()
	if err != nil {
		return nil, err
	}
	if n > 0 && len(events) > n {
		events = events[len(events)-n:]
	}
	return events, nil
}

// Clear deletes the history.
func (l *Logger) Clear() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// ExitCode returns a pointer to code for Event.ExitCode.
func ExitCode(code int) *int {
	return &code
}
