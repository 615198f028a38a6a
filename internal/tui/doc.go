// Package tui provides terminal user interface components for sandboxbox.
//
// This package uses the Bubble Tea framework to show what the backend is
// doing while it is installed, initialized or started, which can take
// minutes on a cold machine.
//
// # Backend Progress
//
// Progress plugs into the backend manager as its transition observer:
//
//	p := tui.NewProgress(os.Stderr)
//	defer p.Stop()
//	opts.OnTransition = p.Observe
//
// On a terminal a spinner shows the current phase and elapsed time, with a
// check mark for each finished phase. The spinner releases the terminal
// before the backend installer runs and once the backend is ready, so the
// sandboxed command owns the terminal. Off a terminal each phase is printed
// as a plain info line.
//
// # Dependencies
//
// Uses the Charm libraries:
//   - github.com/charmbracelet/bubbletea - TUI framework
//   - github.com/charmbracelet/bubbles - spinner component
//   - github.com/charmbracelet/lipgloss - Styling
package tui
