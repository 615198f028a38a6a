package tui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/docker/go-units"

	"github.com/AnEntrypoint/sandboxbox-sub004/internal/logging"
	"github.com/AnEntrypoint/sandboxbox-sub004/internal/runtime"
)

// phaseMsg reports a backend phase change to the model.
type phaseMsg struct {
	from, to runtime.Phase
}

var (
	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	elapsedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	doneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
)

// PhaseLabel describes what the backend is doing in phase.
func PhaseLabel(p runtime.Phase) string {
	switch p {
	case runtime.PhaseUnchecked:
		return "Checking backend"
	case runtime.PhaseNotInstalled:
		return "Installing backend"
	case runtime.PhaseInstalledNotRunning:
		return "Backend is not running"
	case runtime.PhaseMachineMissing:
		return "No backend machine found"
	case runtime.PhaseMachineStopped:
		return "Backend machine is stopped"
	case runtime.PhaseInitializing:
		return "Initializing backend machine"
	case runtime.PhaseStarting:
		return "Starting backend"
	case runtime.PhaseReady:
		return "Backend ready"
	case runtime.PhaseFailed:
		return "Backend failed to start"
	default:
		return string(p)
	}
}

// releasesTerminal reports whether the spinner must stop before phase p:
// either the wait is over or another program needs the terminal.
func releasesTerminal(p runtime.Phase) bool {
	switch p {
	case runtime.PhaseReady, runtime.PhaseFailed, runtime.PhaseNotInstalled:
		return true
	}
	return false
}

// progressModel renders a spinner for the current backend phase.
type progressModel struct {
	spinner  spinner.Model
	phase    runtime.Phase
	finished []string
	started  time.Time
	now      func() time.Time
	quitting bool
}

func newProgressModel(now func() time.Time) progressModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = spinnerStyle
	return progressModel{
		spinner: s,
		phase:   runtime.PhaseUnchecked,
		started: now(),
		now:     now,
	}
}

func (m progressModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case phaseMsg:
		if msg.from != runtime.PhaseUnchecked && msg.from != msg.to {
			m.finished = append(m.finished, PhaseLabel(msg.from))
		}
		m.phase = msg.to
		if releasesTerminal(msg.to) {
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m progressModel) View() string {
	var b strings.Builder
	for _, f := range m.finished {
		b.WriteString(doneStyle.Render("✓") + " " + f + "\n")
	}
	if m.quitting {
		return b.String()
	}
	elapsed := units.HumanDuration(m.now().Sub(m.started))
	fmt.Fprintf(&b, "%s %s %s\n", m.spinner.View(), PhaseLabel(m.phase), elapsedStyle.Render("("+elapsed+")"))
	return b.String()
}

// Progress shows backend lifecycle phases while the backend is being
// brought up. On a terminal it renders a spinner; otherwise each phase is
// printed as a plain line.
type Progress struct {
	out         io.Writer
	interactive bool
	now         func() time.Time

	mu      sync.Mutex
	program *tea.Program
	done    chan struct{}
}

// NewProgress creates a Progress writing to out.
func NewProgress(out io.Writer) *Progress {
	return &Progress{
		out:         out,
		interactive: logging.IsTerminal(out),
		now:         time.Now,
	}
}

// Observe is a runtime.ManagerOptions.OnTransition callback. It returns
// once the terminal is released when the new phase needs it.
func (p *Progress) Observe(from, to runtime.Phase) {
	if !p.interactive {
		if to != runtime.PhaseReady {
			logging.UserInfo("%s", PhaseLabel(to))
		}
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.program == nil {
		if releasesTerminal(to) {
			return
		}
		p.start()
	}
	p.program.Send(phaseMsg{from: from, to: to})
	if releasesTerminal(to) {
		p.wait()
	}
}

// Stop ends the spinner if it is still running.
func (p *Progress) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.program != nil {
		p.program.Quit()
		p.wait()
	}
}

func (p *Progress) start() {
	m := newProgressModel(p.now)
	p.program = tea.NewProgram(m, tea.WithOutput(p.out), tea.WithInput(nil), tea.WithoutSignalHandler())
	p.done = make(chan struct{})
	go func(prog *tea.Program, done chan struct{}) {
		defer close(done)
		if _, err := prog.Run(); err != nil {
			logging.Debug("progress display failed", "error", err)
		}
	}(p.program, p.done)
}

func (p *Progress) wait() {
	<-p.done
	p.program = nil
}
