// SPDX-License-Identifier: MIT
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"shottimer/internal/analysis"
	"shottimer/internal/timer"
	"shottimer/internal/transport"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A8A8A8"))

	clockStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Bold(true).
			Padding(1, 2).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#25A065"))

	highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#E0475B"))
)

const (
	phasePollInterval = 50 * time.Millisecond
	maxShotLines      = 12
	programQueueSize  = 256
)

// Drill is the part of the timer controller the screen drives.
type Drill interface {
	Start(ctx context.Context) error
	Stop()
	Reset() error
	Phase() timer.Phase
	Shots() []analysis.ShotEvent
}

type keyMap struct {
	Start key.Binding
	Stop  key.Binding
	Reset key.Binding
	Quit  key.Binding
}

var keys = keyMap{
	Start: key.NewBinding(key.WithKeys("s", " "), key.WithHelp("s/space", "start")),
	Stop:  key.NewBinding(key.WithKeys("x", "esc"), key.WithHelp("x", "stop")),
	Reset: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reset")),
	Quit:  key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

func (k keyMap) help() string {
	parts := make([]string, 0, 4)
	for _, b := range []key.Binding{k.Start, k.Stop, k.Reset, k.Quit} {
		h := b.Help()
		parts = append(parts, h.Key+": "+h.Desc)
	}
	return strings.Join(parts, " • ")
}

type phaseMsg timer.Phase

type stoppedMsg struct{}

type resetMsg struct{ err error }

// DrillModel is the Bubble Tea model for the drill screen.
type DrillModel struct {
	ctx     context.Context
	drill   Drill
	options string

	phase    timer.Phase
	elapsed  time.Duration
	shots    []transport.ShotMessage
	summary  string
	stopping bool
	quitting bool
	err      error
}

// NewDrillModel creates the drill screen. options is shown under the title.
func NewDrillModel(ctx context.Context, drill Drill, options string) DrillModel {
	return DrillModel{
		ctx:     ctx,
		drill:   drill,
		options: options,
		phase:   drill.Phase(),
	}
}

func pollPhase(d Drill) tea.Cmd {
	return tea.Tick(phasePollInterval, func(time.Time) tea.Msg {
		return phaseMsg(d.Phase())
	})
}

func stopDrill(d Drill) tea.Cmd {
	return func() tea.Msg {
		d.Stop()
		return stoppedMsg{}
	}
}

// resetDrill runs Reset off the event loop. Reset relays a final elapsed
// message back into the program.
func resetDrill(d Drill) tea.Cmd {
	return func() tea.Msg {
		return resetMsg{err: d.Reset()}
	}
}

// Init starts phase polling.
func (m DrillModel) Init() tea.Cmd {
	return pollPhase(m.drill)
}

// Update handles keys, relayed timer output and phase polls.
func (m DrillModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case phaseMsg:
		m.phase = timer.Phase(msg)
		return m, pollPhase(m.drill)

	case transport.ShotMessage:
		m.shots = append(m.shots, msg)

	case transport.ElapsedMessage:
		m.elapsed = time.Duration(msg.ElapsedMs) * time.Millisecond
		if msg.Final {
			// A reset relays a final zero reading with nothing to summarise.
			m.summary = ""
			if sum := analysis.Summarize(m.drill.Shots()); sum.Shots > 0 || msg.ElapsedMs > 0 {
				m.summary = sum.String()
			}
		}

	case resetMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.shots = nil
		m.summary = ""
		m.elapsed = 0

	case stoppedMsg:
		m.stopping = false
		m.phase = m.drill.Phase()
		if m.quitting {
			return m, tea.Quit
		}

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m DrillModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		if m.phase == timer.Idle && !m.stopping {
			return m, tea.Quit
		}
		m.quitting = true
		if m.stopping {
			return m, nil
		}
		m.stopping = true
		return m, stopDrill(m.drill)

	case key.Matches(msg, keys.Start):
		if m.stopping {
			return m, nil
		}
		if err := m.drill.Start(m.ctx); err != nil {
			m.err = err
			return m, nil
		}
		m.err = nil
		m.shots = nil
		m.summary = ""
		m.elapsed = 0
		m.phase = m.drill.Phase()

	case key.Matches(msg, keys.Stop):
		if m.phase == timer.Idle || m.stopping {
			return m, nil
		}
		m.stopping = true
		return m, stopDrill(m.drill)

	case key.Matches(msg, keys.Reset):
		if m.stopping {
			return m, nil
		}
		return m, resetDrill(m.drill)
	}
	return m, nil
}

// View renders the screen.
func (m DrillModel) View() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("Shot Timer"))
	sb.WriteString("\n")
	if m.options != "" {
		sb.WriteString(infoStyle.Render(m.options))
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	sb.WriteString(clockStyle.Render(analysis.FormatElapsed(m.elapsed)))
	sb.WriteString("\n")

	state := strings.ToUpper(m.phase.String())
	if m.stopping {
		state = "STOPPING"
	}
	sb.WriteString(highlightStyle.Render(state))
	sb.WriteString(fmt.Sprintf("  shots: %d\n\n", len(m.shots)))

	start := max(0, len(m.shots)-maxShotLines)
	for _, s := range m.shots[start:] {
		sb.WriteString(fmt.Sprintf("  #%-3d %s  split %s\n", s.Number, s.Time, s.Split))
	}
	if m.summary != "" {
		sb.WriteString("\n")
		sb.WriteString(highlightStyle.Render(m.summary))
		sb.WriteString("\n")
	}
	if m.err != nil {
		sb.WriteString("\n")
		sb.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(infoStyle.Render(keys.help()))
	return sb.String()
}

// Sender is satisfied by *tea.Program.
type Sender interface {
	Send(msg tea.Msg)
}

// ProgramTransport forwards shot and elapsed messages into a running
// Bubble Tea program. Messages are queued and delivered by a single
// goroutine, so Send never waits on the event loop and may be called from
// inside Update or the capture callback. Messages are dropped when the
// queue is full.
type ProgramTransport struct {
	program Sender
	queue   chan any
	done    chan struct{}

	mu      sync.Mutex
	closed  bool
	dropped int
}

// NewProgramTransport returns a transport feeding p.
func NewProgramTransport(p Sender) *ProgramTransport {
	t := &ProgramTransport{
		program: p,
		queue:   make(chan any, programQueueSize),
		done:    make(chan struct{}),
	}
	go t.drain()
	return t
}

func (t *ProgramTransport) drain() {
	for {
		select {
		case <-t.done:
			return
		case msg := <-t.queue:
			t.program.Send(msg)
		}
	}
}

// Send queues the message types the screen renders and ignores the rest.
func (t *ProgramTransport) Send(data any) error {
	switch data.(type) {
	case transport.ShotMessage, transport.ElapsedMessage:
	default:
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return transport.ErrTransportClosed
	}
	select {
	case t.queue <- data:
	default:
		t.dropped++
	}
	return nil
}

// Dropped returns the number of messages discarded on a full queue.
func (t *ProgramTransport) Dropped() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dropped
}

// Close stops delivery. It does not wait for an in-flight Send to the
// program, which returns once the program exits.
func (t *ProgramTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	close(t.done)
	return nil
}

var _ transport.Transport = (*ProgramTransport)(nil)

// Run starts the drill screen and blocks until the user quits or ctx is
// done. register is called with the program transport before the screen
// starts so the caller can attach it to its broadcaster.
func Run(ctx context.Context, drill Drill, options string, register func(transport.Transport)) error {
	p := tea.NewProgram(
		NewDrillModel(ctx, drill, options),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	if register != nil {
		register(NewProgramTransport(p))
	}
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
