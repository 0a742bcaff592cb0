// ABOUTME: Live TUI dashboard for a sync node's drift/offset estimates
// ABOUTME: Bubbletea program driven by a channel of snapshots pushed from the sync node
package dashboard

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/driftsync/driftsync/internal/syncnode"
)

// Dashboard manages the bubbletea program showing live estimator state.
type Dashboard struct {
	program  *tea.Program
	updates  chan syncnode.Snapshot
	quitChan chan struct{}
}

type tickMsg time.Time
type snapshotMsg syncnode.Snapshot

type model struct {
	name      string
	refAddr   string
	snapshot  syncnode.Snapshot
	startTime time.Time
	quitting  bool
	quitChan  chan struct{}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(tickEvery())
}

func tickEvery() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			m.quitting = true
			select {
			case m.quitChan <- struct{}{}:
			default:
			}
			return m, tea.Quit
		}
	case tickMsg:
		return m, tickEvery()
	case snapshotMsg:
		m.snapshot = syncnode.Snapshot(msg)
	}
	return m, nil
}

func (m model) View() string {
	if m.quitting {
		return "Shutting down sync node...\n"
	}

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")).MarginBottom(1)
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	valueStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	warnStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))

	var b strings.Builder
	b.WriteString(titleStyle.Render("driftsync"))
	b.WriteString("\n\n")

	b.WriteString(headerStyle.Render("Reference: "))
	b.WriteString(valueStyle.Render(m.refAddr))
	b.WriteString("\n")

	b.WriteString(headerStyle.Render("Algorithm: "))
	b.WriteString(valueStyle.Render(string(m.snapshot.Algorithm)))
	b.WriteString("\n")

	b.WriteString(headerStyle.Render("Uptime: "))
	b.WriteString(valueStyle.Render(time.Since(m.startTime).Round(time.Second).String()))
	b.WriteString("\n\n")

	b.WriteString(headerStyle.Render("Drift: "))
	b.WriteString(valueStyle.Render(fmt.Sprintf("%.8f ± %.8f", m.snapshot.Drift.Value, m.snapshot.Drift.Error)))
	b.WriteString("\n")

	b.WriteString(headerStyle.Render("Offset: "))
	b.WriteString(valueStyle.Render(fmt.Sprintf("%+.1fus ± %.1fus", m.snapshot.Offset.Value, m.snapshot.Offset.Error)))
	b.WriteString("\n")

	b.WriteString(headerStyle.Render("Adjusted now: "))
	b.WriteString(valueStyle.Render(fmt.Sprintf("%.0fus", m.snapshot.AdjustedNow)))
	b.WriteString("\n\n")

	b.WriteString(headerStyle.Render("Samples processed: "))
	b.WriteString(valueStyle.Render(fmt.Sprintf("%d", m.snapshot.Processed)))
	b.WriteString("\n")

	b.WriteString(headerStyle.Render("Beacons: "))
	b.WriteString(valueStyle.Render(fmt.Sprintf("sent=%d recv=%d", m.snapshot.BeaconsSent, m.snapshot.BeaconsRecv)))
	if m.snapshot.BeaconsLost > 0 {
		b.WriteString(" ")
		b.WriteString(warnStyle.Render(fmt.Sprintf("lost=%d", m.snapshot.BeaconsLost)))
	}
	b.WriteString("\n\n")

	b.WriteString(lipgloss.NewStyle().Faint(true).Render("Press 'q' or Ctrl+C to quit"))
	return b.String()
}

// New creates a dashboard that is not yet running. It ignores name and
// refAddr; the model takes the values passed to Run instead.
func New(name, refAddr string) *Dashboard {
	return &Dashboard{
		updates:  make(chan syncnode.Snapshot, 16),
		quitChan: make(chan struct{}, 1),
	}
}

// Run starts the bubbletea program and blocks until the user quits. Call
// this from its own goroutine if the caller has other work to do.
func (d *Dashboard) Run(name, refAddr string) error {
	m := model{
		name:      name,
		refAddr:   refAddr,
		startTime: time.Now(),
		quitChan:  d.quitChan,
	}
	d.program = tea.NewProgram(m, tea.WithAltScreen())

	go func() {
		for snap := range d.updates {
			if d.program != nil {
				d.program.Send(snapshotMsg(snap))
			}
		}
	}()

	_, err := d.program.Run()
	return err
}

// Push sends a fresh snapshot to the dashboard. Non-blocking: a slow or
// closed dashboard drops the update rather than stall the sync node.
func (d *Dashboard) Push(snap syncnode.Snapshot) {
	select {
	case d.updates <- snap:
	default:
	}
}

// QuitChan signals when the user has asked the dashboard to quit.
func (d *Dashboard) QuitChan() <-chan struct{} {
	return d.quitChan
}

// Stop tears down the running program.
func (d *Dashboard) Stop() {
	if d.program != nil {
		d.program.Quit()
	}
	close(d.updates)
}
