// ABOUTME: Tests for the dashboard's bubbletea model update logic
package dashboard

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/driftsync/driftsync/internal/syncnode"
	clocksync "github.com/driftsync/driftsync/pkg/sync"
)

func TestSnapshotMsgUpdatesModel(t *testing.T) {
	m := model{quitChan: make(chan struct{}, 1)}
	snap := syncnode.Snapshot{
		Algorithm: clocksync.Mini,
		Processed: 5,
		Drift:     clocksync.Estimate{Value: 1.0002, Error: 0.0001},
	}

	next, cmd := m.Update(snapshotMsg(snap))
	nm := next.(model)
	if nm.snapshot.Processed != 5 {
		t.Errorf("expected processed count to propagate, got %d", nm.snapshot.Processed)
	}
	if nm.snapshot.Algorithm != clocksync.Mini {
		t.Errorf("expected algorithm to propagate, got %q", nm.snapshot.Algorithm)
	}
	if cmd != nil {
		t.Error("expected no command from a snapshot update")
	}
}

func TestQuitKeySignalsQuitChan(t *testing.T) {
	m := model{quitChan: make(chan struct{}, 1)}
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	nm := next.(model)
	if !nm.quitting {
		t.Error("expected quitting to be set")
	}
	if cmd == nil {
		t.Error("expected a quit command")
	}
	select {
	case <-m.quitChan:
	default:
		t.Error("expected quitChan to be signaled")
	}
}

func TestPushDoesNotBlockOnFullBuffer(t *testing.T) {
	d := New("test", "127.0.0.1:8927")
	for i := 0; i < 100; i++ {
		d.Push(syncnode.Snapshot{Processed: i})
	}
}
