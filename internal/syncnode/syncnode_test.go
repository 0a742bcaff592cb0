// ABOUTME: Tests for sync node orchestration
// ABOUTME: Runs a real reference node and sync node pair over loopback UDP
package syncnode

import (
	"testing"
	"time"

	"github.com/driftsync/driftsync/internal/refnode"
	clocksync "github.com/driftsync/driftsync/pkg/sync"
)

func startTestRefNode(t *testing.T) (addr string, stop func()) {
	t.Helper()
	node := refnode.New(refnode.Config{Addr: "127.0.0.1:0", Name: "test-ref"})
	if err := node.Start(); err != nil {
		t.Fatalf("failed to start reference node: %v", err)
	}
	return node.Addr(), node.Stop
}

func newTestNode(t *testing.T, refAddr string, algo clocksync.Algorithm) *Node {
	t.Helper()
	cfg := DefaultConfig(refAddr)
	cfg.Algorithm = algo
	cfg.Transport.Interval = 15 * time.Millisecond
	cfg.Transport.Timeout = 100 * time.Millisecond
	cfg.Transport.CalibrationRounds = 2

	node, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to create sync node: %v", err)
	}
	return node
}

func TestSyncNodeAccumulatesEstimates(t *testing.T) {
	refAddr, stopRef := startTestRefNode(t)
	defer stopRef()

	node := newTestNode(t, refAddr, clocksync.Tiny)
	if err := node.Start(); err != nil {
		t.Fatalf("failed to start sync node: %v", err)
	}
	defer node.Stop()

	deadline := time.After(3 * time.Second)
	for {
		snap := node.Snapshot()
		if snap.Processed >= 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for samples, last snapshot: %+v", snap)
		case <-time.After(20 * time.Millisecond):
		}
	}

	snap := node.Snapshot()
	if snap.Drift.Value <= 0 {
		t.Errorf("expected positive drift estimate, got %f", snap.Drift.Value)
	}
	if snap.BeaconsRecv == 0 {
		t.Error("expected at least one beacon received")
	}
}

func TestSyncNodeOnSampleCallback(t *testing.T) {
	refAddr, stopRef := startTestRefNode(t)
	defer stopRef()

	node := newTestNode(t, refAddr, clocksync.Mini)

	seen := make(chan Snapshot, 16)
	node.OnSample(func(s Snapshot) {
		select {
		case seen <- s:
		default:
		}
	})

	if err := node.Start(); err != nil {
		t.Fatalf("failed to start sync node: %v", err)
	}
	defer node.Stop()

	select {
	case <-seen:
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for OnSample callback")
	}
}

func TestAdjustedNowTracksRealTime(t *testing.T) {
	refAddr, stopRef := startTestRefNode(t)
	defer stopRef()

	node := newTestNode(t, refAddr, clocksync.Tiny)
	if err := node.Start(); err != nil {
		t.Fatalf("failed to start sync node: %v", err)
	}
	defer node.Stop()

	first := node.AdjustedNow()
	time.Sleep(30 * time.Millisecond)
	second := node.AdjustedNow()
	if second <= first {
		t.Errorf("expected AdjustedNow to advance, got %f then %f", first, second)
	}
}
