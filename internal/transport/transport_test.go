// ABOUTME: Tests for the beacon transport send/retry loop
// ABOUTME: Exercises a real loopback UDP round trip against a reference node
package transport

import (
	"testing"
	"time"

	"github.com/driftsync/driftsync/internal/refnode"
)

func startTestRefNode(t *testing.T) (addr string, stop func()) {
	t.Helper()
	node := refnode.New(refnode.Config{Addr: "127.0.0.1:0", Name: "test-ref"})
	if err := node.Start(); err != nil {
		t.Fatalf("failed to start reference node: %v", err)
	}
	return node.Addr(), node.Stop
}

func TestTransportReceivesSamplesFromReferenceNode(t *testing.T) {
	addr, stop := startTestRefNode(t)
	defer stop()

	cfg := DefaultConfig(addr)
	cfg.Interval = 20 * time.Millisecond
	cfg.Timeout = 100 * time.Millisecond
	cfg.CalibrationRounds = 2

	tr, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to create transport: %v", err)
	}
	defer tr.Stop()

	if err := tr.Calibrate(); err != nil {
		t.Fatalf("calibration failed: %v", err)
	}
	tr.Run()

	select {
	case sample := <-tr.Samples():
		if sample.Sent <= 0 || sample.Remote <= 0 || sample.Recv <= 0 {
			t.Errorf("expected positive timestamps, got %+v", sample)
		}
		if sample.Recv < sample.Sent {
			t.Errorf("recv time %f should not precede send time %f", sample.Recv, sample.Sent)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a beacon sample")
	}

	sent, received, _ := tr.Stats()
	if sent == 0 {
		t.Error("expected at least one beacon sent")
	}
	if received == 0 {
		t.Error("expected at least one beacon received")
	}
}

func TestCalibrateSetsNonNegativeDelays(t *testing.T) {
	addr, stop := startTestRefNode(t)
	defer stop()

	cfg := DefaultConfig(addr)
	cfg.CalibrationRounds = 4
	tr, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to create transport: %v", err)
	}
	defer tr.Stop()

	if err := tr.Calibrate(); err != nil {
		t.Fatalf("calibration failed: %v", err)
	}
	if tr.minBeaconDelay < 0 || tr.minReplyDelay < 0 {
		t.Errorf("expected non-negative calibration delays, got beacon=%f reply=%f", tr.minBeaconDelay, tr.minReplyDelay)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	tr, err := New(DefaultConfig("127.0.0.1:1"))
	if err != nil {
		t.Fatalf("failed to create transport: %v", err)
	}
	tr.Stop()
	tr.Stop()
}
