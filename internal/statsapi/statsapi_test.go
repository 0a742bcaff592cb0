// ABOUTME: Tests for the stats HTTP/WebSocket API
package statsapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gwebsocket "github.com/gorilla/websocket"

	"github.com/driftsync/driftsync/internal/refnode"
	"github.com/driftsync/driftsync/internal/stats"
	"github.com/driftsync/driftsync/internal/syncnode"
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

func newTestServer(t *testing.T) (*Server, *httptest.Server, func()) {
	t.Helper()
	refAddr, stopRef := startTestRefNode(t)

	cfg := syncnode.DefaultConfig(refAddr)
	cfg.Transport.Interval = 15 * time.Millisecond
	cfg.Transport.Timeout = 100 * time.Millisecond
	cfg.Transport.CalibrationRounds = 2

	node, err := syncnode.New(cfg)
	if err != nil {
		t.Fatalf("failed to create sync node: %v", err)
	}
	if err := node.Start(); err != nil {
		t.Fatalf("failed to start sync node: %v", err)
	}

	csvPath := filepath.Join(t.TempDir(), "samples.csv")
	rec, err := stats.NewRecorder(csvPath, 32)
	if err != nil {
		t.Fatalf("failed to create recorder: %v", err)
	}

	srv := New(Config{CSVPath: csvPath}, node, rec)
	httpSrv := httptest.NewServer(srv.router)

	cleanup := func() {
		httpSrv.Close()
		rec.Close()
		node.Stop()
		stopRef()
	}
	return srv, httpSrv, cleanup
}

func TestSnapshotEndpointReturnsJSON(t *testing.T) {
	_, httpSrv, cleanup := newTestServer(t)
	defer cleanup()

	resp, err := http.Get(httpSrv.URL + "/snapshot")
	if err != nil {
		t.Fatalf("GET /snapshot failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var snap syncnode.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatalf("failed to decode snapshot: %v", err)
	}
	if snap.Algorithm != clocksync.Tiny {
		t.Errorf("expected algorithm %q, got %q", clocksync.Tiny, snap.Algorithm)
	}
}

func TestSamplesCSVEndpointServesHeaderWithoutSamples(t *testing.T) {
	_, httpSrv, cleanup := newTestServer(t)
	defer cleanup()

	resp, err := http.Get(httpSrv.URL + "/samples.csv")
	if err != nil {
		t.Fatalf("GET /samples.csv failed: %v", err)
	}
	defer resp.Body.Close()
	// No samples have been recorded on disk yet immediately after setup,
	// but the recorder always writes a header on creation, so the file
	// should exist and be servable.
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestLiveEndpointPushesSnapshots(t *testing.T) {
	_, httpSrv, cleanup := newTestServer(t)
	defer cleanup()

	wsURL := "ws" + strings.TrimPrefix(httpSrv.URL, "http") + "/live"
	conn, _, err := gwebsocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("failed to dial websocket: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var snap syncnode.Snapshot
	if err := conn.ReadJSON(&snap); err != nil {
		t.Fatalf("failed to read pushed snapshot: %v", err)
	}
}

func testFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected file to exist: %v", err)
	}
}
