// ABOUTME: CSV sample log and in-memory ring buffer of recent sync node snapshots
// ABOUTME: Backs the stats API's CSV endpoint and the CLI's shutdown summary without re-querying the estimator
package stats

import (
	"encoding/csv"
	"fmt"
	"os"
	"sync"

	"github.com/driftsync/driftsync/internal/syncnode"
)

var csvHeader = []string{
	"seq", "algorithm", "processed",
	"drift", "drift_error", "offset", "offset_error",
	"beacons_sent", "beacons_recv", "beacons_lost",
}

// Recorder appends one CSV row per sample to a log file and keeps the most
// recent snapshots in memory, which the driftsync CLI reads for its
// shutdown summary table. There is no third-party CSV library anywhere in the example
// corpus this module was grounded on, so this uses encoding/csv directly.
type Recorder struct {
	mu      sync.Mutex
	file    *os.File
	writer  *csv.Writer
	ring    []syncnode.Snapshot
	ringCap int
	written int
}

// NewRecorder opens (or creates) path for append and writes a header if the
// file is new.
func NewRecorder(path string, ringCap int) (*Recorder, error) {
	info, statErr := os.Stat(path)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return nil, fmt.Errorf("failed to open stats log %q: %w", path, err)
	}

	w := csv.NewWriter(f)
	if statErr != nil || info.Size() == 0 {
		if err := w.Write(csvHeader); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write stats header: %w", err)
		}
		w.Flush()
	}

	if ringCap <= 0 {
		ringCap = 256
	}
	return &Recorder{
		file:    f,
		writer:  w,
		ringCap: ringCap,
	}, nil
}

// Record appends snap as a CSV row and pushes it onto the ring buffer.
func (r *Recorder) Record(snap syncnode.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	row := []string{
		fmt.Sprintf("%d", snap.LastSampleSeq),
		string(snap.Algorithm),
		fmt.Sprintf("%d", snap.Processed),
		fmt.Sprintf("%.6f", snap.Drift.Value),
		fmt.Sprintf("%.6f", snap.Drift.Error),
		fmt.Sprintf("%.6f", snap.Offset.Value),
		fmt.Sprintf("%.6f", snap.Offset.Error),
		fmt.Sprintf("%d", snap.BeaconsSent),
		fmt.Sprintf("%d", snap.BeaconsRecv),
		fmt.Sprintf("%d", snap.BeaconsLost),
	}
	if err := r.writer.Write(row); err != nil {
		return fmt.Errorf("failed to write stats row: %w", err)
	}
	r.writer.Flush()
	if err := r.writer.Error(); err != nil {
		return fmt.Errorf("failed to flush stats log: %w", err)
	}

	r.ring = append(r.ring, snap)
	if len(r.ring) > r.ringCap {
		r.ring = r.ring[len(r.ring)-r.ringCap:]
	}
	r.written++
	return nil
}

// Recent returns a copy of the most recently recorded snapshots, oldest
// first.
func (r *Recorder) Recent() []syncnode.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]syncnode.Snapshot, len(r.ring))
	copy(out, r.ring)
	return out
}

// Latest returns the most recently recorded snapshot, or the zero value
// and false if nothing has been recorded yet.
func (r *Recorder) Latest() (syncnode.Snapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.ring) == 0 {
		return syncnode.Snapshot{}, false
	}
	return r.ring[len(r.ring)-1], true
}

// Written reports how many rows have been recorded.
func (r *Recorder) Written() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.written
}

// Close flushes and closes the underlying log file.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writer.Flush()
	return r.file.Close()
}
