// ABOUTME: Sync node orchestration: wires transport samples into a clock estimator
// ABOUTME: Supplies the mutex the estimator core deliberately leaves out
package syncnode

import (
	"fmt"
	"log"
	realsync "sync"

	clocksync "github.com/driftsync/driftsync/pkg/sync"

	"github.com/driftsync/driftsync/internal/transport"
)

// Config holds sync node configuration.
type Config struct {
	RefAddr   string
	Algorithm clocksync.Algorithm
	Transport transport.Config
}

// DefaultConfig returns a TinySync-algorithm node pointed at refAddr.
func DefaultConfig(refAddr string) Config {
	return Config{
		RefAddr:   refAddr,
		Algorithm: clocksync.Tiny,
		Transport: transport.DefaultConfig(refAddr),
	}
}

// Snapshot is a point-in-time, concurrency-safe read of the estimator's
// state, suitable for handing to a stats sidecar, an HTTP handler, or a
// dashboard redraw without holding the node's lock.
type Snapshot struct {
	Algorithm      clocksync.Algorithm
	Processed      int
	Drift          clocksync.Estimate
	Offset         clocksync.Estimate
	AdjustedNow    float64
	BeaconsSent    uint64
	BeaconsRecv    uint64
	BeaconsLost    uint64
	LastSampleSeq  int
}

// Node owns a Transport and a clock estimator. The estimator core
// (pkg/sync) is deliberately not safe for concurrent use — one goroutine
// feeds it samples, arbitrarily many others want to read Drift/Offset/
// AdjustedNow at the same time, and it is the host's job to arbitrate
// that, not the core's. This mirrors the teacher's ClockSync, whose
// exported methods took their own lock around a single shared offset.
type Node struct {
	config Config

	transport *transport.Transport
	estimator *clocksync.Estimator

	mu       realsync.RWMutex
	seqCount int

	onSample []func(Snapshot)

	stopChan chan struct{}
	stopOnce realsync.Once
	wg       realsync.WaitGroup
}

// New creates a stopped sync node.
func New(config Config) (*Node, error) {
	tr, err := transport.New(config.Transport)
	if err != nil {
		return nil, fmt.Errorf("failed to create transport: %w", err)
	}
	return &Node{
		config:    config,
		transport: tr,
		estimator: clocksync.New(config.Algorithm),
		stopChan:  make(chan struct{}),
	}, nil
}

// OnSample registers a callback invoked, under no lock, after each sample
// is folded into the estimator. Used by stats/statsapi/dashboard consumers
// that want to react as samples arrive rather than poll Snapshot.
func (n *Node) OnSample(fn func(Snapshot)) {
	n.mu.Lock()
	n.onSample = append(n.onSample, fn)
	n.mu.Unlock()
}

// Start calibrates the transport and begins the beacon loop and the
// consume loop that feeds samples into the estimator.
func (n *Node) Start() error {
	if err := n.transport.Calibrate(); err != nil {
		return fmt.Errorf("calibration failed: %w", err)
	}
	n.transport.Run()

	n.wg.Add(1)
	go n.consumeLoop()
	return nil
}

func (n *Node) consumeLoop() {
	defer n.wg.Done()
	for {
		select {
		case <-n.stopChan:
			return
		case sample, ok := <-n.transport.Samples():
			if !ok {
				return
			}
			n.applySample(sample)
		}
	}
}

func (n *Node) applySample(sample transport.Sample) {
	n.mu.Lock()
	err := n.estimator.AddSample(sample.Sent, sample.Remote, sample.Recv)
	n.seqCount++
	snap := n.snapshotLocked()
	callbacks := append([]func(Snapshot){}, n.onSample...)
	n.mu.Unlock()

	if err != nil {
		log.Printf("syncnode: %v", err)
	}
	for _, cb := range callbacks {
		cb(snap)
	}
}

// Snapshot returns a concurrency-safe copy of current estimator state.
func (n *Node) Snapshot() Snapshot {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.snapshotLocked()
}

func (n *Node) snapshotLocked() Snapshot {
	sent, received, lost := n.transport.Stats()
	driftVal, driftErr := n.estimator.Drift()
	offsetVal, offsetErr := n.estimator.Offset()
	return Snapshot{
		Algorithm:     n.config.Algorithm,
		Processed:     n.estimator.Processed(),
		Drift:         clocksync.Estimate{Value: driftVal, Error: driftErr},
		Offset:        clocksync.Estimate{Value: offsetVal, Error: offsetErr},
		AdjustedNow:   n.estimator.AdjustedNow(),
		BeaconsSent:   sent,
		BeaconsRecv:   received,
		BeaconsLost:   lost,
		LastSampleSeq: n.seqCount,
	}
}

// AdjustedNow returns the estimator's corrected wall-clock reading.
func (n *Node) AdjustedNow() float64 {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.estimator.AdjustedNow()
}

// Stop halts the transport and consume loop.
func (n *Node) Stop() {
	n.stopOnce.Do(func() {
		close(n.stopChan)
		n.transport.Stop()
	})
	n.wg.Wait()
}
