// ABOUTME: Reference node: answers beacon requests with timestamped replies
// ABOUTME: Runs no estimator — it is a pure timestamp oracle for sync nodes
package refnode

import (
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	"github.com/driftsync/driftsync/internal/protocol"
)

// Config holds reference node configuration.
type Config struct {
	Addr string // UDP listen address, e.g. ":8927"
	Name string
}

// Node answers BeaconRequest datagrams with BeaconReply datagrams, stamping
// its own receive/transmit times. It owns no clock estimator: spec.md's
// synchronizing/reference split puts all estimation on the sync node.
type Node struct {
	config Config

	conn     *net.UDPConn
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	startTime time.Time

	statsMu sync.RWMutex
	served  uint64
}

// New creates a reference node in its stopped state.
func New(config Config) *Node {
	return &Node{
		config:   config,
		stopChan: make(chan struct{}),
	}
}

// Start binds the UDP listener and begins serving beacon requests.
func (n *Node) Start() error {
	addr, err := net.ResolveUDPAddr("udp", n.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to resolve address %q: %w", n.config.Addr, err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %q: %w", n.config.Addr, err)
	}
	n.conn = conn
	n.startTime = time.Now()

	log.Printf("Reference node %q listening on %s", n.config.Name, conn.LocalAddr())

	n.wg.Add(1)
	go n.serveLoop()
	return nil
}

func (n *Node) serveLoop() {
	defer n.wg.Done()

	buf := make([]byte, 256)
	for {
		select {
		case <-n.stopChan:
			return
		default:
		}

		n.conn.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
		read, remote, err := n.conn.ReadFromUDP(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			select {
			case <-n.stopChan:
				return
			default:
			}
			log.Printf("refnode: read error: %v", err)
			continue
		}

		serverReceived := nowMicros()
		req, err := protocol.DecodeRequest(buf[:read])
		if err != nil {
			log.Printf("refnode: malformed beacon request from %s: %v", remote, err)
			continue
		}

		reply := protocol.BeaconReply{
			Sequence:          req.Sequence,
			SessionID:         req.SessionID,
			ClientTransmitted: req.ClientTransmitted,
			ServerReceived:    serverReceived,
			ServerTransmitted: nowMicros(),
		}
		if _, err := n.conn.WriteToUDP(protocol.EncodeReply(reply), remote); err != nil {
			log.Printf("refnode: write error to %s: %v", remote, err)
			continue
		}

		n.statsMu.Lock()
		n.served++
		n.statsMu.Unlock()
	}
}

// Addr returns the bound listen address, useful when Config.Addr used an
// ephemeral port (":0").
func (n *Node) Addr() string {
	return n.conn.LocalAddr().String()
}

// Served reports how many beacon requests have been answered.
func (n *Node) Served() uint64 {
	n.statsMu.RLock()
	defer n.statsMu.RUnlock()
	return n.served
}

// Stop closes the listener and waits for the serve loop to exit.
func (n *Node) Stop() {
	n.stopOnce.Do(func() {
		close(n.stopChan)
		if n.conn != nil {
			n.conn.Close()
		}
	})
	n.wg.Wait()
}

// nowMicros returns the current wall clock in microseconds — the same
// fixed epoch (Unix) every component in this module uses, matching the
// teacher's CurrentMicros convention.
func nowMicros() int64 {
	return time.Now().UnixNano() / 1000
}
