// ABOUTME: UDP beacon transport: send/retry loop and loopback latency calibration
// ABOUTME: Delivers corrected (T_o, T_b, T_r) triples for the owning sync node's estimator
package transport

import (
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	"github.com/driftsync/driftsync/internal/protocol"
	"github.com/google/uuid"
)

// Config holds transport configuration.
type Config struct {
	RefAddr           string        // reference node address, "host:port"
	Interval          time.Duration // beacon send cadence
	Timeout           time.Duration // time to wait for a reply before retrying
	MaxRetries        int           // retries per sequence number before marking it lost
	CalibrationRounds int           // loopback round trips used to estimate stack delay
}

// DefaultConfig returns reasonable defaults, matching the teacher's
// constant-driven cadence convention (ChunkDurationMs-style constants).
func DefaultConfig(refAddr string) Config {
	return Config{
		RefAddr:           refAddr,
		Interval:          time.Second,
		Timeout:           200 * time.Millisecond,
		MaxRetries:        2,
		CalibrationRounds: 8,
	}
}

// Sample is a beacon round turned into the estimator's input triple, with
// the transport's loopback correction already applied.
type Sample struct {
	Sent, Remote, Recv float64 // microseconds: T_o, T_b, T_r
}

// Transport owns a UDP socket, drives the beacon send/retry loop, and
// applies the loopback correction spec.md §6 describes before emitting a
// Sample: add the minimum measured beacon-path delay to T_o, subtract the
// minimum measured reply-path delay from T_r.
type Transport struct {
	config    Config
	conn      *net.UDPConn
	refAddr   *net.UDPAddr
	sessionID uuid.UUID

	minBeaconDelay float64 // microseconds
	minReplyDelay  float64 // microseconds

	mu      sync.Mutex
	seq     uint32
	pending map[uint32]chan protocol.BeaconReply

	samples  chan Sample
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	statsMu  sync.RWMutex
	sent     uint64
	received uint64
	lost     uint64
}

// New dials a UDP socket toward config.RefAddr.
func New(config Config) (*Transport, error) {
	refAddr, err := net.ResolveUDPAddr("udp", config.RefAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve reference address %q: %w", config.RefAddr, err)
	}
	conn, err := net.ListenUDP("udp", &net.UDPAddr{})
	if err != nil {
		return nil, fmt.Errorf("failed to open UDP socket: %w", err)
	}
	return &Transport{
		config:    config,
		conn:      conn,
		refAddr:   refAddr,
		sessionID: uuid.New(),
		pending:   make(map[uint32]chan protocol.BeaconReply),
		samples:   make(chan Sample, 32),
		stopChan:  make(chan struct{}),
	}, nil
}

// Samples returns the channel of corrected timing samples.
func (t *Transport) Samples() <-chan Sample {
	return t.samples
}

// Calibrate measures this host's own network-stack latency by sending
// CalibrationRounds one-byte probes from the transport's socket to a
// temporary echo listener on 127.0.0.1, splitting the minimum observed
// round trip evenly between the beacon path and the reply path. This is the
// "transport's own calibration" spec.md §6 says produces the corrections it
// applies before handing samples to the estimator; true asymmetric one-way
// delay isn't observable without an external clock, so the even split is a
// simplification.
func (t *Transport) Calibrate() error {
	loop, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		return fmt.Errorf("failed to open loopback listener for calibration: %w", err)
	}
	defer loop.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		buf := make([]byte, 256)
		for i := 0; i < t.config.CalibrationRounds; i++ {
			loop.SetReadDeadline(time.Now().Add(time.Second))
			n, addr, err := loop.ReadFromUDP(buf)
			if err != nil {
				return
			}
			loop.WriteToUDP(buf[:n], addr)
		}
	}()

	var minRTT float64
	for i := 0; i < t.config.CalibrationRounds; i++ {
		start := nowMicros()
		probe := []byte{byte(i)}
		if _, err := t.conn.WriteToUDP(probe, loop.LocalAddr().(*net.UDPAddr)); err != nil {
			return fmt.Errorf("calibration probe %d failed: %w", i, err)
		}
		t.conn.SetReadDeadline(time.Now().Add(time.Second))
		buf := make([]byte, 256)
		if _, _, err := t.conn.ReadFromUDP(buf); err != nil {
			return fmt.Errorf("calibration reply %d failed: %w", i, err)
		}
		rtt := nowMicros() - start
		if i == 0 || rtt < minRTT {
			minRTT = rtt
		}
	}
	t.conn.SetReadDeadline(time.Time{})

	t.minBeaconDelay = minRTT / 2
	t.minReplyDelay = minRTT / 2
	log.Printf("Calibration: min RTT=%.0fus, split beacon=%.0fus reply=%.0fus", minRTT, t.minBeaconDelay, t.minReplyDelay)
	return nil
}

// Run starts the beacon send loop and the reply reader loop. It returns
// immediately; call Stop to shut both down.
func (t *Transport) Run() {
	t.wg.Add(2)
	go t.readLoop()
	go t.sendLoop()
}

func (t *Transport) sendLoop() {
	defer t.wg.Done()
	ticker := time.NewTicker(t.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-t.stopChan:
			return
		case <-ticker.C:
			t.beaconOnce()
		}
	}
}

func (t *Transport) beaconOnce() {
	t.mu.Lock()
	seq := t.seq
	t.seq++
	replyCh := make(chan protocol.BeaconReply, 1)
	t.pending[seq] = replyCh
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		delete(t.pending, seq)
		t.mu.Unlock()
	}()

	for attempt := 0; attempt <= t.config.MaxRetries; attempt++ {
		sent := nowMicros()
		req := protocol.BeaconRequest{Sequence: seq, SessionID: t.sessionID, ClientTransmitted: int64(sent)}
		if _, err := t.conn.WriteToUDP(protocol.EncodeRequest(req), t.refAddr); err != nil {
			log.Printf("transport: send failed (seq %d, attempt %d): %v", seq, attempt, err)
			continue
		}
		t.incr(&t.sent)

		select {
		case reply := <-replyCh:
			recv := nowMicros()
			t.incr(&t.received)
			t.emit(sent, reply, recv)
			return
		case <-time.After(t.config.Timeout):
			continue
		case <-t.stopChan:
			return
		}
	}
	t.incr(&t.lost)
	log.Printf("transport: beacon seq %d lost after %d attempts", seq, t.config.MaxRetries+1)
}

func (t *Transport) emit(sentMicros float64, reply protocol.BeaconReply, recvMicros float64) {
	sample := Sample{
		Sent:   sentMicros + t.minBeaconDelay,
		Remote: float64(reply.ServerReceived),
		Recv:   recvMicros - t.minReplyDelay,
	}
	select {
	case t.samples <- sample:
	default:
		log.Printf("transport: sample buffer full, dropping seq %d", reply.Sequence)
	}
}

func (t *Transport) readLoop() {
	defer t.wg.Done()
	buf := make([]byte, 256)
	for {
		select {
		case <-t.stopChan:
			return
		default:
		}
		t.conn.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
		n, _, err := t.conn.ReadFromUDP(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			select {
			case <-t.stopChan:
				return
			default:
			}
			continue
		}
		reply, err := protocol.DecodeReply(buf[:n])
		if err != nil {
			continue
		}
		t.mu.Lock()
		ch, ok := t.pending[reply.Sequence]
		t.mu.Unlock()
		if !ok {
			continue // stale or duplicate reply, silently dropped
		}
		select {
		case ch <- reply:
		default:
		}
	}
}

func (t *Transport) incr(counter *uint64) {
	t.statsMu.Lock()
	*counter++
	t.statsMu.Unlock()
}

// Stats reports cumulative beacon send/receive/loss counts.
func (t *Transport) Stats() (sent, received, lost uint64) {
	t.statsMu.RLock()
	defer t.statsMu.RUnlock()
	return t.sent, t.received, t.lost
}

// Stop halts the send/read loops and closes the socket.
func (t *Transport) Stop() {
	t.stopOnce.Do(func() {
		close(t.stopChan)
		t.conn.Close()
	})
	t.wg.Wait()
}

func nowMicros() float64 {
	return float64(time.Now().UnixNano()) / 1000.0
}
