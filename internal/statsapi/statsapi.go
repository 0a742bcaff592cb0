// ABOUTME: HTTP + WebSocket server exposing sync node estimates to external tools
// ABOUTME: Serves a point-in-time snapshot, the CSV sample log, and a live push feed
package statsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/driftsync/driftsync/internal/stats"
	"github.com/driftsync/driftsync/internal/syncnode"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// Config holds stats API configuration.
type Config struct {
	Addr    string // HTTP listen address, e.g. ":8928"
	CSVPath string // path backing GET /samples.csv
}

// Server exposes a sync node's snapshots over HTTP and WebSocket.
type Server struct {
	config Config
	node   *syncnode.Node
	rec    *stats.Recorder

	upgrader websocket.Upgrader
	router   *mux.Router
	http     *http.Server

	clientsMu sync.RWMutex
	clients   map[uuid.UUID]chan syncnode.Snapshot

	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New wires an HTTP+WebSocket server around node, pushing every sample to
// connected WebSocket clients and recording it to rec.
func New(config Config, node *syncnode.Node, rec *stats.Recorder) *Server {
	s := &Server{
		config: config,
		node:   node,
		rec:    rec,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[uuid.UUID]chan syncnode.Snapshot),
	}

	s.router = mux.NewRouter()
	s.router.HandleFunc("/snapshot", s.handleSnapshot).Methods(http.MethodGet)
	s.router.HandleFunc("/samples.csv", s.handleSamplesCSV).Methods(http.MethodGet)
	s.router.HandleFunc("/live", s.handleLive)

	node.OnSample(s.broadcast)
	return s
}

// Start begins listening on config.Addr.
func (s *Server) Start() error {
	s.http = &http.Server{
		Addr:    s.config.Addr,
		Handler: s.router,
	}
	errChan := make(chan error, 1)
	go func() {
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()
	select {
	case err := <-errChan:
		return fmt.Errorf("stats API failed to start: %w", err)
	case <-time.After(50 * time.Millisecond):
		log.Printf("Stats API listening on %s", s.config.Addr)
		return nil
	}
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap := s.node.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(snap); err != nil {
		log.Printf("statsapi: failed to encode snapshot: %v", err)
	}
}

func (s *Server) handleSamplesCSV(w http.ResponseWriter, r *http.Request) {
	f, err := os.Open(s.config.CSVPath)
	if err != nil {
		http.Error(w, fmt.Sprintf("samples log unavailable: %v", err), http.StatusNotFound)
		return
	}
	defer f.Close()
	w.Header().Set("Content-Type", "text/csv")
	buf := make([]byte, 32*1024)
	for {
		n, readErr := f.Read(buf)
		if n > 0 {
			if _, err := w.Write(buf[:n]); err != nil {
				return
			}
		}
		if readErr != nil {
			return
		}
	}
}

// handleLive upgrades to a WebSocket connection and pushes one JSON
// snapshot per sample, tagging each connection with a UUID the way the
// client registry this was grounded on tags its own connections.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("statsapi: websocket upgrade failed: %v", err)
		return
	}

	id := uuid.New()
	ch := make(chan syncnode.Snapshot, 16)
	s.clientsMu.Lock()
	s.clients[id] = ch
	s.clientsMu.Unlock()

	defer func() {
		s.clientsMu.Lock()
		delete(s.clients, id)
		s.clientsMu.Unlock()
		conn.Close()
	}()

	for snap := range ch {
		if err := conn.WriteJSON(snap); err != nil {
			return
		}
	}
}

func (s *Server) broadcast(snap syncnode.Snapshot) {
	if s.rec != nil {
		if err := s.rec.Record(snap); err != nil {
			log.Printf("statsapi: failed to record sample: %v", err)
		}
	}

	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	for _, ch := range s.clients {
		select {
		case ch <- snap:
		default:
		}
	}
}

// Stop closes all live WebSocket connections and shuts down the HTTP
// server.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		s.clientsMu.Lock()
		for id, ch := range s.clients {
			close(ch)
			delete(s.clients, id)
		}
		s.clientsMu.Unlock()

		if s.http != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			s.http.Shutdown(ctx)
		}
	})
	s.wg.Wait()
}
