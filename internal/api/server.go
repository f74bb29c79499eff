// Package api exposes the pipeline's read-only snapshots to the
// visualization layer over HTTP and websocket. Rendering is out of scope;
// this is strictly the produced-snapshot surface.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lumenassist/pathsense/internal/monitoring"
	"github.com/lumenassist/pathsense/internal/perf"
	"github.com/lumenassist/pathsense/internal/pipeline"
	"github.com/lumenassist/pathsense/internal/version"
)

// SnapshotSource provides the current pipeline output. *pipeline.Pipeline
// satisfies it; tests substitute a fixture.
type SnapshotSource interface {
	Snapshot() pipeline.Snapshot
}

// Server serves pipeline snapshots as JSON and pushes them over websocket
// at a fixed interval.
type Server struct {
	source     SnapshotSource
	controller *perf.Controller // optional
	interval   time.Duration
	upgrader   websocket.Upgrader
	httpServer *http.Server
}

// NewServer creates a snapshot server reading from source. pushInterval
// governs the websocket broadcast cadence; zero defaults to 200ms.
func NewServer(source SnapshotSource, controller *perf.Controller, pushInterval time.Duration) *Server {
	if pushInterval <= 0 {
		pushInterval = 200 * time.Millisecond
	}
	return &Server{
		source:     source,
		controller: controller,
		interval:   pushInterval,
		upgrader: websocket.Upgrader{
			// Snapshots are read-only and carry no credentials; the
			// UI may be served from another origin during development.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Handler returns the route mux for the snapshot surface.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/obstacles", s.handleObstacles)
	mux.HandleFunc("/api/guidance", s.handleGuidance)
	mux.HandleFunc("/api/path", s.handlePath)
	mux.HandleFunc("/api/stats", s.handleStats)
	mux.HandleFunc("/ws", s.handleWebsocket)
	return mux
}

// ListenAndServe starts serving on addr until the context is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		monitoring.Logf("api: failed to encode response: %v", err)
	}
}

func (s *Server) handleObstacles(w http.ResponseWriter, r *http.Request) {
	snap := s.source.Snapshot()
	writeJSON(w, map[string]interface{}{
		"frame_id":  snap.FrameID,
		"timestamp": snap.Timestamp,
		"obstacles": snap.Obstacles,
	})
}

func (s *Server) handleGuidance(w http.ResponseWriter, r *http.Request) {
	snap := s.source.Snapshot()
	writeJSON(w, map[string]interface{}{
		"frame_id": snap.FrameID,
		"guidance": snap.Guidance,
	})
}

func (s *Server) handlePath(w http.ResponseWriter, r *http.Request) {
	snap := s.source.Snapshot()
	writeJSON(w, map[string]interface{}{
		"frame_id": snap.FrameID,
		"analysis": snap.Analysis,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	snap := s.source.Snapshot()
	resp := map[string]interface{}{
		"frame_id": snap.FrameID,
		"stats":    snap.Stats,
		"version":  version.Version,
	}
	if s.controller != nil {
		resp["target_hz"] = s.controller.TargetHz()
	}
	writeJSON(w, resp)
}

// handleWebsocket streams snapshots until the client disconnects.
func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		monitoring.Logf("api: websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Reader goroutine: websocket close handling requires consuming
	// control frames even though clients never send data.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case <-ticker.C:
			if err := conn.WriteJSON(s.source.Snapshot()); err != nil {
				return
			}
		}
	}
}
