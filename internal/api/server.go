// Package api provides the HTTP server for triggering script runs
// remotely and streaming execution events over WebSocket.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"keyrun/internal/engine"
)

// Server exposes the script executor over HTTP.
type Server struct {
	exec  *engine.Executor
	token string
	log   *zap.Logger
	hub   *wsHub

	// runMu serializes script runs triggered over the API. Two scripts
	// injecting raw input at the same time are not meaningfully orderable.
	runMu sync.Mutex
}

// NewServer creates an API server over the given executor.
func NewServer(exec *engine.Executor, token string, logger *zap.Logger) *Server {
	s := &Server{
		exec:  exec,
		token: token,
		log:   logger,
	}
	s.hub = newWSHub(s)
	return s
}

// Broadcast forwards an execution event to all connected WebSocket
// clients. Wire it as the executor's event sink.
func (s *Server) Broadcast(ev engine.Event) {
	s.hub.broadcastEvent(ev)
}

// Handler returns the full route table wrapped in the auth and recover
// middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/scripts", s.handleScripts)
	mux.HandleFunc("/api/run", s.handleRun)
	mux.HandleFunc("/ws", s.hub.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	return s.authMiddleware(s.recoverMiddleware(mux))
}

// Start runs the API server on the given port. Blocks until the listener
// fails.
func (s *Server) Start(port int) error {
	go s.hub.run()

	// Bind tcp4 explicitly to avoid IPv6-only binding issues on Windows.
	addr := fmt.Sprintf("0.0.0.0:%d", port)
	ln, err := net.Listen("tcp4", addr)
	if err != nil {
		return fmt.Errorf("api listen on %s: %w", addr, err)
	}
	s.log.Info("api server listening", zap.String("addr", addr))

	server := &http.Server{Handler: s.Handler()}
	if err := server.Serve(ln); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// recoverMiddleware keeps a panicking handler from taking the server down.
func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				s.log.Error("handler panic", zap.Any("panic", err))
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// authMiddleware checks the API token if one is configured. The health
// check stays open.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.log.Debug("api request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote", r.RemoteAddr))

		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}
		if s.token != "" && r.Header.Get("Authorization") != "Bearer "+s.token {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handleScripts handles GET /api/scripts.
func (s *Server) handleScripts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"scripts": s.exec.Names()})
}

// handleRun handles POST /api/run?script=<name>.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	name := r.URL.Query().Get("script")
	if name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing script parameter"})
		return
	}

	s.log.Info("remote script run requested", zap.String("script", name), zap.String("remote", r.RemoteAddr))
	if err := s.runScript(name); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, engine.ErrUnknownScript) {
			status = http.StatusNotFound
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "script": name})
}

// handleHealth handles GET /health (for monitoring).
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) runScript(name string) error {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	return s.exec.Execute(name)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}
