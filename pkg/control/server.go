package control

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/quorumkit/benor-node/pkg/consensus"
	"github.com/quorumkit/benor-node/pkg/inbox"
	"github.com/quorumkit/benor-node/pkg/logger"
	"github.com/quorumkit/benor-node/pkg/readiness"
	"github.com/quorumkit/benor-node/pkg/wire"
)

// Server exposes one node's control surface over HTTP.
type Server struct {
	id      int
	node    consensus.Node
	barrier *readiness.Barrier
	router  *Router
	http    *http.Server
}

// NewServer wires a node and a cluster readiness barrier into an HTTP
// server listening on addr. Per-route limits are generous for read-only
// endpoints, tighter for /start, /stop and POST /ready, and highest for
// /message, which carries the peers' protocol traffic.
func NewServer(addr string, id int, node consensus.Node, barrier *readiness.Barrier) *Server {
	s := &Server{id: id, node: node, barrier: barrier}

	routes := []Route{
		{Method: http.MethodGet, Path: "/status", Handler: s.handleStatus, Limit: 100},
		{Method: http.MethodGet, Path: "/getState", Handler: s.handleGetState, Limit: 100},
		{Method: http.MethodGet, Path: "/start", Handler: s.handleStart, Limit: 10},
		{Method: http.MethodGet, Path: "/stop", Handler: s.handleStop, Limit: 10},
		{Method: http.MethodPost, Path: "/message", Handler: s.handleMessage, Limit: 500},
		{Method: http.MethodGet, Path: "/ready", Handler: s.handleReadyGet, Limit: 100},
		{Method: http.MethodPost, Path: "/ready", Handler: s.handleReadyPost, Limit: 10},
	}
	s.router = NewRouter(routes)
	s.http = &http.Server{Addr: addr, Handler: s.router}
	return s
}

// ListenAndServe runs the server until it is shut down or fails to bind.
func (s *Server) ListenAndServe() error {
	logger.Info("control: node %d listening on %s", s.id, s.http.Addr)
	return s.http.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if s.node.Faulty() {
		writeJSON(w, http.StatusInternalServerError, "faulty")
		logRequest(r.Method, r.URL.Path, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, "live")
	logRequest(r.Method, r.URL.Path, http.StatusOK)
}

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	snap := s.node.Snapshot()
	writeJSON(w, http.StatusOK, wire.StateResponse{
		Killed:  snap.Killed,
		X:       snap.X,
		Decided: snap.Decided,
		K:       snap.K,
	})
	logRequest(r.Method, r.URL.Path, http.StatusOK)
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if s.node.Faulty() {
		writeError(w, http.StatusInternalServerError, errors.New("node is faulty"))
		logRequest(r.Method, r.URL.Path, http.StatusInternalServerError)
		return
	}
	if err := s.node.Start(); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		logRequest(r.Method, r.URL.Path, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, wire.SuccessResponse{Success: true})
	logRequest(r.Method, r.URL.Path, http.StatusOK)
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.node.Stop()
	writeJSON(w, http.StatusOK, wire.SuccessResponse{Success: true})
	logRequest(r.Method, r.URL.Path, http.StatusOK)
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req wire.MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("malformed message body"))
		logRequest(r.Method, r.URL.Path, http.StatusBadRequest)
		return
	}
	if req.Phase != int(inbox.Phase1) && req.Phase != int(inbox.Phase2) {
		writeError(w, http.StatusBadRequest, errors.New("phase must be 1 or 2"))
		logRequest(r.Method, r.URL.Path, http.StatusBadRequest)
		return
	}
	if err := s.node.Deliver(inbox.Phase(req.Phase), req.K, req.Value, req.From); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		logRequest(r.Method, r.URL.Path, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, wire.SuccessResponse{Success: true})
	logRequest(r.Method, r.URL.Path, http.StatusOK)
}

func (s *Server) handleReadyGet(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, wire.ReadyResponse{Ready: s.barrier.Ready()})
	logRequest(r.Method, r.URL.Path, http.StatusOK)
}

func (s *Server) handleReadyPost(w http.ResponseWriter, r *http.Request) {
	s.barrier.SetReady(s.id)
	writeJSON(w, http.StatusOK, wire.SuccessResponse{Success: true})
	logRequest(r.Method, r.URL.Path, http.StatusOK)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, wire.ErrorResponse{Error: err.Error()})
}
