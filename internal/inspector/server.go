// Package inspector serves a local, read-only HTTP view of the running
// session for debugging: connection state, roster, pending approvals and
// challenge outcomes. It never mutates session state.
package inspector

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"tavern/internal/approval"
	"tavern/internal/session"
	"tavern/pkg/logger"
)

// HistoryLister reads persisted approval decisions. The storage DB is the
// production implementation; nil falls back to in-memory history.
type HistoryLister interface {
	ListHistory(limit int) ([]approval.HistoryEntry, error)
}

// Server is the inspector HTTP server.
type Server struct {
	httpServer *http.Server
	router     *mux.Router
	client     *session.Client
	history    HistoryLister
}

// NewServer builds an inspector bound to the given client.
func NewServer(host string, port int, client *session.Client, history HistoryLister) *Server {
	s := &Server{
		router:  mux.NewRouter(),
		client:  client,
		history: history,
	}
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", host, port),
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	api.HandleFunc("/roster", s.handleRoster).Methods(http.MethodGet)
	api.HandleFunc("/approvals", s.handleApprovals).Methods(http.MethodGet)
	api.HandleFunc("/approvals/history", s.handleApprovalHistory).Methods(http.MethodGet)
	api.HandleFunc("/outcomes", s.handleOutcomes).Methods(http.MethodGet)
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start begins serving in a background goroutine.
func (s *Server) Start() {
	go func() {
		logger.Info().Str("addr", s.httpServer.Addr).Msg("Inspector listening")
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("Inspector server error")
		}
	}()
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

type statusResponse struct {
	ConnectionState  string    `json:"connection_state"`
	SessionID        string    `json:"session_id,omitempty"`
	Role             string    `json:"role,omitempty"`
	EngineVersion    string    `json:"engine_version,omitempty"`
	LLMActive        bool      `json:"llm_active"`
	LastPong         time.Time `json:"last_pong,omitempty"`
	PendingApprovals int       `json:"pending_approvals"`
	PendingOutcomes  int       `json:"pending_outcomes"`
	AssetBackend     string    `json:"asset_backend,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, http.StatusOK, statusResponse{
		ConnectionState:  s.client.ConnectionState().String(),
		SessionID:        s.client.State.SessionID(),
		Role:             string(s.client.State.Role()),
		EngineVersion:    s.client.State.EngineVersion(),
		LLMActive:        s.client.State.LLMActive(),
		LastPong:         s.client.State.LastPong(),
		PendingApprovals: s.client.Approvals.PendingCount(),
		PendingOutcomes:  s.client.Outcomes.Count(),
		AssetBackend:     s.client.State.AssetBackend(),
	})
}

func (s *Server) handleRoster(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, http.StatusOK, s.client.State.Participants())
}

func (s *Server) handleApprovals(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, http.StatusOK, s.client.Approvals.Pending())
}

func (s *Server) handleApprovalHistory(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}

	if s.history != nil {
		entries, err := s.history.ListHistory(limit)
		if err != nil {
			sendError(w, http.StatusInternalServerError, errCodeInternalError, err.Error())
			return
		}
		if entries == nil {
			entries = []approval.HistoryEntry{}
		}
		sendJSON(w, http.StatusOK, entries)
		return
	}

	sendJSON(w, http.StatusOK, s.client.Approvals.History())
}

func (s *Server) handleOutcomes(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, http.StatusOK, s.client.Outcomes.List())
}
