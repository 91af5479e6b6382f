// Package serve exposes a read-only HTTP view of a run directory: the
// submission ledger and the termination marker. It exists for operators
// watching a headless chain; nothing in the chain itself talks to it.
package serve

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/me/genchain/internal/chain"
	"github.com/me/genchain/internal/ledger"
)

// Server serves chain status over HTTP.
type Server struct {
	router    chi.Router
	store     *ledger.Store
	term      chain.TerminationSource
	logger    *slog.Logger
	startTime time.Time
}

// New creates a Server over the given ledger and termination source.
func New(store *ledger.Store, term chain.TerminationSource, logger *slog.Logger) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		store:     store,
		term:      term,
		logger:    logger.With("component", "serve"),
		startTime: time.Now(),
	}
	s.routes()
	return s
}

// Handler returns the HTTP handler with all routes registered.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)

	s.router.Get("/healthz", s.handleHealth)
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/chains", s.handleChains)
		r.Get("/chains/{chainID}", s.handleChain)
	})
}

type healthResponse struct {
	Status string `json:"status"`
	Uptime string `json:"uptime"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, healthResponse{
		Status: "ok",
		Uptime: time.Since(s.startTime).Round(time.Second).String(),
	})
}

type chainsResponse struct {
	Signaled bool                  `json:"signaled"`
	Chains   []ledger.ChainSummary `json:"chains"`
}

func (s *Server) handleChains(w http.ResponseWriter, r *http.Request) {
	signaled, err := s.term.Signaled()
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err)
		return
	}
	chains, err := s.store.Chains(r.Context())
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err)
		return
	}
	if chains == nil {
		chains = []ledger.ChainSummary{}
	}
	respondJSON(w, http.StatusOK, chainsResponse{Signaled: signaled, Chains: chains})
}

type chainResponse struct {
	ChainID     string              `json:"chain_id"`
	Submissions []ledger.Submission `json:"submissions"`
}

func (s *Server) handleChain(w http.ResponseWriter, r *http.Request) {
	chainID := chi.URLParam(r, "chainID")
	subs, err := s.store.ListChain(r.Context(), chainID)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err)
		return
	}
	if len(subs) == 0 {
		s.respondError(w, http.StatusNotFound, fmt.Errorf("no submissions recorded for chain %s", chainID))
		return
	}
	respondJSON(w, http.StatusOK, chainResponse{ChainID: chainID, Submissions: subs})
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) respondError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "status", status, "error", err)
	}
	respondJSON(w, status, errorResponse{Error: err.Error()})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
