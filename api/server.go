// Package api exposes the staking workflow over a small JSON HTTP API.
// It is the inbound boundary the web UI calls; all business rules live
// in the service layer.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"truthchain/service"
)

// Server is the TruthChain HTTP API server
type Server struct {
	staking   service.StakingService
	ledger    service.LedgerService
	users     service.UserService
	posts     service.PostService
	reconcile service.ReconcileService
}

// NewServer creates a new API server
func NewServer(staking service.StakingService, ledger service.LedgerService, users service.UserService, posts service.PostService, reconcile service.ReconcileService) *Server {
	return &Server{
		staking:   staking,
		ledger:    ledger,
		users:     users,
		posts:     posts,
		reconcile: reconcile,
	}
}

// Handler returns the chi router with all routes mounted
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "ok",
		})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/stakes", s.handlePlaceStake)
		r.Post("/stakes/{id}/reverse", s.handleReverseStake)

		r.Post("/users", s.handleCreateUser)
		r.Get("/users/{id}/balance", s.handleGetBalance)
		r.Get("/users/{id}/can-stake", s.handleCanStake)
		r.Get("/users/{id}/transactions", s.handleGetTransactions)
		r.Post("/users/{id}/reconcile", s.handleReconcile)
		r.Post("/reconcile", s.handleReconcileAll)

		r.Post("/posts", s.handleCreatePost)
		r.Get("/posts/{id}", s.handleGetPost)
		r.Get("/posts/{id}/stakes", s.handleGetPostStakes)
		r.Post("/posts/{id}/recompute", s.handleRecomputePost)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
