// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"

	service "github.com/okian/dailyboard/internal/app"
	"github.com/okian/dailyboard/internal/domain/model"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the service implementation.
type Dependencies interface {
	SubmitResult(ctx context.Context, s model.ResultSubmission) (int, error)
	EnqueueResult(ctx context.Context, s model.ResultSubmission) error
	DailyResults(ctx context.Context, language, mode, submode string, minRank, maxRank int) ([]model.RankedEntry, error)
	DailyRank(ctx context.Context, language, mode, submode, uid string) (*model.RankedEntry, error)
	GetStats(ctx context.Context) service.Stats
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	resultsHandler     *ResultsHandler
	leaderboardHandler *LeaderboardHandler
	rankHandler        *RankHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(deps),
		resultsHandler:     NewResultsHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps),
		rankHandler:        NewRankHandler(deps),
	}
}

// Register attaches all routes to r.
func (s *Server) Register(r chi.Router) {
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)

	r.With(MetricsMiddleware("healthz")).Get("/healthz", s.healthHandler.HandleHealth)
	r.With(MetricsMiddleware("stats")).Get("/stats", s.statsHandler.HandleStats)
	r.With(MetricsMiddleware("results")).Post("/results", s.resultsHandler.HandlePostResult)

	r.Route("/leaderboards/daily/{language}/{mode}/{submode}", func(r chi.Router) {
		r.With(MetricsMiddleware("daily_leaderboard")).Get("/", s.leaderboardHandler.HandleGetLeaderboard)
		r.With(MetricsMiddleware("daily_rank")).Get("/rank/{uid}", s.rankHandler.HandleGetRank)
	})
}

// Handler returns a router with every route registered.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	s.Register(r)
	return r
}

// modeParams reads the mode triple from the route.
func modeParams(r *http.Request) (language, mode, submode string) {
	return chi.URLParam(r, "language"), chi.URLParam(r, "mode"), chi.URLParam(r, "submode")
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
