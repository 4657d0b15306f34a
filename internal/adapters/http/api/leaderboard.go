package api

import (
	"fmt"
	"net/http"
	"strconv"
)

const defaultPageSize = 50

// LeaderboardHandler serves ranges of a daily leaderboard.
type LeaderboardHandler struct {
	deps Dependencies
}

// NewLeaderboardHandler creates a new leaderboard handler.
func NewLeaderboardHandler(deps Dependencies) *LeaderboardHandler {
	return &LeaderboardHandler{deps: deps}
}

// HandleGetLeaderboard handles
// GET /leaderboards/daily/{language}/{mode}/{submode}?min=0&max=49.
// Bounds are 0-based and inclusive.
func (h *LeaderboardHandler) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_daily_leaderboard"

	minRank, err := intParam(r, "min", 0)
	if err != nil {
		writeServiceError(w, badRequest(op, err))
		return
	}
	maxRank, err := intParam(r, "max", minRank+defaultPageSize-1)
	if err != nil {
		writeServiceError(w, badRequest(op, err))
		return
	}

	language, mode, submode := modeParams(r)
	entries, err := h.deps.DailyResults(r.Context(), language, mode, submode, minRank, maxRank)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", name)
	}
	return n, nil
}
