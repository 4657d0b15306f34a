package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RankHandler handles rank requests.
type RankHandler struct {
	deps Dependencies
}

// NewRankHandler creates a new rank handler.
func NewRankHandler(deps Dependencies) *RankHandler {
	return &RankHandler{deps: deps}
}

// HandleGetRank handles
// GET /leaderboards/daily/{language}/{mode}/{submode}/rank/{uid}.
func (h *RankHandler) HandleGetRank(w http.ResponseWriter, r *http.Request) {
	language, mode, submode := modeParams(r)
	uid := chi.URLParam(r, "uid")

	entry, err := h.deps.DailyRank(r.Context(), language, mode, submode, uid)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if entry == nil {
		writeError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}
