package api

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	service "github.com/okian/dailyboard/internal/app"
	"github.com/okian/dailyboard/internal/domain/model"
)

// ResultsHandler accepts finished test results.
type ResultsHandler struct {
	deps Dependencies
}

// NewResultsHandler creates a new results handler.
func NewResultsHandler(deps Dependencies) *ResultsHandler {
	return &ResultsHandler{deps: deps}
}

type rankResponse struct {
	Rank int `json:"rank"`
}

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// HandlePostResult handles POST /results. With ?async=true the result is
// queued and 202 returned; otherwise it is applied and its rank returned,
// -1 meaning not ranked.
func (h *ResultsHandler) HandlePostResult(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_result"

	var sub model.ResultSubmission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		writeServiceError(w, badRequest(op, err))
		return
	}

	if r.URL.Query().Get("async") == "true" {
		err := h.deps.EnqueueResult(r.Context(), sub)
		switch {
		case err == nil:
			writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted"})
		case errors.Is(err, service.ErrDuplicate):
			writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", Duplicate: true})
		default:
			writeServiceError(w, err)
		}
		return
	}

	rank, err := h.deps.SubmitResult(r.Context(), sub)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rankResponse{Rank: rank})
}
