package api

import (
	"errors"
	"fmt"
	"net/http"

	service "github.com/okian/dailyboard/internal/app"
	"github.com/okian/dailyboard/internal/domain/daily"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
)

// badRequest wraps a decoding or parameter problem.
func badRequest(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrBadRequest, err)
}

// writeServiceError maps service errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrBadRequest):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, service.ErrInvalidSubmission):
		writeError(w, http.StatusBadRequest, "invalid_submission", err)
	case errors.Is(err, service.ErrRangeTooLarge):
		writeError(w, http.StatusBadRequest, "range_too_large", err)
	case errors.Is(err, daily.ErrInvalidRange):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, service.ErrNotEligible):
		writeError(w, http.StatusNotFound, "not_eligible", err)
	case errors.Is(err, service.ErrBusy):
		writeError(w, http.StatusTooManyRequests, "backpressure", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
