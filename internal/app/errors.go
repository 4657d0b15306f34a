package service

import "errors"

// Sentinel errors returned to the transport layer.
var (
	ErrInvalidSubmission = errors.New("invalid result submission")
	ErrNotEligible       = errors.New("mode has no daily leaderboard")
	ErrRangeTooLarge     = errors.New("rank range too large")
	ErrDuplicate         = errors.New("submission already accepted")
	ErrBusy              = errors.New("ingest queue unavailable")
)
