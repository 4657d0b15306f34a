package daily

import "errors"

// Sentinel kinds for daily leaderboard errors. Disabled features and an
// unreachable store are not errors; they produce the empty results.
var (
	ErrInvalidRange = errors.New("invalid rank range")
	ErrEncodeEntry  = errors.New("encode leaderboard entry")
	ErrDecodeEntry  = errors.New("decode leaderboard entry")
	ErrStore        = errors.New("ranked store operation failed")
)
