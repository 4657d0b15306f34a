package repository

import "errors"

// Sentinel kinds for ranked store errors.
var (
	ErrStoreClosed     = errors.New("ranked store closed")
	ErrInvalidRange    = errors.New("invalid rank range")
	ErrInvalidBound    = errors.New("max results must be positive")
	ErrUnexpectedReply = errors.New("unexpected store reply")
	ErrInvalidScore    = errors.New("score is not a valid float")
)
