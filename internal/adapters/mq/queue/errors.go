package queue

import "errors"

var (
	ErrClosed = errors.New("ingest queue closed")
	ErrFull   = errors.New("ingest queue full")
)
