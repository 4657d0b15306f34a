package modes

import "errors"

// Sentinel kinds for mode rule errors.
var (
	ErrInvalidPattern = errors.New("invalid mode pattern")
)
