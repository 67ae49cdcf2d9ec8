package ranking

import "errors"

// Sentinel kinds for ranking errors.
var (
	ErrNotFound     = errors.New("entity not found in ranking")
	ErrInvalidInput = errors.New("invalid ranking input")
)
