package service

import (
	"errors"
	"fmt"

	"github.com/okian/otherday/internal/adapters/repository"
	"github.com/okian/otherday/internal/domain/ranking"
)

// Sentinel error kinds returned by Service. The HTTP layer maps each to a
// status code.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
)

// classify tags store and ranking errors with the matching service kind
// while keeping the original chain.
func classify(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	msg := fmt.Sprintf(format, args...)
	switch {
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, ranking.ErrNotFound):
		return fmt.Errorf("%s: %w: %w", msg, ErrNotFound, err)
	case errors.Is(err, repository.ErrConflict):
		return fmt.Errorf("%s: %w: %w", msg, ErrConflict, err)
	case errors.Is(err, repository.ErrBadFilter), errors.Is(err, ranking.ErrInvalidInput):
		return fmt.Errorf("%s: %w: %w", msg, ErrInvalidInput, err)
	default:
		return fmt.Errorf("%s: %w", msg, err)
	}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
