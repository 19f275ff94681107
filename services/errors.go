package services

import (
	"context"
	"errors"
	"fmt"

	"daily-quest-service/store"
)

var (
	ErrNoSession        = errors.New("no authenticated user")
	ErrProfileNotFound  = errors.New("profile not found")
	ErrTaskNotFound     = errors.New("task not found")
	ErrInvalidAmount    = errors.New("xp amount must be between 0 and the maximum award")
	ErrStoreUnavailable = errors.New("profile store unavailable")
)

// storeError turns backend failures into ErrStoreUnavailable and leaves
// logical outcomes untouched.
func storeError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrProfileNotFound), errors.Is(err, ErrTaskNotFound), errors.Is(err, ErrInvalidAmount),
		errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, store.ErrUnavailable), errors.Is(err, store.ErrContentionExhausted):
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	default:
		return err
	}
}
