// Package store is the document store behind profiles and daily tasks.
//
// All backends share the same optimistic transaction model: reads inside a
// transaction record the version of what they saw, writes are buffered, and
// the commit fails with ErrConflict if anything read has changed since. The
// transaction body is then re-run against fresh data.
package store

import (
	"context"
	"errors"

	"daily-quest-service/models"
)

// Shared store errors used across implementations
var (
	ErrNotFound            = errors.New("store: not found")
	ErrConflict            = errors.New("store: transaction conflict")
	ErrContentionExhausted = errors.New("store: transaction retries exhausted")
	ErrUnavailable         = errors.New("store: backend unavailable")
	ErrUnreadWrite         = errors.New("store: document must be read in the transaction before it is written")
)

// DefaultMaxAttempts bounds how many times a transaction body is run.
const DefaultMaxAttempts = 5

// Store is the persistence boundary used by the services.
type Store interface {
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
	// SetProfile writes a profile outside a transaction. With merge set, an
	// existing profile keeps its counters and only an empty name is filled in.
	SetProfile(ctx context.Context, profile models.Profile, merge bool) error
	ListProfiles(ctx context.Context) ([]models.Profile, error)

	RunTransaction(ctx context.Context, fn func(tx Tx) error) error

	// Subscribe emits the current profile and every later committed change.
	// The channel is closed once ctx is done.
	Subscribe(ctx context.Context, userID string) (<-chan models.Profile, error)

	ListTasks(ctx context.Context, userID string) ([]models.DailyTask, error)
	// PutTask inserts a task unless one with the same user and id exists.
	PutTask(ctx context.Context, task models.DailyTask) (bool, error)
	// DeleteTask removes a task; deleting a missing task is not an error.
	DeleteTask(ctx context.Context, userID, taskID string) error

	Close() error
}

// Tx is only valid inside the function passed to RunTransaction.
type Tx interface {
	GetProfile(userID string) (*models.Profile, error)
	UpdateProfile(profile models.Profile) error
	GetTask(userID, taskID string) (*models.DailyTask, error)
	DeleteTask(userID, taskID string) error
}
