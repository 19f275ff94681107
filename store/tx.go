package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"daily-quest-service/models"
)

type taskKey struct {
	userID string
	taskID string
}

// readSource is how a backend serves snapshot reads to a transaction.
// Both methods return ErrNotFound for missing documents.
type readSource interface {
	readProfile(ctx context.Context, userID string) (*models.Profile, error)
	readTask(ctx context.Context, userID, taskID string) (*models.DailyTask, error)
}

// changeSet is what a transaction hands to the backend on commit: the
// preconditions it observed and the writes it buffered.
type changeSet struct {
	profileReads  map[string]int64 // version seen; 0 when the profile was absent
	profileWrites map[string]models.Profile
	taskReads     map[taskKey]bool // whether the task existed when read
	taskDeletes   map[taskKey]bool
}

func newChangeSet() *changeSet {
	return &changeSet{
		profileReads:  map[string]int64{},
		profileWrites: map[string]models.Profile{},
		taskReads:     map[taskKey]bool{},
		taskDeletes:   map[taskKey]bool{},
	}
}

func (c *changeSet) hasWrites() bool {
	return len(c.profileWrites) > 0 || len(c.taskDeletes) > 0
}

type bufferedTx struct {
	ctx context.Context
	src readSource
	set *changeSet
}

func (t *bufferedTx) GetProfile(userID string) (*models.Profile, error) {
	if p, ok := t.set.profileWrites[userID]; ok {
		cp := p
		return &cp, nil
	}
	p, err := t.src.readProfile(t.ctx, userID)
	if errors.Is(err, ErrNotFound) {
		if _, seen := t.set.profileReads[userID]; !seen {
			t.set.profileReads[userID] = 0
		}
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if _, seen := t.set.profileReads[userID]; !seen {
		t.set.profileReads[userID] = p.Version
	}
	return p, nil
}

func (t *bufferedTx) UpdateProfile(profile models.Profile) error {
	version, seen := t.set.profileReads[profile.UserID]
	if !seen {
		return ErrUnreadWrite
	}
	if version == 0 {
		return fmt.Errorf("update profile %s: %w", profile.UserID, ErrNotFound)
	}
	profile.Version = version
	t.set.profileWrites[profile.UserID] = profile
	return nil
}

func (t *bufferedTx) GetTask(userID, taskID string) (*models.DailyTask, error) {
	key := taskKey{userID: userID, taskID: taskID}
	if t.set.taskDeletes[key] {
		return nil, ErrNotFound
	}
	task, err := t.src.readTask(t.ctx, userID, taskID)
	if errors.Is(err, ErrNotFound) {
		if _, seen := t.set.taskReads[key]; !seen {
			t.set.taskReads[key] = false
		}
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if _, seen := t.set.taskReads[key]; !seen {
		t.set.taskReads[key] = true
	}
	return task, nil
}

func (t *bufferedTx) DeleteTask(userID, taskID string) error {
	t.set.taskDeletes[taskKey{userID: userID, taskID: taskID}] = true
	return nil
}

// runTransaction drives the optimistic retry loop shared by every backend.
// Errors returned by fn abort the transaction without committing anything.
func runTransaction(
	ctx context.Context,
	maxAttempts int,
	src readSource,
	commit func(ctx context.Context, set *changeSet) error,
	fn func(tx Tx) error,
) error {
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		tx := &bufferedTx{ctx: ctx, src: src, set: newChangeSet()}
		if err := fn(tx); err != nil {
			return err
		}
		if !tx.set.hasWrites() {
			return nil
		}

		err := commit(ctx, tx.set)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrConflict) {
			return err
		}

		log.Printf("[STORE] 🔁 Transaction conflict, retrying (attempt %d/%d)", attempt, maxAttempts)
		if attempt == maxAttempts {
			break
		}
		backoff := time.Duration(attempt*attempt) * 5 * time.Millisecond
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return fmt.Errorf("%w after %d attempts", ErrContentionExhausted, maxAttempts)
}

// unavailable marks a backend failure so callers can tell it from a
// logical outcome like ErrNotFound.
func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}
