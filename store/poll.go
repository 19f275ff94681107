package store

import (
	"context"
	"errors"
	"log"
	"time"

	"daily-quest-service/models"
)

// DefaultPollInterval is how often SQL-backed subscriptions look for changes.
const DefaultPollInterval = 2 * time.Second

// pollProfile turns a point read into a change feed by polling the profile
// version. Only versions newer than the last one sent are emitted.
func pollProfile(ctx context.Context, interval time.Duration, userID string, read func(context.Context, string) (*models.Profile, error)) <-chan models.Profile {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ch := make(chan models.Profile, 1)

	go func() {
		defer close(ch)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		var lastVersion int64
		check := func() bool {
			p, err := read(ctx, userID)
			if err != nil {
				if !errors.Is(err, ErrNotFound) && ctx.Err() == nil {
					log.Printf("[STORE] Subscription poll error for user %s: %v", userID, err)
				}
				return true
			}
			if p.Version <= lastVersion {
				return true
			}
			select {
			case ch <- *p:
				lastVersion = p.Version
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !check() {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if !check() {
					return
				}
			}
		}
	}()
	return ch
}
