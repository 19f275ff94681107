package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"daily-quest-service/models"
	"daily-quest-service/store"

	"github.com/google/uuid"
)

// Uploader stores a JSON object under key and returns where it landed.
type Uploader interface {
	PutJSON(ctx context.Context, key string, data []byte) (string, error)
}

// ProfileSnapshot is one backup file.
type ProfileSnapshot struct {
	TakenAt  time.Time        `json:"taken_at"`
	Count    int              `json:"count"`
	Profiles []models.Profile `json:"profiles"`
}

type ProfileBackupWorker struct {
	Store    store.Store
	Uploader Uploader
	Now      func() time.Time
}

func NewProfileBackupWorker(s store.Store, uploader Uploader) *ProfileBackupWorker {
	return &ProfileBackupWorker{Store: s, Uploader: uploader, Now: time.Now}
}

// BackupKey is the object key for a snapshot taken at t.
func BackupKey(t time.Time) string {
	return fmt.Sprintf("backups/profiles/%s/%s.json", t.UTC().Format("2006-01-02"), uuid.NewString())
}

// RunOnce uploads a snapshot of every profile and returns its URL.
func (w *ProfileBackupWorker) RunOnce(ctx context.Context) (string, error) {
	profiles, err := w.Store.ListProfiles(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list profiles: %w", err)
	}

	now := time.Now().UTC()
	if w.Now != nil {
		now = w.Now().UTC()
	}

	data, err := json.Marshal(ProfileSnapshot{TakenAt: now, Count: len(profiles), Profiles: profiles})
	if err != nil {
		return "", fmt.Errorf("failed to encode snapshot: %w", err)
	}

	url, err := w.Uploader.PutJSON(ctx, BackupKey(now), data)
	if err != nil {
		return "", err
	}
	return url, nil
}

// Run uploads a snapshot every interval until ctx is done.
func (w *ProfileBackupWorker) Run(ctx context.Context, interval time.Duration) {
	log.Printf("Starting profile backups every %s...", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Profile backups stopped.")
			return
		case <-ticker.C:
			url, err := w.RunOnce(ctx)
			if err != nil {
				// Next tick retries with a fresh snapshot.
				log.Printf("❌ Error backing up profiles: %v", err)
				continue
			}
			log.Printf("✅ Profile snapshot uploaded to %s", url)
		}
	}
}
