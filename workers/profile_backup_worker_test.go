package workers

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"daily-quest-service/models"
	"daily-quest-service/store"
)

type fakeUploader struct {
	mu   sync.Mutex
	keys []string
	data [][]byte
	err  error
}

func (f *fakeUploader) PutJSON(ctx context.Context, key string, data []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.keys = append(f.keys, key)
	f.data = append(f.data, data)
	return "https://cdn.example.com/" + key, nil
}

func (f *fakeUploader) uploads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.keys)
}

func TestProfileBackupRunOnce(t *testing.T) {
	s := store.NewMemoryStore(store.DefaultMaxAttempts)
	for _, id := range []string{"u1", "u2"} {
		if err := s.SetProfile(context.Background(), models.NewProfile(id), false); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	up := &fakeUploader{}
	w := NewProfileBackupWorker(s, up)
	w.Now = func() time.Time { return time.Date(2026, 10, 17, 3, 0, 0, 0, time.UTC) }

	url, err := w.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("run once: %v", err)
	}
	if len(up.keys) != 1 || !strings.HasPrefix(up.keys[0], "backups/profiles/2026-10-17/") || !strings.HasSuffix(up.keys[0], ".json") {
		t.Fatalf("unexpected keys %v", up.keys)
	}
	if url != "https://cdn.example.com/"+up.keys[0] {
		t.Fatalf("unexpected url %q", url)
	}

	var snap ProfileSnapshot
	if err := json.Unmarshal(up.data[0], &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snap.Count != 2 || len(snap.Profiles) != 2 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestProfileBackupUploadError(t *testing.T) {
	up := &fakeUploader{err: errors.New("bucket gone")}
	w := NewProfileBackupWorker(store.NewMemoryStore(1), up)

	if _, err := w.RunOnce(context.Background()); err == nil {
		t.Fatal("expected upload error")
	}
}

func TestProfileBackupRunStopsOnCancel(t *testing.T) {
	up := &fakeUploader{}
	w := NewProfileBackupWorker(store.NewMemoryStore(1), up)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx, 10*time.Millisecond)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for up.uploads() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
	if up.uploads() == 0 {
		t.Fatal("worker never uploaded")
	}
}
