package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"daily-quest-service/models"
)

// MemoryStore is an in-memory, concurrency-safe store implementation.
type MemoryStore struct {
	mu          sync.RWMutex
	profiles    map[string]models.Profile
	tasks       map[taskKey]models.DailyTask
	subs        map[string]map[chan models.Profile]struct{}
	maxAttempts int
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore(maxAttempts int) *MemoryStore {
	return &MemoryStore{
		profiles:    make(map[string]models.Profile),
		tasks:       make(map[taskKey]models.DailyTask),
		subs:        make(map[string]map[chan models.Profile]struct{}),
		maxAttempts: maxAttempts,
	}
}

func (m *MemoryStore) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	return m.readProfile(ctx, userID)
}

func (m *MemoryStore) readProfile(ctx context.Context, userID string) (*models.Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.profiles[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (m *MemoryStore) readTask(ctx context.Context, userID, taskID string) (*models.DailyTask, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tasks[taskKey{userID: userID, taskID: taskID}]
	if !ok {
		return nil, ErrNotFound
	}
	return &t, nil
}

func (m *MemoryStore) SetProfile(ctx context.Context, profile models.Profile, merge bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(profile.UserID) == "" {
		return fmt.Errorf("profile user id cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	existing, ok := m.profiles[profile.UserID]
	if ok && merge {
		if existing.Name != "" || profile.Name == "" {
			return nil
		}
		existing.Name = profile.Name
		profile = existing
	}
	if ok {
		profile.CreatedAt = existing.CreatedAt
		profile.Version = existing.Version + 1
	} else {
		profile.CreatedAt = now
		profile.Version = 1
	}
	profile.UpdatedAt = now
	m.profiles[profile.UserID] = profile
	m.publishLocked(profile)
	return nil
}

func (m *MemoryStore) ListProfiles(ctx context.Context) ([]models.Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Profile, 0, len(m.profiles))
	for _, p := range m.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (m *MemoryStore) RunTransaction(ctx context.Context, fn func(tx Tx) error) error {
	return runTransaction(ctx, m.maxAttempts, m, m.commit, fn)
}

func (m *MemoryStore) commit(ctx context.Context, set *changeSet) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for userID, seen := range set.profileReads {
		var current int64
		if p, ok := m.profiles[userID]; ok {
			current = p.Version
		}
		if current != seen {
			return ErrConflict
		}
	}
	for key, existed := range set.taskReads {
		if _, ok := m.tasks[key]; ok != existed {
			return ErrConflict
		}
	}

	now := time.Now().UTC()
	for userID, p := range set.profileWrites {
		current := m.profiles[userID]
		p.CreatedAt = current.CreatedAt
		p.UpdatedAt = now
		p.Version = current.Version + 1
		m.profiles[userID] = p
		m.publishLocked(p)
	}
	for key := range set.taskDeletes {
		delete(m.tasks, key)
	}
	return nil
}

func (m *MemoryStore) Subscribe(ctx context.Context, userID string) (<-chan models.Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ch := make(chan models.Profile, 1)

	m.mu.Lock()
	if m.subs[userID] == nil {
		m.subs[userID] = make(map[chan models.Profile]struct{})
	}
	m.subs[userID][ch] = struct{}{}
	if p, ok := m.profiles[userID]; ok {
		ch <- p
	}
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		delete(m.subs[userID], ch)
		if len(m.subs[userID]) == 0 {
			delete(m.subs, userID)
		}
		close(ch)
		m.mu.Unlock()
	}()
	return ch, nil
}

// publishLocked hands the newest snapshot to every subscriber of the user,
// replacing any snapshot the subscriber has not consumed yet.
func (m *MemoryStore) publishLocked(p models.Profile) {
	for ch := range m.subs[p.UserID] {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- p:
		default:
		}
	}
}

func (m *MemoryStore) ListTasks(ctx context.Context, userID string) ([]models.DailyTask, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.DailyTask
	for key, t := range m.tasks {
		if key.userID == userID {
			out = append(out, t)
		}
	}
	sortTasks(out)
	return out, nil
}

func (m *MemoryStore) PutTask(ctx context.Context, task models.DailyTask) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := validateTask(task); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	key := taskKey{userID: task.UserID, taskID: task.ID}
	if _, exists := m.tasks[key]; exists {
		return false, nil
	}
	now := time.Now().UTC()
	task.CreatedAt = now
	task.UpdatedAt = now
	m.tasks[key] = task
	return true, nil
}

func (m *MemoryStore) DeleteTask(ctx context.Context, userID, taskID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.tasks, taskKey{userID: userID, taskID: taskID})
	return nil
}

func (m *MemoryStore) Close() error { return nil }

func sortTasks(tasks []models.DailyTask) {
	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].Name != tasks[j].Name {
			return tasks[i].Name < tasks[j].Name
		}
		return tasks[i].ID < tasks[j].ID
	})
}

func validateTask(task models.DailyTask) error {
	if strings.TrimSpace(task.UserID) == "" {
		return fmt.Errorf("task user id cannot be empty")
	}
	if strings.TrimSpace(task.ID) == "" {
		return fmt.Errorf("task id cannot be empty")
	}
	if task.XP <= 0 {
		return fmt.Errorf("task %s must reward positive xp, got %d", task.ID, task.XP)
	}
	return nil
}

var _ Store = (*MemoryStore)(nil)
