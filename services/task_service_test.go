package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"daily-quest-service/models"
	"daily-quest-service/store"
)

func newTaskFixture(t *testing.T, atomic bool) (store.Store, *TaskService) {
	t.Helper()
	s := store.NewMemoryStore(store.DefaultMaxAttempts)
	seedProfile(t, s, models.NewProfile("u1"))
	if _, err := s.PutTask(context.Background(), models.DailyTask{ID: "read", UserID: "u1", Name: "Ler 20 páginas", XP: 30}); err != nil {
		t.Fatalf("put task: %v", err)
	}
	if _, err := s.PutTask(context.Background(), models.DailyTask{ID: "run", UserID: "u1", Name: "Exercício físico", XP: 120}); err != nil {
		t.Fatalf("put task: %v", err)
	}
	return s, NewTaskService(s, NewLevelingService(s), atomic)
}

func TestCompleteTask(t *testing.T) {
	for _, atomic := range []bool{true, false} {
		name := "sequential"
		if atomic {
			name = "atomic"
		}
		t.Run(name, func(t *testing.T) {
			s, svc := newTaskFixture(t, atomic)
			sess := newTestSession(t, "u1")

			res, err := svc.CompleteTask(context.Background(), sess, "run")
			if err != nil {
				t.Fatalf("complete: %v", err)
			}
			if res.TaskID != "run" || res.XPAwarded != 120 || !res.LevelUp || res.CoinsGained != 12 {
				t.Fatalf("unexpected completion %+v", res)
			}

			p, _ := s.GetProfile(context.Background(), "u1")
			if p.XP != 20 || p.Level != 2 || p.Coins != 12 {
				t.Fatalf("unexpected profile %+v", p)
			}

			tasks, _ := svc.ListDailyTasks(context.Background(), sess)
			if len(tasks) != 1 || tasks[0].ID != "read" {
				t.Fatalf("task was not removed: %+v", tasks)
			}

			if _, err := svc.CompleteTask(context.Background(), sess, "run"); !errors.Is(err, ErrTaskNotFound) {
				t.Fatalf("second completion: expected ErrTaskNotFound, got %v", err)
			}
			p, _ = s.GetProfile(context.Background(), "u1")
			if p.XP != 20 || p.Level != 2 || p.Coins != 12 {
				t.Fatalf("second completion changed the profile: %+v", p)
			}
		})
	}
}

func TestCompleteTaskUnknown(t *testing.T) {
	_, svc := newTaskFixture(t, true)
	if _, err := svc.CompleteTask(context.Background(), newTestSession(t, "u1"), "nope"); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound, got %v", err)
	}
}

func TestCompleteTaskOtherUsersTask(t *testing.T) {
	s, svc := newTaskFixture(t, true)
	seedProfile(t, s, models.NewProfile("u2"))

	if _, err := svc.CompleteTask(context.Background(), newTestSession(t, "u2"), "run"); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound, got %v", err)
	}
	tasks, _ := s.ListTasks(context.Background(), "u1")
	if len(tasks) != 2 {
		t.Fatalf("u1 tasks touched: %+v", tasks)
	}
}

func TestCompleteTaskMissingProfileKeepsTask(t *testing.T) {
	s := store.NewMemoryStore(store.DefaultMaxAttempts)
	if _, err := s.PutTask(context.Background(), models.DailyTask{ID: "read", UserID: "u1", Name: "Ler", XP: 30}); err != nil {
		t.Fatalf("put task: %v", err)
	}
	svc := NewTaskService(s, NewLevelingService(s), true)

	if _, err := svc.CompleteTask(context.Background(), newTestSession(t, "u1"), "read"); !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}
	tasks, _ := s.ListTasks(context.Background(), "u1")
	if len(tasks) != 1 {
		t.Fatalf("task removed although nothing was awarded: %+v", tasks)
	}
}

func TestCompleteTaskConcurrentlyPaysOnce(t *testing.T) {
	s, svc := newTaskFixture(t, true)
	sess := newTestSession(t, "u1")

	const workers = 6
	var wg sync.WaitGroup
	var mu sync.Mutex
	completed, missing := 0, 0
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CompleteTask(context.Background(), sess, "read")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				completed++
			case errors.Is(err, ErrTaskNotFound):
				missing++
			default:
				t.Errorf("complete: %v", err)
			}
		}()
	}
	wg.Wait()

	if completed != 1 || missing != workers-1 {
		t.Fatalf("completed=%d missing=%d", completed, missing)
	}
	p, _ := s.GetProfile(context.Background(), "u1")
	if p.XP != 30 || p.Coins != 3 {
		t.Fatalf("task paid more than once: %+v", p)
	}
}

// failingDeleteStore loses every non-transactional task delete.
type failingDeleteStore struct {
	store.Store
}

func (failingDeleteStore) DeleteTask(ctx context.Context, userID, taskID string) error {
	return store.ErrUnavailable
}

func TestCompleteTaskSequentialDeleteFailure(t *testing.T) {
	mem, _ := newTaskFixture(t, false)
	s := failingDeleteStore{Store: mem}
	svc := NewTaskService(s, NewLevelingService(s), false)

	_, err := svc.CompleteTask(context.Background(), newTestSession(t, "u1"), "read")
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}

	// The award already committed; the task is still there.
	p, _ := mem.GetProfile(context.Background(), "u1")
	if p.XP != 30 {
		t.Fatalf("expected award to stand, got %+v", p)
	}
	tasks, _ := mem.ListTasks(context.Background(), "u1")
	if len(tasks) != 2 {
		t.Fatalf("expected task to remain, got %+v", tasks)
	}
}
