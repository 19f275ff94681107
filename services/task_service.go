package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"daily-quest-service/models"
	"daily-quest-service/store"
)

type TaskService struct {
	Store    store.Store
	Leveling *LevelingService

	// Atomic folds the award and the task deletion into one transaction.
	// Otherwise the task is deleted after the award commits, and a failed
	// delete leaves a task that can be completed again.
	Atomic bool
}

func NewTaskService(s store.Store, leveling *LevelingService, atomic bool) *TaskService {
	return &TaskService{Store: s, Leveling: leveling, Atomic: atomic}
}

// TaskCompletion reports the task that was consumed and the award it paid.
type TaskCompletion struct {
	TaskID   string `json:"task_id"`
	TaskName string `json:"task_name"`
	*XPGainResult
}

// ListDailyTasks returns every task the session's user still has open.
func (s *TaskService) ListDailyTasks(ctx context.Context, sess Session) ([]models.DailyTask, error) {
	tasks, err := s.Store.ListTasks(ctx, sess.UserID)
	if err != nil {
		return nil, storeError(err)
	}
	return tasks, nil
}

// CompleteTask pays out the task's xp to the user and removes the task.
func (s *TaskService) CompleteTask(ctx context.Context, sess Session, taskID string) (*TaskCompletion, error) {
	if s.Atomic {
		return s.completeAtomic(ctx, sess, taskID)
	}
	return s.completeSequential(ctx, sess, taskID)
}

func (s *TaskService) completeAtomic(ctx context.Context, sess Session, taskID string) (*TaskCompletion, error) {
	var out *TaskCompletion
	err := s.Store.RunTransaction(ctx, func(tx store.Tx) error {
		out = nil
		task, err := tx.GetTask(sess.UserID, taskID)
		if errors.Is(err, store.ErrNotFound) {
			return ErrTaskNotFound
		}
		if err != nil {
			return err
		}

		gain, err := awardInTx(tx, sess.UserID, task.XP)
		if err != nil {
			return err
		}
		if err := tx.DeleteTask(sess.UserID, taskID); err != nil {
			return err
		}
		out = &TaskCompletion{
			TaskID:       task.ID,
			TaskName:     task.Name,
			XPGainResult: newXPGainResult(gain, task.XP),
		}
		return nil
	})
	if err != nil {
		return nil, storeError(err)
	}

	log.Printf("✅ [TASKS] %s completed %q (+%d xp) → Lvl=%d XP=%d Coins=%d",
		sess.UserID, out.TaskName, out.XPAwarded, out.Profile.Level, out.Profile.XP, out.Profile.Coins)
	return out, nil
}

func (s *TaskService) completeSequential(ctx context.Context, sess Session, taskID string) (*TaskCompletion, error) {
	var task *models.DailyTask
	err := s.Store.RunTransaction(ctx, func(tx store.Tx) error {
		t, err := tx.GetTask(sess.UserID, taskID)
		if errors.Is(err, store.ErrNotFound) {
			return ErrTaskNotFound
		}
		task = t
		return err
	})
	if err != nil {
		return nil, storeError(err)
	}

	result, err := s.Leveling.ApplyXPGain(ctx, sess, task.XP, "task_"+task.ID)
	if err != nil {
		return nil, err
	}

	if err := s.Store.DeleteTask(ctx, sess.UserID, task.ID); err != nil {
		log.Printf("⚠️ [TASKS] XP for %s/%s was awarded but the task could not be removed: %v", sess.UserID, task.ID, err)
		return nil, fmt.Errorf("remove completed task %s: %w", task.ID, storeError(err))
	}

	return &TaskCompletion{TaskID: task.ID, TaskName: task.Name, XPGainResult: result}, nil
}
