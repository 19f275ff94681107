package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"daily-quest-service/models"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore keeps profiles and tasks in PostgreSQL through GORM.
type GormStore struct {
	DB           *gorm.DB
	maxAttempts  int
	pollInterval time.Duration
}

// OpenPostgres connects to dsn and migrates the profile and task tables.
func OpenPostgres(dsn string, opts Options) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return NewGormStore(db, opts)
}

// NewGormStore wraps an existing GORM handle.
func NewGormStore(db *gorm.DB, opts Options) (*GormStore, error) {
	if err := db.AutoMigrate(&models.Profile{}, &models.DailyTask{}); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return &GormStore{DB: db, maxAttempts: opts.MaxAttempts, pollInterval: opts.PollInterval}, nil
}

func (s *GormStore) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *GormStore) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	return s.readProfile(ctx, userID)
}

func (s *GormStore) readProfile(ctx context.Context, userID string) (*models.Profile, error) {
	var prog models.Profile
	err := s.DB.WithContext(ctx).Where("user_id = ?", userID).First(&prog).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, classifyGorm("profile get", err)
	}
	return &prog, nil
}

func (s *GormStore) readTask(ctx context.Context, userID, taskID string) (*models.DailyTask, error) {
	var task models.DailyTask
	err := s.DB.WithContext(ctx).Where("user_id = ? AND id = ?", userID, taskID).First(&task).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, classifyGorm("task get", err)
	}
	return &task, nil
}

func (s *GormStore) SetProfile(ctx context.Context, profile models.Profile, merge bool) error {
	if strings.TrimSpace(profile.UserID) == "" {
		return fmt.Errorf("profile user id cannot be empty")
	}
	profile.Version = 1

	if !merge {
		err := s.DB.WithContext(ctx).Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"name":       profile.Name,
				"xp":         profile.XP,
				"level":      profile.Level,
				"coins":      profile.Coins,
				"version":    gorm.Expr("profiles.version + 1"),
				"updated_at": time.Now().UTC(),
			}),
		}).Create(&profile).Error
		if err != nil {
			return classifyGorm("profile set", err)
		}
		return nil
	}

	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&profile)
		if res.Error != nil {
			return classifyGorm("profile merge", res.Error)
		}
		if res.RowsAffected > 0 || profile.Name == "" {
			return nil
		}
		err := tx.Model(&models.Profile{}).
			Where("user_id = ? AND name = ''", profile.UserID).
			Updates(map[string]any{
				"name":    profile.Name,
				"version": gorm.Expr("version + 1"),
			}).Error
		if err != nil {
			return classifyGorm("profile merge name", err)
		}
		return nil
	})
}

func (s *GormStore) ListProfiles(ctx context.Context) ([]models.Profile, error) {
	var profiles []models.Profile
	if err := s.DB.WithContext(ctx).Order("user_id ASC").Find(&profiles).Error; err != nil {
		return nil, classifyGorm("profile list", err)
	}
	return profiles, nil
}

func (s *GormStore) RunTransaction(ctx context.Context, fn func(tx Tx) error) error {
	return runTransaction(ctx, s.maxAttempts, s, s.commit, fn)
}

func (s *GormStore) commit(ctx context.Context, set *changeSet) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for userID, seen := range set.profileReads {
			if w, ok := set.profileWrites[userID]; ok {
				res := tx.Model(&models.Profile{}).
					Where("user_id = ? AND version = ?", userID, seen).
					Updates(map[string]any{
						"name":    w.Name,
						"xp":      w.XP,
						"level":   w.Level,
						"coins":   w.Coins,
						"version": gorm.Expr("version + 1"),
					})
				if res.Error != nil {
					return classifyGorm("profile update", res.Error)
				}
				if res.RowsAffected == 0 {
					return ErrConflict
				}
				continue
			}

			var versions []int64
			if err := tx.Model(&models.Profile{}).Where("user_id = ?", userID).Pluck("version", &versions).Error; err != nil {
				return classifyGorm("profile version", err)
			}
			var current int64
			if len(versions) > 0 {
				current = versions[0]
			}
			if current != seen {
				return ErrConflict
			}
		}

		for key, existed := range set.taskReads {
			if existed && set.taskDeletes[key] {
				continue
			}
			var n int64
			if err := tx.Model(&models.DailyTask{}).
				Where("user_id = ? AND id = ?", key.userID, key.taskID).
				Count(&n).Error; err != nil {
				return classifyGorm("task check", err)
			}
			if (n > 0) != existed {
				return ErrConflict
			}
		}

		for key := range set.taskDeletes {
			res := tx.Where("user_id = ? AND id = ?", key.userID, key.taskID).Delete(&models.DailyTask{})
			if res.Error != nil {
				return classifyGorm("task delete", res.Error)
			}
			if existed := set.taskReads[key]; existed && res.RowsAffected == 0 {
				return ErrConflict
			}
		}
		return nil
	})
}

func (s *GormStore) Subscribe(ctx context.Context, userID string) (<-chan models.Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return pollProfile(ctx, s.pollInterval, userID, s.readProfile), nil
}

func (s *GormStore) ListTasks(ctx context.Context, userID string) ([]models.DailyTask, error) {
	var tasks []models.DailyTask
	err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("name ASC").Order("id ASC").
		Find(&tasks).Error
	if err != nil {
		return nil, classifyGorm("task list", err)
	}
	return tasks, nil
}

func (s *GormStore) PutTask(ctx context.Context, task models.DailyTask) (bool, error) {
	if err := validateTask(task); err != nil {
		return false, err
	}
	res := s.DB.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&task)
	if res.Error != nil {
		return false, classifyGorm("task put", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *GormStore) DeleteTask(ctx context.Context, userID, taskID string) error {
	err := s.DB.WithContext(ctx).
		Where("user_id = ? AND id = ?", userID, taskID).
		Delete(&models.DailyTask{}).Error
	if err != nil {
		return classifyGorm("task delete", err)
	}
	return nil
}

// classifyGorm maps serialization failures (SQLSTATE 40001) and deadlocks
// (40P01) to ErrConflict so the transaction is retried.
func classifyGorm(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && (pgErr.Code == "40001" || pgErr.Code == "40P01") {
		return fmt.Errorf("%s: %w", op, ErrConflict)
	}
	return unavailable(op, err)
}

var _ Store = (*GormStore)(nil)
