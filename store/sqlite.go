package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"daily-quest-service/models"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// SQLiteStore persists profiles and tasks in an embedded SQLite database.
type SQLiteStore struct {
	sqlDB        *sql.DB
	maxAttempts  int
	pollInterval time.Duration
}

// Options tunes the SQL-backed stores.
type Options struct {
	MaxAttempts  int
	PollInterval time.Duration
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// OpenSQLite opens (and creates if missing) the SQLite database at path and
// applies the schema.
func OpenSQLite(path string, opts Options) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer at a time; optimistic versions still catch interleaved
	// read-modify-write cycles between transactions.
	sqlDB.SetMaxOpenConns(1)
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &SQLiteStore{sqlDB: sqlDB, maxAttempts: opts.MaxAttempts, pollInterval: opts.PollInterval}
	if err := s.migrate(context.Background()); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS profiles (
			user_id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			xp INTEGER NOT NULL DEFAULT 0,
			level INTEGER NOT NULL DEFAULT 1,
			coins INTEGER NOT NULL DEFAULT 0,
			version INTEGER NOT NULL DEFAULT 1,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS daily_tasks (
			user_id TEXT NOT NULL,
			id TEXT NOT NULL,
			name TEXT NOT NULL,
			xp INTEGER NOT NULL CHECK (xp > 0),
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			PRIMARY KEY (user_id, id)
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.sqlDB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate sqlite: %w", err)
		}
	}
	return nil
}

// Close closes the SQLite handle.
func (s *SQLiteStore) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *SQLiteStore) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	return s.readProfile(ctx, userID)
}

func (s *SQLiteStore) readProfile(ctx context.Context, userID string) (*models.Profile, error) {
	row := s.sqlDB.QueryRowContext(ctx, `
		SELECT user_id, name, xp, level, coins, version, created_at, updated_at
		FROM profiles WHERE user_id = ?`, userID)

	var (
		p                    models.Profile
		createdAt, updatedAt int64
	)
	if err := row.Scan(&p.UserID, &p.Name, &p.XP, &p.Level, &p.Coins, &p.Version, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, classifySQLite("profile get", err)
	}
	p.CreatedAt = fromMillis(createdAt)
	p.UpdatedAt = fromMillis(updatedAt)
	return &p, nil
}

func (s *SQLiteStore) readTask(ctx context.Context, userID, taskID string) (*models.DailyTask, error) {
	row := s.sqlDB.QueryRowContext(ctx, `
		SELECT id, user_id, name, xp, created_at, updated_at
		FROM daily_tasks WHERE user_id = ? AND id = ?`, userID, taskID)

	var (
		t                    models.DailyTask
		createdAt, updatedAt int64
	)
	if err := row.Scan(&t.ID, &t.UserID, &t.Name, &t.XP, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, classifySQLite("task get", err)
	}
	t.CreatedAt = fromMillis(createdAt)
	t.UpdatedAt = fromMillis(updatedAt)
	return &t, nil
}

func (s *SQLiteStore) SetProfile(ctx context.Context, profile models.Profile, merge bool) error {
	if strings.TrimSpace(profile.UserID) == "" {
		return fmt.Errorf("profile user id cannot be empty")
	}
	now := toMillis(time.Now())

	if !merge {
		_, err := s.sqlDB.ExecContext(ctx, `
			INSERT INTO profiles (user_id, name, xp, level, coins, version, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, 1, ?, ?)
			ON CONFLICT(user_id) DO UPDATE SET
				name = excluded.name,
				xp = excluded.xp,
				level = excluded.level,
				coins = excluded.coins,
				version = profiles.version + 1,
				updated_at = excluded.updated_at`,
			profile.UserID, profile.Name, profile.XP, profile.Level, profile.Coins, now, now)
		if err != nil {
			return classifySQLite("profile set", err)
		}
		return nil
	}

	_, err := s.sqlDB.ExecContext(ctx, `
		INSERT INTO profiles (user_id, name, xp, level, coins, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 1, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			name = excluded.name,
			version = profiles.version + 1,
			updated_at = excluded.updated_at
		WHERE profiles.name = '' AND excluded.name <> ''`,
		profile.UserID, profile.Name, profile.XP, profile.Level, profile.Coins, now, now)
	if err != nil {
		return classifySQLite("profile merge", err)
	}
	return nil
}

func (s *SQLiteStore) ListProfiles(ctx context.Context) ([]models.Profile, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `
		SELECT user_id, name, xp, level, coins, version, created_at, updated_at
		FROM profiles ORDER BY user_id`)
	if err != nil {
		return nil, classifySQLite("profile list", err)
	}
	defer rows.Close()

	var out []models.Profile
	for rows.Next() {
		var (
			p                    models.Profile
			createdAt, updatedAt int64
		)
		if err := rows.Scan(&p.UserID, &p.Name, &p.XP, &p.Level, &p.Coins, &p.Version, &createdAt, &updatedAt); err != nil {
			return nil, classifySQLite("profile scan", err)
		}
		p.CreatedAt = fromMillis(createdAt)
		p.UpdatedAt = fromMillis(updatedAt)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, classifySQLite("profile rows", err)
	}
	return out, nil
}

func (s *SQLiteStore) RunTransaction(ctx context.Context, fn func(tx Tx) error) error {
	return runTransaction(ctx, s.maxAttempts, s, s.commit, fn)
}

func (s *SQLiteStore) commit(ctx context.Context, set *changeSet) error {
	return withTx(ctx, s.sqlDB, func(tx *sql.Tx) error {
		now := toMillis(time.Now())

		for userID, seen := range set.profileReads {
			if w, ok := set.profileWrites[userID]; ok {
				res, err := tx.ExecContext(ctx, `
					UPDATE profiles
					SET name = ?, xp = ?, level = ?, coins = ?, version = version + 1, updated_at = ?
					WHERE user_id = ? AND version = ?`,
					w.Name, w.XP, w.Level, w.Coins, now, userID, seen)
				if err != nil {
					return classifySQLite("profile update", err)
				}
				if n, _ := res.RowsAffected(); n == 0 {
					return ErrConflict
				}
				continue
			}

			var current int64
			err := tx.QueryRowContext(ctx, `SELECT version FROM profiles WHERE user_id = ?`, userID).Scan(&current)
			if err != nil && !errors.Is(err, sql.ErrNoRows) {
				return classifySQLite("profile version", err)
			}
			if current != seen {
				return ErrConflict
			}
		}

		for key, existed := range set.taskReads {
			if existed && set.taskDeletes[key] {
				continue
			}
			var n int
			if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM daily_tasks WHERE user_id = ? AND id = ?`,
				key.userID, key.taskID).Scan(&n); err != nil {
				return classifySQLite("task check", err)
			}
			if (n > 0) != existed {
				return ErrConflict
			}
		}

		for key := range set.taskDeletes {
			res, err := tx.ExecContext(ctx, `DELETE FROM daily_tasks WHERE user_id = ? AND id = ?`, key.userID, key.taskID)
			if err != nil {
				return classifySQLite("task delete", err)
			}
			n, _ := res.RowsAffected()
			if existed := set.taskReads[key]; existed && n == 0 {
				return ErrConflict
			}
		}
		return nil
	})
}

func (s *SQLiteStore) Subscribe(ctx context.Context, userID string) (<-chan models.Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return pollProfile(ctx, s.pollInterval, userID, s.readProfile), nil
}

func (s *SQLiteStore) ListTasks(ctx context.Context, userID string) ([]models.DailyTask, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `
		SELECT id, user_id, name, xp, created_at, updated_at
		FROM daily_tasks WHERE user_id = ? ORDER BY name, id`, userID)
	if err != nil {
		return nil, classifySQLite("task list", err)
	}
	defer rows.Close()

	var out []models.DailyTask
	for rows.Next() {
		var (
			t                    models.DailyTask
			createdAt, updatedAt int64
		)
		if err := rows.Scan(&t.ID, &t.UserID, &t.Name, &t.XP, &createdAt, &updatedAt); err != nil {
			return nil, classifySQLite("task scan", err)
		}
		t.CreatedAt = fromMillis(createdAt)
		t.UpdatedAt = fromMillis(updatedAt)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, classifySQLite("task rows", err)
	}
	return out, nil
}

func (s *SQLiteStore) PutTask(ctx context.Context, task models.DailyTask) (bool, error) {
	if err := validateTask(task); err != nil {
		return false, err
	}
	now := toMillis(time.Now())
	res, err := s.sqlDB.ExecContext(ctx, `
		INSERT INTO daily_tasks (user_id, id, name, xp, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, id) DO NOTHING`,
		task.UserID, task.ID, task.Name, task.XP, now, now)
	if err != nil {
		return false, classifySQLite("task put", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (s *SQLiteStore) DeleteTask(ctx context.Context, userID, taskID string) error {
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM daily_tasks WHERE user_id = ? AND id = ?`, userID, taskID); err != nil {
		return classifySQLite("task delete", err)
	}
	return nil
}

// withTx runs fn inside a SQL transaction.
func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return classifySQLite("begin tx", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return classifySQLite("commit tx", err)
	}
	committed = true
	return nil
}

// classifySQLite maps lock contention to ErrConflict so the transaction is
// retried, and everything else to ErrUnavailable.
func classifySQLite(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if isSQLiteBusyError(err) {
		return fmt.Errorf("%s: %w", op, ErrConflict)
	}
	return unavailable(op, err)
}

func isSQLiteBusyError(err error) bool {
	var sqliteErr *msqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	return code == sqlite3lib.SQLITE_BUSY || code == sqlite3lib.SQLITE_LOCKED
}

var _ Store = (*SQLiteStore)(nil)
