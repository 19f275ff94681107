package store

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestClassifyGorm(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		wantConflict bool
	}{
		{"serialization failure", fmt.Errorf("commit: %w", &pgconn.PgError{Code: "40001", Message: "could not serialize access"}), true},
		{"deadlock", &pgconn.PgError{Code: "40P01", Message: "deadlock detected"}, true},
		{"unique violation", &pgconn.PgError{Code: "23505", Message: "duplicate key"}, false},
		{"code only in message text", errors.New("driver said SQLSTATE 40001 somewhere"), false},
		{"connection refused", errors.New("dial tcp: connection refused"), false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := classifyGorm("profile update", tc.err)
			if got := errors.Is(err, ErrConflict); got != tc.wantConflict {
				t.Fatalf("conflict = %v, want %v (%v)", got, tc.wantConflict, err)
			}
			if !tc.wantConflict && !errors.Is(err, ErrUnavailable) {
				t.Fatalf("expected ErrUnavailable, got %v", err)
			}
		})
	}

	if err := classifyGorm("profile update", context.Canceled); err != context.Canceled {
		t.Fatalf("context error rewrapped: %v", err)
	}
}
