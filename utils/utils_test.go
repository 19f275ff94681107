package utils

import (
	"context"
	"testing"
	"time"
)

func TestFormatHeaderDate(t *testing.T) {
	tests := []struct {
		day  time.Time
		want string
	}{
		{time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC), "sábado, 17 de outubro"},
		{time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), "segunda-feira, 02 de março"},
		{time.Date(2026, 11, 1, 23, 59, 0, 0, time.UTC), "domingo, 01 de novembro"},
		{time.Date(2026, 10, 5, 8, 0, 0, 0, time.UTC), "segunda-feira, 05 de outubro"},
	}
	for _, tc := range tests {
		if got := FormatHeaderDate(tc.day); got != tc.want {
			t.Fatalf("FormatHeaderDate(%s)=%q, want %q", tc.day, got, tc.want)
		}
	}
}

func TestTaskLabel(t *testing.T) {
	if got := TaskLabel(30); got != "Concluir (+30 XP)" {
		t.Fatalf("unexpected label %q", got)
	}
	if got := TaskLabel(1500); got != "Concluir (+1.500 XP)" {
		t.Fatalf("unexpected grouped label %q", got)
	}
}

func TestSortKey(t *testing.T) {
	if got := SortKey("Águas Exercício"); got != "aguas exercicio" {
		t.Fatalf("unexpected key %q", got)
	}
	if !(SortKey("Águas") < SortKey("Beber")) {
		t.Fatal("accented name should sort with its base letter")
	}
}

func TestR2ClientObjectURL(t *testing.T) {
	c, err := NewR2Client(context.Background(), R2Config{
		AccountID:       "acct",
		AccessKeyID:     "key",
		AccessKeySecret: "secret",
		Bucket:          "backups",
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if got := c.ObjectURL("/backups/a.json"); got != "https://acct.r2.cloudflarestorage.com/backups/backups/a.json" {
		t.Fatalf("unexpected url %q", got)
	}

	c, err = NewR2Client(context.Background(), R2Config{AccountID: "acct", Bucket: "b", CDNBaseURL: "https://cdn.example.com/"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if got := c.ObjectURL("x.json"); got != "https://cdn.example.com/x.json" {
		t.Fatalf("unexpected cdn url %q", got)
	}

	if _, err := NewR2Client(context.Background(), R2Config{}); err == nil {
		t.Fatal("expected error without account and bucket")
	}
}
