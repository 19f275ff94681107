package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"daily-quest-service/models"
	"daily-quest-service/store"
)

func TestParseTaskTemplates(t *testing.T) {
	got, err := ParseTaskTemplates([]string{"Ler 20 páginas:30", " Exercício físico : 50 ", "", "Hora: estudo:20"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := []TaskTemplate{{"Ler 20 páginas", 30}, {"Exercício físico", 50}, {"Hora: estudo", 20}}
	if len(got) != len(want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("template %d = %+v, want %+v", i, got[i], want[i])
		}
	}

	for _, bad := range []string{"no xp", ":30", "Ler:abc", "Ler:0", "Ler:-5", "Ler:1000001"} {
		if _, err := ParseTaskTemplates([]string{bad}); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestDailyTaskID(t *testing.T) {
	day := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	if got := DailyTaskID(day, "Exercício físico"); got != "2026-10-17-exercicio-fisico" {
		t.Fatalf("unexpected id %q", got)
	}
}

func newSeederFixture(t *testing.T, now time.Time) (store.Store, *DailyTaskSeeder) {
	t.Helper()
	s := store.NewMemoryStore(store.DefaultMaxAttempts)
	seeder := NewDailyTaskSeeder(s, []TaskTemplate{{"Ler 20 páginas", 30}, {"Exercício físico", 50}})
	seeder.Now = func() time.Time { return now }
	return s, seeder
}

func TestSeedUserIsIdempotent(t *testing.T) {
	day := time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC)
	s, seeder := newSeederFixture(t, day)

	n, err := seeder.SeedUser(context.Background(), "u1")
	if err != nil || n != 2 {
		t.Fatalf("first seed: n=%d err=%v", n, err)
	}
	n, err = seeder.SeedUser(context.Background(), "u1")
	if err != nil || n != 0 {
		t.Fatalf("second seed: n=%d err=%v", n, err)
	}

	tasks, _ := s.ListTasks(context.Background(), "u1")
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %+v", tasks)
	}
	for _, task := range tasks {
		if !strings.HasPrefix(task.ID, "2026-10-17-") {
			t.Fatalf("unexpected task id %q", task.ID)
		}
	}
}

func TestSeedUserPrunesEarlierDays(t *testing.T) {
	day := time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC)
	s, seeder := newSeederFixture(t, day)
	ctx := context.Background()

	for _, task := range []models.DailyTask{
		{ID: "2026-10-16-ler-20-paginas", UserID: "u1", Name: "Ler 20 páginas", XP: 30},
		{ID: "custom-task", UserID: "u1", Name: "Custom", XP: 10},
	} {
		if _, err := s.PutTask(ctx, task); err != nil {
			t.Fatalf("put task: %v", err)
		}
	}

	if _, err := seeder.SeedUser(ctx, "u1"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	tasks, _ := s.ListTasks(ctx, "u1")
	ids := map[string]bool{}
	for _, task := range tasks {
		ids[task.ID] = true
	}
	if ids["2026-10-16-ler-20-paginas"] {
		t.Fatalf("yesterday's task was kept: %+v", tasks)
	}
	if !ids["custom-task"] || !ids["2026-10-17-ler-20-paginas"] || !ids["2026-10-17-exercicio-fisico"] {
		t.Fatalf("unexpected tasks %+v", tasks)
	}
}

func TestSeedAll(t *testing.T) {
	s, seeder := newSeederFixture(t, time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC))
	seedProfile(t, s, models.NewProfile("u1"))
	seedProfile(t, s, models.NewProfile("u2"))

	n, err := seeder.SeedAll(context.Background())
	if err != nil || n != 4 {
		t.Fatalf("seed all: n=%d err=%v", n, err)
	}
	for _, user := range []string{"u1", "u2"} {
		tasks, _ := s.ListTasks(context.Background(), user)
		if len(tasks) != 2 {
			t.Fatalf("%s: expected 2 tasks, got %+v", user, tasks)
		}
	}
}

func TestSeededBefore(t *testing.T) {
	today := time.Date(2026, 10, 17, 23, 59, 0, 0, time.UTC)
	tests := map[string]bool{
		"2026-10-16-ler": true,
		"2026-10-17-ler": false,
		"2026-10-18-ler": false,
		"2026-10-16":     false,
		"custom":         false,
		"2026-13-01-ler": false,
		"2026-10-16_ler": false,
	}
	for id, want := range tests {
		if got := seededBefore(id, today); got != want {
			t.Fatalf("seededBefore(%q)=%v, want %v", id, got, want)
		}
	}
}
