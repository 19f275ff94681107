package services

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"daily-quest-service/models"
	"daily-quest-service/store"

	"github.com/gosimple/slug"
)

const taskDayLayout = "2006-01-02"

// TaskTemplate describes one task handed out to every user each day.
type TaskTemplate struct {
	Name string
	XP   int64
}

// ParseTaskTemplates parses "name:xp" entries, e.g. "Ler 20 páginas:30".
func ParseTaskTemplates(entries []string) ([]TaskTemplate, error) {
	var out []TaskTemplate
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		idx := strings.LastIndex(entry, ":")
		if idx <= 0 {
			return nil, fmt.Errorf("daily task %q: expected name:xp", entry)
		}
		name := strings.TrimSpace(entry[:idx])
		xp, err := strconv.ParseInt(strings.TrimSpace(entry[idx+1:]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("daily task %q: invalid xp: %w", entry, err)
		}
		if name == "" || xp <= 0 || xp > MaxXPAward {
			return nil, fmt.Errorf("daily task %q: name is required and xp must be between 1 and %d", entry, MaxXPAward)
		}
		out = append(out, TaskTemplate{Name: name, XP: xp})
	}
	return out, nil
}

// DailyTaskSeeder hands out the configured templates to users once per day.
// Task ids embed the day, so seeding the same day twice is a no-op.
type DailyTaskSeeder struct {
	Store     store.Store
	Templates []TaskTemplate
	Now       func() time.Time
}

func NewDailyTaskSeeder(s store.Store, templates []TaskTemplate) *DailyTaskSeeder {
	return &DailyTaskSeeder{Store: s, Templates: templates, Now: time.Now}
}

// DailyTaskID is the id a template gets on a given day.
func DailyTaskID(day time.Time, name string) string {
	return day.Format(taskDayLayout) + "-" + slug.Make(name)
}

func (s *DailyTaskSeeder) today() time.Time {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	return now()
}

// SeedUser gives userID today's tasks and drops seeded tasks from earlier
// days. It returns how many tasks were created.
func (s *DailyTaskSeeder) SeedUser(ctx context.Context, userID string) (int, error) {
	today := s.today()

	existing, err := s.Store.ListTasks(ctx, userID)
	if err != nil {
		return 0, storeError(err)
	}
	for _, t := range existing {
		if seededBefore(t.ID, today) {
			if err := s.Store.DeleteTask(ctx, userID, t.ID); err != nil {
				return 0, storeError(err)
			}
		}
	}

	created := 0
	for _, tmpl := range s.Templates {
		ok, err := s.Store.PutTask(ctx, models.DailyTask{
			ID:     DailyTaskID(today, tmpl.Name),
			UserID: userID,
			Name:   tmpl.Name,
			XP:     tmpl.XP,
		})
		if err != nil {
			return created, storeError(err)
		}
		if ok {
			created++
		}
	}
	return created, nil
}

// SeedAll runs SeedUser for every stored profile.
func (s *DailyTaskSeeder) SeedAll(ctx context.Context) (int, error) {
	profiles, err := s.Store.ListProfiles(ctx)
	if err != nil {
		return 0, storeError(err)
	}
	total := 0
	for _, p := range profiles {
		n, err := s.SeedUser(ctx, p.UserID)
		total += n
		if err != nil {
			return total, fmt.Errorf("seed tasks for %s: %w", p.UserID, err)
		}
	}
	log.Printf("🗓️ [SEED] Seeded %d daily task(s) across %d profile(s)", total, len(profiles))
	return total, nil
}

// seededBefore reports whether id carries a day prefix older than today.
// Tasks created by other means keep their ids and are left alone.
func seededBefore(id string, today time.Time) bool {
	if len(id) <= len(taskDayLayout) || id[len(taskDayLayout)] != '-' {
		return false
	}
	day, err := time.ParseInLocation(taskDayLayout, id[:len(taskDayLayout)], today.Location())
	if err != nil {
		return false
	}
	y, m, d := today.Date()
	return day.Before(time.Date(y, m, d, 0, 0, 0, 0, today.Location()))
}
