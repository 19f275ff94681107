package services

import (
	"context"
	"errors"
	"log"

	"daily-quest-service/models"
	"daily-quest-service/store"
)

type ProfileService struct {
	Store  store.Store
	Seeder *DailyTaskSeeder
}

func NewProfileService(s store.Store, seeder *DailyTaskSeeder) *ProfileService {
	return &ProfileService{Store: s, Seeder: seeder}
}

// ProfileView is the profile as the widget shows it.
type ProfileView struct {
	Name     string  `json:"name"`
	XP       int64   `json:"xp"`
	Level    int     `json:"level"`
	Coins    int64   `json:"coins"`
	XPNeeded int64   `json:"xp_needed"`
	Progress float64 `json:"progress"`
}

func NewProfileView(p models.Profile) ProfileView {
	return ProfileView{
		Name:     p.Name,
		XP:       p.XP,
		Level:    p.Level,
		Coins:    p.Coins,
		XPNeeded: XPNeededForLevel(p.Level),
		Progress: ProgressPercent(p.XP, p.Level),
	}
}

// EnsureProfile returns the user's profile, creating the default one (and
// handing out today's tasks) the first time the user shows up. Existing
// counters are never reset.
func (s *ProfileService) EnsureProfile(ctx context.Context, sess Session) (*models.Profile, error) {
	p, err := s.Store.GetProfile(ctx, sess.UserID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, storeError(err)
	}

	if err := s.Store.SetProfile(ctx, models.NewProfile(sess.UserID), true); err != nil {
		return nil, storeError(err)
	}
	log.Printf("🆕 [PROFILE] Created profile for %s", sess.UserID)

	if s.Seeder != nil {
		if n, err := s.Seeder.SeedUser(ctx, sess.UserID); err != nil {
			log.Printf("⚠️ [PROFILE] Could not seed daily tasks for %s: %v", sess.UserID, err)
		} else if n > 0 {
			log.Printf("🗓️ [PROFILE] Seeded %d daily task(s) for %s", n, sess.UserID)
		}
	}

	p, err = s.Store.GetProfile(ctx, sess.UserID)
	if err != nil {
		return nil, storeError(err)
	}
	return p, nil
}

// GetProfile returns the user's profile without creating it.
func (s *ProfileService) GetProfile(ctx context.Context, sess Session) (*models.Profile, error) {
	p, err := s.Store.GetProfile(ctx, sess.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, storeError(err)
	}
	return p, nil
}

// Watch streams the user's profile snapshots until ctx is done.
func (s *ProfileService) Watch(ctx context.Context, sess Session) (<-chan models.Profile, error) {
	ch, err := s.Store.Subscribe(ctx, sess.UserID)
	if err != nil {
		return nil, storeError(err)
	}
	return ch, nil
}
