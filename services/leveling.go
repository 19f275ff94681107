package services

import (
	"context"
	"errors"
	"log"
	"math"

	"daily-quest-service/models"
	"daily-quest-service/store"
)

// BaseXPPerLevel scales the level threshold: level L needs BaseXPPerLevel*L xp.
// Stored xp/level pairs depend on this value, so it must not change.
const BaseXPPerLevel = 100

// XPPerCoin is how much xp earns one coin, floored per award.
const XPPerCoin = 10

// MaxXPAward caps a single award. It keeps the level-up loop short and the
// counters far from int64 overflow.
const MaxXPAward = 1_000_000

// XPNeededForLevel returns the xp required to leave level.
func XPNeededForLevel(level int) int64 {
	return int64(BaseXPPerLevel) * int64(level)
}

// ProgressPercent is how far xp is through the current level, capped at 100.
func ProgressPercent(xp int64, level int) float64 {
	needed := XPNeededForLevel(level)
	if needed <= 0 || xp <= 0 {
		return 0
	}
	pct := float64(xp) / float64(needed) * 100
	if pct > 100 {
		return 100
	}
	return pct
}

// XPGain is the outcome of applying an award to a profile snapshot.
type XPGain struct {
	Profile      models.Profile
	LevelBefore  int
	LevelsGained int
	CoinsGained  int64
}

// ApplyXP adds amount to the profile and carries any overflow into as many
// level-ups as it pays for. The returned profile always satisfies
// 0 <= XP < XPNeededForLevel(Level).
func ApplyXP(p models.Profile, amount int64) XPGain {
	if amount < 0 {
		amount = 0
	}
	if p.Level < 1 {
		p.Level = 1
	}
	if p.XP < 0 {
		p.XP = 0
	}
	gain := XPGain{LevelBefore: p.Level, CoinsGained: amount / XPPerCoin}

	p.XP += amount
	p.Coins += gain.CoinsGained

	needed := XPNeededForLevel(p.Level)
	for p.XP >= needed {
		p.XP -= needed
		p.Level++
		needed = XPNeededForLevel(p.Level)
	}

	gain.LevelsGained = p.Level - gain.LevelBefore
	gain.Profile = p
	return gain
}

// XPGainResult is what callers get back after an award commits.
type XPGainResult struct {
	Profile     models.Profile `json:"profile"`
	XPAwarded   int64          `json:"xp_awarded"`
	CoinsGained int64          `json:"coins_gained"`
	LevelBefore int            `json:"level_before"`
	LevelAfter  int            `json:"level_after"`
	LevelUp     bool           `json:"level_up"`
}

func newXPGainResult(gain XPGain, amount int64) *XPGainResult {
	return &XPGainResult{
		Profile:     gain.Profile,
		XPAwarded:   amount,
		CoinsGained: gain.CoinsGained,
		LevelBefore: gain.LevelBefore,
		LevelAfter:  gain.Profile.Level,
		LevelUp:     gain.LevelsGained > 0,
	}
}

type LevelingService struct {
	Store store.Store
}

func NewLevelingService(s store.Store) *LevelingService {
	return &LevelingService{Store: s}
}

// ApplyXPGain atomically awards amount xp to the session's profile.
// A missing profile aborts the transaction without writing and returns
// ErrProfileNotFound.
func (s *LevelingService) ApplyXPGain(ctx context.Context, sess Session, amount int64, reason string) (*XPGainResult, error) {
	if amount < 0 || amount > MaxXPAward {
		return nil, ErrInvalidAmount
	}

	var result *XPGainResult
	err := s.Store.RunTransaction(ctx, func(tx store.Tx) error {
		result = nil
		gain, err := awardInTx(tx, sess.UserID, amount)
		if err != nil {
			return err
		}
		result = newXPGainResult(gain, amount)
		return nil
	})
	if err != nil {
		return nil, storeError(err)
	}

	log.Printf("🎮 [XP] Awarded: %s → XP=%d, Lvl=%d, Coins=%d (+%d xp, reason: %s)",
		sess.UserID, result.Profile.XP, result.Profile.Level, result.Profile.Coins, amount, reason)
	if result.LevelUp {
		log.Printf("⬆️ [XP] Level up: %s %d → %d", sess.UserID, result.LevelBefore, result.LevelAfter)
	}
	return result, nil
}

// awardInTx is the read-compute-write step shared by direct awards and task
// completion.
func awardInTx(tx store.Tx, userID string, amount int64) (XPGain, error) {
	p, err := tx.GetProfile(userID)
	if errors.Is(err, store.ErrNotFound) {
		return XPGain{}, ErrProfileNotFound
	}
	if err != nil {
		return XPGain{}, err
	}
	if amount < 0 || amount > MaxXPAward ||
		p.XP > math.MaxInt64-amount || p.Coins > math.MaxInt64-amount/XPPerCoin {
		return XPGain{}, ErrInvalidAmount
	}
	gain := ApplyXP(*p, amount)
	if err := tx.UpdateProfile(gain.Profile); err != nil {
		return XPGain{}, err
	}
	return gain, nil
}
