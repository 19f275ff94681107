package models

import "time"

// DefaultProfileName is given to every profile at creation.
const DefaultProfileName = "Estudante"

// Profile is the per-user progression document.
// XP counts progress inside the current level only.
type Profile struct {
	UserID string `gorm:"primaryKey;type:varchar(128)" json:"user_id"`
	Name   string `gorm:"not null" json:"name"`
	XP     int64  `gorm:"not null;default:0" json:"xp"`
	Level  int    `gorm:"not null;default:1" json:"level"`
	Coins  int64  `gorm:"not null;default:0" json:"coins"`

	// Version increases on every committed write; 0 means "never stored".
	Version int64 `gorm:"not null;default:1" json:"-"`

	Timestamps
}

// NewProfile returns the starting profile for a user.
func NewProfile(userID string) Profile {
	return Profile{
		UserID: userID,
		Name:   DefaultProfileName,
		XP:     0,
		Level:  1,
		Coins:  0,
	}
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
