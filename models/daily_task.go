package models

// DailyTask is a single-use reward coupon owned by one user.
type DailyTask struct {
	ID     string `gorm:"primaryKey;type:varchar(160)" json:"id"`
	UserID string `gorm:"primaryKey;type:varchar(128);index" json:"user_id"`
	Name   string `gorm:"not null" json:"name"`
	XP     int64  `gorm:"not null" json:"xp"`

	Timestamps
}
