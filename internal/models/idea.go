package models

import (
	"time"
)

// Idea is an anonymous suggestion that exactly one user may lock.
// IsLocked is true iff LockedByID is set, and never goes back to false.
type Idea struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"not null;index" json:"user_id"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	IsLocked   bool      `gorm:"default:false;not null" json:"is_locked"`
	LockedByID *uint     `gorm:"index" json:"locked_by_id"`
	CreatedAt  time.Time `json:"created_at"`
}
