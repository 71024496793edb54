package models

import (
	"time"
)

type User struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	ExternalID        int64      `gorm:"uniqueIndex;not null" json:"intra_id"` // 42 intranet user id
	Username          string     `gorm:"uniqueIndex;size:50;not null" json:"login"`
	LastPostTimestamp *time.Time `json:"-"` // 发帖频率限制锚点
	IsAdmin           bool       `gorm:"default:false;not null" json:"is_admin"`
	CreatedAt         time.Time  `json:"created_at"`
}
