package models

import (
	"time"
)

// PostLike, PostDislike and PostSpamReport each hold at most one row per (post, user).
// Like and dislike are kept mutually exclusive by the vote service.

type PostLike struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_like_post_user" json:"post_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_like_post_user;index" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

type PostDislike struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_dislike_post_user" json:"post_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_dislike_post_user;index" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

type PostSpamReport struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_spam_post_user" json:"post_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_spam_post_user;index" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

type VoteType string

const (
	VoteLike    VoteType = "like"
	VoteDislike VoteType = "dislike"
	VoteSpam    VoteType = "spam"
)

// ParseVoteType returns false for anything outside like/dislike/spam
func ParseVoteType(s string) (VoteType, bool) {
	switch VoteType(s) {
	case VoteLike, VoteDislike, VoteSpam:
		return VoteType(s), true
	}
	return "", false
}
