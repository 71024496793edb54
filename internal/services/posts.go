package services

import (
	"context"
	"errors"
	"fmt"
	"ideaboard/internal/metrics"
	"ideaboard/internal/models"
	"ideaboard/internal/types"
	"ideaboard/internal/utils"
	"math"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SpamThreshold is the largest spam count a post may have and still be listed publicly
const SpamThreshold = 10

// PostRateLimit is the minimum gap between two posts of the same author
const PostRateLimit = 24 * time.Hour

// PostView is a post with its vote aggregates, computed at read time
type PostView struct {
	ID           uint      `json:"id"`
	Content      string    `json:"content"`
	ContentHTML  string    `gorm:"-" json:"contentHtml"`
	Author       *string   `json:"author"`
	LikeCount    int64     `json:"likeCount"`
	DislikeCount int64     `json:"dislikeCount"`
	SpamCount    int64     `json:"spamCount"`
	CreatedAt    time.Time `json:"createdAt"`
}

type VoteResult struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

type AdminStats struct {
	TotalPosts   int64 `json:"totalPosts"`
	TotalUsers   int64 `json:"totalUsers"`
	SpammedPosts int64 `json:"spammedPosts"`
	AdminUsers   int64 `json:"adminUsers"`
}

const (
	likeCountSQL    = "(SELECT COUNT(*) FROM post_likes WHERE post_likes.post_id = posts.id)"
	dislikeCountSQL = "(SELECT COUNT(*) FROM post_dislikes WHERE post_dislikes.post_id = posts.id)"
	spamCountSQL    = "(SELECT COUNT(*) FROM post_spam_reports WHERE post_spam_reports.post_id = posts.id)"
)

// PostService handles the forum: posting with a per-author rate limit,
// like/dislike/spam votes and the aggregate views.
type PostService struct {
	db      *gorm.DB
	metrics metrics.Recorder
	now     func() time.Time
}

func NewPostService(conn *gorm.DB, recorder metrics.Recorder) *PostService {
	if recorder == nil {
		recorder = metrics.Noop{}
	}
	return &PostService{db: conn, metrics: recorder, now: time.Now}
}

// CreatePost checks, in order: author exists, rate limit, content.
// The author row is locked for the duration so two concurrent posts cannot both pass the limit.
func (s *PostService) CreatePost(ctx context.Context, authorID uint, content string) (*models.Post, error) {
	var post models.Post

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var author models.User
		if err := forUpdate(tx).Where("id = ?", authorID).First(&author).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return types.NotFound("User not found")
			}
			return fmt.Errorf("load author %d: %w", authorID, err)
		}

		now := s.now().UTC()
		if author.LastPostTimestamp != nil {
			elapsed := now.Sub(*author.LastPostTimestamp)
			if elapsed < PostRateLimit {
				remaining := int(math.Ceil(PostRateLimit.Hours() - elapsed.Hours()))
				return types.RateLimited(remaining)
			}
		}

		if strings.TrimSpace(content) == "" {
			return types.Validation("Content is required")
		}

		post = models.Post{Content: content, AuthorID: author.ID, CreatedAt: now}
		if err := tx.Create(&post).Error; err != nil {
			return fmt.Errorf("create post: %w", err)
		}

		if err := tx.Model(&models.User{}).
			Where("id = ?", author.ID).
			UpdateColumn("last_post_timestamp", now).
			Error; err != nil {
			return fmt.Errorf("update last post time: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.PostCreated()
	return &post, nil
}

// ListPosts returns the public feed, newest first, hiding posts buried by spam reports
func (s *PostService) ListPosts(ctx context.Context) ([]PostView, error) {
	return s.listPosts(ctx, true)
}

// AdminPosts is ListPosts without the spam filter
func (s *PostService) AdminPosts(ctx context.Context) ([]PostView, error) {
	return s.listPosts(ctx, false)
}

func (s *PostService) listPosts(ctx context.Context, hideSpam bool) ([]PostView, error) {
	q := s.db.WithContext(ctx).
		Table("posts").
		Select(strings.Join([]string{
			"posts.id",
			"posts.content",
			"users.username AS author",
			"posts.created_at",
			likeCountSQL + " AS like_count",
			dislikeCountSQL + " AS dislike_count",
			spamCountSQL + " AS spam_count",
		}, ", ")).
		Joins("LEFT JOIN users ON users.id = posts.author_id")

	if hideSpam {
		q = q.Where(spamCountSQL+" <= ?", SpamThreshold)
	}

	views := []PostView{}
	if err := q.Order("posts.created_at DESC, posts.id DESC").Scan(&views).Error; err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}

	for i := range views {
		views[i].ContentHTML = utils.RenderContent(views[i].Content)
	}
	return views, nil
}

// Vote records a reaction. Like and dislike replace each other, spam reports
// accumulate at most once per user. Each branch is a single transaction.
func (s *PostService) Vote(ctx context.Context, postID, userID uint, voteType string) (*VoteResult, error) {
	vt, ok := models.ParseVoteType(voteType)
	if !ok {
		return nil, types.Validation("Invalid voteType. Must be: like, dislike, or spam")
	}

	conn := s.db.WithContext(ctx)

	var post models.Post
	if err := conn.Select("id").Where("id = ?", postID).First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.NotFound("Post not found")
		}
		return nil, fmt.Errorf("load post %d: %w", postID, err)
	}

	err := conn.Transaction(func(tx *gorm.DB) error {
		// serialises concurrent votes of the same user
		var voter models.User
		if err := forUpdate(tx).Select("id").Where("id = ?", userID).Find(&voter).Error; err != nil {
			return err
		}

		insertOnce := tx.Clauses(clause.OnConflict{DoNothing: true})

		switch vt {
		case models.VoteLike:
			if err := tx.Where("post_id = ? AND user_id = ?", postID, userID).Delete(&models.PostDislike{}).Error; err != nil {
				return err
			}
			return insertOnce.Create(&models.PostLike{PostID: postID, UserID: userID}).Error
		case models.VoteDislike:
			if err := tx.Where("post_id = ? AND user_id = ?", postID, userID).Delete(&models.PostLike{}).Error; err != nil {
				return err
			}
			return insertOnce.Create(&models.PostDislike{PostID: postID, UserID: userID}).Error
		default:
			return insertOnce.Create(&models.PostSpamReport{PostID: postID, UserID: userID}).Error
		}
	})
	if err != nil {
		return nil, fmt.Errorf("record %s vote on post %d: %w", vt, postID, err)
	}

	s.metrics.VoteCast(string(vt))
	return &VoteResult{OK: true, Message: fmt.Sprintf("Vote '%s' recorded successfully", vt)}, nil
}

// forUpdate adds SELECT ... FOR UPDATE where the dialect has row locks
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// AdminStats returns global counters for the admin dashboard
func (s *PostService) AdminStats(ctx context.Context) (*AdminStats, error) {
	conn := s.db.WithContext(ctx)
	var stats AdminStats

	if err := conn.Model(&models.Post{}).Count(&stats.TotalPosts).Error; err != nil {
		return nil, fmt.Errorf("count posts: %w", err)
	}
	if err := conn.Model(&models.User{}).Count(&stats.TotalUsers).Error; err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	if err := conn.Model(&models.Post{}).Where(spamCountSQL+" > ?", SpamThreshold).Count(&stats.SpammedPosts).Error; err != nil {
		return nil, fmt.Errorf("count spammed posts: %w", err)
	}
	if err := conn.Model(&models.User{}).Where("is_admin = ?", true).Count(&stats.AdminUsers).Error; err != nil {
		return nil, fmt.Errorf("count admins: %w", err)
	}

	return &stats, nil
}
