package services

import (
	"context"
	"errors"
	"fmt"
	"ideaboard/internal/models"
	"ideaboard/internal/types"
	"strings"

	"gorm.io/gorm"
)

// LockResult is the state of an idea right after a successful lock
type LockResult struct {
	ID         uint `json:"id"`
	IsLocked   bool `json:"is_locked"`
	LockedByID uint `json:"locked_by_id"`
}

// IdeaService owns the ideas board. The lock is claimed by one conditional
// UPDATE so the database decides the winner between concurrent lockers.
type IdeaService struct {
	db    *gorm.DB
	users *UserService
}

func NewIdeaService(conn *gorm.DB, users *UserService) *IdeaService {
	return &IdeaService{db: conn, users: users}
}

// CreateIdea persists a new unlocked idea
func (s *IdeaService) CreateIdea(ctx context.Context, content string, authorID uint) (*models.Idea, error) {
	if strings.TrimSpace(content) == "" {
		return nil, types.Validation("Content required")
	}
	if authorID == 0 {
		return nil, types.Validation("userId required")
	}
	if _, err := s.users.GetUser(ctx, authorID); err != nil {
		return nil, err
	}

	idea := models.Idea{UserID: authorID, Content: content}
	if err := s.db.WithContext(ctx).Create(&idea).Error; err != nil {
		return nil, fmt.Errorf("create idea: %w", err)
	}
	return &idea, nil
}

// ListIdeas returns every idea ordered by id
func (s *IdeaService) ListIdeas(ctx context.Context) ([]models.Idea, error) {
	ideas := []models.Idea{}
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&ideas).Error; err != nil {
		return nil, fmt.Errorf("list ideas: %w", err)
	}
	return ideas, nil
}

// LockIdea claims the idea for userID. A second attempt fails with a conflict,
// including one made by the current holder.
func (s *IdeaService) LockIdea(ctx context.Context, ideaID, userID uint) (*LockResult, error) {
	if userID == 0 {
		return nil, types.Validation("userId required")
	}
	if _, err := s.users.GetUser(ctx, userID); err != nil {
		return nil, err
	}

	conn := s.db.WithContext(ctx)
	res := conn.Model(&models.Idea{}).
		Where("id = ? AND is_locked = ?", ideaID, false).
		Updates(map[string]interface{}{
			"is_locked":    true,
			"locked_by_id": userID,
		})
	if res.Error != nil {
		return nil, fmt.Errorf("lock idea %d: %w", ideaID, res.Error)
	}

	if res.RowsAffected == 0 {
		var idea models.Idea
		err := conn.Where("id = ?", ideaID).First(&idea).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.NotFound("Idea not found")
		}
		if err != nil {
			return nil, fmt.Errorf("load idea %d: %w", ideaID, err)
		}
		return nil, types.Conflict("Idea already locked")
	}

	return &LockResult{ID: ideaID, IsLocked: true, LockedByID: userID}, nil
}
