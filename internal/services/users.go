package services

import (
	"context"
	"errors"
	"fmt"
	"ideaboard/internal/models"
	"ideaboard/internal/types"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserService struct {
	db          *gorm.DB
	adminLogins map[string]bool
}

// NewUserService builds the directory. Accounts whose login is in adminLogins
// are granted admin when they sign in.
func NewUserService(conn *gorm.DB, adminLogins ...string) *UserService {
	admins := make(map[string]bool, len(adminLogins))
	for _, login := range adminLogins {
		admins[login] = true
	}
	return &UserService{db: conn, adminLogins: admins}
}

// GetUser returns a NotFound error when id does not reference a user
func (s *UserService) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.NotFound("User not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load user %d: %w", id, err)
	}
	return &user, nil
}

// FindOrCreateByExternalID 根据 OAuth 提供方的用户 ID 查找或注册用户
func (s *UserService) FindOrCreateByExternalID(ctx context.Context, externalID int64, username string) (*models.User, error) {
	if externalID == 0 || username == "" {
		return nil, types.Validation("OAuth profile is incomplete")
	}

	conn := s.db.WithContext(ctx)
	candidate := models.User{ExternalID: externalID, Username: username}
	if err := conn.Clauses(clause.OnConflict{DoNothing: true}).Create(&candidate).Error; err != nil {
		return nil, fmt.Errorf("insert user %d: %w", externalID, err)
	}

	var user models.User
	err := conn.Where("external_id = ?", externalID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// the insert was skipped because another account already owns the login
		return nil, types.Conflict("Username already taken")
	}
	if err != nil {
		return nil, fmt.Errorf("load user %d: %w", externalID, err)
	}

	if user.Username != username {
		if err := conn.Model(&user).Update("username", username).Error; err != nil {
			return nil, fmt.Errorf("rename user %d: %w", externalID, err)
		}
		user.Username = username
	}

	if s.adminLogins[user.Username] && !user.IsAdmin {
		if err := conn.Model(&user).Update("is_admin", true).Error; err != nil {
			return nil, fmt.Errorf("promote user %d: %w", externalID, err)
		}
		user.IsAdmin = true
	}

	return &user, nil
}
