package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tech-arch1tect/authstarter/services/logging"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email is already registered")
)

var Module = fx.Options(
	fx.Provide(NewService),
)

type Service struct {
	db     *gorm.DB
	logger *logging.Service
}

func NewService(db *gorm.DB, logger *logging.Service) *Service {
	return &Service{db: db, logger: logger}
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) FindByEmail(ctx context.Context, email string) (*User, error) {
	var user User
	err := s.db.WithContext(ctx).Where("email = ?", normalize(email)).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	return &user, nil
}

func (s *Service) Create(ctx context.Context, email, name string) (*User, error) {
	user := &User{Email: normalize(email), Name: strings.TrimSpace(name)}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&User{}).Where("email = ?", user.Email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrEmailTaken
		}
		return tx.Create(user).Error
	})
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// MarkEmailVerified stamps email_verified_at once. It reports whether a user
// row exists for the email; a missing user is not an error.
func (s *Service) MarkEmailVerified(ctx context.Context, email string) (bool, error) {
	now := time.Now().UTC()
	result := s.db.WithContext(ctx).Model(&User{}).
		Where("email = ? AND email_verified_at IS NULL", normalize(email)).
		Update("email_verified_at", now)
	if result.Error != nil {
		return false, fmt.Errorf("failed to mark email verified: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		s.logger.Info("email verified", zap.String("email", normalize(email)))
		return true, nil
	}

	_, err := s.FindByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
