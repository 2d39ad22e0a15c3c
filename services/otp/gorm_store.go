package otp

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// replaceRetries bounds how often Replace retries after losing an insert race
// on the active key to a concurrent Replace for the same pair.
const replaceRetries = 5

func (s *GormStore) Replace(ctx context.Context, rec *Record) (int64, error) {
	var err error
	for attempt := 0; attempt < replaceRetries; attempt++ {
		var replaced int64
		replaced, err = s.replaceOnce(ctx, rec)
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return replaced, err
		}
	}
	return 0, err
}

func (s *GormStore) replaceOnce(ctx context.Context, rec *Record) (int64, error) {
	var replaced int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("email = ? AND purpose = ? AND used = ?", rec.Email, rec.Purpose, false).
			Delete(&Record{})
		if result.Error != nil {
			return result.Error
		}
		replaced = result.RowsAffected

		return tx.Create(rec).Error
	})
	if err != nil {
		return 0, err
	}
	return replaced, nil
}

func (s *GormStore) FindActive(ctx context.Context, email string, purpose Purpose) (*Record, error) {
	var rec Record
	err := s.db.WithContext(ctx).
		Where("email = ? AND purpose = ? AND used = ?", email, purpose, false).
		Order("created_at DESC").
		First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &rec, nil
}

func (s *GormStore) Consume(ctx context.Context, id string, now time.Time) (bool, error) {
	result := s.db.WithContext(ctx).Model(&Record{}).
		Where("id = ? AND used = ?", id, false).
		Updates(map[string]any{
			"used":       true,
			"used_at":    now,
			"active_key": nil,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (s *GormStore) IncrementAttempts(ctx context.Context, id string) (int, error) {
	var attempts int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&Record{}).Where("id = ?", id).
			UpdateColumn("attempts", gorm.Expr("attempts + ?", 1))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrRecordNotFound
		}
		var counts []int
		if err := tx.Model(&Record{}).Where("id = ?", id).Pluck("attempts", &counts).Error; err != nil {
			return err
		}
		if len(counts) == 0 {
			return ErrRecordNotFound
		}
		attempts = counts[0]
		return nil
	})
	return attempts, err
}

func (s *GormStore) Delete(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Where("id = ?", id).Delete(&Record{}).Error
}

func (s *GormStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result := s.db.WithContext(ctx).Where("expires_at < ?", now).Delete(&Record{})
	return result.RowsAffected, result.Error
}
