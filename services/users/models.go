package users

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID              string     `json:"id" gorm:"primaryKey;size:36"`
	Email           string     `json:"email" gorm:"size:255;uniqueIndex;not null"`
	Name            string     `json:"name" gorm:"size:255"`
	EmailVerifiedAt *time.Time `json:"email_verified_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

func (u *User) EmailVerified() bool {
	return u.EmailVerifiedAt != nil
}
