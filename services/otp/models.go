package otp

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Purpose string

const (
	PurposeSignUp            Purpose = "sign-up"
	PurposeSignIn            Purpose = "sign-in"
	PurposeEmailVerification Purpose = "email-verification"
)

// ParsePurpose maps a wire value onto a Purpose. An empty value means sign-up.
func ParsePurpose(s string) (Purpose, error) {
	switch p := Purpose(strings.TrimSpace(s)); p {
	case "":
		return PurposeSignUp, nil
	case PurposeSignUp, PurposeSignIn, PurposeEmailVerification:
		return p, nil
	default:
		return "", &ValidationError{Field: "purpose", Message: "purpose must be one of sign-up, sign-in, email-verification"}
	}
}

func (p Purpose) Valid() bool {
	_, err := ParsePurpose(string(p))
	return err == nil && p != ""
}

// NormalizeEmail is the single place emails are canonicalised before storage or lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Record is one issued passcode. CodeHash never holds the plaintext code.
type Record struct {
	ID        string     `json:"id" gorm:"primaryKey;size:36"`
	Email     string     `json:"email" gorm:"size:255;not null;index:idx_otp_email_purpose"`
	CodeHash  string     `json:"-" gorm:"size:255;not null"`
	Purpose   Purpose    `json:"purpose" gorm:"size:32;not null;index:idx_otp_email_purpose"`
	ExpiresAt time.Time  `json:"expires_at" gorm:"not null;index"`
	Used      bool       `json:"used" gorm:"not null;default:false"`
	// ActiveKey is set while the record is unconsumed and cleared on
	// consume; its unique index allows one unconsumed record per pair.
	ActiveKey *string    `json:"-" gorm:"size:300;uniqueIndex:idx_otp_active"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
	Attempts  int        `json:"attempts" gorm:"not null;default:0"`
	IPAddress string     `json:"ip_address,omitempty" gorm:"size:64"`
	UserAgent string     `json:"user_agent,omitempty" gorm:"size:255"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (Record) TableName() string {
	return "otp"
}

func (r *Record) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Used {
		r.ActiveKey = nil
	} else {
		key := activeKey(r.Email, r.Purpose)
		r.ActiveKey = &key
	}
	return nil
}

func activeKey(email string, purpose Purpose) string {
	return string(purpose) + ":" + email
}

// Expired reports whether the record is past its expiry. A record is still
// valid at the exact expiry instant.
func (r *Record) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}
