package otp

import (
	"errors"
	"fmt"
)

var (
	ErrRecordNotFound  = errors.New("otp record not found")
	ErrCodeNotFound    = errors.New("no active verification code for this email")
	ErrCodeExpired     = errors.New("verification code has expired")
	ErrCodeMismatch    = errors.New("verification code does not match")
	ErrTooManyAttempts = errors.New("too many failed verification attempts")
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

type MismatchError struct {
	Attempts    int
	MaxAttempts int
}

func (e *MismatchError) Error() string {
	if e.MaxAttempts > 0 {
		return fmt.Sprintf("%s (attempt %d of %d)", ErrCodeMismatch, e.Attempts, e.MaxAttempts)
	}
	return fmt.Sprintf("%s (attempt %d)", ErrCodeMismatch, e.Attempts)
}

func (e *MismatchError) Unwrap() error {
	return ErrCodeMismatch
}

// StorageError wraps a failure of the record store. It is surfaced to the
// caller as-is and never retried.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("otp store %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}
