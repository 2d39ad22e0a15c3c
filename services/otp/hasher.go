package otp

import (
	"errors"
	"fmt"

	"github.com/alexedwards/argon2id"
	"github.com/tech-arch1tect/authstarter/config"
	"golang.org/x/crypto/bcrypt"
)

// Hasher produces salted one-way hashes of codes.
type Hasher interface {
	Hash(code string) (string, error)
	Compare(hash, code string) (bool, error)
}

type BcryptHasher struct {
	cost int
}

func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

func (h *BcryptHasher) Hash(code string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(code), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash code: %w", err)
	}
	return string(hashed), nil
}

func (h *BcryptHasher) Compare(hash, code string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(code))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, fmt.Errorf("failed to compare code: %w", err)
}

type Argon2idHasher struct {
	params *argon2id.Params
}

func NewArgon2idHasher(memory, iterations uint32, parallelism uint8) *Argon2idHasher {
	params := *argon2id.DefaultParams
	if memory > 0 {
		params.Memory = memory
	}
	if iterations > 0 {
		params.Iterations = iterations
	}
	if parallelism > 0 {
		params.Parallelism = parallelism
	}
	return &Argon2idHasher{params: &params}
}

func (h *Argon2idHasher) Hash(code string) (string, error) {
	hashed, err := argon2id.CreateHash(code, h.params)
	if err != nil {
		return "", fmt.Errorf("failed to hash code: %w", err)
	}
	return hashed, nil
}

func (h *Argon2idHasher) Compare(hash, code string) (bool, error) {
	match, err := argon2id.ComparePasswordAndHash(code, hash)
	if err != nil {
		return false, fmt.Errorf("failed to compare code: %w", err)
	}
	return match, nil
}

func NewHasher(cfg config.OTPConfig) (Hasher, error) {
	switch cfg.Hasher {
	case config.OTPHasherBcrypt, "":
		return NewBcryptHasher(cfg.BcryptCost), nil
	case config.OTPHasherArgon2id:
		return NewArgon2idHasher(cfg.Argon2Memory, cfg.Argon2Iterations, cfg.Argon2Parallelism), nil
	default:
		return nil, fmt.Errorf("unsupported OTP hasher: %s", cfg.Hasher)
	}
}
