package otp

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mileusna/useragent"
	"github.com/tech-arch1tect/authstarter/config"
	"github.com/tech-arch1tect/authstarter/services/logging"
	"github.com/tech-arch1tect/authstarter/services/notifier"
	"go.uber.org/zap"
)

type Reason string

const (
	ReasonNotFound        Reason = "not_found"
	ReasonExpired         Reason = "expired"
	ReasonMismatch        Reason = "mismatch"
	ReasonTooManyAttempts Reason = "too_many_attempts"
)

func (r Reason) Message() string {
	switch r {
	case ReasonNotFound:
		return "No active verification code found. Please request a new one."
	case ReasonExpired:
		return "Verification code has expired. Please request a new one."
	case ReasonMismatch:
		return "Invalid verification code."
	case ReasonTooManyAttempts:
		return "Too many failed attempts. Please request a new code."
	default:
		return ""
	}
}

type IssueRequest struct {
	Email     string
	Purpose   Purpose
	IPAddress string
	UserAgent string
}

type Issued struct {
	RecordID  string
	Email     string
	Purpose   Purpose
	Code      string
	ExpiresAt time.Time
	Replaced  int64
	Delivered bool
}

type Result struct {
	Success  bool
	Reason   Reason
	Attempts int
	RecordID string
	Bypassed bool
}

// Err maps a failed result onto its error value. It returns nil on success.
func (r *Result) Err(maxAttempts int) error {
	if r.Success {
		return nil
	}
	switch r.Reason {
	case ReasonExpired:
		return ErrCodeExpired
	case ReasonMismatch:
		return &MismatchError{Attempts: r.Attempts, MaxAttempts: maxAttempts}
	case ReasonTooManyAttempts:
		return ErrTooManyAttempts
	default:
		return ErrCodeNotFound
	}
}

var validate = validator.New()

type Service struct {
	config   *config.Config
	store    Store
	hasher   Hasher
	notifier notifier.Notifier
	composer *notifier.Composer
	logger   *logging.Service
	now      func() time.Time
	generate func() (string, error)
}

func NewService(cfg *config.Config, store Store, hasher Hasher, logger *logging.Service) *Service {
	return &Service{
		config:   cfg,
		store:    store,
		hasher:   hasher,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
		generate: GenerateCode,
	}
}

func (s *Service) SetNotifier(n notifier.Notifier, composer *notifier.Composer) {
	s.notifier = n
	s.composer = composer
}

func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Service) SetGenerator(generate func() (string, error)) {
	s.generate = generate
}

func (s *Service) MaxAttempts() int {
	return s.config.OTP.MaxAttempts
}

func normalizeAndValidateEmail(email string) (string, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return "", &ValidationError{Field: "email", Message: "email is required"}
	}
	if err := validate.Var(email, "email"); err != nil {
		return "", &ValidationError{Field: "email", Message: "email must be a valid email address"}
	}
	return email, nil
}

// Issue replaces any unconsumed code for (email, purpose) with a fresh one and
// hands it to the notifier. Delivery failures are logged, never returned.
func (s *Service) Issue(ctx context.Context, req IssueRequest) (*Issued, error) {
	email, err := normalizeAndValidateEmail(req.Email)
	if err != nil {
		return nil, err
	}
	purpose, err := ParsePurpose(string(req.Purpose))
	if err != nil {
		return nil, err
	}

	code, err := s.generate()
	if err != nil {
		return nil, err
	}
	hash, err := s.hasher.Hash(code)
	if err != nil {
		return nil, err
	}

	now := s.now()
	rec := &Record{
		Email:     email,
		CodeHash:  hash,
		Purpose:   purpose,
		ExpiresAt: now.Add(s.config.OTP.TTL),
		Used:      false,
		IPAddress: truncate(req.IPAddress, 64),
		UserAgent: truncate(req.UserAgent, 255),
		CreatedAt: now,
		UpdatedAt: now,
	}

	replaced, err := s.store.Replace(ctx, rec)
	if err != nil {
		s.logger.Error("failed to store verification code", zap.Error(err), zap.String("email", email))
		return nil, storageErr("replace", err)
	}

	fields := []zap.Field{
		zap.String("record_id", rec.ID),
		zap.String("email", email),
		zap.String("purpose", string(purpose)),
		zap.Int64("replaced", replaced),
	}
	if client := describeClient(req.UserAgent); client != "" {
		fields = append(fields, zap.String("client", client))
	}
	s.logger.Info("verification code issued", fields...)

	return &Issued{
		RecordID:  rec.ID,
		Email:     email,
		Purpose:   purpose,
		Code:      code,
		ExpiresAt: rec.ExpiresAt,
		Replaced:  replaced,
		Delivered: s.deliver(ctx, email, purpose, code),
	}, nil
}

func (s *Service) deliver(ctx context.Context, email string, purpose Purpose, code string) bool {
	fallback := func(reason string, err error) bool {
		fields := []zap.Field{
			zap.String("reason", reason),
			zap.Error(err),
			zap.String("email", email),
			zap.String("purpose", string(purpose)),
		}
		if s.config.IsProduction() {
			s.logger.Warn("verification code not delivered", fields...)
			return false
		}
		s.logger.Warn("verification code not delivered, logging code for development",
			append(fields, zap.String("code", code))...)
		return false
	}

	if s.notifier == nil || s.composer == nil {
		return fallback("no notifier configured", nil)
	}

	msg, err := s.composer.Compose(email, string(purpose), code)
	if err != nil {
		s.logger.Error("failed to compose verification email", zap.Error(err))
		return fallback("compose failed", err)
	}

	if timeout := s.config.Notifier.Timeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if err := s.notifier.Send(ctx, msg); err != nil {
		s.logger.Error("failed to send verification email",
			zap.Error(err),
			zap.String("notifier", s.notifier.Name()),
			zap.String("email", email))
		return fallback("send failed", err)
	}
	return true
}

// Verify checks code against the active record for (email, purpose). Failed
// verifications come back as a Result with a Reason; only invalid input and
// store failures are returned as errors.
func (s *Service) Verify(ctx context.Context, email string, purpose Purpose, code string) (*Result, error) {
	email, err := normalizeAndValidateEmail(email)
	if err != nil {
		return nil, err
	}
	purpose, err = ParsePurpose(string(purpose))
	if err != nil {
		return nil, err
	}
	if code == "" {
		return nil, &ValidationError{Field: "code", Message: "code is required"}
	}
	if !IsWellFormedCode(code) {
		return nil, &ValidationError{Field: "code", Message: "code must be exactly 6 digits"}
	}

	if s.bypassAllowed(code) {
		s.logger.Warn("verification bypass code accepted",
			zap.String("email", email),
			zap.String("purpose", string(purpose)))
		return &Result{Success: true, Bypassed: true}, nil
	}

	rec, err := s.store.FindActive(ctx, email, purpose)
	if errors.Is(err, ErrRecordNotFound) {
		return &Result{Reason: ReasonNotFound}, nil
	}
	if err != nil {
		return nil, storageErr("find", err)
	}

	now := s.now()
	if rec.Expired(now) {
		if err := s.store.Delete(ctx, rec.ID); err != nil {
			return nil, storageErr("delete", err)
		}
		s.logger.Info("expired verification code removed", zap.String("record_id", rec.ID))
		return &Result{Reason: ReasonExpired, RecordID: rec.ID}, nil
	}

	match, err := s.hasher.Compare(rec.CodeHash, code)
	if err != nil {
		return nil, fmt.Errorf("failed to verify code for record %s: %w", rec.ID, err)
	}

	if !match {
		return s.recordMismatch(ctx, rec)
	}

	consumed, err := s.store.Consume(ctx, rec.ID, now)
	if err != nil {
		return nil, storageErr("consume", err)
	}
	if !consumed {
		// another request consumed or replaced the record first
		return &Result{Reason: ReasonNotFound, RecordID: rec.ID}, nil
	}

	s.logger.Info("verification code accepted",
		zap.String("record_id", rec.ID),
		zap.String("email", email),
		zap.String("purpose", string(purpose)))
	return &Result{Success: true, RecordID: rec.ID, Attempts: rec.Attempts}, nil
}

func (s *Service) recordMismatch(ctx context.Context, rec *Record) (*Result, error) {
	attempts, err := s.store.IncrementAttempts(ctx, rec.ID)
	if errors.Is(err, ErrRecordNotFound) {
		return &Result{Reason: ReasonNotFound, RecordID: rec.ID}, nil
	}
	if err != nil {
		return nil, storageErr("increment attempts", err)
	}

	limit := s.config.OTP.MaxAttempts
	if limit > 0 && attempts >= limit {
		if err := s.store.Delete(ctx, rec.ID); err != nil {
			return nil, storageErr("delete", err)
		}
		s.logger.Warn("verification code invalidated after too many attempts",
			zap.String("record_id", rec.ID),
			zap.Int("attempts", attempts))
		return &Result{Reason: ReasonTooManyAttempts, Attempts: attempts, RecordID: rec.ID}, nil
	}

	s.logger.Info("verification code mismatch",
		zap.String("record_id", rec.ID),
		zap.Int("attempts", attempts))
	return &Result{Reason: ReasonMismatch, Attempts: attempts, RecordID: rec.ID}, nil
}

func (s *Service) bypassAllowed(code string) bool {
	cfg := s.config.OTP
	if !cfg.BypassEnabled || s.config.IsProduction() || cfg.BypassCode == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(code), []byte(cfg.BypassCode)) == 1
}

// CleanupExpired deletes every record past its expiry.
func (s *Service) CleanupExpired(ctx context.Context) (int64, error) {
	removed, err := s.store.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, storageErr("delete expired", err)
	}
	if removed > 0 {
		s.logger.Info("expired verification codes removed", zap.Int64("count", removed))
	}
	return removed, nil
}

func describeClient(raw string) string {
	if raw == "" {
		return ""
	}
	ua := useragent.Parse(raw)
	if ua.Name == "" {
		return ""
	}

	parts := []string{ua.Name}
	if ua.Version != "" {
		parts = append(parts, ua.Version)
	}
	if ua.OS != "" {
		parts = append(parts, "on", ua.OS)
	}
	switch {
	case ua.Bot:
		parts = append(parts, "(bot)")
	case ua.Mobile:
		parts = append(parts, "(mobile)")
	case ua.Tablet:
		parts = append(parts, "(tablet)")
	}
	return strings.Join(parts, " ")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
