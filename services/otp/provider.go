package otp

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/tech-arch1tect/authstarter/config"
	"github.com/tech-arch1tect/authstarter/services/logging"
	"github.com/tech-arch1tect/authstarter/services/notifier"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Options(
	fx.Provide(ProvideStore),
	fx.Provide(ProvideHasher),
	fx.Provide(ProvideService),
)

func ProvideStore(cfg *config.Config, db *gorm.DB, rdb *redis.Client) (Store, error) {
	switch cfg.OTP.Store {
	case config.OTPStoreRedis:
		if rdb == nil {
			return nil, fmt.Errorf("redis store selected but no redis client is available")
		}
		return NewRedisStore(rdb, cfg.Redis.KeyPrefix), nil
	case config.OTPStoreDatabase, "":
		return NewGormStore(db), nil
	default:
		return nil, fmt.Errorf("unsupported OTP store: %s", cfg.OTP.Store)
	}
}

func ProvideHasher(cfg *config.Config) (Hasher, error) {
	return NewHasher(cfg.OTP)
}

func ProvideService(cfg *config.Config, store Store, hasher Hasher, n notifier.Notifier, composer *notifier.Composer, logger *logging.Service) *Service {
	svc := NewService(cfg, store, hasher, logger.Named("otp"))
	svc.SetNotifier(n, composer)
	return svc
}
