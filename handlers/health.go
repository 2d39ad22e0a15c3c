package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/tech-arch1tect/authstarter/services/logging"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const healthTimeout = 2 * time.Second

type HealthHandler struct {
	db     *gorm.DB
	redis  *redis.Client
	logger *logging.Service
}

// NewHealthHandler accepts a nil redis client when codes are stored in the
// database.
func NewHealthHandler(db *gorm.DB, rdb *redis.Client, logger *logging.Service) *HealthHandler {
	return &HealthHandler{db: db, redis: rdb, logger: logger}
}

func (h *HealthHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), healthTimeout)
	defer cancel()

	resp := HealthResponse{Status: "ok", Database: "ok"}
	status := http.StatusOK

	if err := h.pingDatabase(ctx); err != nil {
		h.logger.Warn("database health check failed", zap.Error(err))
		resp.Database = "unavailable"
		status = http.StatusServiceUnavailable
	}

	if h.redis != nil {
		resp.Redis = "ok"
		if err := h.redis.Ping(ctx).Err(); err != nil {
			h.logger.Warn("redis health check failed", zap.Error(err))
			resp.Redis = "unavailable"
			status = http.StatusServiceUnavailable
		}
	}

	if status != http.StatusOK {
		resp.Status = "unavailable"
	}
	return c.JSON(status, resp)
}

func (h *HealthHandler) pingDatabase(ctx context.Context) error {
	sqlDB, err := h.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
