package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"

	"github.com/folio-service/folio_service/pkg/logger"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	db     *sqlx.DB
	redis  *redis.Client
	logger *logger.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db *sqlx.DB, redisClient *redis.Client, logger *logger.Logger) *HealthHandler {
	return &HealthHandler{
		db:     db,
		redis:  redisClient,
		logger: logger,
	}
}

// HealthCheck represents a health check result
type HealthCheck struct {
	Status  string `json:"status"`
	Latency string `json:"latency"`
	Error   string `json:"error,omitempty"`
}

// HealthResponse represents the overall health response
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]HealthCheck `json:"checks"`
}

// Live handles GET /live. Process is up; nothing else is checked.
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

// Health handles GET /health
// @Summary Get application health status
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	checks := map[string]HealthCheck{
		"database": h.checkDatabase(ctx),
		"redis":    h.checkRedis(ctx),
	}

	status := http.StatusOK
	overall := "healthy"
	if checks["database"].Status != "healthy" {
		// Redis is degraded-but-up; the database is not optional.
		status = http.StatusServiceUnavailable
		overall = "unhealthy"
	} else if checks["redis"].Status != "healthy" {
		overall = "degraded"
	}

	c.JSON(status, HealthResponse{
		Status:    overall,
		Timestamp: time.Now().UTC(),
		Checks:    checks,
	})
}

// Ready handles GET /ready. Readiness requires the database.
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if check := h.checkDatabase(ctx); check.Status != "healthy" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "error": check.Error})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (h *HealthHandler) checkDatabase(ctx context.Context) HealthCheck {
	start := time.Now()
	if err := h.db.PingContext(ctx); err != nil {
		return HealthCheck{Status: "unhealthy", Latency: time.Since(start).String(), Error: err.Error()}
	}
	return HealthCheck{Status: "healthy", Latency: time.Since(start).String()}
}

func (h *HealthHandler) checkRedis(ctx context.Context) HealthCheck {
	start := time.Now()
	if err := h.redis.Ping(ctx).Err(); err != nil {
		return HealthCheck{Status: "unhealthy", Latency: time.Since(start).String(), Error: err.Error()}
	}
	return HealthCheck{Status: "healthy", Latency: time.Since(start).String()}
}
