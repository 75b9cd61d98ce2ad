package api

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"property-governance-backend/cache"
)

// SystemInfo contains basic system metrics and information
type SystemInfo struct {
	Status       string    `json:"status"`
	Version      string    `json:"version"`
	Uptime       string    `json:"uptime"`
	StartTime    time.Time `json:"start_time"`
	CurrentTime  time.Time `json:"current_time"`
	GoVersion    string    `json:"go_version"`
	NumGoroutine int       `json:"num_goroutine"`
	NumCPU       int       `json:"num_cpu"`
	DBStatus     string    `json:"db_status"`
	RedisStatus  string    `json:"redis_status"`
}

// HealthController serves liveness and status endpoints.
type HealthController struct {
	db        *gorm.DB
	redis     cache.RedisClient
	version   string
	startTime time.Time
}

// NewHealthController creates the controller. redis may be nil when caching
// is disabled.
func NewHealthController(db *gorm.DB, redis cache.RedisClient, version string) *HealthController {
	return &HealthController{db: db, redis: redis, version: version, startTime: time.Now()}
}

func (h *HealthController) RegisterRoutes(group *gin.RouterGroup) {
	group.GET("/health", h.HealthCheck)
	group.GET("/status", h.SystemStatus)
}

// HealthCheck is the liveness probe.
func (h *HealthController) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// SystemStatus reports process, database and cache health. A failing
// database makes the whole status "degraded".
func (h *HealthController) SystemStatus(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := "ok"
	dbStatus := "ok"
	sqlDB, err := h.db.DB()
	if err != nil || sqlDB.PingContext(ctx) != nil {
		dbStatus = "error"
		status = "degraded"
	}

	redisStatus := "disabled"
	if h.redis != nil {
		redisStatus = "ok"
		if err := cache.Ping(ctx, h.redis); err != nil {
			redisStatus = "error"
		}
	}

	c.JSON(http.StatusOK, SystemInfo{
		Status:       status,
		Version:      h.version,
		Uptime:       time.Since(h.startTime).Round(time.Second).String(),
		StartTime:    h.startTime,
		CurrentTime:  time.Now(),
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
		NumCPU:       runtime.NumCPU(),
		DBStatus:     dbStatus,
		RedisStatus:  redisStatus,
	})
}
