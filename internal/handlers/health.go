package handlers

import (
	"context"
	"ideaboard/internal/db"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const apiVersion = "1.0.0"

type HealthHandler struct {
	db *gorm.DB
}

func NewHealthHandler(conn *gorm.DB) *HealthHandler {
	return &HealthHandler{db: conn}
}

// Info GET /api
func (h *HealthHandler) Info(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": "42 Idea API is running",
		"version": apiVersion,
		"endpoints": gin.H{
			"auth":  "/api/auth",
			"posts": "/api/posts",
			"ideas": "/api/ideas",
			"admin": "/api/admin",
		},
	})
}

// Health GET /api/health, 503 when the database does not answer
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status, code, database := "ok", http.StatusOK, "ok"
	if err := db.Ping(ctx, h.db); err != nil {
		status, code, database = "degraded", http.StatusServiceUnavailable, "unreachable"
	}

	c.JSON(code, gin.H{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"database":  database,
	})
}
