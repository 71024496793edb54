package handlers

import (
	"ideaboard/internal/services"
	"net/http"

	"github.com/gin-gonic/gin"
)

// AdminHandler serves the moderation dashboard. Routes are guarded by middleware.AdminRequired.
type AdminHandler struct {
	posts      *services.PostService
	grafanaURL string
}

func NewAdminHandler(posts *services.PostService, grafanaURL string) *AdminHandler {
	return &AdminHandler{posts: posts, grafanaURL: grafanaURL}
}

// Posts lists every post including those hidden by spam reports
func (h *AdminHandler) Posts(c *gin.Context) {
	posts, err := h.posts.AdminPosts(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, posts)
}

func (h *AdminHandler) Stats(c *gin.Context) {
	stats, err := h.posts.AdminStats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GrafanaURL returns the dashboard address the admin panel embeds
func (h *AdminHandler) GrafanaURL(c *gin.Context) {
	if h.grafanaURL == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Grafana URL not configured"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": h.grafanaURL})
}
