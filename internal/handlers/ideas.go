package handlers

import (
	"ideaboard/internal/services"
	"ideaboard/internal/types"
	"ideaboard/internal/utils"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

type IdeaHandler struct {
	ideas *services.IdeaService
}

func NewIdeaHandler(ideas *services.IdeaService) *IdeaHandler {
	return &IdeaHandler{ideas: ideas}
}

// userIDField accepts the id as a JSON number or a numeric string.
// null and "" decode to 0, which the service reports as missing.
type userIDField uint

func (id *userIDField) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*id = 0
		return nil
	}
	if unquoted, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(unquoted)
		if s == "" {
			*id = 0
			return nil
		}
	}

	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return types.Validation("userId must be a positive integer")
	}
	*id = userIDField(n)
	return nil
}

type createIdeaRequest struct {
	Content string      `json:"content"`
	UserID  userIDField `json:"userId"`
}

type lockIdeaRequest struct {
	UserID userIDField `json:"userId"`
}

// List GET /api/ideas
func (h *IdeaHandler) List(c *gin.Context) {
	ideas, err := h.ideas.ListIdeas(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ideas)
}

// Create POST /api/ideas. The author stays anonymous in the response.
func (h *IdeaHandler) Create(c *gin.Context) {
	var req createIdeaRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}

	idea, err := h.ideas.CreateIdea(c.Request.Context(), req.Content, uint(req.UserID))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":           idea.ID,
		"content":      idea.Content,
		"is_locked":    idea.IsLocked,
		"locked_by_id": idea.LockedByID,
		"created_at":   idea.CreatedAt,
	})
}

// Lock POST /api/ideas/:id/lock
func (h *IdeaHandler) Lock(c *gin.Context) {
	var req lockIdeaRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}

	res, err := h.ideas.LockIdea(c.Request.Context(), utils.ParseID(c.Param("id")), uint(req.UserID))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
