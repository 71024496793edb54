package handlers

import (
	"ideaboard/internal/middleware"
	"ideaboard/internal/services"
	"ideaboard/internal/utils"
	"net/http"

	"github.com/gin-gonic/gin"
)

type PostHandler struct {
	posts *services.PostService
}

func NewPostHandler(posts *services.PostService) *PostHandler {
	return &PostHandler{posts: posts}
}

type createPostRequest struct {
	Content string `json:"content"`
}

type voteRequest struct {
	VoteType string `json:"voteType"`
}

// List GET /api/posts
func (h *PostHandler) List(c *gin.Context) {
	posts, err := h.posts.ListPosts(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, posts)
}

// Create POST /api/posts, requires a session
func (h *PostHandler) Create(c *gin.Context) {
	user := middleware.CurrentUser(c)

	var req createPostRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}

	post, err := h.posts.CreatePost(c.Request.Context(), user.ID, req.Content)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":        post.ID,
		"content":   post.Content,
		"createdAt": post.CreatedAt,
	})
}

// Vote POST /api/posts/:id/vote, requires a session
func (h *PostHandler) Vote(c *gin.Context) {
	user := middleware.CurrentUser(c)

	var req voteRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}

	res, err := h.posts.Vote(c.Request.Context(), utils.ParseID(c.Param("id")), user.ID, req.VoteType)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
