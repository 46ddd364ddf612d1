package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/memoria-social/backend/internal/models"
	"github.com/memoria-social/backend/internal/repositories"
	"github.com/memoria-social/backend/internal/services"
)

// PostHandler handles HTTP requests related to posts
type PostHandler struct {
	postService *services.PostService
	authors     authorResolver
}

// NewPostHandler creates a new PostHandler. userRepo may be nil.
func NewPostHandler(postService *services.PostService, userRepo repositories.UserRepository) *PostHandler {
	return &PostHandler{
		postService: postService,
		authors:     authorResolver{users: userRepo},
	}
}

// RegisterPostRoutes registers post-related routes
func (h *PostHandler) RegisterPostRoutes(g *echo.Group) {
	g.POST("/posts", h.CreatePost)
	g.GET("/posts", h.GetPosts) // ?author=<id>&skip=&limit=
	g.GET("/posts/:post_id", h.GetPost)
	g.DELETE("/posts/:post_id", h.DeletePost)
}

// CreatePost creates a new post
func (h *PostHandler) CreatePost(c echo.Context) error {
	author, err := h.authors.resolve(c)
	if err != nil {
		return err
	}

	var req models.CreatePostRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	post, err := h.postService.CreatePost(c.Request().Context(), author, req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, post.View())
}

// GetPost retrieves a single post with its comment forest
func (h *PostHandler) GetPost(c echo.Context) error {
	identity, err := currentIdentity(c)
	if err != nil {
		return err
	}

	post, err := h.postService.GetPost(c.Request().Context(), c.Param("post_id"), identity.UserID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, post.View())
}

// GetPosts lists the posts visible to the caller, newest first
func (h *PostHandler) GetPosts(c echo.Context) error {
	identity, err := currentIdentity(c)
	if err != nil {
		return err
	}

	skip, _ := strconv.ParseInt(c.QueryParam("skip"), 10, 64)
	limit, _ := strconv.ParseInt(c.QueryParam("limit"), 10, 64)

	posts, err := h.postService.ListPosts(c.Request().Context(), repositories.PostFilter{
		AuthorID: c.QueryParam("author"),
		ViewerID: identity.UserID,
		Skip:     skip,
		Limit:    limit,
	})
	if err != nil {
		return httpError(err)
	}

	views := make([]models.PostView, len(posts))
	for i, p := range posts {
		views[i] = p.View()
	}
	return c.JSON(http.StatusOK, views)
}

// DeletePost deletes a post and its comments
func (h *PostHandler) DeletePost(c echo.Context) error {
	identity, err := currentIdentity(c)
	if err != nil {
		return err
	}

	if err := h.postService.DeletePost(c.Request().Context(), c.Param("post_id"), identity.UserID); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
