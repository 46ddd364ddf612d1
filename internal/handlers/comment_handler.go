package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/memoria-social/backend/internal/models"
	"github.com/memoria-social/backend/internal/repositories"
	"github.com/memoria-social/backend/internal/services"
)

// CommentHandler handles HTTP requests on a post's comment tree
type CommentHandler struct {
	commentService *services.CommentService
	authors        authorResolver
}

// NewCommentHandler creates a new CommentHandler. userRepo may be nil.
func NewCommentHandler(commentService *services.CommentService, userRepo repositories.UserRepository) *CommentHandler {
	return &CommentHandler{
		commentService: commentService,
		authors:        authorResolver{users: userRepo},
	}
}

// RegisterCommentRoutes registers comment-related routes
func (h *CommentHandler) RegisterCommentRoutes(g *echo.Group) {
	g.GET("/posts/:post_id/comments", h.GetComments)
	g.POST("/posts/:post_id/comments", h.CreateComment)
	g.GET("/posts/:post_id/comments/:comment_id", h.GetComment)
	g.DELETE("/posts/:post_id/comments/:comment_id", h.DeleteComment)
	g.POST("/posts/:post_id/comments/:comment_id/replies", h.CreateReply)
	g.POST("/posts/:post_id/comments/:comment_id/like", h.ToggleLike)
}

// GetComments returns the whole comment forest of a post
func (h *CommentHandler) GetComments(c echo.Context) error {
	identity, err := currentIdentity(c)
	if err != nil {
		return err
	}

	comments, err := h.commentService.ListComments(c.Request().Context(), c.Param("post_id"), identity.UserID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, comments)
}

// GetComment returns one comment with its replies
func (h *CommentHandler) GetComment(c echo.Context) error {
	identity, err := currentIdentity(c)
	if err != nil {
		return err
	}
	commentID, err := commentIDParam(c)
	if err != nil {
		return err
	}

	comment, err := h.commentService.GetComment(c.Request().Context(), c.Param("post_id"), commentID, identity.UserID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, comment)
}

// CreateComment adds a top-level comment to a post
func (h *CommentHandler) CreateComment(c echo.Context) error {
	author, err := h.authors.resolve(c)
	if err != nil {
		return err
	}

	var req models.CreateCommentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	comment, err := h.commentService.AddComment(c.Request().Context(), c.Param("post_id"), req.Content, author)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, comment)
}

// CreateReply adds a reply under any comment or reply of a post
func (h *CommentHandler) CreateReply(c echo.Context) error {
	author, err := h.authors.resolve(c)
	if err != nil {
		return err
	}
	parentID, err := commentIDParam(c)
	if err != nil {
		return err
	}

	var req models.CreateCommentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	reply, err := h.commentService.AddReply(c.Request().Context(), c.Param("post_id"), parentID, req.Content, author)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, reply)
}

// ToggleLike likes or unlikes a comment for the caller
func (h *CommentHandler) ToggleLike(c echo.Context) error {
	actor, err := h.authors.resolve(c)
	if err != nil {
		return err
	}
	commentID, err := commentIDParam(c)
	if err != nil {
		return err
	}

	res, err := h.commentService.ToggleCommentLike(c.Request().Context(), c.Param("post_id"), commentID, actor)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, res)
}

// DeleteComment removes a comment and all its replies
func (h *CommentHandler) DeleteComment(c echo.Context) error {
	identity, err := currentIdentity(c)
	if err != nil {
		return err
	}
	commentID, err := commentIDParam(c)
	if err != nil {
		return err
	}

	if err := h.commentService.DeleteComment(c.Request().Context(), c.Param("post_id"), commentID, identity.UserID); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Comment deleted successfully"})
}
