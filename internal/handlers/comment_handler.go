package handlers

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/odin-book/backend/internal/models"
	"github.com/odin-book/backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CommentHandler handles HTTP requests related to comments
type CommentHandler struct {
	commentRepository repositories.CommentRepository
	postRepository    repositories.PostRepository
}

// NewCommentHandler creates a new CommentHandler
func NewCommentHandler(commentRepo repositories.CommentRepository, postRepo repositories.PostRepository) *CommentHandler {
	return &CommentHandler{
		commentRepository: commentRepo,
		postRepository:    postRepo,
	}
}

// RegisterCommentRoutes registers comment-related routes
func (h *CommentHandler) RegisterCommentRoutes(g *echo.Group) {
	g.POST("/comments", h.CreateComment)
	g.GET("/posts/:id/comments", h.GetPostComments)
}

// CreateComment creates a comment on a post for the authenticated user
func (h *CommentHandler) CreateComment(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	var req models.CreateCommentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}

	validate := validator.New()
	if err := validate.Struct(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	postID, err := primitive.ObjectIDFromHex(req.PostID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid post id")
	}

	// Referential validity of the parent post
	if _, err := h.postRepository.GetPostByID(c.Request().Context(), postID); err != nil {
		return httpError(err)
	}

	comment := &models.Comment{
		PostID:   postID,
		AuthorID: userID,
		Content:  req.Content,
	}
	if err := h.commentRepository.CreateComment(c.Request().Context(), comment); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, comment)
}

// GetPostComments retrieves a post's comments newest first
func (h *CommentHandler) GetPostComments(c echo.Context) error {
	postID, err := objectIDParam(c, "id")
	if err != nil {
		return err
	}
	comments, err := h.commentRepository.GetCommentsByPostID(c.Request().Context(), postID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, comments)
}
