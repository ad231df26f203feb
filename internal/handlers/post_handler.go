package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/odin-book/backend/internal/models"
	"github.com/odin-book/backend/internal/repositories"
	"github.com/odin-book/backend/internal/service"
)

// PostHandler handles HTTP requests related to posts and likes
type PostHandler struct {
	postRepository repositories.PostRepository
	postService    *service.PostService
}

// NewPostHandler creates a new PostHandler
func NewPostHandler(postRepo repositories.PostRepository, postService *service.PostService) *PostHandler {
	return &PostHandler{
		postRepository: postRepo,
		postService:    postService,
	}
}

// RegisterPostRoutes registers post-related routes
func (h *PostHandler) RegisterPostRoutes(g *echo.Group) {
	g.POST("/posts", h.CreatePost)
	g.GET("/posts", h.GetPosts)
	g.GET("/posts/:id", h.GetPost)
	g.DELETE("/posts/:id", h.DeletePost)
	g.PUT("/posts/:id/likes", h.ToggleLike)
	g.GET("/users/:id/posts", h.GetUserPosts)
}

// CreatePost creates a new post for the authenticated user
func (h *PostHandler) CreatePost(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	var req models.CreatePostRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}

	validate := validator.New()
	if err := validate.Struct(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	post, err := h.postService.CreatePost(c.Request().Context(), userID, req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, post)
}

// GetPosts retrieves posts newest first with skip/limit pagination
func (h *PostHandler) GetPosts(c echo.Context) error {
	skip, _ := strconv.ParseInt(c.QueryParam("skip"), 10, 64)
	limit, err := strconv.ParseInt(c.QueryParam("limit"), 10, 64)
	if err != nil || limit <= 0 || limit > 100 {
		limit = 20
	}

	posts, err := h.postRepository.GetPosts(c.Request().Context(), skip, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, posts)
}

// GetPost retrieves a single post by ID
func (h *PostHandler) GetPost(c echo.Context) error {
	id, err := objectIDParam(c, "id")
	if err != nil {
		return err
	}
	post, err := h.postRepository.GetPostByID(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, post)
}

// GetUserPosts retrieves a user's posts newest first
func (h *PostHandler) GetUserPosts(c echo.Context) error {
	authorID, err := objectIDParam(c, "id")
	if err != nil {
		return err
	}
	posts, err := h.postRepository.GetPostsByAuthor(c.Request().Context(), authorID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, posts)
}

// DeletePost deletes the authenticated user's own post
func (h *PostHandler) DeletePost(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	id, err := objectIDParam(c, "id")
	if err != nil {
		return err
	}

	post, err := h.postRepository.GetPostByID(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	if post.AuthorID != userID {
		return echo.NewHTTPError(http.StatusForbidden, "You can only delete your own posts")
	}

	if err := h.postService.DeletePost(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ToggleLike flips the authenticated user's like on a post and returns the
// updated post
func (h *PostHandler) ToggleLike(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	postID, err := objectIDParam(c, "id")
	if err != nil {
		return err
	}

	post, err := h.postService.ToggleLike(c.Request().Context(), postID, userID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, post)
}
