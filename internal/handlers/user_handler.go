package handlers

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/odin-book/backend/internal/media"
	"github.com/odin-book/backend/internal/models"
	"github.com/odin-book/backend/internal/repositories"
	"github.com/odin-book/backend/internal/service"
)

const (
	profileImageFolder = "profile_images"
	coverImageFolder   = "profile_cover_images"
)

// UserHandler handles HTTP requests related to users and profiles
type UserHandler struct {
	userRepository repositories.UserRepository
	friendService  *service.FriendService
	uploads        media.Uploader
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userRepo repositories.UserRepository, friendService *service.FriendService, uploads media.Uploader) *UserHandler {
	return &UserHandler{
		userRepository: userRepo,
		friendService:  friendService,
		uploads:        uploads,
	}
}

// RegisterUserRoutes registers user and profile routes
func (h *UserHandler) RegisterUserRoutes(g *echo.Group) {
	g.GET("/users", h.GetUsers)
	g.GET("/users/suggestions", h.GetSuggestions)
	g.GET("/users/:id", h.GetUser)
	g.GET("/profile", h.GetProfile)
	g.PUT("/profile", h.UpdateProfile)
	g.PUT("/profile/image", h.UpdateProfileImage)
	g.PUT("/profile/cover", h.UpdateCoverImage)
}

// GetUsers retrieves all users
func (h *UserHandler) GetUsers(c echo.Context) error {
	users, err := h.userRepository.GetUsers(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, users)
}

// GetUser retrieves a user's profile by ID
func (h *UserHandler) GetUser(c echo.Context) error {
	id, err := objectIDParam(c, "id")
	if err != nil {
		return err
	}
	user, err := h.userRepository.GetUserByID(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, user)
}

// GetSuggestions retrieves the users the acting user has no relationship with,
// for "people you may know" listings
func (h *UserHandler) GetSuggestions(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	users, err := h.friendService.NonFriends(c.Request().Context(), userID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, users)
}

// GetProfile retrieves the authenticated user's profile
func (h *UserHandler) GetProfile(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	user, err := h.userRepository.GetUserByID(c.Request().Context(), userID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, user)
}

// UpdateProfile updates the authenticated user's profile data
func (h *UserHandler) UpdateProfile(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	var req models.UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}

	validate := validator.New()
	if err := validate.Struct(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	user, err := h.userRepository.GetUserByID(c.Request().Context(), userID)
	if err != nil {
		return httpError(err)
	}

	if req.FirstName != "" {
		user.FirstName = req.FirstName
	}
	if req.LastName != "" {
		user.LastName = req.LastName
	}
	if req.Email != "" {
		user.Email = req.Email
	}
	if req.Occupation != "" {
		user.Occupation = req.Occupation
	}
	if req.Education != "" {
		user.Education = req.Education
	}
	if req.Location != "" {
		user.Location = req.Location
	}

	if err := h.userRepository.UpdateProfile(c.Request().Context(), user); err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, user)
}

// UpdateProfileImage replaces the authenticated user's profile image
func (h *UserHandler) UpdateProfileImage(c echo.Context) error {
	return h.updateImage(c, models.FieldProfileImage, profileImageFolder)
}

// UpdateCoverImage replaces the authenticated user's cover image
func (h *UserHandler) UpdateCoverImage(c echo.Context) error {
	return h.updateImage(c, models.FieldCoverImage, coverImageFolder)
}

// updateImage uploads the new image to the media host before touching the
// record; an empty image URL clears the field without an upload.
func (h *UserHandler) updateImage(c echo.Context, field models.ImageField, folder string) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	var req models.UpdateImageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}

	img := models.Image{}
	if req.ImageURL != "" {
		asset, err := h.uploads.Upload(c.Request().Context(), req.ImageURL, folder)
		if err != nil {
			return httpError(err)
		}
		img = models.Image{PublicID: asset.PublicID, URL: asset.URL}
	}

	user, err := h.userRepository.UpdateImage(c.Request().Context(), userID, field, img)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, user)
}
