package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/odin-book/backend/internal/service"
)

// FriendshipHandler handles HTTP requests for the friend-request state machine
type FriendshipHandler struct {
	friendService *service.FriendService
}

// NewFriendshipHandler creates a new FriendshipHandler
func NewFriendshipHandler(friendService *service.FriendService) *FriendshipHandler {
	return &FriendshipHandler{friendService: friendService}
}

// RegisterFriendshipRoutes registers friendship-related routes. The :id is
// always the counterpart user; the acting user comes from the JWT.
func (h *FriendshipHandler) RegisterFriendshipRoutes(g *echo.Group) {
	g.GET("/friends", h.GetFriends)
	g.GET("/friends/limited", h.GetLimitedFriends)
	g.GET("/friends/requests/incoming", h.GetIncomingRequests)
	g.GET("/friends/requests/sent", h.GetSentRequests)
	g.POST("/friends/requests/:id", h.SendRequest)
	g.DELETE("/friends/requests/:id", h.CancelRequest)
	g.POST("/friends/requests/:id/accept", h.AcceptRequest)
	g.POST("/friends/requests/:id/reject", h.RejectRequest)
	g.DELETE("/friends/:id", h.Unfriend)
}

// SendRequest sends a friend request to the user named in the path
func (h *FriendshipHandler) SendRequest(c echo.Context) error {
	return h.transition(c, h.friendService.SendRequest, http.StatusCreated)
}

// CancelRequest withdraws a previously sent friend request
func (h *FriendshipHandler) CancelRequest(c echo.Context) error {
	return h.transition(c, h.friendService.CancelRequest, http.StatusOK)
}

// AcceptRequest accepts an incoming friend request
func (h *FriendshipHandler) AcceptRequest(c echo.Context) error {
	return h.transition(c, h.friendService.AcceptRequest, http.StatusOK)
}

// RejectRequest rejects an incoming friend request
func (h *FriendshipHandler) RejectRequest(c echo.Context) error {
	return h.transition(c, h.friendService.RejectRequest, http.StatusOK)
}

// Unfriend removes an existing friendship
func (h *FriendshipHandler) Unfriend(c echo.Context) error {
	return h.transition(c, h.friendService.Unfriend, http.StatusOK)
}

// GetFriends retrieves the acting user's friends
func (h *FriendshipHandler) GetFriends(c echo.Context) error {
	return h.listing(c, h.friendService.Friends)
}

// GetLimitedFriends retrieves the first few friends for the profile sidebar
func (h *FriendshipHandler) GetLimitedFriends(c echo.Context) error {
	return h.listing(c, h.friendService.LimitedFriends)
}

// GetIncomingRequests retrieves pending requests sent to the acting user
func (h *FriendshipHandler) GetIncomingRequests(c echo.Context) error {
	return h.listing(c, h.friendService.IncomingRequests)
}

// GetSentRequests retrieves pending requests the acting user has sent
func (h *FriendshipHandler) GetSentRequests(c echo.Context) error {
	return h.listing(c, h.friendService.SentRequests)
}

func (h *FriendshipHandler) transition(c echo.Context, op service.Transition, okStatus int) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	friendID, err := objectIDParam(c, "id")
	if err != nil {
		return err
	}
	user, err := op(c.Request().Context(), userID, friendID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(okStatus, user)
}

func (h *FriendshipHandler) listing(c echo.Context, query service.RelationQuery) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	users, err := query(c.Request().Context(), userID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, users)
}
