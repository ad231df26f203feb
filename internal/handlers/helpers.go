package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/odin-book/backend/internal/media"
	"github.com/odin-book/backend/internal/models"
	"github.com/odin-book/backend/internal/repositories"
	"github.com/odin-book/backend/internal/service"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// currentUserID returns the acting user's id from the verified JWT claims.
// Identity is always taken from the token, never from the request payload.
func currentUserID(c echo.Context) (primitive.ObjectID, error) {
	claims, ok := c.Get("user").(*models.JwtCustomClaims)
	if !ok {
		return primitive.NilObjectID, echo.NewHTTPError(http.StatusUnauthorized, "Missing authentication claims")
	}
	id, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return primitive.NilObjectID, echo.NewHTTPError(http.StatusUnauthorized, "Invalid user id in token")
	}
	return id, nil
}

// objectIDParam parses a path parameter as an ObjectID.
func objectIDParam(c echo.Context, name string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		return primitive.NilObjectID, echo.NewHTTPError(http.StatusBadRequest, "Invalid "+name)
	}
	return id, nil
}

// httpError maps domain errors to HTTP responses. A partial relationship
// update is a server-side alert condition: it is logged loudly and reported
// as a 500, never hidden behind a client error.
func httpError(err error) error {
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}

	var partial *service.PartialUpdateError
	if errors.As(err, &partial) {
		log.Printf("ALERT: relationship left asymmetric, reconciliation required: %v", partial)
		return echo.NewHTTPError(http.StatusInternalServerError, "Relationship update incomplete")
	}

	switch {
	case errors.Is(err, service.ErrSelfReference):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrInvalidTransition):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, repositories.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, repositories.ErrInvalidID):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, media.ErrUploadFailed):
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}
