package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/tech-arch1tect/authstarter/services/users"
)

type UserHandler struct {
	users *users.Service
}

func NewUserHandler(userService *users.Service) *UserHandler {
	return &UserHandler{users: userService}
}

func (h *UserHandler) CheckUser(c echo.Context) error {
	req, err := bindRequest[CheckUserRequest](c)
	if err != nil {
		return err
	}

	user, err := h.users.FindByEmail(c.Request().Context(), req.Email)
	if errors.Is(err, users.ErrUserNotFound) {
		return c.JSON(http.StatusOK, CheckUserResponse{Exists: false})
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError).SetInternal(err)
	}

	return c.JSON(http.StatusOK, CheckUserResponse{
		Exists: true,
		User:   &UserSummary{ID: user.ID, Email: user.Email},
	})
}
