package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/xiaot623/chatrelay/internal/domain"
)

// Signup registers a user.
// POST /api/v1/user/signup
func (h *Handler) Signup(c echo.Context) error {
	var req domain.SignupRequest
	if err := c.Bind(&req); err != nil {
		return h.userError(c, domain.NewValidationError("Invalid request body"))
	}
	if err := c.Validate(&req); err != nil {
		return h.userError(c, err)
	}

	user, err := h.service.Signup(c.Request().Context(), req)
	if err != nil {
		return h.userError(c, err)
	}
	return c.JSON(http.StatusCreated, domain.SignupResponse{Msg: "User created successfully", UserID: user.ID})
}

// Signin exchanges credentials for a bearer token.
// POST /api/v1/user/signin
func (h *Handler) Signin(c echo.Context) error {
	var req domain.SigninRequest
	if err := c.Bind(&req); err != nil {
		return h.userError(c, domain.NewValidationError("Invalid request body"))
	}
	if err := c.Validate(&req); err != nil {
		return h.userError(c, err)
	}

	token, err := h.service.Signin(c.Request().Context(), req)
	if err != nil {
		return h.userError(c, err)
	}
	return c.JSON(http.StatusOK, domain.SigninResponse{Msg: "Signin successful", Token: token})
}
