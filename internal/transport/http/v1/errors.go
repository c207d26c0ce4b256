package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/xiaot623/chatrelay/internal/domain"
)

// statusOf maps an error kind to its HTTP status.
func statusOf(err error) int {
	switch domain.KindOf(err) {
	case domain.KindValidation, domain.KindInvalidIdentifier:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindUnauthorized:
		return http.StatusUnauthorized
	case domain.KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// chatError writes {"error", "details"} for a failed chat request.
func (h *Handler) chatError(c echo.Context, err error) error {
	status := statusOf(err)
	body := domain.ErrorResponse{Error: "Internal server error"}

	var derr *domain.Error
	if errors.As(err, &derr) {
		body.Error = derr.Message
		body.Details = derr.Detail
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "path", c.Path(), "err", err)
	}
	return c.JSON(status, body)
}

// userError writes {"msg", "details"} for a failed identity request.
func (h *Handler) userError(c echo.Context, err error) error {
	status := statusOf(err)
	body := map[string]any{"msg": "Internal server error"}

	var derr *domain.Error
	if errors.As(err, &derr) {
		body["msg"] = derr.Message
		if derr.Detail != nil {
			body["details"] = derr.Detail
		}
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "path", c.Path(), "err", err)
	}
	return c.JSON(status, body)
}
