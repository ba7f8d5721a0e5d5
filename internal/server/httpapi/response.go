package httpapi

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dmitrijs2005/gophauth/internal/common"
)

type apiResponse struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

type apiError struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

func respond(c echo.Context, code int, data any, message string) error {
	if data == nil {
		data = struct{}{}
	}
	return c.JSON(code, apiResponse{
		StatusCode: code,
		Data:       data,
		Message:    message,
		Success:    code < http.StatusBadRequest,
	})
}

// statusFor maps a service error onto an HTTP status and a client-facing
// message. Internal failures get a generic message.
func statusFor(err error) (int, string) {
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		if msg, ok := he.Message.(string); ok {
			return he.Code, msg
		}
		return he.Code, http.StatusText(he.Code)
	case errors.Is(err, common.ErrorValidation):
		return http.StatusBadRequest, common.Message(err)
	case errors.Is(err, common.ErrorAlreadyExists):
		return http.StatusConflict, common.Message(err)
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound, common.Message(err)
	case errors.Is(err, common.ErrorUnauthorized):
		return http.StatusUnauthorized, common.Message(err)
	case errors.Is(err, common.ErrorTooManyAttempts):
		return http.StatusTooManyRequests, common.Message(err)
	default:
		return http.StatusInternalServerError, "something went wrong"
	}
}

func (s *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code, msg := statusFor(err)
	if code >= http.StatusInternalServerError {
		s.logger.Error(c.Request().Context(), "request failed",
			"method", c.Request().Method,
			"path", c.Path(),
			"error", err)
	}

	if err := c.JSON(code, apiError{StatusCode: code, Message: msg, Success: false}); err != nil {
		s.logger.Error(c.Request().Context(), "write error response", "error", err)
	}
}
