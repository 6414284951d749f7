package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/notarypros/booking-service/internal/dto"
	"github.com/notarypros/booking-service/pkg/logging"
)

const genericServerError = "Something went wrong. Please try again."

// ErrorHandler renders errors as {"success":false,"error":...}. Server-side
// failures are logged with their cause and answered with a generic message.
func ErrorHandler(logger *logging.Logger) echo.HTTPErrorHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code := http.StatusInternalServerError
		msg := genericServerError

		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			// 5xx text is only trusted when a handler mapped the cause itself.
			if m, ok := he.Message.(string); ok && (code < http.StatusInternalServerError || he.Internal != nil) {
				msg = m
			}
		}

		if code >= http.StatusInternalServerError {
			logger.Error("request failed",
				"method", c.Request().Method,
				"path", c.Path(),
				"status", code,
				"error", err,
			)
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, dto.ErrorResponse{Success: false, Error: msg})
	}
}
