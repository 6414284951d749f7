package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/notarypros/booking-service/internal/service"
	"github.com/notarypros/booking-service/internal/validation"
)

var kindStatus = map[service.Kind]int{
	service.KindValidation:   http.StatusBadRequest,
	service.KindNotFound:     http.StatusNotFound,
	service.KindUnauthorized: http.StatusUnauthorized,
	service.KindConflict:     http.StatusConflict,
	service.KindUpstream:     http.StatusBadGateway,
	service.KindInternal:     http.StatusInternalServerError,
}

func statusFor(kind service.Kind) int {
	if code, ok := kindStatus[kind]; ok {
		return code
	}
	return http.StatusInternalServerError
}

// httpError maps a service error onto an echo error. The wrapped error is
// kept as Internal so the error handler can log it.
func httpError(err error) *echo.HTTPError {
	he := echo.NewHTTPError(statusFor(service.KindOf(err)), service.PublicMessage(err))
	return he.SetInternal(err)
}

// bindAndValidate decodes the body into req and runs the echo validator.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	return validate(c, req)
}

func validate(c echo.Context, req any) error {
	if err := c.Validate(req); err != nil {
		fields := validation.FieldErrors(err)
		msg := "validation failed"
		if len(fields) > 0 {
			msg = fields[0].Message
		}
		return echo.NewHTTPError(http.StatusBadRequest, msg)
	}
	return nil
}
