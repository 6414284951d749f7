package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notarypros/booking-service/internal/dto"
	"github.com/notarypros/booking-service/internal/metrics"
	"github.com/notarypros/booking-service/pkg/logging"
)

func serve(e *echo.Echo, method, path string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) dto.ErrorResponse {
	t.Helper()
	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestErrorHandler_ClientError(t *testing.T) {
	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler(logging.Discard())
	e.GET("/", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusConflict, "this time is no longer available")
	})

	rec := serve(e, http.MethodGet, "/", nil)

	assert.Equal(t, http.StatusConflict, rec.Code)
	resp := decodeError(t, rec)
	assert.False(t, resp.Success)
	assert.Equal(t, "this time is no longer available", resp.Error)
}

func TestErrorHandler_HidesUnmappedFailures(t *testing.T) {
	var logs bytes.Buffer
	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler(logging.NewWithWriter(&logs, "info"))
	e.GET("/", func(c echo.Context) error {
		return errors.New("pq: password authentication failed")
	})

	rec := serve(e, http.MethodGet, "/", nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, genericServerError, decodeError(t, rec).Error)
	assert.Contains(t, logs.String(), "pq: password authentication failed")
}

func TestErrorHandler_MappedServerError(t *testing.T) {
	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler(logging.Discard())
	e.GET("/", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusBadGateway, "We couldn't price this booking right now.").SetInternal(errors.New("maps timeout"))
	})

	rec := serve(e, http.MethodGet, "/", nil)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "We couldn't price this booking right now.", decodeError(t, rec).Error)
}

func TestErrorHandler_UnknownRoute(t *testing.T) {
	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler(logging.Discard())

	rec := serve(e, http.MethodGet, "/nope", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, decodeError(t, rec).Success)
}

func TestAPIKey(t *testing.T) {
	tests := []struct {
		name       string
		configured string
		sent       string
		want       int
	}{
		{"matching key", "s3cret", "s3cret", http.StatusOK},
		{"wrong key", "s3cret", "guess", http.StatusUnauthorized},
		{"missing header", "s3cret", "", http.StatusUnauthorized},
		{"no key configured", "", "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			e.HTTPErrorHandler = ErrorHandler(logging.Discard())
			e.GET("/admin", func(c echo.Context) error {
				return c.NoContent(http.StatusOK)
			}, APIKey(tt.configured))

			header := http.Header{}
			if tt.sent != "" {
				header.Set(HeaderAPIKey, tt.sent)
			}
			rec := serve(e, http.MethodGet, "/admin", header)

			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestRequestLogger(t *testing.T) {
	var logs bytes.Buffer
	e := echo.New()
	e.Use(RequestLogger(logging.NewWithWriter(&logs, "info"), metrics.NewBookingMetrics(prometheus.NewRegistry())))
	e.GET("/api/v1/bookings/:id", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	rec := serve(e, http.MethodGet, "/api/v1/bookings/abc", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, logs.String(), `"uri":"/api/v1/bookings/abc"`)
	assert.Contains(t, logs.String(), `"status":200`)
}
