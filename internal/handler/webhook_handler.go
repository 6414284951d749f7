package handler

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/notarypros/booking-service/internal/payments"
	"github.com/notarypros/booking-service/internal/service"
	"github.com/notarypros/booking-service/pkg/logging"
)

const maxWebhookBody = 1 << 20

type WebhookHandler struct {
	svc    service.BookingService
	secret string
	logger *logging.Logger
	now    func() time.Time
}

func NewWebhookHandler(svc service.BookingService, secret string, logger *logging.Logger) *WebhookHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &WebhookHandler{svc: svc, secret: secret, logger: logger, now: time.Now}
}

func (h *WebhookHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/api/v1/webhooks/stripe", h.Stripe)
}

// Stripe verifies the signature on the raw body before anything is decoded.
// Events for intents this service never created are acknowledged so Stripe
// stops retrying them.
func (h *WebhookHandler) Stripe(c echo.Context) error {
	payload, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable body")
	}

	event, err := payments.ParseEvent(h.secret, payload, c.Request().Header.Get("Stripe-Signature"), h.now())
	if err != nil {
		h.logger.Warn("rejected stripe webhook", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid signature")
	}

	err = h.svc.HandlePaymentEvent(c.Request().Context(), event)
	if errors.Is(err, service.ErrPaymentNotFound) {
		h.logger.Warn("webhook for unknown payment", "event_id", event.ID, "intent_id", event.Data.Object.ID)
		err = nil
	}
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, map[string]bool{"received": true})
}
