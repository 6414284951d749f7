package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/notarypros/booking-service/internal/dto"
	"github.com/notarypros/booking-service/internal/models"
	"github.com/notarypros/booking-service/internal/pricing"
	"github.com/notarypros/booking-service/internal/service"
)

type PricingHandler struct {
	pricer service.Pricer
}

func NewPricingHandler(pricer service.Pricer) *PricingHandler {
	return &PricingHandler{pricer: pricer}
}

func (h *PricingHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/api/v1/pricing/quote", h.Quote)
}

// Quote prices a prospective booking without reserving anything.
func (h *PricingHandler) Quote(c echo.Context) error {
	var req dto.QuoteRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	var loc *pricing.Location
	lt := models.LocationType(req.LocationType)
	if lt.Travels() || (lt == "" && strings.TrimSpace(req.AddressZip) != "") {
		loc = &pricing.Location{Street: req.AddressStreet, City: req.AddressCity, State: req.AddressState, Zip: req.AddressZip}
	}
	urgency := pricing.Urgency(req.Urgency)
	if urgency == "" {
		urgency = pricing.UrgencyStandard
	}

	res, err := h.pricer.Calculate(c.Request().Context(), strings.ToUpper(req.ServiceType), loc, pricing.Modifiers{
		Urgency:           urgency,
		DocumentCount:     req.DocumentCount,
		PromoCode:         req.PromoCode,
		FirstTimeCustomer: req.FirstTimeCustomer,
		CustomerEmail:     req.CustomerEmail,
		ServiceID:         req.ServiceID,
	})
	switch {
	case errors.Is(err, pricing.ErrInvalidServiceType):
		return echo.NewHTTPError(http.StatusBadRequest, "unknown service type").SetInternal(err)
	case errors.Is(err, pricing.ErrServiceAreaUnavailable):
		return echo.NewHTTPError(http.StatusBadGateway, "We couldn't check the service area right now. Please try again.").SetInternal(err)
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError).SetInternal(err)
	}

	return c.JSON(http.StatusOK, dto.ToQuoteResponse(res))
}
