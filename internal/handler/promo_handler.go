package handler

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/notarypros/booking-service/internal/dto"
	"github.com/notarypros/booking-service/internal/repository"
	"github.com/notarypros/booking-service/internal/service"
)

const (
	defaultPromoPage  = 1
	defaultPromoLimit = 20
	maxPromoLimit     = 100
)

type PromoHandler struct {
	svc service.PromoService
}

func NewPromoHandler(svc service.PromoService) *PromoHandler {
	return &PromoHandler{svc: svc}
}

// RegisterRoutes mounts the public validate endpoint and the admin routes
// behind guard.
func (h *PromoHandler) RegisterRoutes(e *echo.Echo, guard echo.MiddlewareFunc) {
	e.POST("/api/v1/promo-codes/validate", h.Validate)

	admin := e.Group("/api/v1/admin/promo-codes", guard)
	admin.POST("", h.Create)
	admin.GET("", h.List)
	admin.PATCH("/:id/deactivate", h.Deactivate)
}

func (h *PromoHandler) Validate(c echo.Context) error {
	var req dto.ValidatePromoRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	dec, err := h.svc.Validate(c.Request().Context(), req.Code, req.CustomerEmail, req.ServiceID, decimal.NewFromFloat(req.Subtotal))
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, dto.PromoValidationResponse{
		Valid:          dec.Valid,
		Reason:         dec.Reason,
		DiscountAmount: dto.Money(dec.DiscountAmount),
		Code:           dec.Code,
	})
}

func (h *PromoHandler) Create(c echo.Context) error {
	var req dto.CreatePromoCodeRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	promo, err := h.svc.Create(c.Request().Context(), req)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusCreated, dto.ToPromoCodeResponse(promo))
}

func (h *PromoHandler) List(c echo.Context) error {
	filter := repository.PromoFilter{Page: defaultPromoPage, Limit: defaultPromoLimit}
	if v := c.QueryParam("active"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "active must be true or false")
		}
		filter.Active = &active
	}
	if p, err := strconv.Atoi(c.QueryParam("page")); err == nil && p > 0 {
		filter.Page = p
	}
	if l, err := strconv.Atoi(c.QueryParam("limit")); err == nil && l > 0 {
		filter.Limit = min(l, maxPromoLimit)
	}

	promos, total, err := h.svc.List(c.Request().Context(), filter)
	if err != nil {
		return httpError(err)
	}

	resp := dto.PromoListResponse{
		PromoCodes: make([]dto.PromoCodeResponse, len(promos)),
		Total:      total,
		Page:       filter.Page,
		Limit:      filter.Limit,
	}
	for i := range promos {
		resp.PromoCodes[i] = dto.ToPromoCodeResponse(&promos[i])
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *PromoHandler) Deactivate(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid promo code id")
	}

	if err := h.svc.Deactivate(c.Request().Context(), id); err != nil {
		return httpError(err)
	}

	return c.NoContent(http.StatusNoContent)
}
