package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/notarypros/booking-service/internal/dto"
	"github.com/notarypros/booking-service/internal/models"
	"github.com/notarypros/booking-service/internal/repository"
	"github.com/notarypros/booking-service/internal/service"
)

type BookingHandler struct {
	svc service.BookingService
}

func NewBookingHandler(svc service.BookingService) *BookingHandler {
	return &BookingHandler{svc: svc}
}

// RegisterRoutes mounts the booking API. Staff routes go through guard.
func (h *BookingHandler) RegisterRoutes(e *echo.Echo, guard echo.MiddlewareFunc) {
	bookings := e.Group("/api/v1/bookings")
	bookings.POST("", h.CreateBooking)
	bookings.GET("", h.ListBookings, guard)
	bookings.POST("/reschedule", h.Reschedule, guard)
	bookings.GET("/reschedule", h.PreviewReschedule, guard)
	bookings.GET("/:id", h.GetBooking, guard)
	bookings.POST("/:id/cancel", h.CancelBooking)
	bookings.POST("/:id/status", h.UpdateStatus, guard)

	admin := e.Group("/api/v1/admin/bookings", guard)
	admin.POST("/:id/cancel", h.StaffCancelBooking)
}

func (h *BookingHandler) CreateBooking(c echo.Context) error {
	var req dto.CreateBookingRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.CreateBookingResponse{Error: "invalid request body"})
	}

	res := h.svc.CreateBooking(c.Request().Context(), req, service.CreateOptions{Source: req.Source})
	if !res.Success {
		resp := dto.CreateBookingResponse{Error: res.Error}
		for _, fe := range res.ValidationErrors {
			resp.ValidationErrors = append(resp.ValidationErrors, dto.FieldErrorResponse{Field: fe.Field, Message: fe.Message})
		}
		return c.JSON(statusFor(res.ErrorKind), resp)
	}

	booking := dto.ToBookingResponse(res.Booking)
	resp := dto.CreateBookingResponse{Success: true, Booking: &booking, Warnings: res.Warnings}
	if res.Payment != nil {
		resp.Payment = &dto.PaymentResponse{
			ClientSecret: res.Payment.ClientSecret,
			Amount:       dto.Money(res.Payment.Amount),
			Required:     res.Payment.Required,
		}
	}
	if res.CRMContact != nil {
		resp.GHLContact = &dto.ContactResponse{ID: res.CRMContact.ID, Created: res.CRMContact.Created}
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *BookingHandler) GetBooking(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid booking id")
	}

	booking, err := h.svc.GetBooking(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, dto.ToBookingResponse(booking))
}

func (h *BookingHandler) ListBookings(c echo.Context) error {
	var filter repository.BookingFilter
	if s := c.QueryParam("status"); s != "" {
		status := models.BookingStatus(strings.ToUpper(s))
		if !status.Valid() {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid status")
		}
		filter.Status = &status
	}
	filter.CustomerEmail = c.QueryParam("email")
	for param, dst := range map[string]**time.Time{"from": &filter.From, "to": &filter.To} {
		if v := c.QueryParam(param); v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, "invalid "+param+" time")
			}
			*dst = &t
		}
	}
	filter.Limit, _ = strconv.Atoi(c.QueryParam("limit"))
	filter.Offset, _ = strconv.Atoi(c.QueryParam("offset"))

	bookings, err := h.svc.ListBookings(c.Request().Context(), filter)
	if err != nil {
		return httpError(err)
	}

	resp := make([]dto.BookingResponse, len(bookings))
	for i := range bookings {
		resp[i] = dto.ToBookingResponse(&bookings[i])
	}

	return c.JSON(http.StatusOK, resp)
}

func (h *BookingHandler) Reschedule(c echo.Context) error {
	var req dto.RescheduleRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.svc.Reschedule(c.Request().Context(), req)
	if err != nil {
		return httpError(err)
	}

	msg := "Booking rescheduled to " + res.Booking.ScheduledDateTime.Format(time.RFC1123)
	if res.Fee.IsPositive() {
		msg += " (reschedule fee: $" + res.Fee.StringFixed(2) + ")"
	}
	resp := dto.RescheduleResponse{
		Success:            true,
		Booking:            dto.ToBookingResponse(res.Booking),
		OriginalDateTime:   res.OriginalDateTime,
		RescheduleFee:      dto.Money(res.Fee),
		HoursUntilOriginal: res.HoursUntilOriginal,
		Message:            msg,
		Warnings:           res.Warnings,
	}
	if res.Payment != nil {
		resp.Payment = &dto.PaymentResponse{
			ClientSecret: res.Payment.ClientSecret,
			Amount:       dto.Money(res.Payment.Amount),
			Required:     res.Payment.Required,
		}
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *BookingHandler) PreviewReschedule(c echo.Context) error {
	id, err := uuid.Parse(c.QueryParam("bookingId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "bookingId is required")
	}
	var proposed *time.Time
	if v := c.QueryParam("dateTime"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "dateTime must be an ISO-8601 date-time")
		}
		proposed = &t
	}

	preview, err := h.svc.PreviewReschedule(c.Request().Context(), id, proposed)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, dto.ReschedulePreviewResponse{
		CanReschedule:  preview.CanReschedule,
		Reasons:        preview.Reasons,
		Fee:            dto.Money(preview.Fee),
		CurrentStatus:  string(preview.CurrentStatus),
		CurrentTime:    preview.CurrentTime,
		SuggestedTimes: preview.SuggestedTimes,
	})
}

// CancelBooking is the customer's cancellation. The fee always applies.
func (h *BookingHandler) CancelBooking(c echo.Context) error {
	return h.cancel(c, cancelledByClient)
}

// StaffCancelBooking cancels on behalf of the business and may waive the fee.
func (h *BookingHandler) StaffCancelBooking(c echo.Context) error {
	return h.cancel(c, cancelledByStaff)
}

const (
	cancelledByClient = "client"
	cancelledByStaff  = "staff"
)

func (h *BookingHandler) cancel(c echo.Context, requestedBy string) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid booking id")
	}
	var req dto.CancelBookingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	// The route decides who is cancelling, never the body.
	req.RequestedBy = requestedBy
	if requestedBy != cancelledByStaff {
		req.WaiveFee = false
	}
	if err := validate(c, &req); err != nil {
		return err
	}

	res, err := h.svc.CancelBooking(c.Request().Context(), id, req)
	if err != nil {
		return httpError(err)
	}

	msg := "Booking cancelled"
	if res.Refund.NetRefund.IsPositive() {
		msg += "; a refund of $" + res.Refund.NetRefund.StringFixed(2) + " will be issued by " + res.Refund.RefundDeadline.Format("January 2, 2006")
	}
	return c.JSON(http.StatusOK, dto.CancelBookingResponse{
		Success: true,
		Booking: dto.ToBookingResponse(res.Booking),
		Refund: dto.RefundQuoteResponse{
			TotalPaid:       dto.Money(res.Refund.TotalPaid),
			CancellationFee: dto.Money(res.Refund.CancellationFee),
			ProcessingFee:   dto.Money(res.Refund.ProcessingFee),
			NetRefund:       dto.Money(res.Refund.NetRefund),
			RefundDeadline:  res.Refund.RefundDeadline,
		},
		Message:  msg,
		Warnings: res.Warnings,
	})
}

func (h *BookingHandler) UpdateStatus(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid booking id")
	}
	var req dto.UpdateStatusRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	booking, err := h.svc.UpdateStatus(c.Request().Context(), id, models.BookingStatus(req.Status))
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, dto.ToBookingResponse(booking))
}
