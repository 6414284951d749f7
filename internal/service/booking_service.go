package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/notarypros/booking-service/internal/crm"
	"github.com/notarypros/booking-service/internal/dto"
	"github.com/notarypros/booking-service/internal/metrics"
	"github.com/notarypros/booking-service/internal/models"
	"github.com/notarypros/booking-service/internal/outbox"
	"github.com/notarypros/booking-service/internal/payments"
	"github.com/notarypros/booking-service/internal/pricing"
	"github.com/notarypros/booking-service/internal/repository"
	"github.com/notarypros/booking-service/internal/validation"
	"github.com/notarypros/booking-service/pkg/logging"
)

const paymentProvider = "stripe"

// Settings are the business knobs the orchestrator reads.
type Settings struct {
	Currency         string
	RescheduleFee    decimal.Decimal
	RescheduleNotice time.Duration
	Location         *time.Location
	CRMRetryAttempts int
}

// Deps wires the orchestrator. CRM, Processor and Publisher are optional; a
// nil collaborator skips its post-commit task.
type Deps struct {
	Tx        repository.Transactor
	Bookings  repository.BookingRepository
	Services  repository.ServiceRepository
	Users     repository.UserRepository
	Payments  repository.PaymentRepository
	Promos    PromoService
	Pricing   Pricer
	CRM       CRMClient
	Processor PaymentProcessor
	Publisher EventPublisher
	Runner    *outbox.Runner
	Validator *validation.Validator
	Logger    *logging.Logger
	Metrics   *metrics.BookingMetrics
	Settings  Settings
	Now       func() time.Time
}

type CreateOptions struct {
	// UserID is the authenticated customer, if any. Guests are matched by email.
	UserID *uuid.UUID
	Source string
	// SkipPayment books without creating a payment intent, for staff entry.
	SkipPayment bool
}

type PaymentInfo struct {
	ClientSecret string
	Amount       decimal.Decimal
	Required     bool
}

// BookingResult is the outcome of CreateBooking. Success is true exactly when
// Booking is set; otherwise Error or ValidationErrors explain why.
type BookingResult struct {
	Success          bool
	Booking          *models.Booking
	Pricing          *pricing.Result
	Payment          *PaymentInfo
	CRMContact       *crm.ContactRef
	Warnings         []string
	Error            string
	ErrorKind        Kind
	ValidationErrors []validation.FieldError
}

type BookingService interface {
	CreateBooking(ctx context.Context, req dto.CreateBookingRequest, opts CreateOptions) *BookingResult
	GetBooking(ctx context.Context, id uuid.UUID) (*models.Booking, error)
	ListBookings(ctx context.Context, filter repository.BookingFilter) ([]models.Booking, error)
	Reschedule(ctx context.Context, req dto.RescheduleRequest) (*RescheduleResult, error)
	PreviewReschedule(ctx context.Context, bookingID uuid.UUID, proposed *time.Time) (*ReschedulePreview, error)
	CancelBooking(ctx context.Context, id uuid.UUID, req dto.CancelBookingRequest) (*CancelResult, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.BookingStatus) (*models.Booking, error)
	HandlePaymentEvent(ctx context.Context, event *payments.Event) error
	SyncCRM(ctx context.Context, bookingID uuid.UUID, tags []string) error
}

type bookingService struct {
	Deps
}

func NewBookingService(deps Deps) BookingService {
	if deps.Logger == nil {
		deps.Logger = logging.Default()
	}
	if deps.Validator == nil {
		deps.Validator = validation.New()
	}
	if deps.Runner == nil {
		deps.Runner = outbox.NewRunner(0, deps.Logger, deps.Metrics)
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Settings.Currency == "" {
		deps.Settings.Currency = "usd"
	}
	if deps.Settings.RescheduleNotice <= 0 {
		deps.Settings.RescheduleNotice = 24 * time.Hour
	}
	if deps.Settings.Location == nil {
		deps.Settings.Location = time.UTC
	}
	if deps.Settings.CRMRetryAttempts <= 0 {
		deps.Settings.CRMRetryAttempts = 5
	}
	return &bookingService{Deps: deps}
}

func (s *bookingService) CreateBooking(ctx context.Context, req dto.CreateBookingRequest, opts CreateOptions) *BookingResult {
	start := s.Now()
	res := s.createBooking(ctx, req, opts)
	outcome := string(res.ErrorKind)
	if res.Success {
		outcome = string(res.Booking.Status)
	}
	s.Metrics.ObserveBooking(outcome, s.Now().Sub(start).Seconds())
	return res
}

func (s *bookingService) createBooking(ctx context.Context, req dto.CreateBookingRequest, opts CreateOptions) *BookingResult {
	// 1. Schema validation
	if fields := s.Validator.Fields(req); len(fields) > 0 {
		return &BookingResult{Error: ErrValidation.Error(), ErrorKind: KindValidation, ValidationErrors: fields}
	}
	scheduled, err := time.Parse(time.RFC3339, req.ScheduledDateTime)
	if err != nil {
		return invalidField("scheduledDateTime", "must be an ISO-8601 date and time")
	}
	if !scheduled.After(s.Now()) {
		return invalidField("scheduledDateTime", "must be in the future")
	}

	// 2. Service lookup
	offering, err := s.Services.FindActiveByID(ctx, req.ServiceID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return s.fail(ErrServiceUnavailable)
	}
	if err != nil {
		return s.fail(fmt.Errorf("find service: %w", err))
	}

	// 3. Pricing
	urgency := pricing.Urgency(req.Urgency)
	if urgency == "" {
		urgency = pricing.UrgencyStandard
	}
	locationType := models.LocationType(req.LocationType)
	var loc *pricing.Location
	if locationType.Travels() {
		loc = &pricing.Location{Street: req.AddressStreet, City: req.AddressCity, State: req.AddressState, Zip: req.AddressZip}
	}
	quote, err := s.Pricing.Calculate(ctx, offering.ServiceType, loc, pricing.Modifiers{
		Urgency:           urgency,
		DocumentCount:     req.DocumentCount,
		PromoCode:         req.PromoCode,
		FirstTimeCustomer: req.FirstTimeCustomer,
		CustomerEmail:     req.CustomerEmail,
		ServiceID:         offering.ID,
		Catalog: &pricing.CatalogTerms{
			BasePrice:       offering.BasePrice,
			RequiresDeposit: offering.RequiresDeposit,
			DepositAmount:   offering.DepositAmount,
			DepositPercent:  offering.DepositPercentage,
		},
	})
	if err != nil {
		return s.fail(fmt.Errorf("%w: %v", ErrPricingUnavailable, err))
	}

	// 4. Signed-in customer
	var userID *uuid.UUID
	if opts.UserID != nil {
		user, err := s.Users.FindByID(ctx, *opts.UserID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return s.fail(ErrUnknownUser)
		}
		if err != nil {
			return s.fail(fmt.Errorf("find user: %w", err))
		}
		userID = &user.ID
	}

	booking := &models.Booking{
		ID:                uuid.New(),
		ServiceID:         offering.ID,
		UserID:            userID,
		ScheduledDateTime: scheduled.UTC(),
		CustomerName:      strings.TrimSpace(req.CustomerName),
		CustomerEmail:     strings.ToLower(strings.TrimSpace(req.CustomerEmail)),
		CustomerPhone:     req.CustomerPhone,
		LocationType:      locationType,
		AddressStreet:     req.AddressStreet,
		AddressCity:       req.AddressCity,
		AddressState:      req.AddressState,
		AddressZip:        req.AddressZip,
		LocationNotes:     req.LocationNotes,
		NumberOfSigners:   max(req.NumberOfSigners, 1),
		DocumentCount:     req.DocumentCount,
		Urgency:           string(urgency),
		BasePrice:         quote.BasePrice,
		TravelFee:         quote.TravelFee,
		UrgencyFee:        quote.UrgencyFee,
		DocumentFee:       quote.DocumentFee,
		Subtotal:          quote.Subtotal,
		FirstTimeDiscount: quote.FirstTimeDiscount,
		PromoCodeID:       quote.PromoCodeID,
		PromoCode:         quote.AppliedPromoCode,
		PromoDiscount:     quote.PromoDiscount,
		RescheduleFees:    decimal.Zero,
		PriceAtBooking:    quote.TotalPrice,
		DepositRequired:   quote.DepositRequired,
		DepositAmount:     quote.DepositAmount,
		Notes:             req.Notes,
		Source:            firstNonEmpty(opts.Source, req.Source, dto.SourceWebsite),
		LeadSource:        req.LeadSource,
		CampaignName:      req.CampaignName,
		ReferredBy:        req.ReferredBy,
		Service:           offering,
	}
	if req.GHLContactID != "" {
		id := req.GHLContactID
		booking.CRMContactID = &id
	}
	if quote.TotalPrice.IsPositive() {
		booking.Status = models.StatusPaymentPending
		booking.DepositStatus = models.PaymentPending
	} else {
		booking.Status = models.StatusConfirmed
		booking.DepositStatus = models.PaymentCompleted
	}

	// 5. Transactional core: slot check, guest customer, booking, promo
	// redemption, pending payment row
	var (
		payment    *models.Payment
		newGuestID *uuid.UUID
	)
	err = s.Tx.WithinTransaction(ctx, func(tx *gorm.DB) error {
		taken, err := s.Bookings.ExistsActiveAt(ctx, tx, booking.ScheduledDateTime, uuid.Nil)
		if err != nil {
			return fmt.Errorf("check slot: %w", err)
		}
		if taken {
			return ErrSlotUnavailable
		}
		if booking.UserID == nil {
			user, created, err := s.Users.FindOrCreateByEmail(ctx, tx, req.CustomerName, req.CustomerEmail, req.CustomerPhone)
			if err != nil {
				return fmt.Errorf("resolve guest customer: %w", err)
			}
			booking.UserID = &user.ID
			if created {
				newGuestID = &user.ID
			}
		}
		if err := s.Bookings.Create(ctx, tx, booking); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrSlotUnavailable
			}
			return fmt.Errorf("create booking: %w", err)
		}
		if booking.PromoCodeID != nil {
			if err := s.Promos.Redeem(ctx, tx, Redemption{
				PromoCodeID:    *booking.PromoCodeID,
				Code:           booking.PromoCode,
				CustomerEmail:  booking.CustomerEmail,
				ServiceID:      booking.ServiceID,
				BookingID:      booking.ID,
				Subtotal:       booking.Subtotal,
				DiscountAmount: booking.PromoDiscount,
			}); err != nil {
				return err
			}
		}
		if due := booking.AmountDue(); due.IsPositive() && !opts.SkipPayment {
			payment = &models.Payment{
				ID:             uuid.New(),
				BookingID:      booking.ID,
				Purpose:        models.PurposeBooking,
				Provider:       paymentProvider,
				Amount:         due,
				Currency:       s.Settings.Currency,
				Status:         models.PaymentPending,
				RefundedAmount: decimal.Zero,
			}
			if err := s.Payments.Create(ctx, tx, payment); err != nil {
				return fmt.Errorf("create payment: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return s.fail(err)
	}

	if newGuestID != nil {
		s.Logger.Info("guest customer created", "user_id", *newGuestID, "customer", logging.MaskEmail(booking.CustomerEmail))
	}
	s.Logger.Info("booking created",
		"booking_id", booking.ID,
		"service_id", booking.ServiceID,
		"status", booking.Status,
		"total", booking.PriceAtBooking.StringFixed(2),
		"promo", booking.PromoCode,
		"customer", logging.MaskEmail(booking.CustomerEmail),
	)

	// 6. Best-effort side effects
	res := &BookingResult{Success: true, Booking: booking, Pricing: quote}
	if payment != nil {
		res.Payment = &PaymentInfo{Amount: payment.Amount, Required: true}
	}
	s.afterCreate(ctx, res, payment)
	return res
}

func (s *bookingService) afterCreate(ctx context.Context, res *BookingResult, payment *models.Payment) {
	b := res.Booking
	var tasks []outbox.Task

	if s.CRM != nil {
		tags := []string{"status:booking_created", "service:" + strings.ToLower(b.Service.ServiceType)}
		if b.Status == models.StatusPaymentPending {
			tags = append(tags, "status:booking_pendingpayment")
		} else {
			tags = append(tags, "status:booking_confirmed")
		}
		tasks = append(tasks, s.crmTask(b, tags, func(ref crm.ContactRef) { res.CRMContact = &ref }))
	}

	if payment != nil {
		if s.Processor != nil {
			tasks = append(tasks, s.intentTask(b, payment, func(intent *payments.Intent) {
				res.Payment.ClientSecret = intent.ClientSecret
			}))
		} else {
			res.Warnings = append(res.Warnings, "online payment is not configured; the balance will be collected separately")
		}
	}

	if s.Publisher != nil {
		tasks = append(tasks, s.publishTask(RouteBookingCreated, newBookingEvent(b, "", s.Now())))
	}

	for _, o := range outbox.Failed(s.Runner.Run(ctx, tasks...)) {
		res.Warnings = append(res.Warnings, warningFor(o.Task))
	}
}

// crmTask pushes the booking to the CRM. A failure is queued for the retry
// consumer when a publisher is wired.
func (s *bookingService) crmTask(b *models.Booking, tags []string, onSynced func(crm.ContactRef)) outbox.Task {
	return outbox.Task{
		Name: "crm.sync",
		Run: func(ctx context.Context) error {
			ref, err := s.pushContact(ctx, b, tags)
			if err != nil {
				return err
			}
			if onSynced != nil {
				onSynced(ref)
			}
			return nil
		},
		OnFailure: func(ctx context.Context, err error) {
			s.queueCRMRetry(b.ID, tags, 1)
		},
	}
}

func (s *bookingService) queueCRMRetry(bookingID uuid.UUID, tags []string, attempt int) {
	if s.Publisher == nil {
		return
	}
	msg := CRMSyncMessage{BookingID: bookingID, Attempt: attempt, Tags: tags}
	if err := s.Publisher.Publish(RouteCRMSync, msg); err != nil {
		s.Logger.Error("queue crm retry failed", "booking_id", bookingID, "error", err)
	}
}

func (s *bookingService) intentTask(b *models.Booking, p *models.Payment, onCreated func(*payments.Intent)) outbox.Task {
	return outbox.Task{
		Name: "payment.intent",
		Run: func(ctx context.Context) error {
			intent, err := s.Processor.CreatePaymentIntent(ctx, payments.IntentParams{
				AmountCents: pricing.ToCents(p.Amount),
				Currency:    p.Currency,
				CustomerRef: b.CustomerEmail,
				Metadata: map[string]string{
					"booking_id": b.ID.String(),
					"payment_id": p.ID.String(),
					"purpose":    string(p.Purpose),
					"service_id": b.ServiceID,
				},
				IdempotencyKey: b.ID.String() + ":" + string(p.Purpose) + ":" + p.ID.String(),
			})
			if err != nil {
				return err
			}
			if err := s.Payments.AttachIntent(ctx, p.ID, intent.ID); err != nil {
				return fmt.Errorf("attach payment intent: %w", err)
			}
			id := intent.ID
			p.ProviderPaymentID = &id
			if onCreated != nil {
				onCreated(intent)
			}
			return nil
		},
	}
}

func (s *bookingService) publishTask(routingKey string, payload any) outbox.Task {
	return outbox.Task{
		Name: "event.publish",
		Run: func(ctx context.Context) error {
			return s.Publisher.Publish(routingKey, payload)
		},
	}
}

// SyncCRM pushes a stored booking to the CRM again. The retry consumer calls it.
func (s *bookingService) SyncCRM(ctx context.Context, bookingID uuid.UUID, tags []string) error {
	if s.CRM == nil {
		return nil
	}
	b, err := s.GetBooking(ctx, bookingID)
	if err != nil {
		return err
	}
	if len(tags) == 0 {
		tags = []string{statusTag(b.Status)}
	}
	_, err = s.pushContact(ctx, b, tags)
	return err
}

func (s *bookingService) pushContact(ctx context.Context, b *models.Booking, tags []string) (crm.ContactRef, error) {
	first, last := splitName(b.CustomerName)
	ref, err := s.CRM.UpsertContact(ctx, crm.Contact{
		FirstName: first,
		LastName:  last,
		Email:     b.CustomerEmail,
		Phone:     b.CustomerPhone,
		Source:    firstNonEmpty(b.LeadSource, b.Source),
	})
	if err != nil {
		return crm.ContactRef{}, fmt.Errorf("upsert contact: %w", err)
	}
	if len(tags) > 0 {
		if err := s.CRM.AddTags(ctx, ref.ID, tags); err != nil {
			return ref, fmt.Errorf("add tags: %w", err)
		}
	}
	if err := s.CRM.UpdateCustomFields(ctx, ref.ID, s.customFields(b)); err != nil {
		return ref, fmt.Errorf("update custom fields: %w", err)
	}
	if b.CRMContactID == nil || *b.CRMContactID != ref.ID {
		if err := s.Bookings.SetCRMContactID(ctx, b.ID, ref.ID); err != nil {
			return ref, fmt.Errorf("store contact id: %w", err)
		}
		id := ref.ID
		b.CRMContactID = &id
	}
	return ref, nil
}

func (s *bookingService) customFields(b *models.Booking) map[string]string {
	local := b.ScheduledDateTime.In(s.Settings.Location)
	serviceType := ""
	if b.Service != nil {
		serviceType = b.Service.ServiceType
	}
	return map[string]string{
		"cf_booking_id":       b.ID.String(),
		"cf_service_type":     serviceType,
		"cf_booking_status":   string(b.Status),
		"cf_appointment_date": local.Format("2006-01-02"),
		"cf_appointment_time": local.Format("3:04 PM"),
		"cf_total_amount":     b.PriceAtBooking.StringFixed(2),
		"cf_deposit_amount":   b.DepositAmount.StringFixed(2),
		"cf_location_type":    string(b.LocationType),
		"cf_promo_code":       b.PromoCode,
		"cf_lead_source":      firstNonEmpty(b.LeadSource, b.Source),
	}
}

func (s *bookingService) GetBooking(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	b, err := s.Bookings.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find booking: %w", err)
	}
	return b, nil
}

func (s *bookingService) ListBookings(ctx context.Context, filter repository.BookingFilter) ([]models.Booking, error) {
	return s.Bookings.List(ctx, filter)
}

// fail turns an error into a failed result. Internal causes are logged and
// replaced with a generic message.
func (s *bookingService) fail(err error) *BookingResult {
	kind := KindOf(err)
	if kind == KindInternal || kind == KindUpstream {
		s.Logger.Error("booking creation failed", "kind", kind, "error", err)
	} else {
		s.Logger.Info("booking rejected", "kind", kind, "reason", err.Error())
	}
	return &BookingResult{Error: PublicMessage(err), ErrorKind: kind}
}

func invalidField(field, msg string) *BookingResult {
	return &BookingResult{
		Error:            ErrValidation.Error(),
		ErrorKind:        KindValidation,
		ValidationErrors: []validation.FieldError{{Field: field, Message: msg}},
	}
}

func warningFor(task string) string {
	switch task {
	case "crm.sync":
		return "customer record sync failed and will be retried"
	case "payment.intent":
		return "payment could not be started; we will contact you to collect payment"
	case "refund":
		return "refund could not be issued automatically; staff will process it"
	default:
		return task + " failed"
	}
}

func splitName(name string) (first, last string) {
	parts := strings.Fields(name)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
