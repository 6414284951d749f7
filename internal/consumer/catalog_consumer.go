package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/notarypros/booking-service/internal/dto"
	"github.com/notarypros/booking-service/internal/metrics"
	"github.com/notarypros/booking-service/internal/models"
	"github.com/notarypros/booking-service/internal/repository"
	"github.com/notarypros/booking-service/pkg/logging"
)

// Catalog routing keys.
const (
	CatalogBinding       = "service.*"
	RouteServiceCreated  = "service.created"
	RouteServiceUpdated  = "service.updated"
	RouteServiceArchived = "service.archived"
)

// CatalogConsumer keeps the local service catalog in step with the admin side.
type CatalogConsumer struct {
	services repository.ServiceRepository
	logger   *logging.Logger
	metrics  *metrics.BookingMetrics
}

func NewCatalogConsumer(services repository.ServiceRepository, logger *logging.Logger, m *metrics.BookingMetrics) *CatalogConsumer {
	if logger == nil {
		logger = logging.Default()
	}
	return &CatalogConsumer{services: services, logger: logger.With("consumer", "catalog"), metrics: m}
}

// Start listens for messages and upserts service offerings into the local DB.
func (cc *CatalogConsumer) Start(ctx context.Context, msgs <-chan amqp.Delivery) {
	start(ctx, msgs, cc, cc.logger, cc.metrics)
}

func (cc *CatalogConsumer) name() string { return "catalog" }

func (cc *CatalogConsumer) handle(ctx context.Context, msg amqp.Delivery) Outcome {
	var in dto.ServiceOfferingMessage
	if err := json.Unmarshal(msg.Body, &in); err != nil {
		cc.logger.Error("failed to unmarshal", "routing_key", msg.RoutingKey, "error", err)
		return Drop
	}
	if strings.TrimSpace(in.ID) == "" {
		cc.logger.Warn("service message without id", "routing_key", msg.RoutingKey)
		return Drop
	}

	if msg.RoutingKey == RouteServiceArchived {
		return cc.archive(ctx, in.ID)
	}

	offering := toOffering(in)
	if err := cc.services.Upsert(ctx, offering); err != nil {
		cc.logger.Error("failed to upsert service", "service_id", in.ID, "error", err)
		return Requeue
	}

	cc.logger.Info("synced service", "service_id", offering.ID, "name", offering.Name, "active", offering.Active)
	return Ack
}

func (cc *CatalogConsumer) archive(ctx context.Context, id string) Outcome {
	offering, err := cc.services.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Ack
	}
	if err != nil {
		cc.logger.Error("failed to load service", "service_id", id, "error", err)
		return Requeue
	}
	offering.Active = false
	if err := cc.services.Upsert(ctx, offering); err != nil {
		cc.logger.Error("failed to archive service", "service_id", id, "error", err)
		return Requeue
	}
	cc.logger.Info("archived service", "service_id", id)
	return Ack
}

func toOffering(in dto.ServiceOfferingMessage) *models.ServiceOffering {
	return &models.ServiceOffering{
		ID:                in.ID,
		Name:              in.Name,
		Description:       in.Description,
		ServiceType:       strings.ToUpper(in.ServiceType),
		BasePrice:         decimal.NewFromFloat(in.BasePrice).Round(2),
		DurationMinutes:   in.DurationMinutes,
		RequiresDeposit:   in.RequiresDeposit,
		DepositAmount:     decimal.NewFromFloat(in.DepositAmount).Round(2),
		DepositPercentage: decimal.NewFromFloat(in.DepositPercentage).Round(2),
		Active:            in.Active,
	}
}
