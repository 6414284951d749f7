package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echoMw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/notarypros/booking-service/config"
	"github.com/notarypros/booking-service/internal/consumer"
	"github.com/notarypros/booking-service/internal/crm"
	"github.com/notarypros/booking-service/internal/geo"
	"github.com/notarypros/booking-service/internal/handler"
	"github.com/notarypros/booking-service/internal/metrics"
	"github.com/notarypros/booking-service/internal/middleware"
	"github.com/notarypros/booking-service/internal/outbox"
	"github.com/notarypros/booking-service/internal/payments"
	"github.com/notarypros/booking-service/internal/pricing"
	"github.com/notarypros/booking-service/internal/repository"
	"github.com/notarypros/booking-service/internal/service"
	"github.com/notarypros/booking-service/internal/validation"
	"github.com/notarypros/booking-service/pkg/cache"
	"github.com/notarypros/booking-service/pkg/database"
	"github.com/notarypros/booking-service/pkg/logging"
	"github.com/notarypros/booking-service/pkg/rabbitmq"
)

const (
	catalogQueue = "booking-service.catalog"
	crmSyncQueue = "booking-service.crm-sync"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgresDB(cfg.DSN(), database.Options{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: 30 * time.Minute,
	})
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}

	businessTZ, err := time.LoadLocation(cfg.BusinessTimezone)
	if err != nil {
		logger.Warn("unknown business timezone, using UTC", "timezone", cfg.BusinessTimezone, "error", err)
		businessTZ = time.UTC
	}

	m := metrics.NewBookingMetrics(prometheus.DefaultRegisterer)

	// Service area: Google distance matrix behind a Redis cache
	redisClient := cache.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, logger)
	if redisClient != nil {
		defer redisClient.Close()
	}
	resolver := geo.NewResolver(
		geo.AreaConfig{
			BaseLocation:    cfg.BaseLocation,
			FreeRadiusMiles: cfg.FreeRadiusMiles,
			MaxRadiusMiles:  cfg.MaxRadiusMiles,
			PerMileRate:     cfg.PerMileRate,
		},
		geo.NewGoogleDistanceClient(cfg.GoogleMapsAPIKey, logger, geo.WithGoogleBaseURL(cfg.GoogleMapsBaseURL)),
		geo.NewDistanceCache(redisClient, cfg.DistanceTTL, logger),
		logger,
	)

	// Repositories
	bookingRepo := repository.NewBookingRepository(db)
	serviceRepo := repository.NewServiceRepository(db)
	userRepo := repository.NewUserRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	promoRepo := repository.NewPromoCodeRepository(db)

	// Pricing
	promoSvc := service.NewPromoService(promoRepo, logger, m)
	pricingCfg := pricing.DefaultConfig()
	pricingCfg.IncludedDocuments = cfg.IncludedDocuments
	pricingCfg.ExtraDocumentFee = cfg.ExtraDocumentFee
	pricingCfg.FirstTimeDiscountRate = cfg.FirstTimeDiscountRate
	pricingCfg.DepositThreshold = cfg.DepositThreshold
	pricingCfg.DepositPercentage = cfg.DepositPercentage
	pricingCfg.MinimumDeposit = cfg.MinimumDeposit
	engine := pricing.NewEngine(pricingCfg, resolver, promoSvc, logger, m)

	// Optional collaborators stay nil interfaces when unconfigured
	var processor service.PaymentProcessor
	if cfg.StripeSecretKey != "" {
		processor = payments.NewStripeClient(cfg.StripeSecretKey, logger).WithBaseURL(cfg.StripeBaseURL)
	} else {
		logger.Warn("STRIPE_SECRET_KEY not set, online payments disabled")
	}
	var crmClient service.CRMClient
	if cfg.GHLAPIKey != "" {
		crmClient = crm.NewClient(cfg.GHLAPIKey, cfg.GHLLocationID, logger).WithBaseURL(cfg.GHLBaseURL)
	} else {
		logger.Warn("GHL_API_KEY not set, CRM sync disabled")
	}
	var publisher service.EventPublisher
	if cfg.RabbitEnabled {
		pub, err := rabbitmq.NewPublisher(cfg.RabbitURL, logger)
		if err != nil {
			logger.Error("failed to connect RabbitMQ publisher", "error", err)
			os.Exit(1)
		}
		defer pub.Close()
		publisher = pub
	} else {
		logger.Warn("RABBITMQ_ENABLED is false, events and CRM retries disabled")
	}

	// Service
	bookingSvc := service.NewBookingService(service.Deps{
		Tx:        repository.NewTransactor(db),
		Bookings:  bookingRepo,
		Services:  serviceRepo,
		Users:     userRepo,
		Payments:  paymentRepo,
		Promos:    promoSvc,
		Pricing:   engine,
		CRM:       crmClient,
		Processor: processor,
		Publisher: publisher,
		Runner:    outbox.NewRunner(cfg.SideEffectTimeout, logger, m),
		Logger:    logger,
		Metrics:   m,
		Settings: service.Settings{
			Currency:         cfg.Currency,
			RescheduleFee:    cfg.RescheduleFee,
			RescheduleNotice: cfg.RescheduleNotice,
			Location:         businessTZ,
			CRMRetryAttempts: cfg.CRMRetryMaxAttempts,
		},
	})

	// RabbitMQ consumers: catalog sync and CRM retries
	if cfg.RabbitEnabled {
		catalogMQ, err := rabbitmq.NewConsumer(cfg.RabbitURL, catalogQueue, []string{consumer.CatalogBinding}, logger)
		if err != nil {
			logger.Error("failed to connect catalog consumer", "error", err)
			os.Exit(1)
		}
		defer catalogMQ.Close()
		msgs, err := catalogMQ.Consume()
		if err != nil {
			logger.Error("failed to start consuming", "queue", catalogQueue, "error", err)
			os.Exit(1)
		}
		consumer.NewCatalogConsumer(serviceRepo, logger, m).Start(ctx, msgs)

		crmMQ, err := rabbitmq.NewConsumer(cfg.RabbitURL, crmSyncQueue, []string{service.RouteCRMSync}, logger)
		if err != nil {
			logger.Error("failed to connect crm sync consumer", "error", err)
			os.Exit(1)
		}
		defer crmMQ.Close()
		crmMsgs, err := crmMQ.Consume()
		if err != nil {
			logger.Error("failed to start consuming", "queue", crmSyncQueue, "error", err)
			os.Exit(1)
		}
		consumer.NewCRMSyncConsumer(bookingSvc, publisher, cfg.CRMRetryMaxAttempts, logger, m).Start(ctx, crmMsgs)
	}

	// Echo
	e := echo.New()
	e.HideBanner = true
	e.Validator = validation.New()
	e.HTTPErrorHandler = middleware.ErrorHandler(logger)
	e.Use(echoMw.RequestID())
	e.Use(middleware.RequestLogger(logger, m))
	e.Use(echoMw.Recover())
	e.Use(echoMw.BodyLimit("1M"))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok", "service": "booking-service"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	staffOnly := middleware.APIKey(cfg.AdminAPIKey)
	handler.NewBookingHandler(bookingSvc).RegisterRoutes(e, staffOnly)
	handler.NewPricingHandler(engine).RegisterRoutes(e)
	handler.NewPromoHandler(promoSvc).RegisterRoutes(e, staffOnly)
	handler.NewWebhookHandler(bookingSvc, cfg.StripeWebhookSecret, logger).RegisterRoutes(e)

	go func() {
		logger.Info("booking service starting", "port", cfg.ServerPort)
		if err := e.Start(":" + cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
	logger.Info("booking service stopped")
}
