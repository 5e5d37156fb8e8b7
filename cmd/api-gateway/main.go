package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	_ "github.com/noah-isme/hostel-booking-api/api/swagger"
	"github.com/noah-isme/hostel-booking-api/internal/repository"
	"github.com/noah-isme/hostel-booking-api/internal/schema"
	"github.com/noah-isme/hostel-booking-api/internal/service"
	"github.com/noah-isme/hostel-booking-api/pkg/cache"
	"github.com/noah-isme/hostel-booking-api/pkg/config"
	"github.com/noah-isme/hostel-booking-api/pkg/database"
	"github.com/noah-isme/hostel-booking-api/pkg/jobs"
	"github.com/noah-isme/hostel-booking-api/pkg/logger"
	"github.com/noah-isme/hostel-booking-api/pkg/notify"
)

// @title Hostel Booking API
// @version 1.0.0
// @description Booking intake, payments, check-in and collection reports for student hostels
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, summaries will not be cached", zap.Error(err))
		redisClient = nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := service.NewMetricsService()
	validate := validator.New()
	resolver := schema.NewAdapter(db, logr)
	if _, err := resolver.Resolve(ctx); err != nil {
		logr.Fatal("failed to inspect database schema", zap.Error(err))
	}

	tx := database.NewTxManager(db, cfg.Database.TxRetries, logr,
		database.WithRetryOnConstraint("bookings_verification_code_key", "students_email_key"),
		database.WithRetryHook(metrics.RecordTxRetry),
	)

	rooms := repository.NewRoomRepository(db, resolver)
	semesters := repository.NewSemesterRepository(db, resolver)
	bookings := repository.NewBookingRepository(db)
	bookingPayments := repository.NewBookingPaymentRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db, resolver)
	residents := repository.NewResidentRepository(db, resolver)
	reconRepo := repository.NewReconciliationRepository(db, resolver)

	var cacheRepo service.CacheRepository
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient)
		defer redisClient.Close()
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Reconciliation.CacheTTL, logr, cfg.Reconciliation.CacheEnabled)

	notifications := service.NewNotificationService(buildPublisher(cfg.Notifications, logr), metrics, logr)
	if cfg.Notifications.Enabled {
		queue := jobs.NewQueue("notifications", notifications.Handle, jobs.QueueConfig{
			Workers:    cfg.Notifications.Workers,
			MaxRetries: cfg.Notifications.Retries,
			RetryDelay: cfg.Notifications.RetryDelay,
			Logger:     logr,
			OnGiveUp:   notifications.GiveUp,
		})
		queue.Start(ctx)
		defer queue.Stop()
		notifications.UseQueue(queue)
	}

	reconciliation := service.NewReconciliationService(reconRepo, semesters, cacheSvc, cfg.Reconciliation.CacheTTL, logr)
	capacity := service.NewCapacityService(rooms, semesters, metrics, logr)
	registration := service.NewRegistrationService(service.RegistrationServiceParams{
		Schema:             resolver,
		Residents:          residents,
		Payments:           bookingPayments,
		Ledger:             ledgerRepo,
		Occupancy:          capacity,
		TempPasswordLength: cfg.Registration.TempPasswordLength,
		Metrics:            metrics,
		Logger:             logr,
	})
	ledger := service.NewLedgerService(service.LedgerServiceParams{
		Tx:          tx,
		Schema:      resolver,
		Bookings:    bookings,
		Payments:    bookingPayments,
		Ledger:      ledgerRepo,
		Residents:   residents,
		Semesters:   semesters,
		Notifier:    notifications,
		Invalidator: reconciliation,
		Metrics:     metrics,
		Validator:   validate,
		Logger:      logr,
	})
	bookingSvc := service.NewBookingService(service.BookingServiceParams{
		Tx:           tx,
		Bookings:     bookings,
		Payments:     bookingPayments,
		Semesters:    semesters,
		Capacity:     capacity,
		Ledger:       ledger,
		Registration: registration,
		Notifier:     notifications,
		Invalidator:  reconciliation,
		Metrics:      metrics,
		Validator:    validate,
		Logger:       logr,
		Config:       cfg.Booking,
	})
	semesterSvc := service.NewSemesterService(tx, resolver, semesters, reconciliation, logr)

	router := newRouter(cfg, logr, routerDeps{
		db:             db,
		metrics:        metrics,
		tokens:         service.NewTokenVerifier(cfg.JWT.Secret, cfg.JWT.Issuer),
		bookings:       bookingSvc,
		ledger:         ledger,
		reconciliation: reconciliation,
		capacity:       capacity,
		semesters:      semesterSvc,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
}

func buildPublisher(cfg config.NotificationConfig, logr *zap.Logger) notify.Publisher {
	if !cfg.Enabled {
		return notify.Nop{}
	}
	var publishers notify.Multi
	if cfg.AMQPURL != "" {
		publishers = append(publishers, notify.NewAMQPPublisher(cfg.AMQPURL, cfg.Queue, logr))
	}
	if cfg.WebhookURL != "" {
		publishers = append(publishers, notify.NewWebhookPublisher(cfg.WebhookURL, 5*time.Second))
	}
	if len(publishers) == 0 {
		logr.Warn("notifications enabled without a transport")
		return notify.Nop{}
	}
	return publishers
}
