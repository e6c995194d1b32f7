package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"tiffin-api/internal/api"
	"tiffin-api/internal/config"
	"tiffin-api/internal/database"
	"tiffin-api/internal/metrics"
	"tiffin-api/internal/middleware"
	"tiffin-api/internal/queue"
	"tiffin-api/internal/scheduler"
	"tiffin-api/internal/services"
	"tiffin-api/pkg/logging"
	"tiffin-api/pkg/timewindow"
)

func main() {
	// Initialize configuration
	if err := config.InitConfig(); err != nil {
		log.Fatal("Failed to initialize config:", err)
	}
	cfg := config.AppConfig

	// Initialize logging
	if err := logging.InitLogging(cfg.Mode, cfg.LogLevel); err != nil {
		log.Fatal("Failed to initialize logging:", err)
	}
	defer logging.Sync()

	// Initialize database
	if err := database.InitDatabase(); err != nil {
		log.Fatal("Failed to initialize database:", err)
	}

	tw, err := timewindow.Load(cfg.BusinessTimezone)
	if err != nil {
		log.Fatal("Failed to load business timezone:", err)
	}
	store := database.NewStore(database.GetDB())

	// Locks and order numbers: redis when configured, in-process otherwise
	var (
		locker  services.Locker
		numbers services.OrderNumberGenerator
		checks  = map[string]func(ctx context.Context) error{
			"database": func(ctx context.Context) error {
				sqlDB, err := store.DB().DB()
				if err != nil {
					return err
				}
				return sqlDB.PingContext(ctx)
			},
		}
	)
	if rdb := database.GetRedis(); rdb != nil {
		redisService := services.NewRedisService(rdb, tw)
		locker, numbers = redisService, redisService
		checks["redis"] = redisService.Ping
	} else {
		logging.Warnf("Redis disabled, using in-process locks and snowflake order numbers")
		locker = services.NewLocalLocker()
		snowflakeNumbers, err := services.NewSnowflakeNumbers(cfg.SnowflakeNode)
		if err != nil {
			log.Fatal("Failed to create order number generator:", err)
		}
		numbers = snowflakeNumbers
	}

	// Observers
	collectors := metrics.New(nil)
	observers := services.Observers{services.LoggingObserver{}, collectors}
	var reports *services.BatchReportObserver
	if cfg.EmailReportsEnabled() {
		reports = services.NewBatchReportObserver(
			services.NewBrevoService(cfg.BrevoAPIKey, cfg.BrevoFromEmail, cfg.BrevoFromName, cfg.ReportEmail))
		observers = append(observers, reports)
	}

	// Order side effects
	var (
		listeners []services.OrderListener
		producer  *queue.Producer
		webhook   *services.WebhookNotifier
	)
	if len(cfg.KafkaBrokers) > 0 {
		producer = queue.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		listeners = append(listeners, producer)
		logging.Infof("Publishing order events to Kafka topic %s", cfg.KafkaTopic)
	}
	if cfg.OrderWebhookURL != "" {
		webhook = services.NewWebhookNotifier(cfg.OrderWebhookURL, cfg.OrderWebhookSecret)
		listeners = append(listeners, webhook)
	}

	orderService, err := services.NewOrderCreationService(services.OrderCreationOptions{
		Subscriptions:  store,
		DailyMeals:     store,
		Orders:         store,
		Logs:           store,
		OrderNumbers:   numbers,
		Locker:         locker,
		Observer:       observers,
		Listeners:      listeners,
		TimeWindow:     tw,
		DefaultCountry: cfg.DefaultCountry,
		BatchLockTTL:   cfg.BatchLockTTL,
	})
	if err != nil {
		log.Fatal("Failed to create order creation service:", err)
	}
	expiryService := services.NewSubscriptionExpiryService(store, tw, collectors)
	dailyJob := services.NewDailyOrderJob(store, orderService, tw, cfg.OrderLeadDays)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Register scheduled tasks
	sched := scheduler.New(scheduler.Config{
		Enabled:  cfg.SchedulerEnabled,
		Location: tw.Location(),
		Jobs: []scheduler.Job{
			{Name: scheduler.JobDailyOrders, Schedule: cfg.OrderCron, Run: dailyJob.Run},
			{
				Name:     scheduler.JobSubscriptionSweep,
				Schedule: cfg.ExpiryCron,
				Run: func(ctx context.Context) error {
					_, err := expiryService.ExpireOverdue(ctx)
					return err
				},
				Timeout: 30 * time.Minute,
			},
		},
	})
	if err := sched.Start(ctx); err != nil {
		log.Fatal("Failed to start scheduler:", err)
	}

	// Set Gin mode
	gin.SetMode(cfg.Mode)

	// Create Gin engine
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger())

	// Setup routes
	api.SetupRoutes(r, &api.Handler{
		Orders: orderService,
		Expiry: expiryService,
		Checks: checks,
	}, cfg.AdminAPIToken)

	// Start server
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logging.Infof("Starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server:", err)
		}
	}()

	<-ctx.Done()
	logging.Infof("Shutting down...")

	sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Errorf("Server shutdown failed: %v", err)
	}

	if webhook != nil {
		webhook.Wait()
	}
	if reports != nil {
		reports.Wait()
	}
	if producer != nil {
		if err := producer.Close(); err != nil {
			logging.Errorf("Failed to close Kafka producer: %v", err)
		}
	}
	if err := database.CloseDatabase(); err != nil {
		logging.Errorf("Failed to close database: %v", err)
	}
	logging.Infof("Server stopped")
}
