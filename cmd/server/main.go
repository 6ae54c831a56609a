package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"cartoonclub-backend-go/internal/api"
	"cartoonclub-backend-go/internal/config"
	"cartoonclub-backend-go/internal/core"
	"cartoonclub-backend-go/internal/db"
	"cartoonclub-backend-go/internal/middleware"
	"cartoonclub-backend-go/pkg/cache"
	"cartoonclub-backend-go/pkg/mailer"
	"cartoonclub-backend-go/pkg/messagequeue"
)

func main() {
	zapLogger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize Zap logger: %v", err)
	}
	defer zapLogger.Sync()

	appConfig, err := config.LoadConfig()
	if err != nil {
		zapLogger.Fatal("Failed to load application configuration", zap.Error(err))
	}
	zapLogger.Info("Application configuration loaded")

	initCtx, cancelInitCtx := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelInitCtx()
	clients, err := db.NewClients(initCtx, appConfig)
	if err != nil {
		zapLogger.Fatal("Failed to initialize Firebase Admin SDK", zap.Error(err))
	}
	defer clients.Close()
	zapLogger.Info("Firebase Admin SDK (Firestore, Auth) initialized")

	userRepo := db.NewFirestoreUserRepository(clients.Firestore)
	contentRepo := db.NewFirestoreContentRepository(clients.Firestore)
	reportRepo := db.NewFirestoreReportRepository(clients.Firestore)
	packageRepo := db.NewFirestorePackageRepository(clients.Firestore)

	// Optional infrastructure: the service degrades to Firestore-only reads
	// and log-only notifications when cache, broker or SMTP are not configured.
	var summaryCache cache.Cache
	if appConfig.RedisAddr != "" {
		summaryCache, err = cache.NewRedisCache(cache.NewRedisCacheConfig{
			Address:  appConfig.RedisAddr,
			Password: appConfig.RedisPassword,
			DB:       appConfig.RedisDB,
		}, zapLogger)
		if err != nil {
			zapLogger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
	} else {
		zapLogger.Info("Summary cache disabled: REDIS_ADDR is not set")
	}

	var messageQueue messagequeue.MessageQueue
	if appConfig.RabbitMQURL != "" {
		messageQueue, err = messagequeue.NewRabbitMQService(messagequeue.NewRabbitMQServiceConfig{
			URL: appConfig.RabbitMQURL,
		}, zapLogger)
		if err != nil {
			zapLogger.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
		}
		defer messageQueue.Close()
	} else {
		zapLogger.Info("Run events disabled: RABBITMQ_URL is not set")
	}

	aggregatorOpts := []core.AggregatorOption{
		core.WithRenewalVariant(core.RenewalVariant(appConfig.RenewalRateVariant)),
	}
	if summaryCache != nil {
		aggregatorOpts = append(aggregatorOpts, core.WithCache(summaryCache))
	}
	if messageQueue != nil {
		aggregatorOpts = append(aggregatorOpts, core.WithMessageQueue(messageQueue))
	}
	if appConfig.SMTPHost != "" && appConfig.AlertEmailTo != "" {
		smtpConfig := mailer.SMTPConfig{
			Host:     appConfig.SMTPHost,
			Port:     appConfig.SMTPPort,
			Username: appConfig.SMTPUser,
			Password: appConfig.SMTPPassword,
			From:     appConfig.AlertEmailFrom,
		}
		alertTo := appConfig.AlertEmailTo
		aggregatorOpts = append(aggregatorOpts, core.WithAlerts(func(subject, body string) {
			if mailErr := mailer.SendEmail(smtpConfig, alertTo, subject, body); mailErr != nil {
				zapLogger.Error("Failed to send alert email", zap.Error(mailErr))
			}
		}))
	} else {
		zapLogger.Info("Alert emails disabled: SMTP_HOST or ALERT_EMAIL_TO is not set")
	}

	aggregator := core.NewAggregatorService(userRepo, contentRepo, reportRepo, zapLogger, aggregatorOpts...)
	defer aggregator.Close()

	watchTime := core.NewWatchTimeService(contentRepo, appConfig.WatchFlushInterval(), zapLogger)
	watchTime.Start()
	defer watchTime.Close()

	triggers := core.NewTriggerCoordinator(aggregator, zapLogger)
	defer triggers.Close()
	watchCtx, cancelWatch := context.WithCancel(context.Background())
	defer cancelWatch()
	switch appConfig.ReportsMode {
	case config.ReportsModeScheduled:
		if err := triggers.StartSchedule(appConfig.ReportsSchedule); err != nil {
			zapLogger.Fatal("Invalid REPORTS_SCHEDULE", zap.String("schedule", appConfig.ReportsSchedule), zap.Error(err))
		}
	case config.ReportsModeReactive:
		triggers.StartWatching(watchCtx, db.NewFirestoreChangeWatcher(clients.Firestore, zapLogger))
	case config.ReportsModeOff:
		zapLogger.Info("Automatic aggregation disabled; only manual recalculation will run")
	}
	zapLogger.Info("Core services initialized")

	if strings.ToLower(appConfig.GinMode) == "release" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}
	router := gin.New()

	router.Use(middleware.RequestLogger(zapLogger))
	router.Use(middleware.RecoveryMiddleware(zapLogger))
	if appConfig.ClientURL != "" {
		router.Use(middleware.CORSMiddleware(appConfig))
		zapLogger.Info("CORS Middleware enabled", zap.String("clientURL", appConfig.ClientURL))
	} else {
		zapLogger.Warn("CORS Middleware SKIPPED: CLIENT_URL is not configured")
	}

	authMW := middleware.NewAuthMiddleware(clients.Auth, userRepo, zapLogger)
	api.SetupRoutes(
		router,
		zapLogger,
		authMW,
		api.NewReportHandler(reportRepo, aggregator, summaryCache, zapLogger),
		api.NewPlaybackHandler(watchTime, zapLogger),
		api.NewPackageHandler(packageRepo, zapLogger),
	)

	serverAddr := fmt.Sprintf(":%s", appConfig.Port)
	httpServer := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	zapLogger.Info("Starting HTTP server", zap.String("address", serverAddr), zap.String("ginMode", gin.Mode()))
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	quitChannel := make(chan os.Signal, 1)
	signal.Notify(quitChannel, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quitChannel
	zapLogger.Info("Received shutdown signal", zap.String("signal", sig.String()))

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLogger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	// Deferred closers then run in reverse order: triggers stop first, the
	// watch-time service performs its final flush, the aggregator drains, and
	// the clients close last.
	zapLogger.Info("Server exiting gracefully")
}
