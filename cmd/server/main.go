package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/TaskNest-Marketplace/service-admin/internal/adapter"
	"github.com/TaskNest-Marketplace/service-admin/internal/application"
	"github.com/TaskNest-Marketplace/service-admin/internal/config"
	"github.com/TaskNest-Marketplace/service-admin/internal/consumer"
	"github.com/TaskNest-Marketplace/service-admin/internal/handler"
	"github.com/TaskNest-Marketplace/service-admin/internal/reconcile"
	"github.com/TaskNest-Marketplace/service-admin/internal/repository"
	"github.com/TaskNest-Marketplace/service-admin/pkg/auth"
	"github.com/TaskNest-Marketplace/service-admin/pkg/database"
	"github.com/TaskNest-Marketplace/service-admin/pkg/health"
	"github.com/TaskNest-Marketplace/service-admin/pkg/kafka"
	"github.com/TaskNest-Marketplace/service-admin/pkg/logger"
	"github.com/TaskNest-Marketplace/service-admin/pkg/middleware"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// Initialize logger
	zapLogger, err := logger.NewNamed(cfg.AppEnv, "service-admin")
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("starting service-admin",
		zap.String("port", cfg.Port),
	)

	// Connect to database
	db, err := database.Connect(cfg.DBConfig, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed to connect to database", zap.Error(err))
	}

	// Run database migrations
	if cfg.AppEnv == "development" {
		if err := db.AutoMigrate(&repository.BookingModel{}, &repository.UserModel{}, &repository.ServiceModel{}, &repository.CategoryModel{}); err != nil {
			zapLogger.Fatal("failed to auto-migrate", zap.Error(err))
		}
		zapLogger.Info("database migration completed (dev auto-migrate)")
	}

	// Initialize JWT manager
	jwtManager := auth.NewJWTManager(cfg.JWTConfig.Secret, cfg.JWTConfig.AccessTTL)

	// Initialize Kafka producer
	kafkaProducer := kafka.NewProducer(cfg.KafkaConfig.Brokers, zapLogger)
	defer kafkaProducer.Close()

	// Initialize Stripe adapter (mock for development)
	stripeAdapter := adapter.NewMockStripeAdapter(zapLogger)

	// Initialize repositories
	bookingRepo := repository.NewBookingRepository(db)
	catalogRepo := repository.NewCatalogRepository(db)

	// Initialize reconciliation service
	reconciler := reconcile.NewService(bookingRepo, stripeAdapter, kafkaProducer, cfg.StripeConfig.Timeout, zapLogger)

	// Initialize application services
	bookingService := application.NewBookingService(bookingRepo, catalogRepo, reconciler, zapLogger)
	paymentService := application.NewPaymentService(bookingRepo, reconciler, stripeAdapter, cfg.StripeConfig.Timeout, bookingService, zapLogger)
	analyticsService := application.NewAnalyticsService(bookingRepo, catalogRepo, zapLogger)

	// Initialize Kafka consumer for gateway events
	consumerGroupID := cfg.KafkaConfig.GroupPrefix + "admin-service"
	gatewayConsumer := consumer.NewGatewayEventConsumer(
		cfg.KafkaConfig.Brokers,
		consumerGroupID,
		reconciler,
		zapLogger,
	)
	defer gatewayConsumer.Close()

	// Start Kafka consumer in a goroutine
	consumerCtx, consumerCancel := context.WithCancel(context.Background())
	defer consumerCancel()

	go func() {
		zapLogger.Info("starting gateway event consumer")
		if err := gatewayConsumer.Start(consumerCtx); err != nil {
			if consumerCtx.Err() == nil {
				zapLogger.Error("gateway event consumer failed", zap.Error(err))
			}
		}
	}()

	// Initialize HTTP handlers
	bookingHandler := handler.NewBookingHandler(bookingService)
	paymentHandler := handler.NewPaymentHandler(paymentService)
	analyticsHandler := handler.NewAnalyticsHandler(analyticsService)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	// Apply global middleware
	router.Use(middleware.RecoveryMiddleware(zapLogger))
	router.Use(middleware.LoggerMiddleware(zapLogger))
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())

	// Register health check routes
	healthHandler := health.NewHandler(db, "service-admin")
	healthHandler.RegisterRoutes(router)

	// Register admin routes
	admin := router.Group("/api/v1/admin")
	bookingHandler.RegisterRoutes(admin, jwtManager)
	paymentHandler.RegisterRoutes(admin, jwtManager)
	analyticsHandler.RegisterRoutes(admin, jwtManager)

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		zapLogger.Info("HTTP server starting", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("shutting down service-admin...")

	// Cancel Kafka consumer
	consumerCancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("service-admin stopped")
}
