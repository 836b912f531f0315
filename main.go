package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"

	"booking-engine/internal/config"
	"booking-engine/internal/handlers"
	"booking-engine/internal/kafka"
	"booking-engine/internal/logger"
	"booking-engine/internal/middleware"
	"booking-engine/internal/notify"
	rediswrap "booking-engine/internal/redis"
	"booking-engine/internal/services"
	"booking-engine/internal/storage"

	"github.com/gin-gonic/gin"
)

// Global logger instance
var log *logger.Logger

func main() {
	log = logger.NewLogger()
	defer log.Close()

	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Warn("ENV", "Error loading .env file, using environment variables")
	}

	log.LogProcess("STARTUP", "Booking Engine starting up...")
	log.Info("SYSTEM", "Initializing components...")

	// Load configuration
	cfg := config.Load()
	log.Info("CONFIG", "Configuration loaded successfully")

	log.LogProcess("DATABASE", "Initializing MySQL database...")
	store, err := storage.NewMySQLStore(cfg.Database, log)
	if err != nil {
		log.Fatal("DATABASE", "Failed to initialize MySQL: "+err.Error())
	}
	defer store.Close()
	log.LogDatabase("INIT", "mysql", "MySQL storage initialized successfully")

	// Initialize Kafka
	log.LogProcess("KAFKA", "Initializing Kafka producer...")
	kafkaProducer, err := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.MockMode, log)
	if err != nil {
		log.Fatal("KAFKA", "Failed to create Kafka producer: "+err.Error())
	}
	defer kafkaProducer.Close()
	log.LogKafka("INIT", "producer", "Kafka producer initialized successfully")

	var payoutConsumer *kafka.PayoutStatusConsumer
	if !cfg.Kafka.MockMode {
		log.LogProcess("KAFKA", "Initializing payout status consumer...")
		payoutConsumer, err = kafka.NewPayoutStatusConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, store)
		if err != nil {
			log.Fatal("KAFKA", "Failed to create payout status consumer: "+err.Error())
		}
		defer payoutConsumer.Close()
		log.LogKafka("INIT", "consumer", "Payout status consumer initialized successfully")
	}

	redisClient := goredis.NewClient(&goredis.Options{
		Addr: cfg.Redis.Addr,
	})
	redisLocks := rediswrap.NewRedis(redisClient)
	log.LogProcess("SERVICE", "Redis connection configured")

	// Initialize Stripe payout provider
	payoutProvider, err := services.NewStripePayoutProvider(log)
	if err != nil {
		log.Fatal("STRIPE", "Failed to initialize Stripe payout provider: "+err.Error())
	}
	log.LogProcess("SERVICE", "Stripe payout provider initialized")

	notifier := notify.NewNotifier(log)

	// Initialize services
	queueService := services.NewQueueService(store, redisLocks, kafkaProducer, notifier, log)
	bookingService := services.NewBookingService(store, queueService, kafkaProducer, log)
	payoutService := services.NewPayoutService(store, payoutProvider, redisLocks, kafkaProducer, notifier, log)
	log.LogProcess("SERVICE", "Booking, queue and payout services initialized")

	// Initialize handlers
	bookingHandler := handlers.NewBookingHandler(bookingService, store)
	queueHandler := handlers.NewQueueHandler(queueService)
	payoutHandler := handlers.NewPayoutHandler(payoutService)
	log.LogProcess("HANDLER", "All handlers initialized")

	// Start payout status consumer in background
	if payoutConsumer != nil {
		go func() {
			log.LogKafka("START", "consumer", "Starting payout status consumer goroutine")
			if err := payoutConsumer.ConsumeStatusUpdates(context.Background(), nil); err != nil {
				log.Error("KAFKA", "Consumer error: "+err.Error())
			}
		}()
	}

	// Setup router
	router := setupRouter(bookingHandler, queueHandler, payoutHandler)
	log.LogProcess("ROUTER", "HTTP router configured")

	// Create server
	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		log.LogProcess("SERVER", "Starting HTTP server on port "+cfg.Server.Port)
		log.Info("STARTUP", "🚀 Booking Engine is ready to accept requests!")
		log.Info("STARTUP", "📊 Health check available at: http://localhost"+cfg.Server.Port+"/health")
		log.Info("STARTUP", "📅 Booking API available at: http://localhost"+cfg.Server.Port+"/api/v1/bookings")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("SERVER", "Server failed to start: "+err.Error())
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Warn("SHUTDOWN", "Received shutdown signal, initiating graceful shutdown...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("SHUTDOWN", "Server forced to shutdown: "+err.Error())
	}

	log.Info("SHUTDOWN", "✅ Booking Engine shutdown completed successfully")
}

func setupRouter(bookingHandler *handlers.BookingHandler, queueHandler *handlers.QueueHandler, payoutHandler *handlers.PayoutHandler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(middleware.EnhancedLogger(log))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.CORS())
	router.Use(middleware.RateLimit(log))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		log.LogAPI("GET", "/health", "200", "0ms")
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now().UTC(),
			"service":   "booking-engine",
			"version":   "1.0.0",
		})
	})

	// API routes
	v1 := router.Group("/api/v1")
	{
		// Booking routes
		bookings := v1.Group("/bookings")
		{
			bookings.POST("", bookingHandler.CreateBooking)
			bookings.GET("/:id", bookingHandler.GetBooking)
			bookings.POST("/:id/transition", bookingHandler.TransitionBooking)
		}

		// Queue routes
		queue := v1.Group("/queue")
		{
			queue.GET("/:listing_id/position", queueHandler.GetQueuePosition)
		}

		// Payout routes
		payouts := v1.Group("/payouts")
		{
			payouts.POST("/weekly", payoutHandler.RunWeeklyBatch)
			payouts.POST("/instant", payoutHandler.CreateInstantPayout)
		}
	}

	log.LogProcess("ROUTER", "All routes registered successfully")
	return router
}
