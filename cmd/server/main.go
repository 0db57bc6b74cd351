// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/paytently/payment-gateway/internal/acquirer"
	"github.com/paytently/payment-gateway/internal/card"
	"github.com/paytently/payment-gateway/internal/consumer"
	"github.com/paytently/payment-gateway/internal/eventbus"
	"github.com/paytently/payment-gateway/internal/handler"
	"github.com/paytently/payment-gateway/internal/middleware"
	"github.com/paytently/payment-gateway/internal/models"
	"github.com/paytently/payment-gateway/internal/repository"
	"github.com/paytently/payment-gateway/internal/service"
	"github.com/paytently/payment-gateway/pkg/logger"
)

func main() {
	// Initialize logger
	log := logger.NewLogger("payment-gateway")
	defer log.Sync()

	// Load configuration
	cfg := loadConfig()
	if cfg.CardPepper == "" {
		log.Fatal("CARD_PEPPER must be set; refusing to start with no hashing secret")
	}

	apiKeys, err := middleware.ParseAPIKeys(cfg.APIKeys)
	if err != nil {
		log.Fatal("invalid API_KEYS configuration", zap.Error(err))
	}

	// Initialize the store and card protection
	paymentRepo := repository.NewInMemoryPaymentRepository()
	protector := card.NewProtector(cfg.CardPepper)

	// Initialize the event bus: Kafka when brokers are configured, otherwise
	// the in-process bus.
	var bus eventbus.Bus
	var kafkaBus *eventbus.KafkaBus
	if len(cfg.KafkaBrokers) > 0 {
		kafkaBus, err = eventbus.NewKafkaBus(cfg.KafkaBrokers, cfg.KafkaGroup, log)
		if err != nil {
			log.Fatal("failed to connect to kafka", zap.Error(err))
		}
		defer kafkaBus.Close()
		bus = kafkaBus
		log.Info("using kafka event bus", zap.Strings("brokers", cfg.KafkaBrokers))
	} else {
		bus = eventbus.NewMemoryBus(log)
		log.Info("using in-process event bus")
	}

	// Initialize services and consumers
	paymentService := service.NewPaymentService(paymentRepo, bus, protector, log)

	processing := consumer.NewProcessingConsumer(acquirer.NewSimulator(cfg.ProcessingDelay), bus, log)
	bus.Subscribe(eventbus.TopicPaymentCreated, processing.HandlePaymentCreated)

	if cfg.SettlementEnabled {
		settlement := consumer.NewSettlementConsumer(paymentRepo, log)
		bus.Subscribe(eventbus.TopicPaymentProcessed, settlement.HandlePaymentProcessed)
		log.Info("settlement consumer enabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if kafkaBus != nil {
		go func() {
			if err := kafkaBus.Run(ctx); err != nil {
				log.Error("kafka consumer stopped", zap.Error(err))
			}
		}()
	}

	// Initialize handlers and router
	paymentHandler := handler.NewPaymentHandler(paymentService, log)
	router := setupRouter(paymentHandler, apiKeys, log)

	// Start server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("starting server", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()

	log.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("server forced to shutdown", zap.Error(err))
	}

	log.Info("server exited")
}

func setupRouter(paymentHandler *handler.PaymentHandler, apiKeys map[string]models.APIKeyPrincipal, log *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	// Middleware
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.CORS())
	router.Use(middleware.RateLimiter(rate.Limit(50), 100))

	// Health checks
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	router.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	// Metrics endpoint
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API routes
	v1 := router.Group("/api/v1")
	v1.Use(middleware.APIKeyAuth(apiKeys))
	{
		payments := v1.Group("/payments")
		{
			payments.POST("", paymentHandler.CreatePayment)
			payments.GET("/:id", paymentHandler.GetPayment)
		}
	}

	return router
}

type Config struct {
	Port              string
	CardPepper        string
	APIKeys           string
	KafkaBrokers      []string
	KafkaGroup        string
	ProcessingDelay   time.Duration
	SettlementEnabled bool
	Environment       string
}

func loadConfig() *Config {
	return &Config{
		Port:              getEnv("PORT", "8080"),
		CardPepper:        os.Getenv("CARD_PEPPER"),
		APIKeys:           getEnv("API_KEYS", "test-api-key-1:merchant-1:Test Merchant 1,test-api-key-2:merchant-2:Test Merchant 2"),
		KafkaBrokers:      splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaGroup:        getEnv("KAFKA_GROUP", "payment-gateway"),
		ProcessingDelay:   getDurationEnv("PROCESSING_DELAY", time.Second),
		SettlementEnabled: getEnv("SETTLEMENT_ENABLED", "false") == "true",
		Environment:       getEnv("ENVIRONMENT", "development"),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
