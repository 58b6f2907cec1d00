package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/config"
	"storefront/internal/api"
	"storefront/internal/broker"
	"storefront/internal/cart"
	"storefront/internal/catalog"
	"storefront/internal/chat"
	"storefront/internal/redisclient"
	"storefront/internal/service"
	"storefront/internal/store"
	"storefront/internal/util"
	"storefront/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// repository is everything the services persist
type repository interface {
	service.OrderRepository
	service.EventLedger
	service.ProfileRepository
	service.UserRepository
	api.Pinger
}

func openRepository(ctx context.Context, cfg config.DatabaseConfig) (repository, func() error, error) {
	switch cfg.Driver {
	case "memory":
		return store.NewMemoryStore(), func() error { return nil }, nil
	case "postgres":
		db, err := store.NewStore(cfg.URL)
		if err != nil {
			return nil, nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		return db, db.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env, cfg.Server.LogLevel); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting storefront")

	tp, err := util.InitTracer("storefront", cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	ctx := context.Background()

	repo, closeRepo, err := openRepository(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer closeRepo()
	logger.Info("Database ready", zap.String("driver", cfg.Database.Driver))

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.CartTTL)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Redis connected")

	products, err := catalog.Default()
	if err != nil {
		log.Fatalf("Failed to load catalog: %v", err)
	}

	pricing, err := cart.NewPolicy(cfg.Pricing.FreeShippingThreshold, cfg.Pricing.ShippingFee, cfg.Pricing.TaxRate)
	if err != nil {
		log.Fatalf("Invalid pricing config: %v", err)
	}

	var writer broker.MessageWriter
	var bus *broker.LocalBus
	if cfg.Kafka.Enabled {
		producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder)
		defer producer.Close()
		writer = producer
		log.Println("Kafka producer initialized")
	} else {
		bus = broker.NewLocalBus()
		writer = bus
		log.Println("Kafka disabled, using in-process event bus")
	}
	eventPublisher := broker.NewEventPublisher(writer)

	paymentService := service.NewPaymentService(eventPublisher, cfg.Business.PaymentSuccessRate, cfg.Business.PaymentDelay)
	reconciler := service.NewPaymentReconciler(repo, repo)
	orderService := service.NewOrderService(repo, repo, eventPublisher, pricing)
	cartService := service.NewCartService(redisClient, redisClient, products, pricing)
	checkoutService := service.NewCheckoutService(cartService, orderService, redisClient)
	profileService := service.NewProfileService(repo)
	authService := service.NewAuthService(repo, redisClient, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	var generator chat.Generator
	if cfg.Chat.APIKey != "" {
		gemini, err := chat.NewGeminiGenerator(ctx, chat.GeminiConfig{
			APIKey:          cfg.Chat.APIKey,
			Model:           cfg.Chat.Model,
			MaxOutputTokens: int32(cfg.Chat.MaxOutputTokens),
			Temperature:     float32(cfg.Chat.Temperature),
			TopK:            int32(cfg.Chat.TopK),
			TopP:            float32(cfg.Chat.TopP),
		})
		if err != nil {
			logger.Warn("Chat assistant disabled", zap.Error(err))
		} else {
			defer gemini.Close()
			generator = gemini
		}
	} else {
		logger.Warn("GEMINI_API_KEY not set, chat assistant disabled")
	}
	retry := chat.DefaultRetryPolicy()
	retry.MaxRetries = cfg.Chat.MaxRetries
	retry.BaseDelay = cfg.Chat.BaseDelay
	retry.MaxDelay = cfg.Chat.MaxDelay
	chatService := service.NewChatService(generator, retry, products)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	var orderWorker *worker.OrderWorker
	var paymentWorker *worker.PaymentWorker
	if cfg.Kafka.Enabled {
		orderConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder, cfg.Kafka.ConsumerGroup+"-orders")
		orderWorker = worker.NewOrderWorker(orderConsumer, reconciler)
		go func() {
			if err := orderWorker.Start(workerCtx); err != nil {
				log.Printf("Order worker error: %v", err)
			}
		}()

		paymentConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder, cfg.Kafka.ConsumerGroup+"-payments")
		paymentWorker = worker.NewPaymentWorker(paymentConsumer, paymentService)
		go func() {
			if err := paymentWorker.Start(workerCtx); err != nil {
				log.Printf("Payment worker error: %v", err)
			}
		}()
	} else {
		bus.Subscribe(worker.NewPaymentWorker(nil, paymentService).Handler())
		bus.Subscribe(worker.NewOrderWorker(nil, reconciler).Handler())
	}

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(api.Services{
		Catalog:  products,
		Cart:     cartService,
		Checkout: checkoutService,
		Orders:   orderService,
		Profiles: profileService,
		Auth:     authService,
		Chat:     chatService,
	}, map[string]api.Pinger{
		"database": repo,
		"redis":    redisClient,
	})
	if err := handler.SetupRoutes(router); err != nil {
		log.Fatalf("Failed to set up routes: %v", err)
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	workerCancel()
	if orderWorker != nil {
		orderWorker.Stop()
		paymentWorker.Stop()
	}
	if bus != nil {
		bus.Wait()
	}

	log.Println("Server exited")
}
