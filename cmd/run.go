package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"subbets/config"
	"subbets/domain/interfaces"
	"subbets/domain/services"
	"subbets/infrastructure"
	"subbets/infrastructure/observability"
	"subbets/repository"
)

// Engine bundles the wired services exposed to embedding callers.
type Engine struct {
	Betting      interfaces.BettingService
	Settlement   interfaces.SettlementService
	Adjustments  interfaces.AdjustmentService
	Markets      interfaces.MarketService
	Leaderboards interfaces.LeaderboardService
	UowFactory   interfaces.UnitOfWorkFactory
}

// NewEngine wires the service layer over a unit-of-work factory.
func NewEngine(uowFactory interfaces.UnitOfWorkFactory) *Engine {
	return &Engine{
		Betting:      services.NewBettingService(uowFactory),
		Settlement:   services.NewSettlementService(uowFactory),
		Adjustments:  services.NewAdjustmentService(uowFactory),
		Markets:      services.NewMarketService(uowFactory),
		Leaderboards: services.NewLeaderboardService(uowFactory),
		UowFactory:   uowFactory,
	}
}

// Run initializes the engine and blocks until the context is cancelled.
func Run(ctx context.Context) error {
	log.Println("Starting subbets engine...")

	// Load configuration
	cfg := config.Get()

	// Initialize metrics
	if err := observability.InitializeGlobalMetrics(ctx, cfg); err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}

	// Initialize Redis connection
	log.Println("Connecting to Redis...")
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("invalid redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	log.Println("Redis connection established successfully")

	// Initialize event publisher
	var publisher interfaces.EventPublisher
	var natsClient *infrastructure.NATSClient
	if cfg.NATSServers != "" {
		log.Printf("Connecting to NATS at %s...", cfg.NATSServers)
		natsClient = infrastructure.NewNATSClient(cfg.NATSServers)
		if err := natsClient.Connect(ctx); err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		natsPublisher := infrastructure.NewNATSEventPublisher(natsClient, infrastructure.NewEventSubjectMapper())
		if err := natsPublisher.EnsureDomainEventStream(); err != nil {
			return fmt.Errorf("failed to ensure event stream: %w", err)
		}
		publisher = natsPublisher
		log.Println("NATS connection established successfully")
	} else {
		log.Println("NATS not configured, events will be discarded")
		publisher = infrastructure.NewNoopEventPublisher()
	}

	// Initialize unit of work factory and services
	uowFactory := repository.NewUnitOfWorkFactory(client, publisher)
	engine := NewEngine(uowFactory)
	log.Printf("Engine is running in %s mode...", cfg.Environment)

	// Wait for context cancellation
	runUntilCancelled(ctx, engine)

	// Cleanup resources
	log.Println("Shutting down engine...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if natsClient != nil {
		if err := natsClient.Close(); err != nil {
			log.Printf("Error closing NATS connection: %v", err)
		}
	}

	if err := observability.ShutdownGlobalMetrics(shutdownCtx); err != nil {
		log.Printf("Error shutting down metrics: %v", err)
	}

	log.Println("Closing Redis connection...")
	if err := client.Close(); err != nil {
		log.Printf("Error closing Redis connection: %v", err)
	}

	log.Println("Shutdown completed")
	return nil
}

// runUntilCancelled blocks until shutdown. The engine has no transport of
// its own; request routing lives in a separate process that embeds the
// services through NewEngine.
func runUntilCancelled(ctx context.Context, engine *Engine) {
	<-ctx.Done()
}
