package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"subbets/cmd"
	"subbets/config"
	"subbets/domain/entities"
	"subbets/domain/interfaces"
	"subbets/infrastructure"
	"subbets/repository"
)

func main() {
	// Load .env file if present; real environments set variables directly
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: failed to load .env file: %v", err)
	}

	// Check for balance adjustment subcommand
	if len(os.Args) > 1 && os.Args[1] == "adjust-balance" {
		if err := handleBalanceAdjustment(); err != nil {
			log.Fatal("Balance adjustment error: ", err)
		}
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("Received shutdown signal, shutting down gracefully...")
		cancel()
	}()

	if err := cmd.Run(ctx); err != nil {
		log.Fatal("Application error: ", err)
	}
}

func handleBalanceAdjustment() error {
	if len(os.Args) < 6 {
		return fmt.Errorf("usage: subbets adjust-balance <subreddit> <user> <amount> <reason>")
	}
	subreddit := os.Args[2]
	userID := entities.UserID(os.Args[3])
	rawAmount, err := strconv.ParseInt(os.Args[4], 10, 64)
	if err != nil || rawAmount == 0 {
		return fmt.Errorf("invalid amount: %q", os.Args[4])
	}
	reason := os.Args[5]

	ctx := context.Background()
	cfg := config.Get()

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("invalid redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	defer client.Close()

	// Admin commands publish nothing
	uowFactory := repository.NewUnitOfWorkFactory(client, infrastructure.NewNoopEventPublisher())
	engine := cmd.NewEngine(uowFactory)

	moderator := interfaces.Actor{ID: "admin-cli", Username: "admin-cli"}

	var result *entities.AdjustmentResult
	if rawAmount > 0 {
		result, err = engine.Adjustments.Credit(ctx, subreddit, userID, moderator, entities.Points(rawAmount), reason, "cli adjustment")
	} else {
		result, err = engine.Adjustments.Debit(ctx, subreddit, userID, moderator, entities.Points(-rawAmount), reason, "cli adjustment")
	}
	if err != nil {
		return err
	}

	log.Printf("Adjusted balance for %s in r/%s: now %s", userID, subreddit, result.Balance.Balance)
	return nil
}
