package services

import (
	"context"
	"time"

	"subbets/config"
	"subbets/domain/entities"
	"subbets/domain/events"
	"subbets/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// loadOrCreateBalance returns the user's balance record, lazily creating
// one with the configured starting balance on the first balance-affecting
// operation. The created record is not persisted here; the caller saves it
// as part of its write batch.
func loadOrCreateBalance(ctx context.Context, uow interfaces.UnitOfWork, subreddit string, userID entities.UserID, cfg *config.Config) (*entities.UserBalance, error) {
	balance, err := uow.Balances().GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if balance != nil {
		return balance, nil
	}

	starting := entities.Points(cfg.StartingBalance)
	balance = entities.NewUserBalance(userID, subreddit, starting, time.Now())

	if err := uow.EventBus().Publish(events.BalanceCreatedEvent{
		UserID:          userID,
		Subreddit:       subreddit,
		StartingBalance: starting,
	}); err != nil {
		log.WithError(err).Error("Failed to publish balance created event")
	}

	return balance, nil
}
