package utils

import (
	"context"
	"fmt"

	"subbets/domain/entities"
	"subbets/domain/events"
	"subbets/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// RecordLedgerEntry appends a ledger entry and propagates its leaderboard
// impact. This is the single entry point for every balance-affecting write
// in the engine: credit, payout, refund and adjustment entries contribute
// their magnitude to the user's score in every configured window; debit
// entries contribute nothing.
func RecordLedgerEntry(
	ctx context.Context,
	ledgerRepo interfaces.LedgerRepository,
	leaderboardRepo interfaces.LeaderboardRepository,
	eventPublisher interfaces.EventPublisher,
	entry *entities.LedgerEntry,
	username string,
	oldBalance entities.Points,
) error {
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("invalid ledger entry: %w", err)
	}

	if err := ledgerRepo.Append(ctx, entry); err != nil {
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}

	if entry.Type.CountsTowardLeaderboard() && !entry.Amount.IsZero() {
		for _, window := range entities.AllWindows() {
			if err := leaderboardRepo.AddScore(ctx, window, entry.UserID, username, entry.Amount); err != nil {
				return fmt.Errorf("failed to update %s leaderboard: %w", window, err)
			}
		}
	}

	event := events.BalanceChangeEvent{
		UserID:     entry.UserID,
		Subreddit:  entry.Subreddit,
		OldBalance: oldBalance,
		NewBalance: entry.BalanceAfter,
		EntryType:  entry.Type,
		Amount:     entry.Amount,
	}
	log.WithFields(log.Fields{
		"userID":     event.UserID,
		"subreddit":  event.Subreddit,
		"oldBalance": event.OldBalance,
		"newBalance": event.NewBalance,
		"entryType":  event.EntryType,
		"amount":     event.Amount,
	}).Debug("Publishing BalanceChangeEvent")
	if err := eventPublisher.Publish(event); err != nil {
		log.WithError(err).Error("Failed to publish balance change event")
	}

	return nil
}
