package services

import (
	"context"
	"time"

	"subbets/config"
	"subbets/domain/apperrors"
	"subbets/domain/entities"
	"subbets/domain/events"
	"subbets/domain/interfaces"
	"subbets/domain/utils"

	log "github.com/sirupsen/logrus"
)

type adjustmentDirection string

const (
	adjustCredit adjustmentDirection = "credit"
	adjustDebit  adjustmentDirection = "debit"
)

type adjustmentService struct {
	config     *config.Config
	uowFactory interfaces.UnitOfWorkFactory
}

// NewAdjustmentService creates a new balance adjustment service
func NewAdjustmentService(uowFactory interfaces.UnitOfWorkFactory) interfaces.AdjustmentService {
	return &adjustmentService{
		config:     config.Get(),
		uowFactory: uowFactory,
	}
}

// Credit adds points to a user's balance out of band.
func (s *adjustmentService) Credit(ctx context.Context, subreddit string, userID entities.UserID, moderator interfaces.Actor, amount entities.Points, reason, memo string) (*entities.AdjustmentResult, error) {
	return s.adjust(ctx, subreddit, userID, moderator, adjustCredit, amount, reason, memo)
}

// Debit removes points from a user's balance out of band. The resulting
// balance must remain non-negative.
func (s *adjustmentService) Debit(ctx context.Context, subreddit string, userID entities.UserID, moderator interfaces.Actor, amount entities.Points, reason, memo string) (*entities.AdjustmentResult, error) {
	return s.adjust(ctx, subreddit, userID, moderator, adjustDebit, amount, reason, memo)
}

func (s *adjustmentService) adjust(ctx context.Context, subreddit string, userID entities.UserID, moderator interfaces.Actor, direction adjustmentDirection, amount entities.Points, reason, memo string) (*entities.AdjustmentResult, error) {
	if amount.Int64() <= 0 {
		return nil, apperrors.NewValidation("adjustment amount must be positive")
	}

	runner := s.uowFactory.CreateForSubreddit(subreddit)
	watch := interfaces.WatchSet{
		Balances: []entities.UserID{userID},
	}

	var result *entities.AdjustmentResult
	err := runner.Do(ctx, watch, func(ctx context.Context, uow interfaces.UnitOfWork) error {
		now := time.Now()

		balance, err := loadOrCreateBalance(ctx, uow, subreddit, userID, s.config)
		if err != nil {
			return err
		}

		before := balance.Balance
		switch direction {
		case adjustCredit:
			balance.ApplyCredit(amount, now)
		case adjustDebit:
			if !balance.CanAfford(amount) {
				return apperrors.NewValidation("adjustment would result in a negative balance: have %s, debit %s", balance.Balance, amount)
			}
			if err := balance.ApplyDebit(amount, now); err != nil {
				return apperrors.NewValidation("adjustment would result in a negative balance: %v", err)
			}
		}

		if err := uow.Balances().Save(ctx, balance); err != nil {
			return err
		}

		entry := entities.NewLedgerEntry(userID, subreddit, entities.LedgerEntryTypeAdjustment, amount, balance.Balance, now)
		entry.Metadata = map[string]any{
			"direction": string(direction),
			"moderator": moderator.ID.String(),
			"reason":    reason,
		}
		if memo != "" {
			entry.Metadata["memo"] = memo
		}
		if err := utils.RecordLedgerEntry(ctx, uow.Ledger(), uow.Leaderboards(), uow.EventBus(), entry, balance.Username, before); err != nil {
			return err
		}

		action := entities.NewAuditAction(subreddit, moderator.ID, moderator.Username, entities.AuditKindBalanceAdjust, now).
			WithUser(userID).
			WithBalanceSnapshot(before, balance.Balance)
		action.Payload["direction"] = string(direction)
		action.Payload["amount"] = amount.Int64()
		action.Payload["reason"] = reason
		if memo != "" {
			action.Payload["memo"] = memo
		}
		if err := uow.Audit().Record(ctx, action); err != nil {
			return err
		}
		if err := uow.EventBus().Publish(events.AuditActionEvent{Action: action}); err != nil {
			return err
		}

		result = &entities.AdjustmentResult{Balance: balance, Action: action}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"subreddit": subreddit,
		"userID":    userID,
		"moderator": moderator.ID,
		"direction": direction,
		"amount":    amount,
		"reason":    reason,
	}).Info("Balance adjusted")

	return result, nil
}
