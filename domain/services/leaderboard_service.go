package services

import (
	"context"
	"time"

	"subbets/config"
	"subbets/domain/entities"
	"subbets/domain/interfaces"
)

type leaderboardService struct {
	config     *config.Config
	uowFactory interfaces.UnitOfWorkFactory
}

// NewLeaderboardService creates the wallet/leaderboard read side
func NewLeaderboardService(uowFactory interfaces.UnitOfWorkFactory) interfaces.LeaderboardService {
	return &leaderboardService{
		config:     config.Get(),
		uowFactory: uowFactory,
	}
}

// GetWallet returns the user's balance view. A user with no balance record
// yet is shown the configured starting balance; the record itself is only
// created by the first balance-affecting operation.
func (s *leaderboardService) GetWallet(ctx context.Context, subreddit string, userID entities.UserID) (*entities.UserBalance, error) {
	view := s.uowFactory.ReadOnly(subreddit)
	balance, err := view.Balances().GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if balance == nil {
		balance = entities.NewUserBalance(userID, subreddit, entities.Points(s.config.StartingBalance), time.Now())
	}
	return balance, nil
}

// GetLeaderboard returns up to limit ranked entries for a window.
func (s *leaderboardService) GetLeaderboard(ctx context.Context, subreddit string, window entities.Window, limit int64) ([]*entities.LeaderboardEntry, error) {
	view := s.uowFactory.ReadOnly(subreddit)
	return view.Leaderboards().Top(ctx, window, limit)
}

// GetUserLedger returns a user's ledger entries, newest first.
func (s *leaderboardService) GetUserLedger(ctx context.Context, subreddit string, userID entities.UserID, limit int64) ([]*entities.LedgerEntry, error) {
	view := s.uowFactory.ReadOnly(subreddit)
	return view.Ledger().GetByUser(ctx, userID, limit)
}
