package interfaces

import (
	"context"
	"time"

	"subbets/domain/entities"
)

// Actor identifies who performs an operation, as resolved by the identity
// collaborator. Trusted as given.
type Actor struct {
	ID       entities.UserID
	Username string
}

// BettingService places wagers on open markets.
type BettingService interface {
	// PlaceBet validates and atomically commits a new wager.
	PlaceBet(ctx context.Context, subreddit string, marketID entities.MarketID, actor Actor, side entities.BetSide, wager entities.Points) (*entities.PlaceBetResult, error)
}

// SettlementService resolves or voids markets, paying out or refunding
// every active bet atomically.
type SettlementService interface {
	// Resolve settles a closed market to the winning side.
	Resolve(ctx context.Context, subreddit string, marketID entities.MarketID, moderator Actor, outcome entities.Resolution, notes string) (*entities.SettlementResult, error)

	// Void cancels an open or closed market and refunds all active bets.
	Void(ctx context.Context, subreddit string, marketID entities.MarketID, moderator Actor, reason string) (*entities.SettlementResult, error)
}

// AdjustmentService performs moderator-initiated manual balance changes.
type AdjustmentService interface {
	// Credit adds points to a user's balance.
	Credit(ctx context.Context, subreddit string, userID entities.UserID, moderator Actor, amount entities.Points, reason, memo string) (*entities.AdjustmentResult, error)

	// Debit removes points; the resulting balance must remain >= 0.
	Debit(ctx context.Context, subreddit string, userID entities.UserID, moderator Actor, amount entities.Points, reason, memo string) (*entities.AdjustmentResult, error)
}

// MarketService manages the market lifecycle around the settlement core.
type MarketService interface {
	// CreateMarket creates a market in draft status.
	CreateMarket(ctx context.Context, subreddit, question string, moderator Actor) (*entities.Market, error)

	// PublishMarket opens a draft market for betting until closesAt.
	PublishMarket(ctx context.Context, subreddit string, marketID entities.MarketID, moderator Actor, closesAt time.Time) (*entities.Market, error)

	// CloseMarket transitions an open market to closed. A nil moderator
	// marks an automatic close by the scheduling collaborator. Closing an
	// already-closed market is a no-op success so moderator and scheduler
	// can race safely.
	CloseMarket(ctx context.Context, subreddit string, marketID entities.MarketID, moderator *Actor) (*entities.Market, error)

	// ArchiveMarket records archive annotations on a terminal market.
	ArchiveMarket(ctx context.Context, subreddit string, marketID entities.MarketID, moderator Actor) (*entities.Market, error)

	// AutoCloseAt returns when the scheduling collaborator should invoke
	// CloseMarket for the given market: its closing time plus the
	// configured grace period. Returns nil for markets without a closing
	// time.
	AutoCloseAt(market *entities.Market) *time.Time

	// GetMarketDetail returns a market with its active bets and the
	// requesting user's own bet.
	GetMarketDetail(ctx context.Context, subreddit string, marketID entities.MarketID, userID entities.UserID) (*entities.MarketDetail, error)
}

// LeaderboardService is the read side for wallets and rankings.
type LeaderboardService interface {
	// GetWallet returns the user's balance view, treating a missing
	// record as the configured starting balance.
	GetWallet(ctx context.Context, subreddit string, userID entities.UserID) (*entities.UserBalance, error)

	// GetLeaderboard returns up to limit ranked entries for a window.
	GetLeaderboard(ctx context.Context, subreddit string, window entities.Window, limit int64) ([]*entities.LeaderboardEntry, error)

	// GetUserLedger returns a user's ledger entries, newest first.
	GetUserLedger(ctx context.Context, subreddit string, userID entities.UserID, limit int64) ([]*entities.LedgerEntry, error)
}
