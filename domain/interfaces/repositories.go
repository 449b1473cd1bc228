package interfaces

import (
	"context"

	"subbets/domain/entities"
	"subbets/domain/events"
)

// MarketRepository defines market record access. Reads inside a unit of
// work go through the watched connection; writes are buffered until commit.
type MarketRepository interface {
	// GetByID retrieves a market, or nil if it does not exist.
	GetByID(ctx context.Context, id entities.MarketID) (*entities.Market, error)

	// Create stores a new market and adds it to the creation-order index.
	Create(ctx context.Context, market *entities.Market) error

	// Update rewrites an existing market record.
	Update(ctx context.Context, market *entities.Market) error

	// SetOpen adds or removes the market from the open-markets set.
	SetOpen(ctx context.Context, id entities.MarketID, open bool) error

	// CountOpen returns the number of currently open markets.
	CountOpen(ctx context.Context) (int64, error)

	// List returns markets in creation order, newest first.
	List(ctx context.Context, limit int64) ([]*entities.Market, error)
}

// BetRepository defines bet record, index, and active-pointer access.
type BetRepository interface {
	// GetByID retrieves a bet, or nil if it does not exist.
	GetByID(ctx context.Context, id entities.BetID) (*entities.Bet, error)

	// Create stores a new bet and indexes it under its market and user.
	Create(ctx context.Context, bet *entities.Bet) error

	// Update rewrites an existing bet record.
	Update(ctx context.Context, bet *entities.Bet) error

	// GetMarketBetIDs returns all bet IDs on a market in creation order.
	GetMarketBetIDs(ctx context.Context, marketID entities.MarketID) ([]entities.BetID, error)

	// GetByMarket returns all bets on a market in creation order,
	// optionally filtered to active bets.
	GetByMarket(ctx context.Context, marketID entities.MarketID, activeOnly bool) ([]*entities.Bet, error)

	// GetByUser returns a user's bets in creation order, newest first.
	GetByUser(ctx context.Context, userID entities.UserID, limit int64) ([]*entities.Bet, error)

	// GetActivePointer returns the active bet ID for a (user, market)
	// pair, or nil if the user has no active bet on the market.
	GetActivePointer(ctx context.Context, userID entities.UserID, marketID entities.MarketID) (*entities.BetID, error)

	// SetActivePointer records the one-active-bet pointer.
	SetActivePointer(ctx context.Context, userID entities.UserID, marketID entities.MarketID, betID entities.BetID) error

	// ClearActivePointer removes the pointer at settlement.
	ClearActivePointer(ctx context.Context, userID entities.UserID, marketID entities.MarketID) error
}

// BalanceRepository defines per-user balance record access.
type BalanceRepository interface {
	// GetByUser retrieves a balance record, or nil if it does not exist.
	GetByUser(ctx context.Context, userID entities.UserID) (*entities.UserBalance, error)

	// Save creates or rewrites a balance record.
	Save(ctx context.Context, balance *entities.UserBalance) error
}

// LedgerRepository defines the append-only ledger.
type LedgerRepository interface {
	// Append records an immutable ledger entry.
	Append(ctx context.Context, entry *entities.LedgerEntry) error

	// GetByUser returns a user's entries, newest first.
	GetByUser(ctx context.Context, userID entities.UserID, limit int64) ([]*entities.LedgerEntry, error)
}

// LeaderboardRepository defines the ranked per-window aggregates.
type LeaderboardRepository interface {
	// AddScore adds delta to the user's score in one window bucket and
	// records display metadata.
	AddScore(ctx context.Context, window entities.Window, userID entities.UserID, username string, delta entities.Points) error

	// Top returns up to limit entries ranked descending by score.
	Top(ctx context.Context, window entities.Window, limit int64) ([]*entities.LeaderboardEntry, error)

	// Rank returns the user's descending rank (1 = highest) and score, or
	// nil if the user has no score in the window.
	Rank(ctx context.Context, window entities.Window, userID entities.UserID) (*entities.LeaderboardEntry, error)
}

// AuditRepository persists structured audit records.
type AuditRepository interface {
	// Record appends an audit action.
	Record(ctx context.Context, action *entities.AuditAction) error
}

// EventPublisher publishes domain events. Inside a unit of work the
// publisher buffers until commit and discards on failure.
type EventPublisher interface {
	Publish(event events.Event) error
}
