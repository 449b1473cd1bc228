package interfaces

import (
	"context"

	"subbets/domain/entities"
)

// PointerKey names one (user, market) active-bet pointer for watching.
type PointerKey struct {
	UserID   entities.UserID
	MarketID entities.MarketID
}

// WatchSet names the records an operation will read, expressed in domain
// terms. The store maps it to concrete watch keys; a concurrent write to
// any named record between snapshot load and commit forces a retry.
type WatchSet struct {
	Markets     []entities.MarketID
	MarketBets  []entities.MarketID // per-market bet index
	Bets        []entities.BetID
	Balances    []entities.UserID
	Pointers    []PointerKey
	OpenMarkets bool // the open-markets set
}

// Merge folds another watch set into this one.
func (w *WatchSet) Merge(other WatchSet) {
	w.Markets = append(w.Markets, other.Markets...)
	w.MarketBets = append(w.MarketBets, other.MarketBets...)
	w.Bets = append(w.Bets, other.Bets...)
	w.Balances = append(w.Balances, other.Balances...)
	w.Pointers = append(w.Pointers, other.Pointers...)
	w.OpenMarkets = w.OpenMarkets || other.OpenMarkets
}

// UnitOfWork exposes subreddit-scoped repositories bound to one optimistic
// transaction attempt. Reads see a consistent snapshot; writes are buffered
// and committed atomically, conditioned on no watched record having changed.
type UnitOfWork interface {
	Markets() MarketRepository
	Bets() BetRepository
	Balances() BalanceRepository
	Ledger() LedgerRepository
	Leaderboards() LeaderboardRepository
	Audit() AuditRepository

	// EventBus buffers events; they are published only after a successful
	// commit and discarded when the attempt is retried or fails.
	EventBus() EventPublisher

	// Watch extends the watch set mid-attempt, for records whose keys are
	// only known after an initial load (e.g. each bet on a market).
	Watch(ctx context.Context, set WatchSet) error
}

// TxRunner executes a handler under the optimistic watch/snapshot/retry
// protocol. The handler must be side-effect-free outside the unit of work:
// it may run several times. Deterministic errors from the handler abort the
// attempt immediately with zero partial effect and are never retried;
// commit conflicts retry with a fresh snapshot up to the configured bound,
// then surface as a ConflictError.
type TxRunner interface {
	Do(ctx context.Context, watch WatchSet, fn func(ctx context.Context, uow UnitOfWork) error) error
}

// UnitOfWorkFactory creates subreddit-scoped transaction runners and
// read-only repository views.
type UnitOfWorkFactory interface {
	// CreateForSubreddit returns a runner whose units of work are scoped
	// to one subreddit.
	CreateForSubreddit(subreddit string) TxRunner

	// ReadOnly returns repositories for untransacted reads.
	ReadOnly(subreddit string) UnitOfWork
}
