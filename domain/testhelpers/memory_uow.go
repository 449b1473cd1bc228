// Package testhelpers provides an in-memory realization of the unit-of-work
// contract for service unit tests: reads hand out copies, writes stage into
// a clone of the store, and the clone replaces the store only when the
// handler commits. Conflict retries can be simulated to exercise the
// runner-facing paths without a real store.
package testhelpers

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"subbets/domain/apperrors"
	"subbets/domain/entities"
	"subbets/domain/events"
	"subbets/domain/interfaces"
)

// MemoryStore is the backing state shared by all units of work created
// from one MemoryUowFactory.
type MemoryStore struct {
	Markets     map[entities.MarketID]*entities.Market
	MarketOrder []entities.MarketID
	OpenSet     map[entities.MarketID]bool
	Bets        map[entities.BetID]*entities.Bet
	MarketBets  map[entities.MarketID][]entities.BetID
	UserBets    map[entities.UserID][]entities.BetID
	Pointers    map[string]entities.BetID
	Balances    map[entities.UserID]*entities.UserBalance
	Ledger      map[entities.UserID][]*entities.LedgerEntry
	Scores      map[entities.Window]map[entities.UserID]entities.Points
	Usernames   map[entities.UserID]string
	Audits      []*entities.AuditAction
	Events      []events.Event
}

func newMemoryStore() *MemoryStore {
	return &MemoryStore{
		Markets:    map[entities.MarketID]*entities.Market{},
		OpenSet:    map[entities.MarketID]bool{},
		Bets:       map[entities.BetID]*entities.Bet{},
		MarketBets: map[entities.MarketID][]entities.BetID{},
		UserBets:   map[entities.UserID][]entities.BetID{},
		Pointers:   map[string]entities.BetID{},
		Balances:   map[entities.UserID]*entities.UserBalance{},
		Ledger:     map[entities.UserID][]*entities.LedgerEntry{},
		Scores:     map[entities.Window]map[entities.UserID]entities.Points{},
		Usernames:  map[entities.UserID]string{},
	}
}

func pointerKey(userID entities.UserID, marketID entities.MarketID) string {
	return string(userID) + "|" + string(marketID)
}

func deepCopy[T any](v T) T {
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("testhelpers: marshal: %v", err))
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		panic(fmt.Sprintf("testhelpers: unmarshal: %v", err))
	}
	return out
}

func (s *MemoryStore) clone() *MemoryStore {
	c := deepCopy(*s)
	return &c
}

// SeedMarket stores a market directly, bypassing the transactional path.
func (s *MemoryStore) SeedMarket(market *entities.Market) {
	s.Markets[market.ID] = deepCopy(market)
	s.MarketOrder = append(s.MarketOrder, market.ID)
	if market.IsOpen() {
		s.OpenSet[market.ID] = true
	}
}

// SeedBet stores a bet and its indexes, including the active pointer for
// active bets.
func (s *MemoryStore) SeedBet(bet *entities.Bet) {
	s.Bets[bet.ID] = deepCopy(bet)
	s.MarketBets[bet.MarketID] = append(s.MarketBets[bet.MarketID], bet.ID)
	s.UserBets[bet.UserID] = append(s.UserBets[bet.UserID], bet.ID)
	if bet.IsActive() {
		s.Pointers[pointerKey(bet.UserID, bet.MarketID)] = bet.ID
	}
}

// SeedBalance stores a balance record directly.
func (s *MemoryStore) SeedBalance(balance *entities.UserBalance) {
	s.Balances[balance.UserID] = deepCopy(balance)
}

// HasPointer reports whether the active-bet pointer exists for the pair.
func (s *MemoryStore) HasPointer(userID entities.UserID, marketID entities.MarketID) bool {
	_, ok := s.Pointers[pointerKey(userID, marketID)]
	return ok
}

// MemoryUowFactory implements interfaces.UnitOfWorkFactory over MemoryStore.
type MemoryUowFactory struct {
	Store *MemoryStore

	// CommitConflicts simulates that many failed commits before one
	// succeeds, forcing the runner to retry with a fresh snapshot.
	CommitConflicts int

	// MaxAttempts bounds retries, mirroring the production runner.
	MaxAttempts int

	// FnRuns counts how many times handlers were invoked.
	FnRuns int
}

// NewMemoryUowFactory creates an empty in-memory factory.
func NewMemoryUowFactory() *MemoryUowFactory {
	return &MemoryUowFactory{
		Store:       newMemoryStore(),
		MaxAttempts: 3,
	}
}

// CreateForSubreddit returns a runner over the shared store. The subreddit
// scope is implicit: one factory models one subreddit.
func (f *MemoryUowFactory) CreateForSubreddit(subreddit string) interfaces.TxRunner {
	return &memoryRunner{factory: f}
}

// ReadOnly returns an unstaged view over the current store state.
func (f *MemoryUowFactory) ReadOnly(subreddit string) interfaces.UnitOfWork {
	return &memoryUow{store: f.Store}
}

type memoryRunner struct {
	factory *MemoryUowFactory
}

func (r *memoryRunner) Do(ctx context.Context, watch interfaces.WatchSet, fn func(ctx context.Context, uow interfaces.UnitOfWork) error) error {
	attempts := r.factory.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	for attempt := 1; attempt <= attempts; attempt++ {
		staged := r.factory.Store.clone()
		uow := &memoryUow{store: staged}
		r.factory.FnRuns++
		if err := fn(ctx, uow); err != nil {
			return err
		}
		if r.factory.CommitConflicts > 0 {
			r.factory.CommitConflicts--
			continue
		}
		staged.Events = append(staged.Events, uow.pending...)
		r.factory.Store = staged
		return nil
	}
	return apperrors.NewConflict(attempts, nil)
}

type memoryUow struct {
	store   *MemoryStore
	pending []events.Event
}

func (u *memoryUow) Markets() interfaces.MarketRepository           { return (*memMarketRepo)(u) }
func (u *memoryUow) Bets() interfaces.BetRepository                 { return (*memBetRepo)(u) }
func (u *memoryUow) Balances() interfaces.BalanceRepository         { return (*memBalanceRepo)(u) }
func (u *memoryUow) Ledger() interfaces.LedgerRepository            { return (*memLedgerRepo)(u) }
func (u *memoryUow) Leaderboards() interfaces.LeaderboardRepository { return (*memLeaderboardRepo)(u) }
func (u *memoryUow) Audit() interfaces.AuditRepository              { return (*memAuditRepo)(u) }
func (u *memoryUow) EventBus() interfaces.EventPublisher            { return (*memPublisher)(u) }

func (u *memoryUow) Watch(ctx context.Context, set interfaces.WatchSet) error {
	return nil
}

type memMarketRepo memoryUow

func (r *memMarketRepo) GetByID(ctx context.Context, id entities.MarketID) (*entities.Market, error) {
	m, ok := r.store.Markets[id]
	if !ok {
		return nil, nil
	}
	return deepCopy(m), nil
}

func (r *memMarketRepo) Create(ctx context.Context, market *entities.Market) error {
	r.store.Markets[market.ID] = deepCopy(market)
	r.store.MarketOrder = append(r.store.MarketOrder, market.ID)
	return nil
}

func (r *memMarketRepo) Update(ctx context.Context, market *entities.Market) error {
	if _, ok := r.store.Markets[market.ID]; !ok {
		return fmt.Errorf("market %s does not exist", market.ID)
	}
	r.store.Markets[market.ID] = deepCopy(market)
	return nil
}

func (r *memMarketRepo) SetOpen(ctx context.Context, id entities.MarketID, open bool) error {
	if open {
		r.store.OpenSet[id] = true
	} else {
		delete(r.store.OpenSet, id)
	}
	return nil
}

func (r *memMarketRepo) CountOpen(ctx context.Context) (int64, error) {
	return int64(len(r.store.OpenSet)), nil
}

func (r *memMarketRepo) List(ctx context.Context, limit int64) ([]*entities.Market, error) {
	var out []*entities.Market
	for i := len(r.store.MarketOrder) - 1; i >= 0 && int64(len(out)) < limit; i-- {
		out = append(out, deepCopy(r.store.Markets[r.store.MarketOrder[i]]))
	}
	return out, nil
}

type memBetRepo memoryUow

func (r *memBetRepo) GetByID(ctx context.Context, id entities.BetID) (*entities.Bet, error) {
	b, ok := r.store.Bets[id]
	if !ok {
		return nil, nil
	}
	return deepCopy(b), nil
}

func (r *memBetRepo) Create(ctx context.Context, bet *entities.Bet) error {
	r.store.Bets[bet.ID] = deepCopy(bet)
	r.store.MarketBets[bet.MarketID] = append(r.store.MarketBets[bet.MarketID], bet.ID)
	r.store.UserBets[bet.UserID] = append(r.store.UserBets[bet.UserID], bet.ID)
	return nil
}

func (r *memBetRepo) Update(ctx context.Context, bet *entities.Bet) error {
	if _, ok := r.store.Bets[bet.ID]; !ok {
		return fmt.Errorf("bet %s does not exist", bet.ID)
	}
	r.store.Bets[bet.ID] = deepCopy(bet)
	return nil
}

func (r *memBetRepo) GetMarketBetIDs(ctx context.Context, marketID entities.MarketID) ([]entities.BetID, error) {
	return append([]entities.BetID{}, r.store.MarketBets[marketID]...), nil
}

func (r *memBetRepo) GetByMarket(ctx context.Context, marketID entities.MarketID, activeOnly bool) ([]*entities.Bet, error) {
	var out []*entities.Bet
	for _, id := range r.store.MarketBets[marketID] {
		bet := r.store.Bets[id]
		if activeOnly && !bet.IsActive() {
			continue
		}
		out = append(out, deepCopy(bet))
	}
	return out, nil
}

func (r *memBetRepo) GetByUser(ctx context.Context, userID entities.UserID, limit int64) ([]*entities.Bet, error) {
	ids := r.store.UserBets[userID]
	var out []*entities.Bet
	for i := len(ids) - 1; i >= 0 && int64(len(out)) < limit; i-- {
		out = append(out, deepCopy(r.store.Bets[ids[i]]))
	}
	return out, nil
}

func (r *memBetRepo) GetActivePointer(ctx context.Context, userID entities.UserID, marketID entities.MarketID) (*entities.BetID, error) {
	id, ok := r.store.Pointers[pointerKey(userID, marketID)]
	if !ok {
		return nil, nil
	}
	return &id, nil
}

func (r *memBetRepo) SetActivePointer(ctx context.Context, userID entities.UserID, marketID entities.MarketID, betID entities.BetID) error {
	r.store.Pointers[pointerKey(userID, marketID)] = betID
	return nil
}

func (r *memBetRepo) ClearActivePointer(ctx context.Context, userID entities.UserID, marketID entities.MarketID) error {
	delete(r.store.Pointers, pointerKey(userID, marketID))
	return nil
}

type memBalanceRepo memoryUow

func (r *memBalanceRepo) GetByUser(ctx context.Context, userID entities.UserID) (*entities.UserBalance, error) {
	b, ok := r.store.Balances[userID]
	if !ok {
		return nil, nil
	}
	return deepCopy(b), nil
}

func (r *memBalanceRepo) Save(ctx context.Context, balance *entities.UserBalance) error {
	r.store.Balances[balance.UserID] = deepCopy(balance)
	return nil
}

type memLedgerRepo memoryUow

func (r *memLedgerRepo) Append(ctx context.Context, entry *entities.LedgerEntry) error {
	r.store.Ledger[entry.UserID] = append(r.store.Ledger[entry.UserID], deepCopy(entry))
	return nil
}

func (r *memLedgerRepo) GetByUser(ctx context.Context, userID entities.UserID, limit int64) ([]*entities.LedgerEntry, error) {
	all := r.store.Ledger[userID]
	var out []*entities.LedgerEntry
	for i := len(all) - 1; i >= 0 && int64(len(out)) < limit; i-- {
		out = append(out, deepCopy(all[i]))
	}
	return out, nil
}

type memLeaderboardRepo memoryUow

func (r *memLeaderboardRepo) AddScore(ctx context.Context, window entities.Window, userID entities.UserID, username string, delta entities.Points) error {
	if r.store.Scores[window] == nil {
		r.store.Scores[window] = map[entities.UserID]entities.Points{}
	}
	r.store.Scores[window][userID] = r.store.Scores[window][userID].Add(delta)
	if username != "" {
		r.store.Usernames[userID] = username
	}
	return nil
}

func (r *memLeaderboardRepo) Top(ctx context.Context, window entities.Window, limit int64) ([]*entities.LeaderboardEntry, error) {
	scores := r.store.Scores[window]
	users := make([]entities.UserID, 0, len(scores))
	for u := range scores {
		users = append(users, u)
	}
	// descending score, ties broken by user ID descending, matching the
	// sorted-set reverse range ordering of the production store
	sort.Slice(users, func(i, j int) bool {
		if scores[users[i]] != scores[users[j]] {
			return scores[users[i]] > scores[users[j]]
		}
		return users[i] > users[j]
	})
	var out []*entities.LeaderboardEntry
	for i, u := range users {
		if int64(len(out)) >= limit {
			break
		}
		out = append(out, &entities.LeaderboardEntry{
			UserID:   u,
			Username: r.store.Usernames[u],
			Score:    scores[u],
			Rank:     int64(i + 1),
			Window:   window,
		})
	}
	return out, nil
}

func (r *memLeaderboardRepo) Rank(ctx context.Context, window entities.Window, userID entities.UserID) (*entities.LeaderboardEntry, error) {
	all, err := r.Top(ctx, window, int64(len(r.store.Scores[window])))
	if err != nil {
		return nil, err
	}
	for _, entry := range all {
		if entry.UserID == userID {
			return entry, nil
		}
	}
	return nil, nil
}

type memAuditRepo memoryUow

func (r *memAuditRepo) Record(ctx context.Context, action *entities.AuditAction) error {
	r.store.Audits = append(r.store.Audits, deepCopy(action))
	return nil
}

type memPublisher memoryUow

func (p *memPublisher) Publish(event events.Event) error {
	p.pending = append(p.pending, event)
	return nil
}
