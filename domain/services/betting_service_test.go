package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subbets/config"
	"subbets/domain/apperrors"
	"subbets/domain/entities"
	"subbets/domain/events"
	"subbets/domain/interfaces"
	"subbets/domain/testhelpers"
)

const testSubreddit = "golang"

func newTestFactory(t *testing.T) *testhelpers.MemoryUowFactory {
	t.Helper()
	config.SetTestConfig(config.NewTestConfig())
	t.Cleanup(config.ResetConfig)
	return testhelpers.NewMemoryUowFactory()
}

func seedOpenMarket(f *testhelpers.MemoryUowFactory) *entities.Market {
	now := time.Now()
	market := entities.NewMarket(testSubreddit, "Will generics land this cycle?", "mod", now)
	market.Publish("mod", now.Add(time.Hour), now)
	f.Store.SeedMarket(market)
	return market
}

func seedClosedMarket(f *testhelpers.MemoryUowFactory) *entities.Market {
	now := time.Now()
	market := entities.NewMarket(testSubreddit, "Will generics land this cycle?", "mod", now)
	market.Publish("mod", now.Add(time.Hour), now)
	closer := entities.UserID("mod")
	market.Close(&closer, now)
	f.Store.SeedMarket(market)
	return market
}

func eventTypes(f *testhelpers.MemoryUowFactory) []events.EventType {
	types := make([]events.EventType, 0, len(f.Store.Events))
	for _, e := range f.Store.Events {
		types = append(types, e.Type())
	}
	return types
}

func TestPlaceBet(t *testing.T) {
	f := newTestFactory(t)
	market := seedOpenMarket(f)
	svc := NewBettingService(f)
	alice := interfaces.Actor{ID: "alice", Username: "alice"}

	result, err := svc.PlaceBet(context.Background(), testSubreddit, market.ID, alice, entities.BetSideYes, entities.Points(100))
	require.NoError(t, err)

	require.NotNil(t, result.Bet)
	assert.Equal(t, entities.BetSideYes, result.Bet.Side)
	assert.Equal(t, entities.Points(100), result.Bet.Wager)
	assert.Equal(t, entities.BetStatusActive, result.Bet.Status)
	require.NotNil(t, result.Bet.LedgerEntryID)

	// Wallet was lazily created at the starting balance, then debited.
	require.NotNil(t, result.Wallet)
	assert.Equal(t, entities.Points(900), result.Wallet.Balance)

	stored := f.Store.Markets[market.ID]
	assert.Equal(t, entities.Points(100), stored.PotYes)
	assert.Equal(t, entities.Points(0), stored.PotNo)
	assert.Equal(t, int64(1), stored.TotalBets)

	assert.True(t, f.Store.HasPointer("alice", market.ID))

	entries := f.Store.Ledger["alice"]
	require.Len(t, entries, 1)
	assert.Equal(t, entities.LedgerEntryTypeDebit, entries[0].Type)
	assert.Equal(t, entities.Points(100), entries[0].Amount)
	assert.Equal(t, entities.Points(900), entries[0].BalanceAfter)

	// Debits never feed the leaderboard.
	assert.Empty(t, f.Store.Scores[entities.WindowAllTime])

	require.Len(t, f.Store.Audits, 1)
	assert.Equal(t, entities.AuditKindBetPlace, f.Store.Audits[0].Kind)

	assert.Contains(t, eventTypes(f), events.EventTypeBalanceCreated)
	assert.Contains(t, eventTypes(f), events.EventTypeBalanceChange)
	assert.Contains(t, eventTypes(f), events.EventTypeBetPlaced)
	assert.Contains(t, eventTypes(f), events.EventTypeAuditAction)

	require.NotNil(t, result.Detail)
	assert.Len(t, result.Detail.ActiveBets, 1)
	require.NotNil(t, result.Detail.UserBet)
	assert.Equal(t, result.Bet.ID, result.Detail.UserBet.ID)
}

func TestPlaceBetBelowMinimum(t *testing.T) {
	f := newTestFactory(t)
	market := seedOpenMarket(f)
	svc := NewBettingService(f)

	_, err := svc.PlaceBet(context.Background(), testSubreddit, market.ID, interfaces.Actor{ID: "alice"}, entities.BetSideYes, entities.Points(5))

	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	// Bounds are checked before any transaction attempt.
	assert.Equal(t, 0, f.FnRuns)
}

func TestPlaceBetInsufficientBalance(t *testing.T) {
	f := newTestFactory(t)
	market := seedOpenMarket(f)
	svc := NewBettingService(f)

	_, err := svc.PlaceBet(context.Background(), testSubreddit, market.ID, interfaces.Actor{ID: "alice"}, entities.BetSideYes, entities.Points(5000))

	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))

	// The rejected attempt left zero partial effect.
	assert.Empty(t, f.Store.Balances)
	assert.Empty(t, f.Store.Ledger)
	assert.Empty(t, f.Store.Bets)
	assert.Equal(t, entities.Points(0), f.Store.Markets[market.ID].PotYes)
	assert.Empty(t, f.Store.Events)
}

func TestPlaceBetDuplicate(t *testing.T) {
	f := newTestFactory(t)
	market := seedOpenMarket(f)
	f.Store.SeedBet(entities.NewBet(market.ID, "alice", entities.BetSideYes, entities.Points(50), time.Now()))
	svc := NewBettingService(f)

	_, err := svc.PlaceBet(context.Background(), testSubreddit, market.ID, interfaces.Actor{ID: "alice"}, entities.BetSideNo, entities.Points(50))

	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.Len(t, f.Store.Bets, 1)
}

func TestPlaceBetMarketNotOpen(t *testing.T) {
	f := newTestFactory(t)
	now := time.Now()
	draft := entities.NewMarket(testSubreddit, "q", "mod", now)
	f.Store.SeedMarket(draft)
	svc := NewBettingService(f)

	_, err := svc.PlaceBet(context.Background(), testSubreddit, draft.ID, interfaces.Actor{ID: "alice"}, entities.BetSideYes, entities.Points(50))
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))

	_, err = svc.PlaceBet(context.Background(), testSubreddit, "missing", interfaces.Actor{ID: "alice"}, entities.BetSideYes, entities.Points(50))
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestPlaceBetPastClosingTime(t *testing.T) {
	f := newTestFactory(t)
	now := time.Now()
	market := entities.NewMarket(testSubreddit, "q", "mod", now)
	market.Publish("mod", now.Add(-time.Minute), now)
	f.Store.SeedMarket(market)
	svc := NewBettingService(f)

	_, err := svc.PlaceBet(context.Background(), testSubreddit, market.ID, interfaces.Actor{ID: "alice"}, entities.BetSideYes, entities.Points(50))

	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.Contains(t, err.Error(), "closing time")
}

func TestPlaceBetRetriesOnConflict(t *testing.T) {
	f := newTestFactory(t)
	market := seedOpenMarket(f)
	f.CommitConflicts = 1
	svc := NewBettingService(f)

	result, err := svc.PlaceBet(context.Background(), testSubreddit, market.ID, interfaces.Actor{ID: "alice"}, entities.BetSideYes, entities.Points(100))

	require.NoError(t, err)
	assert.Equal(t, 2, f.FnRuns)
	// The retried attempt applied its effects exactly once.
	assert.Equal(t, entities.Points(100), f.Store.Markets[market.ID].PotYes)
	assert.Len(t, f.Store.Ledger["alice"], 1)
	assert.Equal(t, entities.Points(900), result.Wallet.Balance)
}

func TestPlaceBetConflictExhausted(t *testing.T) {
	f := newTestFactory(t)
	market := seedOpenMarket(f)
	f.CommitConflicts = 3
	svc := NewBettingService(f)

	_, err := svc.PlaceBet(context.Background(), testSubreddit, market.ID, interfaces.Actor{ID: "alice"}, entities.BetSideYes, entities.Points(100))

	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))
	assert.Equal(t, 3, f.FnRuns)
	assert.Equal(t, entities.Points(0), f.Store.Markets[market.ID].PotYes)
	assert.Empty(t, f.Store.Ledger)
}
