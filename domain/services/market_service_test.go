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
	"subbets/domain/testhelpers"
)

func TestCreateMarket(t *testing.T) {
	f := newTestFactory(t)
	svc := NewMarketService(f)

	market, err := svc.CreateMarket(context.Background(), testSubreddit, "Will the next minor release break anything?", moderator)
	require.NoError(t, err)

	assert.Equal(t, entities.MarketStatusDraft, market.Status)
	require.NotNil(t, f.Store.Markets[market.ID])
	assert.False(t, f.Store.OpenSet[market.ID])

	require.Len(t, f.Store.Audits, 1)
	assert.Equal(t, entities.AuditKindMarketCreate, f.Store.Audits[0].Kind)
}

func TestCreateMarketRequiresQuestion(t *testing.T) {
	f := newTestFactory(t)
	svc := NewMarketService(f)

	_, err := svc.CreateMarket(context.Background(), testSubreddit, "   ", moderator)

	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.Empty(t, f.Store.Markets)
}

func TestPublishMarket(t *testing.T) {
	f := newTestFactory(t)
	now := time.Now()
	draft := entities.NewMarket(testSubreddit, "q", "mod", now)
	f.Store.SeedMarket(draft)
	svc := NewMarketService(f)

	closesAt := now.Add(2 * time.Hour)
	market, err := svc.PublishMarket(context.Background(), testSubreddit, draft.ID, moderator, closesAt)
	require.NoError(t, err)

	assert.Equal(t, entities.MarketStatusOpen, market.Status)
	require.NotNil(t, market.ClosesAt)
	assert.True(t, f.Store.OpenSet[draft.ID])
	assert.Contains(t, eventTypes(f), events.EventTypeMarketStateChange)
	require.Len(t, f.Store.Audits, 1)
	assert.Equal(t, entities.AuditKindMarketPublish, f.Store.Audits[0].Kind)

	// Publishing is draft-only.
	_, err = svc.PublishMarket(context.Background(), testSubreddit, draft.ID, moderator, closesAt)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestPublishMarketRequiresFutureClose(t *testing.T) {
	f := newTestFactory(t)
	draft := entities.NewMarket(testSubreddit, "q", "mod", time.Now())
	f.Store.SeedMarket(draft)
	svc := NewMarketService(f)

	_, err := svc.PublishMarket(context.Background(), testSubreddit, draft.ID, moderator, time.Now().Add(-time.Minute))

	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.Equal(t, entities.MarketStatusDraft, f.Store.Markets[draft.ID].Status)
}

func TestPublishMarketEnforcesOpenLimit(t *testing.T) {
	cfg := config.NewTestConfig()
	limit := 1
	cfg.MaxOpenMarkets = &limit
	config.SetTestConfig(cfg)
	t.Cleanup(config.ResetConfig)

	f := newTestFactoryWithConfig()
	seedOpenMarket(f)
	draft := entities.NewMarket(testSubreddit, "second market", "mod", time.Now())
	f.Store.SeedMarket(draft)
	svc := NewMarketService(f)

	_, err := svc.PublishMarket(context.Background(), testSubreddit, draft.ID, moderator, time.Now().Add(time.Hour))

	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.Contains(t, err.Error(), "open markets")
}

func TestCloseMarket(t *testing.T) {
	f := newTestFactory(t)
	market := seedOpenMarket(f)
	svc := NewMarketService(f)

	closed, err := svc.CloseMarket(context.Background(), testSubreddit, market.ID, &moderator)
	require.NoError(t, err)

	assert.Equal(t, entities.MarketStatusClosed, closed.Status)
	assert.False(t, f.Store.OpenSet[market.ID])
	require.NotNil(t, closed.Annotations.ClosedBy)
	assert.Equal(t, moderator.ID, *closed.Annotations.ClosedBy)
	assert.False(t, closed.Annotations.AutoClosed)
	require.Len(t, f.Store.Audits, 1)

	// Closing again is a no-op success; moderator and scheduler may race.
	again, err := svc.CloseMarket(context.Background(), testSubreddit, market.ID, &moderator)
	require.NoError(t, err)
	assert.Equal(t, entities.MarketStatusClosed, again.Status)
	assert.Len(t, f.Store.Audits, 1)
}

func TestCloseMarketAutomatic(t *testing.T) {
	f := newTestFactory(t)
	market := seedOpenMarket(f)
	svc := NewMarketService(f)

	closed, err := svc.CloseMarket(context.Background(), testSubreddit, market.ID, nil)
	require.NoError(t, err)

	assert.True(t, closed.Annotations.AutoClosed)
	assert.Nil(t, closed.Annotations.ClosedBy)
	// Automatic closes carry no actor, so no audit record.
	assert.Empty(t, f.Store.Audits)
}

func TestCloseMarketRequiresOpen(t *testing.T) {
	f := newTestFactory(t)
	draft := entities.NewMarket(testSubreddit, "q", "mod", time.Now())
	f.Store.SeedMarket(draft)
	svc := NewMarketService(f)

	_, err := svc.CloseMarket(context.Background(), testSubreddit, draft.ID, &moderator)

	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestArchiveMarket(t *testing.T) {
	f := newTestFactory(t)
	now := time.Now()
	market := entities.NewMarket(testSubreddit, "q", "mod", now)
	market.Publish("mod", now.Add(time.Hour), now)
	market.Void("mod", "done", now)
	f.Store.SeedMarket(market)
	svc := NewMarketService(f)

	archived, err := svc.ArchiveMarket(context.Background(), testSubreddit, market.ID, moderator)
	require.NoError(t, err)

	require.NotNil(t, archived.Annotations.ArchivedAt)
	assert.Equal(t, 1, archived.Annotations.ArchiveCount)
	require.Len(t, f.Store.Audits, 1)
	assert.Equal(t, entities.AuditKindMarketArchive, f.Store.Audits[0].Kind)
}

func TestArchiveMarketRequiresTerminal(t *testing.T) {
	f := newTestFactory(t)
	market := seedOpenMarket(f)
	svc := NewMarketService(f)

	_, err := svc.ArchiveMarket(context.Background(), testSubreddit, market.ID, moderator)

	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestAutoCloseAt(t *testing.T) {
	f := newTestFactory(t)
	market := seedOpenMarket(f)
	svc := NewMarketService(f)

	at := svc.AutoCloseAt(market)
	require.NotNil(t, at)
	assert.Equal(t, market.ClosesAt.Add(5*time.Minute), *at)

	draft := entities.NewMarket(testSubreddit, "q", "mod", time.Now())
	assert.Nil(t, svc.AutoCloseAt(draft))
}

func TestGetMarketDetail(t *testing.T) {
	f := newTestFactory(t)
	market := seedOpenMarket(f)
	now := time.Now()
	aliceBet := entities.NewBet(market.ID, "alice", entities.BetSideYes, entities.Points(100), now)
	bobBet := entities.NewBet(market.ID, "bob", entities.BetSideNo, entities.Points(50), now)
	settledBet := entities.NewBet(market.ID, "carol", entities.BetSideNo, entities.Points(25), now)
	settledBet.SettleLost(now)
	f.Store.SeedBet(aliceBet)
	f.Store.SeedBet(bobBet)
	f.Store.SeedBet(settledBet)
	svc := NewMarketService(f)

	detail, err := svc.GetMarketDetail(context.Background(), testSubreddit, market.ID, "alice")
	require.NoError(t, err)

	assert.Equal(t, market.ID, detail.Market.ID)
	assert.Len(t, detail.ActiveBets, 2)
	require.NotNil(t, detail.UserBet)
	assert.Equal(t, aliceBet.ID, detail.UserBet.ID)

	// Unknown markets surface as NotFound.
	_, err = svc.GetMarketDetail(context.Background(), testSubreddit, "missing", "alice")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

// newTestFactoryWithConfig builds a factory without touching the config
// singleton, for tests that install their own.
func newTestFactoryWithConfig() *testhelpers.MemoryUowFactory {
	return testhelpers.NewMemoryUowFactory()
}
