package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subbets/config"
	"subbets/domain/apperrors"
	"subbets/domain/entities"
	"subbets/domain/events"
	"subbets/domain/interfaces"
	"subbets/repository/testutil"
)

const testSubreddit = "golang"

// capturingPublisher records events handed over after commit.
type capturingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *capturingPublisher) Publish(event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *capturingPublisher) Events() []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.Event{}, p.events...)
}

func setupFactory(t *testing.T) (*testutil.TestRedis, *UnitOfWorkFactory, *capturingPublisher) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis integration test in short mode")
	}
	config.SetTestConfig(config.NewTestConfig())
	t.Cleanup(config.ResetConfig)

	tr := testutil.SetupTestRedis(t)
	pub := &capturingPublisher{}
	return tr, NewUnitOfWorkFactory(tr.Client, pub), pub
}

func TestRunnerCommitsAtomically(t *testing.T) {
	_, factory, _ := setupFactory(t)
	ctx := context.Background()
	runner := factory.CreateForSubreddit(testSubreddit)

	now := time.Now()
	market := entities.NewMarket(testSubreddit, "Will it build?", "mod", now)
	market.Publish("mod", now.Add(time.Hour), now)

	err := runner.Do(ctx, interfaces.WatchSet{}, func(ctx context.Context, uow interfaces.UnitOfWork) error {
		if err := uow.Markets().Create(ctx, market); err != nil {
			return err
		}
		return uow.Markets().SetOpen(ctx, market.ID, true)
	})
	require.NoError(t, err)

	view := factory.ReadOnly(testSubreddit)
	loaded, err := view.Markets().GetByID(ctx, market.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, market.Question, loaded.Question)
	assert.Equal(t, entities.MarketStatusOpen, loaded.Status)

	open, err := view.Markets().CountOpen(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), open)

	markets, err := view.Markets().List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, markets, 1)
	assert.Equal(t, market.ID, markets[0].ID)
}

func TestRunnerAbortsWithZeroEffect(t *testing.T) {
	_, factory, pub := setupFactory(t)
	ctx := context.Background()
	runner := factory.CreateForSubreddit(testSubreddit)

	market := entities.NewMarket(testSubreddit, "q", "mod", time.Now())

	err := runner.Do(ctx, interfaces.WatchSet{}, func(ctx context.Context, uow interfaces.UnitOfWork) error {
		if err := uow.Markets().Create(ctx, market); err != nil {
			return err
		}
		if err := uow.EventBus().Publish(events.MarketStateChangeEvent{MarketID: market.ID}); err != nil {
			return err
		}
		return apperrors.NewValidation("nope")
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))

	loaded, err := factory.ReadOnly(testSubreddit).Markets().GetByID(ctx, market.ID)
	require.NoError(t, err)
	assert.Nil(t, loaded)
	// Buffered events are discarded with the failed attempt.
	assert.Empty(t, pub.Events())
}

func TestRunnerFlushesEventsAfterCommit(t *testing.T) {
	_, factory, pub := setupFactory(t)
	ctx := context.Background()
	runner := factory.CreateForSubreddit(testSubreddit)

	market := entities.NewMarket(testSubreddit, "q", "mod", time.Now())

	err := runner.Do(ctx, interfaces.WatchSet{}, func(ctx context.Context, uow interfaces.UnitOfWork) error {
		if err := uow.Markets().Create(ctx, market); err != nil {
			return err
		}
		return uow.EventBus().Publish(events.MarketStateChangeEvent{
			MarketID:  market.ID,
			Subreddit: testSubreddit,
		})
	})
	require.NoError(t, err)

	published := pub.Events()
	require.Len(t, published, 1)
	assert.Equal(t, events.EventTypeMarketStateChange, published[0].Type())
}

func TestRunnerRetriesOnWatchConflict(t *testing.T) {
	tr, factory, _ := setupFactory(t)
	ctx := context.Background()
	runner := factory.CreateForSubreddit(testSubreddit)
	keys := newKeyspace(testSubreddit)

	userID := entities.UserID("alice")
	watch := interfaces.WatchSet{Balances: []entities.UserID{userID}}

	attempts := 0
	err := runner.Do(ctx, watch, func(ctx context.Context, uow interfaces.UnitOfWork) error {
		attempts++
		if attempts == 1 {
			// A concurrent writer touches the watched key between
			// snapshot load and commit.
			require.NoError(t, tr.Client.Set(ctx, keys.balance(userID), "{}", 0).Err())
		}
		balance := entities.NewUserBalance(userID, testSubreddit, entities.Points(1000), time.Now())
		return uow.Balances().Save(ctx, balance)
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)

	loaded, err := factory.ReadOnly(testSubreddit).Balances().GetByUser(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, entities.Points(1000), loaded.Balance)
}

func TestRunnerConflictExhausted(t *testing.T) {
	tr, factory, _ := setupFactory(t)
	ctx := context.Background()
	runner := factory.CreateForSubreddit(testSubreddit)
	keys := newKeyspace(testSubreddit)

	userID := entities.UserID("alice")
	watch := interfaces.WatchSet{Balances: []entities.UserID{userID}}

	attempts := 0
	err := runner.Do(ctx, watch, func(ctx context.Context, uow interfaces.UnitOfWork) error {
		attempts++
		// Every attempt loses the race.
		require.NoError(t, tr.Client.Incr(ctx, keys.balance(userID)).Err())
		return uow.Bets().SetActivePointer(ctx, userID, "m", "b")
	})

	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))
	assert.Equal(t, 3, attempts)

	pointer, err := factory.ReadOnly(testSubreddit).Bets().GetActivePointer(ctx, userID, "m")
	require.NoError(t, err)
	assert.Nil(t, pointer)
}

func TestRunnerWatchExtension(t *testing.T) {
	tr, factory, _ := setupFactory(t)
	ctx := context.Background()
	runner := factory.CreateForSubreddit(testSubreddit)
	keys := newKeyspace(testSubreddit)

	betID := entities.BetID("bet-1")
	attempts := 0
	err := runner.Do(ctx, interfaces.WatchSet{}, func(ctx context.Context, uow interfaces.UnitOfWork) error {
		attempts++
		// Key discovered mid-attempt, watched before any write.
		if err := uow.Watch(ctx, interfaces.WatchSet{Bets: []entities.BetID{betID}}); err != nil {
			return err
		}
		if attempts == 1 {
			require.NoError(t, tr.Client.Set(ctx, keys.bet(betID), "{}", 0).Err())
		}
		return uow.Bets().SetActivePointer(ctx, "alice", "m", betID)
	})

	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
}
