package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subbets/domain/entities"
)

func TestGetWalletDefaultsToStartingBalance(t *testing.T) {
	f := newTestFactory(t)
	svc := NewLeaderboardService(f)

	wallet, err := svc.GetWallet(context.Background(), testSubreddit, "newcomer")
	require.NoError(t, err)

	assert.Equal(t, entities.Points(1000), wallet.Balance)
	// The view does not persist a record; only balance-affecting
	// operations create one.
	assert.Empty(t, f.Store.Balances)
}

func TestGetLeaderboardRanksByScore(t *testing.T) {
	f := newTestFactory(t)
	adj := NewAdjustmentService(f)
	svc := NewLeaderboardService(f)
	ctx := context.Background()

	_, err := adj.Credit(ctx, testSubreddit, "alice", moderator, entities.Points(300), "prize", "")
	require.NoError(t, err)
	_, err = adj.Credit(ctx, testSubreddit, "bob", moderator, entities.Points(500), "prize", "")
	require.NoError(t, err)
	_, err = adj.Credit(ctx, testSubreddit, "carol", moderator, entities.Points(100), "prize", "")
	require.NoError(t, err)

	entries, err := svc.GetLeaderboard(ctx, testSubreddit, entities.WindowAllTime, 2)
	require.NoError(t, err)

	require.Len(t, entries, 2)
	assert.Equal(t, entities.UserID("bob"), entries[0].UserID)
	assert.Equal(t, entities.Points(500), entries[0].Score)
	assert.Equal(t, int64(1), entries[0].Rank)
	assert.Equal(t, entities.UserID("alice"), entries[1].UserID)
	assert.Equal(t, int64(2), entries[1].Rank)
}

func TestGetUserLedgerNewestFirst(t *testing.T) {
	f := newTestFactory(t)
	adj := NewAdjustmentService(f)
	svc := NewLeaderboardService(f)
	ctx := context.Background()

	_, err := adj.Credit(ctx, testSubreddit, "alice", moderator, entities.Points(100), "first", "")
	require.NoError(t, err)
	_, err = adj.Credit(ctx, testSubreddit, "alice", moderator, entities.Points(200), "second", "")
	require.NoError(t, err)

	entries, err := svc.GetUserLedger(ctx, testSubreddit, "alice", 10)
	require.NoError(t, err)

	require.Len(t, entries, 2)
	assert.Equal(t, entities.Points(200), entries[0].Amount)
	assert.Equal(t, entities.Points(100), entries[1].Amount)
}
