package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProportionalPayout(t *testing.T) {
	tests := []struct {
		name          string
		wager         int64
		supportingPot int64
		totalPool     int64
		expected      int64
	}{
		{
			name:          "sole winner takes the whole pool",
			wager:         100,
			supportingPot: 100,
			totalPool:     400,
			expected:      400,
		},
		{
			name:          "proportional share uses floor division",
			wager:         100,
			supportingPot: 300,
			totalPool:     400,
			expected:      133, // floor(100*400/300)
		},
		{
			name:          "payout never drops below the wager",
			wager:         100,
			supportingPot: 400,
			totalPool:     400,
			expected:      100,
		},
		{
			name:          "empty supporting pot falls back to wager",
			wager:         250,
			supportingPot: 0,
			totalPool:     250,
			expected:      250,
		},
		{
			name:          "even split of two equal wagers",
			wager:         50,
			supportingPot: 100,
			totalPool:     200,
			expected:      100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bet := NewBet("m", "u", BetSideYes, Points(tt.wager), time.Now())
			payout := bet.ProportionalPayout(Points(tt.supportingPot), Points(tt.totalPool))
			assert.Equal(t, Points(tt.expected), payout)
		})
	}
}

func TestBetSettlementIsTerminal(t *testing.T) {
	now := time.Now()
	bet := NewBet("m", "u", BetSideNo, Points(100), now)
	require.True(t, bet.IsActive())

	bet.SettleWon(Points(300), now)
	require.Equal(t, BetStatusWon, bet.Status)
	require.NotNil(t, bet.Payout)
	assert.Equal(t, Points(300), *bet.Payout)

	// Settled bets ignore further settlement calls.
	bet.SettleLost(now)
	assert.Equal(t, BetStatusWon, bet.Status)
	bet.Refund(now)
	assert.Equal(t, BetStatusWon, bet.Status)
	assert.Equal(t, Points(300), *bet.Payout)
}

func TestBetRefundPaysOutWager(t *testing.T) {
	now := time.Now()
	bet := NewBet("m", "u", BetSideYes, Points(75), now)

	bet.Refund(now)

	assert.Equal(t, BetStatusRefunded, bet.Status)
	require.NotNil(t, bet.Payout)
	assert.Equal(t, Points(75), *bet.Payout)
	require.NotNil(t, bet.SettledAt)
}

func TestParseBetSide(t *testing.T) {
	side, err := ParseBetSide("yes")
	require.NoError(t, err)
	assert.Equal(t, BetSideYes, side)

	_, err = ParseBetSide("maybe")
	assert.Error(t, err)
}

func TestBetSideWins(t *testing.T) {
	assert.True(t, BetSideYes.Wins(ResolutionYes))
	assert.False(t, BetSideYes.Wins(ResolutionNo))
	assert.False(t, BetSideNo.Wins(ResolutionVoid))
}
