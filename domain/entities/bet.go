package entities

import (
	"fmt"
	"time"
)

// BetSide is the side of a binary market a bet backs.
type BetSide string

const (
	BetSideYes BetSide = "yes"
	BetSideNo  BetSide = "no"
)

// ParseBetSide validates a side string.
func ParseBetSide(s string) (BetSide, error) {
	switch BetSide(s) {
	case BetSideYes, BetSideNo:
		return BetSide(s), nil
	default:
		return "", fmt.Errorf("invalid bet side: %q", s)
	}
}

// Wins reports whether this side wins under the given resolution.
func (s BetSide) Wins(r Resolution) bool {
	return string(s) == string(r)
}

// BetStatus represents the settlement state of a bet. A bet is mutated
// exactly once, at settlement, to a terminal status.
type BetStatus string

const (
	BetStatusActive   BetStatus = "active"
	BetStatusWon      BetStatus = "won"
	BetStatusLost     BetStatus = "lost"
	BetStatusRefunded BetStatus = "refunded"
)

// Bet represents a single wager on one side of a market.
type Bet struct {
	ID        BetID      `json:"id"`
	MarketID  MarketID   `json:"marketId"`
	UserID    UserID     `json:"userId"`
	Side      BetSide    `json:"side"`
	Wager     Points     `json:"wager"`
	Status    BetStatus  `json:"status"`
	Payout    *Points    `json:"payout,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	SettledAt *time.Time `json:"settledAt,omitempty"`

	// LedgerEntryID links the bet to the debit entry recorded when it was
	// placed.
	LedgerEntryID *LedgerEntryID `json:"ledgerEntryId,omitempty"`
}

// NewBet creates an active bet.
func NewBet(marketID MarketID, userID UserID, side BetSide, wager Points, now time.Time) *Bet {
	return &Bet{
		ID:        NewBetID(),
		MarketID:  marketID,
		UserID:    userID,
		Side:      side,
		Wager:     wager,
		Status:    BetStatusActive,
		CreatedAt: now,
	}
}

// IsActive reports whether the bet has not yet been settled.
func (b *Bet) IsActive() bool {
	return b.Status == BetStatusActive
}

// ProportionalPayout computes the pari-mutuel payout for a winning bet:
// floor(wager * totalPool / supportingPot), floored at the original wager so
// a winner never receives less than their stake even under degenerate pot
// ratios. Floor division, not rounding.
func (b *Bet) ProportionalPayout(supportingPot, totalPool Points) Points {
	if supportingPot.IsZero() {
		return b.Wager
	}
	share := b.Wager.Int64() * totalPool.Int64() / supportingPot.Int64()
	if share < b.Wager.Int64() {
		return b.Wager
	}
	return Points(share)
}

// SettleWon marks the bet won with the given payout.
func (b *Bet) SettleWon(payout Points, now time.Time) {
	if !b.IsActive() {
		return
	}
	b.Status = BetStatusWon
	b.Payout = &payout
	b.SettledAt = &now
}

// SettleLost marks the bet lost with a zero payout.
func (b *Bet) SettleLost(now time.Time) {
	if !b.IsActive() {
		return
	}
	zero := Points(0)
	b.Status = BetStatusLost
	b.Payout = &zero
	b.SettledAt = &now
}

// Refund marks the bet refunded; the payout equals the original wager.
func (b *Bet) Refund(now time.Time) {
	if !b.IsActive() {
		return
	}
	refund := b.Wager
	b.Status = BetStatusRefunded
	b.Payout = &refund
	b.SettledAt = &now
}
