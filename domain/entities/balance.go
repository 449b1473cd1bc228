package entities

import (
	"errors"
	"time"
)

// UserBalance holds a user's points within one subreddit, plus cumulative
// earning aggregates. It is lazily created on the first balance-affecting
// operation and never deleted.
type UserBalance struct {
	UserID         UserID    `json:"userId"`
	Subreddit      string    `json:"subreddit"`
	Username       string    `json:"username,omitempty"`
	Balance        Points    `json:"balance"`
	LifetimeEarned Points    `json:"lifetimeEarned"`
	LifetimeLost   Points    `json:"lifetimeLost"`
	WeeklyEarned   Points    `json:"weeklyEarned"`
	MonthlyEarned  Points    `json:"monthlyEarned"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// NewUserBalance creates a balance record with the configured starting
// balance.
func NewUserBalance(userID UserID, subreddit string, starting Points, now time.Time) *UserBalance {
	return &UserBalance{
		UserID:    userID,
		Subreddit: subreddit,
		Balance:   starting,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// CanAfford reports whether the balance covers the given amount.
func (b *UserBalance) CanAfford(amount Points) bool {
	return b.Balance >= amount
}

// ApplyDebit removes points placed at risk (a new wager or a moderator
// debit). The balance invariant (>= 0) is enforced here.
func (b *UserBalance) ApplyDebit(amount Points, now time.Time) error {
	if !b.CanAfford(amount) {
		return errors.New("insufficient balance")
	}
	b.Balance -= amount
	b.LifetimeLost = b.LifetimeLost.Add(amount)
	b.UpdatedAt = now
	return nil
}

// ApplyCredit adds winnings or a moderator credit, feeding the lifetime and
// window earning aggregates.
func (b *UserBalance) ApplyCredit(amount Points, now time.Time) {
	b.Balance = b.Balance.Add(amount)
	b.LifetimeEarned = b.LifetimeEarned.Add(amount)
	b.WeeklyEarned = b.WeeklyEarned.Add(amount)
	b.MonthlyEarned = b.MonthlyEarned.Add(amount)
	b.UpdatedAt = now
}

// ApplyRefund returns a voided wager. LifetimeLost is reduced by the wager,
// floored at zero; earning aggregates are untouched.
func (b *UserBalance) ApplyRefund(amount Points, now time.Time) {
	b.Balance = b.Balance.Add(amount)
	b.LifetimeLost = b.LifetimeLost.SubFloor(amount)
	b.UpdatedAt = now
}
