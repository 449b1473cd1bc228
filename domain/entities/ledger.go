package entities

import (
	"errors"
	"time"
)

// LedgerEntryType classifies a balance-affecting event.
type LedgerEntryType string

const (
	LedgerEntryTypeDebit      LedgerEntryType = "debit"
	LedgerEntryTypeCredit     LedgerEntryType = "credit"
	LedgerEntryTypePayout     LedgerEntryType = "payout"
	LedgerEntryTypeRefund     LedgerEntryType = "refund"
	LedgerEntryTypeAdjustment LedgerEntryType = "adjustment"
)

// CountsTowardLeaderboard reports whether entries of this type contribute
// their magnitude to leaderboard scores. Debits (new wagers) contribute
// nothing, so leaderboard score measures net winnings and credits rather
// than wagering volume.
func (t LedgerEntryType) CountsTowardLeaderboard() bool {
	return t != LedgerEntryTypeDebit
}

func (t LedgerEntryType) String() string {
	return string(t)
}

// RelatedType identifies what kind of record a ledger entry refers to.
type RelatedType string

const (
	RelatedTypeMarket     RelatedType = "market"
	RelatedTypeBet        RelatedType = "bet"
	RelatedTypeAdjustment RelatedType = "adjustment"
)

// LedgerEntry is an append-only record of a single balance change. Entries
// are never updated or deleted. The delta is stored as a non-negative
// magnitude plus type; BalanceAfter is captured atomically with the
// mutation it documents.
type LedgerEntry struct {
	ID           LedgerEntryID   `json:"id"`
	UserID       UserID          `json:"userId"`
	Subreddit    string          `json:"subreddit"`
	Type         LedgerEntryType `json:"type"`
	Amount       Points          `json:"amount"`
	BalanceAfter Points          `json:"balanceAfter"`
	RelatedID    *string         `json:"relatedId,omitempty"`
	RelatedType  *RelatedType    `json:"relatedType,omitempty"`
	Metadata     map[string]any  `json:"metadata,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// NewLedgerEntry constructs an entry for the given change.
func NewLedgerEntry(userID UserID, subreddit string, entryType LedgerEntryType, amount, balanceAfter Points, now time.Time) *LedgerEntry {
	return &LedgerEntry{
		ID:           NewLedgerEntryID(),
		UserID:       userID,
		Subreddit:    subreddit,
		Type:         entryType,
		Amount:       amount,
		BalanceAfter: balanceAfter,
		CreatedAt:    now,
	}
}

// WithRelated attaches the record the entry documents.
func (e *LedgerEntry) WithRelated(relatedType RelatedType, id string) *LedgerEntry {
	e.RelatedID = &id
	e.RelatedType = &relatedType
	return e
}

// Validate performs basic consistency checks before the entry is recorded.
func (e *LedgerEntry) Validate() error {
	if e.UserID == "" {
		return errors.New("ledger entry requires a user")
	}
	if e.Amount < 0 {
		return errors.New("ledger entry amount cannot be negative")
	}
	if e.BalanceAfter < 0 {
		return errors.New("ledger entry balance cannot be negative")
	}
	return nil
}
