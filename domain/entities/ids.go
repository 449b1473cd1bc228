package entities

import "github.com/google/uuid"

// MarketID identifies a prediction market.
type MarketID string

// BetID identifies a single bet.
type BetID string

// UserID identifies a participant or moderator. User IDs come from the
// identity collaborator and are treated as opaque.
type UserID string

// LedgerEntryID identifies an immutable ledger entry.
type LedgerEntryID string

// AuditActionID identifies a structured audit record.
type AuditActionID string

// NewMarketID generates a new random market ID.
func NewMarketID() MarketID {
	return MarketID(uuid.NewString())
}

// NewBetID generates a new random bet ID.
func NewBetID() BetID {
	return BetID(uuid.NewString())
}

// NewLedgerEntryID generates a new random ledger entry ID.
func NewLedgerEntryID() LedgerEntryID {
	return LedgerEntryID(uuid.NewString())
}

// NewAuditActionID generates a new random audit action ID.
func NewAuditActionID() AuditActionID {
	return AuditActionID(uuid.NewString())
}

func (id MarketID) String() string      { return string(id) }
func (id BetID) String() string         { return string(id) }
func (id UserID) String() string        { return string(id) }
func (id LedgerEntryID) String() string { return string(id) }
func (id AuditActionID) String() string { return string(id) }
