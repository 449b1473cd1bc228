package events

import "subbets/domain/entities"

// EventType represents different types of events in the system.
type EventType string

const (
	EventTypeBalanceChange     EventType = "balance_change"
	EventTypeBalanceCreated    EventType = "balance_created"
	EventTypeBetPlaced         EventType = "bet_placed"
	EventTypeMarketStateChange EventType = "market_state_change"
	EventTypeAuditAction       EventType = "audit_action"
)

// Event is the base interface for all events.
type Event interface {
	Type() EventType
}

// BalanceChangeEvent represents a balance change that occurred.
type BalanceChangeEvent struct {
	UserID     entities.UserID
	Subreddit  string
	OldBalance entities.Points
	NewBalance entities.Points
	EntryType  entities.LedgerEntryType
	Amount     entities.Points
}

func (e BalanceChangeEvent) Type() EventType {
	return EventTypeBalanceChange
}

// BalanceCreatedEvent represents the lazy creation of a balance record.
type BalanceCreatedEvent struct {
	UserID          entities.UserID
	Subreddit       string
	StartingBalance entities.Points
}

func (e BalanceCreatedEvent) Type() EventType {
	return EventTypeBalanceCreated
}

// BetPlacedEvent represents a bet that was placed.
type BetPlacedEvent struct {
	BetID    entities.BetID
	MarketID entities.MarketID
	UserID   entities.UserID
	Side     entities.BetSide
	Wager    entities.Points
}

func (e BetPlacedEvent) Type() EventType {
	return EventTypeBetPlaced
}

// MarketStateChangeEvent represents a market lifecycle transition.
type MarketStateChangeEvent struct {
	MarketID  entities.MarketID
	Subreddit string
	OldStatus entities.MarketStatus
	NewStatus entities.MarketStatus
}

func (e MarketStateChangeEvent) Type() EventType {
	return EventTypeMarketStateChange
}

// AuditActionEvent carries a structured audit record to the audit sink.
type AuditActionEvent struct {
	Action *entities.AuditAction
}

func (e AuditActionEvent) Type() EventType {
	return EventTypeAuditAction
}
