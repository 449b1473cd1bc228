package entities

import "time"

// AuditKind classifies a moderator or participant action.
type AuditKind string

const (
	AuditKindMarketCreate  AuditKind = "market_create"
	AuditKindMarketPublish AuditKind = "market_publish"
	AuditKindMarketClose   AuditKind = "market_close"
	AuditKindMarketResolve AuditKind = "market_resolve"
	AuditKindMarketVoid    AuditKind = "market_void"
	AuditKindMarketArchive AuditKind = "market_archive"
	AuditKindBetPlace      AuditKind = "bet_place"
	AuditKindBalanceAdjust AuditKind = "balance_adjust"
)

// AuditAction is one structured record of a mutating engine operation with
// a known actor. The engine is write-only toward the audit sink.
type AuditAction struct {
	ID            AuditActionID  `json:"id"`
	Subreddit     string         `json:"subreddit"`
	ActorID       UserID         `json:"actorId"`
	ActorUsername string         `json:"actorUsername,omitempty"`
	Kind          AuditKind      `json:"kind"`
	TargetMarket  *MarketID      `json:"targetMarket,omitempty"`
	TargetUser    *UserID        `json:"targetUser,omitempty"`
	Payload       map[string]any `json:"payload,omitempty"`

	// Balance snapshot, set for balance adjustments only.
	BalanceBefore *Points `json:"balanceBefore,omitempty"`
	BalanceAfter  *Points `json:"balanceAfter,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

// NewAuditAction constructs an audit record for the given actor and kind.
func NewAuditAction(subreddit string, actor UserID, username string, kind AuditKind, now time.Time) *AuditAction {
	return &AuditAction{
		ID:            NewAuditActionID(),
		Subreddit:     subreddit,
		ActorID:       actor,
		ActorUsername: username,
		Kind:          kind,
		Payload:       map[string]any{},
		CreatedAt:     now,
	}
}

// WithMarket sets the target market.
func (a *AuditAction) WithMarket(id MarketID) *AuditAction {
	a.TargetMarket = &id
	return a
}

// WithUser sets the target user.
func (a *AuditAction) WithUser(id UserID) *AuditAction {
	a.TargetUser = &id
	return a
}

// WithBalanceSnapshot records the before/after balance for an adjustment.
func (a *AuditAction) WithBalanceSnapshot(before, after Points) *AuditAction {
	a.BalanceBefore = &before
	a.BalanceAfter = &after
	return a
}
