package entities

import (
	"time"
)

// MarketStatus represents the lifecycle state of a market. Transitions are
// monotonic: draft -> open -> closed -> resolved, with void reachable from
// open or closed. There are no backward transitions.
type MarketStatus string

const (
	MarketStatusDraft    MarketStatus = "draft"
	MarketStatusOpen     MarketStatus = "open"
	MarketStatusClosed   MarketStatus = "closed"
	MarketStatusResolved MarketStatus = "resolved"
	MarketStatusVoid     MarketStatus = "void"
)

// Resolution represents the recorded outcome of a settled market.
type Resolution string

const (
	ResolutionYes  Resolution = "yes"
	ResolutionNo   Resolution = "no"
	ResolutionVoid Resolution = "void"
)

// LifecycleAnnotationsVersion is the current schema version of the
// lifecycle annotation set. Bump when fields are added.
const LifecycleAnnotationsVersion = 1

// LifecycleAnnotations records who performed each lifecycle transition and
// when. It replaces the untyped metadata bag with a closed, versioned set of
// optional fields.
type LifecycleAnnotations struct {
	SchemaVersion int `json:"schemaVersion"`

	PublishedAt *time.Time `json:"publishedAt,omitempty"`
	PublishedBy *UserID    `json:"publishedBy,omitempty"`

	ClosedAt   *time.Time `json:"closedAt,omitempty"`
	ClosedBy   *UserID    `json:"closedBy,omitempty"`
	AutoClosed bool       `json:"autoClosed,omitempty"`

	ResolvedAt    *time.Time `json:"resolvedAt,omitempty"`
	ResolvedBy    *UserID    `json:"resolvedBy,omitempty"`
	ResolverNotes string     `json:"resolverNotes,omitempty"`

	VoidedAt   *time.Time `json:"voidedAt,omitempty"`
	VoidedBy   *UserID    `json:"voidedBy,omitempty"`
	VoidReason string     `json:"voidReason,omitempty"`

	ArchivedAt   *time.Time `json:"archivedAt,omitempty"`
	ArchivedBy   *UserID    `json:"archivedBy,omitempty"`
	ArchiveCount int        `json:"archiveCount,omitempty"`
}

// Market represents a binary-outcome prediction market within a subreddit.
type Market struct {
	ID         MarketID     `json:"id"`
	Subreddit  string       `json:"subreddit"`
	Question   string       `json:"question"`
	Status     MarketStatus `json:"status"`
	PotYes     Points       `json:"potYes"`
	PotNo      Points       `json:"potNo"`
	TotalBets  int64        `json:"totalBets"`
	Resolution *Resolution  `json:"resolution,omitempty"`
	CreatedBy  UserID       `json:"createdBy"`
	CreatedAt  time.Time    `json:"createdAt"`
	ClosesAt   *time.Time   `json:"closesAt,omitempty"`

	Annotations LifecycleAnnotations `json:"annotations"`
}

// NewMarket creates a market in draft status.
func NewMarket(subreddit, question string, createdBy UserID, now time.Time) *Market {
	return &Market{
		ID:        NewMarketID(),
		Subreddit: subreddit,
		Question:  question,
		Status:    MarketStatusDraft,
		CreatedBy: createdBy,
		CreatedAt: now,
		Annotations: LifecycleAnnotations{
			SchemaVersion: LifecycleAnnotationsVersion,
		},
	}
}

// IsOpen reports whether the market is accepting bets at all.
func (m *Market) IsOpen() bool {
	return m.Status == MarketStatusOpen
}

// IsTerminal reports whether the market has reached a terminal status.
func (m *Market) IsTerminal() bool {
	return m.Status == MarketStatusResolved || m.Status == MarketStatusVoid
}

// CanAcceptBets reports whether a bet may be placed at the given time.
func (m *Market) CanAcceptBets(now time.Time) bool {
	if m.Status != MarketStatusOpen {
		return false
	}
	return m.ClosesAt == nil || now.Before(*m.ClosesAt)
}

// CanResolve reports whether the market may be resolved to yes/no.
func (m *Market) CanResolve() bool {
	return m.Status == MarketStatusClosed
}

// CanVoid reports whether the market may be voided.
func (m *Market) CanVoid() bool {
	return m.Status == MarketStatusOpen || m.Status == MarketStatusClosed
}

// TotalPool returns the combined pot of both sides.
func (m *Market) TotalPool() Points {
	return m.PotYes.Add(m.PotNo)
}

// Pot returns the pot for one side.
func (m *Market) Pot(side BetSide) Points {
	if side == BetSideYes {
		return m.PotYes
	}
	return m.PotNo
}

// AddToPot adds a wager to one side's pot and bumps the bet counter.
// TotalBets is monotonic and is never decremented, even after settlement.
func (m *Market) AddToPot(side BetSide, wager Points) {
	if side == BetSideYes {
		m.PotYes = m.PotYes.Add(wager)
	} else {
		m.PotNo = m.PotNo.Add(wager)
	}
	m.TotalBets++
}

// Publish transitions the market from draft to open.
func (m *Market) Publish(by UserID, closesAt time.Time, now time.Time) {
	if m.Status != MarketStatusDraft {
		return
	}
	m.Status = MarketStatusOpen
	m.ClosesAt = &closesAt
	m.Annotations.PublishedAt = &now
	m.Annotations.PublishedBy = &by
}

// Close transitions the market from open to closed. A nil moderator marks
// the close as triggered by the external scheduler.
func (m *Market) Close(by *UserID, now time.Time) {
	if m.Status != MarketStatusOpen {
		return
	}
	m.Status = MarketStatusClosed
	m.Annotations.ClosedAt = &now
	m.Annotations.ClosedBy = by
	m.Annotations.AutoClosed = by == nil
}

// Resolve transitions a closed market to resolved with the winning side.
func (m *Market) Resolve(outcome Resolution, by UserID, notes string, now time.Time) {
	if !m.CanResolve() {
		return
	}
	m.Status = MarketStatusResolved
	m.Resolution = &outcome
	m.Annotations.ResolvedAt = &now
	m.Annotations.ResolvedBy = &by
	m.Annotations.ResolverNotes = notes
}

// Void transitions an open or closed market to void.
func (m *Market) Void(by UserID, reason string, now time.Time) {
	if !m.CanVoid() {
		return
	}
	m.Status = MarketStatusVoid
	voided := ResolutionVoid
	m.Resolution = &voided
	m.Annotations.VoidedAt = &now
	m.Annotations.VoidedBy = &by
	m.Annotations.VoidReason = reason
}

// Archive records archive annotations on a terminal market. Markets are
// never deleted.
func (m *Market) Archive(by UserID, now time.Time) {
	if !m.IsTerminal() {
		return
	}
	m.Annotations.ArchivedAt = &now
	m.Annotations.ArchivedBy = &by
	m.Annotations.ArchiveCount++
}

// MarketDetail combines a market with its bets and the requesting user's
// own active bet, if any.
type MarketDetail struct {
	Market     *Market
	ActiveBets []*Bet
	UserBet    *Bet
}
