package services

import (
	"context"
	"time"

	"subbets/config"
	"subbets/domain/apperrors"
	"subbets/domain/entities"
	"subbets/domain/events"
	"subbets/domain/interfaces"
	"subbets/domain/utils"

	log "github.com/sirupsen/logrus"
)

// settlementMode distinguishes the two settlement entry points sharing one
// mechanism.
type settlementMode string

const (
	settleResolve settlementMode = "resolve"
	settleVoid    settlementMode = "void"
)

type settlementService struct {
	config     *config.Config
	uowFactory interfaces.UnitOfWorkFactory
}

// NewSettlementService creates a new settlement service
func NewSettlementService(uowFactory interfaces.UnitOfWorkFactory) interfaces.SettlementService {
	return &settlementService{
		config:     config.Get(),
		uowFactory: uowFactory,
	}
}

// Resolve settles a closed market: winners split the total pool pari-mutuel,
// losers settle at zero, and the market transitions to resolved.
func (s *settlementService) Resolve(ctx context.Context, subreddit string, marketID entities.MarketID, moderator interfaces.Actor, outcome entities.Resolution, notes string) (*entities.SettlementResult, error) {
	if outcome != entities.ResolutionYes && outcome != entities.ResolutionNo {
		return nil, apperrors.NewValidation("resolution must be yes or no, got %q", outcome)
	}
	return s.settle(ctx, subreddit, marketID, moderator, settleResolve, outcome, notes)
}

// Void cancels an open or closed market, refunding every active bet in full.
func (s *settlementService) Void(ctx context.Context, subreddit string, marketID entities.MarketID, moderator interfaces.Actor, reason string) (*entities.SettlementResult, error) {
	return s.settle(ctx, subreddit, marketID, moderator, settleVoid, entities.ResolutionVoid, reason)
}

func (s *settlementService) settle(ctx context.Context, subreddit string, marketID entities.MarketID, moderator interfaces.Actor, mode settlementMode, outcome entities.Resolution, notes string) (*entities.SettlementResult, error) {
	// Terminal markets are rejected before any watch or snapshot load so
	// the operation provably mutates nothing.
	view := s.uowFactory.ReadOnly(subreddit)
	current, err := view.Markets().GetByID(ctx, marketID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, apperrors.NewNotFound("market", marketID.String())
	}
	if current.IsTerminal() {
		return nil, apperrors.NewValidation("market %s is already settled (status: %s)", marketID, current.Status)
	}

	runner := s.uowFactory.CreateForSubreddit(subreddit)
	watch := interfaces.WatchSet{
		Markets:     []entities.MarketID{marketID},
		MarketBets:  []entities.MarketID{marketID},
		OpenMarkets: true,
	}

	var result *entities.SettlementResult
	err = runner.Do(ctx, watch, func(ctx context.Context, uow interfaces.UnitOfWork) error {
		now := time.Now()

		// Re-validate against the freshly loaded snapshot on every
		// attempt: a writer that won the race must surface as a
		// deterministic validation error, not a retry loop.
		market, err := uow.Markets().GetByID(ctx, marketID)
		if err != nil {
			return err
		}
		if market == nil {
			return apperrors.NewNotFound("market", marketID.String())
		}
		switch mode {
		case settleResolve:
			if !market.CanResolve() {
				return apperrors.NewValidation("market %s cannot be resolved (status: %s)", marketID, market.Status)
			}
		case settleVoid:
			if !market.CanVoid() {
				return apperrors.NewValidation("market %s cannot be voided (status: %s)", marketID, market.Status)
			}
		}

		bets, err := uow.Bets().GetByMarket(ctx, marketID, true)
		if err != nil {
			return err
		}

		// Extend the watch set to everything this settlement touches:
		// each bet record, each bettor's balance, each pointer.
		extra := interfaces.WatchSet{}
		seen := make(map[entities.UserID]bool)
		for _, bet := range bets {
			extra.Bets = append(extra.Bets, bet.ID)
			extra.Pointers = append(extra.Pointers, interfaces.PointerKey{UserID: bet.UserID, MarketID: marketID})
			if !seen[bet.UserID] {
				seen[bet.UserID] = true
				extra.Balances = append(extra.Balances, bet.UserID)
			}
		}
		if err := uow.Watch(ctx, extra); err != nil {
			return err
		}

		balances := make(map[entities.UserID]*entities.UserBalance, len(seen))
		for userID := range seen {
			balance, err := loadOrCreateBalance(ctx, uow, subreddit, userID, s.config)
			if err != nil {
				return err
			}
			balances[userID] = balance
		}

		supportingPot := market.Pot(entities.BetSide(outcome))
		totalPool := market.TotalPool()

		totals := entities.SettlementTotals{}
		touched := make(map[entities.UserID]bool)

		for _, bet := range bets {
			balance := balances[bet.UserID]
			totals.SettledBets++

			switch {
			case mode == settleVoid:
				oldBalance := balance.Balance
				balance.ApplyRefund(bet.Wager, now)
				bet.Refund(now)
				totals.Refunded++
				totals.TotalPayout = totals.TotalPayout.Add(bet.Wager)
				touched[bet.UserID] = true

				entry := entities.NewLedgerEntry(bet.UserID, subreddit, entities.LedgerEntryTypeRefund, bet.Wager, balance.Balance, now).
					WithRelated(entities.RelatedTypeBet, bet.ID.String())
				entry.Metadata = map[string]any{
					"marketId": marketID.String(),
					"reason":   notes,
				}
				if err := utils.RecordLedgerEntry(ctx, uow.Ledger(), uow.Leaderboards(), uow.EventBus(), entry, balance.Username, oldBalance); err != nil {
					return err
				}

			case bet.Side.Wins(outcome):
				payout := bet.ProportionalPayout(supportingPot, totalPool)
				oldBalance := balance.Balance
				balance.ApplyCredit(payout, now)
				bet.SettleWon(payout, now)
				totals.Winners++
				totals.TotalPayout = totals.TotalPayout.Add(payout)
				touched[bet.UserID] = true

				entry := entities.NewLedgerEntry(bet.UserID, subreddit, entities.LedgerEntryTypePayout, payout, balance.Balance, now).
					WithRelated(entities.RelatedTypeBet, bet.ID.String())
				entry.Metadata = map[string]any{
					"marketId": marketID.String(),
					"wager":    bet.Wager.Int64(),
				}
				if err := utils.RecordLedgerEntry(ctx, uow.Ledger(), uow.Leaderboards(), uow.EventBus(), entry, balance.Username, oldBalance); err != nil {
					return err
				}

			default:
				// Losing side: terminal status only, no balance or
				// ledger change.
				bet.SettleLost(now)
			}

			if err := uow.Bets().Update(ctx, bet); err != nil {
				return err
			}
			if err := uow.Bets().ClearActivePointer(ctx, bet.UserID, marketID); err != nil {
				return err
			}
		}

		for userID := range touched {
			if err := uow.Balances().Save(ctx, balances[userID]); err != nil {
				return err
			}
		}

		oldStatus := market.Status
		switch mode {
		case settleResolve:
			market.Resolve(outcome, moderator.ID, notes, now)
		case settleVoid:
			market.Void(moderator.ID, notes, now)
		}
		if err := uow.Markets().Update(ctx, market); err != nil {
			return err
		}
		if oldStatus == entities.MarketStatusOpen {
			if err := uow.Markets().SetOpen(ctx, marketID, false); err != nil {
				return err
			}
		}

		if err := uow.EventBus().Publish(events.MarketStateChangeEvent{
			MarketID:  marketID,
			Subreddit: subreddit,
			OldStatus: oldStatus,
			NewStatus: market.Status,
		}); err != nil {
			return err
		}

		kind := entities.AuditKindMarketResolve
		if mode == settleVoid {
			kind = entities.AuditKindMarketVoid
		}
		action := entities.NewAuditAction(subreddit, moderator.ID, moderator.Username, kind, now).
			WithMarket(marketID)
		action.Payload["outcome"] = string(outcome)
		action.Payload["notes"] = notes
		action.Payload["settledBets"] = totals.SettledBets
		action.Payload["totalPayout"] = totals.TotalPayout.Int64()
		if err := uow.Audit().Record(ctx, action); err != nil {
			return err
		}
		if err := uow.EventBus().Publish(events.AuditActionEvent{Action: action}); err != nil {
			return err
		}

		result = &entities.SettlementResult{Market: market, Totals: totals}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"subreddit":   subreddit,
		"marketID":    marketID,
		"mode":        mode,
		"outcome":     outcome,
		"settledBets": result.Totals.SettledBets,
		"winners":     result.Totals.Winners,
		"refunded":    result.Totals.Refunded,
		"totalPayout": result.Totals.TotalPayout,
	}).Info("Market settled")

	return result, nil
}
