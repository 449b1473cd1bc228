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

type bettingService struct {
	config     *config.Config
	uowFactory interfaces.UnitOfWorkFactory
}

// NewBettingService creates a new betting service
func NewBettingService(uowFactory interfaces.UnitOfWorkFactory) interfaces.BettingService {
	return &bettingService{
		config:     config.Get(),
		uowFactory: uowFactory,
	}
}

// PlaceBet validates and atomically commits a new wager. Every precondition
// is checked against a freshly loaded snapshot on each attempt.
func (s *bettingService) PlaceBet(ctx context.Context, subreddit string, marketID entities.MarketID, actor interfaces.Actor, side entities.BetSide, wager entities.Points) (*entities.PlaceBetResult, error) {
	if wager.Int64() < s.config.MinBet {
		return nil, apperrors.NewValidation("wager %s is below the minimum bet of %d", wager, s.config.MinBet)
	}
	if s.config.MaxBet != nil && wager.Int64() > *s.config.MaxBet {
		return nil, apperrors.NewValidation("wager %s exceeds the maximum bet of %d", wager, *s.config.MaxBet)
	}

	runner := s.uowFactory.CreateForSubreddit(subreddit)
	watch := interfaces.WatchSet{
		Markets:    []entities.MarketID{marketID},
		MarketBets: []entities.MarketID{marketID},
		Balances:   []entities.UserID{actor.ID},
		Pointers:   []interfaces.PointerKey{{UserID: actor.ID, MarketID: marketID}},
	}

	var (
		bet    *entities.Bet
		wallet *entities.UserBalance
		market *entities.Market
	)
	err := runner.Do(ctx, watch, func(ctx context.Context, uow interfaces.UnitOfWork) error {
		now := time.Now()

		var err error
		market, err = uow.Markets().GetByID(ctx, marketID)
		if err != nil {
			return err
		}
		if market == nil {
			return apperrors.NewNotFound("market", marketID.String())
		}
		if !market.CanAcceptBets(now) {
			if market.IsOpen() {
				return apperrors.NewValidation("market %s is past its closing time", marketID)
			}
			return apperrors.NewValidation("market %s is not open for betting (status: %s)", marketID, market.Status)
		}

		existing, err := uow.Bets().GetActivePointer(ctx, actor.ID, marketID)
		if err != nil {
			return err
		}
		if existing != nil {
			return apperrors.NewValidation("user already has an active bet on market %s", marketID)
		}

		wallet, err = loadOrCreateBalance(ctx, uow, subreddit, actor.ID, s.config)
		if err != nil {
			return err
		}
		if actor.Username != "" {
			wallet.Username = actor.Username
		}

		oldBalance := wallet.Balance
		if err := wallet.ApplyDebit(wager, now); err != nil {
			return apperrors.NewValidation("insufficient balance: have %s, need %s", wallet.Balance, wager)
		}

		market.AddToPot(side, wager)
		bet = entities.NewBet(marketID, actor.ID, side, wager, now)

		entry := entities.NewLedgerEntry(actor.ID, subreddit, entities.LedgerEntryTypeDebit, wager, wallet.Balance, now).
			WithRelated(entities.RelatedTypeBet, bet.ID.String())
		entry.Metadata = map[string]any{
			"marketId": marketID.String(),
			"side":     string(side),
		}
		bet.LedgerEntryID = &entry.ID

		if err := uow.Markets().Update(ctx, market); err != nil {
			return err
		}
		if err := uow.Bets().Create(ctx, bet); err != nil {
			return err
		}
		if err := uow.Bets().SetActivePointer(ctx, actor.ID, marketID, bet.ID); err != nil {
			return err
		}
		if err := uow.Balances().Save(ctx, wallet); err != nil {
			return err
		}
		if err := utils.RecordLedgerEntry(ctx, uow.Ledger(), uow.Leaderboards(), uow.EventBus(), entry, wallet.Username, oldBalance); err != nil {
			return err
		}

		action := entities.NewAuditAction(subreddit, actor.ID, actor.Username, entities.AuditKindBetPlace, now).
			WithMarket(marketID).
			WithUser(actor.ID)
		action.Payload["side"] = string(side)
		action.Payload["wager"] = wager.Int64()
		if err := uow.Audit().Record(ctx, action); err != nil {
			return err
		}
		if err := uow.EventBus().Publish(events.AuditActionEvent{Action: action}); err != nil {
			return err
		}

		return uow.EventBus().Publish(events.BetPlacedEvent{
			BetID:    bet.ID,
			MarketID: marketID,
			UserID:   actor.ID,
			Side:     side,
			Wager:    wager,
		})
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"subreddit": subreddit,
		"marketID":  marketID,
		"userID":    actor.ID,
		"side":      side,
		"wager":     wager,
	}).Info("Bet placed")

	detail, err := s.loadDetail(ctx, subreddit, market, bet)
	if err != nil {
		return nil, err
	}

	return &entities.PlaceBetResult{
		Bet:    bet,
		Wallet: wallet,
		Detail: detail,
	}, nil
}

// loadDetail assembles the post-commit market detail for the caller.
func (s *bettingService) loadDetail(ctx context.Context, subreddit string, market *entities.Market, userBet *entities.Bet) (*entities.MarketDetail, error) {
	view := s.uowFactory.ReadOnly(subreddit)
	active, err := view.Bets().GetByMarket(ctx, market.ID, true)
	if err != nil {
		return nil, err
	}
	return &entities.MarketDetail{
		Market:     market,
		ActiveBets: active,
		UserBet:    userBet,
	}, nil
}
