package services

import (
	"context"
	"strings"
	"time"

	"subbets/config"
	"subbets/domain/apperrors"
	"subbets/domain/entities"
	"subbets/domain/events"
	"subbets/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

type marketService struct {
	config     *config.Config
	uowFactory interfaces.UnitOfWorkFactory
}

// NewMarketService creates a new market lifecycle service
func NewMarketService(uowFactory interfaces.UnitOfWorkFactory) interfaces.MarketService {
	return &marketService{
		config:     config.Get(),
		uowFactory: uowFactory,
	}
}

// CreateMarket creates a market in draft status.
func (s *marketService) CreateMarket(ctx context.Context, subreddit, question string, moderator interfaces.Actor) (*entities.Market, error) {
	if strings.TrimSpace(question) == "" {
		return nil, apperrors.NewValidation("market question cannot be empty")
	}

	runner := s.uowFactory.CreateForSubreddit(subreddit)

	var market *entities.Market
	err := runner.Do(ctx, interfaces.WatchSet{}, func(ctx context.Context, uow interfaces.UnitOfWork) error {
		now := time.Now()
		market = entities.NewMarket(subreddit, question, moderator.ID, now)

		if err := uow.Markets().Create(ctx, market); err != nil {
			return err
		}

		action := entities.NewAuditAction(subreddit, moderator.ID, moderator.Username, entities.AuditKindMarketCreate, now).
			WithMarket(market.ID)
		action.Payload["question"] = question
		if err := uow.Audit().Record(ctx, action); err != nil {
			return err
		}
		return uow.EventBus().Publish(events.AuditActionEvent{Action: action})
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"subreddit": subreddit,
		"marketID":  market.ID,
	}).Info("Market created")

	return market, nil
}

// PublishMarket opens a draft market for betting.
func (s *marketService) PublishMarket(ctx context.Context, subreddit string, marketID entities.MarketID, moderator interfaces.Actor, closesAt time.Time) (*entities.Market, error) {
	runner := s.uowFactory.CreateForSubreddit(subreddit)
	watch := interfaces.WatchSet{
		Markets:     []entities.MarketID{marketID},
		OpenMarkets: true,
	}

	var market *entities.Market
	err := runner.Do(ctx, watch, func(ctx context.Context, uow interfaces.UnitOfWork) error {
		now := time.Now()
		if !closesAt.After(now) {
			return apperrors.NewValidation("closing time must be in the future")
		}

		var err error
		market, err = uow.Markets().GetByID(ctx, marketID)
		if err != nil {
			return err
		}
		if market == nil {
			return apperrors.NewNotFound("market", marketID.String())
		}
		if market.Status != entities.MarketStatusDraft {
			return apperrors.NewValidation("market %s cannot be published (status: %s)", marketID, market.Status)
		}

		if s.config.MaxOpenMarkets != nil {
			open, err := uow.Markets().CountOpen(ctx)
			if err != nil {
				return err
			}
			if open >= int64(*s.config.MaxOpenMarkets) {
				return apperrors.NewValidation("subreddit already has %d open markets (limit %d)", open, *s.config.MaxOpenMarkets)
			}
		}

		market.Publish(moderator.ID, closesAt, now)
		if err := uow.Markets().Update(ctx, market); err != nil {
			return err
		}
		if err := uow.Markets().SetOpen(ctx, marketID, true); err != nil {
			return err
		}

		if err := uow.EventBus().Publish(events.MarketStateChangeEvent{
			MarketID:  marketID,
			Subreddit: subreddit,
			OldStatus: entities.MarketStatusDraft,
			NewStatus: entities.MarketStatusOpen,
		}); err != nil {
			return err
		}

		action := entities.NewAuditAction(subreddit, moderator.ID, moderator.Username, entities.AuditKindMarketPublish, now).
			WithMarket(marketID)
		action.Payload["closesAt"] = closesAt.UTC().Format(time.RFC3339)
		if err := uow.Audit().Record(ctx, action); err != nil {
			return err
		}
		return uow.EventBus().Publish(events.AuditActionEvent{Action: action})
	})
	if err != nil {
		return nil, err
	}

	return market, nil
}

// CloseMarket transitions an open market to closed. Closing an
// already-closed market is a no-op success: the operation is invoked by
// moderators and by the external scheduler, and the two may race.
func (s *marketService) CloseMarket(ctx context.Context, subreddit string, marketID entities.MarketID, moderator *interfaces.Actor) (*entities.Market, error) {
	runner := s.uowFactory.CreateForSubreddit(subreddit)
	watch := interfaces.WatchSet{
		Markets:     []entities.MarketID{marketID},
		OpenMarkets: true,
	}

	var market *entities.Market
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
		if market.Status == entities.MarketStatusClosed {
			return nil // already closed, safe to re-invoke
		}
		if market.Status != entities.MarketStatusOpen {
			return apperrors.NewValidation("market %s cannot be closed (status: %s)", marketID, market.Status)
		}

		var closedBy *entities.UserID
		if moderator != nil {
			closedBy = &moderator.ID
		}
		market.Close(closedBy, now)
		if err := uow.Markets().Update(ctx, market); err != nil {
			return err
		}
		if err := uow.Markets().SetOpen(ctx, marketID, false); err != nil {
			return err
		}

		if err := uow.EventBus().Publish(events.MarketStateChangeEvent{
			MarketID:  marketID,
			Subreddit: subreddit,
			OldStatus: entities.MarketStatusOpen,
			NewStatus: entities.MarketStatusClosed,
		}); err != nil {
			return err
		}

		// Audit only when a known actor closed the market; automatic
		// closes are attributed in the lifecycle annotations instead.
		if moderator != nil {
			action := entities.NewAuditAction(subreddit, moderator.ID, moderator.Username, entities.AuditKindMarketClose, now).
				WithMarket(marketID)
			if err := uow.Audit().Record(ctx, action); err != nil {
				return err
			}
			return uow.EventBus().Publish(events.AuditActionEvent{Action: action})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return market, nil
}

// ArchiveMarket records archive annotations on a terminal market.
func (s *marketService) ArchiveMarket(ctx context.Context, subreddit string, marketID entities.MarketID, moderator interfaces.Actor) (*entities.Market, error) {
	runner := s.uowFactory.CreateForSubreddit(subreddit)
	watch := interfaces.WatchSet{
		Markets: []entities.MarketID{marketID},
	}

	var market *entities.Market
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
		if !market.IsTerminal() {
			return apperrors.NewValidation("only resolved or voided markets can be archived (status: %s)", market.Status)
		}

		market.Archive(moderator.ID, now)
		if err := uow.Markets().Update(ctx, market); err != nil {
			return err
		}

		action := entities.NewAuditAction(subreddit, moderator.ID, moderator.Username, entities.AuditKindMarketArchive, now).
			WithMarket(marketID)
		if err := uow.Audit().Record(ctx, action); err != nil {
			return err
		}
		return uow.EventBus().Publish(events.AuditActionEvent{Action: action})
	})
	if err != nil {
		return nil, err
	}

	return market, nil
}

// AutoCloseAt returns the time at which the scheduling collaborator should
// trigger an automatic close: the market's closing time plus the configured
// grace period.
func (s *marketService) AutoCloseAt(market *entities.Market) *time.Time {
	if market.ClosesAt == nil {
		return nil
	}
	at := market.ClosesAt.Add(time.Duration(s.config.AutoCloseGraceMinutes) * time.Minute)
	return &at
}

// GetMarketDetail returns a market with its active bets and the requesting
// user's own active bet.
func (s *marketService) GetMarketDetail(ctx context.Context, subreddit string, marketID entities.MarketID, userID entities.UserID) (*entities.MarketDetail, error) {
	view := s.uowFactory.ReadOnly(subreddit)

	market, err := view.Markets().GetByID(ctx, marketID)
	if err != nil {
		return nil, err
	}
	if market == nil {
		return nil, apperrors.NewNotFound("market", marketID.String())
	}

	active, err := view.Bets().GetByMarket(ctx, marketID, true)
	if err != nil {
		return nil, err
	}

	detail := &entities.MarketDetail{
		Market:     market,
		ActiveBets: active,
	}

	if userID != "" {
		pointer, err := view.Bets().GetActivePointer(ctx, userID, marketID)
		if err != nil {
			return nil, err
		}
		if pointer != nil {
			detail.UserBet, err = view.Bets().GetByID(ctx, *pointer)
			if err != nil {
				return nil, err
			}
		}
	}

	return detail, nil
}
