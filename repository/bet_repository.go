package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"subbets/domain/entities"
	"subbets/infrastructure/observability"
)

type betRepository struct {
	store
}

func (r *betRepository) GetByID(ctx context.Context, id entities.BetID) (*entities.Bet, error) {
	data, err := r.read.Get(ctx, r.keys.bet(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bet %s: %w", id, err)
	}
	var bet entities.Bet
	if err := json.Unmarshal(data, &bet); err != nil {
		return nil, fmt.Errorf("failed to decode bet %s: %w", id, err)
	}
	return &bet, nil
}

func (r *betRepository) Create(ctx context.Context, bet *entities.Bet) error {
	data, err := json.Marshal(bet)
	if err != nil {
		return fmt.Errorf("failed to encode bet: %w", err)
	}
	score := float64(bet.CreatedAt.UnixMilli())
	r.write.Set(ctx, r.keys.bet(bet.ID), data, 0)
	r.write.ZAdd(ctx, r.keys.marketBets(bet.MarketID), redis.Z{Score: score, Member: string(bet.ID)})
	r.write.ZAdd(ctx, r.keys.userBets(bet.UserID), redis.Z{Score: score, Member: string(bet.ID)})
	observability.GetMetrics().IncBetPlaced(ctx, r.keys.subreddit, string(bet.Side))
	return nil
}

func (r *betRepository) Update(ctx context.Context, bet *entities.Bet) error {
	data, err := json.Marshal(bet)
	if err != nil {
		return fmt.Errorf("failed to encode bet: %w", err)
	}
	r.write.Set(ctx, r.keys.bet(bet.ID), data, 0)
	return nil
}

func (r *betRepository) GetMarketBetIDs(ctx context.Context, marketID entities.MarketID) ([]entities.BetID, error) {
	members, err := r.read.ZRange(ctx, r.keys.marketBets(marketID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list bets for market %s: %w", marketID, err)
	}
	ids := make([]entities.BetID, len(members))
	for i, m := range members {
		ids[i] = entities.BetID(m)
	}
	return ids, nil
}

func (r *betRepository) GetByMarket(ctx context.Context, marketID entities.MarketID, activeOnly bool) ([]*entities.Bet, error) {
	ids, err := r.GetMarketBetIDs(ctx, marketID)
	if err != nil {
		return nil, err
	}
	return r.loadBets(ctx, ids, activeOnly)
}

func (r *betRepository) GetByUser(ctx context.Context, userID entities.UserID, limit int64) ([]*entities.Bet, error) {
	if limit <= 0 {
		return nil, nil
	}
	members, err := r.read.ZRevRange(ctx, r.keys.userBets(userID), 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list bets for user %s: %w", userID, err)
	}
	ids := make([]entities.BetID, len(members))
	for i, m := range members {
		ids[i] = entities.BetID(m)
	}
	return r.loadBets(ctx, ids, false)
}

func (r *betRepository) loadBets(ctx context.Context, ids []entities.BetID, activeOnly bool) ([]*entities.Bet, error) {
	bets := make([]*entities.Bet, 0, len(ids))
	for _, id := range ids {
		bet, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if bet == nil {
			continue
		}
		if activeOnly && !bet.IsActive() {
			continue
		}
		bets = append(bets, bet)
	}
	return bets, nil
}

func (r *betRepository) GetActivePointer(ctx context.Context, userID entities.UserID, marketID entities.MarketID) (*entities.BetID, error) {
	raw, err := r.read.Get(ctx, r.keys.betPointer(userID, marketID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active bet pointer: %w", err)
	}
	id := entities.BetID(raw)
	return &id, nil
}

func (r *betRepository) SetActivePointer(ctx context.Context, userID entities.UserID, marketID entities.MarketID, betID entities.BetID) error {
	r.write.Set(ctx, r.keys.betPointer(userID, marketID), string(betID), 0)
	return nil
}

func (r *betRepository) ClearActivePointer(ctx context.Context, userID entities.UserID, marketID entities.MarketID) error {
	r.write.Del(ctx, r.keys.betPointer(userID, marketID))
	return nil
}
