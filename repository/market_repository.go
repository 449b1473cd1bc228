package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"subbets/domain/entities"
)

type marketRepository struct {
	store
}

func (r *marketRepository) GetByID(ctx context.Context, id entities.MarketID) (*entities.Market, error) {
	data, err := r.read.Get(ctx, r.keys.market(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get market %s: %w", id, err)
	}
	var market entities.Market
	if err := json.Unmarshal(data, &market); err != nil {
		return nil, fmt.Errorf("failed to decode market %s: %w", id, err)
	}
	return &market, nil
}

func (r *marketRepository) Create(ctx context.Context, market *entities.Market) error {
	data, err := json.Marshal(market)
	if err != nil {
		return fmt.Errorf("failed to encode market: %w", err)
	}
	r.write.Set(ctx, r.keys.market(market.ID), data, 0)
	r.write.ZAdd(ctx, r.keys.marketsAll(), redis.Z{
		Score:  float64(market.CreatedAt.UnixMilli()),
		Member: string(market.ID),
	})
	return nil
}

func (r *marketRepository) Update(ctx context.Context, market *entities.Market) error {
	data, err := json.Marshal(market)
	if err != nil {
		return fmt.Errorf("failed to encode market: %w", err)
	}
	r.write.Set(ctx, r.keys.market(market.ID), data, 0)
	return nil
}

func (r *marketRepository) SetOpen(ctx context.Context, id entities.MarketID, open bool) error {
	if open {
		r.write.SAdd(ctx, r.keys.marketsOpen(), string(id))
	} else {
		r.write.SRem(ctx, r.keys.marketsOpen(), string(id))
	}
	return nil
}

func (r *marketRepository) CountOpen(ctx context.Context) (int64, error) {
	count, err := r.read.SCard(ctx, r.keys.marketsOpen()).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count open markets: %w", err)
	}
	return count, nil
}

func (r *marketRepository) List(ctx context.Context, limit int64) ([]*entities.Market, error) {
	if limit <= 0 {
		return nil, nil
	}
	ids, err := r.read.ZRevRange(ctx, r.keys.marketsAll(), 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list markets: %w", err)
	}
	markets := make([]*entities.Market, 0, len(ids))
	for _, id := range ids {
		market, err := r.GetByID(ctx, entities.MarketID(id))
		if err != nil {
			return nil, err
		}
		if market != nil {
			markets = append(markets, market)
		}
	}
	return markets, nil
}
