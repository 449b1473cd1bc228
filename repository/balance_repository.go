package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"subbets/domain/entities"
)

type balanceRepository struct {
	store
}

func (r *balanceRepository) GetByUser(ctx context.Context, userID entities.UserID) (*entities.UserBalance, error) {
	data, err := r.read.Get(ctx, r.keys.balance(userID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get balance for user %s: %w", userID, err)
	}
	var balance entities.UserBalance
	if err := json.Unmarshal(data, &balance); err != nil {
		return nil, fmt.Errorf("failed to decode balance for user %s: %w", userID, err)
	}
	return &balance, nil
}

func (r *balanceRepository) Save(ctx context.Context, balance *entities.UserBalance) error {
	data, err := json.Marshal(balance)
	if err != nil {
		return fmt.Errorf("failed to encode balance: %w", err)
	}
	r.write.Set(ctx, r.keys.balance(balance.UserID), data, 0)
	return nil
}
