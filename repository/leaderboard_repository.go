package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"subbets/domain/entities"
)

type leaderboardRepository struct {
	store
}

// lbMember is the display metadata stored per user in the window's meta hash.
type lbMember struct {
	Username  string    `json:"username"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// AddScore adds delta to the user's score in one window bucket. Scores are
// stored ascending; rank queries derive the descending rank from the set
// cardinality, with ties breaking by user id in member order.
func (r *leaderboardRepository) AddScore(ctx context.Context, window entities.Window, userID entities.UserID, username string, delta entities.Points) error {
	now := time.Now()
	r.write.ZIncrBy(ctx, r.keys.leaderboard(window, now), float64(delta.Int64()), string(userID))
	if username != "" {
		meta, err := json.Marshal(lbMember{Username: username, UpdatedAt: now})
		if err != nil {
			return fmt.Errorf("failed to encode leaderboard metadata: %w", err)
		}
		r.write.HSet(ctx, r.keys.leaderboardMeta(window, now), string(userID), meta)
	}
	return nil
}

func (r *leaderboardRepository) Top(ctx context.Context, window entities.Window, limit int64) ([]*entities.LeaderboardEntry, error) {
	if limit <= 0 {
		return nil, nil
	}
	now := time.Now()
	ranked, err := r.read.ZRevRangeWithScores(ctx, r.keys.leaderboard(window, now), 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read leaderboard: %w", err)
	}
	entries := make([]*entities.LeaderboardEntry, 0, len(ranked))
	for i, z := range ranked {
		userID := entities.UserID(z.Member.(string))
		entries = append(entries, &entities.LeaderboardEntry{
			UserID:   userID,
			Username: r.username(ctx, window, now, userID),
			Score:    entities.Points(int64(z.Score)),
			Rank:     int64(i + 1),
			Window:   window,
		})
	}
	return entries, nil
}

func (r *leaderboardRepository) Rank(ctx context.Context, window entities.Window, userID entities.UserID) (*entities.LeaderboardEntry, error) {
	now := time.Now()
	key := r.keys.leaderboard(window, now)

	ascRank, err := r.read.ZRank(ctx, key, string(userID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to rank user %s: %w", userID, err)
	}
	total, err := r.read.ZCard(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to size leaderboard: %w", err)
	}
	score, err := r.read.ZScore(ctx, key, string(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get score for user %s: %w", userID, err)
	}

	return &entities.LeaderboardEntry{
		UserID:   userID,
		Username: r.username(ctx, window, now, userID),
		Score:    entities.Points(int64(score)),
		Rank:     total - ascRank,
		Window:   window,
	}, nil
}

func (r *leaderboardRepository) username(ctx context.Context, window entities.Window, now time.Time, userID entities.UserID) string {
	raw, err := r.read.HGet(ctx, r.keys.leaderboardMeta(window, now), string(userID)).Result()
	if err != nil {
		return ""
	}
	var member lbMember
	if err := json.Unmarshal([]byte(raw), &member); err != nil {
		return ""
	}
	return member.Username
}
