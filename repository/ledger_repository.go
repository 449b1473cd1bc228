package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"subbets/domain/entities"
	"subbets/infrastructure/observability"
)

type ledgerRepository struct {
	store
}

// Append pushes the entry onto the head of the user's ledger list. Entries
// are never rewritten; newest-first order falls out of LPUSH.
func (r *ledgerRepository) Append(ctx context.Context, entry *entities.LedgerEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode ledger entry: %w", err)
	}
	r.write.LPush(ctx, r.keys.ledger(entry.UserID), data)
	observability.GetMetrics().IncLedgerEntry(ctx, r.keys.subreddit, string(entry.Type))
	return nil
}

func (r *ledgerRepository) GetByUser(ctx context.Context, userID entities.UserID, limit int64) ([]*entities.LedgerEntry, error) {
	if limit <= 0 {
		return nil, nil
	}
	raw, err := r.read.LRange(ctx, r.keys.ledger(userID), 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger for user %s: %w", userID, err)
	}
	entries := make([]*entities.LedgerEntry, 0, len(raw))
	for _, item := range raw {
		var entry entities.LedgerEntry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			return nil, fmt.Errorf("failed to decode ledger entry: %w", err)
		}
		entries = append(entries, &entry)
	}
	return entries, nil
}
