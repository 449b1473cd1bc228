package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"subbets/domain/entities"
	"subbets/infrastructure/observability"
)

// auditRepository mirrors audit actions into a write-only list. The primary
// audit sink is the event publisher; the list gives operators a local tail
// to inspect without a consumer.
type auditRepository struct {
	store
}

func (r *auditRepository) Record(ctx context.Context, action *entities.AuditAction) error {
	data, err := json.Marshal(action)
	if err != nil {
		return fmt.Errorf("failed to encode audit action: %w", err)
	}
	r.write.LPush(ctx, r.keys.audit(), data)

	switch action.Kind {
	case entities.AuditKindMarketResolve, entities.AuditKindMarketVoid:
		observability.GetMetrics().IncSettlement(ctx, r.keys.subreddit, string(action.Kind))
	}
	return nil
}
