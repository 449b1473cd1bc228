// Package repository implements the Redis-backed stores and the optimistic
// transaction runner. Each unit of work is bound to one WATCH/MULTI/EXEC
// attempt: reads go through the watched connection, writes are queued on a
// transactional pipeline and committed atomically by EXEC, conditioned on
// no watched key having changed since it was watched.
package repository

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"subbets/config"
	"subbets/domain/apperrors"
	"subbets/domain/events"
	"subbets/domain/interfaces"
	"subbets/infrastructure/observability"
)

// UnitOfWorkFactory creates subreddit-scoped transaction runners over a
// shared Redis client. Events buffered during an attempt are forwarded to
// the publisher only after a successful commit.
type UnitOfWorkFactory struct {
	client    *redis.Client
	publisher interfaces.EventPublisher
}

// NewUnitOfWorkFactory creates a factory over the given client and
// post-commit event publisher.
func NewUnitOfWorkFactory(client *redis.Client, publisher interfaces.EventPublisher) *UnitOfWorkFactory {
	return &UnitOfWorkFactory{
		client:    client,
		publisher: publisher,
	}
}

// CreateForSubreddit returns a runner whose units of work are scoped to one
// subreddit.
func (f *UnitOfWorkFactory) CreateForSubreddit(subreddit string) interfaces.TxRunner {
	return &txRunner{
		client:    f.client,
		publisher: f.publisher,
		keys:      newKeyspace(subreddit),
	}
}

// ReadOnly returns repositories for untransacted reads. Writes go directly
// to the client and events publish immediately; callers use it for read
// paths only.
func (f *UnitOfWorkFactory) ReadOnly(subreddit string) interfaces.UnitOfWork {
	return &unitOfWork{
		store: store{
			keys:  newKeyspace(subreddit),
			read:  f.client,
			write: f.client,
		},
		publisher: f.publisher,
	}
}

type txRunner struct {
	client    *redis.Client
	publisher interfaces.EventPublisher
	keys      keyspace
}

// Do runs fn under the optimistic protocol. A commit conflict reloads and
// retries with a fresh snapshot up to the configured bound; any other error
// from fn aborts immediately with nothing written.
func (r *txRunner) Do(ctx context.Context, watch interfaces.WatchSet, fn func(ctx context.Context, uow interfaces.UnitOfWork) error) error {
	maxAttempts := config.Get().TxMaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		observability.GetMetrics().IncTransactionAttempt(ctx, r.keys.subreddit)

		err := r.client.Watch(ctx, func(tx *redis.Tx) error {
			pipe := tx.TxPipeline()
			uow := &unitOfWork{
				store: store{
					keys:  r.keys,
					read:  tx,
					write: pipe,
				},
				tx:        tx,
				publisher: r.publisher,
				buffering: true,
			}
			if err := fn(ctx, uow); err != nil {
				return err
			}
			if _, err := pipe.Exec(ctx); err != nil {
				return err
			}
			uow.flushEvents()
			return nil
		}, r.keys.watchKeys(watch)...)

		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			observability.GetMetrics().IncTransactionConflict(ctx, r.keys.subreddit)
			log.WithFields(log.Fields{
				"subreddit": r.keys.subreddit,
				"attempt":   attempt,
			}).Debug("optimistic transaction conflict, retrying")
			lastErr = err
			continue
		}
		return err
	}

	return apperrors.NewConflict(maxAttempts, lastErr)
}

// store carries the per-attempt connections shared by all repositories of
// one unit of work. Reads use the watched connection (or the bare client in
// read-only mode); writes use the transactional pipeline.
type store struct {
	keys  keyspace
	read  redis.Cmdable
	write redis.Cmdable
}

type unitOfWork struct {
	store
	tx        *redis.Tx
	publisher interfaces.EventPublisher
	buffering bool
	pending   []events.Event
}

func (u *unitOfWork) Markets() interfaces.MarketRepository   { return &marketRepository{store: u.store} }
func (u *unitOfWork) Bets() interfaces.BetRepository         { return &betRepository{store: u.store} }
func (u *unitOfWork) Balances() interfaces.BalanceRepository { return &balanceRepository{store: u.store} }
func (u *unitOfWork) Ledger() interfaces.LedgerRepository    { return &ledgerRepository{store: u.store} }
func (u *unitOfWork) Leaderboards() interfaces.LeaderboardRepository {
	return &leaderboardRepository{store: u.store}
}
func (u *unitOfWork) Audit() interfaces.AuditRepository { return &auditRepository{store: u.store} }

func (u *unitOfWork) EventBus() interfaces.EventPublisher {
	if u.buffering {
		return bufferPublisher{uow: u}
	}
	return u.publisher
}

// Watch extends the watch set mid-attempt for keys discovered after an
// initial load, such as the individual bets on a market being settled.
func (u *unitOfWork) Watch(ctx context.Context, set interfaces.WatchSet) error {
	if u.tx == nil {
		return nil
	}
	keys := u.keys.watchKeys(set)
	if len(keys) == 0 {
		return nil
	}
	return u.tx.Watch(ctx, keys...).Err()
}

func (u *unitOfWork) flushEvents() {
	for _, event := range u.pending {
		if err := u.publisher.Publish(event); err != nil {
			log.WithError(err).WithField("eventType", event.Type()).Warn("failed to publish event after commit")
		}
	}
	u.pending = nil
}

// bufferPublisher holds events until the attempt commits. A retried or
// failed attempt drops its buffer with the rest of its effects.
type bufferPublisher struct {
	uow *unitOfWork
}

func (p bufferPublisher) Publish(event events.Event) error {
	p.uow.pending = append(p.uow.pending, event)
	return nil
}
