package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/divecrm/divecrm/internal/database"
	"github.com/divecrm/divecrm/internal/logger"
)

// leaderKey is the redis key holding the current lease holder's id.
const leaderKey = "scheduler:leader"

// Lease is a redis-backed leader lease. Every process running a scheduler
// competes for the same key; only the holder ticks, so a deployment with
// several replicas still sends each follow-up once. The lease expires on
// its own if the holder dies, and a live holder renews it on every tick.
type Lease struct {
	redis *database.Redis
	id    string
	ttl   time.Duration
	log   *logger.Logger
}

// NewLease creates a lease with a process-unique holder id.
func NewLease(r *database.Redis, ttl time.Duration, log *logger.Logger) *Lease {
	return &Lease{
		redis: r,
		id:    uuid.New().String(),
		ttl:   ttl,
		log:   log.WithComponent("scheduler.lease"),
	}
}

// TryAcquire attempts to take or renew the lease. It returns true when
// this process holds the lease after the call.
func (l *Lease) TryAcquire(ctx context.Context) (bool, error) {
	ok, err := l.redis.SetNXWithTTL(ctx, leaderKey, l.id, l.ttl)
	if err != nil {
		return false, err
	}
	if ok {
		l.log.Info().Str("holder", l.id).Msg("acquired scheduler lease")
		return true, nil
	}

	holder, err := l.redis.GetString(ctx, leaderKey)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// Expired between the SetNX and the Get; next tick will take it.
			return false, nil
		}
		return false, err
	}
	if holder != l.id {
		return false, nil
	}

	// Still ours, push the expiry out.
	if err := l.redis.Expire(ctx, leaderKey, l.ttl); err != nil {
		return false, err
	}
	return true, nil
}

// Release gives the lease up if this process holds it.
func (l *Lease) Release(ctx context.Context) error {
	holder, err := l.redis.GetString(ctx, leaderKey)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return err
	}
	if holder != l.id {
		return nil
	}
	l.log.Info().Str("holder", l.id).Msg("released scheduler lease")
	return l.redis.Delete(ctx, leaderKey)
}
