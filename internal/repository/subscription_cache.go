package repository

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/JuacoStudios/formai-backend/internal/models"
)

const subscriptionCacheTTL = time.Minute

// CachedSubscriptionRepository is a read-through cache over the active
// subscription lookup. The subscriptions table stays the source of truth;
// every write path invalidates the affected device so webhook-driven state
// changes are visible on the next entitlement check.
type CachedSubscriptionRepository struct {
	inner SubscriptionRepository
	rdb   *redis.Client
}

func NewCachedSubscriptionRepository(inner SubscriptionRepository, rdb *redis.Client) *CachedSubscriptionRepository {
	return &CachedSubscriptionRepository{inner: inner, rdb: rdb}
}

func cacheKey(deviceID string) string {
	return "sub:active:" + deviceID
}

func (r *CachedSubscriptionRepository) GetActiveByDeviceID(ctx context.Context, deviceID string, now time.Time) (*models.Subscription, bool, error) {
	data, err := r.rdb.Get(ctx, cacheKey(deviceID)).Bytes()
	if err == nil {
		var s models.Subscription
		if err := json.Unmarshal(data, &s); err == nil && s.IsEntitling(now) {
			return &s, true, nil
		}
	} else if err != redis.Nil {
		// Cache trouble is not a data-access failure; fall through to Postgres.
		slog.Info(err.Error())
	}

	s, found, err := r.inner.GetActiveByDeviceID(ctx, deviceID, now)
	if err != nil || !found {
		return s, found, err
	}

	if data, err := json.Marshal(s); err == nil {
		if err := r.rdb.Set(ctx, cacheKey(deviceID), data, subscriptionCacheTTL).Err(); err != nil {
			slog.Info(err.Error())
		}
	}
	return s, true, nil
}

func (r *CachedSubscriptionRepository) GetByProviderSubscriptionID(ctx context.Context, provider, providerSubscriptionID string) (*models.Subscription, bool, error) {
	return r.inner.GetByProviderSubscriptionID(ctx, provider, providerSubscriptionID)
}

func (r *CachedSubscriptionRepository) Upsert(ctx context.Context, subscription *models.Subscription) error {
	if err := r.inner.Upsert(ctx, subscription); err != nil {
		return err
	}
	r.invalidate(ctx, subscription.DeviceID)
	return nil
}

func (r *CachedSubscriptionRepository) UpdateStatus(ctx context.Context, provider, providerSubscriptionID, status string) (bool, error) {
	updated, err := r.inner.UpdateStatus(ctx, provider, providerSubscriptionID, status)
	if err != nil || !updated {
		return updated, err
	}
	if s, found, err := r.inner.GetByProviderSubscriptionID(ctx, provider, providerSubscriptionID); err == nil && found {
		r.invalidate(ctx, s.DeviceID)
	}
	return true, nil
}

func (r *CachedSubscriptionRepository) invalidate(ctx context.Context, deviceID string) {
	if deviceID == "" {
		return
	}
	if err := r.rdb.Del(ctx, cacheKey(deviceID)).Err(); err != nil {
		slog.Info(err.Error())
	}
}
