package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/JuacoStudios/formai-backend/internal/models"
)

type SubscriptionRepository interface {
	GetActiveByDeviceID(ctx context.Context, deviceID string, now time.Time) (*models.Subscription, bool, error)
	GetByProviderSubscriptionID(ctx context.Context, provider, providerSubscriptionID string) (*models.Subscription, bool, error)
	Upsert(ctx context.Context, subscription *models.Subscription) error
	UpdateStatus(ctx context.Context, provider, providerSubscriptionID, status string) (bool, error)
}

type subscriptionRepository struct {
	db *sql.DB
}

func NewSubscriptionRepository(db *sql.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

// GetActiveByDeviceID returns the most recent entitling subscription for the
// device, if any. Latest row wins on ties.
func (r *subscriptionRepository) GetActiveByDeviceID(ctx context.Context, deviceID string, now time.Time) (*models.Subscription, bool, error) {
	var s models.Subscription
	query := `
		SELECT id, device_id, provider, provider_customer_id, provider_subscription_id,
		       status, plan, current_period_end, cancel_at_period_end, created_at, updated_at
		FROM subscriptions
		WHERE device_id = $1
		  AND status IN ($2, $3)
		  AND current_period_end > $4
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`
	err := r.db.QueryRowContext(ctx, query, deviceID,
		models.SubscriptionStatusActive, models.SubscriptionStatusTrialing, now).
		Scan(&s.ID, &s.DeviceID, &s.Provider, &s.ProviderCustomerID, &s.ProviderSubscriptionID,
			&s.Status, &s.Plan, &s.CurrentPeriodEnd, &s.CancelAtPeriodEnd, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		slog.Info(err.Error())
		return nil, false, err
	}
	return &s, true, nil
}

func (r *subscriptionRepository) GetByProviderSubscriptionID(ctx context.Context, provider, providerSubscriptionID string) (*models.Subscription, bool, error) {
	var s models.Subscription
	query := `
		SELECT id, device_id, provider, provider_customer_id, provider_subscription_id,
		       status, plan, current_period_end, cancel_at_period_end, created_at, updated_at
		FROM subscriptions
		WHERE provider = $1 AND provider_subscription_id = $2
	`
	err := r.db.QueryRowContext(ctx, query, provider, providerSubscriptionID).
		Scan(&s.ID, &s.DeviceID, &s.Provider, &s.ProviderCustomerID, &s.ProviderSubscriptionID,
			&s.Status, &s.Plan, &s.CurrentPeriodEnd, &s.CancelAtPeriodEnd, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		slog.Info(err.Error())
		return nil, false, err
	}
	return &s, true, nil
}

// Upsert is keyed by (provider, provider_subscription_id), the uniqueness the
// webhook state machine relies on.
func (r *subscriptionRepository) Upsert(ctx context.Context, subscription *models.Subscription) error {
	query := `
		INSERT INTO subscriptions
			(device_id, provider, provider_customer_id, provider_subscription_id,
			 status, plan, current_period_end, cancel_at_period_end, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		ON CONFLICT (provider, provider_subscription_id) DO UPDATE SET
			device_id = EXCLUDED.device_id,
			provider_customer_id = EXCLUDED.provider_customer_id,
			status = EXCLUDED.status,
			plan = EXCLUDED.plan,
			current_period_end = EXCLUDED.current_period_end,
			cancel_at_period_end = EXCLUDED.cancel_at_period_end,
			updated_at = EXCLUDED.updated_at
	`
	_, err := r.db.ExecContext(ctx, query,
		subscription.DeviceID, subscription.Provider, subscription.ProviderCustomerID,
		subscription.ProviderSubscriptionID, subscription.Status, subscription.Plan,
		subscription.CurrentPeriodEnd, subscription.CancelAtPeriodEnd, time.Now())
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// UpdateStatus sets only the status column. Returns false when no row matches
// the provider subscription id.
func (r *subscriptionRepository) UpdateStatus(ctx context.Context, provider, providerSubscriptionID, status string) (bool, error) {
	query := `
		UPDATE subscriptions
		SET status = $1,
			updated_at = $2
		WHERE provider = $3 AND provider_subscription_id = $4
	`
	res, err := r.db.ExecContext(ctx, query, status, time.Now(), provider, providerSubscriptionID)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return n > 0, nil
}
