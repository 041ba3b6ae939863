package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/JuacoStudios/formai-backend/internal/models"
)

type WebhookEventRepository interface {
	CreateIfNotExists(ctx context.Context, event *models.WebhookEvent) (bool, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type webhookEventRepository struct {
	db *sql.DB
}

func NewWebhookEventRepository(db *sql.DB) WebhookEventRepository {
	return &webhookEventRepository{db: db}
}

// CreateIfNotExists inserts the ledger row and reports whether this call won.
// The unique index on provider_event_id is the idempotency gate: a losing
// concurrent redelivery sees created == false.
func (r *webhookEventRepository) CreateIfNotExists(ctx context.Context, event *models.WebhookEvent) (bool, error) {
	query := `
		INSERT INTO webhook_events (provider, provider_event_id, event_type, payload, received_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (provider_event_id) DO NOTHING
	`
	res, err := r.db.ExecContext(ctx, query,
		event.Provider, event.ProviderEventID, event.EventType, event.Payload, time.Now())
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

func (r *webhookEventRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query := "DELETE FROM webhook_events WHERE received_at < $1"
	res, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return n, nil
}
