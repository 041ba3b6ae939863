package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/JuacoStudios/formai-backend/internal/models"
)

type UsageCounterRepository interface {
	GetOrCreate(ctx context.Context, deviceID string) (*models.UsageCounter, error)
	Increment(ctx context.Context, deviceID string) (int, error)
}

type usageCounterRepository struct {
	db *sql.DB
}

func NewUsageCounterRepository(db *sql.DB) UsageCounterRepository {
	return &usageCounterRepository{db: db}
}

// GetOrCreate lazily creates the counter at zero. The insert is a no-op when
// the row already exists, so concurrent first calls produce exactly one row
// and never reset an existing count.
func (r *usageCounterRepository) GetOrCreate(ctx context.Context, deviceID string) (*models.UsageCounter, error) {
	insert := `
		INSERT INTO usage_counters (device_id, scans_used, created_at, updated_at)
		VALUES ($1, 0, $2, $2)
		ON CONFLICT (device_id) DO NOTHING
	`
	if _, err := r.db.ExecContext(ctx, insert, deviceID, time.Now()); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	var counter models.UsageCounter
	query := "SELECT device_id, scans_used, last_reset_at, created_at, updated_at FROM usage_counters WHERE device_id = $1"
	err := r.db.QueryRowContext(ctx, query, deviceID).
		Scan(&counter.DeviceID, &counter.ScansUsed, &counter.LastResetAt, &counter.CreatedAt, &counter.UpdatedAt)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return &counter, nil
}

// Increment is a single conditional upsert so concurrent scans for the same
// device cannot both read zero and lose an update. This is the hard backstop
// behind the soft gate check.
func (r *usageCounterRepository) Increment(ctx context.Context, deviceID string) (int, error) {
	query := `
		INSERT INTO usage_counters (device_id, scans_used, created_at, updated_at)
		VALUES ($1, 1, $2, $2)
		ON CONFLICT (device_id) DO UPDATE SET
			scans_used = usage_counters.scans_used + 1,
			updated_at = EXCLUDED.updated_at
		RETURNING scans_used
	`
	var scansUsed int
	err := r.db.QueryRowContext(ctx, query, deviceID, time.Now()).Scan(&scansUsed)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return scansUsed, nil
}
