package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"
)

type DeviceMapRepository interface {
	Link(ctx context.Context, provider, key, deviceID string) error
	Resolve(ctx context.Context, provider, key string) (string, bool, error)
}

type deviceMapRepository struct {
	db *sql.DB
}

func NewDeviceMapRepository(db *sql.DB) DeviceMapRepository {
	return &deviceMapRepository{db: db}
}

// Link is duplicate-safe: redelivered checkout events attempt the same mapping
// and must not fail.
func (r *deviceMapRepository) Link(ctx context.Context, provider, key, deviceID string) error {
	query := `
		INSERT INTO device_maps (provider, key, device_id, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (provider, key) DO NOTHING
	`
	_, err := r.db.ExecContext(ctx, query, provider, key, deviceID, time.Now())
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *deviceMapRepository) Resolve(ctx context.Context, provider, key string) (string, bool, error) {
	var deviceID string
	query := "SELECT device_id FROM device_maps WHERE provider = $1 AND key = $2"
	err := r.db.QueryRowContext(ctx, query, provider, key).Scan(&deviceID)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		slog.Info(err.Error())
		return "", false, err
	}
	return deviceID, true, nil
}
