package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/JuacoStudios/formai-backend/internal/models"
)

type DeviceRepository interface {
	GetByID(ctx context.Context, id string) (*models.Device, bool, error)
	Upsert(ctx context.Context, id string) error
}

type deviceRepository struct {
	db *sql.DB
}

func NewDeviceRepository(db *sql.DB) DeviceRepository {
	return &deviceRepository{db: db}
}

func (r *deviceRepository) GetByID(ctx context.Context, id string) (*models.Device, bool, error) {
	var device models.Device
	query := "SELECT id, created_at, last_seen FROM devices WHERE id = $1"
	err := r.db.QueryRowContext(ctx, query, id).Scan(&device.ID, &device.CreatedAt, &device.LastSeen)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		slog.Info(err.Error())
		return nil, false, err
	}
	return &device, true, nil
}

// Upsert creates the device on first contact and bumps last_seen on every
// subsequent one.
func (r *deviceRepository) Upsert(ctx context.Context, id string) error {
	query := `
		INSERT INTO devices (id, created_at, last_seen)
		VALUES ($1, $2, $2)
		ON CONFLICT (id) DO UPDATE SET last_seen = EXCLUDED.last_seen
	`
	_, err := r.db.ExecContext(ctx, query, id, time.Now())
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
