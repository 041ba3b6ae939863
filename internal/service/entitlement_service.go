package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JuacoStudios/formai-backend/internal/models"
	"github.com/JuacoStudios/formai-backend/internal/repository"
	"github.com/JuacoStudios/formai-backend/internal/transfer"
)

type EntitlementService interface {
	ResolveEntitlement(ctx context.Context, deviceID string) (*transfer.Entitlement, error)
	CanPerformScan(ctx context.Context, deviceID string) (*transfer.ScanGate, error)
	RecordScanConsumed(ctx context.Context, deviceID string) (*transfer.ScanUsage, error)
}

type entitlementService struct {
	d repository.DeviceRepository
	s repository.SubscriptionRepository
	u repository.UsageCounterRepository
}

func NewEntitlementService(
	d repository.DeviceRepository,
	s repository.SubscriptionRepository,
	u repository.UsageCounterRepository) EntitlementService {
	return &entitlementService{
		d: d,
		s: s,
		u: u,
	}
}

// ResolveEntitlement computes the current snapshot for a device: whether an
// entitling subscription exists and how much of the free tier is consumed.
// Store failures propagate; a transient error must never read as "not
// entitled" or "entitled".
func (s *entitlementService) ResolveEntitlement(ctx context.Context, deviceID string) (*transfer.Entitlement, error) {
	if deviceID == "" {
		return nil, errors.New("device id is empty")
	}

	if err := s.d.Upsert(ctx, deviceID); err != nil {
		return nil, fmt.Errorf("upserting device failed: %w", err)
	}

	sub, found, err := s.s.GetActiveByDeviceID(ctx, deviceID, time.Now())
	if err != nil {
		return nil, fmt.Errorf("fetching subscription failed: %w", err)
	}

	counter, err := s.u.GetOrCreate(ctx, deviceID)
	if err != nil {
		return nil, fmt.Errorf("fetching usage counter failed: %w", err)
	}

	entitlement := &transfer.Entitlement{
		Active:    found,
		ScansUsed: counter.ScansUsed,
		Limit:     models.FreeScanLimit,
	}
	if found {
		expiresAt := sub.CurrentPeriodEnd
		entitlement.ExpiresAt = &expiresAt
	}

	return entitlement, nil
}

// CanPerformScan is the soft gate. Subscribed devices always pass; free-tier
// devices pass until the counter reaches the limit. The atomic counter
// increment in RecordScanConsumed is the hard backstop under concurrency.
func (s *entitlementService) CanPerformScan(ctx context.Context, deviceID string) (*transfer.ScanGate, error) {
	entitlement, err := s.ResolveEntitlement(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	if entitlement.Active {
		return &transfer.ScanGate{CanScan: true}, nil
	}
	if entitlement.ScansUsed < entitlement.Limit {
		return &transfer.ScanGate{CanScan: true}, nil
	}

	return &transfer.ScanGate{
		CanScan: false,
		Reason:  transfer.ReasonLimitExceeded,
	}, nil
}

// RecordScanConsumed burns one unit of free quota. Callers invoke it only
// after a scan was permitted and actually attempted for a non-subscribed
// device.
func (s *entitlementService) RecordScanConsumed(ctx context.Context, deviceID string) (*transfer.ScanUsage, error) {
	if deviceID == "" {
		return nil, errors.New("device id is empty")
	}

	scansUsed, err := s.u.Increment(ctx, deviceID)
	if err != nil {
		return nil, fmt.Errorf("incrementing usage counter failed: %w", err)
	}

	return &transfer.ScanUsage{
		ScansUsed: scansUsed,
		Limit:     models.FreeScanLimit,
	}, nil
}
