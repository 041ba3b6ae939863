package service

import (
	"context"
	"sync"
	"time"

	"github.com/JuacoStudios/formai-backend/internal/models"
)

// In-memory fakes for the repository interfaces. Mutations are guarded by a
// mutex so the fakes mirror the single-statement atomicity the SQL layer
// provides.

type fakeDeviceRepo struct {
	mu      sync.Mutex
	devices map[string]*models.Device
}

func newFakeDeviceRepo() *fakeDeviceRepo {
	return &fakeDeviceRepo{devices: make(map[string]*models.Device)}
}

func (r *fakeDeviceRepo) GetByID(ctx context.Context, id string) (*models.Device, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	device, ok := r.devices[id]
	if !ok {
		return nil, false, nil
	}
	copied := *device
	return &copied, true, nil
}

func (r *fakeDeviceRepo) Upsert(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	if device, ok := r.devices[id]; ok {
		device.LastSeen = now
		return nil
	}
	r.devices[id] = &models.Device{ID: id, CreatedAt: now, LastSeen: now}
	return nil
}

type fakeSubscriptionRepo struct {
	mu   sync.Mutex
	seq  int64
	subs map[string]*models.Subscription // keyed provider + "|" + provider subscription id
}

func newFakeSubscriptionRepo() *fakeSubscriptionRepo {
	return &fakeSubscriptionRepo{subs: make(map[string]*models.Subscription)}
}

func subKey(provider, providerSubscriptionID string) string {
	return provider + "|" + providerSubscriptionID
}

func (r *fakeSubscriptionRepo) GetActiveByDeviceID(ctx context.Context, deviceID string, now time.Time) (*models.Subscription, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var best *models.Subscription
	for _, s := range r.subs {
		if s.DeviceID != deviceID || !s.IsEntitling(now) {
			continue
		}
		if best == nil || s.CreatedAt.After(best.CreatedAt) || (s.CreatedAt.Equal(best.CreatedAt) && s.ID > best.ID) {
			best = s
		}
	}
	if best == nil {
		return nil, false, nil
	}
	copied := *best
	return &copied, true, nil
}

func (r *fakeSubscriptionRepo) GetByProviderSubscriptionID(ctx context.Context, provider, providerSubscriptionID string) (*models.Subscription, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.subs[subKey(provider, providerSubscriptionID)]
	if !ok {
		return nil, false, nil
	}
	copied := *s
	return &copied, true, nil
}

func (r *fakeSubscriptionRepo) Upsert(ctx context.Context, subscription *models.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := subKey(subscription.Provider, subscription.ProviderSubscriptionID)
	now := time.Now()
	if existing, ok := r.subs[key]; ok {
		subscription.ID = existing.ID
		subscription.CreatedAt = existing.CreatedAt
	} else {
		r.seq++
		subscription.ID = r.seq
		subscription.CreatedAt = now
	}
	subscription.UpdatedAt = now
	copied := *subscription
	r.subs[key] = &copied
	return nil
}

func (r *fakeSubscriptionRepo) UpdateStatus(ctx context.Context, provider, providerSubscriptionID, status string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.subs[subKey(provider, providerSubscriptionID)]
	if !ok {
		return false, nil
	}
	s.Status = status
	s.UpdatedAt = time.Now()
	return true, nil
}

type fakeUsageRepo struct {
	mu       sync.Mutex
	counters map[string]*models.UsageCounter
}

func newFakeUsageRepo() *fakeUsageRepo {
	return &fakeUsageRepo{counters: make(map[string]*models.UsageCounter)}
}

func (r *fakeUsageRepo) GetOrCreate(ctx context.Context, deviceID string) (*models.UsageCounter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if counter, ok := r.counters[deviceID]; ok {
		copied := *counter
		return &copied, nil
	}
	now := time.Now()
	counter := &models.UsageCounter{DeviceID: deviceID, ScansUsed: 0, CreatedAt: now, UpdatedAt: now}
	r.counters[deviceID] = counter
	copied := *counter
	return &copied, nil
}

func (r *fakeUsageRepo) Increment(ctx context.Context, deviceID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	counter, ok := r.counters[deviceID]
	if !ok {
		counter = &models.UsageCounter{DeviceID: deviceID, CreatedAt: now}
		r.counters[deviceID] = counter
	}
	counter.ScansUsed++
	counter.UpdatedAt = now
	return counter.ScansUsed, nil
}

func (r *fakeUsageRepo) rows() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.counters)
}

type fakeWebhookEventRepo struct {
	mu     sync.Mutex
	events map[string]*models.WebhookEvent
}

func newFakeWebhookEventRepo() *fakeWebhookEventRepo {
	return &fakeWebhookEventRepo{events: make(map[string]*models.WebhookEvent)}
}

func (r *fakeWebhookEventRepo) CreateIfNotExists(ctx context.Context, event *models.WebhookEvent) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.events[event.ProviderEventID]; ok {
		return false, nil
	}
	event.ReceivedAt = time.Now()
	copied := *event
	r.events[event.ProviderEventID] = &copied
	return true, nil
}

func (r *fakeWebhookEventRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var deleted int64
	for id, event := range r.events {
		if event.ReceivedAt.Before(cutoff) {
			delete(r.events, id)
			deleted++
		}
	}
	return deleted, nil
}

type fakeDeviceMapRepo struct {
	mu    sync.Mutex
	links map[string]string // provider + "|" + key -> device id
}

func newFakeDeviceMapRepo() *fakeDeviceMapRepo {
	return &fakeDeviceMapRepo{links: make(map[string]string)}
}

func (r *fakeDeviceMapRepo) Link(ctx context.Context, provider, key, deviceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	mapKey := provider + "|" + key
	if _, ok := r.links[mapKey]; ok {
		// Duplicate-safe, first mapping wins.
		return nil
	}
	r.links[mapKey] = deviceID
	return nil
}

func (r *fakeDeviceMapRepo) Resolve(ctx context.Context, provider, key string) (string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	deviceID, ok := r.links[provider+"|"+key]
	return deviceID, ok, nil
}
