package services

import (
	"context"
	"fmt"

	"github.com/Anzil-km/attention-nudge/models"
	"github.com/Anzil-km/attention-nudge/store"
	"github.com/Anzil-km/attention-nudge/utils"
)

type SubscriptionRegistry struct {
	store      store.SubscriptionStore
	maxDevices int
	logger     *utils.Logger
}

// NewSubscriptionRegistry keeps at most maxDevices subscriptions per key.
// maxDevices of 1 gives one-device-per-identity semantics.
func NewSubscriptionRegistry(st store.SubscriptionStore, maxDevices int, logger *utils.Logger) *SubscriptionRegistry {
	return &SubscriptionRegistry{
		store:      st,
		maxDevices: maxDevices,
		logger:     logger.With("component", "SubscriptionRegistry"),
	}
}

func (r *SubscriptionRegistry) Register(ctx context.Context, key string, sub models.Subscription) error {
	if err := sub.Validate(); err != nil {
		return err
	}
	if err := r.store.Upsert(ctx, key, sub, r.maxDevices); err != nil {
		return err
	}

	r.logger.Info("Subscription registered", "key", key, "endpoint", sub.Endpoint)
	return nil
}

// Endpoints returns a snapshot; later registrations do not affect it.
func (r *SubscriptionRegistry) Endpoints(ctx context.Context, key string) ([]models.Subscription, error) {
	subs, err := r.store.List(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	return subs, nil
}

func (r *SubscriptionRegistry) Remove(ctx context.Context, key, endpoint string) error {
	removed, err := r.store.Remove(ctx, key, endpoint)
	if err != nil {
		return err
	}
	if removed {
		r.logger.Info("Subscription removed", "key", key, "endpoint", endpoint)
	}
	return nil
}
