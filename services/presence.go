package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Anzil-km/attention-nudge/models"
	"github.com/Anzil-km/attention-nudge/store"
	"github.com/Anzil-km/attention-nudge/utils"
)

// DefaultOnlineWindow is how long a heartbeat keeps an identity online.
const DefaultOnlineWindow = 30 * time.Second

type PresenceTracker struct {
	store  store.PresenceStore
	policy *IdentityPolicy
	window time.Duration
	now    func() time.Time
	logger *utils.Logger
}

func NewPresenceTracker(st store.PresenceStore, policy *IdentityPolicy, window time.Duration, logger *utils.Logger) *PresenceTracker {
	if window <= 0 {
		window = DefaultOnlineWindow
	}
	return &PresenceTracker{
		store:  st,
		policy: policy,
		window: window,
		now:    time.Now,
		logger: logger.With("component", "PresenceTracker"),
	}
}

// SetClock replaces the time source.
func (pt *PresenceTracker) SetClock(now func() time.Time) {
	pt.now = now
}

func (pt *PresenceTracker) RecordHeartbeat(ctx context.Context, identity string, isVisible bool) error {
	if err := pt.policy.Validate(identity); err != nil {
		return err
	}

	rec := models.PresenceRecord{
		Identity:        identity,
		LastHeartbeatAt: pt.now(),
		IsVisible:       isVisible,
	}
	if err := pt.store.Put(ctx, rec); err != nil {
		return fmt.Errorf("failed to record heartbeat: %w", err)
	}

	heartbeatsTotal.Inc()
	pt.logger.Debug("Heartbeat recorded", "identity", identity, "visible", isVisible)
	return nil
}

// GetStatus evaluates the stored record against the online window. An
// identity that never sent a heartbeat is reported offline and invisible
// with a zero LastActiveAt.
func (pt *PresenceTracker) GetStatus(ctx context.Context, identity string) (models.PresenceStatus, error) {
	if err := pt.policy.Validate(identity); err != nil {
		return models.PresenceStatus{}, err
	}

	rec, err := pt.store.Get(ctx, identity)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.PresenceStatus{Identity: identity}, nil
		}
		return models.PresenceStatus{}, fmt.Errorf("failed to get presence: %w", err)
	}

	return models.PresenceStatus{
		Identity:     identity,
		IsOnline:     pt.now().Sub(rec.LastHeartbeatAt) < pt.window,
		IsVisible:    rec.IsVisible,
		LastActiveAt: rec.LastHeartbeatAt,
	}, nil
}
