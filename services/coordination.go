package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/Anzil-km/attention-nudge/models"
	"github.com/Anzil-km/attention-nudge/utils"
)

const (
	maxNudgeMessageLength = 240
	maxNudgeFromLength    = 64
)

// NudgeContent is the default notification text.
type NudgeContent struct {
	Title string
	Body  string
}

// CoordinationService is the request surface. Every operation validates its
// whole input before touching any state.
type CoordinationService struct {
	policy     *IdentityPolicy
	presence   *PresenceTracker
	registry   *SubscriptionRegistry
	dispatcher *NudgeDispatcher
	content    NudgeContent
	logger     *utils.Logger
}

func NewCoordinationService(
	policy *IdentityPolicy,
	presence *PresenceTracker,
	registry *SubscriptionRegistry,
	dispatcher *NudgeDispatcher,
	content NudgeContent,
	logger *utils.Logger,
) *CoordinationService {
	return &CoordinationService{
		policy:     policy,
		presence:   presence,
		registry:   registry,
		dispatcher: dispatcher,
		content:    content,
		logger:     logger.With("component", "CoordinationService"),
	}
}

// UpdateStatus records a heartbeat and, when sub is non-nil, registers it.
func (s *CoordinationService) UpdateStatus(ctx context.Context, identity string, isVisible bool, sub *models.Subscription) error {
	if err := s.policy.Validate(identity); err != nil {
		return err
	}
	if sub != nil {
		if err := sub.Validate(); err != nil {
			return err
		}
	}

	if err := s.presence.RecordHeartbeat(ctx, identity, isVisible); err != nil {
		return err
	}
	if sub != nil {
		if err := s.registry.Register(ctx, identity, *sub); err != nil {
			return err
		}
	}
	return nil
}

func (s *CoordinationService) GetStatus(ctx context.Context, watch string) (models.PresenceView, error) {
	if err := s.policy.Validate(watch); err != nil {
		return models.PresenceView{}, err
	}

	status, err := s.presence.GetStatus(ctx, watch)
	if err != nil {
		return models.PresenceView{}, err
	}
	subs, err := s.registry.Endpoints(ctx, watch)
	if err != nil {
		return models.PresenceView{}, err
	}

	return models.PresenceView{
		IsOnline:        status.IsOnline,
		IsVisible:       status.IsVisible,
		LastActive:      status.LastActiveMillis(),
		NotificationsOn: len(subs) > 0,
	}, nil
}

func (s *CoordinationService) RegisterSubscription(ctx context.Context, key string, sub *models.Subscription) error {
	if key == "" || sub == nil {
		return ErrMissingParameters
	}
	if err := s.policy.Validate(key); err != nil {
		return err
	}
	return s.registry.Register(ctx, key, *sub)
}

// Nudge pushes a notification to every device of the target. Success means
// at least one device accepted it; otherwise the nudge failed, even when
// every device was gone and has been pruned.
func (s *CoordinationService) Nudge(ctx context.Context, req models.NudgeRequest) (models.DispatchReport, error) {
	target := req.Target()
	if target == "" {
		return models.DispatchReport{}, ErrMissingParameters
	}
	if err := s.policy.Validate(target); err != nil {
		return models.DispatchReport{}, err
	}
	if utf8.RuneCountInString(req.Message) > maxNudgeMessageLength {
		return models.DispatchReport{}, fmt.Errorf("%w: message longer than %d characters", ErrInvalidMessage, maxNudgeMessageLength)
	}
	if utf8.RuneCountInString(req.From) > maxNudgeFromLength {
		return models.DispatchReport{}, fmt.Errorf("%w: sender longer than %d characters", ErrInvalidMessage, maxNudgeFromLength)
	}

	nudgeID := uuid.NewString()
	payload, err := s.buildPayload(nudgeID, req)
	if err != nil {
		return models.DispatchReport{}, err
	}

	report, err := s.dispatcher.Nudge(ctx, target, payload)
	report.NudgeID = nudgeID
	if err != nil {
		if errors.Is(err, ErrNoSubscribers) {
			nudgesTotal.WithLabelValues(nudgeResultNoSubscribers).Inc()
		}
		return report, err
	}

	if report.Delivered > 0 {
		nudgesTotal.WithLabelValues(nudgeResultSent).Inc()
		return report, nil
	}

	nudgesTotal.WithLabelValues(nudgeResultFailed).Inc()
	s.logger.Error("Nudge not delivered to any endpoint",
		"nudge_id", nudgeID,
		"target", target,
		"attempted", report.Attempted,
		"pruned", report.Pruned,
		"failed", report.Failed,
	)
	return report, ErrTransportFailure
}

func (s *CoordinationService) buildPayload(nudgeID string, req models.NudgeRequest) ([]byte, error) {
	body := s.content.Body
	if req.Message != "" {
		body = req.Message
	}

	payload, err := json.Marshal(models.NudgePayload{
		Title:  s.content.Title,
		Body:   body,
		Tag:    nudgeID,
		From:   req.From,
		SentAt: s.presence.now().UnixMilli(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal nudge payload: %w", err)
	}
	return payload, nil
}
