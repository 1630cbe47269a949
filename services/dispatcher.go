package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Anzil-km/attention-nudge/models"
	"github.com/Anzil-km/attention-nudge/utils"
)

// Transport delivers one payload to one subscription. A nil error means the
// push service accepted it; an error wrapping ErrEndpointGone means the
// subscription will never work again; any other error is transient.
type Transport interface {
	Send(ctx context.Context, sub models.Subscription, payload []byte) error
}

const pruneTimeout = 5 * time.Second

type NudgeDispatcher struct {
	registry  *SubscriptionRegistry
	transport Transport
	logger    *utils.Logger
}

func NewNudgeDispatcher(registry *SubscriptionRegistry, transport Transport, logger *utils.Logger) *NudgeDispatcher {
	return &NudgeDispatcher{
		registry:  registry,
		transport: transport,
		logger:    logger.With("component", "NudgeDispatcher"),
	}
}

// Nudge sends payload to every endpoint registered under key at once and
// waits for all of them. Gone endpoints are pruned before it returns.
// It fails only when there is nothing to send to; per-endpoint outcomes are
// in the report.
func (d *NudgeDispatcher) Nudge(ctx context.Context, key string, payload []byte) (models.DispatchReport, error) {
	subs, err := d.registry.Endpoints(ctx, key)
	if err != nil {
		return models.DispatchReport{}, err
	}
	if len(subs) == 0 {
		return models.DispatchReport{}, ErrNoSubscribers
	}

	results := make([]models.DeliveryResult, len(subs))

	var wg sync.WaitGroup
	for i, sub := range subs {
		wg.Add(1)
		go func(i int, sub models.Subscription) {
			defer wg.Done()
			results[i] = d.deliver(ctx, sub, payload)
		}(i, sub)
	}
	wg.Wait()

	report := models.DispatchReport{
		Attempted: len(subs),
		Results:   results,
	}

	// Gone endpoints are pruned even when the nudge deadline has passed.
	pruneCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), pruneTimeout)
	defer cancel()

	for _, res := range results {
		switch res.Outcome {
		case models.OutcomeDelivered:
			report.Delivered++
		case models.OutcomeGone:
			if err := d.registry.Remove(pruneCtx, key, res.Endpoint); err != nil {
				d.logger.Error("Failed to prune subscription", "key", key, "endpoint", res.Endpoint, "error", err)
				report.Failed++
				continue
			}
			subscriptionsPruned.Inc()
			report.Pruned++
		default:
			report.Failed++
		}
	}

	d.logger.Info("Nudge dispatched",
		"key", key,
		"attempted", report.Attempted,
		"delivered", report.Delivered,
		"pruned", report.Pruned,
		"failed", report.Failed,
	)
	return report, nil
}

func (d *NudgeDispatcher) deliver(ctx context.Context, sub models.Subscription, payload []byte) models.DeliveryResult {
	start := time.Now()
	err := d.transport.Send(ctx, sub, payload)
	deliveryDuration.Observe(time.Since(start).Seconds())

	res := models.DeliveryResult{Endpoint: sub.Endpoint, Err: err}
	switch {
	case err == nil:
		res.Outcome = models.OutcomeDelivered
	case errors.Is(err, ErrEndpointGone):
		res.Outcome = models.OutcomeGone
		d.logger.Info("Push endpoint gone", "endpoint", sub.Endpoint, "error", err)
	default:
		res.Outcome = models.OutcomeTransient
		d.logger.Warn("Push delivery failed", "endpoint", sub.Endpoint, "error", err)
	}

	deliveriesTotal.WithLabelValues(string(res.Outcome)).Inc()
	return res
}
