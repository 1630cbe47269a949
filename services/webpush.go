package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/Anzil-km/attention-nudge/config"
	"github.com/Anzil-km/attention-nudge/models"
	"github.com/Anzil-km/attention-nudge/utils"
)

const pushRequestTimeout = 10 * time.Second

// WebPushTransport delivers payloads through the Web Push protocol, signing
// each request with the service's VAPID key pair.
type WebPushTransport struct {
	options webpush.Options
	logger  *utils.Logger
}

func NewWebPushTransport(cfg *config.Config, client webpush.HTTPClient, logger *utils.Logger) *WebPushTransport {
	if client == nil {
		client = &http.Client{Timeout: pushRequestTimeout}
	}
	return &WebPushTransport{
		options: webpush.Options{
			HTTPClient:      client,
			// webpush-go adds the mailto: scheme itself for non-https subjects.
			Subscriber:      strings.TrimPrefix(cfg.VAPIDSubject, "mailto:"),
			VAPIDPublicKey:  cfg.VAPIDPublicKey,
			VAPIDPrivateKey: cfg.VAPIDPrivateKey,
			TTL:             cfg.PushTTL,
			Urgency:         webpush.Urgency(cfg.PushUrgency),
		},
		logger: logger.With("component", "WebPushTransport"),
	}
}

func (t *WebPushTransport) Send(ctx context.Context, sub models.Subscription, payload []byte) error {
	// An encrypted payload needs the browser's keys; without them the
	// subscription can never carry a nudge.
	if !sub.HasKeys() {
		return fmt.Errorf("%w: subscription has no encryption keys", ErrEndpointGone)
	}

	opts := t.options
	resp, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			Auth:   sub.Keys.Auth,
			P256dh: sub.Keys.P256dh,
		},
	}, &opts)
	if err != nil {
		return fmt.Errorf("push request to %s failed: %w", sub.Endpoint, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return fmt.Errorf("%w: push service responded %d", ErrEndpointGone, resp.StatusCode)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("push service responded %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
}

// EnsureVAPIDKeys fills in an ephemeral key pair when none is configured.
// Browsers bind subscriptions to the public key, so every subscription made
// against an ephemeral key stops working after a restart. Never used in
// production, where Validate requires configured keys.
func EnsureVAPIDKeys(cfg *config.Config, logger *utils.Logger) error {
	if cfg.VAPIDPublicKey != "" {
		return nil
	}

	privateKey, publicKey, err := webpush.GenerateVAPIDKeys()
	if err != nil {
		return fmt.Errorf("ephemeral VAPID key generation failed: %w", err)
	}
	cfg.VAPIDPrivateKey = privateKey
	cfg.VAPIDPublicKey = publicKey

	logger.Warn("No VAPID keys configured, generated an ephemeral pair", "public_key", publicKey)
	return nil
}
