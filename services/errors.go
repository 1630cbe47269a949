package services

import (
	"errors"

	"github.com/Anzil-km/attention-nudge/models"
)

var (
	// Client input errors.
	ErrInvalidIdentity       = errors.New("invalid identity")
	ErrMalformedSubscription = models.ErrMalformedSubscription
	ErrMissingParameters     = errors.New("missing parameters")
	ErrInvalidMessage        = errors.New("invalid message")

	// ErrNoSubscribers means the target has no live push registration.
	ErrNoSubscribers = errors.New("target not registered for notifications")
	// ErrTransportFailure means no endpoint of the target accepted the push.
	ErrTransportFailure = errors.New("push delivery failed")

	// ErrEndpointGone is returned by a Transport when the push service reports
	// the endpoint as permanently invalid.
	ErrEndpointGone = errors.New("push endpoint gone")
)
