// Package store holds the presence and subscription state behind interfaces
// so the services do not depend on where the state lives.
package store

import (
	"context"
	"errors"

	"github.com/Anzil-km/attention-nudge/models"
)

var ErrNotFound = errors.New("not found")

type PresenceStore interface {
	// Put replaces the record for rec.Identity.
	Put(ctx context.Context, rec models.PresenceRecord) error
	// Get returns ErrNotFound for identities that never heartbeated.
	Get(ctx context.Context, identity string) (models.PresenceRecord, error)
}

type SubscriptionStore interface {
	// Upsert adds sub under key, replacing an entry with the same endpoint.
	// When the set grows beyond limit the oldest entries are evicted.
	Upsert(ctx context.Context, key string, sub models.Subscription, limit int) error
	// List returns a snapshot of the set, oldest first.
	List(ctx context.Context, key string) ([]models.Subscription, error)
	// Remove reports whether an entry was deleted. Missing entries are not an error.
	Remove(ctx context.Context, key, endpoint string) (bool, error)
}

// Store bundles both halves of the state owned by one service instance.
type Store interface {
	PresenceStore
	SubscriptionStore
	Close() error
}
