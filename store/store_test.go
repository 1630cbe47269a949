package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Anzil-km/attention-nudge/models"
)

func sub(endpoint, auth string) models.Subscription {
	return models.Subscription{
		Endpoint: endpoint,
		Keys:     models.SubscriptionKeys{P256dh: "p256-" + endpoint, Auth: auth},
	}
}

func endpoints(subs []models.Subscription) []string {
	out := make([]string, len(subs))
	for i, s := range subs {
		out[i] = s.Endpoint
	}
	return out
}

// runStoreContract exercises the behaviour every backend must share.
func runStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("presence - unknown identity is not found", func(t *testing.T) {
		s := newStore(t)

		_, err := s.Get(ctx, "nobody")
		assert.True(t, errors.Is(err, ErrNotFound))
	})

	t.Run("presence - put then get, last write wins", func(t *testing.T) {
		s := newStore(t)
		first := time.UnixMilli(1_700_000_000_000)
		second := first.Add(15 * time.Second)

		require.NoError(t, s.Put(ctx, models.PresenceRecord{Identity: "admin", LastHeartbeatAt: first, IsVisible: true}))
		require.NoError(t, s.Put(ctx, models.PresenceRecord{Identity: "admin", LastHeartbeatAt: second, IsVisible: false}))

		rec, err := s.Get(ctx, "admin")
		require.NoError(t, err)
		assert.Equal(t, "admin", rec.Identity)
		assert.Equal(t, second.UnixMilli(), rec.LastHeartbeatAt.UnixMilli())
		assert.False(t, rec.IsVisible)
	})

	t.Run("presence - concurrent puts never mix fields", func(t *testing.T) {
		s := newStore(t)
		base := time.UnixMilli(1_700_000_000_000)

		var wg sync.WaitGroup
		errs := make([]error, 50)
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				// Even heartbeats are visible, odd ones hidden.
				errs[i] = s.Put(ctx, models.PresenceRecord{
					Identity:        "admin",
					LastHeartbeatAt: base.Add(time.Duration(i) * time.Millisecond),
					IsVisible:       i%2 == 0,
				})
			}(i)
		}
		wg.Wait()
		for _, err := range errs {
			require.NoError(t, err)
		}

		rec, err := s.Get(ctx, "admin")
		require.NoError(t, err)
		i := int(rec.LastHeartbeatAt.Sub(base) / time.Millisecond)
		assert.GreaterOrEqual(t, i, 0)
		assert.Less(t, i, 50)
		assert.Equal(t, i%2 == 0, rec.IsVisible)
	})

	t.Run("subscriptions - unknown key lists empty", func(t *testing.T) {
		s := newStore(t)

		subs, err := s.List(ctx, "abc")
		require.NoError(t, err)
		assert.Empty(t, subs)
	})

	t.Run("subscriptions - dedup by endpoint refreshes keys", func(t *testing.T) {
		s := newStore(t)

		require.NoError(t, s.Upsert(ctx, "abc", sub("e1", "old"), 8))
		require.NoError(t, s.Upsert(ctx, "abc", sub("e1", "new"), 8))

		subs, err := s.List(ctx, "abc")
		require.NoError(t, err)
		require.Len(t, subs, 1)
		assert.Equal(t, "new", subs[0].Keys.Auth)
	})

	t.Run("subscriptions - insertion order and per-key isolation", func(t *testing.T) {
		s := newStore(t)

		require.NoError(t, s.Upsert(ctx, "abc", sub("e1", "a"), 8))
		require.NoError(t, s.Upsert(ctx, "abc", sub("e2", "a"), 8))
		require.NoError(t, s.Upsert(ctx, "xyz", sub("e9", "a"), 8))
		require.NoError(t, s.Upsert(ctx, "abc", sub("e3", "a"), 8))

		subs, err := s.List(ctx, "abc")
		require.NoError(t, err)
		assert.Equal(t, []string{"e1", "e2", "e3"}, endpoints(subs))

		other, err := s.List(ctx, "xyz")
		require.NoError(t, err)
		assert.Equal(t, []string{"e9"}, endpoints(other))
	})

	t.Run("subscriptions - limit evicts the oldest", func(t *testing.T) {
		s := newStore(t)

		require.NoError(t, s.Upsert(ctx, "abc", sub("e1", "a"), 2))
		require.NoError(t, s.Upsert(ctx, "abc", sub("e2", "a"), 2))
		require.NoError(t, s.Upsert(ctx, "abc", sub("e1", "b"), 2))

		subs, err := s.List(ctx, "abc")
		require.NoError(t, err)
		assert.Equal(t, []string{"e1", "e2"}, endpoints(subs), "replacing must not evict")

		require.NoError(t, s.Upsert(ctx, "abc", sub("e3", "a"), 2))

		subs, err = s.List(ctx, "abc")
		require.NoError(t, err)
		assert.Equal(t, []string{"e2", "e3"}, endpoints(subs))
	})

	t.Run("subscriptions - limit of one replaces the single slot", func(t *testing.T) {
		s := newStore(t)

		require.NoError(t, s.Upsert(ctx, "admin", sub("e1", "a"), 1))
		require.NoError(t, s.Upsert(ctx, "admin", sub("e2", "a"), 1))

		subs, err := s.List(ctx, "admin")
		require.NoError(t, err)
		assert.Equal(t, []string{"e2"}, endpoints(subs))
	})

	t.Run("subscriptions - remove is idempotent", func(t *testing.T) {
		s := newStore(t)

		require.NoError(t, s.Upsert(ctx, "abc", sub("e1", "a"), 8))
		require.NoError(t, s.Upsert(ctx, "abc", sub("e2", "a"), 8))

		removed, err := s.Remove(ctx, "abc", "e1")
		require.NoError(t, err)
		assert.True(t, removed)

		removed, err = s.Remove(ctx, "abc", "e1")
		require.NoError(t, err)
		assert.False(t, removed)

		removed, err = s.Remove(ctx, "nope", "e2")
		require.NoError(t, err)
		assert.False(t, removed)

		subs, err := s.List(ctx, "abc")
		require.NoError(t, err)
		assert.Equal(t, []string{"e2"}, endpoints(subs))
	})
}
