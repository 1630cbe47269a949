package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Anzil-km/attention-nudge/models"
)

const (
	presenceKeyPrefix     = "presence:"
	subscriptionKeyPrefix = "subscriptions:"

	fieldLastHeartbeat = "last_heartbeat_ms"
	fieldIsVisible     = "is_visible"

	maxTxRetries = 5
)

// NewRedisClient parses url, selects db and checks the connection.
func NewRedisClient(ctx context.Context, url string, db int) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	opt.DB = db

	client := redis.NewClient(opt)

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}

type redisStore struct {
	redis *redis.Client
}

// storedSubscription is the value kept per endpoint in the subscription hash.
type storedSubscription struct {
	Subscription models.Subscription `json:"subscription"`
	RegisteredAt int64               `json:"registered_at"` // unix nanos
}

// NewRedisStore keeps presence in one hash per identity and subscriptions in
// one hash per key, field = endpoint. The store owns client and closes it.
func NewRedisStore(client *redis.Client) Store {
	return &redisStore{redis: client}
}

func (s *redisStore) Put(ctx context.Context, rec models.PresenceRecord) error {
	key := presenceKeyPrefix + rec.Identity

	// A single HSET writes both fields atomically.
	err := s.redis.HSet(ctx, key,
		fieldLastHeartbeat, rec.LastHeartbeatAt.UnixMilli(),
		fieldIsVisible, strconv.FormatBool(rec.IsVisible),
	).Err()
	if err != nil {
		return fmt.Errorf("failed to update presence: %w", err)
	}
	return nil
}

func (s *redisStore) Get(ctx context.Context, identity string) (models.PresenceRecord, error) {
	fields, err := s.redis.HGetAll(ctx, presenceKeyPrefix+identity).Result()
	if err != nil {
		return models.PresenceRecord{}, fmt.Errorf("failed to get presence: %w", err)
	}
	if len(fields) == 0 {
		return models.PresenceRecord{}, ErrNotFound
	}

	ms, err := strconv.ParseInt(fields[fieldLastHeartbeat], 10, 64)
	if err != nil {
		return models.PresenceRecord{}, fmt.Errorf("corrupt presence for %s: %w", identity, err)
	}
	visible, _ := strconv.ParseBool(fields[fieldIsVisible])

	return models.PresenceRecord{
		Identity:        identity,
		LastHeartbeatAt: time.UnixMilli(ms),
		IsVisible:       visible,
	}, nil
}

func (s *redisStore) Upsert(ctx context.Context, key string, sub models.Subscription, limit int) error {
	hashKey := subscriptionKeyPrefix + key

	txf := func(tx *redis.Tx) error {
		current, err := readSubscriptions(ctx, tx, hashKey)
		if err != nil {
			return err
		}

		entry := storedSubscription{Subscription: sub, RegisteredAt: time.Now().UnixNano()}
		var evict []string
		replaced := false
		for _, c := range current {
			if c.Subscription.Endpoint == sub.Endpoint {
				entry.RegisteredAt = c.RegisteredAt
				replaced = true
				break
			}
		}
		if !replaced && limit > 0 && len(current)+1 > limit {
			for _, c := range current[:len(current)+1-limit] {
				evict = append(evict, c.Subscription.Endpoint)
			}
		}

		data, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("failed to marshal subscription: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, hashKey, sub.Endpoint, data)
			if len(evict) > 0 {
				pipe.HDel(ctx, hashKey, evict...)
			}
			return nil
		})
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := s.redis.Watch(ctx, txf, hashKey)
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return fmt.Errorf("failed to register subscription: %w", err)
	}
	return fmt.Errorf("failed to register subscription: %w", redis.TxFailedErr)
}

func (s *redisStore) List(ctx context.Context, key string) ([]models.Subscription, error) {
	entries, err := readSubscriptions(ctx, s.redis, subscriptionKeyPrefix+key)
	if err != nil {
		return nil, err
	}

	out := make([]models.Subscription, len(entries))
	for i, e := range entries {
		out[i] = e.Subscription
	}
	return out, nil
}

func (s *redisStore) Remove(ctx context.Context, key, endpoint string) (bool, error) {
	n, err := s.redis.HDel(ctx, subscriptionKeyPrefix+key, endpoint).Result()
	if err != nil {
		return false, fmt.Errorf("failed to remove subscription: %w", err)
	}
	return n > 0, nil
}

func (s *redisStore) Close() error {
	return s.redis.Close()
}

// hashReader is satisfied by both *redis.Client and *redis.Tx.
type hashReader interface {
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
}

// readSubscriptions loads and orders a subscription hash, oldest first.
func readSubscriptions(ctx context.Context, c hashReader, hashKey string) ([]storedSubscription, error) {
	raw, err := c.HGetAll(ctx, hashKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get subscriptions: %w", err)
	}

	entries := make([]storedSubscription, 0, len(raw))
	for endpoint, data := range raw {
		var entry storedSubscription
		if err := json.Unmarshal([]byte(data), &entry); err != nil {
			return nil, fmt.Errorf("corrupt subscription %s: %w", endpoint, err)
		}
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].RegisteredAt != entries[j].RegisteredAt {
			return entries[i].RegisteredAt < entries[j].RegisteredAt
		}
		return entries[i].Subscription.Endpoint < entries[j].Subscription.Endpoint
	})
	return entries, nil
}
