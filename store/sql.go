package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Anzil-km/attention-nudge/models"
)

type presenceRow struct {
	Identity        string `gorm:"primaryKey;size:128"`
	LastHeartbeatMs int64  `gorm:"not null"`
	IsVisible       bool   `gorm:"not null"`
	UpdatedAt       time.Time
}

func (presenceRow) TableName() string {
	return "presence_records"
}

type subscriptionRow struct {
	ID        uint   `gorm:"primaryKey"`
	OwnerKey  string `gorm:"size:128;not null;uniqueIndex:idx_subscription_owner_endpoint"`
	Endpoint  string `gorm:"size:2048;not null;uniqueIndex:idx_subscription_owner_endpoint"`
	P256dh    string `gorm:"column:p256dh"`
	Auth      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (subscriptionRow) TableName() string {
	return "push_subscriptions"
}

func (r subscriptionRow) toModel() models.Subscription {
	return models.Subscription{
		Endpoint: r.Endpoint,
		Keys:     models.SubscriptionKeys{P256dh: r.P256dh, Auth: r.Auth},
	}
}

type sqlStore struct {
	db *gorm.DB
}

// NewSQLStore migrates the presence and subscription tables and returns a
// store backed by db. Insertion order is the auto-increment id.
func NewSQLStore(db *gorm.DB) (Store, error) {
	if err := db.AutoMigrate(&presenceRow{}, &subscriptionRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate store tables: %w", err)
	}
	return &sqlStore{db: db}, nil
}

func (s *sqlStore) Put(ctx context.Context, rec models.PresenceRecord) error {
	row := presenceRow{
		Identity:        rec.Identity,
		LastHeartbeatMs: rec.LastHeartbeatAt.UnixMilli(),
		IsVisible:       rec.IsVisible,
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "identity"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_heartbeat_ms", "is_visible", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to update presence: %w", err)
	}
	return nil
}

func (s *sqlStore) Get(ctx context.Context, identity string) (models.PresenceRecord, error) {
	var row presenceRow
	err := s.db.WithContext(ctx).Where("identity = ?", identity).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.PresenceRecord{}, ErrNotFound
		}
		return models.PresenceRecord{}, fmt.Errorf("failed to get presence: %w", err)
	}

	return models.PresenceRecord{
		Identity:        row.Identity,
		LastHeartbeatAt: time.UnixMilli(row.LastHeartbeatMs),
		IsVisible:       row.IsVisible,
	}, nil
}

func (s *sqlStore) Upsert(ctx context.Context, key string, sub models.Subscription, limit int) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := subscriptionRow{
			OwnerKey: key,
			Endpoint: sub.Endpoint,
			P256dh:   sub.Keys.P256dh,
			Auth:     sub.Keys.Auth,
		}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "owner_key"}, {Name: "endpoint"}},
			DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth", "updated_at"}),
		}).Create(&row).Error
		if err != nil {
			return err
		}

		if limit <= 0 {
			return nil
		}

		var ids []uint
		if err := tx.Model(&subscriptionRow{}).
			Where("owner_key = ?", key).
			Order("id ASC").
			Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) <= limit {
			return nil
		}
		return tx.Delete(&subscriptionRow{}, ids[:len(ids)-limit]).Error
	})
	if err != nil {
		return fmt.Errorf("failed to register subscription: %w", err)
	}
	return nil
}

func (s *sqlStore) List(ctx context.Context, key string) ([]models.Subscription, error) {
	var rows []subscriptionRow
	err := s.db.WithContext(ctx).
		Where("owner_key = ?", key).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get subscriptions: %w", err)
	}

	out := make([]models.Subscription, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}

func (s *sqlStore) Remove(ctx context.Context, key, endpoint string) (bool, error) {
	res := s.db.WithContext(ctx).
		Where("owner_key = ? AND endpoint = ?", key, endpoint).
		Delete(&subscriptionRow{})
	if res.Error != nil {
		return false, fmt.Errorf("failed to remove subscription: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *sqlStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
