package models

import "time"

// PresenceRecord is the stored heartbeat state of one identity.
type PresenceRecord struct {
	Identity        string    `json:"identity"`
	LastHeartbeatAt time.Time `json:"last_heartbeat_at"`
	IsVisible       bool      `json:"is_visible"`
}

// PresenceStatus is a PresenceRecord evaluated against the online window.
type PresenceStatus struct {
	Identity     string
	IsOnline     bool
	IsVisible    bool
	LastActiveAt time.Time // zero when the identity never sent a heartbeat
}

// LastActiveMillis returns LastActiveAt in epoch milliseconds, 0 when never seen.
func (s PresenceStatus) LastActiveMillis() int64 {
	if s.LastActiveAt.IsZero() {
		return 0
	}
	return s.LastActiveAt.UnixMilli()
}

type HeartbeatRequest struct {
	Role         string        `json:"role"`
	IsVisible    bool          `json:"isVisible"`
	Subscription *Subscription `json:"subscription,omitempty"`
}

type PresenceView struct {
	IsOnline        bool  `json:"isOnline"`
	IsVisible       bool  `json:"isVisible"`
	LastActive      int64 `json:"lastActive"`
	NotificationsOn bool  `json:"notificationsOn"`
}
