package models

import (
	"errors"
	"fmt"
	"strings"
)

var ErrMalformedSubscription = errors.New("malformed subscription")

type SubscriptionKeys struct {
	P256dh string `json:"p256dh"`
	Auth   string `json:"auth"`
}

// Subscription is a browser PushSubscription as produced by
// PushSubscription.toJSON(). Two subscriptions are the same device when
// their endpoints are equal.
type Subscription struct {
	Endpoint string           `json:"endpoint"`
	Keys     SubscriptionKeys `json:"keys"`
}

func (s Subscription) HasKeys() bool {
	return s.Keys.P256dh != "" && s.Keys.Auth != ""
}

// Validate rejects descriptors that could never be delivered to.
func (s Subscription) Validate() error {
	if strings.TrimSpace(s.Endpoint) == "" {
		return fmt.Errorf("%w: endpoint is required", ErrMalformedSubscription)
	}
	if (s.Keys.P256dh == "") != (s.Keys.Auth == "") {
		return fmt.Errorf("%w: keys.p256dh and keys.auth must be provided together", ErrMalformedSubscription)
	}
	return nil
}

type RegisterRequest struct {
	Room         string        `json:"room"`
	Subscription *Subscription `json:"subscription"`
}
