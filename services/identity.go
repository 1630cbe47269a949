package services

import (
	"fmt"
	"unicode"
	"unicode/utf8"

	"github.com/Anzil-km/attention-nudge/config"
)

const maxRoomTokenLength = 128

// IdentityPolicy decides which keys may carry presence and subscriptions.
// In roles mode only the configured role names are accepted; in room mode any
// short printable token is. Neither mode authenticates the caller.
type IdentityPolicy struct {
	mode  string
	roles map[string]struct{}
}

func NewIdentityPolicy(mode string, roles []string) *IdentityPolicy {
	p := &IdentityPolicy{
		mode:  mode,
		roles: make(map[string]struct{}, len(roles)),
	}
	for _, r := range roles {
		p.roles[r] = struct{}{}
	}
	return p
}

func (p *IdentityPolicy) Mode() string {
	return p.mode
}

func (p *IdentityPolicy) Validate(key string) error {
	if key == "" {
		return fmt.Errorf("%w: empty", ErrInvalidIdentity)
	}

	if p.mode == config.IdentityModeRoom {
		if utf8.RuneCountInString(key) > maxRoomTokenLength {
			return fmt.Errorf("%w: room token longer than %d characters", ErrInvalidIdentity, maxRoomTokenLength)
		}
		for _, r := range key {
			if unicode.IsSpace(r) || unicode.IsControl(r) {
				return fmt.Errorf("%w: room token contains whitespace or control characters", ErrInvalidIdentity)
			}
		}
		return nil
	}

	if _, ok := p.roles[key]; !ok {
		return fmt.Errorf("%w: unknown role %q", ErrInvalidIdentity, key)
	}
	return nil
}
