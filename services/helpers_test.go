package services

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/Anzil-km/attention-nudge/config"
	"github.com/Anzil-km/attention-nudge/models"
	"github.com/Anzil-km/attention-nudge/store"
	"github.com/Anzil-km/attention-nudge/utils"
)

var testLogger = utils.NewNopLogger()

// mockTransport mocks the Transport interface.
type mockTransport struct {
	mock.Mock
}

func (m *mockTransport) Send(ctx context.Context, sub models.Subscription, payload []byte) error {
	return m.Called(ctx, sub, payload).Error(0)
}

// recordingTransport records sends and answers from a per-endpoint table.
type recordingTransport struct {
	mu       sync.Mutex
	sent     []string
	payloads [][]byte
	errs     map[string]error
}

func newRecordingTransport(errs map[string]error) *recordingTransport {
	if errs == nil {
		errs = map[string]error{}
	}
	return &recordingTransport{errs: errs}
}

func (r *recordingTransport) Send(_ context.Context, sub models.Subscription, payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sub.Endpoint)
	r.payloads = append(r.payloads, payload)
	return r.errs[sub.Endpoint]
}

func (r *recordingTransport) Sent() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.sent...)
}

type fixture struct {
	store      store.Store
	policy     *IdentityPolicy
	presence   *PresenceTracker
	registry   *SubscriptionRegistry
	dispatcher *NudgeDispatcher
	service    *CoordinationService
	now        time.Time
}

func newFixture(mode string, transport Transport) *fixture {
	f := &fixture{
		store:  store.NewMemoryStore(),
		policy: NewIdentityPolicy(mode, []string{"admin", "friend"}),
		now:    time.UnixMilli(1_700_000_000_000),
	}
	f.presence = NewPresenceTracker(f.store, f.policy, DefaultOnlineWindow, testLogger)
	f.presence.SetClock(func() time.Time { return f.now })
	f.registry = NewSubscriptionRegistry(f.store, 8, testLogger)
	f.dispatcher = NewNudgeDispatcher(f.registry, transport, testLogger)
	f.service = NewCoordinationService(f.policy, f.presence, f.registry, f.dispatcher,
		NudgeContent{Title: "Attention!", Body: "Your friend is nudging you."}, testLogger)
	return f
}

func newRolesFixture(transport Transport) *fixture {
	return newFixture(config.IdentityModeRoles, transport)
}

func newRoomFixture(transport Transport) *fixture {
	return newFixture(config.IdentityModeRoom, transport)
}

func testSub(endpoint string) models.Subscription {
	return models.Subscription{
		Endpoint: endpoint,
		Keys:     models.SubscriptionKeys{P256dh: "p256-" + endpoint, Auth: "auth-" + endpoint},
	}
}
