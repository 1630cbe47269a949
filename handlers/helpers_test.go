package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/Anzil-km/attention-nudge/config"
	"github.com/Anzil-km/attention-nudge/models"
	"github.com/Anzil-km/attention-nudge/services"
	"github.com/Anzil-km/attention-nudge/store"
	"github.com/Anzil-km/attention-nudge/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var fixedNow = time.UnixMilli(1_700_000_000_000)

// recordingTransport records every send and answers from a per-endpoint table.
type recordingTransport struct {
	mu   sync.Mutex
	sent []string
	errs map[string]error
}

func (r *recordingTransport) Send(_ context.Context, sub models.Subscription, _ []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sub.Endpoint)
	return r.errs[sub.Endpoint]
}

func (r *recordingTransport) Sent() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.sent...)
}

type testServer struct {
	router    *gin.Engine
	store     store.Store
	transport *recordingTransport
}

func newTestServer(t *testing.T, mode string) *testServer {
	t.Helper()

	cfg := config.Default()
	cfg.IdentityMode = mode
	cfg.VAPIDPublicKey = "test-public-key"
	cfg.VAPIDPrivateKey = "test-private-key"
	cfg.WatchInterval = 20 * time.Millisecond
	require.NoError(t, cfg.Validate())

	logger := utils.NewNopLogger()
	st := store.NewMemoryStore()
	transport := &recordingTransport{errs: map[string]error{}}

	policy := services.NewIdentityPolicy(cfg.IdentityMode, cfg.AllowedRoles)
	presence := services.NewPresenceTracker(st, policy, cfg.OnlineWindow, logger)
	presence.SetClock(func() time.Time { return fixedNow })
	registry := services.NewSubscriptionRegistry(st, cfg.MaxDevicesPerKey, logger)
	dispatcher := services.NewNudgeDispatcher(registry, transport, logger)
	service := services.NewCoordinationService(policy, presence, registry, dispatcher,
		services.NudgeContent{Title: cfg.NudgeTitle, Body: cfg.NudgeBody}, logger)

	handler := NewCoordinationHandler(service, cfg, logger)
	return &testServer{
		router:    NewRouter(cfg.BasePath, handler, logger),
		store:     st,
		transport: transport,
	}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func requireError(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()

	require.Equal(t, status, w.Code, w.Body.String())
	require.Equal(t, code, decode[ErrorResponse](t, w).Error)
}
