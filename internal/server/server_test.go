package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"

	"github.com/bigkaa/disasterwatch/internal/api/handlers"
	"github.com/bigkaa/disasterwatch/internal/config"
	"github.com/bigkaa/disasterwatch/internal/domain/model"
	"github.com/bigkaa/disasterwatch/internal/events"
	"github.com/bigkaa/disasterwatch/internal/repository"
	"github.com/bigkaa/disasterwatch/internal/service"
)

// stubRepo — минимальное хранилище: только создание и чтение списка.
type stubRepo struct {
	repository.DisasterRepository
	created []*model.Disaster
}

func (s *stubRepo) Create(_ context.Context, d *model.Disaster) error {
	s.created = append(s.created, d)
	return nil
}

func (s *stubRepo) List(context.Context, repository.ListParams) ([]*model.Disaster, error) {
	return s.created, nil
}

type readyChecker struct{}

func (readyChecker) CheckReady() (string, string) { return "ok", "" }

type noopGenerator struct{}

func (noopGenerator) GenerateText(context.Context, string, string) (string, error) { return "", nil }

func testConfig() *config.Config {
	return &config.Config{
		Port:            0,
		CORSOrigins:     []string{"*"},
		ShutdownTimeout: time.Second,
	}
}

// newTestServer собирает сервер со всеми слоями, кроме PostgreSQL и внешних API.
func newTestServer(t *testing.T, cfg *config.Config) (*httptest.Server, *events.Hub) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	hub := events.NewHub(8, logger)
	apiHandler := handlers.NewAPIHandler(
		handlers.NewHealthHandler(readyChecker{}, nil),
		service.NewDisasterService(&stubRepo{}, hub, logger),
		service.NewEnrichmentService(noopGenerator{}, nil, service.EnrichmentConfig{}, logger),
		service.NewVerificationService(noopGenerator{}, "vision", logger),
		service.NewSocialMediaService(hub, logger),
		[]byte(`{}`),
		logger,
	)
	ws := events.NewHandler(hub, events.HandlerConfig{}, logger)

	srv := New(cfg, logger, apiHandler, ws, hub.Close)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		hub.Close()
		ts.Close()
	})
	return ts, hub
}

// TestServer_CreateBroadcastsToWebSocket — создание записи доставляется подписчику /ws.
func TestServer_CreateBroadcastsToWebSocket(t *testing.T) {
	ts, hub := newTestServer(t, testConfig())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer c.Close(websocket.StatusNormalClosure, "")

	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, 2*time.Second, 10*time.Millisecond)

	resp, err := http.Post(ts.URL+"/disasters", "application/json",
		strings.NewReader(`{"title":"Flood","description":"River overflow","ownerId":"reliefAdmin"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	_, data, err := c.Read(ctx)
	require.NoError(t, err)

	var env struct {
		Event string         `json:"event"`
		Data  model.Disaster `json:"data"`
	}
	require.NoError(t, json.Unmarshal(data, &env))
	assert.Equal(t, events.DisasterUpdated, env.Event)
	assert.Equal(t, "Flood", env.Data.Title)
	assert.Equal(t, "reliefAdmin", env.Data.OwnerID)
}

// TestServer_NotFoundJSON — неизвестный маршрут отдаёт JSON-ошибку.
func TestServer_NotFoundJSON(t *testing.T) {
	ts, _ := newTestServer(t, testConfig())

	resp, err := http.Get(ts.URL + "/nope")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
}

// TestServer_CORSPreflight — preflight-запрос разрешён для любого Origin.
func TestServer_CORSPreflight(t *testing.T) {
	ts, _ := newTestServer(t, testConfig())

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/disasters", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://frontend.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.NotEmpty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

// TestServer_RateLimit — превышение лимита на IP даёт 429.
func TestServer_RateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimitPerMinute = 2
	ts, _ := newTestServer(t, cfg)

	var last int
	for range 3 {
		resp, err := http.Get(ts.URL + "/health/live")
		require.NoError(t, err)
		last = resp.StatusCode
		resp.Body.Close()
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}

// TestServer_HubCloseEndsWebSocket — закрытие hub завершает соединения с GoingAway.
func TestServer_HubCloseEndsWebSocket(t *testing.T) {
	ts, hub := newTestServer(t, testConfig())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer c.Close(websocket.StatusNormalClosure, "")

	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, 2*time.Second, 10*time.Millisecond)
	hub.Close()

	_, _, err = c.Read(ctx)
	assert.Equal(t, websocket.StatusGoingAway, websocket.CloseStatus(err))
}
