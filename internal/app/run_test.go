package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bnema/imagerelay/internal/adapters/out/ratelimit"
	"github.com/bnema/imagerelay/internal/boundaries/out"
	"github.com/bnema/imagerelay/internal/boundaries/out/mocks"
	"github.com/bnema/imagerelay/internal/config"
	"github.com/bnema/imagerelay/internal/domain"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Addr:            "127.0.0.1:0",
			ShutdownTimeout: time.Second,
		},
		Registry: config.RegistryConfig{Username: "relay", Password: "s3cret"},
		Relay:    config.RelayConfig{DestinationRepository: "dierbei/csi_demo"},
		Prune:    config.PruneConfig{Until: "1m"},
		Logging:  config.LoggingConfig{Level: "info", Format: "console"},
	}
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestNewServer_SyncEndToEnd(t *testing.T) {
	cfg := testConfig()
	engine := mocks.NewMockImageEngine(t)
	creds := domain.Credentials{Username: "relay", Password: "s3cret"}

	engine.On("PullImage", mock.Anything, "alpine:3.18").Return(nil).Once()
	engine.On("TagImage", mock.Anything, "alpine:3.18", "dierbei/csi_demo:alpine_3.18").Return(nil).Once()
	engine.On("PushImage", mock.Anything, "dierbei/csi_demo:alpine_3.18", creds).Return(out.PushResult{}, nil).Once()
	engine.On("RemoveImage", mock.Anything, "alpine:3.18", true).Return(nil).Once()
	engine.On("RemoveImage", mock.Anything, "dierbei/csi_demo:alpine_3.18", true).Return(nil).Once()

	e := NewServer(newKernel(cfg, engine), cfg, zerolog.Nop(), nil)

	rec := get(t, e, "/imagesync?image=alpine:3.18")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"source_image":"alpine:3.18","dest_image":"alpine_3.18"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestNewServer_MalformedImage(t *testing.T) {
	cfg := testConfig()
	engine := mocks.NewMockImageEngine(t)
	e := NewServer(newKernel(cfg, engine), cfg, zerolog.Nop(), nil)

	rec := get(t, e, "/imagesync?image=a:b:c")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	engine.AssertNotCalled(t, "PullImage", mock.Anything, mock.Anything)
}

func TestNewServer_PruneUsesConfiguredAge(t *testing.T) {
	cfg := testConfig()
	engine := mocks.NewMockImageEngine(t)
	engine.On("PruneImages", mock.Anything, "1m").Return(domain.PruneReport{}, nil).Once()

	e := NewServer(newKernel(cfg, engine), cfg, zerolog.Nop(), nil)

	rec := get(t, e, "/prune_images")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ImagesDeleted":null,"SpaceReclaimed":0}`, rec.Body.String())
}

func TestNewServer_HealthAndUnknownRoute(t *testing.T) {
	cfg := testConfig()
	e := NewServer(newKernel(cfg, mocks.NewMockImageEngine(t)), cfg, zerolog.Nop(), nil)

	rec := get(t, e, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())

	rec = get(t, e, "/does-not-exist")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Route not found", rec.Body.String())
}

func TestNewServer_MetricsEndpoint(t *testing.T) {
	cfg := testConfig()
	engine := mocks.NewMockImageEngine(t)
	engine.On("PruneImages", mock.Anything, "1m").Return(domain.PruneReport{SpaceReclaimed: 42}, nil).Once()

	e := NewServer(newKernel(cfg, engine), cfg, zerolog.Nop(), nil)
	require.Equal(t, http.StatusOK, get(t, e, "/prune_images").Code)

	rec := get(t, e, "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "imagerelay_prune_total")
	assert.Contains(t, body, "imagerelay_prune_space_reclaimed_bytes_total 42")
	assert.Contains(t, body, "imagerelay_requests_total")
}

func TestNewServer_RateLimitsRelayRoutesOnly(t *testing.T) {
	cfg := testConfig()
	engine := mocks.NewMockImageEngine(t)
	engine.On("PruneImages", mock.Anything, "1m").Return(domain.PruneReport{}, nil).Once()

	limiter := ratelimit.NewMemoryStore(0.001, 1, zerolog.Nop())
	e := NewServer(newKernel(cfg, engine), cfg, zerolog.Nop(), limiter)

	assert.Equal(t, http.StatusOK, get(t, e, "/prune_images").Code)
	assert.Equal(t, http.StatusTooManyRequests, get(t, e, "/prune_images").Code)
	assert.Equal(t, http.StatusOK, get(t, e, "/health").Code)
}

func TestLoadConfig_FromFile(t *testing.T) {
	t.Setenv("USERNAME", "")
	t.Setenv("PASSWORD", "")
	dir := t.TempDir()
	path := filepath.Join(dir, "imagerelay.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: 0.0.0.0:8080
registry:
  username: filer
  password: filepw
relay:
  destination_repository: ghcr.io/acme/mirror
prune:
  until: 24h
`), 0o600))

	cfg, err := LoadConfig(path)

	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr)
	assert.Equal(t, "ghcr.io/acme/mirror", cfg.Relay.DestinationRepository)
	assert.Equal(t, "24h", cfg.Prune.Until)
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))

	require.Error(t, err)
}

func TestRun_StopsOnCancel(t *testing.T) {
	cfg := testConfig()
	cfg.Docker.Host = "tcp://127.0.0.1:1"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, cfg, zerolog.Nop()) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
