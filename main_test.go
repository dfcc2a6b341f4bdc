package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vapecity/vapecity-api/config"
	"github.com/vapecity/vapecity-api/logging"
	"github.com/vapecity/vapecity-api/metrics"
	"github.com/vapecity/vapecity-api/services"
	"github.com/vapecity/vapecity-api/tests/testutil"
)

func TestMain(m *testing.M) {
	if env := os.Getenv("GO_ENV"); env != "test" {
		fmt.Fprintf(os.Stderr, "SAFETY CHECK FAILED: tests must run with GO_ENV=test (current %q)\n", env)
		os.Exit(1)
	}
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// setupApp wires the application the way run does, on an in-memory database
// and a temporary upload directory
func setupApp(t *testing.T) (*gin.Engine, *config.Config) {
	t.Helper()

	db := testutil.NewTestDB(t)
	config.SetDB(db)

	cfg := config.NewTestConfig()
	cfg.UploadDir = t.TempDir()
	config.SetConfig(cfg)
	metrics.Registry(cfg.MetricsNamespace)

	storage, err := newStorage(t.Context(), cfg)
	require.NoError(t, err)
	services.SetFileStorage(storage)

	svc, err := newReservationService(cfg, storage, logging.Discard())
	require.NoError(t, err)
	services.SetReservationService(svc)
	services.SetBotRunner(nil)
	services.SetImageGenerator(nil)

	return newRouter(cfg), cfg
}

type healthResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Status   string `json:"status"`
		Database bool   `json:"database"`
		Bot      struct {
			Enabled bool `json:"enabled"`
			Running bool `json:"running"`
		} `json:"bot"`
	} `json:"data"`
}

// TestHealthCheck is a unit test for the healthCheck handler function
func TestHealthCheck(t *testing.T) {
	setupApp(t)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	healthCheck(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))

	var response healthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response), "Response should be valid JSON")
	assert.True(t, response.Success)
	assert.Equal(t, "ok", response.Data.Status)
	assert.True(t, response.Data.Database)
	assert.False(t, response.Data.Bot.Enabled)
}

// TestHealthCheckDegraded reports a missing database without failing the probe
func TestHealthCheckDegraded(t *testing.T) {
	setupApp(t)
	config.SetDB(nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	healthCheck(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var response healthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "degraded", response.Data.Status)
	assert.False(t, response.Data.Database)
	assert.ErrorIs(t, pingDatabase(), errNoDatabase)
}

type stubRunner struct{ running bool }

func (s *stubRunner) Start(string) error { return nil }
func (s *stubRunner) Stop()              {}
func (s *stubRunner) IsRunning() bool    { return s.running }

func TestBotStatus(t *testing.T) {
	services.SetBotRunner(nil)
	assert.Equal(t, gin.H{"enabled": false, "running": false}, botStatus())

	services.SetBotRunner(&stubRunner{running: true})
	t.Cleanup(func() { services.SetBotRunner(nil) })
	assert.Equal(t, gin.H{"enabled": true, "running": true}, botStatus())
}

func TestNewStorage(t *testing.T) {
	cfg := config.NewTestConfig()
	cfg.UploadDir = t.TempDir()

	storage, err := newStorage(t.Context(), cfg)
	require.NoError(t, err)
	assert.IsType(t, &services.LocalStorage{}, storage)
}

func TestNewReservationServiceRejectsBadConfig(t *testing.T) {
	config.SetDB(testutil.NewTestDB(t))

	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{name: "Unknown flow", mutate: func(c *config.Config) { c.OrderFlow = "teleport" }},
		{name: "Malformed fees", mutate: func(c *config.Config) { c.DeliveryFees = "cdek" }},
		{name: "Unknown timezone", mutate: func(c *config.Config) { c.Timezone = "Mars/Olympus" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.NewTestConfig()
			tt.mutate(cfg)
			_, err := newReservationService(cfg, services.NewMockStorage(), logging.Discard())
			assert.Error(t, err)
		})
	}
}
