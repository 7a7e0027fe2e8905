package metrics

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	coremetrics "entity-sync/core/metrics"
	"entity-sync/core/schema"
	"entity-sync/core/source/memsource"
	"entity-sync/core/store"
	coresync "entity-sync/core/sync"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestApp(t *testing.T) (*fiber.App, *coremetrics.SyncMetrics) {
	t.Helper()
	reg := prometheus.NewRegistry()
	m, err := coremetrics.NewSyncMetrics(reg)
	require.NoError(t, err)

	registry := schema.NewRegistry().MustRegister(schema.NewEntity("users"))
	engine, err := coresync.New(store.New(nil, nil), registry, coresync.Config{},
		coresync.WithSources(memsource.New("api")), coresync.WithMetrics(m))
	require.NoError(t, err)

	app := fiber.New()
	require.NoError(t, NewFeature(reg, engine, "/metrics").Load(app))
	return app, m
}

func TestMetricsEndpoint(t *testing.T) {
	app, m := setupTestApp(t)
	m.RecordConflict("users")

	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `entity_sync_conflicts_total{entity_type="users"} 1`)
}

func TestHealthEndpoint(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, true, body["online"])
	assert.EqualValues(t, 0, body["pending_changes"])
}
