package entities

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"entity-sync/core/conflict"
	"entity-sync/core/entity"
	"entity-sync/core/normalize"
	"entity-sync/core/schema"
	"entity-sync/core/source"
	"entity-sync/core/source/memsource"
	"entity-sync/core/store"
	coresync "entity-sync/core/sync"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupTestApp(t *testing.T) (*fiber.App, *memsource.Source, *coresync.Engine) {
	t.Helper()
	users := schema.NewEntity("users")
	posts := schema.NewEntity("posts").Define(map[string]schema.Schema{"author": users})
	registry := schema.NewRegistry().MustRegister(users, posts)

	remote := memsource.New("api")
	engine, err := coresync.New(store.New(nil, nil), registry, coresync.Config{}, coresync.WithSources(remote))
	require.NoError(t, err)

	app := fiber.New()
	require.NoError(t, NewFeature(engine, registry, zap.NewNop()).Load(app))
	return app, remote, engine
}

func request(t *testing.T, app *fiber.App, method, target string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func TestSyncThenDenormalizedRead(t *testing.T) {
	app, remote, _ := setupTestApp(t)
	remote.Put("posts", entity.Entity{"id": "1", "title": "Hello", "author": map[string]any{"id": "7", "name": "Amy"}})

	resp, _ := request(t, app, "POST", "/sync/posts", nil)
	require.Equal(t, 200, resp.StatusCode)

	resp, data := request(t, app, "GET", "/entities/posts/1", nil)
	require.Equal(t, 200, resp.StatusCode)
	var post map[string]any
	require.NoError(t, json.Unmarshal(data, &post))
	author, ok := post["author"].(map[string]any)
	require.True(t, ok, "author should be nested: %s", data)
	assert.Equal(t, "Amy", author["name"])

	resp, data = request(t, app, "GET", "/entities/posts/1?normalized=true", nil)
	require.Equal(t, 200, resp.StatusCode)
	require.NoError(t, json.Unmarshal(data, &post))
	assert.Equal(t, "7", post["author"])

	resp, data = request(t, app, "GET", "/entities/users", nil)
	require.Equal(t, 200, resp.StatusCode)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(data, &list))
	require.Len(t, list, 1)
	assert.Equal(t, "7", list[0]["id"])
}

func TestTypesAndStatus(t *testing.T) {
	app, _, _ := setupTestApp(t)

	resp, data := request(t, app, "GET", "/entities", nil)
	require.Equal(t, 200, resp.StatusCode)
	var types []TypeSummary
	require.NoError(t, json.Unmarshal(data, &types))
	assert.Len(t, types, 2)

	resp, _ = request(t, app, "GET", "/sync/status/comments", nil)
	assert.Equal(t, 404, resp.StatusCode)

	resp, data = request(t, app, "GET", "/sync/status", nil)
	require.Equal(t, 200, resp.StatusCode)
	var status map[string]any
	require.NoError(t, json.Unmarshal(data, &status))
	assert.Equal(t, true, status["online"])
}

func TestUnknownTypeIsNotFound(t *testing.T) {
	app, _, _ := setupTestApp(t)

	resp, _ := request(t, app, "GET", "/entities/comments", nil)
	assert.Equal(t, 404, resp.StatusCode)
	resp, _ = request(t, app, "POST", "/sync/comments", nil)
	assert.Equal(t, 404, resp.StatusCode)
	resp, _ = request(t, app, "POST", "/entities/comments", map[string]any{"id": "1"})
	assert.Equal(t, 404, resp.StatusCode)
}

func TestCreateUpdateDelete(t *testing.T) {
	app, remote, _ := setupTestApp(t)

	resp, data := request(t, app, "POST", "/entities/posts", map[string]any{
		"id":     "1",
		"title":  "Hello",
		"author": map[string]any{"id": "7", "name": "Amy"},
	})
	require.Equal(t, 201, resp.StatusCode, string(data))
	stored, ok := remote.Get("posts", "1")
	require.True(t, ok)
	assert.Equal(t, "7", stored["author"])

	resp, data = request(t, app, "PATCH", "/entities/posts/1", map[string]any{"title": "Edited"})
	require.Equal(t, 200, resp.StatusCode, string(data))
	stored, _ = remote.Get("posts", "1")
	assert.Equal(t, "Edited", stored["title"])

	resp, _ = request(t, app, "DELETE", "/entities/posts/1", nil)
	require.Equal(t, 204, resp.StatusCode)
	_, ok = remote.Get("posts", "1")
	assert.False(t, ok)

	resp, _ = request(t, app, "GET", "/entities/posts/1", nil)
	assert.Equal(t, 404, resp.StatusCode)
}

func TestCreate_InvalidBody(t *testing.T) {
	app, _, _ := setupTestApp(t)

	req := httptest.NewRequest("POST", "/entities/posts", bytes.NewReader([]byte("{nope")))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestNormalizePreview(t *testing.T) {
	app, _, engine := setupTestApp(t)

	resp, data := request(t, app, "POST", "/entities/posts/normalize", []any{
		map[string]any{"id": "1", "author": map[string]any{"id": "7"}},
		map[string]any{"id": "2", "author": map[string]any{"id": "7"}},
	})
	require.Equal(t, 200, resp.StatusCode, string(data))

	var res normalize.Result
	require.NoError(t, json.Unmarshal(data, &res))
	assert.Equal(t, []any{"1", "2"}, res.Result)
	assert.Len(t, res.Entities["posts"], 2)
	assert.Zero(t, engine.Store().Snapshot().Len())
}

func TestOfflineQueueAndReplay(t *testing.T) {
	app, remote, _ := setupTestApp(t)

	resp, _ := request(t, app, "POST", "/sync/offline", nil)
	require.Equal(t, 200, resp.StatusCode)

	resp, _ = request(t, app, "POST", "/entities/users", map[string]any{"id": "7", "name": "Amy"})
	require.Equal(t, 201, resp.StatusCode)
	_, ok := remote.Get("users", "7")
	assert.False(t, ok)

	resp, data := request(t, app, "GET", "/sync/queue", nil)
	require.Equal(t, 200, resp.StatusCode)
	var queue []coresync.Operation
	require.NoError(t, json.Unmarshal(data, &queue))
	require.Len(t, queue, 1)
	assert.Equal(t, coresync.OpCreate, queue[0].Kind)

	resp, _ = request(t, app, "POST", "/sync/retry", nil)
	assert.Equal(t, 503, resp.StatusCode)

	resp, data = request(t, app, "POST", "/sync/online", nil)
	require.Equal(t, 200, resp.StatusCode, string(data))
	var replay coresync.ReplayResult
	require.NoError(t, json.Unmarshal(data, &replay))
	assert.Equal(t, 1, replay.Replayed)
	_, ok = remote.Get("users", "7")
	assert.True(t, ok)

	resp, data = request(t, app, "GET", "/sync/transactions", nil)
	require.Equal(t, 200, resp.StatusCode)
	var txs []coresync.Transaction
	require.NoError(t, json.Unmarshal(data, &txs))
	assert.NotEmpty(t, txs)
}

func TestConflictFlow(t *testing.T) {
	app, remote, _ := setupTestApp(t)
	remote.Put("posts", entity.Entity{"id": "1", "title": "base"})
	resp, _ := request(t, app, "POST", "/sync/posts", nil)
	require.Equal(t, 200, resp.StatusCode)

	remote.Put("posts", entity.Entity{"id": "1", "title": "theirs"})

	resp, data := request(t, app, "PATCH", "/entities/posts/1", map[string]any{"title": "mine"})
	require.Equal(t, 409, resp.StatusCode, string(data))
	var body struct {
		Error    string                 `json:"error"`
		Conflict *conflict.SyncConflict `json:"conflict"`
	}
	require.NoError(t, json.Unmarshal(data, &body))
	require.NotNil(t, body.Conflict)
	id := body.Conflict.ID

	resp, _ = request(t, app, "GET", "/conflicts/"+id, nil)
	assert.Equal(t, 200, resp.StatusCode)

	resp, _ = request(t, app, "POST", "/conflicts/"+id+"/resolve", map[string]any{"choice": "sideways"})
	assert.Equal(t, 400, resp.StatusCode)
	resp, _ = request(t, app, "POST", "/conflicts/"+id+"/resolve", map[string]any{"strategy": "manual"})
	assert.Equal(t, 422, resp.StatusCode)

	resp, data = request(t, app, "POST", "/conflicts/"+id+"/resolve", map[string]any{"strategy": "remote-wins"})
	require.Equal(t, 200, resp.StatusCode, string(data))

	resp, data = request(t, app, "GET", "/entities/posts/1?normalized=true", nil)
	require.Equal(t, 200, resp.StatusCode)
	var post map[string]any
	require.NoError(t, json.Unmarshal(data, &post))
	assert.Equal(t, "theirs", post["title"])

	resp, data = request(t, app, "GET", "/conflicts", nil)
	require.Equal(t, 200, resp.StatusCode)
	assert.JSONEq(t, "[]", string(data))

	resp, _ = request(t, app, "GET", "/conflicts/"+id, nil)
	assert.Equal(t, 404, resp.StatusCode)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"unknown type", fmt.Errorf("%w: comments", schema.ErrUnknownType), 404},
		{"missing conflict", coresync.ErrConflictNotFound, 404},
		{"validation", &normalize.ValidationError{Path: "posts", Reason: "bad"}, 400},
		{"bad strategy", &conflict.UnknownStrategyError{Strategy: "x"}, 400},
		{"version conflict", &coresync.ConflictError{Conflict: &conflict.SyncConflict{}, Err: source.ErrConflict}, 409},
		{"offline", coresync.ErrOffline, 503},
		{"retryable source", &coresync.SyncError{Retryable: true, Err: context.DeadlineExceeded}, 503},
		{"permanent source", &coresync.SyncError{Err: errors.New("rejected")}, 502},
		{"other", errors.New("boom"), 500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}
