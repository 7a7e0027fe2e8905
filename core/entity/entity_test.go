package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntities_SetGetDelete(t *testing.T) {
	es := Entities{}
	es.Set("posts", "1", Entity{"id": "1"})

	got, ok := es.Get("posts", "1")
	require.True(t, ok)
	assert.Equal(t, "1", got["id"])

	_, ok = es.Get("users", "1")
	assert.False(t, ok)

	assert.True(t, es.Delete("posts", "1"))
	assert.False(t, es.Delete("posts", "1"))
	assert.Equal(t, 0, es.Len())
}

func TestEntities_CloneIsDeep(t *testing.T) {
	es := Entities{"posts": {"1": {"id": "1", "meta": map[string]any{"tags": []any{"a"}}}}}
	cp := es.Clone()

	cp["posts"]["1"]["meta"].(map[string]any)["tags"].([]any)[0] = "b"
	cp["posts"]["2"] = Entity{"id": "2"}

	assert.Equal(t, "a", es["posts"]["1"]["meta"].(map[string]any)["tags"].([]any)[0])
	assert.Len(t, es["posts"], 1)
}

func TestEntities_SortedAccessors(t *testing.T) {
	es := Entities{
		"users": {"b": {}, "a": {}},
		"posts": {"2": {}, "1": {}},
	}
	assert.Equal(t, []string{"posts", "users"}, es.Types())
	assert.Equal(t, []string{"a", "b"}, es.IDs("users"))
	assert.Empty(t, es.IDs("comments"))
}

func TestMergeDeep(t *testing.T) {
	dst := map[string]any{
		"title": "old",
		"meta":  map[string]any{"views": 1, "tags": []any{"x"}},
	}
	src := map[string]any{
		"meta": map[string]any{"tags": []any{"y"}, "likes": 2},
		"body": "text",
	}

	merged := MergeDeep(dst, src)

	assert.Equal(t, "old", merged["title"])
	assert.Equal(t, "text", merged["body"])
	meta := merged["meta"].(map[string]any)
	assert.Equal(t, 1, meta["views"])
	assert.Equal(t, 2, meta["likes"])
	assert.Equal(t, []any{"y"}, meta["tags"])

	// inputs untouched
	assert.Equal(t, []any{"x"}, dst["meta"].(map[string]any)["tags"])
	assert.NotContains(t, dst, "body")
}
