package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const blogSchema = `
entities:
  users:
    id: id
  posts:
    id: id
    relations:
      author: {type: users}
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	RootCmd.SetOut(&out)
	RootCmd.SetArgs(args)
	t.Cleanup(func() {
		RootCmd.SetOut(nil)
		RootCmd.SetArgs(nil)
	})
	err := RootCmd.Execute()
	return out.String(), err
}

func TestNormalizeCommand(t *testing.T) {
	dir := t.TempDir()
	schemaFile := writeFile(t, dir, "schema.yaml", blogSchema)
	payload := writeFile(t, dir, "post.json", `{"id":"1","author":{"id":"7","name":"Amy"}}`)

	out, err := run(t, "normalize", "posts", payload, "--schema", schemaFile)
	require.NoError(t, err)

	var res struct {
		Entities map[string]map[string]map[string]any `json:"entities"`
		Result   any                                  `json:"result"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "1", res.Result)
	assert.Equal(t, "7", res.Entities["posts"]["1"]["author"])
	assert.Equal(t, "Amy", res.Entities["users"]["7"]["name"])
}

func TestNormalizeCommand_UnknownType(t *testing.T) {
	dir := t.TempDir()
	schemaFile := writeFile(t, dir, "schema.yaml", blogSchema)
	payload := writeFile(t, dir, "post.json", `{"id":"1"}`)

	_, err := run(t, "normalize", "comments", payload, "--schema", schemaFile)
	assert.Error(t, err)
}

func TestDriftCommand(t *testing.T) {
	dir := t.TempDir()
	before := writeFile(t, dir, "before.json", `{"posts":{"1":{"id":"1","title":"X"}}}`)
	after := writeFile(t, dir, "after.json", `{"entities":{"posts":{"1":{"id":"1","title":"Y"}}}}`)

	out, err := run(t, "drift", before, after)
	require.Error(t, err)

	var res struct {
		HasDrift    bool `json:"has_drift"`
		Differences []struct {
			Path string `json:"path"`
			Kind string `json:"kind"`
		} `json:"differences"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.True(t, res.HasDrift)
	require.Len(t, res.Differences, 1)
	assert.Equal(t, "posts.1.title", res.Differences[0].Path)
	assert.Equal(t, "changed", res.Differences[0].Kind)
}

func TestDriftCommand_NoDrift(t *testing.T) {
	dir := t.TempDir()
	same := writeFile(t, dir, "state.json", `{"posts":{"1":{"id":"1","title":"X"}}}`)

	_, err := run(t, "drift", same, same)
	assert.NoError(t, err)
}
