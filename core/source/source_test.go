package source

import (
	"errors"
	"fmt"
	"testing"

	"entity-sync/core/entity"

	"github.com/stretchr/testify/assert"
)

func TestConfig_Backends(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want []string
	}{
		{"primary only", Config{Primary: "database"}, []string{"database"}},
		{"with secondaries", Config{Primary: "http", Secondary: "database, Storage"}, []string{"http", "database", "storage"}},
		{"repeats dropped", Config{Primary: "memory", Secondary: "memory,,database"}, []string{"memory", "database"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.Backends())
		})
	}
}

type permanentErr struct{ permanent bool }

func (e permanentErr) Error() string   { return "status" }
func (e permanentErr) Permanent() bool { return e.permanent }

func TestIsPermanent(t *testing.T) {
	assert.True(t, IsPermanent(ErrNotFound))
	assert.True(t, IsPermanent(fmt.Errorf("wrapped: %w", permanentErr{permanent: true})))
	assert.False(t, IsPermanent(permanentErr{}))
	assert.False(t, IsPermanent(errors.New("network")))
	assert.False(t, IsPermanent(nil))
}

func TestConflictError_Is(t *testing.T) {
	err := fmt.Errorf("push: %w", &ConflictError{EntityType: "posts", EntityID: "1", BaseVersion: 1, RemoteVersion: 2})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestMatches(t *testing.T) {
	e := entity.Entity{"id": "1", "status": "draft", "views": 3}
	assert.True(t, Matches(e, nil))
	assert.True(t, Matches(e, map[string]string{"status": "draft", "views": "3"}))
	assert.False(t, Matches(e, map[string]string{"status": "live"}))
	assert.False(t, Matches(e, map[string]string{"missing": "x"}))
}
