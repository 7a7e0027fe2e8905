package server_test

import (
	"testing"

	"entity-sync/core/server"

	"github.com/stretchr/testify/assert"
)

func TestConfig_Addr(t *testing.T) {
	assert.Equal(t, ":8080", server.Config{Port: "8080"}.Addr())
}

func TestConfig_Public(t *testing.T) {
	tests := []struct {
		name  string
		paths string
		want  []string
	}{
		{"Single", "/health", []string{"/health"}},
		{"List", "/health, /metrics ,", []string{"/health", "/metrics"}},
		{"Empty", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := server.Config{PublicPaths: tt.paths}
			assert.Equal(t, tt.want, c.Public())
		})
	}
}
