package auth

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	app := fiber.New()
	app.Use(New(Config{ApiKey: "secret", Public: []string{"/health"}}))
	ok := func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) }
	app.Get("/health", ok)
	app.Get("/entities", ok)

	tests := []struct {
		name   string
		path   string
		header string
		value  string
		want   int
	}{
		{"missing key", "/entities", "", "", fiber.StatusUnauthorized},
		{"wrong key", "/entities", "X-API-Key", "nope", fiber.StatusUnauthorized},
		{"api key header", "/entities", "X-API-Key", "secret", fiber.StatusOK},
		{"bearer token", "/entities", "Authorization", "Bearer secret", fiber.StatusOK},
		{"public path", "/health", "", "", fiber.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.path, nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestNew_DisabledWithoutKey(t *testing.T) {
	app := fiber.New()
	app.Use(New(Config{}))
	app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}
