package middleware

import (
	contextPkg "SeedDetection/pkg/context"
	"SeedDetection/pkg/utils"
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMiddleware(cfg Config) (Middleware, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	logger := logrus.New()
	logger.SetOutput(buf)
	logger.SetFormatter(&logrus.JSONFormatter{})
	return New(logger, utils.New(0), cfg), buf
}

func TestRequestIDMiddleware(t *testing.T) {
	m, _ := newTestMiddleware(DefaultConfig)

	app := fiber.New()
	app.Use(m.NewRequestIDMiddleware())
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(m.GetRequestID(c) + "|" + contextPkg.GetRequestID(c.UserContext()))
	})

	t.Run("generates ulid", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
		require.NoError(t, err)

		id := resp.Header.Get(RequestIDKey)
		_, err = ulid.Parse(id)
		require.NoError(t, err)

		body, _ := io.ReadAll(resp.Body)
		assert.Equal(t, id+"|"+id, string(body))
	})

	t.Run("keeps caller id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDKey, "trace-123")

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, "trace-123", resp.Header.Get(RequestIDKey))

		body, _ := io.ReadAll(resp.Body)
		assert.Equal(t, "trace-123|trace-123", string(body))
	})
}

func TestGetRequestIDWithoutMiddleware(t *testing.T) {
	m, _ := newTestMiddleware(DefaultConfig)

	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(m.GetRequestID(c))
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "unknown", string(body))
}

func TestRateLimiter(t *testing.T) {
	m, _ := newTestMiddleware(Config{RequestsPerSecond: 0.001, Burst: 2})

	app := fiber.New()
	app.Get("/", m.NewRateLimiter, func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	for i := 0; i < 2; i++ {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	}

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, `{"error":"Too many requests"}`, string(body))
}

func TestRateLimiterSweepsIdleClients(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r := newRateLimiter(1, 1)
	r.now = func() time.Time { return now }

	r.GetLimiterFrom("10.0.0.1")
	r.GetLimiterFrom("10.0.0.2")
	assert.Equal(t, 2, r.size())

	now = now.Add(limiterIdleTTL / 2)
	first := r.GetLimiterFrom("10.0.0.1")

	now = now.Add(limiterIdleTTL/2 + time.Second)
	assert.Same(t, first, r.GetLimiterFrom("10.0.0.1"))
	assert.Equal(t, 1, r.size())
}

func TestLoggingMiddleware(t *testing.T) {
	m, buf := newTestMiddleware(DefaultConfig)

	app := fiber.New()
	app.Use(m.NewRequestIDMiddleware(), m.NewLoggingMiddleware())
	app.Get("/ok", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	app.Get("/missing", func(c *fiber.Ctx) error {
		return fiber.ErrNotFound
	})

	_, err := app.Test(httptest.NewRequest(http.MethodGet, "/ok", nil))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"msg":"Success"`)
	assert.Contains(t, buf.String(), `"path":"/ok"`)

	buf.Reset()
	_, err = app.Test(httptest.NewRequest(http.MethodGet, "/missing", nil))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"msg":"Client error"`)
	assert.Contains(t, buf.String(), `"status":404`)
}
