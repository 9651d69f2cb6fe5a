package handlerUtil

import (
	"SeedDetection/pkg/imaging"
	"SeedDetection/pkg/response"
	"SeedDetection/pkg/roboflow"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandle(t *testing.T) {
	t.Setenv("APP_ENV", "test")

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{
			name:       "response error keeps its status",
			err:        response.NewError(http.StatusBadRequest, "Invalid file type. Must be an image."),
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"error":"Invalid file type. Must be an image."}`,
		},
		{
			name:       "wrapped response error",
			err:        fmt.Errorf("%w Max size is 10MB.", response.NewError(http.StatusBadRequest, "Image too large.")),
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"error":"Image too large. Max size is 10MB."}`,
		},
		{
			name:       "decode error",
			err:        &imaging.DecodeError{Err: errors.New("image: unknown format")},
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"error":"cannot identify image file: image: unknown format"}`,
		},
		{
			name:       "remote service error",
			err:        fmt.Errorf("detect seeds: %w", &roboflow.RemoteServiceError{StatusCode: 503, Body: "model overloaded"}),
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"error":"detect seeds: Roboflow API error (status 503): model overloaded"}`,
		},
		{
			name:       "transport error",
			err:        &roboflow.TransportError{Err: context.DeadlineExceeded},
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"error":"Roboflow request failed: context deadline exceeded"}`,
		},
		{
			name:       "unexpected error",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"error":"boom"}`,
		},
	}

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	h := New(logger)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/", func(c *fiber.Ctx) error {
				return h.Handle(c, "req-1", tt.err, c.Path(), "test")
			})

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			body, _ := io.ReadAll(resp.Body)
			assert.JSONEq(t, tt.wantBody, string(body))
		})
	}
}

func TestHandleSuccess(t *testing.T) {
	h := New(logrus.New())

	app := fiber.New()
	app.Get("/data", func(c *fiber.Ctx) error {
		return h.HandleSuccess(c, fiber.StatusOK, fiber.Map{"ok": true})
	})
	app.Get("/empty", func(c *fiber.Ctx) error {
		return h.HandleSuccess(c, fiber.StatusNoContent, nil)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/data", nil))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, `{"ok":true}`, string(body))

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/empty", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}
