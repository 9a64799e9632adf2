package middleware_test

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/farrukhll0/pigeon-management-system/internal/middleware"
	"github.com/farrukhll0/pigeon-management-system/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubVerifier struct {
	userID string
	err    error
	got    string
}

func (s *stubVerifier) Verify(token string) (string, error) {
	s.got = token
	return s.userID, s.err
}

func newTestApp(v middleware.TokenVerifier) *fiber.App {
	app := fiber.New()
	app.Get("/private", middleware.AuthRequired(v), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"userId": middleware.UserID(c)})
	})
	return app
}

func doRequest(t *testing.T, app *fiber.App, header string) (int, map[string]string) {
	t.Helper()
	req := httptest.NewRequest("GET", "/private", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	body := map[string]string{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestAuthRequired(t *testing.T) {
	t.Run("missing header", func(t *testing.T) {
		status, body := doRequest(t, newTestApp(&stubVerifier{}), "")
		assert.Equal(t, fiber.StatusUnauthorized, status)
		assert.Equal(t, "Access denied. No token provided.", body["message"])
	})

	t.Run("wrong scheme", func(t *testing.T) {
		status, body := doRequest(t, newTestApp(&stubVerifier{}), "Basic abc")
		assert.Equal(t, fiber.StatusUnauthorized, status)
		assert.Equal(t, "Authorization header format must be 'Bearer <token>'", body["message"])
	})

	t.Run("bearer without token", func(t *testing.T) {
		status, body := doRequest(t, newTestApp(&stubVerifier{}), "Bearer ")
		assert.Equal(t, fiber.StatusUnauthorized, status)
		assert.Equal(t, "Authorization header format must be 'Bearer <token>'", body["message"])
	})

	t.Run("expired token", func(t *testing.T) {
		v := &stubVerifier{err: services.ErrExpiredToken}
		status, body := doRequest(t, newTestApp(v), "Bearer old")
		assert.Equal(t, fiber.StatusUnauthorized, status)
		assert.Equal(t, "Token expired", body["message"])
	})

	t.Run("invalid token", func(t *testing.T) {
		v := &stubVerifier{err: services.ErrInvalidToken}
		status, body := doRequest(t, newTestApp(v), "Bearer junk")
		assert.Equal(t, fiber.StatusUnauthorized, status)
		assert.Equal(t, "Invalid token", body["message"])
	})

	t.Run("valid token", func(t *testing.T) {
		v := &stubVerifier{userID: "user-1"}
		status, body := doRequest(t, newTestApp(v), "Bearer good")
		assert.Equal(t, fiber.StatusOK, status)
		assert.Equal(t, "user-1", body["userId"])
		assert.Equal(t, "good", v.got)
	})
}

func TestAuthRequired_RealTokens(t *testing.T) {
	tokens, err := services.NewTokenService("middleware-test-secret", 0)
	require.NoError(t, err)
	token, err := tokens.Issue("user-42")
	require.NoError(t, err)

	status, body := doRequest(t, newTestApp(tokens), "Bearer "+token)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "user-42", body["userId"])
}
