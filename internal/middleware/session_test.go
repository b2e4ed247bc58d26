package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

type staticTokens string

func (s staticTokens) Token(context.Context) (string, error) {
	return string(s), nil
}

func sign(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("remote"))
	require.NoError(t, err)
	return token
}

func sessionApp(source TokenSource) *fiber.App {
	app := fiber.New()
	app.Use(CorrelationID())
	app.Use(Session(source))
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"token":       SessionToken(c),
			"user_id":     UserID(c),
			"role":        c.Locals(localUserRole),
			"correlation": GetCorrelationID(c),
		})
	})
	return app
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestSessionPrefersAuthorizationHeader(t *testing.T) {
	headerToken := sign(t, jwt.MapClaims{"sub": "7", "role": "Admin", "exp": time.Now().Add(time.Hour).Unix()})
	stored := sign(t, jwt.MapClaims{"sub": "8"})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "bearer "+headerToken)
	req.Header.Set("X-Request-ID", "req-1")
	resp, err := sessionApp(staticTokens(stored)).Test(req)
	require.NoError(t, err)
	require.Equal(t, "req-1", resp.Header.Get("X-Correlation-ID"))

	body := decodeBody(t, resp)
	require.Equal(t, headerToken, body["token"])
	require.Equal(t, "7", body["user_id"])
	require.Equal(t, "admin", body["role"])
	require.Equal(t, "req-1", body["correlation"])
}

func TestSessionFallsBackToStoredToken(t *testing.T) {
	stored := sign(t, jwt.MapClaims{"sub": "8", "role": "student"})

	resp, err := sessionApp(staticTokens(stored)).Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)

	body := decodeBody(t, resp)
	require.Equal(t, stored, body["token"])
	require.Equal(t, "8", body["user_id"])
	require.NotEmpty(t, body["correlation"])
}

func TestSessionIgnoresExpiredIdentity(t *testing.T) {
	expired := sign(t, jwt.MapClaims{"sub": "9", "exp": time.Now().Add(-time.Hour).Unix()})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+expired)
	resp, err := sessionApp(nil).Test(req)
	require.NoError(t, err)

	body := decodeBody(t, resp)
	require.Equal(t, expired, body["token"])
	require.Equal(t, "", body["user_id"])
}
