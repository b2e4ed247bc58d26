package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/skp-companion/internal/credential"
)

const (
	localSessionToken = "session_token"
	localUserID       = "user_id"
	localUserRole     = "user_role"
)

// TokenSource yields the bearer token stored by a previous login.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Session resolves the bearer token of the request from the Authorization header or,
// failing that, the stored session. It never rejects a request; the token is only decoded
// to expose the caller's id and role to later handlers.
func Session(source TokenSource) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c.Get(fiber.HeaderAuthorization))
		if token == "" && source != nil {
			if stored, err := source.Token(c.UserContext()); err == nil {
				token = stored
			}
		}
		if token == "" {
			return c.Next()
		}

		c.Locals(localSessionToken, token)
		result := credential.Decode(token, time.Now())
		if result.Usable() {
			if profile, ok := result.Identity(); ok {
				c.Locals(localUserID, profile.ID)
			}
			if role := result.Role(); role != "" {
				c.Locals(localUserRole, role)
			}
		}

		return c.Next()
	}
}

// SessionToken returns the bearer token resolved for the request, if any.
func SessionToken(c *fiber.Ctx) string {
	if token, ok := c.Locals(localSessionToken).(string); ok {
		return token
	}
	return ""
}

// UserID returns the subject of a usable session token.
func UserID(c *fiber.Ctx) string {
	if id, ok := c.Locals(localUserID).(string); ok {
		return id
	}
	return ""
}

func bearerToken(authorization string) string {
	authorization = strings.TrimSpace(authorization)
	const bearer = "bearer "
	if len(authorization) < len(bearer) || !strings.EqualFold(authorization[:len(bearer)], bearer) {
		return ""
	}
	return strings.TrimSpace(authorization[len(bearer):])
}
