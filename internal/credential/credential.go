// Package credential inspects bearer tokens issued by the remote SKP service.
//
// Tokens are never verified here: the remote service owns the signing key. Decoding only
// answers whether a token is worth sending and who it most likely belongs to.
package credential

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/skp-companion/internal/models"
)

// Status tags the outcome of decoding a bearer token.
type Status string

const (
	StatusValid     Status = "valid"
	StatusMissing   Status = "missing"
	StatusMalformed Status = "malformed"
	StatusExpired   Status = "expired"
)

// Result is the tagged outcome of Decode.
type Result struct {
	Status    Status
	Token     string
	Claims    jwt.MapClaims
	ExpiresAt *time.Time
	Err       error
}

// Usable reports whether the token may be attached to remote requests.
func (r Result) Usable() bool {
	return r.Status == StatusValid
}

var parser = jwt.NewParser(jwt.WithPaddingAllowed())

// Decode splits and decodes the token payload without verifying its signature.
// The header is not inspected, so tokens with an unknown or missing alg still decode.
// Expiry is evaluated against now when the payload carries an exp claim.
func Decode(token string, now time.Time) Result {
	token = strings.TrimSpace(token)
	if token == "" {
		return Result{Status: StatusMissing, Err: fmt.Errorf("token is empty")}
	}

	segments := strings.Split(token, ".")
	if len(segments) != 3 {
		return Result{Status: StatusMalformed, Token: token, Err: fmt.Errorf("token must have three segments")}
	}

	payload, err := parser.DecodeSegment(segments[1])
	if err != nil {
		return Result{Status: StatusMalformed, Token: token, Err: fmt.Errorf("decode token payload: %w", err)}
	}
	claims := jwt.MapClaims{}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return Result{Status: StatusMalformed, Token: token, Err: fmt.Errorf("decode token claims: %w", err)}
	}

	result := Result{Status: StatusValid, Token: token, Claims: claims}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return Result{Status: StatusMalformed, Token: token, Claims: claims, Err: err}
	}
	if exp != nil {
		expiresAt := exp.Time
		result.ExpiresAt = &expiresAt
		if expiresAt.Before(now) {
			result.Status = StatusExpired
			result.Err = fmt.Errorf("token expired at %s", expiresAt.UTC().Format(time.RFC3339))
		}
	}

	return result
}

// Identity derives a best-effort profile from the decoded claims. ok is false when the
// claims carry no usable subject.
func (r Result) Identity() (models.Profile, bool) {
	if r.Claims == nil {
		return models.Profile{}, false
	}

	profile := models.Profile{
		ID:    firstString(r.Claims, "sub", "user_id", "id", "userId"),
		Name:  firstString(r.Claims, "name", "full_name", "fullName", "username"),
		NIM:   firstString(r.Claims, "nim", "student_id", "studentId"),
		Email: firstString(r.Claims, "email"),
	}
	if profile.ID == "" {
		return models.Profile{}, false
	}
	if profile.Name == "" {
		profile.Name = profile.Email
	}

	return profile, true
}

// Role returns the lower-cased role claim, if any.
func (r Result) Role() string {
	for _, key := range []string{"role", "roles"} {
		if value, ok := r.Claims[key]; ok {
			if role := normalizeRole(value); role != "" {
				return role
			}
		}
	}
	return ""
}

func firstString(claims jwt.MapClaims, keys ...string) string {
	for _, key := range keys {
		value, ok := claims[key]
		if !ok {
			continue
		}
		switch v := value.(type) {
		case string:
			if trimmed := strings.TrimSpace(v); trimmed != "" {
				return trimmed
			}
		case float64:
			if v >= 0 {
				return strconv.FormatFloat(v, 'f', -1, 64)
			}
		}
	}
	return ""
}

func normalizeRole(value interface{}) string {
	switch v := value.(type) {
	case string:
		return strings.ToLower(strings.TrimSpace(v))
	case []interface{}:
		for _, item := range v {
			if str, ok := item.(string); ok {
				role := strings.ToLower(strings.TrimSpace(str))
				if role != "" {
					return role
				}
			}
		}
	}
	return ""
}
