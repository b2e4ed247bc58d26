package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/noah-isme/skp-companion/internal/models"
)

// FetchProfile asks each endpoint in order for the signed-in student's profile and
// returns the first answer that carries an id.
func (c *Client) FetchProfile(ctx context.Context, token string, endpoints []string) (models.Profile, error) {
	return FirstSuccess(ctx, endpoints, func(ctx context.Context, path string) (models.Profile, error) {
		response, err := c.Do(ctx, Request{Method: http.MethodGet, Path: path, Token: token})
		if err != nil {
			return models.Profile{}, err
		}
		return decodeProfile(path, response)
	})
}

// UpdateProfile sends the editable profile fields to path.
func (c *Client) UpdateProfile(ctx context.Context, token, path string, payload interface{}) (models.Profile, error) {
	response, err := c.Do(ctx, Request{Method: http.MethodPut, Path: path, Token: token, JSON: payload})
	if err != nil {
		return models.Profile{}, err
	}
	return decodeProfile(path, response)
}

func decodeProfile(path string, response Response) (models.Profile, error) {
	if !response.IsJSON() {
		return models.Profile{}, fmt.Errorf("%s: profile response is not json", path)
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(response.Body, &payload); err != nil {
		return models.Profile{}, fmt.Errorf("%s: decode profile: %w", path, err)
	}

	for _, key := range []string{"data", "user", "student", "profile"} {
		if nested, ok := payload[key].(map[string]interface{}); ok {
			payload = nested
		}
	}

	profile := models.Profile{
		ID:    stringField(payload, "id", "user_id", "userId"),
		Name:  stringField(payload, "name", "full_name", "fullName", "username"),
		NIM:   stringField(payload, "nim", "student_id", "studentId"),
		Email: stringField(payload, "email"),
	}
	if profile.ID == "" {
		return models.Profile{}, fmt.Errorf("%s: profile response carried no id", path)
	}
	return profile, nil
}

func stringField(payload map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		switch v := payload[key].(type) {
		case string:
			if trimmed := strings.TrimSpace(v); trimmed != "" {
				return trimmed
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}
