package remote

import (
	"context"
	"net/http"
	"net/url"

	"github.com/noah-isme/skp-companion/internal/models"
)

// Catalog wraps the admin-scoped endpoints: activity types, competencies, users and
// submission review.
type Catalog struct {
	client *Client
	prefix string
}

// NewCatalog constructs a catalog client rooted at the admin prefix.
func NewCatalog(client *Client, adminPrefix string) *Catalog {
	if adminPrefix == "" {
		adminPrefix = "/api/admin"
	}
	return &Catalog{client: client, prefix: adminPrefix}
}

func (c *Catalog) path(parts ...string) string {
	result := c.prefix
	for _, part := range parts {
		result += "/" + url.PathEscape(part)
	}
	return result
}

func (c *Catalog) ListActivityTypes(ctx context.Context, token string) ([]models.ActivityType, error) {
	var items []models.ActivityType
	err := c.call(ctx, http.MethodGet, c.prefix+"/activity-info", token, nil, &items)
	return items, err
}

func (c *Catalog) CreateActivityType(ctx context.Context, token string, payload interface{}) (models.ActivityType, error) {
	var item models.ActivityType
	err := c.call(ctx, http.MethodPost, c.prefix+"/activity-info", token, payload, &item)
	return item, err
}

func (c *Catalog) UpdateActivityType(ctx context.Context, token, id string, payload interface{}) (models.ActivityType, error) {
	var item models.ActivityType
	err := c.call(ctx, http.MethodPut, c.path("activity-info", id), token, payload, &item)
	return item, err
}

func (c *Catalog) DeleteActivityType(ctx context.Context, token, id string) error {
	return c.call(ctx, http.MethodDelete, c.path("activity-info", id), token, nil, nil)
}

func (c *Catalog) ListCompetencies(ctx context.Context, token string) ([]models.Competency, error) {
	var items []models.Competency
	err := c.call(ctx, http.MethodGet, c.prefix+"/competencies", token, nil, &items)
	return items, err
}

func (c *Catalog) CreateCompetency(ctx context.Context, token string, payload interface{}) (models.Competency, error) {
	var item models.Competency
	err := c.call(ctx, http.MethodPost, c.prefix+"/competencies", token, payload, &item)
	return item, err
}

func (c *Catalog) UpdateCompetency(ctx context.Context, token, id string, payload interface{}) (models.Competency, error) {
	var item models.Competency
	err := c.call(ctx, http.MethodPut, c.path("competencies", id), token, payload, &item)
	return item, err
}

func (c *Catalog) DeleteCompetency(ctx context.Context, token, id string) error {
	return c.call(ctx, http.MethodDelete, c.path("competencies", id), token, nil, nil)
}

func (c *Catalog) ListUsers(ctx context.Context, token string) ([]models.RemoteUser, error) {
	var users []models.RemoteUser
	err := c.call(ctx, http.MethodGet, c.prefix+"/users", token, nil, &users)
	return users, err
}

// ReviewSubmission approves or rejects a submission; decision is "approve" or "reject".
func (c *Catalog) ReviewSubmission(ctx context.Context, token, id, decision string, payload interface{}) error {
	return c.call(ctx, http.MethodPost, c.path("submissions", id, decision), token, payload, nil)
}

func (c *Catalog) call(ctx context.Context, method, path, token string, payload, out interface{}) error {
	response, err := c.client.Do(ctx, Request{Method: method, Path: path, Token: token, JSON: payload})
	if err != nil {
		return err
	}
	if out == nil || len(response.Body) == 0 {
		return nil
	}
	return response.Decode(out)
}
