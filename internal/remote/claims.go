package remote

import (
	"context"
	"errors"
	"net/http"
)

// ClaimRoute lists where activity claims may be created. Fallbacks are only tried when
// the primary endpoint answered 404.
type ClaimRoute struct {
	Primary   string
	Fallbacks []string
}

// ClaimPayload is one request-body shape, tried in order.
type ClaimPayload struct {
	Shape string
	Body  interface{}
}

// ClaimReceipt describes the attempt that the remote service accepted.
type ClaimReceipt struct {
	Path     string `json:"path"`
	Shape    string `json:"shape"`
	Status   int    `json:"status"`
	RemoteID string `json:"remote_id,omitempty"`
}

type claimAttempt struct {
	path    string
	payload ClaimPayload
}

// SubmitClaim posts every payload shape to the primary endpoint and, if that endpoint
// does not exist, to each fallback. The first 2xx answer wins. idempotencyKey is sent as
// the Idempotency-Key header when set.
func (c *Client) SubmitClaim(ctx context.Context, token string, route ClaimRoute, payloads []ClaimPayload, idempotencyKey string) (ClaimReceipt, error) {
	attempt := func(ctx context.Context, a claimAttempt) (ClaimReceipt, error) {
		header := http.Header{}
		if idempotencyKey != "" {
			header.Set("Idempotency-Key", idempotencyKey)
		}

		response, err := c.Do(ctx, Request{
			Method: http.MethodPost,
			Path:   a.path,
			Token:  token,
			JSON:   a.payload.Body,
			Header: header,
		})
		if err != nil {
			return ClaimReceipt{}, err
		}

		receipt := ClaimReceipt{Path: a.path, Shape: a.payload.Shape, Status: response.Status}
		if response.IsJSON() {
			var created map[string]interface{}
			if err := decodeEnvelope(response.Body, &created); err == nil {
				receipt.RemoteID = stringField(created, "id", "submission_id")
			}
		}
		return receipt, nil
	}

	receipt, err := FirstSuccess(ctx, claimAttempts([]string{route.Primary}, payloads), attempt)
	if err == nil {
		return receipt, nil
	}

	var primary *ProbeError
	if !errors.As(err, &primary) || len(route.Fallbacks) == 0 || !primary.Any(isNotFound) {
		return ClaimReceipt{}, err
	}

	receipt, err = FirstSuccess(ctx, claimAttempts(route.Fallbacks, payloads), attempt)
	if err == nil {
		return receipt, nil
	}

	combined := &ProbeError{Errors: append([]error(nil), primary.Errors...)}
	var fallback *ProbeError
	if errors.As(err, &fallback) {
		combined.Errors = append(combined.Errors, fallback.Errors...)
	} else {
		combined.Errors = append(combined.Errors, err)
	}
	return ClaimReceipt{}, combined
}

func claimAttempts(paths []string, payloads []ClaimPayload) []claimAttempt {
	attempts := make([]claimAttempt, 0, len(paths)*len(payloads))
	for _, path := range paths {
		if path == "" {
			continue
		}
		for _, payload := range payloads {
			attempts = append(attempts, claimAttempt{path: path, payload: payload})
		}
	}
	return attempts
}

func isNotFound(err error) bool {
	return StatusOf(err) == http.StatusNotFound
}
