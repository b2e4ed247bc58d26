// Package remote talks to the SKP web service that owns activity claims, catalogs and
// profiles.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/skp-companion/internal/observability"
)

const maxResponseBytes = 4 << 20

// Config bundles the settings required to build a Client.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// Client issues authenticated requests against the remote service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

// Request describes one call. JSON takes precedence over Body.
type Request struct {
	Method      string
	Path        string
	Token       string
	JSON        interface{}
	Body        io.Reader
	ContentType string
	Header      http.Header
}

// Response is a fully read 2xx response.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// NewClient constructs a remote client.
func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("remote base url must be provided")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     cfg.Logger.With().Str("component", "remote_client").Logger(),
	}, nil
}

// BaseURL returns the configured service root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Resolve turns a service relative path into an absolute URL.
func (c *Client) Resolve(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL + path
}

// Do performs the request. Non-2xx answers are returned as *APIError.
func (c *Client) Do(ctx context.Context, req Request) (Response, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	body := req.Body
	contentType := req.ContentType
	if req.JSON != nil {
		payload, err := json.Marshal(req.JSON)
		if err != nil {
			return Response{}, fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(payload)
		contentType = "application/json"
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.Resolve(req.Path), body)
	if err != nil {
		return Response{}, err
	}
	for key, values := range req.Header {
		for _, value := range values {
			httpReq.Header.Add(key, value)
		}
	}
	httpReq.Header.Set("Accept", "application/json, text/plain;q=0.9")
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if token := strings.TrimSpace(req.Token); token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	response, err := c.httpClient.Do(httpReq)
	if err != nil {
		observability.RemoteRequests().WithLabelValues(method, req.Path, "error").Inc()
		c.logger.Debug().Err(err).Str("method", method).Str("path", req.Path).Msg("remote request failed")
		return Response{}, &NetworkError{Method: method, Path: req.Path, Err: err}
	}
	defer response.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(response.Body, maxResponseBytes))
	if err != nil {
		return Response{}, &NetworkError{Method: method, Path: req.Path, Err: err}
	}

	observability.RemoteRequests().WithLabelValues(method, req.Path, strconv.Itoa(response.StatusCode)).Inc()
	observability.RemoteLatency().WithLabelValues(method).Observe(time.Since(start).Seconds())
	c.logger.Debug().
		Str("method", method).
		Str("path", req.Path).
		Int("status", response.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("remote request completed")

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return Response{}, newAPIError(method, req.Path, response.StatusCode, response.Header.Get("Content-Type"), payload)
	}

	return Response{Status: response.StatusCode, Header: response.Header, Body: payload}, nil
}

// IsJSON reports whether the response declared a JSON content type.
func (r Response) IsJSON() bool {
	return isJSONContentType(r.Header.Get("Content-Type"))
}

// Decode unmarshals the body into v, unwrapping a {"data": ...} envelope when present.
func (r Response) Decode(v interface{}) error {
	if !r.IsJSON() {
		return fmt.Errorf("remote response is %q, not json", r.Header.Get("Content-Type"))
	}
	return decodeEnvelope(r.Body, v)
}

func decodeEnvelope(body []byte, v interface{}) error {
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && len(envelope.Data) > 0 && string(envelope.Data) != "null" {
		return json.Unmarshal(envelope.Data, v)
	}
	return json.Unmarshal(body, v)
}

func isJSONContentType(value string) bool {
	mediaType, _, err := mime.ParseMediaType(value)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}
