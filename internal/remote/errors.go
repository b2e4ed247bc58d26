package remote

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const maxErrorMessage = 200

// APIError is a non-2xx answer from the remote service.
type APIError struct {
	Method  string
	Path    string
	Status  int
	Message string
}

func newAPIError(method, path string, status int, contentType string, body []byte) *APIError {
	return &APIError{
		Method:  method,
		Path:    path,
		Status:  status,
		Message: errorMessage(contentType, body, status),
	}
}

func (e *APIError) Error() string {
	return fmt.Sprintf("remote %s %s responded %d: %s", e.Method, e.Path, e.Status, e.Message)
}

// NetworkError wraps transport failures where no response was observed.
type NetworkError struct {
	Method string
	Path   string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("remote %s %s unreachable: %v", e.Method, e.Path, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// errorMessage only parses the body as JSON when the server says it is JSON; plain-text
// error pages are common on this service.
func errorMessage(contentType string, body []byte, status int) string {
	if isJSONContentType(contentType) {
		var payload map[string]interface{}
		if err := json.Unmarshal(body, &payload); err == nil {
			for _, key := range []string{"message", "error", "detail"} {
				if value, ok := payload[key].(string); ok && strings.TrimSpace(value) != "" {
					return truncate(strings.TrimSpace(value))
				}
			}
		}
	}

	text := strings.TrimSpace(string(body))
	if text == "" || strings.HasPrefix(text, "<") {
		return http.StatusText(status)
	}
	return truncate(text)
}

func truncate(value string) string {
	if len(value) <= maxErrorMessage {
		return value
	}
	return value[:maxErrorMessage] + "..."
}

// FailureClass groups remote failures by how the caller should react.
type FailureClass string

const (
	FailureNone           FailureClass = ""
	FailureAuthentication FailureClass = "authentication"
	FailureMaintenance    FailureClass = "maintenance"
	FailurePermanent      FailureClass = "permanent"
	FailureTransient      FailureClass = "transient"
)

// Classify maps an error returned by this package onto a FailureClass. A probe is
// "maintenance" only when every candidate answered 404.
func Classify(err error) FailureClass {
	if err == nil {
		return FailureNone
	}

	var probe *ProbeError
	if errors.As(err, &probe) {
		if len(probe.Errors) > 0 && probe.All(func(e error) bool { return StatusOf(e) == http.StatusNotFound }) {
			return FailureMaintenance
		}
		if probe.Any(func(e error) bool { return StatusOf(e) == http.StatusUnauthorized }) {
			return FailureAuthentication
		}
		if last := probe.Last(); last != nil {
			return Classify(last)
		}
		return FailureTransient
	}

	status := StatusOf(err)
	switch {
	case status == http.StatusUnauthorized:
		return FailureAuthentication
	case status == http.StatusNotFound:
		return FailureMaintenance
	case status >= 400 && status < 500:
		return FailurePermanent
	default:
		return FailureTransient
	}
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}
