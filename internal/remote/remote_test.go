package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type recordedCall struct {
	Method string
	Path   string
	Auth   string
	Key    string
	Body   string
}

type fakeService struct {
	mu      sync.Mutex
	calls   []recordedCall
	handler func(w http.ResponseWriter, r *http.Request, body string)
}

func (f *fakeService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.calls = append(f.calls, recordedCall{
		Method: r.Method,
		Path:   r.URL.Path,
		Auth:   r.Header.Get("Authorization"),
		Key:    r.Header.Get("Idempotency-Key"),
		Body:   string(raw),
	})
	f.mu.Unlock()
	f.handler(w, r, string(raw))
}

func (f *fakeService) paths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := make([]string, 0, len(f.calls))
	for _, call := range f.calls {
		result = append(result, call.Path)
	}
	return result
}

func newTestClient(t *testing.T, handler func(w http.ResponseWriter, r *http.Request, body string)) (*Client, *fakeService) {
	t.Helper()
	fake := &fakeService{handler: handler}
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	client, err := NewClient(Config{BaseURL: server.URL + "/", Logger: zerolog.Nop()})
	require.NoError(t, err)
	return client, fake
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func TestDoReturnsAPIErrorFromJSONAndText(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request, _ string) {
		switch r.URL.Path {
		case "/json":
			writeJSON(w, http.StatusForbidden, map[string]string{"message": "not your submission"})
		case "/text":
			w.Header().Set("Content-Type", "text/plain")
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("upstream down"))
		default:
			w.Header().Set("Content-Type", "text/plain")
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"message":"looks like json but is not declared"}`))
		}
	})

	_, err := client.Do(context.Background(), Request{Path: "/json", Token: "a.b.c"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusForbidden, apiErr.Status)
	require.Equal(t, "not your submission", apiErr.Message)
	require.Equal(t, FailurePermanent, Classify(err))

	_, err = client.Do(context.Background(), Request{Path: "/text"})
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "upstream down", apiErr.Message)
	require.Equal(t, FailureTransient, Classify(err))

	_, err = client.Do(context.Background(), Request{Path: "/other"})
	require.ErrorAs(t, err, &apiErr)
	require.Contains(t, apiErr.Message, "looks like json")
	require.Contains(t, err.Error(), "500")
}

func TestDoSendsBearerAndDecodesEnvelope(t *testing.T) {
	client, fake := newTestClient(t, func(w http.ResponseWriter, r *http.Request, _ string) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "data": map[string]string{"id": "7"}})
	})

	response, err := client.Do(context.Background(), Request{Path: "/api/thing", Token: "a.b.c"})
	require.NoError(t, err)

	var out struct {
		ID string `json:"id"`
	}
	require.NoError(t, response.Decode(&out))
	require.Equal(t, "7", out.ID)
	require.Equal(t, "Bearer a.b.c", fake.calls[0].Auth)
}

func TestNetworkErrorIsTransient(t *testing.T) {
	client, err := NewClient(Config{BaseURL: "http://127.0.0.1:1", Logger: zerolog.Nop()})
	require.NoError(t, err)

	_, err = client.Do(context.Background(), Request{Path: "/"})
	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	require.Equal(t, FailureTransient, Classify(err))
}

func TestFirstSuccessStopsAtFirstWinner(t *testing.T) {
	var tried []string
	result, err := FirstSuccess(context.Background(), []string{"a", "b", "c"}, func(_ context.Context, candidate string) (string, error) {
		tried = append(tried, candidate)
		if candidate == "b" {
			return "ok:" + candidate, nil
		}
		return "", errors.New("nope")
	})
	require.NoError(t, err)
	require.Equal(t, "ok:b", result)
	require.Equal(t, []string{"a", "b"}, tried)
}

func TestFirstSuccessCollectsFailures(t *testing.T) {
	_, err := FirstSuccess(context.Background(), []int{1, 2}, func(_ context.Context, n int) (int, error) {
		return 0, &APIError{Path: "/x", Status: http.StatusNotFound}
	})
	var probe *ProbeError
	require.ErrorAs(t, err, &probe)
	require.Len(t, probe.Errors, 2)
	require.Equal(t, FailureMaintenance, Classify(err))

	_, err = FirstSuccess(context.Background(), []int{}, func(_ context.Context, n int) (int, error) { return n, nil })
	require.ErrorIs(t, err, ErrNoCandidates)
}

func TestFirstSuccessHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := FirstSuccess(ctx, []int{1, 2, 3}, func(_ context.Context, n int) (int, error) {
		calls++
		cancel()
		return 0, errors.New("failed")
	})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, calls)
}

func TestClassifyMixedProbe(t *testing.T) {
	probe := &ProbeError{Errors: []error{
		&APIError{Status: http.StatusNotFound},
		&APIError{Status: http.StatusUnauthorized},
	}}
	require.Equal(t, FailureAuthentication, Classify(probe))

	probe = &ProbeError{Errors: []error{
		&APIError{Status: http.StatusNotFound},
		&APIError{Status: http.StatusServiceUnavailable},
	}}
	require.Equal(t, FailureTransient, Classify(probe))
	require.Equal(t, FailureNone, Classify(nil))
}

func TestSubmitClaimFansOutOnlyAfterNotFound(t *testing.T) {
	client, fake := newTestClient(t, func(w http.ResponseWriter, r *http.Request, body string) {
		if r.URL.Path == "/alt-2" && strings.Contains(body, "competency_area") {
			writeJSON(w, http.StatusCreated, map[string]interface{}{"data": map[string]interface{}{"id": 99}})
			return
		}
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "no route"})
	})

	payloads := []ClaimPayload{
		{Shape: "minimal", Body: map[string]string{"title": "x"}},
		{Shape: "extended", Body: map[string]string{"title": "x", "competency_area": "ai"}},
	}
	receipt, err := client.SubmitClaim(context.Background(), "a.b.c", ClaimRoute{Primary: "/primary", Fallbacks: []string{"/alt-1", "/alt-2"}}, payloads, "pending-1")
	require.NoError(t, err)
	require.Equal(t, "/alt-2", receipt.Path)
	require.Equal(t, "extended", receipt.Shape)
	require.Equal(t, "99", receipt.RemoteID)
	require.Equal(t, []string{"/primary", "/primary", "/alt-1", "/alt-1", "/alt-2", "/alt-2"}, fake.paths())
	require.Equal(t, "pending-1", fake.calls[0].Key)
}

func TestSubmitClaimDoesNotFanOutOnServerError(t *testing.T) {
	client, fake := newTestClient(t, func(w http.ResponseWriter, r *http.Request, _ string) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	})

	payloads := []ClaimPayload{{Shape: "minimal", Body: map[string]string{}}, {Shape: "extended", Body: map[string]string{}}}
	_, err := client.SubmitClaim(context.Background(), "", ClaimRoute{Primary: "/primary", Fallbacks: []string{"/alt"}}, payloads, "")
	require.Error(t, err)
	require.Equal(t, FailureTransient, Classify(err))
	require.Equal(t, []string{"/primary", "/primary"}, fake.paths())
	require.Empty(t, fake.calls[0].Key)
}

func TestSubmitClaimAllNotFoundIsMaintenance(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request, _ string) {
		http.NotFound(w, r)
	})

	payloads := []ClaimPayload{{Shape: "minimal", Body: map[string]string{}}}
	_, err := client.SubmitClaim(context.Background(), "", ClaimRoute{Primary: "/primary", Fallbacks: []string{"/alt"}}, payloads, "")

	var probe *ProbeError
	require.ErrorAs(t, err, &probe)
	require.Len(t, probe.Errors, 2)
	require.Equal(t, FailureMaintenance, Classify(err))
}

func TestUploadResolvesLocation(t *testing.T) {
	client, fake := newTestClient(t, func(w http.ResponseWriter, r *http.Request, body string) {
		switch r.URL.Path {
		case "/upload-empty":
			writeJSON(w, http.StatusOK, map[string]string{"status": "stored"})
		case "/upload-relative":
			writeJSON(w, http.StatusCreated, map[string]interface{}{"data": map[string]string{"file_url": "/files/cert.pdf"}})
		case "/upload-header":
			w.Header().Set("Location", "https://cdn.test/cert.pdf")
			w.WriteHeader(http.StatusCreated)
		}
	})

	_, err := client.Upload(context.Background(), "/upload-empty", "", "cert.pdf", "application/pdf", strings.NewReader("%PDF-1.4"))
	require.ErrorIs(t, err, ErrUploadWithoutURL)

	url, err := client.Upload(context.Background(), "/upload-relative", "", "cert.pdf", "application/pdf", strings.NewReader("%PDF-1.4"))
	require.NoError(t, err)
	require.Equal(t, client.BaseURL()+"/files/cert.pdf", url)

	url, err = client.Upload(context.Background(), "/upload-header", "", "cert.pdf", "", strings.NewReader("%PDF-1.4"))
	require.NoError(t, err)
	require.Equal(t, "https://cdn.test/cert.pdf", url)

	require.Contains(t, fake.calls[1].Body, `filename="cert.pdf"`)
	require.Contains(t, fake.calls[1].Body, "%PDF-1.4")
}

func TestFetchProfileTriesEndpointsInOrder(t *testing.T) {
	client, fake := newTestClient(t, func(w http.ResponseWriter, r *http.Request, _ string) {
		switch r.URL.Path {
		case "/api/student/profile":
			http.NotFound(w, r)
		case "/api/profile":
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte("<html>login</html>"))
		default:
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"data": map[string]interface{}{"user": map[string]interface{}{"id": 42, "full_name": "Siti", "nim": "2201001", "email": "siti@example.ac.id"}},
			})
		}
	})

	profile, err := client.FetchProfile(context.Background(), "a.b.c", []string{"/api/student/profile", "/api/profile", "/api/auth/me"})
	require.NoError(t, err)
	require.Equal(t, "42", profile.ID)
	require.Equal(t, "Siti", profile.Name)
	require.Equal(t, []string{"/api/student/profile", "/api/profile", "/api/auth/me"}, fake.paths())
}

func TestCatalogCalls(t *testing.T) {
	client, fake := newTestClient(t, func(w http.ResponseWriter, r *http.Request, body string) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/admin/activity-info":
			writeJSON(w, http.StatusOK, map[string]interface{}{"data": []map[string]interface{}{{"id": "1", "name": "Seminar", "points": 4}}})
		case r.Method == http.MethodGet && r.URL.Path == "/api/admin/competencies":
			writeJSON(w, http.StatusOK, []map[string]interface{}{{"id": "ai", "code": "AI", "name": "Artificial Intelligence"}})
		case r.Method == http.MethodPost && r.URL.Path == "/api/admin/submissions/15/reject":
			w.WriteHeader(http.StatusNoContent)
		default:
			http.NotFound(w, r)
		}
	})

	catalog := NewCatalog(client, "/api/admin")

	types, err := catalog.ListActivityTypes(context.Background(), "a.b.c")
	require.NoError(t, err)
	require.Len(t, types, 1)
	require.Equal(t, 4, types[0].Points)

	competencies, err := catalog.ListCompetencies(context.Background(), "a.b.c")
	require.NoError(t, err)
	require.Equal(t, "AI", competencies[0].Code)

	require.NoError(t, catalog.ReviewSubmission(context.Background(), "a.b.c", "15", "reject", map[string]string{"reason": "blurry"}))
	require.JSONEq(t, `{"reason":"blurry"}`, fake.calls[2].Body)

	err = catalog.DeleteCompetency(context.Background(), "a.b.c", "missing")
	require.Equal(t, http.StatusNotFound, StatusOf(err))
}
