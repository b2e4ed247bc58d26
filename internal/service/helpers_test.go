package service

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
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/skp-companion/internal/dto"
	"github.com/noah-isme/skp-companion/internal/events"
	"github.com/noah-isme/skp-companion/internal/export"
	"github.com/noah-isme/skp-companion/internal/models"
	"github.com/noah-isme/skp-companion/internal/remote"
	"github.com/noah-isme/skp-companion/internal/repository"
	"github.com/noah-isme/skp-companion/internal/storage"
)

var (
	testProfileEndpoints = []string{"/api/student/profile", "/api/profile", "/api/auth/me"}
	testUploadEndpoints  = []string{"/api/upload", "/api/files/upload"}
	testRoute            = remote.ClaimRoute{
		Primary:   "/api/student/submissions",
		Fallbacks: []string{"/api/submissions", "/api/student/activities", "/api/activities/submit"},
	}
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

type remoteCall struct {
	Method         string
	Path           string
	Authorization  string
	IdempotencyKey string
	Body           string
}

type fakeRemote struct {
	mu      sync.Mutex
	calls   []remoteCall
	handler func(w http.ResponseWriter, r *http.Request, body string)
}

func (f *fakeRemote) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.calls = append(f.calls, remoteCall{
		Method:         r.Method,
		Path:           r.URL.Path,
		Authorization:  r.Header.Get("Authorization"),
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
		Body:           string(raw),
	})
	f.mu.Unlock()
	f.handler(w, r, string(raw))
}

func (f *fakeRemote) recorded() []remoteCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]remoteCall(nil), f.calls...)
}

func (f *fakeRemote) callsTo(paths ...string) []remoteCall {
	matched := make([]remoteCall, 0)
	for _, call := range f.recorded() {
		for _, path := range paths {
			if call.Path == path {
				matched = append(matched, call)
				break
			}
		}
	}
	return matched
}

func newFakeRemote(t *testing.T, handler func(w http.ResponseWriter, r *http.Request, body string)) (*remote.Client, *fakeRemote) {
	t.Helper()
	fake := &fakeRemote{handler: handler}
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	client, err := remote.NewClient(remote.Config{BaseURL: server.URL, Timeout: 5 * time.Second, Logger: testLogger()})
	require.NoError(t, err)
	return client, fake
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondStatus(status int) func(w http.ResponseWriter, r *http.Request, body string) {
	return func(w http.ResponseWriter, _ *http.Request, _ string) {
		respondJSON(w, status, map[string]string{"message": http.StatusText(status)})
	}
}

func signTestToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("remote-secret"))
	require.NoError(t, err)
	return token
}

func validToken(t *testing.T) string {
	return signTestToken(t, jwt.MapClaims{
		"sub":  "42",
		"name": "Siti Rahma",
		"nim":  "2201001",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
}

func expiredToken(t *testing.T) string {
	return signTestToken(t, jwt.MapClaims{"sub": "42", "exp": time.Now().Add(-time.Hour).Unix()})
}

func pdfEvidence(size int) *dto.EvidenceFile {
	content := []byte("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n1 0 obj\n<< /Type /Catalog >>\nendobj\n")
	if size > len(content) {
		content = append(content, []byte(strings.Repeat("0", size-len(content)))...)
	}
	return dto.EvidenceFromBytes("certificate workshop.pdf", content)
}

func unreadableEvidence(name string, size int64) *dto.EvidenceFile {
	return &dto.EvidenceFile{
		FileName: name,
		Size:     size,
		Open: func() (io.ReadCloser, error) {
			return nil, errors.New("disk unavailable")
		},
	}
}

func workshopClaim() dto.ClaimSubmitRequest {
	return dto.ClaimSubmitRequest{
		Title:          "Workshop X",
		ActivityType:   "seminar",
		Date:           "2025-05-20",
		Description:    "Attended the applied AI workshop",
		CompetencyArea: "ai",
		ExpectedPoints: 8,
	}
}

type harness struct {
	store      *storage.MemoryStore
	pending    repository.PendingRepository
	sessions   repository.SessionRepository
	broker     *events.Broker
	submission SubmissionService
	queue      PendingService
}

func newHarness(t *testing.T, client *remote.Client, maxReplays int) *harness {
	t.Helper()

	store := storage.NewMemoryStore()
	pending := repository.NewPendingRepository(store)
	sessions := repository.NewSessionRepository(store)
	broker := events.NewBroker()
	validate := validator.New(validator.WithRequiredStructEnabled())
	identities := NewIdentityResolver(client, testProfileEndpoints, sessions, testLogger())

	renderer, err := export.NewRenderer("admin@kampus.ac.id")
	require.NoError(t, err)

	return &harness{
		store:    store,
		pending:  pending,
		sessions: sessions,
		broker:   broker,
		submission: NewSubmissionService(client, pending, sessions, identities, nil, broker, validate, SubmissionConfig{
			Route:           testRoute,
			UploadEndpoints: testUploadEndpoints,
			EvidenceMaxMB:   5,
		}, testLogger()),
		queue: NewPendingService(client, pending, sessions, renderer, broker, PendingConfig{
			Route:      testRoute,
			MaxReplays: maxReplays,
		}, testLogger()),
	}
}

func (h *harness) entries(t *testing.T) []models.PendingSubmission {
	t.Helper()
	entries, err := h.pending.ListAll(context.Background())
	require.NoError(t, err)
	return entries
}

func (h *harness) seed(t *testing.T, entries ...models.PendingSubmission) {
	t.Helper()
	for _, entry := range entries {
		require.NoError(t, h.pending.Append(context.Background(), entry))
	}
}

func queuedEntry(id, title string, retries int) models.PendingSubmission {
	return models.PendingSubmission{
		ID:        id,
		CreatedAt: time.Date(2025, 5, 21, 7, 0, 0, 0, time.UTC),
		Claim: models.ActivityClaim{
			Title:          title,
			ActivityType:   "seminar",
			Date:           "2025-05-20",
			Description:    "Attended",
			CompetencyArea: "ai",
			ExpectedPoints: 8,
		},
		User:       models.Profile{ID: "42", Name: "Siti Rahma"},
		Evidence:   models.EvidenceReference{Kind: models.EvidenceKindURL, URL: "https://files.example/" + id + ".pdf", FileName: id + ".pdf", SizeBytes: 10},
		Status:     models.PendingStatusServerSync,
		RetryCount: retries,
		LastError:  "remote POST /api/student/submissions responded 503: unavailable",
	}
}
