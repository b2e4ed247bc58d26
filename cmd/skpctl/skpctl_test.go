package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

type cliEnv struct {
	remoteURL string
	dbPath    string
	dir       string
}

func newCLIEnv(t *testing.T, handler http.HandlerFunc) cliEnv {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	dir := t.TempDir()
	return cliEnv{remoteURL: server.URL, dbPath: filepath.Join(dir, "skp.db"), dir: dir}
}

func (e cliEnv) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCommand(newCLI())
	cmd.SetArgs(append([]string{"--remote-url", e.remoteURL, "--store", "sqlite", "--sqlite-path", e.dbPath, "--log-level", "error"}, args...))
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	err := cmd.Execute()
	return out.String(), err
}

func cliToken(t *testing.T) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "42",
		"name": "Siti Rahma",
		"exp":  time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("remote-secret"))
	require.NoError(t, err)
	return token
}

func writeEvidence(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "certificate.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\n"), 0o600))
	return path
}

func unavailable(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte(`{"message":"down"}`))
}

func submitArgs(evidence string, extra ...string) []string {
	args := []string{
		"submit",
		"--title", "Workshop X",
		"--type", "seminar",
		"--date", "2025-05-20",
		"--description", "Attended the applied AI workshop",
		"--competency", "ai",
		"--points", "8",
		"--evidence", evidence,
	}
	return append(args, extra...)
}

func TestLoginStatusAndLogout(t *testing.T) {
	env := newCLIEnv(t, unavailable)

	out, err := env.run(t, cliToken(t)+"\n", "login")
	require.NoError(t, err)
	require.Contains(t, out, `"status": "valid"`)

	out, err = env.run(t, "", "status")
	require.NoError(t, err)
	require.Contains(t, out, `"status": "valid"`)

	out, err = env.run(t, "", "profile")
	require.NoError(t, err)
	require.Contains(t, out, `"source": "token"`)

	_, err = env.run(t, "", "logout")
	require.NoError(t, err)

	_, err = env.run(t, "", "status")
	require.Error(t, err)
}

func TestLoginRejectsMalformedToken(t *testing.T) {
	env := newCLIEnv(t, unavailable)

	_, err := env.run(t, "", "login", "not-a-token")
	require.Error(t, err)
}

func TestSubmitQueuesThenExportsAndClears(t *testing.T) {
	env := newCLIEnv(t, unavailable)
	evidence := writeEvidence(t, env.dir)

	_, err := env.run(t, "", "login", cliToken(t))
	require.NoError(t, err)

	out, err := env.run(t, "", submitArgs(evidence, "--yes")...)
	require.NoError(t, err)
	require.Contains(t, out, `"outcome": "queued"`)

	out, err = env.run(t, "", "pending", "list")
	require.NoError(t, err)
	var list struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	require.Equal(t, 1, list.Count)

	exportDir := filepath.Join(env.dir, "exports")
	out, err = env.run(t, "", "pending", "export", "--format", "text", "--out", exportDir)
	require.NoError(t, err)
	require.Contains(t, out, "exported 1 claim(s)")
	files, err := os.ReadDir(exportDir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	require.True(t, strings.HasSuffix(files[0].Name(), ".txt"))

	_, err = env.run(t, "n\n", "pending", "clear")
	require.Error(t, err)

	out, err = env.run(t, "yes\n", "pending", "clear")
	require.NoError(t, err)
	require.Contains(t, out, "cleared 1 claim(s)")
}

func TestSubmitCancelledWhenPromptDeclined(t *testing.T) {
	env := newCLIEnv(t, unavailable)
	evidence := writeEvidence(t, env.dir)

	_, err := env.run(t, "", "login", cliToken(t))
	require.NoError(t, err)

	out, err := env.run(t, "n\n", submitArgs(evidence)...)
	require.Error(t, err)
	require.Contains(t, out, "[y/N]")
	require.Contains(t, out, `"outcome": "cancelled"`)

	out, err = env.run(t, "", "pending", "list")
	require.NoError(t, err)
	require.Contains(t, out, `"count": 0`)
}

func TestPendingRetryDeliversQueuedClaims(t *testing.T) {
	var healthy atomic.Bool
	env := newCLIEnv(t, func(w http.ResponseWriter, r *http.Request) {
		if !healthy.Load() {
			unavailable(w, r)
			return
		}
		if r.URL.Path == "/api/student/submissions" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"data":{"id":"sub-1"}}`))
			return
		}
		http.NotFound(w, r)
	})
	evidence := writeEvidence(t, env.dir)

	_, err := env.run(t, "", "login", cliToken(t))
	require.NoError(t, err)
	_, err = env.run(t, "", submitArgs(evidence, "-y")...)
	require.NoError(t, err)

	healthy.Store(true)
	out, err := env.run(t, "", "pending", "retry")
	require.NoError(t, err)
	require.Contains(t, out, `"remaining": 0`)
}

func TestSubmitRequiresEvidenceFlag(t *testing.T) {
	env := newCLIEnv(t, unavailable)

	_, err := env.run(t, "", "submit", "--title", "Workshop X")
	require.Error(t, err)
}
