package app

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/skp-companion/internal/config"
	"github.com/noah-isme/skp-companion/internal/models"
)

func baseConfig() config.Config {
	return config.Config{
		AppName:          "SKP Companion",
		LogLevel:         "debug",
		RemoteBaseURL:    "http://127.0.0.1:1",
		RemoteTimeout:    time.Second,
		ClaimEndpoint:    "/api/student/submissions",
		ProfileEndpoints: []string{"/api/student/profile"},
		StoreDriver:      config.StoreDriverMemory,
		StoreNamespace:   "skp",
		EvidenceMaxMB:    5,
		MaxReplays:       10,
		ExportRecipient:  "admin.skp@kampus.ac.id",
	}
}

func TestBuildWithSQLiteStorePersistsAcrossContainers(t *testing.T) {
	cfg := baseConfig()
	cfg.StoreDriver = config.StoreDriverSQLite
	cfg.SQLitePath = filepath.Join(t.TempDir(), "skp.db")

	first, err := Build(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, first.Pending.Append(context.Background(), models.PendingSubmission{
		ID:     "p-1",
		Claim:  models.ActivityClaim{Title: "Workshop X"},
		Status: models.PendingStatusServerSync,
	}))
	require.NoError(t, first.Close())

	second, err := Build(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer second.Close()

	entries, err := second.Queue.List(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "p-1", entries[0].ID)
}

func TestBuildWithRedisStore(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	defer server.Close()

	cfg := baseConfig()
	cfg.StoreDriver = config.StoreDriverRedis
	cfg.RedisURL = "redis://" + server.Addr()

	container, err := Build(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer container.Close()

	require.NoError(t, container.Sessions.SaveToken(context.Background(), "a.b.c"))
	token, err := container.Sessions.Token(context.Background())
	require.NoError(t, err)
	require.Equal(t, "a.b.c", token)
}

func TestBuildToleratesUnreachableNATS(t *testing.T) {
	cfg := baseConfig()
	cfg.NATSURL = "nats://127.0.0.1:1"
	cfg.NATSSubject = "skp.pending"

	var logs bytes.Buffer
	container, err := Build(context.Background(), cfg, zerolog.New(&logs))
	require.NoError(t, err)
	defer container.Close()

	require.Contains(t, logs.String(), "nats unavailable")
	require.NotNil(t, container.Broker)
}

func TestBuildFailsOnUnreachableRedis(t *testing.T) {
	cfg := baseConfig()
	cfg.StoreDriver = config.StoreDriverRedis
	cfg.RedisURL = "redis://127.0.0.1:1"

	_, err := Build(context.Background(), cfg, zerolog.Nop())
	require.Error(t, err)
}

func TestNewLoggerHonoursLevel(t *testing.T) {
	var out bytes.Buffer
	cfg := baseConfig()
	cfg.LogLevel = "warn"

	logger := NewLogger(cfg, &out)
	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")

	require.NotContains(t, out.String(), "hidden")
	require.Contains(t, out.String(), "shown")
	require.Contains(t, out.String(), `"app":"SKP Companion"`)
}
