package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/skp-companion/internal/models"
	"github.com/noah-isme/skp-companion/internal/storage"
)

func TestSessionRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository(newSQLiteStore(t, "session_repo"))

	token, err := repo.Token(ctx)
	require.NoError(t, err)
	require.Empty(t, token)

	require.NoError(t, repo.SaveToken(ctx, "a.b.c"))
	token, err = repo.Token(ctx)
	require.NoError(t, err)
	require.Equal(t, "a.b.c", token)

	_, ok, err := repo.Identity(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	profile := models.Profile{ID: "42", Name: "Siti", NIM: "2201001", Email: "siti@example.ac.id"}
	require.NoError(t, repo.SaveIdentity(ctx, profile))
	cached, ok, err := repo.Identity(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, profile, cached)

	require.NoError(t, repo.ClearToken(ctx))
	token, err = repo.Token(ctx)
	require.NoError(t, err)
	require.Empty(t, token)

	require.NoError(t, repo.Clear(ctx))
	_, ok, err = repo.Identity(ctx)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSessionRepositoryKeepsPendingSetOnClear(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	sessions := NewSessionRepository(store)
	pendingRepo := NewPendingRepository(store)

	require.NoError(t, sessions.SaveToken(ctx, "a.b.c"))
	require.NoError(t, pendingRepo.Append(ctx, pending("a")))
	require.NoError(t, sessions.Clear(ctx))

	list, err := pendingRepo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
}
