package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/skp-companion/internal/models"
	"github.com/noah-isme/skp-companion/internal/storage"
)

func newSQLiteStore(t *testing.T, name string) storage.Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.StoreEntry{}))
	return storage.NewGormStore(db, "test")
}

func pending(id string) models.PendingSubmission {
	return models.PendingSubmission{
		ID:        id,
		CreatedAt: time.Date(2025, 5, 20, 8, 0, 0, 0, time.UTC),
		Claim:     models.ActivityClaim{Title: "Workshop " + id, ActivityType: "seminar", Date: "2025-05-20"},
		User:      models.Profile{ID: "42", Name: "Siti"},
		Evidence:  models.EvidenceReference{Kind: models.EvidenceKindURL, URL: "https://files.test/" + id, FileName: id + ".pdf"},
		Status:    models.PendingStatusServerSync,
	}
}

func TestPendingRepositoryLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewPendingRepository(newSQLiteStore(t, "pending_lifecycle"))

	list, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Empty(t, list)

	require.NoError(t, repo.Append(ctx, pending("a")))
	require.NoError(t, repo.Append(ctx, pending("b")))

	updated := pending("a")
	updated.LastError = "remote responded 500"
	require.NoError(t, repo.Put(ctx, updated))
	require.NoError(t, repo.Put(ctx, pending("c")))

	list, err = repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	require.Equal(t, "remote responded 500", list[0].LastError)

	got, err := repo.Get(ctx, "b")
	require.NoError(t, err)
	require.Equal(t, "Workshop b", got.Claim.Title)

	require.NoError(t, repo.Delete(ctx, "b"))
	require.ErrorIs(t, repo.Delete(ctx, "b"), ErrPendingNotFound)
	_, err = repo.Get(ctx, "b")
	require.ErrorIs(t, err, ErrPendingNotFound)

	require.NoError(t, repo.Clear(ctx))
	list, err = repo.ListAll(ctx)
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestPendingRepositoryApplyReplay(t *testing.T) {
	ctx := context.Background()
	repo := NewPendingRepository(storage.NewMemoryStore())

	for _, id := range []string{"a", "b", "c", "d"} {
		require.NoError(t, repo.Append(ctx, pending(id)))
	}

	err := repo.ApplyReplay(ctx, []string{"a", "c"}, []ReplayFailure{{ID: "b", Error: "remote responded 503"}})
	require.NoError(t, err)

	list, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "b", list[0].ID)
	require.Equal(t, 1, list[0].RetryCount)
	require.Equal(t, "remote responded 503", list[0].LastError)
	require.Equal(t, "d", list[1].ID)
	require.Equal(t, 0, list[1].RetryCount)
}

func TestPendingRepositoryRejectsCorruptSet(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	require.NoError(t, store.Put(ctx, PendingSubmissionsKey, []byte(`{"not":"a list"}`)))

	_, err := NewPendingRepository(store).ListAll(ctx)
	require.ErrorContains(t, err, "decode pending submissions")
}
