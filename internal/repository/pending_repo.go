package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/noah-isme/skp-companion/internal/models"
	"github.com/noah-isme/skp-companion/internal/storage"
)

// PendingSubmissionsKey is the store key holding the whole pending set.
const PendingSubmissionsKey = "pending_submissions"

// ErrPendingNotFound indicates no pending entry carries the requested id.
var ErrPendingNotFound = errors.New("pending submission not found")

// ReplayFailure records a failed replay attempt for one entry.
type ReplayFailure struct {
	ID    string
	Error string
}

// PendingRepository persists the pending submission set. Every mutation reads the full
// set, changes it in memory and writes it back under one key.
type PendingRepository interface {
	ListAll(ctx context.Context) ([]models.PendingSubmission, error)
	Get(ctx context.Context, id string) (models.PendingSubmission, error)
	Put(ctx context.Context, submission models.PendingSubmission) error
	Append(ctx context.Context, submission models.PendingSubmission) error
	Delete(ctx context.Context, id string) error
	ApplyReplay(ctx context.Context, succeeded []string, failed []ReplayFailure) error
	Clear(ctx context.Context) error
}

type pendingRepository struct {
	store storage.Store
}

// NewPendingRepository constructs a repository over the supplied store.
func NewPendingRepository(store storage.Store) PendingRepository {
	return &pendingRepository{store: store}
}

func (r *pendingRepository) ListAll(ctx context.Context) ([]models.PendingSubmission, error) {
	raw, err := r.store.Get(ctx, PendingSubmissionsKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return []models.PendingSubmission{}, nil
		}
		return nil, err
	}

	var submissions []models.PendingSubmission
	if err := json.Unmarshal(raw, &submissions); err != nil {
		return nil, fmt.Errorf("decode pending submissions: %w", err)
	}
	if submissions == nil {
		submissions = []models.PendingSubmission{}
	}
	return submissions, nil
}

func (r *pendingRepository) Get(ctx context.Context, id string) (models.PendingSubmission, error) {
	submissions, err := r.ListAll(ctx)
	if err != nil {
		return models.PendingSubmission{}, err
	}
	for _, submission := range submissions {
		if submission.ID == id {
			return submission, nil
		}
	}
	return models.PendingSubmission{}, ErrPendingNotFound
}

// Put replaces the entry with the same id, or appends it.
func (r *pendingRepository) Put(ctx context.Context, submission models.PendingSubmission) error {
	submissions, err := r.ListAll(ctx)
	if err != nil {
		return err
	}
	for i := range submissions {
		if submissions[i].ID == submission.ID {
			submissions[i] = submission
			return r.write(ctx, submissions)
		}
	}
	return r.write(ctx, append(submissions, submission))
}

func (r *pendingRepository) Append(ctx context.Context, submission models.PendingSubmission) error {
	submissions, err := r.ListAll(ctx)
	if err != nil {
		return err
	}
	return r.write(ctx, append(submissions, submission))
}

func (r *pendingRepository) Delete(ctx context.Context, id string) error {
	submissions, err := r.ListAll(ctx)
	if err != nil {
		return err
	}

	kept := submissions[:0]
	found := false
	for _, submission := range submissions {
		if submission.ID == id {
			found = true
			continue
		}
		kept = append(kept, submission)
	}
	if !found {
		return ErrPendingNotFound
	}
	return r.write(ctx, kept)
}

// ApplyReplay drops the succeeded ids and bumps the retry counter of failed ones in a
// single rewrite. Ids present in neither list are left untouched.
func (r *pendingRepository) ApplyReplay(ctx context.Context, succeeded []string, failed []ReplayFailure) error {
	submissions, err := r.ListAll(ctx)
	if err != nil {
		return err
	}

	done := make(map[string]struct{}, len(succeeded))
	for _, id := range succeeded {
		done[id] = struct{}{}
	}
	failures := make(map[string]string, len(failed))
	for _, failure := range failed {
		failures[failure.ID] = failure.Error
	}

	kept := make([]models.PendingSubmission, 0, len(submissions))
	for _, submission := range submissions {
		if _, ok := done[submission.ID]; ok {
			continue
		}
		if lastError, ok := failures[submission.ID]; ok {
			submission.RetryCount++
			submission.LastError = lastError
		}
		kept = append(kept, submission)
	}
	return r.write(ctx, kept)
}

func (r *pendingRepository) Clear(ctx context.Context) error {
	return r.store.Delete(ctx, PendingSubmissionsKey)
}

func (r *pendingRepository) write(ctx context.Context, submissions []models.PendingSubmission) error {
	if submissions == nil {
		submissions = []models.PendingSubmission{}
	}
	payload, err := json.Marshal(submissions)
	if err != nil {
		return fmt.Errorf("encode pending submissions: %w", err)
	}
	return r.store.Put(ctx, PendingSubmissionsKey, payload)
}
