package dto

import (
	"time"

	"github.com/noah-isme/skp-companion/internal/models"
)

// PendingListResponse lists the local pending queue.
type PendingListResponse struct {
	Items []models.PendingSubmission `json:"items"`
	Count int                        `json:"count"`
}

// NewPendingListResponse wraps the queue, never returning a nil slice.
func NewPendingListResponse(items []models.PendingSubmission) PendingListResponse {
	if items == nil {
		items = []models.PendingSubmission{}
	}
	return PendingListResponse{Items: items, Count: len(items)}
}

// ReplayFailureResponse reports one entry that could not be replayed.
type ReplayFailureResponse struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Failure    string `json:"failure"`
	Error      string `json:"error"`
	RetryCount int    `json:"retry_count"`
}

// RetryReport summarises an operator-invoked replay of the pending queue.
type RetryReport struct {
	Attempted int                     `json:"attempted"`
	Succeeded []string                `json:"succeeded"`
	Failed    []ReplayFailureResponse `json:"failed"`
	Skipped   []string                `json:"skipped"`
	Remaining int                     `json:"remaining"`
}

// ExportFormat selects the export artifact representation.
type ExportFormat string

const (
	ExportJSON ExportFormat = "json"
	ExportText ExportFormat = "text"
)

// ExportArtifact is a downloadable dump of the pending queue.
type ExportArtifact struct {
	Format      ExportFormat `json:"format"`
	FileName    string       `json:"file_name"`
	ContentType string       `json:"content_type"`
	Content     []byte       `json:"-"`
	Count       int          `json:"count"`
	GeneratedAt time.Time    `json:"generated_at"`
}
