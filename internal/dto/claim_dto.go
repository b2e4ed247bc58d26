package dto

import (
	"bytes"
	"io"
	"mime/multipart"
	"strings"

	"github.com/noah-isme/skp-companion/internal/models"
)

const claimDateLayout = "2006-01-02"

// ClaimSubmitRequest describes the activity claim form.
type ClaimSubmitRequest struct {
	Title          string `form:"title" json:"title" validate:"required,max=200"`
	ActivityType   string `form:"activity_type" json:"activity_type" validate:"required,max=100"`
	Date           string `form:"date" json:"date" validate:"required,datetime=2006-01-02"`
	Description    string `form:"description" json:"description" validate:"required,max=5000"`
	CompetencyArea string `form:"competency_area" json:"competency_area" validate:"required,max=100"`
	ExpectedPoints int    `form:"expected_points" json:"expected_points" validate:"gte=0,lte=1000"`
	Notes          string `form:"notes" json:"notes" validate:"omitempty,max=2000"`
}

// ToModel converts the request into the claim model.
func (r ClaimSubmitRequest) ToModel() models.ActivityClaim {
	return models.ActivityClaim{
		Title:          strings.TrimSpace(r.Title),
		ActivityType:   strings.TrimSpace(r.ActivityType),
		Date:           strings.TrimSpace(r.Date),
		Description:    strings.TrimSpace(r.Description),
		CompetencyArea: strings.TrimSpace(r.CompetencyArea),
		ExpectedPoints: r.ExpectedPoints,
		Notes:          strings.TrimSpace(r.Notes),
	}
}

// EvidenceFile is a supporting document selected by the student. Open may be called more
// than once.
type EvidenceFile struct {
	FileName string
	Size     int64
	Open     func() (io.ReadCloser, error)
}

// EvidenceFromMultipart wraps an uploaded form file. A nil header yields nil.
func EvidenceFromMultipart(header *multipart.FileHeader) *EvidenceFile {
	if header == nil {
		return nil
	}
	return &EvidenceFile{
		FileName: header.Filename,
		Size:     header.Size,
		Open: func() (io.ReadCloser, error) {
			return header.Open()
		},
	}
}

// EvidenceFromBytes wraps an in-memory document.
func EvidenceFromBytes(name string, content []byte) *EvidenceFile {
	return &EvidenceFile{
		FileName: name,
		Size:     int64(len(content)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(content)), nil
		},
	}
}

// SubmitOutcome tags how a submission ended.
type SubmitOutcome string

const (
	OutcomeSubmitted SubmitOutcome = "submitted"
	OutcomeQueued    SubmitOutcome = "queued"
	OutcomeCancelled SubmitOutcome = "cancelled"
	OutcomeRejected  SubmitOutcome = "rejected"
)

// Failure classes reported alongside queued or rejected submissions.
const (
	FailureValidation     = "validation"
	FailureAuthentication = "authentication"
	FailureMaintenance    = "maintenance"
	FailurePermanent      = "permanent"
	FailureTransient      = "transient"
)

// ClaimReceiptResponse describes the remote attempt that accepted a claim.
type ClaimReceiptResponse struct {
	Endpoint string `json:"endpoint"`
	Shape    string `json:"shape"`
	Status   int    `json:"status"`
	RemoteID string `json:"remote_id,omitempty"`
}

// SubmitResult is returned for every submission attempt.
type SubmitResult struct {
	Outcome  SubmitOutcome             `json:"outcome"`
	Failure  string                    `json:"failure,omitempty"`
	Message  string                    `json:"message"`
	Receipt  *ClaimReceiptResponse     `json:"receipt,omitempty"`
	Pending  *models.PendingSubmission `json:"pending,omitempty"`
	Evidence *models.EvidenceReference `json:"evidence,omitempty"`
	Student  *models.Profile           `json:"student,omitempty"`
}
