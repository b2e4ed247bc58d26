package service

import (
	"errors"
	"time"

	"github.com/noah-isme/skp-companion/internal/models"
	"github.com/noah-isme/skp-companion/internal/remote"
)

// Payload shapes, tried in this order.
const (
	ShapeMinimal  = "minimal"
	ShapeExtended = "extended"
)

type minimalClaimBody struct {
	Title        string `json:"title"`
	ActivityType string `json:"activity_type"`
	ActivityDate string `json:"activity_date"`
	Description  string `json:"description"`
	Points       int    `json:"points"`
	EvidenceURL  string `json:"evidence_url"`
}

type studentBody struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	NIM   string `json:"nim,omitempty"`
	Email string `json:"email,omitempty"`
}

type extendedClaimBody struct {
	minimalClaimBody
	CompetencyArea string      `json:"competency_area"`
	Notes          string      `json:"notes,omitempty"`
	EvidenceKind   string      `json:"evidence_kind"`
	EvidenceName   string      `json:"evidence_name"`
	Student        studentBody `json:"student"`
	SubmittedAt    time.Time   `json:"submitted_at"`
}

func minimalPayload(claim models.ActivityClaim, evidence models.EvidenceReference) remote.ClaimPayload {
	return remote.ClaimPayload{
		Shape: ShapeMinimal,
		Body: minimalClaimBody{
			Title:        claim.Title,
			ActivityType: claim.ActivityType,
			ActivityDate: claim.Date,
			Description:  claim.Description,
			Points:       claim.ExpectedPoints,
			EvidenceURL:  evidence.Value(),
		},
	}
}

func extendedPayload(claim models.ActivityClaim, evidence models.EvidenceReference, student models.Profile, submittedAt time.Time) remote.ClaimPayload {
	minimal := minimalPayload(claim, evidence).Body.(minimalClaimBody)
	return remote.ClaimPayload{
		Shape: ShapeExtended,
		Body: extendedClaimBody{
			minimalClaimBody: minimal,
			CompetencyArea:   claim.CompetencyArea,
			Notes:            claim.Notes,
			EvidenceKind:     evidence.Kind,
			EvidenceName:     evidence.FileName,
			Student: studentBody{
				ID:    student.ID,
				Name:  student.Name,
				NIM:   student.NIM,
				Email: student.Email,
			},
			SubmittedAt: submittedAt.UTC(),
		},
	}
}

// lastFailure is the text stored as a pending entry's lastError.
func lastFailure(err error) string {
	if err == nil {
		return ""
	}
	var probe *remote.ProbeError
	if errors.As(err, &probe) {
		if last := probe.Last(); last != nil {
			return last.Error()
		}
	}
	return err.Error()
}
