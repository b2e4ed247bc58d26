package models

import "time"

// PendingStatusServerSync marks a claim that is waiting to be replayed to the remote service.
const PendingStatusServerSync = "pending_server_sync"

// Profile identifies the student a claim belongs to.
type Profile struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	NIM   string `json:"nim"`
	Email string `json:"email"`
}

// ActivityClaim is a student's request for point credit for a completed activity.
type ActivityClaim struct {
	Title          string `json:"title"`
	ActivityType   string `json:"activityType"`
	Date           string `json:"date"`
	Description    string `json:"description"`
	CompetencyArea string `json:"competencyArea"`
	ExpectedPoints int    `json:"expectedPoints"`
	Notes          string `json:"notes,omitempty"`
}

// Evidence reference kinds.
const (
	EvidenceKindURL         = "url"
	EvidenceKindInline      = "inline"
	EvidenceKindPlaceholder = "placeholder"
)

// EvidenceReference points at the supporting document of a claim. Exactly one of URL,
// Data or Placeholder is populated, according to Kind.
type EvidenceReference struct {
	Kind        string `json:"kind"`
	URL         string `json:"url,omitempty"`
	Data        string `json:"data,omitempty"`
	Placeholder string `json:"placeholder,omitempty"`
	FileName    string `json:"fileName"`
	MimeType    string `json:"mimeType,omitempty"`
	SizeBytes   int64  `json:"sizeBytes"`
}

// Value returns the string sent to the remote service as the evidence field.
func (e EvidenceReference) Value() string {
	switch e.Kind {
	case EvidenceKindURL:
		return e.URL
	case EvidenceKindInline:
		return e.Data
	default:
		return e.Placeholder
	}
}

// PendingSubmission wraps a claim that could not be persisted remotely.
type PendingSubmission struct {
	ID         string            `json:"id"`
	CreatedAt  time.Time         `json:"createdAt"`
	Claim      ActivityClaim     `json:"claim"`
	User       Profile           `json:"user"`
	Evidence   EvidenceReference `json:"evidence"`
	Status     string            `json:"status"`
	RetryCount int               `json:"retryCount"`
	LastError  string            `json:"lastError"`
}
