// Package export renders the pending queue into artifacts an administrator can process by hand.
package export

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/noah-isme/skp-companion/internal/models"
)

//go:embed schema/pending_export.schema.json
var schemaSource string

const schemaURL = "skp://schemas/pending_export.schema.json"

// ErrInvalidDocument indicates the JSON dump did not satisfy the export schema.
var ErrInvalidDocument = errors.New("export document does not match schema")

// Document is the structured JSON dump of the pending queue.
type Document struct {
	GeneratedAt time.Time                  `json:"generated_at"`
	Recipient   string                     `json:"recipient"`
	Count       int                        `json:"count"`
	Submissions []models.PendingSubmission `json:"submissions"`
}

// Renderer produces export artifacts. It never touches the queue itself.
type Renderer struct {
	schema    *jsonschema.Schema
	recipient string
}

// NewRenderer compiles the embedded schema.
func NewRenderer(recipient string) (*Renderer, error) {
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true
	if err := compiler.AddResource(schemaURL, strings.NewReader(schemaSource)); err != nil {
		return nil, fmt.Errorf("load export schema: %w", err)
	}
	schema, err := compiler.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile export schema: %w", err)
	}

	recipient = strings.TrimSpace(recipient)
	if recipient == "" {
		recipient = "SKP administrator"
	}
	return &Renderer{schema: schema, recipient: recipient}, nil
}

// JSON renders the queue as an indented JSON document and validates it.
func (r *Renderer) JSON(submissions []models.PendingSubmission, generatedAt time.Time) ([]byte, error) {
	if submissions == nil {
		submissions = []models.PendingSubmission{}
	}
	doc := Document{
		GeneratedAt: generatedAt.UTC(),
		Recipient:   r.recipient,
		Count:       len(submissions),
		Submissions: submissions,
	}

	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}

	var generic interface{}
	if err := json.Unmarshal(payload, &generic); err != nil {
		return nil, err
	}
	if err := r.schema.Validate(generic); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	return append(payload, '\n'), nil
}

// Text renders the queue as an e-mail addressed to the administrator.
func (r *Renderer) Text(submissions []models.PendingSubmission, generatedAt time.Time) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "To: %s\n", r.recipient)
	fmt.Fprintf(&buf, "Subject: Pending SKP activity claims (%d)\n\n", len(submissions))
	fmt.Fprintf(&buf, "Dear %s,\n\n", r.recipient)

	if len(submissions) == 0 {
		buf.WriteString("There are no activity claims waiting for manual processing.\n\n")
	} else {
		fmt.Fprintf(&buf, "The %d activity claim(s) below could not be delivered to the SKP service and are kept locally.\n", len(submissions))
		buf.WriteString("Please record them manually or let me know once the service accepts submissions again.\n\n")
	}

	for i, submission := range submissions {
		writeSubmission(&buf, i+1, submission)
	}

	buf.WriteString("Regards,\n")
	buf.WriteString(signature(submissions))
	buf.WriteString("\n\n")
	fmt.Fprintf(&buf, "Generated at %s\n", generatedAt.UTC().Format(time.RFC3339))

	return buf.Bytes()
}

func writeSubmission(buf *bytes.Buffer, index int, submission models.PendingSubmission) {
	claim := submission.Claim
	user := submission.User

	fmt.Fprintf(buf, "%d. %s\n", index, claim.Title)
	fmt.Fprintf(buf, "   Reference: %s\n", submission.ID)
	fmt.Fprintf(buf, "   Student: %s\n", describeStudent(user))
	fmt.Fprintf(buf, "   Activity: %s / %s on %s\n", claim.ActivityType, claim.CompetencyArea, claim.Date)
	fmt.Fprintf(buf, "   Expected points: %d\n", claim.ExpectedPoints)
	fmt.Fprintf(buf, "   Description: %s\n", claim.Description)
	if claim.Notes != "" {
		fmt.Fprintf(buf, "   Notes: %s\n", claim.Notes)
	}
	fmt.Fprintf(buf, "   Evidence: %s\n", describeEvidence(submission.Evidence))
	fmt.Fprintf(buf, "   Queued at: %s\n", submission.CreatedAt.UTC().Format(time.RFC3339))
	if submission.RetryCount > 0 || submission.LastError != "" {
		fmt.Fprintf(buf, "   Delivery attempts: %d, last error: %s\n", submission.RetryCount+1, submission.LastError)
	}
	buf.WriteString("\n")
}

func describeStudent(user models.Profile) string {
	parts := []string{user.Name}
	if user.NIM != "" {
		parts = append(parts, "("+user.NIM+")")
	}
	if user.Email != "" {
		parts = append(parts, "<"+user.Email+">")
	}
	return strings.Join(parts, " ")
}

func describeEvidence(evidence models.EvidenceReference) string {
	switch evidence.Kind {
	case models.EvidenceKindURL:
		return evidence.URL
	case models.EvidenceKindInline:
		return fmt.Sprintf("%s attached inline (%d bytes), see the JSON export", evidence.FileName, evidence.SizeBytes)
	default:
		return evidence.Placeholder
	}
}

func signature(submissions []models.PendingSubmission) string {
	if len(submissions) == 0 {
		return "SKP companion"
	}
	names := make(map[string]struct{})
	for _, submission := range submissions {
		names[submission.User.ID] = struct{}{}
	}
	if len(names) == 1 {
		return describeStudent(submissions[0].User)
	}
	return "SKP companion"
}

// FileName returns a timestamped artifact name.
func FileName(extension string, generatedAt time.Time) string {
	return fmt.Sprintf("skp-pending-%s.%s", generatedAt.UTC().Format("20060102-150405"), extension)
}
