package export

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/skp-companion/internal/models"
)

func sampleSubmission(id string) models.PendingSubmission {
	return models.PendingSubmission{
		ID:        id,
		CreatedAt: time.Date(2026, 3, 2, 8, 30, 0, 0, time.UTC),
		Claim: models.ActivityClaim{
			Title:          "Workshop X",
			ActivityType:   "seminar",
			Date:           "2026-03-01",
			Description:    "Attended a data workshop",
			CompetencyArea: "technology",
			ExpectedPoints: 10,
		},
		User:       models.Profile{ID: "42", Name: "Siti Rahma", NIM: "2201001"},
		Evidence:   models.EvidenceReference{Kind: models.EvidenceKindURL, URL: "https://files.example/cert.pdf", FileName: "cert.pdf", SizeBytes: 2048},
		Status:     models.PendingStatusServerSync,
		RetryCount: 1,
		LastError:  "remote POST /api/student/submissions responded 500: boom",
	}
}

func TestJSONExportValidatesAgainstSchema(t *testing.T) {
	renderer, err := NewRenderer("admin@kampus.ac.id")
	require.NoError(t, err)

	payload, err := renderer.JSON([]models.PendingSubmission{sampleSubmission("p-1")}, time.Now())
	require.NoError(t, err)

	var doc Document
	require.NoError(t, json.Unmarshal(payload, &doc))
	require.Equal(t, 1, doc.Count)
	require.Equal(t, "admin@kampus.ac.id", doc.Recipient)
	require.Equal(t, "Workshop X", doc.Submissions[0].Claim.Title)
}

func TestJSONExportOfEmptyQueue(t *testing.T) {
	renderer, err := NewRenderer("")
	require.NoError(t, err)

	payload, err := renderer.JSON(nil, time.Now())
	require.NoError(t, err)
	require.Contains(t, string(payload), `"submissions": []`)
}

func TestJSONExportRejectsInvalidEntries(t *testing.T) {
	renderer, err := NewRenderer("")
	require.NoError(t, err)

	broken := sampleSubmission("")
	_, err = renderer.JSON([]models.PendingSubmission{broken}, time.Now())
	require.ErrorIs(t, err, ErrInvalidDocument)
}

func TestTextExportIsAddressedToAdministrator(t *testing.T) {
	renderer, err := NewRenderer("admin@kampus.ac.id")
	require.NoError(t, err)

	placeholder := sampleSubmission("p-2")
	placeholder.Evidence = models.EvidenceReference{Kind: models.EvidenceKindPlaceholder, Placeholder: "cert.pdf (2048 bytes) - evidence could not be encoded"}

	text := string(renderer.Text([]models.PendingSubmission{sampleSubmission("p-1"), placeholder}, time.Now()))
	require.True(t, strings.HasPrefix(text, "To: admin@kampus.ac.id\n"))
	require.Contains(t, text, "Pending SKP activity claims (2)")
	require.Contains(t, text, "1. Workshop X")
	require.Contains(t, text, "Siti Rahma (2201001)")
	require.Contains(t, text, "evidence could not be encoded")
	require.Contains(t, text, "responded 500")
}

func TestExportsDifferOnlyInTimestamp(t *testing.T) {
	renderer, err := NewRenderer("admin@kampus.ac.id")
	require.NoError(t, err)
	queue := []models.PendingSubmission{sampleSubmission("p-1"), sampleSubmission("p-2")}

	first, err := renderer.JSON(queue, time.Now())
	require.NoError(t, err)
	second, err := renderer.JSON(queue, time.Now().Add(time.Minute))
	require.NoError(t, err)

	var a, b Document
	require.NoError(t, json.Unmarshal(first, &a))
	require.NoError(t, json.Unmarshal(second, &b))
	require.Equal(t, a.Submissions, b.Submissions)
	require.NotEqual(t, a.GeneratedAt, b.GeneratedAt)
}

func TestFileName(t *testing.T) {
	at := time.Date(2026, 10, 18, 9, 5, 7, 0, time.UTC)
	require.Equal(t, "skp-pending-20261018-090507.txt", FileName("txt", at))
}
