package service

import (
	"context"

	"github.com/noah-isme/skp-companion/internal/models"
)

// Confirmation kinds.
const (
	ConfirmEvidenceFallback = "evidence_fallback"
	ConfirmClearPending     = "clear_pending"
)

// ConfirmationPrompt is a question put to the human operator.
type ConfirmationPrompt struct {
	Kind     string
	Message  string
	Evidence *models.EvidenceReference
	Count    int
}

// Confirmer answers confirmation prompts. A nil Confirmer declines.
type Confirmer interface {
	Confirm(ctx context.Context, prompt ConfirmationPrompt) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt ConfirmationPrompt) bool

func (f ConfirmFunc) Confirm(ctx context.Context, prompt ConfirmationPrompt) bool {
	return f(ctx, prompt)
}

// Fixed answers.
var (
	AlwaysConfirm Confirmer = ConfirmFunc(func(context.Context, ConfirmationPrompt) bool { return true })
	NeverConfirm  Confirmer = ConfirmFunc(func(context.Context, ConfirmationPrompt) bool { return false })
)

func confirmed(ctx context.Context, confirmer Confirmer, prompt ConfirmationPrompt) bool {
	if confirmer == nil {
		return false
	}
	return confirmer.Confirm(ctx, prompt)
}
