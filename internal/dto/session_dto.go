package dto

import (
	"time"

	"github.com/noah-isme/skp-companion/internal/models"
)

// SessionRequest stores a bearer token issued by the remote service.
type SessionRequest struct {
	Token string `json:"token" validate:"required"`
}

// SessionResponse describes the stored credential without echoing it.
type SessionResponse struct {
	Status    string          `json:"status"`
	Role      string          `json:"role,omitempty"`
	ExpiresAt *time.Time      `json:"expires_at,omitempty"`
	Identity  *models.Profile `json:"identity,omitempty"`
}

// ProfileResponse is the identity a claim would be attributed to.
type ProfileResponse struct {
	Profile models.Profile `json:"profile"`
	Source  string         `json:"source"`
}

// Identity sources, most trusted first.
const (
	IdentitySourceRemote      = "remote"
	IdentitySourceCache       = "cache"
	IdentitySourceToken       = "token"
	IdentitySourcePlaceholder = "placeholder"
)

// ProfileUpdateRequest changes the student's remote profile.
type ProfileUpdateRequest struct {
	Name  *string `json:"name" validate:"omitempty,min=2,max=120"`
	NIM   *string `json:"nim" validate:"omitempty,alphanum,max=32"`
	Email *string `json:"email" validate:"omitempty,email"`
}
