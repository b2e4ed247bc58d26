package service

import (
	"errors"

	"github.com/noah-isme/skp-companion/internal/credential"
)

var (
	// ErrCredentialMissing indicates no bearer token was supplied or stored.
	ErrCredentialMissing = errors.New("not signed in")
	// ErrCredentialMalformed indicates the bearer token is not a three-segment token.
	ErrCredentialMalformed = errors.New("session token is malformed, please sign in again")
	// ErrCredentialExpired indicates the bearer token has expired.
	ErrCredentialExpired = errors.New("session expired, please sign in again")
	// ErrInvalidClaim indicates the claim failed validation.
	ErrInvalidClaim = errors.New("invalid activity claim")
	// ErrEvidenceRequired indicates the claim carries no evidence file.
	ErrEvidenceRequired = errors.New("evidence file is required")
	// ErrEvidenceTooLarge indicates the evidence exceeded the configured limit.
	ErrEvidenceTooLarge = errors.New("evidence file exceeds maximum allowed size")
	// ErrEvidenceTypeNotAllowed indicates the evidence is not a PDF, JPEG or PNG.
	ErrEvidenceTypeNotAllowed = errors.New("evidence file type not allowed")
	// ErrSubmissionCancelled indicates the student declined to continue without a usable evidence link.
	ErrSubmissionCancelled = errors.New("submission cancelled")
	// ErrClearNotConfirmed indicates the pending queue was not cleared because confirmation was declined.
	ErrClearNotConfirmed = errors.New("clearing pending submissions was not confirmed")
	// ErrInvalidExportFormat indicates an unknown export format was requested.
	ErrInvalidExportFormat = errors.New("export format must be json or text")
)

// IsCredentialError reports whether err rejects the caller's session.
func IsCredentialError(err error) bool {
	return errors.Is(err, ErrCredentialMissing) ||
		errors.Is(err, ErrCredentialMalformed) ||
		errors.Is(err, ErrCredentialExpired)
}

func credentialError(status credential.Status) error {
	switch status {
	case credential.StatusMissing:
		return ErrCredentialMissing
	case credential.StatusExpired:
		return ErrCredentialExpired
	default:
		return ErrCredentialMalformed
	}
}
