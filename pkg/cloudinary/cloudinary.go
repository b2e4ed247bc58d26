// Package cloudinary stores claim evidence in a Cloudinary folder when the SKP service's
// own upload endpoints are unavailable.
package cloudinary

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrMissingSecureURL is returned when Cloudinary accepts an asset without reporting where it lives.
var ErrMissingSecureURL = errors.New("cloudinary returned no secure url")

// Config contains credentials and placement of evidence assets.
type Config struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
	Tags      []string
}

type assetUploader interface {
	Upload(ctx context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error)
}

// EvidenceStore uploads evidence documents and returns their public HTTPS location.
type EvidenceStore struct {
	assets assetUploader
	folder string
	tags   []string
	logger zerolog.Logger
}

// New constructs an evidence store backed by the Cloudinary upload API.
func New(cfg Config, logger zerolog.Logger) (*EvidenceStore, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("cloudinary credentials must be provided")
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary: %w", err)
	}

	return newEvidenceStore(&cld.Upload, cfg, logger), nil
}

func newEvidenceStore(assets assetUploader, cfg Config, logger zerolog.Logger) *EvidenceStore {
	tags := cfg.Tags
	if len(tags) == 0 {
		tags = []string{"skp-evidence"}
	}
	return &EvidenceStore{
		assets: assets,
		folder: strings.Trim(cfg.Folder, "/"),
		tags:   tags,
		logger: logger.With().Str("component", "cloudinary_evidence").Logger(),
	}
}

// Upload stores one evidence file. Documents are kept as raw assets so PDFs are served
// unmodified; images go through Cloudinary's image pipeline.
func (s *EvidenceStore) Upload(ctx context.Context, name string, reader io.Reader) (string, error) {
	params := uploader.UploadParams{
		Folder:       s.folder,
		PublicID:     evidencePublicID(name),
		ResourceType: resourceType(name),
		Tags:         s.tags,
		Context:      map[string]string{"original_name": filepath.Base(name)},
	}

	result, err := s.assets.Upload(ctx, reader, params)
	if err != nil {
		return "", fmt.Errorf("upload evidence to cloudinary: %w", err)
	}
	if result == nil {
		return "", ErrMissingSecureURL
	}
	if result.Error.Message != "" {
		return "", fmt.Errorf("upload evidence to cloudinary: %s", result.Error.Message)
	}
	if strings.TrimSpace(result.SecureURL) == "" {
		return "", ErrMissingSecureURL
	}

	s.logger.Info().Str("public_id", result.PublicID).Int("bytes", result.Bytes).Msg("evidence stored in cloudinary")
	return result.SecureURL, nil
}

func resourceType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png":
		return "image"
	default:
		return "raw"
	}
}

// evidencePublicID keeps a readable slug of the file name and appends a random suffix so
// two claims with the same certificate name never overwrite each other.
func evidencePublicID(name string) string {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(filepath.Base(name), ext)
	slug := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '-'
		}
	}, base)
	for strings.Contains(slug, "--") {
		slug = strings.ReplaceAll(slug, "--", "-")
	}
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = "evidence"
	}

	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	if resourceType(name) == "raw" && ext != "" {
		// raw assets keep their extension in the public id.
		return fmt.Sprintf("%s-%s%s", slug, suffix, strings.ToLower(ext))
	}
	return fmt.Sprintf("%s-%s", slug, suffix)
}
