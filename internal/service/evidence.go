package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/skp-companion/internal/dto"
	"github.com/noah-isme/skp-companion/internal/models"
	"github.com/noah-isme/skp-companion/internal/observability"
	"github.com/noah-isme/skp-companion/internal/remote"
)

var allowedEvidenceTypes = map[string]string{
	"application/pdf": ".pdf",
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
}

var evidenceTypeByExtension = map[string]string{
	".pdf":  "application/pdf",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
}

// FileStorage abstracts an additional evidence destination such as Cloudinary.
type FileStorage interface {
	Upload(ctx context.Context, name string, reader io.Reader) (string, error)
}

// evidenceContent is a validated evidence file. readErr is set when the file could not be
// read; such evidence degrades to a placeholder.
type evidenceContent struct {
	name     string
	size     int64
	mimeType string
	data     []byte
	readErr  error
}

type uploadTarget struct {
	name   string
	upload func(ctx context.Context, content *evidenceContent) (string, error)
}

type evidenceMaterializer struct {
	client    *remote.Client
	endpoints []string
	storage   FileStorage
	maxSize   int64
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// defaultEvidenceMaxMB matches the evidence.max_mb config default.
const defaultEvidenceMaxMB = 10

func newEvidenceMaterializer(client *remote.Client, endpoints []string, storage FileStorage, maxSizeMB int, logger zerolog.Logger, tracer trace.Tracer) *evidenceMaterializer {
	if maxSizeMB <= 0 {
		maxSizeMB = defaultEvidenceMaxMB
	}
	return &evidenceMaterializer{
		client:    client,
		endpoints: endpoints,
		storage:   storage,
		maxSize:   int64(maxSizeMB) * 1024 * 1024,
		logger:    logger,
		tracer:    tracer,
	}
}

// inspect enforces size and type limits. Read failures are not validation failures.
func (m *evidenceMaterializer) inspect(file *dto.EvidenceFile) (*evidenceContent, error) {
	if file == nil {
		return nil, ErrEvidenceRequired
	}
	if file.Size > m.maxSize {
		return nil, ErrEvidenceTooLarge
	}

	content := &evidenceContent{
		name: sanitizeFileName(file.FileName),
		size: file.Size,
	}

	data, err := m.read(file)
	if err != nil {
		content.readErr = err
		mimeType, ok := evidenceTypeByExtension[strings.ToLower(filepath.Ext(content.name))]
		if !ok {
			return nil, ErrEvidenceTypeNotAllowed
		}
		content.mimeType = mimeType
		return content, nil
	}
	if int64(len(data)) > m.maxSize {
		return nil, ErrEvidenceTooLarge
	}

	mimeType := normalizeMime(mimetype.Detect(data).String())
	if _, ok := allowedEvidenceTypes[mimeType]; !ok {
		return nil, ErrEvidenceTypeNotAllowed
	}

	content.data = data
	content.size = int64(len(data))
	content.mimeType = mimeType
	return content, nil
}

func (m *evidenceMaterializer) read(file *dto.EvidenceFile) ([]byte, error) {
	if file.Open == nil {
		return nil, errors.New("evidence file cannot be opened")
	}
	handle, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("open evidence: %w", err)
	}
	defer handle.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(handle, m.maxSize+1)); err != nil {
		return nil, fmt.Errorf("read evidence: %w", err)
	}
	return buf.Bytes(), nil
}

// materialize turns the evidence into a reference: an uploaded URL when any destination
// accepts it, else an inline data URI, else a textual placeholder.
func (m *evidenceMaterializer) materialize(ctx context.Context, token string, content *evidenceContent) models.EvidenceReference {
	ctx, span := m.tracer.Start(ctx, "evidence.materialize")
	defer span.End()

	span.SetAttributes(
		attribute.String("evidence.name", content.name),
		attribute.Int64("evidence.size_bytes", content.size),
		attribute.String("evidence.mime", content.mimeType),
	)

	ref := models.EvidenceReference{
		FileName:  content.name,
		MimeType:  content.mimeType,
		SizeBytes: content.size,
	}

	if content.readErr != nil {
		span.RecordError(content.readErr)
		m.logger.Warn().Err(content.readErr).Str("file", content.name).Msg("evidence could not be encoded, using placeholder")
		ref.Kind = models.EvidenceKindPlaceholder
		ref.Placeholder = fmt.Sprintf("%s (%d bytes) - evidence could not be encoded", content.name, content.size)
		return m.finish(span, ref)
	}

	url, err := remote.FirstSuccess(ctx, m.targets(token), func(ctx context.Context, target uploadTarget) (string, error) {
		return target.upload(ctx, content)
	})
	if err == nil {
		ref.Kind = models.EvidenceKindURL
		ref.URL = url
		return m.finish(span, ref)
	}

	span.RecordError(err)
	m.logger.Warn().Err(err).Str("file", content.name).Msg("evidence upload failed, embedding file inline")
	ref.Kind = models.EvidenceKindInline
	ref.Data = "data:" + content.mimeType + ";base64," + base64.StdEncoding.EncodeToString(content.data)
	return m.finish(span, ref)
}

func (m *evidenceMaterializer) finish(span trace.Span, ref models.EvidenceReference) models.EvidenceReference {
	span.SetAttributes(attribute.String("evidence.kind", ref.Kind))
	if ref.Kind == models.EvidenceKindURL {
		span.SetStatus(codes.Ok, "uploaded")
	} else {
		span.SetStatus(codes.Error, "degraded")
	}
	observability.EvidenceReferences().WithLabelValues(ref.Kind).Inc()
	return ref
}

func (m *evidenceMaterializer) targets(token string) []uploadTarget {
	targets := make([]uploadTarget, 0, len(m.endpoints)+1)
	if m.client != nil {
		for _, endpoint := range m.endpoints {
			path := endpoint
			targets = append(targets, uploadTarget{
				name: path,
				upload: func(ctx context.Context, content *evidenceContent) (string, error) {
					return m.client.Upload(ctx, path, token, content.name, content.mimeType, bytes.NewReader(content.data))
				},
			})
		}
	}
	if m.storage != nil {
		targets = append(targets, uploadTarget{
			name: "storage",
			upload: func(ctx context.Context, content *evidenceContent) (string, error) {
				return m.storage.Upload(ctx, content.name, bytes.NewReader(content.data))
			},
		})
	}
	return targets
}

func normalizeMime(value string) string {
	if idx := strings.Index(value, ";"); idx >= 0 {
		value = value[:idx]
	}
	return strings.ToLower(strings.TrimSpace(value))
}

func sanitizeFileName(name string) string {
	base := filepath.Base(strings.TrimSpace(name))
	if base == "." || base == string(filepath.Separator) {
		return "evidence"
	}
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.' || r == '-' || r == '_':
			return r
		case r == ' ':
			return '_'
		default:
			return -1
		}
	}, base)
	if cleaned == "" || strings.Trim(cleaned, ".") == "" {
		return "evidence"
	}
	return cleaned
}
