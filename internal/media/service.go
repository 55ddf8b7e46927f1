package media

import (
	"context"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// DefaultUploader labels objects uploaded without an uploader field.
const DefaultUploader = "anonymous"

// metadataStore abstracts the metadata index.
type metadataStore interface {
	Create(ctx context.Context, o Object) (Object, error)
	Get(ctx context.Context, id uuid.UUID) (Object, error)
	List(ctx context.Context) ([]Object, error)
	ListApproved(ctx context.Context, kind string) ([]Object, error)
	Approve(ctx context.Context, id uuid.UUID) (Object, error)
	Delete(ctx context.Context, id uuid.UUID) ([]Object, error)
	PreviewFor(ctx context.Context, originalID uuid.UUID) (Object, error)
	ClaimPreview(ctx context.Context, id uuid.UUID) (bool, error)
	SetPreviewState(ctx context.Context, id uuid.UUID, state string) error
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

// blobStore abstracts the binary payload store.
type blobStore interface {
	Put(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error
	Get(ctx context.Context, objectName string) (io.ReadCloser, error)
	GetRange(ctx context.Context, objectName string, start, end int64) (io.ReadCloser, error)
	Remove(ctx context.Context, objectName string) error
}

// Service manages media object lifecycle operations.
type Service struct {
	repo        metadataStore
	blobs       blobStore
	maxFileSize int64
}

// NewService constructs a media service.
func NewService(repo metadataStore, blobs blobStore, maxFileSize int64) *Service {
	return &Service{repo: repo, blobs: blobs, maxFileSize: maxFileSize}
}

// Upload stores one file's payload and metadata. Objects always start
// unapproved; derivation is the caller's concern.
func (s *Service) Upload(ctx context.Context, fileHeader *multipart.FileHeader, uploader string) (Object, error) {
	if fileHeader == nil {
		return Object{}, fmt.Errorf("missing file payload")
	}
	if s.maxFileSize > 0 && fileHeader.Size > s.maxFileSize {
		return Object{}, ErrFileTooLarge
	}

	uploader = strings.TrimSpace(uploader)
	if uploader == "" {
		uploader = DefaultUploader
	}

	id := uuid.New()
	filename := generatedFilename(id, fileHeader.Filename)
	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	file, err := fileHeader.Open()
	if err != nil {
		return Object{}, fmt.Errorf("open upload file: %w", err)
	}
	defer file.Close()

	if err := s.blobs.Put(ctx, filename, file, fileHeader.Size, contentType); err != nil {
		return Object{}, fmt.Errorf("store blob: %w", err)
	}

	stored, err := s.repo.Create(ctx, Object{
		ID:               id,
		Filename:         filename,
		OriginalFilename: fileHeader.Filename,
		ContentType:      contentType,
		SizeBytes:        fileHeader.Size,
		Uploader:         uploader,
		Approved:         false,
		IsPreview:        false,
		PreviewState:     PreviewPending,
	})
	if err != nil {
		_ = s.blobs.Remove(ctx, filename)
		return Object{}, err
	}
	return stored, nil
}

// Get fetches a single metadata record.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Object, error) {
	return s.repo.Get(ctx, id)
}

// List returns every metadata record for the admin view.
func (s *Service) List(ctx context.Context) ([]Object, error) {
	return s.repo.List(ctx)
}

// Gallery returns approved originals, optionally filtered by kind
// ("image" or "video").
func (s *Service) Gallery(ctx context.Context, kind string) ([]Object, error) {
	return s.repo.ListApproved(ctx, kind)
}

// Approve flips the approval flag. Idempotent.
func (s *Service) Approve(ctx context.Context, id uuid.UUID) (Object, error) {
	return s.repo.Approve(ctx, id)
}

// Delete removes an original together with any linked previews, metadata and
// blobs both. Blob removal failures are logged; the metadata delete already
// made the objects unreachable.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	removed, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	for _, o := range removed {
		if err := s.blobs.Remove(ctx, o.Filename); err != nil {
			log.Printf("media: remove blob %s: %v", o.Filename, err)
		}
	}
	return nil
}

// PreviewFor returns the preview object linked to the given original.
func (s *Service) PreviewFor(ctx context.Context, originalID uuid.UUID) (Object, error) {
	return s.repo.PreviewFor(ctx, originalID)
}

// Open returns a reader over the object's full payload.
func (s *Service) Open(ctx context.Context, o Object) (io.ReadCloser, error) {
	reader, err := s.blobs.Get(ctx, o.Filename)
	if err != nil {
		return nil, fmt.Errorf("fetch blob: %w", err)
	}
	return reader, nil
}

// OpenRange returns a reader over the inclusive byte span [start, end].
func (s *Service) OpenRange(ctx context.Context, o Object, start, end int64) (io.ReadCloser, error) {
	reader, err := s.blobs.GetRange(ctx, o.Filename, start, end)
	if err != nil {
		return nil, fmt.Errorf("fetch blob range: %w", err)
	}
	return reader, nil
}

// generatedFilename builds a collision-resistant stored filename preserving
// the user-supplied extension.
func generatedFilename(id uuid.UUID, originalName string) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	// extensions are untrusted input; anything odd is dropped
	if len(ext) > 8 || strings.ContainsAny(ext, `/\"`) {
		ext = ""
	}
	return strings.ReplaceAll(id.String(), "-", "") + ext
}
