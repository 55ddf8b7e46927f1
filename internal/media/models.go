package media

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Preview lifecycle states. A preview record is only ever created by the
// claimant that moved the original from pending to processing.
const (
	PreviewPending    = "pending"
	PreviewProcessing = "processing"
	PreviewReady      = "ready"
	PreviewFailed     = "failed"
	PreviewSkipped    = "skipped"
)

// Object is one stored binary asset (original upload or derived preview)
// plus its metadata record. The blob payload lives in the object store under
// Filename.
type Object struct {
	ID               uuid.UUID  `json:"id"`
	Filename         string     `json:"filename"`
	OriginalFilename string     `json:"originalname"`
	ContentType      string     `json:"contentType"`
	SizeBytes        int64      `json:"size_bytes"`
	Uploader         string     `json:"uploader"`
	Approved         bool       `json:"approved"`
	IsPreview        bool       `json:"isPreview"`
	OriginalID       *uuid.UUID `json:"originalId,omitempty"`
	PreviewState     string     `json:"-"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// IsImage reports whether the stored content type is an image type.
func (o Object) IsImage() bool {
	return strings.HasPrefix(o.ContentType, "image/")
}

// IsVideo reports whether the stored content type is a video type.
func (o Object) IsVideo() bool {
	return strings.HasPrefix(o.ContentType, "video/")
}

// Derivable reports whether a preview can be produced for this object.
func (o Object) Derivable() bool {
	return !o.IsPreview && (o.IsImage() || o.IsVideo())
}

// DisplayName returns the filename used in Content-Disposition headers.
// Double quotes are stripped to prevent header injection.
func (o Object) DisplayName() string {
	name := o.OriginalFilename
	if name == "" {
		name = o.Filename
	}
	return strings.ReplaceAll(name, `"`, "")
}
