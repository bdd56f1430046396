package document

import (
	"time"

	"github.com/frahmantamala/claim-workflow/internal"
	"github.com/google/uuid"
)

// Kind distinguishes a workflow-generated signed PDF from a scanned or
// photographed receipt attached to a line item.
type Kind string

const (
	KindGenerated  Kind = "generated"
	KindAttachment Kind = "attachment"
)

// Document is a binary artifact owned 1:1 by a claim or a line item.
type Document struct {
	ID          int64     `json:"-" gorm:"primaryKey"`
	UID         string    `json:"uid" gorm:"column:uid;uniqueIndex;not null"`
	Kind        Kind      `json:"kind" gorm:"column:kind;not null"`
	ContentType string    `json:"content_type" gorm:"column:content_type;not null"`
	FileSize    int64     `json:"-" gorm:"column:file_size;not null"`
	Content     []byte    `json:"-" gorm:"column:content;not null"`
	CreatedAt   time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"column:updated_at"`
}

func (Document) TableName() string {
	return "documents"
}

func New(kind Kind, contentType string, size int64, content []byte) *Document {
	return &Document{
		UID:         uuid.NewString(),
		Kind:        kind,
		ContentType: contentType,
		FileSize:    size,
		Content:     content,
	}
}

// Replace swaps the stored content in place, keeping identity. Callers must
// run the guard first; Replace itself performs no policy checks.
func (d *Document) Replace(contentType string, size int64, content []byte) {
	d.ContentType = contentType
	d.FileSize = size
	d.Content = content
	d.UpdatedAt = time.Now()
}

var (
	ErrNoPriorDocument = internal.NewValidationError("document has never been exported, nothing to sign", internal.ErrCodeNoPriorDocument)
	ErrNotModified     = internal.NewValidationError("uploaded file has not been changed", internal.ErrCodeFileNotModified)
	ErrTooLarge        = internal.NewValidationError("uploaded file exceeds the maximum allowed size", internal.ErrCodeFileTooLarge)
	ErrTooSmall        = internal.NewValidationError("uploaded file is below the minimum allowed size", internal.ErrCodeFileTooSmall)
	ErrNotFound        = internal.NewNotFoundError("Document not found", internal.ErrCodeDocumentNotFound)
)

// CanReplaceSigned guards the signing slot of a claim. The rules run in
// order: a prior exported PDF must exist, the candidate must be strictly
// larger than it (a signed PDF grows; an unchanged re-upload does not),
// and the candidate must stay under maxSize.
//
// The strictly-larger rule is a heuristic and rejects a legitimately
// re-signed PDF that happens to compress smaller. Kept for parity with the
// established workflow behavior; see DESIGN.md before changing it.
func CanReplaceSigned(existing *Document, candidateSize, maxSize int64) error {
	if existing == nil {
		return ErrNoPriorDocument
	}
	if candidateSize <= existing.FileSize {
		return ErrNotModified
	}
	if candidateSize >= maxSize {
		return ErrTooLarge
	}
	return nil
}

// CanAttach guards first-time receipt uploads on a line item. There is no
// prior artifact to compare against, only a size band.
func CanAttach(candidateSize, minSize, maxSize int64) error {
	if candidateSize <= minSize {
		return ErrTooSmall
	}
	if candidateSize >= maxSize {
		return ErrTooLarge
	}
	return nil
}
