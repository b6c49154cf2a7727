package notes

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clinscribe/clinscribe/internal/platform/ai"
)

const (
	StatusDraft     = "draft"
	StatusFinalized = "finalized"
)

var validStatuses = map[string]bool{
	StatusDraft:     true,
	StatusFinalized: true,
}

const (
	minRawLength = 10
	maxRawLength = 50000
)

// ClinicalNote maps to the clinical_note table. StructuredContent is the
// section map produced by the structuring engine; Embedding is nil when
// generation failed or has not happened.
type ClinicalNote struct {
	ID                uuid.UUID         `db:"id" json:"id"`
	OwnerID           uuid.UUID         `db:"owner_id" json:"owner_id"`
	PatientID         *uuid.UUID        `db:"patient_id" json:"patient_id,omitempty"`
	Title             string            `db:"title" json:"title"`
	RawContent        string            `db:"raw_content" json:"raw_content"`
	StructuredContent map[string]string `db:"structured_content" json:"structured_content"`
	NoteType          string            `db:"note_type" json:"note_type"`
	Status            string            `db:"status" json:"status"`
	Embedding         []float32         `db:"embedding" json:"-"`
	IdempotencyKey    *string           `db:"idempotency_key" json:"-"`
	IsDeleted         bool              `db:"is_deleted" json:"-"`
	DeletedAt         *time.Time        `db:"deleted_at" json:"-"`
	CreatedAt         time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time         `db:"updated_at" json:"updated_at"`
}

// NoteVersion is an immutable snapshot of a note's content as it was before
// an edit. Versions are never updated or deleted.
type NoteVersion struct {
	ID                uuid.UUID         `db:"id" json:"id"`
	NoteID            uuid.UUID         `db:"note_id" json:"note_id"`
	EditorID          uuid.UUID         `db:"editor_id" json:"editor_id"`
	RawContent        string            `db:"raw_content" json:"raw_content"`
	StructuredContent map[string]string `db:"structured_content" json:"structured_content"`
	CreatedAt         time.Time         `db:"created_at" json:"created_at"`
}

// CreateNoteInput carries a note creation request into the service.
type CreateNoteInput struct {
	Title          string     `json:"title"`
	RawContent     string     `json:"raw_text"`
	NoteType       string     `json:"note_type"`
	PatientID      *uuid.UUID `json:"patient_id,omitempty"`
	IdempotencyKey string     `json:"-"`
}

// UpdateNoteInput carries a note edit. Nil fields are left unchanged. A
// non-nil StructuredContent replaces the section map wholesale without
// re-running the structuring engine.
type UpdateNoteInput struct {
	Title             *string           `json:"title,omitempty"`
	RawContent        *string           `json:"raw_text,omitempty"`
	StructuredContent map[string]string `json:"structured_content,omitempty"`
	Status            *string           `json:"status,omitempty"`
}

// Validate checks a creation request before any model call is made.
func (in *CreateNoteInput) Validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return validationErrorf("title is required")
	}
	if err := validateRawContent(in.RawContent); err != nil {
		return err
	}
	if in.NoteType == "" {
		in.NoteType = ai.NoteTypeSOAP
	}
	if !ai.IsValidNoteType(in.NoteType) {
		return validationErrorf("invalid note type %q", in.NoteType)
	}
	return nil
}

func (in *UpdateNoteInput) Validate() error {
	if in.Title == nil && in.RawContent == nil && in.StructuredContent == nil && in.Status == nil {
		return validationErrorf("no fields to update")
	}
	if in.Title != nil && strings.TrimSpace(*in.Title) == "" {
		return validationErrorf("title cannot be empty")
	}
	if in.RawContent != nil {
		if err := validateRawContent(*in.RawContent); err != nil {
			return err
		}
	}
	if in.Status != nil && !validStatuses[*in.Status] {
		return validationErrorf("invalid status %q", *in.Status)
	}
	return nil
}

func validateRawContent(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return validationErrorf("note text cannot be empty")
	}
	if len(raw) < minRawLength {
		return validationErrorf("note text must be at least %d characters", minRawLength)
	}
	if len(raw) > maxRawLength {
		return validationErrorf("note text must be at most %d characters", maxRawLength)
	}
	return nil
}
