// Package notes orchestrates the note pipeline: safety validation of the raw
// text, model structuring, embedding generation, then an atomic write of the
// note with its audit trail.
package notes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinscribe/clinscribe/internal/domain/auditlog"
	"github.com/clinscribe/clinscribe/internal/platform/db"
	"github.com/clinscribe/clinscribe/internal/platform/safety"
)

const auditEntityNote = "clinical_note"

// Structurer is the model-backed text structuring contract consumed by the
// pipeline. Satisfied by *ai.Structurer.
type Structurer interface {
	Structure(ctx context.Context, text, noteType string) (map[string]string, error)
	Summarize(ctx context.Context, historyText string) string
}

// Embedder produces a vector for note text, nil when unavailable.
type Embedder interface {
	Embed(ctx context.Context, text string) []float32
}

type Service struct {
	notes      NoteRepository
	versions   VersionRepository
	audit      *auditlog.Service
	validator  *safety.Validator
	structurer Structurer
	embedder   Embedder
	runner     db.Runner
	threshold  float64
	logger     zerolog.Logger
}

func NewService(
	notes NoteRepository,
	versions VersionRepository,
	audit *auditlog.Service,
	validator *safety.Validator,
	structurer Structurer,
	embedder Embedder,
	runner db.Runner,
	threshold float64,
	logger zerolog.Logger,
) *Service {
	return &Service{
		notes:      notes,
		versions:   versions,
		audit:      audit,
		validator:  validator,
		structurer: structurer,
		embedder:   embedder,
		runner:     runner,
		threshold:  threshold,
		logger:     logger.With().Str("component", "notes").Logger(),
	}
}

// CreateAndStructureNote runs the full pipeline. Safety or structuring
// failures abort before anything is written. The note row and its create
// audit entry commit in one transaction; a nil embedding is tolerated.
//
// When input carries an idempotency key that the owner already used, the
// previously created note is returned and no new work happens.
func (s *Service) CreateAndStructureNote(ctx context.Context, ownerID uuid.UUID, input CreateNoteInput) (*ClinicalNote, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	if input.IdempotencyKey != "" {
		existing, err := s.notes.GetByIdempotencyKey(ctx, ownerID, input.IdempotencyKey)
		if err == nil {
			s.logger.Info().Str("note_id", existing.ID.String()).Msg("idempotent create replayed")
			return existing, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}

	if err := s.checkSafety(input.RawContent); err != nil {
		return nil, err
	}

	structured, err := s.structurer.Structure(ctx, input.RawContent, input.NoteType)
	if err != nil {
		return nil, fmt.Errorf("structure note: %w", err)
	}

	embedding := s.embedder.Embed(ctx, embeddingText(input.Title, input.RawContent))

	note := &ClinicalNote{
		OwnerID:           ownerID,
		PatientID:         input.PatientID,
		Title:             input.Title,
		RawContent:        input.RawContent,
		StructuredContent: structured,
		NoteType:          input.NoteType,
		Status:            StatusDraft,
	}
	if input.IdempotencyKey != "" {
		key := input.IdempotencyKey
		note.IdempotencyKey = &key
	}

	err = s.runner.InTx(ctx, func(ctx context.Context) error {
		note.Embedding = embedding
		if err := s.notes.Create(ctx, note); err != nil {
			return err
		}
		if err := s.audit.Record(ctx, ownerID, auditlog.ActionCreate, auditEntityNote, &note.ID, "note created"); err != nil {
			return err
		}
		return s.audit.Record(ctx, ownerID, auditlog.ActionStructure, auditEntityNote, &note.ID,
			fmt.Sprintf("structured as %s", note.NoteType))
	})
	if errors.Is(err, ErrDuplicateKey) {
		// Lost the insert race on the idempotency key; the winner's row
		// is the canonical result.
		winner, err := s.notes.GetByIdempotencyKey(ctx, ownerID, input.IdempotencyKey)
		if errors.Is(err, ErrNotFound) {
			// The key is held by a soft-deleted note, invisible to the
			// replay lookup but still occupying the unique index.
			return nil, ErrKeyReserved
		}
		return winner, err
	}
	if err != nil {
		return nil, fmt.Errorf("persist note: %w", err)
	}

	s.logger.Info().
		Str("note_id", note.ID.String()).
		Str("note_type", note.NoteType).
		Bool("embedded", embedding != nil).
		Msg("note created")
	return note, nil
}

// UpdateNote applies an edit. When content (raw text or the structured
// section map) changes, the pre-update state is snapshotted as a version and
// an edit audit entry is recorded, all in one transaction with the update
// itself. A title-only change audits without a version; a status-only change
// writes neither.
func (s *Service) UpdateNote(ctx context.Context, ownerID, id uuid.UUID, input UpdateNoteInput) (*ClinicalNote, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	note, err := s.notes.GetByID(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	titleChanged := input.Title != nil && *input.Title != note.Title
	rawChanged := input.RawContent != nil && *input.RawContent != note.RawContent
	structChanged := input.StructuredContent != nil
	if rawChanged {
		if err := s.checkSafety(*input.RawContent); err != nil {
			return nil, err
		}
	}
	if structChanged {
		serialized, err := json.Marshal(input.StructuredContent)
		if err != nil {
			return nil, fmt.Errorf("encode structured content: %w", err)
		}
		if err := s.checkSafety(string(serialized)); err != nil {
			return nil, err
		}
	}

	// Versions snapshot content only; a title or status change alone appends
	// no version.
	snapshot := &NoteVersion{
		NoteID:            note.ID,
		EditorID:          ownerID,
		RawContent:        note.RawContent,
		StructuredContent: note.StructuredContent,
	}

	if input.Title != nil {
		note.Title = *input.Title
	}
	if input.Status != nil {
		note.Status = *input.Status
	}
	if rawChanged {
		structured, err := s.structurer.Structure(ctx, *input.RawContent, note.NoteType)
		if err != nil {
			return nil, fmt.Errorf("structure note: %w", err)
		}
		note.RawContent = *input.RawContent
		note.StructuredContent = structured
		note.Embedding = s.embedder.Embed(ctx, embeddingText(note.Title, note.RawContent))
	}
	// A manual section edit replaces the map wholesale and overrides any
	// sections the structuring engine produced for this update.
	if structChanged {
		note.StructuredContent = input.StructuredContent
	}

	contentChanged := rawChanged || structChanged
	err = s.runner.InTx(ctx, func(ctx context.Context) error {
		if contentChanged {
			if err := s.versions.Create(ctx, snapshot); err != nil {
				return err
			}
		}
		if err := s.notes.Update(ctx, note); err != nil {
			return err
		}
		if contentChanged || titleChanged {
			return s.audit.Record(ctx, ownerID, auditlog.ActionEdit, auditEntityNote, &note.ID, "note edited")
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("persist note update: %w", err)
	}
	return note, nil
}

// FinalizeNote moves a draft to finalized and records an approve audit entry.
func (s *Service) FinalizeNote(ctx context.Context, ownerID, id uuid.UUID) (*ClinicalNote, error) {
	note, err := s.notes.GetByID(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if note.Status == StatusFinalized {
		return note, nil
	}
	note.Status = StatusFinalized

	err = s.runner.InTx(ctx, func(ctx context.Context) error {
		if err := s.notes.Update(ctx, note); err != nil {
			return err
		}
		return s.audit.Record(ctx, ownerID, auditlog.ActionApprove, auditEntityNote, &note.ID, "note finalized")
	})
	if err != nil {
		return nil, fmt.Errorf("finalize note: %w", err)
	}
	return note, nil
}

// SoftDeleteNote hides the note from every read path and records a delete
// audit entry. The row, its versions, and its audit trail remain.
func (s *Service) SoftDeleteNote(ctx context.Context, ownerID, id uuid.UUID) error {
	err := s.runner.InTx(ctx, func(ctx context.Context) error {
		if err := s.notes.SoftDelete(ctx, ownerID, id); err != nil {
			return err
		}
		return s.audit.Record(ctx, ownerID, auditlog.ActionDelete, auditEntityNote, &id, "note deleted")
	})
	if errors.Is(err, ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	return nil
}

func (s *Service) GetNote(ctx context.Context, ownerID, id uuid.UUID) (*ClinicalNote, error) {
	return s.notes.GetByID(ctx, ownerID, id)
}

// OwnsNote reports whether the note exists, is not deleted, and belongs to
// ownerID. Used by read surfaces outside this package to scope access.
func (s *Service) OwnsNote(ctx context.Context, ownerID, id uuid.UUID) (bool, error) {
	_, err := s.notes.GetByID(ctx, ownerID, id)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) ListNotes(ctx context.Context, ownerID uuid.UUID, titleFilter string, limit, offset int) ([]*ClinicalNote, int, error) {
	return s.notes.List(ctx, ownerID, titleFilter, limit, offset)
}

func (s *Service) ListByPatient(ctx context.Context, ownerID, patientID uuid.UUID, limit, offset int) ([]*ClinicalNote, int, error) {
	return s.notes.ListByPatient(ctx, ownerID, patientID, limit, offset)
}

// GetHistory returns a note's version snapshots, newest first. Ownership is
// checked against the note itself.
func (s *Service) GetHistory(ctx context.Context, ownerID, id uuid.UUID) ([]*NoteVersion, error) {
	if _, err := s.notes.GetByID(ctx, ownerID, id); err != nil {
		return nil, err
	}
	return s.versions.ListByNote(ctx, id)
}

// SummarizeHistory produces a short narrative over a patient's notes. It is
// non-authoritative and degrades to a fallback string on provider failure.
func (s *Service) SummarizeHistory(ctx context.Context, ownerID, patientID uuid.UUID) (string, error) {
	items, _, err := s.notes.ListByPatient(ctx, ownerID, patientID, 50, 0)
	if err != nil {
		return "", err
	}
	if len(items) == 0 {
		return "No notes on record for this patient.", nil
	}

	var b strings.Builder
	for i := len(items) - 1; i >= 0; i-- {
		n := items[i]
		fmt.Fprintf(&b, "[%s] %s: %s\n", n.CreatedAt.Format("2006-01-02"), n.Title, n.RawContent)
	}
	return s.structurer.Summarize(ctx, b.String()), nil
}

// Sanitize rewrites prescriptive phrasing into observational language. It is
// an explicit tool for authors, never applied implicitly.
func (s *Service) Sanitize(text string) string {
	return safety.Sanitize(text)
}

// embeddingText is what gets vectorized for a note. Including the title makes
// its terms reachable by semantic search.
func embeddingText(title, raw string) string {
	return title + " " + raw
}

func (s *Service) checkSafety(text string) error {
	ok, reasons := s.validator.Validate(text)
	if !ok {
		return &SafetyError{Reasons: reasons}
	}
	return nil
}
