package notes

import (
	"context"

	"github.com/google/uuid"
)

type NoteRepository interface {
	Create(ctx context.Context, n *ClinicalNote) error
	GetByID(ctx context.Context, ownerID, id uuid.UUID) (*ClinicalNote, error)
	GetByIdempotencyKey(ctx context.Context, ownerID uuid.UUID, key string) (*ClinicalNote, error)
	Update(ctx context.Context, n *ClinicalNote) error
	SoftDelete(ctx context.Context, ownerID, id uuid.UUID) error
	List(ctx context.Context, ownerID uuid.UUID, titleFilter string, limit, offset int) ([]*ClinicalNote, int, error)
	ListByPatient(ctx context.Context, ownerID, patientID uuid.UUID, limit, offset int) ([]*ClinicalNote, int, error)
	ListWithEmbeddings(ctx context.Context, ownerID uuid.UUID) ([]*ClinicalNote, error)
}

type VersionRepository interface {
	Create(ctx context.Context, v *NoteVersion) error
	ListByNote(ctx context.Context, noteID uuid.UUID) ([]*NoteVersion, error)
}
