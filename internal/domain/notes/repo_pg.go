package notes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinscribe/clinscribe/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// =========== Note Repository ===========

type noteRepoPG struct{ pool *pgxpool.Pool }

func NewNoteRepoPG(pool *pgxpool.Pool) NoteRepository { return &noteRepoPG{pool: pool} }

func (r *noteRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const noteCols = `id, owner_id, patient_id, title, raw_content, structured_content,
	note_type, status, embedding, idempotency_key, is_deleted, deleted_at, created_at, updated_at`

func scanNote(row pgx.Row) (*ClinicalNote, error) {
	var n ClinicalNote
	var structured []byte
	err := row.Scan(&n.ID, &n.OwnerID, &n.PatientID, &n.Title, &n.RawContent, &structured,
		&n.NoteType, &n.Status, &n.Embedding, &n.IdempotencyKey, &n.IsDeleted, &n.DeletedAt,
		&n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if len(structured) > 0 {
		if err := json.Unmarshal(structured, &n.StructuredContent); err != nil {
			return nil, fmt.Errorf("decode structured content: %w", err)
		}
	}
	return &n, nil
}

func (r *noteRepoPG) Create(ctx context.Context, n *ClinicalNote) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	structured, err := json.Marshal(n.StructuredContent)
	if err != nil {
		return fmt.Errorf("encode structured content: %w", err)
	}
	_, err = r.conn(ctx).Exec(ctx, `
		INSERT INTO clinical_note (id, owner_id, patient_id, title, raw_content,
			structured_content, note_type, status, embedding, idempotency_key)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		n.ID, n.OwnerID, n.PatientID, n.Title, n.RawContent,
		structured, n.NoteType, n.Status, n.Embedding, n.IdempotencyKey)
	if isUniqueViolation(err) {
		return ErrDuplicateKey
	}
	return err
}

func (r *noteRepoPG) GetByID(ctx context.Context, ownerID, id uuid.UUID) (*ClinicalNote, error) {
	return scanNote(r.conn(ctx).QueryRow(ctx,
		`SELECT `+noteCols+` FROM clinical_note WHERE id = $1 AND owner_id = $2 AND NOT is_deleted`,
		id, ownerID))
}

func (r *noteRepoPG) GetByIdempotencyKey(ctx context.Context, ownerID uuid.UUID, key string) (*ClinicalNote, error) {
	return scanNote(r.conn(ctx).QueryRow(ctx,
		`SELECT `+noteCols+` FROM clinical_note WHERE owner_id = $1 AND idempotency_key = $2 AND NOT is_deleted`,
		ownerID, key))
}

func (r *noteRepoPG) Update(ctx context.Context, n *ClinicalNote) error {
	structured, err := json.Marshal(n.StructuredContent)
	if err != nil {
		return fmt.Errorf("encode structured content: %w", err)
	}
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE clinical_note
		SET title=$3, raw_content=$4, structured_content=$5, status=$6, embedding=$7, updated_at=NOW()
		WHERE id = $1 AND owner_id = $2 AND NOT is_deleted`,
		n.ID, n.OwnerID, n.Title, n.RawContent, structured, n.Status, n.Embedding)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *noteRepoPG) SoftDelete(ctx context.Context, ownerID, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE clinical_note SET is_deleted = TRUE, deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND owner_id = $2 AND NOT is_deleted`,
		id, ownerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *noteRepoPG) List(ctx context.Context, ownerID uuid.UUID, titleFilter string, limit, offset int) ([]*ClinicalNote, int, error) {
	where := `owner_id = $1 AND NOT is_deleted`
	args := []interface{}{ownerID}
	if titleFilter != "" {
		where += ` AND title ILIKE $2`
		args = append(args, "%"+titleFilter+"%")
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM clinical_note WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx,
		fmt.Sprintf(`SELECT %s FROM clinical_note WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
			noteCols, where, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items, err := collectNotes(rows)
	return items, total, err
}

func (r *noteRepoPG) ListByPatient(ctx context.Context, ownerID, patientID uuid.UUID, limit, offset int) ([]*ClinicalNote, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM clinical_note WHERE owner_id = $1 AND patient_id = $2 AND NOT is_deleted`,
		ownerID, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+noteCols+` FROM clinical_note
		 WHERE owner_id = $1 AND patient_id = $2 AND NOT is_deleted
		 ORDER BY created_at DESC LIMIT $3 OFFSET $4`,
		ownerID, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items, err := collectNotes(rows)
	return items, total, err
}

func (r *noteRepoPG) ListWithEmbeddings(ctx context.Context, ownerID uuid.UUID) ([]*ClinicalNote, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+noteCols+` FROM clinical_note
		 WHERE owner_id = $1 AND NOT is_deleted AND embedding IS NOT NULL
		 ORDER BY created_at DESC`,
		ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectNotes(rows)
}

func collectNotes(rows pgx.Rows) ([]*ClinicalNote, error) {
	var items []*ClinicalNote
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, n)
	}
	return items, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// =========== Version Repository ===========

type versionRepoPG struct{ pool *pgxpool.Pool }

func NewVersionRepoPG(pool *pgxpool.Pool) VersionRepository { return &versionRepoPG{pool: pool} }

func (r *versionRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *versionRepoPG) Create(ctx context.Context, v *NoteVersion) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	structured, err := json.Marshal(v.StructuredContent)
	if err != nil {
		return fmt.Errorf("encode structured content: %w", err)
	}
	_, err = r.conn(ctx).Exec(ctx, `
		INSERT INTO note_version (id, note_id, editor_id, raw_content, structured_content)
		VALUES ($1,$2,$3,$4,$5)`,
		v.ID, v.NoteID, v.EditorID, v.RawContent, structured)
	return err
}

func (r *versionRepoPG) ListByNote(ctx context.Context, noteID uuid.UUID) ([]*NoteVersion, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, note_id, editor_id, raw_content, structured_content, created_at
		FROM note_version WHERE note_id = $1 ORDER BY created_at DESC`,
		noteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*NoteVersion
	for rows.Next() {
		var v NoteVersion
		var structured []byte
		if err := rows.Scan(&v.ID, &v.NoteID, &v.EditorID, &v.RawContent, &structured, &v.CreatedAt); err != nil {
			return nil, err
		}
		if len(structured) > 0 {
			if err := json.Unmarshal(structured, &v.StructuredContent); err != nil {
				return nil, fmt.Errorf("decode structured content: %w", err)
			}
		}
		items = append(items, &v)
	}
	return items, rows.Err()
}
