package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"docflow/internal/model"
	"docflow/internal/repository"
)

// RecordPostgres is a PostgreSQL implementation of repository.RecordStore.
// Both record kinds live in one table; the optional fields of the other kind
// are stored as empty strings and the link list as a JSONB array.
type RecordPostgres struct {
	db *sql.DB
}

// NewRecordPostgres creates a new RecordPostgres store.
func NewRecordPostgres(db *sql.DB) *RecordPostgres {
	return &RecordPostgres{db: db}
}

var _ repository.RecordStore = (*RecordPostgres)(nil)

const recordColumns = `id, kind, number, description, document_type, process_id, process_number,
		file_name, file_content_type, file_storage_key, file_size, linked_despacho_ids, created_at`

// List returns the full collection ordered by creation time descending.
func (r *RecordPostgres) List(ctx context.Context) ([]model.Record, error) {
	q := `
		SELECT ` + recordColumns + `
		FROM records
		ORDER BY created_at DESC, id DESC
	`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// Create inserts a new record row and returns the stored record.
func (r *RecordPostgres) Create(ctx context.Context, rec *model.Record) (*model.Record, error) {
	q := `
		INSERT INTO records (` + recordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING ` + recordColumns + `
	`
	linked, err := marshalLinks(rec.LinkedDespachoIDs)
	if err != nil {
		return nil, err
	}
	row := r.db.QueryRowContext(ctx, q,
		rec.ID,
		string(rec.Kind),
		rec.Number,
		rec.Description,
		rec.DocumentType,
		rec.ProcessID,
		rec.ProcessNumber,
		rec.File.Name,
		rec.File.ContentType,
		rec.File.StorageKey,
		rec.File.Size,
		linked,
		rec.CreatedAt,
	)
	return scanRecord(row)
}

// Update replaces the mutable columns of an existing row. Only the link list
// ever changes after creation, but the full record is written to keep the
// store contract simple.
func (r *RecordPostgres) Update(ctx context.Context, rec *model.Record) (*model.Record, error) {
	q := `
		UPDATE records
		SET number = $2, description = $3, document_type = $4, process_id = $5,
			process_number = $6, file_name = $7, file_content_type = $8,
			file_storage_key = $9, file_size = $10, linked_despacho_ids = $11
		WHERE id = $1
		RETURNING ` + recordColumns + `
	`
	linked, err := marshalLinks(rec.LinkedDespachoIDs)
	if err != nil {
		return nil, err
	}
	row := r.db.QueryRowContext(ctx, q,
		rec.ID,
		rec.Number,
		rec.Description,
		rec.DocumentType,
		rec.ProcessID,
		rec.ProcessNumber,
		rec.File.Name,
		rec.File.ContentType,
		rec.File.StorageKey,
		rec.File.Size,
		linked,
	)
	return scanRecord(row)
}

// Delete removes a record by ID. It does not return an error if the row does
// not exist.
func (r *RecordPostgres) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM records WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	_, _ = res.RowsAffected()
	return nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*model.Record, error) {
	var (
		rec    model.Record
		kind   string
		linked []byte
	)
	if err := s.Scan(
		&rec.ID,
		&kind,
		&rec.Number,
		&rec.Description,
		&rec.DocumentType,
		&rec.ProcessID,
		&rec.ProcessNumber,
		&rec.File.Name,
		&rec.File.ContentType,
		&rec.File.StorageKey,
		&rec.File.Size,
		&linked,
		&rec.CreatedAt,
	); err != nil {
		return nil, err
	}
	rec.Kind = model.Kind(kind)
	if len(linked) > 0 {
		if err := json.Unmarshal(linked, &rec.LinkedDespachoIDs); err != nil {
			return nil, fmt.Errorf("decode linked despacho ids: %w", err)
		}
	}
	return &rec, nil
}

func marshalLinks(ids []string) ([]byte, error) {
	if ids == nil {
		ids = []string{}
	}
	return json.Marshal(ids)
}
