package localstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"docflow/internal/model"
	"docflow/internal/repository"
)

// Store is the local fallback implementation of repository.RecordStore, used
// when the remote backend is unreachable at startup. It keeps the whole
// collection serialized as a single JSON entry in a SQLite key-value table,
// mirroring the durable key-value shape of the earliest deployments.
type Store struct {
	db *sql.DB
}

const collectionKey = "records"

var _ repository.RecordStore = (*Store)(nil)

// Open opens (or creates) the SQLite file at path and ensures the schema.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("local store path is required")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}
	// modernc.org/sqlite connections do not tolerate concurrent writers.
	db.SetMaxOpenConns(1)

	const schema = `
		CREATE TABLE IF NOT EXISTS app_state (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create local store schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// List returns the stored collection. Records are kept newest-first on disk,
// so no reordering is needed.
func (s *Store) List(ctx context.Context) ([]model.Record, error) {
	return s.load(ctx)
}

// Create prepends the record to the stored collection.
func (s *Store) Create(ctx context.Context, rec *model.Record) (*model.Record, error) {
	records, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	records = append([]model.Record{*rec}, records...)
	if err := s.save(ctx, records); err != nil {
		return nil, err
	}
	out := *rec
	return &out, nil
}

// Update replaces the stored record with the same ID.
func (s *Store) Update(ctx context.Context, rec *model.Record) (*model.Record, error) {
	records, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	found := false
	for i := range records {
		if records[i].ID == rec.ID {
			records[i] = *rec
			found = true
			break
		}
	}
	if !found {
		return nil, repository.ErrNotFound
	}
	if err := s.save(ctx, records); err != nil {
		return nil, err
	}
	out := *rec
	return &out, nil
}

// Delete removes the record with the given ID, if present.
func (s *Store) Delete(ctx context.Context, id string) error {
	records, err := s.load(ctx)
	if err != nil {
		return err
	}
	kept := records[:0]
	for _, r := range records {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	return s.save(ctx, kept)
}

func (s *Store) load(ctx context.Context) ([]model.Record, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM app_state WHERE key = ?`, collectionKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return []model.Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load collection: %w", err)
	}
	return decodeCollection([]byte(raw))
}

func (s *Store) save(ctx context.Context, records []model.Record) error {
	if records == nil {
		records = []model.Record{}
	}
	b, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode collection: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO app_state (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, collectionKey, string(b))
	if err != nil {
		return fmt.Errorf("save collection: %w", err)
	}
	return nil
}

// diskRecord mirrors model.Record with created_at left raw so that entries
// written by the earliest deployments (locale-formatted dates) still load.
type diskRecord struct {
	ID                string        `json:"id"`
	Kind              model.Kind    `json:"kind"`
	Number            string        `json:"number,omitempty"`
	Description       string        `json:"description,omitempty"`
	DocumentType      string        `json:"document_type,omitempty"`
	ProcessID         string        `json:"process_id,omitempty"`
	ProcessNumber     string        `json:"process_number,omitempty"`
	File              model.FileRef `json:"file"`
	LinkedDespachoIDs []string      `json:"linked_despacho_ids,omitempty"`
	CreatedAt         string        `json:"created_at"`
}

// legacyDateLayout is the pt-BR locale date the first variant persisted.
const legacyDateLayout = "02/01/2006"

func decodeCollection(raw []byte) ([]model.Record, error) {
	var disk []diskRecord
	if err := json.Unmarshal(raw, &disk); err != nil {
		return nil, fmt.Errorf("decode collection: %w", err)
	}
	records := make([]model.Record, 0, len(disk))
	for _, d := range disk {
		createdAt, err := parseCreatedAt(d.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", d.ID, err)
		}
		records = append(records, model.Record{
			ID:                d.ID,
			Kind:              d.Kind,
			Number:            d.Number,
			Description:       d.Description,
			DocumentType:      d.DocumentType,
			ProcessID:         d.ProcessID,
			ProcessNumber:     d.ProcessNumber,
			File:              d.File,
			LinkedDespachoIDs: d.LinkedDespachoIDs,
			CreatedAt:         createdAt,
		})
	}
	return records, nil
}

func parseCreatedAt(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse(legacyDateLayout, raw); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("unrecognized created_at %q", raw)
}
