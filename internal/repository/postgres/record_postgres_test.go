package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"docflow/internal/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var recordCols = []string{
	"id", "kind", "number", "description", "document_type", "process_id", "process_number",
	"file_name", "file_content_type", "file_storage_key", "file_size", "linked_despacho_ids", "created_at",
}

func recordRow(mock sqlmock.Sqlmock, rec model.Record, linked string) *sqlmock.Rows {
	return mock.NewRows(recordCols).AddRow(
		rec.ID, string(rec.Kind), rec.Number, rec.Description, rec.DocumentType,
		rec.ProcessID, rec.ProcessNumber,
		rec.File.Name, rec.File.ContentType, rec.File.StorageKey, rec.File.Size,
		[]byte(linked), rec.CreatedAt,
	)
}

func TestList(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC()
	proc := model.Record{
		ID: "p1", Kind: model.KindProcess, Number: "2024-001",
		Description: "Road repair",
		File:        model.FileRef{Name: "a.pdf", ContentType: "application/pdf", StorageKey: "processes/a.pdf", Size: 42},
		CreatedAt:   now,
	}
	desp := model.Record{
		ID: "d1", Kind: model.KindDespacho, DocumentType: "ruling",
		ProcessID: "p1", ProcessNumber: "2024-001",
		File:      model.FileRef{Name: "b.docx"},
		CreatedAt: now.Add(time.Minute),
	}

	rows := recordRow(mock, desp, `[]`)
	rows.AddRow(
		proc.ID, string(proc.Kind), proc.Number, proc.Description, proc.DocumentType,
		proc.ProcessID, proc.ProcessNumber,
		proc.File.Name, proc.File.ContentType, proc.File.StorageKey, proc.File.Size,
		[]byte(`["d1"]`), proc.CreatedAt,
	)
	mock.ExpectQuery(`SELECT (.+) FROM records ORDER BY created_at DESC, id DESC`).
		WillReturnRows(rows)

	store := NewRecordPostgres(db)
	got, err := store.List(context.Background())

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "d1", got[0].ID)
	assert.Equal(t, "p1", got[1].ID)
	assert.Equal(t, []string{"d1"}, got[1].LinkedDespachoIDs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestList_Empty(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT (.+) FROM records`).
		WillReturnRows(mock.NewRows(recordCols))

	store := NewRecordPostgres(db)
	got, err := store.List(context.Background())

	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rec := model.Record{
		ID: "p1", Kind: model.KindProcess, Number: "2024-001",
		Description:       "Road repair",
		File:              model.FileRef{Name: "a.pdf", ContentType: "application/pdf"},
		LinkedDespachoIDs: []string{},
		CreatedAt:         time.Now().UTC(),
	}

	mock.ExpectQuery(`INSERT INTO records (.+) RETURNING`).
		WithArgs(
			rec.ID, "process", rec.Number, rec.Description, "", "", "",
			rec.File.Name, rec.File.ContentType, "", int64(0),
			[]byte(`[]`), rec.CreatedAt,
		).
		WillReturnRows(recordRow(mock, rec, `[]`))

	store := NewRecordPostgres(db)
	got, err := store.Create(context.Background(), &rec)

	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, rec.Number, got.Number)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_NilLinksStoredAsEmptyArray(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rec := model.Record{ID: "d1", Kind: model.KindDespacho, ProcessID: "p1", CreatedAt: time.Now().UTC()}

	mock.ExpectQuery(`INSERT INTO records`).
		WithArgs(
			rec.ID, "despacho", "", "", "", "p1", "",
			"", "", "", int64(0),
			[]byte(`[]`), rec.CreatedAt,
		).
		WillReturnRows(recordRow(mock, rec, `[]`))

	store := NewRecordPostgres(db)
	_, err = store.Create(context.Background(), &rec)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rec := model.Record{
		ID: "p1", Kind: model.KindProcess, Number: "2024-001",
		Description:       "Road repair",
		LinkedDespachoIDs: []string{"d1"},
		CreatedAt:         time.Now().UTC(),
	}

	mock.ExpectQuery(`UPDATE records SET (.+) WHERE id = \$1 RETURNING`).
		WithArgs(
			rec.ID, rec.Number, rec.Description, "", "", "",
			"", "", "", int64(0),
			[]byte(`["d1"]`),
		).
		WillReturnRows(recordRow(mock, rec, `["d1"]`))

	store := NewRecordPostgres(db)
	got, err := store.Update(context.Background(), &rec)

	require.NoError(t, err)
	assert.Equal(t, []string{"d1"}, got.LinkedDespachoIDs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate_MissingRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`UPDATE records`).
		WillReturnRows(mock.NewRows(recordCols))

	store := NewRecordPostgres(db)
	_, err = store.Update(context.Background(), &model.Record{ID: "missing"})

	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`DELETE FROM records WHERE id = \$1`).
		WithArgs("p1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	store := NewRecordPostgres(db)
	assert.NoError(t, store.Delete(context.Background(), "p1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete_MissingRowIsNotAnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`DELETE FROM records`).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	store := NewRecordPostgres(db)
	assert.NoError(t, store.Delete(context.Background(), "missing"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
