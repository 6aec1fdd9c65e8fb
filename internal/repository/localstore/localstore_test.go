package localstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"docflow/internal/model"
	"docflow/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "docflow.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestOpen_EmptyPath(t *testing.T) {
	_, err := Open("")
	assert.Error(t, err)
}

func TestList_EmptyDatabase(t *testing.T) {
	store := openStore(t)

	got, err := store.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestCreate_PrependsAndPersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "docflow.db")
	store, err := Open(path)
	require.NoError(t, err)

	first := model.Record{
		ID: "p1", Kind: model.KindProcess, Number: "2024-001",
		Description: "Road repair",
		File:        model.FileRef{Name: "a.pdf", ContentType: "application/pdf"},
		CreatedAt:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	second := model.Record{
		ID: "d1", Kind: model.KindDespacho, DocumentType: "ruling",
		ProcessID: "p1", ProcessNumber: "2024-001",
		File:      model.FileRef{Name: "b.docx"},
		CreatedAt: time.Date(2026, 1, 2, 4, 0, 0, 0, time.UTC),
	}

	_, err = store.Create(ctx, &first)
	require.NoError(t, err)
	_, err = store.Create(ctx, &second)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	// Reopen to prove the collection survived
	store, err = Open(path)
	require.NoError(t, err)
	defer store.Close()

	got, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "d1", got[0].ID)
	assert.Equal(t, "p1", got[1].ID)
	assert.Equal(t, "a.pdf", got[1].File.Name)
	assert.True(t, got[1].CreatedAt.Equal(first.CreatedAt))
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	rec := model.Record{ID: "p1", Kind: model.KindProcess, Number: "2024-001", CreatedAt: time.Now().UTC()}
	_, err := store.Create(ctx, &rec)
	require.NoError(t, err)

	rec.LinkedDespachoIDs = []string{"d1"}
	got, err := store.Update(ctx, &rec)
	require.NoError(t, err)
	assert.Equal(t, []string{"d1"}, got.LinkedDespachoIDs)

	listed, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, []string{"d1"}, listed[0].LinkedDespachoIDs)
}

func TestUpdate_MissingRecord(t *testing.T) {
	store := openStore(t)

	_, err := store.Update(context.Background(), &model.Record{ID: "missing"})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	_, err := store.Create(ctx, &model.Record{ID: "p1", Kind: model.KindProcess, CreatedAt: time.Now().UTC()})
	require.NoError(t, err)
	_, err = store.Create(ctx, &model.Record{ID: "p2", Kind: model.KindProcess, CreatedAt: time.Now().UTC()})
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, "p1"))

	got, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "p2", got[0].ID)

	// Deleting an absent id is not an error
	assert.NoError(t, store.Delete(ctx, "missing"))
}

func TestDecodeCollection_LegacyDates(t *testing.T) {
	raw := []byte(`[
		{"id":"p1","kind":"process","number":"2024-001","file":{"name":"a.pdf"},"created_at":"31/12/2024"},
		{"id":"d1","kind":"despacho","process_id":"p1","file":{"name":"b.docx"},"created_at":"2026-01-02T03:04:05Z"}
	]`)

	got, err := decodeCollection(raw)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC), got[0].CreatedAt)
	assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), got[1].CreatedAt)
}

func TestDecodeCollection_UnrecognizedDate(t *testing.T) {
	raw := []byte(`[{"id":"p1","kind":"process","created_at":"yesterday"}]`)

	_, err := decodeCollection(raw)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "p1")
}

func TestDecodeCollection_EmptyDate(t *testing.T) {
	raw := []byte(`[{"id":"p1","kind":"process","created_at":""}]`)

	got, err := decodeCollection(raw)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].CreatedAt.IsZero())
}
