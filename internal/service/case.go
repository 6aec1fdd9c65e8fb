package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"docflow/internal/model"
	"docflow/internal/repository"
	"docflow/internal/storage"
)

// presignExpiry is how long minted download URLs stay valid.
const presignExpiry = 15 * time.Minute

// FileUpload carries an uploaded file into the service.
type FileUpload struct {
	Reader      io.Reader
	Filename    string
	ContentType string
	Size        int64
}

// ProcessInput is the payload for registering a process.
type ProcessInput struct {
	Number      string
	Description string
	File        FileUpload
}

// DespachoInput is the payload for registering a despacho.
type DespachoInput struct {
	ProcessID    string
	DocumentType string
	File         FileUpload
}

// CaseService owns the in-memory collection of processes and despachos and
// is the only component that mutates it. It keeps the collection and the
// persistence backend in step: metadata writes go through the RecordStore,
// file content through the blob Storage, and the process/despacho links are
// maintained exclusively here.
type CaseService interface {
	// Reload replaces the in-memory collection with the persisted one
	// (newest-first). Called at startup and available on demand.
	Reload(ctx context.Context) error

	// ListAll returns a snapshot of the full collection in held order.
	ListAll() []model.Record

	// FindByID returns a single record, or ErrNotFound.
	FindByID(id string) (*model.Record, error)

	// LinkedDespachos returns the despachos attached to the given process,
	// in collection order. Fails with ErrNotFound if the record is absent.
	LinkedDespachos(processID string) ([]model.Record, error)

	// RegisterProcess validates, stores the file, persists and prepends a
	// new process. Fails with ErrValidation or ErrDuplicateNumber before
	// any persistence call.
	RegisterProcess(ctx context.Context, in ProcessInput) (*model.Record, error)

	// RegisterDespacho validates, stores the file, persists and prepends a
	// new despacho, then links it to its process and persists the updated
	// link list. A failed link update is surfaced as an error; the created
	// despacho is kept rather than rolled back.
	RegisterDespacho(ctx context.Context, in DespachoInput) (*model.Record, error)

	// DeleteRecord removes a record. Deleting a process cascades to every
	// despacho referencing it; deleting a despacho prunes it from its
	// process's link list first. Blob deletions are best-effort.
	DeleteRecord(ctx context.Context, id string) error

	// FileURL mints a presigned download URL for the record's stored file.
	FileURL(ctx context.Context, id string) (string, error)
}

type caseService struct {
	store repository.RecordStore
	blobs storage.Storage // nil when running on the local fallback store

	mu      sync.RWMutex
	records []model.Record
}

// NewCaseService constructs a CaseService. blobs may be nil, which disables
// file storage entirely (local fallback mode): records then carry file
// metadata only and no download URLs can be minted.
func NewCaseService(store repository.RecordStore, blobs storage.Storage) CaseService {
	return &caseService{store: store, blobs: blobs, records: []model.Record{}}
}

func (s *caseService) Reload(ctx context.Context) error {
	records, err := s.store.List(ctx)
	if err != nil {
		return fmt.Errorf("load collection: %w", err)
	}
	s.mu.Lock()
	s.records = records
	s.mu.Unlock()
	return nil
}

func (s *caseService) ListAll() []model.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Record, len(s.records))
	for i := range s.records {
		out[i] = cloneRecord(s.records[i])
	}
	return out
}

func (s *caseService) FindByID(id string) (*model.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.records {
		if s.records[i].ID == id {
			rec := cloneRecord(s.records[i])
			return &rec, nil
		}
	}
	return nil, ErrNotFound
}

func (s *caseService) LinkedDespachos(processID string) ([]model.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	found := false
	linked := make([]model.Record, 0)
	for i := range s.records {
		if s.records[i].ID == processID {
			found = true
		}
		if s.records[i].ProcessID == processID {
			linked = append(linked, cloneRecord(s.records[i]))
		}
	}
	if !found {
		return nil, ErrNotFound
	}
	return linked, nil
}

func (s *caseService) RegisterProcess(ctx context.Context, in ProcessInput) (*model.Record, error) {
	number := strings.TrimSpace(in.Number)
	description := strings.TrimSpace(in.Description)
	switch {
	case number == "":
		return nil, fmt.Errorf("%w: number", ErrValidation)
	case description == "":
		return nil, fmt.Errorf("%w: description", ErrValidation)
	case in.File.Filename == "":
		return nil, fmt.Errorf("%w: file", ErrValidation)
	}
	if s.blobs != nil && in.File.Reader == nil {
		return nil, ErrReaderNil
	}
	if s.numberExists(number) {
		return nil, ErrDuplicateNumber
	}

	file, err := s.storeBlob(ctx, "processes", in.File)
	if err != nil {
		return nil, err
	}

	rec := &model.Record{
		ID:                uuid.New().String(),
		Kind:              model.KindProcess,
		Number:            number,
		Description:       description,
		File:              file,
		LinkedDespachoIDs: []string{},
		CreatedAt:         time.Now().UTC(),
	}
	stored, err := s.store.Create(ctx, rec)
	if err != nil {
		s.rollbackBlob(ctx, file.StorageKey, err)
		return nil, fmt.Errorf("db save failed: %w", err)
	}

	s.mu.Lock()
	s.records = append([]model.Record{cloneRecord(*stored)}, s.records...)
	s.mu.Unlock()
	return stored, nil
}

func (s *caseService) RegisterDespacho(ctx context.Context, in DespachoInput) (*model.Record, error) {
	processID := strings.TrimSpace(in.ProcessID)
	switch {
	case processID == "":
		return nil, fmt.Errorf("%w: process_id", ErrValidation)
	case in.File.Filename == "":
		return nil, fmt.Errorf("%w: file", ErrValidation)
	}
	if s.blobs != nil && in.File.Reader == nil {
		return nil, ErrReaderNil
	}
	docType := strings.TrimSpace(in.DocumentType)
	if docType == "" {
		docType = "despacho"
	}

	owner, err := s.findProcess(processID)
	if err != nil {
		return nil, err
	}

	file, err := s.storeBlob(ctx, "despachos", in.File)
	if err != nil {
		return nil, err
	}

	rec := &model.Record{
		ID:            uuid.New().String(),
		Kind:          model.KindDespacho,
		DocumentType:  docType,
		ProcessID:     owner.ID,
		ProcessNumber: owner.Number,
		File:          file,
		CreatedAt:     time.Now().UTC(),
	}
	stored, err := s.store.Create(ctx, rec)
	if err != nil {
		s.rollbackBlob(ctx, file.StorageKey, err)
		return nil, fmt.Errorf("db save failed: %w", err)
	}

	// The in-memory side of the link is updated optimistically; the
	// persistence write below decides whether the operation succeeds.
	attachDespacho(&owner, stored.ID)
	s.mu.Lock()
	s.records = append([]model.Record{cloneRecord(*stored)}, s.records...)
	s.replaceLocked(owner)
	s.mu.Unlock()

	if _, err := s.store.Update(ctx, &owner); err != nil {
		// The despacho row exists but no process references it yet. Kept
		// and surfaced rather than rolled back, so nothing is silently lost.
		if IsStoreNotFound(err) {
			return nil, fmt.Errorf("link despacho: %w", ErrProcessNotFound)
		}
		return nil, fmt.Errorf("link despacho to process %s: %w", owner.ID, err)
	}
	return stored, nil
}

func (s *caseService) DeleteRecord(ctx context.Context, id string) error {
	rec, err := s.FindByID(id)
	if err != nil {
		return err
	}
	if rec.IsProcess() {
		return s.deleteProcess(ctx, *rec)
	}
	return s.deleteDespacho(ctx, *rec)
}

// deleteProcess removes every despacho referencing the process, then the
// process itself. In-memory removal follows each successful persistence
// delete, never precedes it.
func (s *caseService) deleteProcess(ctx context.Context, proc model.Record) error {
	s.mu.RLock()
	despachos := make([]model.Record, 0)
	for i := range s.records {
		if s.records[i].IsDespacho() && s.records[i].ProcessID == proc.ID {
			despachos = append(despachos, cloneRecord(s.records[i]))
		}
	}
	s.mu.RUnlock()

	for _, d := range despachos {
		s.deleteBlobLogged(ctx, d.File.StorageKey)
		if err := s.store.Delete(ctx, d.ID); err != nil {
			return fmt.Errorf("delete despacho %s: %w", d.ID, err)
		}
		s.removeLocked(d.ID)
	}

	s.deleteBlobLogged(ctx, proc.File.StorageKey)
	if err := s.store.Delete(ctx, proc.ID); err != nil {
		return fmt.Errorf("delete process %s: %w", proc.ID, err)
	}
	s.removeLocked(proc.ID)
	return nil
}

// deleteDespacho prunes the despacho from its owner's link list, persists
// the updated list, then deletes the despacho itself.
func (s *caseService) deleteDespacho(ctx context.Context, d model.Record) error {
	s.deleteBlobLogged(ctx, d.File.StorageKey)

	owner, err := s.findProcess(d.ProcessID)
	if err == nil {
		detachDespacho(&owner, d.ID)
		if _, err := s.store.Update(ctx, &owner); err != nil {
			return fmt.Errorf("unlink despacho from process %s: %w", owner.ID, err)
		}
		s.mu.Lock()
		s.replaceLocked(owner)
		s.mu.Unlock()
	}

	if err := s.store.Delete(ctx, d.ID); err != nil {
		return fmt.Errorf("delete despacho %s: %w", d.ID, err)
	}
	s.removeLocked(d.ID)
	return nil
}

func (s *caseService) FileURL(ctx context.Context, id string) (string, error) {
	rec, err := s.FindByID(id)
	if err != nil {
		return "", err
	}
	if s.blobs == nil || rec.File.StorageKey == "" {
		return "", ErrFileUnavailable
	}
	url, err := s.blobs.PresignGet(ctx, rec.File.StorageKey, presignExpiry)
	if err != nil {
		return "", fmt.Errorf("presign download: %w", err)
	}
	return url, nil
}

// storeBlob uploads the file content under a generated key. In local fallback
// mode no blob operation is attempted and the returned ref carries display
// metadata only.
func (s *caseService) storeBlob(ctx context.Context, prefix string, up FileUpload) (model.FileRef, error) {
	ref := model.FileRef{
		Name:        up.Filename,
		ContentType: up.ContentType,
		Size:        up.Size,
	}
	if ref.ContentType == "" {
		ref.ContentType = "application/octet-stream"
	}
	if s.blobs == nil {
		return ref, nil
	}

	ext := filepath.Ext(up.Filename)
	key := filepath.ToSlash(filepath.Join(prefix, uuid.New().String()+ext))
	info, err := s.blobs.Put(ctx, key, up.Reader, storage.PutObjectOptions{
		Size:        up.Size,
		ContentType: ref.ContentType,
		Metadata: map[string]string{
			"original-filename": up.Filename,
		},
	})
	if err != nil {
		return model.FileRef{}, fmt.Errorf("upload to storage: %w", err)
	}
	ref.StorageKey = info.Key
	if info.Size > 0 {
		ref.Size = info.Size
	}
	return ref, nil
}

// rollbackBlob removes an uploaded object after a failed metadata create.
func (s *caseService) rollbackBlob(ctx context.Context, key string, cause error) {
	if s.blobs == nil || key == "" {
		return
	}
	if err := s.blobs.Delete(ctx, key); err != nil {
		logJSON(map[string]any{
			"level":       "error",
			"msg":         "blob_rollback_failed",
			"storage_key": key,
			"cause":       cause.Error(),
			"error":       err.Error(),
		})
	}
}

// deleteBlobLogged removes an object during cascading delete. Failures are
// logged and swallowed: an orphaned blob beats a stuck deletion.
func (s *caseService) deleteBlobLogged(ctx context.Context, key string) {
	if s.blobs == nil || key == "" {
		return
	}
	if err := s.blobs.Delete(ctx, key); err != nil {
		logJSON(map[string]any{
			"level":       "warn",
			"msg":         "blob_delete_failed",
			"storage_key": key,
			"error":       err.Error(),
		})
	}
}

func (s *caseService) numberExists(number string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.records {
		if s.records[i].IsProcess() && s.records[i].Number == number {
			return true
		}
	}
	return false
}

func (s *caseService) findProcess(id string) (model.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.records {
		if s.records[i].ID == id && s.records[i].IsProcess() {
			return cloneRecord(s.records[i]), nil
		}
	}
	return model.Record{}, ErrProcessNotFound
}

func (s *caseService) replaceLocked(rec model.Record) {
	for i := range s.records {
		if s.records[i].ID == rec.ID {
			s.records[i] = cloneRecord(rec)
			return
		}
	}
}

func (s *caseService) removeLocked(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.records {
		if s.records[i].ID == id {
			s.records = append(s.records[:i], s.records[i+1:]...)
			return
		}
	}
}

// cloneRecord copies a record with its own link slice, so callers can mutate
// copies without aliasing the canonical collection.
func cloneRecord(rec model.Record) model.Record {
	rec.LinkedDespachoIDs = slices.Clone(rec.LinkedDespachoIDs)
	return rec
}

// IsStoreNotFound reports whether an error from the persistence port means
// the row was absent, across backends.
func IsStoreNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows) || errors.Is(err, repository.ErrNotFound)
}

func logJSON(data map[string]any) {
	data["ts"] = time.Now().UTC().Format(time.RFC3339Nano)
	data["component"] = "service"
	b, err := json.Marshal(data)
	if err != nil {
		log.Printf("failed to marshal service log: %v", err)
		return
	}
	log.SetFlags(0)
	log.Println(string(b))
}
