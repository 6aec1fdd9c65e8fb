package model

import "time"

// Kind discriminates the two record kinds sharing the collection.
type Kind string

const (
	KindProcess  Kind = "process"
	KindDespacho Kind = "despacho"
)

// FileRef describes the file attached to a record. Download URLs are not
// stored; they are minted on demand from the storage key. In local fallback
// mode StorageKey stays empty and only the display metadata survives.
type FileRef struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	StorageKey  string `json:"storage_key,omitempty"`
	Size        int64  `json:"size,omitempty"`
}

// Record is a case file (process) or a dispatch document (despacho).
// This is a pure domain model with no database-specific dependencies or tags.
//
// A process owns Number, Description and LinkedDespachoIDs; a despacho owns
// DocumentType, ProcessID and ProcessNumber (denormalized from the owning
// process at attachment time). Both carry a file and a creation timestamp.
type Record struct {
	ID                string    `json:"id"`
	Kind              Kind      `json:"kind"`
	Number            string    `json:"number,omitempty"`
	Description       string    `json:"description,omitempty"`
	DocumentType      string    `json:"document_type,omitempty"`
	ProcessID         string    `json:"process_id,omitempty"`
	ProcessNumber     string    `json:"process_number,omitempty"`
	File              FileRef   `json:"file"`
	LinkedDespachoIDs []string  `json:"linked_despacho_ids,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// IsProcess reports whether the record is a process.
func (r *Record) IsProcess() bool { return r.Kind == KindProcess }

// IsDespacho reports whether the record is a despacho.
func (r *Record) IsDespacho() bool { return r.Kind == KindDespacho }

// Paired reports whether the record is a process with at least one linked
// despacho.
func (r *Record) Paired() bool {
	return r.Kind == KindProcess && len(r.LinkedDespachoIDs) > 0
}
