package service

import "errors"

var (
	// ErrValidation is returned when a required field is missing or empty.
	// Always wrapped with the field name.
	ErrValidation = errors.New("missing required field")

	// ErrDuplicateNumber is returned when a process with the same number
	// already exists.
	ErrDuplicateNumber = errors.New("a process with this number already exists")

	// ErrProcessNotFound is returned when a despacho references a process
	// that does not exist.
	ErrProcessNotFound = errors.New("process not found")

	// ErrNotFound is returned when a record lookup fails.
	ErrNotFound = errors.New("record not found")

	// ErrFileUnavailable is returned when a download URL is requested for a
	// record without a stored blob (local fallback mode, or legacy entries).
	ErrFileUnavailable = errors.New("file not available for download")

	// ErrReaderNil is returned when an upload is attempted without content.
	ErrReaderNil = errors.New("reader is nil")
)
