package beedb

import (
	"errors"

	"github.com/KilimcininKorOglu/beedb/internal/storage"
	"github.com/KilimcininKorOglu/beedb/internal/storage/record"
)

// Errors returned by a DB. Match them with errors.Is.
var (
	// ErrKeyNotFound is returned by Get and Delete for absent keys.
	ErrKeyNotFound = storage.ErrKeyNotFound

	// ErrInvalidKey is returned for keys of the wrong width.
	ErrInvalidKey = storage.ErrInvalidKey

	// ErrInvalidKeySize is returned for a missing or negative key size.
	ErrInvalidKeySize = storage.ErrInvalidKeySize

	// ErrInvalidSectorSize is returned for sector sizes outside the
	// supported range.
	ErrInvalidSectorSize = storage.ErrInvalidSectorSize

	// ErrIncompatibleFormat is returned when the files do not match the
	// requested geometry.
	ErrIncompatibleFormat = storage.ErrIncompatibleFormat

	// ErrSectorSize is returned when a sector cannot hold enough keys.
	// It wraps ErrIncompatibleFormat.
	ErrSectorSize = storage.ErrSectorSize

	// ErrCorrupted is returned when a file violates a structural
	// invariant. The DB refuses every later call with the same error.
	ErrCorrupted = storage.ErrCorrupted

	// ErrClosed is returned by every call after Close or Discard.
	ErrClosed = errors.New("database is closed")

	// ErrReadOnly is returned by mutating calls on a read-only DB.
	ErrReadOnly = storage.ErrReadOnly

	// ErrValueTooLarge is returned for values no record slot can hold.
	ErrValueTooLarge = record.ErrPayloadTooLarge

	// ErrNotExist is returned by Open when the database does not exist
	// and CreateIfNotExists is false.
	ErrNotExist = errors.New("database does not exist")

	// ErrInvalidCompression is returned for unknown compression modes.
	ErrInvalidCompression = errors.New("invalid compression mode")
)
