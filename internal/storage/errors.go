package storage

import (
	"errors"
	"fmt"
)

// Errors shared by every storage layer.
var (
	// ErrCorrupted reports a structural invariant violation in a file.
	// It is always fatal for the file it was detected in.
	ErrCorrupted = errors.New("storage corrupted")

	// ErrIncompatibleFormat reports a header that does not match the
	// geometry the caller asked for.
	ErrIncompatibleFormat = errors.New("incompatible file format")

	// ErrSectorSize reports a (sectorSize, keySize) pair whose nodes would
	// hold fewer than MinNodeEntries entries.
	ErrSectorSize = fmt.Errorf("%w: sector size too small for key size", ErrIncompatibleFormat)

	ErrInvalidSectorSize = errors.New("invalid sector size")
	ErrInvalidKeySize    = errors.New("invalid key size")
	ErrInvalidKey        = errors.New("invalid key")
	ErrKeyNotFound       = errors.New("key not found")
	ErrClosed            = errors.New("store is closed")
	ErrReadOnly          = errors.New("store is read-only")
	ErrFileExists        = errors.New("file already exists")
)

// Corruptf returns an error wrapping ErrCorrupted with a formatted detail.
func Corruptf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrCorrupted, fmt.Sprintf(format, args...))
}

// IsCorrupted reports whether err is, or wraps, ErrCorrupted.
func IsCorrupted(err error) bool {
	return errors.Is(err, ErrCorrupted)
}
