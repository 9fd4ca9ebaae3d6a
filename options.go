package beedb

import (
	"fmt"

	"github.com/KilimcininKorOglu/beedb/internal/logging"
	"github.com/KilimcininKorOglu/beedb/internal/storage"
)

// Compression modes for record payloads.
const (
	CompressionNone   = "none"
	CompressionSnappy = "snappy"
)

// Options configures a DB.
type Options struct {
	// SectorSize is the index sector size in bytes. Zero picks the
	// smallest standard size that fits KeySize on create and adopts the
	// stored size on open.
	SectorSize int

	// KeySize is the fixed key width in bytes. It is required on create;
	// zero adopts the stored width on open.
	KeySize int

	// Autocommit commits after every mutating call.
	// Default: false.
	Autocommit bool

	// CacheLimit is the soft number of entries kept in each of the node and
	// record caches. Zero means unbounded.
	// Default: 0.
	CacheLimit int

	// Compression selects the payload encoding of a new database. It is
	// ignored on open; the record file header decides.
	// Default: "none".
	Compression string

	// ReadOnly opens the database without write access.
	// Default: false.
	ReadOnly bool

	// CreateIfNotExists creates the database if neither file exists.
	// Default: false; DefaultOptions sets it to true.
	CreateIfNotExists bool

	// NoSync skips fsync on commit. Data still reaches the OS.
	// Default: false.
	NoSync bool

	// Logger receives open, commit and close events. Nil discards them.
	Logger logging.Logger
}

// DefaultOptions returns the default options for a database with the given
// key width.
func DefaultOptions(keySize int) Options {
	return Options{
		KeySize:           keySize,
		Compression:       CompressionNone,
		CreateIfNotExists: true,
	}
}

// Validate checks the options and fills in defaults.
func (o *Options) Validate() error {
	if o.KeySize < 0 {
		return fmt.Errorf("%w: %d", storage.ErrInvalidKeySize, o.KeySize)
	}
	if o.SectorSize != 0 {
		if err := storage.ValidateGeometry(o.SectorSize, max(o.KeySize, 1)); err != nil {
			return err
		}
	}
	switch o.Compression {
	case "":
		o.Compression = CompressionNone
	case CompressionNone, CompressionSnappy:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidCompression, o.Compression)
	}
	if o.CacheLimit < 0 {
		o.CacheLimit = 0
	}
	if o.Logger == nil {
		o.Logger = logging.NewNop()
	}
	return nil
}

// WithSectorSize sets the sector size.
func (o Options) WithSectorSize(size int) Options {
	o.SectorSize = size
	return o
}

// WithAutocommit enables or disables autocommit.
func (o Options) WithAutocommit(autocommit bool) Options {
	o.Autocommit = autocommit
	return o
}

// WithCacheLimit sets the soft cache limit.
func (o Options) WithCacheLimit(limit int) Options {
	o.CacheLimit = limit
	return o
}

// WithCompression sets the payload compression of a new database.
func (o Options) WithCompression(mode string) Options {
	o.Compression = mode
	return o
}

// WithReadOnly enables or disables read-only mode.
func (o Options) WithReadOnly(readOnly bool) Options {
	o.ReadOnly = readOnly
	return o
}

// WithCreateIfNotExists enables or disables creating missing databases.
func (o Options) WithCreateIfNotExists(create bool) Options {
	o.CreateIfNotExists = create
	return o
}

// WithNoSync enables or disables fsync on commit.
func (o Options) WithNoSync(noSync bool) Options {
	o.NoSync = noSync
	return o
}

// WithLogger sets the logger.
func (o Options) WithLogger(logger logging.Logger) Options {
	o.Logger = logger
	return o
}

func (o Options) storageOptions() storage.Options {
	return storage.DefaultOptions().WithReadOnly(o.ReadOnly).WithNoSync(o.NoSync)
}
