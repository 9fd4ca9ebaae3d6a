package main

import (
	"errors"
	"flag"
	"fmt"

	beedb "github.com/KilimcininKorOglu/beedb"
	"github.com/KilimcininKorOglu/beedb/internal/config"
)

// dbFlags holds the flags shared by every command that opens a database.
// Flags that were set on the command line override the config file.
type dbFlags struct {
	fs          *flag.FlagSet
	configFile  *string
	path        *string
	keyType     *string
	keySize     *int
	sectorSize  *int
	cacheLimit  *int
	compression *string
	logLevel    *string
	help        *bool
	helpLong    *bool
}

// newDBFlags creates a flag set with the shared database flags.
func newDBFlags(name string) *dbFlags {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)

	return &dbFlags{
		fs:          fs,
		configFile:  fs.String("config", "", "Path to configuration file"),
		path:        fs.String("db", "", "Database name without extension"),
		keyType:     fs.String("key-type", "", "Key type: string, bytes, int64, float64"),
		keySize:     fs.Int("key-size", 0, "Key size in bytes"),
		sectorSize:  fs.Int("sector-size", 0, "Index sector size in bytes"),
		cacheLimit:  fs.Int("cache-limit", 0, "Cache entries per cache"),
		compression: fs.String("compression", "", "Value compression: none, snappy"),
		logLevel:    fs.String("log-level", "", "Log level: debug, info, warn, error"),
		help:        fs.Bool("h", false, "Show help message"),
		helpLong:    fs.Bool("help", false, "Show help message"),
	}
}

// parse parses args and reports whether help was requested.
func (f *dbFlags) parse(args []string) (help bool, err error) {
	if err := f.fs.Parse(args); err != nil {
		return false, err
	}
	return *f.help || *f.helpLong, nil
}

// resolve loads the config file, applies flag overrides and validates the
// result.
func (f *dbFlags) resolve() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if *f.configFile != "" {
		loaded, err := config.LoadConfig(*f.configFile)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", *f.configFile, err)
		}
		cfg = loaded
	}

	f.fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "db":
			cfg.Database.Path = *f.path
		case "key-type":
			cfg.Database.KeyType = *f.keyType
		case "key-size":
			cfg.Database.KeySize = *f.keySize
		case "sector-size":
			cfg.Database.SectorSize = *f.sectorSize
		case "cache-limit":
			cfg.Database.CacheLimit = *f.cacheLimit
		case "compression":
			cfg.Database.Compression = *f.compression
		case "log-level":
			cfg.Logging.Level = *f.logLevel
		}
	})

	if cfg.Database.Path == "" {
		return nil, errors.New("-db is required")
	}
	if errs := config.ValidateConfig(cfg); len(errs) > 0 {
		return nil, errs[0]
	}
	return cfg, nil
}

// openDB opens the existing database named by cfg. Geometry is read from
// the files.
func openDB(cfg *config.Config, readOnly bool) (*beedb.DB, error) {
	opts := cfg.DBOptions().
		WithSectorSize(0).
		WithCreateIfNotExists(false).
		WithReadOnly(readOnly).
		WithLogger(cfg.NewLogger())
	opts.KeySize = 0

	db, err := beedb.Open(cfg.Database.Path, opts)
	if err != nil {
		return nil, err
	}
	return db, nil
}

// openKeyed opens the database and the key format for its key type.
func openKeyed(cfg *config.Config, readOnly bool) (*beedb.DB, keyFormat, error) {
	db, err := openDB(cfg, readOnly)
	if err != nil {
		return nil, keyFormat{}, err
	}
	kf, err := newKeyFormat(cfg.Database.KeyType, db.KeySize())
	if err != nil {
		db.Close()
		return nil, keyFormat{}, err
	}
	return db, kf, nil
}
