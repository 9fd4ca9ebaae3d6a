// Package config provides configuration parsing for BeeDB tools.
package config

import (
	beedb "github.com/KilimcininKorOglu/beedb"
	"github.com/KilimcininKorOglu/beedb/internal/logging"
)

// Key types understood by the command line tools.
const (
	KeyTypeString  = "string"
	KeyTypeBytes   = "bytes"
	KeyTypeInt64   = "int64"
	KeyTypeFloat64 = "float64"
)

// Config holds the complete tool configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Logging  LogConfig      `yaml:"logging"`
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	KeyType     string `yaml:"keyType"`
	KeySize     int    `yaml:"keySize"`
	SectorSize  int    `yaml:"sectorSize"`
	Autocommit  bool   `yaml:"autocommit"`
	CacheLimit  int    `yaml:"cacheLimit"`
	Compression string `yaml:"compression"`
	ReadOnly    bool   `yaml:"readOnly"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// EffectiveKeySize returns the key width implied by the key type. Numeric
// keys are always eight bytes wide and ignore KeySize.
func (c *DatabaseConfig) EffectiveKeySize() int {
	switch c.KeyType {
	case KeyTypeInt64, KeyTypeFloat64:
		return 8
	}
	return c.KeySize
}

// DBOptions converts the database section into facade options.
func (c *Config) DBOptions() beedb.Options {
	return beedb.DefaultOptions(c.Database.EffectiveKeySize()).
		WithSectorSize(c.Database.SectorSize).
		WithAutocommit(c.Database.Autocommit).
		WithCacheLimit(c.Database.CacheLimit).
		WithCompression(c.Database.Compression).
		WithReadOnly(c.Database.ReadOnly)
}

// NewLogger creates a logger from the logging section.
func (c *Config) NewLogger() logging.Logger {
	return logging.New(logging.Config{
		Level:  c.Logging.Level,
		Format: c.Logging.Format,
		Output: c.Logging.Output,
	})
}
