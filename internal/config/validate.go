package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	beedb "github.com/KilimcininKorOglu/beedb"
	"github.com/KilimcininKorOglu/beedb/internal/storage"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateConfig validates the configuration and returns a list of validation errors.
// An empty slice indicates the configuration is valid.
func ValidateConfig(config *Config) []error {
	var errs []error

	errs = append(errs, validateDatabaseConfig(&config.Database)...)
	errs = append(errs, validateLogConfig(&config.Logging)...)

	return errs
}

// validateDatabaseConfig validates database configuration.
func validateDatabaseConfig(config *DatabaseConfig) []error {
	var errs []error

	switch config.KeyType {
	case KeyTypeString:
		if config.KeySize < 2 {
			errs = append(errs, ValidationError{
				Field:   "database.keySize",
				Message: "string keys need a key size of at least 2",
			})
		}
	case KeyTypeBytes:
		if config.KeySize < 1 {
			errs = append(errs, ValidationError{
				Field:   "database.keySize",
				Message: "must be positive",
			})
		}
	case KeyTypeInt64, KeyTypeFloat64:
		// keySize is ignored; numeric keys are always 8 bytes.
	default:
		errs = append(errs, ValidationError{
			Field:   "database.keyType",
			Message: "must be string, bytes, int64, or float64",
		})
	}

	if config.SectorSize != 0 && config.EffectiveKeySize() > 0 {
		if err := storage.ValidateGeometry(config.SectorSize, config.EffectiveKeySize()); err != nil {
			errs = append(errs, ValidationError{
				Field:   "database.sectorSize",
				Message: err.Error(),
			})
		}
	} else if config.SectorSize < 0 {
		errs = append(errs, ValidationError{
			Field:   "database.sectorSize",
			Message: "must be non-negative",
		})
	}

	if config.CacheLimit < 0 {
		errs = append(errs, ValidationError{
			Field:   "database.cacheLimit",
			Message: "must be non-negative",
		})
	}

	switch config.Compression {
	case "", beedb.CompressionNone, beedb.CompressionSnappy:
	default:
		errs = append(errs, ValidationError{
			Field:   "database.compression",
			Message: "must be none or snappy",
		})
	}

	return errs
}

// validateLogConfig validates logging configuration.
func validateLogConfig(config *LogConfig) []error {
	var errs []error

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if config.Level != "" && !validLevels[strings.ToLower(config.Level)] {
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Message: "must be debug, info, warn, or error",
		})
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if config.Format != "" && !validFormats[strings.ToLower(config.Format)] {
		errs = append(errs, ValidationError{
			Field:   "logging.format",
			Message: "must be text or json",
		})
	}

	if config.Output != "" && config.Output != "stdout" && config.Output != "stderr" {
		dir := filepath.Dir(config.Output)
		if !filepath.IsAbs(config.Output) {
			errs = append(errs, ValidationError{
				Field:   "logging.output",
				Message: "must be stdout, stderr, or an absolute file path",
			})
		} else if _, err := os.Stat(dir); os.IsNotExist(err) {
			errs = append(errs, ValidationError{
				Field:   "logging.output",
				Message: fmt.Sprintf("directory %s does not exist", dir),
			})
		}
	}

	return errs
}
