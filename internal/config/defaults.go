package config

import beedb "github.com/KilimcininKorOglu/beedb"

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:        "",
			KeyType:     KeyTypeString,
			KeySize:     32,
			SectorSize:  0,
			Autocommit:  false,
			CacheLimit:  1024,
			Compression: beedb.CompressionNone,
			ReadOnly:    false,
		},
		Logging: LogConfig{
			Level:  "warn",
			Format: "text",
			Output: "stderr",
		},
	}
}
