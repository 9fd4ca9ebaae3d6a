// Package config provides configuration parsing for the beedb command.
//
// # Overview
//
// The config package loads and validates tool configuration from YAML
// files. It supports:
//
//   - A line-based YAML subset (nested "key: value" mappings)
//   - Environment variable substitution with ${VAR} and ${VAR:-default}
//   - Default values for all settings
//   - Configuration validation
//
// # Configuration Structure
//
//	type Config struct {
//	    Database DatabaseConfig // File name, key layout and cache settings
//	    Logging  LogConfig      // Logging settings
//	}
//
// # Loading Configuration
//
//	cfg, err := config.LoadConfig("/etc/beedb/people.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if errs := config.ValidateConfig(cfg); len(errs) > 0 {
//	    log.Fatal(errs[0])
//	}
//	db, err := beedb.Open(cfg.Database.Path, cfg.DBOptions().WithLogger(cfg.NewLogger()))
//
// # Example Configuration
//
//	database:
//	  path: "${BEEDB_HOME:-/var/lib/beedb}/people"
//	  keyType: string
//	  keySize: 32
//	  sectorSize: 512
//	  autocommit: false
//	  cacheLimit: 1024
//	  compression: snappy
//
//	logging:
//	  level: "info"
//	  format: "json"
//	  output: "/var/log/beedb/beedb.log"
package config
