// Package logging provides structured logging for BeeDB.
//
// # Overview
//
// The logging package provides a structured logging interface with support for:
//
//   - Multiple log levels (debug, info, warn, error)
//   - Text and JSON output formats
//   - Field-based contextual logging
//   - Colored level tags on terminal output
//
// # Creating a Logger
//
// Create a logger with configuration:
//
//	logger := logging.New(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	    Output: "/var/log/beedb.log",
//	})
//
// Or use defaults:
//
//	logger := logging.NewDefault() // Info level, text format, stderr
//
// A database opened without a logger uses a no-op logger:
//
//	logger := logging.NewNop()
//
// # Structured Logging
//
// Add key-value pairs to log entries:
//
//	logger.Info("commit",
//	    "name", "people",
//	    "nodes_written", 12,
//	    "records_written", 40,
//	)
//
// Output (text format, fields sorted by key):
//
//	2026-02-18T10:30:00Z [info] commit name=people nodes_written=12 records_written=40
//
// Error values are logged by their message:
//
//	logger.Error("commit failed", "error", err)
//
// # Contextual Fields
//
// Create loggers with persistent fields:
//
//	dbLogger := logger.WithFields("name", "people")
//	dbLogger.Debug("cache trimmed", "evicted", 8)
package logging
