package main

import (
	"fmt"
	"io"
)

const dbOptionsHelp = `  -config string
        Path to configuration file
  -db string
        Database name without extension (overrides config)
  -key-type string
        Key type: string, bytes, int64, float64 (default "string")
  -log-level string
        Log level: debug, info, warn, error (overrides config)
  -h, -help
        Show this help message
`

// printUsage prints the main usage information to the given writer.
func printUsage(w io.Writer) {
	fmt.Fprint(w, `beedb - Embedded B+Tree key/value store

Usage:
  beedb <command> [options] [arguments]

Commands:
  create       Create a new database
  get          Print the value of a key
  set          Store a value under a key
  delete       Remove keys
  list         List keys and values in order
  stats        Show index, record and cache statistics
  validate     Check index and record consistency
  seed         Fill a database with generated records
  backup       Copy a database to a new name
  sectorsizes  Show the sector size used for each key size
  version      Show version information

Use "beedb <command> -h" for more information about a command.
Put "--" before keys or values that start with "-".
`)
}

// printCreateUsage prints the create command usage.
func printCreateUsage(w io.Writer) {
	fmt.Fprint(w, `Create a new database

Usage:
  beedb create [options]

Options:
  -key-size int
        Key size in bytes; string keys hold one byte less (default 32)
  -sector-size int
        Index sector size in bytes (default: smallest that fits the key size)
  -compression string
        Value compression: none, snappy (default "none")
  -cache-limit int
        Cache entries per cache (default 1024)
  -autocommit
        Commit after every write
`+dbOptionsHelp)
}

// printGetUsage prints the get command usage.
func printGetUsage(w io.Writer) {
	fmt.Fprint(w, `Print the value of a key

Usage:
  beedb get [options] <key>

Options:
`+dbOptionsHelp)
}

// printSetUsage prints the set command usage.
func printSetUsage(w io.Writer) {
	fmt.Fprint(w, `Store a value under a key

Usage:
  beedb set [options] <key> <value>

Options:
`+dbOptionsHelp)
}

// printDeleteUsage prints the delete command usage.
func printDeleteUsage(w io.Writer) {
	fmt.Fprint(w, `Remove keys

Usage:
  beedb delete [options] <key>...

All keys are removed or none is.

Options:
`+dbOptionsHelp)
}

// printListUsage prints the list command usage.
func printListUsage(w io.Writer) {
	fmt.Fprint(w, `List keys and values in ascending key order

Usage:
  beedb list [options]

Options:
  -start string
        First key to list
  -end string
        List keys before this key
  -limit int
        Maximum number of keys to list
  -keys
        Print keys without values
`+dbOptionsHelp)
}

// printStatsUsage prints the stats command usage.
func printStatsUsage(w io.Writer) {
	fmt.Fprint(w, `Show index, record and cache statistics

Usage:
  beedb stats [options]

Options:
`+dbOptionsHelp)
}

// printValidateUsage prints the validate command usage.
func printValidateUsage(w io.Writer) {
	fmt.Fprint(w, `Check index and record consistency

Usage:
  beedb validate [options]

Options:
`+dbOptionsHelp)
}

// printSeedUsage prints the seed command usage.
func printSeedUsage(w io.Writer) {
	fmt.Fprint(w, `Fill a database with generated records

Usage:
  beedb seed [options]

Options:
  -records int
        Number of records to generate (default 1000)
  -batch int
        Records per commit (default 1000)
`+dbOptionsHelp)
}

// printBackupUsage prints the backup command usage.
func printBackupUsage(w io.Writer) {
	fmt.Fprint(w, `Copy a database to a new name

Usage:
  beedb backup [options]

Options:
  -output string
        Destination database name (required)
`+dbOptionsHelp)
}

// printSectorSizesUsage prints the sectorsizes command usage.
func printSectorSizesUsage(w io.Writer) {
	fmt.Fprint(w, `Show the sector size used for each key size

Usage:
  beedb sectorsizes [options]

Options:
  -key-size int
        Show only this key size
  -h, -help
        Show this help message
`)
}

// printVersionUsage prints the version command usage.
func printVersionUsage(w io.Writer) {
	fmt.Fprint(w, `Show version information

Usage:
  beedb version [options]

Options:
  -short
        Show only version number
  -h, -help
        Show this help message
`)
}
