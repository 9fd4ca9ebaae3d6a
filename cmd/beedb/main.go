// Package main provides the entry point for the beedb command line tool.
package main

import (
	"fmt"
	"os"
)

func main() {
	exitCode := run(os.Args)
	os.Exit(exitCode)
}

// run executes the CLI and returns an exit code.
// This is separated from main() to facilitate testing.
func run(args []string) int {
	if len(args) < 2 {
		printUsage(stdout)
		return 1
	}

	switch args[1] {
	case "create":
		return createCmd(args[2:])
	case "get":
		return getCmd(args[2:])
	case "set":
		return setCmd(args[2:])
	case "delete":
		return deleteCmd(args[2:])
	case "list":
		return listCmd(args[2:])
	case "stats":
		return statsCmd(args[2:])
	case "validate":
		return validateCmd(args[2:])
	case "seed":
		return seedCmd(args[2:])
	case "backup":
		return backupCmd(args[2:])
	case "sectorsizes":
		return sectorSizesCmd(args[2:])
	case "version":
		return versionCmd(args[2:])
	case "help", "-h", "--help":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", args[1])
		fmt.Fprintln(stderr, "Run 'beedb help' for usage.")
		return 1
	}
}
