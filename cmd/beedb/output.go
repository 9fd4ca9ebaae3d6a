package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// Output streams. Tests replace them to capture what a command prints.
var (
	stdout io.Writer = color.Output
	stderr io.Writer = color.Error
)

var (
	okColor      = color.New(color.FgGreen, color.Bold)
	failColor    = color.New(color.FgRed, color.Bold)
	headingColor = color.New(color.FgCyan, color.Bold)
	keyColor     = color.New(color.FgYellow)
)

// printError prints an error line to stderr.
func printError(format string, args ...any) {
	failColor.Fprint(stderr, "Error: ")
	fmt.Fprintf(stderr, format+"\n", args...)
}

// printOK prints a success line to stdout.
func printOK(format string, args ...any) {
	okColor.Fprint(stdout, "OK ")
	fmt.Fprintf(stdout, format+"\n", args...)
}

// printHeading prints a section title to stdout.
func printHeading(title string) {
	headingColor.Fprintln(stdout, title)
}

// printField prints one aligned "name: value" line.
func printField(name string, value any) {
	fmt.Fprintf(stdout, "  %-18s %v\n", name+":", value)
}
