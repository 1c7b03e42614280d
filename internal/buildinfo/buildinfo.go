// Package buildinfo exposes the identifiers stamped into the binary at build
// time. Version changes on every release and is what the version guard compares
// against the marker persisted in local storage.
package buildinfo

import (
	"fmt"
	"io"
)

// These are intended to be overridden via -ldflags, e.g.:
//
//	go build -ldflags "-X .../internal/buildinfo.Version=v1.4.2 ..."
var (
	Version = "N/A"
	Date    = "N/A"
	Commit  = "N/A"
)

// PrintBuildData writes a human-readable build summary to w.
func PrintBuildData(w io.Writer) {
	fmt.Fprintf(w, "Build version: %s\n", Version)
	fmt.Fprintf(w, "Build date: %s\n", Date)
	fmt.Fprintf(w, "Build commit: %s\n", Commit)
}
