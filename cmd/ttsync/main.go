// Package main provides the entry point for the ttsync CLI tool.
package main

import "github.com/racketdata/ttsync/cmd/ttsync/cmd"

// Version information populated by goreleaser.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	cmd.Execute(version, commit, date)
}
