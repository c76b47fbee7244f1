// Package main provides the latentfs command line tool.
//
// Usage:
//
//	latentfs [flags] <command> [args]
//
// Commands:
//
//	serve     - Run the MCP stdio server, or the HTTP API with --http
//	ingest    - Embed and store texts
//	items     - List stored items
//	groups    - Rebuild and print the semantic folders
//	reassign  - Move an item toward a folder
//	config    - Configuration management
//
// Configuration:
//
//	The CLI reads .latentfsconfig from the working directory (or --config)
//	and LATENTFS_* environment variables.
package main

import (
	"fmt"
	"os"

	"github.com/localrivet/latentfs/cmd/latentfs/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
