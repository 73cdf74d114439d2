// Command alteval scores lyrics transcriptions against reference lyrics.
//
// Subcommands:
//
//	alteval eval      evaluate a manifest or reference/hypothesis files
//	alteval tokenize  print the tagged tokens of a text
//	alteval serve     run the HTTP API (and MCP over HTTP)
//	alteval mcp       run the MCP tool server on stdio
package main

import (
	"fmt"
	"os"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "alteval: %v\n", err)
		os.Exit(1)
	}
}
