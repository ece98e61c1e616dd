// patentdoc is the command line client: it parses and matches single
// documents, builds classification corpora and administers the stores.
package main

import (
	"os"

	"github.com/turtacn/KeyIP-PatentDoc/internal/interfaces/cli"
)

// Build-time variables injected via ldflags.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	cli.Version = version
	cli.GitCommit = commit
	cli.BuildDate = buildDate

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

//Personal.AI order the ending
