// Command smallfile drives a distributed metadata-intensive filesystem
// benchmark: a coordinator ("run") that fans work out to per-host
// drivers ("host"), plus a "worker" debug entrypoint for running a
// single engine outside the full coordination protocol. Structured as
// cobra subcommands, since the CLI surface is wide enough to want
// per-command flag scoping.
package main

import (
	"fmt"
	"os"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
