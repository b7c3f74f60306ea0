// Package main is the entry point for the fgp-neon daemon and CLI.
// It exposes Neon serverless Postgres to local tools over a Unix socket.
package main

import (
	"fgp/neon/cmd"
)

// main initializes and executes the command-line interface.
func main() {
	cmd.Execute()
}
