// Package cmd implements the command-line interface of aesdlog. It provides
// the server command and small client commands for talking to a running server.
//
// The package is organized into several subpackages:
//
//   - serve: Command for starting and configuring the aesdlog server
//   - client: Commands sending a record (send) or a control command (seekto)
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See aesdlog -help for a list of all commands.
package cmd
