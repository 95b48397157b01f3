// Package cmd implements the mailcdp command-line interface.
//
// Commands:
//   - targets: list the debuggable targets and mark the primary window
//   - eval: evaluate a script in the primary window
//   - compose: drive one compose session (open, set, save, close, state, list)
//   - draft: open, fill and save a draft in one go
//   - watch: stream network events and serve Prometheus metrics
//   - generate-docs: print a markdown reference of commands and the compose surface
//   - version: print the version
//
// Results are printed as JSON on stdout; progress and status lines go to
// stderr. The exit code is 2 when the application is not attached and 3
// when a primitive finished without the remote state reflecting it.
package cmd
