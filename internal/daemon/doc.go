// Package daemon coordinates the long-running Spool process.
//
// It wires configuration, queue storage, and the workflow manager into a
// single lifecycle with flock-based locking to prevent multiple instances,
// and owns the HTTP listener that serves the Telegram webhook and the
// optional REST API. The daemon exposes queue maintenance helpers, URL
// enqueueing for CLI and REST submissions, dependency availability
// summaries, and the notification test hook.
//
// Keep orchestration logic here: individual workflow stages live in their
// respective packages while the daemon focuses on startup, shutdown, and
// high level coordination.
package daemon
