// Package main hosts the Spool CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into IPC calls
// against the daemon, queue maintenance operations, log tailing, URL
// submissions, and configuration scaffolding. Read-only queue commands fall
// back to direct store access when the daemon is down, so inspection never
// requires a running process.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
