// Package logging builds the structured slog loggers the daemon and CLI share.
//
// It owns the console and JSON handlers, the level plumbing, the fan-out
// across log destinations, and the context helpers that stamp records with
// item IDs, stages, lanes, and request IDs. A no-op logger is available for
// tests and for wiring paths that run before logging is configured.
//
// Components should obtain loggers through New or NewNop rather than
// assembling slog handlers themselves so every log line carries the same
// field vocabulary.
package logging
