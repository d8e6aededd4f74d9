// Package ytdlp mediates access to the yt-dlp CLI used for resolving and
// downloading media URLs.
//
// It normalizes command invocation, parses --newline progress output, watches
// for extractor errors and size-cap aborts, and exposes testable interfaces
// for the resolving and downloading stages.
//
// Prefer this package over ad-hoc exec.Command usage when interacting with
// yt-dlp so progress reporting and timeout handling remain consistent.
package ytdlp
