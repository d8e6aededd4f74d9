// Package ffprobe shells out to ffprobe and exposes its JSON report as
// typed Go values.
//
// Inspect runs the binary; Result carries the decoded streams and container
// format, with helpers for the questions the pipeline actually asks: does
// the file have video or audio, what are its dimensions, how long is it,
// and how big. Everything else ffprobe reports is left out of the types.
package ffprobe
