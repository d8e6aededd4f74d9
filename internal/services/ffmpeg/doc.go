// Package ffmpeg builds and executes ffmpeg commands for the transcoding
// stage with a shared argument skeleton, machine-readable progress parsing,
// and stderr capture for error reporting.
package ffmpeg
