// Package ipc carries daemon control over a Unix domain socket.
//
// The server side registers a JSON-RPC service backed by the running daemon;
// the client side is what the CLI dials, with a short connect timeout so
// commands fail fast when no daemon is listening. Request and response types
// double as the wire contract, and queue items cross the socket in the same
// DTO shape the HTTP API serves.
package ipc
