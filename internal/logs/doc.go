// Package logs provides file tailing helpers for the daemon log.
//
// The daemon keeps a spool.log pointer in the log directory that always
// names the current run's log file, so tailing works without asking the
// daemon which file it writes to. Tail reads with bounded memory (negative
// offsets mean "last N lines"), and Follow re-polls from the returned
// offset until the context ends, which is what `spool logs --follow` uses.
package logs
