// Package transcript keeps an audit trail of completed conversation turns.
// Turns are written once the answer is committed and are never read back into
// a session's history. Drivers: an append-only JSONL file, MySQL and SQLite.
package transcript
