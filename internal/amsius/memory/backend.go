// Package memory implements the learning subsystem of Amsius: a bounded,
// durable corpus of observed chat messages, the eligibility rules that gate
// what enters it, and the selection logic that replays one of its entries
// back into the channel.
package memory

import "context"

// Backend is the pluggable persistence layer behind the Corpus. The backend
// is chosen once at startup (SQLite when a database is available, a JSON
// snapshot file otherwise) and never re-evaluated mid-run.
//
// Writes are issued fire-and-forget from the learning path: failures are
// logged, never surfaced to the caller, and never block learning.
type Backend interface {
	// Load retrieves up to limit of the most recently retained messages,
	// oldest-first. A missing or empty backing store yields an empty
	// slice and no error.
	Load(ctx context.Context, limit int) ([]string, error)

	// Save persists one newly retained message. text is the appended
	// entry; corpus is a snapshot of the full in-memory corpus after the
	// append, for backends that rewrite the whole store on every write.
	Save(ctx context.Context, text string, corpus []string) error

	// Close releases backend resources.
	Close() error
}
