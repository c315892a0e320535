// Package storage persists opaque plugin snapshots (spec §6) across
// process restarts.
package storage

// Backend is the interface all snapshot storage implementations
// satisfy. A snapshot is an opaque byte blob produced by
// plugin.Snapshot.Serialize — this package never inspects its
// contents, matching the spec's "implementation-defined bytes"
// requirement.
type Backend interface {
	Init() error
	Close() error

	// WriteSnapshot persists data as the latest snapshot, replacing
	// whatever was previously stored.
	WriteSnapshot(data []byte) error

	// ReadSnapshot returns the most recently written snapshot. ok is
	// false if no snapshot has ever been written.
	ReadSnapshot() (data []byte, ok bool, err error)
}
