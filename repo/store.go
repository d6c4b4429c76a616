// Package repo defines the repository port this server reads and writes
// through, and a filesystem-backed implementation of it: loose objects and
// one-file-per-ref storage inside a bare Git directory, with no external
// git process involved.
package repo

import (
	"context"

	"github.com/nanogit-community/gitsmartd/hash"
	"github.com/nanogit-community/gitsmartd/object"
)

// Store is the repository port the protocol engine runs against. A Store
// value is scoped to one bare repository directory.
type Store interface {
	// HashWidthBytes returns 20 for SHA-1 repositories, 32 for SHA-256.
	HashWidthBytes() int

	// GitDir returns the repository's root directory on disk.
	GitDir() string

	// GetReferences returns every ref and its target hash.
	GetReferences(ctx context.Context) (map[string]hash.Hash, error)

	// GetHEAD reports HEAD's target. If isSymbolic, target names the ref
	// HEAD points at and direct is its resolved hash (Zero if unresolvable,
	// e.g. an empty repository); otherwise direct is HEAD's own hash.
	GetHEAD(ctx context.Context) (target string, direct hash.Hash, isSymbolic bool, err error)

	// ReadObject returns an object's type and raw (undelimited) content.
	ReadObject(ctx context.Context, h hash.Hash) (object.Type, []byte, error)

	// WriteObject stores content under the given type and returns its hash.
	// Writing an object that already exists is a no-op that still returns
	// the correct hash.
	WriteObject(ctx context.Context, t object.Type, content []byte) (hash.Hash, error)

	// HasObject reports whether h is present in the object database.
	HasObject(ctx context.Context, h hash.Hash) (bool, error)

	// AcquireMultiRefLock locks every named ref for the duration of a
	// transaction, in an order that avoids deadlocking against a
	// concurrent transaction over an overlapping ref set.
	AcquireMultiRefLock(ctx context.Context, names []string) (RefLock, error)

	// InvalidateCaches drops any in-process cached state (e.g. a packed-refs
	// cache) so the next read observes out-of-band changes to the
	// repository directory.
	InvalidateCaches()
}

// RefLock is a held lock over a set of refs, acquired via
// Store.AcquireMultiRefLock.
type RefLock interface {
	// WriteRefWithCAS updates name to newVal if and only if its current
	// value equals expected. A Zero expected means "ref must not exist";
	// a Zero newVal deletes the ref.
	WriteRefWithCAS(ctx context.Context, name string, expected, newVal hash.Hash) error

	// Release returns every ref this lock holds.
	Release()
}
