package repo

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/nanogit-community/gitsmartd/hash"
)

// refMutexRegistry lazily creates one mutex per ref name, scoped to a single
// FilesystemStore. Locking is process-local; this server assumes a single
// process owns a given bare repository directory.
type refMutexRegistry struct {
	mu sync.Map // string -> *sync.Mutex
}

func (r *refMutexRegistry) mutex(name string) *sync.Mutex {
	v, _ := r.mu.LoadOrStore(name, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// lockSorted locks the mutex for every name in names, always in the same
// (sorted) order, so two overlapping multi-ref transactions can never
// deadlock against each other.
func (r *refMutexRegistry) lockSorted(names []string) []string {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)

	// De-duplicate: a caller naming the same ref twice must not deadlock
	// on its own mutex.
	deduped := sorted[:0]
	for i, n := range sorted {
		if i == 0 || n != sorted[i-1] {
			deduped = append(deduped, n)
		}
	}

	for _, n := range deduped {
		r.mutex(n).Lock()
	}
	return deduped
}

func (r *refMutexRegistry) unlock(names []string) {
	for _, n := range names {
		r.mutex(n).Unlock()
	}
}

// fsRefLock implements RefLock for FilesystemStore.
type fsRefLock struct {
	store *FilesystemStore
	names []string
	once  sync.Once
}

func (l *fsRefLock) WriteRefWithCAS(ctx context.Context, name string, expected, newVal hash.Hash) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	var held bool
	for _, n := range l.names {
		if n == name {
			held = true
			break
		}
	}
	if !held {
		return fmt.Errorf("repo: ref %q not held by this lock", name)
	}

	current, err := l.store.readRef(name)
	if err != nil {
		return err
	}

	if !current.Is(expected) {
		return &CASError{Ref: name, Expected: expected, Actual: current}
	}

	if newVal.IsZero() {
		return l.store.deleteRef(name)
	}
	return l.store.writeRef(name, newVal)
}

func (l *fsRefLock) Release() {
	l.once.Do(func() {
		l.store.refMu.unlock(l.names)
	})
}

// CASError reports that a ref's current value didn't match what the caller
// expected when attempting a compare-and-swap update.
type CASError struct {
	Ref      string
	Expected hash.Hash
	Actual   hash.Hash
}

func (e *CASError) Error() string {
	return fmt.Sprintf("repo: ref %s: expected %s, found %s", e.Ref, e.Expected, e.Actual)
}
