package refs

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/nanogit-community/gitsmartd/repo"
)

// Result is the outcome of applying one Command, keyed by the ref name the
// client originally sent (pre-normalisation), as the response must echo it
// back unchanged.
type Result struct {
	Name    string
	OK      bool
	Message string // sanitised, single-line; meaningful only when !OK
}

// normaliseRefName replaces backslashes with slashes and trims whitespace,
// matching the tolerance rule in spec.md's reference-update transaction.
func normaliseRefName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	return strings.TrimSpace(name)
}

// sanitiseMessage collapses an error into a single pkt-line-safe line.
func sanitiseMessage(err error) string {
	msg := err.Error()
	msg = strings.ReplaceAll(msg, "\r", " ")
	msg = strings.ReplaceAll(msg, "\n", " ")
	return msg
}

// ApplyTransaction normalises every command's ref name, locks the
// normalised names (sorted, to avoid deadlocks across concurrent
// transactions touching overlapping refs), snapshots the current ref map,
// then applies each command in its original input order against a
// fast-forward/create/CAS policy. The multi-ref lock is released before
// returning.
func ApplyTransaction(ctx context.Context, store repo.Store, cmds []Command) ([]Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := make([]Result, len(cmds))
	normalised := make([]string, len(cmds))
	valid := make([]bool, len(cmds))

	lockNames := make([]string, 0, len(cmds))
	for i, c := range cmds {
		n := normaliseRefName(c.Name)
		normalised[i] = n
		if !strings.HasPrefix(n, "refs/") || strings.Contains(n+"/", "/../") {
			results[i] = Result{Name: c.Name, OK: false, Message: "references must reside under refs/"}
			continue
		}
		valid[i] = true
		lockNames = append(lockNames, n)
	}

	sort.Strings(lockNames)

	lock, err := store.AcquireMultiRefLock(ctx, lockNames)
	if err != nil {
		return nil, fmt.Errorf("refs: acquiring ref lock: %w", err)
	}
	defer lock.Release()

	snapshot, err := store.GetReferences(ctx)
	if err != nil {
		return nil, fmt.Errorf("refs: snapshotting references: %w", err)
	}

	for i, c := range cmds {
		if !valid[i] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		n := normalised[i]
		current, exists := snapshot[n]

		switch {
		case !c.Old.IsZero() && (!exists || !current.Is(c.Old)):
			results[i] = Result{Name: c.Name, OK: false, Message: "non-fast-forward"}
			continue
		case c.Old.IsZero() && exists:
			results[i] = Result{Name: c.Name, OK: false, Message: "reference exists"}
			continue
		}

		if err := lock.WriteRefWithCAS(ctx, n, c.Old, c.New); err != nil {
			results[i] = Result{Name: c.Name, OK: false, Message: sanitiseMessage(err)}
			continue
		}

		results[i] = Result{Name: c.Name, OK: true}
		if c.New.IsZero() {
			delete(snapshot, n)
		} else {
			snapshot[n] = c.New
		}
	}

	return results, nil
}
