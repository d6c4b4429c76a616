package server

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-set/v3"

	"github.com/nanogit-community/gitsmartd/hash"
	"github.com/nanogit-community/gitsmartd/object"
	"github.com/nanogit-community/gitsmartd/repo"
)

// ClosureEntry is one object reachable from a want set, already loaded from
// the store.
type ClosureEntry struct {
	Hash hash.Hash
	Type object.Type
	Data []byte
}

// Closure walks every object transitively reachable from wants: a commit
// reaches its tree and its parents, a tag reaches its target, a tree
// reaches every entry it names. Blobs terminate the walk. There is no
// `have` negotiation; the closure always includes the full ancestry, and an
// object already visited (by any path) is never re-read.
func Closure(ctx context.Context, store repo.Store, wants []hash.Hash) ([]ClosureEntry, error) {
	visited := set.New[string](len(wants) * 4)
	var entries []ClosureEntry

	var visit func(h hash.Hash) error
	visit = func(h hash.Hash) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !visited.Insert(h.String()) {
			return nil
		}

		kind, data, err := store.ReadObject(ctx, h)
		if err != nil {
			return fmt.Errorf("server: closure: reading %s: %w", h, err)
		}
		entries = append(entries, ClosureEntry{Hash: h, Type: kind, Data: data})

		switch kind {
		case object.TypeCommit:
			c, err := object.ParseCommit(data)
			if err != nil {
				return fmt.Errorf("server: closure: parsing commit %s: %w", h, err)
			}
			if err := visit(c.Tree); err != nil {
				return err
			}
			for _, p := range c.Parents {
				if err := visit(p); err != nil {
					return err
				}
			}

		case object.TypeTree:
			t, err := object.ParseTree(data, store.HashWidthBytes())
			if err != nil {
				return fmt.Errorf("server: closure: parsing tree %s: %w", h, err)
			}
			for _, e := range t.Entries {
				if err := visit(e.Hash); err != nil {
					return err
				}
			}

		case object.TypeTag:
			tag, err := object.ParseTag(data)
			if err != nil {
				return fmt.Errorf("server: closure: parsing tag %s: %w", h, err)
			}
			if err := visit(tag.Object); err != nil {
				return err
			}
		}

		return nil
	}

	for _, w := range wants {
		if err := visit(w); err != nil {
			return nil, err
		}
	}

	return entries, nil
}
