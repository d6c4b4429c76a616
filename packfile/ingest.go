package packfile

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/nanogit-community/gitsmartd/hash"
	"github.com/nanogit-community/gitsmartd/object"
	"github.com/nanogit-community/gitsmartd/repo"
)

// Ingest parses an incoming packfile and writes every object it contains
// into store, resolving ofs-delta and ref-delta entries along the way.
//
// Entries aren't necessarily in dependency order: a ref-delta may name a
// base that appears later in the same pack. Unresolved entries are
// deferred and retried after each pass; ingestion fails only if a full
// pass makes no progress.
func Ingest(ctx context.Context, store repo.Store, data []byte) (objectCount int, err error) {
	r, err := NewReader(data, store.HashWidthBytes())
	if err != nil {
		return 0, err
	}

	var entries []*RawEntry
	for {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		e, err := r.ReadEntry()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return 0, err
		}
		entries = append(entries, e)
	}

	byOffset := make(map[int64]hash.Hash, len(entries))
	pending := entries
	written := 0

	for len(pending) > 0 {
		var next []*RawEntry
		progressed := false

		for _, e := range pending {
			content, kind, ok, err := resolveEntry(ctx, store, e, byOffset)
			if err != nil {
				return 0, err
			}
			if !ok {
				next = append(next, e)
				continue
			}

			h, err := store.WriteObject(ctx, kind, content)
			if err != nil {
				return 0, fmt.Errorf("packfile: writing object from offset %d: %w", e.Offset, err)
			}
			byOffset[e.Offset] = h
			written++
			progressed = true
		}

		if !progressed {
			return 0, fmt.Errorf("packfile: %d object(s) could not be resolved against any base", len(next))
		}
		pending = next
	}

	return written, nil
}

// resolveEntry returns an entry's final type and content. ok is false when
// the entry is a delta whose base hasn't been written yet.
func resolveEntry(ctx context.Context, store repo.Store, e *RawEntry, byOffset map[int64]hash.Hash) ([]byte, object.Type, bool, error) {
	if !e.IsDelta() {
		return e.Data, e.Type, true, nil
	}

	var baseHash hash.Hash
	var haveBase bool

	if e.Type == object.TypeOfsDelta {
		baseHash, haveBase = byOffset[e.BaseOffset]
	} else {
		if has, err := store.HasObject(ctx, e.BaseHash); err != nil {
			return nil, object.TypeInvalid, false, err
		} else if has {
			baseHash, haveBase = e.BaseHash, true
		} else if h, ok := resolveByHashInPack(e.BaseHash, byOffset); ok {
			baseHash, haveBase = h, true
		}
	}
	if !haveBase {
		return nil, object.TypeInvalid, false, nil
	}

	kind, baseContent, err := store.ReadObject(ctx, baseHash)
	if err != nil {
		return nil, object.TypeInvalid, false, fmt.Errorf("packfile: reading delta base %s: %w", baseHash, err)
	}

	content, err := applyDelta(baseContent, e.Data)
	if err != nil {
		return nil, object.TypeInvalid, false, fmt.Errorf("packfile: applying delta at offset %d: %w", e.Offset, err)
	}

	return content, kind, true, nil
}

func resolveByHashInPack(target hash.Hash, byOffset map[int64]hash.Hash) (hash.Hash, bool) {
	for _, h := range byOffset {
		if h.Is(target) {
			return h, true
		}
	}
	return hash.Hash(nil), false
}
