package object

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"

	"github.com/nanogit-community/gitsmartd/hash"
)

// TreeEntry is one line of a tree: a file mode, a name, and the hash of the
// blob or tree it names.
type TreeEntry struct {
	Mode uint32
	Name string
	Hash hash.Hash
}

// Tree is a directory listing. Entries may be in any order: Encode sorts a
// copy of them by Git's "tree path" collation (directories as if suffixed
// with '/'), the same order SortEntries applies in place, so the encoded
// form is canonical (and therefore hash-stable).
type Tree struct {
	Entries []TreeEntry
}

// SortEntries orders entries the way Git does: byte-wise by name, but a
// directory entry sorts as though its name had a trailing slash. This
// matters because "foo.c" and "foo" (a directory) would otherwise compare
// as "foo" < "foo.c", which disagrees with Git's on-disk tree ordering.
func (t *Tree) SortEntries() {
	sort.Slice(t.Entries, func(i, j int) bool {
		return treeEntryKey(t.Entries[i]) < treeEntryKey(t.Entries[j])
	})
}

func treeEntryKey(e TreeEntry) string {
	if e.Mode&modeDir == modeDir {
		return e.Name + "/"
	}
	return e.Name
}

const modeDir = 0o40000

// Encode renders the tree in Git's canonical format: for each entry,
// "<mode-octal> <name>\0<hash-bytes>", concatenated in sorted order.
func (t Tree) Encode() []byte {
	entries := make([]TreeEntry, len(t.Entries))
	copy(entries, t.Entries)
	sort.Slice(entries, func(i, j int) bool {
		return treeEntryKey(entries[i]) < treeEntryKey(entries[j])
	})

	var buf bytes.Buffer
	for _, e := range entries {
		fmt.Fprintf(&buf, "%o %s\x00", e.Mode, e.Name)
		buf.Write(e.Hash)
	}
	return buf.Bytes()
}

// ParseTree decodes a tree object body. hashWidth is the byte width of the
// repository's hash algorithm (20 for SHA-1, 32 for SHA-256).
func ParseTree(data []byte, hashWidth int) (Tree, error) {
	var t Tree

	for len(data) > 0 {
		sp := bytes.IndexByte(data, ' ')
		if sp < 0 {
			return Tree{}, fmt.Errorf("object: truncated tree entry mode")
		}
		mode, err := strconv.ParseUint(string(data[:sp]), 8, 32)
		if err != nil {
			return Tree{}, fmt.Errorf("object: invalid tree entry mode: %w", err)
		}

		rest := data[sp+1:]
		nul := bytes.IndexByte(rest, 0)
		if nul < 0 {
			return Tree{}, fmt.Errorf("object: truncated tree entry name")
		}
		name := string(rest[:nul])

		rest = rest[nul+1:]
		if len(rest) < hashWidth {
			return Tree{}, fmt.Errorf("object: truncated tree entry hash")
		}

		h := make(hash.Hash, hashWidth)
		copy(h, rest[:hashWidth])

		t.Entries = append(t.Entries, TreeEntry{
			Mode: uint32(mode),
			Name: name,
			Hash: h,
		})

		data = rest[hashWidth:]
	}

	return t, nil
}
