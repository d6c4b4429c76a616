package object_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nanogit-community/gitsmartd/hash"
	"github.com/nanogit-community/gitsmartd/object"
)

func TestTree_EncodeParseRoundTrip(t *testing.T) {
	t.Parallel()

	tr := object.Tree{
		Entries: []object.TreeEntry{
			{Mode: 0o100644, Name: "b.txt", Hash: hash.MustFromHex(sampleTreeHex)},
			{Mode: 0o40000, Name: "a", Hash: hash.MustFromHex(sampleParentHex)},
			{Mode: 0o100644, Name: "a.txt", Hash: hash.MustFromHex(sampleTreeHex)},
		},
	}

	encoded := tr.Encode()
	got, err := object.ParseTree(encoded, 20)
	require.NoError(t, err)
	require.Len(t, got.Entries, 3)
}

func TestTree_SortOrder(t *testing.T) {
	t.Parallel()

	// "a" is a directory, "a.txt" is a file. Git's collation treats the
	// directory as "a/" so it sorts after "a.txt".
	tr := object.Tree{
		Entries: []object.TreeEntry{
			{Mode: 0o40000, Name: "a", Hash: hash.MustFromHex(sampleTreeHex)},
			{Mode: 0o100644, Name: "a.txt", Hash: hash.MustFromHex(sampleTreeHex)},
		},
	}
	tr.SortEntries()

	require.Equal(t, "a.txt", tr.Entries[0].Name)
	require.Equal(t, "a", tr.Entries[1].Name)
}

func TestParseTree_TruncatedEntry(t *testing.T) {
	t.Parallel()

	_, err := object.ParseTree([]byte("100644 a.txt\x00short"), 20)
	require.Error(t, err)
}

func TestParseTree_Empty(t *testing.T) {
	t.Parallel()

	got, err := object.ParseTree(nil, 20)
	require.NoError(t, err)
	require.Empty(t, got.Entries)
}
