package object_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nanogit-community/gitsmartd/hash"
	"github.com/nanogit-community/gitsmartd/object"
)

func TestCommit_EncodeParseRoundTrip(t *testing.T) {
	t.Parallel()

	author := object.Identity{Name: "Ada", Email: "ada@example.com", Timestamp: 1000, Timezone: "+0000"}
	c := object.Commit{
		Tree:      hash.MustFromHex(sampleTreeHex),
		Parents:   []hash.Hash{hash.MustFromHex(sampleParentHex)},
		Author:    author,
		Committer: author,
		Message:   "Initial commit",
	}

	encoded := c.Encode()
	got, err := object.ParseCommit(encoded)
	require.NoError(t, err)

	require.True(t, got.Tree.Is(c.Tree))
	require.Len(t, got.Parents, 1)
	require.True(t, got.Parents[0].Is(c.Parents[0]))
	require.Equal(t, c.Author.String(), got.Author.String())
	require.Equal(t, c.Committer.String(), got.Committer.String())
	require.Equal(t, c.Message, got.Message)
}

func TestCommit_EncodeNoParents(t *testing.T) {
	t.Parallel()

	author := object.Identity{Name: "Ada", Email: "ada@example.com", Timestamp: 1000, Timezone: "+0000"}
	c := object.Commit{
		Tree:      hash.MustFromHex(sampleTreeHex),
		Author:    author,
		Committer: author,
		Message:   "root commit",
	}

	got, err := object.ParseCommit(c.Encode())
	require.NoError(t, err)
	require.Empty(t, got.Parents)
}

func TestParseCommit_MalformedHeader(t *testing.T) {
	t.Parallel()

	_, err := object.ParseCommit([]byte("not-a-header-line\n\nmessage"))
	require.Error(t, err)
}

const (
	sampleTreeHex   = "0123456789abcdef0123456789abcdef01234567"
	sampleParentHex = "fedcba9876543210fedcba9876543210fedcba98"
)
