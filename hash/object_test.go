package hash_test

import (
	"crypto"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nanogit-community/gitsmartd/hash"
)

func TestObject_KnownBlob(t *testing.T) {
	t.Parallel()

	// Git's hash for a zero-byte blob is well known and stable; this pins
	// our header framing ("blob 0\0") against it.
	got, err := hash.Object(crypto.SHA1, "blob", nil)
	require.NoError(t, err)
	require.Equal(t, "e69de29bb2d1d6434b8b29ae775ad8c2e48c5391", got.String())
}

func TestObject_ContentAffectsHash(t *testing.T) {
	t.Parallel()

	a, err := hash.Object(crypto.SHA1, "blob", []byte("hello"))
	require.NoError(t, err)

	b, err := hash.Object(crypto.SHA1, "blob", []byte("world"))
	require.NoError(t, err)

	require.False(t, a.Is(b))
}

func TestObject_KindAffectsHash(t *testing.T) {
	t.Parallel()

	content := []byte("same bytes")

	asBlob, err := hash.Object(crypto.SHA1, "blob", content)
	require.NoError(t, err)

	asTree, err := hash.Object(crypto.SHA1, "tree", content)
	require.NoError(t, err)

	require.False(t, asBlob.Is(asTree))
}

func TestNewHasher_IncrementalWriteMatchesObject(t *testing.T) {
	t.Parallel()

	content := []byte("incremental content")

	want, err := hash.Object(crypto.SHA1, "blob", content)
	require.NoError(t, err)

	h, err := hash.NewHasher(crypto.SHA1, "blob", int64(len(content)))
	require.NoError(t, err)

	_, err = h.Write(content[:4])
	require.NoError(t, err)
	_, err = h.Write(content[4:])
	require.NoError(t, err)

	require.True(t, h.Sum().Is(want))
}

func TestObject_SHA256(t *testing.T) {
	t.Parallel()

	got, err := hash.Object(crypto.SHA256, "blob", nil)
	require.NoError(t, err)
	require.Len(t, got, 32)
}
