package packfile

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nanogit-community/gitsmartd/object"
)

func TestTypeAndSizeRoundTrip(t *testing.T) {
	t.Parallel()

	testcases := map[string]struct {
		kind object.Type
		size uint64
	}{
		"small blob":     {object.TypeBlob, 5},
		"zero size":      {object.TypeTree, 0},
		"needs 2 bytes":  {object.TypeCommit, 200},
		"needs 3 bytes":  {object.TypeTag, 1 << 15},
		"large size":     {object.TypeBlob, 1 << 40},
		"exactly 4 bits": {object.TypeBlob, 15},
	}

	for name, tc := range testcases {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, writeTypeAndSize(&buf, tc.kind, tc.size))

			r := bytes.NewReader(buf.Bytes())
			gotType, gotSize, err := readTypeAndSize(r)
			require.NoError(t, err)
			require.Equal(t, tc.kind, gotType)
			require.Equal(t, tc.size, gotSize)
			require.Equal(t, 0, r.Len(), "reader should consume exactly the header bytes")
		})
	}
}

func TestReadDeltaSize(t *testing.T) {
	t.Parallel()

	// 300 encoded as a 2-byte base-128 varint: 300 = 0b100101100
	// low 7 bits = 0101100 = 0x2c, continuation set -> 0xac
	// remaining bits = 10 = 0x02
	encoded := []byte{0xac, 0x02, 0xff}

	size, rest, err := readDeltaSize(encoded)
	require.NoError(t, err)
	require.Equal(t, uint64(300), size)
	require.Equal(t, []byte{0xff}, rest)
}

func TestReadOfsDeltaOffset(t *testing.T) {
	t.Parallel()

	// Single-byte encoding: offset 100 fits in 7 bits with no continuation.
	r := bytes.NewReader([]byte{100})
	v, err := readOfsDeltaOffset(r)
	require.NoError(t, err)
	require.Equal(t, int64(100), v)
}
