package packfile_test

import (
	"bytes"
	"crypto"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nanogit-community/gitsmartd/object"
	"github.com/nanogit-community/gitsmartd/packfile"
)

func TestWriterReader_RoundTrip(t *testing.T) {
	t.Parallel()

	objects := []struct {
		kind    object.Type
		content []byte
	}{
		{object.TypeBlob, []byte("hello world")},
		{object.TypeTree, []byte("100644 a.txt\x00\x01\x02\x03\x04\x05\x06\x07\x08\x09\x10\x11\x12\x13\x14\x15\x16\x17\x18\x19")},
		{object.TypeCommit, []byte("tree deadbeef\nauthor a <a@b.com> 1 +0000\ncommitter a <a@b.com> 1 +0000\n\nmsg")},
	}

	var buf bytes.Buffer
	w, err := packfile.NewWriter(&buf, crypto.SHA1)
	require.NoError(t, err)

	require.NoError(t, w.WriteHeader(uint32(len(objects))))
	for _, o := range objects {
		require.NoError(t, w.WriteObject(o.kind, o.content))
	}
	trailer, err := w.Finish()
	require.NoError(t, err)
	require.Len(t, trailer, 20)

	r, err := packfile.NewReader(buf.Bytes(), 20)
	require.NoError(t, err)
	require.Equal(t, uint32(len(objects)), r.Count())
	require.True(t, r.Trailer().Is(trailer))

	for _, want := range objects {
		e, err := r.ReadEntry()
		require.NoError(t, err)
		require.Equal(t, want.kind, e.Type)
		require.Equal(t, want.content, e.Data)
		require.False(t, e.IsDelta())
	}

	_, err = r.ReadEntry()
	require.ErrorIs(t, err, io.EOF)
}

func TestReader_RejectsBadSignature(t *testing.T) {
	t.Parallel()

	_, err := packfile.NewReader(bytes.Repeat([]byte{0}, 32), 20)
	require.ErrorIs(t, err, packfile.ErrNoPackfileSignature)
}

func TestReader_RejectsCorruptTrailer(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w, err := packfile.NewWriter(&buf, crypto.SHA1)
	require.NoError(t, err)
	require.NoError(t, w.WriteHeader(0))
	_, err = w.Finish()
	require.NoError(t, err)

	corrupted := buf.Bytes()
	corrupted[len(corrupted)-1] ^= 0xff

	_, err = packfile.NewReader(corrupted, 20)
	require.ErrorIs(t, err, packfile.ErrChecksumMismatch)
}

func TestReader_RejectsUnsupportedVersion(t *testing.T) {
	t.Parallel()

	data := []byte("PACK\x00\x00\x00\x09\x00\x00\x00\x00")
	data = append(data, make([]byte, 20)...)

	_, err := packfile.NewReader(data, 20)
	require.ErrorIs(t, err, packfile.ErrUnsupportedPackfileVersion)
}

func TestWriter_FinishErrorsOnCountMismatch(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w, err := packfile.NewWriter(&buf, crypto.SHA1)
	require.NoError(t, err)
	require.NoError(t, w.WriteHeader(2))
	require.NoError(t, w.WriteObject(object.TypeBlob, []byte("only one")))

	_, err = w.Finish()
	require.Error(t, err)
}
