package pktline_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nanogit-community/gitsmartd/pktline"
)

func TestWriter_WritePacket(t *testing.T) {
	t.Parallel()

	testcases := map[string]struct {
		input    []byte
		expected []byte
		wantErr  error
	}{
		"a + LF": {
			input:    []byte("a\n"),
			expected: []byte("0006a\n"),
		},
		"a": {
			input:    []byte("a"),
			expected: []byte("0005a"),
		},
		"foobar + LF": {
			input:    []byte("foobar\n"),
			expected: []byte("000bfoobar\n"),
		},
		"empty": {
			input:    []byte(""),
			expected: []byte("0004"),
		},
		"data too large": {
			input:   make([]byte, pktline.MaxDataSize+1),
			wantErr: pktline.ErrDataTooLarge,
		},
		"exact max size": {
			input:    make([]byte, pktline.MaxDataSize),
			expected: append([]byte("fff0"), make([]byte, pktline.MaxDataSize)...),
		},
	}

	for name, tc := range testcases {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			w := pktline.NewWriter(&buf)
			err := w.WritePacket(tc.input)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.expected, buf.Bytes())
		})
	}
}

func TestWriter_Specials(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := pktline.NewWriter(&buf)
	require.NoError(t, w.WriteLine("want deadbeef\n"))
	require.NoError(t, w.WriteDelim())
	require.NoError(t, w.WriteFlush())

	require.Equal(t, "0012want deadbeef\n00010000", buf.String())
}

func TestReader_ReadPacket(t *testing.T) {
	t.Parallel()

	r := pktline.NewReader(bytes.NewBufferString("0006a\n0005a00010000"))

	data, err := r.ReadPacket()
	require.NoError(t, err)
	require.Equal(t, []byte("a\n"), data)

	data, err = r.ReadPacket()
	require.NoError(t, err)
	require.Equal(t, []byte("a"), data)

	_, err = r.ReadPacket()
	require.ErrorIs(t, err, pktline.ErrDelim)

	_, err = r.ReadPacket()
	require.ErrorIs(t, err, pktline.ErrFlush)

	_, err = r.ReadPacket()
	require.ErrorIs(t, err, io.EOF)
}

func TestReader_ReservedLength(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"0002", "0003", "0004"} {
		r := pktline.NewReader(bytes.NewBufferString(raw))
		_, err := r.ReadPacket()
		var fe *pktline.FramingError
		require.ErrorAs(t, err, &fe)
	}
}

func TestReader_InvalidHex(t *testing.T) {
	t.Parallel()

	r := pktline.NewReader(bytes.NewBufferString("zzzz"))
	_, err := r.ReadPacket()
	var fe *pktline.FramingError
	require.ErrorAs(t, err, &fe)
}

func TestReader_RawContinuesAfterFlush(t *testing.T) {
	t.Parallel()

	r := pktline.NewReader(bytes.NewBufferString("0005a0000PACKTRAILER"))

	_, err := r.ReadPacket()
	require.NoError(t, err)

	_, err = r.ReadPacket()
	require.ErrorIs(t, err, pktline.ErrFlush)

	rest, err := io.ReadAll(r.Raw())
	require.NoError(t, err)
	require.Equal(t, []byte("PACKTRAILER"), rest)
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := pktline.NewWriter(&buf)
	lines := []string{"first\n", "second\n", ""}
	for _, l := range lines {
		require.NoError(t, w.WriteLine(l))
	}
	require.NoError(t, w.WriteFlush())

	r := pktline.NewReader(&buf)
	for _, want := range lines {
		got, err := r.ReadPacket()
		require.NoError(t, err)
		require.Equal(t, []byte(want), got)
	}
	_, err := r.ReadPacket()
	require.ErrorIs(t, err, pktline.ErrFlush)
}
