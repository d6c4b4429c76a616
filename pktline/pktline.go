// Package pktline implements Git's pkt-line framing, the length-prefixed
// record format underlying every Smart HTTP request and response body.
//
// A pkt-line is a 4-byte hex length (counting itself) followed by the
// payload, which is that length minus 4 bytes long. Three lengths are reserved for control use instead of
// payload: "0000" (flush-pkt), "0001" (delim-pkt, protocol v2 only), and
// "0002"-"0004" (reserved, never valid on the wire).
//
// For the framing rules, see https://git-scm.com/docs/gitprotocol-common and
// https://git-scm.com/docs/protocol-v2.
package pktline

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

const (
	// LengthSize is the width of a pkt-line's hex length prefix.
	LengthSize = 4

	// MaxDataSize is the largest payload a single pkt-line may carry.
	MaxDataSize = 65516

	// MaxLineSize is the largest a whole pkt-line (prefix + payload) may be.
	MaxLineSize = MaxDataSize + LengthSize
)

// ErrDataTooLarge is returned by WritePacket when the payload exceeds
// MaxDataSize.
var ErrDataTooLarge = errors.New("pktline: data exceeds maximum pkt-line size")

// ErrFlush is the sentinel error ReadPacket returns for a "0000" flush-pkt.
var ErrFlush = errors.New("pktline: flush packet")

// ErrDelim is the sentinel error ReadPacket returns for a "0001" delim-pkt.
var ErrDelim = errors.New("pktline: delimiter packet")

// FramingError reports a malformed pkt-line: a non-hex length, or a length
// in the reserved 0002-0004 range.
type FramingError struct {
	Raw []byte
	Err error
}

func (e *FramingError) Error() string {
	return fmt.Sprintf("pktline: malformed packet %q: %s", e.Raw, e.Err)
}

func (e *FramingError) Unwrap() error { return e.Err }

var errReservedLength = errors.New("reserved pkt-line length")

// Reader reads a stream of pkt-lines. It wraps a bufio.Reader so that once
// the caller is done reading framed records (e.g. the command list of a
// receive-pack request), Raw can be used to keep reading the same
// connection's unframed bytes (e.g. the packfile that follows) without
// losing anything pkt-line reads had already buffered.
type Reader struct {
	br *bufio.Reader
}

// NewReader wraps r for pkt-line reading.
func NewReader(r io.Reader) *Reader {
	return &Reader{br: bufio.NewReaderSize(r, MaxLineSize)}
}

// Raw exposes the underlying buffered reader for subsequent unframed reads.
// Any bytes pkt-line reading had buffered but not yet consumed are returned
// first; there is no separate rewind step to remember.
func (r *Reader) Raw() io.Reader {
	return r.br
}

// ReadPacket reads one pkt-line. On a flush-pkt it returns (nil, ErrFlush);
// on a delim-pkt, (nil, ErrDelim). Callers that don't care about delim
// packets can treat any non-nil error as "stop reading lines".
func (r *Reader) ReadPacket() ([]byte, error) {
	var lenBuf [LengthSize]byte
	if _, err := io.ReadFull(r.br, lenBuf[:]); err != nil {
		return nil, err
	}

	n, err := parseLength(lenBuf[:])
	if err != nil {
		return nil, &FramingError{Raw: lenBuf[:], Err: err}
	}

	switch n {
	case 0:
		return nil, ErrFlush
	case 1:
		return nil, ErrDelim
	case 2, 3, 4:
		return nil, &FramingError{Raw: lenBuf[:], Err: errReservedLength}
	}

	data := make([]byte, n-LengthSize)
	if _, err := io.ReadFull(r.br, data); err != nil {
		return nil, err
	}

	return data, nil
}

func parseLength(hexBytes []byte) (int, error) {
	n := 0
	for _, c := range hexBytes {
		n <<= 4
		switch {
		case c >= '0' && c <= '9':
			n |= int(c - '0')
		case c >= 'a' && c <= 'f':
			n |= int(c-'a') + 10
		case c >= 'A' && c <= 'F':
			n |= int(c-'A') + 10
		default:
			return 0, fmt.Errorf("invalid hex digit %q", c)
		}
	}
	if n > MaxLineSize {
		return 0, fmt.Errorf("length %d exceeds max pkt-line size %d", n, MaxLineSize)
	}
	return n, nil
}

// Writer writes a stream of pkt-lines.
type Writer struct {
	w io.Writer
}

// NewWriter wraps w for pkt-line writing.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WritePacket writes data as a single pkt-line.
func (w *Writer) WritePacket(data []byte) error {
	if len(data) > MaxDataSize {
		return ErrDataTooLarge
	}
	buf := make([]byte, len(data)+LengthSize)
	copy(buf, fmt.Sprintf("%04x", len(data)+LengthSize))
	copy(buf[LengthSize:], data)
	_, err := w.w.Write(buf)
	return err
}

// WriteLine is WritePacket for a line of text; it does not add a trailing
// newline, matching Git's convention of including the LF (when present) in
// the caller-supplied payload.
func (w *Writer) WriteLine(s string) error {
	return w.WritePacket([]byte(s))
}

// WriteFlush writes a "0000" flush-pkt.
func (w *Writer) WriteFlush() error {
	_, err := w.w.Write([]byte("0000"))
	return err
}

// WriteDelim writes a "0001" delim-pkt.
func (w *Writer) WriteDelim() error {
	_, err := w.w.Write([]byte("0001"))
	return err
}
