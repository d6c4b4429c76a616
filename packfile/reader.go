// Package packfile implements Git's packfile format: a header, a run of
// type-and-size-prefixed zlib-deflated objects (optionally stored as
// ofs-delta/ref-delta against another object), and a trailing checksum.
//
// https://git-scm.com/docs/pack-format
package packfile

import (
	"bytes"
	"crypto"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"

	"github.com/nanogit-community/gitsmartd/hash"
	"github.com/nanogit-community/gitsmartd/object"
)

// ErrNoPackfileSignature is returned when the data doesn't start with the
// 4-byte "PACK" magic.
var ErrNoPackfileSignature = errors.New("packfile: missing PACK signature")

// ErrUnsupportedPackfileVersion is returned for any version other than 2 or 3.
var ErrUnsupportedPackfileVersion = errors.New("packfile: unsupported version")

// ErrTruncated is returned when data is shorter than a valid packfile could be.
var ErrTruncated = errors.New("packfile: truncated")

// ErrChecksumMismatch is returned when the trailing checksum doesn't match
// the hash of the preceding bytes.
var ErrChecksumMismatch = errors.New("packfile: trailing checksum mismatch")

// RawEntry is one object as stored in the pack: its declared type and size,
// its position in the pack (needed to resolve ofs-delta bases), and its
// decompressed bytes — which are the object's content for a plain object,
// or an undecoded delta instruction stream for ofs-delta/ref-delta.
type RawEntry struct {
	Offset     int64
	Type       object.Type
	Size       uint64
	BaseOffset int64     // set when Type == object.TypeOfsDelta
	BaseHash   hash.Hash // set when Type == object.TypeRefDelta
	Data       []byte
}

// IsDelta reports whether the entry needs resolving against a base object.
func (e *RawEntry) IsDelta() bool {
	return e.Type == object.TypeOfsDelta || e.Type == object.TypeRefDelta
}

// Reader parses a complete in-memory packfile. The whole payload is
// buffered up front (rather than streamed) so that decompressing one
// object via a bytes.Reader consumes exactly the compressed bytes it used,
// letting later reads resume from the right offset without guesswork about
// how far the zlib decompressor's own buffering looked ahead.
type Reader struct {
	data      []byte
	pos       int64
	count     uint32
	read      uint32
	hashWidth int
	trailer   hash.Hash
}

// NewReader validates data as a packfile (signature, version, trailing
// checksum) and returns a Reader positioned at the first object.
func NewReader(data []byte, hashWidth int) (*Reader, error) {
	if len(data) < 12+hashWidth {
		return nil, ErrTruncated
	}
	if string(data[0:4]) != "PACK" {
		return nil, ErrNoPackfileSignature
	}

	version := binary.BigEndian.Uint32(data[4:8])
	if version != 2 && version != 3 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedPackfileVersion, version)
	}
	count := binary.BigEndian.Uint32(data[8:12])

	body := data[:len(data)-hashWidth]
	trailer := data[len(data)-hashWidth:]

	algo := crypto.SHA1
	if hashWidth == 32 {
		algo = crypto.SHA256
	}
	if !algo.Available() {
		return nil, fmt.Errorf("%w: %s", hash.ErrUnlinkedAlgorithm, algo)
	}

	h := algo.New()
	if _, err := h.Write(body); err != nil {
		return nil, err
	}
	if !bytes.Equal(h.Sum(nil), trailer) {
		return nil, ErrChecksumMismatch
	}

	return &Reader{
		data:      data,
		pos:       12,
		count:     count,
		hashWidth: hashWidth,
		trailer:   hash.Hash(trailer),
	}, nil
}

// Count returns the number of objects the pack header declares.
func (r *Reader) Count() uint32 { return r.count }

// Trailer returns the pack's trailing checksum.
func (r *Reader) Trailer() hash.Hash { return r.trailer }

// ReadEntry returns the next object. It returns io.EOF once every declared
// object has been read.
func (r *Reader) ReadEntry() (*RawEntry, error) {
	if r.read >= r.count {
		return nil, io.EOF
	}

	start := r.pos
	body := r.data[:len(r.data)-r.hashWidth]
	br := bytes.NewReader(body[r.pos:])

	t, size, err := readTypeAndSize(br)
	if err != nil {
		return nil, fmt.Errorf("packfile: reading object header at offset %d: %w", start, err)
	}

	entry := &RawEntry{Offset: start, Type: t, Size: size}

	switch t {
	case object.TypeOfsDelta:
		negOffset, err := readOfsDeltaOffset(br)
		if err != nil {
			return nil, fmt.Errorf("packfile: reading ofs-delta offset at %d: %w", start, err)
		}
		entry.BaseOffset = start - negOffset
		if entry.BaseOffset < 0 || entry.BaseOffset >= start {
			return nil, fmt.Errorf("packfile: ofs-delta at %d has out-of-range base offset %d", start, entry.BaseOffset)
		}
	case object.TypeRefDelta:
		baseHash := make(hash.Hash, r.hashWidth)
		if _, err := io.ReadFull(br, baseHash); err != nil {
			return nil, fmt.Errorf("packfile: reading ref-delta base hash at %d: %w", start, err)
		}
		entry.BaseHash = baseHash
	}

	zr, err := zlib.NewReader(br)
	if err != nil {
		return nil, fmt.Errorf("packfile: opening zlib stream at %d: %w", start, err)
	}

	content := make([]byte, 0, size)
	buf := make([]byte, 32*1024)
	for {
		n, rerr := zr.Read(buf)
		if n > 0 {
			content = append(content, buf[:n]...)
		}
		if rerr != nil {
			if rerr != io.EOF {
				return nil, fmt.Errorf("packfile: inflating object at %d: %w", start, rerr)
			}
			break
		}
	}
	if err := zr.Close(); err != nil {
		return nil, fmt.Errorf("packfile: closing zlib stream at %d: %w", start, err)
	}
	entry.Data = content

	consumed := int64(len(body[r.pos:])) - int64(br.Len())
	r.pos = start + consumed
	r.read++

	return entry, nil
}
