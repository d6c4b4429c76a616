package packfile

import (
	"bytes"
	"crypto"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"

	"github.com/nanogit-community/gitsmartd/hash"
	"github.com/nanogit-community/gitsmartd/object"
)

// Writer builds a packfile: a 12-byte header, zlib-deflated objects (never
// deltified — this server always writes full objects), and a trailing
// checksum over everything written before it.
type Writer struct {
	dst     io.Writer
	hasher  hash.Hasher
	count   uint32
	written uint32
}

// NewWriter returns a Writer that emits a packfile to dst, hashed with algo
// for the trailing checksum. The object count is declared by WriteHeader.
func NewWriter(dst io.Writer, algo crypto.Hash) (*Writer, error) {
	if !algo.Available() {
		return nil, fmt.Errorf("%w: %s", hash.ErrUnlinkedAlgorithm, algo)
	}
	return &Writer{dst: dst, hasher: hash.Hasher{Hash: algo.New()}}, nil
}

func (w *Writer) write(p []byte) error {
	if _, err := w.hasher.Write(p); err != nil {
		return err
	}
	_, err := w.dst.Write(p)
	return err
}

// WriteHeader writes the pack signature, version 2, and the declared
// object count. It must be called exactly once, before any WriteObject.
func (w *Writer) WriteHeader(count uint32) error {
	var buf [12]byte
	copy(buf[0:4], "PACK")
	binary.BigEndian.PutUint32(buf[4:8], 2)
	binary.BigEndian.PutUint32(buf[8:12], count)
	w.count = count
	return w.write(buf[:])
}

// WriteObject deflates and appends one object of kind t.
func (w *Writer) WriteObject(t object.Type, content []byte) error {
	var hdr bytes.Buffer
	if err := writeTypeAndSize(&hdr, t, uint64(len(content))); err != nil {
		return err
	}
	if err := w.write(hdr.Bytes()); err != nil {
		return err
	}

	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	if _, err := zw.Write(content); err != nil {
		return fmt.Errorf("packfile: deflating object: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("packfile: finalizing deflate stream: %w", err)
	}

	if err := w.write(compressed.Bytes()); err != nil {
		return err
	}

	w.written++
	return nil
}

// Finish writes the trailing checksum and returns it. It errors if fewer
// or more objects were written than WriteHeader declared.
func (w *Writer) Finish() (hash.Hash, error) {
	if w.written != w.count {
		return nil, fmt.Errorf("packfile: wrote %d objects, header declared %d", w.written, w.count)
	}

	sum := w.hasher.Sum()
	if _, err := w.dst.Write(sum); err != nil {
		return nil, err
	}
	return sum, nil
}
