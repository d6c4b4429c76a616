package packfile

import (
	"fmt"
	"io"

	"github.com/nanogit-community/gitsmartd/object"
)

// readTypeAndSize decodes a packfile object header: a variable-length
// encoding where the first byte packs a 3-bit type and the low 4 bits of
// the size, and each following byte (while the continuation bit is set)
// contributes 7 more bits of size, least-significant group first.
//
// https://git-scm.com/docs/pack-format#_object_types
func readTypeAndSize(r io.ByteReader) (object.Type, uint64, error) {
	b, err := r.ReadByte()
	if err != nil {
		return object.TypeInvalid, 0, err
	}

	t := object.Type((b >> 4) & 0x7)
	size := uint64(b & 0x0f)
	shift := uint(4)

	for b&0x80 != 0 {
		b, err = r.ReadByte()
		if err != nil {
			return object.TypeInvalid, 0, err
		}
		size |= uint64(b&0x7f) << shift
		shift += 7
	}

	return t, size, nil
}

// writeTypeAndSize encodes a packfile object header for t and size.
func writeTypeAndSize(w io.Writer, t object.Type, size uint64) error {
	first := byte(t&0x7) << 4
	first |= byte(size & 0x0f)
	size >>= 4

	if size > 0 {
		first |= 0x80
	}
	if err := writeByte(w, first); err != nil {
		return err
	}

	for size > 0 {
		b := byte(size & 0x7f)
		size >>= 7
		if size > 0 {
			b |= 0x80
		}
		if err := writeByte(w, b); err != nil {
			return err
		}
	}

	return nil
}

func writeByte(w io.Writer, b byte) error {
	_, err := w.Write([]byte{b})
	return err
}

// readOfsDeltaOffset decodes the relative negative offset that follows an
// OBJ_OFS_DELTA header: a base-128 big-endian varint with a +1 bias applied
// to every digit after the first, so that each representable value has a
// unique encoding.
//
// https://git-scm.com/docs/pack-format#_deltified_representation
func readOfsDeltaOffset(r io.ByteReader) (int64, error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, err
	}

	value := int64(b & 0x7f)
	for b&0x80 != 0 {
		b, err = r.ReadByte()
		if err != nil {
			return 0, err
		}
		value = ((value + 1) << 7) | int64(b&0x7f)
	}

	return value, nil
}

// readDeltaSize decodes one of the two little-endian base-128 size fields
// (source size, target size) at the start of a delta's instruction stream.
func readDeltaSize(b []byte) (uint64, []byte, error) {
	var size uint64
	var shift uint

	for i, c := range b {
		size |= uint64(c&0x7f) << shift
		shift += 7
		if c&0x80 == 0 {
			return size, b[i+1:], nil
		}
	}

	return 0, nil, fmt.Errorf("packfile: truncated delta size field")
}
