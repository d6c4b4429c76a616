package packfile

import (
	"errors"
	"fmt"
)

// ErrReservedDeltaOpcode is returned when a delta instruction stream
// contains the reserved 0x00 opcode.
var ErrReservedDeltaOpcode = errors.New("packfile: reserved delta opcode")

// applyDelta reconstructs target content by replaying a delta's copy/insert
// instructions against base.
//
// A delta body starts with two size fields (source size, target size),
// each a little-endian base-128 varint, followed by a stream of
// instructions. An instruction with its high bit set is a copy from base:
// the low 7 bits select which of 4 offset bytes and 3 size bytes follow.
// An instruction with the high bit clear (and non-zero) is an insert:
// its 7 low bits give the number of literal bytes that follow it directly.
// Opcode 0x00 is reserved.
//
// https://git-scm.com/docs/pack-format#_deltified_representation
func applyDelta(base, delta []byte) ([]byte, error) {
	srcSize, delta, err := readDeltaSize(delta)
	if err != nil {
		return nil, fmt.Errorf("packfile: reading delta source size: %w", err)
	}
	if uint64(len(base)) != srcSize {
		return nil, fmt.Errorf("packfile: delta base size %d does not match declared source size %d", len(base), srcSize)
	}

	targetSize, delta, err := readDeltaSize(delta)
	if err != nil {
		return nil, fmt.Errorf("packfile: reading delta target size: %w", err)
	}

	out := make([]byte, 0, targetSize)

	for len(delta) > 0 {
		cmd := delta[0]
		delta = delta[1:]

		switch {
		case cmd&0x80 != 0:
			var offset, size uint32

			if cmd&0x01 != 0 {
				offset, delta, err = popByteInto(offset, 0, delta)
				if err != nil {
					return nil, err
				}
			}
			if cmd&0x02 != 0 {
				offset, delta, err = popByteInto(offset, 8, delta)
				if err != nil {
					return nil, err
				}
			}
			if cmd&0x04 != 0 {
				offset, delta, err = popByteInto(offset, 16, delta)
				if err != nil {
					return nil, err
				}
			}
			if cmd&0x08 != 0 {
				offset, delta, err = popByteInto(offset, 24, delta)
				if err != nil {
					return nil, err
				}
			}
			if cmd&0x10 != 0 {
				size, delta, err = popByteInto(size, 0, delta)
				if err != nil {
					return nil, err
				}
			}
			if cmd&0x20 != 0 {
				size, delta, err = popByteInto(size, 8, delta)
				if err != nil {
					return nil, err
				}
			}
			if cmd&0x40 != 0 {
				size, delta, err = popByteInto(size, 16, delta)
				if err != nil {
					return nil, err
				}
			}
			if size == 0 {
				size = 0x10000
			}

			if uint64(offset)+uint64(size) > uint64(len(base)) {
				return nil, fmt.Errorf("packfile: delta copy [%d,%d) exceeds base length %d", offset, offset+size, len(base))
			}
			out = append(out, base[offset:offset+size]...)

		case cmd != 0:
			n := int(cmd)
			if len(delta) < n {
				return nil, fmt.Errorf("packfile: truncated delta insert of %d bytes", n)
			}
			out = append(out, delta[:n]...)
			delta = delta[n:]

		default:
			return nil, ErrReservedDeltaOpcode
		}
	}

	if uint64(len(out)) != targetSize {
		return nil, fmt.Errorf("packfile: delta produced %d bytes, expected %d", len(out), targetSize)
	}

	return out, nil
}

func popByteInto(acc uint32, shift uint, b []byte) (uint32, []byte, error) {
	if len(b) < 1 {
		return 0, nil, fmt.Errorf("packfile: truncated delta copy instruction")
	}
	return acc | uint32(b[0])<<shift, b[1:], nil
}
