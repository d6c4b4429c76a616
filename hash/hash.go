// Package hash provides Git-compatible object hashing. The server supports
// every hash algorithm Git does; only the algorithms linked into the binary
// via the blank imports in object.go are actually usable at runtime.
package hash

import (
	"encoding/hex"
	"hash"
	"slices"
)

// Hash is an opaque object identifier: 20 bytes for SHA-1, 32 for SHA-256.
type Hash []byte

// Zero is the distinguished all-zero hash. It never identifies a real
// object; in reference-update commands it signals absence (create/delete).
var Zero Hash

// FromHex decodes a hex-encoded hash. An empty string decodes to Zero.
func FromHex(hs string) (Hash, error) {
	if len(hs) == 0 {
		return Zero, nil
	}

	b, err := hex.DecodeString(hs)
	if err != nil {
		return Zero, err
	}
	return Hash(b), nil
}

// MustFromHex is like FromHex but panics on a malformed hex string. Intended
// for tests and other call sites where the string is known to be valid.
func MustFromHex(hs string) Hash {
	h, err := FromHex(hs)
	if err != nil {
		panic(err)
	}
	return h
}

func (h Hash) String() string {
	return hex.EncodeToString(h)
}

// Is reports whether h and other identify the same object.
func (h Hash) Is(other Hash) bool {
	return slices.Equal(h, other)
}

// IsZero reports whether h is the all-zero sentinel (or has no bytes at
// all, which callers treat the same way).
func (h Hash) IsZero() bool {
	if len(h) == 0 {
		return true
	}
	for _, b := range h {
		if b != 0 {
			return false
		}
	}
	return true
}

// ZeroOfWidth returns the zero hash for the given byte width.
func ZeroOfWidth(width int) Hash {
	return make(Hash, width)
}

// Hasher wraps a running hash.Hash so callers can feed it object content
// incrementally and read back the final digest.
type Hasher struct {
	hash.Hash
}
