package hash

import (
	"crypto"
	// Linking the algorithms Git supports into the binary. Their init
	// functions register the hash in the crypto package; without the
	// blank import crypto.Available reports false and New panics.
	_ "crypto/sha1"
	_ "crypto/sha256"
	"errors"
	"fmt"
)

// ErrUnlinkedAlgorithm is returned when the requested hash algorithm has no
// crypto package linked into the binary.
var ErrUnlinkedAlgorithm = errors.New("hash: algorithm not linked into binary")

// NewHasher starts a Hasher for an object whose header token is kind (e.g.
// "commit", "tree", "blob", "tag") with the given content size. The object
// header ("<kind> <size>\0") is written into the running hash immediately;
// callers write content and then call Sum.
func NewHasher(algo crypto.Hash, kind string, size int64) (Hasher, error) {
	if !algo.Available() {
		return Hasher{}, fmt.Errorf("%w: %s", ErrUnlinkedAlgorithm, algo)
	}

	h := Hasher{Hash: algo.New()}
	fmt.Fprintf(h.Hash, "%s %d\x00", kind, size)
	return h, nil
}

// Sum finalizes the running hash and returns the digest.
func (h Hasher) Sum() Hash {
	return h.Hash.Sum(nil)
}

// Object computes the object id for content under the given header token by
// hashing "<kind> <size>\0<content>" with algo.
func Object(algo crypto.Hash, kind string, data []byte) (Hash, error) {
	h, err := NewHasher(algo, kind, int64(len(data)))
	if err != nil {
		return nil, err
	}

	if _, err := h.Write(data); err != nil {
		return nil, err
	}

	return h.Sum(), nil
}
