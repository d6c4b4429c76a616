package object

// Blob is a file's raw contents. Git imposes no structure on a blob; it is
// stored and served exactly as written.
type Blob []byte

// Encode returns the blob's content unchanged. Present for symmetry with
// Commit/Tree/Tag's Encode so callers can treat all four kinds uniformly.
func (b Blob) Encode() []byte {
	return []byte(b)
}

// ParseBlob wraps raw bytes as a Blob. It never fails.
func ParseBlob(data []byte) Blob {
	return Blob(data)
}
