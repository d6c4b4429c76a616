package repo

import (
	"bytes"
	"context"
	"crypto"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zlib"

	"github.com/nanogit-community/gitsmartd/hash"
	"github.com/nanogit-community/gitsmartd/object"
)

// ErrNotBareRepository is returned by Open when dir doesn't look like a
// bare Git directory (missing objects/ or refs/).
var ErrNotBareRepository = errors.New("repo: not a bare git directory")

// ErrObjectNotFound is returned by ReadObject when h isn't in the object
// database.
var ErrObjectNotFound = errors.New("repo: object not found")

// FilesystemStore is a Store backed directly by a bare Git directory on
// disk: loose objects under objects/xx/yyyy…, one file per ref under
// refs/…, and a HEAD file.
type FilesystemStore struct {
	dir       string
	hashWidth int
	algo      crypto.Hash

	refMu *refMutexRegistry
}

// Open validates dir as a bare repository directory and returns a Store
// for it. hashWidth selects SHA-1 (20) or SHA-256 (32) object ids.
func Open(dir string, hashWidth int) (*FilesystemStore, error) {
	dir = filepath.Clean(dir)

	objInfo, err := os.Stat(filepath.Join(dir, "objects"))
	if err != nil || !objInfo.IsDir() {
		return nil, ErrNotBareRepository
	}
	refsInfo, err := os.Stat(filepath.Join(dir, "refs"))
	if err != nil || !refsInfo.IsDir() {
		return nil, ErrNotBareRepository
	}

	algo := crypto.SHA1
	if hashWidth == 32 {
		algo = crypto.SHA256
	}

	return &FilesystemStore{
		dir:       dir,
		hashWidth: hashWidth,
		algo:      algo,
		refMu:     &refMutexRegistry{},
	}, nil
}

// Init creates a new bare repository directory at dir: objects/, refs/
// heads and tags, and a HEAD pointing at refs/heads/main.
func Init(dir string, hashWidth int) (*FilesystemStore, error) {
	for _, sub := range []string{"objects", "refs/heads", "refs/tags"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("repo: init %s: %w", sub, err)
		}
	}

	headPath := filepath.Join(dir, "HEAD")
	if _, err := os.Stat(headPath); errors.Is(err, os.ErrNotExist) {
		if err := os.WriteFile(headPath, []byte("ref: refs/heads/main\n"), 0o644); err != nil {
			return nil, fmt.Errorf("repo: writing HEAD: %w", err)
		}
	}

	return Open(dir, hashWidth)
}

func (s *FilesystemStore) HashWidthBytes() int { return s.hashWidth }

func (s *FilesystemStore) GitDir() string { return s.dir }

func (s *FilesystemStore) objectPath(h hash.Hash) string {
	hx := h.String()
	return filepath.Join(s.dir, "objects", hx[:2], hx[2:])
}

func (s *FilesystemStore) ReadObject(ctx context.Context, h hash.Hash) (object.Type, []byte, error) {
	if ctx.Err() != nil {
		return object.TypeInvalid, nil, ctx.Err()
	}

	f, err := os.Open(s.objectPath(h))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return object.TypeInvalid, nil, fmt.Errorf("%w: %s", ErrObjectNotFound, h)
		}
		return object.TypeInvalid, nil, err
	}
	defer f.Close()

	zr, err := zlib.NewReader(f)
	if err != nil {
		return object.TypeInvalid, nil, fmt.Errorf("repo: inflating object %s: %w", h, err)
	}
	defer zr.Close()

	raw, err := io.ReadAll(zr)
	if err != nil {
		return object.TypeInvalid, nil, fmt.Errorf("repo: reading object %s: %w", h, err)
	}

	nul := bytes.IndexByte(raw, 0)
	if nul < 0 {
		return object.TypeInvalid, nil, fmt.Errorf("repo: object %s has no header terminator", h)
	}

	header := string(raw[:nul])
	sp := strings.IndexByte(header, ' ')
	if sp < 0 {
		return object.TypeInvalid, nil, fmt.Errorf("repo: object %s has malformed header %q", h, header)
	}

	kind, err := object.ParseTypeName(header[:sp])
	if err != nil {
		return object.TypeInvalid, nil, fmt.Errorf("repo: object %s: %w", h, err)
	}

	return kind, raw[nul+1:], nil
}

func (s *FilesystemStore) WriteObject(ctx context.Context, t object.Type, content []byte) (hash.Hash, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	h, err := hash.Object(s.algo, string(t.Bytes()), content)
	if err != nil {
		return nil, err
	}

	path := s.objectPath(h)
	if _, err := os.Stat(path); err == nil {
		return h, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("repo: creating object directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-obj-*")
	if err != nil {
		return nil, fmt.Errorf("repo: creating temp object file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	zw := zlib.NewWriter(tmp)
	fmt.Fprintf(zw, "%s %d\x00", t.Bytes(), len(content))
	if _, err := zw.Write(content); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("repo: writing object %s: %w", h, err)
	}
	if err := zw.Close(); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("repo: finalizing object %s: %w", h, err)
	}
	if err := tmp.Close(); err != nil {
		return nil, err
	}

	if err := os.Rename(tmpName, path); err != nil {
		return nil, fmt.Errorf("repo: committing object %s: %w", h, err)
	}

	return h, nil
}

func (s *FilesystemStore) HasObject(ctx context.Context, h hash.Hash) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	_, err := os.Stat(s.objectPath(h))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// refPath maps a ref name ("refs/heads/main") onto its file on disk.
// Name validation happens in refs.ApplyTransaction (refs/ prefix, no ".."
// segments); a Store trusts its caller to have already rejected
// path-escaping names.
func (s *FilesystemStore) refPath(name string) string {
	return filepath.Join(s.dir, filepath.FromSlash(name))
}

func (s *FilesystemStore) readRef(name string) (hash.Hash, error) {
	data, err := os.ReadFile(s.refPath(name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return hash.ZeroOfWidth(s.hashWidth), nil
		}
		return nil, err
	}
	return hash.FromHex(strings.TrimSpace(string(data)))
}

func (s *FilesystemStore) writeRef(name string, h hash.Hash) error {
	path := s.refPath(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("repo: creating ref directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-ref-*")
	if err != nil {
		return fmt.Errorf("repo: creating temp ref file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := fmt.Fprintf(tmp, "%s\n", h); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}

func (s *FilesystemStore) deleteRef(name string) error {
	err := os.Remove(s.refPath(name))
	if err != nil && errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func (s *FilesystemStore) GetReferences(ctx context.Context) (map[string]hash.Hash, error) {
	refs := make(map[string]hash.Hash)

	for _, base := range []string{"refs"} {
		root := filepath.Join(s.dir, base)
		err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if info.IsDir() {
				return nil
			}

			rel, err := filepath.Rel(s.dir, path)
			if err != nil {
				return err
			}
			name := filepath.ToSlash(rel)

			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			h, err := hash.FromHex(strings.TrimSpace(string(data)))
			if err != nil {
				// Not a loose ref file (a symref or corrupt entry);
				// skip it rather than fail the whole listing.
				return nil
			}
			refs[name] = h
			return nil
		})
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	return refs, nil
}

func (s *FilesystemStore) GetHEAD(ctx context.Context) (string, hash.Hash, bool, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, "HEAD"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", hash.ZeroOfWidth(s.hashWidth), false, nil
		}
		return "", nil, false, err
	}

	line := strings.TrimSpace(string(data))
	if target, ok := strings.CutPrefix(line, "ref: "); ok {
		h, err := s.readRef(target)
		if err != nil {
			return target, nil, true, err
		}
		return target, h, true, nil
	}

	h, err := hash.FromHex(line)
	if err != nil {
		return "", nil, false, fmt.Errorf("repo: malformed HEAD: %w", err)
	}
	return "", h, false, nil
}

func (s *FilesystemStore) AcquireMultiRefLock(ctx context.Context, names []string) (RefLock, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	locked := s.refMu.lockSorted(names)
	return &fsRefLock{store: s, names: locked}, nil
}

func (s *FilesystemStore) InvalidateCaches() {
	// Loose-object and ref files are read fresh on every call; there is
	// no in-process cache to invalidate beyond the ref mutex registry,
	// which holds no state about ref values.
}
