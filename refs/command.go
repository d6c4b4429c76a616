// Package refs implements receive-pack's reference-update commands: parsing
// the wire command list and applying it as a compare-and-swap transaction
// across every named ref.
package refs

import (
	"bytes"
	"errors"
	"strings"

	"github.com/nanogit-community/gitsmartd/hash"
)

// ErrSkipCommand is returned by ParseCommand for a line that client
// tolerance rules say to discard silently rather than treat as a protocol
// error: a malformed triple, or a hash whose hex length doesn't match the
// repository's hash width.
var ErrSkipCommand = errors.New("refs: command line discarded")

// Command is one ref-update line: "<old> <new> <name>", optionally followed
// by a NUL and a capability list on the first command of the request.
type Command struct {
	Old  hash.Hash
	New  hash.Hash
	Name string
}

// IsCreate reports whether the command creates a ref that didn't exist.
func (c Command) IsCreate() bool { return c.Old.IsZero() && !c.New.IsZero() }

// IsDelete reports whether the command removes an existing ref.
func (c Command) IsDelete() bool { return !c.Old.IsZero() && c.New.IsZero() }

// IsUpdate reports whether the command moves an existing ref to a new value.
func (c Command) IsUpdate() bool { return !c.Old.IsZero() && !c.New.IsZero() }

// ParseCommand parses a single command line, stripping a NUL-separated
// capability list if present. hashWidth is the repository's hash byte
// width, used only to validate the decoded hex length. Lines with the
// wrong field count or a hash of the wrong hex length are tolerated per
// spec.md's client-quirk rule: ParseCommand returns ErrSkipCommand rather
// than a hard failure, so the caller discards the line and continues.
func ParseCommand(line []byte, hashWidth int) (Command, []string, error) {
	var capabilities []string
	if i := bytes.IndexByte(line, 0); i >= 0 {
		rest := string(line[i+1:])
		capabilities = strings.Fields(rest)
		line = line[:i]
	}

	fields := strings.Fields(string(line))
	if len(fields) != 3 {
		return Command{}, nil, ErrSkipCommand
	}

	oldH, err := hash.FromHex(fields[0])
	if err != nil {
		return Command{}, nil, ErrSkipCommand
	}
	newH, err := hash.FromHex(fields[1])
	if err != nil {
		return Command{}, nil, ErrSkipCommand
	}

	if len(oldH) != hashWidth || len(newH) != hashWidth {
		return Command{}, nil, ErrSkipCommand
	}

	return Command{Old: oldH, New: newH, Name: fields[2]}, capabilities, nil
}
