package object

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"

	"github.com/nanogit-community/gitsmartd/hash"
)

// Commit is a single commit object: a tree snapshot, its parents, and the
// identities and message recording why it exists.
type Commit struct {
	Tree      hash.Hash
	Parents   []hash.Hash
	Author    Identity
	Committer Identity
	Message   string

	// Extra carries header lines this server doesn't interpret (gpgsig,
	// mergetag, encoding, ...), preserved verbatim so round-tripping a
	// commit through this server never drops data a client wrote.
	Extra []string
}

// Encode renders the commit in Git's canonical format.
func (c Commit) Encode() []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "tree %s\n", c.Tree)
	for _, p := range c.Parents {
		fmt.Fprintf(&buf, "parent %s\n", p)
	}
	fmt.Fprintf(&buf, "author %s\n", c.Author)
	fmt.Fprintf(&buf, "committer %s\n", c.Committer)
	for _, line := range c.Extra {
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	buf.WriteByte('\n')
	buf.WriteString(c.Message)

	return buf.Bytes()
}

// ParseCommit decodes a commit object body.
func ParseCommit(data []byte) (Commit, error) {
	var c Commit

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var headerDone bool
	var messageLines []string

	for scanner.Scan() {
		line := scanner.Text()
		if headerDone {
			messageLines = append(messageLines, line)
			continue
		}
		if line == "" {
			headerDone = true
			continue
		}

		key, value, ok := strings.Cut(line, " ")
		if !ok {
			return Commit{}, fmt.Errorf("object: malformed commit header line %q", line)
		}

		switch key {
		case "tree":
			h, err := hash.FromHex(value)
			if err != nil {
				return Commit{}, fmt.Errorf("object: invalid commit tree hash: %w", err)
			}
			c.Tree = h
		case "parent":
			h, err := hash.FromHex(value)
			if err != nil {
				return Commit{}, fmt.Errorf("object: invalid commit parent hash: %w", err)
			}
			c.Parents = append(c.Parents, h)
		case "author":
			id, err := ParseIdentity(value)
			if err != nil {
				return Commit{}, fmt.Errorf("object: invalid commit author: %w", err)
			}
			c.Author = id
		case "committer":
			id, err := ParseIdentity(value)
			if err != nil {
				return Commit{}, fmt.Errorf("object: invalid commit committer: %w", err)
			}
			c.Committer = id
		default:
			c.Extra = append(c.Extra, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return Commit{}, fmt.Errorf("object: reading commit: %w", err)
	}

	if len(messageLines) > 0 {
		c.Message = strings.Join(messageLines, "\n")
	}

	return c, nil
}
