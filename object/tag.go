package object

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"

	"github.com/nanogit-community/gitsmartd/hash"
)

// Tag is an annotated tag object: a pointer to another object plus metadata
// describing who created the tag and why.
type Tag struct {
	Object  hash.Hash
	Type    Type
	Tag     string
	Tagger  Identity
	Message string
}

// Encode renders the tag in Git's canonical format.
func (t Tag) Encode() []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "object %s\n", t.Object)
	fmt.Fprintf(&buf, "type %s\n", t.Type.Bytes())
	fmt.Fprintf(&buf, "tag %s\n", t.Tag)
	fmt.Fprintf(&buf, "tagger %s\n", t.Tagger)
	buf.WriteByte('\n')
	buf.WriteString(t.Message)

	return buf.Bytes()
}

// ParseTag decodes a tag object body.
func ParseTag(data []byte) (Tag, error) {
	var t Tag

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
			return Tag{}, fmt.Errorf("object: malformed tag header line %q", line)
		}

		switch key {
		case "object":
			h, err := hash.FromHex(value)
			if err != nil {
				return Tag{}, fmt.Errorf("object: invalid tag target hash: %w", err)
			}
			t.Object = h
		case "type":
			ty, err := ParseTypeName(value)
			if err != nil {
				return Tag{}, fmt.Errorf("object: invalid tag target type: %w", err)
			}
			t.Type = ty
		case "tag":
			t.Tag = value
		case "tagger":
			id, err := ParseIdentity(value)
			if err != nil {
				return Tag{}, fmt.Errorf("object: invalid tagger: %w", err)
			}
			t.Tagger = id
		default:
			// unrecognised header lines are dropped; tags carry no
			// equivalent of a commit's gpgsig in common use.
		}
	}
	if err := scanner.Err(); err != nil {
		return Tag{}, fmt.Errorf("object: reading tag: %w", err)
	}

	if len(messageLines) > 0 {
		t.Message = strings.Join(messageLines, "\n")
	}

	return t, nil
}
