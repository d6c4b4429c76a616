// Package object defines the Git object model: the four object kinds
// (commit, tree, blob, tag) and their on-disk encoding.
//
// Git stores all content as objects in its object database. Each object has
// a type that determines how Git interprets its contents:
//
//   - Commit: a snapshot of the repository at a point in time, naming a
//     tree and zero or more parent commits.
//   - Tree: a directory listing, naming blobs and other trees.
//   - Blob: a file's contents. Has no outgoing references.
//   - Tag: a reference to another object, usually a commit, with metadata.
//
// For more on Git's object format, see:
// https://git-scm.com/book/en/v2/Git-Internals-Git-Objects
package object

import "fmt"

// Type represents a Git object type. Values match Git's internal pack
// representation, where the type occupies a 3-bit field.
type Type uint8

// The object types. Type 5 is reserved; 0 is invalid. OfsDelta and RefDelta
// only ever appear inside a packfile stream, never as a stored object.
const (
	TypeInvalid  Type = 0 // 0b000
	TypeCommit   Type = 1 // 0b001
	TypeTree     Type = 2 // 0b010
	TypeBlob     Type = 3 // 0b011
	TypeTag      Type = 4 // 0b100
	TypeReserved Type = 5 // 0b101
	TypeOfsDelta Type = 6 // 0b110
	TypeRefDelta Type = 7 // 0b111
)

func (t Type) String() string {
	switch t {
	case TypeInvalid:
		return "OBJ_INVALID"
	case TypeCommit:
		return "OBJ_COMMIT"
	case TypeTree:
		return "OBJ_TREE"
	case TypeBlob:
		return "OBJ_BLOB"
	case TypeTag:
		return "OBJ_TAG"
	case TypeReserved:
		return "OBJ_RESERVED"
	case TypeOfsDelta:
		return "OBJ_OFS_DELTA"
	case TypeRefDelta:
		return "OBJ_REF_DELTA"
	default:
		return fmt.Sprintf("object.Type(%d)", uint8(t))
	}
}

// Bytes returns the header token used in Git's "<kind> <size>\0" object
// encoding, e.g. "commit" for TypeCommit.
func (t Type) Bytes() []byte {
	switch t {
	case TypeCommit:
		return []byte("commit")
	case TypeTree:
		return []byte("tree")
	case TypeBlob:
		return []byte("blob")
	case TypeTag:
		return []byte("tag")
	case TypeOfsDelta:
		return []byte("ofs-delta")
	case TypeRefDelta:
		return []byte("ref-delta")
	default:
		return []byte("unknown")
	}
}

// ParseTypeName parses the header token back into a Type. Only the four
// storable kinds are accepted; delta markers never appear in object headers.
func ParseTypeName(name string) (Type, error) {
	switch name {
	case "commit":
		return TypeCommit, nil
	case "tree":
		return TypeTree, nil
	case "blob":
		return TypeBlob, nil
	case "tag":
		return TypeTag, nil
	default:
		return TypeInvalid, fmt.Errorf("object: unknown type %q", name)
	}
}

// IsValid reports whether t is a recognised, non-reserved object type.
func (t Type) IsValid() bool {
	return t != TypeInvalid && t != TypeReserved && (t & ^Type(0b111)) == 0
}
