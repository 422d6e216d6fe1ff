// Package uid canonicalizes externally supplied identifiers.
//
// The API exchanges UUIDs in their hyphenated textual form; storage keys and
// query parameters use the dense form with hyphens stripped. PostgreSQL
// accepts both spellings for uuid columns, so normalized values compare equal
// to stored ones.
package uid

import (
	"strings"

	"github.com/gofrs/uuid"
)

// Normalize returns the dense storage form of an identifier.
// It is pure and total; malformed input is rejected by request validation
// before it gets here.
func Normalize(id string) string {
	return strings.ReplaceAll(id, "-", "")
}

// Parse validates an identifier in either external or dense form.
func Parse(id string) (uuid.UUID, error) {
	return uuid.FromString(id)
}

// Valid reports whether id parses as a UUID.
func Valid(id string) bool {
	_, err := uuid.FromString(id)
	return err == nil
}
