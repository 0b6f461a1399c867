package typeid

import (
	"fmt"
	"strings"

	"go.jetify.com/typeid/v2"
)

const (
	PrefixUser     = "user"
	PrefixVenue    = "venue"
	PrefixSnapshot = "snap"
	PrefixOp       = "op"

	PrefixRow       = "row"
	PrefixSeat      = "seat"
	PrefixArea      = "area"
	PrefixTable     = "table"
	PrefixStructure = "structure"
	PrefixSection   = "section"
)

// New returns "{prefix}_{suffix}" where the suffix encodes a UUIDv7, so ids
// carry their creation time and a random component.
func New(prefix string) string {
	id := typeid.MustGenerate(prefix)
	return id.String()
}

func NewUserID() string     { return New(PrefixUser) }
func NewVenueID() string    { return New(PrefixVenue) }
func NewSnapshotID() string { return New(PrefixSnapshot) }
func NewOpID() string       { return New(PrefixOp) }

// PrefixOf returns the kind prefix of id. Ids that are not valid typeids
// (older documents used "row_1700000000000_ab12cd") fall back to the text
// before the first underscore.
func PrefixOf(id string) string {
	if parsed, err := typeid.Parse(id); err == nil {
		return parsed.Prefix()
	}
	prefix, _, ok := strings.Cut(id, "_")
	if !ok {
		return ""
	}
	return prefix
}

func Validate(id, expectedPrefix string) error {
	parsed, err := typeid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid typeid %q: %w", id, err)
	}
	if parsed.Prefix() != expectedPrefix {
		return fmt.Errorf("expected prefix %q but got %q in id %q", expectedPrefix, parsed.Prefix(), id)
	}
	return nil
}
