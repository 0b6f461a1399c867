package document

import "github.com/venuekit/venuekit/backend-go/internal/typeid"

// Kind discriminates entity records inside a Document.
type Kind int

const (
	KindUnknown Kind = iota
	KindRow
	KindSeat
	KindArea
	KindTable
	KindStructure
	KindSection
)

var kindPrefixes = map[Kind]string{
	KindRow:       typeid.PrefixRow,
	KindSeat:      typeid.PrefixSeat,
	KindArea:      typeid.PrefixArea,
	KindTable:     typeid.PrefixTable,
	KindStructure: typeid.PrefixStructure,
	KindSection:   typeid.PrefixSection,
}

// Prefix returns the id prefix used for entities of this kind.
func (k Kind) Prefix() string {
	return kindPrefixes[k]
}

func (k Kind) String() string {
	if p, ok := kindPrefixes[k]; ok {
		return p
	}
	return "unknown"
}

// KindFromPrefix maps an id prefix back to its kind.
func KindFromPrefix(prefix string) Kind {
	for k, p := range kindPrefixes {
		if p == prefix {
			return k
		}
	}
	return KindUnknown
}

// KindOfID resolves an id by its prefix alone. The Scene keeps its own
// index and only uses this for ids it has never seen.
func KindOfID(id string) Kind {
	return KindFromPrefix(typeid.PrefixOf(id))
}

// NewID allocates a fresh id for kind k.
func NewID(k Kind) string {
	return typeid.New(k.Prefix())
}
