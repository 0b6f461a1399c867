package scene

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/venuekit/venuekit/backend-go/internal/document"
)

// ErrInvalidDocument is returned when an imported document cannot be parsed.
var ErrInvalidDocument = errors.New("invalid document")

// Export serializes the Scene as a venue document.
func (s *Scene) Export() ([]byte, error) {
	data, err := json.Marshal(s.doc)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	return data, nil
}

// Import replaces the whole Scene with the document in data. On error the
// Scene is left exactly as it was.
func (s *Scene) Import(data []byte) error {
	doc, err := Decode(data)
	if err != nil {
		slog.Debug("import rejected", "error", err)
		return err
	}
	s.load(doc)
	s.notify(OpImport)
	return nil
}

// Load replaces the Scene with doc, taking ownership of it.
func (s *Scene) Load(doc *document.Document) {
	s.load(doc)
	s.notify(OpImport)
}

// Reset empties the Scene and restores the default name.
func (s *Scene) Reset() {
	s.load(document.NewEmptyDocument(""))
	s.notify(OpReset)
}

// Decode parses a venue document. Missing or null entity maps default to
// empty maps and a missing name defaults to document.DefaultName; any field
// present with the wrong shape rejects the whole document.
func Decode(data []byte) (*document.Document, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: not an object", ErrInvalidDocument)
	}

	doc := document.NewEmptyDocument("")
	fields := []struct {
		key string
		dst any
	}{
		{"name", &doc.Name},
		{"rows", &doc.Rows},
		{"seats", &doc.Seats},
		{"areas", &doc.Areas},
		{"tables", &doc.Tables},
		{"structures", &doc.Structures},
		{"sections", &doc.Sections},
	}
	for _, f := range fields {
		value, ok := raw[f.key]
		if !ok || bytes.Equal(bytes.TrimSpace(value), []byte("null")) {
			continue
		}
		if err := json.Unmarshal(value, f.dst); err != nil {
			return nil, fmt.Errorf("%w: field %q: %w", ErrInvalidDocument, f.key, err)
		}
	}
	doc.EnsureMaps()
	if doc.Name == "" {
		doc.Name = document.DefaultName
	}
	fillIDs(doc)
	return doc, nil
}

// fillIDs copies map keys into records that were stored without an id.
func fillIDs(doc *document.Document) {
	for id, r := range doc.Rows {
		if r.ID == "" {
			r.ID = id
			doc.Rows[id] = r
		}
	}
	for id, st := range doc.Seats {
		if st.ID == "" {
			st.ID = id
			doc.Seats[id] = st
		}
	}
	for id, a := range doc.Areas {
		if a.ID == "" {
			a.ID = id
			doc.Areas[id] = a
		}
	}
	for id, t := range doc.Tables {
		if t.ID == "" {
			t.ID = id
			doc.Tables[id] = t
		}
	}
	for id, st := range doc.Structures {
		if st.ID == "" {
			st.ID = id
			doc.Structures[id] = st
		}
	}
	for id, sec := range doc.Sections {
		if sec.ID == "" {
			sec.ID = id
			doc.Sections[id] = sec
		}
	}
}
