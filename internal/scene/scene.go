// Package scene holds the venue Scene store: the normalized entity graph and
// every structural mutation applied to it.
//
// All operations are synchronous and either apply fully or leave the Scene
// untouched. Operations naming an id that does not exist are no-ops.
package scene

import (
	"slices"

	"github.com/venuekit/venuekit/backend-go/internal/document"
	"github.com/venuekit/venuekit/backend-go/internal/geometry"
)

const (
	// SeatSpacing is the pitch between adjacent seats of a straight row.
	SeatSpacing = 30.0

	// TableSeatGap is the distance from a round table's edge to its seats.
	TableSeatGap = 25.0

	// TableSeatOffset is the distance of rectangular-table seats outside the table.
	TableSeatOffset = 30.0

	// MinSize is the smallest width or height a resize can produce.
	MinSize = 10.0
)

// Change operation names.
const (
	OpCreate  = "create"
	OpMove    = "move"
	OpResize  = "resize"
	OpRotate  = "rotate"
	OpCurve   = "curve"
	OpZOrder  = "zorder"
	OpLabel   = "label"
	OpSection = "section"
	OpSeat    = "seat"
	OpLock    = "lock"
	OpDelete  = "delete"
	OpImport  = "import"
	OpReset   = "reset"
	OpRename  = "rename"
)

// Change describes a mutation that was applied to the Scene.
type Change struct {
	Op  string
	IDs []string
}

// Listener is notified after every successful mutation.
type Listener func(Change)

type subscription struct {
	id int
	fn Listener
}

// Scene owns a venue document together with an id→kind index.
type Scene struct {
	doc   *document.Document
	kinds map[string]document.Kind

	subs    []subscription
	nextSub int

	newID func(document.Kind) string
}

// New creates an empty Scene.
func New(name string) *Scene {
	s := &Scene{newID: document.NewID}
	s.load(document.NewEmptyDocument(name))
	return s
}

// NewFromDocument creates a Scene that takes ownership of doc.
func NewFromDocument(doc *document.Document) *Scene {
	s := &Scene{newID: document.NewID}
	s.load(doc)
	return s
}

// SetIDGenerator replaces the id allocator. Tests use it for stable ids.
func (s *Scene) SetIDGenerator(fn func(document.Kind) string) {
	s.newID = fn
}

// IDGenerator returns the current id allocator.
func (s *Scene) IDGenerator() func(document.Kind) string {
	return s.newID
}

// Subscribe registers fn for change notifications and returns a function
// that removes it.
func (s *Scene) Subscribe(fn Listener) (unsubscribe func()) {
	s.nextSub++
	id := s.nextSub
	s.subs = append(s.subs, subscription{id: id, fn: fn})
	return func() {
		s.subs = slices.DeleteFunc(s.subs, func(sub subscription) bool { return sub.id == id })
	}
}

func (s *Scene) notify(op string, ids ...string) {
	c := Change{Op: op, IDs: ids}
	for _, sub := range slices.Clone(s.subs) {
		sub.fn(c)
	}
}

func (s *Scene) load(doc *document.Document) {
	doc.EnsureMaps()
	if doc.Name == "" {
		doc.Name = document.DefaultName
	}
	s.doc = doc
	s.reindex()
}

func (s *Scene) reindex() {
	d := s.doc
	s.kinds = make(map[string]document.Kind,
		len(d.Rows)+len(d.Seats)+len(d.Areas)+len(d.Tables)+len(d.Structures)+len(d.Sections))
	for id := range d.Rows {
		s.kinds[id] = document.KindRow
	}
	for id := range d.Seats {
		s.kinds[id] = document.KindSeat
	}
	for id := range d.Areas {
		s.kinds[id] = document.KindArea
	}
	for id := range d.Tables {
		s.kinds[id] = document.KindTable
	}
	for id := range d.Structures {
		s.kinds[id] = document.KindStructure
	}
	for id := range d.Sections {
		s.kinds[id] = document.KindSection
	}
}

func (s *Scene) allocate(k document.Kind) string {
	for {
		id := s.newID(k)
		if _, taken := s.kinds[id]; !taken {
			s.kinds[id] = k
			return id
		}
	}
}

// Document returns the live document. Callers must not mutate it.
func (s *Scene) Document() *document.Document { return s.doc }

// Name returns the venue name.
func (s *Scene) Name() string { return s.doc.Name }

// SetName renames the venue. An empty name resets it to the default.
func (s *Scene) SetName(name string) {
	if name == "" {
		name = document.DefaultName
	}
	if name == s.doc.Name {
		return
	}
	s.doc.Name = name
	s.notify(OpRename)
}

// Kind resolves the entity kind of id, KindUnknown when id is absent.
func (s *Scene) Kind(id string) document.Kind {
	return s.kinds[id]
}

// Exists reports whether id names an entity in the Scene.
func (s *Scene) Exists(id string) bool {
	return s.kinds[id] != document.KindUnknown
}

func (s *Scene) Row(id string) (document.Row, bool) {
	r, ok := s.doc.Rows[id]
	return r, ok
}

func (s *Scene) Seat(id string) (document.Seat, bool) {
	st, ok := s.doc.Seats[id]
	return st, ok
}

func (s *Scene) Area(id string) (document.Area, bool) {
	a, ok := s.doc.Areas[id]
	return a, ok
}

func (s *Scene) Table(id string) (document.Table, bool) {
	t, ok := s.doc.Tables[id]
	return t, ok
}

func (s *Scene) Structure(id string) (document.Structure, bool) {
	st, ok := s.doc.Structures[id]
	return st, ok
}

func (s *Scene) Section(id string) (document.Section, bool) {
	sec, ok := s.doc.Sections[id]
	return sec, ok
}

// owner returns the kind and id of the row or table that owns seat, if that
// owner still exists. Dangling back-references count as no owner.
func (s *Scene) owner(seat document.Seat) (document.Kind, string, bool) {
	if seat.RowID != "" {
		if _, ok := s.doc.Rows[seat.RowID]; ok {
			return document.KindRow, seat.RowID, true
		}
	}
	if seat.TableID != "" {
		if _, ok := s.doc.Tables[seat.TableID]; ok {
			return document.KindTable, seat.TableID, true
		}
	}
	return document.KindUnknown, "", false
}

// IsStandalone reports whether seat id exists and has no live owner.
func (s *Scene) IsStandalone(id string) bool {
	seat, ok := s.doc.Seats[id]
	if !ok {
		return false
	}
	_, _, owned := s.owner(seat)
	return !owned
}

// IsLocked reports whether id is locked. Seats inherit their owner's lock.
func (s *Scene) IsLocked(id string) bool {
	switch s.Kind(id) {
	case document.KindRow:
		return s.doc.Rows[id].Locked
	case document.KindArea:
		return s.doc.Areas[id].Locked
	case document.KindTable:
		return s.doc.Tables[id].Locked
	case document.KindStructure:
		return s.doc.Structures[id].Locked
	case document.KindSeat:
		seat := s.doc.Seats[id]
		if seat.Locked {
			return true
		}
		switch kind, ownerID, ok := s.owner(seat); {
		case !ok:
			return false
		case kind == document.KindRow:
			return s.doc.Rows[ownerID].Locked
		default:
			return s.doc.Tables[ownerID].Locked
		}
	}
	return false
}

// SeatWorldPosition returns where a seat is drawn. Table seats are stored in
// the table's unrotated frame and follow the table's rotation.
func (s *Scene) SeatWorldPosition(id string) (geometry.Point, bool) {
	seat, ok := s.doc.Seats[id]
	if !ok {
		return geometry.Point{}, false
	}
	if kind, ownerID, owned := s.owner(seat); owned && kind == document.KindTable {
		t := s.doc.Tables[ownerID]
		if t.Rotation != 0 {
			return geometry.RotateAbout(t.Rotation, t.Bounds().Center()).Apply(seat.Position), true
		}
	}
	return seat.Position, true
}

// SeatPrice resolves a seat's price: its own override first, then the
// default price of its section (or its row's section).
func (s *Scene) SeatPrice(id string) (float64, bool) {
	seat, ok := s.doc.Seats[id]
	if !ok {
		return 0, false
	}
	if seat.Price != nil {
		return *seat.Price, true
	}
	sectionID := seat.SectionID
	if sectionID == "" && seat.RowID != "" {
		sectionID = s.doc.Rows[seat.RowID].SectionID
	}
	if sec, ok := s.doc.Sections[sectionID]; ok && sec.Price != nil {
		return *sec.Price, true
	}
	return 0, false
}

// SectionColor returns the color a seat or row inherits from its section.
func (s *Scene) SectionColor(id string) (string, bool) {
	var sectionID string
	switch s.Kind(id) {
	case document.KindRow:
		sectionID = s.doc.Rows[id].SectionID
	case document.KindSeat:
		seat := s.doc.Seats[id]
		sectionID = seat.SectionID
		if sectionID == "" && seat.RowID != "" {
			sectionID = s.doc.Rows[seat.RowID].SectionID
		}
	}
	sec, ok := s.doc.Sections[sectionID]
	if !ok {
		return "", false
	}
	return sec.Color, true
}

// TopLevelIDs returns every selectable entity: rows, tables, areas,
// structures and standalone seats. Owned seats and sections are excluded.
func (s *Scene) TopLevelIDs() []string {
	d := s.doc
	ids := make([]string, 0, len(d.Rows)+len(d.Tables)+len(d.Areas)+len(d.Structures))
	ids = appendSorted(ids, d.Areas)
	ids = appendSorted(ids, d.Structures)
	ids = appendSorted(ids, d.Rows)
	ids = appendSorted(ids, d.Tables)
	var standalone []string
	for id := range d.Seats {
		if s.IsStandalone(id) {
			standalone = append(standalone, id)
		}
	}
	slices.Sort(standalone)
	return append(ids, standalone...)
}

func appendSorted[V any](dst []string, m map[string]V) []string {
	start := len(dst)
	for id := range m {
		dst = append(dst, id)
	}
	slices.Sort(dst[start:])
	return dst
}
