package engine

import (
	"cmp"
	"math"
	"slices"

	"github.com/venuekit/venuekit/backend-go/internal/document"
	"github.com/venuekit/venuekit/backend-go/internal/geometry"
	"github.com/venuekit/venuekit/backend-go/internal/scene"
)

const (
	// SeatRadius is the drawn and hit radius of a seat in world units.
	SeatRadius = 10.0

	// lineHitSlop is added to half the stroke width when hit-testing lines.
	lineHitSlop = 4.0

	// HandleRadius is the hit radius of selection handles in screen pixels.
	HandleRadius = 8.0

	// DragHandleOffset is how far above the selection bounds the drag
	// handle sits, in world units.
	DragHandleOffset = 20.0
)

// Selection bounds padding per entity kind.
const (
	seatPadding  = 14.0
	rowPadding   = 24.0
	shapePadding = 8.0
	tablePadding = 12.0
)

type zEntry struct {
	id string
	z  int
}

func sortedByZ(entries []zEntry) []string {
	slices.SortFunc(entries, func(a, b zEntry) int {
		if c := cmp.Compare(a.z, b.z); c != 0 {
			return c
		}
		return cmp.Compare(a.id, b.id)
	})
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.id
	}
	return ids
}

// PaintOrder returns every top-level entity back to front: areas,
// structures, rows, tables, then standalone seats. Each group is sorted by
// ascending z-index, ties broken by id.
func PaintOrder(s *scene.Scene) []string {
	doc := s.Document()

	var areas, structures, rows, tables []zEntry
	for id, a := range doc.Areas {
		areas = append(areas, zEntry{id, a.ZIndex})
	}
	for id, st := range doc.Structures {
		structures = append(structures, zEntry{id, st.ZIndex})
	}
	for id, r := range doc.Rows {
		rows = append(rows, zEntry{id, r.Z()})
	}
	for id, t := range doc.Tables {
		tables = append(tables, zEntry{id, t.ZIndex})
	}
	var seats []string
	for id := range doc.Seats {
		if s.IsStandalone(id) {
			seats = append(seats, id)
		}
	}
	slices.Sort(seats)

	order := make([]string, 0, len(areas)+len(structures)+len(rows)+len(tables)+len(seats))
	order = append(order, sortedByZ(areas)...)
	order = append(order, sortedByZ(structures)...)
	order = append(order, sortedByZ(rows)...)
	order = append(order, sortedByZ(tables)...)
	return append(order, seats...)
}

// StackAt returns the ids of every top-level entity under world point p,
// front to back. Locked entities are included.
func StackAt(s *scene.Scene, p geometry.Point) []string {
	order := PaintOrder(s)
	var stack []string
	for i := len(order) - 1; i >= 0; i-- {
		if containsPoint(s, order[i], p) {
			stack = append(stack, order[i])
		}
	}
	return stack
}

// TopmostUnlocked returns the first id in a front-to-back stack whose
// entity is not locked.
func TopmostUnlocked(s *scene.Scene, stack []string) (string, bool) {
	for _, id := range stack {
		if s.Exists(id) && !s.IsLocked(id) {
			return id, true
		}
	}
	return "", false
}

// toLocal undoes a rotation about the center of bounds.
func toLocal(p geometry.Point, rotation float64, bounds geometry.Rect) geometry.Point {
	if rotation == 0 {
		return p
	}
	return geometry.RotateAbout(-rotation, bounds.Center()).Apply(p)
}

func insideEllipse(p geometry.Point, b geometry.Rect) bool {
	rx, ry := b.Width/2, b.Height/2
	if rx <= 0 || ry <= 0 {
		return false
	}
	c := b.Center()
	dx, dy := (p.X-c.X)/rx, (p.Y-c.Y)/ry
	return dx*dx+dy*dy <= 1
}

func seatHit(s *scene.Scene, seatIDs []string, p geometry.Point) bool {
	for _, id := range seatIDs {
		if pos, ok := s.SeatWorldPosition(id); ok && geometry.Distance(pos, p) <= SeatRadius {
			return true
		}
	}
	return false
}

func containsPoint(s *scene.Scene, id string, p geometry.Point) bool {
	switch s.Kind(id) {
	case document.KindArea:
		a, _ := s.Area(id)
		b := a.Bounds()
		local := toLocal(p, a.Rotation, b)
		switch a.Shape {
		case document.AreaCircle, document.AreaOval:
			return insideEllipse(local, b)
		case document.AreaLine:
			return lineHit(a, local)
		default:
			return b.Contains(local)
		}
	case document.KindStructure:
		st, _ := s.Structure(id)
		b := st.Bounds()
		return b.Contains(toLocal(p, st.Rotation, b))
	case document.KindRow:
		r, _ := s.Row(id)
		return seatHit(s, r.Seats, p)
	case document.KindTable:
		t, _ := s.Table(id)
		b := t.Bounds()
		local := toLocal(p, t.Rotation, b)
		if t.Shape == document.TableRound && insideEllipse(local, b) {
			return true
		}
		if t.Shape == document.TableRectangular && b.Contains(local) {
			return true
		}
		return seatHit(s, t.Seats, p)
	case document.KindSeat:
		return seatHit(s, []string{id}, p)
	}
	return false
}

func lineHit(a document.Area, local geometry.Point) bool {
	if a.Line == nil || len(a.Line.Points) < 2 {
		return false
	}
	limit := a.Line.StrokeWidth/2 + lineHitSlop
	pts := a.Line.Points
	for i := 1; i < len(pts); i++ {
		p0 := a.Position.Add(pts[i-1])
		p1 := a.Position.Add(pts[i])
		if geometry.SegmentDistance(local, p0, p1) <= limit {
			return true
		}
	}
	return false
}

// RepresentativePoint is the single point box selection tests for an
// entity: a row's first seat, the center of an area, table or structure,
// or a seat's own position.
func RepresentativePoint(s *scene.Scene, id string) (geometry.Point, bool) {
	switch s.Kind(id) {
	case document.KindRow:
		r, _ := s.Row(id)
		if len(r.Seats) > 0 {
			if seat, ok := s.Seat(r.Seats[0]); ok {
				return seat.Position, true
			}
		}
		return r.Position, true
	case document.KindArea:
		a, _ := s.Area(id)
		return a.Bounds().Center(), true
	case document.KindTable:
		t, _ := s.Table(id)
		return t.Bounds().Center(), true
	case document.KindStructure:
		st, _ := s.Structure(id)
		return st.Bounds().Center(), true
	case document.KindSeat:
		return s.SeatWorldPosition(id)
	}
	return geometry.Point{}, false
}

// BoxSelect adds to prior every unlocked top-level entity whose
// representative point lies inside the rect spanned by corners a and b.
// New ids are appended in paint order; prior is not modified.
func BoxSelect(s *scene.Scene, a, b geometry.Point, prior []string) []string {
	box := geometry.RectFromCorners(a, b)
	out := slices.Clone(prior)
	for _, id := range PaintOrder(s) {
		if s.IsLocked(id) || slices.Contains(out, id) {
			continue
		}
		if p, ok := RepresentativePoint(s, id); ok && box.Contains(p) {
			out = append(out, id)
		}
	}
	return out
}

func rotatedBounds(b geometry.Rect, rotation float64) geometry.Rect {
	if rotation == 0 {
		return b
	}
	return geometry.RotateAbout(rotation, b.Center()).TransformRect(b)
}

func pointRect(p geometry.Point) geometry.Rect {
	return geometry.Rect{X: p.X, Y: p.Y}
}

// entityBounds returns the padded world-space bounds used to outline a
// selected entity.
func entityBounds(s *scene.Scene, id string) (geometry.Rect, bool) {
	switch s.Kind(id) {
	case document.KindSeat:
		p, _ := s.SeatWorldPosition(id)
		return pointRect(p).Expand(seatPadding), true
	case document.KindRow:
		r, _ := s.Row(id)
		pts := make([]geometry.Point, 0, len(r.Seats))
		for _, seatID := range r.Seats {
			if seat, ok := s.Seat(seatID); ok {
				pts = append(pts, seat.Position)
			}
		}
		b, ok := geometry.RectFromPoints(pts)
		if !ok {
			b = pointRect(r.Position)
		}
		return b.Expand(rowPadding), true
	case document.KindArea:
		a, _ := s.Area(id)
		return rotatedBounds(a.Bounds(), a.Rotation).Expand(shapePadding), true
	case document.KindStructure:
		st, _ := s.Structure(id)
		return rotatedBounds(st.Bounds(), st.Rotation).Expand(shapePadding), true
	case document.KindTable:
		t, _ := s.Table(id)
		return rotatedBounds(t.Bounds(), t.Rotation).Expand(tablePadding), true
	}
	return geometry.Rect{}, false
}

// SelectionBounds unions the padded bounds of every entity in ids. ok is
// false when none of the ids resolves to an entity with a position.
func SelectionBounds(s *scene.Scene, ids []string) (geometry.Rect, bool) {
	var out geometry.Rect
	found := false
	for _, id := range ids {
		b, ok := entityBounds(s, id)
		if !ok {
			continue
		}
		if !found {
			out, found = b, true
			continue
		}
		out = out.Union(b)
	}
	return out, found
}

// HandleKind identifies a selection handle.
type HandleKind int

const (
	HandleNone HandleKind = iota
	HandleStart
	HandleEnd
	HandleCurve
	HandleDrag
)

var handleKindNames = [...]string{"none", "start", "end", "curve", "drag"}

func (k HandleKind) String() string {
	if int(k) < len(handleKindNames) {
		return handleKindNames[k]
	}
	return "unknown"
}

// Handle is a draggable control drawn over the selection.
type Handle struct {
	Kind     HandleKind     `json:"-"`
	Position geometry.Point `json:"position"`
	RowID    string         `json:"rowId,omitempty"`
}

// Handles lists the handles for a selection in hit priority order: row
// endpoints, then the curve handle, then the drag handle. Row handles only
// appear when the selection is a single unlocked row with at least two
// seats.
func Handles(s *scene.Scene, ids []string) []Handle {
	var hs []Handle
	if len(ids) == 1 && s.Kind(ids[0]) == document.KindRow && !s.IsLocked(ids[0]) {
		if start, end, curve, ok := s.RowChord(ids[0]); ok {
			hs = append(hs,
				Handle{Kind: HandleStart, Position: start, RowID: ids[0]},
				Handle{Kind: HandleEnd, Position: end, RowID: ids[0]},
				Handle{Kind: HandleCurve, Position: geometry.ControlPoint(start, end, curve), RowID: ids[0]},
			)
		}
	}
	if b, ok := SelectionBounds(s, ids); ok {
		hs = append(hs, Handle{Kind: HandleDrag, Position: geometry.Pt(b.X+b.Width/2, b.Y-DragHandleOffset)})
	}
	return hs
}

// HandleAt returns the first handle within HandleRadius screen pixels of
// world point p at the given zoom.
func HandleAt(handles []Handle, p geometry.Point, zoom float64) (Handle, bool) {
	radius := HandleRadius / math.Max(zoom, MinZoom)
	for _, h := range handles {
		if geometry.Distance(h.Position, p) <= radius {
			return h, true
		}
	}
	return Handle{}, false
}
