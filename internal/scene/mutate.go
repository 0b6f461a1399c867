package scene

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/venuekit/venuekit/backend-go/internal/document"
	"github.com/venuekit/venuekit/backend-go/internal/geometry"
)

// Move translates an entity by delta. Rows and tables carry their seats.
func (s *Scene) Move(id string, delta geometry.Point) {
	if s.move(id, delta) {
		s.notify(OpMove, id)
	}
}

// MoveSelection translates every entity in ids once. A seat whose row or
// table is also in ids moves with its owner only.
func (s *Scene) MoveSelection(ids []string, delta geometry.Point) {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	var moved []string
	for _, id := range ids {
		if !set[id] {
			continue
		}
		set[id] = false
		if seat, ok := s.doc.Seats[id]; ok {
			if _, ownerID, owned := s.owner(seat); owned && slices.Contains(ids, ownerID) {
				continue
			}
		}
		if s.move(id, delta) {
			moved = append(moved, id)
		}
	}
	if len(moved) > 0 {
		s.notify(OpMove, moved...)
	}
}

func (s *Scene) move(id string, d geometry.Point) bool {
	switch s.Kind(id) {
	case document.KindRow:
		r := s.doc.Rows[id]
		r.Position = r.Position.Add(d)
		if r.Start != nil {
			start := r.Start.Add(d)
			r.Start = &start
		}
		if r.End != nil {
			end := r.End.Add(d)
			r.End = &end
		}
		s.moveSeats(r.Seats, d)
		s.doc.Rows[id] = r
	case document.KindTable:
		t := s.doc.Tables[id]
		t.Position = t.Position.Add(d)
		s.moveSeats(t.Seats, d)
		s.doc.Tables[id] = t
	case document.KindSeat:
		seat := s.doc.Seats[id]
		seat.Position = seat.Position.Add(d)
		s.doc.Seats[id] = seat
	case document.KindArea:
		a := s.doc.Areas[id]
		a.Position = a.Position.Add(d)
		s.doc.Areas[id] = a
	case document.KindStructure:
		st := s.doc.Structures[id]
		st.Position = st.Position.Add(d)
		s.doc.Structures[id] = st
	default:
		return false
	}
	return true
}

func (s *Scene) moveSeats(ids []string, d geometry.Point) {
	for _, seatID := range ids {
		if seat, ok := s.doc.Seats[seatID]; ok {
			seat.Position = seat.Position.Add(d)
			s.doc.Seats[seatID] = seat
		}
	}
}

// Position returns the stored position of a placeable entity.
func (s *Scene) Position(id string) (geometry.Point, bool) {
	switch s.Kind(id) {
	case document.KindRow:
		return s.doc.Rows[id].Position, true
	case document.KindSeat:
		return s.doc.Seats[id].Position, true
	case document.KindArea:
		return s.doc.Areas[id].Position, true
	case document.KindTable:
		return s.doc.Tables[id].Position, true
	case document.KindStructure:
		return s.doc.Structures[id].Position, true
	}
	return geometry.Point{}, false
}

// SetPosition moves an entity so that its position becomes p.
func (s *Scene) SetPosition(id string, p geometry.Point) {
	cur, ok := s.Position(id)
	if !ok || cur == p {
		return
	}
	s.Move(id, p.Sub(cur))
}

// Resize sets the size of an area, table or structure, clamped to MinSize.
// Table seats are laid out again around the new size, keeping their ids.
func (s *Scene) Resize(id string, size geometry.Size) {
	size = clampSize(size)
	switch s.Kind(id) {
	case document.KindArea:
		a := s.doc.Areas[id]
		if a.Shape == document.AreaSquare {
			side := max(size.Width, size.Height)
			size = geometry.Size{Width: side, Height: side}
		}
		a.Size = size
		s.doc.Areas[id] = a
	case document.KindStructure:
		st := s.doc.Structures[id]
		st.Size = size
		s.doc.Structures[id] = st
	case document.KindTable:
		t := s.doc.Tables[id]
		t.Size = size
		s.doc.Tables[id] = t
		s.layoutTableSeats(t)
	default:
		return
	}
	s.notify(OpResize, id)
}

func (s *Scene) layoutTableSeats(t document.Table) {
	positions := TableSeatPositions(t.Shape, t.Bounds(), len(t.Seats))
	for i, seatID := range t.Seats {
		if seat, ok := s.doc.Seats[seatID]; ok {
			seat.Position = positions[i]
			s.doc.Seats[seatID] = seat
		}
	}
}

func (s *Scene) RotateArea(id string, degrees float64) {
	a, ok := s.doc.Areas[id]
	if !ok {
		return
	}
	a.Rotation += degrees
	s.doc.Areas[id] = a
	s.notify(OpRotate, id)
}

func (s *Scene) RotateTable(id string, degrees float64) {
	t, ok := s.doc.Tables[id]
	if !ok {
		return
	}
	t.Rotation += degrees
	s.doc.Tables[id] = t
	s.notify(OpRotate, id)
}

func (s *Scene) RotateStructure(id string, degrees float64) {
	st, ok := s.doc.Structures[id]
	if !ok {
		return
	}
	st.Rotation += degrees
	s.doc.Structures[id] = st
	s.notify(OpRotate, id)
}

// Rotate adds degrees to every rotatable entity in ids. Rows and seats have
// no rotation and are skipped.
func (s *Scene) Rotate(ids []string, degrees float64) {
	var rotated []string
	for _, id := range ids {
		switch s.Kind(id) {
		case document.KindArea:
			a := s.doc.Areas[id]
			a.Rotation += degrees
			s.doc.Areas[id] = a
		case document.KindTable:
			t := s.doc.Tables[id]
			t.Rotation += degrees
			s.doc.Tables[id] = t
		case document.KindStructure:
			st := s.doc.Structures[id]
			st.Rotation += degrees
			s.doc.Structures[id] = st
		default:
			continue
		}
		rotated = append(rotated, id)
	}
	if len(rotated) > 0 {
		s.notify(OpRotate, rotated...)
	}
}

// RowChord returns the chord and curvature a row's seats are laid out on.
// Rows without stored endpoints use their first and last seat. ok is false
// for rows with fewer than two seats.
func (s *Scene) RowChord(id string) (start, end geometry.Point, curve float64, ok bool) {
	r, exists := s.doc.Rows[id]
	if !exists || len(r.Seats) < 2 {
		return start, end, 0, false
	}
	if r.Curve != nil {
		curve = *r.Curve
	}
	if r.Start != nil && r.End != nil {
		return *r.Start, *r.End, curve, true
	}
	first, okFirst := s.doc.Seats[r.Seats[0]]
	last, okLast := s.doc.Seats[r.Seats[len(r.Seats)-1]]
	if !okFirst || !okLast {
		return start, end, 0, false
	}
	return first.Position, last.Position, curve, true
}

// SetRowCurve re-lays a row's seats along its chord bent by curvature.
func (s *Scene) SetRowCurve(id string, curvature float64) {
	start, end, _, ok := s.RowChord(id)
	if !ok {
		return
	}
	s.layoutRow(id, start, end, curvature)
	s.notify(OpCurve, id)
}

// SetRowEndpoints moves a row's chord endpoints, keeping its curvature.
func (s *Scene) SetRowEndpoints(id string, start, end geometry.Point) {
	_, _, curve, ok := s.RowChord(id)
	if !ok {
		return
	}
	s.layoutRow(id, start, end, curve)
	s.notify(OpCurve, id)
}

func (s *Scene) layoutRow(id string, start, end geometry.Point, curvature float64) {
	r := s.doc.Rows[id]
	curve := geometry.ClampCurvature(curvature)
	positions := geometry.PlaceAlongCurve(start, end, curve, len(r.Seats))
	for i, seatID := range r.Seats {
		if seat, ok := s.doc.Seats[seatID]; ok {
			seat.Position = positions[i]
			s.doc.Seats[seatID] = seat
		}
	}
	r.Position = start
	r.Start = &start
	r.End = &end
	r.Curve = &curve
	s.doc.Rows[id] = r
}

// ZIndex returns the z-index of a row, area, table or structure.
func (s *Scene) ZIndex(id string) (int, bool) {
	switch s.Kind(id) {
	case document.KindRow:
		return s.doc.Rows[id].Z(), true
	case document.KindArea:
		return s.doc.Areas[id].ZIndex, true
	case document.KindTable:
		return s.doc.Tables[id].ZIndex, true
	case document.KindStructure:
		return s.doc.Structures[id].ZIndex, true
	}
	return 0, false
}

func (s *Scene) setZ(id string, z int) {
	switch s.Kind(id) {
	case document.KindRow:
		r := s.doc.Rows[id]
		r.ZIndex = &z
		s.doc.Rows[id] = r
	case document.KindArea:
		a := s.doc.Areas[id]
		a.ZIndex = z
		s.doc.Areas[id] = a
	case document.KindTable:
		t := s.doc.Tables[id]
		t.ZIndex = z
		s.doc.Tables[id] = t
	case document.KindStructure:
		st := s.doc.Structures[id]
		st.ZIndex = z
		s.doc.Structures[id] = st
	}
}

func (s *Scene) zRange() (lo, hi int, found bool) {
	visit := func(z int) {
		if !found {
			lo, hi, found = z, z, true
			return
		}
		lo, hi = min(lo, z), max(hi, z)
	}
	for _, r := range s.doc.Rows {
		visit(r.Z())
	}
	for _, a := range s.doc.Areas {
		visit(a.ZIndex)
	}
	for _, t := range s.doc.Tables {
		visit(t.ZIndex)
	}
	for _, st := range s.doc.Structures {
		visit(st.ZIndex)
	}
	return lo, hi, found
}

func (s *Scene) maxZ() int {
	_, hi, _ := s.zRange()
	return hi
}

// BringToFront gives each id, in order, the current maximum z-index + 1.
func (s *Scene) BringToFront(ids []string) {
	s.reorder(ids, func() int {
		_, hi, _ := s.zRange()
		return hi + 1
	})
}

// SendToBack gives each id, in order, the current minimum z-index - 1.
func (s *Scene) SendToBack(ids []string) {
	s.reorder(ids, func() int {
		lo, _, _ := s.zRange()
		return lo - 1
	})
}

func (s *Scene) reorder(ids []string, next func() int) {
	var changed []string
	for _, id := range ids {
		if _, ok := s.ZIndex(id); !ok || slices.Contains(changed, id) {
			continue
		}
		s.setZ(id, next())
		changed = append(changed, id)
	}
	if len(changed) > 0 {
		s.notify(OpZOrder, changed...)
	}
}

// Label returns the label of any entity.
func (s *Scene) Label(id string) (string, bool) {
	switch s.Kind(id) {
	case document.KindRow:
		return s.doc.Rows[id].Label, true
	case document.KindSeat:
		return s.doc.Seats[id].Label, true
	case document.KindArea:
		return s.doc.Areas[id].Label, true
	case document.KindTable:
		return s.doc.Tables[id].Label, true
	case document.KindStructure:
		return s.doc.Structures[id].Label, true
	case document.KindSection:
		return s.doc.Sections[id].Label, true
	}
	return "", false
}

// SetLabel renames a single entity of any kind.
func (s *Scene) SetLabel(id, label string) {
	if s.setLabel(id, label) {
		s.notify(OpLabel, id)
	}
}

func (s *Scene) setLabel(id, label string) bool {
	switch s.Kind(id) {
	case document.KindRow:
		r := s.doc.Rows[id]
		r.Label = label
		s.doc.Rows[id] = r
	case document.KindSeat:
		seat := s.doc.Seats[id]
		seat.Label = label
		s.doc.Seats[id] = seat
	case document.KindArea:
		a := s.doc.Areas[id]
		a.Label = label
		s.doc.Areas[id] = a
	case document.KindTable:
		t := s.doc.Tables[id]
		t.Label = label
		s.doc.Tables[id] = t
	case document.KindStructure:
		st := s.doc.Structures[id]
		st.Label = label
		s.doc.Structures[id] = st
	case document.KindSection:
		sec := s.doc.Sections[id]
		sec.Label = label
		s.doc.Sections[id] = sec
	default:
		return false
	}
	return true
}

// ExpandLabelPattern substitutes {n} with n and {N} with n zero-padded to
// two digits.
func ExpandLabelPattern(pattern string, n int) string {
	return strings.NewReplacer(
		"{n}", strconv.Itoa(n),
		"{N}", fmt.Sprintf("%02d", n),
	).Replace(pattern)
}

// UpdateSelectedLabels relabels ids in order with a running 1-based counter
// shared across entity kinds.
func (s *Scene) UpdateSelectedLabels(ids []string, pattern string) {
	var changed []string
	counter := 1
	for _, id := range ids {
		if s.setLabel(id, ExpandLabelPattern(pattern, counter)) {
			changed = append(changed, id)
			counter++
		}
	}
	if len(changed) > 0 {
		s.notify(OpLabel, changed...)
	}
}

// seatsOf expands row and table ids to their seats; seat ids pass through.
func (s *Scene) seatsOf(ids []string) []string {
	var out []string
	for _, id := range ids {
		switch s.Kind(id) {
		case document.KindSeat:
			out = append(out, id)
		case document.KindRow:
			out = append(out, s.doc.Rows[id].Seats...)
		case document.KindTable:
			out = append(out, s.doc.Tables[id].Seats...)
		}
	}
	return out
}

// SetSeatType sets the seat type of the seats in ids, including the seats
// of any row or table in ids.
func (s *Scene) SetSeatType(ids []string, typ document.SeatType) {
	switch typ {
	case document.SeatStandard, document.SeatWheelchair, document.SeatCompanion, document.SeatVIP:
	default:
		return
	}
	s.updateSeats(ids, OpSeat, func(seat *document.Seat) { seat.Type = typ })
}

// SetSeatStatus sets the status of the seats in ids, expanding rows and tables.
func (s *Scene) SetSeatStatus(ids []string, status document.SeatStatus) {
	switch status {
	case document.SeatAvailable, document.SeatReserved, document.SeatSold, document.SeatBlocked:
	default:
		return
	}
	s.updateSeats(ids, OpSeat, func(seat *document.Seat) { seat.Status = status })
}

// SetSeatPrice sets or clears (nil) the per-seat price override.
func (s *Scene) SetSeatPrice(ids []string, price *float64) {
	s.updateSeats(ids, OpSeat, func(seat *document.Seat) { seat.Price = clonePrice(price) })
}

func (s *Scene) updateSeats(ids []string, op string, fn func(*document.Seat)) {
	var changed []string
	for _, seatID := range s.seatsOf(ids) {
		seat, ok := s.doc.Seats[seatID]
		if !ok {
			continue
		}
		fn(&seat)
		s.doc.Seats[seatID] = seat
		changed = append(changed, seatID)
	}
	if len(changed) > 0 {
		s.notify(op, changed...)
	}
}

// AssignSection points rows and seats at sectionID; an empty sectionID
// clears the assignment. Rows and tables propagate it to their seats.
// Assigning a section that does not exist is a no-op.
func (s *Scene) AssignSection(ids []string, sectionID string) {
	if sectionID != "" {
		if _, ok := s.doc.Sections[sectionID]; !ok {
			return
		}
	}
	var changed []string
	for _, id := range ids {
		if r, ok := s.doc.Rows[id]; ok {
			r.SectionID = sectionID
			s.doc.Rows[id] = r
			changed = append(changed, id)
		}
	}
	for _, seatID := range s.seatsOf(ids) {
		if seat, ok := s.doc.Seats[seatID]; ok {
			seat.SectionID = sectionID
			s.doc.Seats[seatID] = seat
			changed = append(changed, seatID)
		}
	}
	if len(changed) > 0 {
		s.notify(OpSection, changed...)
	}
}

// UpdateSection edits a section's label, color and default price.
func (s *Scene) UpdateSection(id, label, color string, price *float64) {
	sec, ok := s.doc.Sections[id]
	if !ok {
		return
	}
	sec.Label = label
	sec.Color = color
	sec.Price = clonePrice(price)
	s.doc.Sections[id] = sec
	s.notify(OpSection, id)
}

// SetLocked locks or unlocks placeable entities. Locked entities are
// skipped by hit-testing and box selection.
func (s *Scene) SetLocked(ids []string, locked bool) {
	var changed []string
	for _, id := range ids {
		switch s.Kind(id) {
		case document.KindRow:
			r := s.doc.Rows[id]
			r.Locked = locked
			s.doc.Rows[id] = r
		case document.KindSeat:
			seat := s.doc.Seats[id]
			seat.Locked = locked
			s.doc.Seats[id] = seat
		case document.KindArea:
			a := s.doc.Areas[id]
			a.Locked = locked
			s.doc.Areas[id] = a
		case document.KindTable:
			t := s.doc.Tables[id]
			t.Locked = locked
			s.doc.Tables[id] = t
		case document.KindStructure:
			st := s.doc.Structures[id]
			st.Locked = locked
			s.doc.Structures[id] = st
		default:
			continue
		}
		changed = append(changed, id)
	}
	if len(changed) > 0 {
		s.notify(OpLock, changed...)
	}
}
