package scene

import (
	"github.com/venuekit/venuekit/backend-go/internal/document"
)

// deletion collects everything a delete removes before anything is touched.
type deletion struct {
	rows, seats, areas, tables, structures, sections map[string]bool
	order                                            []string
}

func newDeletion() *deletion {
	return &deletion{
		rows:       map[string]bool{},
		seats:      map[string]bool{},
		areas:      map[string]bool{},
		tables:     map[string]bool{},
		structures: map[string]bool{},
		sections:   map[string]bool{},
	}
}

func (d *deletion) mark(set map[string]bool, id string) {
	if !set[id] {
		set[id] = true
		d.order = append(d.order, id)
	}
}

func (d *deletion) empty() bool { return len(d.order) == 0 }

// planRow marks a row and every seat it lists.
func (s *Scene) planRow(d *deletion, id string) {
	r, ok := s.doc.Rows[id]
	if !ok {
		return
	}
	d.mark(d.rows, id)
	for _, seatID := range r.Seats {
		if _, ok := s.doc.Seats[seatID]; ok {
			d.mark(d.seats, seatID)
		}
	}
}

// planTable marks a table and every seat it lists.
func (s *Scene) planTable(d *deletion, id string) {
	t, ok := s.doc.Tables[id]
	if !ok {
		return
	}
	d.mark(d.tables, id)
	for _, seatID := range t.Seats {
		if _, ok := s.doc.Seats[seatID]; ok {
			d.mark(d.seats, seatID)
		}
	}
}

// apply removes every planned entity in one pass.
func (s *Scene) apply(d *deletion) {
	for id := range d.rows {
		delete(s.doc.Rows, id)
	}
	for id := range d.tables {
		delete(s.doc.Tables, id)
	}
	for id := range d.seats {
		delete(s.doc.Seats, id)
	}
	for id := range d.areas {
		delete(s.doc.Areas, id)
	}
	for id := range d.structures {
		delete(s.doc.Structures, id)
	}
	for id := range d.sections {
		delete(s.doc.Sections, id)
	}
	for _, id := range d.order {
		delete(s.kinds, id)
	}
	s.notify(OpDelete, d.order...)
}

// DeleteRow removes a row together with the seats it owns.
func (s *Scene) DeleteRow(id string) {
	d := newDeletion()
	s.planRow(d, id)
	if !d.empty() {
		s.apply(d)
	}
}

// DeleteTable removes a table together with the seats it owns.
func (s *Scene) DeleteTable(id string) {
	d := newDeletion()
	s.planTable(d, id)
	if !d.empty() {
		s.apply(d)
	}
}

func (s *Scene) DeleteArea(id string) {
	if _, ok := s.doc.Areas[id]; !ok {
		return
	}
	d := newDeletion()
	d.mark(d.areas, id)
	s.apply(d)
}

func (s *Scene) DeleteStructure(id string) {
	if _, ok := s.doc.Structures[id]; !ok {
		return
	}
	d := newDeletion()
	d.mark(d.structures, id)
	s.apply(d)
}

// DeleteSection removes a section. Rows and seats keep their now dangling
// section id, which consumers treat as no section.
func (s *Scene) DeleteSection(id string) {
	if _, ok := s.doc.Sections[id]; !ok {
		return
	}
	d := newDeletion()
	d.mark(d.sections, id)
	s.apply(d)
}

// DeleteSeat removes a standalone seat. Seats owned by a row or table are
// only removed through their owner.
func (s *Scene) DeleteSeat(id string) {
	if !s.IsStandalone(id) {
		return
	}
	d := newDeletion()
	d.mark(d.seats, id)
	s.apply(d)
}

// DeleteSelected deletes every entity in ids, cascading rows and tables to
// their seats. Seats in ids are deleted only when standalone. Returns the
// ids actually removed.
func (s *Scene) DeleteSelected(ids []string) []string {
	d := newDeletion()
	var seats []string
	for _, id := range ids {
		switch s.Kind(id) {
		case document.KindRow:
			s.planRow(d, id)
		case document.KindTable:
			s.planTable(d, id)
		case document.KindArea:
			d.mark(d.areas, id)
		case document.KindStructure:
			d.mark(d.structures, id)
		case document.KindSection:
			d.mark(d.sections, id)
		case document.KindSeat:
			seats = append(seats, id)
		}
	}
	for _, id := range seats {
		if s.IsStandalone(id) {
			d.mark(d.seats, id)
		}
	}
	if d.empty() {
		return nil
	}
	s.apply(d)
	return d.order
}
