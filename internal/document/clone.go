package document

import (
	"maps"
	"slices"

	"github.com/venuekit/venuekit/backend-go/internal/geometry"
)

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	out := &Document{
		Name:       d.Name,
		Rows:       make(map[string]Row, len(d.Rows)),
		Seats:      maps.Clone(d.Seats),
		Areas:      make(map[string]Area, len(d.Areas)),
		Tables:     make(map[string]Table, len(d.Tables)),
		Structures: maps.Clone(d.Structures),
		Sections:   make(map[string]Section, len(d.Sections)),
	}
	if out.Seats == nil {
		out.Seats = map[string]Seat{}
	}
	if out.Structures == nil {
		out.Structures = map[string]Structure{}
	}
	for id, s := range out.Seats {
		s.Price = clonePtr(s.Price)
		out.Seats[id] = s
	}
	for id, r := range d.Rows {
		r.Seats = slices.Clone(r.Seats)
		r.Start = clonePtr(r.Start)
		r.End = clonePtr(r.End)
		r.Curve = clonePtr(r.Curve)
		r.ZIndex = clonePtr(r.ZIndex)
		out.Rows[id] = r
	}
	for id, a := range d.Areas {
		if a.Line != nil {
			line := *a.Line
			line.Points = slices.Clone(a.Line.Points)
			a.Line = &line
		}
		out.Areas[id] = a
	}
	for id, t := range d.Tables {
		t.Seats = slices.Clone(t.Seats)
		out.Tables[id] = t
	}
	for id, s := range d.Sections {
		s.Price = clonePtr(s.Price)
		out.Sections[id] = s
	}
	return out
}

func clonePtr[T float64 | int | geometry.Point](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
