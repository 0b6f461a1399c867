package scene

import (
	"math"
	"strconv"

	"github.com/venuekit/venuekit/backend-go/internal/document"
	"github.com/venuekit/venuekit/backend-go/internal/geometry"
)

// RowConfig describes one row of a CreateMultipleRows batch.
type RowConfig struct {
	Label     string `json:"label"`
	SeatCount int    `json:"seatCount"`
	SectionID string `json:"sectionId,omitempty"`
}

// CreateRow allocates a straight row of seatCount seats spaced SeatSpacing
// apart to the right of anchor.
func (s *Scene) CreateRow(label string, seatCount int, anchor geometry.Point, sectionID string) string {
	id := s.createRow(label, seatCount, anchor, sectionID)
	s.notify(OpCreate, id)
	return id
}

func (s *Scene) createRow(label string, seatCount int, anchor geometry.Point, sectionID string) string {
	positions := make([]geometry.Point, max(seatCount, 0))
	for i := range positions {
		positions[i] = anchor.Add(geometry.Pt(float64(i)*SeatSpacing, 0))
	}
	rowID := s.allocate(document.KindRow)
	s.doc.Rows[rowID] = document.Row{
		ID:        rowID,
		Label:     label,
		Position:  anchor,
		Seats:     s.createSeats(positions, rowID, "", sectionID),
		SectionID: sectionID,
	}
	return rowID
}

// CreateCurvedRow places seatCount seats along the quadratic curve from start
// to end and stores the chord and curvature on the row.
func (s *Scene) CreateCurvedRow(label string, seatCount int, start, end geometry.Point, curvature float64) string {
	curve := geometry.ClampCurvature(curvature)
	positions := geometry.PlaceAlongCurve(start, end, curve, seatCount)

	rowID := s.allocate(document.KindRow)
	s.doc.Rows[rowID] = document.Row{
		ID:       rowID,
		Label:    label,
		Position: start,
		Seats:    s.createSeats(positions, rowID, "", ""),
		Start:    &start,
		End:      &end,
		Curve:    &curve,
	}
	s.notify(OpCreate, rowID)
	return rowID
}

// CreateMultipleRows stacks rows downward from base, spacing units apart.
func (s *Scene) CreateMultipleRows(configs []RowConfig, base geometry.Point, spacing float64) []string {
	if len(configs) == 0 {
		return nil
	}
	ids := make([]string, len(configs))
	for i, cfg := range configs {
		anchor := base.Add(geometry.Pt(0, float64(i)*spacing))
		ids[i] = s.createRow(cfg.Label, cfg.SeatCount, anchor, cfg.SectionID)
	}
	s.notify(OpCreate, ids...)
	return ids
}

// CreateTable places a table with its top-left corner at anchor and
// generates seatCount seats around its perimeter.
func (s *Scene) CreateTable(label string, anchor geometry.Point, shape document.TableShape, size geometry.Size, seatCount int) string {
	if shape != document.TableRectangular {
		shape = document.TableRound
	}
	size = clampSize(size)
	positions := TableSeatPositions(shape, document.Bounds(anchor, size), max(seatCount, 0))

	tableID := s.allocate(document.KindTable)
	s.doc.Tables[tableID] = document.Table{
		ID:       tableID,
		Label:    label,
		Position: anchor,
		Size:     size,
		Shape:    shape,
		ZIndex:   s.maxZ() + 1,
		Seats:    s.createSeats(positions, "", tableID, ""),
	}
	s.notify(OpCreate, tableID)
	return tableID
}

// CreateSeat places a standalone seat.
func (s *Scene) CreateSeat(label string, position geometry.Point, sectionID string) string {
	id := s.allocate(document.KindSeat)
	s.doc.Seats[id] = document.Seat{
		ID:        id,
		Label:     label,
		Position:  position,
		Type:      document.SeatStandard,
		Status:    document.SeatAvailable,
		SectionID: sectionID,
	}
	s.notify(OpCreate, id)
	return id
}

// CreateArea places a shaped area. Line areas are created with CreateLine.
func (s *Scene) CreateArea(label string, position geometry.Point, size geometry.Size, shape document.AreaShape) string {
	switch shape {
	case document.AreaRectangle, document.AreaCircle, document.AreaOval:
	case document.AreaSquare:
		side := max(size.Width, size.Height)
		size = geometry.Size{Width: side, Height: side}
	default:
		shape = document.AreaRectangle
	}
	id := s.allocate(document.KindArea)
	s.doc.Areas[id] = document.Area{
		ID:       id,
		Label:    label,
		Position: position,
		Size:     clampSize(size),
		Shape:    shape,
		Opacity:  1,
		ZIndex:   s.maxZ() + 1,
	}
	s.notify(OpCreate, id)
	return id
}

// CreateLine creates a line area from world-space points. The area's
// position becomes the top-left of the points' bounds and the stored points
// are made relative to it. Fewer than two points creates nothing.
func (s *Scene) CreateLine(label string, points []geometry.Point, strokeWidth float64, kind document.LineKind) string {
	bounds, ok := geometry.RectFromPoints(points)
	if !ok || len(points) < 2 {
		return ""
	}
	if kind != document.LineFreehand {
		kind = document.LineStraight
	}
	if strokeWidth <= 0 {
		strokeWidth = 2
	}
	origin := geometry.Pt(bounds.X, bounds.Y)
	rel := make([]geometry.Point, len(points))
	for i, p := range points {
		rel[i] = p.Sub(origin)
	}

	id := s.allocate(document.KindArea)
	s.doc.Areas[id] = document.Area{
		ID:       id,
		Label:    label,
		Position: origin,
		Size:     geometry.Size{Width: bounds.Width, Height: bounds.Height},
		Shape:    document.AreaLine,
		Opacity:  1,
		ZIndex:   s.maxZ() + 1,
		Line:     &document.LineConfig{Points: rel, StrokeWidth: strokeWidth, Kind: kind},
	}
	s.notify(OpCreate, id)
	return id
}

// CreateStructure places a stage, bar, entrance, exit or custom structure.
func (s *Scene) CreateStructure(label string, typ document.StructureType, position geometry.Point, size geometry.Size, color string) string {
	switch typ {
	case document.StructureStage, document.StructureBar, document.StructureEntrance, document.StructureExit:
	default:
		typ = document.StructureCustom
	}
	id := s.allocate(document.KindStructure)
	s.doc.Structures[id] = document.Structure{
		ID:       id,
		Label:    label,
		Type:     typ,
		Position: position,
		Size:     clampSize(size),
		Color:    color,
		ZIndex:   s.maxZ() + 1,
	}
	s.notify(OpCreate, id)
	return id
}

// CreateSection adds a pricing/color section numbered after the highest
// existing section number.
func (s *Scene) CreateSection(label, color string, price *float64) string {
	number := 0
	for _, sec := range s.doc.Sections {
		number = max(number, sec.Number)
	}
	id := s.allocate(document.KindSection)
	s.doc.Sections[id] = document.Section{
		ID:     id,
		Label:  label,
		Color:  color,
		Number: number + 1,
		Price:  clonePrice(price),
	}
	s.notify(OpCreate, id)
	return id
}

// createSeats allocates one seat per position, labelled 1..n, owned by
// rowID or tableID.
func (s *Scene) createSeats(positions []geometry.Point, rowID, tableID, sectionID string) []string {
	ids := make([]string, len(positions))
	for i, p := range positions {
		id := s.allocate(document.KindSeat)
		s.doc.Seats[id] = document.Seat{
			ID:        id,
			Label:     strconv.Itoa(i + 1),
			Position:  p,
			Type:      document.SeatStandard,
			Status:    document.SeatAvailable,
			RowID:     rowID,
			TableID:   tableID,
			SectionID: sectionID,
		}
		ids[i] = id
	}
	return ids
}

// TableSeatPositions lays out n seats around a table occupying bounds.
//
// Round tables put seats on a circle of radius max(w,h)/2 + TableSeatGap,
// starting at -90° and evenly spaced. Rectangular tables split the seats
// across the top, right, bottom and left edges in proportion to edge length
// and place them TableSeatOffset outside the table, walking clockwise.
func TableSeatPositions(shape document.TableShape, bounds geometry.Rect, n int) []geometry.Point {
	if n <= 0 {
		return nil
	}
	if shape == document.TableRectangular {
		return rectangularSeats(bounds, n)
	}
	c := bounds.Center()
	r := max(bounds.Width, bounds.Height)/2 + TableSeatGap
	pts := make([]geometry.Point, n)
	for i := range pts {
		angle := (-90 + float64(i)*360/float64(n)) * math.Pi / 180
		pts[i] = geometry.Pt(c.X+r*math.Cos(angle), c.Y+r*math.Sin(angle))
	}
	return pts
}

// EdgeSeatCounts distributes n seats over the top, right, bottom and left
// edges of a w×h table. Any remainder goes to the left edge, the last one
// processed; when rounding overshoots, edges are trimmed from the left
// edge backwards.
func EdgeSeatCounts(w, h float64, n int) [4]int {
	perimeter := 2 * (w + h)
	if perimeter <= 0 {
		return [4]int{n, 0, 0, 0}
	}
	horizontal := int(math.Round(w / perimeter * float64(n)))
	side := int(math.Floor((2 * h / perimeter * float64(n)) / 2))
	counts := [4]int{horizontal, side, horizontal, side}
	counts[3] += n - (counts[0] + counts[1] + counts[2] + counts[3])
	for i := 3; i > 0 && counts[i] < 0; i-- {
		counts[i-1] += counts[i]
		counts[i] = 0
	}
	return counts
}

func rectangularSeats(b geometry.Rect, n int) []geometry.Point {
	counts := EdgeSeatCounts(b.Width, b.Height, n)
	left, top := b.X, b.Y
	right, bottom := b.X+b.Width, b.Y+b.Height

	pts := make([]geometry.Point, 0, n)
	for edge, k := range counts {
		for j := 0; j < k; j++ {
			f := float64(j+1) / float64(k+1)
			var p geometry.Point
			switch edge {
			case 0:
				p = geometry.Pt(left+b.Width*f, top-TableSeatOffset)
			case 1:
				p = geometry.Pt(right+TableSeatOffset, top+b.Height*f)
			case 2:
				p = geometry.Pt(right-b.Width*f, bottom+TableSeatOffset)
			case 3:
				p = geometry.Pt(left-TableSeatOffset, bottom-b.Height*f)
			}
			pts = append(pts, p)
		}
	}
	return pts
}

func clampSize(size geometry.Size) geometry.Size {
	return geometry.Size{Width: max(size.Width, MinSize), Height: max(size.Height, MinSize)}
}

func clonePrice(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
