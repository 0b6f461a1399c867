package engine

import (
	"math"

	"github.com/venuekit/venuekit/backend-go/internal/document"
	"github.com/venuekit/venuekit/backend-go/internal/geometry"
	"github.com/venuekit/venuekit/backend-go/internal/scene"
)

const (
	defaultAreaFill      = "#e5e7eb"
	defaultStructureFill = "#4b5563"
	defaultTableFill     = "#d6c6a8"
	defaultSeatFill      = "#6b7280"
	seatStroke           = "#ffffff"
	rowLabelOffset       = 20.0
)

var statusFills = map[document.SeatStatus]string{
	document.SeatReserved: "#f4a261",
	document.SeatSold:     "#9ca3af",
	document.SeatBlocked:  "#374151",
}

var typeStrokes = map[document.SeatType]string{
	document.SeatWheelchair: "#2563eb",
	document.SeatCompanion:  "#7c3aed",
	document.SeatVIP:        "#d4a017",
}

var structureFills = map[document.StructureType]string{
	document.StructureStage:    "#264653",
	document.StructureBar:      "#8d6e63",
	document.StructureEntrance: "#6a994e",
	document.StructureExit:     "#bc4749",
}

// BuildSceneGraph builds a render-ready scene graph from the Scene, with
// top-level nodes in painter order.
func BuildSceneGraph(s *scene.Scene) *SceneGraph {
	sg := NewSceneGraph()
	for _, id := range PaintOrder(s) {
		if node := buildNode(s, id); node != nil {
			sg.add(node)
		}
	}
	return sg
}

func buildNode(s *scene.Scene, id string) *SceneNode {
	switch s.Kind(id) {
	case document.KindArea:
		a, _ := s.Area(id)
		return buildArea(a)
	case document.KindStructure:
		st, _ := s.Structure(id)
		return buildStructure(st)
	case document.KindRow:
		return buildRow(s, id)
	case document.KindTable:
		return buildTable(s, id)
	case document.KindSeat:
		return buildSeat(s, id)
	}
	return nil
}

// centeredFrame returns the transform for a node whose local origin is the
// center of bounds, rotated by degrees about that center.
func centeredFrame(bounds geometry.Rect, degrees float64) geometry.Matrix2D {
	c := bounds.Center()
	return geometry.Translate(c.X, c.Y).Multiply(geometry.RotateDegrees(degrees))
}

func buildArea(a document.Area) *SceneNode {
	b := a.Bounds()
	node := &SceneNode{
		ID:        a.ID,
		Kind:      document.KindArea,
		Transform: centeredFrame(b, a.Rotation),
		Fill:      a.Color,
		Opacity:   a.Opacity,
		Label:     a.Label,
		LabelAt:   b.Center(),
		Locked:    a.Locked,
	}
	if node.Fill == "" {
		node.Fill = defaultAreaFill
	}
	switch a.Shape {
	case document.AreaCircle:
		r := math.Min(b.Width, b.Height) / 2
		node.Path = generateEllipsePath(r, r)
	case document.AreaOval:
		node.Path = generateEllipsePath(b.Width/2, b.Height/2)
	case document.AreaLine:
		node.Path = generateLinePath(a, b)
		node.Stroke, node.Fill = node.Fill, ""
		if a.Line != nil {
			node.StrokeWidth = a.Line.StrokeWidth
		}
	default:
		node.Path = generateRectPath(b.Width, b.Height)
	}
	node.Bounds = computePathBounds(node.Path, node.Transform)
	return node
}

func buildStructure(st document.Structure) *SceneNode {
	b := st.Bounds()
	fill := st.Color
	if fill == "" {
		fill = structureFills[st.Type]
	}
	if fill == "" {
		fill = defaultStructureFill
	}
	node := &SceneNode{
		ID:        st.ID,
		Kind:      document.KindStructure,
		Transform: centeredFrame(b, st.Rotation),
		Path:      generateRectPath(b.Width, b.Height),
		Fill:      fill,
		Opacity:   1,
		Label:     st.Label,
		LabelAt:   b.Center(),
		Locked:    st.Locked,
	}
	node.Bounds = computePathBounds(node.Path, node.Transform)
	return node
}

func buildRow(s *scene.Scene, id string) *SceneNode {
	r, _ := s.Row(id)
	node := &SceneNode{
		ID:        id,
		Kind:      document.KindRow,
		Transform: geometry.Identity(),
		Opacity:   1,
		Label:     r.Label,
		LabelAt:   r.Position.Sub(geometry.Pt(rowLabelOffset, 0)),
		Locked:    r.Locked,
	}
	if len(r.Seats) > 0 {
		if first, ok := s.Seat(r.Seats[0]); ok {
			node.LabelAt = first.Position.Sub(geometry.Pt(rowLabelOffset, 0))
		}
	}
	node.Bounds = pointRect(node.LabelAt)
	node.Children = buildSeats(s, r.Seats, r.Locked)
	for _, child := range node.Children {
		node.Bounds = node.Bounds.Union(child.Bounds)
	}
	return node
}

func buildTable(s *scene.Scene, id string) *SceneNode {
	t, _ := s.Table(id)
	b := t.Bounds()
	node := &SceneNode{
		ID:        id,
		Kind:      document.KindTable,
		Transform: centeredFrame(b, t.Rotation),
		Fill:      defaultTableFill,
		Opacity:   1,
		Label:     t.Label,
		LabelAt:   b.Center(),
		Locked:    t.Locked,
	}
	if t.Shape == document.TableRectangular {
		node.Path = generateRectPath(b.Width, b.Height)
	} else {
		node.Path = generateEllipsePath(b.Width/2, b.Height/2)
	}
	node.Bounds = computePathBounds(node.Path, node.Transform)
	node.Children = buildSeats(s, t.Seats, t.Locked)
	for _, child := range node.Children {
		node.Bounds = node.Bounds.Union(child.Bounds)
	}
	return node
}

func buildSeats(s *scene.Scene, ids []string, ownerLocked bool) []*SceneNode {
	nodes := make([]*SceneNode, 0, len(ids))
	for _, id := range ids {
		if node := buildSeat(s, id); node != nil {
			node.Locked = node.Locked || ownerLocked
			nodes = append(nodes, node)
		}
	}
	return nodes
}

func buildSeat(s *scene.Scene, id string) *SceneNode {
	seat, ok := s.Seat(id)
	if !ok {
		return nil
	}
	pos, _ := s.SeatWorldPosition(id)
	node := &SceneNode{
		ID:          id,
		Kind:        document.KindSeat,
		Transform:   geometry.Translate(pos.X, pos.Y),
		Path:        generateEllipsePath(SeatRadius, SeatRadius),
		Fill:        seatFill(s, id, seat),
		Stroke:      seatStroke,
		StrokeWidth: 1,
		Opacity:     1,
		Label:       seat.Label,
		LabelAt:     pos,
		Locked:      seat.Locked,
	}
	if c, ok := typeStrokes[seat.Type]; ok {
		node.Stroke = c
		node.StrokeWidth = 2
	}
	node.Bounds = computePathBounds(node.Path, node.Transform)
	return node
}

// seatFill resolves a seat's color: a non-available status wins, then the
// seat's section color, then the default.
func seatFill(s *scene.Scene, id string, seat document.Seat) string {
	if c, ok := statusFills[seat.Status]; ok {
		return c
	}
	if c, ok := s.SectionColor(id); ok && c != "" {
		return c
	}
	return defaultSeatFill
}

// generateRectPath generates a w×h rectangle centered on the origin.
func generateRectPath(w, h float64) []PathCommand {
	x, y := -w/2, -h/2
	return []PathCommand{
		{"M", x, y},
		{"L", x + w, y},
		{"L", x + w, y + h},
		{"L", x, y + h},
		{"Z"},
	}
}

// generateEllipsePath generates path commands for an ellipse using bezier curves.
func generateEllipsePath(rx, ry float64) []PathCommand {
	// k = 4 * (sqrt(2) - 1) / 3
	k := 0.5522847498
	kx, ky := rx*k, ry*k

	return []PathCommand{
		{"M", rx, 0.0},
		{"C", rx, ky, kx, ry, 0.0, ry},
		{"C", -kx, ry, -rx, ky, -rx, 0.0},
		{"C", -rx, -ky, -kx, -ry, 0.0, -ry},
		{"C", kx, -ry, rx, -ky, rx, 0.0},
		{"Z"},
	}
}

// generateLinePath converts a line area's points, stored relative to the
// area position, into the centered local frame.
func generateLinePath(a document.Area, b geometry.Rect) []PathCommand {
	if a.Line == nil || len(a.Line.Points) == 0 {
		return nil
	}
	off := b.Center().Sub(a.Position)
	path := make([]PathCommand, len(a.Line.Points))
	for i, p := range a.Line.Points {
		op := "L"
		if i == 0 {
			op = "M"
		}
		local := p.Sub(off)
		path[i] = PathCommand{op, local.X, local.Y}
	}
	return path
}

// generateCurvePath generates the world-space preview path of a row curve.
func generateCurvePath(start, end geometry.Point, curvature float64) []PathCommand {
	segs := geometry.CurvePath(start, end, curvature)
	path := make([]PathCommand, len(segs))
	for i, seg := range segs {
		path[i] = PathCommand(seg)
	}
	return path
}

// computePathBounds computes the axis-aligned bounding box of a path in world space.
// Bezier control points are included, so curved bounds are conservative.
func computePathBounds(path []PathCommand, transform geometry.Matrix2D) geometry.Rect {
	var pts []geometry.Point
	for _, cmd := range path {
		if len(cmd) == 0 {
			continue
		}
		op, ok := cmd[0].(string)
		if !ok {
			continue
		}
		var n int
		switch op {
		case "M", "L":
			n = 1
		case "Q":
			n = 2
		case "C":
			n = 3
		}
		if len(cmd) < 1+2*n {
			continue
		}
		for i := 0; i < n; i++ {
			p := geometry.Pt(toFloat64(cmd[1+2*i]), toFloat64(cmd[2+2*i]))
			pts = append(pts, transform.Apply(p))
		}
	}
	r, _ := geometry.RectFromPoints(pts)
	return r
}

// toFloat64 converts a path operand to float64.
func toFloat64(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}
