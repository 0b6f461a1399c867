package scene

import (
	"fmt"
	"math"
	"slices"
	"testing"

	"github.com/venuekit/venuekit/backend-go/internal/document"
	"github.com/venuekit/venuekit/backend-go/internal/geometry"
)

const epsilon = 1e-9

func approxEqual(a, b, eps float64) bool {
	return math.Abs(a-b) < eps
}

// newTestScene returns a Scene with sequential ids ("row_1", "seat_2", ...).
func newTestScene() *Scene {
	s := New("")
	n := 0
	s.SetIDGenerator(func(k document.Kind) string {
		n++
		return fmt.Sprintf("%s_%d", k.Prefix(), n)
	})
	return s
}

func seatPositions(s *Scene, ids []string) []geometry.Point {
	out := make([]geometry.Point, len(ids))
	for i, id := range ids {
		out[i] = s.doc.Seats[id].Position
	}
	return out
}

func TestNewSceneDefaults(t *testing.T) {
	s := New("")
	if s.Name() != document.DefaultName {
		t.Errorf("Name = %q, want %q", s.Name(), document.DefaultName)
	}
	if ids := s.TopLevelIDs(); len(ids) != 0 {
		t.Errorf("TopLevelIDs = %v, want empty", ids)
	}
}

func TestCreateRowLinearPitch(t *testing.T) {
	s := newTestScene()
	rowID := s.CreateRow("A", 4, geometry.Pt(10, 20), "")

	r, ok := s.Row(rowID)
	if !ok {
		t.Fatalf("row %q not found", rowID)
	}
	if s.Kind(rowID) != document.KindRow {
		t.Errorf("Kind = %v, want row", s.Kind(rowID))
	}
	if r.Position != geometry.Pt(10, 20) {
		t.Errorf("Position = %v, want (10,20)", r.Position)
	}
	if len(r.Seats) != 4 {
		t.Fatalf("seats = %d, want 4", len(r.Seats))
	}
	for i, seatID := range r.Seats {
		seat := s.doc.Seats[seatID]
		want := geometry.Pt(10+float64(i)*SeatSpacing, 20)
		if seat.Position != want {
			t.Errorf("seat %d at %v, want %v", i, seat.Position, want)
		}
		if seat.RowID != rowID || seat.TableID != "" {
			t.Errorf("seat %d owners = (%q,%q), want (%q,\"\")", i, seat.RowID, seat.TableID, rowID)
		}
		if seat.Label != fmt.Sprint(i+1) {
			t.Errorf("seat %d label = %q, want %d", i, seat.Label, i+1)
		}
	}
}

func TestCreateCurvedRowStoresBasis(t *testing.T) {
	s := newTestScene()
	start, end := geometry.Pt(0, 0), geometry.Pt(300, 0)
	rowID := s.CreateCurvedRow("A", 4, start, end, 7)

	r := s.doc.Rows[rowID]
	if r.Start == nil || r.End == nil || r.Curve == nil {
		t.Fatalf("row basis not stored: %+v", r)
	}
	if *r.Curve != geometry.MaxCurvature {
		t.Errorf("Curve = %v, want clamped %v", *r.Curve, geometry.MaxCurvature)
	}
	want := geometry.PlaceAlongCurve(start, end, geometry.MaxCurvature, 4)
	if got := seatPositions(s, r.Seats); !slices.Equal(got, want) {
		t.Errorf("seats = %v, want %v", got, want)
	}
}

func TestCurveHandleDragRoundTrip(t *testing.T) {
	s := newTestScene()
	start, end := geometry.Pt(0, 0), geometry.Pt(300, 0)
	rowID := s.CreateCurvedRow("A", 4, start, end, 1.0)

	handle := geometry.Pt(150, 300*geometry.SagittaFactor)
	if ctrl := geometry.ControlPoint(start, end, 1.0); !approxEqual(ctrl.X, handle.X, epsilon) || !approxEqual(ctrl.Y, handle.Y, epsilon) {
		t.Fatalf("control point = %v, want %v", ctrl, handle)
	}

	c := geometry.CurvatureFromPoint(start, end, handle)
	s.SetRowCurve(rowID, c)

	_, _, curve, ok := s.RowChord(rowID)
	if !ok || !approxEqual(curve, 1.0, epsilon) {
		t.Errorf("curve after drag = %v (ok=%v), want 1.0", curve, ok)
	}
}

func TestSetRowCurveOnStraightRow(t *testing.T) {
	s := newTestScene()
	rowID := s.CreateRow("A", 5, geometry.Pt(0, 0), "")
	s.SetRowCurve(rowID, -3)

	r := s.doc.Rows[rowID]
	if r.Curve == nil || *r.Curve != -geometry.MaxCurvature {
		t.Fatalf("Curve = %v, want -1.5", r.Curve)
	}
	if *r.Start != geometry.Pt(0, 0) || *r.End != geometry.Pt(120, 0) {
		t.Errorf("derived chord = %v→%v, want (0,0)→(120,0)", *r.Start, *r.End)
	}
	mid := s.doc.Seats[r.Seats[2]].Position
	if mid.Y >= 0 {
		t.Errorf("middle seat y = %v, want < 0 for negative curvature", mid.Y)
	}
}

func TestCurveOperationsNoopOnShortRows(t *testing.T) {
	s := newTestScene()
	one := s.CreateRow("A", 1, geometry.Pt(5, 5), "")
	none := s.CreateRow("B", 0, geometry.Pt(5, 50), "")
	before := s.doc.Clone()

	s.SetRowCurve(one, 1)
	s.SetRowEndpoints(none, geometry.Pt(0, 0), geometry.Pt(100, 0))

	if _, _, _, ok := s.RowChord(one); ok {
		t.Error("RowChord of single-seat row ok = true")
	}
	assertDocEqual(t, before, s.doc)
}

func TestSetRowEndpointsKeepsCurvature(t *testing.T) {
	s := newTestScene()
	rowID := s.CreateCurvedRow("A", 3, geometry.Pt(0, 0), geometry.Pt(100, 0), 0.5)
	s.SetRowEndpoints(rowID, geometry.Pt(0, 0), geometry.Pt(0, 200))

	start, end, curve, ok := s.RowChord(rowID)
	if !ok || start != geometry.Pt(0, 0) || end != geometry.Pt(0, 200) || curve != 0.5 {
		t.Fatalf("RowChord = %v %v %v %v", start, end, curve, ok)
	}
	last := s.doc.Seats[s.doc.Rows[rowID].Seats[2]].Position
	if !approxEqual(last.X, 0, epsilon) || !approxEqual(last.Y, 200, epsilon) {
		t.Errorf("last seat = %v, want (0,200)", last)
	}
}

func TestCreateMultipleRows(t *testing.T) {
	s := newTestScene()
	secID := s.CreateSection("Floor", "#fff", nil)
	ids := s.CreateMultipleRows([]RowConfig{
		{Label: "A", SeatCount: 3, SectionID: secID},
		{Label: "B", SeatCount: 5},
		{Label: "C", SeatCount: 0},
	}, geometry.Pt(100, 100), 40)

	if len(ids) != 3 {
		t.Fatalf("ids = %v, want 3", ids)
	}
	wantSeats := []int{3, 5, 0}
	for i, id := range ids {
		r := s.doc.Rows[id]
		if r.Position != geometry.Pt(100, 100+float64(i)*40) {
			t.Errorf("row %d position = %v", i, r.Position)
		}
		if len(r.Seats) != wantSeats[i] {
			t.Errorf("row %d seats = %d, want %d", i, len(r.Seats), wantSeats[i])
		}
	}
	if s.doc.Rows[ids[0]].SectionID != secID || s.doc.Seats[s.doc.Rows[ids[0]].Seats[0]].SectionID != secID {
		t.Error("section not applied to row A and its seats")
	}
	if got := s.CreateMultipleRows(nil, geometry.Pt(0, 0), 10); got != nil {
		t.Errorf("empty batch = %v, want nil", got)
	}
}

func TestCreateRoundTable(t *testing.T) {
	s := newTestScene()
	tableID := s.CreateTable("T1", geometry.Pt(100, 100), document.TableRound, geometry.Size{Width: 80, Height: 80}, 6)

	table := s.doc.Tables[tableID]
	if len(table.Seats) != 6 || len(s.doc.Seats) != 6 {
		t.Fatalf("seats = %d (map %d), want 6", len(table.Seats), len(s.doc.Seats))
	}
	center := geometry.Pt(140, 140)
	for i, seatID := range table.Seats {
		seat := s.doc.Seats[seatID]
		if seat.TableID != tableID || seat.RowID != "" {
			t.Errorf("seat %d owners = (%q,%q)", i, seat.RowID, seat.TableID)
		}
		d := seat.Position.Sub(center)
		if !approxEqual(d.Len(), 65, 1e-9) {
			t.Errorf("seat %d distance = %v, want 65", i, d.Len())
		}
		angle := math.Atan2(d.Y, d.X) * 180 / math.Pi
		want := -90 + float64(i)*60
		if want > 180 {
			want -= 360
		}
		if !approxEqual(angle, want, 1e-9) {
			t.Errorf("seat %d angle = %v, want %v", i, angle, want)
		}
	}
}

func TestEdgeSeatCounts(t *testing.T) {
	tests := []struct {
		w, h float64
		n    int
		want [4]int
	}{
		{100, 50, 6, [4]int{2, 1, 2, 1}},
		{120, 60, 8, [4]int{3, 1, 3, 1}},
		{100, 100, 3, [4]int{1, 0, 1, 1}},
		{200, 10, 5, [4]int{2, 0, 2, 1}},
		{100, 50, 0, [4]int{0, 0, 0, 0}},
		{60, 60, 1, [4]int{0, 0, 0, 1}},
	}
	for _, tt := range tests {
		got := EdgeSeatCounts(tt.w, tt.h, tt.n)
		if got != tt.want {
			t.Errorf("EdgeSeatCounts(%v,%v,%d) = %v, want %v", tt.w, tt.h, tt.n, got, tt.want)
		}
		sum := got[0] + got[1] + got[2] + got[3]
		if sum != tt.n {
			t.Errorf("EdgeSeatCounts(%v,%v,%d) sums to %d", tt.w, tt.h, tt.n, sum)
		}
	}
}

func TestRectangularTableSeatsOutside(t *testing.T) {
	s := newTestScene()
	tableID := s.CreateTable("T2", geometry.Pt(0, 0), document.TableRectangular, geometry.Size{Width: 120, Height: 60}, 8)
	table := s.doc.Tables[tableID]
	if len(table.Seats) != 8 {
		t.Fatalf("seats = %d, want 8", len(table.Seats))
	}
	bounds := table.Bounds()
	for _, seatID := range table.Seats {
		p := s.doc.Seats[seatID].Position
		if bounds.Contains(p) {
			t.Errorf("seat at %v is inside the table", p)
		}
		if !bounds.Expand(TableSeatOffset).Contains(p) {
			t.Errorf("seat at %v is further than %v from the table", p, TableSeatOffset)
		}
	}
	// First seat is on the top edge, a quarter of the way along.
	first := s.doc.Seats[table.Seats[0]].Position
	if first != geometry.Pt(30, -TableSeatOffset) {
		t.Errorf("first seat = %v, want (30,-30)", first)
	}
}

func TestResizeTableRelaysSeats(t *testing.T) {
	s := newTestScene()
	tableID := s.CreateTable("T", geometry.Pt(0, 0), document.TableRound, geometry.Size{Width: 80, Height: 80}, 4)
	seatIDs := slices.Clone(s.doc.Tables[tableID].Seats)

	s.Resize(tableID, geometry.Size{Width: 200, Height: 200})

	if got := s.doc.Tables[tableID].Seats; !slices.Equal(got, seatIDs) {
		t.Fatalf("seat ids changed: %v → %v", seatIDs, got)
	}
	for _, id := range seatIDs {
		d := geometry.Distance(s.doc.Seats[id].Position, geometry.Pt(100, 100))
		if !approxEqual(d, 125, 1e-9) {
			t.Errorf("seat distance after resize = %v, want 125", d)
		}
	}
	s.Resize(tableID, geometry.Size{Width: 1, Height: -5})
	if sz := s.doc.Tables[tableID].Size; sz.Width != MinSize || sz.Height != MinSize {
		t.Errorf("size = %v, want clamped to %v", sz, MinSize)
	}
}

func TestMoveCompositeEntities(t *testing.T) {
	s := newTestScene()
	rowID := s.CreateCurvedRow("A", 3, geometry.Pt(0, 0), geometry.Pt(60, 0), 0.5)
	tableID := s.CreateTable("T", geometry.Pt(200, 200), document.TableRound, geometry.Size{Width: 50, Height: 50}, 2)
	before := s.doc.Clone()
	delta := geometry.Pt(15, -5)

	s.Move(rowID, delta)
	s.Move(tableID, delta)

	r := s.doc.Rows[rowID]
	if r.Position != before.Rows[rowID].Position.Add(delta) {
		t.Errorf("row position = %v", r.Position)
	}
	if *r.Start != geometry.Pt(15, -5) || *r.End != geometry.Pt(75, -5) {
		t.Errorf("row chord = %v→%v", *r.Start, *r.End)
	}
	for _, id := range append(slices.Clone(r.Seats), s.doc.Tables[tableID].Seats...) {
		want := before.Seats[id].Position.Add(delta)
		if got := s.doc.Seats[id].Position; got != want {
			t.Errorf("seat %s at %v, want %v", id, got, want)
		}
	}
	if s.doc.Tables[tableID].Position != geometry.Pt(215, 195) {
		t.Errorf("table position = %v", s.doc.Tables[tableID].Position)
	}
}

func TestMoveSelectionMovesEachEntityOnce(t *testing.T) {
	s := newTestScene()
	rowID := s.CreateRow("A", 2, geometry.Pt(0, 0), "")
	seatA := s.doc.Rows[rowID].Seats[0]
	lone := s.CreateSeat("X", geometry.Pt(500, 500), "")

	s.MoveSelection([]string{seatA, rowID, lone, lone}, geometry.Pt(10, 0))

	if got := s.doc.Seats[seatA].Position; got != geometry.Pt(10, 0) {
		t.Errorf("row seat = %v, want (10,0)", got)
	}
	if got := s.doc.Seats[lone].Position; got != geometry.Pt(510, 500) {
		t.Errorf("standalone seat = %v, want (510,500)", got)
	}

	// An owned seat selected without its row moves on its own.
	s.MoveSelection([]string{seatA}, geometry.Pt(0, 7))
	if got := s.doc.Seats[seatA].Position; got != geometry.Pt(10, 7) {
		t.Errorf("seat moved alone = %v, want (10,7)", got)
	}
	if got := s.doc.Seats[s.doc.Rows[rowID].Seats[1]].Position; got != geometry.Pt(40, 0) {
		t.Errorf("sibling seat = %v, want (40,0)", got)
	}
}

func TestRotateAccumulates(t *testing.T) {
	s := newTestScene()
	areaID := s.CreateArea("A", geometry.Pt(0, 0), geometry.Size{Width: 10, Height: 10}, document.AreaRectangle)
	tableID := s.CreateTable("T", geometry.Pt(0, 0), document.TableRound, geometry.Size{Width: 50, Height: 50}, 0)
	structID := s.CreateStructure("S", document.StructureStage, geometry.Pt(0, 0), geometry.Size{Width: 10, Height: 10}, "#000")
	rowID := s.CreateRow("R", 2, geometry.Pt(0, 0), "")

	for i := 0; i < 5; i++ {
		s.Rotate([]string{areaID, tableID, structID, rowID}, 90)
	}
	s.RotateArea(areaID, -30)
	s.RotateTable(tableID, 15)
	s.RotateStructure(structID, 0.5)

	if got := s.doc.Areas[areaID].Rotation; got != 420 {
		t.Errorf("area rotation = %v, want 420", got)
	}
	if got := s.doc.Tables[tableID].Rotation; got != 465 {
		t.Errorf("table rotation = %v, want 465", got)
	}
	if got := s.doc.Structures[structID].Rotation; got != 450.5 {
		t.Errorf("structure rotation = %v, want 450.5", got)
	}
}

func TestSeatWorldPositionFollowsTableRotation(t *testing.T) {
	s := newTestScene()
	tableID := s.CreateTable("T", geometry.Pt(0, 0), document.TableRound, geometry.Size{Width: 50, Height: 50}, 1)
	seatID := s.doc.Tables[tableID].Seats[0]
	s.RotateTable(tableID, 90)

	p, ok := s.SeatWorldPosition(seatID)
	// The single seat starts straight above the center; a 90° turn puts it to the right.
	if !ok || !approxEqual(p.X, 25+50, 1e-9) || !approxEqual(p.Y, 25, 1e-9) {
		t.Errorf("SeatWorldPosition = %v, want (75,25)", p)
	}
}

func TestBringToFrontAndSendToBack(t *testing.T) {
	s := newTestScene()
	a := s.CreateArea("A", geometry.Pt(0, 0), geometry.Size{Width: 10, Height: 10}, document.AreaRectangle)
	b := s.CreateArea("B", geometry.Pt(0, 0), geometry.Size{Width: 10, Height: 10}, document.AreaRectangle)
	tbl := s.CreateTable("T", geometry.Pt(0, 0), document.TableRound, geometry.Size{Width: 10, Height: 10}, 0)
	row := s.CreateRow("R", 1, geometry.Pt(0, 0), "")
	seat := s.doc.Rows[row].Seats[0]

	_, hiBefore, _ := s.zRange()
	s.BringToFront([]string{a, row, seat, "area_missing"})
	_, hiAfter, _ := s.zRange()
	if hiAfter < hiBefore+1 {
		t.Errorf("max z %d → %d, want strictly increased", hiBefore, hiAfter)
	}
	za, _ := s.ZIndex(a)
	zr, _ := s.ZIndex(row)
	if zr != za+1 {
		t.Errorf("z(row) = %d, z(area) = %d; want selection order preserved", zr, za)
	}
	for _, other := range []string{b, tbl} {
		zo, _ := s.ZIndex(other)
		if za < zo || zr < zo {
			t.Errorf("targets (%d,%d) below non-target %s (%d)", za, zr, other, zo)
		}
	}

	s.SendToBack([]string{tbl, b})
	zt, _ := s.ZIndex(tbl)
	zb, _ := s.ZIndex(b)
	lo, _, _ := s.zRange()
	if zb != lo || zt != zb+1 {
		t.Errorf("after SendToBack z(table)=%d z(b)=%d min=%d", zt, zb, lo)
	}
}

func TestUpdateSelectedLabels(t *testing.T) {
	s := newTestScene()
	row := s.CreateRow("R", 0, geometry.Pt(0, 0), "")
	area := s.CreateArea("A", geometry.Pt(0, 0), geometry.Size{Width: 10, Height: 10}, document.AreaCircle)
	seat := s.CreateSeat("S", geometry.Pt(0, 0), "")
	sec := s.CreateSection("Sec", "#000", nil)

	s.UpdateSelectedLabels([]string{area, "row_missing", row, seat, sec}, "Item {n} / {N}")

	want := map[string]string{
		area: "Item 1 / 01",
		row:  "Item 2 / 02",
		seat: "Item 3 / 03",
		sec:  "Item 4 / 04",
	}
	for id, label := range want {
		if got, _ := s.Label(id); got != label {
			t.Errorf("label(%s) = %q, want %q", id, got, label)
		}
	}
	if got := ExpandLabelPattern("{N}-{n}", 123); got != "123-123" {
		t.Errorf("ExpandLabelPattern = %q", got)
	}
}

func TestSectionsAndPricing(t *testing.T) {
	s := newTestScene()
	price := 50.0
	sec := s.CreateSection("Floor", "#ff0000", &price)
	sec2 := s.CreateSection("Box", "#00ff00", nil)
	if s.doc.Sections[sec2].Number != s.doc.Sections[sec].Number+1 {
		t.Errorf("section numbers = %d, %d", s.doc.Sections[sec].Number, s.doc.Sections[sec2].Number)
	}

	row := s.CreateRow("A", 3, geometry.Pt(0, 0), "")
	s.AssignSection([]string{row}, sec)
	seatIDs := s.doc.Rows[row].Seats

	if got, ok := s.SeatPrice(seatIDs[0]); !ok || got != 50 {
		t.Errorf("SeatPrice = %v, %v; want 50", got, ok)
	}
	override := 80.0
	s.SetSeatPrice(seatIDs[1:2], &override)
	if got, _ := s.SeatPrice(seatIDs[1]); got != 80 {
		t.Errorf("override price = %v, want 80", got)
	}
	if c, ok := s.SectionColor(seatIDs[2]); !ok || c != "#ff0000" {
		t.Errorf("SectionColor = %q, %v", c, ok)
	}

	s.AssignSection([]string{row}, "section_missing")
	if s.doc.Rows[row].SectionID != sec {
		t.Error("assigning a missing section changed the row")
	}

	s.DeleteSection(sec)
	if s.doc.Rows[row].SectionID != sec {
		t.Error("section delete cascaded into rows")
	}
	if _, ok := s.SeatPrice(seatIDs[0]); ok {
		t.Error("dangling section still resolves a price")
	}
	if _, ok := s.SectionColor(row); ok {
		t.Error("dangling section still resolves a color")
	}
}

func TestSeatTypeAndStatusExpandOwners(t *testing.T) {
	s := newTestScene()
	row := s.CreateRow("A", 2, geometry.Pt(0, 0), "")
	table := s.CreateTable("T", geometry.Pt(100, 100), document.TableRound, geometry.Size{Width: 40, Height: 40}, 3)

	s.SetSeatType([]string{row}, document.SeatVIP)
	s.SetSeatStatus([]string{table}, document.SeatBlocked)
	s.SetSeatType([]string{row}, "throne")

	for _, id := range s.doc.Rows[row].Seats {
		if s.doc.Seats[id].Type != document.SeatVIP {
			t.Errorf("row seat type = %q", s.doc.Seats[id].Type)
		}
	}
	for _, id := range s.doc.Tables[table].Seats {
		if s.doc.Seats[id].Status != document.SeatBlocked {
			t.Errorf("table seat status = %q", s.doc.Seats[id].Status)
		}
	}
}

func TestLocking(t *testing.T) {
	s := newTestScene()
	row := s.CreateRow("A", 2, geometry.Pt(0, 0), "")
	seat := s.doc.Rows[row].Seats[0]
	lone := s.CreateSeat("X", geometry.Pt(0, 0), "")

	s.SetLocked([]string{row}, true)
	if !s.IsLocked(row) || !s.IsLocked(seat) {
		t.Error("row lock not inherited by its seat")
	}
	if s.IsLocked(lone) {
		t.Error("standalone seat locked")
	}
	s.SetLocked([]string{row}, false)
	s.SetLocked([]string{lone}, true)
	if s.IsLocked(seat) || !s.IsLocked(lone) {
		t.Error("lock state wrong after toggling")
	}
	if s.IsLocked("area_missing") {
		t.Error("missing id reported locked")
	}
}

func TestDeleteRowRemovesExactlyOwnedSeats(t *testing.T) {
	s := newTestScene()
	row := s.CreateRow("A", 4, geometry.Pt(0, 0), "")
	other := s.CreateRow("B", 3, geometry.Pt(0, 40), "")
	s.CreateTable("T", geometry.Pt(300, 0), document.TableRound, geometry.Size{Width: 40, Height: 40}, 2)
	s.CreateSeat("X", geometry.Pt(0, 0), "")

	before := make(map[string]bool)
	for id := range s.doc.Seats {
		before[id] = true
	}
	owned := slices.Clone(s.doc.Rows[row].Seats)

	s.DeleteRow(row)

	for _, id := range owned {
		delete(before, id)
	}
	if len(s.doc.Seats) != len(before) {
		t.Fatalf("seats = %d, want %d", len(s.doc.Seats), len(before))
	}
	for id := range before {
		if _, ok := s.doc.Seats[id]; !ok {
			t.Errorf("seat %s was removed", id)
		}
	}
	if s.Exists(row) || s.Exists(owned[0]) {
		t.Error("deleted ids still indexed")
	}
	if _, ok := s.doc.Rows[other]; !ok {
		t.Error("other row removed")
	}
}

func TestDeleteSelected(t *testing.T) {
	s := newTestScene()
	row := s.CreateRow("A", 2, geometry.Pt(0, 0), "")
	rowSeat := s.doc.Rows[row].Seats[0]
	keepRow := s.CreateRow("B", 2, geometry.Pt(0, 40), "")
	keepSeat := s.doc.Rows[keepRow].Seats[1]
	table := s.CreateTable("T", geometry.Pt(300, 0), document.TableRectangular, geometry.Size{Width: 60, Height: 40}, 4)
	area := s.CreateArea("A", geometry.Pt(0, 0), geometry.Size{Width: 10, Height: 10}, document.AreaOval)
	structure := s.CreateStructure("S", document.StructureBar, geometry.Pt(0, 0), geometry.Size{Width: 10, Height: 10}, "#000")
	lone := s.CreateSeat("X", geometry.Pt(0, 0), "")

	var changes []Change
	unsubscribe := s.Subscribe(func(c Change) { changes = append(changes, c) })
	defer unsubscribe()

	deleted := s.DeleteSelected([]string{rowSeat, keepSeat, row, table, area, structure, lone, "row_missing"})

	for _, id := range []string{row, rowSeat, table, area, structure, lone} {
		if s.Exists(id) {
			t.Errorf("%s still exists", id)
		}
	}
	if !s.Exists(keepSeat) || !s.Exists(keepRow) {
		t.Error("owned seat was deleted independently of its row")
	}
	if len(s.doc.Seats) != 2 {
		t.Errorf("seats left = %d, want 2", len(s.doc.Seats))
	}
	if len(changes) != 1 || changes[0].Op != OpDelete || !slices.Equal(changes[0].IDs, deleted) {
		t.Errorf("changes = %+v, want one delete with %v", changes, deleted)
	}
	if got := s.DeleteSelected([]string{"row_missing"}); got != nil {
		t.Errorf("deleting nothing = %v", got)
	}
	if len(changes) != 1 {
		t.Error("no-op delete notified listeners")
	}
}

func TestDeleteSeatOnlyStandalone(t *testing.T) {
	s := newTestScene()
	row := s.CreateRow("A", 2, geometry.Pt(0, 0), "")
	owned := s.doc.Rows[row].Seats[0]
	s.DeleteSeat(owned)
	if !s.Exists(owned) {
		t.Error("owned seat deleted directly")
	}

	// A dangling back-reference is treated as no owner.
	orphan := s.CreateSeat("O", geometry.Pt(0, 0), "")
	seat := s.doc.Seats[orphan]
	seat.RowID = "row_gone"
	s.doc.Seats[orphan] = seat
	s.DeleteSeat(orphan)
	if s.Exists(orphan) {
		t.Error("seat with dangling row reference not deleted")
	}
}

func TestMissingIDsAreNoops(t *testing.T) {
	s := NewSample()
	before := s.doc.Clone()
	notified := false
	s.Subscribe(func(Change) { notified = true })

	s.Move("row_missing", geometry.Pt(1, 1))
	s.MoveSelection([]string{"table_missing"}, geometry.Pt(1, 1))
	s.SetPosition("area_missing", geometry.Pt(1, 1))
	s.Resize("structure_missing", geometry.Size{Width: 5, Height: 5})
	s.RotateArea("area_missing", 90)
	s.RotateTable("table_missing", 90)
	s.RotateStructure("structure_missing", 90)
	s.Rotate([]string{"x"}, 90)
	s.SetRowCurve("row_missing", 1)
	s.SetRowEndpoints("row_missing", geometry.Pt(0, 0), geometry.Pt(1, 1))
	s.BringToFront([]string{"row_missing"})
	s.SendToBack(nil)
	s.SetLabel("seat_missing", "x")
	s.UpdateSelectedLabels([]string{"seat_missing"}, "{n}")
	s.SetSeatType([]string{"seat_missing"}, document.SeatVIP)
	s.SetLocked([]string{"seat_missing"}, true)
	s.UpdateSection("section_missing", "x", "y", nil)
	s.DeleteRow("row_missing")
	s.DeleteTable("table_missing")
	s.DeleteArea("area_missing")
	s.DeleteStructure("structure_missing")
	s.DeleteSection("section_missing")
	s.DeleteSeat("seat_missing")

	assertDocEqual(t, before, s.doc)
	if notified {
		t.Error("listeners notified for no-op operations")
	}
}

func TestSeatBackReferencesStaySymmetric(t *testing.T) {
	s := NewSample()
	s.DeleteSelected(s.TopLevelIDs()[:3])
	s.MoveSelection(s.TopLevelIDs(), geometry.Pt(3, 3))

	for id, seat := range s.doc.Seats {
		if seat.RowID != "" && !slices.Contains(s.doc.Rows[seat.RowID].Seats, id) {
			t.Errorf("seat %s claims row %s which does not list it", id, seat.RowID)
		}
		if seat.TableID != "" && !slices.Contains(s.doc.Tables[seat.TableID].Seats, id) {
			t.Errorf("seat %s claims table %s which does not list it", id, seat.TableID)
		}
	}
	for id, r := range s.doc.Rows {
		for _, seatID := range r.Seats {
			if s.doc.Seats[seatID].RowID != id {
				t.Errorf("row %s lists seat %s owned by %q", id, seatID, s.doc.Seats[seatID].RowID)
			}
		}
	}
}

func TestSubscribeAndUnsubscribe(t *testing.T) {
	s := newTestScene()
	var got []Change
	unsubscribe := s.Subscribe(func(c Change) { got = append(got, c) })

	id := s.CreateSeat("1", geometry.Pt(0, 0), "")
	s.SetName("Hall")
	unsubscribe()
	s.SetName("Other")

	want := []Change{{Op: OpCreate, IDs: []string{id}}, {Op: OpRename}}
	if len(got) != len(want) {
		t.Fatalf("changes = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i].Op != want[i].Op || !slices.Equal(got[i].IDs, want[i].IDs) {
			t.Errorf("change %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestCreateLineMakesPointsRelative(t *testing.T) {
	s := newTestScene()
	if id := s.CreateLine("L", []geometry.Point{geometry.Pt(1, 1)}, 2, document.LineStraight); id != "" {
		t.Errorf("single-point line created %q", id)
	}
	id := s.CreateLine("L", []geometry.Point{geometry.Pt(50, 80), geometry.Pt(10, 20), geometry.Pt(30, 90)}, 0, "zigzag")
	a := s.doc.Areas[id]
	if a.Shape != document.AreaLine || a.Line == nil {
		t.Fatalf("area = %+v", a)
	}
	if a.Position != geometry.Pt(10, 20) || a.Size != (geometry.Size{Width: 40, Height: 70}) {
		t.Errorf("bounds = %v %v", a.Position, a.Size)
	}
	if a.Line.Points[0] != geometry.Pt(40, 60) || a.Line.Kind != document.LineStraight || a.Line.StrokeWidth != 2 {
		t.Errorf("line = %+v", a.Line)
	}
}

func TestTopLevelIDs(t *testing.T) {
	s := newTestScene()
	row := s.CreateRow("A", 2, geometry.Pt(0, 0), "")
	table := s.CreateTable("T", geometry.Pt(0, 0), document.TableRound, geometry.Size{Width: 10, Height: 10}, 2)
	lone := s.CreateSeat("X", geometry.Pt(0, 0), "")
	s.CreateSection("Sec", "#000", nil)

	got := s.TopLevelIDs()
	want := []string{row, table, lone}
	if !slices.Equal(got, want) {
		t.Errorf("TopLevelIDs = %v, want %v", got, want)
	}
}
