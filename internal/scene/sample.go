package scene

import (
	"github.com/venuekit/venuekit/backend-go/internal/document"
	"github.com/venuekit/venuekit/backend-go/internal/geometry"
)

// NewSample builds the demo venue shown in the playground: a stage, two
// priced sections, straight and curved rows, a round and a rectangular
// table, and a bar.
func NewSample() *Scene {
	s := New("Sample Venue")

	orchestra := 65.0
	balcony := 40.0
	orchestraID := s.CreateSection("Orchestra", "#e76f51", &orchestra)
	balconyID := s.CreateSection("Balcony", "#2a9d8f", &balcony)

	s.CreateStructure("Stage", document.StructureStage, geometry.Pt(200, 40), geometry.Size{Width: 400, Height: 90}, "#264653")

	rows := s.CreateMultipleRows([]RowConfig{
		{Label: "A", SeatCount: 12, SectionID: orchestraID},
		{Label: "B", SeatCount: 12, SectionID: orchestraID},
		{Label: "C", SeatCount: 12, SectionID: orchestraID},
	}, geometry.Pt(235, 180), 40)
	s.SetSeatType(s.doc.Rows[rows[0]].Seats[:2], document.SeatWheelchair)

	curved := s.CreateCurvedRow("D", 16, geometry.Pt(180, 360), geometry.Pt(620, 360), 0.4)
	s.AssignSection([]string{curved}, balconyID)

	s.CreateTable("T1", geometry.Pt(60, 460), document.TableRound, geometry.Size{Width: 80, Height: 80}, 6)
	s.CreateTable("T2", geometry.Pt(620, 460), document.TableRectangular, geometry.Size{Width: 120, Height: 60}, 8)

	s.CreateArea("Lobby", geometry.Pt(0, 600), geometry.Size{Width: 800, Height: 120}, document.AreaRectangle)
	s.CreateStructure("Bar", document.StructureBar, geometry.Pt(340, 620), geometry.Size{Width: 120, Height: 40}, "#8d6e63")
	s.CreateStructure("Entrance", document.StructureEntrance, geometry.Pt(370, 690), geometry.Size{Width: 60, Height: 20}, "#6a994e")
	return s
}
