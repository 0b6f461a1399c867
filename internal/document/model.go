package document

import (
	"github.com/venuekit/venuekit/backend-go/internal/geometry"
)

// DefaultName is used for new documents and for imports without a name.
const DefaultName = "Untitled Venue"

// Document is the persisted venue layout: one map per entity kind, keyed by id.
type Document struct {
	Name       string               `json:"name"`
	Rows       map[string]Row       `json:"rows"`
	Seats      map[string]Seat      `json:"seats"`
	Areas      map[string]Area      `json:"areas"`
	Tables     map[string]Table     `json:"tables"`
	Structures map[string]Structure `json:"structures"`
	Sections   map[string]Section   `json:"sections"`
}

type SeatType string

const (
	SeatStandard   SeatType = "standard"
	SeatWheelchair SeatType = "wheelchair"
	SeatCompanion  SeatType = "companion"
	SeatVIP        SeatType = "vip"
)

type SeatStatus string

const (
	SeatAvailable SeatStatus = "available"
	SeatReserved  SeatStatus = "reserved"
	SeatSold      SeatStatus = "sold"
	SeatBlocked   SeatStatus = "blocked"
)

// Seat belongs to at most one of a row or a table.
type Seat struct {
	ID        string         `json:"id"`
	Label     string         `json:"label"`
	Position  geometry.Point `json:"position"`
	Type      SeatType       `json:"type"`
	Status    SeatStatus     `json:"status"`
	RowID     string         `json:"rowId,omitempty"`
	TableID   string         `json:"tableId,omitempty"`
	SectionID string         `json:"sectionId,omitempty"`
	Price     *float64       `json:"price,omitempty"`
	Locked    bool           `json:"locked,omitempty"`
}

// Owned reports whether the seat is part of a row or a table.
func (s Seat) Owned() bool {
	return s.RowID != "" || s.TableID != ""
}

// Row is an ordered run of seats. Start, End and Curve are stored for rows
// drawn as curves; straight rows derive their chord from the first and last
// seat.
type Row struct {
	ID        string          `json:"id"`
	Label     string          `json:"label"`
	Position  geometry.Point  `json:"position"`
	Seats     []string        `json:"seats"`
	Start     *geometry.Point `json:"start,omitempty"`
	End       *geometry.Point `json:"end,omitempty"`
	Curve     *float64        `json:"curve,omitempty"`
	SectionID string          `json:"sectionId,omitempty"`
	ZIndex    *int            `json:"zIndex,omitempty"`
	Locked    bool            `json:"locked,omitempty"`
}

// Z returns the row's z-index, 0 when unset.
func (r Row) Z() int {
	if r.ZIndex == nil {
		return 0
	}
	return *r.ZIndex
}

type AreaShape string

const (
	AreaRectangle AreaShape = "rectangle"
	AreaSquare    AreaShape = "square"
	AreaCircle    AreaShape = "circle"
	AreaOval      AreaShape = "oval"
	AreaLine      AreaShape = "line"
)

type LineKind string

const (
	LineStraight LineKind = "straight"
	LineFreehand LineKind = "freehand"
)

// LineConfig holds the polyline of a line-shaped area. Points are relative
// to the owning area's position.
type LineConfig struct {
	Points      []geometry.Point `json:"points"`
	StrokeWidth float64          `json:"strokeWidth"`
	Kind        LineKind         `json:"kind"`
}

type Area struct {
	ID       string         `json:"id"`
	Label    string         `json:"label"`
	Position geometry.Point `json:"position"`
	Size     geometry.Size  `json:"size"`
	Shape    AreaShape      `json:"shape"`
	Color    string         `json:"color,omitempty"`
	Opacity  float64        `json:"opacity"`
	Rotation float64        `json:"rotation"`
	ZIndex   int            `json:"zIndex"`
	Line     *LineConfig    `json:"line,omitempty"`
	Locked   bool           `json:"locked,omitempty"`
}

type TableShape string

const (
	TableRound       TableShape = "round"
	TableRectangular TableShape = "rectangular"
)

type Table struct {
	ID       string         `json:"id"`
	Label    string         `json:"label"`
	Position geometry.Point `json:"position"`
	Size     geometry.Size  `json:"size"`
	Shape    TableShape     `json:"shape"`
	Rotation float64        `json:"rotation"`
	ZIndex   int            `json:"zIndex"`
	Seats    []string       `json:"seats"`
	Locked   bool           `json:"locked,omitempty"`
}

type StructureType string

const (
	StructureStage    StructureType = "stage"
	StructureBar      StructureType = "bar"
	StructureEntrance StructureType = "entrance"
	StructureExit     StructureType = "exit"
	StructureCustom   StructureType = "custom"
)

type Structure struct {
	ID       string         `json:"id"`
	Label    string         `json:"label"`
	Type     StructureType  `json:"type"`
	Position geometry.Point `json:"position"`
	Size     geometry.Size  `json:"size"`
	Color    string         `json:"color"`
	Rotation float64        `json:"rotation"`
	ZIndex   int            `json:"zIndex"`
	Locked   bool           `json:"locked,omitempty"`
}

type Section struct {
	ID     string   `json:"id"`
	Label  string   `json:"label"`
	Color  string   `json:"color"`
	Number int      `json:"number"`
	Price  *float64 `json:"price,omitempty"`
}

// Bounds returns the unrotated box of a positioned, sized entity.
func Bounds(pos geometry.Point, size geometry.Size) geometry.Rect {
	return geometry.Rect{X: pos.X, Y: pos.Y, Width: size.Width, Height: size.Height}
}

func (a Area) Bounds() geometry.Rect      { return Bounds(a.Position, a.Size) }
func (t Table) Bounds() geometry.Rect     { return Bounds(t.Position, t.Size) }
func (s Structure) Bounds() geometry.Rect { return Bounds(s.Position, s.Size) }

// NewEmptyDocument creates a document with no entities.
func NewEmptyDocument(name string) *Document {
	if name == "" {
		name = DefaultName
	}
	return &Document{
		Name:       name,
		Rows:       map[string]Row{},
		Seats:      map[string]Seat{},
		Areas:      map[string]Area{},
		Tables:     map[string]Table{},
		Structures: map[string]Structure{},
		Sections:   map[string]Section{},
	}
}

// EnsureMaps replaces nil entity maps with empty ones.
func (d *Document) EnsureMaps() {
	if d.Rows == nil {
		d.Rows = map[string]Row{}
	}
	if d.Seats == nil {
		d.Seats = map[string]Seat{}
	}
	if d.Areas == nil {
		d.Areas = map[string]Area{}
	}
	if d.Tables == nil {
		d.Tables = map[string]Table{}
	}
	if d.Structures == nil {
		d.Structures = map[string]Structure{}
	}
	if d.Sections == nil {
		d.Sections = map[string]Section{}
	}
}
