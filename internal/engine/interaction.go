package engine

import (
	"fmt"
	"math"
	"slices"

	"github.com/venuekit/venuekit/backend-go/internal/geometry"
	"github.com/venuekit/venuekit/backend-go/internal/scene"
)

// MinDraftChord is the shortest chord, in world units, a drawn row needs
// to be committed.
const MinDraftChord = 20.0

// Mode is the interaction state of the current pointer gesture.
type Mode int

const (
	ModeIdle Mode = iota
	ModePanning
	ModeBoxSelecting
	ModeDraggingSelection
	ModeDrawingDraftRow
	ModeDraggingCurveHandle
	ModeDraggingRowEndpoint
)

var modeNames = [...]string{
	"idle", "panning", "boxSelecting", "draggingSelection",
	"drawingDraftRow", "draggingCurveHandle", "draggingRowEndpoint",
}

func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return "unknown"
}

// Endpoint names the end of a row chord being dragged.
type Endpoint int

const (
	EndpointStart Endpoint = iota
	EndpointEnd
)

// Tool is the active editor tool.
type Tool int

const (
	ToolSelect Tool = iota
	ToolPan
	ToolDrawRow
)

var toolNames = [...]string{"select", "pan", "drawRow"}

func (t Tool) String() string {
	if int(t) < len(toolNames) {
		return toolNames[t]
	}
	return "unknown"
}

// ParseTool resolves a tool by name.
func ParseTool(name string) (Tool, bool) {
	for i, n := range toolNames {
		if n == name {
			return Tool(i), true
		}
	}
	return ToolSelect, false
}

// Button follows the DOM MouseEvent.button numbering.
type Button int

const (
	ButtonPrimary Button = iota
	ButtonMiddle
	ButtonSecondary
)

// PointerEvent is a pointer sample in screen coordinates.
type PointerEvent struct {
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Button      Button  `json:"button"`
	Shift       bool    `json:"shift"`
	PanModifier bool    `json:"panModifier"`
}

func (ev PointerEvent) screen() geometry.Point {
	return geometry.Pt(ev.X, ev.Y)
}

// gesture is the state of the pointer gesture in progress.
type gesture struct {
	mode     Mode
	endpoint Endpoint
	rowID    string

	lastScreen geometry.Point
	anchor     geometry.Point // world point of pointer-down
	current    geometry.Point // latest world point
	prior      []string       // selection kept by a shift box select
}

// DraftSeatCount is the number of seats a drawn row of chord length l gets.
func DraftSeatCount(l float64) int {
	return max(2, int(math.Round(l/scene.SeatSpacing))+1)
}

// PointerDown starts a gesture. It is ignored while another gesture is in
// progress.
func (e *Engine) PointerDown(ev PointerEvent) {
	if e.g.mode != ModeIdle {
		return
	}
	e.moves.Reset()
	world := e.view.ScreenToWorld(ev.X, ev.Y)
	e.g = gesture{lastScreen: ev.screen(), anchor: world, current: world}
	e.changed = true

	switch {
	case e.tool == ToolPan || ev.Button == ButtonMiddle || ev.PanModifier:
		e.g.mode = ModePanning
		return
	case e.tool == ToolDrawRow:
		e.g.mode = ModeDrawingDraftRow
		return
	}

	if h, ok := HandleAt(Handles(e.scene, e.selection), world, e.view.Zoom); ok {
		switch h.Kind {
		case HandleStart, HandleEnd:
			e.g.mode = ModeDraggingRowEndpoint
			e.g.rowID = h.RowID
			e.g.endpoint = EndpointStart
			if h.Kind == HandleEnd {
				e.g.endpoint = EndpointEnd
			}
		case HandleCurve:
			e.g.mode = ModeDraggingCurveHandle
			e.g.rowID = h.RowID
		default:
			e.g.mode = ModeDraggingSelection
		}
		return
	}

	if id, ok := TopmostUnlocked(e.scene, StackAt(e.scene, world)); ok {
		selected := slices.Contains(e.selection, id)
		switch {
		case ev.Shift && selected:
			e.selection = slices.DeleteFunc(slices.Clone(e.selection), func(s string) bool { return s == id })
			e.g.mode = ModeIdle
			return
		case ev.Shift:
			e.selection = append(slices.Clone(e.selection), id)
		case !selected:
			e.selection = []string{id}
		}
		e.g.mode = ModeDraggingSelection
		return
	}

	e.g.mode = ModeBoxSelecting
	if ev.Shift {
		e.g.prior = slices.Clone(e.selection)
	} else {
		e.selection = nil
	}
}

// PointerMove queues a pointer sample; only the latest one per Tick is
// applied.
func (e *Engine) PointerMove(ev PointerEvent) {
	if e.g.mode == ModeIdle {
		return
	}
	e.moves.Push(ev)
}

// applyMove is the coalesced pointer-move handler.
func (e *Engine) applyMove(ev PointerEvent) {
	if e.g.mode == ModeIdle {
		return
	}
	screen := ev.screen()
	world := e.view.ScreenToWorld(ev.X, ev.Y)

	switch e.g.mode {
	case ModePanning:
		d := screen.Sub(e.g.lastScreen)
		e.view.PanBy(d.X, d.Y)
	case ModeDraggingSelection:
		if delta := world.Sub(e.g.current); delta != (geometry.Point{}) {
			e.scene.MoveSelection(e.unlocked(e.selection), delta)
		}
	case ModeDraggingCurveHandle:
		if start, end, _, ok := e.scene.RowChord(e.g.rowID); ok {
			e.scene.SetRowCurve(e.g.rowID, geometry.CurvatureFromPoint(start, end, world))
		}
	case ModeDraggingRowEndpoint:
		if start, end, _, ok := e.scene.RowChord(e.g.rowID); ok {
			if e.g.endpoint == EndpointStart {
				start = world
			} else {
				end = world
			}
			e.scene.SetRowEndpoints(e.g.rowID, start, end)
		}
	}

	e.g.lastScreen = screen
	if e.g.mode == ModePanning {
		world = e.view.ScreenToWorld(ev.X, ev.Y)
	}
	e.g.current = world
	e.changed = true
}

// PointerUp applies the final sample, commits the gesture and returns to
// Idle.
func (e *Engine) PointerUp(ev PointerEvent) {
	if e.g.mode == ModeIdle {
		return
	}
	e.moves.Push(ev)
	e.moves.Flush()

	switch e.g.mode {
	case ModeDrawingDraftRow:
		e.commitDraftRow()
	case ModeBoxSelecting:
		e.selection = BoxSelect(e.scene, e.g.anchor, e.g.current, e.g.prior)
	}
	e.g = gesture{}
	e.changed = true
}

// PointerLeave abandons the gesture. Whatever was already applied stays.
func (e *Engine) PointerLeave() {
	e.moves.Reset()
	if e.g.mode != ModeIdle {
		e.g = gesture{}
		e.changed = true
	}
}

// Wheel zooms by notches around the screen point (sx, sy).
func (e *Engine) Wheel(notches, sx, sy float64) {
	e.view.ZoomAt(notches, sx, sy)
	e.changed = true
}

func (e *Engine) commitDraftRow() {
	start, end := e.g.anchor, e.g.current
	l := geometry.Distance(start, end)
	if l < MinDraftChord {
		return
	}
	label := fmt.Sprintf("Row %d", len(e.scene.Document().Rows)+1)
	id := e.scene.CreateCurvedRow(label, DraftSeatCount(l), start, end, e.draftCurve)
	e.selection = []string{id}
}

func (e *Engine) unlocked(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if e.scene.Exists(id) && !e.scene.IsLocked(id) {
			out = append(out, id)
		}
	}
	return out
}
