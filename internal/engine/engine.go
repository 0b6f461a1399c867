package engine

import (
	"encoding/json"
	"slices"

	"github.com/venuekit/venuekit/backend-go/internal/document"
	"github.com/venuekit/venuekit/backend-go/internal/geometry"
	"github.com/venuekit/venuekit/backend-go/internal/scene"
)

// Engine is the editor core that owns the Scene, viewport, selection and
// interaction state. It processes input from the frontend and returns
// draw commands and query results.
type Engine struct {
	scene       *scene.Scene
	unsubscribe func()

	view          *Viewport
	width, height float64

	// Selection state (backend owns this)
	selection []string

	tool       Tool
	draftCurve float64
	g          gesture
	moves      *Coalescer[PointerEvent]

	// Retained scene graph, rebuilt when the Scene changes
	graph      *SceneGraph
	graphDirty bool

	// changed is set whenever the next Tick must re-render.
	changed bool
}

// NewEngine creates an engine holding an empty Scene.
func NewEngine() *Engine {
	e := &Engine{view: NewViewport()}
	e.moves = NewCoalescer(e.applyMove)
	e.attach(scene.New(""))
	return e
}

// attach makes s the engine's Scene and subscribes to its changes.
func (e *Engine) attach(s *scene.Scene) {
	if e.unsubscribe != nil {
		e.unsubscribe()
	}
	e.scene = s
	e.unsubscribe = s.Subscribe(e.onChange)
	e.resetEditorState()
}

func (e *Engine) resetEditorState() {
	e.selection = nil
	e.g = gesture{}
	e.moves.Reset()
	e.graphDirty = true
	e.changed = true
}

func (e *Engine) onChange(c scene.Change) {
	e.graphDirty = true
	e.changed = true
	switch c.Op {
	case scene.OpDelete:
		e.selection = slices.DeleteFunc(e.selection, func(id string) bool { return !e.scene.Exists(id) })
		if e.g.rowID != "" && !e.scene.Exists(e.g.rowID) {
			e.g = gesture{}
		}
	case scene.OpImport, scene.OpReset:
		e.resetEditorState()
	}
}

// Scene returns the engine's Scene.
func (e *Engine) Scene() *scene.Scene { return e.scene }

// Viewport returns the engine's viewport.
func (e *Engine) Viewport() *Viewport { return e.view }

// --- Commands (frontend → backend) ---

// LoadDocument replaces the Scene with a serialized venue document. On
// error the current Scene is kept.
func (e *Engine) LoadDocument(jsonData string) error {
	return e.scene.Import([]byte(jsonData))
}

// LoadSampleDocument loads the built-in sample venue.
func (e *Engine) LoadSampleDocument() {
	e.attach(scene.NewSample())
}

// ExportDocument serializes the Scene.
func (e *Engine) ExportDocument() (string, error) {
	data, err := e.scene.Export()
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// SetCanvasSize records the canvas size used for culling and focusing.
func (e *Engine) SetCanvasSize(width, height float64) {
	e.width, e.height = width, height
	e.changed = true
}

// SetTool switches the active tool. Switching mid-gesture abandons it.
func (e *Engine) SetTool(t Tool) {
	if t == e.tool {
		return
	}
	e.PointerLeave()
	e.tool = t
}

func (e *Engine) Tool() Tool { return e.tool }

// SetDraftCurvature sets the curvature new rows are drawn with.
func (e *Engine) SetDraftCurvature(c float64) {
	e.draftCurve = geometry.ClampCurvature(c)
	e.changed = true
}

// SetSelection sets the selected ids, dropping any that do not exist.
func (e *Engine) SetSelection(ids []string) {
	var sel []string
	for _, id := range ids {
		if e.scene.Exists(id) && !slices.Contains(sel, id) {
			sel = append(sel, id)
		}
	}
	e.selection = sel
	e.changed = true
}

// Selection returns a copy of the selected ids.
func (e *Engine) Selection() []string { return slices.Clone(e.selection) }

// SelectAll selects every unlocked top-level entity.
func (e *Engine) SelectAll() {
	e.selection = e.unlocked(PaintOrder(e.scene))
	e.changed = true
}

func (e *Engine) ClearSelection() {
	e.selection = nil
	e.changed = true
}

// RotateSelection rotates the selected areas, tables and structures.
func (e *Engine) RotateSelection(degrees float64) {
	e.scene.Rotate(e.unlocked(e.selection), degrees)
}

func (e *Engine) BringSelectionToFront() {
	e.scene.BringToFront(e.unlocked(e.selection))
}

func (e *Engine) SendSelectionToBack() {
	e.scene.SendToBack(e.unlocked(e.selection))
}

// DeleteSelection deletes the unlocked selected entities and returns the
// removed ids.
func (e *Engine) DeleteSelection() []string {
	return e.scene.DeleteSelected(e.unlocked(e.selection))
}

// LockSelection locks or unlocks the selection. The selection is kept so
// it can be unlocked again.
func (e *Engine) LockSelection(locked bool) {
	e.scene.SetLocked(e.selection, locked)
}

// UnlockAll unlocks every entity.
func (e *Engine) UnlockAll() {
	var locked []string
	for _, id := range PaintOrder(e.scene) {
		if e.scene.IsLocked(id) {
			locked = append(locked, id)
		}
	}
	e.scene.SetLocked(locked, false)
}

// RelabelSelection relabels the selection with a {n}/{N} pattern.
func (e *Engine) RelabelSelection(pattern string) {
	e.scene.UpdateSelectedLabels(e.selection, pattern)
}

// AssignSelectionSection puts the selected rows and seats in a section.
func (e *Engine) AssignSelectionSection(sectionID string) {
	e.scene.AssignSection(e.unlocked(e.selection), sectionID)
}

func (e *Engine) SetSelectionSeatType(t document.SeatType) {
	e.scene.SetSeatType(e.unlocked(e.selection), t)
}

func (e *Engine) SetSelectionSeatStatus(st document.SeatStatus) {
	e.scene.SetSeatStatus(e.unlocked(e.selection), st)
}

// FocusSelection animates the view onto the selection, or onto the whole
// venue when nothing is selected.
func (e *Engine) FocusSelection(duration float32) {
	ids := e.selection
	if len(ids) == 0 {
		ids = e.scene.TopLevelIDs()
	}
	if b, ok := SelectionBounds(e.scene, ids); ok {
		e.view.FocusRect(b, e.width, e.height, duration)
		e.changed = true
	}
}

// Tick flushes the pending pointer move and advances the viewport
// animation by dt seconds. It returns the draw commands when anything
// changed since the last Tick.
func (e *Engine) Tick(dt float64) (string, bool) {
	flushed := e.moves.Flush()
	animated := e.view.Update(dt)
	if !e.changed && !flushed && !animated {
		return "", false
	}
	return e.Render(), true
}

// --- Queries (frontend ← backend) ---

func (e *Engine) sceneGraph() *SceneGraph {
	if e.graph == nil || e.graphDirty {
		e.graph = BuildSceneGraph(e.scene)
		e.graphDirty = false
	}
	return e.graph
}

// DrawCommands compiles the scene graph and overlays in painter order.
func (e *Engine) DrawCommands() []DrawCommand {
	opts := CompileOptions{Selected: make(map[string]bool, len(e.selection))}
	for _, id := range e.selection {
		opts.Selected[id] = true
	}
	if e.width > 0 && e.height > 0 {
		visible := e.view.VisibleRect(e.width, e.height)
		opts.Visible = &visible
	}

	cmds := []DrawCommand{viewCommand(e.view)}
	cmds = append(cmds, CompileDrawCommands(e.sceneGraph(), opts)...)

	zoom := e.view.Zoom
	if b, ok := SelectionBounds(e.scene, e.selection); ok {
		cmds = append(cmds, selectionOverlay(b, zoom))
	}
	switch e.g.mode {
	case ModeBoxSelecting:
		cmds = append(cmds, boxOverlay(geometry.RectFromCorners(e.g.anchor, e.g.current), zoom))
	case ModeDrawingDraftRow:
		if l := geometry.Distance(e.g.anchor, e.g.current); l > 0 {
			cmds = append(cmds, draftOverlay(e.g.anchor, e.g.current, e.draftCurve, DraftSeatCount(l))...)
		}
	}
	return append(cmds, handleOverlay(Handles(e.scene, e.selection), zoom)...)
}

// Render returns the draw commands as JSON.
func (e *Engine) Render() string {
	e.changed = false
	result, _ := DrawCommandsToJSON(e.DrawCommands())
	return result
}

// HitTest returns the topmost unlocked entity under a screen point, or "".
func (e *Engine) HitTest(sx, sy float64) string {
	id, _ := TopmostUnlocked(e.scene, StackAt(e.scene, e.view.ScreenToWorld(sx, sy)))
	return id
}

// GetSelectionBounds returns the padded bounds of the selection as JSON,
// null when nothing is selected.
func (e *Engine) GetSelectionBounds() string {
	return RectToJSON(SelectionBounds(e.scene, e.selection))
}

// GetSelection returns the current selection as JSON.
func (e *Engine) GetSelection() string {
	if e.selection == nil {
		return "[]"
	}
	data, _ := json.Marshal(e.selection)
	return string(data)
}

// GetViewport returns pan, zoom and origin as JSON.
func (e *Engine) GetViewport() string {
	data, _ := json.Marshal(e.view)
	return string(data)
}

// Mode returns the interaction mode of the current gesture.
func (e *Engine) Mode() Mode { return e.g.mode }

// GetMode returns the interaction mode name.
func (e *Engine) GetMode() string { return e.g.mode.String() }
