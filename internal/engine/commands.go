package engine

import (
	"encoding/json"

	"github.com/venuekit/venuekit/backend-go/internal/geometry"
)

const (
	selectionStroke = "#3b82f6"
	boxFill         = "rgba(59,130,246,0.1)"
	draftStroke     = "#10b981"
	handleFill      = "#ffffff"
)

// DrawCommand represents a single drawing operation for the frontend to execute.
// The frontend receives a list of these and executes them on a Canvas2D context.
type DrawCommand struct {
	Op          string        `json:"op"`                    // "view", "path", "text" or "handle"
	ObjectID    string        `json:"objectId,omitempty"`    // For hit correlation
	Kind        string        `json:"kind,omitempty"`        // Entity kind or overlay name
	Transform   []float64     `json:"transform,omitempty"`   // [a, b, c, d, e, f] affine matrix
	Path        []PathCommand `json:"path,omitempty"`        // Path data for "path" and "handle" ops
	Fill        string        `json:"fill,omitempty"`        // Fill color
	Stroke      string        `json:"stroke,omitempty"`      // Stroke color
	StrokeWidth float64       `json:"strokeWidth,omitempty"` // Stroke width
	Opacity     float64       `json:"opacity,omitempty"`     // Global alpha
	Text        string        `json:"text,omitempty"`        // Label for "text" ops
	Dashed      bool          `json:"dashed,omitempty"`
	Selected    bool          `json:"selected,omitempty"`
	Locked      bool          `json:"locked,omitempty"`
}

// CompileOptions controls CompileDrawCommands.
type CompileOptions struct {
	// Visible, when non-nil, skips nodes whose bounds fall outside it.
	Visible  *geometry.Rect
	Selected map[string]bool
}

// CompileDrawCommands generates a draw command buffer from a scene graph.
// Commands are in painter's order (back to front).
func CompileDrawCommands(sg *SceneGraph, opts CompileOptions) []DrawCommand {
	if sg == nil {
		return nil
	}
	var commands []DrawCommand
	for _, node := range sg.Nodes {
		compileNode(node, opts, &commands)
	}
	return commands
}

// compileNode generates draw commands for a node, then its children, then
// its label.
func compileNode(node *SceneNode, opts CompileOptions, commands *[]DrawCommand) {
	if node == nil {
		return
	}
	if opts.Visible != nil && !node.Bounds.Intersects(*opts.Visible) {
		return
	}

	if len(node.Path) > 0 {
		*commands = append(*commands, DrawCommand{
			Op:          "path",
			ObjectID:    node.ID,
			Kind:        node.Kind.String(),
			Transform:   node.Transform.ToSlice(),
			Path:        node.Path,
			Opacity:     node.Opacity,
			Fill:        node.Fill,
			Stroke:      node.Stroke,
			StrokeWidth: node.StrokeWidth,
			Selected:    opts.Selected[node.ID],
			Locked:      node.Locked,
		})
	}

	for _, child := range node.Children {
		compileNode(child, opts, commands)
	}

	if node.Label != "" {
		*commands = append(*commands, DrawCommand{
			Op:        "text",
			ObjectID:  node.ID,
			Kind:      node.Kind.String(),
			Transform: geometry.Translate(node.LabelAt.X, node.LabelAt.Y).ToSlice(),
			Text:      node.Label,
		})
	}
}

// viewCommand sets the world-to-screen transform for everything after it.
func viewCommand(v *Viewport) DrawCommand {
	return DrawCommand{Op: "view", Transform: v.Matrix().ToSlice()}
}

func rectCommand(kind string, r geometry.Rect) DrawCommand {
	c := r.Center()
	return DrawCommand{
		Op:        "path",
		Kind:      kind,
		Transform: geometry.Translate(c.X, c.Y).ToSlice(),
		Path:      generateRectPath(r.Width, r.Height),
	}
}

// selectionOverlay outlines the selection bounds.
func selectionOverlay(r geometry.Rect, zoom float64) DrawCommand {
	cmd := rectCommand("selection", r)
	cmd.Stroke = selectionStroke
	cmd.StrokeWidth = 1 / zoom
	cmd.Dashed = true
	return cmd
}

// boxOverlay draws the rubber band of an in-progress box selection.
func boxOverlay(r geometry.Rect, zoom float64) DrawCommand {
	cmd := rectCommand("box", r)
	cmd.Fill = boxFill
	cmd.Stroke = selectionStroke
	cmd.StrokeWidth = 1 / zoom
	return cmd
}

// draftOverlay previews a row being drawn: its curve and ghost seats.
func draftOverlay(start, end geometry.Point, curvature float64, seats int) []DrawCommand {
	cmds := []DrawCommand{{
		Op:          "path",
		Kind:        "draft",
		Transform:   geometry.Identity().ToSlice(),
		Path:        generateCurvePath(start, end, curvature),
		Stroke:      draftStroke,
		StrokeWidth: 1,
		Dashed:      true,
	}}
	for _, p := range geometry.PlaceAlongCurve(start, end, curvature, seats) {
		cmds = append(cmds, DrawCommand{
			Op:          "path",
			Kind:        "draft",
			Transform:   geometry.Translate(p.X, p.Y).ToSlice(),
			Path:        generateEllipsePath(SeatRadius, SeatRadius),
			Stroke:      draftStroke,
			StrokeWidth: 1,
			Opacity:     0.6,
		})
	}
	return cmds
}

// handleOverlay draws selection handles at a constant screen size.
func handleOverlay(handles []Handle, zoom float64) []DrawCommand {
	r := HandleRadius / zoom
	cmds := make([]DrawCommand, 0, len(handles))
	for _, h := range handles {
		cmds = append(cmds, DrawCommand{
			Op:          "handle",
			ObjectID:    h.RowID,
			Kind:        h.Kind.String(),
			Transform:   geometry.Translate(h.Position.X, h.Position.Y).ToSlice(),
			Path:        generateEllipsePath(r, r),
			Fill:        handleFill,
			Stroke:      selectionStroke,
			StrokeWidth: 1 / zoom,
		})
	}
	return cmds
}

// DrawCommandsToJSON serializes draw commands to JSON.
func DrawCommandsToJSON(commands []DrawCommand) (string, error) {
	if commands == nil {
		return "[]", nil
	}
	data, err := json.Marshal(commands)
	if err != nil {
		return "[]", err
	}
	return string(data), nil
}

// RectToJSON serializes a Rect to JSON, or null when ok is false.
func RectToJSON(r geometry.Rect, ok bool) string {
	if !ok {
		return "null"
	}
	data, _ := json.Marshal(r)
	return string(data)
}
