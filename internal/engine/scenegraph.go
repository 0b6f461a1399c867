package engine

import (
	"github.com/venuekit/venuekit/backend-go/internal/document"
	"github.com/venuekit/venuekit/backend-go/internal/geometry"
)

// SceneGraph is the render-ready state of a Scene. It is rebuilt whenever
// the Scene changes and reused across frames otherwise.
type SceneGraph struct {
	Nodes     []*SceneNode // top-level nodes in painter order
	NodesByID map[string]*SceneNode
}

// SceneNode is a resolved entity ready for rendering. Rows and tables carry
// their seats as children.
type SceneNode struct {
	ID   string
	Kind document.Kind

	// Transform maps the node's local frame to world space.
	Transform geometry.Matrix2D

	Path        []PathCommand
	Fill        string
	Stroke      string
	StrokeWidth float64
	Opacity     float64

	Label   string
	LabelAt geometry.Point // world space

	Locked   bool
	Children []*SceneNode

	// Bounds is the world-space AABB of the node and its children.
	Bounds geometry.Rect
}

// PathCommand represents a single path segment for rendering.
// Format matches Canvas2D: ["M", x, y], ["L", x, y], ["Q", cx, cy, x, y],
// ["C", x1, y1, x2, y2, x, y], ["Z"].
type PathCommand []any

// NewSceneGraph creates an empty scene graph.
func NewSceneGraph() *SceneGraph {
	return &SceneGraph{NodesByID: make(map[string]*SceneNode)}
}

func (sg *SceneGraph) add(node *SceneNode) {
	sg.Nodes = append(sg.Nodes, node)
	sg.register(node)
}

func (sg *SceneGraph) register(node *SceneNode) {
	sg.NodesByID[node.ID] = node
	for _, child := range node.Children {
		sg.register(child)
	}
}
