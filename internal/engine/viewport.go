package engine

import (
	"math"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"

	"github.com/venuekit/venuekit/backend-go/internal/geometry"
)

const (
	MinZoom = 0.1
	MaxZoom = 5.0

	// ZoomStep is the zoom factor applied per wheel notch.
	ZoomStep = 1.1

	// focusMargin is the screen-space padding left around a focused rect.
	focusMargin = 40.0
)

// focusAnim holds the active pan/zoom tweens started by FocusRect.
type focusAnim struct {
	panX, panY, zoom *gween.Tween
	done             [3]bool
}

// Viewport maps between screen and world space.
//
// screen = world*Zoom + Pan + Origin, where Origin is the canvas element's
// screen-space top-left corner.
type Viewport struct {
	Pan    geometry.Point `json:"pan"`
	Zoom   float64        `json:"zoom"`
	Origin geometry.Point `json:"origin"`

	anim *focusAnim
}

// NewViewport creates a viewport at zoom 1 with no pan.
func NewViewport() *Viewport {
	return &Viewport{Zoom: 1}
}

func clampZoom(z float64) float64 {
	if math.IsNaN(z) {
		return 1
	}
	return math.Max(MinZoom, math.Min(MaxZoom, z))
}

// Matrix returns the world-to-screen transform.
func (v *Viewport) Matrix() geometry.Matrix2D {
	return geometry.Translate(v.Origin.X+v.Pan.X, v.Origin.Y+v.Pan.Y).
		Multiply(geometry.Scale(v.Zoom, v.Zoom))
}

// ScreenToWorld converts a screen point to world coordinates.
func (v *Viewport) ScreenToWorld(sx, sy float64) geometry.Point {
	return v.Matrix().Invert().Apply(geometry.Pt(sx, sy))
}

// WorldToScreen converts a world point to screen coordinates.
func (v *Viewport) WorldToScreen(p geometry.Point) geometry.Point {
	return v.Matrix().Apply(p)
}

// PanBy shifts the view by a screen-space delta.
func (v *Viewport) PanBy(dx, dy float64) {
	v.anim = nil
	v.Pan = v.Pan.Add(geometry.Pt(dx, dy))
}

// ZoomBy multiplies the zoom by ZoomStep per notch; negative notches zoom out.
func (v *Viewport) ZoomBy(notches float64) {
	v.anim = nil
	v.Zoom = clampZoom(v.Zoom * math.Pow(ZoomStep, notches))
}

// ZoomAt zooms by notches keeping the world point under (sx, sy) fixed.
func (v *Viewport) ZoomAt(notches, sx, sy float64) {
	w := v.ScreenToWorld(sx, sy)
	v.ZoomBy(notches)
	v.Pan = geometry.Pt(sx-v.Origin.X-w.X*v.Zoom, sy-v.Origin.Y-w.Y*v.Zoom)
}

// SetOrigin records where the canvas sits on screen.
func (v *Viewport) SetOrigin(x, y float64) {
	v.Origin = geometry.Pt(x, y)
}

// Reset restores zoom 1 and no pan. The origin is kept.
func (v *Viewport) Reset() {
	v.anim = nil
	v.Pan = geometry.Point{}
	v.Zoom = 1
}

// VisibleRect returns the world-space rect covered by a width×height canvas.
func (v *Viewport) VisibleRect(width, height float64) geometry.Rect {
	a := v.ScreenToWorld(v.Origin.X, v.Origin.Y)
	b := v.ScreenToWorld(v.Origin.X+width, v.Origin.Y+height)
	return geometry.RectFromCorners(a, b)
}

// FocusRect animates the view over duration seconds so that r is centered
// in a width×height canvas and fits inside it. A non-positive duration
// jumps straight there.
func (v *Viewport) FocusRect(r geometry.Rect, width, height float64, duration float32) {
	if width <= 0 || height <= 0 {
		return
	}
	zoom := v.Zoom
	if r.Width > 0 || r.Height > 0 {
		zx := (width - 2*focusMargin) / math.Max(r.Width, 1)
		zy := (height - 2*focusMargin) / math.Max(r.Height, 1)
		zoom = clampZoom(math.Min(zx, zy))
	}
	c := r.Center()
	pan := geometry.Pt(width/2-c.X*zoom, height/2-c.Y*zoom)

	if duration <= 0 {
		v.anim = nil
		v.Pan, v.Zoom = pan, zoom
		return
	}
	v.anim = &focusAnim{
		panX: gween.New(float32(v.Pan.X), float32(pan.X), duration, ease.OutCubic),
		panY: gween.New(float32(v.Pan.Y), float32(pan.Y), duration, ease.OutCubic),
		zoom: gween.New(float32(v.Zoom), float32(zoom), duration, ease.OutCubic),
	}
}

// Animating reports whether a FocusRect tween is in progress.
func (v *Viewport) Animating() bool {
	return v.anim != nil
}

// Update advances the focus tween by dt seconds and reports whether the
// view changed.
func (v *Viewport) Update(dt float64) bool {
	a := v.anim
	if a == nil {
		return false
	}
	step := func(i int, tw *gween.Tween, dst *float64) {
		if a.done[i] {
			return
		}
		val, done := tw.Update(float32(dt))
		*dst = float64(val)
		a.done[i] = done
	}
	step(0, a.panX, &v.Pan.X)
	step(1, a.panY, &v.Pan.Y)
	step(2, a.zoom, &v.Zoom)
	v.Zoom = clampZoom(v.Zoom)
	if a.done[0] && a.done[1] && a.done[2] {
		v.anim = nil
	}
	return true
}
