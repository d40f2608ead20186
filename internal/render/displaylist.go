// SPDX-License-Identifier: MIT
package render

import "time"

// OpKind names a recorded drawing operation.
type OpKind string

const (
	OpClear  OpKind = "clear"
	OpRect   OpKind = "rect"
	OpPath   OpKind = "path"
	OpCircle OpKind = "circle"
)

// Op is one recorded drawing operation. Unused fields are omitted on the wire.
type Op struct {
	Kind   OpKind  `json:"op"`
	X      float64 `json:"x,omitempty"`
	Y      float64 `json:"y,omitempty"`
	W      float64 `json:"w,omitempty"`
	H      float64 `json:"h,omitempty"`
	R      float64 `json:"r,omitempty"`
	Width  float64 `json:"line_width,omitempty"`
	Points []Point `json:"points,omitempty"`
	Color  Color   `json:"color"`
}

// Frame is everything painted in one frame, ready to send to a viewer.
type Frame struct {
	Seq     uint64    `json:"seq"`
	Screen  string    `json:"screen"`
	Time    time.Time `json:"time"`
	Surface Surface   `json:"surface"`
	Ops     []Op      `json:"ops"`
}

// DisplayList is a Canvas that records operations for one frame at a time.
// It reuses its buffers between frames; Flush hands out an independent copy.
type DisplayList struct {
	surface Surface
	ops     []Op
	points  []Point
}

var _ Canvas = (*DisplayList)(nil)

// NewDisplayList returns an empty list drawing on surface.
func NewDisplayList(surface Surface) *DisplayList {
	return &DisplayList{
		surface: surface,
		ops:     make([]Op, 0, 256),
		points:  make([]Point, 0, 4096),
	}
}

// Surface returns the surface the list draws on.
func (d *DisplayList) Surface() Surface { return d.surface }

func (d *DisplayList) Size() (float64, float64) {
	return d.surface.CSSWidth, d.surface.CSSHeight
}

// Clear drops everything recorded so far and fills the surface.
func (d *DisplayList) Clear(fill Color) {
	d.ops = d.ops[:0]
	d.points = d.points[:0]
	d.ops = append(d.ops, Op{Kind: OpClear, W: d.surface.CSSWidth, H: d.surface.CSSHeight, Color: fill})
}

func (d *DisplayList) FillRect(x, y, w, h float64, fill Color) {
	d.ops = append(d.ops, Op{Kind: OpRect, X: x, Y: y, W: w, H: h, Color: fill})
}

// StrokePath copies points; the caller may reuse its slice.
func (d *DisplayList) StrokePath(points []Point, stroke Color, width float64) {
	if len(points) < 2 {
		return
	}
	start := len(d.points)
	d.points = append(d.points, points...)
	d.ops = append(d.ops, Op{Kind: OpPath, Width: width, Points: d.points[start:len(d.points):len(d.points)], Color: stroke})
}

func (d *DisplayList) FillCircle(cx, cy, r float64, fill Color) {
	d.ops = append(d.ops, Op{Kind: OpCircle, X: cx, Y: cy, R: r, Color: fill})
}

// Ops returns the operations recorded since the last Clear. The slice is
// only valid until the next drawing call.
func (d *DisplayList) Ops() []Op { return d.ops }

// Flush returns a deep copy of the recorded frame.
func (d *DisplayList) Flush(seq uint64, screen string, now time.Time) Frame {
	ops := make([]Op, len(d.ops))
	copy(ops, d.ops)
	pts := make([]Point, len(d.points))
	copy(pts, d.points)

	// Re-point path ops into the copied arena.
	offset := 0
	for i := range ops {
		if ops[i].Kind == OpPath {
			n := len(ops[i].Points)
			ops[i].Points = pts[offset : offset+n : offset+n]
			offset += n
		}
	}
	return Frame{Seq: seq, Screen: screen, Time: now, Surface: d.surface, Ops: ops}
}
