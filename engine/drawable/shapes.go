package drawable

import (
	"fmt"

	"github.com/chewxy/math32"

	"github.com/prism2d/prism/common"
	"github.com/prism2d/prism/engine/device"
)

// simpleShape carries the state shared by every static shape.
type simpleShape struct {
	name string
	opts shapeOptions
}

func (s *simpleShape) ShaderKey() string    { return SimpleShaderKey }
func (s *simpleShape) ShaderSource() string { return simpleVertexSource }
func (s *simpleShape) IsStatic() bool       { return true }
func (s *simpleShape) Update(dt float32)    {}

func (s *simpleShape) GeometryKey() string {
	return s.name + "/" + s.opts.style.String()
}

// vertex builds one vertex in shape model space. x and y are given in
// [0, 1]; y is negated into the [-1, 0] convention and the texcoord keeps
// the positive orientation.
func vertex(x, y float32) common.Vertex {
	return common.Vertex{
		Pos:      [2]float32{x, -y},
		TexCoord: [2]float32{x, y},
	}
}

// Rectangle is the unit quad.
type Rectangle struct {
	simpleShape
}

var _ Drawable = &Rectangle{}

// NewRectangle creates a unit rectangle shape.
//
// Parameters:
//   - options: optional style configuration
//
// Returns:
//   - *Rectangle: the shape
func NewRectangle(options ...ShapeOption) *Rectangle {
	return &Rectangle{simpleShape{name: "Rectangle", opts: buildShapeOptions(options...)}}
}

func (r *Rectangle) Upload(g device.Geometry) {
	corners := []common.Vertex{
		vertex(0, 0),
		vertex(0, 1),
		vertex(1, 1),
		vertex(1, 0),
	}
	switch r.opts.style {
	case StyleSolid:
		g.SetVertices([]common.Vertex{
			corners[0], corners[1], corners[2],
			corners[0], corners[2], corners[3],
		})
		g.SetDrawType(device.DrawTriangles)
	case StyleOutline:
		g.SetVertices(corners)
		g.SetDrawType(device.DrawLineLoop)
	case StylePoints:
		g.SetVertices(corners)
		g.SetDrawType(device.DrawPoints)
	}
	g.SetLineWidth(r.opts.lineWidth)
}

// Circle is a unit circle approximated by a fan of slices.
type Circle struct {
	simpleShape
}

var _ Drawable = &Circle{}

// NewCircle creates a unit circle shape.
//
// Parameters:
//   - options: optional style configuration, WithSlices controls tessellation
//
// Returns:
//   - *Circle: the shape
func NewCircle(options ...ShapeOption) *Circle {
	c := &Circle{simpleShape{name: "Circle", opts: buildShapeOptions(options...)}}
	if c.opts.slices == 0 {
		c.opts.slices = 100
	}
	return c
}

func (c *Circle) GeometryKey() string {
	return fmt.Sprintf("Circle/%d/%s", c.opts.slices, c.opts.style)
}

func (c *Circle) Upload(g device.Geometry) {
	perimeter := make([]common.Vertex, 0, c.opts.slices+1)
	for i := 0; i <= c.opts.slices; i++ {
		angle := float32(i) / float32(c.opts.slices) * 2 * math32.Pi
		perimeter = append(perimeter, vertex(
			0.5+0.5*math32.Cos(angle),
			0.5+0.5*math32.Sin(angle),
		))
	}
	switch c.opts.style {
	case StyleSolid:
		vertices := make([]common.Vertex, 0, len(perimeter)+1)
		vertices = append(vertices, vertex(0.5, 0.5))
		vertices = append(vertices, perimeter...)
		g.SetVertices(vertices)
		g.SetDrawType(device.DrawTriangleFan)
	case StyleOutline:
		g.SetVertices(perimeter[:len(perimeter)-1])
		g.SetDrawType(device.DrawLineLoop)
	case StylePoints:
		g.SetVertices(perimeter[:len(perimeter)-1])
		g.SetDrawType(device.DrawPoints)
	}
	g.SetLineWidth(c.opts.lineWidth)
}

// IsoscelesTriangle is a triangle with its apex centered on the top edge.
type IsoscelesTriangle struct {
	simpleShape
}

var _ Drawable = &IsoscelesTriangle{}

// NewIsoscelesTriangle creates a unit isosceles triangle shape.
//
// Parameters:
//   - options: optional style configuration
//
// Returns:
//   - *IsoscelesTriangle: the shape
func NewIsoscelesTriangle(options ...ShapeOption) *IsoscelesTriangle {
	return &IsoscelesTriangle{simpleShape{name: "IsoscelesTriangle", opts: buildShapeOptions(options...)}}
}

func (t *IsoscelesTriangle) Upload(g device.Geometry) {
	corners := []common.Vertex{
		vertex(0.5, 0),
		vertex(0, 1),
		vertex(1, 1),
	}
	g.SetVertices(corners)
	g.SetDrawType(styleDrawType(t.opts.style, device.DrawTriangles))
	g.SetLineWidth(t.opts.lineWidth)
}

// Arrow points right, shaft on the left and head on the right.
type Arrow struct {
	simpleShape
}

var _ Drawable = &Arrow{}

// NewArrow creates a unit right-pointing arrow shape.
//
// Parameters:
//   - options: optional style configuration
//
// Returns:
//   - *Arrow: the shape
func NewArrow(options ...ShapeOption) *Arrow {
	return &Arrow{simpleShape{name: "Arrow", opts: buildShapeOptions(options...)}}
}

func (a *Arrow) Upload(g device.Geometry) {
	outline := []common.Vertex{
		vertex(0, 0.35),
		vertex(0.7, 0.35),
		vertex(0.7, 0.1),
		vertex(1, 0.5),
		vertex(0.7, 0.9),
		vertex(0.7, 0.65),
		vertex(0, 0.65),
	}
	switch a.opts.style {
	case StyleSolid:
		g.SetVertices([]common.Vertex{
			// shaft
			vertex(0, 0.35), vertex(0, 0.65), vertex(0.7, 0.65),
			vertex(0, 0.35), vertex(0.7, 0.65), vertex(0.7, 0.35),
			// head
			vertex(0.7, 0.1), vertex(0.7, 0.9), vertex(1, 0.5),
		})
		g.SetDrawType(device.DrawTriangles)
	case StyleOutline:
		g.SetVertices(outline)
		g.SetDrawType(device.DrawLineLoop)
	case StylePoints:
		g.SetVertices(outline)
		g.SetDrawType(device.DrawPoints)
	}
	g.SetLineWidth(a.opts.lineWidth)
}

// Line is a horizontal line across the middle of the unit space.
type Line struct {
	simpleShape
}

var _ Drawable = &Line{}

// NewLine creates a horizontal center line shape.
//
// Parameters:
//   - options: optional style configuration
//
// Returns:
//   - *Line: the shape
func NewLine(options ...ShapeOption) *Line {
	return &Line{simpleShape{name: "Line", opts: buildShapeOptions(options...)}}
}

func (l *Line) Upload(g device.Geometry) {
	g.SetVertices([]common.Vertex{
		vertex(0, 0.5),
		vertex(1, 0.5),
	})
	g.SetDrawType(device.DrawLines)
	g.SetLineWidth(l.opts.lineWidth)
}

// RoundRect is the unit quad with rounded corners.
type RoundRect struct {
	simpleShape
}

var _ Drawable = &RoundRect{}

// NewRoundRect creates a unit rounded rectangle shape.
//
// Parameters:
//   - options: optional style configuration, WithCornerRadius controls the
//     corner rounding and WithSlices the arc tessellation
//
// Returns:
//   - *RoundRect: the shape
func NewRoundRect(options ...ShapeOption) *RoundRect {
	r := &RoundRect{simpleShape{name: "RoundRect", opts: buildShapeOptions(options...)}}
	if r.opts.cornerRadius == 0 {
		r.opts.cornerRadius = 0.05
	}
	if r.opts.slices == 0 {
		r.opts.slices = 20
	}
	return r
}

func (r *RoundRect) GeometryKey() string {
	return fmt.Sprintf("RoundRect/%g/%d/%s", r.opts.cornerRadius, r.opts.slices, r.opts.style)
}

func (r *RoundRect) Upload(g device.Geometry) {
	radius := r.opts.cornerRadius
	segments := r.opts.slices

	// corner arc centers in CCW order starting from the top-right corner.
	corners := [4][2]float32{
		{1 - radius, radius},
		{radius, radius},
		{radius, 1 - radius},
		{1 - radius, 1 - radius},
	}
	perimeter := make([]common.Vertex, 0, 4*(segments+1))
	for corner := 0; corner < 4; corner++ {
		start := float32(corner) * math32.Pi / 2
		for i := 0; i <= segments; i++ {
			angle := start + float32(i)/float32(segments)*math32.Pi/2
			perimeter = append(perimeter, vertex(
				corners[corner][0]+radius*math32.Cos(angle),
				corners[corner][1]-radius*math32.Sin(angle),
			))
		}
	}

	switch r.opts.style {
	case StyleSolid:
		vertices := make([]common.Vertex, 0, len(perimeter)+2)
		vertices = append(vertices, vertex(0.5, 0.5))
		vertices = append(vertices, perimeter...)
		vertices = append(vertices, perimeter[0])
		g.SetVertices(vertices)
		g.SetDrawType(device.DrawTriangleFan)
	case StyleOutline:
		g.SetVertices(perimeter)
		g.SetDrawType(device.DrawLineLoop)
	case StylePoints:
		g.SetVertices(perimeter)
		g.SetDrawType(device.DrawPoints)
	}
	g.SetLineWidth(r.opts.lineWidth)
}

// Grid is a regular mesh of horizontal and vertical lines across the unit
// space.
type Grid struct {
	simpleShape
	rows int
	cols int
}

var _ Drawable = &Grid{}

// NewGrid creates a grid shape with the given number of interior lines.
//
// Parameters:
//   - rows: the number of interior horizontal lines
//   - cols: the number of interior vertical lines
//   - options: optional style configuration
//
// Returns:
//   - *Grid: the shape
func NewGrid(rows, cols int, options ...ShapeOption) *Grid {
	return &Grid{
		simpleShape: simpleShape{name: "Grid", opts: buildShapeOptions(options...)},
		rows:        rows,
		cols:        cols,
	}
}

func (gr *Grid) GeometryKey() string {
	return fmt.Sprintf("Grid/%d/%d", gr.rows, gr.cols)
}

func (gr *Grid) Upload(g device.Geometry) {
	vertices := make([]common.Vertex, 0, (gr.rows+gr.cols)*2)
	for i := 1; i <= gr.rows; i++ {
		y := float32(i) / float32(gr.rows+1)
		vertices = append(vertices, vertex(0, y), vertex(1, y))
	}
	for i := 1; i <= gr.cols; i++ {
		x := float32(i) / float32(gr.cols+1)
		vertices = append(vertices, vertex(x, 0), vertex(x, 1))
	}
	g.SetVertices(vertices)
	g.SetDrawType(device.DrawLines)
	g.SetLineWidth(gr.opts.lineWidth)
}
