// Package drawable provides the simple 2D shapes that feed the device
// geometry pool. Shapes model their vertices in a unit space with x in
// [0, 1] and y in [-1, 0]; the model-view and projection matrices staged
// by the draw executor place them on screen.
package drawable

import (
	_ "embed"

	"github.com/prism2d/prism/engine/device"
)

//go:embed shaders/wgsl/simple_2d.wgsl
var simpleVertexSource string

// SimpleShaderKey identifies the shared vertex shader all simple shapes
// pair with a material's fragment shader.
const SimpleShaderKey = "simple-2d"

// SimpleShaderSource returns the shared vertex shader source, for drawables
// outside this package that render with the simple shape pipeline.
//
// Returns:
//   - string: the WGSL vertex shader source
func SimpleShaderSource() string {
	return simpleVertexSource
}

// Style selects how a shape's vertices are assembled.
type Style int

const (
	// StyleSolid fills the shape with triangles.
	StyleSolid Style = iota
	// StyleOutline draws the shape's boundary as a line loop.
	StyleOutline
	// StylePoints draws the shape's vertices as points.
	StylePoints
)

func (s Style) String() string {
	switch s {
	case StyleSolid:
		return "Solid"
	case StyleOutline:
		return "Outline"
	case StylePoints:
		return "Points"
	default:
		return "Unknown"
	}
}

// Drawable is something that can produce geometry for a draw. Static
// drawables build their payload once under a stable geometry key; dynamic
// drawables (particle engines) refresh the payload every frame under a
// per-instance key.
type Drawable interface {
	// ShaderKey identifies the vertex shader this drawable renders with.
	//
	// Returns:
	//   - string: the vertex shader resource key
	ShaderKey() string

	// ShaderSource returns the WGSL vertex shader source.
	//
	// Returns:
	//   - string: the shader source text
	ShaderSource() string

	// GeometryKey identifies the geometry in the device pool.
	//
	// Returns:
	//   - string: the geometry resource key
	GeometryKey() string

	// IsStatic reports whether the geometry payload is immutable once
	// built. The draw executor uploads static payloads once and dynamic
	// payloads every draw.
	//
	// Returns:
	//   - bool: true when the payload never changes
	IsStatic() bool

	// Upload writes the vertex payload, draw primitive and line width
	// into the geometry.
	//
	// Parameters:
	//   - g: the geometry to fill
	Upload(g device.Geometry)

	// Update advances any time-dependent drawable state.
	//
	// Parameters:
	//   - dt: elapsed seconds since the previous update
	Update(dt float32)
}

type shapeOptions struct {
	style        Style
	lineWidth    float32
	slices       int
	cornerRadius float32
}

// ShapeOption configures a shape constructor.
type ShapeOption func(*shapeOptions)

// WithStyle selects the shape's vertex assembly style.
//
// Parameters:
//   - s: the style
//
// Returns:
//   - ShapeOption: a function that applies the option to a shape
func WithStyle(s Style) ShapeOption {
	return func(o *shapeOptions) {
		o.style = s
	}
}

// WithLineWidth sets the line width used by outline styles.
//
// Parameters:
//   - w: the line width in pixels
//
// Returns:
//   - ShapeOption: a function that applies the option to a shape
func WithLineWidth(w float32) ShapeOption {
	return func(o *shapeOptions) {
		o.lineWidth = w
	}
}

// WithSlices sets the tessellation count for curved shapes. Zero keeps the
// shape's default.
//
// Parameters:
//   - n: the number of segments
//
// Returns:
//   - ShapeOption: a function that applies the option to a shape
func WithSlices(n int) ShapeOption {
	return func(o *shapeOptions) {
		o.slices = n
	}
}

// WithCornerRadius sets the corner radius for rounded shapes in shape
// model units. Zero keeps the shape's default.
//
// Parameters:
//   - r: the corner radius
//
// Returns:
//   - ShapeOption: a function that applies the option to a shape
func WithCornerRadius(r float32) ShapeOption {
	return func(o *shapeOptions) {
		o.cornerRadius = r
	}
}

func buildShapeOptions(options ...ShapeOption) shapeOptions {
	o := shapeOptions{
		style:     StyleSolid,
		lineWidth: 1.0,
	}
	for _, opt := range options {
		opt(&o)
	}
	return o
}

// styleDrawType maps an outline or point style onto the matching primitive
// for shapes whose solid form is a triangle fan.
func styleDrawType(style Style, solid device.DrawPrimitive) device.DrawPrimitive {
	switch style {
	case StyleOutline:
		return device.DrawLineLoop
	case StylePoints:
		return device.DrawPoints
	default:
		return solid
	}
}
