package device

import "github.com/prism2d/prism/common"

// geometry is the implementation of the Geometry interface.
type geometry struct {
	key       string
	vertices  []common.Vertex
	drawType  DrawPrimitive
	lineWidth float32

	// version increments on every payload mutation so backends know when a
	// GPU-side buffer re-upload is needed. Particle geometry updates every
	// frame; static shape geometry uploads once.
	version uint64

	lastUsedFrame uint64
}

// Geometry is a mutable vertex buffer owned by the device. Static shapes
// use a stable name key ("Rectangle", "Circle") and are built once; dynamic
// buffers (one per particle engine instance) replace their payload in place
// every frame through SetVertices.
type Geometry interface {
	// Key retrieves the unique identifier for this geometry, used for caching and lookups.
	//
	// Returns:
	//   - string: the geometry's unique key
	Key() string

	// Vertices returns the current vertex payload. The slice is live
	// geometry state, not a copy.
	//
	// Returns:
	//   - []common.Vertex: the vertex payload
	Vertices() []common.Vertex

	// VertexCount returns the number of vertices in the payload.
	//
	// Returns:
	//   - int: the vertex count
	VertexCount() int

	// SetVertices replaces the vertex payload in place and bumps the
	// content version so the backend re-uploads on the next draw.
	//
	// Parameters:
	//   - vertices: the new payload
	SetVertices(vertices []common.Vertex)

	// AppendVertices appends to the payload and bumps the content version.
	//
	// Parameters:
	//   - vertices: the vertices to append
	AppendVertices(vertices ...common.Vertex)

	// DrawType returns the draw primitive tag.
	//
	// Returns:
	//   - DrawPrimitive: how vertices are assembled
	DrawType() DrawPrimitive

	// SetDrawType sets the draw primitive tag.
	//
	// Parameters:
	//   - t: the primitive tag
	SetDrawType(t DrawPrimitive)

	// LineWidth returns the rasterizer line width for line primitives.
	//
	// Returns:
	//   - float32: the line width in pixels
	LineWidth() float32

	// SetLineWidth sets the rasterizer line width for line primitives.
	//
	// Parameters:
	//   - w: the line width in pixels
	SetLineWidth(w float32)

	// Version returns the payload content version. Backends compare this
	// against their last-uploaded version to decide whether to re-upload.
	//
	// Returns:
	//   - uint64: the content version
	Version() uint64

	// LastUsedFrame returns the frame number of the last draw that used
	// this geometry.
	//
	// Returns:
	//   - uint64: the frame stamp
	LastUsedFrame() uint64
}

var _ Geometry = &geometry{}

func newGeometry(key string) *geometry {
	return &geometry{
		key:       key,
		drawType:  DrawTriangles,
		lineWidth: 1.0,
	}
}

func (g *geometry) Key() string                     { return g.key }
func (g *geometry) Vertices() []common.Vertex       { return g.vertices }
func (g *geometry) VertexCount() int                { return len(g.vertices) }
func (g *geometry) DrawType() DrawPrimitive         { return g.drawType }
func (g *geometry) SetDrawType(t DrawPrimitive)     { g.drawType = t }
func (g *geometry) LineWidth() float32              { return g.lineWidth }
func (g *geometry) SetLineWidth(w float32)          { g.lineWidth = w }
func (g *geometry) Version() uint64                 { return g.version }
func (g *geometry) LastUsedFrame() uint64           { return g.lastUsedFrame }

func (g *geometry) SetVertices(vertices []common.Vertex) {
	g.vertices = vertices
	g.version++
}

func (g *geometry) AppendVertices(vertices ...common.Vertex) {
	g.vertices = append(g.vertices, vertices...)
	g.version++
}
