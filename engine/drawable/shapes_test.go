package drawable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prism2d/prism/engine/device"
)

func uploadShape(d Drawable) device.Geometry {
	dev := device.NewDevice(device.NewHeadlessBackend())
	g := dev.MakeGeometry(d.GeometryKey())
	d.Upload(g)
	return g
}

// every vertex must live in x [0, 1], y [-1, 0] with the texcoord mirrored
// back into positive space.
func assertModelSpace(t *testing.T, g device.Geometry) {
	t.Helper()
	for _, v := range g.Vertices() {
		assert.GreaterOrEqual(t, v.Pos[0], float32(0))
		assert.LessOrEqual(t, v.Pos[0], float32(1))
		assert.GreaterOrEqual(t, v.Pos[1], float32(-1))
		assert.LessOrEqual(t, v.Pos[1], float32(0))
		assert.Equal(t, v.Pos[0], v.TexCoord[0])
		assert.Equal(t, -v.Pos[1], v.TexCoord[1])
	}
}

func TestRectangleSolid(t *testing.T) {
	g := uploadShape(NewRectangle())
	assert.Equal(t, 6, g.VertexCount())
	assert.Equal(t, device.DrawTriangles, g.DrawType())
	assertModelSpace(t, g)
}

func TestRectangleOutline(t *testing.T) {
	g := uploadShape(NewRectangle(WithStyle(StyleOutline), WithLineWidth(3)))
	assert.Equal(t, 4, g.VertexCount())
	assert.Equal(t, device.DrawLineLoop, g.DrawType())
	assert.Equal(t, float32(3), g.LineWidth())
}

func TestRectanglePoints(t *testing.T) {
	g := uploadShape(NewRectangle(WithStyle(StylePoints)))
	assert.Equal(t, 4, g.VertexCount())
	assert.Equal(t, device.DrawPoints, g.DrawType())
}

func TestCircleSolidFan(t *testing.T) {
	c := NewCircle(WithSlices(8))
	g := uploadShape(c)

	// center plus a closed perimeter
	assert.Equal(t, 10, g.VertexCount())
	assert.Equal(t, device.DrawTriangleFan, g.DrawType())
	assert.Equal(t, "Circle/8/Solid", c.GeometryKey())
	assertModelSpace(t, g)

	center := g.Vertices()[0]
	assert.Equal(t, float32(0.5), center.Pos[0])
	assert.Equal(t, float32(-0.5), center.Pos[1])
	// the fan closes on itself
	assert.InDelta(t, g.Vertices()[1].Pos[0], g.Vertices()[9].Pos[0], 1e-5)
	assert.InDelta(t, g.Vertices()[1].Pos[1], g.Vertices()[9].Pos[1], 1e-5)
}

func TestCircleOutlineDropsClosingVertex(t *testing.T) {
	g := uploadShape(NewCircle(WithSlices(8), WithStyle(StyleOutline)))
	assert.Equal(t, 8, g.VertexCount())
	assert.Equal(t, device.DrawLineLoop, g.DrawType())
}

func TestCircleDefaultSlices(t *testing.T) {
	assert.Equal(t, "Circle/100/Solid", NewCircle().GeometryKey())
}

func TestIsoscelesTriangle(t *testing.T) {
	g := uploadShape(NewIsoscelesTriangle())
	require.Equal(t, 3, g.VertexCount())
	assert.Equal(t, device.DrawTriangles, g.DrawType())
	// apex centered on the top edge
	assert.Equal(t, float32(0.5), g.Vertices()[0].Pos[0])
	assert.Equal(t, float32(0), g.Vertices()[0].Pos[1])
	assertModelSpace(t, g)
}

func TestArrowSolid(t *testing.T) {
	g := uploadShape(NewArrow())
	// two shaft triangles plus the head
	assert.Equal(t, 9, g.VertexCount())
	assert.Equal(t, device.DrawTriangles, g.DrawType())
	assertModelSpace(t, g)
}

func TestArrowOutline(t *testing.T) {
	g := uploadShape(NewArrow(WithStyle(StyleOutline)))
	assert.Equal(t, 7, g.VertexCount())
	assert.Equal(t, device.DrawLineLoop, g.DrawType())
}

func TestLine(t *testing.T) {
	g := uploadShape(NewLine(WithLineWidth(2)))
	require.Equal(t, 2, g.VertexCount())
	assert.Equal(t, device.DrawLines, g.DrawType())
	assert.Equal(t, float32(2), g.LineWidth())
	assert.Equal(t, float32(0), g.Vertices()[0].Pos[0])
	assert.Equal(t, float32(1), g.Vertices()[1].Pos[0])
}

func TestRoundRectSolid(t *testing.T) {
	r := NewRoundRect(WithSlices(4), WithCornerRadius(0.1))
	g := uploadShape(r)

	// center, four corner arcs of slices+1 vertices, closing vertex
	assert.Equal(t, 1+4*5+1, g.VertexCount())
	assert.Equal(t, device.DrawTriangleFan, g.DrawType())
	assert.Equal(t, "RoundRect/0.1/4/Solid", r.GeometryKey())
	assertModelSpace(t, g)
	assert.Equal(t, g.Vertices()[1], g.Vertices()[g.VertexCount()-1])
}

func TestRoundRectDefaults(t *testing.T) {
	assert.Equal(t, "RoundRect/0.05/20/Solid", NewRoundRect().GeometryKey())
}

func TestGrid(t *testing.T) {
	gr := NewGrid(2, 3)
	g := uploadShape(gr)

	assert.Equal(t, "Grid/2/3", gr.GeometryKey())
	assert.Equal(t, 10, g.VertexCount())
	assert.Equal(t, device.DrawLines, g.DrawType())
	assertModelSpace(t, g)
}

func TestShapesShareVertexShader(t *testing.T) {
	rect := NewRectangle()
	circle := NewCircle()
	assert.Equal(t, SimpleShaderKey, rect.ShaderKey())
	assert.Equal(t, rect.ShaderKey(), circle.ShaderKey())
	assert.Contains(t, rect.ShaderSource(), "vs_main")
	assert.True(t, rect.IsStatic())
}

func TestStyleKeysDistinguishGeometry(t *testing.T) {
	assert.NotEqual(t, NewRectangle().GeometryKey(),
		NewRectangle(WithStyle(StyleOutline)).GeometryKey())
}
