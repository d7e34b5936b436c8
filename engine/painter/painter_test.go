package painter

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prism2d/prism/common"
	"github.com/prism2d/prism/engine/device"
	"github.com/prism2d/prism/engine/drawable"
	"github.com/prism2d/prism/engine/material"
	"github.com/prism2d/prism/engine/particle"
	"github.com/prism2d/prism/engine/resource"
)

func newTestPainter(t *testing.T) (Painter, *device.HeadlessBackend) {
	t.Helper()
	backend := device.NewHeadlessBackend()
	dev := device.NewDevice(backend)
	loader := resource.NewLoader(resource.WithShaderFS(material.ShaderFS))
	return NewPainter(dev, loader, WithSurfaceSize(1280, 720)), backend
}

func TestDrawIssuesOneDrawCall(t *testing.T) {
	p, backend := newTestPainter(t)
	rect := drawable.NewRectangle()
	m := material.NewMaterial(material.SolidColor(common.ColorRed))

	require.NoError(t, p.Draw(rect, mgl32.Ident4(), m))
	require.Len(t, backend.Draws(), 1)

	record := backend.Draws()[0]
	assert.Equal(t, "Rectangle/Solid", record.GeometryKey)
	assert.Equal(t, 6, record.VertexCount)
	assert.Equal(t, device.DrawTriangles, record.Primitive)
	assert.True(t, record.State.WriteColor)
}

func TestDrawReusesProgramAcrossDraws(t *testing.T) {
	p, _ := newTestPainter(t)
	rect := drawable.NewRectangle()
	m := material.NewMaterial(material.SolidColor(common.ColorRed))

	for i := 0; i < 5; i++ {
		require.NoError(t, p.Draw(rect, mgl32.Ident4(), m))
	}
	stats := p.Device().ResourceStats()
	assert.Equal(t, 1, stats.Programs)
	// one vertex and one fragment shader
	assert.Equal(t, 2, stats.Shaders)
	assert.Equal(t, 1, stats.Geometries)
}

func TestNonStaticMaterialsShareOneProgram(t *testing.T) {
	p, _ := newTestPainter(t)
	rect := drawable.NewRectangle()
	red := material.NewMaterial(material.SolidColor(common.ColorRed))
	blue := material.NewMaterial(material.SolidColor(common.ColorBlue))

	require.NoError(t, p.Draw(rect, mgl32.Ident4(), red))
	require.NoError(t, p.Draw(rect, mgl32.Ident4(), blue))
	assert.Equal(t, 1, p.Device().ResourceStats().Programs)
}

func TestStaticMaterialsGetDedicatedPrograms(t *testing.T) {
	p, _ := newTestPainter(t)
	rect := drawable.NewRectangle()
	red := material.NewMaterial(material.SolidColor(common.ColorRed).SetStatic(true))
	blue := material.NewMaterial(material.SolidColor(common.ColorBlue).SetStatic(true))

	require.NoError(t, p.Draw(rect, mgl32.Ident4(), red))
	require.NoError(t, p.Draw(rect, mgl32.Ident4(), blue))
	assert.Equal(t, 2, p.Device().ResourceStats().Programs)
}

func TestStaticGeometryUploadsOnce(t *testing.T) {
	p, _ := newTestPainter(t)
	rect := drawable.NewRectangle()
	m := material.NewMaterial(material.SolidColor(common.ColorRed))

	require.NoError(t, p.Draw(rect, mgl32.Ident4(), m))
	geom := p.Device().FindGeometry(rect.GeometryKey())
	require.NotNil(t, geom)
	version := geom.Version()

	require.NoError(t, p.Draw(rect, mgl32.Ident4(), m))
	assert.Equal(t, version, geom.Version())
}

func TestDynamicGeometryRefreshesEveryDraw(t *testing.T) {
	p, _ := newTestPainter(t)
	engine := particle.NewEngine(particle.Params{
		Spawn:        particle.SpawnOnce,
		NumParticles: 5,
		MaxX:         100, MaxY: 100,
		EmitterW: 100, EmitterH: 100,
		MinLifetime: 10, MaxLifetime: 10,
		MinPointSize: 1, MaxPointSize: 1,
		MinAlpha: 1, MaxAlpha: 1,
	})
	m := material.NewMaterial(material.New(material.TypeColor))

	require.NoError(t, p.Draw(engine, mgl32.Ident4(), m))
	geom := p.Device().FindGeometry(engine.GeometryKey())
	require.NotNil(t, geom)
	version := geom.Version()

	require.NoError(t, p.Draw(engine, mgl32.Ident4(), m))
	assert.Greater(t, geom.Version(), version)
	assert.Equal(t, device.DrawPoints, geom.DrawType())
}

func TestDrawStagesTransformUniforms(t *testing.T) {
	p, _ := newTestPainter(t)
	rect := drawable.NewRectangle()
	m := material.NewMaterial(material.SolidColor(common.ColorRed))
	transform := mgl32.Translate3D(10, 20, 0)

	require.NoError(t, p.Draw(rect, transform, m))

	prog := p.Device().FindProgram(rect.ShaderKey() + "/" + m.Class().ProgramID())
	require.NotNil(t, prog)
	assert.Equal(t, transform, prog.Uniform(UniformModelViewMatrix))
	assert.NotNil(t, prog.Uniform(UniformProjectionMatrix))
}

func TestBrokenShaderSkipsDrawWithoutError(t *testing.T) {
	backend := device.NewHeadlessBackend()
	backend.CompileHook = func(s device.Shader) error {
		if s.Stage() == device.StageFragment {
			return errors.New("bad fragment")
		}
		return nil
	}
	dev := device.NewDevice(backend)
	loader := resource.NewLoader(resource.WithShaderFS(material.ShaderFS))
	p := NewPainter(dev, loader)

	rect := drawable.NewRectangle()
	m := material.NewMaterial(material.SolidColor(common.ColorRed))

	assert.NoError(t, p.Draw(rect, mgl32.Ident4(), m))
	assert.NoError(t, p.Draw(rect, mgl32.Ident4(), m))
	assert.Empty(t, backend.Draws())
}

func TestMissingShaderFileSkipsDraw(t *testing.T) {
	p, backend := newTestPainter(t)
	rect := drawable.NewRectangle()
	m := material.NewMaterial(material.New(material.TypeCustom).SetShaderFile("missing.wgsl"))

	assert.NoError(t, p.Draw(rect, mgl32.Ident4(), m))
	assert.Empty(t, backend.Draws())
}

func TestDrawMaskedIssuesThreePasses(t *testing.T) {
	p, backend := newTestPainter(t)
	shape := drawable.NewRectangle()
	mask := drawable.NewCircle()
	m := material.NewMaterial(material.SolidColor(common.ColorGreen))

	require.NoError(t, p.DrawMasked(shape, mgl32.Ident4(), mask, mgl32.Ident4(), m))
	require.Len(t, backend.Draws(), 3)

	// Stencil writes and compares are masked by StencilMask on the real
	// backend, so every pass must keep all bits enabled.
	for _, rec := range backend.Draws() {
		assert.Equal(t, uint8(0xFF), rec.State.StencilMask)
	}

	stamp := backend.Draws()[0]
	assert.Equal(t, "Circle/100/Solid", stamp.GeometryKey)
	assert.Equal(t, device.StencilPassAlways, stamp.State.StencilFunc)
	assert.Equal(t, device.StencilWriteRef, stamp.State.StencilDPass)
	assert.Equal(t, uint8(1), stamp.State.StencilRef)
	assert.False(t, stamp.State.WriteColor)

	draw := backend.Draws()[1]
	assert.Equal(t, "Rectangle/Solid", draw.GeometryKey)
	assert.Equal(t, device.StencilRefIsEqual, draw.State.StencilFunc)
	assert.Equal(t, device.StencilDontModify, draw.State.StencilDPass)
	assert.Equal(t, uint8(1), draw.State.StencilRef)
	assert.True(t, draw.State.WriteColor)

	clear := backend.Draws()[2]
	assert.Equal(t, "Circle/100/Solid", clear.GeometryKey)
	assert.Equal(t, device.StencilWriteZero, clear.State.StencilDPass)
	assert.False(t, clear.State.WriteColor)
}

func TestDrawStampsTexturesForGC(t *testing.T) {
	p, _ := newTestPainter(t)
	rect := drawable.NewRectangle()

	source := material.NewBufferSource(common.Bitmap{
		Pixels: []byte{255, 0, 0, 255}, Width: 1, Height: 1, Channels: 4,
	})
	class := material.New(material.TypeTexture).
		AddTexture(source, common.UnitBox).
		SetTextureGC(0, true)
	m := material.NewMaterial(class)

	dev := p.Device()
	require.NoError(t, p.Draw(rect, mgl32.Ident4(), m))

	// draws keep refreshing the usage stamp, so the texture survives
	for i := 0; i < 5; i++ {
		require.NoError(t, dev.BeginFrame())
		require.NoError(t, p.Draw(rect, mgl32.Ident4(), m))
		dev.EndFrame()
	}
	dev.CleanGarbage(3, device.GCTextures)
	assert.Equal(t, 1, dev.ResourceStats().Textures)

	// once the draws stop the idle window runs out
	for i := 0; i < 5; i++ {
		require.NoError(t, dev.BeginFrame())
		dev.EndFrame()
	}
	dev.CleanGarbage(3, device.GCTextures)
	assert.Zero(t, dev.ResourceStats().Textures)
}

func TestViewportAppliedToDraws(t *testing.T) {
	p, backend := newTestPainter(t)
	p.SetViewport(device.Viewport{X: 10, Y: 20, W: 300, H: 200})

	rect := drawable.NewRectangle()
	m := material.NewMaterial(material.SolidColor(common.ColorRed))
	require.NoError(t, p.Draw(rect, mgl32.Ident4(), m))

	require.Len(t, backend.Draws(), 1)
	assert.Equal(t, device.Viewport{X: 10, Y: 20, W: 300, H: 200}, backend.Draws()[0].State.Viewport)
}

func TestSurfaceBlendingReachesDrawState(t *testing.T) {
	p, backend := newTestPainter(t)
	rect := drawable.NewRectangle()
	m := material.NewMaterial(material.SolidColor(common.ColorRed).SetSurfaceType(material.SurfaceEmissive))

	require.NoError(t, p.Draw(rect, mgl32.Ident4(), m))
	require.Len(t, backend.Draws(), 1)
	assert.Equal(t, device.BlendAdditive, backend.Draws()[0].State.Blending)
}

func TestPremultipliedAlphaReachesDrawState(t *testing.T) {
	p, backend := newTestPainter(t)
	rect := drawable.NewRectangle()
	m := material.NewMaterial(material.SolidColor(common.ColorRed).
		SetSurfaceType(material.SurfaceTransparent).
		SetPremultipliedAlpha(true))

	require.NoError(t, p.Draw(rect, mgl32.Ident4(), m))
	require.Len(t, backend.Draws(), 1)
	assert.Equal(t, device.BlendTransparent, backend.Draws()[0].State.Blending)
	assert.True(t, backend.Draws()[0].State.PremultipliedAlpha)
}

func TestReloadShadersForcesRecompile(t *testing.T) {
	p, _ := newTestPainter(t)
	rect := drawable.NewRectangle()
	m := material.NewMaterial(material.SolidColor(common.ColorRed))

	require.NoError(t, p.Draw(rect, mgl32.Ident4(), m))
	require.Equal(t, 2, p.Device().ResourceStats().Shaders)

	p.ReloadShaders()
	assert.Zero(t, p.Device().ResourceStats().Shaders)
	assert.Zero(t, p.Device().ResourceStats().Programs)

	require.NoError(t, p.Draw(rect, mgl32.Ident4(), m))
	assert.Equal(t, 2, p.Device().ResourceStats().Shaders)
	assert.Equal(t, 1, p.Device().ResourceStats().Programs)
}

func TestReloadTexturesClearsPool(t *testing.T) {
	p, _ := newTestPainter(t)
	rect := drawable.NewRectangle()
	class := material.New(material.TypeTexture).AddTexture(material.NewBufferSource(common.Bitmap{
		Pixels: []byte{1, 2, 3, 4}, Width: 1, Height: 1, Channels: 4,
	}), common.UnitBox)
	m := material.NewMaterial(class)

	require.NoError(t, p.Draw(rect, mgl32.Ident4(), m))
	require.Equal(t, 1, p.Device().ResourceStats().Textures)

	p.ReloadTextures()
	assert.Zero(t, p.Device().ResourceStats().Textures)

	// the next draw re-resolves the texture
	require.NoError(t, p.Draw(rect, mgl32.Ident4(), m))
	assert.Equal(t, 1, p.Device().ResourceStats().Textures)
}
