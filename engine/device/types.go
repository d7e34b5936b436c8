// Package device implements the GPU object store: content-keyed pools of
// shaders, programs, geometries and textures with find/make semantics, a
// frame-stamped garbage collector for idle resources, and a pluggable
// graphics backend that executes the actual draw calls.
package device

// DrawPrimitive selects how geometry vertices are assembled for
// rasterization.
type DrawPrimitive int

const (
	// DrawTriangles assembles each consecutive vertex triplet into a triangle.
	DrawTriangles DrawPrimitive = iota

	// DrawTriangleFan assembles a fan around the first vertex.
	DrawTriangleFan

	// DrawLines assembles each consecutive vertex pair into a line segment.
	DrawLines

	// DrawLineLoop connects consecutive vertices and closes the loop.
	DrawLineLoop

	// DrawPoints rasterizes each vertex as a point. The per-vertex point
	// size travels in the texcoord channel.
	DrawPoints
)

// ShaderStage identifies the pipeline stage a shader compiles for.
type ShaderStage int

const (
	// StageVertex is the vertex processing stage.
	StageVertex ShaderStage = iota

	// StageFragment is the fragment processing stage.
	StageFragment
)

// TextureFormat describes the pixel layout of an uploaded texture.
type TextureFormat int

const (
	// FormatRGBA is 4 bytes per pixel, red/green/blue/alpha.
	FormatRGBA TextureFormat = iota

	// FormatRGB is 3 bytes per pixel without alpha.
	FormatRGB

	// FormatAlphaMask is 1 byte per pixel, sampled as an alpha mask.
	FormatAlphaMask
)

// FormatFromChannels maps a decoded bitmap channel count to the texture
// format. Panics on an unsupported channel count since that indicates an
// unreachable code path, not a data error.
//
// Parameters:
//   - channels: 1, 3 or 4
//
// Returns:
//   - TextureFormat: the matching format
func FormatFromChannels(channels int) TextureFormat {
	switch channels {
	case 1:
		return FormatAlphaMask
	case 3:
		return FormatRGB
	case 4:
		return FormatRGBA
	}
	panic("device: unsupported bitmap channel count")
}

// MinFilter is the texture minification filter.
type MinFilter int

const (
	// MinFilterNearest samples the nearest texel.
	MinFilterNearest MinFilter = iota

	// MinFilterLinear samples the weighted average of the four nearest texels.
	MinFilterLinear

	// MinFilterMipmap samples the nearest texel from the nearest mip level.
	MinFilterMipmap

	// MinFilterBilinear samples linearly within the closest mip level.
	MinFilterBilinear

	// MinFilterTrilinear samples linearly across the two closest mip levels.
	MinFilterTrilinear
)

// MagFilter is the texture magnification filter.
type MagFilter int

const (
	// MagFilterNearest samples the nearest texel.
	MagFilterNearest MagFilter = iota

	// MagFilterLinear samples the weighted average of the four nearest texels.
	MagFilterLinear
)

// TextureWrap is the hardware sampler addressing mode for coordinates
// outside [0, 1].
type TextureWrap int

const (
	// WrapClamp clamps coordinates to the texture edge.
	WrapClamp TextureWrap = iota

	// WrapRepeat tiles the texture.
	WrapRepeat
)

// BlendMode selects the framebuffer blending equation for a draw.
type BlendMode int

const (
	// BlendNone disables blending (opaque surfaces).
	BlendNone BlendMode = iota

	// BlendTransparent is standard src-alpha over blending.
	BlendTransparent

	// BlendAdditive accumulates color (emissive surfaces).
	BlendAdditive
)

// StencilFunc is the per-fragment stencil test.
type StencilFunc int

const (
	// StencilDisabled turns the stencil test off.
	StencilDisabled StencilFunc = iota

	// StencilPassAlways passes every fragment.
	StencilPassAlways

	// StencilRefIsEqual passes when the stencil buffer equals the reference.
	StencilRefIsEqual
)

// StencilOp is the stencil buffer update operation for passing fragments.
type StencilOp int

const (
	// StencilDontModify leaves the stencil buffer unchanged.
	StencilDontModify StencilOp = iota

	// StencilWriteRef writes the reference value.
	StencilWriteRef

	// StencilWriteZero writes zero.
	StencilWriteZero
)

// Viewport is the rasterizer viewport rectangle in framebuffer pixels.
type Viewport struct {
	X, Y, W, H int
}

// State is the rasterizer state applied to a single draw call.
type State struct {
	Blending BlendMode

	// PremultipliedAlpha selects the premultiplied blend equation for
	// BlendTransparent; the source color is not multiplied by alpha again.
	PremultipliedAlpha bool

	StencilFunc  StencilFunc
	StencilDPass StencilOp
	StencilFail  StencilOp
	StencilRef   uint8
	StencilMask  uint8
	WriteColor   bool
	Viewport     Viewport
	LineWidth    float32
}

// DefaultState returns the rasterizer state used when a draw has no special
// requirements: no blending, stencil testing disabled, color writes on. The
// stencil mask covers all bits so enabling the stencil func on a copy of the
// default state is enough to make writes and compares effective.
func DefaultState() State {
	return State{
		Blending:    BlendNone,
		StencilFunc: StencilDisabled,
		StencilMask: 0xFF,
		WriteColor:  true,
		LineWidth:   1.0,
	}
}

// GCFlags selects which resource pools a CleanGarbage pass sweeps.
type GCFlags uint

const (
	// GCTextures sweeps the texture pool. This is the only pool collected
	// by the default policy; programs are kept alive to amortize link cost.
	GCTextures GCFlags = 1 << iota

	// GCPrograms sweeps the program pool.
	GCPrograms

	// GCGeometries sweeps the geometry pool.
	GCGeometries
)

// Uniform is a variant-typed uniform value staged on a program. The
// accepted dynamic types are float32, int32, [2]float32, [3]float32,
// [4]float32, [2]int32, common.Color4f and mgl32.Mat4; backends reject
// anything else at draw time.
type Uniform any
