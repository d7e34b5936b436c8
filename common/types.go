// package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

// Color4f is a normalized RGBA color with each channel in [0.0, 1.0].
// This is the color representation consumed by shaders and uniform uploads.
type Color4f struct {
	R, G, B, A float32
}

// ColorFromBytes creates a Color4f from 8-bit per channel RGBA values (0-255).
//
// Parameters:
//   - r, g, b, a: the color channels in the 0-255 range
//
// Returns:
//   - Color4f: the normalized color
func ColorFromBytes(r, g, b, a uint8) Color4f {
	return Color4f{
		R: float32(r) / 255.0,
		G: float32(g) / 255.0,
		B: float32(b) / 255.0,
		A: float32(a) / 255.0,
	}
}

// Common color constants.
var (
	ColorWhite = Color4f{1, 1, 1, 1}
	ColorBlack = Color4f{0, 0, 0, 1}
	ColorRed   = Color4f{1, 0, 0, 1}
	ColorGreen = Color4f{0, 1, 0, 1}
	ColorBlue  = Color4f{0, 0, 1, 1}
)

// FRect is an axis-aligned rectangle with float32 coordinates. Texture
// sampler boxes use normalized [0, 1] texture space where {0, 0, 1, 1}
// addresses the whole texture.
type FRect struct {
	X, Y, W, H float32
}

// UnitBox is the full-texture sampler box.
var UnitBox = FRect{X: 0, Y: 0, W: 1, H: 1}

// IsUnitBox reports whether the rectangle covers the whole normalized
// texture space within the given epsilon. Sub-rectangle boxes require
// software texture wrapping in the shader since the hardware sampler wraps
// against the whole texture, not the logical sub-rectangle.
//
// Parameters:
//   - eps: comparison tolerance for each edge
//
// Returns:
//   - bool: true when the box is (0, 0, 1, 1) within eps
func (r FRect) IsUnitBox(eps float32) bool {
	return Equals(r.X, 0, eps) &&
		Equals(r.Y, 0, eps) &&
		Equals(r.W, 1, eps) &&
		Equals(r.H, 1, eps)
}

// Vertex is the standard 2D vertex layout shared by all drawable geometry.
// Position is in normalized model space. TexCoord carries texture
// coordinates for shapes and the per-vertex point size for point geometry
// (particles), which have no use for texture coordinates.
type Vertex struct {
	Pos      [2]float32
	TexCoord [2]float32
}

// VertexStride is the byte size of one Vertex in a GPU vertex buffer.
const VertexStride = 16

// Bitmap is decoded CPU-side pixel data pending texture upload.
// Channels is 1 (grayscale alpha mask), 3 (RGB) or 4 (RGBA); Pixels holds
// Width*Height*Channels bytes in row-major order.
type Bitmap struct {
	Pixels   []byte
	Width    int
	Height   int
	Channels int
}
