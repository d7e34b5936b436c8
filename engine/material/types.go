// Package material implements the material evaluator: it maps a shared
// material description to a fragment shader variant, derives the cache
// identities for the shader and its program permutation, and pushes the
// dynamic uniform and texture state a draw needs each frame.
package material

import (
	"github.com/prism2d/prism/common"
	"github.com/prism2d/prism/engine/device"
)

// Type is the functional type of a material. The type groups similar
// materials into categories with a common set of properties; the concrete
// shader provides the implementation over those properties.
type Type int

const (
	// TypeColor fills the surface with the base color only.
	TypeColor Type = iota

	// TypeGradient interpolates the four color map corners.
	TypeGradient

	// TypeTexture maps a single static texture.
	TypeTexture

	// TypeSprite cycles through a series of textures as an animation.
	TypeSprite

	// TypeTilemap samples fixed-size tiles out of a tile atlas.
	TypeTilemap

	// TypeParticle2D shades point-rasterized particle geometry.
	TypeParticle2D

	// TypeBasicLight modulates the base color with a simple 2D light term.
	TypeBasicLight

	// TypeCustom uses a material-provided shader file.
	TypeCustom
)

// SurfaceType controls how the rasterizer blends the material's output
// into the framebuffer.
type SurfaceType int

const (
	// SurfaceOpaque disables blending.
	SurfaceOpaque SurfaceType = iota

	// SurfaceTransparent blends with the destination by source alpha.
	SurfaceTransparent

	// SurfaceEmissive adds onto the destination (the surface gives off light).
	SurfaceEmissive
)

// ParticleAction is the per-particle treatment of the random value the
// particle vertex carries.
type ParticleAction int

const (
	// ParticleActionNone ignores the per-particle random value.
	ParticleActionNone ParticleAction = iota

	// ParticleActionRotate rotates the texture coordinates by it.
	ParticleActionRotate
)

// ColorIndex names the four corners of the gradient color map.
type ColorIndex int

const (
	ColorTopLeft ColorIndex = iota
	ColorTopRight
	ColorBottomLeft
	ColorBottomRight
)

// Uniform names shared between the evaluator and the material shaders.
const (
	UniformBaseColor        = "kBaseColor"
	UniformGamma            = "kGamma"
	UniformRuntime          = "kRuntime"
	UniformTextureScale     = "kTextureScale"
	UniformTextureVelocity  = "kTextureVelocityXY"
	UniformTextureRotation  = "kTextureVelocityZ"
	UniformColor0           = "kColor0"
	UniformColor1           = "kColor1"
	UniformColor2           = "kColor2"
	UniformColor3           = "kColor3"
	UniformBlendCoeff       = "kBlendCoeff"
	UniformTextureWrap      = "kTextureWrap"
	UniformRenderPoints     = "kRenderPoints"
	UniformParticleRotation = "kApplyRandomParticleRotation"
	UniformIsAlphaMask      = "kIsAlphaMask"
	UniformTexture0         = "kTexture0"
	UniformTexture1         = "kTexture1"
	UniformTextureBox0      = "kTextureBox0"
	UniformTextureBox1      = "kTextureBox1"
)

// Environment carries the per-draw environmental parameters that influence
// the material's shading but belong to the caller, not to the material.
type Environment struct {
	// RenderPoints is true when the geometry being drawn is
	// point-rasterized (particles).
	RenderPoints bool
}

// RasterState is the slice of rasterizer state the material controls.
type RasterState struct {
	Blending device.BlendMode

	// PremultipliedAlpha is true when the fragment colors already carry
	// premultiplied alpha so transparent blending must not multiply by
	// the source alpha again.
	PremultipliedAlpha bool
}

// InstanceState is the per-instance state applied over the shared class.
type InstanceState struct {
	Runtime   float32
	BaseColor common.Color4f

	// Uniforms overrides class uniform values with the same name.
	Uniforms map[string]device.Uniform
}
