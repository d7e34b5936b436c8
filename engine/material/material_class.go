package material

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/prism2d/prism/common"
	"github.com/prism2d/prism/engine/device"
	"github.com/prism2d/prism/engine/resource"
)

// boxEpsilon is the tolerance for deciding that a sampler box addresses
// the whole texture.
const boxEpsilon = 0.001

// MaterialClass holds the data for some particular type of material, for
// example a "marble" material with its textures and parameters. One
// MaterialClass is shared by every Material instance of that type; the
// instances carry only per-draw state (runtime, alpha) on top of it.
type MaterialClass struct {
	id              string
	shaderFile      string
	baseColor       common.Color4f
	surfaceType     SurfaceType
	typ             Type
	gamma           float32
	fps             float32
	blendFrames     bool
	static          bool
	premulAlpha     bool
	enableBloom     bool
	uniforms        map[string]device.Uniform
	samplers        []Sampler
	minFilter       device.MinFilter
	magFilter       device.MagFilter
	wrapX           device.TextureWrap
	wrapY           device.TextureWrap
	textureScale    mgl32.Vec2
	textureVelocity mgl32.Vec3
	colorMap        [4]common.Color4f
	particleAction  ParticleAction
}

// New creates a material class of the given functional type with default
// parameters: white base color, opaque surface, gamma 1.0, frame blending
// on, bilinear/linear filtering and clamped wrapping.
//
// Parameters:
//   - typ: the functional material type
//
// Returns:
//   - *MaterialClass: the new class
func New(typ Type) *MaterialClass {
	return &MaterialClass{
		id:           randomSourceID(),
		typ:          typ,
		baseColor:    common.ColorWhite,
		gamma:        1.0,
		blendFrames:  true,
		minFilter:    device.MinFilterBilinear,
		magFilter:    device.MagFilterLinear,
		wrapX:        device.WrapClamp,
		wrapY:        device.WrapClamp,
		textureScale: mgl32.Vec2{1.0, 1.0},
		colorMap: [4]common.Color4f{
			common.ColorWhite, common.ColorWhite,
			common.ColorWhite, common.ColorWhite,
		},
	}
}

// SolidColor creates a material that fills the drawn shape with a solid
// color value.
func SolidColor(color common.Color4f) *MaterialClass {
	return New(TypeColor).SetBaseColor(color)
}

// Gradient creates a material that interpolates the four given corner
// colors across the drawn shape.
func Gradient(topLeft, topRight, bottomLeft, bottomRight common.Color4f) *MaterialClass {
	return New(TypeGradient).
		SetColorMapColor(topLeft, ColorTopLeft).
		SetColorMapColor(topRight, ColorTopRight).
		SetColorMapColor(bottomLeft, ColorBottomLeft).
		SetColorMapColor(bottomRight, ColorBottomRight)
}

// TextureMap creates a material that maps the given texture file onto the
// drawn shape. The shape must provide texture coordinates.
func TextureMap(texture string) *MaterialClass {
	return New(TypeTexture).
		AddTextureFile(texture).
		SetSurfaceType(SurfaceOpaque)
}

// SpriteSet creates a material that renders a simple animation by cycling
// through the given texture files at the configured fps; adjacent frames
// are cross-faded while in between frames.
func SpriteSet(textures ...string) *MaterialClass {
	m := New(TypeSprite).SetSurfaceType(SurfaceTransparent)
	for _, texture := range textures {
		m.AddTextureFile(texture)
	}
	return m
}

// SpriteMap creates a sprite animation over sub-rectangles of a single
// sheet texture.
func SpriteMap(texture string, frames []common.FRect) *MaterialClass {
	m := New(TypeSprite).SetSurfaceType(SurfaceTransparent)
	for _, frame := range frames {
		m.AddTexture(NewFileSource(texture), frame)
	}
	return m
}

// Property getters.

func (m *MaterialClass) ID() string                       { return m.id }
func (m *MaterialClass) Type() Type                       { return m.typ }
func (m *MaterialClass) GetSurfaceType() SurfaceType      { return m.surfaceType }
func (m *MaterialClass) BaseColor() common.Color4f        { return m.baseColor }
func (m *MaterialClass) BaseAlpha() float32               { return m.baseColor.A }
func (m *MaterialClass) Gamma() float32                   { return m.gamma }
func (m *MaterialClass) Fps() float32                     { return m.fps }
func (m *MaterialClass) BlendFrames() bool                { return m.blendFrames }
func (m *MaterialClass) IsStatic() bool                   { return m.static }
func (m *MaterialClass) PremultipliedAlpha() bool         { return m.premulAlpha }
func (m *MaterialClass) BloomEnabled() bool               { return m.enableBloom }
func (m *MaterialClass) MinFilter() device.MinFilter      { return m.minFilter }
func (m *MaterialClass) MagFilter() device.MagFilter      { return m.magFilter }
func (m *MaterialClass) WrapX() device.TextureWrap        { return m.wrapX }
func (m *MaterialClass) WrapY() device.TextureWrap        { return m.wrapY }
func (m *MaterialClass) TextureScale() mgl32.Vec2         { return m.textureScale }
func (m *MaterialClass) TextureVelocity() mgl32.Vec3      { return m.textureVelocity }
func (m *MaterialClass) GetParticleAction() ParticleAction { return m.particleAction }
func (m *MaterialClass) NumTextures() int                 { return len(m.samplers) }

// ColorMapColor returns one corner of the gradient color map.
func (m *MaterialClass) ColorMapColor(index ColorIndex) common.Color4f {
	return m.colorMap[index]
}

// Sampler returns the sampler at the given index. Panics when the index is
// out of range.
func (m *MaterialClass) Sampler(index int) *Sampler {
	return &m.samplers[index]
}

// Property setters, chainable.

func (m *MaterialClass) SetID(id string) *MaterialClass {
	m.id = id
	return m
}

// SetShaderFile points the material at a specific shader file instead of
// the built-in shader for its type.
func (m *MaterialClass) SetShaderFile(file string) *MaterialClass {
	m.shaderFile = file
	return m
}

func (m *MaterialClass) SetType(typ Type) *MaterialClass {
	m.typ = typ
	return m
}

func (m *MaterialClass) SetSurfaceType(surface SurfaceType) *MaterialClass {
	m.surfaceType = surface
	return m
}

func (m *MaterialClass) SetBaseColor(color common.Color4f) *MaterialClass {
	m.baseColor = color
	return m
}

func (m *MaterialClass) SetBaseAlpha(alpha float32) *MaterialClass {
	m.baseColor.A = alpha
	return m
}

// SetGamma sets the gamma (in)correction value. Values below 1.0 make the
// rendered output brighter, values above 1.0 darker.
func (m *MaterialClass) SetGamma(gamma float32) *MaterialClass {
	m.gamma = gamma
	return m
}

func (m *MaterialClass) SetFps(fps float32) *MaterialClass {
	m.fps = fps
	return m
}

// SetBlendFrames selects whether to cut sharply between animation frames
// or cross-fade adjacent frames when in between them.
func (m *MaterialClass) SetBlendFrames(on bool) *MaterialClass {
	m.blendFrames = on
	return m
}

// SetStatic marks the material static. Static materials map their current
// state to a dedicated shader program with the state baked in once, which
// saves per-draw uniform traffic at the cost of more program objects and
// expensive state changes.
func (m *MaterialClass) SetStatic(on bool) *MaterialClass {
	m.static = on
	return m
}

// SetPremultipliedAlpha declares that the material's texture content
// carries premultiplied alpha. Changes the transparent blend equation and
// the texture identity, so the same image file rendered with and without
// premultiplication maps to two distinct device textures.
func (m *MaterialClass) SetPremultipliedAlpha(on bool) *MaterialClass {
	m.premulAlpha = on
	return m
}

// SetEnableBloom opts the material's output in or out of the bloom
// post-effect pass.
func (m *MaterialClass) SetEnableBloom(on bool) *MaterialClass {
	m.enableBloom = on
	return m
}

// SetUniform stores a named uniform value on the class. The value is
// staged on the program on every draw; instance uniform overrides with
// the same name take precedence.
func (m *MaterialClass) SetUniform(name string, value device.Uniform) *MaterialClass {
	if m.uniforms == nil {
		m.uniforms = make(map[string]device.Uniform)
	}
	m.uniforms[name] = value
	return m
}

// FindUniform returns the named uniform value, or false when not set.
func (m *MaterialClass) FindUniform(name string) (device.Uniform, bool) {
	value, ok := m.uniforms[name]
	return value, ok
}

// DeleteUniform removes the named uniform value.
func (m *MaterialClass) DeleteUniform(name string) {
	delete(m.uniforms, name)
}

func (m *MaterialClass) SetColorMapColor(color common.Color4f, index ColorIndex) *MaterialClass {
	m.colorMap[index] = color
	return m
}

func (m *MaterialClass) SetParticleAction(action ParticleAction) *MaterialClass {
	m.particleAction = action
	return m
}

func (m *MaterialClass) SetMinFilter(filter device.MinFilter) *MaterialClass {
	m.minFilter = filter
	return m
}

func (m *MaterialClass) SetMagFilter(filter device.MagFilter) *MaterialClass {
	m.magFilter = filter
	return m
}

func (m *MaterialClass) SetWrapX(wrap device.TextureWrap) *MaterialClass {
	m.wrapX = wrap
	return m
}

func (m *MaterialClass) SetWrapY(wrap device.TextureWrap) *MaterialClass {
	m.wrapY = wrap
	return m
}

func (m *MaterialClass) SetTextureScaleX(x float32) *MaterialClass {
	m.textureScale[0] = x
	return m
}

func (m *MaterialClass) SetTextureScaleY(y float32) *MaterialClass {
	m.textureScale[1] = y
	return m
}

func (m *MaterialClass) SetTextureVelocityX(x float32) *MaterialClass {
	m.textureVelocity[0] = x
	return m
}

func (m *MaterialClass) SetTextureVelocityY(y float32) *MaterialClass {
	m.textureVelocity[1] = y
	return m
}

// SetTextureVelocityZ sets the texture coordinate rotation velocity in
// radians per second.
func (m *MaterialClass) SetTextureVelocityZ(angleRadians float32) *MaterialClass {
	m.textureVelocity[2] = angleRadians
	return m
}

// AddTexture appends a texture sampler over the given source and
// sub-rectangle.
func (m *MaterialClass) AddTexture(source TextureSource, box common.FRect) *MaterialClass {
	m.samplers = append(m.samplers, Sampler{
		Box:    box,
		Source: source,
	})
	return m
}

// AddTextureFile appends a whole-texture sampler over an image file.
func (m *MaterialClass) AddTextureFile(file string) *MaterialClass {
	return m.AddTexture(NewFileSource(file), common.UnitBox)
}

// SetTextureRect replaces the sub-rectangle of the sampler at index.
func (m *MaterialClass) SetTextureRect(index int, box common.FRect) *MaterialClass {
	m.samplers[index].Box = box
	return m
}

// SetTextureGC opts the sampler's texture in or out of idle-frame
// garbage collection.
func (m *MaterialClass) SetTextureGC(index int, on bool) *MaterialClass {
	m.samplers[index].EnableGC = on
	return m
}

// DeleteTexture removes the sampler at index.
func (m *MaterialClass) DeleteTexture(index int) {
	m.samplers = append(m.samplers[:index], m.samplers[index+1:]...)
}

// ShaderFile returns the shader source path for this material: the
// material-specified custom shader when present, otherwise the built-in
// shader for the material type. Panics for TypeCustom without a shader
// file since that is a construction error.
//
// Returns:
//   - string: the shader source path
func (m *MaterialClass) ShaderFile() string {
	if m.shaderFile != "" {
		return m.shaderFile
	}
	switch m.typ {
	case TypeColor:
		return "shaders/wgsl/solid_color.wgsl"
	case TypeGradient:
		return "shaders/wgsl/gradient.wgsl"
	case TypeTexture, TypeSprite:
		return "shaders/wgsl/texture_map.wgsl"
	case TypeTilemap:
		return "shaders/wgsl/tilemap.wgsl"
	case TypeParticle2D:
		return "shaders/wgsl/particle_2d.wgsl"
	case TypeBasicLight:
		return "shaders/wgsl/basic_light.wgsl"
	}
	panic("material: custom material has no shader file")
}

// ProgramID returns the identity that maps the material to a device
// program permutation. A static material derives the id from the state
// marked static, so every visually distinct static material gets its own
// program with the values baked in. A non-static material keys only on
// its shader file: all instances of the type share one program and must
// re-push their state on every draw.
//
// Returns:
//   - string: the program identity
func (m *MaterialClass) ProgramID() string {
	if m.static {
		hash := common.HashSeed()
		hash = common.HashCombineColor(hash, m.baseColor)
		hash = common.HashCombineFloat32(hash, m.gamma)
		hash = hashCombineVec2(hash, m.textureScale)
		hash = hashCombineVec3(hash, m.textureVelocity)
		hash = common.HashCombineColor(hash, m.colorMap[0])
		hash = common.HashCombineColor(hash, m.colorMap[1])
		hash = common.HashCombineColor(hash, m.colorMap[2])
		hash = common.HashCombineColor(hash, m.colorMap[3])
		return strconv.FormatUint(hash, 10)
	}
	return strconv.FormatUint(common.HashString(m.ShaderFile()), 10)
}

// ShaderID returns the cache key of the fragment shader in the device
// shader pool. Static materials fold their state into the source, so the
// key covers the program id as well.
//
// Returns:
//   - string: the shader cache key
func (m *MaterialClass) ShaderID() string {
	hash := common.HashSeed()
	hash = common.HashCombineString(hash, m.ShaderFile())
	if m.static {
		hash = common.HashCombineString(hash, m.ProgramID())
	} else {
		hash = common.HashCombineString(hash, "")
	}
	return strconv.FormatUint(hash, 10)
}

// GetShader finds or creates the fragment shader for this material on the
// device. On a cache miss the shader source is loaded and, for static
// materials, the static uniform references are folded into constants
// before compiling. Returns nil when the source cannot be loaded.
//
// Parameters:
//   - dev: the device owning the shader pool
//   - loader: the resource loader for the shader file
//
// Returns:
//   - device.Shader: the shader, possibly invalid if compilation failed
func (m *MaterialClass) GetShader(dev device.Device, loader resource.Loader) device.Shader {
	key := m.ShaderID()
	if shader := dev.FindShader(key); shader != nil {
		return shader
	}

	source, err := loader.LoadShaderSource(m.ShaderFile())
	if err != nil {
		common.Logger().Error("failed to load shader file",
			"file", m.ShaderFile(),
			"error", err)
		return nil
	}
	if m.static {
		source = m.foldStaticState(source)
	}
	return dev.MakeShader(key, device.StageFragment, source)
}

// foldStaticState rewrites every reference to a statically-known uniform
// into a literal constant, line by line. The shader compiler then
// constant-folds the material state instead of reading it from the uniform
// buffer on every fragment.
func (m *MaterialClass) foldStaticState(source string) string {
	replacements := []struct {
		ref   string
		value string
	}{
		{"uniforms." + UniformGamma, formatConst(m.gamma)},
		{"uniforms." + UniformBaseColor, formatConstColor(m.baseColor)},
		{"uniforms." + UniformTextureScale, formatConstVec2(m.textureScale)},
		{"uniforms." + UniformTextureVelocity, formatConstVec2(mgl32.Vec2{m.textureVelocity[0], m.textureVelocity[1]})},
		{"uniforms." + UniformTextureRotation, formatConst(m.textureVelocity[2])},
		{"uniforms." + UniformColor0, formatConstColor(m.colorMap[0])},
		{"uniforms." + UniformColor1, formatConstColor(m.colorMap[1])},
		{"uniforms." + UniformColor2, formatConstColor(m.colorMap[2])},
		{"uniforms." + UniformColor3, formatConstColor(m.colorMap[3])},
	}

	lines := strings.Split(source, "\n")
	for i, line := range lines {
		if !strings.Contains(line, "uniforms.") {
			continue
		}
		original := line
		for _, r := range replacements {
			line = strings.ReplaceAll(line, r.ref, r.value)
		}
		if line != original {
			common.Logger().Debug("folded static material state",
				"from", strings.TrimSpace(original),
				"to", strings.TrimSpace(line))
			lines[i] = line
		}
	}
	return strings.Join(lines, "\n")
}

// ApplyDynamicState resolves the material's textures on the device and
// stages the per-draw uniform and texture state onto the program, and sets
// the rasterizer blending for the surface type.
//
// Note that different material instances of the same non-static type map
// to the same program object, so whatever state an instance does not set
// stays at whatever the previous instance staged.
//
// Parameters:
//   - env: per-draw environment (point rendering)
//   - inst: the instance state (runtime, base color)
//   - dev: the device owning the texture pool
//   - loader: the resource loader for texture sources
//   - prog: the linked program to stage state on
//   - state: rasterizer state to fill in
func (m *MaterialClass) ApplyDynamicState(env Environment, inst InstanceState,
	dev device.Device, loader resource.Loader, prog device.Program, state *RasterState) {

	switch m.surfaceType {
	case SurfaceOpaque:
		state.Blending = device.BlendNone
	case SurfaceTransparent:
		state.Blending = device.BlendTransparent
	case SurfaceEmissive:
		state.Blending = device.BlendAdditive
	}
	state.PremultipliedAlpha = m.premulAlpha

	// 1.0 marks the bound texture as a grayscale alpha mask.
	alphaMasks := [2]float32{0.0, 0.0}

	if m.usesTextures() && len(m.samplers) > 0 {
		// a sprite should animate if it has an fps setting.
		animating := m.typ == TypeSprite && m.fps > 0.0
		var frameInterval, frameBlendCoeff float32
		var firstFrameIndex uint32
		if animating {
			frameInterval = 1.0 / m.fps
			frameFraction := math32.Mod(inst.Runtime, frameInterval)
			frameBlendCoeff = frameFraction / frameInterval
			firstFrameIndex = uint32(inst.Runtime / frameInterval)
		}

		frameIndexCount := uint32(1)
		textureCount := 1
		if m.typ == TypeSprite {
			frameIndexCount = uint32(len(m.samplers))
			textureCount = 2
		}
		frameIndex := [2]uint32{
			(firstFrameIndex + 0) % frameIndexCount,
			(firstFrameIndex + 1) % frameIndexCount,
		}

		needSoftwareWrap := true
		for i := 0; i < textureCount; i++ {
			sampler := m.samplers[frameIndex[i]]
			texture := m.resolveTexture(dev, loader, sampler)
			if texture == nil {
				continue
			}
			if texture.Format() == device.FormatAlphaMask {
				alphaMasks[i] = 1.0
			}

			// a whole-texture box means hardware wrapping works; any
			// sub-rectangle needs the shader to wrap within the box.
			if sampler.Box.IsUnitBox(boxEpsilon) {
				needSoftwareWrap = false
			}

			// texture properties are set before binding so the backend
			// picks the right sampler.
			texture.SetMinFilter(m.minFilter)
			texture.SetMagFilter(m.magFilter)
			texture.SetWrapX(m.wrapX)
			texture.SetWrapY(m.wrapY)

			prog.SetTexture(fmt.Sprintf("kTexture%d", i), i, texture.Key())
			prog.SetUniform(fmt.Sprintf("kTextureBox%d", i),
				[4]float32{sampler.Box.X, sampler.Box.Y, sampler.Box.W, sampler.Box.H})
			if m.blendFrames {
				prog.SetUniform(UniformBlendCoeff, frameBlendCoeff)
			} else {
				prog.SetUniform(UniformBlendCoeff, float32(0.0))
			}
		}
		prog.SetTextureCount(textureCount)

		// software wrap mode per axis: 0 = hardware, 1 = clamp, 2 = repeat.
		if needSoftwareWrap {
			wrap := [2]int32{2, 2}
			if m.wrapX == device.WrapClamp {
				wrap[0] = 1
			}
			if m.wrapY == device.WrapClamp {
				wrap[1] = 1
			}
			prog.SetUniform(UniformTextureWrap, wrap)
		} else {
			prog.SetUniform(UniformTextureWrap, [2]int32{0, 0})
		}
	}

	rotation := float32(0.0)
	if env.RenderPoints && m.particleAction == ParticleActionRotate {
		rotation = 1.0
	}
	points := float32(0.0)
	if env.RenderPoints {
		points = 1.0
	}
	prog.SetUniform(UniformParticleRotation, rotation)
	prog.SetUniform(UniformRenderPoints, points)
	prog.SetUniform(UniformIsAlphaMask, [2]float32{alphaMasks[0], alphaMasks[1]})
	prog.SetUniform(UniformRuntime, inst.Runtime)

	if !m.static {
		// non-static materials share the program with every other instance
		// of the type, so the full state must be staged on every draw.
		prog.SetUniform(UniformBaseColor, inst.BaseColor)
		prog.SetUniform(UniformGamma, m.gamma)
		prog.SetUniform(UniformTextureScale, [2]float32{m.textureScale[0], m.textureScale[1]})
		prog.SetUniform(UniformTextureVelocity, [2]float32{m.textureVelocity[0], m.textureVelocity[1]})
		prog.SetUniform(UniformTextureRotation, m.textureVelocity[2])
		prog.SetUniform(UniformColor0, m.colorMap[0])
		prog.SetUniform(UniformColor1, m.colorMap[1])
		prog.SetUniform(UniformColor2, m.colorMap[2])
		prog.SetUniform(UniformColor3, m.colorMap[3])
	}

	// named uniforms; instance overrides win over class values.
	for name, value := range m.uniforms {
		if _, ok := inst.Uniforms[name]; ok {
			continue
		}
		prog.SetUniform(name, value)
	}
	for name, value := range inst.Uniforms {
		prog.SetUniform(name, value)
	}
}

// ApplyStaticState stages the state marked static once, right after the
// program is linked. No-op for non-static materials.
//
// Parameters:
//   - prog: the freshly linked program
func (m *MaterialClass) ApplyStaticState(prog device.Program) {
	if !m.static {
		return
	}
	prog.SetUniform(UniformBaseColor, m.baseColor)
	prog.SetUniform(UniformGamma, m.gamma)
	prog.SetUniform(UniformTextureScale, [2]float32{m.textureScale[0], m.textureScale[1]})
	prog.SetUniform(UniformTextureVelocity, [2]float32{m.textureVelocity[0], m.textureVelocity[1]})
	prog.SetUniform(UniformTextureRotation, m.textureVelocity[2])
	prog.SetUniform(UniformColor0, m.colorMap[0])
	prog.SetUniform(UniformColor1, m.colorMap[1])
	prog.SetUniform(UniformColor2, m.colorMap[2])
	prog.SetUniform(UniformColor3, m.colorMap[3])
}

// resolveTexture finds or creates the device texture for a sampler. The
// texture is keyed by the source content hash combined with the class
// flags that change how the texels are interpreted, so equal content
// rendered the same way shares one upload while two renderings of the
// same file with different flags get distinct textures. A source whose
// data cannot be produced leaves the texture with content hash zero;
// later frames short-circuit on that instead of re-attempting the decode
// until an explicit texture reload.
func (m *MaterialClass) resolveTexture(dev device.Device, loader resource.Loader, sampler Sampler) device.Texture {
	key := m.textureKey(sampler.Source)
	texture := dev.FindTexture(key)
	if texture != nil {
		if texture.ContentHash() == 0 {
			return nil
		}
		return texture
	}

	texture = dev.MakeTexture(key)
	bitmap, err := sampler.Source.Data(loader)
	if err != nil {
		common.Logger().Error("failed to load texture",
			"source", sampler.Source.ID(),
			"error", err)
		texture.SetContentHash(0)
		return nil
	}
	if err := texture.Upload(bitmap); err != nil {
		common.Logger().Error("failed to upload texture",
			"source", sampler.Source.ID(),
			"error", err)
		return nil
	}
	texture.SetContentHash(sampler.Source.ContentHash())
	texture.EnableGarbageCollection(sampler.EnableGC)
	return texture
}

// TextureID returns the device texture pool key for the sampler at index.
// Panics when the index is out of range.
//
// Parameters:
//   - index: the sampler index
//
// Returns:
//   - string: the texture pool key
func (m *MaterialClass) TextureID(index int) string {
	return m.textureKey(m.samplers[index].Source)
}

func (m *MaterialClass) textureKey(source TextureSource) string {
	id := source.ContentHash()
	id = common.HashCombineBool(id, m.premulAlpha)
	id = common.HashCombineBool(id, m.enableBloom)
	return strconv.FormatUint(id, 10)
}

// CanCombine reports whether the sampler's texture is safe to pack into a
// shared atlas. A texture already addressed through a sub-rectangle has
// the sub-rect sampling problem either way, so packing cannot make it
// worse; a whole-texture sampler becomes unsafe when scrolling velocity or
// above-unit scale can push coordinates past its range while the repeat
// wrap mode is set, since the hardware would then sample into unrelated
// atlas regions.
//
// Parameters:
//   - index: the sampler index
//
// Returns:
//   - bool: true when atlas packing is safe
func (m *MaterialClass) CanCombine(index int) bool {
	box := m.samplers[index].Box
	if !box.IsUnitBox(boxEpsilon) {
		return true
	}

	hasXVelocity := !common.Equals(m.textureVelocity[0], 0.0, boxEpsilon)
	hasYVelocity := !common.Equals(m.textureVelocity[1], 0.0, boxEpsilon)
	if hasXVelocity && m.wrapX == device.WrapRepeat {
		return false
	}
	if hasYVelocity && m.wrapY == device.WrapRepeat {
		return false
	}

	if m.textureScale[0] > 1.0 && m.wrapX == device.WrapRepeat {
		return false
	}
	if m.textureScale[1] > 1.0 && m.wrapY == device.WrapRepeat {
		return false
	}
	return true
}

// Hash covers every property that affects the generated shader source or
// its static uniform values, including each sampler's source, box and GC
// policy.
//
// Returns:
//   - uint64: the class content hash
func (m *MaterialClass) Hash() uint64 {
	hash := common.HashSeed()
	hash = common.HashCombineString(hash, m.id)
	hash = common.HashCombineString(hash, m.shaderFile)
	hash = common.HashCombineColor(hash, m.baseColor)
	hash = common.HashCombineInt(hash, int(m.surfaceType))
	hash = common.HashCombineInt(hash, int(m.typ))
	hash = common.HashCombineFloat32(hash, m.gamma)
	hash = common.HashCombineFloat32(hash, m.fps)
	hash = common.HashCombineBool(hash, m.blendFrames)
	hash = common.HashCombineBool(hash, m.static)
	hash = common.HashCombineBool(hash, m.premulAlpha)
	hash = common.HashCombineBool(hash, m.enableBloom)
	hash = common.HashCombineInt(hash, int(m.minFilter))
	hash = common.HashCombineInt(hash, int(m.magFilter))
	hash = common.HashCombineInt(hash, int(m.wrapX))
	hash = common.HashCombineInt(hash, int(m.wrapY))
	hash = hashCombineVec2(hash, m.textureScale)
	hash = hashCombineVec3(hash, m.textureVelocity)
	hash = common.HashCombineColor(hash, m.colorMap[0])
	hash = common.HashCombineColor(hash, m.colorMap[1])
	hash = common.HashCombineColor(hash, m.colorMap[2])
	hash = common.HashCombineColor(hash, m.colorMap[3])
	hash = common.HashCombineInt(hash, int(m.particleAction))
	names := make([]string, 0, len(m.uniforms))
	for name := range m.uniforms {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		hash = common.HashCombineString(hash, name)
		hash = hashCombineUniform(hash, m.uniforms[name])
	}
	for _, sampler := range m.samplers {
		hash = common.HashCombineUint64(hash, sampler.Source.Hash())
		hash = common.HashCombineBool(hash, sampler.EnableGC)
		hash = common.HashCombineRect(hash, sampler.Box)
	}
	return hash
}

// Copy makes a deep copy of the material class, id included.
func (m *MaterialClass) Copy() *MaterialClass {
	cp := *m
	if m.uniforms != nil {
		cp.uniforms = make(map[string]device.Uniform, len(m.uniforms))
		for name, value := range m.uniforms {
			cp.uniforms[name] = value
		}
	}
	cp.samplers = make([]Sampler, len(m.samplers))
	for i, sampler := range m.samplers {
		cp.samplers[i] = Sampler{
			Box:      sampler.Box,
			EnableGC: sampler.EnableGC,
			Source:   sampler.Source.Copy(),
		}
	}
	return &cp
}

// Clone makes a deep copy with a new unique id. Texture sources are cloned
// with new ids as well.
func (m *MaterialClass) Clone() *MaterialClass {
	clone := m.Copy()
	clone.id = randomSourceID()
	for i := range clone.samplers {
		clone.samplers[i].Source = m.samplers[i].Source.Clone()
	}
	return clone
}

func (m *MaterialClass) usesTextures() bool {
	switch m.typ {
	case TypeTexture, TypeSprite, TypeTilemap, TypeParticle2D:
		return true
	}
	return false
}

func hashCombineUniform(seed uint64, value device.Uniform) uint64 {
	switch v := value.(type) {
	case float32:
		return common.HashCombineFloat32(seed, v)
	case int32:
		return common.HashCombineInt(seed, int(v))
	case int:
		return common.HashCombineInt(seed, v)
	case [2]float32:
		seed = common.HashCombineFloat32(seed, v[0])
		return common.HashCombineFloat32(seed, v[1])
	case [2]int32:
		seed = common.HashCombineInt(seed, int(v[0]))
		return common.HashCombineInt(seed, int(v[1]))
	case [3]float32:
		seed = common.HashCombineFloat32(seed, v[0])
		seed = common.HashCombineFloat32(seed, v[1])
		return common.HashCombineFloat32(seed, v[2])
	case [4]float32:
		seed = common.HashCombineFloat32(seed, v[0])
		seed = common.HashCombineFloat32(seed, v[1])
		seed = common.HashCombineFloat32(seed, v[2])
		return common.HashCombineFloat32(seed, v[3])
	case common.Color4f:
		return common.HashCombineColor(seed, v)
	default:
		return common.HashCombineString(seed, fmt.Sprint(v))
	}
}

func hashCombineVec2(seed uint64, v mgl32.Vec2) uint64 {
	seed = common.HashCombineFloat32(seed, v[0])
	return common.HashCombineFloat32(seed, v[1])
}

func hashCombineVec3(seed uint64, v mgl32.Vec3) uint64 {
	seed = common.HashCombineFloat32(seed, v[0])
	seed = common.HashCombineFloat32(seed, v[1])
	return common.HashCombineFloat32(seed, v[2])
}

func formatConst(v float32) string {
	return strconv.FormatFloat(float64(v), 'g', -1, 32)
}

func formatConstColor(c common.Color4f) string {
	return fmt.Sprintf("vec4f(%s, %s, %s, %s)",
		formatConst(c.R), formatConst(c.G), formatConst(c.B), formatConst(c.A))
}

func formatConstVec2(v mgl32.Vec2) string {
	return fmt.Sprintf("vec2f(%s, %s)", formatConst(v[0]), formatConst(v[1]))
}
