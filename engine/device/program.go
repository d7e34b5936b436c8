package device

// MaxTextureUnits is the number of texture units a program can bind for a
// single draw. Two units are enough for blended sprite animation frames.
const MaxTextureUnits = 2

// TextureBinding associates a sampler name in the shader with the resource
// key of the texture bound to a unit for the next draw.
type TextureBinding struct {
	// SamplerName is the uniform/sampler name in the shader source,
	// e.g. "kTexture0".
	SamplerName string

	// TextureKey is the resource key of the bound texture. The device
	// resolves the key through its texture pool at draw time; holding the
	// key rather than the object keeps the binding valid across GC sweeps.
	TextureKey string
}

// program is the implementation of the Program interface.
type program struct {
	key      string
	name     string
	vertex   Shader
	fragment Shader
	valid    bool
	linkLog  string

	// uniforms persist across draws. A non-static material instance must
	// re-push every relevant uniform each draw because the program is
	// shared between instances and retains whatever the previous instance
	// set.
	uniforms map[string]Uniform

	textures     [MaxTextureUnits]TextureBinding
	textureCount int

	lastUsedFrame uint64
}

// Program is a linked vertex+fragment shader pair owned by the device,
// together with the uniform and texture-unit state staged for the next
// draw. Programs are never garbage collected under the default policy; the
// link cost is amortized over the program's lifetime and only textures are
// swept.
type Program interface {
	// Key retrieves the unique identifier for this program, used for caching and lookups.
	//
	// Returns:
	//   - string: the program's unique key
	Key() string

	// Name returns the human-readable program name used in diagnostics.
	//
	// Returns:
	//   - string: the program name
	Name() string

	// VertexShader returns the linked vertex stage shader.
	//
	// Returns:
	//   - Shader: the vertex shader
	VertexShader() Shader

	// FragmentShader returns the linked fragment stage shader.
	//
	// Returns:
	//   - Shader: the fragment shader
	FragmentShader() Shader

	// IsValid reports whether the link succeeded. Draws with an invalid
	// program are skipped for the frame; an explicit DeletePrograms is the
	// only way to retry the link.
	//
	// Returns:
	//   - bool: true when the program linked successfully
	IsValid() bool

	// LinkLog returns the linker diagnostic from the last link attempt,
	// empty on success.
	//
	// Returns:
	//   - string: the linker log text
	LinkLog() string

	// SetUniform stages a uniform value for the next draw. Values persist
	// until overwritten.
	//
	// Parameters:
	//   - name: the uniform name in the shader source
	//   - value: the variant-typed value (see Uniform)
	SetUniform(name string, value Uniform)

	// Uniform retrieves a staged uniform value.
	//
	// Parameters:
	//   - name: the uniform name
	//
	// Returns:
	//   - Uniform: the staged value, or nil when not set
	Uniform(name string) Uniform

	// Uniforms returns the staged uniform map. The map is live program
	// state, not a copy; callers must not retain it across draws.
	//
	// Returns:
	//   - map[string]Uniform: the staged uniforms
	Uniforms() map[string]Uniform

	// SetTexture binds a texture key to a texture unit for the next draw.
	//
	// Parameters:
	//   - samplerName: the sampler name in the shader source
	//   - unit: the texture unit index (0 to MaxTextureUnits-1)
	//   - textureKey: the resource key of the texture to bind
	SetTexture(samplerName string, unit int, textureKey string)

	// SetTextureCount records how many texture units the next draw samples.
	//
	// Parameters:
	//   - count: the number of active units
	SetTextureCount(count int)

	// TextureCount returns the number of active texture units.
	//
	// Returns:
	//   - int: the active unit count
	TextureCount() int

	// TextureBinding returns the binding staged on the given unit.
	//
	// Parameters:
	//   - unit: the texture unit index
	//
	// Returns:
	//   - TextureBinding: the staged binding (zero value when unset)
	TextureBinding(unit int) TextureBinding

	// LastUsedFrame returns the frame number of the last draw that used
	// this program.
	//
	// Returns:
	//   - uint64: the frame stamp
	LastUsedFrame() uint64

	// SetValid records the link outcome. Called by the device backend.
	//
	// Parameters:
	//   - valid: the link outcome
	SetValid(valid bool)

	// SetLinkLog stores the linker diagnostic. Called by the device backend.
	//
	// Parameters:
	//   - log: the linker log text
	SetLinkLog(log string)
}

var _ Program = &program{}

func newProgram(key, name string, vertex, fragment Shader) *program {
	return &program{
		key:      key,
		name:     name,
		vertex:   vertex,
		fragment: fragment,
		uniforms: make(map[string]Uniform),
	}
}

func (p *program) Key() string             { return p.key }
func (p *program) Name() string            { return p.name }
func (p *program) VertexShader() Shader    { return p.vertex }
func (p *program) FragmentShader() Shader  { return p.fragment }
func (p *program) IsValid() bool           { return p.valid }
func (p *program) LinkLog() string         { return p.linkLog }
func (p *program) SetValid(valid bool)     { p.valid = valid }
func (p *program) SetLinkLog(log string)   { p.linkLog = log }
func (p *program) LastUsedFrame() uint64   { return p.lastUsedFrame }
func (p *program) TextureCount() int       { return p.textureCount }
func (p *program) Uniforms() map[string]Uniform { return p.uniforms }

func (p *program) SetUniform(name string, value Uniform) {
	p.uniforms[name] = value
}

func (p *program) Uniform(name string) Uniform {
	return p.uniforms[name]
}

func (p *program) SetTexture(samplerName string, unit int, textureKey string) {
	if unit < 0 || unit >= MaxTextureUnits {
		panic("device: texture unit out of range")
	}
	p.textures[unit] = TextureBinding{SamplerName: samplerName, TextureKey: textureKey}
	if unit >= p.textureCount {
		p.textureCount = unit + 1
	}
}

func (p *program) SetTextureCount(count int) {
	if count < 0 || count > MaxTextureUnits {
		panic("device: texture count out of range")
	}
	p.textureCount = count
}

func (p *program) TextureBinding(unit int) TextureBinding {
	if unit < 0 || unit >= MaxTextureUnits {
		panic("device: texture unit out of range")
	}
	return p.textures[unit]
}
