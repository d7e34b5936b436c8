package device

import (
	"errors"
	"fmt"
	"sync"

	"github.com/prism2d/prism/common"
)

// ErrInvalidProgram is returned by Draw when the program failed to link.
// The draw is skipped; nothing else fails.
var ErrInvalidProgram = errors.New("device: program is not valid")

// ResourceStats is a snapshot of pool sizes, useful for diagnostics and GC
// verification.
type ResourceStats struct {
	Shaders    int
	Programs   int
	Geometries int
	Textures   int
}

// device is the implementation of the Device interface.
type device struct {
	mu *sync.Mutex

	backend DeviceBackend

	shaders    map[string]*shader
	programs   map[string]*program
	geometries map[string]*geometry
	textures   map[string]*texture

	frameNumber uint64

	defaultMinFilter MinFilter
	defaultMagFilter MagFilter
}

// Device is the GPU object store. It exclusively owns all created resource
// handles; callers receive long-lived loans keyed by resource key, never
// ownership. A loaned handle is valid only until the next Delete* call, GC
// sweep or device shutdown — resolve keys through Find each frame rather
// than retaining handles.
//
// Resource creation must happen on the thread owning the graphics context.
type Device interface {
	// FindShader retrieves the cached shader for the key.
	//
	// Parameters:
	//   - key: the resource key
	//
	// Returns:
	//   - Shader: the shader, or nil when not present
	FindShader(key string) Shader

	// MakeShader creates and compiles a shader under the key. Panics if
	// the key is already present — callers must Find first. A compile
	// failure is recoverable: the shader stays in the pool invalid with
	// the compiler log retained, and draws using it are skipped.
	//
	// Parameters:
	//   - key: the resource key (must not exist yet)
	//   - stage: the pipeline stage
	//   - source: the shader source text
	//
	// Returns:
	//   - Shader: the created shader (check IsValid)
	MakeShader(key string, stage ShaderStage, source string) Shader

	// FindProgram retrieves the cached program for the key.
	//
	// Parameters:
	//   - key: the resource key
	//
	// Returns:
	//   - Program: the program, or nil when not present
	FindProgram(key string) Program

	// MakeProgram creates and links a program under the key from a
	// compiled shader pair. Panics if the key is already present. Linking
	// an invalid shader yields an invalid program, which draws skip.
	//
	// Parameters:
	//   - key: the resource key (must not exist yet)
	//   - name: human-readable name for diagnostics
	//   - vertex: the vertex stage shader
	//   - fragment: the fragment stage shader
	//
	// Returns:
	//   - Program: the created program (check IsValid)
	MakeProgram(key, name string, vertex, fragment Shader) Program

	// FindGeometry retrieves the cached geometry for the key.
	//
	// Parameters:
	//   - key: the resource key
	//
	// Returns:
	//   - Geometry: the geometry, or nil when not present
	FindGeometry(key string) Geometry

	// MakeGeometry creates an empty geometry under the key. Panics if the
	// key is already present.
	//
	// Parameters:
	//   - key: the resource key (must not exist yet)
	//
	// Returns:
	//   - Geometry: the created geometry
	MakeGeometry(key string) Geometry

	// FindTexture retrieves the cached texture for the key.
	//
	// Parameters:
	//   - key: the resource key
	//
	// Returns:
	//   - Texture: the texture, or nil when not present
	FindTexture(key string) Texture

	// MakeTexture creates an empty texture under the key with the device
	// default filters. Panics if the key is already present.
	//
	// Parameters:
	//   - key: the resource key (must not exist yet)
	//
	// Returns:
	//   - Texture: the created texture
	MakeTexture(key string) Texture

	// DeleteShaders clears the shader pool. Used by the "reload shaders"
	// operator action; cleared shaders recompile lazily on next use.
	DeleteShaders()

	// DeletePrograms clears the program pool.
	DeletePrograms()

	// DeleteGeometries clears the geometry pool.
	DeleteGeometries()

	// DeleteTextures clears the texture pool. Used by the "reload
	// textures" operator action.
	DeleteTextures()

	// Draw issues one draw call combining a program, a geometry and the
	// rasterizer state. Texture bindings staged on the program are
	// resolved through the texture pool by key. On success the program and
	// geometry receive the current frame stamp; texture stamping is the
	// draw executor's responsibility via MarkTextureUsed.
	//
	// Parameters:
	//   - p: the program to bind
	//   - g: the geometry to draw
	//   - state: the rasterizer state
	//
	// Returns:
	//   - error: ErrInvalidProgram when the program failed to link, or a backend error
	Draw(p Program, g Geometry, state State) error

	// MarkTextureUsed stamps the listed textures with the current frame
	// number. The draw executor calls this with the set of texture keys a
	// successful draw actually touched.
	//
	// Parameters:
	//   - keys: the texture resource keys to stamp
	MarkTextureUsed(keys ...string)

	// BeginFrame prepares the device and backend for a new frame.
	//
	// Returns:
	//   - error: an error if the frame could not be started
	BeginFrame() error

	// EndFrame finishes the frame, submits it and increments the global
	// frame counter.
	EndFrame()

	// CleanGarbage evicts resources that have been idle for maxIdleFrames
	// or more frames. A texture is evicted only when it is also marked
	// GC-eligible; this two-part test prevents thrashing reloads of
	// frequently-idle-but-still-wanted textures. Programs and geometries
	// are swept only when their GCFlags bit is set; the default policy
	// passes GCTextures only.
	//
	// Parameters:
	//   - maxIdleFrames: the idle-frame threshold
	//   - flags: which pools to sweep
	CleanGarbage(maxIdleFrames uint64, flags GCFlags)

	// FrameNumber returns the current frame index.
	//
	// Returns:
	//   - uint64: the frame counter value
	FrameNumber() uint64

	// ResourceStats returns a snapshot of the pool sizes.
	//
	// Returns:
	//   - ResourceStats: the current pool sizes
	ResourceStats() ResourceStats

	// Shutdown releases every pool in strict dependency order (textures,
	// shaders, programs, geometries) and shuts the backend down. All
	// loaned handles become invalid.
	Shutdown()
}

var _ Device = &device{}

// DeviceBuilderOption is a functional option applied to a device during construction via NewDevice.
type DeviceBuilderOption func(*device)

// WithDefaultMinFilter sets the minification filter applied to newly
// created textures.
//
// Parameters:
//   - f: the default filter
//
// Returns:
//   - DeviceBuilderOption: a function that applies the option to a device
func WithDefaultMinFilter(f MinFilter) DeviceBuilderOption {
	return func(d *device) {
		d.defaultMinFilter = f
	}
}

// WithDefaultMagFilter sets the magnification filter applied to newly
// created textures.
//
// Parameters:
//   - f: the default filter
//
// Returns:
//   - DeviceBuilderOption: a function that applies the option to a device
func WithDefaultMagFilter(f MagFilter) DeviceBuilderOption {
	return func(d *device) {
		d.defaultMagFilter = f
	}
}

// NewDevice creates a Device over the given backend.
//
// Parameters:
//   - backend: the graphics backend (must not be nil)
//   - options: variadic list of DeviceBuilderOption functions to configure the device
//
// Returns:
//   - Device: a new Device instance
func NewDevice(backend DeviceBackend, options ...DeviceBuilderOption) Device {
	if backend == nil {
		panic("device: NewDevice requires a non-nil backend")
	}
	d := &device{
		mu:               &sync.Mutex{},
		backend:          backend,
		shaders:          make(map[string]*shader),
		programs:         make(map[string]*program),
		geometries:       make(map[string]*geometry),
		textures:         make(map[string]*texture),
		defaultMinFilter: MinFilterLinear,
		defaultMagFilter: MagFilterLinear,
	}
	for _, opt := range options {
		opt(d)
	}
	return d
}

func (d *device) FindShader(key string) Shader {
	d.mu.Lock()
	defer d.mu.Unlock()
	if s, ok := d.shaders[key]; ok {
		return s
	}
	return nil
}

func (d *device) MakeShader(key string, stage ShaderStage, source string) Shader {
	d.mu.Lock()
	if _, ok := d.shaders[key]; ok {
		d.mu.Unlock()
		panic(fmt.Sprintf("device: shader %q already exists, Find before Make", key))
	}
	s := newShader(key, stage, source)
	d.shaders[key] = s
	d.mu.Unlock()

	if err := d.backend.CompileShader(s); err != nil {
		s.SetValid(false)
		s.SetCompileLog(err.Error())
		common.Logger().Warn("shader compile failed",
			"key", key, "log", err.Error())
		return s
	}
	s.SetValid(true)
	common.Logger().Debug("shader compiled", "key", key)
	return s
}

func (d *device) FindProgram(key string) Program {
	d.mu.Lock()
	defer d.mu.Unlock()
	if p, ok := d.programs[key]; ok {
		return p
	}
	return nil
}

func (d *device) MakeProgram(key, name string, vertex, fragment Shader) Program {
	d.mu.Lock()
	if _, ok := d.programs[key]; ok {
		d.mu.Unlock()
		panic(fmt.Sprintf("device: program %q already exists, Find before Make", key))
	}
	p := newProgram(key, name, vertex, fragment)
	d.programs[key] = p
	d.mu.Unlock()

	if vertex == nil || fragment == nil || !vertex.IsValid() || !fragment.IsValid() {
		p.SetValid(false)
		p.SetLinkLog("one or more shaders are invalid")
		return p
	}
	if err := d.backend.LinkProgram(p); err != nil {
		p.SetValid(false)
		p.SetLinkLog(err.Error())
		common.Logger().Warn("program link failed",
			"key", key, "name", name, "log", err.Error())
		return p
	}
	p.SetValid(true)
	common.Logger().Debug("program linked", "key", key, "name", name)
	return p
}

func (d *device) FindGeometry(key string) Geometry {
	d.mu.Lock()
	defer d.mu.Unlock()
	if g, ok := d.geometries[key]; ok {
		return g
	}
	return nil
}

func (d *device) MakeGeometry(key string) Geometry {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.geometries[key]; ok {
		panic(fmt.Sprintf("device: geometry %q already exists, Find before Make", key))
	}
	g := newGeometry(key)
	d.geometries[key] = g
	return g
}

func (d *device) FindTexture(key string) Texture {
	d.mu.Lock()
	defer d.mu.Unlock()
	if t, ok := d.textures[key]; ok {
		return t
	}
	return nil
}

func (d *device) MakeTexture(key string) Texture {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.textures[key]; ok {
		panic(fmt.Sprintf("device: texture %q already exists, Find before Make", key))
	}
	t := newTexture(key, d.backend)
	t.SetMinFilter(d.defaultMinFilter)
	t.SetMagFilter(d.defaultMagFilter)
	d.textures[key] = t
	return t
}

func (d *device) DeleteShaders() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for key := range d.shaders {
		d.backend.DeleteShader(key)
	}
	d.shaders = make(map[string]*shader)
}

func (d *device) DeletePrograms() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for key := range d.programs {
		d.backend.DeleteProgram(key)
	}
	d.programs = make(map[string]*program)
}

func (d *device) DeleteGeometries() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for key := range d.geometries {
		d.backend.DeleteGeometry(key)
	}
	d.geometries = make(map[string]*geometry)
}

func (d *device) DeleteTextures() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for key := range d.textures {
		d.backend.DeleteTexture(key)
	}
	d.textures = make(map[string]*texture)
}

func (d *device) Draw(p Program, g Geometry, state State) error {
	if p == nil || !p.IsValid() {
		return ErrInvalidProgram
	}

	// resolve staged texture bindings by key. Holding keys instead of
	// handles means a binding survives GC sweeps; a swept texture simply
	// resolves to nil and the backend samples nothing for that unit.
	textures := make([]Texture, p.TextureCount())
	d.mu.Lock()
	for i := 0; i < p.TextureCount(); i++ {
		if t, ok := d.textures[p.TextureBinding(i).TextureKey]; ok {
			textures[i] = t
		}
	}
	frame := d.frameNumber
	d.mu.Unlock()

	if err := d.backend.Draw(p, g, textures, state); err != nil {
		return err
	}
	if impl, ok := p.(*program); ok {
		impl.lastUsedFrame = frame
	}
	if impl, ok := g.(*geometry); ok {
		impl.lastUsedFrame = frame
	}
	return nil
}

func (d *device) MarkTextureUsed(keys ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, key := range keys {
		if t, ok := d.textures[key]; ok {
			t.lastUsedFrame = d.frameNumber
		}
	}
}

func (d *device) BeginFrame() error {
	return d.backend.BeginFrame()
}

func (d *device) EndFrame() {
	d.backend.EndFrame()
	d.mu.Lock()
	d.frameNumber++
	d.mu.Unlock()
}

func (d *device) CleanGarbage(maxIdleFrames uint64, flags GCFlags) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if flags&GCTextures != 0 {
		for key, t := range d.textures {
			if !t.gcEligible {
				continue
			}
			if d.frameNumber-t.lastUsedFrame >= maxIdleFrames {
				d.backend.DeleteTexture(key)
				delete(d.textures, key)
				common.Logger().Debug("texture evicted",
					"key", key, "lastUsed", t.lastUsedFrame, "frame", d.frameNumber)
			}
		}
	}
	if flags&GCPrograms != 0 {
		for key, p := range d.programs {
			if d.frameNumber-p.lastUsedFrame >= maxIdleFrames {
				d.backend.DeleteProgram(key)
				delete(d.programs, key)
			}
		}
	}
	if flags&GCGeometries != 0 {
		for key, g := range d.geometries {
			if d.frameNumber-g.lastUsedFrame >= maxIdleFrames {
				d.backend.DeleteGeometry(key)
				delete(d.geometries, key)
			}
		}
	}
}

func (d *device) FrameNumber() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.frameNumber
}

func (d *device) ResourceStats() ResourceStats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return ResourceStats{
		Shaders:    len(d.shaders),
		Programs:   len(d.programs),
		Geometries: len(d.geometries),
		Textures:   len(d.textures),
	}
}

func (d *device) Shutdown() {
	// strict dependency order so no pool retains a reference to an
	// already-destroyed resource.
	d.DeleteTextures()
	d.DeleteShaders()
	d.DeletePrograms()
	d.DeleteGeometries()
	d.backend.Shutdown()
}
