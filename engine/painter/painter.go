// Package painter is the draw executor: it resolves drawables and
// materials into device programs, geometries and textures, and issues the
// actual draw calls.
package painter

import (
	"errors"
	"fmt"
	"sync"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/prism2d/prism/common"
	"github.com/prism2d/prism/engine/device"
	"github.com/prism2d/prism/engine/drawable"
	"github.com/prism2d/prism/engine/material"
	"github.com/prism2d/prism/engine/resource"
)

// Uniform names the shared vertex shader expects from the executor.
const (
	UniformProjectionMatrix = "kProjectionMatrix"
	UniformModelViewMatrix  = "kModelViewMatrix"
)

// Painter issues draw calls against a device. All resources resolve
// lazily: shaders compile and programs link on first use, static shape
// geometry uploads once and dynamic geometry refreshes per draw.
type Painter interface {
	// SetSurfaceSize sets the rendering surface size and rebuilds the
	// orthographic projection with the origin at the top left.
	//
	// Parameters:
	//   - width: the surface width in pixels
	//   - height: the surface height in pixels
	SetSurfaceSize(width, height float32)

	// SetViewport sets the viewport applied to subsequent draws.
	//
	// Parameters:
	//   - v: the viewport rectangle in pixels
	SetViewport(v device.Viewport)

	// Draw renders one drawable with one material under the given model
	// transform. A material whose shader fails to compile or link skips
	// the draw for the frame without error.
	//
	// Parameters:
	//   - d: the drawable to render
	//   - transform: the model-to-world transform
	//   - m: the material instance
	//
	// Returns:
	//   - error: a backend error; compile and link failures are not errors
	Draw(d drawable.Drawable, transform mgl32.Mat4, m *material.Material) error

	// DrawMasked renders a drawable clipped by a mask shape. The mask
	// writes a stencil reference with color writes off, the real shape
	// draws gated on stencil equality, then the mask region is erased so
	// later masked draws in the same frame start clean.
	//
	// Parameters:
	//   - d: the drawable to render
	//   - transform: the drawable's model transform
	//   - mask: the mask shape
	//   - maskTransform: the mask's model transform
	//   - m: the material instance for the drawable
	//
	// Returns:
	//   - error: a backend error; compile and link failures are not errors
	DrawMasked(d drawable.Drawable, transform mgl32.Mat4, mask drawable.Drawable, maskTransform mgl32.Mat4, m *material.Material) error

	// ReloadShaders clears the shader and program pools. Everything
	// recompiles lazily on the next draw; used by the operator reload
	// action.
	ReloadShaders()

	// ReloadTextures clears the texture pool so texture content reloads
	// lazily on the next draw.
	ReloadTextures()

	// Device returns the device the painter draws through.
	//
	// Returns:
	//   - device.Device: the device
	Device() device.Device
}

// painterImpl is the implementation of the Painter interface.
type painterImpl struct {
	mu *sync.Mutex

	dev    device.Device
	loader resource.Loader

	projection mgl32.Mat4
	viewport   device.Viewport

	// maskMaterial renders mask shapes. Color writes are off during the
	// mask pass so any valid program works; a solid color keeps it cheap.
	maskMaterial *material.Material

	// loggedPrograms suppresses repeated skip warnings for the same
	// broken program key.
	loggedPrograms map[string]bool
}

var _ Painter = &painterImpl{}

// PainterOption configures NewPainter.
type PainterOption func(*painterImpl)

// WithSurfaceSize sets the initial surface size.
//
// Parameters:
//   - width: the surface width in pixels
//   - height: the surface height in pixels
//
// Returns:
//   - PainterOption: a function that applies the option to a painter
func WithSurfaceSize(width, height float32) PainterOption {
	return func(p *painterImpl) {
		p.projection = mgl32.Ortho(0, width, height, 0, -1, 1)
	}
}

// NewPainter creates a painter over a device and a resource loader.
//
// Parameters:
//   - dev: the device (must not be nil)
//   - loader: the resource loader for shader and image content
//   - options: optional configuration
//
// Returns:
//   - Painter: the painter
func NewPainter(dev device.Device, loader resource.Loader, options ...PainterOption) Painter {
	if dev == nil {
		panic("painter: NewPainter requires a non-nil device")
	}
	p := &painterImpl{
		mu:             &sync.Mutex{},
		dev:            dev,
		loader:         loader,
		projection:     mgl32.Ident4(),
		maskMaterial:   material.NewMaterial(material.New(material.TypeColor)),
		loggedPrograms: make(map[string]bool),
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *painterImpl) SetSurfaceSize(width, height float32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.projection = mgl32.Ortho(0, width, height, 0, -1, 1)
}

func (p *painterImpl) SetViewport(v device.Viewport) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.viewport = v
}

func (p *painterImpl) Device() device.Device {
	return p.dev
}

func (p *painterImpl) Draw(d drawable.Drawable, transform mgl32.Mat4, m *material.Material) error {
	return p.draw(d, transform, m, device.DefaultState())
}

func (p *painterImpl) DrawMasked(d drawable.Drawable, transform mgl32.Mat4, mask drawable.Drawable, maskTransform mgl32.Mat4, m *material.Material) error {
	// pass 1: stamp the mask region into the stencil buffer.
	maskState := device.DefaultState()
	maskState.StencilFunc = device.StencilPassAlways
	maskState.StencilDPass = device.StencilWriteRef
	maskState.StencilRef = 1
	maskState.WriteColor = false
	if err := p.draw(mask, maskTransform, p.maskMaterial, maskState); err != nil {
		return err
	}

	// pass 2: the real draw, gated on the stencil reference.
	drawState := device.DefaultState()
	drawState.StencilFunc = device.StencilRefIsEqual
	drawState.StencilDPass = device.StencilDontModify
	drawState.StencilRef = 1
	if err := p.draw(d, transform, m, drawState); err != nil {
		return err
	}

	// pass 3: erase the mask region so the next masked draw in this frame
	// starts from a clean stencil.
	clearState := device.DefaultState()
	clearState.StencilFunc = device.StencilPassAlways
	clearState.StencilDPass = device.StencilWriteZero
	clearState.WriteColor = false
	return p.draw(mask, maskTransform, p.maskMaterial, clearState)
}

func (p *painterImpl) draw(d drawable.Drawable, transform mgl32.Mat4, m *material.Material, state device.State) error {
	prog := p.resolveProgram(d, m)
	if prog == nil {
		return nil
	}
	geom := p.resolveGeometry(d)

	p.mu.Lock()
	projection := p.projection
	viewport := p.viewport
	p.mu.Unlock()

	prog.SetUniform(UniformProjectionMatrix, projection)
	prog.SetUniform(UniformModelViewMatrix, transform)

	env := material.Environment{
		RenderPoints: geom.DrawType() == device.DrawPoints,
	}
	var raster material.RasterState
	m.ApplyDynamicState(env, p.dev, p.loader, prog, &raster)

	state.Blending = raster.Blending
	state.PremultipliedAlpha = raster.PremultipliedAlpha
	state.Viewport = viewport
	state.LineWidth = geom.LineWidth()

	if err := p.dev.Draw(prog, geom, state); err != nil {
		if errors.Is(err, device.ErrInvalidProgram) {
			return nil
		}
		return err
	}

	// stamp the textures this draw actually touched; usage tracking by
	// explicit key list keeps GC decisions independent of program
	// lifetime.
	keys := make([]string, 0, prog.TextureCount())
	for unit := 0; unit < prog.TextureCount(); unit++ {
		if key := prog.TextureBinding(unit).TextureKey; key != "" {
			keys = append(keys, key)
		}
	}
	if len(keys) > 0 {
		p.dev.MarkTextureUsed(keys...)
	}
	return nil
}

// resolveProgram finds or builds the program pairing the drawable's vertex
// shader with the material's fragment shader variant. Returns nil when the
// material shader failed to load, compile or link; the draw is skipped.
func (p *painterImpl) resolveProgram(d drawable.Drawable, m *material.Material) device.Program {
	class := m.Class()
	programKey := d.ShaderKey() + "/" + class.ProgramID()

	prog := p.dev.FindProgram(programKey)
	if prog == nil {
		vs := p.dev.FindShader(d.ShaderKey())
		if vs == nil {
			vs = p.dev.MakeShader(d.ShaderKey(), device.StageVertex, d.ShaderSource())
		}
		fs := class.GetShader(p.dev, p.loader)
		if fs == nil {
			p.logSkippedLocked(programKey, "material shader failed to load")
			return nil
		}
		name := fmt.Sprintf("%s/%s", d.ShaderKey(), class.ID())
		prog = p.dev.MakeProgram(programKey, name, vs, fs)
		if prog.IsValid() && class.IsStatic() {
			class.ApplyStaticState(prog)
		}
	}
	if !prog.IsValid() {
		p.logSkippedLocked(programKey, prog.LinkLog())
		return nil
	}
	return prog
}

// resolveGeometry finds or builds the drawable's geometry. Dynamic
// drawables refresh their payload on every draw.
func (p *painterImpl) resolveGeometry(d drawable.Drawable) device.Geometry {
	geom := p.dev.FindGeometry(d.GeometryKey())
	if geom == nil {
		geom = p.dev.MakeGeometry(d.GeometryKey())
		d.Upload(geom)
	} else if !d.IsStatic() {
		d.Upload(geom)
	}
	return geom
}

func (p *painterImpl) logSkippedLocked(programKey, reason string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.loggedPrograms[programKey] {
		return
	}
	p.loggedPrograms[programKey] = true
	common.Logger().Warn("draw skipped",
		"program", programKey, "reason", reason)
}

func (p *painterImpl) ReloadShaders() {
	p.dev.DeleteShaders()
	p.dev.DeletePrograms()
	p.mu.Lock()
	p.loggedPrograms = make(map[string]bool)
	p.mu.Unlock()
	common.Logger().Debug("shader pools cleared")
}

func (p *painterImpl) ReloadTextures() {
	p.dev.DeleteTextures()
	common.Logger().Debug("texture pool cleared")
}
