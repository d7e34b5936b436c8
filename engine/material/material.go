package material

import (
	"github.com/prism2d/prism/common"
	"github.com/prism2d/prism/engine/device"
	"github.com/prism2d/prism/engine/resource"
)

// Material is an instance of some specific type of material. The type is
// defined by the MaterialClass shared between every instance; the instance
// carries only the per-draw state over it.
type Material struct {
	class *MaterialClass

	// current runtime for this material instance.
	runtime float32

	// instance alpha override over the class base color.
	alpha float32

	// instance uniform overrides over the class uniform values.
	uniforms map[string]device.Uniform
}

// NewMaterial creates a material instance over the given class.
//
// Parameters:
//   - class: the shared material class
//
// Returns:
//   - *Material: the instance
func NewMaterial(class *MaterialClass) *Material {
	return &Material{
		class: class,
		alpha: class.BaseAlpha(),
	}
}

// Class returns the shared class object.
func (m *Material) Class() *MaterialClass { return m.class }

// Runtime returns the instance's accumulated runtime in seconds.
func (m *Material) Runtime() float32 { return m.runtime }

// SetRuntime sets the instance runtime.
func (m *Material) SetRuntime(runtime float32) { m.runtime = runtime }

// Update advances the instance runtime.
//
// Parameters:
//   - dt: elapsed seconds since the previous update
func (m *Material) Update(dt float32) { m.runtime += dt }

// Alpha returns the instance alpha override.
func (m *Material) Alpha() float32 { return m.alpha }

// SetAlpha overrides the material's alpha. Clamped to [0, 1]; only visible
// when the surface type blends with alpha.
func (m *Material) SetAlpha(alpha float32) {
	m.alpha = common.Clamp(0.0, 1.0, alpha)
}

// ResetAlpha restores the class base alpha.
func (m *Material) ResetAlpha() { m.alpha = m.class.BaseAlpha() }

// SetUniform overrides a named class uniform value for this instance only.
func (m *Material) SetUniform(name string, value device.Uniform) {
	if m.uniforms == nil {
		m.uniforms = make(map[string]device.Uniform)
	}
	m.uniforms[name] = value
}

// DeleteUniform removes an instance uniform override, falling back to the
// class value.
func (m *Material) DeleteUniform(name string) {
	delete(m.uniforms, name)
}

// ApplyDynamicState stages this instance's state onto the program through
// the shared class.
//
// Parameters:
//   - env: per-draw environment
//   - dev: the device owning the texture pool
//   - loader: the resource loader for texture sources
//   - prog: the linked program to stage state on
//   - state: rasterizer state to fill in
func (m *Material) ApplyDynamicState(env Environment, dev device.Device,
	loader resource.Loader, prog device.Program, state *RasterState) {
	baseColor := m.class.BaseColor()
	baseColor.A = m.alpha
	m.class.ApplyDynamicState(env, InstanceState{
		Runtime:   m.runtime,
		BaseColor: baseColor,
		Uniforms:  m.uniforms,
	}, dev, loader, prog, state)
}
