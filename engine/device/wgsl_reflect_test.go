package device

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prism2d/prism/common"
)

const reflectTestSource = `
struct VertexInput {
    @location(0) position: vec2f,
    @location(1) texcoord: vec2f,
};

struct VertexUniforms {
    kProjectionMatrix: mat4x4f,
    kModelViewMatrix: mat4x4f,
};

@group(1) @binding(0) var<uniform> vertexUniforms: VertexUniforms;

struct Uniforms {
    kBaseColor: vec4f,
    kGamma: f32,
    kTextureScale: vec2f,
    kTextureWrap: vec2i,
    kLightDir: vec3f,
    kRuntime: f32,
};

@group(0) @binding(0) var<uniform> uniforms: Uniforms;
@group(0) @binding(1) var kTexture0: texture_2d<f32>;
@group(0) @binding(2) var kTexture0Sampler: sampler;
`

func slotFor(t *testing.T, slots []bindingSlot, group, binding int) bindingSlot {
	t.Helper()
	for _, s := range slots {
		if s.group == group && s.binding == binding {
			return s
		}
	}
	t.Fatalf("no slot at group %d binding %d", group, binding)
	return bindingSlot{}
}

func TestReflectShaderBindings(t *testing.T) {
	slots, err := reflectShader(reflectTestSource)
	require.NoError(t, err)
	require.Len(t, slots, 4)

	uni := slotFor(t, slots, 0, 0)
	assert.Equal(t, bindingUniform, uni.kind)
	assert.Equal(t, "uniforms", uni.name)

	tex := slotFor(t, slots, 0, 1)
	assert.Equal(t, bindingTexture, tex.kind)
	assert.Equal(t, "kTexture0", tex.name)

	smp := slotFor(t, slots, 0, 2)
	assert.Equal(t, bindingSampler, smp.kind)
	assert.Equal(t, "kTexture0Sampler", smp.name)

	vtx := slotFor(t, slots, 1, 0)
	assert.Equal(t, bindingUniform, vtx.kind)
	assert.Equal(t, 128, vtx.layout.size)
}

func TestReflectShaderUniformLayout(t *testing.T) {
	slots, err := reflectShader(reflectTestSource)
	require.NoError(t, err)

	layout := slotFor(t, slots, 0, 0).layout
	offsets := make(map[string]int, len(layout.fields))
	for _, f := range layout.fields {
		offsets[f.name] = f.offset
	}

	assert.Equal(t, 0, offsets["kBaseColor"])
	assert.Equal(t, 16, offsets["kGamma"])
	// vec2f aligns to 8, skipping the 4 bytes after kGamma
	assert.Equal(t, 24, offsets["kTextureScale"])
	assert.Equal(t, 32, offsets["kTextureWrap"])
	// vec3f aligns to 16
	assert.Equal(t, 48, offsets["kLightDir"])
	assert.Equal(t, 60, offsets["kRuntime"])
	// struct size rounds up to 16
	assert.Equal(t, 64, layout.size)
}

func TestReflectShaderDeduplicatesRepeatedBindings(t *testing.T) {
	source := `
struct Uniforms { kGamma: f32, };
@group(0) @binding(0) var<uniform> uniforms: Uniforms;
@group(0) @binding(0) var<uniform> uniforms: Uniforms;
`
	slots, err := reflectShader(source)
	require.NoError(t, err)
	assert.Len(t, slots, 1)
}

func TestReflectShaderRejectsUnknownUniformStruct(t *testing.T) {
	_, err := reflectShader(`@group(0) @binding(0) var<uniform> uniforms: Missing;`)
	assert.Error(t, err)
}

func TestReflectShaderSkipsNonShareableStructs(t *testing.T) {
	source := `
struct VertexOutput {
    @builtin(position) clip_position: vec4f,
    @location(0) uv: vec2f,
};
struct Uniforms { kGamma: f32, };
@group(0) @binding(0) var<uniform> uniforms: Uniforms;
`
	slots, err := reflectShader(source)
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, 16, slots[0].layout.size)
}

func f32At(t *testing.T, buf []byte, off int) float32 {
	t.Helper()
	return math.Float32frombits(binary.LittleEndian.Uint32(buf[off:]))
}

func TestPackUniforms(t *testing.T) {
	slots, err := reflectShader(reflectTestSource)
	require.NoError(t, err)
	layout := slotFor(t, slots, 0, 0).layout

	buf, err := packUniforms(layout, map[string]Uniform{
		"kBaseColor":    common.Color4f{R: 0.1, G: 0.2, B: 0.3, A: 0.4},
		"kGamma":        float32(2.2),
		"kTextureScale": [2]float32{3, 4},
		"kTextureWrap":  [2]int32{1, 2},
		"kLightDir":     [3]float32{0, 1, 0},
		"kRuntime":      float32(7.5),
	})
	require.NoError(t, err)
	require.Len(t, buf, layout.size)

	assert.InDelta(t, 0.1, f32At(t, buf, 0), 1e-6)
	assert.InDelta(t, 0.4, f32At(t, buf, 12), 1e-6)
	assert.InDelta(t, 2.2, f32At(t, buf, 16), 1e-6)
	assert.InDelta(t, 3.0, f32At(t, buf, 24), 1e-6)
	assert.InDelta(t, 4.0, f32At(t, buf, 28), 1e-6)
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(buf[32:]))
	assert.Equal(t, uint32(2), binary.LittleEndian.Uint32(buf[36:]))
	assert.InDelta(t, 1.0, f32At(t, buf, 52), 1e-6)
	assert.InDelta(t, 7.5, f32At(t, buf, 60), 1e-6)
}

func TestPackUniformsLeavesUnsetFieldsZero(t *testing.T) {
	layout := uniformLayout{
		fields: []uniformField{{name: "kGamma", typ: "f32", offset: 0}},
		size:   16,
	}
	buf, err := packUniforms(layout, map[string]Uniform{})
	require.NoError(t, err)
	assert.Equal(t, make([]byte, 16), buf)
}

func TestPackUniformsRejectsUnsupportedValue(t *testing.T) {
	layout := uniformLayout{
		fields: []uniformField{{name: "kGamma", typ: "f32", offset: 0}},
		size:   16,
	}
	_, err := packUniforms(layout, map[string]Uniform{"kGamma": "not a number"})
	assert.Error(t, err)
}
