package device

import (
	"encoding/binary"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/prism2d/prism/common"
)

// Minimal WGSL reflection for the WGPU backend: extracts the uniform
// struct layouts so staged uniform values can be packed into uniform
// buffers in declaration order, and the texture/sampler binding indices so
// bind groups can be assembled by variable name. Vertex and fragment
// shaders keep their uniforms in separate bind groups by convention, so a
// linked program can carry more than one uniform block.

// wgslFieldLayout is the size/alignment of a WGSL host-shareable type.
type wgslFieldLayout struct {
	size  int
	align int
}

// wgslLayoutMap maps WGSL uniform field type names to their memory layout.
var wgslLayoutMap = map[string]wgslFieldLayout{
	"f32":         {4, 4},
	"i32":         {4, 4},
	"u32":         {4, 4},
	"vec2f":       {8, 8},
	"vec2<f32>":   {8, 8},
	"vec2i":       {8, 8},
	"vec2<i32>":   {8, 8},
	"vec3f":       {12, 16},
	"vec3<f32>":   {12, 16},
	"vec4f":       {16, 16},
	"vec4<f32>":   {16, 16},
	"mat4x4f":     {64, 16},
	"mat4x4<f32>": {64, 16},
}

var (
	// structBlockRegex matches any struct declaration and captures its
	// name and body.
	structBlockRegex = regexp.MustCompile(`struct\s+(\w+)\s*\{([^}]*)\}`)

	// structFieldRegex matches one struct field: name, colon, type.
	structFieldRegex = regexp.MustCompile(`(\w+)\s*:\s*([\w<>]+)`)

	// bindingVarRegex matches @group/@binding var declarations and captures
	// group, binding, variable name and type.
	bindingVarRegex = regexp.MustCompile(`@group\((\d+)\)\s*@binding\((\d+)\)\s*var(?:<[^>]*>)?\s+(\w+)\s*:\s*([\w<>]+)`)
)

// uniformField is one field of a reflected uniform struct.
type uniformField struct {
	name   string
	typ    string
	offset int
}

// uniformLayout is the reflected layout of one uniform block.
type uniformLayout struct {
	fields []uniformField
	size   int
}

// bindingKind classifies a @group/@binding declaration.
type bindingKind int

const (
	bindingUniform bindingKind = iota
	bindingTexture
	bindingSampler
)

// bindingSlot is one reflected @group/@binding declaration. Uniform slots
// carry the layout of their struct type.
type bindingSlot struct {
	group   int
	binding int
	name    string
	kind    bindingKind
	layout  uniformLayout
}

// reflectShader parses the struct declarations and every @group/@binding
// declaration out of combined shader source. Declarations repeated on the
// same group and binding are kept once.
//
// Parameters:
//   - source: the combined vertex and fragment WGSL source
//
// Returns:
//   - []bindingSlot: the reflected bindings
//   - error: an error when a uniform struct uses an unsupported field type
func reflectShader(source string) ([]bindingSlot, error) {
	structs := make(map[string]uniformLayout)
	for _, m := range structBlockRegex.FindAllStringSubmatch(source, -1) {
		layout, err := parseStructLayout(m[2])
		if err != nil {
			// structs that are not host-shareable (varyings, vertex
			// inputs) can use types the layout map does not cover.
			continue
		}
		structs[m[1]] = layout
	}

	var out []bindingSlot
	seen := make(map[[2]int]bool)
	for _, m := range bindingVarRegex.FindAllStringSubmatch(source, -1) {
		group, _ := strconv.Atoi(m[1])
		binding, _ := strconv.Atoi(m[2])
		if seen[[2]int{group, binding}] {
			continue
		}
		seen[[2]int{group, binding}] = true

		slot := bindingSlot{
			group:   group,
			binding: binding,
			name:    m[3],
		}
		switch {
		case strings.HasPrefix(m[4], "texture_"):
			slot.kind = bindingTexture
		case m[4] == "sampler":
			slot.kind = bindingSampler
		default:
			slot.kind = bindingUniform
			layout, ok := structs[m[4]]
			if !ok {
				return nil, fmt.Errorf("uniform %q: no layout for struct type %q", m[3], m[4])
			}
			slot.layout = layout
		}
		out = append(out, slot)
	}
	return out, nil
}

// parseStructLayout computes field offsets per WGSL uniform address space
// layout rules.
func parseStructLayout(body string) (uniformLayout, error) {
	var out uniformLayout
	offset := 0
	for _, line := range strings.Split(body, ",") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fm := structFieldRegex.FindStringSubmatch(line)
		if fm == nil {
			continue
		}
		layout, ok := wgslLayoutMap[fm[2]]
		if !ok {
			return uniformLayout{}, fmt.Errorf("unsupported uniform field type %q", fm[2])
		}
		offset = alignUp(offset, layout.align)
		out.fields = append(out.fields, uniformField{
			name:   fm[1],
			typ:    fm[2],
			offset: offset,
		})
		offset += layout.size
	}
	// uniform buffers round the struct size up to 16 bytes.
	out.size = alignUp(offset, 16)
	return out, nil
}

// packUniforms serializes the staged uniform values into a byte buffer
// matching the reflected layout. Fields with no staged value stay zero.
// A staged value of the wrong shape for its field is an error; that is a
// programmer mismatch between the evaluator and the shader source.
func packUniforms(layout uniformLayout, values map[string]Uniform) ([]byte, error) {
	buf := make([]byte, layout.size)
	for _, field := range layout.fields {
		value, ok := values[field.name]
		if !ok {
			continue
		}
		if err := packUniformValue(buf[field.offset:], field, value); err != nil {
			return nil, err
		}
	}
	return buf, nil
}

func packUniformValue(dst []byte, field uniformField, value Uniform) error {
	putF32 := func(off int, v float32) {
		binary.LittleEndian.PutUint32(dst[off:], math.Float32bits(v))
	}
	putI32 := func(off int, v int32) {
		binary.LittleEndian.PutUint32(dst[off:], uint32(v))
	}
	switch v := value.(type) {
	case float32:
		putF32(0, v)
	case int32:
		putI32(0, v)
	case [2]float32:
		putF32(0, v[0])
		putF32(4, v[1])
	case [2]int32:
		putI32(0, v[0])
		putI32(4, v[1])
	case [3]float32:
		putF32(0, v[0])
		putF32(4, v[1])
		putF32(8, v[2])
	case [4]float32:
		for i, f := range v {
			putF32(i*4, f)
		}
	case common.Color4f:
		putF32(0, v.R)
		putF32(4, v.G)
		putF32(8, v.B)
		putF32(12, v.A)
	case mgl32.Mat4:
		for i := 0; i < 16; i++ {
			putF32(i*4, v[i])
		}
	default:
		return fmt.Errorf("uniform %q: unsupported value type %T", field.name, value)
	}
	return nil
}

func alignUp(v, align int) int {
	return (v + align - 1) / align * align
}
