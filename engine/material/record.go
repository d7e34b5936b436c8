package material

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/prism2d/prism/common"
	"github.com/prism2d/prism/engine/device"
)

// Record is the serialized form of a MaterialClass. Field names match the
// on-disk material files.
type Record struct {
	ID             string                   `json:"id"`
	ShaderFile     string                   `json:"shader_file,omitempty"`
	Type           string                   `json:"type"`
	Color          [4]float32               `json:"color"`
	Surface        string                   `json:"surface"`
	Gamma          float32                  `json:"gamma"`
	Fps            float32                  `json:"fps"`
	Blending       bool                     `json:"blending"`
	Static         bool                     `json:"static"`
	PremulAlpha    bool                     `json:"premultiply_alpha,omitempty"`
	EnableBloom    bool                     `json:"enable_bloom,omitempty"`
	MinFilter      string                   `json:"texture_min_filter"`
	MagFilter      string                   `json:"texture_mag_filter"`
	WrapX          string                   `json:"texture_wrap_x"`
	WrapY          string                   `json:"texture_wrap_y"`
	TextureScale   [2]float32               `json:"texture_scale"`
	Velocity       [3]float32               `json:"texture_velocity"`
	ColorMap0      [4]float32               `json:"color_map0"`
	ColorMap1      [4]float32               `json:"color_map1"`
	ColorMap2      [4]float32               `json:"color_map2"`
	ColorMap3      [4]float32               `json:"color_map3"`
	ParticleAction string                   `json:"particle_action"`
	Uniforms       map[string]UniformRecord `json:"uniforms,omitempty"`
	Samplers       []SamplerRecord          `json:"samplers,omitempty"`
}

// UniformRecord is the serialized form of one named uniform value.
type UniformRecord struct {
	Type  string    `json:"type"`
	Value []float32 `json:"value"`
}

// SamplerRecord is the serialized form of one texture sampler.
type SamplerRecord struct {
	Box      [4]float32      `json:"box"`
	Type     string          `json:"type"`
	EnableGC bool            `json:"enable_gc"`
	Source   json.RawMessage `json:"source"`
}

type fileSourceRecord struct {
	ID   string `json:"id"`
	File string `json:"file"`
	Name string `json:"name"`
}

type bufferSourceRecord struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Depth  int    `json:"depth"`
	Data   string `json:"data"`
}

type noiseSourceRecord struct {
	ID     string       `json:"id"`
	Name   string       `json:"name"`
	Width  int          `json:"width"`
	Height int          `json:"height"`
	Layers []NoiseLayer `json:"layers"`
}

var typeNames = map[Type]string{
	TypeColor:      "Color",
	TypeGradient:   "Gradient",
	TypeTexture:    "Texture",
	TypeSprite:     "Sprite",
	TypeTilemap:    "Tilemap",
	TypeParticle2D: "Particle2D",
	TypeBasicLight: "BasicLight",
	TypeCustom:     "Custom",
}

var surfaceNames = map[SurfaceType]string{
	SurfaceOpaque:      "Opaque",
	SurfaceTransparent: "Transparent",
	SurfaceEmissive:    "Emissive",
}

var minFilterNames = map[device.MinFilter]string{
	device.MinFilterNearest:   "Nearest",
	device.MinFilterLinear:    "Linear",
	device.MinFilterMipmap:    "Mipmap",
	device.MinFilterBilinear:  "Bilinear",
	device.MinFilterTrilinear: "Trilinear",
}

var magFilterNames = map[device.MagFilter]string{
	device.MagFilterNearest: "Nearest",
	device.MagFilterLinear:  "Linear",
}

var wrapNames = map[device.TextureWrap]string{
	device.WrapClamp:  "Clamp",
	device.WrapRepeat: "Repeat",
}

var particleActionNames = map[ParticleAction]string{
	ParticleActionNone:   "None",
	ParticleActionRotate: "Rotate",
}

func nameOf[K comparable](names map[K]string, key K) string {
	return names[key]
}

func keyOf[K comparable](names map[K]string, name string) (K, error) {
	for key, n := range names {
		if n == name {
			return key, nil
		}
	}
	var zero K
	return zero, fmt.Errorf("material: unknown enum value %q", name)
}

// ToRecord converts the class into its serializable record.
//
// Returns:
//   - Record: the record
//   - error: an error when a texture source cannot be serialized
func (m *MaterialClass) ToRecord() (Record, error) {
	record := Record{
		ID:             m.id,
		ShaderFile:     m.shaderFile,
		Type:           nameOf(typeNames, m.typ),
		Color:          colorToArray(m.baseColor),
		Surface:        nameOf(surfaceNames, m.surfaceType),
		Gamma:          m.gamma,
		Fps:            m.fps,
		Blending:       m.blendFrames,
		Static:         m.static,
		MinFilter:      nameOf(minFilterNames, m.minFilter),
		MagFilter:      nameOf(magFilterNames, m.magFilter),
		WrapX:          nameOf(wrapNames, m.wrapX),
		WrapY:          nameOf(wrapNames, m.wrapY),
		TextureScale:   [2]float32{m.textureScale[0], m.textureScale[1]},
		Velocity:       [3]float32{m.textureVelocity[0], m.textureVelocity[1], m.textureVelocity[2]},
		ColorMap0:      colorToArray(m.colorMap[0]),
		ColorMap1:      colorToArray(m.colorMap[1]),
		ColorMap2:      colorToArray(m.colorMap[2]),
		ColorMap3:      colorToArray(m.colorMap[3]),
		ParticleAction: nameOf(particleActionNames, m.particleAction),
		PremulAlpha:    m.premulAlpha,
		EnableBloom:    m.enableBloom,
	}

	for name, value := range m.uniforms {
		ur, err := uniformToRecord(value)
		if err != nil {
			return Record{}, fmt.Errorf("material: uniform %q: %w", name, err)
		}
		if record.Uniforms == nil {
			record.Uniforms = make(map[string]UniformRecord, len(m.uniforms))
		}
		record.Uniforms[name] = ur
	}

	for _, sampler := range m.samplers {
		sr, err := samplerToRecord(sampler)
		if err != nil {
			return Record{}, err
		}
		record.Samplers = append(record.Samplers, sr)
	}
	return record, nil
}

// FromRecord builds a material class from its serialized record.
//
// Parameters:
//   - record: the record to decode
//
// Returns:
//   - *MaterialClass: the class
//   - error: an error when the record holds unknown enum values or
//     malformed source data
func FromRecord(record Record) (*MaterialClass, error) {
	typ, err := keyOf(typeNames, record.Type)
	if err != nil {
		return nil, err
	}
	surface, err := keyOf(surfaceNames, record.Surface)
	if err != nil {
		return nil, err
	}
	minFilter, err := keyOf(minFilterNames, record.MinFilter)
	if err != nil {
		return nil, err
	}
	magFilter, err := keyOf(magFilterNames, record.MagFilter)
	if err != nil {
		return nil, err
	}
	wrapX, err := keyOf(wrapNames, record.WrapX)
	if err != nil {
		return nil, err
	}
	wrapY, err := keyOf(wrapNames, record.WrapY)
	if err != nil {
		return nil, err
	}
	action, err := keyOf(particleActionNames, record.ParticleAction)
	if err != nil {
		return nil, err
	}

	m := New(typ)
	m.id = record.ID
	m.shaderFile = record.ShaderFile
	m.baseColor = colorFromArray(record.Color)
	m.surfaceType = surface
	m.gamma = record.Gamma
	m.fps = record.Fps
	m.blendFrames = record.Blending
	m.static = record.Static
	m.minFilter = minFilter
	m.magFilter = magFilter
	m.wrapX = wrapX
	m.wrapY = wrapY
	m.textureScale = mgl32.Vec2{record.TextureScale[0], record.TextureScale[1]}
	m.textureVelocity = mgl32.Vec3{record.Velocity[0], record.Velocity[1], record.Velocity[2]}
	m.colorMap[0] = colorFromArray(record.ColorMap0)
	m.colorMap[1] = colorFromArray(record.ColorMap1)
	m.colorMap[2] = colorFromArray(record.ColorMap2)
	m.colorMap[3] = colorFromArray(record.ColorMap3)
	m.particleAction = action
	m.premulAlpha = record.PremulAlpha
	m.enableBloom = record.EnableBloom

	for name, ur := range record.Uniforms {
		value, err := uniformFromRecord(ur)
		if err != nil {
			return nil, fmt.Errorf("material: uniform %q: %w", name, err)
		}
		m.SetUniform(name, value)
	}

	for _, sr := range record.Samplers {
		sampler, err := samplerFromRecord(sr)
		if err != nil {
			return nil, err
		}
		m.samplers = append(m.samplers, sampler)
	}
	return m, nil
}

func samplerToRecord(sampler Sampler) (SamplerRecord, error) {
	var source any
	var kind string
	switch s := sampler.Source.(type) {
	case *FileSource:
		kind = "Filesystem"
		source = fileSourceRecord{ID: s.ID(), File: s.Filename(), Name: s.Name()}
	case *BufferSource:
		kind = "BitmapBuffer"
		bitmap := s.Bitmap()
		source = bufferSourceRecord{
			ID:     s.ID(),
			Name:   s.Name(),
			Width:  bitmap.Width,
			Height: bitmap.Height,
			Depth:  bitmap.Channels,
			Data:   base64.StdEncoding.EncodeToString(bitmap.Pixels),
		}
	case *NoiseSource:
		kind = "BitmapGenerator"
		gen := s.Generator()
		source = noiseSourceRecord{
			ID:     s.ID(),
			Name:   s.Name(),
			Width:  gen.Width,
			Height: gen.Height,
			Layers: gen.Layers,
		}
	default:
		return SamplerRecord{}, fmt.Errorf("material: unserializable texture source %T", sampler.Source)
	}

	raw, err := json.Marshal(source)
	if err != nil {
		return SamplerRecord{}, err
	}
	return SamplerRecord{
		Box:      [4]float32{sampler.Box.X, sampler.Box.Y, sampler.Box.W, sampler.Box.H},
		Type:     kind,
		EnableGC: sampler.EnableGC,
		Source:   raw,
	}, nil
}

func samplerFromRecord(record SamplerRecord) (Sampler, error) {
	sampler := Sampler{
		Box: common.FRect{
			X: record.Box[0], Y: record.Box[1],
			W: record.Box[2], H: record.Box[3],
		},
		EnableGC: record.EnableGC,
	}

	switch record.Type {
	case "Filesystem":
		var sr fileSourceRecord
		if err := json.Unmarshal(record.Source, &sr); err != nil {
			return Sampler{}, err
		}
		source := NewFileSource(sr.File)
		source.id = sr.ID
		source.name = sr.Name
		sampler.Source = source
	case "BitmapBuffer":
		var sr bufferSourceRecord
		if err := json.Unmarshal(record.Source, &sr); err != nil {
			return Sampler{}, err
		}
		pixels, err := base64.StdEncoding.DecodeString(sr.Data)
		if err != nil {
			return Sampler{}, err
		}
		if len(pixels) != sr.Width*sr.Height*sr.Depth {
			return Sampler{}, fmt.Errorf("material: bitmap buffer size mismatch in sampler %q", sr.ID)
		}
		source := NewBufferSource(common.Bitmap{
			Pixels:   pixels,
			Width:    sr.Width,
			Height:   sr.Height,
			Channels: sr.Depth,
		})
		source.id = sr.ID
		source.name = sr.Name
		sampler.Source = source
	case "BitmapGenerator":
		var sr noiseSourceRecord
		if err := json.Unmarshal(record.Source, &sr); err != nil {
			return Sampler{}, err
		}
		source := NewNoiseSource(NoiseGenerator{
			Width:  sr.Width,
			Height: sr.Height,
			Layers: sr.Layers,
		})
		source.id = sr.ID
		source.name = sr.Name
		sampler.Source = source
	default:
		return Sampler{}, fmt.Errorf("material: unknown texture source type %q", record.Type)
	}
	return sampler, nil
}

func uniformToRecord(value device.Uniform) (UniformRecord, error) {
	switch v := value.(type) {
	case float32:
		return UniformRecord{Type: "Float", Value: []float32{v}}, nil
	case int32:
		return UniformRecord{Type: "Int", Value: []float32{float32(v)}}, nil
	case int:
		return UniformRecord{Type: "Int", Value: []float32{float32(v)}}, nil
	case [2]float32:
		return UniformRecord{Type: "Vec2", Value: []float32{v[0], v[1]}}, nil
	case [2]int32:
		return UniformRecord{Type: "IVec2", Value: []float32{float32(v[0]), float32(v[1])}}, nil
	case [3]float32:
		return UniformRecord{Type: "Vec3", Value: []float32{v[0], v[1], v[2]}}, nil
	case [4]float32:
		return UniformRecord{Type: "Vec4", Value: []float32{v[0], v[1], v[2], v[3]}}, nil
	case common.Color4f:
		return UniformRecord{Type: "Color", Value: []float32{v.R, v.G, v.B, v.A}}, nil
	default:
		return UniformRecord{}, fmt.Errorf("unserializable uniform value %T", value)
	}
}

func uniformFromRecord(record UniformRecord) (device.Uniform, error) {
	arity := map[string]int{
		"Float": 1, "Int": 1, "Vec2": 2, "IVec2": 2,
		"Vec3": 3, "Vec4": 4, "Color": 4,
	}
	want, ok := arity[record.Type]
	if !ok {
		return nil, fmt.Errorf("unknown uniform type %q", record.Type)
	}
	if len(record.Value) != want {
		return nil, fmt.Errorf("uniform type %q holds %d values, not %d",
			record.Type, want, len(record.Value))
	}
	v := record.Value
	switch record.Type {
	case "Float":
		return v[0], nil
	case "Int":
		return int32(v[0]), nil
	case "Vec2":
		return [2]float32{v[0], v[1]}, nil
	case "IVec2":
		return [2]int32{int32(v[0]), int32(v[1])}, nil
	case "Vec3":
		return [3]float32{v[0], v[1], v[2]}, nil
	case "Vec4":
		return [4]float32{v[0], v[1], v[2], v[3]}, nil
	}
	return common.Color4f{R: v[0], G: v[1], B: v[2], A: v[3]}, nil
}

func colorToArray(c common.Color4f) [4]float32 {
	return [4]float32{c.R, c.G, c.B, c.A}
}

func colorFromArray(a [4]float32) common.Color4f {
	return common.Color4f{R: a[0], G: a[1], B: a[2], A: a[3]}
}
