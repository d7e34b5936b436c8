package material

import (
	"math/rand/v2"

	"github.com/prism2d/prism/common"
	"github.com/prism2d/prism/engine/resource"
)

// SourceKind identifies what actually backs a texture source's pixel data.
type SourceKind int

const (
	// SourceFile loads pixels from an image file in the filesystem.
	SourceFile SourceKind = iota

	// SourceBuffer wraps an in-memory bitmap.
	SourceBuffer

	// SourceNoise generates pixels procedurally from a noise function.
	SourceNoise
)

// TextureSource acquires the actual texture pixel data for a material
// sampler. Sources carry two hashes: Hash covers the source object itself
// (id, name and content) and feeds the material class hash; ContentHash
// covers only the pixel content and is the key mapping the content to a
// GPU texture, so two sources over equal content share one upload.
type TextureSource interface {
	// Kind reports what backs the pixel data.
	Kind() SourceKind

	// ID returns the source's resource id.
	ID() string

	// Name returns the human readable, settable name.
	Name() string

	// SetName sets the human readable name.
	SetName(name string)

	// Hash covers the source object and its content.
	Hash() uint64

	// ContentHash covers only the pixel content.
	ContentHash() uint64

	// Data loads or generates the pixel data.
	//
	// Parameters:
	//   - loader: the resource loader used by file-backed sources
	//
	// Returns:
	//   - common.Bitmap: the pixel data
	//   - error: an error when the content cannot be produced
	Data(loader resource.Loader) (common.Bitmap, error)

	// Clone creates a copy of this source with a new unique id.
	Clone() TextureSource

	// Copy creates an exact copy, id included.
	Copy() TextureSource
}

// Sampler binds one texture source into a material with its sub-rectangle
// and garbage collection policy.
type Sampler struct {
	// Box is the normalized sub-rectangle of the texture the material
	// samples from. The unit box addresses the whole texture.
	Box common.FRect

	// EnableGC opts the uploaded texture into idle-frame eviction.
	EnableGC bool

	// Source provides the pixel data.
	Source TextureSource
}

const sourceIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

func randomSourceID() string {
	id := make([]byte, 10)
	for i := range id {
		id[i] = sourceIDAlphabet[rand.IntN(len(sourceIDAlphabet))]
	}
	return string(id)
}

// FileSource sources texture data from an image file.
type FileSource struct {
	id   string
	name string
	file string
}

var _ TextureSource = &FileSource{}

// NewFileSource creates a texture source over an image file path.
//
// Parameters:
//   - file: the image path
//
// Returns:
//   - *FileSource: the source
func NewFileSource(file string) *FileSource {
	return &FileSource{
		id:   randomSourceID(),
		file: file,
	}
}

func (s *FileSource) Kind() SourceKind { return SourceFile }
func (s *FileSource) ID() string       { return s.id }
func (s *FileSource) Name() string     { return s.name }

func (s *FileSource) SetName(name string) { s.name = name }

// Filename returns the image file path.
func (s *FileSource) Filename() string { return s.file }

// SetFilename replaces the image file path.
func (s *FileSource) SetFilename(file string) { s.file = file }

func (s *FileSource) Hash() uint64 {
	hash := s.ContentHash()
	hash = common.HashCombineString(hash, s.id)
	hash = common.HashCombineString(hash, s.name)
	return hash
}

func (s *FileSource) ContentHash() uint64 {
	return common.HashString(s.file)
}

func (s *FileSource) Data(loader resource.Loader) (common.Bitmap, error) {
	return loader.LoadImage(s.file)
}

func (s *FileSource) Clone() TextureSource {
	clone := *s
	clone.id = randomSourceID()
	return &clone
}

func (s *FileSource) Copy() TextureSource {
	cp := *s
	return &cp
}

// BufferSource sources texture data from an in-memory bitmap.
type BufferSource struct {
	id     string
	name   string
	bitmap common.Bitmap
}

var _ TextureSource = &BufferSource{}

// NewBufferSource creates a texture source over a CPU-side bitmap.
//
// Parameters:
//   - bitmap: the pixel data
//
// Returns:
//   - *BufferSource: the source
func NewBufferSource(bitmap common.Bitmap) *BufferSource {
	return &BufferSource{
		id:     randomSourceID(),
		bitmap: bitmap,
	}
}

func (s *BufferSource) Kind() SourceKind { return SourceBuffer }
func (s *BufferSource) ID() string       { return s.id }
func (s *BufferSource) Name() string     { return s.name }

func (s *BufferSource) SetName(name string) { s.name = name }

// Bitmap returns the wrapped pixel data.
func (s *BufferSource) Bitmap() common.Bitmap { return s.bitmap }

// SetBitmap replaces the wrapped pixel data.
func (s *BufferSource) SetBitmap(bitmap common.Bitmap) { s.bitmap = bitmap }

func (s *BufferSource) Hash() uint64 {
	hash := s.ContentHash()
	hash = common.HashCombineString(hash, s.id)
	hash = common.HashCombineString(hash, s.name)
	return hash
}

func (s *BufferSource) ContentHash() uint64 {
	hash := common.HashCombineBytes(common.HashSeed(), s.bitmap.Pixels)
	hash = common.HashCombineInt(hash, s.bitmap.Width)
	hash = common.HashCombineInt(hash, s.bitmap.Height)
	return hash
}

func (s *BufferSource) Data(resource.Loader) (common.Bitmap, error) {
	return s.bitmap, nil
}

func (s *BufferSource) Clone() TextureSource {
	clone := *s
	clone.id = randomSourceID()
	return &clone
}

func (s *BufferSource) Copy() TextureSource {
	cp := *s
	return &cp
}

// NoiseSource sources texture data from a procedural noise generator.
type NoiseSource struct {
	id        string
	name      string
	generator NoiseGenerator
}

var _ TextureSource = &NoiseSource{}

// NewNoiseSource creates a texture source over a noise generator.
//
// Parameters:
//   - generator: the noise configuration
//
// Returns:
//   - *NoiseSource: the source
func NewNoiseSource(generator NoiseGenerator) *NoiseSource {
	return &NoiseSource{
		id:        randomSourceID(),
		generator: generator,
	}
}

func (s *NoiseSource) Kind() SourceKind { return SourceNoise }
func (s *NoiseSource) ID() string       { return s.id }
func (s *NoiseSource) Name() string     { return s.name }

func (s *NoiseSource) SetName(name string) { s.name = name }

// Generator returns the noise configuration for editing.
func (s *NoiseSource) Generator() *NoiseGenerator { return &s.generator }

func (s *NoiseSource) Hash() uint64 {
	hash := s.ContentHash()
	hash = common.HashCombineString(hash, s.id)
	hash = common.HashCombineString(hash, s.name)
	return hash
}

func (s *NoiseSource) ContentHash() uint64 {
	return s.generator.Hash()
}

func (s *NoiseSource) Data(resource.Loader) (common.Bitmap, error) {
	return s.generator.Generate(), nil
}

func (s *NoiseSource) Clone() TextureSource {
	clone := *s
	clone.id = randomSourceID()
	return &clone
}

func (s *NoiseSource) Copy() TextureSource {
	cp := *s
	return &cp
}
