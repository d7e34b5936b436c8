package device

import "github.com/prism2d/prism/common"

// DrawRecord captures one draw call issued against the headless backend.
type DrawRecord struct {
	ProgramKey  string
	GeometryKey string
	TextureKeys []string
	VertexCount int
	Primitive   DrawPrimitive
	State       State
}

// HeadlessBackend is a DeviceBackend that performs no GPU work and records
// every operation instead. It serves two purposes: it backs the test suite,
// and it lets the engine run in environments without a graphics context
// (CI, servers) where draw output is irrelevant.
//
// Compile, link and upload hooks allow failure injection so the recoverable
// error paths (invalid shader, skipped draw) can be exercised.
type HeadlessBackend struct {
	// CompileHook, when set, decides the outcome of CompileShader.
	CompileHook func(s Shader) error

	// LinkHook, when set, decides the outcome of LinkProgram.
	LinkHook func(p Program) error

	// UploadHook, when set, decides the outcome of UploadTexture.
	UploadHook func(t Texture, bmp common.Bitmap) error

	draws      []DrawRecord
	frames     int
	deletions  map[string]int
	shutdownOK bool
}

var _ DeviceBackend = &HeadlessBackend{}

// NewHeadlessBackend creates a recording backend with no failure hooks.
//
// Returns:
//   - *HeadlessBackend: the new backend
func NewHeadlessBackend() *HeadlessBackend {
	return &HeadlessBackend{
		deletions: make(map[string]int),
	}
}

// Draws returns the draw calls recorded since construction.
//
// Returns:
//   - []DrawRecord: the recorded draw calls in order
func (b *HeadlessBackend) Draws() []DrawRecord { return b.draws }

// FrameCount returns the number of completed BeginFrame calls.
//
// Returns:
//   - int: the frame count
func (b *HeadlessBackend) FrameCount() int { return b.frames }

// Deletions returns how many per-key delete calls were issued, keyed by
// "<kind>/<key>".
//
// Returns:
//   - map[string]int: deletion counts
func (b *HeadlessBackend) Deletions() map[string]int { return b.deletions }

func (b *HeadlessBackend) CompileShader(s Shader) error {
	if b.CompileHook != nil {
		return b.CompileHook(s)
	}
	return nil
}

func (b *HeadlessBackend) LinkProgram(p Program) error {
	if b.LinkHook != nil {
		return b.LinkHook(p)
	}
	return nil
}

func (b *HeadlessBackend) UploadTexture(t Texture, bmp common.Bitmap) error {
	if b.UploadHook != nil {
		return b.UploadHook(t, bmp)
	}
	return nil
}

func (b *HeadlessBackend) Draw(p Program, g Geometry, textures []Texture, state State) error {
	keys := make([]string, 0, len(textures))
	for _, t := range textures {
		if t != nil {
			keys = append(keys, t.Key())
		}
	}
	b.draws = append(b.draws, DrawRecord{
		ProgramKey:  p.Key(),
		GeometryKey: g.Key(),
		TextureKeys: keys,
		VertexCount: g.VertexCount(),
		Primitive:   g.DrawType(),
		State:       state,
	})
	return nil
}

func (b *HeadlessBackend) BeginFrame() error {
	b.frames++
	return nil
}

func (b *HeadlessBackend) EndFrame() {}

func (b *HeadlessBackend) DeleteShader(key string)   { b.deletions["shader/"+key]++ }
func (b *HeadlessBackend) DeleteProgram(key string)  { b.deletions["program/"+key]++ }
func (b *HeadlessBackend) DeleteGeometry(key string) { b.deletions["geometry/"+key]++ }
func (b *HeadlessBackend) DeleteTexture(key string)  { b.deletions["texture/"+key]++ }

func (b *HeadlessBackend) Shutdown() { b.shutdownOK = true }
