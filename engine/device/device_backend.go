package device

import "github.com/prism2d/prism/common"

// DeviceBackend is the graphics API abstraction the object store drives.
// The store owns all resource bookkeeping (pools, keys, frame stamps); the
// backend owns the API-level objects (modules, pipelines, buffers, GPU
// textures) keyed by the same resource keys. Implementations exist for WGPU
// and for a headless recorder used in tests and GPU-less environments.
//
// All backend methods must be called from the thread that owns the graphics
// context; backends are not required to be thread-safe.
type DeviceBackend interface {
	// CompileShader compiles the shader's source for its stage. On failure
	// the returned error text carries the compiler diagnostic; the backend
	// must not retain a partial object.
	//
	// Parameters:
	//   - s: the shader to compile
	//
	// Returns:
	//   - error: the compile diagnostic, nil on success
	CompileShader(s Shader) error

	// LinkProgram links a compiled vertex+fragment pair under the
	// program's key.
	//
	// Parameters:
	//   - p: the program to link
	//
	// Returns:
	//   - error: the link diagnostic, nil on success
	LinkProgram(p Program) error

	// UploadTexture transfers pixel data for the texture's key.
	//
	// Parameters:
	//   - t: the texture being uploaded
	//   - bmp: the decoded pixel data
	//
	// Returns:
	//   - error: an error if the transfer fails
	UploadTexture(t Texture, bmp common.Bitmap) error

	// Draw issues one draw call: bind the program, upload the geometry if
	// its content version changed, bind the resolved textures to their
	// units, apply the rasterizer state and draw.
	//
	// Parameters:
	//   - p: the linked program
	//   - g: the geometry to draw
	//   - textures: the textures resolved from the program's bindings, one per active unit (entries may be nil when a binding failed to resolve)
	//   - state: the rasterizer state
	//
	// Returns:
	//   - error: an error if the draw could not be issued
	Draw(p Program, g Geometry, textures []Texture, state State) error

	// BeginFrame prepares the backend for a new frame (acquire the target
	// surface, begin the render pass).
	//
	// Returns:
	//   - error: an error if the frame could not be started
	BeginFrame() error

	// EndFrame finishes the frame and submits it for presentation.
	EndFrame()

	// DeleteShader releases the API object behind a shader key.
	//
	// Parameters:
	//   - key: the shader resource key
	DeleteShader(key string)

	// DeleteProgram releases the API object behind a program key.
	//
	// Parameters:
	//   - key: the program resource key
	DeleteProgram(key string)

	// DeleteGeometry releases the API object behind a geometry key.
	//
	// Parameters:
	//   - key: the geometry resource key
	DeleteGeometry(key string)

	// DeleteTexture releases the API object behind a texture key.
	//
	// Parameters:
	//   - key: the texture resource key
	DeleteTexture(key string)

	// Shutdown releases every remaining API object. The backend is
	// unusable afterwards.
	Shutdown()
}
