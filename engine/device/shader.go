package device

// shader is the implementation of the Shader interface.
type shader struct {
	key        string
	stage      ShaderStage
	source     string
	valid      bool
	compileLog string
}

// Shader is a compiled single-stage program fragment owned by the device.
// A shader that failed to compile stays in the pool in the invalid state
// with the compiler diagnostic retained; the only way to force a recompile
// is an explicit DeleteShaders call.
type Shader interface {
	// Key retrieves the unique identifier for this shader, used for caching and lookups.
	//
	// Returns:
	//   - string: the shader's unique key
	Key() string

	// Stage returns the pipeline stage this shader compiles for.
	//
	// Returns:
	//   - ShaderStage: StageVertex or StageFragment
	Stage() ShaderStage

	// Source retrieves the shader source text.
	//
	// Returns:
	//   - string: the source code of the shader
	Source() string

	// IsValid reports whether compilation succeeded. Draws using an invalid
	// shader's program must be skipped.
	//
	// Returns:
	//   - bool: true when the shader compiled successfully
	IsValid() bool

	// CompileLog returns the compiler diagnostic from the last compile
	// attempt, empty on success.
	//
	// Returns:
	//   - string: the compiler log text
	CompileLog() string

	// SetValid records the compile outcome. Called by the device backend.
	//
	// Parameters:
	//   - valid: the compile outcome
	SetValid(valid bool)

	// SetCompileLog stores the compiler diagnostic. Called by the device backend.
	//
	// Parameters:
	//   - log: the compiler log text
	SetCompileLog(log string)
}

var _ Shader = &shader{}

func newShader(key string, stage ShaderStage, source string) *shader {
	return &shader{
		key:    key,
		stage:  stage,
		source: source,
	}
}

func (s *shader) Key() string          { return s.key }
func (s *shader) Stage() ShaderStage   { return s.stage }
func (s *shader) Source() string       { return s.source }
func (s *shader) IsValid() bool        { return s.valid }
func (s *shader) CompileLog() string   { return s.compileLog }
func (s *shader) SetValid(valid bool)  { s.valid = valid }
func (s *shader) SetCompileLog(l string) { s.compileLog = l }
