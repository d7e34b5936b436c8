package material

import "embed"

// ShaderFS holds the built-in fragment shaders behind the non-custom
// material types. Register it on the resource loader with
// resource.WithShaderFS so ShaderFile paths resolve without touching disk.
//
//go:embed shaders/wgsl
var ShaderFS embed.FS
