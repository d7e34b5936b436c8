// Package resource resolves file-backed content for the renderer: path
// mapping indirection, shader source loading and image decoding with a
// bounded decode cache.
package resource

// Mapper redirects resource file paths before they are loaded. Packed or
// relocated asset trees install a mapper; its absence means identity
// mapping.
type Mapper interface {
	// MapFilepath translates a logical resource path into the path the
	// loader should actually open.
	//
	// Parameters:
	//   - path: the logical resource path
	//
	// Returns:
	//   - string: the physical path
	MapFilepath(path string) string
}

type identityMapper struct{}

func (identityMapper) MapFilepath(path string) string { return path }

// IdentityMapper returns the mapper that passes every path through
// unchanged.
//
// Returns:
//   - Mapper: the identity mapper
func IdentityMapper() Mapper {
	return identityMapper{}
}
