package device

import "github.com/prism2d/prism/common"

// texture is the implementation of the Texture interface.
type texture struct {
	key     string
	backend DeviceBackend

	format TextureFormat
	width  int
	height int

	minFilter MinFilter
	magFilter MagFilter
	wrapX     TextureWrap
	wrapY     TextureWrap

	// contentHash identifies the uploaded pixel content so dynamic sources
	// can detect when a re-upload is needed. A hash of zero marks a failed
	// upload; subsequent frames short-circuit on it instead of re-decoding
	// until an explicit reload.
	contentHash uint64

	gcEligible    bool
	lastUsedFrame uint64
	uploaded      bool
}

// Texture is a GPU image object owned by the device. Identity combines the
// pixel source with every flag that affects sampled output, so two logically
// different renderings of the same file are distinct textures. Textures are
// the only resources swept by the default garbage collection policy.
type Texture interface {
	// Key retrieves the unique identifier for this texture, used for caching and lookups.
	//
	// Returns:
	//   - string: the texture's unique key
	Key() string

	// Upload transfers pixel data to the GPU and records dimensions,
	// format and content state. A decode/upload failure leaves the content
	// hash at zero so later frames skip the re-attempt.
	//
	// Parameters:
	//   - bmp: the decoded pixel data
	//
	// Returns:
	//   - error: an error if the backend upload fails
	Upload(bmp common.Bitmap) error

	// Format returns the pixel format of the uploaded content.
	//
	// Returns:
	//   - TextureFormat: the format
	Format() TextureFormat

	// Width returns the texture width in texels.
	//
	// Returns:
	//   - int: the width
	Width() int

	// Height returns the texture height in texels.
	//
	// Returns:
	//   - int: the height
	Height() int

	// IsUploaded reports whether pixel content has been transferred.
	//
	// Returns:
	//   - bool: true after a successful Upload
	IsUploaded() bool

	// SetMinFilter sets the minification filter.
	//
	// Parameters:
	//   - f: the filter
	SetMinFilter(f MinFilter)

	// MinFilter returns the minification filter.
	//
	// Returns:
	//   - MinFilter: the filter
	MinFilter() MinFilter

	// SetMagFilter sets the magnification filter.
	//
	// Parameters:
	//   - f: the filter
	SetMagFilter(f MagFilter)

	// MagFilter returns the magnification filter.
	//
	// Returns:
	//   - MagFilter: the filter
	MagFilter() MagFilter

	// SetWrapX sets the horizontal sampler addressing mode.
	//
	// Parameters:
	//   - w: the wrap mode
	SetWrapX(w TextureWrap)

	// WrapX returns the horizontal sampler addressing mode.
	//
	// Returns:
	//   - TextureWrap: the wrap mode
	WrapX() TextureWrap

	// SetWrapY sets the vertical sampler addressing mode.
	//
	// Parameters:
	//   - w: the wrap mode
	SetWrapY(w TextureWrap)

	// WrapY returns the vertical sampler addressing mode.
	//
	// Returns:
	//   - TextureWrap: the wrap mode
	WrapY() TextureWrap

	// SetContentHash records the identity of the uploaded pixel content.
	// Zero marks a failed upload.
	//
	// Parameters:
	//   - hash: the content hash
	SetContentHash(hash uint64)

	// ContentHash returns the identity of the uploaded pixel content.
	//
	// Returns:
	//   - uint64: the content hash, zero after a failed upload
	ContentHash() uint64

	// EnableGarbageCollection opts the texture in or out of idle-frame
	// eviction. Textures the caller knows will be reused (UI chrome) opt
	// out to avoid thrashing reloads.
	//
	// Parameters:
	//   - eligible: true to allow eviction
	EnableGarbageCollection(eligible bool)

	// IsGarbageCollectable reports whether the texture may be evicted.
	//
	// Returns:
	//   - bool: true when eviction is allowed
	IsGarbageCollectable() bool

	// LastUsedFrame returns the frame number of the last draw that sampled
	// this texture.
	//
	// Returns:
	//   - uint64: the frame stamp
	LastUsedFrame() uint64
}

var _ Texture = &texture{}

func newTexture(key string, backend DeviceBackend) *texture {
	return &texture{
		key:       key,
		backend:   backend,
		minFilter: MinFilterLinear,
		magFilter: MagFilterLinear,
		wrapX:     WrapClamp,
		wrapY:     WrapClamp,
	}
}

func (t *texture) Key() string                 { return t.key }
func (t *texture) Format() TextureFormat       { return t.format }
func (t *texture) Width() int                  { return t.width }
func (t *texture) Height() int                 { return t.height }
func (t *texture) IsUploaded() bool            { return t.uploaded }
func (t *texture) SetMinFilter(f MinFilter)    { t.minFilter = f }
func (t *texture) MinFilter() MinFilter        { return t.minFilter }
func (t *texture) SetMagFilter(f MagFilter)    { t.magFilter = f }
func (t *texture) MagFilter() MagFilter        { return t.magFilter }
func (t *texture) SetWrapX(w TextureWrap)      { t.wrapX = w }
func (t *texture) WrapX() TextureWrap          { return t.wrapX }
func (t *texture) SetWrapY(w TextureWrap)      { t.wrapY = w }
func (t *texture) WrapY() TextureWrap          { return t.wrapY }
func (t *texture) SetContentHash(hash uint64)  { t.contentHash = hash }
func (t *texture) ContentHash() uint64         { return t.contentHash }
func (t *texture) IsGarbageCollectable() bool  { return t.gcEligible }
func (t *texture) LastUsedFrame() uint64       { return t.lastUsedFrame }

func (t *texture) EnableGarbageCollection(eligible bool) {
	t.gcEligible = eligible
}

func (t *texture) Upload(bmp common.Bitmap) error {
	if err := t.backend.UploadTexture(t, bmp); err != nil {
		t.contentHash = 0
		return err
	}
	t.format = FormatFromChannels(bmp.Channels)
	t.width = bmp.Width
	t.height = bmp.Height
	t.uploaded = true
	return nil
}
