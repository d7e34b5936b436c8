package resource

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"os"
	"path"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"

	"github.com/prism2d/prism/common"
)

// DefaultImageCacheSize is the decoded bitmap cache capacity in entries.
const DefaultImageCacheSize = 64

// Loader loads shader sources and decodes image files for the renderer.
// All paths pass through the configured Mapper before being opened.
type Loader interface {
	// LoadShaderSource loads a shader source file. Embedded filesystems
	// registered with WithShaderFS are consulted before the host
	// filesystem, so built-in shader paths resolve without any files on
	// disk.
	//
	// Parameters:
	//   - file: the shader path
	//
	// Returns:
	//   - string: the shader source text
	//   - error: an error if the file could not be read
	LoadShaderSource(file string) (string, error)

	// LoadImage decodes an image file into a CPU-side bitmap. Decoded
	// bitmaps are cached; repeated loads of the same path are cheap until
	// the cache evicts them.
	//
	// Parameters:
	//   - file: the image path (png, jpeg or bmp)
	//
	// Returns:
	//   - common.Bitmap: the decoded pixel data
	//   - error: an error if the file could not be read or decoded
	LoadImage(file string) (common.Bitmap, error)

	// Mapper returns the path mapper in use.
	Mapper() Mapper
}

type loaderImpl struct {
	mapper   Mapper
	shaderFS []fs.FS
	images   *lru.Cache[string, common.Bitmap]
}

var _ Loader = &loaderImpl{}

type loaderOptions struct {
	mapper    Mapper
	shaderFS  []fs.FS
	cacheSize int
}

// LoaderOption configures NewLoader.
type LoaderOption func(*loaderOptions)

// WithMapper installs a path mapper. Without one, paths map to themselves.
//
// Parameters:
//   - mapper: the path mapper
func WithMapper(mapper Mapper) LoaderOption {
	return func(o *loaderOptions) {
		o.mapper = mapper
	}
}

// WithShaderFS registers an embedded filesystem searched for shader files
// before the host filesystem. May be given multiple times; filesystems are
// searched in registration order.
//
// Parameters:
//   - fsys: the filesystem to search
func WithShaderFS(fsys fs.FS) LoaderOption {
	return func(o *loaderOptions) {
		o.shaderFS = append(o.shaderFS, fsys)
	}
}

// WithImageCacheSize overrides the decoded bitmap cache capacity.
//
// Parameters:
//   - entries: the cache capacity in bitmaps
func WithImageCacheSize(entries int) LoaderOption {
	return func(o *loaderOptions) {
		o.cacheSize = entries
	}
}

// NewLoader creates a resource loader.
//
// Parameters:
//   - options: optional configuration
//
// Returns:
//   - Loader: the loader
func NewLoader(options ...LoaderOption) Loader {
	opts := &loaderOptions{
		mapper:    IdentityMapper(),
		cacheSize: DefaultImageCacheSize,
	}
	for _, opt := range options {
		opt(opts)
	}

	cache, err := lru.New[string, common.Bitmap](opts.cacheSize)
	if err != nil {
		panic(err)
	}
	return &loaderImpl{
		mapper:   opts.mapper,
		shaderFS: opts.shaderFS,
		images:   cache,
	}
}

func (l *loaderImpl) Mapper() Mapper {
	return l.mapper
}

func (l *loaderImpl) LoadShaderSource(file string) (string, error) {
	mapped := l.mapper.MapFilepath(file)
	for _, fsys := range l.shaderFS {
		if data, err := fs.ReadFile(fsys, mapped); err == nil {
			return string(data), nil
		}
	}
	data, err := os.ReadFile(mapped)
	if err != nil {
		return "", fmt.Errorf("load shader %q: %w", file, err)
	}
	return string(data), nil
}

func (l *loaderImpl) LoadImage(file string) (common.Bitmap, error) {
	mapped := l.mapper.MapFilepath(file)
	if bitmap, ok := l.images.Get(mapped); ok {
		return bitmap, nil
	}

	data, err := os.ReadFile(mapped)
	if err != nil {
		return common.Bitmap{}, fmt.Errorf("load image %q: %w", file, err)
	}
	bitmap, err := DecodeImage(data, path.Ext(mapped))
	if err != nil {
		return common.Bitmap{}, fmt.Errorf("decode image %q: %w", file, err)
	}

	l.images.Add(mapped, bitmap)
	return bitmap, nil
}

// DecodeImage decodes encoded image bytes into a bitmap. Grayscale images
// decode to a single channel, everything else to RGBA.
//
// Parameters:
//   - data: the encoded image bytes
//   - ext: the file extension hint (".bmp" selects the bmp decoder)
//
// Returns:
//   - common.Bitmap: the decoded pixel data
//   - error: an error if decoding fails
func DecodeImage(data []byte, ext string) (common.Bitmap, error) {
	var img image.Image
	var err error
	if strings.EqualFold(ext, ".bmp") {
		img, err = bmp.Decode(bytes.NewReader(data))
	} else {
		img, _, err = image.Decode(bytes.NewReader(data))
	}
	if err != nil {
		return common.Bitmap{}, err
	}
	return bitmapFromImage(img), nil
}

func bitmapFromImage(img image.Image) common.Bitmap {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	if gray, ok := img.(*image.Gray); ok {
		pixels := make([]byte, width*height)
		for y := 0; y < height; y++ {
			copy(pixels[y*width:(y+1)*width], gray.Pix[y*gray.Stride:y*gray.Stride+width])
		}
		return common.Bitmap{
			Pixels:   pixels,
			Width:    width,
			Height:   height,
			Channels: 1,
		}
	}

	rgba := image.NewNRGBA(image.Rect(0, 0, width, height))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	return common.Bitmap{
		Pixels:   rgba.Pix,
		Width:    width,
		Height:   height,
		Channels: 4,
	}
}
