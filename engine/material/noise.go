package material

import (
	"github.com/chewxy/math32"

	"github.com/prism2d/prism/common"
)

// NoiseLayer is one octave of lattice value noise. The prime seeds drive
// the integer hash so two layers with different primes decorrelate.
type NoiseLayer struct {
	Prime0    uint32
	Prime1    uint32
	Prime2    uint32
	Frequency float32
	Amplitude float32
}

// DefaultNoiseLayer returns a layer with the default seeds and unit
// frequency and amplitude.
func DefaultNoiseLayer() NoiseLayer {
	return NoiseLayer{
		Prime0:    7,
		Prime1:    743,
		Prime2:    7873,
		Frequency: 1.0,
		Amplitude: 1.0,
	}
}

// NoiseGenerator fills a grayscale bitmap by sampling a stack of noise
// layers and summing their signals.
type NoiseGenerator struct {
	Width  int
	Height int
	Layers []NoiseLayer
}

// Generate renders the noise into a single-channel bitmap. The per-pixel
// sum of the layers is clamped into the 0-255 range.
//
// Returns:
//   - common.Bitmap: the generated grayscale bitmap
func (g *NoiseGenerator) Generate() common.Bitmap {
	pixels := make([]byte, g.Width*g.Height)
	w := float32(g.Width)
	h := float32(g.Height)
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			var pixel float32
			for _, layer := range g.Layers {
				amplitude := common.Clamp(0.0, 255.0, layer.Amplitude)
				sample := layer.sample(float32(x)/w, float32(y)/h)
				pixel += sample * amplitude
			}
			pixels[y*g.Width+x] = byte(common.Clamp(0.0, 255.0, pixel))
		}
	}
	return common.Bitmap{
		Pixels:   pixels,
		Width:    g.Width,
		Height:   g.Height,
		Channels: 1,
	}
}

// Hash covers the dimensions and every layer parameter, so two generators
// with the same configuration share GPU content.
//
// Returns:
//   - uint64: the content hash
func (g *NoiseGenerator) Hash() uint64 {
	hash := common.HashSeed()
	hash = common.HashCombineInt(hash, g.Width)
	hash = common.HashCombineInt(hash, g.Height)
	for _, layer := range g.Layers {
		hash = common.HashCombineUint64(hash, uint64(layer.Prime0))
		hash = common.HashCombineUint64(hash, uint64(layer.Prime1))
		hash = common.HashCombineUint64(hash, uint64(layer.Prime2))
		hash = common.HashCombineFloat32(hash, layer.Amplitude)
		hash = common.HashCombineFloat32(hash, layer.Frequency)
	}
	return hash
}

// sample evaluates the layer at normalized coordinates with bilinear
// smoothing between lattice points. Result is in [0, 1].
func (l NoiseLayer) sample(u, v float32) float32 {
	x := u * l.Frequency * 256.0
	y := v * l.Frequency * 256.0
	x0 := math32.Floor(x)
	y0 := math32.Floor(y)
	fx := x - x0
	fy := y - y0

	s00 := l.lattice(int(x0), int(y0))
	s10 := l.lattice(int(x0)+1, int(y0))
	s01 := l.lattice(int(x0), int(y0)+1)
	s11 := l.lattice(int(x0)+1, int(y0)+1)

	top := common.Lerp(s00, s10, fx)
	bot := common.Lerp(s01, s11, fx)
	return common.Lerp(top, bot, fy)*0.5 + 0.5
}

// lattice is the classic integer-hash noise function seeded by the layer
// primes. Result is in [-1, 1].
func (l NoiseLayer) lattice(x, y int) float32 {
	n := uint32(x) + uint32(y)*57
	n = (n << 13) ^ n
	v := n*(n*n*l.Prime0+l.Prime1) + l.Prime2
	return 1.0 - float32(v&0x7fffffff)/1073741824.0
}
