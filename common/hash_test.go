package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashStringIsStable(t *testing.T) {
	assert.Equal(t, HashString("texture/brick.png"), HashString("texture/brick.png"))
	assert.NotEqual(t, HashString("texture/brick.png"), HashString("texture/stone.png"))
}

func TestHashCombineOrderMatters(t *testing.T) {
	a := HashCombineString(HashCombineString(HashSeed(), "one"), "two")
	b := HashCombineString(HashCombineString(HashSeed(), "two"), "one")
	assert.NotEqual(t, a, b)
}

func TestHashCombineDistinguishesTypes(t *testing.T) {
	base := HashSeed()
	assert.NotEqual(t, HashCombineBool(base, true), HashCombineBool(base, false))
	assert.NotEqual(t, HashCombineFloat32(base, 1.0), HashCombineFloat32(base, 1.0001))
	assert.NotEqual(t, HashCombineInt(base, 0), HashCombineInt(base, 1))
}

func TestHashCombineColorCoversAllChannels(t *testing.T) {
	base := HashSeed()
	c := Color4f{0.1, 0.2, 0.3, 0.4}
	assert.NotEqual(t, HashCombineColor(base, c), HashCombineColor(base, Color4f{0.9, 0.2, 0.3, 0.4}))
	assert.NotEqual(t, HashCombineColor(base, c), HashCombineColor(base, Color4f{0.1, 0.2, 0.3, 0.9}))
	assert.Equal(t, HashCombineColor(base, c), HashCombineColor(base, Color4f{0.1, 0.2, 0.3, 0.4}))
}

func TestHashCombineRect(t *testing.T) {
	base := HashSeed()
	assert.NotEqual(t, HashCombineRect(base, UnitBox), HashCombineRect(base, FRect{0, 0, 0.5, 1}))
}

func TestClamp(t *testing.T) {
	assert.Equal(t, float32(0), Clamp(0, 1, -3))
	assert.Equal(t, float32(1), Clamp(0, 1, 7))
	assert.Equal(t, float32(0.5), Clamp(0, 1, 0.5))
}

func TestWrap(t *testing.T) {
	assert.InDelta(t, 0.25, Wrap(0, 1, 1.25), 1e-6)
	assert.InDelta(t, 0.75, Wrap(0, 1, -0.25), 1e-6)
	assert.InDelta(t, 0.5, Wrap(0, 1, 0.5), 1e-6)
}

func TestLerp(t *testing.T) {
	assert.InDelta(t, 5.0, Lerp(0, 10, 0.5), 1e-6)
	assert.InDelta(t, 0.0, Lerp(0, 10, 0), 1e-6)
	assert.InDelta(t, 10.0, Lerp(0, 10, 1), 1e-6)
}

func TestIsUnitBox(t *testing.T) {
	assert.True(t, UnitBox.IsUnitBox(0.001))
	assert.True(t, FRect{0.0005, 0, 1, 1}.IsUnitBox(0.001))
	assert.False(t, FRect{0, 0, 0.5, 1}.IsUnitBox(0.001))
}

func TestSliceToBytes(t *testing.T) {
	verts := []Vertex{{Pos: [2]float32{1, 2}, TexCoord: [2]float32{3, 4}}}
	raw := SliceToBytes(verts)
	assert.Len(t, raw, VertexStride)
	assert.Nil(t, SliceToBytes([]Vertex{}))
}
