package device

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prism2d/prism/common"
)

const (
	testVertexSource   = "@vertex fn vs_main() {}"
	testFragmentSource = "@fragment fn fs_main() {}"
)

func newTestDevice() (Device, *HeadlessBackend) {
	backend := NewHeadlessBackend()
	return NewDevice(backend), backend
}

func makeValidProgram(t *testing.T, dev Device, key string) Program {
	t.Helper()
	vs := dev.MakeShader(key+"/vs", StageVertex, testVertexSource)
	fs := dev.MakeShader(key+"/fs", StageFragment, testFragmentSource)
	p := dev.MakeProgram(key, key, vs, fs)
	require.True(t, p.IsValid())
	return p
}

func TestFindReturnsNilWhenAbsent(t *testing.T) {
	dev, _ := newTestDevice()
	assert.Nil(t, dev.FindShader("missing"))
	assert.Nil(t, dev.FindProgram("missing"))
	assert.Nil(t, dev.FindGeometry("missing"))
	assert.Nil(t, dev.FindTexture("missing"))
}

func TestFindReturnsSameHandleAfterMake(t *testing.T) {
	dev, _ := newTestDevice()
	s := dev.MakeShader("vs", StageVertex, testVertexSource)
	assert.Same(t, s, dev.FindShader("vs"))

	g := dev.MakeGeometry("Rectangle")
	assert.Same(t, g, dev.FindGeometry("Rectangle"))

	tex := dev.MakeTexture("brick")
	assert.Same(t, tex, dev.FindTexture("brick"))
}

func TestMakePanicsOnDuplicateKey(t *testing.T) {
	dev, _ := newTestDevice()
	dev.MakeShader("vs", StageVertex, testVertexSource)
	dev.MakeGeometry("Rectangle")
	dev.MakeTexture("brick")
	makeValidProgram(t, dev, "prog")

	assert.PanicsWithValue(t, `device: shader "vs" already exists, Find before Make`, func() {
		dev.MakeShader("vs", StageVertex, testVertexSource)
	})
	assert.PanicsWithValue(t, `device: geometry "Rectangle" already exists, Find before Make`, func() {
		dev.MakeGeometry("Rectangle")
	})
	assert.PanicsWithValue(t, `device: texture "brick" already exists, Find before Make`, func() {
		dev.MakeTexture("brick")
	})
	assert.Panics(t, func() {
		dev.MakeProgram("prog", "prog", dev.FindShader("prog/vs"), dev.FindShader("prog/fs"))
	})
}

func TestCompileFailureIsRecoverable(t *testing.T) {
	backend := NewHeadlessBackend()
	backend.CompileHook = func(s Shader) error {
		return errors.New("syntax error at line 3")
	}
	dev := NewDevice(backend)

	fs := dev.MakeShader("broken/fs", StageFragment, "garbage")
	require.False(t, fs.IsValid())
	assert.Equal(t, "syntax error at line 3", fs.CompileLog())

	// the shader stays in the pool so the failure is not retried every frame
	assert.Same(t, fs, dev.FindShader("broken/fs"))

	backend.CompileHook = nil
	vs := dev.MakeShader("broken/vs", StageVertex, testVertexSource)
	require.True(t, vs.IsValid())

	p := dev.MakeProgram("broken", "broken", vs, fs)
	assert.False(t, p.IsValid())
	assert.Equal(t, "one or more shaders are invalid", p.LinkLog())

	g := dev.MakeGeometry("quad")
	err := dev.Draw(p, g, DefaultState())
	assert.ErrorIs(t, err, ErrInvalidProgram)
	assert.Empty(t, backend.Draws())
}

func TestLinkFailureSkipsDraws(t *testing.T) {
	backend := NewHeadlessBackend()
	backend.LinkHook = func(p Program) error {
		return errors.New("binding mismatch")
	}
	dev := NewDevice(backend)

	vs := dev.MakeShader("vs", StageVertex, testVertexSource)
	fs := dev.MakeShader("fs", StageFragment, testFragmentSource)
	p := dev.MakeProgram("prog", "prog", vs, fs)
	assert.False(t, p.IsValid())
	assert.Equal(t, "binding mismatch", p.LinkLog())

	err := dev.Draw(p, dev.MakeGeometry("quad"), DefaultState())
	assert.ErrorIs(t, err, ErrInvalidProgram)
}

func TestDrawResolvesTextureBindingsByKey(t *testing.T) {
	dev, backend := newTestDevice()
	p := makeValidProgram(t, dev, "prog")
	g := dev.MakeGeometry("quad")

	dev.MakeTexture("brick")
	p.SetTexture("kTexture0", 0, "brick")
	p.SetTexture("kTexture1", 1, "missing")
	p.SetTextureCount(2)

	require.NoError(t, dev.Draw(p, g, DefaultState()))
	require.Len(t, backend.Draws(), 1)

	// the stale key resolves to nil and is simply not sampled
	assert.Equal(t, []string{"brick"}, backend.Draws()[0].TextureKeys)
}

func TestEndFrameAdvancesFrameNumber(t *testing.T) {
	dev, backend := newTestDevice()
	assert.Equal(t, uint64(0), dev.FrameNumber())
	for i := 0; i < 3; i++ {
		require.NoError(t, dev.BeginFrame())
		dev.EndFrame()
	}
	assert.Equal(t, uint64(3), dev.FrameNumber())
	assert.Equal(t, 3, backend.FrameCount())
}

func advanceFrames(t *testing.T, dev Device, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, dev.BeginFrame())
		dev.EndFrame()
	}
}

func TestCleanGarbageEvictsIdleTextures(t *testing.T) {
	dev, backend := newTestDevice()
	tex := dev.MakeTexture("brick")
	tex.EnableGarbageCollection(true)
	dev.MarkTextureUsed("brick")

	const maxIdle = 3

	// one frame short of the threshold: still cached
	advanceFrames(t, dev, maxIdle-1)
	dev.CleanGarbage(maxIdle, GCTextures)
	assert.NotNil(t, dev.FindTexture("brick"))

	// crossing the threshold evicts
	advanceFrames(t, dev, 1)
	dev.CleanGarbage(maxIdle, GCTextures)
	assert.Nil(t, dev.FindTexture("brick"))
	assert.Equal(t, 1, backend.Deletions()["texture/brick"])
}

func TestMarkTextureUsedResetsIdleWindow(t *testing.T) {
	dev, _ := newTestDevice()
	tex := dev.MakeTexture("brick")
	tex.EnableGarbageCollection(true)

	advanceFrames(t, dev, 5)
	dev.MarkTextureUsed("brick")
	advanceFrames(t, dev, 2)

	dev.CleanGarbage(3, GCTextures)
	assert.NotNil(t, dev.FindTexture("brick"))
}

func TestCleanGarbageSkipsIneligibleTextures(t *testing.T) {
	dev, _ := newTestDevice()
	tex := dev.MakeTexture("ui/chrome")
	tex.EnableGarbageCollection(false)

	advanceFrames(t, dev, 100)
	dev.CleanGarbage(1, GCTextures)
	assert.NotNil(t, dev.FindTexture("ui/chrome"))
}

func TestDefaultPolicyKeepsProgramsAndGeometries(t *testing.T) {
	dev, _ := newTestDevice()
	makeValidProgram(t, dev, "prog")
	dev.MakeGeometry("quad")

	advanceFrames(t, dev, 100)
	dev.CleanGarbage(1, GCTextures)

	assert.NotNil(t, dev.FindProgram("prog"))
	assert.NotNil(t, dev.FindGeometry("quad"))
}

func TestCleanGarbageSweepsProgramsWhenFlagged(t *testing.T) {
	dev, backend := newTestDevice()
	makeValidProgram(t, dev, "prog")
	dev.MakeGeometry("quad")

	advanceFrames(t, dev, 10)
	dev.CleanGarbage(5, GCPrograms|GCGeometries)

	assert.Nil(t, dev.FindProgram("prog"))
	assert.Nil(t, dev.FindGeometry("quad"))
	assert.Equal(t, 1, backend.Deletions()["program/prog"])
	assert.Equal(t, 1, backend.Deletions()["geometry/quad"])
}

func TestDrawStampsProgramAndGeometry(t *testing.T) {
	dev, _ := newTestDevice()
	p := makeValidProgram(t, dev, "prog")
	g := dev.MakeGeometry("quad")

	advanceFrames(t, dev, 4)
	require.NoError(t, dev.Draw(p, g, DefaultState()))

	assert.Equal(t, uint64(4), p.LastUsedFrame())
	assert.Equal(t, uint64(4), g.LastUsedFrame())
}

func TestDeletePoolsIssueBackendDeletes(t *testing.T) {
	dev, backend := newTestDevice()
	dev.MakeShader("vs", StageVertex, testVertexSource)
	dev.DeleteShaders()
	assert.Nil(t, dev.FindShader("vs"))
	assert.Equal(t, 1, backend.Deletions()["shader/vs"])

	// the key is free again after the delete
	dev.MakeShader("vs", StageVertex, testVertexSource)
	assert.NotNil(t, dev.FindShader("vs"))
}

func TestResourceStats(t *testing.T) {
	dev, _ := newTestDevice()
	makeValidProgram(t, dev, "prog")
	dev.MakeGeometry("quad")
	dev.MakeTexture("brick")

	stats := dev.ResourceStats()
	assert.Equal(t, ResourceStats{Shaders: 2, Programs: 1, Geometries: 1, Textures: 1}, stats)
}

func TestShutdownReleasesEverything(t *testing.T) {
	dev, backend := newTestDevice()
	makeValidProgram(t, dev, "prog")
	dev.MakeGeometry("quad")
	dev.MakeTexture("brick")

	dev.Shutdown()

	assert.Equal(t, ResourceStats{}, dev.ResourceStats())
	assert.True(t, backend.shutdownOK)
	assert.Equal(t, 1, backend.Deletions()["texture/brick"])
	assert.Equal(t, 1, backend.Deletions()["program/prog"])
}

func TestUploadFailureClearsContentHash(t *testing.T) {
	backend := NewHeadlessBackend()
	backend.UploadHook = func(tex Texture, bmp common.Bitmap) error {
		return errors.New("out of memory")
	}
	dev := NewDevice(backend)

	tex := dev.MakeTexture("brick")
	tex.SetContentHash(42)
	err := tex.Upload(common.Bitmap{Pixels: []byte{0}, Width: 1, Height: 1, Channels: 1})
	require.Error(t, err)
	assert.Zero(t, tex.ContentHash())
	assert.False(t, tex.IsUploaded())
}

func TestDeviceDefaultFilters(t *testing.T) {
	backend := NewHeadlessBackend()
	dev := NewDevice(backend,
		WithDefaultMinFilter(MinFilterTrilinear),
		WithDefaultMagFilter(MagFilterNearest))

	tex := dev.MakeTexture("brick")
	assert.Equal(t, MinFilterTrilinear, tex.MinFilter())
	assert.Equal(t, MagFilterNearest, tex.MagFilter())
}
