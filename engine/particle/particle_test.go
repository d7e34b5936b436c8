package particle

import (
	"math/rand/v2"
	"testing"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prism2d/prism/engine/device"
)

func seededRand() *rand.Rand {
	return rand.New(rand.NewPCG(7, 11))
}

func vec2(x, y float32) mgl32.Vec2 {
	return mgl32.Vec2{x, y}
}

func baseParams() Params {
	return Params{
		Spawn:        SpawnOnce,
		Boundary:     BoundaryClamp,
		NumParticles: 10,
		MaxX:         100,
		MaxY:         100,
		EmitterX:     40,
		EmitterY:     40,
		EmitterW:     20,
		EmitterH:     20,
		MinLifetime:  10,
		MaxLifetime:  10,
		MinVelocity:  5,
		MaxVelocity:  10,
		MinPointSize: 2,
		MaxPointSize: 4,
		MinAlpha:     1,
		MaxAlpha:     1,
		SectorSize:   6.2831853,
	}
}

func TestSpawnOnceHatchesPopulationAtStart(t *testing.T) {
	e := NewEngine(baseParams(), WithRand(seededRand()))
	assert.Equal(t, 10, e.NumParticlesAlive())

	// dying particles are not replaced
	params := baseParams()
	params.MinLifetime = 0.5
	params.MaxLifetime = 0.5
	e = NewEngine(params, WithRand(seededRand()))
	e.Update(1.0)
	assert.Zero(t, e.NumParticlesAlive())
}

func TestSpawnMaintainTopsUp(t *testing.T) {
	params := baseParams()
	params.Spawn = SpawnMaintain
	params.MinLifetime = 0.5
	params.MaxLifetime = 0.5

	e := NewEngine(params, WithRand(seededRand()))
	require.Equal(t, 10, e.NumParticlesAlive())

	// the whole population expires, the next tick replaces it
	e.Update(1.0)
	assert.Zero(t, e.NumParticlesAlive())
	e.Update(0.1)
	assert.Equal(t, 10, e.NumParticlesAlive())
}

func TestSpawnContinuousAccumulatesFractions(t *testing.T) {
	params := baseParams()
	params.Spawn = SpawnContinuous
	params.NumParticles = 2.5

	e := NewEngine(params, WithRand(seededRand()))
	assert.Zero(t, e.NumParticlesAlive())

	for i := 0; i < 4; i++ {
		e.Update(1.0)
	}
	// 2.5 per second over 4 seconds, nothing dies within its lifetime
	assert.Equal(t, 10, e.NumParticlesAlive())
}

func TestParticlesSpawnInsideEmitter(t *testing.T) {
	e := NewEngine(baseParams(), WithRand(seededRand()))
	for _, p := range e.Particles() {
		assert.GreaterOrEqual(t, p.Position[0], float32(40))
		assert.LessOrEqual(t, p.Position[0], float32(60))
		assert.GreaterOrEqual(t, p.Position[1], float32(40))
		assert.LessOrEqual(t, p.Position[1], float32(60))
	}
}

func TestPlacementCenter(t *testing.T) {
	params := baseParams()
	params.Placement = PlacementCenter
	e := NewEngine(params, WithRand(seededRand()))
	for _, p := range e.Particles() {
		assert.Equal(t, float32(50), p.Position[0])
		assert.Equal(t, float32(50), p.Position[1])
	}
}

func TestCircleEdgePlacement(t *testing.T) {
	params := baseParams()
	params.Shape = EmitterCircle
	params.Placement = PlacementEdge
	e := NewEngine(params, WithRand(seededRand()))
	for _, p := range e.Particles() {
		radius := p.Position.Sub(vec2(50, 50)).Len()
		assert.InDelta(t, 10.0, radius, 1e-3)
	}
}

func TestDirectionOutwards(t *testing.T) {
	params := baseParams()
	params.Direction = DirectionOutwards
	e := NewEngine(params, WithRand(seededRand()))
	for _, p := range e.Particles() {
		offset := p.Position.Sub(vec2(50, 50))
		if offset.Len() < 1e-6 {
			continue
		}
		assert.Greater(t, offset.Dot(p.Direction), float32(0))
	}
}

func TestVelocityRangeRespected(t *testing.T) {
	e := NewEngine(baseParams(), WithRand(seededRand()))
	for _, p := range e.Particles() {
		speed := p.Direction.Len()
		assert.GreaterOrEqual(t, speed, float32(4.99))
		assert.LessOrEqual(t, speed, float32(10.01))
	}
}

func TestBoundaryKillRemovesEscapees(t *testing.T) {
	params := baseParams()
	params.Boundary = BoundaryKill
	params.MinVelocity = 500
	params.MaxVelocity = 500

	e := NewEngine(params, WithRand(seededRand()))
	require.Equal(t, 10, e.NumParticlesAlive())
	e.Update(1.0)
	assert.Zero(t, e.NumParticlesAlive())
}

func TestBoundaryClampKeepsParticlesInBounds(t *testing.T) {
	params := baseParams()
	params.MinVelocity = 500
	params.MaxVelocity = 500

	e := NewEngine(params, WithRand(seededRand()))
	e.Update(1.0)
	require.Equal(t, 10, e.NumParticlesAlive())
	for _, p := range e.Particles() {
		assert.GreaterOrEqual(t, p.Position[0], float32(0))
		assert.LessOrEqual(t, p.Position[0], float32(100))
		assert.GreaterOrEqual(t, p.Position[1], float32(0))
		assert.LessOrEqual(t, p.Position[1], float32(100))
	}
}

func TestBoundaryWrapKeepsParticlesInBounds(t *testing.T) {
	params := baseParams()
	params.Boundary = BoundaryWrap
	params.MinVelocity = 150
	params.MaxVelocity = 150

	e := NewEngine(params, WithRand(seededRand()))
	e.Update(1.0)
	require.Equal(t, 10, e.NumParticlesAlive())
	for _, p := range e.Particles() {
		assert.GreaterOrEqual(t, p.Position[0], float32(0))
		assert.Less(t, p.Position[0], float32(100))
		assert.GreaterOrEqual(t, p.Position[1], float32(0))
		assert.Less(t, p.Position[1], float32(100))
	}
}

func TestBoundaryReflectPreservesSpeed(t *testing.T) {
	params := baseParams()
	params.Boundary = BoundaryReflect
	params.MinVelocity = 80
	params.MaxVelocity = 80

	e := NewEngine(params, WithRand(seededRand()))
	e.Update(1.0)
	require.Equal(t, 10, e.NumParticlesAlive())
	for _, p := range e.Particles() {
		assert.InDelta(t, 80.0, p.Direction.Len(), 1e-2)
		assert.GreaterOrEqual(t, p.Position[0], float32(0))
		assert.LessOrEqual(t, p.Position[0], float32(100))
	}
}

func TestBoundaryReflectZeroVelocityStaysFinite(t *testing.T) {
	params := baseParams()
	params.Boundary = BoundaryReflect
	params.MinVelocity = 0
	params.MaxVelocity = 0
	// emitter past the right edge so the very first update reflects a
	// particle that has no incident direction.
	params.EmitterX = 120
	params.EmitterY = 40

	e := NewEngine(params, WithRand(seededRand()))
	e.Update(0.1)
	require.Equal(t, 10, e.NumParticlesAlive())
	for _, p := range e.Particles() {
		assert.False(t, math32.IsNaN(p.Position[0]))
		assert.False(t, math32.IsNaN(p.Position[1]))
		assert.False(t, math32.IsNaN(p.Direction[0]))
		assert.False(t, math32.IsNaN(p.Direction[1]))
		assert.LessOrEqual(t, p.Position[0], float32(100))
	}
}

func TestProjectileMotionAppliesGravity(t *testing.T) {
	params := baseParams()
	params.Motion = MotionProjectile
	params.Placement = PlacementCenter
	params.SectorStart = 0
	params.SectorSize = 0
	params.MinVelocity = 1
	params.MaxVelocity = 1
	params.Gravity = vec2(0, 10)

	e := NewEngine(params, WithRand(seededRand()))
	e.Update(0.5)
	for _, p := range e.Particles() {
		// direction gained gravity * dt on the y axis
		assert.InDelta(t, 5.0, p.Direction[1], 1e-3)
	}
}

func TestGrowthAndFade(t *testing.T) {
	params := baseParams()
	params.Placement = PlacementCenter
	params.MinVelocity = 10
	params.MaxVelocity = 10
	params.MinPointSize = 2
	params.MaxPointSize = 2
	params.GrowthWrtTime = 1
	params.GrowthWrtDist = 0.5
	params.AlphaGrowthWrtTime = -0.25

	e := NewEngine(params, WithRand(seededRand()))
	e.Update(1.0)
	require.NotZero(t, e.NumParticlesAlive())
	for _, p := range e.Particles() {
		// 1s of time growth plus 10 units of travel at half rate
		assert.InDelta(t, 8.0, p.PointSize, 1e-3)
		assert.InDelta(t, 0.75, p.Alpha, 1e-3)
		assert.InDelta(t, 10.0, p.Distance, 1e-3)
	}
}

func TestFadedParticlesDie(t *testing.T) {
	params := baseParams()
	params.AlphaGrowthWrtTime = -2

	e := NewEngine(params, WithRand(seededRand()))
	e.Update(1.0)
	assert.Zero(t, e.NumParticlesAlive())
}

func TestDeterministicWithSeed(t *testing.T) {
	a := NewEngine(baseParams(), WithRand(seededRand()))
	b := NewEngine(baseParams(), WithRand(seededRand()))
	a.Update(0.5)
	b.Update(0.5)
	assert.Equal(t, a.Particles(), b.Particles())
}

func TestRestartRehatches(t *testing.T) {
	e := NewEngine(baseParams(), WithRand(seededRand()))
	e.Update(100)
	require.Zero(t, e.NumParticlesAlive())

	e.Restart()
	assert.Equal(t, 10, e.NumParticlesAlive())
}

func TestUploadProducesPointGeometry(t *testing.T) {
	dev := device.NewDevice(device.NewHeadlessBackend())
	e := NewEngine(baseParams(), WithRand(seededRand()))

	g := dev.MakeGeometry(e.GeometryKey())
	e.Upload(g)

	assert.Equal(t, e.NumParticlesAlive(), g.VertexCount())
	assert.Equal(t, device.DrawPoints, g.DrawType())
	for _, v := range g.Vertices() {
		assert.GreaterOrEqual(t, v.Pos[0], float32(0))
		assert.LessOrEqual(t, v.Pos[0], float32(1))
		assert.GreaterOrEqual(t, v.Pos[1], float32(-1))
		assert.LessOrEqual(t, v.Pos[1], float32(0))
		// texcoord carries point size and alpha
		assert.GreaterOrEqual(t, v.TexCoord[0], float32(2))
		assert.LessOrEqual(t, v.TexCoord[0], float32(4))
		assert.Equal(t, float32(1), v.TexCoord[1])
	}
}

func TestEngineKeysAreUnique(t *testing.T) {
	a := NewEngine(baseParams(), WithRand(seededRand()))
	b := NewEngine(baseParams(), WithRand(seededRand()))
	assert.NotEqual(t, a.GeometryKey(), b.GeometryKey())
	assert.False(t, a.IsStatic())
}

func TestGroupUpdatesAllEngines(t *testing.T) {
	group := NewGroup()
	a := NewEngine(baseParams(), WithRand(seededRand()))
	b := NewEngine(baseParams(), WithRand(seededRand()))
	group.Add(a)
	group.Add(b)

	before := a.Particles()[0].Position
	group.Update(0.5)
	assert.NotEqual(t, before, a.Particles()[0].Position)
	assert.Len(t, group.Engines(), 2)

	group.Remove(a)
	assert.Len(t, group.Engines(), 1)
}

func TestGroupParallelMatchesSerial(t *testing.T) {
	serial := NewGroup()
	parallel := NewGroup(WithWorkers(4))
	for i := 0; i < 8; i++ {
		serial.Add(NewEngine(baseParams(), WithRand(rand.New(rand.NewPCG(uint64(i), 3)))))
		parallel.Add(NewEngine(baseParams(), WithRand(rand.New(rand.NewPCG(uint64(i), 3)))))
	}

	for i := 0; i < 10; i++ {
		serial.Update(0.1)
		parallel.Update(0.1)
	}
	for i := range serial.Engines() {
		assert.Equal(t, serial.Engines()[i].Particles(), parallel.Engines()[i].Particles())
	}
}

func TestGroupRestart(t *testing.T) {
	group := NewGroup()
	e := NewEngine(baseParams(), WithRand(seededRand()))
	group.Add(e)

	e.Update(100)
	require.Zero(t, e.NumParticlesAlive())
	group.Restart()
	assert.Equal(t, 10, e.NumParticlesAlive())
}
