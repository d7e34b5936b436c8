// Package particle implements a CPU-side kinematic particle simulator.
// Each engine instance integrates a point cloud and uploads it as dynamic
// point geometry, one vertex per live particle.
package particle

import (
	"fmt"
	"math/rand/v2"
	"sync/atomic"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/prism2d/prism/common"
	"github.com/prism2d/prism/engine/device"
	"github.com/prism2d/prism/engine/drawable"
)

// SpawnPolicy controls when new particles hatch.
type SpawnPolicy int

const (
	// SpawnOnce hatches the full population at start and never again.
	SpawnOnce SpawnPolicy = iota
	// SpawnMaintain tops the population back up after particles die.
	SpawnMaintain
	// SpawnContinuous hatches NumParticles new particles per second.
	SpawnContinuous
)

// BoundaryPolicy controls what happens when a particle leaves the
// simulation bounds.
type BoundaryPolicy int

const (
	// BoundaryWrap wraps the position modulo the bounds.
	BoundaryWrap BoundaryPolicy = iota
	// BoundaryClamp saturates the position into the bounds.
	BoundaryClamp
	// BoundaryKill removes the particle.
	BoundaryKill
	// BoundaryReflect mirrors the direction about the violated boundary's
	// normal, preserving speed, and clamps the position.
	BoundaryReflect
)

// Motion selects the integration model.
type Motion int

const (
	// MotionLinear integrates position only.
	MotionLinear Motion = iota
	// MotionProjectile additionally applies gravity to the direction.
	MotionProjectile
)

// EmitterShape is the region new particles are placed in.
type EmitterShape int

const (
	EmitterRectangle EmitterShape = iota
	EmitterCircle
)

// Placement selects where inside the emitter shape particles start.
type Placement int

const (
	PlacementInside Placement = iota
	PlacementCenter
	PlacementEdge
)

// Direction selects the initial heading of new particles.
type Direction int

const (
	// DirectionSector picks a random angle inside the configured sector.
	DirectionSector Direction = iota
	// DirectionInwards points at the emitter center.
	DirectionInwards
	// DirectionOutwards points away from the emitter center.
	DirectionOutwards
)

// Particle is one simulated point. Direction carries the speed baked in.
type Particle struct {
	Position  mgl32.Vec2
	Direction mgl32.Vec2
	Lifetime  float32
	PointSize float32
	Alpha     float32
	Distance  float32
}

// Params is the immutable description of a particle effect, shared by any
// number of engine instances.
type Params struct {
	Motion    Motion
	Spawn     SpawnPolicy
	Boundary  BoundaryPolicy
	Shape     EmitterShape
	Placement Placement
	Direction Direction

	// NumParticles is the population for Once/Maintain and the hatch rate
	// per second for Continuous.
	NumParticles float32

	// simulation bounds, positions live in [0, MaxX] x [0, MaxY].
	MaxX float32
	MaxY float32

	// emitter region in simulation units.
	EmitterX float32
	EmitterY float32
	EmitterW float32
	EmitterH float32

	MinLifetime  float32
	MaxLifetime  float32
	MinVelocity  float32
	MaxVelocity  float32
	MinPointSize float32
	MaxPointSize float32
	MinAlpha     float32
	MaxAlpha     float32

	// sector of initial headings in radians, used by DirectionSector.
	SectorStart float32
	SectorSize  float32

	// point size growth per second and per unit of travelled distance.
	GrowthWrtTime float32
	GrowthWrtDist float32

	// alpha change per second, negative values fade particles out.
	AlphaGrowthWrtTime float32

	// gravity applied to the direction under MotionProjectile.
	Gravity mgl32.Vec2
}

// Engine is one live simulation of a Params description.
type Engine struct {
	params    Params
	particles []Particle
	hatching  float32
	rng       *rand.Rand
	key       string
}

var _ drawable.Drawable = &Engine{}

// EngineOption configures NewEngine.
type EngineOption func(*Engine)

// WithRand injects the random source, making the simulation fully
// deterministic for a given seed.
//
// Parameters:
//   - rng: the random source
//
// Returns:
//   - EngineOption: a function that applies the option to an engine
func WithRand(rng *rand.Rand) EngineOption {
	return func(e *Engine) {
		e.rng = rng
	}
}

var engineCounter atomic.Uint64

// NewEngine creates a particle engine and hatches the initial population
// for the SpawnOnce and SpawnMaintain policies.
//
// Parameters:
//   - params: the effect description
//   - options: optional configuration
//
// Returns:
//   - *Engine: the engine
func NewEngine(params Params, options ...EngineOption) *Engine {
	e := &Engine{
		params: params,
		key:    fmt.Sprintf("Particles/%d", engineCounter.Add(1)),
	}
	for _, opt := range options {
		opt(e)
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	e.Restart()
	return e
}

// Params returns the effect description the engine simulates.
func (e *Engine) Params() Params { return e.params }

// NumParticlesAlive returns the current live population.
func (e *Engine) NumParticlesAlive() int { return len(e.particles) }

// Particles returns the live particle slice. The slice is live simulation
// state, not a copy.
func (e *Engine) Particles() []Particle { return e.particles }

// Restart clears the simulation and hatches the initial population.
func (e *Engine) Restart() {
	e.particles = e.particles[:0]
	e.hatching = 0
	if e.params.Spawn == SpawnOnce || e.params.Spawn == SpawnMaintain {
		e.spawn(int(e.params.NumParticles))
	}
}

// Update advances the simulation by dt seconds: hatches new particles per
// the spawn policy, integrates every particle and applies the boundary
// policy.
//
// Parameters:
//   - dt: elapsed seconds
func (e *Engine) Update(dt float32) {
	switch e.params.Spawn {
	case SpawnContinuous:
		// fractional hatching accumulates so low rates still spawn.
		e.hatching += e.params.NumParticles * dt
		count := int(e.hatching)
		e.spawn(count)
		e.hatching -= float32(count)
	case SpawnMaintain:
		if missing := int(e.params.NumParticles) - len(e.particles); missing > 0 {
			e.spawn(missing)
		}
	}

	for i := 0; i < len(e.particles); {
		if e.integrate(&e.particles[i], dt) {
			i++
			continue
		}
		e.kill(i)
	}
}

// integrate advances one particle. Returns false when the particle died.
func (e *Engine) integrate(p *Particle, dt float32) bool {
	if e.params.Motion == MotionProjectile {
		p.Direction = p.Direction.Add(e.params.Gravity.Mul(dt))
	}

	previous := p.Position
	p.Position = p.Position.Add(p.Direction.Mul(dt))
	travelled := p.Position.Sub(previous).Len()
	p.Distance += travelled

	p.PointSize += dt*e.params.GrowthWrtTime + travelled*e.params.GrowthWrtDist
	p.Alpha += dt * e.params.AlphaGrowthWrtTime
	p.Lifetime -= dt
	if p.Lifetime <= 0 || p.PointSize <= 0 || p.Alpha <= 0 {
		return false
	}

	inside := p.Position[0] >= 0 && p.Position[0] <= e.params.MaxX &&
		p.Position[1] >= 0 && p.Position[1] <= e.params.MaxY
	if inside {
		return true
	}

	switch e.params.Boundary {
	case BoundaryWrap:
		p.Position[0] = common.Wrap(0, e.params.MaxX, p.Position[0])
		p.Position[1] = common.Wrap(0, e.params.MaxY, p.Position[1])
	case BoundaryClamp:
		p.Position[0] = common.Clamp(0, e.params.MaxX, p.Position[0])
		p.Position[1] = common.Clamp(0, e.params.MaxY, p.Position[1])
	case BoundaryKill:
		return false
	case BoundaryReflect:
		var normal mgl32.Vec2
		switch {
		case p.Position[0] < 0:
			normal = mgl32.Vec2{1, 0}
		case p.Position[0] > e.params.MaxX:
			normal = mgl32.Vec2{-1, 0}
		case p.Position[1] < 0:
			normal = mgl32.Vec2{0, 1}
		default:
			normal = mgl32.Vec2{0, -1}
		}
		// mirror about the boundary normal preserving speed exactly. A
		// zero-velocity particle has no meaningful incident direction, so
		// safeNormalize keeps the math finite instead of spreading NaNs.
		speed := p.Direction.Len()
		unit := safeNormalize(p.Direction)
		p.Direction = unit.Sub(normal.Mul(2 * unit.Dot(normal))).Mul(speed)
		// clamp so float drift cannot re-trigger the same reflection on
		// the next tick.
		p.Position[0] = common.Clamp(0, e.params.MaxX, p.Position[0])
		p.Position[1] = common.Clamp(0, e.params.MaxY, p.Position[1])
	}
	return true
}

// kill removes the particle at index by swapping with the last entry.
func (e *Engine) kill(index int) {
	last := len(e.particles) - 1
	e.particles[index] = e.particles[last]
	e.particles = e.particles[:last]
}

func (e *Engine) spawn(count int) {
	for i := 0; i < count; i++ {
		position := e.place()
		e.particles = append(e.particles, Particle{
			Position:  position,
			Direction: e.heading(position),
			Lifetime:  e.random(e.params.MinLifetime, e.params.MaxLifetime),
			PointSize: e.random(e.params.MinPointSize, e.params.MaxPointSize),
			Alpha:     e.random(e.params.MinAlpha, e.params.MaxAlpha),
		})
	}
}

// place picks the initial position inside the emitter region.
func (e *Engine) place() mgl32.Vec2 {
	center := mgl32.Vec2{
		e.params.EmitterX + e.params.EmitterW*0.5,
		e.params.EmitterY + e.params.EmitterH*0.5,
	}
	if e.params.Placement == PlacementCenter {
		return center
	}

	switch e.params.Shape {
	case EmitterCircle:
		radius := math32.Min(e.params.EmitterW, e.params.EmitterH) * 0.5
		angle := e.rng.Float32() * 2 * math32.Pi
		r := radius
		if e.params.Placement == PlacementInside {
			r = math32.Sqrt(e.rng.Float32()) * radius
		}
		return center.Add(mgl32.Vec2{r * math32.Cos(angle), r * math32.Sin(angle)})
	default:
		if e.params.Placement == PlacementEdge {
			// pick a point on the rectangle perimeter.
			w, h := e.params.EmitterW, e.params.EmitterH
			t := e.rng.Float32() * 2 * (w + h)
			switch {
			case t < w:
				return mgl32.Vec2{e.params.EmitterX + t, e.params.EmitterY}
			case t < w+h:
				return mgl32.Vec2{e.params.EmitterX + w, e.params.EmitterY + (t - w)}
			case t < 2*w+h:
				return mgl32.Vec2{e.params.EmitterX + (t - w - h), e.params.EmitterY + h}
			default:
				return mgl32.Vec2{e.params.EmitterX, e.params.EmitterY + (t - 2*w - h)}
			}
		}
		return mgl32.Vec2{
			e.params.EmitterX + e.rng.Float32()*e.params.EmitterW,
			e.params.EmitterY + e.rng.Float32()*e.params.EmitterH,
		}
	}
}

// heading picks the initial direction with the velocity baked in.
func (e *Engine) heading(position mgl32.Vec2) mgl32.Vec2 {
	velocity := e.random(e.params.MinVelocity, e.params.MaxVelocity)
	center := mgl32.Vec2{
		e.params.EmitterX + e.params.EmitterW*0.5,
		e.params.EmitterY + e.params.EmitterH*0.5,
	}

	var unit mgl32.Vec2
	switch e.params.Direction {
	case DirectionInwards:
		unit = safeNormalize(center.Sub(position))
	case DirectionOutwards:
		unit = safeNormalize(position.Sub(center))
	default:
		angle := e.params.SectorStart + e.rng.Float32()*e.params.SectorSize
		unit = mgl32.Vec2{math32.Cos(angle), math32.Sin(angle)}
	}
	return unit.Mul(velocity)
}

func (e *Engine) random(min, max float32) float32 {
	return min + e.rng.Float32()*(max-min)
}

// safeNormalize falls back to a fixed unit vector for degenerate inputs
// such as a particle placed exactly at the emitter center.
func safeNormalize(v mgl32.Vec2) mgl32.Vec2 {
	if v.Len() < 1e-6 {
		return mgl32.Vec2{1, 0}
	}
	return v.Normalize()
}

// ShaderKey implements drawable.Drawable.
func (e *Engine) ShaderKey() string { return drawable.SimpleShaderKey }

// ShaderSource implements drawable.Drawable.
func (e *Engine) ShaderSource() string { return drawable.SimpleShaderSource() }

// GeometryKey implements drawable.Drawable. Each engine instance owns a
// dedicated dynamic geometry.
func (e *Engine) GeometryKey() string { return e.key }

// IsStatic implements drawable.Drawable. Particle geometry refreshes every
// draw.
func (e *Engine) IsStatic() bool { return false }

// Upload writes one point vertex per live particle. Positions normalize
// into the x in [0, 1], y in [-1, 0] device-space convention and the point
// size and alpha ride in the texcoord channel.
//
// Parameters:
//   - g: the geometry to fill
func (e *Engine) Upload(g device.Geometry) {
	vertices := make([]common.Vertex, 0, len(e.particles))
	for _, p := range e.particles {
		vertices = append(vertices, common.Vertex{
			Pos: [2]float32{
				p.Position[0] / e.params.MaxX,
				-p.Position[1] / e.params.MaxY,
			},
			TexCoord: [2]float32{p.PointSize, p.Alpha},
		})
	}
	g.SetVertices(vertices)
	g.SetDrawType(device.DrawPoints)
}
