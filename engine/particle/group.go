package particle

import (
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
)

// Group updates a set of particle engines together. With workers
// configured the per-engine integration fans out across a reusable worker
// pool; the default updates serially.
type Group struct {
	mu *sync.Mutex

	engines []*Engine
	pool    worker.DynamicWorkerPool
}

// GroupOption configures NewGroup.
type GroupOption func(*Group)

// WithWorkers enables parallel engine updates across the given number of
// pool workers.
//
// Parameters:
//   - workers: the worker count (values below 2 keep updates serial)
//
// Returns:
//   - GroupOption: a function that applies the option to a group
func WithWorkers(workers int) GroupOption {
	return func(g *Group) {
		if workers > 1 {
			g.pool = worker.NewDynamicWorkerPool(workers, 256, 1*time.Second)
		}
	}
}

// NewGroup creates an engine group.
//
// Parameters:
//   - options: optional configuration
//
// Returns:
//   - *Group: the group
func NewGroup(options ...GroupOption) *Group {
	g := &Group{
		mu: &sync.Mutex{},
	}
	for _, opt := range options {
		opt(g)
	}
	return g
}

// Add registers an engine with the group.
//
// Parameters:
//   - e: the engine to add
func (g *Group) Add(e *Engine) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.engines = append(g.engines, e)
}

// Remove unregisters an engine from the group.
//
// Parameters:
//   - e: the engine to remove
func (g *Group) Remove(e *Engine) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i, existing := range g.engines {
		if existing == e {
			g.engines = append(g.engines[:i], g.engines[i+1:]...)
			return
		}
	}
}

// Engines returns the registered engines.
//
// Returns:
//   - []*Engine: the engines, a copy safe to iterate while the group mutates
func (g *Group) Engines() []*Engine {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]*Engine, len(g.engines))
	copy(out, g.engines)
	return out
}

// Update advances every registered engine by dt seconds. Engines never
// touch shared state during integration so the fan-out needs no locking
// beyond the frame barrier.
//
// Parameters:
//   - dt: elapsed seconds
func (g *Group) Update(dt float32) {
	engines := g.Engines()
	if g.pool == nil {
		for _, e := range engines {
			e.Update(dt)
		}
		return
	}

	// A WaitGroup provides the per-frame barrier; the pool's own Wait
	// blocks until workers idle-exit, which is unsuitable for frame-rate
	// workloads.
	var wg sync.WaitGroup
	for i, e := range engines {
		wg.Add(1)
		eCap := e
		g.pool.SubmitTask(worker.Task{
			ID: i,
			Do: func() (any, error) {
				defer wg.Done()
				eCap.Update(dt)
				return nil, nil
			},
		})
	}
	wg.Wait()
}

// Restart restarts every registered engine.
func (g *Group) Restart() {
	for _, e := range g.Engines() {
		e.Restart()
	}
}
