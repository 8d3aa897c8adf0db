// Package impact is the collision and contact core of a rigid-body engine.
//
// A Processor owns the broad phase and the collision pairs. Every step it
// refreshes the broad phase from the bodies' transforms, derives the candidate
// pairs, runs the narrow phase on them, resolves the contacts with sequential
// impulses pushed back through actor.Body.ApplyImpulse, and finally dispatches
// the Enter/Stay/Exit events. The integrator itself stays outside: the core
// never writes velocities or transforms.
package impact

import (
	"cmp"
	"fmt"
	"math"
	"os"
	"slices"

	"github.com/akmonengine/impact/actor"
	"github.com/akmonengine/impact/bvh"
	"github.com/akmonengine/impact/constraint"
	"github.com/akmonengine/impact/narrowphase"
	"github.com/charmbracelet/log"
	"github.com/go-gl/mathgl/mgl64"
)

// Owner is the component a shape belongs to. Alive turning false marks the
// shape for removal at the next step; Body returns the physical state the
// shape follows.
type Owner interface {
	Alive() bool
	Body() actor.Body
}

type shapeEntry struct {
	id      ShapeID
	shape   actor.Shape
	owner   Owner
	node    bvh.NodeID
	trigger bool
	removed bool

	// snapshot taken at the start of the step
	body   actor.Body
	params actor.BodyParams
}

// RegisterOption configures a shape registration.
type RegisterOption func(*shapeEntry)

// AsTrigger registers the shape as a trigger: its pairs raise TRIGGER_* events
// and never receive impulses.
func AsTrigger() RegisterOption {
	return func(entry *shapeEntry) {
		entry.trigger = true
	}
}

// Option configures a Processor.
type Option func(*Processor)

// WithLogger sets the logger of the processor and of its detector.
func WithLogger(logger *log.Logger) Option {
	return func(p *Processor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// Processor runs the per-step collision pipeline. It is not safe for
// concurrent use; Step only fans out the detection phase internally.
type Processor struct {
	config   Config
	logger   *log.Logger
	tree     *bvh.Tree
	detector *narrowphase.Detector

	shapes map[ShapeID]*shapeEntry
	nextID ShapeID
	pairs  map[pairKey]*CollisionPair

	// scratch, reused between steps
	order     []*shapeEntry
	active    []*CollisionPair
	contacts  []*CollisionPair
	candidate map[pairKey]*CollisionPair

	Events Events
}

// NewProcessor validates the configuration and builds a processor with an
// empty broad phase sized for config.MaxShapes.
func NewProcessor(config Config, options ...Option) (*Processor, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	p := &Processor{
		config:    config,
		logger:    log.NewWithOptions(os.Stderr, log.Options{Prefix: "impact", Level: log.WarnLevel}),
		tree:      bvh.New(config.MaxShapes, config.FatMargin, config.DisplacementMultiplier),
		shapes:    make(map[ShapeID]*shapeEntry),
		pairs:     make(map[pairKey]*CollisionPair),
		candidate: make(map[pairKey]*CollisionPair),
		Events:    NewEvents(),
	}
	for _, option := range options {
		option(p)
	}
	p.detector = narrowphase.NewDetector(config.Detection, narrowphase.WithLogger(p.logger.WithPrefix("narrowphase")))

	return p, nil
}

// Config returns the configuration of the processor
func (p *Processor) Config() Config {
	return p.config
}

// Subscribe adds a listener for an event type
func (p *Processor) Subscribe(eventType EventType, listener EventListener) {
	p.Events.Subscribe(eventType, listener)
}

// ShapeCount returns the number of registered shapes, including those
// unregistered since the last step
func (p *Processor) ShapeCount() int {
	return len(p.shapes)
}

// PairCount returns the number of candidate pairs derived by the last step
func (p *Processor) PairCount() int {
	return len(p.pairs)
}

// Pair returns a copy of the state of the pair formed by two shapes
func (p *Processor) Pair(a, b ShapeID) (CollisionPair, bool) {
	pair, ok := p.pairs[makePairKey(a, b)]
	if !ok {
		return CollisionPair{}, false
	}
	return *pair, true
}

// RegisterCollision adds a shape following the body of owner to the broad
// phase. The only error that is not a caller mistake is bvh.ErrCapacity.
func (p *Processor) RegisterCollision(owner Owner, shape actor.Shape, options ...RegisterOption) (ShapeID, error) {
	if owner == nil {
		return 0, ErrNilOwner
	}
	if !shape.Valid() {
		return 0, fmt.Errorf("%w: %v with half extents %v", ErrInvalidShape, shape.Type, shape.HalfExtents)
	}
	body := owner.Body()
	if body == nil {
		return 0, fmt.Errorf("%w: owner has no body", ErrNilOwner)
	}

	entry := &shapeEntry{
		id:    p.nextID,
		shape: shape,
		owner: owner,
	}
	for _, option := range options {
		option(entry)
	}

	params := body.Params()
	node, err := p.tree.Insert(sweptBounds(shape, params), uint32(entry.id))
	if err != nil {
		return 0, fmt.Errorf("register %v (%d shapes, %d nodes): %w", shape.Type, p.tree.Len(), p.tree.Capacity(), err)
	}
	entry.node = node

	p.shapes[entry.id] = entry
	p.nextID++

	return entry.id, nil
}

// UnregisterCollision removes a shape at the beginning of the next step. Its
// collided pairs raise an Exit event during that step.
func (p *Processor) UnregisterCollision(id ShapeID) error {
	entry, ok := p.shapes[id]
	if !ok || entry.removed {
		p.logger.Warn("unregister of an unknown shape", "shape", id)
		return fmt.Errorf("%w: %d", ErrUnknownShape, id)
	}
	entry.removed = true
	return nil
}

// Step runs one frame of the pipeline and returns the smallest time of
// impact found, as a fraction of dt in [0, 1]. A value below 1 tells the
// caller that a continuous contact happened inside the frame and that
// sub-stepping may be worth it.
func (p *Processor) Step(dt float64) float64 {
	// Phase 1: drop the shapes of dead owners and the unregistered ones
	p.purge()

	// Phase 2: refresh the broad phase from the current transforms
	p.refresh()

	// Phase 3: candidate pairs, Exit for the pairs lost by the broad phase
	p.derivePairs()

	// Phase 4: narrow phase, discrete or swept
	minTOI := p.detect(dt)

	// Phase 5: sequential impulses on the colliding pairs
	iterations := p.solve(dt)

	// Phase 6: Enter/Stay/Exit
	p.dispatch()

	p.logger.Debug("step",
		"shapes", len(p.shapes),
		"pairs", len(p.pairs),
		"contacts", len(p.contacts),
		"iterations", iterations,
		"toi", minTOI)

	return minTOI
}

func (p *Processor) purge() {
	for id, entry := range p.shapes {
		if !entry.removed {
			if !entry.owner.Alive() {
				p.logger.Warn("shape owner expired", "shape", id)
				entry.removed = true
			} else if entry.owner.Body() == nil {
				p.logger.Warn("shape owner has no body", "shape", id)
				entry.removed = true
			}
		}
		if !entry.removed {
			continue
		}

		p.tree.Remove(entry.node)
		delete(p.shapes, id)
	}

	for key, pair := range p.pairs {
		if !pair.shapeA.removed && !pair.shapeB.removed {
			continue
		}
		if pair.Collided {
			p.Events.exit(pair)
		}
		delete(p.pairs, key)
	}
}

func (p *Processor) refresh() {
	p.order = p.order[:0]
	for _, entry := range p.shapes {
		p.order = append(p.order, entry)
	}
	slices.SortFunc(p.order, func(x, y *shapeEntry) int {
		return cmp.Compare(x.id, y.id)
	})

	for _, entry := range p.order {
		entry.body = entry.owner.Body()
		entry.params = entry.body.Params()

		displacement := entry.params.Transform.Position.Sub(entry.params.PreviousTransform.Position)
		p.tree.Update(entry.node, sweptBounds(entry.shape, entry.params), displacement)
	}
}

// derivePairs queries the tree once per shape. Each pair is found from its
// smaller id; pairs of two immovable bodies are never candidates.
func (p *Processor) derivePairs() {
	clear(p.candidate)

	for _, entry := range p.order {
		fat, ok := p.tree.GetFatBounds(entry.node)
		if !ok {
			continue
		}

		p.tree.QueryOverlap(fat, func(node bvh.NodeID) bool {
			owner, ok := p.tree.Owner(node)
			if !ok {
				return true
			}
			otherID := ShapeID(owner)
			if otherID <= entry.id {
				return true
			}
			other, ok := p.shapes[otherID]
			if !ok {
				p.logger.Warn("broad phase references a removed shape", "shape", otherID)
				return true
			}
			if entry.params.IsStatic() && other.params.IsStatic() {
				return true
			}

			key := makePairKey(entry.id, otherID)
			pair, exists := p.pairs[key]
			if !exists {
				pair = &CollisionPair{A: key.a, B: key.b}
			}
			pair.shapeA, pair.shapeB = entry, other
			pair.Trigger = entry.trigger || other.trigger
			p.candidate[key] = pair
			return true
		})
	}

	for key, pair := range p.pairs {
		if _, ok := p.candidate[key]; ok {
			continue
		}
		if pair.Collided {
			p.Events.exit(pair)
		}
		delete(p.pairs, key)
	}

	p.active = p.active[:0]
	for key, pair := range p.candidate {
		p.pairs[key] = pair
		p.active = append(p.active, pair)
	}
	slices.SortFunc(p.active, func(x, y *CollisionPair) int {
		return comparePairKeys(x.key(), y.key())
	})
}

// detect runs the narrow phase on every candidate pair, fanned out on the
// configured workers; each pair only writes its own state.
func (p *Processor) detect(dt float64) float64 {
	task(p.config.Workers, p.active, func(pair *CollisionPair) {
		pair.Result = p.detectPair(pair, dt)
	})

	minTOI := 1.0
	for _, pair := range p.active {
		if pair.Result.Collided {
			minTOI = math.Min(minTOI, pair.Result.TOI)
		}
	}
	return minTOI
}

func (p *Processor) detectPair(pair *CollisionPair, dt float64) narrowphase.Result {
	a, b := pair.shapeA, pair.shapeB

	if p.needsSweep(a.params) || p.needsSweep(b.params) {
		return p.detector.DetectCCD(
			a.shape, a.params.PreviousTransform, a.params.Transform,
			b.shape, b.params.PreviousTransform, b.params.Transform,
			dt)
	}
	return p.detector.DetectDiscrete(a.shape, a.params.Transform, b.shape, b.params.Transform)
}

func (p *Processor) needsSweep(params actor.BodyParams) bool {
	return params.Velocity.Len() > p.config.CCDSpeedThreshold
}

// solve runs the sequential-impulse iterations over the colliding non-trigger
// pairs and returns the number of iterations used.
func (p *Processor) solve(dt float64) int {
	config := p.config.Solver

	p.contacts = p.contacts[:0]
	for _, pair := range p.active {
		pair.Converged = false
		pair.contact = nil
		if !pair.Result.Collided {
			pair.Accumulated = constraint.Accumulated{}
			continue
		}
		if pair.Trigger {
			continue
		}

		bodyA, bodyB := pair.shapeA.body, pair.shapeB.body
		paramsA, paramsB := impactParams(bodyA.Params(), pair.Result.TOI), impactParams(bodyB.Params(), pair.Result.TOI)
		contact := constraint.NewContact(pair.Result)
		contact.Prepare(paramsA, paramsB, config)

		// Bodies only know their current transform: shift the point so that
		// they rebuild the lever arm of the time of impact
		rA, rB := contact.LeverArms()
		pair.pointA = bodyA.Params().Transform.Position.Add(rA)
		pair.pointB = bodyB.Params().Transform.Position.Add(rB)

		// Persistent contact: start from last step's impulses
		if pair.Collided && config.WarmStartFactor > 0 {
			applyImpulse(bodyA, bodyB, contact.WarmStart(pair.Accumulated, config.WarmStartFactor), pair.pointA, pair.pointB)
		}

		pair.contact = contact
		p.contacts = append(p.contacts, pair)
	}

	iterations := 0
	for iterations < p.config.SolverIterations {
		iterations++
		converged := true

		for _, pair := range p.contacts {
			if pair.Converged {
				continue
			}
			contact := pair.contact
			bodyA, bodyB := pair.shapeA.body, pair.shapeB.body

			toi := pair.Result.TOI

			bias := constraint.BiasSpeed(contact.Penetration, dt, config)
			normal := contact.SolveNormalImpulse(impactParams(bodyA.Params(), toi), impactParams(bodyB.Params(), toi), bias)
			applyImpulse(bodyA, bodyB, normal, pair.pointA, pair.pointB)

			friction := contact.SolveFrictionImpulse(impactParams(bodyA.Params(), toi), impactParams(bodyB.Params(), toi), config)
			applyImpulse(bodyA, bodyB, friction, pair.pointA, pair.pointB)

			if contact.Converged(config.ImpulseTolerance) {
				pair.Converged = true
			} else {
				converged = false
			}
		}

		if converged {
			break
		}
	}

	for _, pair := range p.contacts {
		pair.Accumulated = pair.contact.Accumulated()
	}

	return iterations
}

// impactParams moves the body back to where it stood at toi
func impactParams(params actor.BodyParams, toi float64) actor.BodyParams {
	if toi < 1 {
		params.Transform = actor.Interpolate(params.PreviousTransform, params.Transform, toi)
	}
	return params
}

// applyImpulse pushes impulse into b and its opposite into a
func applyImpulse(a, b actor.Body, impulse mgl64.Vec3, pointA, pointB mgl64.Vec3) {
	if impulse == (mgl64.Vec3{}) {
		return
	}
	a.ApplyImpulse(impulse.Mul(-1), pointA)
	b.ApplyImpulse(impulse, pointB)
}

// dispatch compares every pair's outcome with the previous step, queues the
// matching event and flushes the queue.
func (p *Processor) dispatch() {
	for _, pair := range p.active {
		switch {
		case pair.Result.Collided && !pair.Collided:
			p.Events.enter(pair)
		case pair.Result.Collided && pair.Collided:
			p.Events.stay(pair)
		case !pair.Result.Collided && pair.Collided:
			p.Events.exit(pair)
		}
		pair.Collided = pair.Result.Collided
		if pair.Collided {
			pair.last = pair.Result
		}
	}

	p.Events.flush()
}

// sweptBounds is the tight box covering the shape at its previous and
// current transforms, so that swept pairs stay broad-phase candidates
func sweptBounds(shape actor.Shape, params actor.BodyParams) actor.AABB {
	return shape.ComputeAABB(params.PreviousTransform).Union(shape.ComputeAABB(params.Transform))
}
