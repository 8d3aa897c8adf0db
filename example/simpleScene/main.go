package main

import (
	"fmt"
	"os"

	"github.com/akmonengine/impact"
	"github.com/akmonengine/impact/actor"
	"github.com/charmbracelet/log"
	"github.com/go-gl/mathgl/mgl64"
)

const sceneConfig = `
solver_iterations: 8
ccd_speed_threshold: 15
ccd_max_steps: 64
strategy: shape
`

// SceneObject is a minimal component: a named rigid body that reports its
// own collisions.
type SceneObject struct {
	Name      string
	RigidBody *actor.RigidBody
	// Torque is applied on every integration, on top of the scene wind
	Torque mgl64.Vec3
	alive  bool
	logger *log.Logger
}

func (o *SceneObject) Alive() bool      { return o.alive }
func (o *SceneObject) Body() actor.Body { return o.RigidBody }

func (o *SceneObject) OnCollisionEvent(event impact.Event, other impact.Owner) {
	otherName := "?"
	if so, ok := other.(*SceneObject); ok {
		otherName = so.Name
	}
	result := event.Pair().Result
	o.logger.Info(event.Type().String(),
		"self", o.Name,
		"other", otherName,
		"normal", result.Normal,
		"penetration", fmt.Sprintf("%.4f", result.Penetration))
}

type Scene struct {
	Processor *impact.Processor
	Objects   []*SceneObject
	Gravity   mgl64.Vec3
	// Wind is an acceleration pushing every dynamic body
	Wind   mgl64.Vec3
	logger *log.Logger
}

// maxSubSteps bounds how many times a frame is replayed after mid-frame contacts
const maxSubSteps = 4

func (s *Scene) Add(name string, shape actor.Shape, transform actor.Transform, bodyType actor.BodyType, options ...impact.RegisterOption) (*SceneObject, error) {
	object := &SceneObject{
		Name:      name,
		RigidBody: actor.NewRigidBody(transform, shape, bodyType, 1.0),
		alive:     true,
		logger:    s.logger,
	}
	if _, err := s.Processor.RegisterCollision(object, shape, options...); err != nil {
		return nil, fmt.Errorf("add %s: %w", name, err)
	}
	s.Objects = append(s.Objects, object)
	return object, nil
}

// Step integrates the bodies, then resolves the contacts of the new transforms.
//
// When the earliest contact happened mid-frame, every body is moved back to
// where it stood at that time and the rest of the frame is replayed with the
// resolved velocities. Returns the time of impact of the first pass.
func (s *Scene) Step(dt float64) float64 {
	first := 1.0
	remaining := dt
	for sub := 0; sub < maxSubSteps; sub++ {
		s.integrate(remaining)
		toi := s.Processor.Step(remaining)
		if sub == 0 {
			first = toi
		}
		if toi >= 1 {
			break
		}

		for _, object := range s.Objects {
			body := object.RigidBody
			body.Transform = actor.Interpolate(body.PreviousTransform, body.Transform, toi)
		}
		remaining *= 1 - toi
	}
	return first
}

func (s *Scene) integrate(dt float64) {
	for _, object := range s.Objects {
		body := object.RigidBody
		body.AddForce(s.Wind.Mul(body.Mass()))
		body.AddTorque(object.Torque)
		body.Integrate(dt, s.Gravity)
	}
}

// SetupScene creates a ground, a falling cube spun by a torque, a trigger zone
// and a fast bullet
func SetupScene(logger *log.Logger) (*Scene, error) {
	config, err := impact.ParseConfig([]byte(sceneConfig))
	if err != nil {
		return nil, err
	}

	processor, err := impact.NewProcessor(config, impact.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	scene := &Scene{
		Processor: processor,
		Gravity:   mgl64.Vec3{0, -9.81, 0},
		Wind:      mgl64.Vec3{0, 0, 0.4},
		logger:    logger,
	}

	if _, err := scene.Add("ground", actor.NewBox(mgl64.Vec3{20, 0.5, 20}), actor.Transform{Position: mgl64.Vec3{0, -0.5, 0}}, actor.BodyTypeStatic); err != nil {
		return nil, err
	}

	cube, err := scene.Add("cube", actor.NewBox(mgl64.Vec3{0.5, 0.5, 0.5}), actor.Transform{
		Position: mgl64.Vec3{0, 3, 0},
		Rotation: mgl64.QuatRotate(0.3, mgl64.Vec3{0, 0, 1}),
	}, actor.BodyTypeDynamic)
	if err != nil {
		return nil, err
	}
	cube.RigidBody.Material = actor.Material{Restitution: 0.3, StaticFriction: 0.6, DynamicFriction: 0.4, AngularDamping: 0.05}
	cube.Torque = mgl64.Vec3{0, 0.2, 0}

	if _, err := scene.Add("zone", actor.NewBox(mgl64.Vec3{1, 1, 1}), actor.Transform{Position: mgl64.Vec3{0, 1, 0}}, actor.BodyTypeStatic, impact.AsTrigger()); err != nil {
		return nil, err
	}

	bullet, err := scene.Add("bullet", actor.NewSphere(0.1), actor.Transform{Position: mgl64.Vec3{-10, 0.5, 5}}, actor.BodyTypeDynamic)
	if err != nil {
		return nil, err
	}
	bullet.RigidBody.Velocity = mgl64.Vec3{400, 0, 0}

	if _, err := scene.Add("wall", actor.NewBox(mgl64.Vec3{0.05, 2, 2}), actor.Transform{Position: mgl64.Vec3{0, 1.5, 5}}, actor.BodyTypeStatic); err != nil {
		return nil, err
	}

	return scene, nil
}

func main() {
	logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: "simpleScene", Level: log.InfoLevel})

	scene, err := SetupScene(logger)
	if err != nil {
		logger.Fatal("setup failed", "err", err)
	}

	const dt float64 = 1.0 / 60.0
	const maxSteps int = 180

	for step := 0; step < maxSteps; step++ {
		if toi := scene.Step(dt); toi < 1 {
			logger.Info("continuous contact, frame replayed", "step", step, "toi", fmt.Sprintf("%.3f", toi))
		}
	}

	for _, object := range scene.Objects {
		logger.Info("final state", "object", object.Name, "position", object.RigidBody.Transform.Position, "velocity", object.RigidBody.Velocity)
	}
}
