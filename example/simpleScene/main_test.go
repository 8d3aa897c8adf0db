package main

import (
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findObject(t *testing.T, scene *Scene, name string) *SceneObject {
	t.Helper()
	for _, object := range scene.Objects {
		if object.Name == name {
			return object
		}
	}
	t.Fatalf("no object named %s", name)
	return nil
}

func TestScene_BulletStopsAtWall(t *testing.T) {
	scene, err := SetupScene(log.NewWithOptions(io.Discard, log.Options{}))
	require.NoError(t, err)
	bullet := findObject(t, scene, "bullet")

	const dt = 1.0 / 60.0

	// 400 m/s from x = -10: the second frame ends well behind the wall
	assert.Equal(t, 1.0, scene.Step(dt))
	toi := scene.Step(dt)
	require.Less(t, toi, 1.0)

	// The frame was replayed from the impact with the resolved velocity
	assert.Less(t, bullet.RigidBody.Transform.Position.X(), -0.05)
	assert.Less(t, bullet.RigidBody.Velocity.X(), 1.0)
}

func TestScene_ForcesApplied(t *testing.T) {
	scene, err := SetupScene(log.NewWithOptions(io.Discard, log.Options{}))
	require.NoError(t, err)
	cube := findObject(t, scene, "cube")

	scene.Step(1.0 / 60.0)

	assert.Greater(t, cube.RigidBody.Velocity.Z(), 0.0, "wind pushes along +z")
	assert.Greater(t, cube.RigidBody.AngularVelocity.Y(), 0.0, "torque spins around +y")
}
