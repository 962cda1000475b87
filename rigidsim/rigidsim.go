// Package rigidsim is a small rigid-body simulation implementing
// rig.Simulation. It integrates dynamic bodies with semi-implicit Euler
// under gravity and linear damping, moves kinematic bodies to their next
// kinematic target each step and never moves static bodies. There is no
// collision detection beyond an optional floor plane.
package rigidsim

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/phanxgames/rig"
)

// AngMotionMax is the maximum rotation, in radians, a body may turn in one
// step.
const AngMotionMax = math.Pi / 4

// Config holds world parameters.
type Config struct {
	Gravity rig.Vec3
	// LinearDamping is the fraction of linear velocity lost per second.
	LinearDamping float64
	// Floor, when set, stops dynamic bodies from falling below this Y.
	Floor *float64
}

// World is the simulation. It is not safe for concurrent use.
type World struct {
	cfg    Config
	bodies []*Body
	steps  int
}

// New creates an empty world.
func New(cfg Config) *World {
	return &World{cfg: cfg}
}

// FromEngineConfig builds a world from the gravity and damping in an engine
// config.
func FromEngineConfig(c rig.Config) *World {
	return New(Config{Gravity: rig.Vec3(c.Gravity), LinearDamping: c.LinearDamping})
}

// Bodies returns the live bodies in creation order.
func (w *World) Bodies() []*Body { return w.bodies }

// Steps returns the number of Step calls so far.
func (w *World) Steps() int { return w.steps }

// CreateBody adds a body of the given type at a world-space pose.
func (w *World) CreateBody(id rig.NodeID, typ rig.BodyType, world rig.Transform) rig.RigidBody {
	q := world.Quat()
	b := &Body{
		Node:    id,
		Type:    typ,
		Mass:    1,
		pos:     world.Position,
		rot:     q,
		nextPos: world.Position,
		nextRot: q,
		awake:   true,
	}
	w.bodies = append(w.bodies, b)
	return b
}

// RemoveBody drops a body from the world.
func (w *World) RemoveBody(rb rig.RigidBody) {
	for i, b := range w.bodies {
		if rig.RigidBody(b) == rb {
			w.bodies = append(w.bodies[:i], w.bodies[i+1:]...)
			b.removed = true
			return
		}
	}
}

// Step advances every body by dt seconds.
func (w *World) Step(dt float64) {
	w.steps++
	if dt <= 0 {
		return
	}
	for _, b := range w.bodies {
		switch b.Type {
		case rig.BodyDynamic:
			if b.awake {
				w.stepDynamic(b, dt)
			}
		case rig.BodyKinematic:
			stepKinematic(b, dt)
		}
	}
}

func (w *World) stepDynamic(b *Body, dt float64) {
	mass := b.Mass
	if mass <= 0 {
		mass = 1
	}
	acc := w.cfg.Gravity.Add(b.force.Mul(1 / mass))
	b.linVel = b.linVel.Add(acc.Mul(dt))
	if d := w.cfg.LinearDamping; d > 0 {
		b.linVel = b.linVel.Mul(math.Max(0, 1-d*dt))
	}
	b.angVel = b.angVel.Add(b.torque.Mul(dt / mass))

	b.pos = b.pos.Add(b.linVel.Mul(dt))
	b.rot = stepByAngVel(b.rot, b.angVel, dt)

	if w.cfg.Floor != nil && b.pos.Y() < *w.cfg.Floor {
		b.pos[1] = *w.cfg.Floor
		if b.linVel.Y() < 0 {
			b.linVel[1] = 0
		}
	}
}

// stepKinematic teleports the body to its next target and derives the
// velocity that motion implies.
func stepKinematic(b *Body, dt float64) {
	b.linVel = b.nextPos.Sub(b.pos).Mul(1 / dt)
	b.pos = b.nextPos
	b.rot = b.nextRot
}

// stepByAngVel rotates q by angular velocity av over dt, limiting the
// per-step rotation to AngMotionMax.
func stepByAngVel(q mgl64.Quat, av rig.Vec3, dt float64) mgl64.Quat {
	ang := av.Len()
	if ang < 1e-12 {
		return q
	}
	if ang*dt > AngMotionMax {
		ang = AngMotionMax / dt
	}
	dq := mgl64.QuatRotate(ang*dt, av.Normalize())
	return dq.Mul(q).Normalize()
}

// Body is one rigid body. It implements rig.RigidBody.
type Body struct {
	Node rig.NodeID
	Type rig.BodyType
	Mass float64

	pos, nextPos   rig.Vec3
	rot, nextRot   mgl64.Quat
	linVel, angVel rig.Vec3
	force, torque  rig.Vec3
	awake          bool
	removed        bool
}

// Translation, Rotation, LinearVelocity and AngularVelocity report the
// body state after the last step.
func (b *Body) Translation() rig.Vec3     { return b.pos }
func (b *Body) Rotation() mgl64.Quat      { return b.rot }
func (b *Body) LinearVelocity() rig.Vec3  { return b.linVel }
func (b *Body) AngularVelocity() rig.Vec3 { return b.angVel }

// SetTranslation teleports the body. A kinematic body stays there until a
// new target is set.
func (b *Body) SetTranslation(v rig.Vec3) {
	b.pos = v
	b.nextPos = v
}

// SetRotation sets the orientation directly.
func (b *Body) SetRotation(q mgl64.Quat) {
	b.rot = q
	b.nextRot = q
}

// SetLinearVelocity and SetAngularVelocity replace the body velocities.
func (b *Body) SetLinearVelocity(v rig.Vec3)  { b.linVel = v }
func (b *Body) SetAngularVelocity(v rig.Vec3) { b.angVel = v }

// ApplyForce accumulates a force applied at the center of mass until the
// next ResetForces.
func (b *Body) ApplyForce(f rig.Vec3) { b.force = b.force.Add(f) }

// ApplyTorque accumulates a torque until the next ResetTorques.
func (b *Body) ApplyTorque(t rig.Vec3) { b.torque = b.torque.Add(t) }

// ResetForces and ResetTorques clear the accumulators.
func (b *Body) ResetForces()  { b.force = rig.Vec3{} }
func (b *Body) ResetTorques() { b.torque = rig.Vec3{} }

// WakeUp resumes integration of a sleeping body.
func (b *Body) WakeUp() { b.awake = true }

// Sleep stops integrating a dynamic body until WakeUp.
func (b *Body) Sleep() { b.awake = false }

// Awake reports whether the body is integrated.
func (b *Body) Awake() bool { return b.awake }

// SetNextKinematicTranslation and SetNextKinematicRotation set the pose a
// kinematic body moves to during the next Step.
func (b *Body) SetNextKinematicTranslation(v rig.Vec3) { b.nextPos = v }
func (b *Body) SetNextKinematicRotation(q mgl64.Quat)  { b.nextRot = q }

// Removed reports whether the body has been removed from its world.
func (b *Body) Removed() bool { return b.removed }
