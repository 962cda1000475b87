package rig

import (
	"log/slog"

	"github.com/go-gl/mathgl/mgl64"
)

// RigidBody is one body owned by the external simulation.
type RigidBody interface {
	Translation() Vec3
	Rotation() mgl64.Quat
	SetTranslation(v Vec3)
	SetRotation(q mgl64.Quat)
	SetLinearVelocity(v Vec3)
	SetAngularVelocity(v Vec3)
	LinearVelocity() Vec3
	AngularVelocity() Vec3
	ResetForces()
	ResetTorques()
	WakeUp()
	// SetNextKinematicTranslation and SetNextKinematicRotation set the pose a
	// kinematic body moves to during the next step.
	SetNextKinematicTranslation(v Vec3)
	SetNextKinematicRotation(q mgl64.Quat)
}

// Simulation is the rigid-body engine collaborator.
type Simulation interface {
	// CreateBody creates a body of the given type at a world-space pose.
	CreateBody(id NodeID, typ BodyType, world Transform) RigidBody
	RemoveBody(b RigidBody)
	Step(dt float64)
}

// TargetSource supplies the current frame's keyframe sample for a node.
// Timeline implements it.
type TargetSource interface {
	KinematicTarget(node NodeID) (Sample, bool)
}

// PhysicsBinding links one node to its rigid body.
type PhysicsBinding struct {
	Node    NodeID
	Type    BodyType
	Enabled bool
	body    RigidBody

	// lastKnown is the world pose the body was last synced to or read from.
	lastKnown Transform
	// lastCommanded is held as the kinematic target when the node has no
	// position keyframes.
	lastCommanded Vec3
}

// Body returns the live rigid-body handle.
func (b *PhysicsBinding) Body() RigidBody { return b.body }

// PhysicsBridge mirrors node transforms into and out of the simulation.
type PhysicsBridge struct {
	scene    *Scene
	sim      Simulation
	logger   *slog.Logger
	bindings map[NodeID]*PhysicsBinding
	order    []NodeID

	// invalid counts rejected readbacks in the last Step.
	invalid int
}

// NewPhysicsBridge creates a bridge over scene. sim may be nil until
// SetSimulation is called.
func NewPhysicsBridge(scene *Scene, sim Simulation, logger *slog.Logger) *PhysicsBridge {
	if scene == nil {
		panic("rig: physics bridge needs a scene")
	}
	if logger == nil {
		logger = discardLogger()
	}
	return &PhysicsBridge{
		scene:    scene,
		sim:      sim,
		logger:   logger,
		bindings: make(map[NodeID]*PhysicsBinding),
	}
}

// SetSimulation attaches the rigid-body engine.
func (pb *PhysicsBridge) SetSimulation(sim Simulation) {
	pb.sim = sim
}

// Binding returns the binding for node.
func (pb *PhysicsBridge) Binding(node NodeID) (*PhysicsBinding, bool) {
	b, ok := pb.bindings[node]
	return b, ok
}

// Bindings returns the bound node IDs in binding order.
func (pb *PhysicsBridge) Bindings() []NodeID {
	return pb.order
}

// Enable binds node to a rigid body of type typ. An existing body of the
// same type is kept for the node's lifetime; a different type re-creates
// it. A first bind snapshots the node's current transform as its initial
// transform; changing the type of a bound node keeps the existing snapshot.
func (pb *PhysicsBridge) Enable(node NodeID, typ BodyType) error {
	if pb.sim == nil {
		return ErrNoSimulation
	}
	n, ok := pb.scene.nodes[node]
	if !ok {
		return unknownNode(node)
	}
	if typ == BodyNone {
		return pb.Disable(node)
	}

	b, ok := pb.bindings[node]
	if ok && b.body != nil && b.Type == typ {
		b.Enabled = true
		n.flags.PhysicsEnabled = true
		return nil
	}
	if ok && b.body != nil {
		pb.sim.RemoveBody(b.body)
	}
	if !ok {
		b = &PhysicsBinding{Node: node}
		pb.bindings[node] = b
		pb.order = append(pb.order, node)
	}

	world := decomposeMatrix(pb.scene.worldMatrix(n))
	b.Type = typ
	b.Enabled = true
	b.body = pb.sim.CreateBody(node, typ, world)
	b.lastKnown = world
	b.lastCommanded = world.Position

	n.flags.PhysicsEnabled = true
	n.flags.BodyType = typ
	if !ok || !n.flags.HasInitial {
		n.flags.Initial = n.local
		n.flags.HasInitial = true
	}
	return nil
}

// restore re-binds a node re-created from a snapshot, keeping the
// snapshot's initial transform.
func (pb *PhysicsBridge) restore(node NodeID, flags NodeFlags) error {
	if err := pb.Enable(node, flags.BodyType); err != nil {
		return err
	}
	n := pb.scene.nodes[node]
	if flags.HasInitial {
		n.flags.Initial = flags.Initial
	}
	return nil
}

// Disable unlinks node's rigid body. The node keeps its current transform,
// which becomes its new initial snapshot.
func (pb *PhysicsBridge) Disable(node NodeID) error {
	n, ok := pb.scene.nodes[node]
	if !ok {
		return unknownNode(node)
	}
	pb.unbind(node)
	n.flags.PhysicsEnabled = false
	n.flags.BodyType = BodyNone
	n.flags.Initial = n.local
	n.flags.HasInitial = true
	return nil
}

// forget drops a binding for a node leaving the arena.
func (pb *PhysicsBridge) forget(node NodeID) {
	pb.unbind(node)
}

func (pb *PhysicsBridge) unbind(node NodeID) {
	b, ok := pb.bindings[node]
	if !ok {
		return
	}
	if b.body != nil && pb.sim != nil {
		pb.sim.RemoveBody(b.body)
	}
	b.body = nil
	delete(pb.bindings, node)
	for i, id := range pb.order {
		if id == node {
			pb.order = append(pb.order[:i], pb.order[i+1:]...)
			break
		}
	}
}

// CaptureInitial snapshots every bound node that has no initial transform.
// Called on the Stopped -> Playing transition at t=0.
func (pb *PhysicsBridge) CaptureInitial() {
	for _, id := range pb.order {
		n := pb.scene.nodes[id]
		if !n.flags.HasInitial {
			n.flags.Initial = n.local
			n.flags.HasInitial = true
		}
	}
}

// Reset restores every bound node to its initial transform with zero
// velocity and cleared forces, and marks it just-reset for one frame. It
// returns the reset node IDs.
func (pb *PhysicsBridge) Reset() []NodeID {
	var reset []NodeID
	for _, id := range pb.order {
		b := pb.bindings[id]
		if !b.Enabled {
			continue
		}
		n := pb.scene.nodes[id]

		initial := n.flags.Initial
		if !n.flags.HasInitial || !initial.IsFinite() {
			pb.logger.Warn("corrupt initial transform, restoring identity",
				slog.Uint64("node", uint64(id)), slog.String("name", n.name))
			initial = IdentityTransform()
			n.flags.Initial = initial
			n.flags.HasInitial = true
		}
		pb.scene.setLocal(n, initial, false)
		n.justReset = true

		world := decomposeMatrix(pb.scene.worldMatrix(n))
		if b.body != nil {
			b.body.SetLinearVelocity(Vec3{})
			b.body.SetAngularVelocity(Vec3{})
			b.body.ResetForces()
			b.body.ResetTorques()
			b.body.SetTranslation(world.Position)
			b.body.SetRotation(world.Quat())
			if b.Type == BodyKinematic {
				b.body.SetNextKinematicTranslation(world.Position)
				b.body.SetNextKinematicRotation(world.Quat())
			}
			b.body.WakeUp()
		}
		b.lastKnown = world
		b.lastCommanded = world.Position
		reset = append(reset, id)
	}
	return reset
}

// Sync pushes manual and keyframe edits made while the simulation is not
// running into the rigid bodies, so that resuming starts from the edited pose.
// Bound descendants of an edited node are resynced too, since moving a parent
// moves them in world space.
func (pb *PhysicsBridge) Sync(edited []NodeID) {
	if len(edited) == 0 || len(pb.bindings) == 0 {
		return
	}
	seen := make(map[NodeID]bool, len(edited))
	var visit func(id NodeID)
	visit = func(id NodeID) {
		if seen[id] {
			return
		}
		seen[id] = true
		n, ok := pb.scene.nodes[id]
		if !ok {
			return
		}
		pb.syncNode(n)
		for _, c := range n.children {
			visit(c)
		}
	}
	for _, id := range edited {
		visit(id)
	}
}

func (pb *PhysicsBridge) syncNode(n *Node) {
	b, ok := pb.bindings[n.id]
	if !ok || !b.Enabled || b.body == nil {
		return
	}
	world := decomposeMatrix(pb.scene.worldMatrix(n))
	if world.ApproxEqual(b.lastKnown, 1e-9) {
		return
	}
	b.body.SetTranslation(world.Position)
	b.body.SetRotation(world.Quat())
	b.body.SetLinearVelocity(Vec3{})
	b.body.SetAngularVelocity(Vec3{})
	b.body.ResetTorques()
	if b.Type == BodyKinematic {
		b.body.SetNextKinematicTranslation(world.Position)
		b.body.SetNextKinematicRotation(world.Quat())
	}
	b.lastKnown = world
	b.lastCommanded = world.Position
}

// simulated reports whether node's body writes its transform this frame.
func (pb *PhysicsBridge) simulated(node NodeID) bool {
	b, ok := pb.bindings[node]
	return ok && b.Enabled && b.body != nil && b.Type != BodyStatic
}

// Step pushes kinematic targets, advances the simulation by dt and writes
// body poses back onto dynamic and kinematic nodes. Nodes in skip (just
// reset) are neither driven nor written.
func (pb *PhysicsBridge) Step(dt float64, targets TargetSource, skip func(NodeID) bool) {
	pb.invalid = 0
	if pb.sim == nil {
		return
	}

	for _, id := range pb.order {
		b := pb.bindings[id]
		if !b.Enabled || b.body == nil || b.Type != BodyKinematic || skip(id) {
			continue
		}
		pb.driveKinematic(b, targets)
	}

	pb.sim.Step(dt)

	for _, id := range pb.order {
		b := pb.bindings[id]
		if !b.Enabled || b.body == nil || b.Type == BodyStatic || skip(id) {
			continue
		}
		pb.readBack(b)
	}
}

func (pb *PhysicsBridge) driveKinematic(b *PhysicsBinding, targets TargetSource) {
	n := pb.scene.nodes[b.Node]
	target := b.lastCommanded
	var rot *mgl64.Quat

	if smp, ok := targets.KinematicTarget(b.Node); ok {
		// Keyframes are local; the body lives in world space.
		world := decomposeMatrix(pb.scene.parentWorld(n).Mul4(smp.Transform.Matrix()))
		if smp.Channels.Has(ChannelPosition) {
			target = world.Position
		}
		if smp.Channels.Has(ChannelRotation) {
			q := world.Quat()
			rot = &q
		}
	}

	b.body.SetNextKinematicTranslation(target)
	if rot != nil {
		b.body.SetNextKinematicRotation(*rot)
	}
	b.lastCommanded = target
}

func (pb *PhysicsBridge) readBack(b *PhysicsBinding) {
	n := pb.scene.nodes[b.Node]
	pos := b.body.Translation()
	rot := quatToEuler(b.body.Rotation())
	if !finiteVec(pos) || !finiteVec(rot) {
		pb.invalid++
		pb.logger.Warn("discarding non-finite rigid-body pose",
			slog.Uint64("node", uint64(b.Node)), slog.String("name", n.name))
		if b.Type == BodyDynamic {
			b.body.ResetForces()
		}
		return
	}

	world := decomposeMatrix(pb.scene.worldMatrix(n))
	world.Position = pos
	world.Rotation = rot
	pb.scene.setWorld(n, world, false)
	b.lastKnown = world
}

// Invalid returns the number of readbacks discarded in the last Step.
func (pb *PhysicsBridge) Invalid() int {
	return pb.invalid
}
