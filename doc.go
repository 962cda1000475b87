// Package rig keeps three writers of a 3D node's transform in agreement:
// manual edits, a keyframe timeline and a rigid-body simulation.
//
// All nodes live in one [Scene] arena and are addressed by [NodeID]. Each
// frame, [Engine.Tick] decides which writer owns every node and lets only
// that writer touch it. The priority is physics, then keyframes, then
// manual edits.
//
// # Quick start
//
//	e := rig.NewEngine(rig.DefaultConfig())
//	e.SetSimulation(rigidsim.New(rigidsim.Config{Gravity: rig.Vec3{0, -9.81, 0}}))
//
//	box, _ := e.CreateNode("box", rig.NoNode, rig.IdentityTransform())
//	anim, _ := e.AddAnimation(box)
//	e.AddKeyframe(anim.ID, rig.Keyframe{Time: 0, Channel: rig.ChannelPosition,
//		Transform: rig.IdentityTransform()})
//	e.AddKeyframe(anim.ID, rig.Keyframe{Time: 1, Channel: rig.ChannelPosition,
//		Transform: rig.NewTransform(rig.Vec3{10, 0, 0}, rig.Vec3{}, rig.Vec3{1, 1, 1})})
//
//	e.Play()
//	for range 60 {
//		e.Tick(1.0 / 60)
//	}
//
// For a window and keyboard controls, use [Run], which drives the engine
// from an [ebiten] game loop.
//
// # Writers
//
// Manual writes go through [Engine.SetTransform] (a drag in progress) or
// [Engine.EditTransform] (a finished edit, recorded in history). They fail
// with [ErrLocked] on locked nodes and with [ErrAuthority] on nodes the
// simulation owns while playing.
//
// Keyframes are stored per channel (position, rotation, scale) in an
// [Animation] and sampled by the [Timeline] with one of four easing curves
// from [gween]. A kinematic body never receives the sample as a node write;
// it becomes the body's next kinematic target instead.
//
// The [PhysicsBridge] reads dynamic and kinematic bodies back onto their
// nodes while the simulation runs. When it is not running, every
// non-physics write is pushed into the body so that resuming starts from
// the edited pose. [Engine.Reset] restores every bound node to its
// initial transform.
//
// # History
//
// [History] keeps bounded undo and redo stacks of full transform
// snapshots plus node creation and deletion.
//
// # Fail-safe
//
// Keyframe samples and physics readbacks with NaN or Inf components are
// discarded. When too many arrive inside the configured window, playback
// pauses and [Engine.Tick] returns [ErrAutoPaused].
//
// Events can be consumed through an [EventSink]; the rig/ecs module
// publishes them into a [Donburi] world.
//
// [ebiten]: https://ebitengine.org
// [gween]: https://github.com/tanema/gween
// [Donburi]: https://github.com/yohamta/donburi
package rig
