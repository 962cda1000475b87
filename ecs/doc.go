// Package ecs provides ECS adapters for rig engine events.
//
// The primary adapter is [NewDonburiStore], which publishes engine events
// (transform edits, authority changes, playback changes, resets and
// auto-pauses) into a [Donburi] world as typed events. Subscribe to
// [EngineEventType] in your ECS systems to receive them, or call
// [TrackAuthority] to keep one entity per node carrying its current
// transform authority.
//
// Usage:
//
//	store := ecs.NewDonburiStore(world)
//	engine.SetEventSink(store)
//
// [Donburi]: https://github.com/yohamta/donburi
package ecs
