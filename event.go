package rig

// Event is published to the engine's EventSink.
type Event struct {
	Type EventType
	Node NodeID
	// Transform is the node's new local transform (TransformEdited,
	// PhysicsReset).
	Transform Transform
	// From and To are set for AuthorityChanged.
	From, To Authority
	// State and Time are the playback state after the event.
	State PlaybackState
	Time  float64
}

// EventSink receives engine events. The ecs sub-package adapts it to a
// Donburi world.
type EventSink interface {
	EmitEvent(event Event)
}

func (e *Engine) emit(ev Event) {
	if e.sink == nil {
		return
	}
	ev.State = e.timeline.state
	ev.Time = e.timeline.time
	e.sink.EmitEvent(ev)
}
