package rig

import "github.com/pkg/errors"

var (
	// ErrUnknownNode is returned when a NodeID is not in the arena.
	ErrUnknownNode = errors.New("rig: unknown node")
	// ErrCycle is returned when a reparent would make a node its own ancestor.
	ErrCycle = errors.New("rig: reparent would create a cycle")
	// ErrUnknownAnimation is returned when an animation ID is not registered.
	ErrUnknownAnimation = errors.New("rig: unknown animation")
	// ErrInvalidKeyframe is returned for negative or non-finite keyframe data.
	ErrInvalidKeyframe = errors.New("rig: invalid keyframe")
	// ErrNoKeyframe is returned when no keyframe matches a (time, channel) query.
	ErrNoKeyframe = errors.New("rig: no keyframe at time")
	// ErrLocked is returned for manual writes to a transform-locked node.
	ErrLocked = errors.New("rig: node transform is locked")
	// ErrAuthority is returned for manual writes to a node owned by the simulation.
	ErrAuthority = errors.New("rig: node is owned by the simulation")
	// ErrNoSimulation is returned when physics is enabled without a simulation.
	ErrNoSimulation = errors.New("rig: no rigid-body simulation attached")
	// ErrAutoPaused is returned by Engine.Tick on the frame playback was
	// paused because too many invalid transforms were produced.
	ErrAutoPaused = errors.New("rig: playback auto-paused after repeated invalid transforms")
)

// ErrInvalidTransform is returned for manual writes containing NaN or Inf.
var ErrInvalidTransform = errors.New("rig: transform has non-finite components")

func unknownNode(id NodeID) error {
	return errors.Wrapf(ErrUnknownNode, "node %d", id)
}
