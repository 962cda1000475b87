package rig

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/tanema/gween/ease"
)

// NodeID is a stable handle into a Scene's node arena. The zero value means
// "no node" and is used for the root level of the hierarchy.
type NodeID uint32

// NoNode is the parent of every root-level node.
const NoNode NodeID = 0

// Vec3 is the vector type used for positions, Euler angles and scales.
type Vec3 = mgl64.Vec3

// Channel selects one of the three independently animated parts of a Transform.
type Channel uint8

const (
	ChannelPosition Channel = iota // Transform.Position
	ChannelRotation                // Transform.Rotation (Euler XYZ, radians)
	ChannelScale                   // Transform.Scale
)

// numChannels is the number of animatable channels.
const numChannels = 3

// Channels lists every channel in evaluation order.
var Channels = [numChannels]Channel{ChannelPosition, ChannelRotation, ChannelScale}

// String returns the lower-case channel name.
func (c Channel) String() string {
	switch c {
	case ChannelPosition:
		return "position"
	case ChannelRotation:
		return "rotation"
	case ChannelScale:
		return "scale"
	default:
		return "unknown"
	}
}

// Valid reports whether c names a real channel.
func (c Channel) Valid() bool {
	return c < numChannels
}

// ParseChannel is the inverse of Channel.String.
func ParseChannel(s string) (Channel, bool) {
	for _, c := range Channels {
		if c.String() == s {
			return c, true
		}
	}
	return 0, false
}

// ChannelMask is a bit set of channels. Bit i corresponds to Channel(i).
type ChannelMask uint8

// Has reports whether c is in the mask.
func (m ChannelMask) Has(c Channel) bool {
	return m&(1<<c) != 0
}

// With returns the mask with c added.
func (m ChannelMask) With(c Channel) ChannelMask {
	return m | 1<<c
}

// Easing shapes the interpolation parameter between two keyframes.
type Easing uint8

const (
	EaseLinear    Easing = iota // u
	EaseIn                      // u^2
	EaseOut                     // u(2-u)
	EaseInOut                   // 2u^2 below 0.5, -1+(4-2u)u above
)

// String returns the easing name as used in scene files.
func (e Easing) String() string {
	switch e {
	case EaseLinear:
		return "linear"
	case EaseIn:
		return "easeIn"
	case EaseOut:
		return "easeOut"
	case EaseInOut:
		return "easeInOut"
	default:
		return "unknown"
	}
}

// ParseEasing is the inverse of Easing.String. Unknown names map to linear.
func ParseEasing(s string) Easing {
	switch s {
	case "easeIn":
		return EaseIn
	case "easeOut":
		return EaseOut
	case "easeInOut":
		return EaseInOut
	default:
		return EaseLinear
	}
}

// TweenFunc returns the gween curve for this easing. The quadratic family
// matches the keyframe curves exactly.
func (e Easing) TweenFunc() ease.TweenFunc {
	switch e {
	case EaseIn:
		return ease.InQuad
	case EaseOut:
		return ease.OutQuad
	case EaseInOut:
		return ease.InOutQuad
	default:
		return ease.Linear
	}
}

// Apply maps u in [0, 1] to the eased parameter in full precision. It
// follows the same curves as TweenFunc.
func (e Easing) Apply(u float64) float64 {
	if u <= 0 {
		return 0
	}
	if u >= 1 {
		return 1
	}
	switch e {
	case EaseIn:
		return u * u
	case EaseOut:
		return u * (2 - u)
	case EaseInOut:
		if u < 0.5 {
			return 2 * u * u
		}
		return -1 + (4-2*u)*u
	default:
		return u
	}
}

// BodyType selects how the physics bridge mirrors a node.
type BodyType uint8

const (
	BodyNone      BodyType = iota // physics disabled
	BodyDynamic                   // simulated; body pose is written onto the node
	BodyStatic                    // created once, never updated
	BodyKinematic                 // driven by keyframes through the next kinematic target
)

// String returns the body type name as used in scene files.
func (b BodyType) String() string {
	switch b {
	case BodyDynamic:
		return "dynamic"
	case BodyStatic:
		return "static"
	case BodyKinematic:
		return "kinematic"
	default:
		return "none"
	}
}

// ParseBodyType is the inverse of BodyType.String.
func ParseBodyType(s string) BodyType {
	switch s {
	case "dynamic":
		return BodyDynamic
	case "static":
		return BodyStatic
	case "kinematic":
		return BodyKinematic
	default:
		return BodyNone
	}
}

// Authority names the single writer allowed to touch a node's transform in
// the current frame.
type Authority uint8

const (
	AuthorityManual    Authority = iota // user edits (gizmo, undo/redo, scripts)
	AuthorityAnimated                   // keyframe timeline
	AuthoritySimulated                  // physics bridge
)

// String returns the authority name.
func (a Authority) String() string {
	switch a {
	case AuthorityAnimated:
		return "animated"
	case AuthoritySimulated:
		return "simulated"
	default:
		return "manual"
	}
}

// PlaybackState is the timeline state machine.
type PlaybackState uint8

const (
	Stopped PlaybackState = iota // t == 0
	Playing                      // t advances every tick
	Paused                       // t held
)

// String returns the state name.
func (p PlaybackState) String() string {
	switch p {
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	default:
		return "stopped"
	}
}

// EventType identifies a kind of engine event.
type EventType uint8

const (
	EventTransformEdited  EventType = iota // a non-physics writer changed a node
	EventAuthorityChanged                  // a node's authority changed
	EventPlaybackChanged                   // play, pause, reset or seek
	EventAutoPaused                        // runaway invalid-write fail-safe tripped
	EventPhysicsReset                      // a bound node was restored to its initial transform
)

// String returns the event name.
func (t EventType) String() string {
	switch t {
	case EventTransformEdited:
		return "transform-edited"
	case EventAuthorityChanged:
		return "authority-changed"
	case EventPlaybackChanged:
		return "playback-changed"
	case EventAutoPaused:
		return "auto-paused"
	case EventPhysicsReset:
		return "physics-reset"
	default:
		return "unknown"
	}
}
