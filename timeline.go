package rig

import (
	"time"

	"github.com/pkg/errors"
)

// Default fail-safe limits for runaway interpolation.
const (
	DefaultErrorThreshold = 100
	DefaultErrorWindow    = 1000 * time.Millisecond
)

// Sample is the merged keyframe result for one target node at one time.
type Sample struct {
	Target    NodeID
	Transform Transform
	Channels  ChannelMask
	// Valid is false when interpolation produced a non-finite component; such
	// samples are never committed.
	Valid bool
}

// Timeline stores animations and runs the playback state machine
// Stopped -> Playing <-> Paused, with reset back to Stopped at t=0.
type Timeline struct {
	anims map[string]*Animation
	order []string

	state PlaybackState
	time  float64
	// dirty forces a resample while not playing (scrub, keyframe edits).
	dirty bool

	// Samples from the most recent SampleAtTime, by target.
	last map[NodeID]Sample

	errs errorWindow
}

// NewTimeline creates a stopped timeline at t=0.
func NewTimeline() *Timeline {
	return &Timeline{
		anims: make(map[string]*Animation),
		last:  make(map[NodeID]Sample),
		errs:  newErrorWindow(DefaultErrorThreshold, DefaultErrorWindow),
	}
}

// State returns the playback state.
func (tl *Timeline) State() PlaybackState { return tl.state }

// Time returns the current playback time in seconds.
func (tl *Timeline) Time() float64 { return tl.time }

// Duration returns the latest keyframe time over all animations.
func (tl *Timeline) Duration() float64 {
	d := 0.0
	for _, a := range tl.anims {
		if ad := a.Duration(); ad > d {
			d = ad
		}
	}
	return d
}

// AddAnimation creates and registers an empty animation for target.
func (tl *Timeline) AddAnimation(target NodeID) *Animation {
	a := NewAnimation(target)
	tl.anims[a.ID] = a
	tl.order = append(tl.order, a.ID)
	return a
}

// Register adds an animation built elsewhere (for example by a scene
// loader). An animation with the same ID is replaced.
func (tl *Timeline) Register(a *Animation) {
	if _, ok := tl.anims[a.ID]; !ok {
		tl.order = append(tl.order, a.ID)
	}
	tl.anims[a.ID] = a
	tl.dirty = true
}

// Animation returns the animation with the given ID.
func (tl *Timeline) Animation(id string) (*Animation, bool) {
	a, ok := tl.anims[id]
	return a, ok
}

// Animations returns every animation in registration order.
func (tl *Timeline) Animations() []*Animation {
	out := make([]*Animation, 0, len(tl.order))
	for _, id := range tl.order {
		out = append(out, tl.anims[id])
	}
	return out
}

// AnimationsFor returns the animations targeting node.
func (tl *Timeline) AnimationsFor(node NodeID) []*Animation {
	var out []*Animation
	for _, id := range tl.order {
		if a := tl.anims[id]; a.Target == node {
			out = append(out, a)
		}
	}
	return out
}

// RemoveAnimation unregisters an animation.
func (tl *Timeline) RemoveAnimation(id string) {
	if _, ok := tl.anims[id]; !ok {
		return
	}
	delete(tl.anims, id)
	for i, o := range tl.order {
		if o == id {
			tl.order = append(tl.order[:i], tl.order[i+1:]...)
			break
		}
	}
}

// AddKeyframe inserts k into the animation, keeping its channel time-sorted.
func (tl *Timeline) AddKeyframe(animID string, k Keyframe) error {
	a, ok := tl.anims[animID]
	if !ok {
		return errors.Wrap(ErrUnknownAnimation, animID)
	}
	if err := a.Add(k); err != nil {
		return err
	}
	tl.dirty = true
	return nil
}

// RemoveKeyframe removes the keyframes at time on the given channels, or on
// every channel when none are given.
func (tl *Timeline) RemoveKeyframe(animID string, time float64, channels ...Channel) error {
	a, ok := tl.anims[animID]
	if !ok {
		return errors.Wrap(ErrUnknownAnimation, animID)
	}
	if a.Remove(time, channels...) == 0 {
		return errors.Wrapf(ErrNoKeyframe, "%s at %v", animID, time)
	}
	tl.dirty = true
	return nil
}

// UpdateKeyframeTime moves keyframes from oldTime to newTime and re-sorts.
func (tl *Timeline) UpdateKeyframeTime(animID string, oldTime, newTime float64, channels ...Channel) error {
	a, ok := tl.anims[animID]
	if !ok {
		return errors.Wrap(ErrUnknownAnimation, animID)
	}
	n, err := a.UpdateTime(oldTime, newTime, channels...)
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.Wrapf(ErrNoKeyframe, "%s at %v", animID, oldTime)
	}
	tl.dirty = true
	return nil
}

// SampleAtTime evaluates every animation at t against the scene's current
// local transforms. Animations on the same target are merged in
// registration order. Nothing is written to the scene.
func (tl *Timeline) SampleAtTime(t float64, s *Scene) []Sample {
	clear(tl.last)
	var targets []NodeID
	for _, id := range tl.order {
		a := tl.anims[id]
		if a.Len() == 0 {
			continue
		}
		prev, seen := tl.last[a.Target]
		current := prev.Transform
		if !seen {
			local, ok := s.Local(a.Target)
			if !ok {
				continue
			}
			current = local
			targets = append(targets, a.Target)
		}
		out, mask := a.Sample(t, current)
		tl.last[a.Target] = Sample{
			Target:    a.Target,
			Transform: out,
			Channels:  prev.Channels | mask,
		}
	}

	samples := make([]Sample, 0, len(targets))
	for _, id := range targets {
		smp := tl.last[id]
		smp.Valid = smp.Transform.IsFinite()
		tl.last[id] = smp
		samples = append(samples, smp)
	}
	return samples
}

// KinematicTarget returns the sample computed for node in the current
// frame, if any of its channels are keyed.
func (tl *Timeline) KinematicTarget(node NodeID) (Sample, bool) {
	smp, ok := tl.last[node]
	if !ok || !smp.Valid || smp.Channels == 0 {
		return Sample{}, false
	}
	return smp, true
}

// keyed reports whether any animation drives node.
func (tl *Timeline) keyed(node NodeID) bool {
	for _, a := range tl.anims {
		if a.Target == node && a.Len() > 0 {
			return true
		}
	}
	return false
}

// --- state machine ---

// play moves Stopped or Paused to Playing. fromZero reports a start at t=0.
func (tl *Timeline) play() (changed, fromZero bool) {
	if tl.state == Playing {
		return false, false
	}
	fromZero = tl.state == Stopped && tl.time == 0
	tl.state = Playing
	return true, fromZero
}

func (tl *Timeline) pause() bool {
	if tl.state != Playing {
		return false
	}
	tl.state = Paused
	return true
}

func (tl *Timeline) reset() {
	tl.state = Stopped
	tl.time = 0
	tl.dirty = true
}

func (tl *Timeline) seek(t float64) {
	if t < 0 {
		t = 0
	}
	tl.time = t
	tl.dirty = true
}

// advance moves time forward while playing and reports whether keyframes
// need sampling this frame.
func (tl *Timeline) advance(dt float64) bool {
	if tl.state == Playing {
		if dt > 0 {
			tl.time += dt
		}
		tl.dirty = false
		return true
	}
	if tl.dirty {
		tl.dirty = false
		return true
	}
	return false
}

// errorWindow counts invalid-apply events inside a fixed cooldown window.
type errorWindow struct {
	threshold int
	window    time.Duration
	now       func() time.Time

	start time.Time
	count int
}

func newErrorWindow(threshold int, window time.Duration) errorWindow {
	return errorWindow{threshold: threshold, window: window, now: time.Now}
}

// record counts one event and reports whether the threshold was reached
// inside the current window. The counter restarts after tripping.
func (w *errorWindow) record() bool {
	now := w.now()
	if w.start.IsZero() || now.Sub(w.start) > w.window {
		w.start = now
		w.count = 0
	}
	w.count++
	if w.count >= w.threshold {
		w.count = 0
		w.start = time.Time{}
		return true
	}
	return false
}
