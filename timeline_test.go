package rig

import (
	"errors"
	"testing"
	"time"
)

func TestTimelineSampleAtTimeDoesNotWrite(t *testing.T) {
	s := NewScene()
	id, _ := s.NewNode("n", NoNode, IdentityTransform())
	tl := NewTimeline()
	a := tl.AddAnimation(id)
	tl.AddKeyframe(a.ID, posKey(0, 0, 0, 0, EaseLinear))
	tl.AddKeyframe(a.ID, posKey(2, 10, 0, 0, EaseLinear))

	samples := tl.SampleAtTime(1, s)
	if len(samples) != 1 {
		t.Fatalf("samples = %d, want 1", len(samples))
	}
	if !samples[0].Valid || samples[0].Target != id {
		t.Errorf("sample = %+v", samples[0])
	}
	assertVec(t, "sample", samples[0].Transform.Position, Vec3{5, 0, 0})

	local, _ := s.Local(id)
	assertTransform(t, "scene untouched", local, IdentityTransform())
}

func TestTimelineMergesAnimationsPerTarget(t *testing.T) {
	s := NewScene()
	id, _ := s.NewNode("n", NoNode, IdentityTransform())
	tl := NewTimeline()
	move := tl.AddAnimation(id)
	tl.AddKeyframe(move.ID, posKey(0, 3, 0, 0, EaseLinear))
	grow := tl.AddAnimation(id)
	tl.AddKeyframe(grow.ID, Keyframe{Time: 0, Channel: ChannelScale,
		Transform: NewTransform(Vec3{}, Vec3{}, Vec3{2, 2, 2})})

	samples := tl.SampleAtTime(0, s)
	if len(samples) != 1 {
		t.Fatalf("samples = %d, want 1 merged", len(samples))
	}
	smp := samples[0]
	assertVec(t, "position", smp.Transform.Position, Vec3{3, 0, 0})
	assertVec(t, "scale", smp.Transform.Scale, Vec3{2, 2, 2})
	if !smp.Channels.Has(ChannelPosition) || !smp.Channels.Has(ChannelScale) || smp.Channels.Has(ChannelRotation) {
		t.Errorf("channels = %b", smp.Channels)
	}
}

func TestTimelineSkipsMissingTargets(t *testing.T) {
	s := NewScene()
	tl := NewTimeline()
	a := tl.AddAnimation(42)
	tl.AddKeyframe(a.ID, posKey(0, 1, 0, 0, EaseLinear))
	if got := tl.SampleAtTime(0, s); len(got) != 0 {
		t.Errorf("samples for missing node: %v", got)
	}
}

func TestTimelineKeyframeErrors(t *testing.T) {
	tl := NewTimeline()
	if err := tl.AddKeyframe("nope", posKey(0, 0, 0, 0, EaseLinear)); !errors.Is(err, ErrUnknownAnimation) {
		t.Errorf("AddKeyframe unknown: %v", err)
	}
	a := tl.AddAnimation(1)
	if err := tl.RemoveKeyframe(a.ID, 3); !errors.Is(err, ErrNoKeyframe) {
		t.Errorf("RemoveKeyframe missing: %v", err)
	}
	if err := tl.UpdateKeyframeTime(a.ID, 3, 4); !errors.Is(err, ErrNoKeyframe) {
		t.Errorf("UpdateKeyframeTime missing: %v", err)
	}
}

func TestTimelineDuration(t *testing.T) {
	tl := NewTimeline()
	a := tl.AddAnimation(1)
	b := tl.AddAnimation(2)
	tl.AddKeyframe(a.ID, posKey(1.5, 0, 0, 0, EaseLinear))
	tl.AddKeyframe(b.ID, posKey(4, 0, 0, 0, EaseLinear))
	assertNear(t, "duration", tl.Duration(), 4)

	tl.RemoveAnimation(b.ID)
	assertNear(t, "duration after remove", tl.Duration(), 1.5)
	if len(tl.Animations()) != 1 {
		t.Errorf("animations = %d", len(tl.Animations()))
	}
}

func TestTimelineStateMachine(t *testing.T) {
	tl := NewTimeline()
	if tl.State() != Stopped {
		t.Fatalf("initial state %s", tl.State())
	}
	changed, fromZero := tl.play()
	if !changed || !fromZero {
		t.Errorf("play from stopped: changed=%v fromZero=%v", changed, fromZero)
	}
	if changed, _ := tl.play(); changed {
		t.Error("play while playing should be a no-op")
	}
	tl.advance(0.5)
	assertNear(t, "time", tl.Time(), 0.5)

	if !tl.pause() || tl.State() != Paused {
		t.Error("pause failed")
	}
	tl.advance(1)
	assertNear(t, "paused time", tl.Time(), 0.5)

	changed, fromZero = tl.play()
	if !changed || fromZero {
		t.Errorf("resume: changed=%v fromZero=%v", changed, fromZero)
	}
	tl.reset()
	if tl.State() != Stopped || tl.Time() != 0 {
		t.Errorf("reset: %s at %v", tl.State(), tl.Time())
	}
}

func TestTimelineAdvanceSamplesOnlyWhenNeeded(t *testing.T) {
	tl := NewTimeline()
	tl.dirty = false
	if tl.advance(0.1) {
		t.Error("stopped, clean timeline should not sample")
	}
	tl.seek(2)
	if !tl.advance(0.1) {
		t.Error("seek should force one sample")
	}
	if tl.advance(0.1) {
		t.Error("dirty flag should clear after one sample")
	}
	assertNear(t, "seek does not advance", tl.Time(), 2)
}

func TestErrorWindow(t *testing.T) {
	now := time.Unix(0, 0)
	w := newErrorWindow(3, time.Second)
	w.now = func() time.Time { return now }

	if w.record() || w.record() {
		t.Fatal("tripped below threshold")
	}
	if !w.record() {
		t.Fatal("third event should trip")
	}
	// Counter restarted after tripping.
	if w.record() {
		t.Fatal("tripped right after restart")
	}

	// Events spread past the window never trip.
	w = newErrorWindow(3, time.Second)
	w.now = func() time.Time { return now }
	for i := 0; i < 10; i++ {
		now = now.Add(600 * time.Millisecond)
		if w.record() {
			t.Fatalf("tripped on spread event %d", i)
		}
	}
}
