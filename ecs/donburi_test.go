package ecs

import (
	"testing"

	"github.com/phanxgames/rig"

	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/features/events"
)

func TestNewDonburiStore(t *testing.T) {
	world := donburi.NewWorld()
	store := NewDonburiStore(world)
	if store == nil {
		t.Fatal("NewDonburiStore returned nil")
	}
}

func TestDonburiStore_EmitEvent(t *testing.T) {
	world := donburi.NewWorld()
	store := NewDonburiStore(world)

	var received []rig.Event
	EngineEventType.Subscribe(world, func(w donburi.World, e rig.Event) {
		received = append(received, e)
	})

	store.EmitEvent(rig.Event{
		Type:      rig.EventTransformEdited,
		Node:      42,
		Transform: rig.NewTransform(rig.Vec3{1, 2, 3}, rig.Vec3{}, rig.Vec3{1, 1, 1}),
	})
	store.EmitEvent(rig.Event{
		Type:  rig.EventPlaybackChanged,
		State: rig.Playing,
		Time:  0.5,
	})

	// Events are queued; process them.
	EngineEventType.ProcessEvents(world)

	if len(received) != 2 {
		t.Fatalf("expected 2 events, got %d", len(received))
	}
	e0 := received[0]
	if e0.Type != rig.EventTransformEdited || e0.Node != 42 {
		t.Errorf("event 0: %+v", e0)
	}
	if e0.Transform.Position != (rig.Vec3{1, 2, 3}) {
		t.Errorf("event 0 position: %v", e0.Transform.Position)
	}
	e1 := received[1]
	if e1.Type != rig.EventPlaybackChanged || e1.State != rig.Playing || e1.Time != 0.5 {
		t.Errorf("event 1: %+v", e1)
	}
}

func TestDonburiStore_ImplementsEventSink(t *testing.T) {
	world := donburi.NewWorld()
	var store rig.EventSink = NewDonburiStore(world)
	_ = store // compile-time interface check
}

func TestDonburiStore_MultipleSubscribers(t *testing.T) {
	world := donburi.NewWorld()
	store := NewDonburiStore(world)

	var count1, count2 int
	EngineEventType.Subscribe(world, func(w donburi.World, e rig.Event) {
		count1++
	})
	EngineEventType.Subscribe(world, func(w donburi.World, e rig.Event) {
		count2++
	})

	store.EmitEvent(rig.Event{Type: rig.EventAutoPaused})
	events.ProcessAllEvents(world)

	if count1 != 1 || count2 != 1 {
		t.Errorf("expected both subscribers called once, got %d and %d", count1, count2)
	}
}

func TestEngineEventsReachWorld(t *testing.T) {
	world := donburi.NewWorld()
	e := rig.NewEngine(rig.DefaultConfig())
	e.SetLogger(nil)
	e.SetEventSink(NewDonburiStore(world))

	var edited int
	EngineEventType.Subscribe(world, func(w donburi.World, ev rig.Event) {
		if ev.Type == rig.EventTransformEdited {
			edited++
		}
	})

	id, err := e.CreateNode("box", rig.NoNode, rig.IdentityTransform())
	if err != nil {
		t.Fatal(err)
	}
	if err := e.EditTransform(id, rig.NewTransform(rig.Vec3{1, 0, 0}, rig.Vec3{}, rig.Vec3{1, 1, 1})); err != nil {
		t.Fatal(err)
	}
	events.ProcessAllEvents(world)
	if edited != 1 {
		t.Errorf("edited events = %d, want 1", edited)
	}
}

func TestTrackAuthority(t *testing.T) {
	world := donburi.NewWorld()
	tracker := TrackAuthority(world)
	store := NewDonburiStore(world)

	store.EmitEvent(rig.Event{Type: rig.EventAuthorityChanged, Node: 7,
		From: rig.AuthorityManual, To: rig.AuthorityAnimated})
	EngineEventType.ProcessEvents(world)

	got, ok := tracker.Authority(world, 7)
	if !ok || got != rig.AuthorityAnimated {
		t.Fatalf("authority = %v, %v; want animated", got, ok)
	}
	ent, _ := tracker.Entity(7)

	store.EmitEvent(rig.Event{Type: rig.EventAuthorityChanged, Node: 7,
		From: rig.AuthorityAnimated, To: rig.AuthoritySimulated})
	store.EmitEvent(rig.Event{Type: rig.EventTransformEdited, Node: 8})
	EngineEventType.ProcessEvents(world)

	got, _ = tracker.Authority(world, 7)
	if got != rig.AuthoritySimulated {
		t.Errorf("authority = %v, want simulated", got)
	}
	if again, _ := tracker.Entity(7); again != ent {
		t.Error("tracker created a second entity for the same node")
	}
	if _, ok := tracker.Entity(8); ok {
		t.Error("non-authority event created an entity")
	}
	if world.Len() != 1 {
		t.Errorf("world has %d entities, want 1", world.Len())
	}
}
