// Package ecs provides ECS adapters for rig.
package ecs

import (
	"github.com/phanxgames/rig"

	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/features/events"
)

// EngineEventType is the Donburi event type for rig engine events.
var EngineEventType = events.NewEventType[rig.Event]()

type donburiStore struct {
	world donburi.World
}

// NewDonburiStore creates an EventSink backed by a Donburi world. Engine
// events are published to EngineEventType and can be consumed with
// events.Subscribe and ProcessEvents.
func NewDonburiStore(world donburi.World) rig.EventSink {
	return &donburiStore{world: world}
}

func (s *donburiStore) EmitEvent(event rig.Event) {
	EngineEventType.Publish(s.world, event)
}

// NodeAuthority is the component attached to node entities by
// TrackAuthority.
type NodeAuthority struct {
	Node      rig.NodeID
	Authority rig.Authority
}

// NodeAuthorityComponent holds a NodeAuthority.
var NodeAuthorityComponent = donburi.NewComponentType[NodeAuthority]()

// AuthorityTracker mirrors node authorities into entities.
type AuthorityTracker struct {
	entities map[rig.NodeID]donburi.Entity
}

// TrackAuthority subscribes to AuthorityChanged events in world and keeps
// one entity per node with a NodeAuthorityComponent. Entities are created
// the first time a node changes authority.
func TrackAuthority(world donburi.World) *AuthorityTracker {
	t := &AuthorityTracker{entities: make(map[rig.NodeID]donburi.Entity)}
	EngineEventType.Subscribe(world, t.handle)
	return t
}

func (t *AuthorityTracker) handle(w donburi.World, ev rig.Event) {
	if ev.Type != rig.EventAuthorityChanged {
		return
	}
	ent, ok := t.entities[ev.Node]
	if !ok || !w.Valid(ent) {
		ent = w.Create(NodeAuthorityComponent)
		t.entities[ev.Node] = ent
	}
	NodeAuthorityComponent.SetValue(w.Entry(ent), NodeAuthority{Node: ev.Node, Authority: ev.To})
}

// Entity returns the entity tracking node.
func (t *AuthorityTracker) Entity(node rig.NodeID) (donburi.Entity, bool) {
	ent, ok := t.entities[node]
	return ent, ok
}

// Authority returns the last authority published for node.
func (t *AuthorityTracker) Authority(w donburi.World, node rig.NodeID) (rig.Authority, bool) {
	ent, ok := t.entities[node]
	if !ok || !w.Valid(ent) {
		return rig.AuthorityManual, false
	}
	return NodeAuthorityComponent.Get(w.Entry(ent)).Authority, true
}
