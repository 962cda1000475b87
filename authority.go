package rig

// authorityChange is one node's authority transition in a frame.
type authorityChange struct {
	node     NodeID
	from, to Authority
}

// resolver is the per-frame write policy: physics > keyframe > manual. It
// holds no state of its own; the one-frame suppression flags live on the
// nodes and are only consulted here.
type resolver struct {
	scene    *Scene
	timeline *Timeline
	bridge   *PhysicsBridge
}

// authorityFor evaluates the priority order for one node.
func (r resolver) authorityFor(n *Node, simulating bool) Authority {
	if simulating && r.bridge.simulated(n.id) {
		return AuthoritySimulated
	}
	if r.timeline.keyed(n.id) {
		return AuthorityAnimated
	}
	return AuthorityManual
}

// assign recomputes every node's authority and returns the transitions.
func (r resolver) assign(simulating bool) []authorityChange {
	var changes []authorityChange
	r.scene.Each(func(n *Node) {
		a := r.authorityFor(n, simulating)
		if a != n.authority {
			changes = append(changes, authorityChange{node: n.id, from: n.authority, to: a})
			n.authority = a
		}
	})
	return changes
}

// commitSamples lands keyframe samples on nodes whose authority is
// Animated. Samples for simulated nodes are left for the physics bridge to
// use as kinematic targets. It returns the number of discarded non-finite
// samples.
func (r resolver) commitSamples(samples []Sample) (invalid int) {
	for _, smp := range samples {
		n, ok := r.scene.nodes[smp.Target]
		if !ok {
			continue
		}
		if !smp.Valid {
			invalid++
			continue
		}
		if !r.writable(n, AuthorityAnimated) {
			continue
		}
		r.scene.setLocal(n, smp.Transform, true)
	}
	return invalid
}

// writable reports whether writer may land a write on n this frame.
func (r resolver) writable(n *Node, writer Authority) bool {
	if n.justReset {
		return false
	}
	if writer == AuthorityAnimated && n.gizmoEdited {
		return false
	}
	return n.authority == writer
}

// physicsSkip is passed to the bridge so reset nodes are not overwritten in
// the frame they were reset.
func (r resolver) physicsSkip(id NodeID) bool {
	n, ok := r.scene.nodes[id]
	return !ok || !r.writable(n, AuthoritySimulated)
}

// endFrame clears the one-frame suppression flags.
func (r resolver) endFrame() {
	for _, n := range r.scene.nodes {
		n.justReset = false
		n.gizmoEdited = false
	}
}
