package rig

import "github.com/pkg/errors"

// SetParent moves child under parent (NoNode makes it a root). The child's
// world position, rotation and scale are captured first and its local
// transform is recomputed against the new parent so it does not visually
// jump. Moving a node under itself or one of its descendants returns
// ErrCycle and leaves the tree unchanged.
func (s *Scene) SetParent(child, parent NodeID) error {
	n, ok := s.nodes[child]
	if !ok {
		return errors.Wrapf(ErrUnknownNode, "child %d", child)
	}
	if parent != NoNode {
		if _, ok := s.nodes[parent]; !ok {
			return errors.Wrapf(ErrUnknownNode, "parent %d", parent)
		}
		if s.isAncestor(child, parent) {
			return errors.Wrapf(ErrCycle, "node %d under %d", child, parent)
		}
	}

	world := decomposeMatrix(s.worldMatrix(n))

	s.detach(n)
	s.attach(n, parent)

	local := invertMatrix(s.parentWorld(n)).Mul4(world.Matrix())
	n.local = decomposeMatrix(local)
	markSubtreeDirty(s, n)

	if s.graph != nil {
		s.graph.Reparent(child, parent)
	}
	return nil
}

// isAncestor reports whether candidate is node or one of its ancestors.
func (s *Scene) isAncestor(candidate, node NodeID) bool {
	for id := node; id != NoNode; {
		if id == candidate {
			return true
		}
		n, ok := s.nodes[id]
		if !ok {
			return false
		}
		id = n.parent
	}
	return false
}
