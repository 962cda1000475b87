package rig

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
)

// SceneGraph is the render/display collaborator. The arena notifies it of
// structural changes; it reads transforms back through the Scene and never
// writes them.
type SceneGraph interface {
	Add(id, parent NodeID)
	Remove(id NodeID)
	Reparent(id, parent NodeID)
}

// NodeSnapshot is everything needed to re-create a removed node with the
// same ID.
type NodeSnapshot struct {
	ID       NodeID
	Name     string
	Parent   NodeID
	Local    Transform
	Children []NodeID
	Flags    NodeFlags
}

// Scene is the arena that owns every node. All components read and write
// transforms through it.
type Scene struct {
	nodes  map[NodeID]*Node
	roots  []NodeID
	nextID NodeID
	graph  SceneGraph

	// Nodes written by a non-physics writer since the last drain, in write order.
	edited    []NodeID
	editedSet map[NodeID]struct{}
}

// NewScene creates an empty arena.
func NewScene() *Scene {
	return &Scene{
		nodes:     make(map[NodeID]*Node),
		editedSet: make(map[NodeID]struct{}),
	}
}

// SetSceneGraph attaches the display collaborator. Nil detaches it.
func (s *Scene) SetSceneGraph(g SceneGraph) {
	s.graph = g
}

// NewNode adds a node under parent (NoNode for a root) with the given local
// transform and returns its ID.
func (s *Scene) NewNode(name string, parent NodeID, local Transform) (NodeID, error) {
	if parent != NoNode {
		if _, ok := s.nodes[parent]; !ok {
			return NoNode, errors.Wrapf(ErrUnknownNode, "parent %d", parent)
		}
	}
	s.nextID++
	n := newNode(s.nextID, name, local)
	s.insert(n, parent)
	return n.id, nil
}

func (s *Scene) insert(n *Node, parent NodeID) {
	s.nodes[n.id] = n
	s.attach(n, parent)
	if s.graph != nil {
		s.graph.Add(n.id, parent)
	}
}

// Node returns the node for id.
func (s *Scene) Node(id NodeID) (*Node, bool) {
	n, ok := s.nodes[id]
	return n, ok
}

// Len returns the number of live nodes.
func (s *Scene) Len() int {
	return len(s.nodes)
}

// Roots returns the root-level nodes. The returned slice MUST NOT be mutated.
func (s *Scene) Roots() []NodeID {
	return s.roots
}

// Each calls fn for every node in depth-first hierarchy order.
func (s *Scene) Each(fn func(n *Node)) {
	var walk func(ids []NodeID)
	walk = func(ids []NodeID) {
		for _, id := range ids {
			n := s.nodes[id]
			fn(n)
			walk(n.children)
		}
	}
	walk(s.roots)
}

// Local returns the node's local transform.
func (s *Scene) Local(id NodeID) (Transform, bool) {
	n, ok := s.nodes[id]
	if !ok {
		return Transform{}, false
	}
	return n.local, true
}

// WorldMatrix returns the node's world matrix.
func (s *Scene) WorldMatrix(id NodeID) (mgl64.Mat4, bool) {
	n, ok := s.nodes[id]
	if !ok {
		return mgl64.Mat4{}, false
	}
	return s.worldMatrix(n), true
}

// World returns the node's world-space position, rotation and scale.
func (s *Scene) World(id NodeID) (Transform, bool) {
	m, ok := s.WorldMatrix(id)
	if !ok {
		return Transform{}, false
	}
	return decomposeMatrix(m), true
}

func (s *Scene) worldMatrix(n *Node) mgl64.Mat4 {
	if n.worldDirty {
		parentWorld := mgl64.Ident4()
		if p, ok := s.nodes[n.parent]; ok {
			parentWorld = s.worldMatrix(p)
		}
		n.world = parentWorld.Mul4(n.local.Matrix())
		n.worldDirty = false
	}
	return n.world
}

func (s *Scene) parentWorld(n *Node) mgl64.Mat4 {
	if p, ok := s.nodes[n.parent]; ok {
		return s.worldMatrix(p)
	}
	return mgl64.Ident4()
}

// setLocal writes a local transform. Non-physics writes are queued as
// TransformEdited messages for the physics bridge.
func (s *Scene) setLocal(n *Node, t Transform, edited bool) {
	n.local = t
	markSubtreeDirty(s, n)
	if edited {
		s.markEdited(n.id)
	}
}

// setWorld writes a world-space transform, converting it into the parent's
// space.
func (s *Scene) setWorld(n *Node, world Transform, edited bool) {
	local := invertMatrix(s.parentWorld(n)).Mul4(world.Matrix())
	s.setLocal(n, decomposeMatrix(local), edited)
}

func (s *Scene) markEdited(id NodeID) {
	if _, ok := s.editedSet[id]; ok {
		return
	}
	s.editedSet[id] = struct{}{}
	s.edited = append(s.edited, id)
}

// drainEdited returns and clears the queued TransformEdited IDs.
func (s *Scene) drainEdited() []NodeID {
	if len(s.edited) == 0 {
		return nil
	}
	out := s.edited
	s.edited = nil
	clear(s.editedSet)
	return out
}

// Children returns the current child set of id (empty if none).
func (s *Scene) Children(id NodeID) []NodeID {
	if n, ok := s.nodes[id]; ok {
		return n.children
	}
	return nil
}

// Parent returns the parent of id, or NoNode.
func (s *Scene) Parent(id NodeID) NodeID {
	if n, ok := s.nodes[id]; ok {
		return n.parent
	}
	return NoNode
}

func (s *Scene) attach(n *Node, parent NodeID) {
	n.parent = parent
	if p, ok := s.nodes[parent]; ok {
		p.children = append(p.children, n.id)
	} else {
		n.parent = NoNode
		s.roots = append(s.roots, n.id)
	}
	markSubtreeDirty(s, n)
}

func (s *Scene) detach(n *Node) {
	if p, ok := s.nodes[n.parent]; ok {
		p.removeChildByID(n.id)
	} else {
		for i, id := range s.roots {
			if id == n.id {
				copy(s.roots[i:], s.roots[i+1:])
				s.roots = s.roots[:len(s.roots)-1]
				break
			}
		}
	}
	n.parent = NoNode
}

func (s *Scene) snapshot(n *Node) NodeSnapshot {
	return NodeSnapshot{
		ID:       n.id,
		Name:     n.name,
		Parent:   n.parent,
		Local:    n.local,
		Children: append([]NodeID(nil), n.children...),
		Flags:    n.flags,
	}
}

// removeNode deletes a node from the arena. Its children move to its parent
// keeping their world transforms.
func (s *Scene) removeNode(id NodeID) (NodeSnapshot, error) {
	n, ok := s.nodes[id]
	if !ok {
		return NodeSnapshot{}, errors.Wrapf(ErrUnknownNode, "remove %d", id)
	}
	snap := s.snapshot(n)
	for _, c := range snap.Children {
		if err := s.SetParent(c, n.parent); err != nil {
			return NodeSnapshot{}, err
		}
	}
	s.detach(n)
	delete(s.nodes, id)
	n.disposed = true
	if s.graph != nil {
		s.graph.Remove(id)
	}
	return snap, nil
}

// restoreNode re-creates a removed node under its old ID and pulls its
// former children back under it.
func (s *Scene) restoreNode(snap NodeSnapshot) error {
	if _, ok := s.nodes[snap.ID]; ok {
		return errors.Errorf("rig: node %d already exists", snap.ID)
	}
	n := newNode(snap.ID, snap.Name, snap.Local)
	n.flags = snap.Flags
	if snap.ID > s.nextID {
		s.nextID = snap.ID
	}
	s.insert(n, snap.Parent)
	for _, c := range snap.Children {
		if _, ok := s.nodes[c]; !ok {
			continue
		}
		if err := s.SetParent(c, snap.ID); err != nil {
			return err
		}
	}
	return nil
}

// markSubtreeDirty invalidates the cached world matrix of node and all its
// descendants.
func markSubtreeDirty(s *Scene, node *Node) {
	node.worldDirty = true
	for _, id := range node.children {
		if c, ok := s.nodes[id]; ok {
			markSubtreeDirty(s, c)
		}
	}
}
