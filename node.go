package rig

import "github.com/go-gl/mathgl/mgl64"

// NodeFlags is the per-node side table read by the engine's writers.
type NodeFlags struct {
	// PhysicsEnabled is set while the node has a rigid-body binding.
	PhysicsEnabled bool
	// BodyType is BodyNone unless physics is enabled.
	BodyType BodyType
	// Locked rejects manual writes.
	Locked bool
	// Initial is the snapshot restored on reset. HasInitial reports whether
	// it has been taken.
	Initial    Transform
	HasInitial bool
}

// Node is one element of the scene arena. Nodes are created and mutated
// through the owning Scene or Engine; the exported accessors are read-only
// views.
type Node struct {
	id       NodeID
	name     string
	parent   NodeID
	children []NodeID

	local Transform

	// Computed world matrix, refreshed lazily when worldDirty.
	world      mgl64.Mat4
	worldDirty bool

	flags     NodeFlags
	authority Authority

	// One-frame suppression flags consulted by the resolver.
	justReset   bool
	gizmoEdited bool

	disposed bool
}

func newNode(id NodeID, name string, t Transform) *Node {
	return &Node{
		id:         id,
		name:       name,
		local:      t,
		worldDirty: true,
	}
}

// ID returns the node's stable handle.
func (n *Node) ID() NodeID { return n.id }

// Name returns the node's display name.
func (n *Node) Name() string { return n.name }

// Parent returns the parent ID, or NoNode for roots.
func (n *Node) Parent() NodeID { return n.parent }

// Children returns the child list. The returned slice MUST NOT be mutated by the caller.
func (n *Node) Children() []NodeID { return n.children }

// Transform returns the node's local transform.
func (n *Node) Transform() Transform { return n.local }

// Flags returns a copy of the node's side table.
func (n *Node) Flags() NodeFlags { return n.flags }

// Authority returns the writer that owned the node in the last frame.
func (n *Node) Authority() Authority { return n.authority }

// IsDisposed returns true if this node has been removed from its scene.
func (n *Node) IsDisposed() bool { return n.disposed }

// removeChildByID removes child from n.children without touching the child.
// The slice is released when it becomes empty.
func (n *Node) removeChildByID(child NodeID) {
	for i, c := range n.children {
		if c == child {
			copy(n.children[i:], n.children[i+1:])
			n.children = n.children[:len(n.children)-1]
			break
		}
	}
	if len(n.children) == 0 {
		n.children = nil
	}
}
