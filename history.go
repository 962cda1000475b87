package rig

// DefaultHistoryLimit caps both the undo and the redo stack.
const DefaultHistoryLimit = 10

// ActionKind tags a history Action.
type ActionKind uint8

const (
	ActionTransform ActionKind = iota // Target moved from Before to After
	ActionCreate                      // Nodes were created
	ActionDelete                      // Nodes were deleted
)

// String returns the action kind name.
func (k ActionKind) String() string {
	switch k {
	case ActionCreate:
		return "create"
	case ActionDelete:
		return "delete"
	default:
		return "transform"
	}
}

// Action is one undoable edit. Transform actions carry full before/after
// snapshots; Create and Delete actions carry node snapshots in creation
// order (parents before children).
type Action struct {
	Kind   ActionKind
	Target NodeID
	Before *Transform
	After  *Transform
	Nodes  []NodeSnapshot
}

// TransformAction records target moving from before to after.
func TransformAction(target NodeID, before, after Transform) Action {
	return Action{Kind: ActionTransform, Target: target, Before: &before, After: &after}
}

// CreateAction records the creation of nodes.
func CreateAction(nodes ...NodeSnapshot) Action {
	return Action{Kind: ActionCreate, Nodes: nodes}
}

// DeleteAction records the deletion of nodes.
func DeleteAction(nodes ...NodeSnapshot) Action {
	return Action{Kind: ActionDelete, Nodes: nodes}
}

// HistoryTarget is the state an Action is replayed against.
type HistoryTarget interface {
	// CurrentTransform returns the node's local transform.
	CurrentTransform(id NodeID) (Transform, bool)
	// ApplyTransform writes a local transform as a manual edit.
	ApplyTransform(id NodeID, t Transform) bool
	// Blocked reports whether manual writes to id are refused right now
	// because another authority owns the node.
	Blocked(id NodeID) bool
	// RemoveNodes deletes nodes and returns fresh snapshots of those that
	// existed, in the given order.
	RemoveNodes(nodes []NodeSnapshot) []NodeSnapshot
	// RestoreNodes re-creates nodes from snapshots and returns those that
	// were restored.
	RestoreNodes(nodes []NodeSnapshot) []NodeSnapshot
}

// History is a pair of bounded undo/redo stacks.
type History struct {
	target HistoryTarget
	limit  int
	undo   []Action
	redo   []Action
}

// NewHistory creates a history replaying onto target. A limit <= 0 uses
// DefaultHistoryLimit.
func NewHistory(target HistoryTarget, limit int) *History {
	if target == nil {
		panic("rig: history needs a target")
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &History{target: target, limit: limit}
}

// Limit returns the per-stack cap.
func (h *History) Limit() int { return h.limit }

// UndoLen returns the number of undoable actions.
func (h *History) UndoLen() int { return len(h.undo) }

// RedoLen returns the number of redoable actions.
func (h *History) RedoLen() int { return len(h.redo) }

// Undoable returns the undo stack, oldest first. The returned slice MUST NOT
// be mutated.
func (h *History) Undoable() []Action { return h.undo }

// Redoable returns the redo stack, oldest first. The returned slice MUST NOT
// be mutated.
func (h *History) Redoable() []Action { return h.redo }

// Add pushes a new action, dropping the oldest past the limit, and clears
// the redo stack.
func (h *History) Add(a Action) {
	h.undo = h.push(h.undo, a)
	h.redo = h.redo[:0]
}

// Clear empties both stacks.
func (h *History) Clear() {
	h.undo = h.undo[:0]
	h.redo = h.redo[:0]
}

// Undo reverts the most recent action and moves its inverse onto the redo
// stack. It reports whether an action was popped. Actions missing their
// snapshot data are dropped without effect. A transform action on a blocked
// node stays on the stack and Undo reports false.
func (h *History) Undo() bool {
	if h.blocked(h.undo) {
		return false
	}
	a, ok := pop(&h.undo)
	if !ok {
		return false
	}
	if inv, ok := h.replay(a, false); ok {
		h.redo = h.push(h.redo, inv)
	}
	return true
}

// Redo re-applies the most recently undone action and moves its inverse
// back onto the undo stack.
func (h *History) Redo() bool {
	if h.blocked(h.redo) {
		return false
	}
	a, ok := pop(&h.redo)
	if !ok {
		return false
	}
	if inv, ok := h.replay(a, true); ok {
		h.undo = h.push(h.undo, inv)
	}
	return true
}

// blocked reports whether the top of stack is a transform action whose
// target currently refuses manual writes.
func (h *History) blocked(stack []Action) bool {
	if len(stack) == 0 {
		return false
	}
	a := stack[len(stack)-1]
	return a.Kind == ActionTransform && h.target.Blocked(a.Target)
}

// replay applies a and returns the action that reverses it. forward selects
// After (redo) over Before (undo) for transform actions.
func (h *History) replay(a Action, forward bool) (Action, bool) {
	switch a.Kind {
	case ActionTransform:
		want := a.Before
		if forward {
			want = a.After
		}
		if want == nil {
			return Action{}, false
		}
		current, ok := h.target.CurrentTransform(a.Target)
		if !ok || !h.target.ApplyTransform(a.Target, *want) {
			return Action{}, false
		}
		if forward {
			return TransformAction(a.Target, current, *want), true
		}
		return TransformAction(a.Target, *want, current), true

	case ActionCreate:
		removed := h.target.RemoveNodes(a.Nodes)
		if len(removed) == 0 {
			return Action{}, false
		}
		return DeleteAction(removed...), true

	case ActionDelete:
		restored := h.target.RestoreNodes(a.Nodes)
		if len(restored) == 0 {
			return Action{}, false
		}
		return CreateAction(restored...), true
	}
	return Action{}, false
}

func (h *History) push(stack []Action, a Action) []Action {
	stack = append(stack, a)
	if over := len(stack) - h.limit; over > 0 {
		copy(stack, stack[over:])
		for i := len(stack) - over; i < len(stack); i++ {
			stack[i] = Action{}
		}
		stack = stack[:len(stack)-over]
	}
	return stack
}

func pop(stack *[]Action) (Action, bool) {
	s := *stack
	if len(s) == 0 {
		return Action{}, false
	}
	a := s[len(s)-1]
	s[len(s)-1] = Action{}
	*stack = s[:len(s)-1]
	return a, true
}
