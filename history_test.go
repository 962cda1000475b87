package rig

import "testing"

func newTestEngine() *Engine {
	e := NewEngine(DefaultConfig())
	e.SetLogger(nil)
	return e
}

func TestHistoryUndoRedoExact(t *testing.T) {
	e := newTestEngine()
	id, _ := e.CreateNode("n", NoNode, IdentityTransform())
	e.History().Clear()

	a := NewTransform(Vec3{1, 2, 3}, Vec3{0.1, 0.2, 0.3}, Vec3{1, 1, 1})
	b := NewTransform(Vec3{-4, 5, 6}, Vec3{0, 0, 1}, Vec3{2, 2, 2})
	if err := e.EditTransform(id, a); err != nil {
		t.Fatal(err)
	}
	if err := e.EditTransform(id, b); err != nil {
		t.Fatal(err)
	}

	e.Undo()
	got, _ := e.Scene().Local(id)
	if got != a {
		t.Errorf("after undo = %+v, want %+v", got, a)
	}
	e.Redo()
	got, _ = e.Scene().Local(id)
	if got != b {
		t.Errorf("after redo = %+v, want %+v", got, b)
	}
	e.Undo()
	e.Undo()
	got, _ = e.Scene().Local(id)
	if got != IdentityTransform() {
		t.Errorf("after two undos = %+v, want identity", got)
	}
	if e.History().RedoLen() != 2 || e.History().UndoLen() != 0 {
		t.Errorf("stacks: undo %d redo %d", e.History().UndoLen(), e.History().RedoLen())
	}
}

func TestHistoryCapDropsOldest(t *testing.T) {
	e := newTestEngine()
	id, _ := e.CreateNode("n", NoNode, IdentityTransform())
	e.History().Clear()

	for i := 1; i <= 11; i++ {
		if err := e.EditTransform(id, pos(float64(i), 0, 0)); err != nil {
			t.Fatal(err)
		}
	}
	if e.History().UndoLen() != DefaultHistoryLimit {
		t.Fatalf("undo len = %d, want %d", e.History().UndoLen(), DefaultHistoryLimit)
	}
	for i := 0; i < 10; i++ {
		if !e.Undo() {
			t.Fatalf("undo %d failed", i)
		}
	}
	if e.Undo() {
		t.Error("undo past the cap should report false")
	}
	got, _ := e.Scene().Local(id)
	assertVec(t, "state after edit #1", got.Position, Vec3{1, 0, 0})
}

func TestHistoryAddClearsRedo(t *testing.T) {
	e := newTestEngine()
	id, _ := e.CreateNode("n", NoNode, IdentityTransform())
	e.EditTransform(id, pos(1, 0, 0))
	e.Undo()
	if e.History().RedoLen() == 0 {
		t.Fatal("redo stack empty after undo")
	}
	e.EditTransform(id, pos(2, 0, 0))
	if e.History().RedoLen() != 0 {
		t.Error("new action should clear redo")
	}
}

func TestHistoryUndoCreateAndDelete(t *testing.T) {
	e := newTestEngine()
	id, _ := e.CreateNode("n", NoNode, pos(1, 2, 3))

	e.Undo()
	if _, ok := e.Scene().Node(id); ok {
		t.Fatal("undo create left the node")
	}
	e.Redo()
	local, ok := e.Scene().Local(id)
	if !ok {
		t.Fatal("redo create did not restore the node under the same id")
	}
	assertVec(t, "restored", local.Position, Vec3{1, 2, 3})

	if err := e.DeleteNode(id); err != nil {
		t.Fatal(err)
	}
	e.Undo()
	if _, ok := e.Scene().Node(id); !ok {
		t.Fatal("undo delete did not restore the node")
	}
}

func TestHistoryUndoDeleteReattachesChildren(t *testing.T) {
	e := newTestEngine()
	p, _ := e.CreateNode("p", NoNode, pos(5, 0, 0))
	c, _ := e.CreateNode("c", p, pos(1, 0, 0))

	if err := e.DeleteNode(p); err != nil {
		t.Fatal(err)
	}
	if e.Scene().Parent(c) != NoNode {
		t.Fatalf("child not re-parented to root")
	}
	w, _ := e.Scene().World(c)
	assertVec(t, "child world after delete", w.Position, Vec3{6, 0, 0})

	e.Undo()
	if e.Scene().Parent(c) != p {
		t.Errorf("child parent = %d, want %d", e.Scene().Parent(c), p)
	}
	local, _ := e.Scene().Local(c)
	assertVec(t, "child local", local.Position, Vec3{1, 0, 0})
}

func TestHistoryDropsActionForMissingNode(t *testing.T) {
	e := newTestEngine()
	id, _ := e.CreateNode("n", NoNode, IdentityTransform())
	e.History().Clear()
	e.EditTransform(id, pos(1, 0, 0))
	e.Scene().removeNode(id)

	if !e.Undo() {
		t.Fatal("undo should pop the stale action")
	}
	if e.History().RedoLen() != 0 {
		t.Error("stale action should not move to redo")
	}
}

func TestHistoryActionWithoutSnapshotIsDropped(t *testing.T) {
	e := newTestEngine()
	id, _ := e.CreateNode("n", NoNode, IdentityTransform())
	e.History().Clear()
	e.AddToHistory(Action{Kind: ActionTransform, Target: id})
	if !e.Undo() || e.History().RedoLen() != 0 {
		t.Error("action without snapshots should be dropped")
	}
}

func TestHistoryCustomLimit(t *testing.T) {
	e := NewEngine(Config{HistoryLimit: 3})
	e.SetLogger(nil)
	id, _ := e.CreateNode("n", NoNode, IdentityTransform())
	for i := 0; i < 5; i++ {
		e.EditTransform(id, pos(float64(i), 0, 0))
	}
	if e.History().Limit() != 3 || e.History().UndoLen() != 3 {
		t.Errorf("limit %d, undo %d", e.History().Limit(), e.History().UndoLen())
	}
}

func TestHistoryHoldsTransformOnSimulatedNodeWhilePlaying(t *testing.T) {
	e, _ := newPhysicsEngine(t)
	id, _ := e.CreateNode("n", NoNode, pos(7, 0, 0))
	e.EnablePhysics(id, BodyDynamic)
	e.History().Clear()
	e.EditTransform(id, pos(0, 0, 0))

	e.Play()
	e.Tick(0.1)
	if e.Undo() {
		t.Fatal("undo should be refused while the simulation owns the node")
	}
	if e.History().UndoLen() != 1 || e.History().RedoLen() != 0 {
		t.Fatalf("stacks: undo %d redo %d", e.History().UndoLen(), e.History().RedoLen())
	}
	local, _ := e.Scene().Local(id)
	assertVec(t, "untouched", local.Position, Vec3{})

	e.Pause()
	if !e.Undo() {
		t.Fatal("undo should apply once paused")
	}
	local, _ = e.Scene().Local(id)
	assertVec(t, "undone", local.Position, Vec3{7, 0, 0})

	e.Play()
	if e.Redo() || e.History().RedoLen() != 1 {
		t.Error("redo should be held while playing")
	}
}
