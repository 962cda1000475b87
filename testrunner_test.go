package rig

import (
	"fmt"
	"testing"
)

func TestLoadTestScript(t *testing.T) {
	data := []byte(`{
		"steps": [
			{"action": "edit", "node": 1, "position": [1, 2, 3]},
			{"action": "play"},
			{"action": "wait", "frames": 3},
			{"action": "drag", "node": 1, "scale": [2, 2, 2], "frames": 4, "easing": "easeOut"}
		]
	}`)

	runner, err := LoadTestScript(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(runner.steps) != 4 {
		t.Fatalf("expected 4 steps, got %d", len(runner.steps))
	}
	st := runner.steps[0]
	if st.Action != "edit" || st.Node != 1 || st.Position == nil || *st.Position != [3]float64{1, 2, 3} {
		t.Errorf("step 0 mismatch: %+v", st)
	}
	if st.Rotation != nil || st.Scale != nil {
		t.Error("omitted channels should stay nil")
	}
	if runner.steps[2].Action != "wait" || runner.steps[2].Frames != 3 {
		t.Error("step 2 mismatch")
	}
	if st := runner.steps[3]; st.Frames != 4 || st.Easing != "easeOut" {
		t.Errorf("step 3 mismatch: %+v", st)
	}
}

func TestLoadTestScript_Invalid(t *testing.T) {
	_, err := LoadTestScript([]byte(`not json`))
	if err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestLoadTestScript_Empty(t *testing.T) {
	_, err := LoadTestScript([]byte(`{"steps": []}`))
	if err == nil {
		t.Error("expected error for empty steps")
	}
}

func TestLoadTestScript_UnknownAction(t *testing.T) {
	_, err := LoadTestScript([]byte(`{"steps": [{"action": "screenshot"}]}`))
	if err == nil {
		t.Error("expected error for unknown action")
	}
}

func TestRunnerStep_EditUndoRedo(t *testing.T) {
	e := newTestEngine()
	id, _ := e.CreateNode("n", NoNode, IdentityTransform())

	data := []byte(fmt.Sprintf(`{"steps": [
		{"action": "edit", "node": %d, "position": [3, 0, 0]},
		{"action": "undo"},
		{"action": "redo"}
	]}`, id))
	runner, err := LoadTestScript(data)
	if err != nil {
		t.Fatal(err)
	}
	e.SetTestRunner(runner)

	// Frame 1: edit queued and consumed in the same tick.
	e.Tick(1.0 / 60)
	local, _ := e.Scene().Local(id)
	assertVec(t, "after edit", local.Position, Vec3{3, 0, 0})

	// Frame 2: undo.
	e.Tick(1.0 / 60)
	local, _ = e.Scene().Local(id)
	assertVec(t, "after undo", local.Position, Vec3{})
	if runner.Done() {
		t.Fatal("runner should not be done before the last step")
	}

	// Frame 3: redo, last step.
	e.Tick(1.0 / 60)
	local, _ = e.Scene().Local(id)
	assertVec(t, "after redo", local.Position, Vec3{3, 0, 0})
	if !runner.Done() {
		t.Error("runner should be done")
	}
}

func TestRunnerStep_Wait(t *testing.T) {
	e := newTestEngine()
	id, _ := e.CreateNode("n", NoNode, IdentityTransform())
	animate(t, e, id, posKey(0, 0, 0, 0, EaseLinear), posKey(4, 4, 0, 0, EaseLinear))

	data := []byte(`{"steps": [
		{"action": "play"},
		{"action": "wait", "frames": 3},
		{"action": "pause"}
	]}`)
	runner, err := LoadTestScript(data)
	if err != nil {
		t.Fatal(err)
	}
	e.SetTestRunner(runner)

	// play, wait x3, pause: four frames of playback.
	for i := 0; i < 5; i++ {
		e.Tick(0.25)
	}
	if e.State() != Paused {
		t.Fatalf("state = %s, want paused", e.State())
	}
	assertNear(t, "time", e.Time(), 1)
	local, _ := e.Scene().Local(id)
	assertVec(t, "sampled", local.Position, Vec3{1, 0, 0})
	if !runner.Done() {
		t.Error("runner should be done")
	}
}

func TestRunnerStep_DragWaitsForQueue(t *testing.T) {
	e := newTestEngine()
	id, _ := e.CreateNode("n", NoNode, IdentityTransform())

	data := []byte(fmt.Sprintf(`{"steps": [
		{"action": "drag", "node": %d, "position": [4, 0, 0], "frames": 2, "easing": "linear"}
	]}`, id))
	runner, err := LoadTestScript(data)
	if err != nil {
		t.Fatal(err)
	}
	e.SetTestRunner(runner)

	e.Tick(1.0 / 60)
	local, _ := e.Scene().Local(id)
	assertVec(t, "frame 1", local.Position, Vec3{2, 0, 0})
	e.Tick(1.0 / 60)
	if runner.Done() {
		t.Fatal("runner should not finish on the frame the queue drains")
	}
	local, _ = e.Scene().Local(id)
	assertVec(t, "frame 2", local.Position, Vec3{4, 0, 0})
	e.Tick(1.0 / 60)
	if !runner.Done() {
		t.Error("runner should be done once the drag has drained")
	}
}

func TestRunnerStep_Seek(t *testing.T) {
	e := newTestEngine()
	id, _ := e.CreateNode("n", NoNode, IdentityTransform())
	animate(t, e, id, posKey(0, 0, 0, 0, EaseLinear), posKey(1, 10, 0, 0, EaseLinear))

	runner, err := LoadTestScript([]byte(`{"steps": [{"action": "seek", "time": 0.5}]}`))
	if err != nil {
		t.Fatal(err)
	}
	e.SetTestRunner(runner)
	e.Tick(1.0 / 60)

	local, _ := e.Scene().Local(id)
	assertVec(t, "scrubbed", local.Position, Vec3{5, 0, 0})
	if e.State() != Stopped {
		t.Errorf("seek changed state to %s", e.State())
	}
}
