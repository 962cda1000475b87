package rig

import (
	"encoding/json"
	"fmt"
)

// testStep represents a single action in a test script.
type testStep struct {
	Action string `json:"action"`
	Node   NodeID `json:"node,omitempty"`
	// Position, Rotation and Scale override the node's transform at the time
	// the step runs; omitted channels keep their current value.
	Position *[3]float64 `json:"position,omitempty"`
	Rotation *[3]float64 `json:"rotation,omitempty"`
	Scale    *[3]float64 `json:"scale,omitempty"`
	Time     float64     `json:"time,omitempty"`
	Frames   int         `json:"frames,omitempty"`
	Easing   string      `json:"easing,omitempty"`
}

// testScript is the top-level JSON structure for a test script.
type testScript struct {
	Steps []testStep `json:"steps"`
}

// TestRunner sequences playback commands and injected edits across frames
// for automated testing. Attach to an Engine via SetTestRunner.
type TestRunner struct {
	steps     []testStep
	cursor    int
	waitCount int
	done      bool
}

var testActions = map[string]bool{
	"play": true, "pause": true, "reset": true, "seek": true, "wait": true,
	"edit": true, "drag": true, "undo": true, "redo": true,
}

// LoadTestScript parses a JSON test script and returns a TestRunner ready
// to be attached to an Engine via SetTestRunner.
func LoadTestScript(jsonData []byte) (*TestRunner, error) {
	var script testScript
	if err := json.Unmarshal(jsonData, &script); err != nil {
		return nil, fmt.Errorf("parse test script: %w", err)
	}
	if len(script.Steps) == 0 {
		return nil, fmt.Errorf("parse test script: no steps")
	}
	for i, st := range script.Steps {
		if !testActions[st.Action] {
			return nil, fmt.Errorf("parse test script: step %d: unknown action %q", i, st.Action)
		}
	}
	return &TestRunner{steps: script.Steps}, nil
}

// SetTestRunner attaches a TestRunner to the engine. The runner's step
// method is called from Tick before injected edits are processed.
func (e *Engine) SetTestRunner(runner *TestRunner) {
	e.testRunner = runner
}

// Done reports whether all steps in the test script have been executed.
func (r *TestRunner) Done() bool {
	return r.done
}

// step advances the test runner by one frame. Called from Engine.Tick.
func (r *TestRunner) step(e *Engine) {
	if r.done {
		return
	}
	// Wait for pending injections to drain before advancing.
	if len(e.injectQueue) > 0 {
		return
	}
	if r.waitCount > 0 {
		r.waitCount--
		return
	}
	if r.cursor >= len(r.steps) {
		r.done = true
		return
	}

	st := r.steps[r.cursor]
	r.cursor++

	switch st.Action {
	case "play":
		e.Play()
	case "pause":
		e.Pause()
	case "reset":
		e.Reset()
	case "seek":
		e.Seek(st.Time)
	case "undo":
		e.Undo()
	case "redo":
		e.Redo()
	case "edit":
		if t, ok := st.transform(e); ok {
			e.InjectEdit(st.Node, t)
		}
	case "drag":
		if t, ok := st.transform(e); ok {
			e.InjectDrag(st.Node, t, st.Frames, ParseEasing(st.Easing).TweenFunc())
		}
	case "wait":
		if st.Frames > 0 {
			r.waitCount = st.Frames - 1 // this frame counts as one
		}
	}

	if r.cursor >= len(r.steps) && r.waitCount == 0 && len(e.injectQueue) == 0 {
		r.done = true
	}
}

// transform builds the step's target from the node's current transform.
func (st testStep) transform(e *Engine) (Transform, bool) {
	t, ok := e.scene.Local(st.Node)
	if !ok {
		return Transform{}, false
	}
	if st.Position != nil {
		t.Position = Vec3(*st.Position)
	}
	if st.Rotation != nil {
		t.Rotation = Vec3(*st.Rotation)
	}
	if st.Scale != nil {
		t.Scale = Vec3(*st.Scale)
	}
	return t, true
}
