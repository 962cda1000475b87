package rig

import (
	"log/slog"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// syntheticEdit is one frame of an injected manual gesture.
type syntheticEdit struct {
	gesture *gesture
	// last marks the frame that is recorded in history.
	last bool
}

// gesture is an injected edit spread over one or more frames. The start
// transform is read when its first frame is consumed, so queued gestures
// chain the way real gizmo drags do.
type gesture struct {
	node   NodeID
	to     Transform
	frames int
	fn     ease.TweenFunc

	step    int
	started bool
	start   Transform
}

// InjectEdit queues a manual edit of node to t, recorded in history. The
// event is consumed on the next Tick.
func (e *Engine) InjectEdit(node NodeID, t Transform) {
	e.InjectDrag(node, t, 1, ease.Linear)
}

// InjectDrag queues a gizmo drag of node to `to` over frames frames, eased
// with fn (linear when nil). Intermediate frames are unrecorded writes; the
// final frame lands exactly on `to` and is recorded as a single history
// action from the transform the drag started at. Minimum frames is 1.
func (e *Engine) InjectDrag(node NodeID, to Transform, frames int, fn ease.TweenFunc) {
	if frames < 1 {
		frames = 1
	}
	if fn == nil {
		fn = ease.Linear
	}
	g := &gesture{node: node, to: to, frames: frames, fn: fn}
	for i := 1; i <= frames; i++ {
		e.injectQueue = append(e.injectQueue, syntheticEdit{gesture: g, last: i == frames})
	}
}

// Pending returns the number of queued injected frames.
func (e *Engine) Pending() int {
	return len(e.injectQueue)
}

// processInjected pops one edit from the inject queue and applies it as a
// manual write. Returns true if an event was consumed.
func (e *Engine) processInjected() bool {
	if len(e.injectQueue) == 0 {
		return false
	}
	evt := e.injectQueue[0]
	copy(e.injectQueue, e.injectQueue[1:])
	e.injectQueue = e.injectQueue[:len(e.injectQueue)-1]

	g := evt.gesture
	if !g.started {
		cur, ok := e.scene.Local(g.node)
		if !ok {
			e.dropGesture(g)
			return true
		}
		g.start = cur
		g.started = true
	}
	g.step++

	if err := e.SetTransform(g.node, g.at(g.step)); err != nil {
		e.logger.Debug("injected edit rejected",
			slog.Uint64("node", uint64(g.node)), slog.Any("err", err))
		e.dropGesture(g)
		return true
	}
	if evt.last {
		e.addToHistory(TransformAction(g.node, g.start, g.to))
	}
	return true
}

// dropGesture discards the remaining frames of a gesture whose node went
// away or rejected the write.
func (e *Engine) dropGesture(g *gesture) {
	kept := e.injectQueue[:0]
	for _, evt := range e.injectQueue {
		if evt.gesture != g {
			kept = append(kept, evt)
		}
	}
	e.injectQueue = kept
}

// at evaluates frame step of the gesture. Every component runs through a
// gween tween with the gesture's easing.
func (g *gesture) at(step int) Transform {
	if step >= g.frames {
		return g.to
	}
	u := float32(step) / float32(g.frames)
	var out Transform
	for _, ch := range Channels {
		a, b := g.start.Channel(ch), g.to.Channel(ch)
		var v Vec3
		for i := range v {
			cur, _ := gween.New(float32(a[i]), float32(b[i]), 1, g.fn).Set(u)
			v[i] = float64(cur)
		}
		out.SetChannel(ch, v)
	}
	return out
}
