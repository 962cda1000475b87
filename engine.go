package rig

import (
	"log/slog"
	"time"

	"github.com/pkg/errors"
)

// Engine owns the scene arena and runs the per-frame write policy across
// manual edits, keyframe playback and physics. It is single-threaded: every
// method must be called from the goroutine driving Tick.
type Engine struct {
	cfg      Config
	scene    *Scene
	timeline *Timeline
	bridge   *PhysicsBridge
	history  *History
	resolver resolver

	logger  *slog.Logger
	metrics *Metrics
	sink    EventSink
	debug   bool

	// Synthetic manual edits, one consumed per frame.
	injectQueue []syntheticEdit
	testRunner  *TestRunner

	pendingLoad   func(*Engine) error
	loadRemaining time.Duration
}

// NewEngine creates an engine with an empty scene and a stopped timeline.
// Zero Config fields take their defaults.
func NewEngine(cfg Config) *Engine {
	cfg = cfg.withDefaults()
	e := &Engine{
		cfg:      cfg,
		scene:    NewScene(),
		timeline: NewTimeline(),
		logger:   newLogger(cfg.LogLevel),
		debug:    cfg.Debug,
	}
	e.timeline.errs = newErrorWindow(cfg.ErrorThreshold, cfg.ErrorWindow())
	e.bridge = NewPhysicsBridge(e.scene, nil, e.logger)
	e.history = NewHistory(engineHistory{e}, cfg.HistoryLimit)
	e.resolver = resolver{scene: e.scene, timeline: e.timeline, bridge: e.bridge}
	return e
}

// Config returns the effective configuration.
func (e *Engine) Config() Config { return e.cfg }

// Scene returns the node arena.
func (e *Engine) Scene() *Scene { return e.scene }

// Timeline returns the keyframe timeline.
func (e *Engine) Timeline() *Timeline { return e.timeline }

// Physics returns the physics bridge.
func (e *Engine) Physics() *PhysicsBridge { return e.bridge }

// History returns the undo/redo history.
func (e *Engine) History() *History { return e.history }

// SetSimulation attaches the rigid-body collaborator.
func (e *Engine) SetSimulation(sim Simulation) { e.bridge.SetSimulation(sim) }

// SetSceneGraph attaches the display collaborator.
func (e *Engine) SetSceneGraph(g SceneGraph) { e.scene.SetSceneGraph(g) }

// SetEventSink sets the optional event consumer.
func (e *Engine) SetEventSink(sink EventSink) { e.sink = sink }

// SetMetrics sets the optional Prometheus collectors.
func (e *Engine) SetMetrics(m *Metrics) { e.metrics = m }

// SetLogger replaces the engine logger.
func (e *Engine) SetLogger(l *slog.Logger) {
	if l == nil {
		l = discardLogger()
	}
	e.logger = l
	e.bridge.logger = l
}

// SetDebugMode enables per-frame timing logs.
func (e *Engine) SetDebugMode(enabled bool) { e.debug = enabled }

// setClock replaces the wall clock used by the invalid-write window.
func (e *Engine) setClock(now func() time.Time) { e.timeline.errs.now = now }

// --- playback ---

// State returns the playback state.
func (e *Engine) State() PlaybackState { return e.timeline.state }

// Time returns the playback time in seconds.
func (e *Engine) Time() float64 { return e.timeline.time }

// Play starts or resumes playback. Starting from Stopped at t=0 snapshots
// the initial transform of every bound node that lacks one.
func (e *Engine) Play() {
	if e.timeline.state == Playing {
		return
	}
	// Edits since the last Tick reach the bodies before the first step.
	e.bridge.Sync(e.scene.drainEdited())
	_, fromZero := e.timeline.play()
	if fromZero {
		e.bridge.CaptureInitial()
	}
	e.emit(Event{Type: EventPlaybackChanged})
}

// Pause holds the playback time.
func (e *Engine) Pause() {
	if e.timeline.pause() {
		e.emit(Event{Type: EventPlaybackChanged})
	}
}

// Reset stops playback at t=0 and restores every physics-bound node to its
// initial transform. Reset nodes are protected from any other write until
// the end of the next Tick.
func (e *Engine) Reset() {
	e.timeline.reset()
	for _, id := range e.bridge.Reset() {
		e.emit(Event{Type: EventPhysicsReset, Node: id, Transform: e.scene.nodes[id].local})
	}
	e.metrics.reset()
	e.emit(Event{Type: EventPlaybackChanged})
}

// Seek scrubs the timeline to t without changing the playback state.
// Seeking to 0 is a Reset.
func (e *Engine) Seek(t float64) {
	if t <= 0 {
		e.Reset()
		return
	}
	e.timeline.seek(t)
	e.emit(Event{Type: EventPlaybackChanged})
}

// --- keyframes ---

// AddAnimation registers an empty animation for target.
func (e *Engine) AddAnimation(target NodeID) (*Animation, error) {
	if _, ok := e.scene.nodes[target]; !ok {
		return nil, unknownNode(target)
	}
	return e.timeline.AddAnimation(target), nil
}

// AddKeyframe inserts a keyframe into an animation.
func (e *Engine) AddKeyframe(animID string, k Keyframe) error {
	return e.timeline.AddKeyframe(animID, k)
}

// RemoveKeyframe removes keyframes at time, on the given channels or all.
func (e *Engine) RemoveKeyframe(animID string, time float64, channels ...Channel) error {
	return e.timeline.RemoveKeyframe(animID, time, channels...)
}

// UpdateKeyframeTime moves keyframes from oldTime to newTime.
func (e *Engine) UpdateKeyframeTime(animID string, oldTime, newTime float64, channels ...Channel) error {
	return e.timeline.UpdateKeyframeTime(animID, oldTime, newTime, channels...)
}

// SampleAtTime evaluates every animation at t without writing to the scene.
func (e *Engine) SampleAtTime(t float64) []Sample {
	return e.timeline.SampleAtTime(t, e.scene)
}

// --- nodes ---

// CreateNode adds a node and records a Create action.
func (e *Engine) CreateNode(name string, parent NodeID, local Transform) (NodeID, error) {
	id, err := e.scene.NewNode(name, parent, local)
	if err != nil {
		return NoNode, err
	}
	e.addToHistory(CreateAction(e.scene.snapshot(e.scene.nodes[id])))
	return id, nil
}

// DeleteNode removes a node and records a Delete action. Its children are
// re-parented to its parent keeping their world transforms.
func (e *Engine) DeleteNode(id NodeID) error {
	snap, err := e.deleteNode(id)
	if err != nil {
		return err
	}
	e.addToHistory(DeleteAction(snap))
	return nil
}

func (e *Engine) deleteNode(id NodeID) (NodeSnapshot, error) {
	if _, ok := e.scene.nodes[id]; !ok {
		return NodeSnapshot{}, unknownNode(id)
	}
	e.bridge.forget(id)
	return e.scene.removeNode(id)
}

func (e *Engine) restoreNode(snap NodeSnapshot) error {
	if err := e.scene.restoreNode(snap); err != nil {
		return err
	}
	if snap.Flags.PhysicsEnabled && snap.Flags.BodyType != BodyNone {
		if err := e.bridge.restore(snap.ID, snap.Flags); err != nil {
			e.logger.Warn("restored node without its rigid body",
				slog.Uint64("node", uint64(snap.ID)), slog.Any("err", err))
			n := e.scene.nodes[snap.ID]
			n.flags.PhysicsEnabled = false
			n.flags.BodyType = BodyNone
		}
	}
	return nil
}

// SetParent reparents child keeping its world transform.
func (e *Engine) SetParent(child, parent NodeID) error {
	return e.scene.SetParent(child, parent)
}

// SetLocked toggles the transform lock that rejects manual writes.
func (e *Engine) SetLocked(id NodeID, locked bool) error {
	n, ok := e.scene.nodes[id]
	if !ok {
		return unknownNode(id)
	}
	n.flags.Locked = locked
	return nil
}

// SetTransform is a manual write without history, as produced by a gizmo
// drag in progress.
func (e *Engine) SetTransform(id NodeID, t Transform) error {
	n, ok := e.scene.nodes[id]
	if !ok {
		return unknownNode(id)
	}
	if n.flags.Locked {
		return errors.Wrapf(ErrLocked, "node %d", id)
	}
	if e.timeline.state == Playing && e.bridge.simulated(id) {
		return errors.Wrapf(ErrAuthority, "node %d", id)
	}
	if !t.IsFinite() {
		return errors.Wrapf(ErrInvalidTransform, "node %d", id)
	}
	e.applyManual(n, t)
	return nil
}

// SetWorldTransform is a manual write given in world space.
func (e *Engine) SetWorldTransform(id NodeID, world Transform) error {
	n, ok := e.scene.nodes[id]
	if !ok {
		return unknownNode(id)
	}
	local := invertMatrix(e.scene.parentWorld(n)).Mul4(world.Matrix())
	return e.SetTransform(id, decomposeMatrix(local))
}

// EditTransform is a manual write recorded as a Transform action.
func (e *Engine) EditTransform(id NodeID, t Transform) error {
	before, ok := e.scene.Local(id)
	if !ok {
		return unknownNode(id)
	}
	if err := e.SetTransform(id, t); err != nil {
		return err
	}
	e.addToHistory(TransformAction(id, before, t))
	return nil
}

func (e *Engine) applyManual(n *Node, t Transform) {
	e.scene.setLocal(n, t, true)
	n.gizmoEdited = true
	e.emit(Event{Type: EventTransformEdited, Node: n.id, Transform: t})
}

// --- physics ---

// EnablePhysics binds id to a rigid body of the given type.
func (e *Engine) EnablePhysics(id NodeID, typ BodyType) error {
	return e.bridge.Enable(id, typ)
}

// DisablePhysics unlinks id's rigid body keeping its current transform.
func (e *Engine) DisablePhysics(id NodeID) error {
	return e.bridge.Disable(id)
}

// --- history ---

// AddToHistory pushes a caller-built action and clears the redo stack.
func (e *Engine) AddToHistory(a Action) {
	e.addToHistory(a)
}

func (e *Engine) addToHistory(a Action) {
	e.history.Add(a)
	e.metrics.history(e.history)
}

// Undo reverts the most recent action. It reports false, keeping the action,
// while the action's node is owned by the running simulation.
func (e *Engine) Undo() bool {
	ok := e.history.Undo()
	if !ok && e.history.UndoLen() > 0 {
		e.logger.Info("undo deferred: node is owned by the simulation")
	}
	e.metrics.history(e.history)
	return ok
}

// Redo re-applies the most recently undone action.
func (e *Engine) Redo() bool {
	ok := e.history.Redo()
	if !ok && e.history.RedoLen() > 0 {
		e.logger.Info("redo deferred: node is owned by the simulation")
	}
	e.metrics.history(e.history)
	return ok
}

// --- deferred load ---

// ScheduleLoad runs load once, on the first Tick after the configured
// auto-load delay of frame time has elapsed. A later call replaces a
// pending one.
func (e *Engine) ScheduleLoad(load func(*Engine) error) {
	e.pendingLoad = load
	e.loadRemaining = e.cfg.AutoLoadDelay()
}

func (e *Engine) runPendingLoad(dt float64) {
	if e.pendingLoad == nil {
		return
	}
	e.loadRemaining -= time.Duration(dt * float64(time.Second))
	if e.loadRemaining > 0 {
		return
	}
	load := e.pendingLoad
	e.pendingLoad = nil
	if err := load(e); err != nil {
		e.logger.Warn("scheduled scene load failed", slog.Any("err", err))
	}
}

// --- frame ---

// Tick advances one frame of dt seconds. Keyframes are sampled and
// committed before the physics bridge reads or writes any node, and each
// node receives at most one write. Tick returns ErrAutoPaused on the frame
// the invalid-write fail-safe pauses playback.
func (e *Engine) Tick(dt float64) error {
	var stats debugStats
	var t0 time.Time

	e.runPendingLoad(dt)
	if e.testRunner != nil {
		e.testRunner.step(e)
	}
	e.processInjected()

	if e.debug {
		t0 = time.Now()
	}
	var samples []Sample
	if e.timeline.advance(dt) {
		samples = e.timeline.SampleAtTime(e.timeline.time, e.scene)
	} else {
		clear(e.timeline.last)
	}
	simulating := e.timeline.state == Playing && e.timeline.time > 0

	if e.debug {
		stats.sampleTime = time.Since(t0)
		stats.samples = len(samples)
		t0 = time.Now()
	}

	for _, ch := range e.resolver.assign(simulating) {
		e.emit(Event{Type: EventAuthorityChanged, Node: ch.node, From: ch.from, To: ch.to})
	}
	keyInvalid := e.resolver.commitSamples(samples)
	if keyInvalid > 0 {
		e.logger.Warn("discarding non-finite keyframe samples",
			slog.Int("count", keyInvalid), slog.Float64("t", e.timeline.time))
	}

	if e.debug {
		stats.resolveTime = time.Since(t0)
		t0 = time.Now()
	}

	physInvalid := 0
	if simulating {
		e.bridge.Step(dt, e.timeline, e.resolver.physicsSkip)
		physInvalid = e.bridge.Invalid()
	}
	edited := e.scene.drainEdited()
	if !simulating {
		e.bridge.Sync(edited)
	}

	if e.debug {
		stats.physicsTime = time.Since(t0)
		stats.edited = len(edited)
		stats.invalid = keyInvalid + physInvalid
	}

	e.resolver.endFrame()
	e.metrics.frame()
	e.metrics.invalid("keyframe", keyInvalid)
	e.metrics.invalid("physics", physInvalid)
	e.metrics.authorities(e.scene)
	e.debugLog(stats)

	if e.recordInvalid(keyInvalid + physInvalid) {
		return ErrAutoPaused
	}
	return nil
}

// recordInvalid feeds the fail-safe window and pauses playback when it
// trips.
func (e *Engine) recordInvalid(n int) bool {
	tripped := false
	for i := 0; i < n; i++ {
		if e.timeline.errs.record() {
			tripped = true
		}
	}
	if !tripped || e.timeline.state != Playing {
		return false
	}
	e.timeline.pause()
	e.logger.Warn("auto-paused playback after repeated invalid transforms",
		slog.Int("threshold", e.cfg.ErrorThreshold),
		slog.Duration("window", e.cfg.ErrorWindow()))
	e.metrics.autoPaused()
	e.emit(Event{Type: EventAutoPaused})
	return true
}

// engineHistory replays history actions onto the engine.
type engineHistory struct{ e *Engine }

func (h engineHistory) CurrentTransform(id NodeID) (Transform, bool) {
	return h.e.scene.Local(id)
}

func (h engineHistory) ApplyTransform(id NodeID, t Transform) bool {
	n, ok := h.e.scene.nodes[id]
	if !ok || !t.IsFinite() || h.Blocked(id) {
		return false
	}
	h.e.applyManual(n, t)
	return true
}

// Blocked holds transform actions on simulated nodes while playing.
// Locked nodes stay undoable.
func (h engineHistory) Blocked(id NodeID) bool {
	return h.e.timeline.state == Playing && h.e.bridge.simulated(id)
}

// RemoveNodes removes children before parents and reports snapshots in
// creation order.
func (h engineHistory) RemoveNodes(nodes []NodeSnapshot) []NodeSnapshot {
	var removed []NodeSnapshot
	for i := len(nodes) - 1; i >= 0; i-- {
		snap, err := h.e.deleteNode(nodes[i].ID)
		if err != nil {
			continue
		}
		removed = append(removed, snap)
	}
	for i, j := 0, len(removed)-1; i < j; i, j = i+1, j-1 {
		removed[i], removed[j] = removed[j], removed[i]
	}
	return removed
}

func (h engineHistory) RestoreNodes(nodes []NodeSnapshot) []NodeSnapshot {
	var restored []NodeSnapshot
	for _, snap := range nodes {
		if err := h.e.restoreNode(snap); err != nil {
			h.e.logger.Warn("cannot restore node", slog.Uint64("node", uint64(snap.ID)), slog.Any("err", err))
			continue
		}
		restored = append(restored, h.e.scene.snapshot(h.e.scene.nodes[snap.ID]))
	}
	return restored
}
