package scenefile

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/phanxgames/rig"
	"github.com/phanxgames/rig/rigidsim"
)

const sceneYAML = `
nodes:
  - id: 10
    name: base
    position: [1, 0, 0]
    rotation: [0, 0, 0]
    scale: [1, 1, 1]
  - id: 11
    name: arm
    parent: 10
    position: [0, 2, 0]
    rotation: [0, 0, 0]
    scale: [0, 0, 0]
    locked: true
  - id: 12
    name: crate
    position: [0, 5, 0]
    rotation: [0, 0, 0]
    scale: [1, 1, 1]
    body: dynamic
animations:
  - target: 10
    keyframes:
      - time: 0
        channel: position
        value: [0, 0, 0]
        easing: easeIn
      - time: 1
        channel: position
        value: [10, 0, 0]
`

func newEngine() *rig.Engine {
	e := rig.NewEngine(rig.DefaultConfig())
	e.SetLogger(nil)
	e.SetSimulation(rigidsim.New(rigidsim.Config{}))
	return e
}

func TestLoad(t *testing.T) {
	e := newEngine()
	ids, err := Load(e, strings.NewReader(sceneYAML))
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 3 || e.Scene().Len() != 3 {
		t.Fatalf("loaded %d nodes, scene has %d", len(ids), e.Scene().Len())
	}
	if got := e.Scene().Parent(ids[11]); got != ids[10] {
		t.Errorf("arm parent = %d, want %d", got, ids[10])
	}
	arm, _ := e.Scene().Node(ids[11])
	if !arm.Flags().Locked {
		t.Error("arm not locked")
	}
	if arm.Transform().Scale != (rig.Vec3{1, 1, 1}) {
		t.Errorf("zero scale not defaulted: %v", arm.Transform().Scale)
	}
	crate, _ := e.Scene().Node(ids[12])
	if fl := crate.Flags(); !fl.PhysicsEnabled || fl.BodyType != rig.BodyDynamic {
		t.Errorf("crate flags = %+v", fl)
	}
	anims := e.Timeline().AnimationsFor(ids[10])
	if len(anims) != 1 || anims[0].Len() != 2 {
		t.Fatalf("animations = %v", anims)
	}
	if e.History().UndoLen() != 0 {
		t.Errorf("loading recorded %d history actions", e.History().UndoLen())
	}

	samples := e.SampleAtTime(0.5)
	if len(samples) != 1 || math.Abs(samples[0].Transform.Position.X()-2.5) > 1e-9 {
		t.Errorf("easeIn sample = %+v", samples)
	}
}

func TestLoadRejectsForwardParent(t *testing.T) {
	e := newEngine()
	_, err := Load(e, strings.NewReader(`
nodes:
  - id: 1
    name: child
    parent: 2
    position: [0, 0, 0]
    rotation: [0, 0, 0]
    scale: [1, 1, 1]
`))
	if err == nil {
		t.Fatal("expected error for undefined parent")
	}
}

func TestLoadRejectsUnknownField(t *testing.T) {
	e := newEngine()
	if _, err := Load(e, strings.NewReader("nodes: []\nbogus: 1\n")); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	src := newEngine()
	if _, err := Load(src, strings.NewReader(sceneYAML)); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := Save(src, &buf); err != nil {
		t.Fatal(err)
	}

	dst := newEngine()
	ids, err := Load(dst, &buf)
	if err != nil {
		t.Fatalf("reload: %v\n%s", err, buf.String())
	}
	if dst.Scene().Len() != src.Scene().Len() {
		t.Fatalf("reloaded %d nodes, want %d", dst.Scene().Len(), src.Scene().Len())
	}
	for fileID, id := range ids {
		want, _ := src.Scene().Local(rig.NodeID(fileID))
		got, _ := dst.Scene().Local(id)
		if !got.ApproxEqual(want, 1e-9) {
			t.Errorf("node %d: %+v, want %+v", fileID, got, want)
		}
	}
	if len(dst.Timeline().Animations()) != 1 {
		t.Errorf("animations = %d", len(dst.Timeline().Animations()))
	}
}
