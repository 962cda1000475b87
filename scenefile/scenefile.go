// Package scenefile reads and writes engine scenes as YAML. It only uses
// the public rig API, so a loaded scene behaves exactly like one built by
// hand.
package scenefile

import (
	"bytes"
	"io"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/phanxgames/rig"
)

// File is the on-disk scene document.
type File struct {
	Nodes      []NodeDef      `yaml:"nodes"`
	Animations []AnimationDef `yaml:"animations,omitempty"`
}

// NodeDef describes one node. ID is local to the file; Parent refers to an
// earlier node's ID, or 0 for a root.
type NodeDef struct {
	ID       uint32     `yaml:"id"`
	Name     string     `yaml:"name"`
	Parent   uint32     `yaml:"parent,omitempty"`
	Position [3]float64 `yaml:"position"`
	Rotation [3]float64 `yaml:"rotation"`
	Scale    [3]float64 `yaml:"scale"`
	Locked   bool       `yaml:"locked,omitempty"`
	// Body is "dynamic", "static" or "kinematic". Empty means no physics.
	Body string `yaml:"body,omitempty"`
}

// AnimationDef describes the keyframes of one animation.
type AnimationDef struct {
	Target    uint32        `yaml:"target"`
	Keyframes []KeyframeDef `yaml:"keyframes"`
}

// KeyframeDef is one keyframe on one channel.
type KeyframeDef struct {
	Time    float64    `yaml:"time"`
	Channel string     `yaml:"channel"`
	Value   [3]float64 `yaml:"value"`
	Easing  string     `yaml:"easing,omitempty"`
}

// Parse decodes a scene document.
func Parse(r io.Reader) (*File, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, errors.Wrap(err, "decode scene")
	}
	return &f, nil
}

// Load decodes a scene from r and adds it to e. It returns the mapping
// from file IDs to engine node IDs. Nodes are added outside of history.
func Load(e *rig.Engine, r io.Reader) (map[uint32]rig.NodeID, error) {
	f, err := Parse(r)
	if err != nil {
		return nil, err
	}
	return Apply(e, f)
}

// LoadFile loads the scene at path into e.
func LoadFile(e *rig.Engine, path string) (map[uint32]rig.NodeID, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read scene")
	}
	ids, err := Load(e, bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrapf(err, "scene %s", path)
	}
	return ids, nil
}

// Apply adds a decoded scene to e.
func Apply(e *rig.Engine, f *File) (map[uint32]rig.NodeID, error) {
	ids := make(map[uint32]rig.NodeID, len(f.Nodes))
	for _, nd := range f.Nodes {
		if nd.ID == 0 {
			return nil, errors.Errorf("node %q: id 0 is reserved", nd.Name)
		}
		if _, dup := ids[nd.ID]; dup {
			return nil, errors.Errorf("node %q: duplicate id %d", nd.Name, nd.ID)
		}
		parent := rig.NoNode
		if nd.Parent != 0 {
			p, ok := ids[nd.Parent]
			if !ok {
				return nil, errors.Errorf("node %q: parent %d must be defined first", nd.Name, nd.Parent)
			}
			parent = p
		}
		t := rig.NewTransform(rig.Vec3(nd.Position), rig.Vec3(nd.Rotation), rig.Vec3(nd.Scale))
		if nd.Scale == ([3]float64{}) {
			t.Scale = rig.Vec3{1, 1, 1}
		}
		id, err := e.Scene().NewNode(nd.Name, parent, t)
		if err != nil {
			return nil, errors.Wrapf(err, "node %q", nd.Name)
		}
		ids[nd.ID] = id

		if nd.Locked {
			if err := e.SetLocked(id, true); err != nil {
				return nil, err
			}
		}
		if nd.Body != "" {
			typ := rig.ParseBodyType(nd.Body)
			if typ == rig.BodyNone {
				return nil, errors.Errorf("node %q: unknown body type %q", nd.Name, nd.Body)
			}
			if err := e.EnablePhysics(id, typ); err != nil {
				return nil, errors.Wrapf(err, "node %q", nd.Name)
			}
		}
	}

	for _, ad := range f.Animations {
		target, ok := ids[ad.Target]
		if !ok {
			return nil, errors.Errorf("animation: unknown target %d", ad.Target)
		}
		anim, err := e.AddAnimation(target)
		if err != nil {
			return nil, err
		}
		for _, kd := range ad.Keyframes {
			ch, ok := rig.ParseChannel(kd.Channel)
			if !ok {
				return nil, errors.Errorf("animation on %d: unknown channel %q", ad.Target, kd.Channel)
			}
			k := rig.Keyframe{
				Time:      kd.Time,
				Channel:   ch,
				Easing:    rig.ParseEasing(kd.Easing),
				Transform: rig.IdentityTransform(),
			}
			k.Transform.SetChannel(ch, rig.Vec3(kd.Value))
			if err := e.AddKeyframe(anim.ID, k); err != nil {
				return nil, errors.Wrapf(err, "animation on %d", ad.Target)
			}
		}
	}
	return ids, nil
}

// Capture builds a scene document from e. Node IDs in the document are the
// engine's node IDs.
func Capture(e *rig.Engine) *File {
	f := &File{}
	e.Scene().Each(func(n *rig.Node) {
		t := n.Transform()
		nd := NodeDef{
			ID:       uint32(n.ID()),
			Name:     n.Name(),
			Parent:   uint32(n.Parent()),
			Position: t.Position,
			Rotation: t.Rotation,
			Scale:    t.Scale,
			Locked:   n.Flags().Locked,
		}
		if fl := n.Flags(); fl.PhysicsEnabled {
			nd.Body = fl.BodyType.String()
		}
		f.Nodes = append(f.Nodes, nd)
	})
	for _, a := range e.Timeline().Animations() {
		if _, ok := e.Scene().Node(a.Target); !ok {
			continue
		}
		ad := AnimationDef{Target: uint32(a.Target)}
		for _, k := range a.Keyframes() {
			ad.Keyframes = append(ad.Keyframes, KeyframeDef{
				Time:    k.Time,
				Channel: k.Channel.String(),
				Value:   k.Value(),
				Easing:  k.Easing.String(),
			})
		}
		f.Animations = append(f.Animations, ad)
	}
	return f
}

// Save writes e as YAML to w.
func Save(e *rig.Engine, w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(Capture(e)); err != nil {
		return errors.Wrap(err, "encode scene")
	}
	return errors.Wrap(enc.Close(), "encode scene")
}

// SaveFile writes e to path.
func SaveFile(e *rig.Engine, path string) error {
	var buf bytes.Buffer
	if err := Save(e, &buf); err != nil {
		return err
	}
	return errors.Wrap(os.WriteFile(path, buf.Bytes(), 0o644), "write scene")
}
