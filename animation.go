package rig

import (
	"math"
	"sort"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// timeEpsilon is the tolerance used when matching keyframes by time.
const timeEpsilon = 1e-6

// Keyframe is a timestamped transform snapshot. Only the part named by
// Channel is driven by the keyframe.
type Keyframe struct {
	Time      float64
	Transform Transform
	Easing    Easing
	Channel   Channel
}

// Value returns the channel value this keyframe drives.
func (k Keyframe) Value() Vec3 {
	return k.Transform.Channel(k.Channel)
}

// Animation is the keyframe set for one target node. Keyframes are kept in
// one time-sorted track per channel.
type Animation struct {
	ID     string
	Target NodeID
	tracks [numChannels][]Keyframe
}

// NewAnimation creates an empty animation for target with a fresh ID.
func NewAnimation(target NodeID) *Animation {
	return &Animation{ID: uuid.NewString(), Target: target}
}

// Track returns the time-sorted keyframes of one channel. The returned slice
// MUST NOT be mutated by the caller.
func (a *Animation) Track(c Channel) []Keyframe {
	if !c.Valid() {
		return nil
	}
	return a.tracks[c]
}

// Keyframes returns every keyframe, channel by channel.
func (a *Animation) Keyframes() []Keyframe {
	var out []Keyframe
	for _, tr := range a.tracks {
		out = append(out, tr...)
	}
	return out
}

// Len returns the total number of keyframes.
func (a *Animation) Len() int {
	n := 0
	for _, tr := range a.tracks {
		n += len(tr)
	}
	return n
}

// Channels returns the mask of channels that have at least one keyframe.
func (a *Animation) Channels() ChannelMask {
	var m ChannelMask
	for _, c := range Channels {
		if len(a.tracks[c]) > 0 {
			m = m.With(c)
		}
	}
	return m
}

// Duration returns the time of the latest keyframe on any channel.
func (a *Animation) Duration() float64 {
	d := 0.0
	for _, tr := range a.tracks {
		if n := len(tr); n > 0 && tr[n-1].Time > d {
			d = tr[n-1].Time
		}
	}
	return d
}

// Add inserts k into its channel track keeping the track time-sorted. A
// keyframe already at the same (time, channel) is replaced.
func (a *Animation) Add(k Keyframe) error {
	if !k.Channel.Valid() {
		return errors.Wrapf(ErrInvalidKeyframe, "channel %d", k.Channel)
	}
	if k.Time < 0 || math.IsNaN(k.Time) || math.IsInf(k.Time, 0) {
		return errors.Wrapf(ErrInvalidKeyframe, "time %v", k.Time)
	}
	if !finiteVec(k.Value()) {
		return errors.Wrapf(ErrInvalidKeyframe, "non-finite %s at %v", k.Channel, k.Time)
	}
	a.insert(k)
	return nil
}

func (a *Animation) insert(k Keyframe) {
	tr := a.tracks[k.Channel]
	i := sort.Search(len(tr), func(i int) bool { return tr[i].Time >= k.Time-timeEpsilon })
	if i < len(tr) && math.Abs(tr[i].Time-k.Time) <= timeEpsilon {
		tr[i] = k
		return
	}
	tr = append(tr, Keyframe{})
	copy(tr[i+1:], tr[i:])
	tr[i] = k
	a.tracks[k.Channel] = tr
}

// Remove deletes the keyframes at time on the given channels (every channel
// when none are given) and returns how many were removed.
func (a *Animation) Remove(time float64, channels ...Channel) int {
	removed := 0
	for _, c := range channelsOrAll(channels) {
		if i := a.find(c, time); i >= 0 {
			tr := a.tracks[c]
			a.tracks[c] = append(tr[:i], tr[i+1:]...)
			removed++
		}
	}
	return removed
}

// UpdateTime moves the keyframes at oldTime to newTime on the given channels
// (every channel when none are given) and re-sorts. A keyframe already at
// newTime on the same channel is replaced by the moved one.
func (a *Animation) UpdateTime(oldTime, newTime float64, channels ...Channel) (int, error) {
	if newTime < 0 || math.IsNaN(newTime) || math.IsInf(newTime, 0) {
		return 0, errors.Wrapf(ErrInvalidKeyframe, "time %v", newTime)
	}
	moved := 0
	for _, c := range channelsOrAll(channels) {
		i := a.find(c, oldTime)
		if i < 0 {
			continue
		}
		k := a.tracks[c][i]
		tr := a.tracks[c]
		a.tracks[c] = append(tr[:i], tr[i+1:]...)
		k.Time = newTime
		a.insert(k)
		moved++
	}
	return moved, nil
}

func (a *Animation) find(c Channel, time float64) int {
	if !c.Valid() {
		return -1
	}
	for i, k := range a.tracks[c] {
		if math.Abs(k.Time-time) <= timeEpsilon {
			return i
		}
	}
	return -1
}

func channelsOrAll(channels []Channel) []Channel {
	if len(channels) == 0 {
		return Channels[:]
	}
	return channels
}

// Sample evaluates the animation at time t on top of current. Channels with
// no keyframes pass current through unchanged; the returned mask lists the
// channels that were driven.
func (a *Animation) Sample(t float64, current Transform) (Transform, ChannelMask) {
	out := current
	var mask ChannelMask
	for _, c := range Channels {
		v, ok := sampleTrack(a.tracks[c], t)
		if !ok {
			continue
		}
		out.SetChannel(c, v)
		mask = mask.With(c)
	}
	return out, mask
}

// sampleTrack evaluates one channel track. A single keyframe holds its
// value; outside the keyed range the first or last value is held; inside,
// each component is interpolated with the earlier keyframe's easing.
func sampleTrack(tr []Keyframe, t float64) (Vec3, bool) {
	switch len(tr) {
	case 0:
		return Vec3{}, false
	case 1:
		return tr[0].Value(), true
	}
	first, last := tr[0], tr[len(tr)-1]
	if t <= first.Time {
		return first.Value(), true
	}
	if t >= last.Time {
		return last.Value(), true
	}

	next := sort.Search(len(tr), func(i int) bool { return tr[i].Time > t })
	prev := tr[next-1]
	nk := tr[next]

	span := nk.Time - prev.Time
	if span <= 0 {
		return nk.Value(), true
	}
	w := prev.Easing.Apply((t - prev.Time) / span)

	from, to := prev.Value(), nk.Value()
	var out Vec3
	for i := range out {
		out[i] = from[i] + (to[i]-from[i])*w
	}
	return out, true
}
