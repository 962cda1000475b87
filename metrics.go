package rig

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the engine's Prometheus collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	Frames           prometheus.Counter
	InvalidTransform *prometheus.CounterVec
	AutoPauses       prometheus.Counter
	Resets           prometheus.Counter
	HistoryDepth     *prometheus.GaugeVec
	NodesByAuthority *prometheus.GaugeVec
}

// NewMetrics registers the engine collectors against reg, defaulting to
// the global registry when nil. Collectors already registered by another
// engine are reused.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{}
	var err error

	if m.Frames, err = registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "rig",
		Name:      "frames_total",
		Help:      "Number of engine ticks.",
	})); err != nil {
		return nil, err
	}
	if m.InvalidTransform, err = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rig",
		Name:      "invalid_transforms_total",
		Help:      "Non-finite transforms discarded, by source (keyframe or physics).",
	}, []string{"source"})); err != nil {
		return nil, err
	}
	if m.AutoPauses, err = registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "rig",
		Name:      "auto_pauses_total",
		Help:      "Times playback was paused by the invalid-write fail-safe.",
	})); err != nil {
		return nil, err
	}
	if m.Resets, err = registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "rig",
		Name:      "resets_total",
		Help:      "Timeline resets to t=0.",
	})); err != nil {
		return nil, err
	}
	if m.HistoryDepth, err = registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "rig",
		Name:      "history_depth",
		Help:      "Current number of actions on each history stack.",
	}, []string{"stack"})); err != nil {
		return nil, err
	}
	if m.NodesByAuthority, err = registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "rig",
		Name:      "nodes",
		Help:      "Nodes by current transform authority.",
	}, []string{"authority"})); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metrics) frame() {
	if m == nil {
		return
	}
	m.Frames.Inc()
}

func (m *Metrics) invalid(source string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.InvalidTransform.WithLabelValues(source).Add(float64(n))
}

func (m *Metrics) autoPaused() {
	if m == nil {
		return
	}
	m.AutoPauses.Inc()
}

func (m *Metrics) reset() {
	if m == nil {
		return
	}
	m.Resets.Inc()
}

func (m *Metrics) history(h *History) {
	if m == nil {
		return
	}
	m.HistoryDepth.WithLabelValues("undo").Set(float64(h.UndoLen()))
	m.HistoryDepth.WithLabelValues("redo").Set(float64(h.RedoLen()))
}

func (m *Metrics) authorities(s *Scene) {
	if m == nil {
		return
	}
	var counts [3]int
	for _, n := range s.nodes {
		counts[n.authority]++
	}
	for a, c := range counts {
		m.NodesByAuthority.WithLabelValues(Authority(a).String()).Set(float64(c))
	}
}

func registerCounter(reg prometheus.Registerer, c prometheus.Counter) (prometheus.Counter, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
		}
		return nil, errors.Wrap(err, "register counter")
	}
	return c, nil
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
		}
		return nil, errors.Wrap(err, "register counter vec")
	}
	return vec, nil
}

func registerGaugeVec(reg prometheus.Registerer, vec *prometheus.GaugeVec) (*prometheus.GaugeVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.GaugeVec); ok {
				return existing, nil
			}
		}
		return nil, errors.Wrap(err, "register gauge vec")
	}
	return vec, nil
}
