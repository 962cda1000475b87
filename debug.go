package rig

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/davecgh/go-spew/spew"
)

// debugStats holds per-frame timings and counts.
// Only populated when the engine is in debug mode.
type debugStats struct {
	sampleTime  time.Duration
	resolveTime time.Duration
	physicsTime time.Duration
	samples     int
	edited      int
	invalid     int
}

// debugLog writes the frame stats at debug level.
func (e *Engine) debugLog(stats debugStats) {
	if !e.debug {
		return
	}
	total := stats.sampleTime + stats.resolveTime + stats.physicsTime
	e.logger.Debug("frame",
		slog.Float64("t", e.timeline.time),
		slog.String("state", e.timeline.state.String()),
		slog.Duration("sample", stats.sampleTime),
		slog.Duration("resolve", stats.resolveTime),
		slog.Duration("physics", stats.physicsTime),
		slog.Duration("total", total),
		slog.Int("samples", stats.samples),
		slog.Int("edited", stats.edited),
		slog.Int("invalid", stats.invalid),
	)
}

// newLogger builds the default text logger on stderr.
func newLogger(level string) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(level),
	})).With(slog.String("component", "rig"))
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// dumpConfig keeps dumps readable: no pointer addresses, sorted map keys.
var dumpConfig = spew.ConfigState{
	Indent:                  "  ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

// DebugDump returns a human-readable dump of every node, its flags and the
// playback state.
func (e *Engine) DebugDump() string {
	type nodeDump struct {
		ID        NodeID
		Name      string
		Parent    NodeID
		Local     Transform
		Flags     NodeFlags
		Authority string
	}
	var nodes []nodeDump
	e.scene.Each(func(n *Node) {
		nodes = append(nodes, nodeDump{
			ID:        n.id,
			Name:      n.name,
			Parent:    n.parent,
			Local:     n.local,
			Flags:     n.flags,
			Authority: n.authority.String(),
		})
	})
	return dumpConfig.Sdump(struct {
		State string
		Time  float64
		Undo  int
		Redo  int
		Nodes []nodeDump
	}{
		State: e.timeline.state.String(),
		Time:  e.timeline.time,
		Undo:  e.history.UndoLen(),
		Redo:  e.history.RedoLen(),
		Nodes: nodes,
	})
}
