package rig

import (
	"fmt"
	"image"
	"image/color"
	"log/slog"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/pkg/errors"
)

// RunConfig configures the window opened by Run.
type RunConfig struct {
	Title         string
	Width, Height int
	// PixelsPerUnit scales world units onto the screen for the default
	// node view. Defaults to 40.
	PixelsPerUnit float64
	// ShowStatus prints playback state, time and FPS/TPS in the corner.
	ShowStatus bool
	// Update, when set, runs every frame before the engine ticks.
	Update func(e *Engine) error
	// Draw, when set, replaces the default node view.
	Draw func(screen *ebiten.Image, e *Engine)
}

// Run opens a window and drives e from the ebiten game loop, one Tick per
// update at the current TPS. Keyboard: space toggles play/pause, R resets,
// ctrl+Z undoes and ctrl+Y redoes.
func Run(e *Engine, cfg RunConfig) error {
	if cfg.Width <= 0 {
		cfg.Width = 640
	}
	if cfg.Height <= 0 {
		cfg.Height = 480
	}
	if cfg.PixelsPerUnit <= 0 {
		cfg.PixelsPerUnit = 40
	}
	ebiten.SetWindowTitle(cfg.Title)
	ebiten.SetWindowSize(cfg.Width, cfg.Height)
	return ebiten.RunGame(&gameShell{engine: e, cfg: cfg})
}

// gameShell adapts an Engine to ebiten.Game.
type gameShell struct {
	engine *Engine
	cfg    RunConfig
}

func (g *gameShell) Update() error {
	g.handleKeys()
	if g.cfg.Update != nil {
		if err := g.cfg.Update(g.engine); err != nil {
			return err
		}
	}
	err := g.engine.Tick(1 / float64(ebiten.TPS()))
	if errors.Is(err, ErrAutoPaused) {
		g.engine.logger.Warn("playback auto-paused", slog.Float64("t", g.engine.Time()))
		return nil
	}
	return err
}

func (g *gameShell) handleKeys() {
	e := g.engine
	ctrl := ebiten.IsKeyPressed(ebiten.KeyControl) || ebiten.IsKeyPressed(ebiten.KeyMeta)
	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeySpace):
		if e.State() == Playing {
			e.Pause()
		} else {
			e.Play()
		}
	case inpututil.IsKeyJustPressed(ebiten.KeyR):
		e.Reset()
	case ctrl && inpututil.IsKeyJustPressed(ebiten.KeyZ):
		e.Undo()
	case ctrl && inpututil.IsKeyJustPressed(ebiten.KeyY):
		e.Redo()
	}
}

func (g *gameShell) Draw(screen *ebiten.Image) {
	if g.cfg.Draw != nil {
		g.cfg.Draw(screen, g.engine)
	} else {
		g.drawNodes(screen)
	}
	if g.cfg.ShowStatus {
		ebitenutil.DebugPrint(screen, fmt.Sprintf("%s  t=%.2f\nFPS: %.1f  TPS: %.1f",
			g.engine.State(), g.engine.Time(), ebiten.ActualFPS(), ebiten.ActualTPS()))
	}
}

func (g *gameShell) Layout(_, _ int) (int, int) {
	return g.cfg.Width, g.cfg.Height
}

// Node colors by authority.
var authorityColors = [...]color.RGBA{
	AuthorityManual:    {200, 200, 200, 255},
	AuthorityAnimated:  {80, 180, 255, 255},
	AuthoritySimulated: {255, 140, 60, 255},
}

// drawNodes projects every node's world position onto the XY plane, origin
// at the screen center and +Y up.
func (g *gameShell) drawNodes(screen *ebiten.Image) {
	screen.Fill(color.RGBA{30, 30, 40, 255})
	cx, cy := float64(g.cfg.Width)/2, float64(g.cfg.Height)/2
	g.engine.scene.Each(func(n *Node) {
		w, ok := g.engine.scene.World(n.id)
		if !ok {
			return
		}
		x := int(cx + w.Position.X()*g.cfg.PixelsPerUnit)
		y := int(cy - w.Position.Y()*g.cfg.PixelsPerUnit)
		r := image.Rect(x-4, y-4, x+4, y+4).Intersect(screen.Bounds())
		if r.Empty() {
			return
		}
		screen.SubImage(r).(*ebiten.Image).Fill(authorityColors[n.authority])
	})
}
