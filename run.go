package puppet

import (
	"github.com/hajimehoshi/ebiten/v2"
)

// RunConfig configures the window created by Run.
type RunConfig struct {
	Title         string
	Width, Height int
	Resizable     bool
}

// Run opens a window and drives scene until the window closes. The scene
// sees the framebuffer in device pixels.
func Run(scene *Scene, cfg RunConfig) error {
	if cfg.Title != "" {
		ebiten.SetWindowTitle(cfg.Title)
	}
	if cfg.Width > 0 && cfg.Height > 0 {
		ebiten.SetWindowSize(cfg.Width, cfg.Height)
	}
	if cfg.Resizable {
		ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	}
	return ebiten.RunGame(&gameLoop{scene: scene})
}

type gameLoop struct {
	scene *Scene
}

func (g *gameLoop) Update() error {
	g.scene.Update()
	return nil
}

func (g *gameLoop) Draw(screen *ebiten.Image) {
	g.scene.Draw(screen)
}

// Layout reports the framebuffer in device pixels.
func (g *gameLoop) Layout(outsideWidth, outsideHeight int) (int, int) {
	scale := ebiten.Monitor().DeviceScaleFactor()
	return int(float64(outsideWidth) * scale), int(float64(outsideHeight) * scale)
}
