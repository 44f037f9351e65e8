package puppet

import (
	"fmt"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
)

// overlayRefresh is how often the debug overlay text is rebuilt, in seconds.
const overlayRefresh = 0.5

// debugOverlay is the frame-rate and puppet-count readout drawn in debug
// mode.
type debugOverlay struct {
	elapsed float64
	text    string
}

func (o *debugOverlay) update(dt float64, puppets int) {
	o.elapsed += dt
	if o.text != "" && o.elapsed < overlayRefresh {
		return
	}
	o.elapsed = 0
	o.text = fmt.Sprintf("FPS: %.1f\nTPS: %.1f\nPuppets: %d", ebiten.ActualFPS(), ebiten.ActualTPS(), puppets)
}

func (o *debugOverlay) draw(screen *ebiten.Image) {
	if o.text == "" {
		return
	}
	ebitenutil.DebugPrint(screen, o.text)
}
