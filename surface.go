package puppet

import "github.com/go-gl/mathgl/mgl32"

// LogicalHeight is the height of the logical world in world units. The
// logical width follows the device aspect ratio.
const LogicalHeight = 2.0

// Surface describes the render surface in device pixels. Puppets read it
// every frame; only the scene writes it.
type Surface struct {
	Width, Height int
}

// LogicalWidth returns the logical world width, 2*W/H.
func (s Surface) LogicalWidth() float64 {
	if s.Height == 0 {
		return 0
	}
	return LogicalHeight * float64(s.Width) / float64(s.Height)
}

// ToLogical converts device pixels to logical world units. The logical origin
// is the surface center and Y grows upward.
func (s Surface) ToLogical(px, py float64) (lx, ly float64) {
	if s.Height == 0 {
		return 0, 0
	}
	unit := LogicalHeight / float64(s.Height)
	lx = px*unit - s.LogicalWidth()/2
	ly = LogicalHeight/2 - py*unit
	return lx, ly
}

// ToDevice converts logical world units back to device pixels.
func (s Surface) ToDevice(lx, ly float64) (px, py float64) {
	if s.Height == 0 {
		return 0, 0
	}
	perUnit := float64(s.Height) / LogicalHeight
	px = (lx + s.LogicalWidth()/2) * perUnit
	py = (LogicalHeight/2 - ly) * perUnit
	return px, py
}

// Projection returns the orthographic projection of the logical world onto
// clip space: y in [-1, 1], z in [-1, 1], and x in [-w/2, w/2] mirrored so
// logical +w/2 lands on clip -1. The deformation engine draws with X flipped.
func (s Surface) Projection() Mat4 {
	w := s.LogicalWidth()
	if w == 0 {
		return IdentityMat4
	}
	return mgl32.Ortho(float32(w/2), float32(-w/2), -LogicalHeight/2, LogicalHeight/2, -1, 1)
}
