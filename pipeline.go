package puppet

import "github.com/go-gl/mathgl/mgl32"

// Mat4 is a column-major 4x4 matrix, the layout the deformation engine
// consumes. Element (row, col) is at index col*4+row.
type Mat4 = mgl32.Mat4

// IdentityMat4 is the 4x4 identity matrix.
var IdentityMat4 = mgl32.Ident4()

// SpriteTransform is the per-puppet state of the transform pipeline.
// Model is derived from World and the scale ratios on every Update and is
// never set directly.
type SpriteTransform struct {
	// ScaleX and ScaleY convert device pixels to model logical units.
	// ScaleY is negative: device Y grows downward, model Y upward.
	ScaleX, ScaleY float64
	World          Affine
	Model          Mat4
}

// Update recomputes the scale ratios for the given surface and model and
// rebuilds the model matrix from world.
func (t *SpriteTransform) Update(world Affine, surface Surface, logicalW, logicalH float64) {
	t.ScaleX, t.ScaleY = ComputeScaleRatios(float64(surface.Width), float64(surface.Height), logicalW, logicalH)
	t.World = world
	t.Model = ComputeModelMatrix(world, t.ScaleX, t.ScaleY)
}

// ComputeScaleRatios returns the device-to-logical scale for each axis.
// A zero buffer dimension yields 1 for that axis.
func ComputeScaleRatios(bufferW, bufferH, logicalW, logicalH float64) (sx, sy float64) {
	sx, sy = 1, 1
	if bufferW != 0 {
		sx = logicalW / bufferW
	}
	if bufferH != 0 {
		sy = -logicalH / bufferH
	}
	return sx, sy
}

// ComputeModelMatrix writes the scaled world affine into a 4x4 matrix in the
// layout the deformation engine reads: a and b scaled by sx fill row 0, c and
// d scaled by sy fill row 1, and the scaled translation goes to indices 12
// and 13. Depth rows stay identity; the deformation engine owns any
// perspective.
func ComputeModelMatrix(world Affine, sx, sy float64) Mat4 {
	m := IdentityMat4
	m[0] = float32(world[0] * sx)
	m[1] = float32(world[2] * sy)
	m[4] = float32(world[1] * sx)
	m[5] = float32(world[3] * sy)
	m[12] = float32(world[4] * sx)
	m[13] = float32(world[5] * sy)
	return m
}

// ToModelSpace maps a world-space pointer into model-local units relative to
// a node at (nodeX, nodeY) scaled by (scaleX, scaleY). Rotation is ignored.
// Used for hit testing only.
func ToModelSpace(px, py, nodeX, nodeY, scaleX, scaleY float64) (float64, float64) {
	if scaleX == 0 {
		scaleX = 1
	}
	if scaleY == 0 {
		scaleY = 1
	}
	return (px - nodeX) / scaleX, (py - nodeY) / scaleY
}

// FromModelSpace is the forward mapping undone by ToModelSpace.
func FromModelSpace(mx, my, nodeX, nodeY, scaleX, scaleY float64) (float64, float64) {
	if scaleX == 0 {
		scaleX = 1
	}
	if scaleY == 0 {
		scaleY = 1
	}
	return mx*scaleX + nodeX, my*scaleY + nodeY
}

// boundsScale returns the node scale that displays an intrinsic size at the
// requested size. Non-positive requests fall back to the intrinsic size.
func boundsScale(requested, intrinsic float64) float64 {
	if requested <= 0 || intrinsic <= 0 {
		return 1
	}
	return requested / intrinsic
}
