package puppet

import "math"

// Affine is a 2D affine matrix laid out as [a, b, c, d, tx, ty]:
//
//	| a  c  tx |
//	| b  d  ty |
//	| 0  0   1 |
type Affine [6]float64

// IdentityAffine is the identity affine matrix.
var IdentityAffine = Affine{1, 0, 0, 1, 0, 0}

// Mul returns m * o (o is applied first).
func (m Affine) Mul(o Affine) Affine {
	return Affine{
		m[0]*o[0] + m[2]*o[1],
		m[1]*o[0] + m[3]*o[1],
		m[0]*o[2] + m[2]*o[3],
		m[1]*o[2] + m[3]*o[3],
		m[0]*o[4] + m[2]*o[5] + m[4],
		m[1]*o[4] + m[3]*o[5] + m[5],
	}
}

// Invert returns the inverse of m, or the identity if m is singular.
func (m Affine) Invert() Affine {
	det := m[0]*m[3] - m[2]*m[1]
	if det > -1e-12 && det < 1e-12 {
		return IdentityAffine
	}
	inv := 1.0 / det
	a := m[3] * inv
	b := -m[1] * inv
	c := -m[2] * inv
	d := m[0] * inv
	return Affine{a, b, c, d, -(a*m[4] + c*m[5]), -(b*m[4] + d*m[5])}
}

// Apply transforms the point (x, y).
func (m Affine) Apply(x, y float64) (float64, float64) {
	return m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]
}

// Translation returns the (tx, ty) column.
func (m Affine) Translation() (float64, float64) {
	return m[4], m[5]
}

// localTransform composes the node's local matrix:
//
//	Translate(-PivotX, -PivotY) -> Scale -> Skew -> Rotate -> Translate(X, Y)
func localTransform(n *Node) Affine {
	sx, sy := n.ScaleX, n.ScaleY
	sin, cos := math.Sincos(n.Rotation)

	var tanX, tanY float64
	if n.SkewX != 0 {
		tanX = math.Tan(n.SkewX)
	}
	if n.SkewY != 0 {
		tanY = math.Tan(n.SkewY)
	}

	a, b := sx, tanY*sx
	c, d := tanX*sy, sy
	preTx := -n.PivotX*sx - tanX*n.PivotY*sy
	preTy := -tanY*n.PivotX*sx - n.PivotY*sy

	return Affine{
		cos*a - sin*b,
		sin*a + cos*b,
		cos*c - sin*d,
		sin*c + cos*d,
		cos*preTx - sin*preTy + n.X,
		sin*preTx + cos*preTy + n.Y,
	}
}

// updateWorldTransform refreshes world matrices and alpha for the subtree.
// A recomputed parent forces recomputation of every descendant.
func updateWorldTransform(n *Node, parent Affine, parentAlpha float64, parentRecomputed bool) {
	recompute := n.transformDirty || parentRecomputed
	if recompute {
		n.world = parent.Mul(localTransform(n))
		n.worldAlpha = parentAlpha * n.Alpha
		n.transformDirty = false
	}
	for _, child := range n.children {
		updateWorldTransform(child, n.world, n.worldAlpha, recompute)
	}
}

// SetPosition sets the node's local X and Y and marks it dirty.
func (n *Node) SetPosition(x, y float64) {
	n.X = x
	n.Y = y
	n.transformDirty = true
}

// SetScale sets the node's ScaleX and ScaleY and marks it dirty.
func (n *Node) SetScale(sx, sy float64) {
	n.ScaleX = sx
	n.ScaleY = sy
	n.transformDirty = true
}

// SetRotation sets the node's rotation (in radians) and marks it dirty.
func (n *Node) SetRotation(r float64) {
	n.Rotation = r
	n.transformDirty = true
}

// SetPivot sets the node's PivotX and PivotY and marks it dirty.
func (n *Node) SetPivot(px, py float64) {
	n.PivotX = px
	n.PivotY = py
	n.transformDirty = true
}

// SetAlpha sets the node's alpha and marks it dirty.
func (n *Node) SetAlpha(a float64) {
	n.Alpha = a
	n.transformDirty = true
}

// MarkDirty forces recomputation of the world transform on the next frame.
// Useful after bulk-setting fields directly.
func (n *Node) MarkDirty() {
	n.transformDirty = true
}

// WorldTransform returns the accumulated world matrix as of the last
// scene update.
func (n *Node) WorldTransform() Affine {
	return n.world
}

// WorldToLocal converts a world-space point to this node's local coordinate space.
func (n *Node) WorldToLocal(wx, wy float64) (lx, ly float64) {
	return n.world.Invert().Apply(wx, wy)
}

// LocalToWorld converts a local-space point to world-space.
func (n *Node) LocalToWorld(lx, ly float64) (wx, wy float64) {
	return n.world.Apply(lx, ly)
}

// currentWorld returns the world matrix, recomposing it from the ancestor
// chain when anything on the chain changed since the last scene update.
func (n *Node) currentWorld() Affine {
	for p := n; p != nil; p = p.Parent {
		if p.transformDirty {
			m := localTransform(n)
			for a := n.Parent; a != nil; a = a.Parent {
				m = localTransform(a).Mul(m)
			}
			return m
		}
	}
	return n.world
}
