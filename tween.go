package puppet

import (
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// TweenGroup animates up to 4 values together and hands them to a setter
// each frame. Create one with TweenPosition, TweenAlpha, TweenRotation or
// TweenSize and call Update(dt) each frame. If the target node is disposed,
// the group stops immediately.
//
// There is no global tween manager; callers update their own groups.
type TweenGroup struct {
	tweens [4]*gween.Tween
	values [4]float64
	count  int
	set    func(v [4]float64)
	target *Node
	Done   bool
}

func newTweenGroup(target *Node, from, to []float64, duration float32, fn ease.TweenFunc, set func([4]float64)) *TweenGroup {
	g := &TweenGroup{count: len(from), target: target, set: set}
	for i := range from {
		g.tweens[i] = gween.New(float32(from[i]), float32(to[i]), duration, fn)
		g.values[i] = from[i]
	}
	return g
}

// Update advances all tweens by dt seconds and applies the values. If the
// target node has been disposed, Done is set and nothing is applied.
func (g *TweenGroup) Update(dt float32) {
	if g.Done {
		return
	}
	if g.target != nil && g.target.IsDisposed() {
		g.Done = true
		return
	}
	allDone := true
	for i := 0; i < g.count; i++ {
		v, finished := g.tweens[i].Update(dt)
		g.values[i] = float64(v)
		if !finished {
			allDone = false
		}
	}
	g.Done = allDone
	g.set(g.values)
}

// TweenPosition moves node to (toX, toY).
func TweenPosition(node *Node, toX, toY float64, duration float32, fn ease.TweenFunc) *TweenGroup {
	return newTweenGroup(node, []float64{node.X, node.Y}, []float64{toX, toY}, duration, fn, func(v [4]float64) {
		node.SetPosition(v[0], v[1])
	})
}

// TweenAlpha fades node to the target alpha.
func TweenAlpha(node *Node, to float64, duration float32, fn ease.TweenFunc) *TweenGroup {
	return newTweenGroup(node, []float64{node.Alpha}, []float64{to}, duration, fn, func(v [4]float64) {
		node.SetAlpha(v[0])
	})
}

// TweenRotation turns node to the target rotation in radians.
func TweenRotation(node *Node, to float64, duration float32, fn ease.TweenFunc) *TweenGroup {
	return newTweenGroup(node, []float64{node.Rotation}, []float64{to}, duration, fn, func(v [4]float64) {
		node.SetRotation(v[0])
	})
}

// TweenSize resizes p to (toW, toH) display units, going through Resize
// so the node scale follows the intrinsic size.
func TweenSize(p *Puppet, toW, toH float64, duration float32, fn ease.TweenFunc) *TweenGroup {
	return newTweenGroup(p.node, []float64{p.width, p.height}, []float64{toW, toH}, duration, fn, func(v [4]float64) {
		p.Resize(v[0], v[1])
	})
}
