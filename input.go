package puppet

import (
	"github.com/hajimehoshi/ebiten/v2"
)

// --- Built-in HitShape types ---

// HitRect is an axis-aligned rectangular hit area in local coordinates.
type HitRect struct {
	X, Y, Width, Height float64
}

// Contains reports whether (x, y) lies inside the rectangle.
func (r HitRect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width &&
		y >= r.Y && y <= r.Y+r.Height
}

// HitCircle is a circular hit area in local coordinates.
type HitCircle struct {
	CenterX, CenterY, Radius float64
}

// Contains reports whether (x, y) lies inside or on the circle.
func (c HitCircle) Contains(x, y float64) bool {
	dx := x - c.CenterX
	dy := y - c.CenterY
	return dx*dx+dy*dy <= c.Radius*c.Radius
}

// HitPolygon is a convex polygon hit area in local coordinates.
// Points must define a convex polygon in either winding order.
type HitPolygon struct {
	Points []Vec2
}

// Contains reports whether (x, y) lies inside the polygon using a
// cross-product sign test.
func (p HitPolygon) Contains(x, y float64) bool {
	n := len(p.Points)
	if n < 3 {
		return false
	}
	var positive, negative bool
	for i := 0; i < n; i++ {
		a := p.Points[i]
		b := p.Points[(i+1)%n]
		cross := (b.X-a.X)*(y-a.Y) - (b.Y-a.Y)*(x-a.X)
		if cross > 0 {
			positive = true
		} else if cross < 0 {
			negative = true
		}
		if positive && negative {
			return false
		}
	}
	return true
}

// --- Handler registry ---

type pointerHandler struct {
	id uint32
	fn func(PointerContext)
}

type hitHandler struct {
	id uint32
	fn func(HitContext)
}

type handlerRegistry struct {
	pointerDown []pointerHandler
	pointerUp   []pointerHandler
	click       []pointerHandler
	hit         []hitHandler
	nextID      uint32
}

func (r *handlerRegistry) addPointer(event EventType, fn func(PointerContext)) CallbackHandle {
	r.nextID++
	h := pointerHandler{id: r.nextID, fn: fn}
	switch event {
	case EventPointerDown:
		r.pointerDown = append(r.pointerDown, h)
	case EventPointerUp:
		r.pointerUp = append(r.pointerUp, h)
	case EventClick:
		r.click = append(r.click, h)
	}
	return CallbackHandle{id: h.id, reg: r, event: event}
}

func (r *handlerRegistry) addHit(fn func(HitContext)) CallbackHandle {
	r.nextID++
	r.hit = append(r.hit, hitHandler{id: r.nextID, fn: fn})
	return CallbackHandle{id: r.nextID, reg: r, event: EventHit}
}

// CallbackHandle allows removing a registered callback.
type CallbackHandle struct {
	id    uint32
	reg   *handlerRegistry
	event EventType
}

// Remove unregisters this callback so it no longer fires.
func (h CallbackHandle) Remove() {
	if h.reg == nil {
		return
	}
	switch h.event {
	case EventPointerDown:
		h.reg.pointerDown = removeHandler(h.reg.pointerDown, h.id, func(p pointerHandler) uint32 { return p.id })
	case EventPointerUp:
		h.reg.pointerUp = removeHandler(h.reg.pointerUp, h.id, func(p pointerHandler) uint32 { return p.id })
	case EventClick:
		h.reg.click = removeHandler(h.reg.click, h.id, func(p pointerHandler) uint32 { return p.id })
	case EventHit:
		h.reg.hit = removeHandler(h.reg.hit, h.id, func(p hitHandler) uint32 { return p.id })
	}
}

func removeHandler[T any](s []T, id uint32, idOf func(T) uint32) []T {
	for i := range s {
		if idOf(s[i]) == id {
			var zero T
			copy(s[i:], s[i+1:])
			s[len(s)-1] = zero
			return s[:len(s)-1]
		}
	}
	return s
}

// --- Scene-level event registration ---

// OnPointerDown registers a scene-level callback for pointer down events.
func (s *Scene) OnPointerDown(fn func(PointerContext)) CallbackHandle {
	return s.handlers.addPointer(EventPointerDown, fn)
}

// OnPointerUp registers a scene-level callback for pointer up events.
func (s *Scene) OnPointerUp(fn func(PointerContext)) CallbackHandle {
	return s.handlers.addPointer(EventPointerUp, fn)
}

// OnClick registers a scene-level callback for click events.
func (s *Scene) OnClick(fn func(PointerContext)) CallbackHandle {
	return s.handlers.addPointer(EventClick, fn)
}

// OnHit registers a scene-level callback fired for every puppet hit area
// under a pointer press.
func (s *Scene) OnHit(fn func(HitContext)) CallbackHandle {
	return s.handlers.addHit(fn)
}

// --- Hit testing ---

type pointerState struct {
	down    bool
	hitNode *Node
	button  MouseButton
}

// nodeContainsLocal tests whether (lx, ly) falls inside a plain node's
// HitShape. Nodes without a shape are not hit-testable.
func nodeContainsLocal(n *Node, lx, ly float64) bool {
	return n.HitShape != nil && n.HitShape.Contains(lx, ly)
}

// collectInteractable walks the tree in painter order, appending puppet
// nodes and shaped nodes. Skips Visible=false or Interactable=false
// subtrees.
func collectInteractable(n *Node, buf []*Node) []*Node {
	if !n.Visible || !n.Interactable {
		return buf
	}
	if (n.Type == NodeTypePuppet && n.Puppet != nil) || n.HitShape != nil {
		buf = append(buf, n)
	}
	for _, child := range n.paintOrder() {
		buf = collectInteractable(child, buf)
	}
	return buf
}

// hitTest finds the topmost node at (wx, wy). A puppet counts only when
// one of its hit areas contains the point; those areas are returned.
func (s *Scene) hitTest(wx, wy float64) (node *Node, areas []string, lx, ly float64) {
	s.hitBuf = collectInteractable(s.root, s.hitBuf[:0])
	for i := len(s.hitBuf) - 1; i >= 0; i-- {
		n := s.hitBuf[i]
		if n.Type == NodeTypePuppet {
			areas, lx, ly = n.Puppet.hitAreas(wx, wy)
			if len(areas) > 0 {
				return n, areas, lx, ly
			}
			continue
		}
		lx, ly = n.WorldToLocal(wx, wy)
		if nodeContainsLocal(n, lx, ly) {
			return n, nil, lx, ly
		}
	}
	return nil, nil, 0, 0
}

// --- Input processing ---

// processInput handles one frame of pointer input. Injected events take
// precedence over the real mouse. The scene world is in device pixels, so
// cursor positions are used as-is.
func (s *Scene) processInput() {
	if s.processInjectedInput() {
		return
	}
	x, y := ebiten.CursorPosition()
	pressed := ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft)
	s.processPointer(float64(x), float64(y), pressed, MouseButtonLeft)
}

// processPointer runs the press/release state machine for the pointer.
func (s *Scene) processPointer(wx, wy float64, pressed bool, button MouseButton) {
	ptr := &s.pointer
	switch {
	case pressed && !ptr.down:
		ptr.down = true
		ptr.button = button
		node, areas, lx, ly := s.hitTest(wx, wy)
		ptr.hitNode = node
		s.firePointer(EventPointerDown, node, wx, wy, button)
		if len(areas) > 0 {
			s.fireHits(node.Puppet, areas, wx, wy, lx, ly)
		}
	case !pressed && ptr.down:
		ptr.down = false
		node, _, _, _ := s.hitTest(wx, wy)
		s.firePointer(EventPointerUp, node, wx, wy, ptr.button)
		if node != nil && node == ptr.hitNode {
			s.firePointer(EventClick, node, wx, wy, ptr.button)
		}
		ptr.hitNode = nil
	}
}

// --- Event dispatch ---

func (s *Scene) firePointer(event EventType, node *Node, wx, wy float64, button MouseButton) {
	ctx := PointerContext{GlobalX: wx, GlobalY: wy, Button: button}
	if node != nil {
		ctx.Node = node
		ctx.EntityID = node.EntityID
		ctx.LocalX, ctx.LocalY = node.WorldToLocal(wx, wy)
	}

	var handlers []pointerHandler
	var nodeFn func(PointerContext)
	switch event {
	case EventPointerDown:
		handlers = s.handlers.pointerDown
		if node != nil {
			nodeFn = node.OnPointerDown
		}
	case EventPointerUp:
		handlers = s.handlers.pointerUp
		if node != nil {
			nodeFn = node.OnPointerUp
		}
	case EventClick:
		handlers = s.handlers.click
		if node != nil {
			nodeFn = node.OnClick
		}
	}
	if nodeFn != nil {
		nodeFn(ctx)
	}
	for _, h := range handlers {
		h.fn(ctx)
	}
	if node != nil {
		s.emitInteractionEvent(InteractionEvent{
			Type: event, EntityID: node.EntityID,
			GlobalX: wx, GlobalY: wy, LocalX: ctx.LocalX, LocalY: ctx.LocalY,
			Button: button,
		})
	}
}

func (s *Scene) fireHits(p *Puppet, areas []string, wx, wy, lx, ly float64) {
	p.emitHits(areas, wx, wy, lx, ly)
	for _, area := range areas {
		ctx := HitContext{Puppet: p, Area: area, GlobalX: wx, GlobalY: wy, LocalX: lx, LocalY: ly}
		for _, h := range s.handlers.hit {
			h.fn(ctx)
		}
		s.emitInteractionEvent(InteractionEvent{
			Type: EventHit, EntityID: p.node.EntityID, HitArea: area,
			GlobalX: wx, GlobalY: wy, LocalX: lx, LocalY: ly,
			Button: s.pointer.button,
		})
	}
}

func (s *Scene) emitInteractionEvent(e InteractionEvent) {
	if s.store != nil {
		s.store.EmitEvent(e)
	}
}
