package puppet

import "sync/atomic"

// HitShape is used for custom hit testing regions on plain nodes and for
// named hit areas on a StaticModel.
type HitShape interface {
	Contains(x, y float64) bool
}

// PointerContext carries pointer event data.
type PointerContext struct {
	Node     *Node
	EntityID uint32
	GlobalX  float64
	GlobalY  float64
	LocalX   float64
	LocalY   float64
	Button   MouseButton
}

// HitContext carries the data of one named hit-area notification.
type HitContext struct {
	Puppet  *Puppet
	Area    string
	GlobalX float64
	GlobalY float64
	// LocalX and LocalY are in model-local units.
	LocalX float64
	LocalY float64
}

// nodeIDCounter is atomic: CreatePuppet may build nodes off the frame loop.
var nodeIDCounter atomic.Uint32

func nextNodeID() uint32 {
	return nodeIDCounter.Add(1)
}

// Node is the host scene graph element. Puppets hang off nodes of type
// NodeTypePuppet; containers group and transform them.
type Node struct {
	ID   uint32
	Name string
	Type NodeType

	Parent   *Node
	children []*Node

	// Transform (local)
	X, Y         float64
	ScaleX       float64
	ScaleY       float64
	Rotation     float64
	SkewX, SkewY float64
	PivotX       float64
	PivotY       float64

	world          Affine
	worldAlpha     float64
	transformDirty bool

	Alpha        float64
	Visible      bool
	Interactable bool

	ZIndex int

	UserData any
	EntityID uint32

	// Puppet is set on NodeTypePuppet nodes.
	Puppet *Puppet

	HitShape HitShape

	OnPointerDown func(PointerContext)
	OnPointerUp   func(PointerContext)
	OnClick       func(PointerContext)

	disposed       bool
	childrenSorted bool
	sortedChildren []*Node
}

func nodeDefaults(n *Node) {
	n.ID = nextNodeID()
	n.ScaleX = 1
	n.ScaleY = 1
	n.Alpha = 1
	n.Visible = true
	n.world = IdentityAffine
	n.worldAlpha = 1
	n.transformDirty = true
	n.childrenSorted = true
}

// NewContainer creates a container node with no visual representation.
func NewContainer(name string) *Node {
	n := &Node{Name: name, Type: NodeTypeContainer}
	nodeDefaults(n)
	return n
}

// newPuppetNode creates the scene node a Puppet renders through.
func newPuppetNode(name string, p *Puppet) *Node {
	n := &Node{Name: name, Type: NodeTypePuppet, Puppet: p, Interactable: true}
	nodeDefaults(n)
	return n
}

// --- Tree manipulation ---

// AddChild appends child to this node's children.
// If child already has a parent, it is removed from that parent first.
// Panics if child is nil or child is an ancestor of this node (cycle).
func (n *Node) AddChild(child *Node) {
	if child == nil {
		panic("puppet: cannot add nil child")
	}
	if globalDebug {
		debugCheckDisposed(n, "AddChild (parent)")
		debugCheckDisposed(child, "AddChild (child)")
	}
	if isAncestor(child, n) {
		panic("puppet: adding child would create a cycle")
	}
	if child.Parent != nil {
		child.Parent.removeChildByPtr(child)
		child.Parent.childrenSorted = false
	}
	child.Parent = n
	n.children = append(n.children, child)
	n.childrenSorted = false
	markSubtreeDirty(child)
	if globalDebug {
		debugCheckTreeDepth(child)
	}
}

// RemoveChild detaches child from this node.
// Panics if child.Parent != n.
func (n *Node) RemoveChild(child *Node) {
	if child.Parent != n {
		panic("puppet: child's parent is not this node")
	}
	n.removeChildByPtr(child)
	child.Parent = nil
	n.childrenSorted = false
	markSubtreeDirty(child)
}

// RemoveFromParent detaches this node from its parent.
// No-op if this node has no parent.
func (n *Node) RemoveFromParent() {
	if n.Parent == nil {
		return
	}
	n.Parent.RemoveChild(n)
}

// Children returns the child list. The returned slice MUST NOT be mutated by the caller.
func (n *Node) Children() []*Node {
	return n.children
}

// NumChildren returns the number of children.
func (n *Node) NumChildren() int {
	return len(n.children)
}

// SetZIndex sets the node's ZIndex and marks the parent's children as unsorted.
func (n *Node) SetZIndex(z int) {
	if n.ZIndex == z {
		return
	}
	n.ZIndex = z
	if n.Parent != nil {
		n.Parent.childrenSorted = false
	}
}

// paintOrder returns the children in ZIndex order, ties keeping insertion
// order. The sorted buffer is rebuilt only after a change.
func (n *Node) paintOrder() []*Node {
	if len(n.children) < 2 {
		return n.children
	}
	if n.childrenSorted && n.sortedChildren != nil {
		return n.sortedChildren
	}
	nc := len(n.children)
	if cap(n.sortedChildren) < nc {
		n.sortedChildren = make([]*Node, nc)
	}
	n.sortedChildren = n.sortedChildren[:nc]
	copy(n.sortedChildren, n.children)
	// Stable insertion sort; children are usually already in order.
	for i := 1; i < nc; i++ {
		key := n.sortedChildren[i]
		j := i - 1
		for j >= 0 && n.sortedChildren[j].ZIndex > key.ZIndex {
			n.sortedChildren[j+1] = n.sortedChildren[j]
			j--
		}
		n.sortedChildren[j+1] = key
	}
	n.childrenSorted = true
	return n.sortedChildren
}

// --- Disposal ---

// Dispose removes this node from its parent, marks it as disposed,
// and recursively disposes all descendants. Puppets attached to
// descendants are destroyed.
func (n *Node) Dispose() {
	if n.disposed {
		return
	}
	n.RemoveFromParent()
	n.dispose()
}

func (n *Node) dispose() {
	n.disposed = true
	n.ID = 0
	for _, child := range n.children {
		child.Parent = nil
		child.dispose()
	}
	if n.Puppet != nil {
		p := n.Puppet
		n.Puppet = nil
		p.release()
	}
	n.children = nil
	n.sortedChildren = nil
	n.Parent = nil
	n.HitShape = nil
	n.UserData = nil
	n.OnPointerDown = nil
	n.OnPointerUp = nil
	n.OnClick = nil
}

// IsDisposed returns true if this node has been disposed.
func (n *Node) IsDisposed() bool {
	return n.disposed
}

// --- Helpers ---

func isAncestor(candidate, node *Node) bool {
	for p := node; p != nil; p = p.Parent {
		if p == candidate {
			return true
		}
	}
	return false
}

// removeChildByPtr removes child from n.children without clearing child.Parent.
func (n *Node) removeChildByPtr(child *Node) {
	for i, c := range n.children {
		if c == child {
			copy(n.children[i:], n.children[i+1:])
			n.children[len(n.children)-1] = nil
			n.children = n.children[:len(n.children)-1]
			return
		}
	}
}

func markSubtreeDirty(node *Node) {
	node.transformDirty = true
	for _, child := range node.children {
		markSubtreeDirty(child)
	}
}
