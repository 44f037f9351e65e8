package puppet

import "testing"

func TestNewContainerDefaults(t *testing.T) {
	n := NewContainer("c")
	if n.Type != NodeTypeContainer {
		t.Errorf("Type = %v, want container", n.Type)
	}
	if n.ScaleX != 1 || n.ScaleY != 1 || n.Alpha != 1 || !n.Visible {
		t.Errorf("unexpected defaults: %+v", n)
	}
	if n.ID == 0 {
		t.Error("ID should be assigned")
	}
	if NewContainer("d").ID == n.ID {
		t.Error("IDs should be unique")
	}
}

func TestAddChildReparents(t *testing.T) {
	a := NewContainer("a")
	b := NewContainer("b")
	c := NewContainer("c")
	a.AddChild(c)
	b.AddChild(c)

	if c.Parent != b {
		t.Error("child should be reparented to b")
	}
	if a.NumChildren() != 0 {
		t.Errorf("a.NumChildren() = %d, want 0", a.NumChildren())
	}
	if b.NumChildren() != 1 {
		t.Errorf("b.NumChildren() = %d, want 1", b.NumChildren())
	}
}

func TestAddChildNilPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	NewContainer("a").AddChild(nil)
}

func TestAddChildCyclePanics(t *testing.T) {
	a := NewContainer("a")
	b := NewContainer("b")
	a.AddChild(b)
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	b.AddChild(a)
}

func TestRemoveChildWrongParentPanics(t *testing.T) {
	a := NewContainer("a")
	b := NewContainer("b")
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	a.RemoveChild(b)
}

func TestRemoveFromParent(t *testing.T) {
	a := NewContainer("a")
	b := NewContainer("b")
	a.AddChild(b)
	b.RemoveFromParent()
	if b.Parent != nil || a.NumChildren() != 0 {
		t.Error("b should be detached")
	}
	// No-op without a parent.
	b.RemoveFromParent()
}

func TestPaintOrderByZIndex(t *testing.T) {
	root := NewContainer("root")
	a := NewContainer("a")
	b := NewContainer("b")
	c := NewContainer("c")
	root.AddChild(a)
	root.AddChild(b)
	root.AddChild(c)

	a.SetZIndex(2)
	c.SetZIndex(-1)

	got := root.paintOrder()
	want := []*Node{c, b, a}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("paintOrder[%d] = %s, want %s", i, got[i].Name, want[i].Name)
		}
	}
	// Insertion order is untouched.
	if root.Children()[0] != a {
		t.Error("Children() should keep insertion order")
	}
}

func TestPaintOrderStableTies(t *testing.T) {
	root := NewContainer("root")
	var nodes []*Node
	for _, name := range []string{"a", "b", "c", "d"} {
		n := NewContainer(name)
		root.AddChild(n)
		nodes = append(nodes, n)
	}
	nodes[0].SetZIndex(1)
	got := root.paintOrder()
	want := []string{"b", "c", "d", "a"}
	for i, name := range want {
		if got[i].Name != name {
			t.Errorf("paintOrder[%d] = %s, want %s", i, got[i].Name, name)
		}
	}
}

func TestDisposeRecursive(t *testing.T) {
	root := NewContainer("root")
	a := NewContainer("a")
	b := NewContainer("b")
	root.AddChild(a)
	a.AddChild(b)

	a.Dispose()

	if !a.IsDisposed() || !b.IsDisposed() {
		t.Error("a and b should be disposed")
	}
	if root.NumChildren() != 0 {
		t.Error("a should be removed from root")
	}
	if a.ID != 0 {
		t.Error("disposed node ID should be cleared")
	}
	// Second call is a no-op.
	a.Dispose()
}

func TestDisposeReleasesPuppet(t *testing.T) {
	p := newTestPuppet(t, "haru", nil)
	group := NewContainer("group")
	group.AddChild(p.Node())

	group.Dispose()

	if !p.Destroyed() {
		t.Error("puppet should be destroyed with its node")
	}
	if p.Node().Puppet != nil {
		t.Error("node should drop its puppet")
	}
}

func TestDebugAddDisposedPanics(t *testing.T) {
	globalDebug = true
	defer func() { globalDebug = false }()

	a := NewContainer("a")
	b := NewContainer("b")
	b.Dispose()

	defer func() {
		if recover() == nil {
			t.Error("expected panic adding a disposed node in debug mode")
		}
	}()
	a.AddChild(b)
}
