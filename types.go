package puppet

// Vec2 is a 2D vector used for positions, offsets and sizes throughout the
// API.
type Vec2 struct {
	X, Y float64
}

// Rect is an axis-aligned rectangle. The coordinate system has its origin at
// the top-left, with Y increasing downward.
type Rect struct {
	X, Y, Width, Height float64
}

// Contains reports whether the point (x, y) lies inside the rectangle.
// Points on the edge are considered inside.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width &&
		y >= r.Y && y <= r.Y+r.Height
}

// SpriteBounds is the display size requested for a puppet, in world units.
type SpriteBounds struct {
	Width, Height float64
}

// NodeType distinguishes rendering behavior for a Node.
type NodeType uint8

const (
	NodeTypeContainer NodeType = iota // group node with no visual output
	NodeTypePuppet                    // renders a Puppet's model
)

// EventType identifies a kind of interaction event.
type EventType uint8

const (
	EventPointerDown EventType = iota // fires when a pointer button is pressed
	EventPointerUp                    // fires when a pointer button is released
	EventClick                        // fires on press then release over the same node
	EventHit                          // fires once per named hit area under a press
)

// MouseButton identifies a mouse button.
type MouseButton uint8

const (
	MouseButtonLeft   MouseButton = iota // primary (left) mouse button
	MouseButtonRight                     // secondary (right) mouse button
	MouseButtonMiddle                    // middle mouse button (scroll wheel click)
)
