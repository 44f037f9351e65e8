package puppet

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
)

// EntityStore is the interface for optional ECS integration.
// When set on a Scene, interaction events are forwarded to the ECS.
type EntityStore interface {
	EmitEvent(event InteractionEvent)
}

// InteractionEvent carries interaction data for the ECS bridge.
type InteractionEvent struct {
	Type     EventType
	EntityID uint32
	GlobalX  float64
	GlobalY  float64
	LocalX   float64
	LocalY   float64
	Button   MouseButton
	// HitArea is set for EventHit.
	HitArea string
}

type puppetLoad struct {
	asset   *ModelAsset
	err     error
	ref     string
	parent  *Node
	opts    []Option
	onReady func(*Puppet, error)
}

// Scene is the top-level object that owns the node tree, the render surface
// and input state. Update and Draw must be called from one goroutine.
type Scene struct {
	root    *Node
	store   EntityStore
	debug   bool
	log     *slog.Logger
	opts    []Option
	surface Surface

	handlers    handlerRegistry
	pointer     pointerState
	hitBuf      []*Node
	puppetBuf   []*Puppet
	injectQueue []syntheticPointerEvent
	script      *ScriptRunner
	overlay     debugOverlay
	updateFunc  func() error

	// ScreenshotDir is where Screenshot writes; DefaultScreenshotDir if empty.
	ScreenshotDir   string
	screenshotQueue []string

	loadMu sync.Mutex
	loaded []puppetLoad
}

// NewScene creates a new scene with a pre-created root container. opts are
// also passed to every puppet the scene loads.
func NewScene(opts ...Option) *Scene {
	o := buildOptions(opts)
	root := NewContainer("root")
	root.Interactable = true
	return &Scene{
		root: root,
		log:  o.logger.With("tag", "Scene"),
		opts: opts,
	}
}

// Root returns the scene's root container node.
func (s *Scene) Root() *Node {
	return s.root
}

// Surface returns the render surface size seen by the last Draw.
func (s *Scene) Surface() Surface {
	return s.surface
}

// SetSurface sets the render surface size. Draw overwrites it from the
// screen image each frame.
func (s *Scene) SetSurface(surface Surface) {
	s.surface = surface
}

// Update attaches finished puppet loads, refreshes world transforms,
// advances every puppet and processes input.
func (s *Scene) Update() {
	s.update(float32(1.0 / float64(ebiten.TPS())))
}

func (s *Scene) update(dt float32) {
	var t0 time.Time
	if s.debug {
		t0 = time.Now()
	}

	s.attachLoaded()
	updateWorldTransform(s.root, IdentityAffine, 1.0, false)

	s.puppetBuf = collectPuppets(s.root, s.puppetBuf[:0], false)
	for _, p := range s.puppetBuf {
		if err := p.Update(dt); err != nil {
			s.log.Error("puppet update failed", "puppet", p.name, "err", err)
		}
	}

	if s.updateFunc != nil {
		if err := s.updateFunc(); err != nil {
			s.log.Error("update func failed", "err", err)
		}
	}
	if s.script != nil {
		s.script.step(s)
	}
	s.processInput()

	if s.debug {
		s.overlay.update(float64(dt), len(s.puppetBuf))
		s.debugLog("update", time.Since(t0), len(s.puppetBuf))
	}
}

// Draw renders every updated puppet in painter order onto screen. The
// screen size becomes the render surface.
func (s *Scene) Draw(screen *ebiten.Image) {
	var t0 time.Time
	if s.debug {
		t0 = time.Now()
	}

	b := screen.Bounds()
	s.surface = Surface{Width: b.Dx(), Height: b.Dy()}

	s.puppetBuf = collectPuppets(s.root, s.puppetBuf[:0], true)
	drawn := 0
	for _, p := range s.puppetBuf {
		// A puppet attached this frame has not been updated yet.
		if p.frames == 0 {
			continue
		}
		if err := p.Render(screen, s.surface); err != nil {
			s.log.Error("puppet render failed", "puppet", p.name, "err", err)
			continue
		}
		drawn++
	}

	if s.debug {
		s.overlay.draw(screen)
		s.debugLog("draw", time.Since(t0), drawn)
	}
	s.flushScreenshots(screen)
}

// collectPuppets appends the puppets under n in painter order, skipping
// hidden subtrees when visibleOnly is set.
func collectPuppets(n *Node, buf []*Puppet, visibleOnly bool) []*Puppet {
	if visibleOnly && !n.Visible {
		return buf
	}
	if n.Type == NodeTypePuppet && n.Puppet != nil {
		buf = append(buf, n.Puppet)
	}
	for _, child := range n.paintOrder() {
		buf = collectPuppets(child, buf, visibleOnly)
	}
	return buf
}

// --- Puppets ---

// AddPuppet attaches p under parent, or under the root when parent is nil.
func (s *Scene) AddPuppet(p *Puppet, parent *Node) {
	if parent == nil {
		parent = s.root
	}
	parent.AddChild(p.node)
}

// LoadPuppet loads a model in the background; a later Update builds the
// puppet and attaches it under parent. onReady, if set, is called from
// Update with the attached puppet or the load error. opts apply after the
// scene's own.
func (s *Scene) LoadPuppet(ctx context.Context, loader ModelLoader, ref string, parent *Node, onReady func(*Puppet, error), opts ...Option) {
	all := slices.Concat(s.opts, opts)
	go func() {
		asset, err := loadAsset(ctx, loader, ref)
		s.loadMu.Lock()
		s.loaded = append(s.loaded, puppetLoad{asset: asset, err: err, ref: ref, parent: parent, opts: all, onReady: onReady})
		s.loadMu.Unlock()
	}()
}

func (s *Scene) attachLoaded() {
	s.loadMu.Lock()
	loads := s.loaded
	s.loaded = nil
	s.loadMu.Unlock()

	for _, l := range loads {
		if l.err == nil && l.parent != nil && l.parent.IsDisposed() {
			l.asset.Model.Release()
			l.err = fmt.Errorf("attach puppet %q: parent node disposed", l.ref)
		}
		var p *Puppet
		if l.err != nil {
			s.log.Error("failed to load puppet", "ref", l.ref, "err", l.err)
		} else {
			p = NewPuppet(l.asset, l.opts...)
			s.AddPuppet(p, l.parent)
			s.log.Info("puppet loaded", "ref", l.ref, "puppet", p.name)
		}
		if l.onReady != nil {
			l.onReady(p, l.err)
		}
	}
}

// RemovePuppet destroys p and detaches it from the scene.
func (s *Scene) RemovePuppet(p *Puppet) {
	p.Destroy()
}

// Puppets returns every puppet in the scene in painter order.
func (s *Scene) Puppets() []*Puppet {
	return collectPuppets(s.root, nil, false)
}

// PuppetByName returns the first puppet with the given name.
func (s *Scene) PuppetByName(name string) *Puppet {
	for _, p := range collectPuppets(s.root, nil, false) {
		if p.name == name {
			return p
		}
	}
	return nil
}

// SetUpdateFunc sets a callback run every Update after the puppets have
// advanced and before input is processed.
func (s *Scene) SetUpdateFunc(fn func() error) {
	s.updateFunc = fn
}

// SetEntityStore sets the optional ECS bridge.
func (s *Scene) SetEntityStore(store EntityStore) {
	s.store = store
}

// SetDebugMode enables or disables debug mode. When enabled, use of a
// destroyed puppet or disposed node panics, and per-frame timings are logged
// at debug level.
func (s *Scene) SetDebugMode(enabled bool) {
	s.debug = enabled
	globalDebug = enabled
}

// globalDebug mirrors the most recently set Scene debug flag so that node
// and puppet operations, which lack a Scene pointer, can check it cheaply.
var globalDebug bool
