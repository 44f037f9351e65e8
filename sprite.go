package puppet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hajimehoshi/ebiten/v2"
)

// ErrPuppetDestroyed is returned by Update, Render and Hit after Destroy.
var ErrPuppetDestroyed = errors.New("puppet destroyed")

// Puppet is one animated model in the scene: its model, its expression
// state and the transform that maps its node into model space.
type Puppet struct {
	name        string
	node        *Node
	model       Model
	expressions *ExpressionController
	transform   SpriteTransform
	handlers    handlerRegistry
	log         *slog.Logger

	intrinsicW, intrinsicH float64
	width, height          float64

	frames    int
	destroyed bool
}

// CreatePuppet loads a model through loader and builds a puppet from it.
// The puppet is returned only once the model has loaded; expressions keep
// loading in the background.
func CreatePuppet(ctx context.Context, loader ModelLoader, ref string, opts ...Option) (*Puppet, error) {
	asset, err := loadAsset(ctx, loader, ref)
	if err != nil {
		return nil, err
	}
	return NewPuppet(asset, opts...), nil
}

// loadAsset runs the loader and checks its result. It creates no scene
// nodes, so it is safe off the frame loop.
func loadAsset(ctx context.Context, loader ModelLoader, ref string) (*ModelAsset, error) {
	asset, err := loader.LoadModel(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("load puppet %q: %w", ref, err)
	}
	if asset == nil || asset.Model == nil {
		return nil, fmt.Errorf("load puppet %q: loader returned no model", ref)
	}
	if asset.Name == "" {
		asset.Name = ref
	}
	return asset, nil
}

// NewPuppet builds a puppet around a loaded asset and starts loading its
// expressions.
func NewPuppet(asset *ModelAsset, opts ...Option) *Puppet {
	o := buildOptions(opts)
	name := asset.Name
	if o.name != "" {
		name = o.name
	}

	store := NewExpressionStore(name, asset.Fetcher, opts...)
	p := &Puppet{
		name:        name,
		model:       asset.Model,
		expressions: NewExpressionController(name, store, asset.Model, opts...),
		log:         o.logger.With("tag", fmt.Sprintf("Puppet(%s)", name)),
		intrinsicW:  asset.Model.Width(),
		intrinsicH:  asset.Model.Height(),
	}
	p.width, p.height = p.intrinsicW, p.intrinsicH
	p.node = newPuppetNode(name, p)
	p.transform.World = IdentityAffine
	p.transform.Model = IdentityMat4

	store.Load(asset.Expressions)
	return p
}

// Name returns the puppet name.
func (p *Puppet) Name() string {
	return p.name
}

// Node returns the scene node the puppet renders through. Position, rotate
// and parent it like any other node.
func (p *Puppet) Node() *Node {
	return p.node
}

// Model returns the underlying model.
func (p *Puppet) Model() Model {
	return p.model
}

// Expressions returns the expression controller.
func (p *Puppet) Expressions() *ExpressionController {
	return p.expressions
}

// Transform returns the transform computed by the last Render.
func (p *Puppet) Transform() SpriteTransform {
	return p.transform
}

// --- Bounds ---

// Width returns the last requested display width.
func (p *Puppet) Width() float64 { return p.width }

// Height returns the last requested display height.
func (p *Puppet) Height() float64 { return p.height }

// Bounds returns the requested display size.
func (p *Puppet) Bounds() SpriteBounds {
	return SpriteBounds{Width: p.width, Height: p.height}
}

// SetWidth scales the node so the model displays value units wide. A
// non-positive value restores the intrinsic width.
func (p *Puppet) SetWidth(value float64) {
	p.node.ScaleX = boundsScale(value, p.intrinsicW)
	p.node.MarkDirty()
	p.width = value
}

// SetHeight is SetWidth for the vertical axis.
func (p *Puppet) SetHeight(value float64) {
	p.node.ScaleY = boundsScale(value, p.intrinsicH)
	p.node.MarkDirty()
	p.height = value
}

// Resize sets both display dimensions.
func (p *Puppet) Resize(width, height float64) {
	p.SetWidth(width)
	p.SetHeight(height)
}

// --- Frame ---

// Update advances the expression state by dt seconds. It must run before
// Render in the same frame.
func (p *Puppet) Update(dt float32) error {
	if p.destroyed {
		return p.useAfterDestroy("Update")
	}
	p.expressions.Update(dt)
	p.frames++
	return nil
}

// Render recomputes the model matrix from the node's world transform and
// the surface, then draws the model.
func (p *Puppet) Render(dst *ebiten.Image, surface Surface) error {
	if p.destroyed {
		return p.useAfterDestroy("Render")
	}
	p.transform.Update(p.node.currentWorld(), surface, p.model.LogicalWidth(), p.model.LogicalHeight())
	p.model.Draw(dst, DrawParams{
		Model:      p.transform.Model,
		Projection: surface.Projection(),
		Alpha:      p.node.worldAlpha,
	})
	return nil
}

// Hit maps a world-space point into model space, queries the model's hit
// areas and notifies OnHit callbacks once per area. It returns the areas hit.
func (p *Puppet) Hit(wx, wy float64) ([]string, error) {
	if p.destroyed {
		return nil, p.useAfterDestroy("Hit")
	}
	areas, lx, ly := p.hitAreas(wx, wy)
	p.emitHits(areas, wx, wy, lx, ly)
	return areas, nil
}

func (p *Puppet) hitAreas(wx, wy float64) (areas []string, lx, ly float64) {
	nx, ny := p.node.currentWorld().Translation()
	lx, ly = ToModelSpace(wx, wy, nx, ny, p.node.ScaleX, p.node.ScaleY)
	return p.model.HitTest(lx, ly), lx, ly
}

func (p *Puppet) emitHits(areas []string, wx, wy, lx, ly float64) {
	for _, area := range areas {
		ctx := HitContext{Puppet: p, Area: area, GlobalX: wx, GlobalY: wy, LocalX: lx, LocalY: ly}
		for _, h := range p.handlers.hit {
			h.fn(ctx)
		}
	}
}

// OnHit registers a callback fired once per hit area on each Hit.
func (p *Puppet) OnHit(fn func(HitContext)) CallbackHandle {
	return p.handlers.addHit(fn)
}

// --- Lifecycle ---

// Destroy releases the model, stops expression loading and disposes the
// node. Update, Render and Hit fail afterward.
func (p *Puppet) Destroy() {
	p.node.Dispose()
	p.release()
}

// Destroyed reports whether Destroy has been called.
func (p *Puppet) Destroyed() bool {
	return p.destroyed
}

// release tears down everything but the node. Called from node disposal.
func (p *Puppet) release() {
	if p.destroyed {
		return
	}
	p.destroyed = true
	p.expressions.Store().Close()
	p.model.Release()
	p.handlers = handlerRegistry{}
	p.log.Debug("destroyed", "frames", p.frames)
}

func (p *Puppet) useAfterDestroy(op string) error {
	if globalDebug {
		debugCheckDestroyed(p, op)
	}
	return fmt.Errorf("%s %q: %w", op, p.name, ErrPuppetDestroyed)
}
