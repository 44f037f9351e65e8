package puppet

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	_ "image/png" // model textures
	"io/fs"
	"path"

	"github.com/hajimehoshi/ebiten/v2"
)

// DrawParams is what a model receives for one draw.
type DrawParams struct {
	// Model maps node-local units to model logical units.
	Model Mat4
	// Projection maps the logical world to clip space.
	Projection Mat4
	Alpha      float64
}

// Model is a loaded, deformable puppet. The deformation engine behind it is
// opaque to this package.
type Model interface {
	ParameterTarget
	// Width and Height are the intrinsic display size.
	Width() float64
	Height() float64
	// LogicalWidth and LogicalHeight are the model canvas in logical units.
	LogicalWidth() float64
	LogicalHeight() float64
	// HitTest returns the names of the hit areas containing the model-local
	// point (x, y).
	HitTest(x, y float64) []string
	Draw(dst *ebiten.Image, params DrawParams)
	Release()
}

// ModelAsset is a loaded model with the expression definitions declared in
// its settings.
type ModelAsset struct {
	Name        string
	Model       Model
	Expressions []ExpressionDefinition
	// Fetcher loads Expressions. Nil means every expression load fails.
	Fetcher ExpressionFetcher
}

// ModelLoader loads a model by reference. Implementations may block.
type ModelLoader interface {
	LoadModel(ctx context.Context, ref string) (*ModelAsset, error)
}

// HitArea is a named region in model-local units.
type HitArea struct {
	Name  string
	Shape HitShape
}

// StaticModelConfig configures a StaticModel.
type StaticModelConfig struct {
	// Image is drawn stretched over the intrinsic size. May be nil.
	Image                       *ebiten.Image
	Width, Height               float64
	LogicalWidth, LogicalHeight float64
	HitAreas                    []HitArea
	// Params holds base parameter values.
	Params map[string]float64
}

// StaticModel is a model without mesh deformation: it draws one image and
// keeps parameter values so expressions can be observed and queried.
type StaticModel struct {
	cfg      StaticModelConfig
	base     map[string]float64
	overlay  []Parameter
	weight   float64
	released bool
}

// NewStaticModel creates a StaticModel. Zero logical sizes default to a
// logical width of 2 with the height following the intrinsic aspect ratio.
func NewStaticModel(cfg StaticModelConfig) *StaticModel {
	if cfg.LogicalWidth <= 0 {
		cfg.LogicalWidth = 2
	}
	if cfg.LogicalHeight <= 0 {
		cfg.LogicalHeight = cfg.LogicalWidth
		if cfg.Width > 0 {
			cfg.LogicalHeight = cfg.LogicalWidth * cfg.Height / cfg.Width
		}
	}
	base := make(map[string]float64, len(cfg.Params))
	for k, v := range cfg.Params {
		base[k] = v
	}
	return &StaticModel{cfg: cfg, base: base}
}

func (m *StaticModel) Width() float64         { return m.cfg.Width }
func (m *StaticModel) Height() float64        { return m.cfg.Height }
func (m *StaticModel) LogicalWidth() float64  { return m.cfg.LogicalWidth }
func (m *StaticModel) LogicalHeight() float64 { return m.cfg.LogicalHeight }

// ApplyParameters replaces the expression overlay.
func (m *StaticModel) ApplyParameters(params []Parameter, weight float64) {
	m.overlay = append(m.overlay[:0], params...)
	m.weight = weight
}

// Parameter returns the effective value of id: its base value with the
// overlay blended in.
func (m *StaticModel) Parameter(id string) float64 {
	v := m.base[id]
	for _, p := range m.overlay {
		if p.ID != id {
			continue
		}
		switch p.Blend {
		case BlendAdd:
			v += p.Value * m.weight
		case BlendMultiply:
			v *= 1 + (p.Value-1)*m.weight
		case BlendSet:
			v = v*(1-m.weight) + p.Value*m.weight
		}
	}
	return v
}

// SetParameter sets the base value of id.
func (m *StaticModel) SetParameter(id string, v float64) {
	m.base[id] = v
}

// HitTest implements Model.
func (m *StaticModel) HitTest(x, y float64) []string {
	var names []string
	for _, a := range m.cfg.HitAreas {
		if a.Shape != nil && a.Shape.Contains(x, y) {
			names = append(names, a.Name)
		}
	}
	return names
}

// Draw maps the image through the model matrix back to device pixels.
func (m *StaticModel) Draw(dst *ebiten.Image, params DrawParams) {
	img := m.cfg.Image
	if m.released || img == nil || dst == nil {
		return
	}
	b := dst.Bounds()
	sx, sy := ComputeScaleRatios(float64(b.Dx()), float64(b.Dy()), m.cfg.LogicalWidth, m.cfg.LogicalHeight)

	ib := img.Bounds()
	var op ebiten.DrawImageOptions
	// image pixels -> intrinsic units
	op.GeoM.Scale(m.cfg.Width/float64(ib.Dx()), m.cfg.Height/float64(ib.Dy()))
	// intrinsic units -> device pixels
	op.GeoM.Concat(worldGeoM(params.Model, sx, sy))
	op.GeoM.Translate(float64(b.Min.X), float64(b.Min.Y))
	op.ColorScale.ScaleAlpha(float32(params.Alpha))
	op.Filter = ebiten.FilterLinear
	dst.DrawImage(img, &op)
}

// worldGeoM recovers the device-pixel world affine from a model matrix built
// by ComputeModelMatrix with the scale ratios sx and sy.
func worldGeoM(mm Mat4, sx, sy float64) ebiten.GeoM {
	var g ebiten.GeoM
	g.SetElement(0, 0, float64(mm.At(0, 0))/sx)
	g.SetElement(1, 0, float64(mm.At(0, 1))/sx)
	g.SetElement(0, 1, float64(mm.At(1, 0))/sy)
	g.SetElement(1, 1, float64(mm.At(1, 1))/sy)
	g.SetElement(0, 2, float64(mm.At(0, 3))/sx)
	g.SetElement(1, 2, float64(mm.At(1, 3))/sy)
	return g
}

// Release frees the model image. The model must not be drawn afterward.
func (m *StaticModel) Release() {
	if m.released {
		return
	}
	m.released = true
	if m.cfg.Image != nil {
		m.cfg.Image.Deallocate()
		m.cfg.Image = nil
	}
}

// Released reports whether Release has been called.
func (m *StaticModel) Released() bool {
	return m.released
}

// --- Model settings ---

// ModelSettings is the subset of a model settings file this package reads.
type ModelSettings struct {
	Name     string   `json:"name"`
	Model    string   `json:"model"`
	Textures []string `json:"textures"`
	Layout   struct {
		Width  float64 `json:"width"`
		Height float64 `json:"height"`
	} `json:"layout"`
	// Size is the intrinsic size; defaults to the first texture's size.
	Size        [2]float64             `json:"size"`
	Expressions []ExpressionDefinition `json:"expressions"`
	HitAreas    []struct {
		Name string `json:"name"`
		ID   string `json:"id"`
		// Bounds is x, y, width, height in model-local units.
		Bounds [4]float64 `json:"bounds"`
	} `json:"hit_areas"`
}

// ParseModelSettings decodes a model settings JSON document.
func ParseModelSettings(data []byte) (*ModelSettings, error) {
	var s ModelSettings
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse model settings: %w", err)
	}
	for i, d := range s.Expressions {
		if d.File == "" {
			return nil, fmt.Errorf("parse model settings: expression %d (%q) has no file", i, d.Name)
		}
	}
	return &s, nil
}

// FSLoader loads StaticModels from model settings files in a file system.
type FSLoader struct {
	FS fs.FS
	// SkipTextures leaves models without an image, for headless use.
	SkipTextures bool
}

// LoadModel implements ModelLoader. ref is the settings file path; textures
// and expression files resolve relative to its directory.
func (l FSLoader) LoadModel(ctx context.Context, ref string) (*ModelAsset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := fs.ReadFile(l.FS, ref)
	if err != nil {
		return nil, err
	}
	settings, err := ParseModelSettings(data)
	if err != nil {
		return nil, err
	}
	dir := path.Dir(ref)

	cfg := StaticModelConfig{
		Width:         settings.Size[0],
		Height:        settings.Size[1],
		LogicalWidth:  settings.Layout.Width,
		LogicalHeight: settings.Layout.Height,
	}
	if !l.SkipTextures && len(settings.Textures) > 0 {
		img, err := l.loadTexture(path.Join(dir, settings.Textures[0]))
		if err != nil {
			return nil, err
		}
		cfg.Image = img
		if cfg.Width <= 0 || cfg.Height <= 0 {
			b := img.Bounds()
			cfg.Width, cfg.Height = float64(b.Dx()), float64(b.Dy())
		}
	}
	for _, h := range settings.HitAreas {
		cfg.HitAreas = append(cfg.HitAreas, HitArea{
			Name:  h.Name,
			Shape: HitRect{X: h.Bounds[0], Y: h.Bounds[1], Width: h.Bounds[2], Height: h.Bounds[3]},
		})
	}

	name := settings.Name
	if name == "" {
		name = path.Base(dir)
	}
	return &ModelAsset{
		Name:        name,
		Model:       NewStaticModel(cfg),
		Expressions: settings.Expressions,
		Fetcher:     FSFetcher{FS: l.FS, Dir: dir},
	}, nil
}

func (l FSLoader) loadTexture(p string) (*ebiten.Image, error) {
	f, err := l.FS.Open(p)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode texture %s: %w", p, err)
	}
	return ebiten.NewImageFromImage(img), nil
}
