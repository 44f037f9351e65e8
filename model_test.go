package puppet

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"math"
	"testing"
	"testing/fstest"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const haruSettings = `{
	"model": "haru.moc",
	"textures": ["haru.png"],
	"size": [1.6, 2.4],
	"layout": {"width": 2, "height": 3},
	"expressions": [
		{"name": "smile", "file": "exp/smile.json"},
		{"name": "angry", "file": "exp/angry.json"},
		{"name": "sad", "file": "exp/sad.json"}
	],
	"hit_areas": [
		{"name": "head", "id": "D_REF.HEAD", "bounds": [0, 0, 1.6, 0.8]},
		{"name": "body", "id": "D_REF.BODY", "bounds": [0, 0.8, 1.6, 1.6]}
	]
}`

func TestParseModelSettings(t *testing.T) {
	s, err := ParseModelSettings([]byte(haruSettings))
	require.NoError(t, err)

	assert.Equal(t, "haru.moc", s.Model)
	assert.Equal(t, []string{"haru.png"}, s.Textures)
	assert.Equal(t, [2]float64{1.6, 2.4}, s.Size)
	assert.Equal(t, 3.0, s.Layout.Height)
	require.Len(t, s.Expressions, 3)
	assert.Equal(t, ExpressionDefinition{Name: "angry", File: "exp/angry.json"}, s.Expressions[1])
	require.Len(t, s.HitAreas, 2)
	assert.Equal(t, "D_REF.BODY", s.HitAreas[1].ID)
}

func TestParseModelSettingsErrors(t *testing.T) {
	_, err := ParseModelSettings([]byte(`{"expressions":[{"name":"x"}]}`))
	assert.Error(t, err)

	_, err = ParseModelSettings([]byte(`not json`))
	assert.Error(t, err)
}

func TestStaticModelLogicalDefaults(t *testing.T) {
	m := NewStaticModel(StaticModelConfig{Width: 200, Height: 400})
	assert.Equal(t, 2.0, m.LogicalWidth())
	assert.Equal(t, 4.0, m.LogicalHeight())

	m = NewStaticModel(StaticModelConfig{Width: 200, Height: 400, LogicalWidth: 1, LogicalHeight: 1})
	assert.Equal(t, 1.0, m.LogicalWidth())
	assert.Equal(t, 1.0, m.LogicalHeight())
}

func TestStaticModelParameterBlend(t *testing.T) {
	m := NewStaticModel(StaticModelConfig{Params: map[string]float64{"P": 10}})

	tests := []struct {
		name   string
		param  Parameter
		weight float64
		want   float64
	}{
		{"add half", Parameter{ID: "P", Value: 5, Blend: BlendAdd}, 0.5, 12.5},
		{"mult full", Parameter{ID: "P", Value: 2, Blend: BlendMultiply}, 1, 20},
		{"mult none", Parameter{ID: "P", Value: 2, Blend: BlendMultiply}, 0, 10},
		{"set half", Parameter{ID: "P", Value: 3, Blend: BlendSet}, 0.5, 6.5},
		{"other id", Parameter{ID: "Q", Value: 3, Blend: BlendAdd}, 1, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m.ApplyParameters([]Parameter{tt.param}, tt.weight)
			assert.InDelta(t, tt.want, m.Parameter("P"), 1e-9)
		})
	}

	m.ApplyParameters(nil, 0)
	assert.Equal(t, 10.0, m.Parameter("P"))

	m.SetParameter("P", 1)
	assert.Equal(t, 1.0, m.Parameter("P"))
}

func TestStaticModelApplyReplaces(t *testing.T) {
	m := NewStaticModel(StaticModelConfig{})
	params := []Parameter{{ID: "P", Value: 1, Blend: BlendAdd}}
	m.ApplyParameters(params, 1)
	m.ApplyParameters(params, 1)
	assert.Equal(t, 1.0, m.Parameter("P"), "re-applying must not accumulate")
}

func TestStaticModelHitTest(t *testing.T) {
	m := testModel()
	assert.Equal(t, []string{"head"}, m.HitTest(0.1, 0.9))
	assert.Equal(t, []string{"body"}, m.HitTest(1.9, 3.9))
	assert.Empty(t, m.HitTest(3, 3))
}

func TestStaticModelRelease(t *testing.T) {
	img := ebiten.NewImage(4, 4)
	m := NewStaticModel(StaticModelConfig{Image: img, Width: 4, Height: 4})
	m.Release()
	m.Release()
	assert.True(t, m.Released())

	// Drawing a released model is a no-op.
	m.Draw(ebiten.NewImage(8, 8), DrawParams{Model: IdentityMat4, Alpha: 1})
}

func TestStaticModelDraw(t *testing.T) {
	img := ebiten.NewImage(4, 4)
	m := NewStaticModel(StaticModelConfig{Image: img, Width: 2, Height: 2})
	dst := ebiten.NewImage(100, 100)

	sx, sy := ComputeScaleRatios(100, 100, m.LogicalWidth(), m.LogicalHeight())
	m.Draw(dst, DrawParams{Model: ComputeModelMatrix(Affine{1, 0, 0, 1, 10, 10}, sx, sy), Alpha: 0.5})
}

func TestWorldGeoMRecoversRotatedWorld(t *testing.T) {
	n := NewContainer("n")
	n.Rotation = math.Pi / 2
	n.ScaleX, n.ScaleY = 2, 3
	n.SetPosition(40, 60)
	world := localTransform(n)

	sx, sy := ComputeScaleRatios(800, 600, 2, 2)
	g := worldGeoM(ComputeModelMatrix(world, sx, sy), sx, sy)

	for _, pt := range [][2]float64{{0, 0}, {1, 0}, {0, 1}, {-2.5, 4}} {
		wantX, wantY := world.Apply(pt[0], pt[1])
		gotX, gotY := g.Apply(pt[0], pt[1])
		assert.InDelta(t, wantX, gotX, 1e-3)
		assert.InDelta(t, wantY, gotY, 1e-3)
	}
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestFSLoaderSkipTextures(t *testing.T) {
	fsys := fstest.MapFS{"models/haru/haru.model.json": {Data: []byte(haruSettings)}}
	asset, err := FSLoader{FS: fsys, SkipTextures: true}.LoadModel(context.Background(), "models/haru/haru.model.json")
	require.NoError(t, err)

	assert.Equal(t, "haru", asset.Name)
	assert.Equal(t, 1.6, asset.Model.Width())
	assert.Equal(t, 2.4, asset.Model.Height())
	assert.Equal(t, 2.0, asset.Model.LogicalWidth())
	assert.Equal(t, 3.0, asset.Model.LogicalHeight())
	assert.Len(t, asset.Expressions, 3)
	assert.Equal(t, FSFetcher{FS: fsys, Dir: "models/haru"}, asset.Fetcher)
	assert.Equal(t, []string{"head"}, asset.Model.HitTest(0.5, 0.5))
	assert.Equal(t, []string{"body"}, asset.Model.HitTest(0.5, 1.5))
}

func TestFSLoaderTextureSize(t *testing.T) {
	fsys := fstest.MapFS{
		"epsilon/model.json": {Data: []byte(`{"name":"Epsilon","textures":["tex.png"]}`)},
		"epsilon/tex.png":    {Data: pngBytes(t, 8, 16)},
	}
	asset, err := FSLoader{FS: fsys}.LoadModel(context.Background(), "epsilon/model.json")
	require.NoError(t, err)
	defer asset.Model.Release()

	assert.Equal(t, "Epsilon", asset.Name)
	assert.Equal(t, 8.0, asset.Model.Width())
	assert.Equal(t, 16.0, asset.Model.Height())
	assert.Equal(t, 4.0, asset.Model.LogicalHeight())
}

func TestFSLoaderErrors(t *testing.T) {
	fsys := fstest.MapFS{
		"bad/model.json":   {Data: []byte(`{"textures":["missing.png"]}`)},
		"junk/model.json":  {Data: []byte(`{"textures":["tex.png"]}`)},
		"junk/tex.png":     {Data: []byte("not a png")},
		"empty/model.json": {Data: []byte(`{`)},
	}
	loader := FSLoader{FS: fsys}
	for _, ref := range []string{"none/model.json", "bad/model.json", "junk/model.json", "empty/model.json"} {
		_, err := loader.LoadModel(context.Background(), ref)
		assert.Error(t, err, ref)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := loader.LoadModel(ctx, "bad/model.json")
	assert.ErrorIs(t, err, context.Canceled)
}
