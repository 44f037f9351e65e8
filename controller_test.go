package puppet

import (
	"log/slog"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// loadedStore returns a store with the named expressions already appended.
func loadedStore(t *testing.T, names ...string) *ExpressionStore {
	t.Helper()
	s := NewExpressionStore("test", exprFetcher{})
	var defs []ExpressionDefinition
	for _, n := range names {
		defs = append(defs, ExpressionDefinition{Name: n, File: n + ".json"})
	}
	s.Load(defs)
	waitStore(t, s)
	require.Equal(t, len(names), s.Len())
	return s
}

func newTestController(t *testing.T, target ParameterTarget, names ...string) *ExpressionController {
	t.Helper()
	return NewExpressionController("test", loadedStore(t, names...), target,
		WithRand(rand.New(rand.NewPCG(1, 2))))
}

func TestControllerStartsOnDefault(t *testing.T) {
	c := newTestController(t, &recordingTarget{}, "a", "b")
	assert.Same(t, c.Default(), c.Active())
	assert.Same(t, c.Default(), c.Current())
	assert.Empty(t, c.Default().Params)
	assert.True(t, c.Scheduler().Finished())
}

func TestSetRandomExpressionNeverRepeats(t *testing.T) {
	c := newTestController(t, &recordingTarget{}, "a", "b", "c")
	seen := map[string]int{}
	for i := 0; i < 1000; i++ {
		prev := c.Active()
		c.SetRandomExpression()
		got := c.Active()
		require.NotSame(t, prev, got, "trial %d repeated %q", i, got.Name)
		assert.Same(t, got, c.Current())
		seen[got.Name]++
	}
	assert.Len(t, seen, 3, "every expression should be picked")
}

func TestSetRandomExpressionTwoAlternates(t *testing.T) {
	c := newTestController(t, &recordingTarget{}, "a", "b")
	c.SetRandomExpression()
	first := c.Active()
	for i := 0; i < 50; i++ {
		c.SetRandomExpression()
		require.NotSame(t, first, c.Active())
		first = c.Active()
	}
}

func TestSetRandomExpressionSingle(t *testing.T) {
	c := newTestController(t, &recordingTarget{}, "only")
	only := c.Store().List()[0]

	for i := 0; i < 3; i++ {
		c.SetRandomExpression()
		assert.Same(t, only, c.Active())
		assert.False(t, c.Scheduler().Finished(), "the single expression is replayed")
		for !c.Scheduler().Finished() {
			c.Update(0.1)
		}
	}
}

func TestSetRandomExpressionNoneLoaded(t *testing.T) {
	target := &recordingTarget{}
	c := newTestController(t, target)
	c.SetRandomExpression()

	assert.Same(t, c.Default(), c.Active())
	assert.True(t, c.Scheduler().Finished())
	assert.Empty(t, target.calls)
}

func TestRestoreExpression(t *testing.T) {
	c := newTestController(t, &recordingTarget{}, "a", "b", "c")

	// Nothing set yet: restore plays the default.
	c.RestoreExpression()
	assert.Same(t, c.Default(), c.Active())

	a, _ := c.Store().Lookup("a")
	c.SetExpression(a)
	c.SetRandomExpression()
	last := c.Active()
	assert.Same(t, last, c.Current())

	c.RestoreExpression()
	assert.Same(t, last, c.Active())

	c.ResetExpression()
	assert.Same(t, c.Default(), c.Active())
	assert.Same(t, c.Default(), c.Current(), "reset selects the default")

	c.RestoreExpression()
	assert.Same(t, c.Default(), c.Active(), "restore after reset replays the default")
}

func TestResetCountsAsSelection(t *testing.T) {
	c := newTestController(t, &recordingTarget{}, "a", "b", "c")
	loaded := map[*Expression]bool{}
	for _, e := range c.Store().List() {
		loaded[e] = true
	}

	seen := map[string]int{}
	for i := 0; i < 300; i++ {
		c.SetRandomExpression()
		picked := c.Current()
		require.True(t, loaded[picked], "trial %d picked %q", i, picked.Name)
		assert.Same(t, picked, c.Active())

		c.ResetExpression()
		require.Same(t, c.Default(), c.Current())

		// With the default current, any loaded expression may come next,
		// including the one picked before the reset.
		c.SetRandomExpression()
		next := c.Current()
		require.True(t, loaded[next])
		require.NotSame(t, c.Default(), next)
		if next == picked {
			seen["repeat"]++
		}
		seen[next.Name]++
	}
	assert.Positive(t, seen["repeat"], "a reset clears the exclusion")
	for _, name := range []string{"a", "b", "c"} {
		assert.Positive(t, seen[name], name)
	}
}

func TestSetExpressionByName(t *testing.T) {
	c := newTestController(t, &recordingTarget{}, "a", "b")
	assert.True(t, c.SetExpressionByName("b"))
	assert.Equal(t, "b", c.Active().Name)
	assert.False(t, c.SetExpressionByName("missing"))
	assert.Equal(t, "b", c.Active().Name)
}

func TestSetExpressionNil(t *testing.T) {
	c := newTestController(t, &recordingTarget{}, "a")
	c.SetExpression(nil)
	assert.Same(t, c.Default(), c.Current())
}

func TestControllerRequest(t *testing.T) {
	c := newTestController(t, &recordingTarget{}, "a", "b")

	assert.True(t, c.Request("a"))
	assert.Equal(t, "a", c.Active().Name)

	assert.True(t, c.Request(ExpressionRandom))
	assert.Equal(t, "b", c.Active().Name)

	assert.True(t, c.Request(ExpressionRestore))
	assert.Equal(t, "b", c.Active().Name)

	assert.True(t, c.Request(ExpressionReset))
	assert.Same(t, c.Default(), c.Active())

	assert.True(t, c.Request(ExpressionRestore))
	assert.Same(t, c.Default(), c.Active())

	assert.False(t, c.Request("nope"))
}

func TestSetExpressionLogsTransition(t *testing.T) {
	log, rec := newRecordingLogger()
	c := NewExpressionController("haru", loadedStore(t, "a"), &recordingTarget{}, WithLogger(log))
	a, _ := c.Store().Lookup("a")
	c.SetExpression(a)
	assert.Equal(t, 1, rec.count(slog.LevelInfo, "setting expression"))
}

func TestControllerUpdateDrivesModel(t *testing.T) {
	model := NewStaticModel(StaticModelConfig{Width: 2, Height: 4, Params: map[string]float64{"PARAM_a": 0.25}})
	c := newTestController(t, model, "a")

	// Update is a no-op while idle.
	c.Update(0.1)
	assert.Equal(t, 0.25, model.Parameter("PARAM_a"))

	c.SetExpressionByName("a")
	for i := 0; i < 100 && !c.Scheduler().Finished(); i++ {
		c.Update(0.05)
	}
	require.True(t, c.Scheduler().Finished())
	assert.InDelta(t, 1.25, model.Parameter("PARAM_a"), 1e-9)

	// Reset discards the influence at once.
	c.ResetExpression()
	assert.Equal(t, 0.25, model.Parameter("PARAM_a"))
}

func TestControllerUpdatePollsStore(t *testing.T) {
	gates := map[string]chan struct{}{"exp/smile.json": make(chan struct{})}
	store := NewExpressionStore("haru", gatedFetcher{inner: FSFetcher{FS: expressionFS(), Dir: "haru"}, gates: gates})
	c := NewExpressionController("haru", store, &recordingTarget{})
	store.Load(expressionDefs()[:1])

	c.Update(0.016)
	assert.Equal(t, 0, store.Len())

	close(gates["exp/smile.json"])
	require.Eventually(t, func() bool {
		c.Update(0.016)
		return store.Len() == 1
	}, 5*time.Second, time.Millisecond)
}
