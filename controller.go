package puppet

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
)

// Request names understood by ExpressionController.Request. Any other name
// selects a loaded expression by name.
const (
	ExpressionRandom  = "random"
	ExpressionReset   = "reset"
	ExpressionRestore = "restore"
)

// ExpressionController turns expression requests into scheduler commands.
// It owns the "current" expression that RestoreExpression returns to.
type ExpressionController struct {
	store       *ExpressionStore
	scheduler   *MotionScheduler
	defaultExpr *Expression
	current     *Expression
	rng         *rand.Rand
	log         *slog.Logger
}

// NewExpressionController creates a controller over store, writing blended
// params into target. The scheduler starts idle on the default expression.
func NewExpressionController(name string, store *ExpressionStore, target ParameterTarget, opts ...Option) *ExpressionController {
	o := buildOptions(opts)
	def := &Expression{Name: "default"}
	return &ExpressionController{
		store:       store,
		scheduler:   NewMotionScheduler(target, NewExpressionMotion(def)),
		defaultExpr: def,
		current:     def,
		rng:         o.rng,
		log:         o.logger.With("tag", fmt.Sprintf("ExpressionController(%s)", name)),
	}
}

// Store returns the expression store.
func (c *ExpressionController) Store() *ExpressionStore {
	return c.store
}

// Scheduler returns the motion scheduler.
func (c *ExpressionController) Scheduler() *MotionScheduler {
	return c.scheduler
}

// Default returns the synthetic empty expression.
func (c *ExpressionController) Default() *Expression {
	return c.defaultExpr
}

// Current returns the expression RestoreExpression would play.
func (c *ExpressionController) Current() *Expression {
	return c.current
}

// Active returns the expression the scheduler is playing or last played.
func (c *ExpressionController) Active() *Expression {
	if m, ok := c.scheduler.Active().(interface{ Expression() *Expression }); ok {
		return m.Expression()
	}
	return c.defaultExpr
}

// ResetExpression plays the default expression and makes it current.
func (c *ExpressionController) ResetExpression() {
	c.log.Info("resetting expression")
	c.SetExpression(c.defaultExpr)
}

// RestoreExpression replays the current expression: the last one selected
// by SetExpression, SetRandomExpression or ResetExpression.
func (c *ExpressionController) RestoreExpression() {
	c.SetExpression(c.current)
}

// SetRandomExpression plays a uniformly chosen loaded expression other than
// the current one. With a single loaded expression that one is replayed; with
// none, nothing happens.
func (c *ExpressionController) SetRandomExpression() {
	if c.store == nil {
		return
	}
	list := c.store.List()
	switch len(list) {
	case 0:
		return
	case 1:
		c.SetExpression(list[0])
		return
	}

	skip := -1
	for i, e := range list {
		if e == c.current {
			skip = i
			break
		}
	}
	var pick int
	if skip < 0 {
		pick = c.rng.IntN(len(list))
	} else {
		pick = c.rng.IntN(len(list) - 1)
		if pick >= skip {
			pick++
		}
	}
	c.SetExpression(list[pick])
}

// SetExpression plays e and records it as current. Callers must pass a
// value obtained from the store's current List (or Default).
func (c *ExpressionController) SetExpression(e *Expression) {
	if e == nil {
		return
	}
	c.log.Info("setting expression", "name", e.Name)
	c.current = e
	c.scheduler.Start(NewExpressionMotion(e))
}

// SetExpressionByName plays the loaded expression with the given name and
// reports whether it was found.
func (c *ExpressionController) SetExpressionByName(name string) bool {
	if c.store == nil {
		return false
	}
	e, ok := c.store.Lookup(name)
	if !ok {
		return false
	}
	c.SetExpression(e)
	return true
}

// Request runs the operation a name stands for: ExpressionRandom,
// ExpressionReset, ExpressionRestore, or an expression name. It returns
// false only for an expression name that is not loaded.
func (c *ExpressionController) Request(name string) bool {
	switch name {
	case ExpressionRandom:
		c.SetRandomExpression()
	case ExpressionReset:
		c.ResetExpression()
	case ExpressionRestore:
		c.RestoreExpression()
	default:
		return c.SetExpressionByName(name)
	}
	return true
}

// Update appends finished loads and advances the scheduler if it is playing.
func (c *ExpressionController) Update(dt float32) {
	if c.store != nil {
		c.store.Poll()
	}
	if c.scheduler.Finished() {
		return
	}
	c.scheduler.Update(dt)
}
