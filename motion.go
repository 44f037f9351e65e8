package puppet

import (
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// ParameterTarget receives blended parameter deltas. A call replaces
// whatever the previous call applied; nil params clear it.
type ParameterTarget interface {
	ApplyParameters(params []Parameter, weight float64)
}

// Motion is anything the scheduler can play.
type Motion interface {
	Update(dt float32)
	Finished() bool
	Apply(target ParameterTarget)
}

// ExpressionMotion plays an expression, fading its weight from 0 to 1 over
// the expression's FadeIn.
type ExpressionMotion struct {
	expr   *Expression
	fade   *gween.Tween
	weight float64
	done   bool
}

// NewExpressionMotion creates a motion for e.
func NewExpressionMotion(e *Expression) *ExpressionMotion {
	m := &ExpressionMotion{expr: e}
	if e.FadeIn > 0 {
		m.fade = gween.New(0, 1, float32(e.FadeIn.Seconds()), ease.InOutSine)
	}
	return m
}

// Expression returns the expression being played.
func (m *ExpressionMotion) Expression() *Expression {
	return m.expr
}

// Weight returns the current blend weight in [0, 1].
func (m *ExpressionMotion) Weight() float64 {
	return m.weight
}

// Update advances the fade by dt seconds.
func (m *ExpressionMotion) Update(dt float32) {
	if m.done {
		return
	}
	if m.fade == nil {
		m.weight = 1
		m.done = true
		return
	}
	v, finished := m.fade.Update(dt)
	m.weight = float64(v)
	if finished {
		m.weight = 1
		m.done = true
	}
}

// Finished reports whether the fade has completed.
func (m *ExpressionMotion) Finished() bool {
	return m.done
}

// Apply writes the expression's params at the current weight.
func (m *ExpressionMotion) Apply(target ParameterTarget) {
	target.ApplyParameters(m.expr.Params, m.weight)
}

// MotionState is the scheduler state of one puppet. Active is never nil.
type MotionState struct {
	Active   Motion
	Finished bool
}

// MotionScheduler plays at most one motion at a time. Starting a motion
// preempts the current one; it is not queued.
type MotionScheduler struct {
	target  ParameterTarget
	active  Motion
	playing bool
}

// NewMotionScheduler creates an idle scheduler. idle is reported as the
// active motion until the first Start.
func NewMotionScheduler(target ParameterTarget, idle Motion) *MotionScheduler {
	return &MotionScheduler{target: target, active: idle}
}

// Start makes m the sole active motion. The previous motion's influence on
// the target is discarded immediately. A nil m is ignored.
func (s *MotionScheduler) Start(m Motion) {
	if m == nil {
		return
	}
	s.active = m
	s.playing = true
	if s.target != nil {
		s.target.ApplyParameters(nil, 0)
	}
}

// Update advances the active motion and writes its blended params to the
// target. It returns false when idle. Once the motion finishes the
// scheduler goes idle; the last params written stay on the target.
func (s *MotionScheduler) Update(dt float32) bool {
	if !s.playing {
		return false
	}
	s.active.Update(dt)
	if s.target != nil {
		s.active.Apply(s.target)
	}
	if s.active.Finished() {
		s.playing = false
	}
	return true
}

// Active returns the active motion.
func (s *MotionScheduler) Active() Motion {
	return s.active
}

// Finished reports whether the scheduler is idle.
func (s *MotionScheduler) Finished() bool {
	return !s.playing
}

// State returns a copy of the scheduler state.
func (s *MotionScheduler) State() MotionState {
	return MotionState{Active: s.active, Finished: !s.playing}
}
