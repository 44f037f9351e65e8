package puppet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"time"

	"golang.org/x/sync/errgroup"
)

// defaultExpressionFade is used when an expression file omits its fade times.
const defaultExpressionFade = time.Second

// BlendOp selects how a parameter value combines with the model's base value.
type BlendOp uint8

const (
	BlendAdd      BlendOp = iota // base + value*weight
	BlendMultiply                // base * (1 + (value-1)*weight)
	BlendSet                     // base*(1-weight) + value*weight
)

// Parameter is one parameter delta of an expression.
type Parameter struct {
	ID    string
	Value float64
	Blend BlendOp
}

// ExpressionDefinition names an expression file declared in model settings.
type ExpressionDefinition struct {
	Name string `json:"name"`
	File string `json:"file"`
}

// Expression is a loaded, immutable set of parameter deltas.
type Expression struct {
	Name    string
	FadeIn  time.Duration
	FadeOut time.Duration
	Params  []Parameter
}

type expressionFile struct {
	Type    string  `json:"type"`
	FadeIn  float64 `json:"fade_in"`
	FadeOut float64 `json:"fade_out"`
	Params  []struct {
		ID   string   `json:"id"`
		Val  float64  `json:"val"`
		Def  *float64 `json:"def"`
		Calc string   `json:"calc"`
	} `json:"params"`
}

// ParseExpression decodes an expression JSON document. Fade times are in
// milliseconds; "add" params store val-def, "mult" params store val/def.
func ParseExpression(name string, data []byte) (*Expression, error) {
	var f expressionFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse expression %q: %w", name, err)
	}

	e := &Expression{
		Name:    name,
		FadeIn:  fadeDuration(f.FadeIn),
		FadeOut: fadeDuration(f.FadeOut),
		Params:  make([]Parameter, 0, len(f.Params)),
	}
	for i, p := range f.Params {
		if p.ID == "" {
			return nil, fmt.Errorf("parse expression %q: param %d has no id", name, i)
		}
		param := Parameter{ID: p.ID}
		switch p.Calc {
		case "", "add":
			def := 0.0
			if p.Def != nil {
				def = *p.Def
			}
			param.Blend = BlendAdd
			param.Value = p.Val - def
		case "mult":
			def := 1.0
			if p.Def != nil && *p.Def != 0 {
				def = *p.Def
			}
			param.Blend = BlendMultiply
			param.Value = p.Val / def
		case "set":
			param.Blend = BlendSet
			param.Value = p.Val
		default:
			return nil, fmt.Errorf("parse expression %q: param %q: unknown calc %q", name, p.ID, p.Calc)
		}
		e.Params = append(e.Params, param)
	}
	return e, nil
}

func fadeDuration(ms float64) time.Duration {
	if ms <= 0 {
		return defaultExpressionFade
	}
	return time.Duration(ms * float64(time.Millisecond))
}

// ExpressionFetcher loads one expression definition. Implementations may be
// called concurrently and should honor ctx.
type ExpressionFetcher interface {
	FetchExpression(ctx context.Context, def ExpressionDefinition) (*Expression, error)
}

// FSFetcher reads expression files from a file system, relative to Dir.
type FSFetcher struct {
	FS  fs.FS
	Dir string
}

// FetchExpression implements ExpressionFetcher.
func (f FSFetcher) FetchExpression(ctx context.Context, def ExpressionDefinition) (*Expression, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := fs.ReadFile(f.FS, path.Join(f.Dir, def.File))
	if err != nil {
		return nil, err
	}
	return ParseExpression(def.Name, data)
}

var errNoFetcher = errors.New("no expression fetcher configured")

type fetchResult struct {
	def  ExpressionDefinition
	expr *Expression
	err  error
}

type fetchBatch struct {
	results   chan fetchResult
	remaining int
}

// ExpressionStore holds the expressions of one model. Fetches run
// concurrently; their results are appended on the frame loop by Poll or
// Wait, in completion order. After Close, late results are discarded.
//
// Apart from Load, which may be called before the store is handed to the
// frame loop, all methods must be called from the frame loop.
type ExpressionStore struct {
	name        string
	fetcher     ExpressionFetcher
	fetchLimit  int
	log         *slog.Logger
	ctx         context.Context
	cancel      context.CancelFunc
	batches     []*fetchBatch
	expressions []*Expression
	failures    int
	closed      bool
}

// NewExpressionStore creates an empty store for the named model.
func NewExpressionStore(name string, fetcher ExpressionFetcher, opts ...Option) *ExpressionStore {
	o := buildOptions(opts)
	ctx, cancel := context.WithCancel(context.Background())
	return &ExpressionStore{
		name:       name,
		fetcher:    fetcher,
		fetchLimit: o.fetchLimit,
		log:        o.logger.With("tag", fmt.Sprintf("ExpressionStore(%s)", name)),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Load issues one independent fetch per definition and returns immediately.
func (s *ExpressionStore) Load(defs []ExpressionDefinition) {
	if s.closed || len(defs) == 0 {
		return
	}
	b := &fetchBatch{results: make(chan fetchResult, len(defs)), remaining: len(defs)}
	s.batches = append(s.batches, b)

	fetcher, ctx, results := s.fetcher, s.ctx, b.results
	var g errgroup.Group
	g.SetLimit(s.fetchLimit)
	for _, def := range defs {
		s.log.Debug("loading expression", "expression", def.Name, "file", def.File)
	}
	go func() {
		for _, def := range defs {
			g.Go(func() error {
				if fetcher == nil {
					results <- fetchResult{def: def, err: errNoFetcher}
					return nil
				}
				expr, err := fetcher.FetchExpression(ctx, def)
				results <- fetchResult{def: def, expr: expr, err: err}
				return nil
			})
		}
		_ = g.Wait()
	}()
}

// Poll appends every completed fetch without blocking and returns how many
// expressions were added.
func (s *ExpressionStore) Poll() int {
	added := 0
	for i := 0; i < len(s.batches); {
		b := s.batches[i]
	drain:
		for b.remaining > 0 {
			select {
			case r := <-b.results:
				b.remaining--
				if s.accept(r) {
					added++
				}
			default:
				break drain
			}
		}
		if b.remaining == 0 {
			s.batches = append(s.batches[:i], s.batches[i+1:]...)
			continue
		}
		i++
	}
	return added
}

// Wait blocks until every in-flight fetch has been appended or ctx is done.
func (s *ExpressionStore) Wait(ctx context.Context) error {
	for len(s.batches) > 0 {
		b := s.batches[0]
		for b.remaining > 0 {
			select {
			case r := <-b.results:
				b.remaining--
				s.accept(r)
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		s.batches = s.batches[1:]
	}
	return nil
}

func (s *ExpressionStore) accept(r fetchResult) bool {
	if s.closed {
		return false
	}
	if r.err == nil && r.expr == nil {
		r.err = errors.New("fetcher returned no expression")
	}
	if r.err != nil {
		s.failures++
		s.log.Error("failed to load expression", "expression", r.def.Name, "file", r.def.File, "err", r.err)
		return false
	}
	if r.expr.Name == "" {
		r.expr.Name = r.def.Name
	}
	for i, e := range s.expressions {
		if e.Name == r.expr.Name {
			s.expressions[i] = r.expr
			return false
		}
	}
	s.expressions = append(s.expressions, r.expr)
	return true
}

// List returns a snapshot of the loaded expressions. It may be shorter than
// the declared definitions while fetches are in flight or after failures.
func (s *ExpressionStore) List() []*Expression {
	out := make([]*Expression, len(s.expressions))
	copy(out, s.expressions)
	return out
}

// Len returns the number of loaded expressions.
func (s *ExpressionStore) Len() int {
	return len(s.expressions)
}

// Lookup returns the loaded expression with the given name.
func (s *ExpressionStore) Lookup(name string) (*Expression, bool) {
	for _, e := range s.expressions {
		if e.Name == name {
			return e, true
		}
	}
	return nil, false
}

// Pending returns the number of fetches not yet appended.
func (s *ExpressionStore) Pending() int {
	n := 0
	for _, b := range s.batches {
		n += b.remaining
	}
	return n
}

// Failures returns the number of fetches that failed.
func (s *ExpressionStore) Failures() int {
	return s.failures
}

// Close tears the store down. In-flight fetches are cancelled and any
// result that still arrives is dropped.
func (s *ExpressionStore) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.cancel()
	s.batches = nil
}

// Closed reports whether Close has been called.
func (s *ExpressionStore) Closed() bool {
	return s.closed
}
