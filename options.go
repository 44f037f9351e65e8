package puppet

import (
	"io"
	"log/slog"
	"math/rand/v2"
)

const defaultFetchLimit = 4

type options struct {
	logger     *slog.Logger
	rng        *rand.Rand
	fetchLimit int
	name       string
}

// Option configures a store, controller, puppet or scene. Each constructor
// reads only the options that apply to it.
type Option func(*options)

// WithLogger sets the structured logger used as the diagnostic sink.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithRand sets the random source used by SetRandomExpression.
func WithRand(r *rand.Rand) Option {
	return func(o *options) {
		o.rng = r
	}
}

// WithFetchLimit caps the number of expression fetches in flight per store.
func WithFetchLimit(n int) Option {
	return func(o *options) {
		o.fetchLimit = n
	}
}

// WithName overrides the name a puppet takes from its model settings.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if o.fetchLimit <= 0 {
		o.fetchLimit = defaultFetchLimit
	}
	if o.rng == nil {
		o.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return o
}
