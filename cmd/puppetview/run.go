package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/phanxgames/puppet"
	"github.com/phanxgames/puppet/internal/logging"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Open a window showing the puppets of a stage",
	Long:  `Loads every puppet listed in the stage config, places it, and runs the scene until the window closes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		cfg, err := LoadStageConfig(path)
		if err != nil {
			return err
		}
		if debug, _ := cmd.Flags().GetBool("debug"); debug {
			cfg.Debug = true
		}
		logger, err := newLogger(cmd, cfg.LogLevel)
		if err != nil {
			return err
		}
		scene, err := buildStage(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		return puppet.Run(scene, puppet.RunConfig{
			Title:     cfg.Title,
			Width:     cfg.Width,
			Height:    cfg.Height,
			Resizable: cfg.Resizable,
		})
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("config", "c", "stage.yaml", "Stage config file")
	runCmd.Flags().Bool("debug", false, "Enable debug checks and frame timing logs")
}

func newLogger(cmd *cobra.Command, configLevel string) (*slog.Logger, error) {
	name := configLevel
	if cmd.Flags().Changed("log-level") {
		name, _ = cmd.Flags().GetString("log-level")
	}
	level, err := logging.ParseLevel(name)
	if err != nil {
		return nil, err
	}
	return logging.New(level), nil
}

// buildStage creates the scene and starts a background load for every
// configured puppet. Puppets appear once their model has loaded.
func buildStage(ctx context.Context, cfg *StageConfig, logger *slog.Logger) (*puppet.Scene, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	scene := puppet.NewScene(puppet.WithLogger(logger))
	scene.SetDebugMode(cfg.Debug)

	if cfg.Script != "" {
		data, err := os.ReadFile(cfg.Script)
		if err != nil {
			return nil, fmt.Errorf("failed to read script: %w", err)
		}
		runner, err := puppet.LoadScript(data)
		if err != nil {
			return nil, err
		}
		scene.SetScript(runner)
	}

	requests := &expressionRequests{log: logger}
	scene.SetUpdateFunc(requests.update)

	loader := puppet.FSLoader{FS: os.DirFS(cfg.Root)}
	for _, pc := range cfg.Puppets {
		placeOnReady := func(p *puppet.Puppet, err error) {
			if err != nil {
				return
			}
			placePuppet(p, pc, requests, logger)
		}
		var opts []puppet.Option
		if pc.Name != "" {
			opts = append(opts, puppet.WithName(pc.Name))
		}
		scene.LoadPuppet(ctx, loader, pc.Ref, nil, placeOnReady, opts...)
	}
	return scene, nil
}

func placePuppet(p *puppet.Puppet, pc PuppetConfig, requests *expressionRequests, logger *slog.Logger) {
	n := p.Node()
	n.SetPosition(pc.X, pc.Y)
	n.SetZIndex(pc.ZIndex)
	p.Resize(pc.Width, pc.Height)
	p.OnHit(func(h puppet.HitContext) {
		logger.Info("hit", "puppet", p.Name(), "area", h.Area)
		p.Expressions().SetRandomExpression()
	})
	if pc.Expression != "" {
		requests.add(p, pc.Expression)
	}
}

type expressionRequest struct {
	puppet *puppet.Puppet
	name   string
}

// expressionRequests holds configured expressions whose files may still be
// loading. Each frame it retries them until they play or their store has
// nothing left to fetch.
type expressionRequests struct {
	pending []expressionRequest
	log     *slog.Logger
}

func (r *expressionRequests) add(p *puppet.Puppet, name string) {
	r.pending = append(r.pending, expressionRequest{puppet: p, name: name})
	r.update()
}

func (r *expressionRequests) update() error {
	kept := r.pending[:0]
	for _, req := range r.pending {
		if req.puppet.Destroyed() {
			continue
		}
		store := req.puppet.Expressions().Store()
		store.Poll()
		if req.puppet.Expressions().Request(req.name) {
			continue
		}
		if store.Pending() == 0 {
			r.log.Warn("expression not found", "puppet", req.puppet.Name(), "expression", req.name)
			continue
		}
		kept = append(kept, req)
	}
	clear(r.pending[len(kept):])
	r.pending = kept
	return nil
}
