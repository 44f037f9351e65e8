package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/phanxgames/puppet"
	"github.com/spf13/cobra"
)

var expressionsCmd = &cobra.Command{
	Use:   "expressions <model.json>",
	Short: "List the expressions a model loads",
	Long:  `Loads a model headlessly, waits for its expression files, and prints each loaded expression with its fade times and parameter count.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		timeout, _ := cmd.Flags().GetDuration("timeout")
		logger, err := newLogger(cmd, "warn")
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		abs, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}
		loader := puppet.FSLoader{FS: os.DirFS(filepath.Dir(abs)), SkipTextures: true}
		p, err := puppet.CreatePuppet(ctx, loader, filepath.Base(abs), puppet.WithLogger(logger))
		if err != nil {
			return err
		}
		defer p.Destroy()

		store := p.Expressions().Store()
		if err := store.Wait(ctx); err != nil {
			return fmt.Errorf("waiting for expressions: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s: %d loaded, %d failed\n", p.Name(), store.Len(), store.Failures())
		for _, e := range store.List() {
			fmt.Fprintf(out, "  %-20s fade_in=%-8s fade_out=%-8s params=%d\n",
				e.Name, e.FadeIn, e.FadeOut, len(e.Params))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(expressionsCmd)

	expressionsCmd.Flags().Duration("timeout", 10*time.Second, "Give up waiting for expression files after this long")
}
