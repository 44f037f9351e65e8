package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "puppetview",
	Short: "puppetview displays and inspects puppet models",
	Long:  `puppetview opens a stage of puppets described by a YAML file, or inspects a model's expressions headlessly.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error); overrides the stage config")
}
