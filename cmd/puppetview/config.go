package main

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// PuppetConfig places one puppet on the stage.
type PuppetConfig struct {
	// Ref is the model settings path, relative to the stage root.
	Ref        string  `yaml:"ref"`
	Name       string  `yaml:"name"`
	X          float64 `yaml:"x"`
	Y          float64 `yaml:"y"`
	Width      float64 `yaml:"width"`
	Height     float64 `yaml:"height"`
	ZIndex     int     `yaml:"z"`
	Expression string  `yaml:"expression"`
}

// StageConfig is the structure of stage.yaml.
type StageConfig struct {
	Title     string         `yaml:"title"`
	Width     int            `yaml:"width"`
	Height    int            `yaml:"height"`
	Resizable bool           `yaml:"resizable"`
	Debug     bool           `yaml:"debug"`
	LogLevel  string         `yaml:"log_level"`
	Root      string         `yaml:"root"`
	Script    string         `yaml:"script"`
	Puppets   []PuppetConfig `yaml:"puppets"`
}

// LoadStageConfig reads a stage file. Root and Script resolve relative to
// the file's directory.
func LoadStageConfig(path string) (*StageConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read stage config: %w", err)
	}
	cfg, err := parseStageConfig(data)
	if err != nil {
		return nil, err
	}

	base := filepath.Dir(path)
	if !filepath.IsAbs(cfg.Root) {
		cfg.Root = filepath.Join(base, cfg.Root)
	}
	if cfg.Script != "" && !filepath.IsAbs(cfg.Script) {
		cfg.Script = filepath.Join(base, cfg.Script)
	}
	return cfg, nil
}

func parseStageConfig(data []byte) (*StageConfig, error) {
	cfg := StageConfig{
		Title:  "puppetview",
		Width:  1280,
		Height: 720,
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse stage config: %w", err)
	}
	if len(cfg.Puppets) == 0 {
		return nil, fmt.Errorf("stage config: no puppets")
	}
	for i, p := range cfg.Puppets {
		if p.Ref == "" {
			return nil, fmt.Errorf("stage config: puppet %d has no ref", i)
		}
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("stage config: invalid window size %dx%d", cfg.Width, cfg.Height)
	}
	return &cfg, nil
}
