package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleStage = `
title: Lobby
width: 800
height: 600
debug: true
log_level: debug
root: models
script: intro.json
puppets:
  - ref: haru/haru.model.json
    x: 200
    y: 120
    width: 300
    height: 450
    expression: random
  - ref: shizuku/shizuku.model.json
    name: guide
    z: 1
`

func TestParseStageConfig(t *testing.T) {
	cfg, err := parseStageConfig([]byte(sampleStage))
	require.NoError(t, err)

	assert.Equal(t, "Lobby", cfg.Title)
	assert.Equal(t, 800, cfg.Width)
	assert.Equal(t, 600, cfg.Height)
	assert.True(t, cfg.Debug)
	assert.Equal(t, "debug", cfg.LogLevel)
	require.Len(t, cfg.Puppets, 2)

	haru := cfg.Puppets[0]
	assert.Equal(t, "haru/haru.model.json", haru.Ref)
	assert.Equal(t, 200.0, haru.X)
	assert.Equal(t, 450.0, haru.Height)
	assert.Equal(t, "random", haru.Expression)

	assert.Equal(t, "guide", cfg.Puppets[1].Name)
	assert.Equal(t, 1, cfg.Puppets[1].ZIndex)
}

func TestParseStageConfigDefaults(t *testing.T) {
	cfg, err := parseStageConfig([]byte("puppets:\n  - ref: a.model.json\n"))
	require.NoError(t, err)
	assert.Equal(t, "puppetview", cfg.Title)
	assert.Equal(t, 1280, cfg.Width)
	assert.Equal(t, 720, cfg.Height)
}

func TestParseStageConfigErrors(t *testing.T) {
	tests := map[string]string{
		"no puppets":   "title: empty\n",
		"missing ref":  "puppets:\n  - x: 1\n",
		"bad size":     "width: -1\npuppets:\n  - ref: a\n",
		"invalid yaml": "puppets: [",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := parseStageConfig([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadStageConfigResolvesPaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stage.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleStage), 0o644))

	cfg, err := LoadStageConfig(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "models"), cfg.Root)
	assert.Equal(t, filepath.Join(dir, "intro.json"), cfg.Script)
}

func TestLoadStageConfigMissingFile(t *testing.T) {
	_, err := LoadStageConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
