package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseKeyColumns(t *testing.T) {
	cols, err := parseKeyColumns("0, 2,5")
	assert.NoError(t, err)
	assert.Equal(t, []uint32{0, 2, 5}, cols)
}

func TestParseKeyColumnsEmptyErrors(t *testing.T) {
	_, err := parseKeyColumns("   ")
	assert.Error(t, err)
}

func TestParseKeyColumnsInvalidErrors(t *testing.T) {
	_, err := parseKeyColumns("0,abc")
	assert.Error(t, err)
}

func TestDiffCommandResolveConfigPresets(t *testing.T) {
	fastest := &diffCommand{Preset: "fastest"}
	cfg, err := fastest.resolveConfig()
	assert.NoError(t, err)
	assert.False(t, cfg.EnableFuzzyMoves)

	bad := &diffCommand{Preset: "nope"}
	_, err = bad.resolveConfig()
	assert.Error(t, err)
}

func TestDiffCommandResolveConfigDefaultPreset(t *testing.T) {
	c := &diffCommand{}
	cfg, err := c.resolveConfig()
	assert.NoError(t, err)
	assert.Equal(t, uint32(50000), cfg.MaxAlignRows)
}

func TestDiffCommandResolveConfigAppliesOverrides(t *testing.T) {
	c := &diffCommand{Preset: "balanced", Timeout: 5, MaxMemory: 64}
	cfg, err := c.resolveConfig()
	assert.NoError(t, err)
	assert.Equal(t, uint64(5), cfg.TimeoutSeconds)
	assert.Equal(t, uint64(64), cfg.MaxMemoryMB)
}
