package mcpsurface

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseKeyColumns(t *testing.T) {
	cols, err := parseKeyColumns(" 1,3 ,4")
	assert.NoError(t, err)
	assert.Equal(t, []uint32{1, 3, 4}, cols)
}

func TestParseKeyColumnsRejectsEmpty(t *testing.T) {
	_, err := parseKeyColumns("")
	assert.Error(t, err)
}

func TestPresetConfig(t *testing.T) {
	cfg, err := presetConfig("fastest")
	assert.NoError(t, err)
	assert.False(t, cfg.EnableFuzzyMoves)

	_, err = presetConfig("bogus")
	assert.Error(t, err)
}
