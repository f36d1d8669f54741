// Package config holds the tunables every diff stage reads: alignment
// size bounds, recursion depth, gap-strategy thresholds, and the three
// named presets. It follows the teacher's JSON-tagged nested-config
// idiom (Default/Load/LoadOrDefault/validate) adapted to a flat
// single-purpose config instead of a multi-subsystem server config.
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// LimitBehavior selects what happens when a stage's size bound is
// exceeded.
type LimitBehavior string

const (
	FallbackToPositional LimitBehavior = "fallback_to_positional"
	ReturnPartialResult  LimitBehavior = "return_partial_result"
	ReturnError          LimitBehavior = "return_error"
)

// DiffConfig is the full set of recognized options (spec.md §6).
type DiffConfig struct {
	MaxAlignRows      uint32 `json:"max_align_rows"`
	MaxAlignCols      uint32 `json:"max_align_cols"`
	MaxRecursionDepth uint32 `json:"max_recursion_depth"`

	SmallGapThreshold uint32 `json:"small_gap_threshold"`
	LowInfoThreshold  uint32 `json:"low_info_threshold"`
	MinMoveSize       uint32 `json:"min_move_size"`
	EnableFuzzyMoves  bool   `json:"enable_fuzzy_moves"`

	DenseRowReplaceRatio    float64 `json:"dense_row_replace_ratio"`
	DenseRowReplaceMinCols  uint32  `json:"dense_row_replace_min_cols"`
	DenseRectReplaceMinRows uint32  `json:"dense_rect_replace_min_rows"`

	TimeoutSeconds uint64 `json:"timeout_seconds,omitempty"`
	MaxMemoryMB    uint64 `json:"max_memory_mb,omitempty"`
	MaxOps         uint64 `json:"max_ops,omitempty"`

	OnLimitExceeded LimitBehavior `json:"on_limit_exceeded"`

	// CollectMetrics opts into per-stage timing/count instrumentation
	// (internal/metrics), attached to the run's DiffSummary. Off by
	// default since it costs a lock per phase/counter update.
	CollectMetrics bool `json:"collect_metrics,omitempty"`
}

// Default returns the "balanced" preset, matching the original engine's
// shipped defaults.
func Default() *DiffConfig {
	return &DiffConfig{
		MaxAlignRows:      50000,
		MaxAlignCols:      2000,
		MaxRecursionDepth: 4,

		SmallGapThreshold: 64,
		LowInfoThreshold:  0,
		MinMoveSize:       3,
		EnableFuzzyMoves:  true,

		DenseRowReplaceRatio:    0.6,
		DenseRowReplaceMinCols:  4,
		DenseRectReplaceMinRows: 4,

		OnLimitExceeded: FallbackToPositional,
	}
}

// Fastest trades fidelity for speed: smaller alignment bounds, no fuzzy
// moves, eager dense-replace collapsing.
func Fastest() *DiffConfig {
	c := Default()
	c.MaxAlignRows = 20000
	c.MaxAlignCols = 512
	c.MaxRecursionDepth = 2
	c.SmallGapThreshold = 32
	c.EnableFuzzyMoves = false
	c.DenseRowReplaceRatio = 0.4
	c.DenseRowReplaceMinCols = 2
	c.DenseRectReplaceMinRows = 2
	return c
}

// MostPrecise disables the heuristics that can drop fidelity for speed:
// no dense-replace collapsing, maximal recursion, largest bounds.
func MostPrecise() *DiffConfig {
	c := Default()
	c.MaxAlignRows = 200000
	c.MaxAlignCols = 16000
	c.MaxRecursionDepth = 8
	c.SmallGapThreshold = 256
	c.DenseRowReplaceRatio = 1.0
	c.DenseRowReplaceMinCols = 1 << 30
	c.DenseRectReplaceMinRows = 1 << 30
	c.OnLimitExceeded = ReturnPartialResult
	return c
}

// Preset resolves one of the three named presets by name.
func Preset(name string) (*DiffConfig, error) {
	switch name {
	case "fastest":
		return Fastest(), nil
	case "balanced":
		return Default(), nil
	case "most_precise":
		return MostPrecise(), nil
	default:
		return nil, fmt.Errorf("config: unknown preset %q", name)
	}
}

// Load reads a DiffConfig from a JSON file, starting from Default() so
// unset fields keep their defaults, then validates the result.
func Load(path string) (*DiffConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	c := Default()
	if err := json.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadOrDefault is Load, falling back to Default() when path is empty.
func LoadOrDefault(path string) (*DiffConfig, error) {
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}

func (c *DiffConfig) validate() error {
	if c.MaxAlignRows == 0 {
		return fmt.Errorf("config: max_align_rows must be > 0")
	}
	if c.MaxAlignCols == 0 {
		return fmt.Errorf("config: max_align_cols must be > 0")
	}
	if c.SmallGapThreshold == 0 {
		return fmt.Errorf("config: small_gap_threshold must be > 0")
	}
	if c.MinMoveSize == 0 {
		return fmt.Errorf("config: min_move_size must be > 0")
	}
	if c.DenseRowReplaceRatio < 0 || c.DenseRowReplaceRatio > 1 {
		return fmt.Errorf("config: dense_row_replace_ratio must be in [0,1]")
	}
	switch c.OnLimitExceeded {
	case FallbackToPositional, ReturnPartialResult, ReturnError:
	default:
		return fmt.Errorf("config: unrecognized on_limit_exceeded %q", c.OnLimitExceeded)
	}
	return nil
}
