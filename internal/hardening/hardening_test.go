package hardening

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sheetdiff/sheetdiff/internal/grid"
)

func TestCheckTimeoutFiresOnFirstTickAfterDeadline(t *testing.T) {
	c := NewController(Options{Timeout: time.Millisecond})
	time.Sleep(5 * time.Millisecond)

	var warnings []string
	aborted := c.CheckTimeout(&warnings)

	assert.True(t, aborted)
	assert.True(t, c.ShouldAbort())
	assert.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "timeout")
}

func TestCheckTimeoutOnlySamplesEvery256Ticks(t *testing.T) {
	c := NewController(Options{Timeout: 20 * time.Millisecond})
	var warnings []string

	// Tick 1 samples the clock before the deadline; ticks 2..255 then
	// pass the deadline without sampling, and tick 256 samples again.
	assert.False(t, c.CheckTimeout(&warnings))
	time.Sleep(30 * time.Millisecond)

	for i := 0; i < 254; i++ {
		assert.False(t, c.CheckTimeout(&warnings))
	}
	assert.Empty(t, warnings)

	assert.True(t, c.CheckTimeout(&warnings))
	assert.Len(t, warnings, 1)
}

func TestCheckTimeoutWarnsOnlyOnce(t *testing.T) {
	c := NewController(Options{Timeout: time.Millisecond})
	time.Sleep(5 * time.Millisecond)

	var warnings []string
	c.CheckTimeout(&warnings)
	for i := 0; i < 300; i++ {
		c.CheckTimeout(&warnings)
	}
	assert.Len(t, warnings, 1)
}

func TestCheckTimeoutNoopWhenUnset(t *testing.T) {
	c := NewController(Options{})
	var warnings []string
	for i := 0; i < 300; i++ {
		assert.False(t, c.CheckTimeout(&warnings))
	}
	assert.Empty(t, warnings)
	assert.False(t, c.ShouldAbort())
}

func TestMemoryGuardWarnsOnceAndMentionsFallback(t *testing.T) {
	c := NewController(Options{MaxMemoryMB: 1})
	var warnings []string

	triggered := c.MemoryGuardOrWarn(2*bytesPerMB, &warnings, "row alignment")
	assert.True(t, triggered)
	assert.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "falling back to positional diff")
	assert.Contains(t, warnings[0], "row alignment")

	triggered = c.MemoryGuardOrWarn(3*bytesPerMB, &warnings, "row alignment")
	assert.True(t, triggered)
	assert.Len(t, warnings, 1)
}

func TestMemoryGuardUnderBudgetDoesNotTrigger(t *testing.T) {
	c := NewController(Options{MaxMemoryMB: 64})
	var warnings []string
	assert.False(t, c.MemoryGuardOrWarn(1024, &warnings, "gridview"))
	assert.Empty(t, warnings)
}

func TestMemoryGuardNoopWhenUnset(t *testing.T) {
	c := NewController(Options{})
	var warnings []string
	assert.False(t, c.MemoryGuardOrWarn(1<<40, &warnings, "anything"))
	assert.Empty(t, warnings)
}

type recordingProgress struct {
	calls []struct {
		phase   string
		percent float32
	}
}

func (r *recordingProgress) OnProgress(phase string, percent float32) {
	r.calls = append(r.calls, struct {
		phase   string
		percent float32
	}{phase, percent})
}

func TestProgressThrottlesSmallAdvances(t *testing.T) {
	rec := &recordingProgress{}
	c := NewController(Options{Progress: rec})

	c.Progress("align", 0)
	c.Progress("align", 0.002)
	c.Progress("align", 0.004)
	c.Progress("align", 0.02)

	assert.Len(t, rec.calls, 2)
	assert.Equal(t, float32(0), rec.calls[0].percent)
	assert.InDelta(t, 0.02, rec.calls[1].percent, 1e-6)
}

func TestProgressAlwaysEmitsOnPhaseChange(t *testing.T) {
	rec := &recordingProgress{}
	c := NewController(Options{Progress: rec})

	c.Progress("align", 0.5)
	c.Progress("cells", 0.5)

	assert.Len(t, rec.calls, 2)
	assert.Equal(t, "cells", rec.calls[1].phase)
}

func TestProgressAlwaysEmitsOnZeroOneAndDecrease(t *testing.T) {
	rec := &recordingProgress{}
	c := NewController(Options{Progress: rec})

	c.Progress("align", 0.5)
	c.Progress("align", 1)
	c.Progress("align", 0.1)
	c.Progress("align", 0)

	assert.Len(t, rec.calls, 4)
}

func TestProgressClampsOutOfRange(t *testing.T) {
	rec := &recordingProgress{}
	c := NewController(Options{Progress: rec})

	c.Progress("align", -5)
	c.Progress("align", 1)
	c.Progress("align", 50)

	assert.Len(t, rec.calls, 3)
	assert.Equal(t, float32(0), rec.calls[0].percent)
	assert.Equal(t, float32(1), rec.calls[2].percent)
}

func TestProgressNoopWhenNoCallbackConfigured(t *testing.T) {
	c := NewController(Options{})
	assert.NotPanics(t, func() {
		c.Progress("align", 0.5)
	})
}

func TestEstimateGridViewBytesGrowsWithSize(t *testing.T) {
	small := grid.New(10, 10)
	big := grid.New(1000, 100)
	for r := uint32(0); r < 1000; r++ {
		for c := uint32(0); c < 100; c++ {
			v := grid.Number(float64(r + c))
			big.Insert(grid.Cell{Row: r, Col: c, Value: &v})
		}
	}

	assert.Greater(t, EstimateGridViewBytes(big), EstimateGridViewBytes(small))
	assert.Positive(t, EstimateGridViewBytes(small))
}

func TestEstimateAdvancedSheetDiffPeakCombinesBothGrids(t *testing.T) {
	old := grid.New(500, 20)
	updated := grid.New(500, 20)

	peak := EstimateAdvancedSheetDiffPeak(old, updated)
	base := EstimateGridViewBytes(old) + EstimateGridViewBytes(updated)

	assert.Greater(t, peak, base)
}

func TestMemoryGuardFedByEstimator(t *testing.T) {
	old := grid.New(5000, 200)
	for r := uint32(0); r < 5000; r++ {
		for c := uint32(0); c < 200; c++ {
			v := grid.Text("value")
			old.Insert(grid.Cell{Row: r, Col: c, Value: &v})
		}
	}
	updated := grid.New(5000, 200)

	estimate := EstimateAdvancedSheetDiffPeak(old, updated)

	c := NewController(Options{MaxMemoryMB: 1})
	var warnings []string
	triggered := c.MemoryGuardOrWarn(estimate, &warnings, "row alignment")

	assert.True(t, triggered)
	assert.Len(t, warnings, 1)
}
