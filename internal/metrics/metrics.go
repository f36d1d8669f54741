// Package metrics is an optional per-run instrumentation collector:
// phase timings and row/cell/anchor/move counts accumulated while a diff
// runs, attached to the result only when the caller asks for it
// (config.DiffConfig.CollectMetrics). Grounded on the teacher's
// pkg/monitor.MetricsCollector idiom (mutex-guarded counters plus a
// GetSnapshot method returning a plain value type) and on
// original_source/core/tests/metrics_unit_tests.rs, which this package's
// tests mirror one for one (saturating counters, phase start/end,
// total-minus-parse derivation, end-without-start is a no-op).
package metrics

import (
	"math"
	"sync"
	"time"
)

// Phase names one stage of a diff run whose wall-clock time is tracked
// independently. Total wraps the others rather than being derived from
// them, so it can be started before Parse and stopped after CellDiff.
type Phase int

const (
	PhaseTotal Phase = iota
	PhaseParse
	PhaseAlignment
	PhaseMoveDetection
	PhaseCellDiff
)

// Collector accumulates counts and phase durations across however many
// StartPhase/EndPhase and Add* calls a diff run makes. Safe for
// concurrent use, since sheet diffs run across internal/workerpool's
// goroutines.
type Collector struct {
	mu sync.Mutex

	rowsProcessed uint64
	cellsCompared uint64
	anchorsFound  uint64
	movesDetected uint64

	parseTimeMs         int64
	alignmentTimeMs     int64
	moveDetectionTimeMs int64
	cellDiffTimeMs      int64
	totalTimeMs         int64

	peakMemoryBytes uint64

	phaseStart map[Phase]time.Time
}

// NewCollector returns a zeroed Collector ready to record a diff run.
func NewCollector() *Collector {
	return &Collector{phaseStart: make(map[Phase]time.Time)}
}

// StartPhase marks the beginning of p. Calling it again before EndPhase
// overwrites the previous start time for p.
func (c *Collector) StartPhase(p Phase) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.phaseStart[p] = time.Now()
}

// EndPhase adds the elapsed time since the matching StartPhase to p's
// running total. Ending a phase that was never started is a safe no-op,
// matching metrics_end_phase_without_start_is_safe.
func (c *Collector) EndPhase(p Phase) {
	c.mu.Lock()
	defer c.mu.Unlock()
	start, ok := c.phaseStart[p]
	if !ok {
		return
	}
	delete(c.phaseStart, p)
	elapsed := time.Since(start).Milliseconds()

	switch p {
	case PhaseParse:
		c.parseTimeMs += elapsed
	case PhaseAlignment:
		c.alignmentTimeMs += elapsed
	case PhaseMoveDetection:
		c.moveDetectionTimeMs += elapsed
	case PhaseCellDiff:
		c.cellDiffTimeMs += elapsed
	case PhaseTotal:
		c.totalTimeMs += elapsed
	}
}

// AddRowsProcessed accumulates n into the rows-processed counter,
// saturating at math.MaxUint64 instead of wrapping.
func (c *Collector) AddRowsProcessed(n uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rowsProcessed = saturatingAdd(c.rowsProcessed, n)
}

// AddCellsCompared accumulates n into the cells-compared counter.
func (c *Collector) AddCellsCompared(n uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cellsCompared = saturatingAdd(c.cellsCompared, n)
}

// AddAnchorsFound accumulates n into the AMR anchors-found counter.
func (c *Collector) AddAnchorsFound(n uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.anchorsFound = saturatingAdd(c.anchorsFound, n)
}

// AddMovesDetected accumulates n into the block-moves-detected counter.
func (c *Collector) AddMovesDetected(n uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.movesDetected = saturatingAdd(c.movesDetected, n)
}

// RecordPeakMemory keeps the largest bytes value observed so far.
func (c *Collector) RecordPeakMemory(bytes uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if bytes > c.peakMemoryBytes {
		c.peakMemoryBytes = bytes
	}
}

// Snapshot is an immutable point-in-time copy of a Collector's state,
// safe to embed in a DiffSummary after the run finishes.
type Snapshot struct {
	RowsProcessed uint64
	CellsCompared uint64
	AnchorsFound  uint64
	MovesDetected uint64

	ParseTimeMs         int64
	AlignmentTimeMs     int64
	MoveDetectionTimeMs int64
	CellDiffTimeMs      int64
	TotalTimeMs         int64
	// DiffTimeMs is TotalTimeMs with ParseTimeMs subtracted out: the
	// portion of the run spent aligning/diffing rather than parsing the
	// workbook container.
	DiffTimeMs int64

	PeakMemoryBytes uint64
}

// Snapshot renders the collector's current state as a Snapshot. Any
// phase still running (StartPhase called with no matching EndPhase) is
// not included in that phase's total.
func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	diffTime := c.totalTimeMs - c.parseTimeMs
	if diffTime < 0 {
		diffTime = 0
	}

	return Snapshot{
		RowsProcessed: c.rowsProcessed,
		CellsCompared: c.cellsCompared,
		AnchorsFound:  c.anchorsFound,
		MovesDetected: c.movesDetected,

		ParseTimeMs:         c.parseTimeMs,
		AlignmentTimeMs:     c.alignmentTimeMs,
		MoveDetectionTimeMs: c.moveDetectionTimeMs,
		CellDiffTimeMs:      c.cellDiffTimeMs,
		TotalTimeMs:         c.totalTimeMs,
		DiffTimeMs:          diffTime,

		PeakMemoryBytes: c.peakMemoryBytes,
	}
}

func saturatingAdd(a, b uint64) uint64 {
	sum := a + b
	if sum < a {
		return math.MaxUint64
	}
	return sum
}
