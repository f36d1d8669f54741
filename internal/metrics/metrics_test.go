package metrics

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSnapshotStartsWithZeroCounts(t *testing.T) {
	snap := NewCollector().Snapshot()
	assert.Zero(t, snap.RowsProcessed)
	assert.Zero(t, snap.CellsCompared)
	assert.Zero(t, snap.AnchorsFound)
	assert.Zero(t, snap.MovesDetected)
	assert.Zero(t, snap.ParseTimeMs)
	assert.Zero(t, snap.AlignmentTimeMs)
	assert.Zero(t, snap.MoveDetectionTimeMs)
	assert.Zero(t, snap.CellDiffTimeMs)
	assert.Zero(t, snap.TotalTimeMs)
	assert.Zero(t, snap.DiffTimeMs)
	assert.Zero(t, snap.PeakMemoryBytes)
}

func TestAddCellsComparedAccumulates(t *testing.T) {
	c := NewCollector()
	c.AddCellsCompared(100)
	c.AddCellsCompared(50)
	c.AddCellsCompared(1000)
	assert.Equal(t, uint64(1150), c.Snapshot().CellsCompared)
}

func TestAddCellsComparedSaturates(t *testing.T) {
	c := NewCollector()
	c.AddCellsCompared(math.MaxUint64 - 10)
	c.AddCellsCompared(100)
	assert.Equal(t, uint64(math.MaxUint64), c.Snapshot().CellsCompared)
}

func TestPhaseTimingAccumulates(t *testing.T) {
	c := NewCollector()

	c.StartPhase(PhaseAlignment)
	time.Sleep(10 * time.Millisecond)
	c.EndPhase(PhaseAlignment)

	first := c.Snapshot().AlignmentTimeMs
	assert.Greater(t, first, int64(0))

	c.StartPhase(PhaseAlignment)
	time.Sleep(10 * time.Millisecond)
	c.EndPhase(PhaseAlignment)

	assert.Greater(t, c.Snapshot().AlignmentTimeMs, first)
}

func TestDifferentPhasesTrackedSeparately(t *testing.T) {
	c := NewCollector()

	c.StartPhase(PhaseAlignment)
	time.Sleep(5 * time.Millisecond)
	c.EndPhase(PhaseAlignment)

	c.StartPhase(PhaseMoveDetection)
	time.Sleep(5 * time.Millisecond)
	c.EndPhase(PhaseMoveDetection)

	c.StartPhase(PhaseCellDiff)
	time.Sleep(5 * time.Millisecond)
	c.EndPhase(PhaseCellDiff)

	snap := c.Snapshot()
	assert.Greater(t, snap.AlignmentTimeMs, int64(0))
	assert.Greater(t, snap.MoveDetectionTimeMs, int64(0))
	assert.Greater(t, snap.CellDiffTimeMs, int64(0))
}

func TestTotalPhaseSeparateFromComponents(t *testing.T) {
	c := NewCollector()

	c.StartPhase(PhaseTotal)
	c.StartPhase(PhaseAlignment)
	time.Sleep(10 * time.Millisecond)
	c.EndPhase(PhaseAlignment)
	c.EndPhase(PhaseTotal)

	snap := c.Snapshot()
	assert.Greater(t, snap.AlignmentTimeMs, int64(0))
	assert.Greater(t, snap.TotalTimeMs, int64(0))
	assert.GreaterOrEqual(t, snap.TotalTimeMs, snap.AlignmentTimeMs)
}

func TestEndPhaseWithoutStartIsSafe(t *testing.T) {
	c := NewCollector()
	c.EndPhase(PhaseAlignment)
	assert.Zero(t, c.Snapshot().AlignmentTimeMs)
}

func TestParsePhaseTracksTime(t *testing.T) {
	c := NewCollector()
	c.StartPhase(PhaseParse)
	time.Sleep(10 * time.Millisecond)
	c.EndPhase(PhaseParse)
	assert.Greater(t, c.Snapshot().ParseTimeMs, int64(0))
}

func TestDiffTimeDerivedFromTotalMinusParse(t *testing.T) {
	c := NewCollector()

	c.StartPhase(PhaseTotal)
	c.StartPhase(PhaseParse)
	time.Sleep(10 * time.Millisecond)
	c.EndPhase(PhaseParse)
	time.Sleep(10 * time.Millisecond)
	c.EndPhase(PhaseTotal)

	snap := c.Snapshot()
	assert.GreaterOrEqual(t, snap.TotalTimeMs, snap.ParseTimeMs)
	assert.Equal(t, snap.TotalTimeMs-snap.ParseTimeMs, snap.DiffTimeMs)
}

func TestAddRowsProcessedAccumulates(t *testing.T) {
	c := NewCollector()
	c.AddRowsProcessed(5000)
	assert.Equal(t, uint64(5000), c.Snapshot().RowsProcessed)
	c.AddRowsProcessed(3000)
	assert.Equal(t, uint64(8000), c.Snapshot().RowsProcessed)
}

func TestRecordPeakMemoryKeepsMaximum(t *testing.T) {
	c := NewCollector()
	c.RecordPeakMemory(1024)
	c.RecordPeakMemory(512)
	c.RecordPeakMemory(4096)
	assert.Equal(t, uint64(4096), c.Snapshot().PeakMemoryBytes)
}
