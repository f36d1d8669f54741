// Package hardening implements the guard layer wrapping a diff run:
// timeout ticks, a memory-budget pre-check with positional fallback, and
// throttled progress reporting (spec.md §4.10). All guard state here is
// per-diff; none of it is global.
package hardening

import (
	"sync"
	"time"

	"github.com/sheetdiff/sheetdiff/internal/grid"
)

const (
	timeoutCheckEveryTicks = 256
	progressMinDelta       = 0.01
	bytesPerMB             = 1024 * 1024
)

// ProgressCallback receives throttled phase/percent updates.
type ProgressCallback interface {
	OnProgress(phase string, percent float32)
}

// ProgressFunc adapts a plain function to ProgressCallback.
type ProgressFunc func(phase string, percent float32)

func (f ProgressFunc) OnProgress(phase string, percent float32) { f(phase, percent) }

// Controller tracks timeout/memory/progress guard state for one diff run.
// A single Controller is shared across every sheet job when
// internal/workerpool diffs sheets concurrently, so all state mutation
// goes through mu rather than relying on single-goroutine access.
type Controller struct {
	mu sync.Mutex

	start          time.Time
	timeout        time.Duration
	hasTimeout     bool
	maxMemoryBytes uint64
	hasMemoryLimit bool
	aborted        bool
	warnedTimeout  bool
	warnedMemory   bool
	progress       ProgressCallback
	lastPhase      string
	havePhase      bool
	lastPercent    float32
	timeoutTick    uint64
}

// Options configures a Controller. Zero values mean "no limit".
type Options struct {
	Timeout     time.Duration
	MaxMemoryMB uint64
	Progress    ProgressCallback
}

func NewController(opts Options) *Controller {
	return &Controller{
		start:          time.Now(),
		timeout:        opts.Timeout,
		hasTimeout:     opts.Timeout > 0,
		maxMemoryBytes: opts.MaxMemoryMB * bytesPerMB,
		hasMemoryLimit: opts.MaxMemoryMB > 0,
		progress:       opts.Progress,
	}
}

// ShouldAbort reports whether a prior CheckTimeout call fired.
func (c *Controller) ShouldAbort() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aborted
}

// CheckTimeout should be called from tick()-style call sites throughout
// the engine. It only actually samples the clock every
// timeoutCheckEveryTicks calls (plus the very first), per spec.md §4.10,
// so hot loops are not dominated by time.Now() overhead. Safe to call
// concurrently from multiple sheet-diff goroutines sharing one Controller.
func (c *Controller) CheckTimeout(warnings *[]string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.aborted {
		return true
	}
	if !c.hasTimeout {
		return false
	}

	c.timeoutTick++
	shouldCheck := c.timeoutTick == 1 || c.timeoutTick%timeoutCheckEveryTicks == 0
	if !shouldCheck {
		return false
	}

	if time.Since(c.start) < c.timeout {
		return false
	}

	c.aborted = true
	if !c.warnedTimeout {
		c.warnedTimeout = true
		*warnings = append(*warnings, formatTimeoutWarning(c.timeout))
	}
	return true
}

func formatTimeoutWarning(timeout time.Duration) string {
	return "timeout after " + timeout.String() + "; diff aborted early; results may be incomplete"
}

// MemoryGuardOrWarn reports whether the estimated extra bytes a stage is
// about to allocate exceeds the configured budget. On the first
// exceedance it appends a warning naming context; callers are expected
// to fall back to a positional diff for that stage when this returns true.
func (c *Controller) MemoryGuardOrWarn(estimatedExtraBytes uint64, warnings *[]string, context string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.hasMemoryLimit {
		return false
	}
	if estimatedExtraBytes <= c.maxMemoryBytes {
		return false
	}
	if !c.warnedMemory {
		c.warnedMemory = true
		*warnings = append(*warnings, formatMemoryWarning(estimatedExtraBytes, c.maxMemoryBytes, context))
	}
	return true
}

func formatMemoryWarning(estimated, limit uint64, context string) string {
	return "memory budget exceeded in " + context +
		" (estimated ~" + mbCeil(estimated) + " MB > limit " + mbCeil(limit) +
		" MB); falling back to positional diff; results may be incomplete"
}

func mbCeil(bytes uint64) string {
	mb := (bytes + bytesPerMB - 1) / bytesPerMB
	return itoa(mb)
}

func itoa(n uint64) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

// Progress reports phase/percent to the configured callback, throttled so
// it re-emits only when the phase changed, percent hit 0 or 1, percent
// decreased, or percent advanced by at least progressMinDelta (spec.md
// §4.10). Non-finite or out-of-range percentages are clamped to [0,1].
func (c *Controller) Progress(phase string, percent float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.progress == nil {
		return
	}

	clamped := percent
	if isNonFinite(clamped) {
		clamped = 0
	}
	if clamped < 0 {
		clamped = 0
	} else if clamped > 1 {
		clamped = 1
	}

	shouldEmit := true
	if c.havePhase && c.lastPhase == phase {
		shouldEmit = clamped == 0 || clamped == 1 ||
			clamped < c.lastPercent ||
			(clamped-c.lastPercent) >= progressMinDelta
	}
	if !shouldEmit {
		return
	}

	c.lastPhase = phase
	c.havePhase = true
	c.lastPercent = clamped
	c.progress.OnProgress(phase, clamped)
}

func isNonFinite(f float32) bool {
	return f != f || f > 3.4e38 || f < -3.4e38
}

// Rough per-element sizes used by the byte estimators below. These mirror
// size_of::<T>() of the corresponding Rust structs closely enough to
// drive the memory guard; they need not be exact, only conservative.
const (
	sizeofRowView  = 32 // slice header + a couple ints
	sizeofRowMeta  = 24
	sizeofColMeta  = 24
	sizeofCellEntr = 24 // (index, *Cell) pair, inflated 5/4 below for map overhead
	sizeofU32      = 4
	sizeofOptU32   = 8 // Go has no Option<u32>; a present/value pair
	sizeofHasher   = 88
)

func saturatingMul(a, b uint64) uint64 {
	if a == 0 || b == 0 {
		return 0
	}
	r := a * b
	if r/a != b {
		return ^uint64(0)
	}
	return r
}

func saturatingAdd(a, b uint64) uint64 {
	r := a + b
	if r < a {
		return ^uint64(0)
	}
	return r
}

// EstimateGridViewBytes approximates the peak bytes a GridView build
// allocates for g: row views, row/col metadata, the cell-count maps, and
// the per-column rolling hashers.
func EstimateGridViewBytes(g *grid.Grid) uint64 {
	nrows := uint64(g.NRows)
	ncols := uint64(g.NCols)
	cellCount := uint64(g.CellCount())

	rowViewBytes := saturatingMul(nrows, sizeofRowView)
	rowMetaBytes := saturatingMul(nrows, sizeofRowMeta)
	colMetaBytes := saturatingMul(ncols, sizeofColMeta)

	cellEntryBytes := saturatingMul(saturatingMul(cellCount, sizeofCellEntr), 5) / 4

	buildRowCountsBytes := saturatingAdd(
		saturatingMul(nrows, sizeofU32),
		saturatingMul(nrows, sizeofOptU32),
	)
	buildColCountsBytes := saturatingAdd(
		saturatingMul(ncols, sizeofU32),
		saturatingMul(ncols, sizeofOptU32),
	)
	buildHashersBytes := saturatingMul(ncols, sizeofHasher)

	total := rowViewBytes
	total = saturatingAdd(total, rowMetaBytes)
	total = saturatingAdd(total, colMetaBytes)
	total = saturatingAdd(total, cellEntryBytes)
	total = saturatingAdd(total, buildRowCountsBytes)
	total = saturatingAdd(total, buildColCountsBytes)
	total = saturatingAdd(total, buildHashersBytes)
	return total
}

// EstimateAdvancedSheetDiffPeak approximates the peak bytes alive while
// diffing old against new with full row/column alignment, on top of the
// two GridViews themselves.
func EstimateAdvancedSheetDiffPeak(old, newer *grid.Grid) uint64 {
	base := saturatingAdd(EstimateGridViewBytes(old), EstimateGridViewBytes(newer))

	maxRows := old.NRows
	if newer.NRows > maxRows {
		maxRows = newer.NRows
	}
	maxCols := old.NCols
	if newer.NCols > maxCols {
		maxCols = newer.NCols
	}

	alignmentOverhead := saturatingMul(
		saturatingAdd(uint64(maxRows), uint64(maxCols)),
		sizeofU32,
	)
	alignmentOverhead = saturatingMul(alignmentOverhead, 8)

	return saturatingAdd(base, alignmentOverhead)
}
