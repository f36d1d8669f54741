package engine

import (
	"sort"
	"time"

	"github.com/sheetdiff/sheetdiff/internal/celldiff"
	"github.com/sheetdiff/sheetdiff/internal/config"
	"github.com/sheetdiff/sheetdiff/internal/dbalign"
	"github.com/sheetdiff/sheetdiff/internal/diffop"
	"github.com/sheetdiff/sheetdiff/internal/grid"
	"github.com/sheetdiff/sheetdiff/internal/hardening"
	"github.com/sheetdiff/sheetdiff/internal/metrics"
	"github.com/sheetdiff/sheetdiff/internal/sink"
	"github.com/sheetdiff/sheetdiff/internal/stringpool"
)

// Diff is the non-streaming convenience entry point (spec.md §6:
// diff(a, b, config) -> DiffReport): it runs DiffStreaming into a
// VecSink and assembles the materialized report.
func Diff(old, newer *Workbook, cfg *config.DiffConfig, pool *stringpool.Pool) (diffop.DiffReport, error) {
	vs := sink.NewVecSink()
	summary, err := DiffStreaming(old, newer, cfg, pool, vs)
	if err != nil {
		return diffop.DiffReport{}, err
	}
	return diffop.FromOpsAndSummary(vs.Ops(), summary, pool.Strings()), nil
}

// DiffStreaming is the preferred entry point for large inputs (spec.md
// §6: diff_streaming(a, b, config, sink) -> DiffSummary), honoring the
// sink contract end to end. It does not stream with bounded memory:
// every matched sheet is diffed into its own in-memory op list before
// the first op reaches s, and those lists are then emitted in order.
func DiffStreaming(old, newer *Workbook, cfg *config.DiffConfig, pool *stringpool.Pool, s sink.DiffSink) (diffop.DiffSummary, error) {
	ctrl := controllerFor(cfg)
	return DiffWorkbook(old, newer, cfg, ctrl, pool, s)
}

// DiffDatabaseMode is the key-based row diff entry point (spec.md §6,
// §4.8: diff_database_mode(old_grid, new_grid, key_columns, pool,
// config, sink) -> DiffSummary). It skips alignment entirely: rows are
// matched by key tuple, then fed straight into the same cell-level
// refinement §4.7 uses for AMR-matched pairs.
func DiffDatabaseMode(old, newer *grid.Grid, keyColumns []uint32, pool *stringpool.Pool, cfg *config.DiffConfig, s sink.DiffSink) (diffop.DiffSummary, error) {
	ctrl := controllerFor(cfg)
	guard := sink.NewFinishGuard(s)
	defer guard.EnsureFinished()

	var warnings []string

	var mc *metrics.Collector
	if cfg.CollectMetrics {
		mc = metrics.NewCollector()
		mc.StartPhase(metrics.PhaseTotal)
	}

	if err := s.Begin(pool); err != nil {
		return diffop.DiffSummary{}, diffop.WrapSinkError(err)
	}

	if mc != nil {
		mc.StartPhase(metrics.PhaseAlignment)
	}
	keyed, err := dbalign.DiffTableByKey(old, newer, keyColumns)
	if mc != nil {
		mc.EndPhase(metrics.PhaseAlignment)
		mc.AddRowsProcessed(uint64(old.NRows) + uint64(newer.NRows))
	}
	if err != nil {
		return diffop.DiffSummary{}, diffop.WrapSinkError(err)
	}

	sheet := pool.Intern("")

	var ops []diffop.DiffOp
	for _, r := range keyed.LeftOnlyRows {
		ops = append(ops, diffop.DiffOp{Kind: diffop.KindRowRemoved, Sheet: sheet, RowIdx: r})
	}
	for _, r := range keyed.RightOnlyRows {
		ops = append(ops, diffop.DiffOp{Kind: diffop.KindRowAdded, Sheet: sheet, RowIdx: r})
	}

	pairs := make([]celldiff.RowPairLike, len(keyed.MatchedRows))
	for i, p := range keyed.MatchedRows {
		pairs[i] = p
	}
	if mc != nil {
		mc.AddAnchorsFound(uint64(len(pairs)))
		mc.StartPhase(metrics.PhaseCellDiff)
	}
	cellOps := diffMatchedRows(old, newer, sheet, pairs, cfg)
	if mc != nil {
		mc.EndPhase(metrics.PhaseCellDiff)
		cols := old.NCols
		if newer.NCols > cols {
			cols = newer.NCols
		}
		mc.AddCellsCompared(uint64(len(pairs)) * uint64(cols))
	}
	ops = append(ops, cellOps...)

	sortOps(ops)

	opCount := 0
	for _, op := range ops {
		if ctrl.CheckTimeout(&warnings) {
			break
		}
		if err := s.Emit(op); err != nil {
			return summaryOf(opCount, false, warnings, mc), diffop.WrapSinkError(err)
		}
		opCount++
	}

	complete := !ctrl.ShouldAbort()
	if fw, ok := s.(interface {
		FinishWithSummary(bool, []string) error
	}); ok {
		err := fw.FinishWithSummary(complete, warnings)
		guard.Disarm()
		if err != nil {
			return summaryOf(opCount, complete, warnings, mc), diffop.WrapSinkError(err)
		}
		return summaryOf(opCount, complete, warnings, mc), nil
	}

	if err := guard.FinishAndDisarm(); err != nil {
		return summaryOf(opCount, complete, warnings, mc), diffop.WrapSinkError(err)
	}
	return summaryOf(opCount, complete, warnings, mc), nil
}

func controllerFor(cfg *config.DiffConfig) *hardening.Controller {
	opts := hardening.Options{}
	if cfg.TimeoutSeconds > 0 {
		opts.Timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	if cfg.MaxMemoryMB > 0 {
		opts.MaxMemoryMB = cfg.MaxMemoryMB
	}
	return hardening.NewController(opts)
}

func sortOps(ops []diffop.DiffOp) {
	sort.SliceStable(ops, func(i, j int) bool { return keyLess(opOrderKey(ops[i]), opOrderKey(ops[j])) })
}
