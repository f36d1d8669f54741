package engine

import (
	"context"
	"sort"

	"github.com/sheetdiff/sheetdiff/internal/config"
	"github.com/sheetdiff/sheetdiff/internal/diffop"
	"github.com/sheetdiff/sheetdiff/internal/grid"
	"github.com/sheetdiff/sheetdiff/internal/hardening"
	"github.com/sheetdiff/sheetdiff/internal/metrics"
	"github.com/sheetdiff/sheetdiff/internal/sink"
	"github.com/sheetdiff/sheetdiff/internal/stringpool"
	"github.com/sheetdiff/sheetdiff/internal/workerpool"
)

// Sheet is one named grid within a Workbook.
type Sheet struct {
	Name string
	Grid *grid.Grid
}

// NamedObject is a single workbook object (named range, chart, VBA
// module, Power Query item, permission binding) reduced to a name and a
// structural definition string for comparison. Real definitions (chart
// XML, M-query text, VBA source) are richer than a single string in
// internal/workbook; engine only needs enough to detect add/remove/
// change.
type NamedObject struct {
	Class      diffop.ObjectClass
	Name       string
	Definition string
}

// Workbook is the engine's view of one side of a workbook-level diff:
// named sheets plus the object collections spec.md §4.11 diffs
// structurally.
type Workbook struct {
	Sheets  []Sheet
	Objects []NamedObject
}

// DiffWorkbook matches sheets by name, delegates matched pairs to
// DiffSheet, and runs the object-level structural diffs, all through one
// sink in the order sheet lifecycle -> per-sheet ops -> object ops
// (spec.md §4.11).
func DiffWorkbook(old, newer *Workbook, cfg *config.DiffConfig, ctrl *hardening.Controller, pool *stringpool.Pool, s sink.DiffSink) (diffop.DiffSummary, error) {
	guard := sink.NewFinishGuard(s)
	defer guard.EnsureFinished()

	var warnings []string
	opCount := 0

	var mc *metrics.Collector
	if cfg.CollectMetrics {
		mc = metrics.NewCollector()
		mc.StartPhase(metrics.PhaseTotal)
	}

	if err := s.Begin(pool); err != nil {
		return diffop.DiffSummary{}, diffop.WrapSinkError(err)
	}

	oldByName := make(map[string]*grid.Grid, len(old.Sheets))
	for _, sh := range old.Sheets {
		oldByName[sh.Name] = sh.Grid
	}
	newByName := make(map[string]*grid.Grid, len(newer.Sheets))
	for _, sh := range newer.Sheets {
		newByName[sh.Name] = sh.Grid
	}

	names := unionSheetNames(old.Sheets, newer.Sheets)

	// matchedAt[i] >= 0 means names[i] is a matched sheet pair whose ops
	// live at sheetResults[matchedAt[i]]; names not present on both sides
	// are handled inline as they're cheap (a single SheetAdded/Removed op).
	matchedAt := make([]int, len(names))
	var jobs []workerpool.SheetJob
	for i, name := range names {
		matchedAt[i] = -1
		oldGrid, inOld := oldByName[name]
		newGrid, inNew := newByName[name]
		if !inOld || !inNew {
			continue
		}

		nameID := pool.Intern(name)
		estimate := hardening.EstimateAdvancedSheetDiffPeak(oldGrid, newGrid)
		overBudget := ctrl.MemoryGuardOrWarn(estimate, &warnings, "sheet "+name)

		oldGrid, newGrid, nameID := oldGrid, newGrid, nameID
		matchedAt[i] = len(jobs)
		jobs = append(jobs, workerpool.SheetJob{
			NameID: nameID,
			Run: func() ([]diffop.DiffOp, []string, error) {
				if overBudget {
					ops := positionalRowDiff(oldGrid, newGrid, nameID, cfg)
					sortOps(ops)
					return ops, nil, nil
				}
				vs := sink.NewVecSink()
				var sheetWarnings []string
				err := DiffSheet(oldGrid, newGrid, nameID, cfg, ctrl, vs, &sheetWarnings, mc)
				return vs.Ops(), sheetWarnings, err
			},
		})
	}

	sheetResults := workerpool.DiffSheetsConcurrently(context.Background(), jobs)

	countingSink := &countingSink{inner: s}
	// Names on one side only come first, then names on both sides, so every
	// SheetAdded/SheetRemoved op precedes every per-sheet op.
	order := make([]int, 0, len(names))
	for pass := 0; pass < 2; pass++ {
		for i, name := range names {
			_, inOld := oldByName[name]
			_, inNew := newByName[name]
			if (inOld && inNew) == (pass == 1) {
				order = append(order, i)
			}
		}
	}
	for _, i := range order {
		name := names[i]
		if ctrl.ShouldAbort() {
			break
		}

		_, inOld := oldByName[name]
		_, inNew := newByName[name]
		nameID := pool.Intern(name)

		switch {
		case inOld && !inNew:
			if err := countingSink.Emit(diffop.DiffOp{Kind: diffop.KindSheetRemoved, SheetName: nameID}); err != nil {
				return summaryOf(opCount, false, warnings, mc), diffop.WrapSinkError(err)
			}
		case !inOld && inNew:
			if err := countingSink.Emit(diffop.DiffOp{Kind: diffop.KindSheetAdded, SheetName: nameID}); err != nil {
				return summaryOf(opCount, false, warnings, mc), diffop.WrapSinkError(err)
			}
		case matchedAt[i] >= 0:
			result := sheetResults[matchedAt[i]]
			warnings = append(warnings, result.Warnings...)
			if result.Err != nil {
				return summaryOf(opCount+countingSink.count, false, warnings, mc), result.Err
			}
			for _, op := range result.Ops {
				if err := countingSink.Emit(op); err != nil {
					return summaryOf(opCount+countingSink.count, false, warnings, mc), diffop.WrapSinkError(err)
				}
			}
		}
		opCount = countingSink.count
	}

	objectOps := diffObjects(old.Objects, newer.Objects, pool)
	for _, op := range objectOps {
		if ctrl.CheckTimeout(&warnings) {
			break
		}
		if err := countingSink.Emit(op); err != nil {
			return summaryOf(countingSink.count, false, warnings, mc), diffop.WrapSinkError(err)
		}
	}

	complete := !ctrl.ShouldAbort()
	if fw, ok := s.(interface {
		FinishWithSummary(bool, []string) error
	}); ok {
		err := fw.FinishWithSummary(complete, warnings)
		guard.Disarm()
		if err != nil {
			return summaryOf(countingSink.count, complete, warnings, mc), diffop.WrapSinkError(err)
		}
		return summaryOf(countingSink.count, complete, warnings, mc), nil
	}

	if err := guard.FinishAndDisarm(); err != nil {
		return summaryOf(countingSink.count, complete, warnings, mc), diffop.WrapSinkError(err)
	}
	return summaryOf(countingSink.count, complete, warnings, mc), nil
}

func unionSheetNames(a, b []Sheet) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	for _, sh := range a {
		seen[sh.Name] = struct{}{}
	}
	for _, sh := range b {
		seen[sh.Name] = struct{}{}
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func diffObjects(old, newer []NamedObject, pool *stringpool.Pool) []diffop.DiffOp {
	oldByKey := make(map[string]NamedObject, len(old))
	for _, o := range old {
		oldByKey[objectKey(o)] = o
	}
	newByKey := make(map[string]NamedObject, len(newer))
	for _, o := range newer {
		newByKey[objectKey(o)] = o
	}

	keys := make([]string, 0, len(oldByKey)+len(newByKey))
	seen := make(map[string]struct{})
	for _, list := range [][]NamedObject{old, newer} {
		for _, o := range list {
			k := objectKey(o)
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				keys = append(keys, k)
			}
		}
	}
	sort.Strings(keys)

	var ops []diffop.DiffOp
	for _, k := range keys {
		oldObj, inOld := oldByKey[k]
		newObj, inNew := newByKey[k]
		switch {
		case inOld && !inNew:
			ops = append(ops, diffop.DiffOp{
				Kind:        diffop.KindObjectRemoved,
				ObjectClass: oldObj.Class,
				ObjectName:  pool.Intern(oldObj.Name),
			})
		case !inOld && inNew:
			ops = append(ops, diffop.DiffOp{
				Kind:        diffop.KindObjectAdded,
				ObjectClass: newObj.Class,
				ObjectName:  pool.Intern(newObj.Name),
			})
		case oldObj.Definition != newObj.Definition:
			ops = append(ops, diffop.DiffOp{
				Kind:        diffop.KindObjectDefinitionChanged,
				ObjectClass: newObj.Class,
				ObjectName:  pool.Intern(newObj.Name),
				Detail:      newObj.Definition,
			})
		}
	}
	return ops
}

func objectKey(o NamedObject) string {
	return string(o.Class) + "\x00" + o.Name
}

func summaryOf(opCount int, complete bool, warnings []string, mc *metrics.Collector) diffop.DiffSummary {
	var snap *metrics.Snapshot
	if mc != nil {
		mc.EndPhase(metrics.PhaseTotal)
		s := mc.Snapshot()
		snap = &s
	}
	return diffop.DiffSummary{OpCount: opCount, Complete: complete, Warnings: warnings, Metrics: snap}
}

// countingSink wraps a DiffSink to track how many ops were actually
// emitted, for the summary's op_count.
type countingSink struct {
	inner sink.DiffSink
	count int
}

func (c *countingSink) Begin(pool *stringpool.Pool) error { return c.inner.Begin(pool) }

func (c *countingSink) Emit(op diffop.DiffOp) error {
	if err := c.inner.Emit(op); err != nil {
		return err
	}
	c.count++
	return nil
}

func (c *countingSink) Finish() error { return c.inner.Finish() }
