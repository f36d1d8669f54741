// Package workerpool parallelizes independent per-sheet diffs across a
// fixed pool of goroutines. Each sheet pair is diffed in isolation into
// its own buffer (sheets share no mutable state once grids are built),
// then the buffers are replayed into the caller's sink in the original
// sheet order so emission stays deterministic regardless of which
// worker finished first.
//
// Adapted from pkg/workerpool/pool.go: that pool is a general
// task/result queue with channel-based submission, optional dynamic
// scaling, and a boxed interface{} result value, built for arbitrary
// long-lived work. Sheet counts in a single workbook are small and
// known up front, so this keeps only what a one-shot, fixed-size batch
// of homogeneous jobs needs: a worker-count calculation sized to
// GOMAXPROCS, a WaitGroup-synchronized fan-out over a shared index
// channel, and a typed SheetResult slot per job instead of the
// teacher's generic Result.Value interface{}. Dynamic scaling, the
// Submit/SubmitFunc/SubmitBatch API surface, and the pool lifecycle
// (Start/Close/Stats) have no sheet-diff caller and are dropped rather
// than carried as unused surface.
package workerpool

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/sheetdiff/sheetdiff/internal/diffop"
	"github.com/sheetdiff/sheetdiff/internal/stringpool"
)

// SheetJob is one sheet pair to diff. Run performs the actual diff
// (typically a closure over engine.DiffSheet and the two grids) and
// must be safe to call concurrently with every other job's Run.
type SheetJob struct {
	NameID stringpool.ID
	Run    func() (ops []diffop.DiffOp, warnings []string, err error)
}

// SheetResult is one job's outcome.
type SheetResult struct {
	NameID   stringpool.ID
	Ops      []diffop.DiffOp
	Warnings []string
	Err      error
}

// DiffSheetsConcurrently runs every job's Run function on a fixed pool
// sized to min(len(jobs), GOMAXPROCS), returning one SheetResult per
// job in the same order jobs was given (not completion order), so the
// caller can replay ops deterministically regardless of which sheet
// finished diffing first. A canceled ctx stops workers from picking up
// further jobs; jobs already in flight still finish.
func DiffSheetsConcurrently(ctx context.Context, jobs []SheetJob) []SheetResult {
	results := make([]SheetResult, len(jobs))
	if len(jobs) == 0 {
		return results
	}

	size := runtime.GOMAXPROCS(0)
	if size > len(jobs) {
		size = len(jobs)
	}
	if size < 1 {
		size = 1
	}

	indices := make(chan int, len(jobs))
	for i := range jobs {
		indices <- i
	}
	close(indices)

	var wg sync.WaitGroup
	wg.Add(size)
	for w := 0; w < size; w++ {
		go func() {
			defer wg.Done()
			for i := range indices {
				select {
				case <-ctx.Done():
					results[i] = SheetResult{NameID: jobs[i].NameID, Err: ctx.Err()}
				default:
					results[i] = runSheetJob(jobs[i])
				}
			}
		}()
	}
	wg.Wait()

	return results
}

// runSheetJob runs one job's Run, converting a panic into an error
// result instead of taking down the whole pool — one malformed sheet
// (a parser producing an inconsistent grid, say) shouldn't cost the
// caller every other sheet's result.
func runSheetJob(job SheetJob) (result SheetResult) {
	defer func() {
		if r := recover(); r != nil {
			result = SheetResult{NameID: job.NameID, Err: fmt.Errorf("workerpool: sheet diff panicked: %v", r)}
		}
	}()
	ops, warnings, err := job.Run()
	return SheetResult{NameID: job.NameID, Ops: ops, Warnings: warnings, Err: err}
}
