package sink

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sheetdiff/sheetdiff/internal/diffop"
	"github.com/sheetdiff/sheetdiff/internal/stringpool"
)

type countingSink struct {
	NoopHooks
	finishCalls int
	emitErr     error
}

func (s *countingSink) Finish() error {
	s.finishCalls++
	return nil
}

func (s *countingSink) Emit(diffop.DiffOp) error { return s.emitErr }

func TestFinishGuardRunsOnceOnSuccessPath(t *testing.T) {
	inner := &countingSink{}
	guard := NewFinishGuard(inner)
	func() {
		defer guard.EnsureFinished()
		assert.NoError(t, guard.FinishAndDisarm())
	}()
	assert.Equal(t, 1, inner.finishCalls)
}

func TestFinishGuardRunsOnceOnPanicUnwind(t *testing.T) {
	inner := &countingSink{}
	guard := NewFinishGuard(inner)

	func() {
		defer func() { _ = recover() }()
		defer guard.EnsureFinished()
		panic("boom")
	}()

	assert.Equal(t, 1, inner.finishCalls)
}

func TestVecSinkCollectsInOrder(t *testing.T) {
	s := NewVecSink()
	_ = s.Begin(stringpool.New())
	_ = s.Emit(diffop.DiffOp{Kind: diffop.KindRowAdded, RowIdx: 1})
	_ = s.Emit(diffop.DiffOp{Kind: diffop.KindRowAdded, RowIdx: 2})
	assert.Len(t, s.Ops(), 2)
	assert.Equal(t, uint32(1), s.Ops()[0].RowIdx)
}

func TestCallbackSinkForwardsOps(t *testing.T) {
	var seen []diffop.Kind
	s := NewCallbackSink(func(op diffop.DiffOp) { seen = append(seen, op.Kind) })
	_ = s.Emit(diffop.DiffOp{Kind: diffop.KindCellEdited})
	assert.Equal(t, []diffop.Kind{diffop.KindCellEdited}, seen)
}

func TestEmitErrorDoesNotPreventFinish(t *testing.T) {
	inner := &countingSink{emitErr: errors.New("boom")}
	guard := NewFinishGuard(inner)
	defer guard.EnsureFinished()

	err := inner.Emit(diffop.DiffOp{})
	assert.Error(t, err)
	assert.NoError(t, guard.FinishAndDisarm())
	assert.Equal(t, 1, inner.finishCalls)
}
