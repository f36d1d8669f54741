// Package sink defines the three-method streaming contract ops flow
// through (spec.md §4.9): begin once, emit any number of times, finish
// exactly once on every path including error and cancellation.
package sink

import (
	"github.com/sheetdiff/sheetdiff/internal/diffop"
	"github.com/sheetdiff/sheetdiff/internal/stringpool"
)

// DiffSink is the capability set a diff consumer implements. It is a Go
// interface rather than a dynamically-dispatched global, per the
// polymorphic-sink design note in spec.md §9: callers hold a concrete
// sink value and the compiler devirtualizes the common cases.
type DiffSink interface {
	// Begin is called exactly once, before any Emit. Implementations
	// that need no setup can embed NoopHooks to get a no-op default.
	Begin(pool *stringpool.Pool) error

	// Emit is called zero or more times, in the deterministic order
	// described by spec.md §4.7. A sink MUST NOT be called again after
	// it returns an error from Emit.
	Emit(op diffop.DiffOp) error

	// Finish is called exactly once, even when Emit failed, except when
	// Begin itself failed. Calling Finish a second time is a caller bug.
	Finish() error
}

// NoopHooks gives embedding sinks default no-op Begin/Finish so they only
// need to implement Emit.
type NoopHooks struct{}

func (NoopHooks) Begin(*stringpool.Pool) error { return nil }
func (NoopHooks) Finish() error                { return nil }

// FinishGuard enforces "Finish runs at most once on all paths, including
// unwinding" without resorting to pointer tricks: callers construct one
// right after a successful Begin, then `defer guard.EnsureFinished()`.
// Calling FinishAndDisarm on the success path disarms the deferred
// best-effort call so Finish never runs twice.
type FinishGuard struct {
	sink  DiffSink
	armed bool
}

// NewFinishGuard arms a guard around sink. Call this only after Begin has
// already succeeded — per spec.md §4.9/§7, a failed Begin must not be
// followed by any Finish call at all.
func NewFinishGuard(s DiffSink) *FinishGuard {
	return &FinishGuard{sink: s, armed: true}
}

// FinishAndDisarm calls Finish exactly once and disarms the guard so the
// deferred EnsureFinished becomes a no-op.
func (g *FinishGuard) FinishAndDisarm() error {
	if !g.armed {
		return nil
	}
	g.armed = false
	return g.sink.Finish()
}

// Disarm marks the guard as finished without calling Finish, for callers
// that already finished the sink through a sink-specific method (e.g.
// JSONLinesSink.FinishWithSummary) and only need EnsureFinished to back off.
func (g *FinishGuard) Disarm() {
	g.armed = false
}

// EnsureFinished is the deferred best-effort fallback: if the explicit
// FinishAndDisarm call already ran, this is a no-op; otherwise (a panic
// or an early-return bug unwound past the explicit call) it still
// finishes the sink, swallowing the error so it never masks whatever
// caused the unwind.
func (g *FinishGuard) EnsureFinished() {
	if !g.armed {
		return
	}
	g.armed = false
	_ = g.sink.Finish()
}

// VecSink collects ops into a slice. Used by the non-streaming diff()
// convenience entry point and by tests checking streaming/non-streaming
// equivalence.
type VecSink struct {
	NoopHooks
	ops []diffop.DiffOp
}

func NewVecSink() *VecSink {
	return &VecSink{ops: make([]diffop.DiffOp, 0)}
}

func (s *VecSink) Emit(op diffop.DiffOp) error {
	s.ops = append(s.ops, op)
	return nil
}

func (s *VecSink) Ops() []diffop.DiffOp {
	return s.ops
}

// CallbackSink forwards every op to a user closure.
type CallbackSink struct {
	NoopHooks
	f func(diffop.DiffOp)
}

func NewCallbackSink(f func(diffop.DiffOp)) *CallbackSink {
	return &CallbackSink{f: f}
}

func (s *CallbackSink) Emit(op diffop.DiffOp) error {
	s.f(op)
	return nil
}
