package sccp

import (
	"sccp-opt/internal/diag"
	"sccp-opt/internal/ir"
)

// Config bounds the propagator's fixed-point search, per spec.md section 5.
type Config struct {
	MaxIterations     int
	MemoryLimitValues int
}

// DefaultConfig mirrors spec.md section 5's defaults: 100 safety iterations,
// a 100,000-entry lattice-map budget (a conservative proxy for the ~100KB
// per-function memory bound the spec describes; each entry here is a
// pointer-keyed map slot, not a raw byte count).
func DefaultConfig() Config {
	return Config{MaxIterations: 100, MemoryLimitValues: 100_000}
}

// Result is the propagator's fixed-point output: the lattice state of every
// SSA value and the set of edges proven executable.
type Result struct {
	Lattice    *LatticeMap
	Executable *executableSet
}

// Propagator runs the Wegman-Zadeck dual-worklist algorithm of spec.md
// sections 4.3-4.6 over a single function.
type Propagator struct {
	fn   *ir.Function
	eval *Evaluator
	sink diag.Sink
	cfg  Config

	lattice       *LatticeMap
	executable    *executableSet
	cfgWork       *cfgWorklist
	ssaWork       *ssaWorklist
	visitedBlocks map[*ir.BasicBlock]bool
}

// NewPropagator builds a propagator for fn; sink receives any warning
// diagnostics the evaluator or the iteration/memory guards emit.
func NewPropagator(fn *ir.Function, sink diag.Sink, cfg Config) *Propagator {
	if sink == nil {
		sink = diag.Discard{}
	}
	return &Propagator{
		fn:         fn,
		eval:       NewEvaluator(sink),
		sink:       sink,
		cfg:        cfg,
		lattice:    NewLatticeMap(),
		executable: newExecutableSet(fn.Entry),
		cfgWork:    newCFGWorklist(),
		ssaWork:    newSSAWorklist(),
	}
}

// Run executes the fixed-point loop to convergence (or until the safety
// iteration limit forces conservative widening) and returns the result.
func (p *Propagator) Run() *Result {
	p.initialize()

	iterations := 0
	for !p.cfgWork.empty() || !p.ssaWork.empty() {
		if p.cfg.MaxIterations > 0 && iterations >= p.cfg.MaxIterations {
			p.sink.Emit(diag.Diagnostic{
				Severity: diag.Warning,
				Code:     diag.CodeMaxIterationsExceeded,
				Message:  "SCCP safety iteration limit reached; widening remaining values to Bottom",
			})
			p.forceBottomFallback()
			break
		}
		iterations++

		if p.cfg.MemoryLimitValues > 0 && p.lattice.Len() > p.cfg.MemoryLimitValues {
			p.sink.Emit(diag.Diagnostic{
				Severity: diag.Warning,
				Code:     diag.CodeMemoryLimitExceeded,
				Message:  "SCCP lattice map exceeded the configured memory budget; widening remaining values to Bottom",
			})
			p.forceBottomFallback()
			break
		}

		if e, ok := p.cfgWork.pop(); ok {
			p.visitEdge(e)
			continue
		}
		if v, ok := p.ssaWork.pop(); ok {
			p.visitUses(v)
			continue
		}
	}

	return &Result{Lattice: p.lattice, Executable: p.executable}
}

// initialize implements spec.md section 4.5's setup: parameters and
// external references start at Bottom (unknown at compile time); every
// other SSA value starts at Top (unmapped); the entry block is then visited
// directly, without marking any edge into it, and its terminator enqueues
// the first CFG edges.
func (p *Propagator) initialize() {
	for _, param := range p.fn.Params {
		if param.Value != nil {
			p.lattice.Set(param.Value, BottomValue())
		}
	}
	for _, block := range p.fn.Blocks {
		for _, inst := range block.Instructions {
			if r := inst.GetResult(); r != nil {
				if r.IsParam || r.IsExternal {
					p.lattice.Set(r, BottomValue())
				}
			}
		}
	}

	// The entry block is reachable unconditionally; seed it directly
	// rather than via a self-edge so executableSet.blockReachable's
	// entry special-case is the single source of truth.
	p.visitBlock(p.fn.Entry)
}

// visitEdge implements spec.md section 4.4: marking a CFG edge executable
// (if not already) makes its target block's instructions eligible for
// (re-)evaluation, starting with its phis (since the new edge may change
// a phi's meet).
func (p *Propagator) visitEdge(e cfgEdge) {
	if !p.executable.mark(e.from, e.to) {
		return
	}
	p.visitBlock(e.to)
}

// visitBlock (re-)evaluates every phi and, if this is the block's first
// reachable visit, every non-phi instruction and its terminator.
func (p *Propagator) visitBlock(block *ir.BasicBlock) {
	firstVisit := !p.blockVisited(block)

	for _, phi := range block.Phis() {
		p.visitPhi(phi)
	}

	if !firstVisit {
		return
	}
	p.markBlockVisited(block)

	for _, inst := range block.NonPhis() {
		p.visitInstruction(inst)
	}
	p.visitTerminator(block.Terminator)
}

// blockVisited/markBlockVisited track first-visit status for non-phi
// instructions using reachability itself: a block's non-phi body is
// visited exactly once, the first time any edge into it (or entry) fires.
// We approximate "first visit" with a side set rather than re-deriving it
// from executable-edge count, since a block can gain further incoming
// edges later without needing its straight-line body re-run (spec.md
// 4.6: non-phi instructions only ever need one evaluation; only their
// *uses* get re-queued when an operand's lattice value changes).
func (p *Propagator) blockVisited(block *ir.BasicBlock) bool {
	return p.visitedBlocks[block]
}

func (p *Propagator) markBlockVisited(block *ir.BasicBlock) {
	if p.visitedBlocks == nil {
		p.visitedBlocks = make(map[*ir.BasicBlock]bool)
	}
	p.visitedBlocks[block] = true
}

// visitPhi implements spec.md section 4.4's phi visit rule: meet the
// incoming values over only the executable predecessor edges (the
// "sparse conditional" property — a not-yet-proven-reachable predecessor
// contributes nothing, it is not merged as Top).
func (p *Propagator) visitPhi(phi *ir.PhiInstruction) {
	result := TopValue()
	any := false
	for _, in := range phi.Inputs {
		if !p.executable.contains(in.Pred, phi.GetBlock()) {
			continue
		}
		any = true
		iv := p.lattice.Get(in.Value)
		m, mismatch := Meet(result, iv)
		if mismatch {
			p.sink.Emit(diag.Diagnostic{
				Severity: diag.Warning,
				Code:     diag.CodeTypeMismatchInMeet,
				Message:  "phi merged operands of different types",
				Value:    phi.Result.String(),
			})
		}
		result = m
	}
	if !any {
		result = TopValue()
	}
	p.update(phi.Result, result)
}

// visitInstruction implements spec.md section 4.2's abstract interpreter
// dispatch for every non-phi, non-terminator instruction kind.
func (p *Propagator) visitInstruction(inst ir.Instruction) {
	switch n := inst.(type) {
	case *ir.ConstInstruction:
		p.update(n.Result, ConstantValue(n.Value))
	case *ir.BinaryInstruction:
		p.visitBinary(n)
	case *ir.UnaryInstruction:
		p.visitUnary(n)
	case *ir.CastInstruction:
		p.visitCast(n)
	case *ir.LoadInstruction, *ir.CallInstruction, *ir.GEPInstruction:
		// Memory, calls and address arithmetic are always unknown at
		// compile time (spec.md 4.2's "GEP and String operations always
		// evaluate to None").
		if r := inst.GetResult(); r != nil {
			p.update(r, BottomValue())
		}
	case *ir.StoreInstruction:
		// No result to track.
	}
}

func (p *Propagator) visitBinary(n *ir.BinaryInstruction) {
	l := p.lattice.Get(n.Left)
	r := p.lattice.Get(n.Right)
	switch {
	case l.IsBottom() || r.IsBottom():
		p.update(n.Result, BottomValue())
	case l.IsTop() || r.IsTop():
		p.update(n.Result, TopValue())
	default:
		lc, _ := l.AsConstant()
		rc, _ := r.AsConstant()
		res, ok := p.eval.EvalBinary(n.Op, lc, rc)
		if !ok {
			p.update(n.Result, BottomValue())
			return
		}
		p.update(n.Result, ConstantValue(res))
	}
}

func (p *Propagator) visitUnary(n *ir.UnaryInstruction) {
	v := p.lattice.Get(n.Operand)
	switch {
	case v.IsBottom():
		p.update(n.Result, BottomValue())
	case v.IsTop():
		p.update(n.Result, TopValue())
	default:
		vc, _ := v.AsConstant()
		res, ok := p.eval.EvalUnary(n.Op, vc)
		if !ok {
			p.update(n.Result, BottomValue())
			return
		}
		p.update(n.Result, ConstantValue(res))
	}
}

func (p *Propagator) visitCast(n *ir.CastInstruction) {
	v := p.lattice.Get(n.Source)
	switch {
	case v.IsBottom():
		p.update(n.Result, BottomValue())
	case v.IsTop():
		p.update(n.Result, TopValue())
	default:
		vc, _ := v.AsConstant()
		res, ok := p.eval.EvalCast(vc, n.To)
		if !ok {
			p.update(n.Result, BottomValue())
			return
		}
		p.update(n.Result, ConstantValue(res))
	}
}

// visitTerminator implements spec.md section 4.6's terminator evaluation:
// Return contributes nothing further; Branch always fires its single
// successor edge; CondBranch fires one, both, or neither successor edge
// depending on the condition's lattice state; Switch fires the matching
// case, every case plus Default when the selector is Bottom, nothing while
// the selector is still Top, or just Default when the selector is a
// constant matching no case.
func (p *Propagator) visitTerminator(term ir.Terminator) {
	block := term.GetBlock()
	switch t := term.(type) {
	case *ir.ReturnTerminator:
		// no successors
	case *ir.BranchTerminator:
		p.cfgWork.push(block, t.Target)
	case *ir.CondBranchTerminator:
		cond := p.lattice.Get(t.Condition)
		switch {
		case cond.IsTop():
			// not yet known; no edge fires until the condition resolves
		case cond.IsBottom():
			p.cfgWork.push(block, t.TrueBlock)
			p.cfgWork.push(block, t.FalseBlock)
		default:
			c, _ := cond.AsConstant()
			if c.Bool() {
				p.cfgWork.push(block, t.TrueBlock)
			} else {
				p.cfgWork.push(block, t.FalseBlock)
			}
		}
	case *ir.SwitchTerminator:
		sel := p.lattice.Get(t.Selector)
		switch {
		case sel.IsTop():
			// nothing fires yet
		case sel.IsBottom():
			for _, c := range t.Cases {
				p.cfgWork.push(block, c.Target)
			}
			p.cfgWork.push(block, t.Default)
		default:
			sc, _ := sel.AsConstant()
			matched := false
			for _, c := range t.Cases {
				if c.Value.Equal(sc) {
					p.cfgWork.push(block, c.Target)
					matched = true
					break
				}
			}
			if !matched {
				p.cfgWork.push(block, t.Default)
			}
		}
	case *ir.UnreachableTerminator:
		// no successors
	}
}

// visitUses re-evaluates every instruction that uses v after v's lattice
// value changed: phis of executable-reachable blocks, every other
// instruction kind, and if v feeds a terminator's condition/selector, that
// terminator.
func (p *Propagator) visitUses(v *ir.Value) {
	for _, use := range v.Uses {
		if !p.executable.blockReachable(use.Block) {
			continue
		}
		switch inst := use.User.(type) {
		case *ir.PhiInstruction:
			p.visitPhi(inst)
		case ir.Terminator:
			p.visitTerminator(inst)
		default:
			p.visitInstruction(inst)
		}
	}
}

// update applies spec.md section 4.1's monotonic-merge rule: a value's
// lattice state only ever moves Top -> Constant -> Bottom. Any change
// requeues every use (the "SSA edge" worklist).
func (p *Propagator) update(v *ir.Value, newVal LatticeValue) {
	if v == nil {
		return
	}
	old := p.lattice.Get(v)
	merged, mismatch := Meet(old, newVal)
	if mismatch {
		p.sink.Emit(diag.Diagnostic{
			Severity: diag.Warning,
			Code:     diag.CodeTypeMismatchInMeet,
			Message:  "value updated with operand of a different type",
			Value:    v.String(),
		})
	}
	if merged == old {
		return
	}
	p.lattice.Set(v, merged)
	p.ssaWork.push(v)
}

// forceBottomFallback implements the conservative fallback of spec.md
// section 5: every value not yet proven Constant is widened to Bottom so
// the rewriter still has a well-defined, safe (if less optimized) lattice
// to work from.
func (p *Propagator) forceBottomFallback() {
	for _, block := range p.fn.Blocks {
		for _, inst := range block.Instructions {
			if r := inst.GetResult(); r != nil && !p.lattice.Get(r).IsConstant() {
				p.lattice.Set(r, BottomValue())
			}
		}
	}
}
