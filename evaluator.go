// Copyright 2016 - 2025 The excelize Authors. All rights reserved. Use of
// this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package formulagraph

import (
	"log"
	"math"
	"time"
)

// slowFormulaThreshold is the evaluation time above which a formula is
// logged.
const slowFormulaThreshold = 50 * time.Millisecond

// Evaluator computes formula vertices in dependency order.
type Evaluator struct {
	graph  *DependencyGraph
	ip     *Interpreter
	search ColumnSearchStrategy
	stats  *Statistics
	logger *log.Logger

	allowCycles bool
	iterations  int
	tolerance   float64
}

func newEvaluator(graph *DependencyGraph, ip *Interpreter, search ColumnSearchStrategy, stats *Statistics, opts *Options) *Evaluator {
	return &Evaluator{
		graph:       graph,
		ip:          ip,
		search:      search,
		stats:       stats,
		logger:      opts.Logger,
		allowCycles: opts.AllowCircularReferences,
		iterations:  opts.IterationLimit,
		tolerance:   opts.ConvergenceTolerance,
	}
}

// Run evaluates every vertex of the graph.
func (e *Evaluator) Run() []cellChange {
	var all []VertexID
	e.graph.g.forEach(func(id VertexID, _ *vertex) {
		all = append(all, id)
	})
	clear(e.graph.dirty)
	return e.evaluate(all)
}

// PartialRun evaluates roots, everything reading them directly or
// transitively, and the volatile formulas.
func (e *Evaluator) PartialRun(roots []VertexID) []cellChange {
	g := e.graph.g
	seen := make(map[VertexID]struct{}, len(roots))
	var nodes []VertexID
	stack := append([]VertexID(nil), roots...)
	for id := range g.volatile {
		stack = append(stack, id)
	}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := seen[id]; ok || !g.exists(id) {
			continue
		}
		seen[id] = struct{}{}
		nodes = append(nodes, id)
		stack = append(stack, g.dependents(id)...)
	}
	if len(nodes) == 0 {
		return nil
	}
	return e.evaluate(nodes)
}

func (e *Evaluator) evaluate(nodes []VertexID) []cellChange {
	var changes []cellChange
	e.stats.measure(statEvaluation, func() {
		for _, id := range nodes {
			e.graph.clearRangeCaches(id)
		}
		for _, comp := range topoSort(e.graph.g, nodes) {
			if comp.cyclic {
				changes = append(changes, e.evaluateCycle(comp.ids)...)
				continue
			}
			changes = append(changes, e.evaluateVertex(comp.ids[0])...)
		}
	})
	return changes
}

// compute evaluates one formula vertex and returns its new result without
// storing it.
func (e *Evaluator) compute(id VertexID, f *formulaCell) Result {
	if f.shapeError.IsError() {
		return scalarResult(f.shapeError)
	}
	start := time.Now()
	e.ip.beginFormula(id, f)
	res := e.ip.eval(f.ast, f.address, e.ip.arrayMode || f.array != nil)
	e.ip.endFormula()
	e.stats.inc(statEvaluatedFormulas)
	if took := time.Since(start); took > slowFormulaThreshold && e.logger != nil {
		e.logger.Printf("[Evaluator] formula %s at %s took %s", f.raw, f.address, took)
	}
	return res
}

// store writes a result into a formula vertex and reports the cells whose
// value changed.
func (e *Evaluator) store(v *vertex, f *formulaCell, res Result) []cellChange {
	var changes []cellChange
	note := func(addr SimpleCellAddress, old, new Value) {
		if !sameValue(old, new) {
			changes = append(changes, cellChange{addr: addr, old: old, new: new})
			e.search.Change(old, new, addr)
		}
	}
	if f.name != "" {
		f.value = e.ip.scalar(res, f.address)
		return nil
	}
	if f.array == nil {
		old := f.value
		f.value = e.ip.scalar(res, f.address)
		note(f.address, old, f.value)
		return changes
	}
	spill := f.array
	next := newArrayValue(spill.width, spill.height)
	switch {
	case res.Matrix != nil:
		for row := range spill.height {
			for col := range spill.width {
				next.Data[row][col] = res.Matrix.At(col, row)
			}
		}
	case res.Value.IsError():
		for row := range spill.height {
			for col := range spill.width {
				next.Data[row][col] = res.Value
			}
		}
	default:
		next.Data[0][0] = res.Value
	}
	rect := RangeFrom(f.address, spill.width, spill.height)
	old := make([]Value, 0, spill.width*spill.height)
	rect.Addresses(func(a SimpleCellAddress) bool {
		old = append(old, v.cellValue(a))
		return true
	})
	spill.values = next
	f.value = next.At(0, 0)
	i := 0
	rect.Addresses(func(a SimpleCellAddress) bool {
		note(a, old[i], v.cellValue(a))
		i++
		return true
	})
	return changes
}

func (e *Evaluator) evaluateVertex(id VertexID) []cellChange {
	v := e.graph.g.get(id)
	if v == nil || !v.isFormula() {
		return nil
	}
	f := e.graph.sync(v)
	return e.store(v, f, e.compute(id, f))
}

// evaluateCycle either iterates a strongly connected component to a fixed
// point or sets every formula in it to CYCLE.
func (e *Evaluator) evaluateCycle(ids []VertexID) []cellChange {
	g := e.graph.g
	var formulas []VertexID
	for _, id := range ids {
		if v := g.get(id); v != nil && v.isFormula() {
			formulas = append(formulas, id)
		}
	}
	var changes []cellChange
	if e.allowCycles {
		converged, iterated := e.iterate(ids, formulas)
		if converged {
			return iterated
		}
		changes = iterated
	}
	for _, id := range formulas {
		v := g.get(id)
		f := e.graph.sync(v)
		changes = append(changes, e.store(v, f, scalarResult(CellError(ErrorCycle, "circular reference")))...)
	}
	return changes
}

// iterate recomputes the members of a cycle in creation order until the
// largest change drops to the tolerance. It reports whether the iteration
// converged along with every value change made on the way.
func (e *Evaluator) iterate(ids, formulas []VertexID) (bool, []cellChange) {
	var changes []cellChange
	g := e.graph.g
	for range e.iterations {
		for _, id := range ids {
			e.graph.clearRangeCaches(id)
		}
		delta := 0.0
		for _, id := range formulas {
			v := g.get(id)
			f := e.graph.sync(v)
			before := f.value
			changes = append(changes, e.store(v, f, e.compute(id, f))...)
			delta = math.Max(delta, valueDistance(before, f.value))
		}
		if delta <= e.tolerance {
			return true, changes
		}
	}
	if e.logger != nil {
		e.logger.Printf("[Evaluator] cycle of %d formulas did not converge in %d iterations", len(formulas), e.iterations)
	}
	return false, changes
}

// valueDistance measures how far an iterated value moved.
func valueDistance(a, b Value) float64 {
	if a.IsEmpty() {
		a = NumberValue(0)
	}
	if a.Type == ValueNumber && b.Type == ValueNumber {
		return math.Abs(a.Number - b.Number)
	}
	if sameValue(a, b) {
		return 0
	}
	return math.Inf(1)
}
