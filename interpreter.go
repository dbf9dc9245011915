// Copyright 2016 - 2025 The excelize Authors. All rights reserved. Use of
// this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package formulagraph

import (
	"math"
	"math/rand/v2"
	"strings"
	"time"
)

// RangeValue is a rectangular operand: either a block of computed values or
// a window onto the grid read through the dependency graph.
type RangeValue struct {
	data *ArrayValue

	// rng is the area read, clamped to the sheet extent; source is the
	// range as written, which keys its range vertex.
	rng    AbsoluteCellRange
	source AbsoluteCellRange
	hasRng bool
	graph  *DependencyGraph
}

// NewRangeValue wraps a computed block.
func NewRangeValue(a *ArrayValue) *RangeValue {
	return &RangeValue{data: a}
}

func scalarRange(v Value) *RangeValue {
	a := newArrayValue(1, 1)
	a.Data[0][0] = v
	return NewRangeValue(a)
}

// rangeValue returns a window onto rng.
func (d *DependencyGraph) rangeValue(rng AbsoluteCellRange) *RangeValue {
	return &RangeValue{rng: d.clamp(rng), source: rng, hasRng: true, graph: d}
}

// Range returns the grid area behind the value, if any.
func (r *RangeValue) Range() (AbsoluteCellRange, bool) {
	return r.rng, r.hasRng
}

// Width returns the number of columns.
func (r *RangeValue) Width() int {
	if r.hasRng {
		if r.rng.IsEmpty() {
			return 0
		}
		return r.rng.Width()
	}
	return r.data.Width
}

// Height returns the number of rows.
func (r *RangeValue) Height() int {
	if r.hasRng {
		if r.rng.IsEmpty() {
			return 0
		}
		return r.rng.Height()
	}
	return r.data.Height
}

// At returns the value at a zero-based offset.
func (r *RangeValue) At(col, row int) Value {
	if r.hasRng {
		if col < 0 || row < 0 || col >= r.Width() || row >= r.Height() {
			return EmptyValue()
		}
		return r.graph.CellValue(Addr(r.rng.Sheet(), r.rng.Start.Col+col, r.rng.Start.Row+row))
	}
	return r.data.At(col, row)
}

// Array materializes the values.
func (r *RangeValue) Array() *ArrayValue {
	if !r.hasRng {
		return r.data
	}
	out := newArrayValue(r.Width(), r.Height())
	for row := range out.Height {
		for col := range out.Width {
			out.Data[row][col] = r.At(col, row)
		}
	}
	return out
}

// each visits the values in row-major order until fn returns false.
func (r *RangeValue) each(fn func(Value) bool) {
	w, h := r.Width(), r.Height()
	for row := range h {
		for col := range w {
			if !fn(r.At(col, row)) {
				return
			}
		}
	}
}

// column returns the col-th column as a range value.
func (r *RangeValue) column(col int) *RangeValue {
	if r.hasRng {
		rng := r.rng
		rng.Start.Col += col
		rng.End.Col = rng.Start.Col
		return &RangeValue{rng: rng, source: rng, hasRng: true, graph: r.graph}
	}
	out := newArrayValue(1, r.Height())
	for row := range out.Height {
		out.Data[row][0] = r.At(col, row)
	}
	return NewRangeValue(out)
}

// Result is what an expression evaluates to: a scalar, or a matrix when
// Matrix is set.
type Result struct {
	Value  Value
	Matrix *RangeValue
}

func scalarResult(v Value) Result { return Result{Value: v} }

func matrixResult(m *RangeValue) Result { return Result{Matrix: m} }

// Interpreter evaluates formula trees against the dependency graph.
type Interpreter struct {
	graph     *DependencyGraph
	registry  *FunctionRegistry
	arith     *arithmetic
	search    ColumnSearchStrategy
	stats     *Statistics
	async     *asyncRunner
	arrayMode bool
	rand      *rand.Rand
	now       func() time.Time

	// the formula being evaluated, for async bookkeeping
	current   VertexID
	currentF  *formulaCell
	asyncUsed map[string]struct{}
}

func newInterpreter(graph *DependencyGraph, registry *FunctionRegistry, arith *arithmetic, search ColumnSearchStrategy, stats *Statistics, async *asyncRunner, arrayMode bool) *Interpreter {
	seed := uint64(time.Now().UnixNano())
	return &Interpreter{
		graph:     graph,
		registry:  registry,
		arith:     arith,
		search:    search,
		stats:     stats,
		async:     async,
		arrayMode: arrayMode,
		rand:      rand.New(rand.NewPCG(seed, seed>>1)),
		now:       time.Now,
	}
}

// CellValue returns the current value of a cell.
func (ip *Interpreter) CellValue(addr SimpleCellAddress) Value {
	return ip.graph.CellValue(addr)
}

// RangeValues returns a window onto rng.
func (ip *Interpreter) RangeValues(rng AbsoluteCellRange) *RangeValue {
	return ip.graph.rangeValue(rng)
}

// SearchStrategy returns the lookup strategy of the engine.
func (ip *Interpreter) SearchStrategy() ColumnSearchStrategy {
	return ip.search
}

// Evaluate computes ast as written in the cell base.
func (ip *Interpreter) Evaluate(ast *Ast, base SimpleCellAddress) Result {
	return ip.eval(ast, base, ip.arrayMode)
}

// beginFormula and endFormula bracket the evaluation of one formula vertex.
// Async calls the formula no longer makes are forgotten, so their late
// results are discarded.
func (ip *Interpreter) beginFormula(id VertexID, f *formulaCell) {
	ip.current, ip.currentF = id, f
	ip.asyncUsed = nil
}

func (ip *Interpreter) endFormula() {
	if f := ip.currentF; f != nil {
		for key := range f.async {
			if _, ok := ip.asyncUsed[key]; !ok {
				delete(f.async, key)
			}
		}
	}
	ip.current, ip.currentF, ip.asyncUsed = noVertex, nil, nil
}

func (ip *Interpreter) eval(n *Ast, base SimpleCellAddress, arith bool) Result {
	switch n.Type {
	case AstEmpty:
		return scalarResult(EmptyValue())
	case AstNumber:
		return scalarResult(NumberValue(n.Number))
	case AstString:
		return scalarResult(StringValue(n.String))
	case AstBoolean:
		return scalarResult(BoolValue(n.Boolean))
	case AstError:
		return scalarResult(CellError(n.Error, n.String))
	case AstName:
		f := ip.graph.namedFormula(n.Name)
		if f == nil {
			return scalarResult(CellError(ErrorName, "unknown name "+n.Name))
		}
		if f.ast.isReference() {
			return ip.eval(f.ast, f.address, arith)
		}
		return scalarResult(f.value)
	case AstCellReference:
		addr := n.Ref.ToSimple(base)
		if !addr.IsValid() || !ip.graph.addresses.HasSheet(addr.Sheet) {
			return scalarResult(CellError(ErrorRef, "reference is not valid"))
		}
		return scalarResult(ip.graph.CellValue(addr))
	case AstCellRange, AstColumnRange, AstRowRange:
		rng, ok := n.rangeOf(base)
		if !ok || !ip.graph.addresses.HasSheet(rng.Sheet()) {
			return scalarResult(CellError(ErrorRef, "range is not valid"))
		}
		return matrixResult(ip.graph.rangeValue(rng))
	case AstParenthesis:
		return ip.eval(n.Args[0], base, arith)
	case AstUnaryMinus, AstUnaryPlus, AstPercent:
		op := func(v Value) Value { return ip.unaryOp(n.Type, v) }
		res := ip.eval(n.Args[0], base, arith)
		if res.Matrix != nil && arith {
			return ip.broadcast(res, scalarResult(EmptyValue()), func(l, _ Value) Value { return op(l) })
		}
		return scalarResult(op(ip.scalar(res, base)))
	case AstBinary:
		left, right := ip.eval(n.Args[0], base, arith), ip.eval(n.Args[1], base, arith)
		op := func(l, r Value) Value { return ip.binaryOp(n.Op, l, r) }
		if arith && (left.Matrix != nil || right.Matrix != nil) {
			return ip.broadcast(left, right, op)
		}
		return scalarResult(op(ip.scalar(left, base), ip.scalar(right, base)))
	case AstFunctionCall:
		return ip.call(n, base, arith)
	case AstArray:
		return ip.arrayLiteral(n, base, arith)
	}
	return scalarResult(CellError(ErrorValue, "unsupported expression"))
}

// scalar reduces a result to one value. A single row or column of the grid
// is intersected with the formula's own row or column.
func (ip *Interpreter) scalar(res Result, base SimpleCellAddress) Value {
	m := res.Matrix
	if m == nil {
		return res.Value
	}
	w, h := m.Width(), m.Height()
	if w == 1 && h == 1 {
		return m.At(0, 0)
	}
	if m.hasRng && m.rng.Sheet() == base.Sheet {
		switch {
		case w == 1 && base.Row >= m.rng.Start.Row && base.Row <= m.rng.End.Row:
			return m.At(0, base.Row-m.rng.Start.Row)
		case h == 1 && base.Col >= m.rng.Start.Col && base.Col <= m.rng.End.Col:
			return m.At(base.Col-m.rng.Start.Col, 0)
		}
	}
	return CellError(ErrorValue, "range used where a single value is expected")
}

func asMatrix(res Result) *RangeValue {
	if res.Matrix != nil {
		return res.Matrix
	}
	return scalarRange(res.Value)
}

// pick reads an operand of an elementwise operation, repeating single rows
// and columns.
func pick(m *RangeValue, col, row int) Value {
	if m.Width() == 1 {
		col = 0
	}
	if m.Height() == 1 {
		row = 0
	}
	if col >= m.Width() || row >= m.Height() {
		return CellError(ErrorNA, "operands differ in size")
	}
	return m.At(col, row)
}

// broadcast applies fn elementwise over the larger of both operand sizes.
func (ip *Interpreter) broadcast(left, right Result, fn func(l, r Value) Value) Result {
	lm, rm := asMatrix(left), asMatrix(right)
	w, h := max(lm.Width(), rm.Width()), max(lm.Height(), rm.Height())
	out := newArrayValue(w, h)
	for row := range h {
		for col := range w {
			out.Data[row][col] = fn(pick(lm, col, row), pick(rm, col, row))
		}
	}
	return matrixResult(NewRangeValue(out))
}

func (ip *Interpreter) unaryOp(t AstType, v Value) Value {
	if v.IsError() || v.IsPending() {
		return v
	}
	n, errV, ok := toNumber(v)
	if !ok {
		return errV
	}
	switch t {
	case AstUnaryMinus:
		return NumberValue(-n)
	case AstPercent:
		return NumberValue(n / 100)
	}
	return NumberValue(n)
}

func numberResult(n float64) Value {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return CellError(ErrorNum, "result is not a finite number")
	}
	return NumberValue(n)
}

// binaryOp applies an infix operator to two scalars. The first error from
// the left wins.
func (ip *Interpreter) binaryOp(op string, l, r Value) Value {
	for _, v := range []Value{l, r} {
		if v.IsError() {
			return v
		}
		if v.IsPending() {
			return PendingValue()
		}
	}
	switch op {
	case "&":
		return StringValue(l.Text() + r.Text())
	case "=", "<>", "<", ">", "<=", ">=":
		cmp := ip.arith.compare(l, r)
		switch op {
		case "=":
			return BoolValue(cmp == 0)
		case "<>":
			return BoolValue(cmp != 0)
		case "<":
			return BoolValue(cmp < 0)
		case ">":
			return BoolValue(cmp > 0)
		case "<=":
			return BoolValue(cmp <= 0)
		}
		return BoolValue(cmp >= 0)
	}
	ln, errV, ok := toNumber(l)
	if !ok {
		return errV
	}
	rn, errV, ok := toNumber(r)
	if !ok {
		return errV
	}
	switch op {
	case "+":
		return numberResult(ip.arith.addWithEpsilon(ln, rn))
	case "-":
		return numberResult(ip.arith.addWithEpsilon(ln, -rn))
	case "*":
		return numberResult(ln * rn)
	case "/":
		if rn == 0 {
			return CellError(ErrorDivByZero, "division by zero")
		}
		return numberResult(ln / rn)
	case "^":
		return numberResult(math.Pow(ln, rn))
	}
	return CellError(ErrorValue, "unknown operator "+op)
}

// arrayLiteral joins the blocks of an array literal row by row.
func (ip *Interpreter) arrayLiteral(n *Ast, base SimpleCellAddress, arith bool) Result {
	var bands []*ArrayValue
	width := -1
	for _, row := range n.Rows {
		var blocks []*RangeValue
		height, rowWidth := -1, 0
		for _, cell := range row {
			res := ip.eval(cell, base, arith)
			if res.Matrix == nil && res.Value.IsError() {
				return res
			}
			m := asMatrix(res)
			if height < 0 || m.Height() < height {
				height = m.Height()
			}
			rowWidth += m.Width()
			blocks = append(blocks, m)
		}
		band := newArrayValue(rowWidth, max(height, 0))
		col := 0
		for _, m := range blocks {
			for r := range band.Height {
				for c := range m.Width() {
					band.Data[r][col+c] = m.At(c, r)
				}
			}
			col += m.Width()
		}
		bands = append(bands, band)
		if width < 0 || rowWidth < width {
			width = rowWidth
		}
	}
	height := 0
	for _, b := range bands {
		height += b.Height
	}
	out := newArrayValue(max(width, 0), height)
	r := 0
	for _, b := range bands {
		for br := range b.Height {
			copy(out.Data[r], b.Data[br][:out.Width])
			r++
		}
	}
	if out.Width == 1 && out.Height == 1 {
		return scalarResult(out.Data[0][0])
	}
	return matrixResult(NewRangeValue(out))
}

// call evaluates a function call node.
func (ip *Interpreter) call(n *Ast, base SimpleCellAddress, arith bool) Result {
	fn, ok := ip.registry.Get(n.Name)
	if !ok {
		return scalarResult(CellError(ErrorName, "unknown function "+n.Name))
	}
	c := &FunctionCall{Name: n.Name, Args: n.Args, Address: base, ip: ip, arith: arith || fn.ArrayArgs}
	if fn.Async != nil {
		return scalarResult(ip.callAsync(c, fn))
	}
	return fn.Impl(c)
}

// asyncKey identifies an async call by function and arguments.
func asyncKey(name string, args []Value) string {
	var b strings.Builder
	b.WriteString(name)
	b.WriteByte('(')
	for i, a := range args {
		if i > 0 {
			b.WriteByte(0x1f)
		}
		b.WriteByte('0' + byte(a.Type))
		b.WriteString(a.Text())
	}
	b.WriteByte(')')
	return b.String()
}

// callAsync returns the resolved value of an async call, or Pending while
// it runs. The first evaluation starts the call.
func (ip *Interpreter) callAsync(c *FunctionCall, fn *FunctionMetadata) Value {
	args := make([]Value, len(c.Args))
	for i := range c.Args {
		v := c.Scalar(i)
		if v.IsError() || v.IsPending() {
			return v
		}
		args[i] = v
	}
	f := ip.currentF
	if f == nil || ip.async == nil {
		return CellError(ErrorValue, "async function used outside a formula")
	}
	key := asyncKey(c.Name, args)
	if ip.asyncUsed == nil {
		ip.asyncUsed = make(map[string]struct{})
	}
	ip.asyncUsed[key] = struct{}{}
	if call, ok := f.async[key]; ok {
		if call.resolved {
			return call.value
		}
		return PendingValue()
	}
	if f.async == nil {
		f.async = make(map[string]*asyncCall)
	}
	call := newAsyncCall(key)
	f.async[key] = call
	ip.async.start(ip.current, call, fn.Async, args)
	return PendingValue()
}

// FunctionCall is one invocation of a built-in or plugin function. Arguments
// are evaluated on demand.
type FunctionCall struct {
	Name    string
	Args    []*Ast
	Address SimpleCellAddress

	ip    *Interpreter
	arith bool
}

// Interpreter returns the interpreter running the call.
func (c *FunctionCall) Interpreter() *Interpreter { return c.ip }

// Arg evaluates the i-th argument. A missing argument is empty.
func (c *FunctionCall) Arg(i int) Result {
	if i >= len(c.Args) {
		return scalarResult(EmptyValue())
	}
	return c.ip.eval(c.Args[i], c.Address, c.arith)
}

// Scalar evaluates the i-th argument to a single value.
func (c *FunctionCall) Scalar(i int) Value {
	return c.ip.scalar(c.Arg(i), c.Address)
}

// Matrix evaluates the i-th argument as a block. A scalar error is
// returned as the second result.
func (c *FunctionCall) Matrix(i int) (*RangeValue, Value) {
	res := c.Arg(i)
	if res.Matrix == nil && (res.Value.IsError() || res.Value.IsPending()) {
		return nil, res.Value
	}
	return asMatrix(res), Value{}
}

// Number evaluates the i-th argument to a number.
func (c *FunctionCall) Number(i int) (float64, Value, bool) {
	return toNumber(c.Scalar(i))
}

func (c *FunctionCall) numberOr(i int, def float64) (float64, Value, bool) {
	if i >= len(c.Args) || c.Args[i].Type == AstEmpty {
		return def, Value{}, true
	}
	return c.Number(i)
}

// head returns the call restricted to its first n arguments.
func (c *FunctionCall) head(n int) *FunctionCall {
	sub := *c
	sub.Args = c.Args[:min(n, len(c.Args))]
	return &sub
}
