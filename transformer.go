package formulagraph

// axis selects the coordinate a row or column edit works on.
type axis uint8

const (
	rowAxis axis = iota
	columnAxis
)

func (ax axis) String() string {
	if ax == rowAxis {
		return "rows"
	}
	return "columns"
}

// of returns the coordinate of addr along the axis.
func (ax axis) of(addr SimpleCellAddress) int {
	if ax == rowAxis {
		return addr.Row
	}
	return addr.Col
}

// with returns addr with its coordinate along the axis set to v.
func (ax axis) with(addr SimpleCellAddress, v int) SimpleCellAddress {
	if ax == rowAxis {
		addr.Row = v
	} else {
		addr.Col = v
	}
	return addr
}

// ref returns the stored coordinate of a reference and whether it is
// anchored.
func (ax axis) ref(c CellAddress) (int, bool) {
	if ax == rowAxis {
		return c.Row, c.RowAbsolute
	}
	return c.Col, c.ColAbsolute
}

// shift moves the stored coordinate of a reference by n.
func (ax axis) shift(c CellAddress, n int) CellAddress {
	if ax == rowAxis {
		return c.ShiftedByRows(n)
	}
	return c.ShiftedByColumns(n)
}

// unbounded reports whether the range is open along the axis.
func (ax axis) unbounded(r AbsoluteCellRange) bool {
	if ax == rowAxis {
		return r.End.Row == Unbounded
	}
	return r.End.Col == Unbounded
}

// ignores reports whether a reference kind carries no coordinate along the
// axis, e.g. a column range under a row edit.
func (ax axis) ignores(t AstType) bool {
	return (ax == rowAxis && t == AstColumnRange) || (ax == columnAxis && t == AstRowRange)
}

// Transformer rewrites formulas for one structural edit. Transformers are
// appended to the LazilyTransformingAstService log and replayed on formulas
// when they are next read.
type Transformer interface {
	// Sheet returns the sheet the edit applies to.
	Sheet() int
	// Transform rewrites the references of ast, a formula located at address,
	// in place and returns the formula's own address after the edit.
	Transform(ast *Ast, address SimpleCellAddress) SimpleCellAddress
}

// rewrite is the outcome of transforming one reference.
type rewrite uint8

const (
	keep rewrite = iota
	replace
	toRef
)

// refRewriter decides how single references and ranges change.
type refRewriter interface {
	cell(dep CellAddress, base SimpleCellAddress) (CellAddress, rewrite)
	rng(kind AstType, start, end CellAddress, base SimpleCellAddress) (CellAddress, CellAddress, rewrite)
}

func rewriteReferences(n *Ast, base SimpleCellAddress, rw refRewriter) {
	switch n.Type {
	case AstCellReference:
		c, r := rw.cell(n.Ref, base)
		switch r {
		case replace:
			n.Ref = c
		case toRef:
			*n = *errorAst(ErrorRef, "reference removed")
		}
		return
	case AstCellRange, AstColumnRange, AstRowRange:
		start, end, r := rw.rng(n.Type, n.Ref, n.End, base)
		switch r {
		case replace:
			n.Ref, n.End = start, end
		case toRef:
			*n = *errorAst(ErrorRef, "range removed")
		}
		return
	}
	for _, arg := range n.Args {
		rewriteReferences(arg, base, rw)
	}
	for _, row := range n.Rows {
		for _, cell := range row {
			rewriteReferences(cell, base, rw)
		}
	}
}

// spanTransformer inserts or deletes the rows or columns of span.
type spanTransformer struct {
	ax     axis
	span   Span
	insert bool
}

func newAddRowsTransformer(sheet, row, count int) *spanTransformer {
	return &spanTransformer{ax: rowAxis, span: NewSpan(sheet, row, count), insert: true}
}

func newRemoveRowsTransformer(span Span) *spanTransformer {
	return &spanTransformer{ax: rowAxis, span: span}
}

func newAddColumnsTransformer(sheet, col, count int) *spanTransformer {
	return &spanTransformer{ax: columnAxis, span: NewSpan(sheet, col, count), insert: true}
}

func newRemoveColumnsTransformer(span Span) *spanTransformer {
	return &spanTransformer{ax: columnAxis, span: span}
}

func (t *spanTransformer) Sheet() int { return t.span.Sheet }

func (t *spanTransformer) Transform(ast *Ast, address SimpleCellAddress) SimpleCellAddress {
	rewriteReferences(ast, address, t)
	return t.fixAddress(address)
}

// fixAddress moves the formula's own cell.
func (t *spanTransformer) fixAddress(addr SimpleCellAddress) SimpleCellAddress {
	if addr.Sheet != t.span.Sheet || t.ax.of(addr) < t.span.Start {
		return addr
	}
	if t.insert {
		return t.ax.with(addr, t.ax.of(addr)+t.span.Count())
	}
	return t.ax.with(addr, t.ax.of(addr)-t.span.Count())
}

// transformIndex maps an absolute row or column index through the edit. It
// reports false for indices which were deleted.
func (t *spanTransformer) transformIndex(i int) (int, bool) {
	switch {
	case i < t.span.Start:
		return i, true
	case t.insert:
		return i + t.span.Count(), true
	case i < t.span.End:
		return 0, false
	}
	return i - t.span.Count(), true
}

func (t *spanTransformer) cell(dep CellAddress, base SimpleCellAddress) (CellAddress, rewrite) {
	if t.insert {
		return t.insertCell(dep, base)
	}
	return t.removeCell(dep, base)
}

func (t *spanTransformer) insertCell(dep CellAddress, base SimpleCellAddress) (CellAddress, rewrite) {
	sheet, depSheet := t.span.Sheet, dep.SheetOf(base)
	if depSheet != sheet && base.Sheet != sheet {
		return dep, keep
	}
	n, start := t.span.Count(), t.span.Start
	target := t.ax.of(dep.ToSimple(base))
	stored, anchored := t.ax.ref(dep)
	formula := t.ax.of(base)
	switch {
	case depSheet == sheet && base.Sheet != sheet:
		if start <= target {
			return t.ax.shift(dep, n), replace
		}
		return dep, keep
	case base.Sheet == sheet && depSheet != sheet:
		if anchored || formula < start {
			return dep, keep
		}
		return t.ax.shift(dep, -n), replace
	case anchored:
		if stored < start {
			return dep, keep
		}
		return t.ax.shift(dep, n), replace
	case target < start:
		if formula < start {
			return dep, keep
		}
		return t.ax.shift(dep, -n), replace
	case formula < start:
		return t.ax.shift(dep, n), replace
	}
	return dep, keep
}

func (t *spanTransformer) removeCell(dep CellAddress, base SimpleCellAddress) (CellAddress, rewrite) {
	sheet, depSheet := t.span.Sheet, dep.SheetOf(base)
	if depSheet != sheet && base.Sheet != sheet {
		return dep, keep
	}
	n, first, last := t.span.Count(), t.span.Start, t.span.Last()
	target := t.ax.of(dep.ToSimple(base))
	stored, anchored := t.ax.ref(dep)
	formula := t.ax.of(base)
	switch {
	case depSheet == sheet && base.Sheet != sheet:
		switch {
		case target < first:
			return dep, keep
		case target > last:
			return t.ax.shift(dep, -n), replace
		}
	case base.Sheet == sheet && depSheet != sheet:
		switch {
		case anchored || formula < first:
			return dep, keep
		case formula > last:
			return t.ax.shift(dep, n), replace
		}
	case anchored:
		switch {
		case stored < first:
			return dep, keep
		case stored > last:
			return t.ax.shift(dep, -n), replace
		}
	case target < first:
		switch {
		case formula < first:
			return dep, keep
		case formula > last:
			return t.ax.shift(dep, n), replace
		}
	case target > last:
		switch {
		case formula < first:
			return t.ax.shift(dep, -n), replace
		case formula > last:
			return dep, keep
		}
	}
	return dep, toRef
}

func (t *spanTransformer) rng(kind AstType, start, end CellAddress, base SimpleCellAddress) (CellAddress, CellAddress, rewrite) {
	if t.ax.ignores(kind) {
		return start, end, keep
	}
	if !t.insert && start.SheetOf(base) == t.span.Sheet {
		first, last := t.span.Start, t.span.Last()
		from, to := t.ax.of(start.ToSimple(base)), t.ax.of(end.ToSimple(base))
		if from > to {
			start, end = end, start
			from, to = to, from
		}
		if first <= from && to <= last {
			return start, end, toRef
		}
		trimmed := false
		if from >= first && from <= last {
			start, trimmed = t.ax.shift(start, last-from+1), true
		}
		if to >= first && to <= last {
			end, trimmed = t.ax.shift(end, -(to-first+1)), true
		}
		s, rs := t.cell(start, base)
		e, re := t.cell(end, base)
		if rs == toRef || re == toRef {
			return start, end, toRef
		}
		if rs == keep && re == keep && !trimmed {
			return start, end, keep
		}
		return s, e, replace
	}
	s, rs := t.cell(start, base)
	e, re := t.cell(end, base)
	if rs == toRef || re == toRef {
		return start, end, toRef
	}
	if rs == keep && re == keep {
		return start, end, keep
	}
	return s, e, replace
}

// moveTransformer relocates the cells of src by (dCol, dRow) onto toSheet.
type moveTransformer struct {
	src     AbsoluteCellRange
	toSheet int
	dCol    int
	dRow    int
}

func newMoveTransformer(src AbsoluteCellRange, toSheet, dCol, dRow int) *moveTransformer {
	return &moveTransformer{src: src, toSheet: toSheet, dCol: dCol, dRow: dRow}
}

func (t *moveTransformer) Sheet() int { return t.src.Sheet() }

func (t *moveTransformer) Transform(ast *Ast, address SimpleCellAddress) SimpleCellAddress {
	if t.src.Contains(address) {
		rewriteReferences(ast, address, movedFormula{t})
		return Addr(t.toSheet, address.Col+t.dCol, address.Row+t.dRow)
	}
	rewriteReferences(ast, address, dependentFormula{t})
	return address
}

// movedFormula rewrites a formula which moves with the source block: its
// references into the block follow it, all others keep their target.
type movedFormula struct{ *moveTransformer }

func (m movedFormula) internal(dep CellAddress, base SimpleCellAddress) CellAddress {
	c := dep.shiftAbsoluteDimensions(m.dCol, m.dRow)
	if c.Sheet >= 0 {
		c.Sheet = m.toSheet
	}
	return c
}

func (m movedFormula) external(dep CellAddress, base SimpleCellAddress) CellAddress {
	c := dep.shiftRelativeDimensions(-m.dCol, -m.dRow)
	if c.Sheet < 0 && m.toSheet != base.Sheet {
		c.Sheet = base.Sheet
	}
	return c
}

func (m movedFormula) cell(dep CellAddress, base SimpleCellAddress) (CellAddress, rewrite) {
	if target := dep.ToSimple(base); target.IsValid() && m.src.Contains(target) {
		return m.internal(dep, base), replace
	}
	return m.external(dep, base), replace
}

func (m movedFormula) rng(kind AstType, start, end CellAddress, base SimpleCellAddress) (CellAddress, CellAddress, rewrite) {
	if kind == AstCellRange && m.src.Contains(start.ToSimple(base)) && m.src.Contains(end.ToSimple(base)) {
		return m.internal(start, base), m.internal(end, base), replace
	}
	return m.external(start, base), m.external(end, base), replace
}

// dependentFormula rewrites a formula outside the block: references which
// lie in the block follow the moved cells.
type dependentFormula struct{ *moveTransformer }

func (m dependentFormula) cell(dep CellAddress, base SimpleCellAddress) (CellAddress, rewrite) {
	if m.src.Contains(dep.ToSimple(base)) {
		return dep.moved(base, m.toSheet, m.dCol, m.dRow), replace
	}
	return dep, keep
}

func (m dependentFormula) rng(kind AstType, start, end CellAddress, base SimpleCellAddress) (CellAddress, CellAddress, rewrite) {
	if kind == AstCellRange && m.src.Contains(start.ToSimple(base)) && m.src.Contains(end.ToSimple(base)) {
		return start.moved(base, m.toSheet, m.dCol, m.dRow), end.moved(base, m.toSheet, m.dCol, m.dRow), replace
	}
	return start, end, keep
}

// sheetTransformer logs sheet level edits. Only removal touches formulas:
// references into a removed sheet become REF.
type sheetTransformer struct {
	sheet  int
	remove bool
}

func (t *sheetTransformer) Sheet() int { return t.sheet }

func (t *sheetTransformer) Transform(ast *Ast, address SimpleCellAddress) SimpleCellAddress {
	if t.remove {
		rewriteReferences(ast, address, t)
	}
	return address
}

func (t *sheetTransformer) cell(dep CellAddress, base SimpleCellAddress) (CellAddress, rewrite) {
	if dep.SheetOf(base) == t.sheet {
		return dep, toRef
	}
	return dep, keep
}

func (t *sheetTransformer) rng(kind AstType, start, end CellAddress, base SimpleCellAddress) (CellAddress, CellAddress, rewrite) {
	c, r := t.cell(start, base)
	return c, end, r
}
