package formulagraph

import (
	"strconv"
	"strings"
)

// AstType is the discriminator of Ast.
type AstType uint8

// AST node kinds.
const (
	AstEmpty AstType = iota
	AstNumber
	AstString
	AstBoolean
	AstError
	AstCellReference
	AstCellRange
	AstColumnRange
	AstRowRange
	AstName
	AstUnaryMinus
	AstUnaryPlus
	AstPercent
	AstBinary
	AstFunctionCall
	AstParenthesis
	AstArray
)

// Ast is a parsed formula node. References are relative to the formula cell
// (see CellAddress), so one tree can serve every cell of a copied formula
// and structural edits rewrite it without reparsing text.
type Ast struct {
	Type    AstType
	Number  float64
	String  string
	Boolean bool
	Error   ErrorType
	// Op is the operator of a binary node, e.g. "+" or "<=".
	Op string
	// Name is the upper-cased function name or named expression.
	Name string
	// Ref is the cell of a reference, or the first corner of a range. For
	// column ranges only the column part is meaningful, for row ranges only
	// the row part.
	Ref CellAddress
	// End is the second corner of a range.
	End CellAddress
	// Args holds children: operands, function arguments or the single
	// wrapped expression.
	Args []*Ast
	// Rows holds the cells of an array literal.
	Rows [][]*Ast
}

func errorAst(t ErrorType, msg string) *Ast {
	return &Ast{Type: AstError, Error: t, String: msg}
}

// isReference reports whether the node evaluates to a reference.
func (a *Ast) isReference() bool {
	switch a.Type {
	case AstCellReference, AstCellRange, AstColumnRange, AstRowRange:
		return true
	}
	return false
}

// rangeOf resolves a range node against the formula address.
func (a *Ast) rangeOf(base SimpleCellAddress) (AbsoluteCellRange, bool) {
	switch a.Type {
	case AstCellRange:
		start, end := a.Ref.ToSimple(base), a.End.ToSimple(base)
		if start.Sheet != end.Sheet || !start.IsValid() || !end.IsValid() {
			return AbsoluteCellRange{}, false
		}
		return NewRange(start, end), true
	case AstColumnRange:
		start, end := a.Ref.ToSimple(base), a.End.ToSimple(base)
		if start.Col < 0 || end.Col < 0 {
			return AbsoluteCellRange{}, false
		}
		if start.Col > end.Col {
			start.Col, end.Col = end.Col, start.Col
		}
		return AbsoluteCellRange{Start: Addr(start.Sheet, start.Col, 0), End: Addr(start.Sheet, end.Col, Unbounded)}, true
	case AstRowRange:
		start, end := a.Ref.ToSimple(base), a.End.ToSimple(base)
		if start.Row < 0 || end.Row < 0 {
			return AbsoluteCellRange{}, false
		}
		if start.Row > end.Row {
			start.Row, end.Row = end.Row, start.Row
		}
		return AbsoluteCellRange{Start: Addr(start.Sheet, 0, start.Row), End: Addr(start.Sheet, Unbounded, end.Row)}, true
	}
	return AbsoluteCellRange{}, false
}

// dependency is one address, range or named expression read by a formula.
type dependency struct {
	isRange bool
	addr    SimpleCellAddress
	rng     AbsoluteCellRange
	name    string
}

// collectDependencies lists the absolute cells, ranges and names read by ast when
// it sits at base. Arguments of functions which only inspect reference
// geometry are skipped, as are references which resolve off the grid.
func collectDependencies(ast *Ast, base SimpleCellAddress, registry *FunctionRegistry) []dependency {
	var deps []dependency
	var walk func(*Ast)
	walk = func(n *Ast) {
		switch n.Type {
		case AstCellReference:
			if addr := n.Ref.ToSimple(base); addr.IsValid() {
				deps = append(deps, dependency{addr: addr})
			}
		case AstCellRange, AstColumnRange, AstRowRange:
			if rng, ok := n.rangeOf(base); ok {
				deps = append(deps, dependency{isRange: true, rng: rng})
			}
		case AstName:
			deps = append(deps, dependency{name: n.Name})
		case AstFunctionCall:
			if fn, ok := registry.Get(n.Name); ok && fn.GeometryOnly {
				return
			}
			for _, arg := range n.Args {
				walk(arg)
			}
		case AstArray:
			for _, row := range n.Rows {
				for _, cell := range row {
					walk(cell)
				}
			}
		default:
			for _, arg := range n.Args {
				walk(arg)
			}
		}
	}
	walk(ast)
	return deps
}

// containsFunction reports whether any call in ast satisfies pred.
func containsFunction(ast *Ast, pred func(name string) bool) bool {
	if ast.Type == AstFunctionCall && pred(ast.Name) {
		return true
	}
	for _, arg := range ast.Args {
		if containsFunction(arg, pred) {
			return true
		}
	}
	for _, row := range ast.Rows {
		for _, cell := range row {
			if containsFunction(cell, pred) {
				return true
			}
		}
	}
	return false
}

// Unparse renders ast, sitting at base, back to formula text with a leading
// "=". sheetName resolves explicit sheet prefixes.
func Unparse(ast *Ast, base SimpleCellAddress, sheetName func(int) string) string {
	var b strings.Builder
	b.WriteByte('=')
	unparse(&b, ast, base, sheetName)
	return b.String()
}

func quoteSheet(name string) string {
	if strings.ContainsAny(name, " '!-+()&,;") {
		return "'" + strings.ReplaceAll(name, "'", "''") + "'"
	}
	return name
}

func writeSheetPrefix(b *strings.Builder, ref CellAddress, sheetName func(int) string) {
	if ref.Sheet >= 0 {
		b.WriteString(quoteSheet(sheetName(ref.Sheet)))
		b.WriteByte('!')
	}
}

func writeColumn(b *strings.Builder, ref CellAddress, base SimpleCellAddress) {
	col := ref.Col
	if ref.ColAbsolute {
		b.WriteByte('$')
	} else {
		col += base.Col
	}
	b.WriteString(ColumnNumberToName(col))
}

func writeRow(b *strings.Builder, ref CellAddress, base SimpleCellAddress) {
	row := ref.Row
	if ref.RowAbsolute {
		b.WriteByte('$')
	} else {
		row += base.Row
	}
	b.WriteString(strconv.Itoa(row + 1))
}

func unparse(b *strings.Builder, n *Ast, base SimpleCellAddress, sheetName func(int) string) {
	switch n.Type {
	case AstEmpty:
	case AstNumber:
		b.WriteString(strconv.FormatFloat(n.Number, 'f', -1, 64))
	case AstString:
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(n.String, `"`, `""`))
		b.WriteByte('"')
	case AstBoolean:
		if n.Boolean {
			b.WriteString("TRUE")
		} else {
			b.WriteString("FALSE")
		}
	case AstError:
		b.WriteString(n.Error.String())
	case AstName:
		b.WriteString(n.Name)
	case AstCellReference:
		writeSheetPrefix(b, n.Ref, sheetName)
		writeColumn(b, n.Ref, base)
		writeRow(b, n.Ref, base)
	case AstCellRange:
		writeSheetPrefix(b, n.Ref, sheetName)
		writeColumn(b, n.Ref, base)
		writeRow(b, n.Ref, base)
		b.WriteByte(':')
		writeColumn(b, n.End, base)
		writeRow(b, n.End, base)
	case AstColumnRange:
		writeSheetPrefix(b, n.Ref, sheetName)
		writeColumn(b, n.Ref, base)
		b.WriteByte(':')
		writeColumn(b, n.End, base)
	case AstRowRange:
		writeSheetPrefix(b, n.Ref, sheetName)
		writeRow(b, n.Ref, base)
		b.WriteByte(':')
		writeRow(b, n.End, base)
	case AstUnaryMinus:
		b.WriteByte('-')
		unparse(b, n.Args[0], base, sheetName)
	case AstUnaryPlus:
		b.WriteByte('+')
		unparse(b, n.Args[0], base, sheetName)
	case AstPercent:
		unparse(b, n.Args[0], base, sheetName)
		b.WriteByte('%')
	case AstBinary:
		unparse(b, n.Args[0], base, sheetName)
		b.WriteString(n.Op)
		unparse(b, n.Args[1], base, sheetName)
	case AstParenthesis:
		b.WriteByte('(')
		unparse(b, n.Args[0], base, sheetName)
		b.WriteByte(')')
	case AstFunctionCall:
		b.WriteString(n.Name)
		b.WriteByte('(')
		for i, arg := range n.Args {
			if i > 0 {
				b.WriteByte(',')
			}
			unparse(b, arg, base, sheetName)
		}
		b.WriteByte(')')
	case AstArray:
		b.WriteByte('{')
		for r, row := range n.Rows {
			if r > 0 {
				b.WriteByte(';')
			}
			for c, cell := range row {
				if c > 0 {
					b.WriteByte(',')
				}
				unparse(b, cell, base, sheetName)
			}
		}
		b.WriteByte('}')
	}
}
