package formulagraph

import (
	"math"
	"slices"
	"time"
)

// rangeReducer folds cell values left to right. An accumulator which turned
// into an error or Pending stays that way.
type rangeReducer struct {
	name string
	zero Value
	fold func(acc, v Value) Value
}

func stuck(acc Value) bool { return acc.IsError() || acc.IsPending() }

var (
	sumReducer = &rangeReducer{name: "SUM", zero: NumberValue(0), fold: func(acc, v Value) Value {
		switch {
		case stuck(acc):
			return acc
		case stuck(v):
			return v
		case v.Type == ValueNumber:
			return NumberValue(acc.Number + v.Number)
		}
		return acc
	}}
	countReducer = &rangeReducer{name: "COUNT", zero: NumberValue(0), fold: func(acc, v Value) Value {
		if v.Type == ValueNumber {
			return NumberValue(acc.Number + 1)
		}
		return acc
	}}
	minReducer = &rangeReducer{name: "MIN", fold: func(acc, v Value) Value {
		switch {
		case stuck(acc):
			return acc
		case stuck(v):
			return v
		case v.Type == ValueNumber && (acc.IsEmpty() || v.Number < acc.Number):
			return v
		}
		return acc
	}}
	maxReducer = &rangeReducer{name: "MAX", fold: func(acc, v Value) Value {
		switch {
		case stuck(acc):
			return acc
		case stuck(v):
			return v
		case v.Type == ValueNumber && (acc.IsEmpty() || v.Number > acc.Number):
			return v
		}
		return acc
	}}
)

// foldArea folds the cells of a grid area into acc.
func (ip *Interpreter) foldArea(red *rangeReducer, acc Value, area AbsoluteCellRange) Value {
	area.Addresses(func(a SimpleCellAddress) bool {
		acc = red.fold(acc, ip.graph.CellValue(a))
		return !stuck(acc) || red == countReducer
	})
	return acc
}

// reduceRange folds a range, reusing the aggregate cached on its range
// vertex or extending the one cached on the range one row shorter.
func (ip *Interpreter) reduceRange(red *rangeReducer, m *RangeValue) Value {
	if !m.hasRng {
		acc := red.zero
		m.each(func(v Value) bool {
			acc = red.fold(acc, v)
			return true
		})
		return acc
	}
	id, ok := ip.graph.ranges.get(m.source)
	if !ok || !m.source.IsFinite() {
		if m.rng.IsEmpty() {
			return red.zero
		}
		return ip.foldArea(red, red.zero, m.rng)
	}
	g := ip.graph.g
	var chain []VertexID
	var acc Value
	cached := false
	for cur := id; ; {
		rv := g.get(cur).rng
		if v, ok := rv.functionCache[red.name]; ok {
			acc, cached = v, true
			break
		}
		chain = append(chain, cur)
		smaller, _, ok := ip.graph.ranges.findSmallerRange(rv.rng)
		if !ok || !g.hasEdge(smaller, cur) {
			break
		}
		cur = smaller
	}
	for i := len(chain) - 1; i >= 0; i-- {
		rv := g.get(chain[i]).rng
		if !cached && i == len(chain)-1 {
			acc = ip.foldArea(red, red.zero, rv.rng)
		} else {
			acc = ip.foldArea(red, acc, rv.rng.lastRow())
		}
		if rv.functionCache == nil {
			rv.functionCache = make(map[string]Value)
		}
		rv.functionCache[red.name] = acc
	}
	return acc
}

// aggregate folds every argument. Ranges contribute their numbers only;
// scalar arguments are coerced.
func aggregate(c *FunctionCall, red *rangeReducer) Value {
	acc := red.zero
	for i := range c.Args {
		res := c.Arg(i)
		if res.Matrix != nil {
			part := c.ip.reduceRange(red, res.Matrix)
			if stuck(part) {
				return part
			}
			switch red {
			case sumReducer, countReducer:
				acc = NumberValue(acc.Number + part.Number)
			default:
				if !part.IsEmpty() {
					acc = red.fold(acc, part)
				}
			}
			continue
		}
		v := res.Value
		if red == countReducer {
			if _, _, ok := toNumber(v); ok && !v.IsEmpty() {
				acc = NumberValue(acc.Number + 1)
			}
			continue
		}
		n, errV, ok := toNumber(v)
		if !ok {
			return errV
		}
		acc = red.fold(acc, NumberValue(n))
	}
	if acc.IsEmpty() {
		return NumberValue(0)
	}
	return acc
}

func fnSUM(c *FunctionCall) Result   { return scalarResult(aggregate(c, sumReducer)) }
func fnCOUNT(c *FunctionCall) Result { return scalarResult(aggregate(c, countReducer)) }
func fnMIN(c *FunctionCall) Result   { return scalarResult(aggregate(c, minReducer)) }
func fnMAX(c *FunctionCall) Result   { return scalarResult(aggregate(c, maxReducer)) }

func fnAVERAGE(c *FunctionCall) Result {
	sum := aggregate(c, sumReducer)
	if stuck(sum) {
		return scalarResult(sum)
	}
	count := aggregate(c, countReducer)
	if count.Number == 0 {
		return scalarResult(CellError(ErrorDivByZero, "no numbers to average"))
	}
	return scalarResult(NumberValue(sum.Number / count.Number))
}

func fnIF(c *FunctionCall) Result {
	if len(c.Args) < 2 || len(c.Args) > 3 {
		return scalarResult(CellError(ErrorNA, "IF requires 2 or 3 arguments"))
	}
	cond := c.Scalar(0)
	if stuck(cond) {
		return scalarResult(cond)
	}
	b, errV, ok := toBool(cond)
	if !ok {
		return scalarResult(errV)
	}
	if b {
		return c.Arg(1)
	}
	if len(c.Args) < 3 {
		return scalarResult(BoolValue(false))
	}
	return c.Arg(2)
}

func fnIFERROR(c *FunctionCall) Result {
	if len(c.Args) != 2 {
		return scalarResult(CellError(ErrorNA, "IFERROR requires 2 arguments"))
	}
	res := c.Arg(0)
	if res.Matrix == nil && res.Value.IsError() {
		return c.Arg(1)
	}
	return res
}

func fnMMULT(c *FunctionCall) Result {
	if len(c.Args) != 2 {
		return scalarResult(CellError(ErrorNA, "MMULT requires 2 arguments"))
	}
	left, errV := c.Matrix(0)
	if left == nil {
		return scalarResult(errV)
	}
	right, errV := c.Matrix(1)
	if right == nil {
		return scalarResult(errV)
	}
	if left.Width() != right.Height() {
		return scalarResult(CellError(ErrorValue, "MMULT dimensions do not match"))
	}
	l, r := left.Array(), right.Array()
	out := newArrayValue(r.Width, l.Height)
	for row := range l.Height {
		for col := range r.Width {
			sum := 0.0
			for k := range l.Width {
				a, b := l.Data[row][k], r.Data[k][col]
				if stuck(a) {
					return scalarResult(a)
				}
				if stuck(b) {
					return scalarResult(b)
				}
				if a.Type != ValueNumber || b.Type != ValueNumber {
					return scalarResult(CellError(ErrorValue, "MMULT needs numbers"))
				}
				sum += a.Number * b.Number
			}
			out.Data[row][col] = NumberValue(sum)
		}
	}
	return matrixResult(NewRangeValue(out))
}

func fnTRANSPOSE(c *FunctionCall) Result {
	if len(c.Args) != 1 {
		return scalarResult(CellError(ErrorNA, "TRANSPOSE requires 1 argument"))
	}
	m, errV := c.Matrix(0)
	if m == nil {
		return scalarResult(errV)
	}
	out := newArrayValue(m.Height(), m.Width())
	for row := range m.Height() {
		for col := range m.Width() {
			out.Data[col][row] = m.At(col, row)
		}
	}
	return matrixResult(NewRangeValue(out))
}

// pool slides a window over a block and reduces each window with fn.
func pool(c *FunctionCall, fn func([]float64) float64) Result {
	if len(c.Args) < 2 || len(c.Args) > 3 {
		return scalarResult(CellError(ErrorNA, "pooling requires 2 or 3 arguments"))
	}
	m, errV := c.Matrix(0)
	if m == nil {
		return scalarResult(errV)
	}
	wf, errV, ok := c.Number(1)
	if !ok {
		return scalarResult(errV)
	}
	sf, errV, ok := c.numberOr(2, wf)
	if !ok {
		return scalarResult(errV)
	}
	window, stride := int(wf), int(sf)
	w, okW := poolDimension(m.Width(), window, stride)
	h, okH := poolDimension(m.Height(), window, stride)
	if !okW || !okH {
		return scalarResult(CellError(ErrorValue, "window and stride do not fit the input"))
	}
	src := m.Array()
	out := newArrayValue(w, h)
	buf := make([]float64, 0, window*window)
	for row := range h {
		for col := range w {
			buf = buf[:0]
			for dr := range window {
				for dc := range window {
					v := src.Data[row*stride+dr][col*stride+dc]
					if stuck(v) {
						return scalarResult(v)
					}
					if v.Type == ValueNumber {
						buf = append(buf, v.Number)
					}
				}
			}
			if len(buf) == 0 {
				out.Data[row][col] = CellError(ErrorValue, "window holds no numbers")
				continue
			}
			out.Data[row][col] = NumberValue(fn(buf))
		}
	}
	return matrixResult(NewRangeValue(out))
}

func fnMAXPOOL(c *FunctionCall) Result {
	return pool(c, func(xs []float64) float64 { return slices.Max(xs) })
}

func fnMEDIANPOOL(c *FunctionCall) Result {
	return pool(c, func(xs []float64) float64 {
		sorted := slices.Clone(xs)
		slices.Sort(sorted)
		n := len(sorted)
		if n%2 == 1 {
			return sorted[n/2]
		}
		return (sorted[n/2-1] + sorted[n/2]) / 2
	})
}

// fnFILTER keeps the rows (or columns) of the source for which every
// condition is true.
func fnFILTER(c *FunctionCall) Result {
	if len(c.Args) < 2 {
		return scalarResult(CellError(ErrorNA, "FILTER requires at least 2 arguments"))
	}
	src, errV := c.Matrix(0)
	if src == nil {
		return scalarResult(errV)
	}
	conds := make([]*RangeValue, 0, len(c.Args)-1)
	byRow := true
	for i := 1; i < len(c.Args); i++ {
		m, errV := c.Matrix(i)
		if m == nil {
			return scalarResult(errV)
		}
		switch {
		case m.Width() == 1 && m.Height() == src.Height():
		case m.Height() == 1 && m.Width() == src.Width():
			byRow = false
		default:
			return scalarResult(CellError(ErrorValue, "FILTER condition does not match the source"))
		}
		conds = append(conds, m)
	}
	keep := func(i int) (bool, Value) {
		for _, m := range conds {
			v := m.At(0, i)
			if !byRow {
				v = m.At(i, 0)
			}
			if stuck(v) {
				return false, v
			}
			b, errV, ok := toBool(v)
			if !ok {
				return false, errV
			}
			if !b {
				return false, Value{}
			}
		}
		return true, Value{}
	}
	data := src.Array()
	var out *ArrayValue
	if byRow {
		var rows [][]Value
		for r := range data.Height {
			ok, errV := keep(r)
			if stuck(errV) {
				return scalarResult(errV)
			}
			if ok {
				rows = append(rows, data.Data[r])
			}
		}
		if len(rows) == 0 {
			return scalarResult(CellError(ErrorNA, "no rows match the filter"))
		}
		out = &ArrayValue{Width: data.Width, Height: len(rows), Data: rows}
	} else {
		var cols []int
		for col := range data.Width {
			ok, errV := keep(col)
			if stuck(errV) {
				return scalarResult(errV)
			}
			if ok {
				cols = append(cols, col)
			}
		}
		if len(cols) == 0 {
			return scalarResult(CellError(ErrorNA, "no columns match the filter"))
		}
		out = newArrayValue(len(cols), data.Height)
		for r := range data.Height {
			for i, col := range cols {
				out.Data[r][i] = data.Data[r][col]
			}
		}
	}
	return matrixResult(NewRangeValue(out))
}

func fnSWITCH(c *FunctionCall) Result {
	if len(c.Args) < 3 {
		return scalarResult(CellError(ErrorNA, "SWITCH requires at least 3 arguments"))
	}
	expr := c.Scalar(0)
	if stuck(expr) {
		return scalarResult(expr)
	}
	i := 1
	for ; i+1 < len(c.Args); i += 2 {
		v := c.Scalar(i)
		if stuck(v) {
			return scalarResult(v)
		}
		if v.Type == expr.Type && c.ip.arith.compare(expr, v) == 0 {
			return c.Arg(i + 1)
		}
	}
	if i < len(c.Args) {
		return c.Arg(i)
	}
	return scalarResult(CellError(ErrorNA, "no SWITCH case matches"))
}

func fnARRAYCONSTRAIN(c *FunctionCall) Result {
	if len(c.Args) != 3 {
		return scalarResult(CellError(ErrorNA, "ARRAY_CONSTRAIN requires 3 arguments"))
	}
	m, errV := c.Matrix(0)
	if m == nil {
		return scalarResult(errV)
	}
	hf, errV, ok := c.Number(1)
	if !ok {
		return scalarResult(errV)
	}
	wf, errV, ok := c.Number(2)
	if !ok {
		return scalarResult(errV)
	}
	h, w := int(hf), int(wf)
	if h < 1 || w < 1 {
		return scalarResult(CellError(ErrorNum, "ARRAY_CONSTRAIN bounds must be positive"))
	}
	h, w = min(h, m.Height()), min(w, m.Width())
	out := newArrayValue(w, h)
	for row := range h {
		for col := range w {
			out.Data[row][col] = m.At(col, row)
		}
	}
	return matrixResult(NewRangeValue(out))
}

func fnARRAYFORMULA(c *FunctionCall) Result {
	if len(c.Args) != 1 {
		return scalarResult(CellError(ErrorNA, "ARRAYFORMULA requires 1 argument"))
	}
	return c.Arg(0)
}

// referenceArea resolves the reference argument i of a geometry function.
// Without the argument the formula cell itself is used.
func referenceArea(c *FunctionCall, i int) (AbsoluteCellRange, Value) {
	if i >= len(c.Args) {
		return RangeFrom(c.Address, 1, 1), Value{}
	}
	arg := c.Args[i]
	for arg.Type == AstParenthesis {
		arg = arg.Args[0]
	}
	switch arg.Type {
	case AstCellReference:
		addr := arg.Ref.ToSimple(c.Address)
		if !addr.IsValid() {
			return AbsoluteCellRange{}, CellError(ErrorRef, "reference is not valid")
		}
		return RangeFrom(addr, 1, 1), Value{}
	case AstCellRange, AstColumnRange, AstRowRange:
		rng, ok := arg.rangeOf(c.Address)
		if !ok {
			return AbsoluteCellRange{}, CellError(ErrorRef, "range is not valid")
		}
		return rng, Value{}
	case AstError:
		return AbsoluteCellRange{}, CellError(arg.Error, arg.String)
	}
	return AbsoluteCellRange{}, CellError(ErrorValue, "argument must be a reference")
}

func fnROW(c *FunctionCall) Result {
	rng, errV := referenceArea(c, 0)
	if errV.IsError() {
		return scalarResult(errV)
	}
	return scalarResult(NumberValue(float64(rng.Start.Row + 1)))
}

func fnCOLUMN(c *FunctionCall) Result {
	rng, errV := referenceArea(c, 0)
	if errV.IsError() {
		return scalarResult(errV)
	}
	return scalarResult(NumberValue(float64(rng.Start.Col + 1)))
}

func fnROWS(c *FunctionCall) Result {
	if len(c.Args) != 1 {
		return scalarResult(CellError(ErrorNA, "ROWS requires 1 argument"))
	}
	if c.Args[0].Type == AstArray {
		return scalarResult(NumberValue(float64(len(c.Args[0].Rows))))
	}
	rng, errV := referenceArea(c, 0)
	if errV.IsError() {
		return scalarResult(errV)
	}
	rng = c.ip.graph.clamp(rng)
	return scalarResult(NumberValue(float64(max(rng.Height(), 0))))
}

func fnCOLUMNS(c *FunctionCall) Result {
	if len(c.Args) != 1 {
		return scalarResult(CellError(ErrorNA, "COLUMNS requires 1 argument"))
	}
	if c.Args[0].Type == AstArray && len(c.Args[0].Rows) > 0 {
		return scalarResult(NumberValue(float64(len(c.Args[0].Rows[0]))))
	}
	rng, errV := referenceArea(c, 0)
	if errV.IsError() {
		return scalarResult(errV)
	}
	rng = c.ip.graph.clamp(rng)
	return scalarResult(NumberValue(float64(max(rng.Width(), 0))))
}

func fnRAND(c *FunctionCall) Result {
	return scalarResult(NumberValue(c.ip.rand.Float64()))
}

// excelEpoch is day zero of spreadsheet date serials.
var excelEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

func fnNOW(c *FunctionCall) Result {
	now := c.ip.now().UTC()
	days := now.Sub(excelEpoch).Hours() / 24
	return scalarResult(NumberValue(math.Round(days*86400) / 86400))
}
