package formulagraph

// ArraySize is the predicted footprint of a formula result. IsRef marks a
// bare reference, which is read in scalar context and therefore does not
// spill. Err is set when the shape can not be determined; such a size is
// always 1×1.
type ArraySize struct {
	Width   int
	Height  int
	IsRef   bool
	Err     ErrorType
	Message string
}

func scalarSize() ArraySize { return ArraySize{Width: 1, Height: 1} }

func errorSize(msg string) ArraySize {
	return ArraySize{Width: 1, Height: 1, Err: ErrorValue, Message: msg}
}

// IsScalar reports whether a formula of this size occupies one cell.
func (s ArraySize) IsScalar() bool {
	return s.Err != ErrorNone || s.IsRef || (s.Width <= 1 && s.Height <= 1)
}

// ArraySizePredictor computes the size of a formula result from its AST
// alone.
type ArraySizePredictor struct {
	arithmetic bool
	registry   *FunctionRegistry
	// dims returns the used width and height of a sheet, for clamping whole
	// row and column ranges.
	dims func(sheet int) (int, int)
}

// NewArraySizePredictor creates a predictor. arithmetic enables elementwise
// operators on arrays.
func NewArraySizePredictor(arithmetic bool, registry *FunctionRegistry, dims func(sheet int) (int, int)) *ArraySizePredictor {
	return &ArraySizePredictor{arithmetic: arithmetic, registry: registry, dims: dims}
}

// Predict returns the size of ast evaluated at base.
func (p *ArraySizePredictor) Predict(ast *Ast, base SimpleCellAddress) ArraySize {
	return p.predict(ast, base, p.arithmetic)
}

func (p *ArraySizePredictor) predict(ast *Ast, base SimpleCellAddress, arith bool) ArraySize {
	switch ast.Type {
	case AstNumber, AstString, AstBoolean, AstError, AstName:
		return scalarSize()
	case AstCellReference:
		return ArraySize{Width: 1, Height: 1, IsRef: true}
	case AstCellRange, AstColumnRange, AstRowRange:
		rng, ok := ast.rangeOf(base)
		if !ok {
			return errorSize("invalid range")
		}
		if !rng.IsFinite() && p.dims != nil {
			rng = rng.Clamp(p.dims(rng.Sheet()))
		}
		return ArraySize{Width: max(rng.Width(), 1), Height: max(rng.Height(), 1), IsRef: true}
	case AstArray:
		return p.predictArrayLiteral(ast, base, arith)
	case AstParenthesis:
		return p.predict(ast.Args[0], base, arith)
	case AstUnaryMinus, AstUnaryPlus, AstPercent:
		s := p.predict(ast.Args[0], base, arith)
		if s.Err != ErrorNone {
			return s
		}
		if !arith && (s.Width > 1 || s.Height > 1) {
			return errorSize("array arithmetic is disabled")
		}
		return ArraySize{Width: s.Width, Height: s.Height}
	case AstBinary:
		left, right := p.predict(ast.Args[0], base, arith), p.predict(ast.Args[1], base, arith)
		if left.Err != ErrorNone {
			return left
		}
		if right.Err != ErrorNone {
			return right
		}
		if !arith && (left.Width > 1 || left.Height > 1 || right.Width > 1 || right.Height > 1) {
			return errorSize("array arithmetic is disabled")
		}
		return ArraySize{Width: max(left.Width, right.Width), Height: max(left.Height, right.Height)}
	case AstFunctionCall:
		fn, ok := p.registry.Get(ast.Name)
		if !ok || fn.Size == nil {
			return scalarSize()
		}
		return fn.Size(p, ast.Args, base, arith)
	}
	return errorSize("unsupported expression")
}

func (p *ArraySizePredictor) predictArrayLiteral(ast *Ast, base SimpleCellAddress, arith bool) ArraySize {
	height, width := 0, -1
	for _, row := range ast.Rows {
		rowHeight, rowWidth := -1, 0
		for _, cell := range row {
			s := p.predict(cell, base, arith)
			if s.Err != ErrorNone {
				return s
			}
			if rowHeight < 0 || s.Height < rowHeight {
				rowHeight = s.Height
			}
			rowWidth += s.Width
		}
		height += max(rowHeight, 1)
		if width < 0 || rowWidth < width {
			width = rowWidth
		}
	}
	return ArraySize{Width: max(width, 1), Height: max(height, 1)}
}

// literalInt returns the value of a number literal argument.
func literalInt(ast *Ast) (int, bool) {
	for ast.Type == AstParenthesis {
		ast = ast.Args[0]
	}
	if ast.Type != AstNumber || ast.Number != float64(int(ast.Number)) {
		return 0, false
	}
	return int(ast.Number), true
}

func sizeMMULT(p *ArraySizePredictor, args []*Ast, base SimpleCellAddress, arith bool) ArraySize {
	if len(args) != 2 {
		return errorSize("MMULT requires 2 arguments")
	}
	left, right := p.predict(args[0], base, true), p.predict(args[1], base, true)
	if left.Err != ErrorNone {
		return left
	}
	if right.Err != ErrorNone {
		return right
	}
	if left.Width != right.Height {
		return errorSize("MMULT dimensions do not match")
	}
	return ArraySize{Width: right.Width, Height: left.Height}
}

func sizeTRANSPOSE(p *ArraySizePredictor, args []*Ast, base SimpleCellAddress, arith bool) ArraySize {
	if len(args) != 1 {
		return errorSize("TRANSPOSE requires 1 argument")
	}
	s := p.predict(args[0], base, true)
	if s.Err != ErrorNone {
		return s
	}
	return ArraySize{Width: s.Height, Height: s.Width}
}

// poolDimension applies 1+(dim-window)/stride, requiring exact division.
func poolDimension(dim, window, stride int) (int, bool) {
	if window < 1 || stride < 1 || window > dim || stride > window || (dim-window)%stride != 0 {
		return 0, false
	}
	return 1 + (dim-window)/stride, true
}

func sizePool(p *ArraySizePredictor, args []*Ast, base SimpleCellAddress, arith bool) ArraySize {
	if len(args) < 2 || len(args) > 3 {
		return errorSize("pooling requires 2 or 3 arguments")
	}
	s := p.predict(args[0], base, true)
	if s.Err != ErrorNone {
		return s
	}
	window, ok := literalInt(args[1])
	if !ok {
		return errorSize("window must be a number")
	}
	stride := window
	if len(args) == 3 {
		if stride, ok = literalInt(args[2]); !ok {
			return errorSize("stride must be a number")
		}
	}
	w, okW := poolDimension(s.Width, window, stride)
	h, okH := poolDimension(s.Height, window, stride)
	if !okW || !okH {
		return errorSize("window and stride do not fit the input")
	}
	return ArraySize{Width: w, Height: h}
}

func sizeARRAYCONSTRAIN(p *ArraySizePredictor, args []*Ast, base SimpleCellAddress, arith bool) ArraySize {
	if len(args) != 3 {
		return errorSize("ARRAY_CONSTRAIN requires 3 arguments")
	}
	s := p.predict(args[0], base, true)
	if s.Err != ErrorNone {
		return s
	}
	h, okH := literalInt(args[1])
	w, okW := literalInt(args[2])
	if !okH || !okW || h < 1 || w < 1 {
		return errorSize("ARRAY_CONSTRAIN bounds must be positive numbers")
	}
	return ArraySize{Width: min(s.Width, w), Height: min(s.Height, h)}
}

func sizeFILTER(p *ArraySizePredictor, args []*Ast, base SimpleCellAddress, arith bool) ArraySize {
	if len(args) < 2 {
		return errorSize("FILTER requires at least 2 arguments")
	}
	src := p.predict(args[0], base, true)
	if src.Err != ErrorNone {
		return src
	}
	for _, arg := range args[1:] {
		c := p.predict(arg, base, true)
		if c.Err != ErrorNone {
			return c
		}
		if !(c.Width == 1 && c.Height == src.Height) && !(c.Height == 1 && c.Width == src.Width) {
			return errorSize("FILTER condition does not match the source")
		}
	}
	return ArraySize{Width: src.Width, Height: src.Height}
}

// sizeSWITCH covers every result argument, since any of them may be chosen.
func sizeSWITCH(p *ArraySizePredictor, args []*Ast, base SimpleCellAddress, arith bool) ArraySize {
	if len(args) < 3 {
		return errorSize("SWITCH requires at least 3 arguments")
	}
	out := ArraySize{Width: 1, Height: 1}
	results := make([]*Ast, 0, len(args)/2)
	for i := 2; i < len(args); i += 2 {
		results = append(results, args[i])
	}
	if len(args)%2 == 0 {
		results = append(results, args[len(args)-1])
	}
	for _, r := range results {
		s := p.predict(r, base, arith)
		if s.Err != ErrorNone {
			return s
		}
		if s.IsRef && !arith {
			continue
		}
		out.Width, out.Height = max(out.Width, s.Width), max(out.Height, s.Height)
	}
	return out
}

// sizeARRAYFORMULA predicts its argument with array arithmetic switched on.
func sizeARRAYFORMULA(p *ArraySizePredictor, args []*Ast, base SimpleCellAddress, arith bool) ArraySize {
	if len(args) != 1 {
		return errorSize("ARRAYFORMULA requires 1 argument")
	}
	s := p.predict(args[0], base, true)
	s.IsRef = false
	return s
}
