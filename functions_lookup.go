package formulagraph

// lookupKey evaluates the key of a lookup. Empty keys look up 0.
func lookupKey(c *FunctionCall) Value {
	key := c.Scalar(0)
	if key.IsEmpty() {
		return NumberValue(0)
	}
	return key
}

func fnVLOOKUP(c *FunctionCall) Result {
	if len(c.Args) < 3 || len(c.Args) > 4 {
		return scalarResult(CellError(ErrorNA, "VLOOKUP requires 3 or 4 arguments"))
	}
	key := lookupKey(c)
	if stuck(key) {
		return scalarResult(key)
	}
	table, errV := c.Matrix(1)
	if table == nil {
		return scalarResult(errV)
	}
	idx, errV, ok := c.Number(2)
	if !ok {
		return scalarResult(errV)
	}
	sorted := true
	if len(c.Args) == 4 && c.Args[3].Type != AstEmpty {
		b, errV, ok := toBool(c.Scalar(3))
		if !ok {
			return scalarResult(errV)
		}
		sorted = b
	}
	col := int(idx)
	if col < 1 {
		return scalarResult(CellError(ErrorValue, "column index must be positive"))
	}
	if col > table.Width() {
		return scalarResult(CellError(ErrorRef, "column index is beyond the range"))
	}
	row := c.ip.search.Find(key, table.column(0), sorted)
	if row < 0 {
		return scalarResult(CellError(ErrorNA, "value not found"))
	}
	return scalarResult(table.At(col-1, row))
}

func fnMATCH(c *FunctionCall) Result {
	if len(c.Args) < 2 || len(c.Args) > 3 {
		return scalarResult(CellError(ErrorNA, "MATCH requires 2 or 3 arguments"))
	}
	key := lookupKey(c)
	if stuck(key) {
		return scalarResult(key)
	}
	rng, errV := c.Matrix(1)
	if rng == nil {
		return scalarResult(errV)
	}
	if rng.Width() != 1 && rng.Height() != 1 {
		return scalarResult(CellError(ErrorNA, "MATCH needs a single row or column"))
	}
	mt, errV, ok := c.numberOr(2, 1)
	if !ok {
		return scalarResult(errV)
	}
	matchType := 0
	switch {
	case mt > 0:
		matchType = 1
	case mt < 0:
		matchType = -1
	}
	pos := c.ip.search.AdvancedFind(key, rng, matchType)
	if pos < 0 {
		return scalarResult(CellError(ErrorNA, "value not found"))
	}
	return scalarResult(NumberValue(float64(pos + 1)))
}
