package formulagraph

// VertexID addresses a vertex in the graph arena. Ids of removed vertices
// are recycled; noVertex is never allocated.
type VertexID int32

const noVertex VertexID = 0

// vertexKind is the discriminator of vertex.
type vertexKind uint8

const (
	kindEmpty vertexKind = iota
	kindValue
	kindFormula
	kindArray
	kindRange
	kindMatrix
)

func (k vertexKind) String() string {
	switch k {
	case kindEmpty:
		return "empty"
	case kindValue:
		return "value"
	case kindFormula:
		return "formula"
	case kindArray:
		return "array"
	case kindRange:
		return "range"
	case kindMatrix:
		return "matrix"
	}
	return "unknown"
}

// vertex is one node of the dependency graph. Exactly one of the payload
// pointers matching kind is set; empty vertices carry none.
type vertex struct {
	kind vertexKind
	// seq orders vertices by creation for deterministic tie breaking.
	seq uint64

	value   *valueCell
	formula *formulaCell
	rng     *rangeVertex
	matrix  *matrixBlock
}

// valueCell is a literal typed into a cell.
type valueCell struct {
	raw    string
	parsed Value
}

// formulaCell is a scalar or array formula. Its ast and address are synced
// lazily with the transformation log, see LazilyTransformingAstService.
type formulaCell struct {
	ast     *Ast
	raw     string
	address SimpleCellAddress
	version int
	value   Value

	volatile   bool
	structural bool

	// shapeError is set when the result size could not be determined or the
	// array did not fit; the formula then evaluates to it.
	shapeError Value

	// array is set for array formulas only.
	array *arraySpill

	// async holds the async calls of this formula by call key.
	async map[string]*asyncCall

	// name is set on named expressions, which live off the grid.
	name string
}

// arraySpill is the footprint and buffered result of an array formula.
type arraySpill struct {
	size   ArraySize
	width  int
	height int
	values *ArrayValue
}

// matrixBlock is a rectangle of number literals found while building a
// workbook and stored as a single vertex.
type matrixBlock struct {
	origin SimpleCellAddress
	values *ArrayValue
}

// rangeVertex is the identity of one distinct range. Aggregation caches of
// criterion functions hang off it.
type rangeVertex struct {
	rng AbsoluteCellRange
	// bruteForce is set when the range holds an edge from every cell instead
	// of chaining from a smaller range.
	bruteForce bool

	criterionCache map[string]map[string]criterionCacheEntry
	// functionCache holds plain aggregates such as SUM by function name.
	functionCache map[string]Value
	// dependentCaches are ranges whose cached aggregates read this range as
	// a condition range.
	dependentCaches map[VertexID]struct{}
}

func newRangeVertex(rng AbsoluteCellRange) *rangeVertex {
	return &rangeVertex{rng: rng}
}

// cellValue returns the scalar value stored by a cell vertex.
func (v *vertex) cellValue(addr SimpleCellAddress) Value {
	switch v.kind {
	case kindValue:
		return v.value.parsed
	case kindFormula:
		return v.formula.value
	case kindArray:
		spill := v.formula.array
		if spill.values == nil {
			return v.formula.value
		}
		origin := v.formula.address
		return spill.values.At(addr.Col-origin.Col, addr.Row-origin.Row)
	case kindMatrix:
		origin := v.matrix.origin
		return v.matrix.values.At(addr.Col-origin.Col, addr.Row-origin.Row)
	}
	return EmptyValue()
}

func (v *vertex) isFormula() bool {
	return v.kind == kindFormula || v.kind == kindArray
}
