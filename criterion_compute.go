package formulagraph

import (
	"strconv"
	"strings"
)

// CriterionReducer folds the values selected by criteria: Map turns a
// selected cell into a partial aggregate, Reduce joins two of them.
type CriterionReducer[T any] struct {
	Zero   T
	Map    func(Value) T
	Reduce func(acc, next T) T
}

// criterionCondition is one (range, criterion) pair of a criterion function.
type criterionCondition struct {
	rng       *RangeValue
	raw       Value
	predicate func(Value) bool
}

// criterionCacheKey identifies a function applied to a set of condition
// ranges. It ignores their height, so a range and the range one row shorter
// share keys.
func criterionCacheKey(name string, conds []criterionCondition) string {
	var b strings.Builder
	b.WriteString(name)
	for _, c := range conds {
		for _, n := range []int{c.rng.rng.Sheet(), c.rng.rng.Start.Col, c.rng.rng.Start.Row, c.rng.Width()} {
			b.WriteByte(',')
			b.WriteString(strconv.Itoa(n))
		}
	}
	return b.String()
}

func criterionString(conds []criterionCondition) string {
	parts := make([]string, len(conds))
	for i, c := range conds {
		parts[i] = c.raw.Text()
	}
	return strings.Join(parts, ",")
}

// finiteRangeVertex returns the range vertex backing m, if m is a finite
// range of the grid.
func (ip *Interpreter) finiteRangeVertex(m *RangeValue) (VertexID, bool) {
	if !m.hasRng || !m.source.IsFinite() {
		return noVertex, false
	}
	return ip.graph.ranges.get(m.source)
}

// computeCriterion reduces values over the cells whose condition cells all
// satisfy their criteria. When every range is backed by a range vertex the
// aggregate is cached on the values vertex; a miss first tries to extend the
// aggregates of the range one row shorter by its last row.
func computeCriterion[T any](ip *Interpreter, name string, values *RangeValue, conds []criterionCondition, red CriterionReducer[T]) (T, Value) {
	for _, c := range conds {
		if c.rng.Width() != values.Width() || c.rng.Height() != values.Height() {
			return red.Zero, CellError(ErrorValue, "criterion ranges must have the same size")
		}
	}
	vid, ok := ip.finiteRangeVertex(values)
	condIDs := make([]VertexID, 0, len(conds))
	for _, c := range conds {
		if !ok {
			break
		}
		var cid VertexID
		cid, ok = ip.finiteRangeVertex(c.rng)
		condIDs = append(condIDs, cid)
	}
	if !ok {
		ip.stats.inc(statCriterionFullCompute)
		return evaluateCriterion(values, conds, red), Value{}
	}
	g := ip.graph.g
	rv := g.get(vid).rng
	key, full := criterionCacheKey(name, conds), criterionString(conds)
	if entry, ok := rv.criterionCache[key][full]; ok {
		ip.stats.inc(statCriterionCacheHit)
		return entry.aggregate.(T), Value{}
	}
	cache := buildCriterionCache(ip, vid, key, values, conds, red)
	if _, ok := cache[full]; ok {
		ip.stats.inc(statCriterionSmallerRange)
	} else {
		ip.stats.inc(statCriterionFullCompute)
		predicates := make([]func(Value) bool, len(conds))
		for i, c := range conds {
			predicates[i] = c.predicate
		}
		cache[full] = criterionCacheEntry{aggregate: evaluateCriterion(values, conds, red), predicates: predicates}
	}
	if rv.criterionCache == nil {
		rv.criterionCache = make(map[string]map[string]criterionCacheEntry)
	}
	rv.criterionCache[key] = cache
	for _, cid := range condIDs {
		crv := g.get(cid).rng
		if crv.dependentCaches == nil {
			crv.dependentCaches = make(map[VertexID]struct{})
		}
		crv.dependentCaches[vid] = struct{}{}
	}
	return cache[full].aggregate.(T), Value{}
}

// buildCriterionCache derives the cache of the values range from the one of
// the range one row shorter, provided the values range still chains from it.
func buildCriterionCache[T any](ip *Interpreter, vid VertexID, key string, values *RangeValue, conds []criterionCondition, red CriterionReducer[T]) map[string]criterionCacheEntry {
	out := make(map[string]criterionCacheEntry)
	smaller, _, ok := ip.graph.ranges.findSmallerRange(values.source)
	if !ok || !ip.graph.g.hasEdge(smaller, vid) {
		return out
	}
	prev := ip.graph.g.get(smaller).rng.criterionCache[key]
	last := values.Height() - 1
	for crit, entry := range prev {
		acc := entry.aggregate.(T)
		for col := range values.Width() {
			if matchesRow(conds, entry.predicates, col, last) {
				acc = red.Reduce(acc, red.Map(values.At(col, last)))
			}
		}
		out[crit] = criterionCacheEntry{aggregate: acc, predicates: entry.predicates}
	}
	return out
}

func matchesRow(conds []criterionCondition, predicates []func(Value) bool, col, row int) bool {
	for i, c := range conds {
		if !predicates[i](c.rng.At(col, row)) {
			return false
		}
	}
	return true
}

// evaluateCriterion computes the aggregate over the whole range.
func evaluateCriterion[T any](values *RangeValue, conds []criterionCondition, red CriterionReducer[T]) T {
	predicates := make([]func(Value) bool, len(conds))
	for i, c := range conds {
		predicates[i] = c.predicate
	}
	acc := red.Zero
	for row := range values.Height() {
		for col := range values.Width() {
			if matchesRow(conds, predicates, col, row) {
				acc = red.Reduce(acc, red.Map(values.At(col, row)))
			}
		}
	}
	return acc
}

// clearRangeCaches drops the aggregates cached on a range vertex and on
// the values ranges which used it as a condition range.
func (d *DependencyGraph) clearRangeCaches(id VertexID) {
	v := d.g.get(id)
	if v == nil || v.kind != kindRange {
		return
	}
	rv := v.rng
	rv.criterionCache = nil
	rv.functionCache = nil
	for dep := range rv.dependentCaches {
		if dv := d.g.get(dep); dv != nil && dv.kind == kindRange {
			dv.rng.criterionCache = nil
		}
	}
	rv.dependentCaches = nil
}

// criterionArgs reads (range, criterion) argument pairs starting at from.
func criterionArgs(c *FunctionCall, from int) ([]criterionCondition, Value) {
	if (len(c.Args)-from)%2 != 0 || len(c.Args) <= from {
		return nil, CellError(ErrorNA, c.Name+" requires range and criterion pairs")
	}
	var conds []criterionCondition
	for i := from; i < len(c.Args); i += 2 {
		m, errV := c.Matrix(i)
		if m == nil {
			return nil, errV
		}
		raw := c.Scalar(i + 1)
		if stuck(raw) {
			return nil, raw
		}
		parsed, ok := c.ip.arith.parseCriterion(raw)
		if !ok {
			return nil, CellError(ErrorValue, "criterion is not valid")
		}
		conds = append(conds, criterionCondition{rng: m, raw: raw, predicate: c.ip.arith.predicate(parsed)})
	}
	return conds, Value{}
}

var sumCriterion = CriterionReducer[Value]{
	Zero: NumberValue(0),
	Map: func(v Value) Value {
		if v.Type == ValueNumber || stuck(v) {
			return v
		}
		return NumberValue(0)
	},
	Reduce: func(acc, next Value) Value {
		switch {
		case stuck(acc):
			return acc
		case stuck(next):
			return next
		}
		return NumberValue(acc.Number + next.Number)
	},
}

var countCriterion = CriterionReducer[int]{
	Zero:   0,
	Map:    func(Value) int { return 1 },
	Reduce: func(acc, next int) int { return acc + next },
}

// averageAcc is the running state of AVERAGEIF.
type averageAcc struct {
	sum   float64
	count int
	err   Value
}

var averageCriterion = CriterionReducer[averageAcc]{
	Map: func(v Value) averageAcc {
		switch {
		case stuck(v):
			return averageAcc{err: v}
		case v.Type == ValueNumber:
			return averageAcc{sum: v.Number, count: 1}
		}
		return averageAcc{}
	},
	Reduce: func(acc, next averageAcc) averageAcc {
		if stuck(acc.err) {
			return acc
		}
		if stuck(next.err) {
			return next
		}
		return averageAcc{sum: acc.sum + next.sum, count: acc.count + next.count}
	},
}

func (a averageAcc) value() Value {
	if stuck(a.err) {
		return a.err
	}
	if a.count == 0 {
		return CellError(ErrorDivByZero, "no numbers to average")
	}
	return NumberValue(a.sum / float64(a.count))
}

// valuesArg reads the optional values range of the *IF functions, falling
// back to the condition range.
func valuesArg(c *FunctionCall, i int, conds []criterionCondition) (*RangeValue, Value) {
	if i >= len(c.Args) {
		return conds[0].rng, Value{}
	}
	return c.Matrix(i)
}

func fnSUMIF(c *FunctionCall) Result {
	if len(c.Args) < 2 || len(c.Args) > 3 {
		return scalarResult(CellError(ErrorNA, "SUMIF requires 2 or 3 arguments"))
	}
	conds, errV := criterionArgs(c.head(2), 0)
	if conds == nil {
		return scalarResult(errV)
	}
	values, errV := valuesArg(c, 2, conds)
	if values == nil {
		return scalarResult(errV)
	}
	sum, errV := computeCriterion(c.ip, "SUMIF", values, conds, sumCriterion)
	if errV.IsError() {
		return scalarResult(errV)
	}
	return scalarResult(sum)
}

func fnSUMIFS(c *FunctionCall) Result {
	values, errV := c.Matrix(0)
	if values == nil {
		return scalarResult(errV)
	}
	conds, errV := criterionArgs(c, 1)
	if conds == nil {
		return scalarResult(errV)
	}
	sum, errV := computeCriterion(c.ip, "SUMIF", values, conds, sumCriterion)
	if errV.IsError() {
		return scalarResult(errV)
	}
	return scalarResult(sum)
}

func fnCOUNTIF(c *FunctionCall) Result {
	if len(c.Args) != 2 {
		return scalarResult(CellError(ErrorNA, "COUNTIF requires 2 arguments"))
	}
	return countIfs(c)
}

func fnCOUNTIFS(c *FunctionCall) Result { return countIfs(c) }

func countIfs(c *FunctionCall) Result {
	conds, errV := criterionArgs(c, 0)
	if conds == nil {
		return scalarResult(errV)
	}
	n, errV := computeCriterion(c.ip, "COUNTIF", conds[0].rng, conds, countCriterion)
	if errV.IsError() {
		return scalarResult(errV)
	}
	return scalarResult(NumberValue(float64(n)))
}

func fnAVERAGEIF(c *FunctionCall) Result {
	if len(c.Args) < 2 || len(c.Args) > 3 {
		return scalarResult(CellError(ErrorNA, "AVERAGEIF requires 2 or 3 arguments"))
	}
	conds, errV := criterionArgs(c.head(2), 0)
	if conds == nil {
		return scalarResult(errV)
	}
	values, errV := valuesArg(c, 2, conds)
	if values == nil {
		return scalarResult(errV)
	}
	acc, errV := computeCriterion(c.ip, "AVERAGEIF", values, conds, averageCriterion)
	if errV.IsError() {
		return scalarResult(errV)
	}
	return scalarResult(acc.value())
}

func fnAVERAGEIFS(c *FunctionCall) Result {
	values, errV := c.Matrix(0)
	if values == nil {
		return scalarResult(errV)
	}
	conds, errV := criterionArgs(c, 1)
	if conds == nil {
		return scalarResult(errV)
	}
	acc, errV := computeCriterion(c.ip, "AVERAGEIF", values, conds, averageCriterion)
	if errV.IsError() {
		return scalarResult(errV)
	}
	return scalarResult(acc.value())
}
