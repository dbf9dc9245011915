package formulagraph

import (
	"regexp"
	"strings"
)

// criterionOp is the comparison of a parsed criterion.
type criterionOp uint8

const (
	criterionEQ criterionOp = iota
	criterionNE
	criterionGT
	criterionGE
	criterionLT
	criterionLE
)

var criterionOps = map[string]criterionOp{
	"=":  criterionEQ,
	"<>": criterionNE,
	">":  criterionGT,
	">=": criterionGE,
	"<":  criterionLT,
	"<=": criterionLE,
}

var criterionPattern = regexp.MustCompile(`(?s)^([<>=]+)(.*)$`)

// criterion is the parsed form of a SUMIF style condition.
type criterion struct {
	op criterionOp
	// value is nil for a bare operator such as "=" or "<>".
	value *Value
}

// parseCriterion reads a condition value. Numbers and logicals compare for
// equality; text may carry a leading comparison operator.
func (a *arithmetic) parseCriterion(v Value) (criterion, bool) {
	switch v.Type {
	case ValueNumber, ValueBoolean:
		return criterion{op: criterionEQ, value: &v}, true
	case ValueString:
	default:
		return criterion{}, false
	}
	m := criterionPattern.FindStringSubmatch(v.String)
	if m == nil {
		return a.criterionOperand(criterionEQ, v.String)
	}
	op, ok := criterionOps[m[1]]
	if !ok {
		return criterion{}, false
	}
	if m[2] == "" {
		return criterion{op: op}, true
	}
	return a.criterionOperand(op, m[2])
}

func (a *arithmetic) criterionOperand(op criterionOp, text string) (criterion, bool) {
	if n, ok := parseNumber(text); ok {
		val := NumberValue(n)
		return criterion{op: op, value: &val}, true
	}
	if op != criterionEQ && op != criterionNE {
		return criterion{}, false
	}
	var val Value
	switch strings.ToUpper(text) {
	case "TRUE":
		val = BoolValue(true)
	case "FALSE":
		val = BoolValue(false)
	default:
		val = StringValue(text)
	}
	return criterion{op: op, value: &val}, true
}

// predicate compiles a criterion into a cell test.
func (a *arithmetic) predicate(c criterion) func(Value) bool {
	if c.value == nil {
		if c.op == criterionEQ {
			return Value.IsEmpty
		}
		if c.op == criterionNE {
			return func(v Value) bool { return !v.IsEmpty() }
		}
		return func(Value) bool { return false }
	}
	want := *c.value
	switch want.Type {
	case ValueNumber:
		return a.numberPredicate(c.op, want.Number)
	case ValueBoolean:
		eq := func(v Value) bool { return v.Type == ValueBoolean && v.Boolean == want.Boolean }
		if c.op == criterionNE {
			return func(v Value) bool { return !eq(v) }
		}
		return eq
	}
	re := a.buildMatcher(want.String)
	eq := func(v Value) bool { return v.Type == ValueString && re.MatchString(v.String) }
	if c.op == criterionNE {
		return func(v Value) bool { return !eq(v) }
	}
	return eq
}

func (a *arithmetic) numberPredicate(op criterionOp, want float64) func(Value) bool {
	// equality also accepts numeric text, ordering compares numbers only
	asNumber := func(v Value) (float64, bool) {
		switch v.Type {
		case ValueNumber:
			return v.Number, true
		case ValueString:
			return parseNumber(v.String)
		}
		return 0, false
	}
	switch op {
	case criterionEQ:
		return func(v Value) bool {
			n, ok := asNumber(v)
			return ok && a.floatCmp(n, want) == 0
		}
	case criterionNE:
		return func(v Value) bool {
			n, ok := asNumber(v)
			return !ok || a.floatCmp(n, want) != 0
		}
	}
	return func(v Value) bool {
		if v.Type != ValueNumber {
			return false
		}
		cmp := a.floatCmp(v.Number, want)
		switch op {
		case criterionGT:
			return cmp > 0
		case criterionGE:
			return cmp >= 0
		case criterionLT:
			return cmp < 0
		}
		return cmp <= 0
	}
}

// criterionCacheEntry is a cached aggregate with the predicates it was
// computed with, so it can be extended by one row later.
type criterionCacheEntry struct {
	aggregate  any
	predicates []func(Value) bool
}
