package formulagraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestArithmetic(t *testing.T, opts ...Options) *arithmetic {
	t.Helper()
	o, err := getOptions(opts...)
	require.NoError(t, err)
	return newArithmetic(o)
}

func TestCriterionPredicates(t *testing.T) {
	type sample struct {
		v    Value
		want bool
	}
	for _, c := range []struct {
		criterion Value
		opts      Options
		samples   []sample
	}{
		{StringValue(">1"), Options{}, []sample{
			{NumberValue(2), true}, {NumberValue(1), false}, {StringValue("5"), false}, {EmptyValue(), false},
		}},
		{StringValue("<=2"), Options{}, []sample{
			{NumberValue(2), true}, {NumberValue(2.5), false}, {NumberValue(-1), true},
		}},
		{NumberValue(3), Options{}, []sample{
			{NumberValue(3), true}, {StringValue("3"), true}, {NumberValue(4), false},
		}},
		{StringValue("<>3"), Options{}, []sample{
			{NumberValue(4), true}, {NumberValue(3), false}, {StringValue("abc"), true},
		}},
		{StringValue("app*"), Options{}, []sample{
			{StringValue("Apple"), true}, {StringValue("pineapple"), false}, {NumberValue(1), false},
		}},
		{StringValue("a?c"), Options{}, []sample{
			{StringValue("abc"), true}, {StringValue("abbc"), false},
		}},
		{StringValue("~*"), Options{}, []sample{
			{StringValue("*"), true}, {StringValue("x"), false},
		}},
		{StringValue("="), Options{}, []sample{
			{EmptyValue(), true}, {NumberValue(0), false},
		}},
		{StringValue("<>"), Options{}, []sample{
			{StringValue("x"), true}, {EmptyValue(), false},
		}},
		{BoolValue(true), Options{}, []sample{
			{BoolValue(true), true}, {NumberValue(1), false}, {BoolValue(false), false},
		}},
		{StringValue("TRUE"), Options{}, []sample{
			{BoolValue(true), true}, {StringValue("TRUE"), false},
		}},
		{StringValue("a.c"), Options{UseRegularExpressions: true}, []sample{
			{StringValue("abc"), true}, {StringValue("a.c"), true}, {StringValue("ac"), false},
		}},
		{StringValue("a.c"), Options{}, []sample{
			{StringValue("abc"), false}, {StringValue("a.c"), true},
		}},
		{StringValue("App*"), Options{CaseSensitive: true}, []sample{
			{StringValue("apple"), false}, {StringValue("Apple"), true},
		}},
		{StringValue("a*"), Options{UseWildcards: Bool(false)}, []sample{
			{StringValue("abc"), false}, {StringValue("a*"), true},
		}},
	} {
		a := newTestArithmetic(t, c.opts)
		parsed, ok := a.parseCriterion(c.criterion)
		require.True(t, ok, c.criterion.Text())
		pred := a.predicate(parsed)
		for _, p := range c.samples {
			assert.Equal(t, p.want, pred(p.v), "%q on %q", c.criterion.Text(), p.v.Text())
		}
	}
}

func TestParseCriterionRejects(t *testing.T) {
	a := newTestArithmetic(t)
	for _, v := range []Value{StringValue(">abc"), StringValue("=<1"), CellError(ErrorNA), EmptyValue()} {
		_, ok := a.parseCriterion(v)
		assert.False(t, ok, v.Text())
	}
}

func TestWildcardToRegexp(t *testing.T) {
	for pattern, want := range map[string]string{
		"a*b":  "a.*b",
		"a?":   "a.",
		"~*x":  `\*x`,
		"~~":   "~",
		"1.5":  `1\.5`,
		"~a":   "~a",
		"(x)*": `\(x\).*`,
	} {
		assert.Equal(t, want, wildcardToRegexp(pattern), pattern)
	}
}
